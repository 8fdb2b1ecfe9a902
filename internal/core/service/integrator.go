package service

import (
	"math"
	"time"

	"sunledger2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

// Integrator accumulates one power channel into aligned buckets of one span.
// Each accepted sample contributes sample.PowerWatt held constant over the
// elapsed time since the previous sample. Elapsed time above MaxSampleGap
// contributes nothing, so outages leave holes instead of inventing energy.
type Integrator struct {
	Channel      string
	Span         domain.BucketSpan
	MaxSampleGap time.Duration

	open     *domain.EnergyBucket
	lastAt   time.Time
	hasPrior bool
}

func NewIntegrator(channel string, span domain.BucketSpan, maxGap time.Duration) *Integrator {
	return &Integrator{
		Channel:      channel,
		Span:         span,
		MaxSampleGap: maxGap,
	}
}

// Open returns the currently accumulating bucket, or nil before the first
// sample.
func (g *Integrator) Open() *domain.EnergyBucket {
	if g.open == nil {
		return nil
	}
	cp := *g.open
	return &cp
}

// Integrate feeds one sample and returns any buckets it closed. Samples with
// negative or non-finite power, or timestamps at or before the previous
// sample, are dropped.
func (g *Integrator) Integrate(sample domain.PowerSample) []domain.EnergyBucket {
	if sample.PowerWatt < 0 || math.IsNaN(sample.PowerWatt) || math.IsInf(sample.PowerWatt, 0) {
		return nil
	}
	at := sample.At.Local()

	if !g.hasPrior {
		g.openBucketAt(at)
		g.lastAt = at
		g.hasPrior = true
		return nil
	}
	if !at.After(g.lastAt) {
		return nil
	}

	elapsed := at.Sub(g.lastAt)
	withinGap := elapsed <= g.MaxSampleGap

	var closed []domain.EnergyBucket
	bucketEnd := g.Span.Next(g.open.Start)

	if at.Before(bucketEnd) || at.Equal(bucketEnd) {
		if withinGap {
			g.open.EnergyKWh += energyKWh(sample.PowerWatt, elapsed)
		}
		if at.Equal(bucketEnd) {
			closed = append(closed, *g.open)
			g.openBucketAt(at)
		}
	} else if withinGap {
		// sample lands past the open bucket's end. Walk the interval across
		// every boundary it crosses so each bucket gets its share, including
		// fully covered intermediate buckets.
		last := g.lastAt
		for at.After(bucketEnd) {
			g.open.EnergyKWh += energyKWh(sample.PowerWatt, bucketEnd.Sub(last))
			closed = append(closed, *g.open)
			last = bucketEnd
			g.openBucketAt(bucketEnd)
			bucketEnd = g.Span.Next(g.open.Start)
		}
		g.open.EnergyKWh += energyKWh(sample.PowerWatt, at.Sub(last))
		if at.Equal(bucketEnd) {
			closed = append(closed, *g.open)
			g.openBucketAt(at)
		}
	} else {
		closed = append(closed, *g.open)
		g.openBucketAt(at)
	}

	g.lastAt = at
	return closed
}

func (g *Integrator) openBucketAt(t time.Time) {
	g.open = &domain.EnergyBucket{
		Channel: g.Channel,
		Span:    g.Span,
		Start:   g.Span.Align(t),
	}
}

func energyKWh(powerWatt float64, d time.Duration) float64 {
	return powerWatt * d.Hours() / 1000
}

// IntegratorSet runs the half-hour, day and month integrators for a set of
// channels.
type IntegratorSet struct {
	maxGap      time.Duration
	integrators map[string][]*Integrator
	logger      *zap.Logger
}

func NewIntegratorSet(channels []string, maxGap time.Duration, logger *zap.Logger) *IntegratorSet {
	set := &IntegratorSet{
		maxGap:      maxGap,
		integrators: make(map[string][]*Integrator, len(channels)),
		logger:      logger,
	}
	spans := []domain.BucketSpan{domain.SpanHalfHour, domain.SpanDay, domain.SpanMonth}
	for _, ch := range channels {
		igs := make([]*Integrator, 0, len(spans))
		for _, span := range spans {
			igs = append(igs, NewIntegrator(ch, span, maxGap))
		}
		set.integrators[ch] = igs
	}
	return set
}

// Integrate routes the sample to the channel's integrators and returns every
// bucket that closed.
func (s *IntegratorSet) Integrate(sample domain.PowerSample) []domain.EnergyBucket {
	igs, ok := s.integrators[sample.Channel]
	if !ok {
		s.logger.Warn("integrator: sample for unknown channel", zap.String("channel", sample.Channel))
		return nil
	}
	var closed []domain.EnergyBucket
	for _, ig := range igs {
		closed = append(closed, ig.Integrate(sample)...)
	}
	return closed
}

// Open returns the open buckets for a channel, half-hour first.
func (s *IntegratorSet) Open(channel string) []domain.EnergyBucket {
	var out []domain.EnergyBucket
	for _, ig := range s.integrators[channel] {
		if b := ig.Open(); b != nil {
			out = append(out, *b)
		}
	}
	return out
}
