package domain

import "time"

// Telemetry channel ids. Channels carry non-negative instantaneous power
// in watts; direction is encoded by the channel itself.
const (
	CHANNEL_SOLAR_POWER             = "solar_power"
	CHANNEL_HOUSE_POWER             = "house_power"
	CHANNEL_BATTERY_CHARGE_POWER    = "battery_charge_power"
	CHANNEL_BATTERY_DISCHARGE_POWER = "battery_discharge_power"
	CHANNEL_GRID_IMPORT_POWER       = "grid_import_power"
	CHANNEL_GRID_EXPORT_POWER       = "grid_export_power"
)

type PowerSample struct {
	Channel   string
	PowerWatt float64
	At        time.Time
}

type BucketSpan uint8

const (
	SpanHalfHour BucketSpan = iota
	SpanDay
	SpanMonth
)

func (s BucketSpan) String() string {
	switch s {
	case SpanHalfHour:
		return "half_hour"
	case SpanDay:
		return "day"
	case SpanMonth:
		return "month"
	default:
		return "unknown"
	}
}

// Align truncates t down to the span boundary: the previous :00/:30 mark,
// local midnight, or the first of the local month.
func (s BucketSpan) Align(t time.Time) time.Time {
	t = t.Local()
	switch s {
	case SpanHalfHour:
		min := (t.Minute() / 30) * 30
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), min, 0, 0, t.Location())
	case SpanDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case SpanMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return t
	}
}

func (s BucketSpan) Next(start time.Time) time.Time {
	switch s {
	case SpanHalfHour:
		return start.Add(30 * time.Minute)
	case SpanDay:
		return start.AddDate(0, 0, 1)
	case SpanMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start
	}
}

type EnergyBucket struct {
	Channel   string
	Span      BucketSpan
	Start     time.Time
	EnergyKWh float64
}
