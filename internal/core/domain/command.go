package domain

import "fmt"

// BatteryCommand

type BatteryCommand interface {
	ActorRequest
	BatteryCommandName() string
}

type BatteryCommandMixIn struct {
	ActorRequestMixIn
}

func (r BatteryCommandMixIn) BatteryCommandName() string {
	return fmt.Sprintf("%T", r)
}

// BatteryCommandResponse

type BatteryCommandResponse interface {
	ActorResponse
	BatteryCommandResponseName() string
}

type BatteryCommandResponseMixIn struct {
	ActorResponse
}

func (r BatteryCommandResponseMixIn) BatteryCommandResponseName() string {
	return fmt.Sprintf("%T", r)
}

// ensure interface compliance
var _ BatteryCommand = (*SetOperatingModeRequest)(nil)
