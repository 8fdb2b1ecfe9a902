package sunhome

import (
	"context"
	"fmt"
)

// System run mode register values.
const (
	RUN_MODE_REGULAR             uint16 = 1
	RUN_MODE_EMERGENCY           uint16 = 2
	RUN_MODE_ELECTRICITY_SELL    uint16 = 3
	RUN_MODE_BATTERY_ENERGY_MGMT uint16 = 5

	// REGISTER_SYSTEM_RUN_MODE is the writable run-mode register.
	REGISTER_SYSTEM_RUN_MODE uint16 = 57
)

func RunModeString(code uint16) string {
	switch code {
	case RUN_MODE_REGULAR:
		return "Regular"
	case RUN_MODE_EMERGENCY:
		return "Emergency"
	case RUN_MODE_ELECTRICITY_SELL:
		return "Electricity Sell"
	case RUN_MODE_BATTERY_ENERGY_MGMT:
		return "Battery Energy Management"
	default:
		return fmt.Sprintf("Unknown (%d)", code)
	}
}

// Commander writes commands to the battery system through the vendor cloud.
type Commander interface {
	// Connect opens the cloud session. Must be called before any write.
	Connect(ctx context.Context) error
	// SetRunMode writes the system run-mode register.
	SetRunMode(ctx context.Context, code uint16) error
	Close()
}

func UpTopic(deviceId string) string {
	return fmt.Sprintf("/ESY/PVVC/%s/UP", deviceId)
}

func DownTopic(deviceId string) string {
	return fmt.Sprintf("/ESY/PVVC/%s/DOWN", deviceId)
}

func AlarmTopic(deviceId string) string {
	return fmt.Sprintf("/ESY/PVVC/%s/ALARM", deviceId)
}
