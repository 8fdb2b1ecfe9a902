package domain

import "strings"

// OperatingMode is the battery system run mode as exposed to operators.
type OperatingMode string

const (
	ModeRegular OperatingMode = "regular"
	ModeSell    OperatingMode = "sell"
	ModeBuy     OperatingMode = "buy"
)

// VendorCode maps the mode to the value written to the run-mode register.
func (m OperatingMode) VendorCode() uint16 {
	switch m {
	case ModeSell:
		return 3
	case ModeBuy:
		return 5
	default:
		return 1
	}
}

func (m OperatingMode) Valid() bool {
	switch m {
	case ModeRegular, ModeSell, ModeBuy:
		return true
	}
	return false
}

// ParseOperatingMode accepts the select option labels and the bare mode ids.
func ParseOperatingMode(s string) (OperatingMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regular", "regular mode":
		return ModeRegular, true
	case "sell", "sell mode", "electricity sell":
		return ModeSell, true
	case "buy", "buy mode", "battery energy management":
		return ModeBuy, true
	}
	return "", false
}
