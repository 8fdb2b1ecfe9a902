package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "sunledger2mqtt/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE = "bridge"

	SENSOR_ID_BATTERY_SOC    = "battery_soc"
	SENSOR_ID_OPERATING_MODE = "operating_mode"

	SENSOR_ID_IMPORT_RATE = "import_rate"
	SENSOR_ID_EXPORT_RATE = "export_rate"
	SENSOR_ID_IMPORT_BAND = "import_rate_band"
	SENSOR_ID_EXPORT_BAND = "export_rate_band"

	SENSOR_ID_LEDGER_TOTAL     = "ledger_total"
	SENSOR_ID_LAST_WINDOW_COST = "last_window_cost"

	SELECT_ID_OPERATING_MODE = "operating_mode"

	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL            = "total"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_BATTERY         = "battery"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_MONETARY        = "monetary"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
)

// EnergyBucketSensorId derives the sensor id for one channel and span, e.g.
// grid_import_power_half_hour_energy.
func EnergyBucketSensorId(channel string, span BucketSpan) string {
	return fmt.Sprintf("%s_%s_energy", channel, span.String())
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("sunledger_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ESY",
		Model:        "Sunledger",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Sunledger %s", md5HashShort(baseTopic)),
	}
}

func BatteryDevice(deviceId string) Device {
	return Device{
		Id:           fmt.Sprintf("esy_battery_%s", md5HashShort(deviceId)),
		Manufacturer: "ESY",
		Model:        "Sunhome",
		Name:         fmt.Sprintf("ESY Sunhome %s", md5HashShort(deviceId)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func EnergyBucketSensors(device Device, channels []string) []GenericSensor {

	var sensors []GenericSensor

	spans := []BucketSpan{SpanHalfHour, SpanDay, SpanMonth}
	for _, channel := range channels {
		for _, span := range spans {
			id := EnergyBucketSensorId(channel, span)
			sensors = append(sensors, GenericSensor{
				Device:            device,
				Id:                id,
				SensorType:        SENSOR_TYPE_SENSOR,
				Name:              fmt.Sprintf("%s %s energy", channel, span.String()),
				StateClass:        STATE_CLASS_TOTAL,
				DeviceClass:       DEVICE_CLASS_ENERGY,
				UnitOfMeasurement: "kWh",
				Icon:              "mdi:lightning-bolt",
				UniqueId:          uniqueId(device.Id, id),
			})
		}
	}

	return sensors
}

func TariffSensors(device Device, currency string) []GenericSensor {

	var sensors []GenericSensor

	// Import rate
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_IMPORT_RATE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Import rate",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: fmt.Sprintf("%s/kWh", currency),
		Icon:              "mdi:transmission-tower-import",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_IMPORT_RATE),
	})

	// Export rate
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_EXPORT_RATE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Export rate",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: fmt.Sprintf("%s/kWh", currency),
		Icon:              "mdi:transmission-tower-export",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_EXPORT_RATE),
	})

	// Import rate band
	sensors = append(sensors, GenericSensor{
		Device:     device,
		Id:         SENSOR_ID_IMPORT_BAND,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Import rate band",
		UniqueId:   uniqueId(device.Id, SENSOR_ID_IMPORT_BAND),
	})

	// Export rate band
	sensors = append(sensors, GenericSensor{
		Device:     device,
		Id:         SENSOR_ID_EXPORT_BAND,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Export rate band",
		UniqueId:   uniqueId(device.Id, SENSOR_ID_EXPORT_BAND),
	})

	return sensors
}

func LedgerSensors(device Device, currency string) []GenericSensor {

	var sensors []GenericSensor

	// Lifetime ledger total
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_LEDGER_TOTAL,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Ledger total",
		StateClass:        STATE_CLASS_TOTAL,
		DeviceClass:       DEVICE_CLASS_MONETARY,
		UnitOfMeasurement: currency,
		Icon:              "mdi:cash-multiple",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_LEDGER_TOTAL),
	})

	// Last applied half-hour cost
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_LAST_WINDOW_COST,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Last window cost",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_MONETARY,
		UnitOfMeasurement: currency,
		Icon:              "mdi:cash-clock",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_LAST_WINDOW_COST),
	})

	return sensors
}

func BatterySensors(batteryDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Battery SoC
	sensors = append(sensors, GenericSensor{
		Device:            batteryDevice,
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(batteryDevice.Id, SENSOR_ID_BATTERY_SOC),
	})

	// Operating mode
	sensors = append(sensors, GenericSensor{
		Device:     batteryDevice,
		Id:         SENSOR_ID_OPERATING_MODE,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Operating mode",
		Icon:       "mdi:battery-sync",
		UniqueId:   uniqueId(batteryDevice.Id, SENSOR_ID_OPERATING_MODE),
	})

	return sensors
}

func OperatingModeSelect(batteryDevice Device) GenericSelect {
	return GenericSelect{
		Device:   batteryDevice,
		Id:       SELECT_ID_OPERATING_MODE,
		Name:     "Operating mode",
		UniqueId: uniqueId(batteryDevice.Id, "operating_mode_select"),
		Icon:     "mdi:battery-sync",
		Options:  []string{string(ModeRegular), string(ModeSell), string(ModeBuy)},
	}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
