package events

import (
	. "sunledger2mqtt/internal/core/domain"
)

func EnergyBucketToUpdateEvents(bucket EnergyBucket) []any {
	var events []any

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: EnergyBucketSensorId(bucket.Channel, bucket.Span),
		},
		Value:    bucket.EnergyKWh,
		Decimals: 3,
	})

	return events
}

func RateSignalToUpdateEvents(signal RateSignal) []any {
	var events []any

	rateId := SENSOR_ID_IMPORT_RATE
	bandId := SENSOR_ID_IMPORT_BAND
	if signal.Direction == TariffExport {
		rateId = SENSOR_ID_EXPORT_RATE
		bandId = SENSOR_ID_EXPORT_BAND
	}
	if !signal.Known {
		return events
	}

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: rateId,
		},
		Value:    signal.Rate,
		Decimals: 4,
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: bandId,
		},
		Value: string(signal.Band),
	})

	return events
}

func LedgerToUpdateEvents(snapshot LedgerSnapshot) []any {
	var events []any

	// Lifetime total
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_LEDGER_TOTAL,
		},
		Value:    snapshot.Total,
		Decimals: 4,
	})
	// Last applied half-hour cost
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_LAST_WINDOW_COST,
		},
		Value:    snapshot.LastWindowCost,
		Decimals: 4,
	})

	return events
}

func StateOfChargeToUpdateEvents(percent float64) []any {
	var events []any

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_SOC,
		},
		Value:    percent,
		Decimals: 2,
	})

	return events
}

func OperatingModeToUpdateEvents(mode OperatingMode) []any {
	var events []any

	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_OPERATING_MODE,
		},
		Value: string(mode),
	})
	events = append(events, SelectSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SELECT_ID_OPERATING_MODE,
		},
		Value: string(mode),
	})

	return events
}
