package api

import (
	"github.com/aliafifi710/production-dashboard/internal/alarm"
	"github.com/aliafifi710/production-dashboard/internal/store"
)

// SensorJSON is the JSON representation of one sensor's live state.
type SensorJSON struct {
	Name    string   `json:"name"`
	Value   *float64 `json:"value"` // null before the first reading
	TS      string   `json:"ts"`
	Status  string   `json:"status"`
	Low     float64  `json:"low"`
	High    float64  `json:"high"`
	InAlarm bool     `json:"in_alarm"`
}

// SensorsJSON is the /api/sensors response envelope.
type SensorsJSON struct {
	SystemStatus string       `json:"system_status"`
	Sensors      []SensorJSON `json:"sensors"`
	AlarmsCount  int          `json:"alarms_count"`
}

// AlarmJSON is the JSON representation of one alarm record.
type AlarmJSON struct {
	ID     string  `json:"id"`
	TS     string  `json:"ts"`
	Sensor string  `json:"sensor"`
	Value  float64 `json:"value"`
	Kind   string  `json:"kind"`
}

// AlarmsJSON is the /api/alarms response envelope.
type AlarmsJSON struct {
	Count  int         `json:"count"`
	Alarms []AlarmJSON `json:"alarms"`
}

func sensorsJSON(snap store.Snapshot) SensorsJSON {
	out := SensorsJSON{
		SystemStatus: snap.SystemStatus,
		Sensors:      make([]SensorJSON, 0, len(snap.Sensors)),
		AlarmsCount:  snap.AlarmCount,
	}
	for _, sensor := range snap.Sensors {
		sj := SensorJSON{
			Name:    sensor.Name,
			TS:      sensor.TS,
			Status:  sensor.Status,
			Low:     sensor.Low,
			High:    sensor.High,
			InAlarm: sensor.InAlarm,
		}
		if sensor.HasValue {
			v := sensor.Value
			sj.Value = &v
		}
		out.Sensors = append(out.Sensors, sj)
	}
	return out
}

func alarmsJSON(records []alarm.Record, total int) AlarmsJSON {
	out := AlarmsJSON{
		Count:  total,
		Alarms: make([]AlarmJSON, 0, len(records)),
	}
	for _, rec := range records {
		out.Alarms = append(out.Alarms, AlarmJSON{
			ID:     rec.ID,
			TS:     rec.TS,
			Sensor: rec.Sensor,
			Value:  rec.Value,
			Kind:   string(rec.Kind),
		})
	}
	return out
}
