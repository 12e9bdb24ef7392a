package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written for every record.
const (
	MeasurementTemperature = "temperature"
	MeasurementHumidity    = "humidity"
	MeasurementBattery     = "battery"
)

// Time returns the reading time in UTC.
func (r Record) Time() time.Time {
	return time.Unix(r.UnixTime, 0).UTC()
}

// Points expands the record into three points, in the order temperature,
// humidity, battery. Each carries the tag name=<sensor name>, the record
// time and a single field "value".
func (r Record) Points() []*write.Point {
	return []*write.Point{
		r.point(MeasurementTemperature, r.Temperature),
		r.point(MeasurementHumidity, r.Humidity),
		r.point(MeasurementBattery, r.Battery),
	}
}

func (r Record) point(measurement string, value float64) *write.Point {
	return write.NewPoint(
		measurement,
		map[string]string{
			"name": r.Name,
		},
		map[string]interface{}{
			"value": value,
		},
		r.Time(),
	)
}
