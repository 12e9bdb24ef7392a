package telemetry

import "github.com/thermowatch/thermowatch/internal/infrastructure/influxdb"

// Aggregation window of the dashboard chart: 48 hours of 15-minute buckets.
const (
	queryWindow = "48h"
	queryBucket = "15m"
	queryLimit  = "192"
)

// meanTemperatureCommand is bound with $name at execution time.
const meanTemperatureCommand = `SELECT mean("value") AS "mean_temperature" FROM "temperature" ` +
	`WHERE time > now() - ` + queryWindow + ` AND "name" = $name ` +
	`GROUP BY time(` + queryBucket + `) ORDER BY time DESC LIMIT ` + queryLimit

// MeanTemperatureQuery returns the chart query for one sensor: mean
// temperature per 15 minutes over the last 48 hours, newest first.
//
// The sensor name is passed as a bound parameter, never spliced into the
// statement.
func MeanTemperatureQuery(sensorName string) influxdb.Query {
	return influxdb.Query{
		Command: meanTemperatureCommand,
		Params:  map[string]any{"name": sensorName},
	}
}
