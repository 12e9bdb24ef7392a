// Package influxdb provides InfluxDB connectivity for thermowatch.
//
// It wraps the official influxdb-client-go v2 library for point writes and
// issues InfluxQL through the /query endpoint of InfluxDB 1.8+ (the v2
// client only speaks Flux).
//
// # Usage
//
//	params, err := influxdb.ParseDSN(os.Getenv("AIVEN_INFLUX_DSN"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := influxdb.Connect(ctx, params, influxdb.Options{Timeout: 10 * time.Second})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.WritePoints(ctx, points...)
//	raw, err := client.Query(ctx, influxdb.Query{
//	    Command: `SELECT * FROM "temperature" WHERE "name" = $name`,
//	    Params:  map[string]any{"name": "a4:c1:38:a7:a0:67"},
//	})
//
// # Lifecycle
//
// A Client is cheap to create and is owned by exactly one unit of work.
// Callers acquire it, use it once or twice, and Close it on every path.
//
// # Error Handling
//
// Writes are blocking and return their error directly. Nothing is retried.
package influxdb
