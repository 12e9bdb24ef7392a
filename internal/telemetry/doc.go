// Package telemetry turns sensor readings into time-series points.
//
// A reading arrives as JSON (over HTTP or MQTT):
//
//	{"name":"a4:c1:38:a7:a0:67","timestamp":1700000000000000000,
//	 "temperature":21.5,"humidity":40.0,"battery":3.7}
//
// ParseRecord validates and normalises it into a Record (the nanosecond
// timestamp truncated to whole seconds), and Record.Points expands it into
// one point per measurement, tagged with the sensor name.
package telemetry
