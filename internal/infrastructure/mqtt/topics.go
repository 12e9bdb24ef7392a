package mqtt

import "strings"

// StatusTopic carries the retained online/offline message for this service.
const StatusTopic = "thermowatch/system/status"

// Sensors publish on thermowatch/sensors/{sensor_id}/telemetry.
const (
	sensorTopicPrefix = "thermowatch/sensors/"
	sensorTopicSuffix = "/telemetry"
)

// SensorIDFromTopic extracts the sensor id from a per-sensor telemetry
// topic. It reports false for any other topic, including ones with an empty
// or multi-level id.
func SensorIDFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, sensorTopicPrefix)
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, sensorTopicSuffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
