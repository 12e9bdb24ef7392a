// Package mqtt is the broker side of telemetry ingest.
//
// Sensors that cannot reach the HTTP endpoint publish each reading to a
// broker. The Client connects with a retained last will, announces itself
// on StatusTopic, subscribes one TelemetryHandler to the configured topic,
// and renews that subscription whenever paho reconnects.
//
// # Topics
//
//	thermowatch/sensors/{sensor_id}/telemetry   one JSON record per message
//	thermowatch/system/status                   retained service status
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.SubscribeTelemetry(func(sensorID string, payload []byte) error {
//	    return store(sensorID, payload)
//	})
package mqtt
