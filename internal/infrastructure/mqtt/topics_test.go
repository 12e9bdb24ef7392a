package mqtt

import "testing"

func TestSensorIDFromTopic(t *testing.T) {
	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{topic: "thermowatch/sensors/a4:c1:38:a7:a0:67/telemetry", wantID: "a4:c1:38:a7:a0:67", wantOK: true},
		{topic: "thermowatch/sensors/office/telemetry", wantID: "office", wantOK: true},
		{topic: "thermowatch/sensors//telemetry", wantOK: false},
		{topic: "thermowatch/sensors/a/b/telemetry", wantOK: false},
		{topic: "thermowatch/sensors/a/status", wantOK: false},
		{topic: StatusTopic, wantOK: false},
		{topic: "other/sensors/a/telemetry", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, ok := SensorIDFromTopic(tt.topic)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("SensorIDFromTopic(%q) = (%q, %v), want (%q, %v)", tt.topic, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}
