package api

import "regexp"

// sensorIDPattern matches a lowercase MAC address such as a4:c1:38:a7:a0:67.
var sensorIDPattern = regexp.MustCompile(`^[0-9a-f]{2}(:[0-9a-f]{2}){5}$`)

// validSensorID reports whether id is a well-formed sensor id.
func validSensorID(id string) bool {
	return sensorIDPattern.MatchString(id)
}
