package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// nanosPerSecond converts the wire timestamp to Unix seconds.
const nanosPerSecond = 1_000_000_000

// requiredFields lists every key a payload must carry, in report order.
var requiredFields = []string{"name", "timestamp", "temperature", "humidity", "battery"}

// Record is one validated sensor reading.
//
// Records are only built by ParseRecord and are never modified afterwards.
type Record struct {
	Name        string
	UnixTime    int64 // seconds; sub-second precision is dropped
	Temperature float64
	Humidity    float64
	Battery     float64
}

// payload mirrors the wire format. Numeric fields are weakly typed so that
// "21.5" and 21.5 decode alike.
type payload struct {
	Name        string  `mapstructure:"name"`
	Timestamp   int64   `mapstructure:"timestamp"`
	Temperature float64 `mapstructure:"temperature"`
	Humidity    float64 `mapstructure:"humidity"`
	Battery     float64 `mapstructure:"battery"`
}

// ParseRecord decodes and validates a JSON telemetry payload.
//
// The body must be exactly one JSON object. All five fields are required;
// null counts as missing. temperature, humidity and battery accept JSON
// numbers or numeric strings, but not "", NaN or infinities. timestamp is an
// integer count of nanoseconds since the epoch and is truncated to seconds.
// name is stored exactly as sent.
//
// Returns:
//   - Record: The validated reading
//   - error: ErrInvalidRecord describing the first problem found
func ParseRecord(body []byte) (Record, error) {
	raw := make(map[string]any)

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Record{}, fmt.Errorf("%w: malformed JSON: %w", ErrInvalidRecord, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Record{}, fmt.Errorf("%w: trailing data after JSON object", ErrInvalidRecord)
	}

	for _, field := range requiredFields {
		if v, ok := raw[field]; !ok || v == nil {
			return Record{}, fmt.Errorf("%w: missing field %q", ErrInvalidRecord, field)
		}
	}

	// Booleans would be coerced to 0/1 by weak decoding; reject them up front.
	for _, field := range requiredFields[1:] {
		if _, ok := raw[field].(bool); ok {
			return Record{}, fmt.Errorf("%w: field %q must be numeric", ErrInvalidRecord, field)
		}
	}
	if _, ok := raw["name"].(string); !ok {
		return Record{}, fmt.Errorf("%w: field %q must be a string", ErrInvalidRecord, "name")
	}

	var p payload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       rejectEmptyNumbers,
		Result:           &p,
	})
	if err != nil {
		return Record{}, fmt.Errorf("creating decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if strings.TrimSpace(p.Name) == "" {
		return Record{}, fmt.Errorf("%w: field %q is empty", ErrInvalidRecord, "name")
	}

	for _, m := range []struct {
		field string
		value float64
	}{
		{"temperature", p.Temperature},
		{"humidity", p.Humidity},
		{"battery", p.Battery},
	} {
		if math.IsNaN(m.value) || math.IsInf(m.value, 0) {
			return Record{}, fmt.Errorf("%w: field %q must be finite", ErrInvalidRecord, m.field)
		}
	}

	return Record{
		Name:        p.Name,
		UnixTime:    p.Timestamp / nanosPerSecond,
		Temperature: p.Temperature,
		Humidity:    p.Humidity,
		Battery:     p.Battery,
	}, nil
}

// rejectEmptyNumbers stops weak decoding from turning "" into 0.
func rejectEmptyNumbers(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
	default:
		return data, nil
	}
	if strings.TrimSpace(reflect.ValueOf(data).String()) == "" {
		return nil, errors.New("empty string is not a number")
	}
	return data, nil
}
