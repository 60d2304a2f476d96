package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalValues converts bound values to JSON TEXT for storage.
// Uses json.Encoder with HTML escaping disabled so SQL fragments such as
// a < b are stored verbatim. Times encode as RFC 3339, decimals as strings
// and byte slices as base64.
func marshalValues(values []any) (string, error) {
	if values == nil {
		values = []any{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(values); err != nil {
		return "", fmt.Errorf("marshal values: %w", err)
	}

	// json.Encoder.Encode adds a trailing newline
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// unmarshalValues decodes stored values. Numbers are kept as json.Number
// so large integers survive the round trip.
func unmarshalValues(data string) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	var values []any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}
	if values == nil {
		values = []any{}
	}
	return values, nil
}
