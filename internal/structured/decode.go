// Package structured extracts a JSON object from free-form model output.
package structured

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoObject = errors.New("no structured object found")

// Decode scans text for the first '{' that starts a JSON object which decodes
// into T and passes validate. Prose before or after the object is ignored.
func Decode[T any](text string, validate func(*T) error) (T, error) {
	var zero T
	lastErr := ErrNoObject

	for offset := 0; offset < len(text); {
		idx := strings.IndexByte(text[offset:], '{')
		if idx < 0 {
			break
		}
		start := offset + idx

		var v T
		dec := json.NewDecoder(strings.NewReader(text[start:]))
		if err := dec.Decode(&v); err != nil {
			lastErr = err
		} else if validate != nil {
			if err := validate(&v); err != nil {
				lastErr = err
			} else {
				return v, nil
			}
		} else {
			return v, nil
		}
		offset = start + 1
	}

	return zero, lastErr
}

// DecodeOr is Decode with a documented default. ok is false when fallback was used.
func DecodeOr[T any](text string, validate func(*T) error, fallback T) (v T, ok bool) {
	v, err := Decode(text, validate)
	if err != nil {
		return fallback, false
	}
	return v, true
}
