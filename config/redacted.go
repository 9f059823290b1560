package config

import (
	"encoding/json"
	"fmt"
)

// RedactedString is a secret that never shows up in logs or dumps.
type RedactedString string

func (r RedactedString) String() string {
	return fmt.Sprintf("<redacted-%d-chars>", len(r))
}

func (r RedactedString) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r RedactedString) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// Value returns the secret itself.
func (r RedactedString) Value() string {
	return string(r)
}
