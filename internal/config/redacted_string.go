package config

import (
	"fmt"
	"strconv"
)

// RedactedString is a string that never shows its value when printed, logged or serialized
type RedactedString string

func (r RedactedString) String() string {
	return fmt.Sprintf("<redacted-%d-chars>", len(r))
}

func (r RedactedString) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r RedactedString) MarshalBinary() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r RedactedString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(r.String())), nil
}
