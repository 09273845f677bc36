// Package envelope decodes the response envelope of the consult backend.
//
// Successful responses are usually wrapped as {"code":...,"message":...,"data":...}.
// Some endpoints answer with the bare payload instead, so the decoder reports which
// of the two shapes it found and unwraps exactly one level.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

type Kind int

const (
	// KindRaw is a body that was not wrapped in an envelope
	KindRaw Kind = iota
	// KindNested is the content of the data member of an envelope
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindNested:
		return "nested"
	default:
		return "raw"
	}
}

type Payload struct {
	Kind Kind
	Data json.RawMessage
}

// Decode unwraps the data member when the body is a JSON object that has one. Bodies which are
// not valid JSON are kept as a JSON string so that the payload can always be re-encoded.
func Decode(body []byte) Payload {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Payload{Kind: KindRaw}
	}
	if !gjson.ValidBytes(body) {
		return Payload{Kind: KindRaw, Data: json.RawMessage(strconv.Quote(string(body)))}
	}
	parsed := gjson.ParseBytes(body)
	if parsed.IsObject() {
		data := parsed.Get("data")
		if data.Exists() {
			return Payload{Kind: KindNested, Data: json.RawMessage(data.Raw)}
		}
	}
	return Payload{Kind: KindRaw, Data: json.RawMessage(body)}
}

// IsNull reports an empty payload or a JSON null
func (p Payload) IsNull() bool {
	return len(p.Data) == 0 || bytes.Equal(p.Data, []byte("null"))
}

// Into decodes the payload into v, a null payload leaves v untouched
func (p Payload) Into(v any) error {
	if p.IsNull() {
		return nil
	}
	err := json.Unmarshal(p.Data, v)
	if err != nil {
		return fmt.Errorf("cannot decode the %s payload: %w", p.Kind, err)
	}
	return nil
}

// String returns the text of a JSON string payload and the raw JSON otherwise
func (p Payload) String() string {
	if p.IsNull() {
		return ""
	}
	res := gjson.ParseBytes(p.Data)
	if res.Type == gjson.String {
		return res.String()
	}
	return string(p.Data)
}

// MarshalJSON lets a payload be written back as is
func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p.Data) == 0 {
		return []byte("null"), nil
	}
	return p.Data, nil
}

// messageKeys are checked in order for a human readable error message
var messageKeys = []string{"message", "error", "msg"}

// Message extracts the error message of an error body, it returns an empty string when there is none
func Message(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return ""
	}
	for _, key := range messageKeys {
		res := parsed.Get(key)
		if res.Type == gjson.String && res.String() != "" {
			return res.String()
		}
	}
	return ""
}
