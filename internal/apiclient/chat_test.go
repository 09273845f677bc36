package apiclient

import (
	"testing"

	"github.com/lexconsult/consult-client/internal/envelope"
	"github.com/stretchr/testify/assert"
)

func TestReplyText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string envelope", body: `{"code":200,"data":"hello"}`, want: "hello"},
		{name: "character object", body: `{"data":{"1":"b","0":"a","2":"c"}}`, want: "abc"},
		{name: "two digit positions", body: `{"data":{"10":"k","2":"c","0":"a","1":"b"}}`, want: "abck"},
		{name: "nested data string", body: `{"data":{"data":"nested"}}`, want: "nested"},
		{name: "nested data object", body: `{"data":{"data":{"0":"x","1":"y"}}}`, want: "xy"},
		{name: "bare string", body: `"plain"`, want: "plain"},
		{name: "not json", body: `plain text`, want: "plain text"},
		{name: "array", body: `{"data":["a","b"]}`, want: ""},
		{name: "null", body: `{"data":null}`, want: ""},
		{name: "empty", body: ``, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, replyText(envelope.Decode([]byte(tt.body))))
		})
	}
}
