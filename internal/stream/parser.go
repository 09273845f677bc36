package stream

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

const dataPrefix string = "data:"
const doneSentinel string = "[DONE]"

// contentPaths are probed in order for the text of a chunk
var contentPaths = []string{"content", "data", "text", "answer", "delta.content", "choices.0.delta.content"}

type frameKind int

const (
	frameSkip frameKind = iota
	frameChunk
	frameDone
)

// lineBuffer accumulates the bytes of the response and hands out complete lines. Splitting
// happens on bytes so a multi-byte character cut between two reads is never decoded early.
type lineBuffer struct {
	pending []byte
}

// feed appends the chunk and returns the lines it completed, the trailing segment is kept
func (b *lineBuffer) feed(chunk []byte) []string {
	b.pending = append(b.pending, chunk...)
	idx := bytes.LastIndexByte(b.pending, '\n')
	if idx < 0 {
		return nil
	}
	lines := strings.Split(string(b.pending[:idx]), "\n")
	rest := make([]byte, len(b.pending)-idx-1)
	copy(rest, b.pending[idx+1:])
	b.pending = rest
	return lines
}

// flush returns the unterminated trailing line once the response has ended
func (b *lineBuffer) flush() string {
	line := string(b.pending)
	b.pending = nil
	return line
}

// parseFrame interprets one line of the event stream
func parseFrame(line string) (string, frameKind) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return "", frameSkip
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return "", frameSkip
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == "" {
		return "", frameSkip
	}
	if payload == doneSentinel {
		return "", frameDone
	}
	if !gjson.Valid(payload) {
		return payload, frameChunk
	}
	parsed := gjson.Parse(payload)
	if parsed.IsObject() {
		for _, path := range contentPaths {
			res := parsed.Get(path)
			if res.Type == gjson.String {
				return res.String(), frameChunk
			}
		}
	}
	return payload, frameChunk
}
