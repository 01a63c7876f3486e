package agentcli

import (
	"bytes"
	"encoding/json"

	"github.com/harmix/assistant-api/internal/domain/agent"
)

// DecodeBuffer splits buf on newlines and decodes every complete line into an
// agent event, returning the unterminated remainder. Lines that fail to parse
// as JSON degrade to raw events instead of aborting the sequence. The function
// performs no I/O.
func DecodeBuffer(buf []byte) ([]agent.Event, []byte) {
	var events []agent.Event
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			return events, buf
		}
		line := buf[:idx]
		buf = buf[idx+1:]
		if event, ok := decodeLine(line); ok {
			events = append(events, event)
		}
	}
}

// DecodeRemainder decodes a trailing buffer that was never newline-terminated,
// e.g. the final partial output of an exited process.
func DecodeRemainder(buf []byte) []agent.Event {
	var events []agent.Event
	for _, line := range bytes.Split(buf, []byte("\n")) {
		if event, ok := decodeLine(line); ok {
			events = append(events, event)
		}
	}
	return events
}

func decodeLine(line []byte) (agent.Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return agent.Event{}, false
	}

	var event agent.Event
	if err := json.Unmarshal(line, &event); err != nil || event.Type == "" {
		return agent.Event{Type: agent.EventTypeRaw, Raw: string(line)}, true
	}
	return event, true
}
