// Package extract defines the event-extraction contract and the
// lenient parsing of extraction output. The LLM behind extraction is
// opaque: it receives recent messages and returns text that should be
// JSON (a single event object or an array) but may be wrapped in
// prose or fenced code blocks, or be garbage. Unparseable output yields
// zero events without error; individually malformed events are dropped
// later by the reducer.
package extract

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/GaraRoyal/memoryvault/core"
)

// Request is one extraction call over a window of recent messages.
type Request struct {
	Messages      []core.Message
	CharacterName string
	UserName      string
	BatchID       string
}

// Extractor produces raw extraction text from recent messages.
// Implementations: llm.Client (Anthropic-backed); tests use fakes.
type Extractor interface {
	Extract(ctx context.Context, req Request) (string, error)
}

// ParseEvents decodes extraction output into events. It accepts a bare
// object, an array, or either of those embedded in surrounding text
// (markdown fences, preambles). Anything undecodable yields nil.
func ParseEvents(raw string) []core.Event {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return nil
	}

	if strings.HasPrefix(payload, "[") {
		var events []core.Event
		if err := json.Unmarshal([]byte(payload), &events); err != nil {
			// Arrays with one bad element fail wholesale; retry
			// element-wise so good events survive a bad sibling.
			return parseElementwise(payload)
		}
		return events
	}

	var ev core.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Printf("[EXTRACT] Unparseable event object: %v", err)
		return nil
	}
	return []core.Event{ev}
}

// parseElementwise decodes an array one element at a time, keeping the
// elements that parse.
func parseElementwise(payload string) []core.Event {
	var rawElems []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &rawElems); err != nil {
		log.Printf("[EXTRACT] Unparseable event array: %v", err)
		return nil
	}
	var events []core.Event
	for i, elem := range rawElems {
		var ev core.Event
		if err := json.Unmarshal(elem, &ev); err != nil {
			log.Printf("[EXTRACT] Dropping malformed event #%d: %v", i, err)
			continue
		}
		events = append(events, ev)
	}
	return events
}

// extractJSONPayload finds the outermost JSON value in raw text: the
// first '[' or '{' through its matching close. Returns "" when no
// balanced JSON value is present.
func extractJSONPayload(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.IndexAny(raw, "[{")
	if start < 0 {
		return ""
	}
	open := raw[start]
	var closer byte = ']'
	if open == '{' {
		closer = '}'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
