package extract_test

import (
	"testing"

	"github.com/GaraRoyal/memoryvault/extract"
)

func TestParseEventsBareObject(t *testing.T) {
	raw := `{"summary": "Kael drew his blade", "importance": 3, "message_ids": [4]}`
	events := extract.ParseEvents(raw)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Summary != "Kael drew his blade" {
		t.Errorf("summary = %q", events[0].Summary)
	}
}

func TestParseEventsArray(t *testing.T) {
	raw := `[
		{"summary": "first", "importance": 2, "message_ids": [1]},
		{"summary": "second", "importance": 4, "message_ids": [2, 3]}
	]`
	events := extract.ParseEvents(raw)
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
}

func TestParseEventsFencedWithProse(t *testing.T) {
	raw := "Here are the extracted events:\n```json\n" +
		`[{"summary": "fenced", "importance": 1, "message_ids": [9]}]` +
		"\n```\nLet me know if you need more."
	events := extract.ParseEvents(raw)
	if len(events) != 1 || events[0].Summary != "fenced" {
		t.Fatalf("events = %+v", events)
	}
}

func TestParseEventsGarbage(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{broken", "[1, 2,"} {
		if events := extract.ParseEvents(raw); events != nil {
			t.Errorf("%q produced %+v, want nil", raw, events)
		}
	}
}

func TestParseEventsBadSiblingSurvives(t *testing.T) {
	raw := `[
		{"summary": "good", "importance": 2, "message_ids": [1]},
		{"summary": "bad impact", "message_ids": [2], "relationship_impact": {"A->B": 42}},
		{"summary": "also good", "importance": 3, "message_ids": [3]}
	]`
	events := extract.ParseEvents(raw)
	if len(events) != 2 {
		t.Fatalf("got %d events, want the 2 parseable ones", len(events))
	}
	if events[0].Summary != "good" || events[1].Summary != "also good" {
		t.Errorf("events = %+v", events)
	}
}

func TestParseEventsLegacyAndStructuredImpacts(t *testing.T) {
	raw := `{
		"summary": "the argument",
		"importance": 3,
		"message_ids": [5],
		"relationship_impact": {
			"A->B": "Tension rises between them",
			"B->A": {"respect": -1}
		}
	}`
	events := extract.ParseEvents(raw)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	impacts := events[0].RelationshipImpact
	ab := impacts["A->B"]
	if !ab.IsLegacy() || ab.Legacy != "Tension rises between them" {
		t.Errorf("A->B = %+v, want legacy text", ab)
	}
	ba := impacts["B->A"]
	if ba.IsLegacy() || ba.Delta.Respect == nil || *ba.Delta.Respect != -1 {
		t.Errorf("B->A = %+v, want structured respect delta", ba)
	}
}

func TestParseEventsBracesInsideStrings(t *testing.T) {
	raw := `{"summary": "she said \"}{\" and laughed", "importance": 1, "message_ids": [1]}`
	events := extract.ParseEvents(raw)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
}
