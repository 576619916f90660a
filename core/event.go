package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventType classifies an extracted narrative event.
type EventType string

const (
	EventAction             EventType = "action"
	EventRevelation         EventType = "revelation"
	EventEmotionShift       EventType = "emotion_shift"
	EventRelationshipChange EventType = "relationship_change"
)

// Event is one structured event produced by the extraction LLM from a
// window of raw messages. Field names match the extraction JSON
// contract; unknown fields are ignored, missing fields default.
type Event struct {
	Summary            string                        `json:"summary"`
	EventType          EventType                     `json:"event_type"`
	CharactersInvolved []string                      `json:"characters_involved"`
	Witnesses          []string                      `json:"witnesses"`
	Location           string                        `json:"location,omitempty"`
	IsSecret           bool                          `json:"is_secret"`
	KnownBy            []string                      `json:"known_by,omitempty"`
	Importance         int                           `json:"importance"`
	EmotionalTone      []string                      `json:"emotional_tone,omitempty"`
	EmotionalValence   float64                       `json:"emotional_valence"`
	EmotionalImpact    map[string]string             `json:"emotional_impact,omitempty"`
	RelationshipImpact map[string]RelationshipImpact `json:"relationship_impact,omitempty"`
	Promise            *PromiseEvent                 `json:"promise,omitempty"`
	Goal               *GoalEvent                    `json:"goal,omitempty"`
	Skill              *SkillEvent                   `json:"skill,omitempty"`
	MessageIDs         []int                         `json:"message_ids"`
}

// Valid reports whether the event carries the minimum required fields.
// Invalid events are skipped per-item by the reducer.
func (e *Event) Valid() bool {
	return e.Summary != "" && len(e.MessageIDs) > 0
}

// MinMessageID returns the smallest referenced message index.
func (e *Event) MinMessageID() int {
	min := e.MessageIDs[0]
	for _, id := range e.MessageIDs[1:] {
		if id < min {
			min = id
		}
	}
	return min
}

// MaxMessageID returns the largest referenced message index.
func (e *Event) MaxMessageID() int {
	max := e.MessageIDs[0]
	for _, id := range e.MessageIDs[1:] {
		if id > max {
			max = id
		}
	}
	return max
}

// ImpactDelta is the structured form of a relationship impact: numeric
// deltas for the dimensions the extraction chose to touch. Nil fields
// were not provided and must not be applied.
type ImpactDelta struct {
	Trust       *float64 `json:"trust,omitempty"`
	Tension     *float64 `json:"tension,omitempty"`
	Respect     *float64 `json:"respect,omitempty"`
	Attraction  *float64 `json:"attraction,omitempty"`
	Fear        *float64 `json:"fear,omitempty"`
	Loyalty     *float64 `json:"loyalty,omitempty"`
	Familiarity *float64 `json:"familiarity,omitempty"`
}

// RelationshipImpact is either a structured delta object or a legacy
// free-text description ("Trust deepens between them"). Exactly one of
// Delta / Legacy is set after a successful unmarshal.
type RelationshipImpact struct {
	Delta  *ImpactDelta
	Legacy string
}

// IsLegacy reports whether this impact is in the legacy free-text format.
func (ri *RelationshipImpact) IsLegacy() bool {
	return ri.Delta == nil
}

// UnmarshalJSON accepts either a JSON string (legacy) or an object
// (structured).
func (ri *RelationshipImpact) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty relationship impact")
	}
	if trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &ri.Legacy)
	}
	var delta ImpactDelta
	if err := json.Unmarshal(trimmed, &delta); err != nil {
		return fmt.Errorf("relationship impact: %w", err)
	}
	ri.Delta = &delta
	return nil
}

// MarshalJSON writes the impact back in the format it arrived in, so a
// vault round-trips verbatim.
func (ri RelationshipImpact) MarshalJSON() ([]byte, error) {
	if ri.Delta != nil {
		return json.Marshal(ri.Delta)
	}
	return json.Marshal(ri.Legacy)
}

// PromiseEvent is the promise sub-payload of an extraction event.
type PromiseEvent struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
}

// Valid reports whether all required promise fields are present.
func (p *PromiseEvent) Valid() bool {
	return p.From != "" && p.To != "" && p.Content != ""
}

// GoalEvent is the goal sub-payload of an extraction event.
type GoalEvent struct {
	Character string `json:"character"`
	Goal      string `json:"goal"`
}

// Valid reports whether all required goal fields are present.
func (g *GoalEvent) Valid() bool {
	return g.Character != "" && g.Goal != ""
}

// SkillEvent is the skill sub-payload of an extraction event.
type SkillEvent struct {
	Name      string `json:"name"`
	Character string `json:"character"`
}

// Valid reports whether all required skill fields are present.
func (s *SkillEvent) Valid() bool {
	return s.Name != ""
}
