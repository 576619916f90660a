package vault

import (
	"fmt"
	"time"
)

// EmotionHistoryLimit bounds a character's emotion history; the oldest
// entries are evicted first.
const EmotionHistoryLimit = 50

// EmotionEntry is one entry in a character's emotion history.
type EmotionEntry struct {
	Emotion    string    `json:"emotion"`
	Timestamp  time.Time `json:"timestamp"`
	EventID    string    `json:"event_id"`
	MessageMin int       `json:"message_min"`
	MessageMax int       `json:"message_max"`
	EventType  string    `json:"event_type,omitempty"`
	Tone       []string  `json:"tone,omitempty"`
	Valence    float64   `json:"valence"`
}

// CharacterState tracks one character's evolving emotional state and
// knowledge boundary. Created lazily on the first event mentioning the
// character; never deleted (pruning only removes dangling event ids).
type CharacterState struct {
	Name             string         `json:"name"`
	CurrentEmotion   string         `json:"current_emotion,omitempty"`
	EmotionIntensity int            `json:"emotion_intensity"`
	KnownEvents      []string       `json:"known_events,omitempty"`
	EmotionHistory   []EmotionEntry `json:"emotion_history,omitempty"`
	LastUpdated      time.Time      `json:"last_updated"`
}

// RecordEmotion appends a history entry, truncates to the bound, and
// makes the emotion current.
func (c *CharacterState) RecordEmotion(entry EmotionEntry) {
	c.EmotionHistory = append(c.EmotionHistory, entry)
	if n := len(c.EmotionHistory); n > EmotionHistoryLimit {
		c.EmotionHistory = c.EmotionHistory[n-EmotionHistoryLimit:]
	}
	c.CurrentEmotion = entry.Emotion
	c.EmotionIntensity = clampInt(intensityFromValence(entry.Valence), 0, 10)
	c.LastUpdated = entry.Timestamp
}

// Knows reports whether the character has witnessed the given event.
func (c *CharacterState) Knows(eventID string) bool {
	for _, id := range c.KnownEvents {
		if id == eventID {
			return true
		}
	}
	return false
}

// AddKnownEvent records a witnessed event id with set semantics.
func (c *CharacterState) AddKnownEvent(eventID string) {
	if !c.Knows(eventID) {
		c.KnownEvents = append(c.KnownEvents, eventID)
	}
}

// RemoveKnownEvent drops a dangling event id after pruning.
func (c *CharacterState) RemoveKnownEvent(eventID string) {
	for i, id := range c.KnownEvents {
		if id == eventID {
			c.KnownEvents = append(c.KnownEvents[:i], c.KnownEvents[i+1:]...)
			return
		}
	}
}

// Format renders the character's state for prompt injection.
func (c *CharacterState) Format() string {
	if c.CurrentEmotion == "" {
		return c.Name
	}
	return fmt.Sprintf("%s: feeling %s (intensity %d/10)", c.Name, c.CurrentEmotion, c.EmotionIntensity)
}

// intensityFromValence derives a 0-10 intensity from the event's
// emotional valence magnitude. Extraction does not provide intensity
// directly.
func intensityFromValence(valence float64) int {
	if valence < 0 {
		valence = -valence
	}
	return int(valence*10 + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
