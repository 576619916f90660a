package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/GaraRoyal/memoryvault/core"
)

// Relationship dimension bounds.
const (
	DimensionMin = 0.0
	DimensionMax = 10.0
)

// PairKey canonicalizes an unordered character pair to "A<->B" with the
// names sorted, so (Alice,Bob) and (Bob,Alice) address the same record.
func PairKey(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if strings.Compare(strings.ToLower(a), strings.ToLower(b)) > 0 {
		a, b = b, a
	}
	return a + "<->" + b
}

// ParseDirectedKey splits a directed "A->B" impact key into its two
// names. Returns an error for malformed keys.
func ParseDirectedKey(key string) (from, to string, err error) {
	parts := strings.SplitN(key, "->", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed relationship key %q", key)
	}
	from = strings.TrimSpace(parts[0])
	to = strings.TrimSpace(parts[1])
	if from == "" || to == "" {
		return "", "", fmt.Errorf("malformed relationship key %q", key)
	}
	return from, to, nil
}

// RelationshipEntry is one entry in a relationship's history.
type RelationshipEntry struct {
	EventID   string                  `json:"event_id"`
	Impact    core.RelationshipImpact `json:"impact"`
	Timestamp time.Time               `json:"timestamp"`
	MessageID int                     `json:"message_id"`
	Direction string                  `json:"direction"`
}

// Relationship holds the seven bounded dimensions for one unordered
// character pair. All dimensions are clamped to [0,10] after every
// update; familiarity is monotonically non-decreasing under
// legacy-format impacts.
type Relationship struct {
	Key                 string              `json:"key"`
	Trust               float64             `json:"trust_level"`
	Tension             float64             `json:"tension_level"`
	Respect             float64             `json:"respect_level"`
	Attraction          float64             `json:"attraction_level"`
	Fear                float64             `json:"fear_level"`
	Loyalty             float64             `json:"loyalty_level"`
	Familiarity         float64             `json:"familiarity_level"`
	Type                string              `json:"relationship_type,omitempty"`
	History             []RelationshipEntry `json:"history,omitempty"`
	LastUpdatedMessage  int                 `json:"last_updated_message_id"`
}

// NewRelationship creates a relationship with the default dimension
// values for a fresh pair.
func NewRelationship(key string) *Relationship {
	return &Relationship{
		Key:         key,
		Trust:       5,
		Tension:     0,
		Respect:     5,
		Attraction:  0,
		Fear:        0,
		Loyalty:     5,
		Familiarity: 1,
	}
}

// Adjust adds a delta to the named dimension and clamps the result.
// Unknown dimension names are ignored.
func (r *Relationship) Adjust(dimension string, delta float64) {
	switch dimension {
	case "trust":
		r.Trust = clampDim(r.Trust + delta)
	case "tension":
		r.Tension = clampDim(r.Tension + delta)
	case "respect":
		r.Respect = clampDim(r.Respect + delta)
	case "attraction":
		r.Attraction = clampDim(r.Attraction + delta)
	case "fear":
		r.Fear = clampDim(r.Fear + delta)
	case "loyalty":
		r.Loyalty = clampDim(r.Loyalty + delta)
	case "familiarity":
		r.Familiarity = clampDim(r.Familiarity + delta)
	}
}

// ApplyDelta applies a structured impact: only the provided fields are
// added, each clamped. Structured impacts never touch familiarity
// implicitly.
func (r *Relationship) ApplyDelta(d *core.ImpactDelta) {
	if d == nil {
		return
	}
	if d.Trust != nil {
		r.Trust = clampDim(r.Trust + *d.Trust)
	}
	if d.Tension != nil {
		r.Tension = clampDim(r.Tension + *d.Tension)
	}
	if d.Respect != nil {
		r.Respect = clampDim(r.Respect + *d.Respect)
	}
	if d.Attraction != nil {
		r.Attraction = clampDim(r.Attraction + *d.Attraction)
	}
	if d.Fear != nil {
		r.Fear = clampDim(r.Fear + *d.Fear)
	}
	if d.Loyalty != nil {
		r.Loyalty = clampDim(r.Loyalty + *d.Loyalty)
	}
	if d.Familiarity != nil {
		r.Familiarity = clampDim(r.Familiarity + *d.Familiarity)
	}
}

// Record appends a history entry and advances the update watermark.
func (r *Relationship) Record(entry RelationshipEntry) {
	r.History = append(r.History, entry)
	if entry.MessageID > r.LastUpdatedMessage {
		r.LastUpdatedMessage = entry.MessageID
	}
}

// RemoveHistoryFor drops history entries referencing a pruned event id.
func (r *Relationship) RemoveHistoryFor(eventID string) {
	kept := r.History[:0]
	for _, e := range r.History {
		if e.EventID != eventID {
			kept = append(kept, e)
		}
	}
	r.History = kept
}

// Format renders the relationship's dimensions for prompt injection.
func (r *Relationship) Format() string {
	return fmt.Sprintf("%s: trust %.0f, tension %.0f, respect %.0f, attraction %.0f, fear %.0f, loyalty %.0f, familiarity %.0f",
		r.Key, r.Trust, r.Tension, r.Respect, r.Attraction, r.Fear, r.Loyalty, r.Familiarity)
}

// Clamp re-applies the dimension bounds, used when validating a loaded
// vault.
func (r *Relationship) Clamp() {
	r.Trust = clampDim(r.Trust)
	r.Tension = clampDim(r.Tension)
	r.Respect = clampDim(r.Respect)
	r.Attraction = clampDim(r.Attraction)
	r.Fear = clampDim(r.Fear)
	r.Loyalty = clampDim(r.Loyalty)
	r.Familiarity = clampDim(r.Familiarity)
}

func clampDim(v float64) float64 {
	if v < DimensionMin {
		return DimensionMin
	}
	if v > DimensionMax {
		return DimensionMax
	}
	return v
}
