// Package reducer folds batches of extracted events into a vault:
// memory creation, emotion history, witness knowledge, relationship
// dimension updates, and auxiliary entity spin-off.
//
// Reduction is per-item fault tolerant: a malformed event is skipped
// and logged, never aborting the batch. Partial application is
// acceptable; there is no all-or-nothing transaction.
package reducer

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/GaraRoyal/memoryvault/core"
	"github.com/GaraRoyal/memoryvault/vault"
)

// Result reports what a reduction pass did.
type Result struct {
	Added   []*vault.Memory
	Skipped int
}

// Reduce applies a batch of extraction events to the vault in order.
// Sequence numbers are derived from the earliest source message and the
// index within the batch, so chronological ordering is stable even when
// one batch yields several events for the same message range.
func Reduce(v *vault.Vault, events []core.Event, batchID string) Result {
	var res Result
	now := time.Now()

	for i := range events {
		ev := &events[i]
		if !ev.Valid() {
			log.Printf("[REDUCER] Skipping malformed event #%d in batch %s", i, batchID)
			res.Skipped++
			continue
		}

		mem := buildMemory(ev, i, batchID, now)
		v.AddMemory(mem)
		res.Added = append(res.Added, mem)

		applyEmotions(v, ev, mem, now)
		applyWitnesses(v, ev, mem)
		applyRelationships(v, ev, mem, now)
		spinOffEntities(v, ev, mem, now)
	}

	if res.Skipped > 0 {
		log.Printf("[REDUCER] Batch %s: %d added, %d skipped", batchID, len(res.Added), res.Skipped)
	}
	return res
}

func buildMemory(ev *core.Event, batchIndex int, batchID string, now time.Time) *vault.Memory {
	knownBy := ev.KnownBy
	if ev.IsSecret && len(knownBy) == 0 {
		// Extraction marked the event secret without saying who knows;
		// the witnesses are the people who saw it happen.
		knownBy = append([]string(nil), ev.Witnesses...)
	}
	if !ev.IsSecret {
		knownBy = nil
	}

	eventType := ev.EventType
	if eventType == "" {
		eventType = core.EventAction
	}

	return &vault.Memory{
		ID:                 uuid.New().String(),
		Summary:            ev.Summary,
		EventType:          eventType,
		CharactersInvolved: ev.CharactersInvolved,
		Witnesses:          ev.Witnesses,
		Location:           ev.Location,
		IsSecret:           ev.IsSecret,
		KnownBy:            knownBy,
		Importance:         ev.Importance,
		EmotionalTone:      ev.EmotionalTone,
		EmotionalValence:   ev.EmotionalValence,
		EmotionalImpact:    ev.EmotionalImpact,
		RelationshipImpact: ev.RelationshipImpact,
		MessageIDs:         ev.MessageIDs,
		Sequence:           ev.MinMessageID()*vault.SequenceStride + batchIndex,
		CreatedAt:          now,
		BatchID:            batchID,
	}
}

func applyEmotions(v *vault.Vault, ev *core.Event, mem *vault.Memory, now time.Time) {
	for name, emotion := range ev.EmotionalImpact {
		if name == "" || emotion == "" {
			continue
		}
		c := v.Character(name)
		c.RecordEmotion(vault.EmotionEntry{
			Emotion:    emotion,
			Timestamp:  now,
			EventID:    mem.ID,
			MessageMin: ev.MinMessageID(),
			MessageMax: ev.MaxMessageID(),
			EventType:  string(mem.EventType),
			Tone:       ev.EmotionalTone,
			Valence:    ev.EmotionalValence,
		})
	}
}

func applyWitnesses(v *vault.Vault, ev *core.Event, mem *vault.Memory) {
	for _, name := range ev.Witnesses {
		if name == "" {
			continue
		}
		v.Character(name).AddKnownEvent(mem.ID)
	}
}

func applyRelationships(v *vault.Vault, ev *core.Event, mem *vault.Memory, now time.Time) {
	for key, impact := range ev.RelationshipImpact {
		from, to, err := vault.ParseDirectedKey(key)
		if err != nil {
			log.Printf("[REDUCER] Skipping relationship impact: %v", err)
			continue
		}
		rel := v.Relationship(from, to)

		if impact.IsLegacy() {
			ApplyLegacyImpact(rel, impact.Legacy)
		} else {
			rel.ApplyDelta(impact.Delta)
		}

		rel.Record(vault.RelationshipEntry{
			EventID:   mem.ID,
			Impact:    impact,
			Timestamp: now,
			MessageID: ev.MaxMessageID(),
			Direction: key,
		})
	}
}

func spinOffEntities(v *vault.Vault, ev *core.Event, mem *vault.Memory, now time.Time) {
	if p := ev.Promise; p != nil && p.Valid() {
		v.Promises = append(v.Promises, &vault.Promise{
			ID:             uuid.New().String(),
			From:           p.From,
			To:             p.To,
			Content:        p.Content,
			Status:         vault.PromisePending,
			SourceMemoryID: mem.ID,
			CreatedAt:      now,
		})
	}

	if g := ev.Goal; g != nil && g.Valid() && !v.HasGoal(g.Character, g.Goal) {
		v.Goals = append(v.Goals, &vault.Goal{
			ID:             uuid.New().String(),
			Character:      g.Character,
			Goal:           g.Goal,
			Status:         vault.GoalActive,
			SourceMemoryID: mem.ID,
			CreatedAt:      now,
		})
	}

	if s := ev.Skill; s != nil && s.Valid() {
		key := vault.SkillKey(s.Name)
		if existing, ok := v.Skills[key]; ok {
			existing.RecordUse(mem.ID)
		} else {
			v.Skills[key] = &vault.Skill{
				ID:               uuid.New().String(),
				Name:             s.Name,
				Character:        s.Character,
				Proficiency:      vault.ProficiencyNovice,
				UseCount:         1,
				RelatedMemoryIDs: []string{mem.ID},
				FirstUsed:        now,
			}
		}
	}

	if ev.Location != "" {
		if loc := v.LocationByName(ev.Location); loc != nil {
			loc.MemoryIDs = append(loc.MemoryIDs, mem.ID)
		}
	}

	if ev.IsSecret {
		v.Secrets[mem.ID] = &vault.Secret{
			ID:        mem.ID,
			Content:   ev.Summary,
			KnownBy:   mem.KnownBy,
			MemoryIDs: []string{mem.ID},
			Status:    vault.SecretActive,
			CreatedAt: now,
		}
	}
}
