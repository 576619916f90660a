package reducer_test

import (
	"encoding/json"
	"testing"

	"github.com/GaraRoyal/memoryvault/core"
	"github.com/GaraRoyal/memoryvault/reducer"
	"github.com/GaraRoyal/memoryvault/vault"
)

func TestReduceBuildsMemory(t *testing.T) {
	v := vault.New("conv1")
	events := []core.Event{
		{
			Summary:            "Kael saved Mira from the collapsing bridge",
			EventType:          core.EventAction,
			CharactersInvolved: []string{"Kael", "Mira"},
			Witnesses:          []string{"Kael", "Mira"},
			Importance:         9,
			MessageIDs:         []int{14, 15},
		},
		{
			Summary:    "Mira noticed the broken rope",
			Importance: 2,
			MessageIDs: []int{14},
		},
	}

	res := reducer.Reduce(v, events, "batch1")
	if len(res.Added) != 2 || res.Skipped != 0 {
		t.Fatalf("added=%d skipped=%d", len(res.Added), res.Skipped)
	}

	first := res.Added[0]
	if first.Importance != 5 {
		t.Errorf("importance = %d, want clamped 5", first.Importance)
	}
	if first.Sequence != 14*vault.SequenceStride {
		t.Errorf("sequence = %d, want %d", first.Sequence, 14*vault.SequenceStride)
	}
	if res.Added[1].Sequence != 14*vault.SequenceStride+1 {
		t.Errorf("batch tie-break sequence = %d", res.Added[1].Sequence)
	}
	if res.Added[1].EventType != core.EventAction {
		t.Errorf("missing event_type should default to action, got %q", res.Added[1].EventType)
	}
}

func TestReduceSkipsMalformedEvents(t *testing.T) {
	v := vault.New("conv1")
	events := []core.Event{
		{Summary: "", MessageIDs: []int{1}},
		{Summary: "valid", Importance: 3, MessageIDs: []int{2}},
		{Summary: "no messages", Importance: 3},
	}
	res := reducer.Reduce(v, events, "batch1")
	if len(res.Added) != 1 || res.Skipped != 2 {
		t.Fatalf("added=%d skipped=%d, want 1/2", len(res.Added), res.Skipped)
	}
}

func TestReduceRecordsEmotionsAndWitnesses(t *testing.T) {
	v := vault.New("conv1")
	events := []core.Event{{
		Summary:          "Mira broke down after the letter",
		EventType:        core.EventEmotionShift,
		Witnesses:        []string{"Kael"},
		Importance:       3,
		EmotionalValence: -0.8,
		EmotionalImpact:  map[string]string{"Mira": "grief"},
		MessageIDs:       []int{30},
	}}
	res := reducer.Reduce(v, events, "batch1")

	mira := v.Characters["Mira"]
	if mira == nil || mira.CurrentEmotion != "grief" {
		t.Fatalf("emotion not recorded: %+v", mira)
	}
	if mira.EmotionIntensity != 8 {
		t.Errorf("intensity = %d, want 8 from valence -0.8", mira.EmotionIntensity)
	}
	kael := v.Characters["Kael"]
	if kael == nil || !kael.Knows(res.Added[0].ID) {
		t.Error("witness knowledge not recorded")
	}
}

func TestEmotionHistoryBounded(t *testing.T) {
	v := vault.New("conv1")
	for i := 0; i < vault.EmotionHistoryLimit+10; i++ {
		events := []core.Event{{
			Summary:         "shift",
			Importance:      1,
			EmotionalImpact: map[string]string{"Mira": "wary"},
			MessageIDs:      []int{i},
		}}
		reducer.Reduce(v, events, "b")
	}
	if n := len(v.Characters["Mira"].EmotionHistory); n != vault.EmotionHistoryLimit {
		t.Errorf("history length = %d, want %d", n, vault.EmotionHistoryLimit)
	}
}

func TestLegacyTrustScenario(t *testing.T) {
	v := vault.New("conv1")
	events := []core.Event{{
		Summary:    "They survived the bridge together",
		Importance: 4,
		RelationshipImpact: map[string]core.RelationshipImpact{
			"Kael->Mira": {Legacy: "Trust deepens between them"},
		},
		MessageIDs: []int{15},
	}}
	reducer.Reduce(v, events, "batch1")

	r := v.Relationships[vault.PairKey("Kael", "Mira")]
	if r == nil {
		t.Fatal("relationship not created")
	}
	if r.Trust != 6 {
		t.Errorf("trust = %v, want 6", r.Trust)
	}
	if r.Familiarity != 2 {
		t.Errorf("familiarity = %v, want 2", r.Familiarity)
	}
	if len(r.History) != 1 || r.History[0].Direction != "Kael->Mira" {
		t.Errorf("history = %+v", r.History)
	}
	if r.LastUpdatedMessage != 15 {
		t.Errorf("watermark = %d, want 15", r.LastUpdatedMessage)
	}
}

func TestStructuredImpactFromJSON(t *testing.T) {
	raw := `{
		"summary": "Kael lied about the map",
		"importance": 3,
		"message_ids": [40],
		"relationship_impact": {
			"Mira->Kael": {"trust": -2, "tension": 3}
		}
	}`
	var ev core.Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	v := vault.New("conv1")
	reducer.Reduce(v, []core.Event{ev}, "batch1")

	r := v.Relationships[vault.PairKey("Mira", "Kael")]
	if r.Trust != 3 {
		t.Errorf("trust = %v, want 3", r.Trust)
	}
	if r.Tension != 3 {
		t.Errorf("tension = %v, want 3", r.Tension)
	}
	if r.Familiarity != 1 {
		t.Errorf("structured impact changed familiarity: %v", r.Familiarity)
	}
}

func TestSecretDefaultsToWitnesses(t *testing.T) {
	v := vault.New("conv1")
	events := []core.Event{{
		Summary:    "Kael pocketed the ring",
		IsSecret:   true,
		Witnesses:  []string{"Kael"},
		Importance: 4,
		MessageIDs: []int{7},
	}}
	res := reducer.Reduce(v, events, "batch1")

	mem := res.Added[0]
	if len(mem.KnownBy) != 1 || mem.KnownBy[0] != "Kael" {
		t.Errorf("known_by = %v, want witnesses", mem.KnownBy)
	}
	if v.Secrets[mem.ID] == nil {
		t.Error("secret entity not spun off")
	}
}

func TestSpinOffEntities(t *testing.T) {
	v := vault.New("conv1")
	events := []core.Event{{
		Summary:    "Mira swore to return the blade",
		Importance: 4,
		Location:   "The Broken Gate",
		Promise:    &core.PromiseEvent{From: "Mira", To: "Kael", Content: "return the blade"},
		Goal:       &core.GoalEvent{Character: "Mira", Goal: "reforge the blade"},
		Skill:      &core.SkillEvent{Name: "Smithing", Character: "Mira"},
		MessageIDs: []int{22},
	}}
	reducer.Reduce(v, events, "batch1")

	if len(v.Promises) != 1 || v.Promises[0].Status != vault.PromisePending {
		t.Errorf("promises = %+v", v.Promises)
	}
	if len(v.Goals) != 1 {
		t.Errorf("goals = %+v", v.Goals)
	}
	if s := v.Skill("smithing"); s == nil || s.Proficiency != vault.ProficiencyNovice {
		t.Errorf("skill = %+v", s)
	}
	if v.Locations["the_broken_gate"] == nil {
		t.Errorf("location not created: %v", v.Locations)
	}

	// Same goal again is deduplicated; same skill again counts a use.
	reducer.Reduce(v, events, "batch2")
	if len(v.Goals) != 1 {
		t.Errorf("goal duplicated: %+v", v.Goals)
	}
	if s := v.Skill("Smithing"); s.UseCount != 2 {
		t.Errorf("use count = %d, want 2", s.UseCount)
	}
}

func TestSkillPromotion(t *testing.T) {
	v := vault.New("conv1")
	ev := core.Event{
		Summary:    "practice",
		Importance: 1,
		Skill:      &core.SkillEvent{Name: "Archery", Character: "Kael"},
		MessageIDs: []int{1},
	}
	for i := 0; i < 5; i++ {
		reducer.Reduce(v, []core.Event{ev}, "b")
	}
	if s := v.Skill("archery"); s.Proficiency != vault.ProficiencyCompetent {
		t.Errorf("after 5 uses: %q", s.Proficiency)
	}
	for i := 0; i < 10; i++ {
		reducer.Reduce(v, []core.Event{ev}, "b")
	}
	if s := v.Skill("archery"); s.Proficiency != vault.ProficiencyExpert {
		t.Errorf("after 15 uses: %q", s.Proficiency)
	}
}
