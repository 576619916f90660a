package branch_test

import (
	"fmt"
	"testing"

	"github.com/GaraRoyal/memoryvault/branch"
	"github.com/GaraRoyal/memoryvault/core"
	"github.com/GaraRoyal/memoryvault/vault"
)

// buildVault creates 50 memories spanning message ids 1-200, four ids
// per memory, with witness and relationship references for cleanup
// checks.
func buildVault() *vault.Vault {
	v := vault.New("conv1")
	for i := 0; i < 50; i++ {
		first := 1 + i*4
		m := &vault.Memory{
			ID:         fmt.Sprintf("mem-%02d", i),
			Summary:    fmt.Sprintf("event %d", i),
			Importance: 3,
			MessageIDs: []int{first, first + 1, first + 2, first + 3},
			Sequence:   first * vault.SequenceStride,
		}
		v.AddMemory(m)
		v.Character("Mira").AddKnownEvent(m.ID)
		v.Relationship("Kael", "Mira").Record(vault.RelationshipEntry{EventID: m.ID, MessageID: first + 3})
	}
	return v
}

func TestPruneBranchSwitchScenario(t *testing.T) {
	v := buildVault()

	res := branch.Prune(v, 3, true)
	if res.Pruned() != 49 {
		t.Fatalf("pruned %d memories, want 49", res.Pruned())
	}
	if len(v.Memories) != 1 {
		t.Fatalf("%d memories remain, want 1", len(v.Memories))
	}
	if v.Memories[0].MinMessageID() >= 3 {
		t.Errorf("survivor references message %d", v.Memories[0].MinMessageID())
	}

	mira := v.Characters["Mira"]
	if len(mira.KnownEvents) != 1 {
		t.Errorf("known events = %v, want only the survivor", mira.KnownEvents)
	}
	rel := v.Relationships[vault.PairKey("Kael", "Mira")]
	if len(rel.History) != 1 {
		t.Errorf("relationship history = %d entries, want 1", len(rel.History))
	}
	if res.KnownEventsCleaned != 49 || res.HistoryCleaned != 49 {
		t.Errorf("cleanup counts = %d/%d, want 49/49", res.KnownEventsCleaned, res.HistoryCleaned)
	}
	if v.ExtractedUpTo > 3 {
		t.Errorf("ExtractedUpTo = %d, want at most 3", v.ExtractedUpTo)
	}
}

func TestPruneIdempotent(t *testing.T) {
	v := buildVault()
	branch.Prune(v, 3, true)
	res := branch.Prune(v, 3, true)
	if res.Pruned() != 0 {
		t.Errorf("second prune removed %d memories, want 0", res.Pruned())
	}
}

func TestPruneDisabled(t *testing.T) {
	v := buildVault()
	res := branch.Prune(v, 3, false)
	if res.Pruned() != 0 || len(v.Memories) != 50 {
		t.Errorf("disabled prune removed memories: %d pruned", res.Pruned())
	}
}

func TestAutoHideScenario(t *testing.T) {
	// 60 visible extracted messages, threshold 50: hide exactly 10.
	v := vault.New("conv1")
	messages := make([]core.Message, 60)
	for i := range messages {
		messages[i] = core.Message{Index: i, IsUser: i%2 == 0, Name: "Speaker", Text: "line"}
		v.AddMemory(&vault.Memory{
			ID:         fmt.Sprintf("m%d", i),
			Summary:    "s",
			Importance: 3,
			MessageIDs: []int{i},
			Sequence:   i * vault.SequenceStride,
		})
	}

	hidden := branch.AutoHide(messages, v, 50)
	if hidden != 10 {
		t.Fatalf("hid %d messages, want 10", hidden)
	}
	for i := 0; i < 10; i++ {
		if !messages[i].IsSystem {
			t.Errorf("message %d should be hidden", i)
		}
		if !messages[i].AutoHidden() {
			t.Errorf("message %d should read as auto-hidden, not genuine system", i)
		}
	}
	for i := 10; i < 60; i++ {
		if messages[i].IsSystem {
			t.Errorf("message %d should stay visible", i)
		}
	}
}

func TestAutoHideSkipsUnextracted(t *testing.T) {
	v := vault.New("conv1")
	messages := make([]core.Message, 60)
	for i := range messages {
		messages[i] = core.Message{Index: i, IsUser: i%2 == 0, Name: "Speaker", Text: "line"}
	}
	// Only messages 20+ are extracted; the oldest 20 must not be hidden.
	for i := 20; i < 60; i++ {
		v.AddMemory(&vault.Memory{
			ID:         fmt.Sprintf("m%d", i),
			Summary:    "s",
			Importance: 3,
			MessageIDs: []int{i},
			Sequence:   i * vault.SequenceStride,
		})
	}

	branch.AutoHide(messages, v, 50)
	for i := 0; i < 20; i++ {
		if messages[i].IsSystem {
			t.Errorf("un-extracted message %d was hidden", i)
		}
	}
}

func TestAutoHideUnderThreshold(t *testing.T) {
	v := vault.New("conv1")
	messages := make([]core.Message, 40)
	for i := range messages {
		messages[i] = core.Message{Index: i, Name: "Speaker", Text: "line"}
	}
	if hidden := branch.AutoHide(messages, v, 50); hidden != 0 {
		t.Errorf("hid %d messages under threshold, want 0", hidden)
	}
}

func TestUnhideLeavesGenuineSystemMessages(t *testing.T) {
	messages := []core.Message{
		{Index: 0, IsSystem: true},                                  // genuine system
		{Index: 1, Name: "Speaker", IsSystem: true},                 // auto-hidden assistant
		{Index: 2, IsUser: true, IsSystem: true},                    // auto-hidden user
		{Index: 3, Name: "Speaker", Text: "visible"},                // visible
	}
	cleared := branch.Unhide(messages)
	if cleared != 2 {
		t.Fatalf("cleared %d, want 2", cleared)
	}
	if !messages[0].IsSystem {
		t.Error("genuine system message was unhidden")
	}
	if messages[1].IsSystem || messages[2].IsSystem {
		t.Error("auto-hidden messages were not cleared")
	}
}

func TestReconcileVisibility(t *testing.T) {
	v := vault.New("conv1")
	messages := make([]core.Message, 60)
	for i := range messages {
		messages[i] = core.Message{Index: i, IsUser: i%2 == 0, Name: "Speaker", Text: "line"}
		v.AddMemory(&vault.Memory{
			ID:         fmt.Sprintf("m%d", i),
			Summary:    "s",
			Importance: 3,
			MessageIDs: []int{i},
			Sequence:   i * vault.SequenceStride,
		})
	}
	branch.AutoHide(messages, v, 50)

	cleared, hidden := branch.ReconcileVisibility(messages, v, 50)
	if cleared != 10 || hidden != 10 {
		t.Errorf("reconcile = %d cleared, %d hidden; want 10/10", cleared, hidden)
	}
}
