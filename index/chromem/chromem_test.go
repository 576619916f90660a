package chromem_test

import (
	"context"
	"testing"

	"github.com/GaraRoyal/memoryvault/embedder/mock"
	"github.com/GaraRoyal/memoryvault/index"
	"github.com/GaraRoyal/memoryvault/index/chromem"
)

func entriesFor(t *testing.T, texts map[string]string) []index.Entry {
	t.Helper()
	e := mock.New()
	var entries []index.Entry
	for id, text := range texts {
		emb, err := e.Embed(context.Background(), text)
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		entries = append(entries, index.Entry{MemoryID: id, Text: text, Embedding: emb})
	}
	return entries
}

func TestAddAndSimilarities(t *testing.T) {
	ctx := context.Background()
	ix := chromem.New()
	defer ix.Close()

	entries := entriesFor(t, map[string]string{
		"m1": "the ledger went missing",
		"m2": "a quiet dinner at the inn",
	})
	if err := ix.Add(ctx, "conv1", entries); err != nil {
		t.Fatalf("Add: %v", err)
	}

	e := mock.New()
	query, _ := e.Embed(ctx, "the ledger went missing")
	scores, err := ix.Similarities(ctx, "conv1", query)
	if err != nil {
		t.Fatalf("Similarities: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("scores = %v", scores)
	}
	if scores["m1"] <= scores["m2"] {
		t.Errorf("identical text should score highest: %v", scores)
	}
}

func TestRemoveAndRebuild(t *testing.T) {
	ctx := context.Background()
	ix := chromem.New()
	defer ix.Close()

	entries := entriesFor(t, map[string]string{
		"m1": "first",
		"m2": "second",
	})
	if err := ix.Add(ctx, "conv1", entries); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ix.Remove(ctx, "conv1", []string{"m2"}); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	e := mock.New()
	query, _ := e.Embed(ctx, "first")
	scores, err := ix.Similarities(ctx, "conv1", query)
	if err != nil {
		t.Fatalf("Similarities: %v", err)
	}
	if _, ok := scores["m2"]; ok {
		t.Error("removed entry still scored")
	}

	if err := ix.Rebuild(ctx, "conv1", entries); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	scores, err = ix.Similarities(ctx, "conv1", query)
	if err != nil {
		t.Fatalf("Similarities after rebuild: %v", err)
	}
	if len(scores) != 2 {
		t.Errorf("rebuild lost entries: %v", scores)
	}
}

func TestEmptyCollection(t *testing.T) {
	ctx := context.Background()
	ix := chromem.New()
	defer ix.Close()

	e := mock.New()
	query, _ := e.Embed(ctx, "anything")
	scores, err := ix.Similarities(ctx, "conv1", query)
	if err != nil {
		t.Fatalf("Similarities: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("empty collection returned scores: %v", scores)
	}
}
