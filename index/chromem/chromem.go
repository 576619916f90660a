// Package chromem implements the semantic index on chromem-go, a pure
// Go embedded vector database. Each conversation gets its own
// collection for namespace isolation.
package chromem

import (
	"context"
	"fmt"
	"log"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/GaraRoyal/memoryvault/index"
)

// Index is a chromem-backed SemanticIndex.
type Index struct {
	db          *chromemgo.DB
	collections map[string]*chromemgo.Collection
	mu          sync.Mutex
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{
		db:          chromemgo.NewDB(),
		collections: map[string]*chromemgo.Collection{},
	}
}

func collectionName(conversationID string) string {
	if conversationID == "" {
		return "conversation_default"
	}
	return "conversation_" + conversationID
}

func (ix *Index) collection(conversationID string) (*chromemgo.Collection, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	name := collectionName(conversationID)
	if col, ok := ix.collections[name]; ok {
		return col, nil
	}
	// No embedding func: the engine supplies embeddings explicitly.
	col, err := ix.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: create collection: %w", err)
	}
	ix.collections[name] = col
	return col, nil
}

// Rebuild drops and recreates the conversation's collection from the
// given entries.
func (ix *Index) Rebuild(ctx context.Context, conversationID string, entries []index.Entry) error {
	ix.mu.Lock()
	name := collectionName(conversationID)
	if _, ok := ix.collections[name]; ok {
		if err := ix.db.DeleteCollection(name); err != nil {
			ix.mu.Unlock()
			return fmt.Errorf("chromem: delete collection: %w", err)
		}
		delete(ix.collections, name)
	}
	ix.mu.Unlock()

	return ix.Add(ctx, conversationID, entries)
}

// Add indexes entries that carry embeddings. Entries without one are
// skipped and contribute no semantic score.
func (ix *Index) Add(ctx context.Context, conversationID string, entries []index.Entry) error {
	col, err := ix.collection(conversationID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			continue
		}
		doc := chromemgo.Document{
			ID:        e.MemoryID,
			Content:   e.Text,
			Embedding: e.Embedding,
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("chromem: add document: %w", err)
		}
	}
	return nil
}

// Remove drops entries by memory id.
func (ix *Index) Remove(ctx context.Context, conversationID string, memoryIDs []string) error {
	if len(memoryIDs) == 0 {
		return nil
	}
	col, err := ix.collection(conversationID)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, memoryIDs...); err != nil {
		return fmt.Errorf("chromem: delete documents: %w", err)
	}
	return nil
}

// Similarities scores every indexed memory against the query embedding.
func (ix *Index) Similarities(ctx context.Context, conversationID string, embedding []float32) (map[string]float64, error) {
	col, err := ix.collection(conversationID)
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 || len(embedding) == 0 {
		return map[string]float64{}, nil
	}

	// chromem requires nResults <= collection size; shrink on the
	// residual cases where count raced a concurrent delete.
	var results []chromemgo.Result
	for n := count; n >= 1; n-- {
		results, err = col.QueryEmbedding(ctx, embedding, n, nil, nil)
		if err == nil {
			break
		}
		if n == 1 {
			return nil, fmt.Errorf("chromem: query: %w", err)
		}
		log.Printf("[INDEX] Query with nResults=%d failed, retrying smaller: %v", n, err)
	}

	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.ID] = float64(r.Similarity)
	}
	return scores, nil
}

// Close releases resources. chromem keeps everything in memory, so
// this only clears the collection map.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.collections = map[string]*chromemgo.Collection{}
	return nil
}
