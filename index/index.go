// Package index defines the semantic index contract: a vector store
// over vault memories that answers "how similar is each stored memory
// to this query embedding". The index is derived state: the vault is
// the source of truth, and the index is rebuilt from it whenever a
// conversation is loaded.
package index

import "context"

// Entry is one indexed memory.
type Entry struct {
	MemoryID  string
	Text      string
	Embedding []float32
}

// SemanticIndex stores memory embeddings and scores them against query
// embeddings. Implementations: chromem.Index (embedded, pure Go).
type SemanticIndex interface {
	// Rebuild replaces the index contents for a conversation with the
	// given entries.
	Rebuild(ctx context.Context, conversationID string, entries []Entry) error

	// Add indexes additional entries for a conversation.
	Add(ctx context.Context, conversationID string, entries []Entry) error

	// Remove drops entries by memory id (after branch pruning).
	Remove(ctx context.Context, conversationID string, memoryIDs []string) error

	// Similarities returns per-memory-id similarity to the query
	// embedding. Memories absent from the result contribute zero
	// semantic score.
	Similarities(ctx context.Context, conversationID string, embedding []float32) (map[string]float64, error)

	// Close releases resources.
	Close() error
}
