// Package engine is the host-facing orchestrator. It owns the active
// conversation's vault, serializes all vault mutation behind one mutex
// (the host delivers events one at a time, the mutex makes that safety
// explicit), and coordinates extraction, retrieval, and branch
// reconciliation across the lower packages.
//
// Any result computed asynchronously for a conversation is keyed by
// that conversation's id and dropped if the active conversation changed
// before it lands.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GaraRoyal/memoryvault/branch"
	"github.com/GaraRoyal/memoryvault/config"
	"github.com/GaraRoyal/memoryvault/core"
	"github.com/GaraRoyal/memoryvault/embedder"
	"github.com/GaraRoyal/memoryvault/extract"
	"github.com/GaraRoyal/memoryvault/index"
	"github.com/GaraRoyal/memoryvault/reducer"
	"github.com/GaraRoyal/memoryvault/retrieval"
	"github.com/GaraRoyal/memoryvault/scoring"
	"github.com/GaraRoyal/memoryvault/vault"
)

// Engine coordinates the memory system for one active conversation at a
// time.
type Engine struct {
	cfg config.Config

	embedder    embedder.Embedder
	semIndex    index.SemanticIndex
	extractor   extract.Extractor
	adjudicator retrieval.Adjudicator
	notifier    core.Notifier
	counter     retrieval.TokenCounter

	scorer   *scoring.Scorer
	pipeline *retrieval.Pipeline

	mu          sync.Mutex
	activeID    string
	vault       *vault.Vault
	disabled    bool
	unhideTimer *time.Timer
}

// Option configures the engine.
type Option func(*Engine)

// WithEmbedder sets the embedding provider. Without one, scoring is
// keyword-only.
func WithEmbedder(e embedder.Embedder) Option {
	return func(en *Engine) { en.embedder = e }
}

// WithIndex sets the semantic index.
func WithIndex(ix index.SemanticIndex) Option {
	return func(en *Engine) { en.semIndex = ix }
}

// WithExtractor sets the event extraction provider. Without one,
// backlog extraction is a no-op.
func WithExtractor(x extract.Extractor) Option {
	return func(en *Engine) { en.extractor = x }
}

// WithAdjudicator enables LLM-adjudicated retrieval re-ranking.
func WithAdjudicator(a retrieval.Adjudicator) Option {
	return func(en *Engine) { en.adjudicator = a }
}

// WithNotifier sets the host notification sink.
func WithNotifier(n core.Notifier) Option {
	return func(en *Engine) { en.notifier = n }
}

// WithTokenCounter overrides the retrieval token estimator.
func WithTokenCounter(c retrieval.TokenCounter) Option {
	return func(en *Engine) { en.counter = c }
}

// New creates an engine.
func New(cfg config.Config, opts ...Option) *Engine {
	en := &Engine{
		cfg:      cfg,
		notifier: core.NopNotifier{},
	}
	for _, opt := range opts {
		opt(en)
	}

	en.scorer = scoring.New(cfg.Scoring)
	popts := []retrieval.Option{
		retrieval.WithNotifier(en.notifier),
	}
	if en.embedder != nil {
		popts = append(popts, retrieval.WithEmbedder(en.embedder))
	}
	if en.semIndex != nil {
		popts = append(popts, retrieval.WithIndex(en.semIndex))
	}
	if en.adjudicator != nil {
		popts = append(popts, retrieval.WithAdjudicator(en.adjudicator))
	}
	if en.counter != nil {
		popts = append(popts, retrieval.WithTokenCounter(en.counter))
	}
	en.pipeline = retrieval.New(cfg.Retrieval, en.scorer, popts...)
	return en
}

// Activate makes a conversation's vault the active one. A vault that
// fails validation disables memory features for the conversation; the
// host keeps running either way.
func (en *Engine) Activate(ctx context.Context, v *vault.Vault) error {
	en.mu.Lock()
	defer en.mu.Unlock()

	en.cancelPendingLocked()
	en.vault = nil
	en.disabled = false
	en.activeID = ""

	if err := v.Validate(); err != nil {
		en.disabled = true
		log.Printf("[ENGINE] Vault validation failed, memory disabled: %v", err)
		en.notifier.Notify(core.NotifyError, "memory disabled for this conversation: saved state is damaged")
		return fmt.Errorf("activate conversation: %w", err)
	}

	en.vault = v
	en.activeID = v.ConversationID

	if en.semIndex != nil {
		if err := en.semIndex.Rebuild(ctx, v.ConversationID, indexEntries(v.Memories)); err != nil {
			log.Printf("[ENGINE] Index rebuild failed, semantic scoring degraded: %v", err)
			en.notifier.Notify(core.NotifyWarning, "semantic memory search unavailable")
		}
	}

	log.Printf("[ENGINE] Activated conversation %s: %d memories, %d characters",
		v.ConversationID, len(v.Memories), len(v.Characters))
	return nil
}

// Deactivate detaches the active conversation and cancels any pending
// scheduled work for it.
func (en *Engine) Deactivate() {
	en.mu.Lock()
	defer en.mu.Unlock()
	en.cancelPendingLocked()
	en.vault = nil
	en.activeID = ""
	en.disabled = false
}

// Vault returns the active vault, or nil.
func (en *Engine) Vault() *vault.Vault {
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.vault
}

// Stats returns section counts for the active vault.
func (en *Engine) Stats() vault.Stats {
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.vault == nil {
		return vault.Stats{}
	}
	return en.vault.Stats()
}

// ExtractBacklog runs extraction over messages not yet covered by the
// vault, in bounded sequential batches. Extraction calls happen outside
// the lock; each batch's results are applied only if the same
// conversation is still active when they return. Returns the number of
// memories added.
func (en *Engine) ExtractBacklog(ctx context.Context, messages []core.Message, characterName, userName string) (int, error) {
	if en.extractor == nil {
		return 0, nil
	}

	en.mu.Lock()
	if en.vault == nil || en.disabled {
		en.mu.Unlock()
		return 0, nil
	}
	convID := en.activeID
	from := en.vault.ExtractedUpTo
	en.mu.Unlock()

	batchSize := en.cfg.ExtractionBatchSize
	if batchSize < 1 {
		batchSize = config.Default().ExtractionBatchSize
	}

	added := 0
	for start := from; start < len(messages); start += batchSize {
		end := start + batchSize
		if end > len(messages) {
			end = len(messages)
		}
		batch := visibleSlice(messages[start:end])
		if len(batch) == 0 {
			continue
		}

		batchID := uuid.New().String()
		raw, err := en.extractor.Extract(ctx, extract.Request{
			Messages:      batch,
			CharacterName: characterName,
			UserName:      userName,
			BatchID:       batchID,
		})
		if err != nil {
			log.Printf("[ENGINE] Extraction batch %s failed: %v", batchID, err)
			en.notifier.Notify(core.NotifyWarning, "memory extraction failed, will retry later")
			return added, fmt.Errorf("extract batch: %w", err)
		}
		events := extract.ParseEvents(raw)

		en.mu.Lock()
		if en.activeID != convID {
			en.mu.Unlock()
			log.Printf("[ENGINE] Conversation changed mid-extraction, dropping batch %s", batchID)
			return added, nil
		}
		res := reducer.Reduce(en.vault, events, batchID)
		if en.vault.ExtractedUpTo < end {
			en.vault.ExtractedUpTo = end
		}
		newMemories := res.Added
		en.mu.Unlock()

		en.embedAndIndex(ctx, convID, newMemories)
		added += len(newMemories)
	}
	return added, nil
}

// embedAndIndex attaches embeddings to fresh memories and feeds them to
// the semantic index. Failures degrade those memories to keyword-only
// scoring.
func (en *Engine) embedAndIndex(ctx context.Context, convID string, memories []*vault.Memory) {
	if en.embedder == nil || len(memories) == 0 {
		return
	}
	for _, m := range memories {
		emb, err := en.embedder.Embed(ctx, m.SearchText())
		if err != nil {
			log.Printf("[ENGINE] Embedding failed for memory %s: %v", m.ID, err)
			continue
		}

		en.mu.Lock()
		if en.activeID != convID {
			en.mu.Unlock()
			return
		}
		m.Embedding = emb
		en.mu.Unlock()
	}

	if en.semIndex != nil {
		if err := en.semIndex.Add(ctx, convID, indexEntries(memories)); err != nil {
			log.Printf("[ENGINE] Indexing failed: %v", err)
		}
	}
}

// Retrieve returns the ranked memory injection for the next generation.
// It never fails; a missing or disabled vault yields an empty result.
func (en *Engine) Retrieve(ctx context.Context, messages []core.Message, pov string) retrieval.Result {
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.vault == nil || en.disabled {
		return retrieval.Result{}
	}
	return en.pipeline.Retrieve(ctx, en.vault, messages, pov)
}

// ReconcileBranch runs stale-memory pruning against the new branch's
// authoritative length and schedules the deferred visibility reset. The
// messages slice is mutated in place when the reset fires.
func (en *Engine) ReconcileBranch(ctx context.Context, messages []core.Message, chatLength int) branch.PruneResult {
	en.mu.Lock()
	if en.vault == nil || en.disabled {
		en.mu.Unlock()
		return branch.PruneResult{}
	}
	convID := en.activeID
	res := branch.Prune(en.vault, chatLength, en.cfg.Branch.PruneEnabled)
	en.mu.Unlock()

	if res.Pruned() > 0 {
		en.notifier.Notify(core.NotifyInfo,
			fmt.Sprintf("%d memories from another branch were removed", res.Pruned()))
		if en.semIndex != nil {
			if err := en.semIndex.Remove(ctx, convID, res.PrunedIDs); err != nil {
				log.Printf("[ENGINE] Index cleanup failed after pruning: %v", err)
			}
		}
	}

	en.scheduleVisibilityReset(convID, messages)
	return res
}

// scheduleVisibilityReset defers the unhide/re-hide pass so the host's
// chat load settles before message flags change. The reset is dropped
// if the conversation is no longer active when the timer fires.
func (en *Engine) scheduleVisibilityReset(convID string, messages []core.Message) {
	delay := time.Duration(en.cfg.Branch.UnhideDelaySeconds) * time.Second
	if delay <= 0 {
		delay = time.Duration(branch.DefaultConfig().UnhideDelaySeconds) * time.Second
	}

	en.mu.Lock()
	en.cancelPendingLocked()
	en.unhideTimer = time.AfterFunc(delay, func() {
		en.mu.Lock()
		defer en.mu.Unlock()
		if en.activeID != convID || en.vault == nil {
			log.Printf("[ENGINE] Conversation changed, dropping visibility reset for %s", convID)
			return
		}
		cleared, hidden := branch.ReconcileVisibility(messages, en.vault, en.cfg.Branch.AutoHideThreshold)
		log.Printf("[ENGINE] Visibility reset for %s: %d unhidden, %d re-hidden", convID, cleared, hidden)
	})
	en.mu.Unlock()
}

// AutoHide applies the visibility threshold immediately, outside branch
// reconciliation (the host calls this as chats grow).
func (en *Engine) AutoHide(messages []core.Message) int {
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.vault == nil || en.disabled {
		return 0
	}
	return branch.AutoHide(messages, en.vault, en.cfg.Branch.AutoHideThreshold)
}

func (en *Engine) cancelPendingLocked() {
	if en.unhideTimer != nil {
		en.unhideTimer.Stop()
		en.unhideTimer = nil
	}
}

func indexEntries(memories []*vault.Memory) []index.Entry {
	entries := make([]index.Entry, 0, len(memories))
	for _, m := range memories {
		entries = append(entries, index.Entry{
			MemoryID:  m.ID,
			Text:      m.SearchText(),
			Embedding: m.Embedding,
		})
	}
	return entries
}

func visibleSlice(messages []core.Message) []core.Message {
	out := make([]core.Message, 0, len(messages))
	for _, m := range messages {
		if m.IsSystem && !m.AutoHidden() {
			continue
		}
		out = append(out, m)
	}
	return out
}
