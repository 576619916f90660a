// Package retrieval assembles the pre-generation memory injection: it
// builds a query context from the trailing message window, ranks the
// vault's memories through the scorer, gates secrets by POV knowledge,
// fits the result into a token budget with pinned memories always
// included, and optionally lets an LLM adjudicator pick the final
// subset. Retrieval never hard-fails; every degradation falls back to a
// cheaper path and the worst case is an empty list.
package retrieval

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/GaraRoyal/memoryvault/core"
	"github.com/GaraRoyal/memoryvault/embedder"
	"github.com/GaraRoyal/memoryvault/index"
	"github.com/GaraRoyal/memoryvault/scoring"
	"github.com/GaraRoyal/memoryvault/vault"
)

// Config controls the retrieval pipeline.
type Config struct {
	// QueryWindow is how many trailing visible messages form the query
	// context.
	QueryWindow int `yaml:"query_window"`

	// TokenBudget caps the estimated token cost of non-pinned injected
	// memories. Pinned memories are always included and do not consume
	// the budget.
	TokenBudget int `yaml:"token_budget"`

	// AdjudicationTopN is how many top candidates are offered to the
	// adjudicator. Zero disables adjudication.
	AdjudicationTopN int `yaml:"adjudication_top_n"`
}

// DefaultConfig returns retrieval defaults.
func DefaultConfig() Config {
	return Config{
		QueryWindow:      6,
		TokenBudget:      1500,
		AdjudicationTopN: 10,
	}
}

// Adjudicator selects the actually-relevant subset of candidates. It
// returns memory ids in preference order; ids outside the candidate set
// are discarded by the pipeline.
type Adjudicator interface {
	Adjudicate(ctx context.Context, candidates []*vault.Memory, queryText string) ([]string, error)
}

// Result is the retrieval output handed to prompt assembly.
type Result struct {
	// Memories to inject, in final order.
	Memories []*vault.Memory

	// Characters holds formatted state summaries for characters
	// mentioned in the selected memories.
	Characters []string

	// Relationships holds formatted dimension summaries for tracked
	// pairs among the mentioned characters.
	Relationships []string

	// Degraded is true when the embedding path failed and scoring fell
	// back to keyword-only.
	Degraded bool
}

// Pipeline wires the scorer to its collaborators. Embedder, index, and
// adjudicator are all optional; each missing piece degrades scoring
// rather than failing it.
type Pipeline struct {
	cfg      Config
	scorer   *scoring.Scorer
	embedder embedder.Embedder
	index    index.SemanticIndex
	counter  TokenCounter
	adjudge  Adjudicator
	notifier core.Notifier
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEmbedder sets the query embedder.
func WithEmbedder(e embedder.Embedder) Option {
	return func(p *Pipeline) { p.embedder = e }
}

// WithIndex sets the semantic index used for similarity scores.
func WithIndex(ix index.SemanticIndex) Option {
	return func(p *Pipeline) { p.index = ix }
}

// WithAdjudicator enables LLM-adjudicated re-ranking.
func WithAdjudicator(a Adjudicator) Option {
	return func(p *Pipeline) { p.adjudge = a }
}

// WithTokenCounter overrides the token estimator.
func WithTokenCounter(c TokenCounter) Option {
	return func(p *Pipeline) { p.counter = c }
}

// WithNotifier sets the host notifier for degradation warnings.
func WithNotifier(n core.Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// New creates a retrieval pipeline. Zero config fields take defaults.
func New(cfg Config, scorer *scoring.Scorer, opts ...Option) *Pipeline {
	def := DefaultConfig()
	if cfg.QueryWindow <= 0 {
		cfg.QueryWindow = def.QueryWindow
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = def.TokenBudget
	}
	p := &Pipeline{
		cfg:      cfg,
		scorer:   scorer,
		counter:  NewTiktokenCounter(),
		notifier: core.NopNotifier{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Retrieve ranks and selects memories for the next generation. The
// messages are the active branch in order; pov gates secret visibility
// ("" means no POV filter).
func (p *Pipeline) Retrieve(ctx context.Context, v *vault.Vault, messages []core.Message, pov string) Result {
	qc, degraded := p.queryContext(ctx, v, messages)

	type scored struct {
		mem   *vault.Memory
		score scoring.Score
	}
	var candidates []scored
	for _, m := range v.Memories {
		sc := p.scorer.Score(m, qc)
		if !p.scorer.Admit(m, sc) {
			continue
		}
		candidates = append(candidates, scored{m, sc})
	}

	// Total descending, ties broken by sequence descending so the more
	// recent memory wins.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score.Total != candidates[j].score.Total {
			return candidates[i].score.Total > candidates[j].score.Total
		}
		return candidates[i].mem.Sequence > candidates[j].mem.Sequence
	})

	ranked := make([]*vault.Memory, len(candidates))
	for i, c := range candidates {
		ranked[i] = c.mem
	}
	ranked = FilterByKnowledge(ranked, pov)
	selected := p.truncateToBudget(ranked)

	if p.adjudge != nil && p.cfg.AdjudicationTopN > 0 && len(selected) > 0 {
		selected = p.adjudicate(ctx, selected, qc.Text)
	}

	res := Result{Memories: selected, Degraded: degraded}
	p.attachSummaries(v, &res)
	return res
}

// queryContext builds the scoring query from the trailing visible
// message window, embedding it when an embedder is available.
func (p *Pipeline) queryContext(ctx context.Context, v *vault.Vault, messages []core.Message) (*scoring.QueryContext, bool) {
	var window []string
	for i := len(messages) - 1; i >= 0 && len(window) < p.cfg.QueryWindow; i-- {
		if messages[i].IsSystem {
			continue
		}
		window = append(window, messages[i].Text)
	}
	// Restore chronological order.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}

	qc := &scoring.QueryContext{
		Text:                strings.Join(window, "\n"),
		CurrentMessageIndex: len(messages),
	}
	qc.Terms = scoring.Tokenize(qc.Text)

	degraded := false
	if p.embedder != nil && qc.Text != "" {
		emb, err := p.embedder.Embed(ctx, qc.Text)
		if err != nil {
			log.Printf("[RETRIEVAL] Query embedding failed, keyword-only scoring: %v", err)
			p.notifier.Notify(core.NotifyWarning, "memory retrieval degraded to keyword matching")
			degraded = true
		} else {
			qc.Embedding = emb
		}
	}

	if p.index != nil && qc.Embedding != nil {
		scores, err := p.index.Similarities(ctx, v.ConversationID, qc.Embedding)
		if err != nil {
			log.Printf("[RETRIEVAL] Semantic index query failed, using direct cosine: %v", err)
		} else {
			qc.SemanticScores = scores
		}
	}
	return qc, degraded
}

// truncateToBudget keeps every pinned memory, then spends the token
// budget on the remaining candidates in ranked order.
func (p *Pipeline) truncateToBudget(ranked []*vault.Memory) []*vault.Memory {
	var out []*vault.Memory
	for _, m := range ranked {
		if m.Pinned {
			out = append(out, m)
		}
	}
	remaining := p.cfg.TokenBudget
	for _, m := range ranked {
		if m.Pinned {
			continue
		}
		cost := p.counter.Count(m.Format())
		if cost > remaining {
			continue
		}
		remaining -= cost
		out = append(out, m)
	}
	return out
}

// adjudicate offers the top-N candidates to the adjudicator and applies
// its selection. The adjudicator may reorder or drop candidates but
// never introduce ids outside the offered set; pinned memories survive
// regardless. Any failure or empty result falls back to the
// pre-adjudication list.
func (p *Pipeline) adjudicate(ctx context.Context, selected []*vault.Memory, queryText string) []*vault.Memory {
	topN := p.cfg.AdjudicationTopN
	if topN > len(selected) {
		topN = len(selected)
	}
	offered := selected[:topN]

	ids, err := p.adjudge.Adjudicate(ctx, offered, queryText)
	if err != nil {
		log.Printf("[RETRIEVAL] Adjudication failed, keeping ranked list: %v", err)
		return selected
	}

	byID := make(map[string]*vault.Memory, len(offered))
	for _, m := range offered {
		byID[m.ID] = m
	}
	var picked []*vault.Memory
	taken := make(map[string]bool, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok || taken[id] {
			continue
		}
		taken[id] = true
		picked = append(picked, m)
	}
	if len(picked) == 0 {
		log.Printf("[RETRIEVAL] Adjudication returned no usable ids, keeping ranked list")
		return selected
	}

	// Pinned candidates stay in the output even when dropped by the
	// adjudicator, as do the candidates beyond the offered window.
	for _, m := range offered {
		if m.Pinned && !taken[m.ID] {
			taken[m.ID] = true
			picked = append(picked, m)
		}
	}
	picked = append(picked, selected[topN:]...)
	return picked
}

// attachSummaries collects character and relationship summaries for
// characters mentioned in the selected memories.
func (p *Pipeline) attachSummaries(v *vault.Vault, res *Result) {
	mentioned := map[string]bool{}
	var names []string
	for _, m := range res.Memories {
		for _, name := range m.CharactersInvolved {
			if mentioned[name] {
				continue
			}
			mentioned[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		// Read-only lookup: retrieval must not lazily create state.
		if c, ok := v.Characters[name]; ok {
			res.Characters = append(res.Characters, c.Format())
		}
	}
	seenPairs := map[string]bool{}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			key := vault.PairKey(names[i], names[j])
			if seenPairs[key] {
				continue
			}
			seenPairs[key] = true
			if r, ok := v.Relationships[key]; ok {
				res.Relationships = append(res.Relationships, r.Format())
			}
		}
	}
}
