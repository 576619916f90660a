// Package scoring ranks memories against a query context by blending
// four signals: semantic similarity, keyword overlap, recency decay,
// and importance. Either semantic or keyword strength alone can admit a
// candidate (hybrid search); pinned memories bypass scoring filters
// entirely.
package scoring

import (
	"math"

	"github.com/GaraRoyal/memoryvault/vault"
)

// Weights blend the four scoring signals. They need not sum to 1; the
// total is a weighted sum of per-signal values in [0,1].
type Weights struct {
	Semantic   float64 `yaml:"semantic"`
	Keyword    float64 `yaml:"keyword"`
	Recency    float64 `yaml:"recency"`
	Importance float64 `yaml:"importance"`
}

// Config controls scoring and candidate admission.
type Config struct {
	Weights Weights `yaml:"weights"`

	// MinSimilarity is the semantic admission threshold, applied to the
	// unweighted cosine value.
	MinSimilarity float64 `yaml:"min_similarity"`

	// KeywordThreshold admits a candidate on keyword overlap alone.
	KeywordThreshold float64 `yaml:"keyword_threshold"`

	// HalfLifeMessages is the message distance at which the recency
	// signal halves.
	HalfLifeMessages float64 `yaml:"half_life_messages"`

	// DecayFloor is the minimum recency value: memories fade but never
	// fully vanish.
	DecayFloor float64 `yaml:"decay_floor"`
}

// DefaultConfig returns sensible scoring defaults. MinSimilarity is
// tuned low enough for small local embedders, whose cosine scores run
// well below API-model ranges.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Semantic:   0.45,
			Keyword:    0.20,
			Recency:    0.20,
			Importance: 0.15,
		},
		MinSimilarity:    0.35,
		KeywordThreshold: 0.30,
		HalfLifeMessages: 60,
		DecayFloor:       0.05,
	}
}

// QueryContext is everything the scorer knows about the current
// retrieval request.
type QueryContext struct {
	// Text is the trailing-window query text.
	Text string

	// Terms are the tokenized query terms (Tokenize(Text)).
	Terms []string

	// Embedding is the query vector; nil when embeddings are disabled
	// or unavailable, in which case semantic contribution is zero.
	Embedding []float32

	// SemanticScores, when non-nil, provides per-memory-id similarity
	// from a vector index and takes precedence over direct cosine.
	SemanticScores map[string]float64

	// CurrentMessageIndex is the index the next generation will have,
	// the reference point for recency decay.
	CurrentMessageIndex int
}

// Score is the per-memory scoring breakdown.
type Score struct {
	Semantic   float64
	Keyword    float64
	Recency    float64
	Importance float64
	Total      float64
}

// Scorer computes relevance scores under a fixed config.
type Scorer struct {
	cfg Config
}

// New creates a scorer. A zero-value config is replaced by defaults.
func New(cfg Config) *Scorer {
	if cfg.Weights == (Weights{}) {
		cfg = DefaultConfig()
	}
	return &Scorer{cfg: cfg}
}

// Score computes the blended relevance of one memory for the query.
func (s *Scorer) Score(m *vault.Memory, qc *QueryContext) Score {
	var sc Score

	sc.Semantic = s.semantic(m, qc)
	sc.Keyword = KeywordOverlap(qc.Terms, m.SearchText())
	sc.Recency = s.recency(m, qc.CurrentMessageIndex)
	sc.Importance = float64(m.Importance-1) / 4.0

	w := s.cfg.Weights
	sc.Total = w.Semantic*sc.Semantic + w.Keyword*sc.Keyword +
		w.Recency*sc.Recency + w.Importance*sc.Importance
	return sc
}

// Admit reports whether the memory qualifies as a retrieval candidate:
// pinned always, otherwise semantic over threshold OR keyword over
// threshold (either signal can admit, ranking uses the blend).
func (s *Scorer) Admit(m *vault.Memory, sc Score) bool {
	if m.Pinned {
		return true
	}
	if sc.Semantic >= s.cfg.MinSimilarity {
		return true
	}
	return sc.Keyword >= s.cfg.KeywordThreshold
}

func (s *Scorer) semantic(m *vault.Memory, qc *QueryContext) float64 {
	if qc.SemanticScores != nil {
		return qc.SemanticScores[m.ID]
	}
	if qc.Embedding == nil || m.Embedding == nil {
		return 0
	}
	return Cosine(m.Embedding, qc.Embedding)
}

// recency decays exponentially with message distance from the memory's
// latest referenced message, floored so memories never fully vanish.
// Pinned memories bypass decay entirely.
func (s *Scorer) recency(m *vault.Memory, currentIndex int) float64 {
	if m.Pinned {
		return 1
	}
	age := float64(currentIndex - m.MaxMessageID())
	if age <= 0 {
		return 1
	}
	halfLife := s.cfg.HalfLifeMessages
	if halfLife <= 0 {
		halfLife = DefaultConfig().HalfLifeMessages
	}
	v := math.Pow(0.5, age/halfLife)
	if v < s.cfg.DecayFloor {
		return s.cfg.DecayFloor
	}
	return v
}
