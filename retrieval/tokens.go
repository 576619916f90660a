package retrieval

import (
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the token cost of injecting a piece of text.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with a real BPE encoding, falling back to the
// chars/4 heuristic if the encoding cannot be loaded (offline hosts).
type TiktokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a lazily-initialized counter.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

// Count returns the token count of text.
func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("[RETRIEVAL] tiktoken unavailable, using heuristic counter: %v", err)
			return
		}
		c.encoding = enc
	})
	if c.encoding == nil {
		return HeuristicCounter{}.Count(text)
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// HeuristicCounter approximates tokens as len/4, the usual
// English-text rule of thumb. Used in tests and as the offline
// fallback.
type HeuristicCounter struct{}

// Count returns the heuristic token count of text.
func (HeuristicCounter) Count(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
