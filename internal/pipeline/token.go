package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator mints run tokens, one per layer run. Every log line
// and artifact of a run is correlated by its token. Implemented by
// UUIDv7Generator in production and FixedGenerator in tests.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens. UUIDv7
// embeds a timestamp in the most significant bits, so tokens collected
// from many runs sort by creation time.
//
// UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string. Panics if UUID
// generation fails, which requires the system entropy source to be
// broken.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run tokens, so tests can pin
// token values in logs and results.
//
// FixedGenerator is safe for concurrent use via an internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token. Panics once all
// tokens are consumed, to catch tests that start more runs than they
// declared.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
