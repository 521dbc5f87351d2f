package testutil

// StaticTokenGenerator returns the same run token on every call.
//
// Unlike pipeline.FixedGenerator, which hands out a finite token
// sequence, this generator never runs out: every run in a scenario
// shares one token, so repeated runs produce identical artifacts and
// log streams.
//
// StaticTokenGenerator is stateless and safe for concurrent use.
// Implements pipeline.TokenGenerator.
type StaticTokenGenerator struct {
	token string
}

// NewStaticTokenGenerator creates a generator that always returns
// token. An empty token falls back to "test-run-default".
func NewStaticTokenGenerator(token string) *StaticTokenGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &StaticTokenGenerator{token: token}
}

// Generate returns the fixed run token.
func (g *StaticTokenGenerator) Generate() string {
	return g.token
}
