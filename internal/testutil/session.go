package testutil

import "github.com/roach88/statebox/internal/engine"

var _ engine.TokenGenerator = (*FixedSessionGenerator)(nil)

// DefaultSessionToken is used when a scenario does not name its session.
const DefaultSessionToken = "test-session-default"

// FixedSessionGenerator returns the same session token every time.
//
// Unlike engine.FixedGenerator, which returns tokens in sequence and panics
// when they run out, this generator can back any number of engines. Every
// run of a scenario then produces byte-identical action IDs, which is what
// golden traces compare.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	token string
}

// NewFixedSessionGenerator creates a generator for token. An empty token
// means DefaultSessionToken.
func NewFixedSessionGenerator(token string) *FixedSessionGenerator {
	if token == "" {
		token = DefaultSessionToken
	}
	return &FixedSessionGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedSessionGenerator) Generate() string {
	return g.token
}
