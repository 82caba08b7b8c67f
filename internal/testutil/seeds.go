package testutil

import "sync/atomic"

// SequentialSeeds hands out template seeds 1, 2, 3, ... so template
// values are reproducible across runs.
//
// Thread-safety: safe for concurrent use.
type SequentialSeeds struct {
	next atomic.Uint64
}

// NextSeed returns the next seed.
func (s *SequentialSeeds) NextSeed() uint64 {
	return s.next.Add(1)
}

// FixedToken returns the same session token every time. Scenarios use it
// so event logs and golden output do not depend on random tokens.
type FixedToken string

// Generate returns the token, or "test-token" when it is empty.
func (t FixedToken) Generate() string {
	if t == "" {
		return "test-token"
	}
	return string(t)
}
