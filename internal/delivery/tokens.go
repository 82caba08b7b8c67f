package delivery

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator issues capability tokens for new sessions.
type TokenGenerator interface {
	Generate() string
}

// UUIDGenerator issues random UUIDv4 tokens.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new hyphenated UUID.
func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// SeedSource supplies template processing seeds, one per initialization.
type SeedSource interface {
	NextSeed() uint64
}

// randomSeeds draws seeds from the runtime's random source.
type randomSeeds struct{}

func (randomSeeds) NextSeed() uint64 { return rand.Uint64() }

// SeededSource draws seeds from a PCG stream, so runs started from the
// same base seed see the same template values.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SeededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a source whose sequence is fixed by seed.
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededSource) NextSeed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Uint64()
}
