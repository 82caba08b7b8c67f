package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestSequentialSeeds(t *testing.T) {
	var seeds SequentialSeeds
	assert.Equal(t, uint64(1), seeds.NextSeed())
	assert.Equal(t, uint64(2), seeds.NextSeed())
}

func TestSequentialSeeds_Concurrent(t *testing.T) {
	var seeds SequentialSeeds
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				seeds.NextSeed()
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	assert.Equal(t, uint64(801), seeds.NextSeed())
}

func TestFixedToken(t *testing.T) {
	assert.Equal(t, "abc", FixedToken("abc").Generate())
	assert.Equal(t, "test-token", FixedToken("").Generate())
}
