// Package selection samples a bounded number of items from a candidate pool in random order.
package selection

import (
	"fmt"
	"math/rand/v2"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
)

// Shortfall is a non-fatal warning returned when the pool held fewer items than requested.
type Shortfall struct {
	Requested int
	Available int
}

func (s *Shortfall) String() string {
	return fmt.Sprintf("only %d of %d requested items are available", s.Available, s.Requested)
}

// Shuffle permutes items in place with a right-to-left Fisher-Yates pass.
func Shuffle[T any](rng *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Sample returns the first k elements of a shuffled copy of pool.
// When pool is smaller than k, the whole pool is returned with a Shortfall; it never pads.
// pool itself is not modified.
func Sample[T any](rng *rand.Rand, pool []T, k int) ([]T, *Shortfall, error) {
	if k < 1 {
		return nil, nil, apperrors.Validation("quantity", "quantity must be at least 1, got %d", k)
	}

	shuffled := make([]T, len(pool))
	copy(shuffled, pool)
	Shuffle(rng, shuffled)

	if k > len(shuffled) {
		return shuffled, &Shortfall{Requested: k, Available: len(shuffled)}, nil
	}
	return shuffled[:k], nil, nil
}

// NewRand returns a generator seeded from the runtime's entropy source.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
