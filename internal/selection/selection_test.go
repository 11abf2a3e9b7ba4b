package selection

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
)

func pool(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestSample(t *testing.T) {
	tests := []struct {
		name          string
		poolSize      int
		k             int
		wantLen       int
		wantShortfall *Shortfall
		wantErrKind   apperrors.Kind
	}{
		{
			name:     "takes k from a larger pool",
			poolSize: 50,
			k:        10,
			wantLen:  10,
		},
		{
			name:     "k equal to pool size",
			poolSize: 12,
			k:        12,
			wantLen:  12,
		},
		{
			name:          "reduced set when pool is smaller",
			poolSize:      12,
			k:             30,
			wantLen:       12,
			wantShortfall: &Shortfall{Requested: 30, Available: 12},
		},
		{
			name:          "empty pool returns empty sample with shortfall",
			poolSize:      0,
			k:             5,
			wantLen:       0,
			wantShortfall: &Shortfall{Requested: 5, Available: 0},
		},
		{
			name:        "zero quantity is rejected",
			poolSize:    5,
			k:           0,
			wantErrKind: apperrors.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(1, 2))
			got, shortfall, err := Sample(rng, pool(tt.poolSize), tt.k)
			if tt.wantErrKind != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsKind(err, tt.wantErrKind))
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
			assert.Equal(t, tt.wantShortfall, shortfall)

			seen := make(map[int]bool, len(got))
			for _, v := range got {
				assert.False(t, seen[v], "duplicate element %d", v)
				seen[v] = true
				assert.GreaterOrEqual(t, v, 0)
				assert.Less(t, v, tt.poolSize)
			}
		})
	}
}

func TestSample_DoesNotModifyPool(t *testing.T) {
	items := pool(20)
	_, _, err := Sample(rand.New(rand.NewPCG(3, 4)), items, 5)
	require.NoError(t, err)
	assert.Equal(t, pool(20), items)
}

func TestShuffle_IsPermutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	items := pool(100)
	Shuffle(rng, items)

	assert.ElementsMatch(t, pool(100), items)
}

func TestShuffle_PositionsAreUniform(t *testing.T) {
	const (
		n      = 5
		trials = 50000
	)
	rng := rand.New(rand.NewPCG(7, 8))
	var counts [n][n]int
	for trial := 0; trial < trials; trial++ {
		items := pool(n)
		Shuffle(rng, items)
		for position, v := range items {
			counts[v][position]++
		}
	}

	expected := float64(trials) / n
	for v := 0; v < n; v++ {
		for position := 0; position < n; position++ {
			assert.InDelta(t, expected, float64(counts[v][position]), expected*0.05,
				"element %d at position %d", v, position)
		}
	}
}

func TestShortfall_String(t *testing.T) {
	s := &Shortfall{Requested: 30, Available: 12}
	assert.Equal(t, "only 12 of 30 requested items are available", s.String())
}
