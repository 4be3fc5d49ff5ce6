package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainsim/internal/chainmodel"
	"chainsim/internal/rngstream"
)

func equalProducers(n int) []chainmodel.Producer {
	ps := make([]chainmodel.Producer, n)
	for i := range ps {
		ps[i] = chainmodel.Producer{ID: i, Capacity: 1.0}
	}
	return ps
}

func TestSelectWeightedUnderflowWhenAllZero(t *testing.T) {
	rng := rngstream.New(1)
	producers := []chainmodel.Producer{{ID: 0, Capacity: 0}, {ID: 1, Capacity: 0}}
	_, _, ok := selectWeighted(rng, producers)
	assert.False(t, ok)
}

func TestSelectWeightedEqualCapacitySharesConverge(t *testing.T) {
	rng := rngstream.New(7)
	producers := equalProducers(4)

	counts := map[int]int{}
	const draws = 20000
	for i := 0; i < draws; i++ {
		id, _, ok := selectWeighted(rng, producers)
		require.True(t, ok)
		counts[id]++
	}
	for id, n := range counts {
		share := float64(n) / draws
		assert.InDelta(t, 0.25, share, 0.02, "producer %d share %f", id, share)
	}
}

func TestSelectWeightedRespectsSkewedWeights(t *testing.T) {
	rng := rngstream.New(11)
	producers := []chainmodel.Producer{
		{ID: 0, Capacity: 9.0},
		{ID: 1, Capacity: 1.0},
	}
	heavy := 0
	const draws = 10000
	for i := 0; i < draws; i++ {
		id, _, ok := selectWeighted(rng, producers)
		require.True(t, ok)
		if id == 0 {
			heavy++
		}
	}
	assert.InDelta(t, 0.9, float64(heavy)/draws, 0.02)
}

func TestPoWDelayMeanIsDifficultyOverTotalHashrate(t *testing.T) {
	rng := rngstream.New(5)
	s := Sample{Producers: equalProducers(10), Difficulty: 600, Blocktime: 60}

	var sum float64
	const n = 5000
	for i := 0; i < n; i++ {
		_, delay, ok := PoW{}.NextBlock(rng, s)
		require.True(t, ok)
		sum += delay
	}
	// H = 10, difficulty = 600, so mean delay should approach 60s.
	assert.InDelta(t, 60.0, sum/n, 3.0)
}

func TestPoWUnderflowOnZeroDifficulty(t *testing.T) {
	rng := rngstream.New(5)
	_, _, ok := PoW{}.NextBlock(rng, Sample{Producers: equalProducers(2), Difficulty: 0})
	assert.False(t, ok)
}

func TestPoSDelayIsDeterministicBlocktime(t *testing.T) {
	rng := rngstream.New(9)
	s := Sample{Producers: equalProducers(3), Blocktime: 12}
	for i := 0; i < 10; i++ {
		_, delay, ok := PoS{}.NextBlock(rng, s)
		require.True(t, ok)
		assert.Equal(t, 12.0, delay)
	}
}

func TestPoSJitterStaysWithinSpread(t *testing.T) {
	rng := rngstream.New(13)
	strat := PoS{JitterFraction: 0.1}
	s := Sample{Producers: equalProducers(3), Blocktime: 100}
	for i := 0; i < 200; i++ {
		_, delay, ok := strat.NextBlock(rng, s)
		require.True(t, ok)
		assert.GreaterOrEqual(t, delay, 90.0)
		assert.LessOrEqual(t, delay, 110.0)
	}
}

func TestPoSpaceDelayScalesWithSpace(t *testing.T) {
	rng := rngstream.New(17)
	small := Sample{Producers: equalProducers(2), Blocktime: 20}
	big := Sample{Producers: equalProducers(20), Blocktime: 20}

	var sumSmall, sumBig float64
	const n = 5000
	for i := 0; i < n; i++ {
		_, d, ok := PoSpace{}.NextBlock(rng, small)
		require.True(t, ok)
		sumSmall += d
	}
	for i := 0; i < n; i++ {
		_, d, ok := PoSpace{}.NextBlock(rng, big)
		require.True(t, ok)
		sumBig += d
	}
	// Ten times the space means a tenth of the expected delay.
	assert.InDelta(t, 10.0, sumSmall/sumBig, 1.0)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, chainmodel.PoW, PoW{}.Kind())
	assert.Equal(t, chainmodel.PoS, PoS{}.Kind())
	assert.Equal(t, chainmodel.PoSpace, PoSpace{}.Kind())
}
