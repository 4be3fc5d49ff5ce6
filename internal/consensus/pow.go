package consensus

import (
	"chainsim/internal/chainmodel"
	"chainsim/internal/rngstream"
)

// PoW models the memoryless race between independent Poisson mining
// processes: total capacity H = sum(hashrate), delay ~ Exponential(H/difficulty),
// producer chosen by hashrate-weighted selection.
type PoW struct{}

func (PoW) Kind() chainmodel.ConsensusKind { return chainmodel.PoW }

func (PoW) NextBlock(rng *rngstream.Stream, s Sample) (int, float64, bool) {
	producerID, _, ok := selectWeighted(rng, s.Producers)
	if !ok {
		return 0, 0, false
	}

	total := totalCapacity(s.Producers)
	if total <= 0 || s.Difficulty <= 0 {
		return 0, 0, false
	}
	delay := rng.Expovariate(total / s.Difficulty)
	return producerID, delay, true
}
