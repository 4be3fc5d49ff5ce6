package consensus

import (
	"chainsim/internal/chainmodel"
	"chainsim/internal/rngstream"
)

// PoSpace models Chia-style VDF timing: delay ~ Exponential(totalSpace /
// targetBlocktime), producer chosen by space-weighted selection.
type PoSpace struct{}

func (PoSpace) Kind() chainmodel.ConsensusKind { return chainmodel.PoSpace }

func (PoSpace) NextBlock(rng *rngstream.Stream, s Sample) (int, float64, bool) {
	producerID, _, ok := selectWeighted(rng, s.Producers)
	if !ok {
		return 0, 0, false
	}

	totalSpace := totalCapacity(s.Producers)
	if totalSpace <= 0 || s.Blocktime <= 0 {
		return 0, 0, false
	}
	delay := rng.Expovariate(totalSpace / s.Blocktime)
	return producerID, delay, true
}
