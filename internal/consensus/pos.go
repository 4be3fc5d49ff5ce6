package consensus

import (
	"chainsim/internal/chainmodel"
	"chainsim/internal/rngstream"
)

// PoS selects a validator by stake-weighted sampling and fixes the delay to
// the configured blocktime, with optional small jitter (deterministic, i.e.
// zero jitter, by default).
type PoS struct {
	// JitterFraction, if > 0, perturbs the delay by up to +/- JitterFraction
	// of Blocktime, drawn uniformly.
	JitterFraction float64
}

func (PoS) Kind() chainmodel.ConsensusKind { return chainmodel.PoS }

func (p PoS) NextBlock(rng *rngstream.Stream, s Sample) (int, float64, bool) {
	producerID, _, ok := selectWeighted(rng, s.Producers)
	if !ok {
		return 0, 0, false
	}

	delay := s.Blocktime
	if p.JitterFraction > 0 {
		spread := p.JitterFraction * s.Blocktime
		delay += (rng.Float64()*2 - 1) * spread
		if delay < 0 {
			delay = 0
		}
	}
	return producerID, delay, true
}
