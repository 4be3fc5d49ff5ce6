// Package consensus implements the (rng, state) -> (producer, delay)
// sampling capability shared by PoW, PoS and PoSpace. Each mechanism is a
// Strategy implementation; adding a consensus type means adding an
// implementation and a case in the coordinator's strategy selection.
package consensus

import (
	"sort"

	"chainsim/internal/chainmodel"
	"chainsim/internal/rngstream"
)

// Sample is the read-only view a Strategy needs to pick a producer and delay.
type Sample struct {
	Producers  []chainmodel.Producer
	Difficulty float64 // meaningful for PoW only
	Blocktime  float64 // target block time, seconds
}

// Strategy is the uniform sampling capability every consensus mechanism
// provides.
type Strategy interface {
	Kind() chainmodel.ConsensusKind
	// NextBlock samples the next producer id and inter-block delay in
	// seconds. Returns ok=false if every producer has zero capacity;
	// the caller treats that as fatal.
	NextBlock(rng *rngstream.Stream, s Sample) (producerID int, delaySeconds float64, ok bool)
}

// selectWeighted performs capacity-weighted sampling over producers. Producers
// are visited in ascending id order so that a pick landing exactly on a
// cumulative boundary between equal-weight producers resolves to the lower
// id.
func selectWeighted(rng *rngstream.Stream, producers []chainmodel.Producer) (int, float64, bool) {
	total := totalCapacity(producers)
	if total <= 0 {
		return 0, 0, false
	}

	ordered := make([]chainmodel.Producer, len(producers))
	copy(ordered, producers)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	pick := rng.Float64() * total
	cumulative := 0.0
	for _, p := range ordered {
		cumulative += p.Capacity
		if pick <= cumulative {
			return p.ID, p.Capacity, true
		}
	}
	last := ordered[len(ordered)-1]
	return last.ID, last.Capacity, true
}

func totalCapacity(producers []chainmodel.Producer) float64 {
	total := 0.0
	for _, p := range producers {
		total += p.Capacity
	}
	return total
}
