// Package export shapes a finished run into a structured metrics record and
// writes it as JSON. It sits beside the coordinator rather than inside it:
// it reads Result/Config and never mutates simulation state.
package export

import (
	"encoding/json"
	"os"
	"sort"

	"chainsim/internal/attacks"
	"chainsim/internal/config"
	"chainsim/internal/coordinator"
)

// ProducerShare is one producer's slice of the accepted chain.
type ProducerShare struct {
	ProducerID int     `json:"producer_id"`
	Blocks     int     `json:"blocks"`
	Share      float64 `json:"share"`
}

// DifficultyPoint is one entry in the per-retarget difficulty history.
type DifficultyPoint struct {
	Height     uint64  `json:"height"`
	Difficulty float64 `json:"difficulty"`
}

// SelfishStats is the attack-specific block for a selfish-mining run.
type SelfishStats struct {
	Gamma              float64 `json:"gamma"`
	AttackerBlocksWon  int     `json:"attacker_blocks_won"`
	HonestBlocksWon    int     `json:"honest_blocks_won"`
	WastedHonestBlocks int     `json:"wasted_honest_blocks"`
	RelativeRevenue    float64 `json:"relative_revenue"`
	AttackerRewards    float64 `json:"attacker_rewards"`
	HonestRewards      float64 `json:"honest_rewards"`
}

// DoubleSpendStats is the attack-specific block for a 51% double-spend run.
type DoubleSpendStats struct {
	TargetConfirmations int     `json:"target_confirmations"`
	Attempts            int     `json:"attempts"`
	Successes           int     `json:"successes"`
	Failures            int     `json:"failures"`
	SuccessRate         float64 `json:"success_rate"`
	DoubleSpentValue    float64 `json:"double_spent_value"`
}

// EclipseStats is the attack-specific block for an eclipse run.
type EclipseStats struct {
	Victims            int     `json:"victims"`
	BlocksWithheld     int     `json:"blocks_withheld"`
	VictimSeenFraction float64 `json:"victim_seen_fraction"`
}

// AttackStats carries whichever attack ran; unset members are omitted.
type AttackStats struct {
	Name        string            `json:"name"`
	Selfish     *SelfishStats     `json:"selfish,omitempty"`
	DoubleSpend *DoubleSpendStats `json:"double_spend,omitempty"`
	Eclipse     *EclipseStats     `json:"eclipse,omitempty"`
}

// Record is the full export document.
type Record struct {
	Seed     int64   `json:"seed"`
	Chain    string  `json:"chain"`
	Duration float64 `json:"duration_seconds"`

	Blocks              int     `json:"blocks"`
	Transactions        int     `json:"transactions"`
	CoinsIssued         float64 `json:"coins_issued"`
	MeanBlockTime       float64 `json:"mean_block_time"`
	MeanPropagationHops float64 `json:"mean_propagation_hops"`
	EmptyMempoolBlocks  int     `json:"empty_mempool_blocks"`

	ProducerShares    []ProducerShare   `json:"producer_shares"`
	DifficultyHistory []DifficultyPoint `json:"difficulty_history"`
	Attack            *AttackStats      `json:"attack,omitempty"`
}

// Build assembles the export Record from a finished run.
func Build(cfg config.Config, res coordinator.Result, duration float64) Record {
	rec := Record{
		Seed:                cfg.Simulation.Seed,
		Chain:               cfg.Chain,
		Duration:            duration,
		Blocks:              res.Metrics.BlocksProduced,
		Transactions:        res.Metrics.TxIncluded,
		CoinsIssued:         res.Metrics.TotalCoinsIssued,
		MeanBlockTime:       res.Metrics.MeanBlockTime(),
		MeanPropagationHops: res.Metrics.MeanPropagationHops(),
		EmptyMempoolBlocks:  res.Metrics.EmptyMempoolBlocks,
	}

	ids := make([]int, 0, len(res.Metrics.ProducerBlockCounts))
	for id := range res.Metrics.ProducerBlockCounts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		count := res.Metrics.ProducerBlockCounts[id]
		share := 0.0
		if res.Metrics.BlocksProduced > 0 {
			share = float64(count) / float64(res.Metrics.BlocksProduced)
		}
		rec.ProducerShares = append(rec.ProducerShares, ProducerShare{ProducerID: id, Blocks: count, Share: share})
	}

	if res.Chain != nil {
		for _, dp := range res.Chain.DifficultyHistory {
			rec.DifficultyHistory = append(rec.DifficultyHistory, DifficultyPoint{Height: dp.Height, Difficulty: dp.Difficulty})
		}
	}

	rec.Attack = attackStats(res.Attack)
	return rec
}

func attackStats(a attacks.Attack) *AttackStats {
	switch at := a.(type) {
	case *attacks.Selfish:
		return &AttackStats{Name: at.Name(), Selfish: &SelfishStats{
			Gamma:              at.Gamma,
			AttackerBlocksWon:  at.AttackerBlocksWon,
			HonestBlocksWon:    at.HonestBlocksWon,
			WastedHonestBlocks: at.WastedHonestBlocks,
			RelativeRevenue:    at.RelativeRevenue(),
			AttackerRewards:    at.AttackerRewards,
			HonestRewards:      at.HonestRewards,
		}}
	case *attacks.DoubleSpend:
		return &AttackStats{Name: at.Name(), DoubleSpend: &DoubleSpendStats{
			TargetConfirmations: at.TargetConfirmations,
			Attempts:            at.AttackAttempts,
			Successes:           at.SuccessfulAttacks,
			Failures:            at.FailedAttacks,
			SuccessRate:         at.SuccessRate(),
			DoubleSpentValue:    at.DoubleSpentValue,
		}}
	case *attacks.Eclipse:
		return &AttackStats{Name: at.Name(), Eclipse: &EclipseStats{
			Victims:            len(at.VictimIDs),
			BlocksWithheld:     at.BlocksWithheld,
			VictimSeenFraction: at.VictimSeenFraction(),
		}}
	default:
		return nil
	}
}

// WriteFile marshals rec with indentation and writes it to path.
func WriteFile(path string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
