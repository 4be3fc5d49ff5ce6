// Package checkpoint serializes and restores a running simulation: schema
// version, seed, RNG position, current time, chain summary, mempool
// contents, per-node last-known-height, metrics accumulator, and a
// configuration snapshot. Encoded as TOML, written write-temp-then-rename
// so a crash mid-save never corrupts an existing checkpoint.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"chainsim/internal/chainmodel"
	"chainsim/internal/chainstate"
	"chainsim/internal/config"
	"chainsim/internal/coordinator"
	"chainsim/internal/metrics"
	"chainsim/internal/rngstream"
)

// SchemaVersion is bumped whenever the Record layout changes incompatibly.
// Load refuses to resume a mismatched version rather than silently drift.
const SchemaVersion = 1

// SchemaMismatchError reports a checkpoint whose SchemaVersion does not
// match the running binary's.
type SchemaMismatchError struct {
	Found, Want int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("checkpoint: schema version %d does not match expected %d", e.Found, e.Want)
}

type blockRecord struct {
	Height       uint64
	ProducerID   int
	ParentHeight int64
	Timestamp    float64
	TxCount      int
	Reward       float64
	Difficulty   float64
	Consensus    int
	ProofWitness float64
}

type difficultyPointRecord struct {
	Height     uint64
	Difficulty float64
}

type txRecord struct {
	ID        uint64
	WalletID  int
	CreatedAt float64
	Size      int
}

type nodeHeightRecord struct {
	NodeID int
	Height int64
}

type walletRecord struct {
	ID              int
	RemainingBudget int
	NextEmit        float64
}

type producerShareRecord struct {
	ProducerID int
	Count      int
}

type metricsRecord struct {
	BlocksProduced     int
	TxIncluded         int
	TotalCoinsIssued   float64
	BlockTimes         []float64
	ProducerShares     []producerShareRecord
	PropagationHops    []int
	EmptyMempoolBlocks int
}

// configRecord mirrors config.Config with its three nullable *int fields
// flattened into (value, set) pairs, since TOML has no native null.
type configRecord struct {
	Chain                   string
	NetworkNodes            int
	NetworkNeighbors        int
	ConsensusType           string
	MiningMiners            int
	MiningCapacity          float64
	MiningBlocktime         float64
	MiningBlocksize         int
	MiningDifficulty        float64
	MiningRetargetSet       bool
	MiningRetargetInterval  int
	EconInitialReward       float64
	EconHalvingSet          bool
	EconHalvingInterval     int
	EconMaxHalvingsSet      bool
	EconMaxHalvings         int
	TxWallets               int
	TxPerWallet             int
	TxInterval              float64
	SimBlocks               int
	SimYears                float64
	SimPrintInterval        int
	SimDebug                bool
	SimSeed                 int64
	AttackType              string
	AttackerHashrate        float64
	AttackConfirmations     int
	AttackVictimNodes       int
	AttackGamma             float64
	ExportMetricsPath       string
	CheckpointPath          string
	ResumePath              string
}

func toConfigRecord(c config.Config) configRecord {
	r := configRecord{
		Chain:             c.Chain,
		NetworkNodes:      c.Network.Nodes,
		NetworkNeighbors:  c.Network.Neighbors,
		ConsensusType:     string(c.Consensus.Type),
		MiningMiners:      c.Mining.Miners,
		MiningCapacity:    c.Mining.Capacity,
		MiningBlocktime:   c.Mining.Blocktime,
		MiningBlocksize:   c.Mining.Blocksize,
		MiningDifficulty:  c.Mining.Difficulty,
		EconInitialReward: c.Economics.InitialReward,
		TxWallets:         c.Transactions.Wallets,
		TxPerWallet:       c.Transactions.TransactionsPerWallet,
		TxInterval:        c.Transactions.Interval,
		SimBlocks:         c.Simulation.Blocks,
		SimYears:          c.Simulation.Years,
		SimPrintInterval:  c.Simulation.PrintInterval,
		SimDebug:          c.Simulation.Debug,
		SimSeed:           c.Simulation.Seed,
		AttackType:        string(c.Attack.Type),
		AttackerHashrate:  c.Attack.AttackerHashrate,
		AttackConfirmations: c.Attack.Confirmations,
		AttackVictimNodes:   c.Attack.VictimNodes,
		AttackGamma:         c.Attack.Gamma,
		ExportMetricsPath:   c.ExportMetricsPath,
		CheckpointPath:      c.CheckpointPath,
		ResumePath:          c.ResumePath,
	}
	if c.Mining.RetargetInterval != nil {
		r.MiningRetargetSet = true
		r.MiningRetargetInterval = *c.Mining.RetargetInterval
	}
	if c.Economics.HalvingInterval != nil {
		r.EconHalvingSet = true
		r.EconHalvingInterval = *c.Economics.HalvingInterval
	}
	if c.Economics.MaxHalvings != nil {
		r.EconMaxHalvingsSet = true
		r.EconMaxHalvings = *c.Economics.MaxHalvings
	}
	return r
}

func fromConfigRecord(r configRecord) config.Config {
	c := config.Config{
		Chain:     r.Chain,
		Network:   config.NetworkConfig{Nodes: r.NetworkNodes, Neighbors: r.NetworkNeighbors},
		Consensus: config.ConsensusConfig{Type: config.ConsensusType(r.ConsensusType)},
		Mining: config.MiningConfig{
			Miners:     r.MiningMiners,
			Capacity:   r.MiningCapacity,
			Blocktime:  r.MiningBlocktime,
			Blocksize:  r.MiningBlocksize,
			Difficulty: r.MiningDifficulty,
		},
		Economics: config.EconomicsConfig{InitialReward: r.EconInitialReward},
		Transactions: config.TransactionsConfig{
			Wallets:               r.TxWallets,
			TransactionsPerWallet: r.TxPerWallet,
			Interval:              r.TxInterval,
		},
		Simulation: config.SimulationConfig{
			Blocks:        r.SimBlocks,
			Years:         r.SimYears,
			PrintInterval: r.SimPrintInterval,
			Debug:         r.SimDebug,
			Seed:          r.SimSeed,
		},
		Attack: config.AttackConfig{
			Type:             config.AttackType(r.AttackType),
			AttackerHashrate: r.AttackerHashrate,
			Confirmations:    r.AttackConfirmations,
			VictimNodes:      r.AttackVictimNodes,
			Gamma:            r.AttackGamma,
		},
		ExportMetricsPath: r.ExportMetricsPath,
		CheckpointPath:    r.CheckpointPath,
		ResumePath:        r.ResumePath,
	}
	if r.MiningRetargetSet {
		v := r.MiningRetargetInterval
		c.Mining.RetargetInterval = &v
	}
	if r.EconHalvingSet {
		v := r.EconHalvingInterval
		c.Economics.HalvingInterval = &v
	}
	if r.EconMaxHalvingsSet {
		v := r.EconMaxHalvings
		c.Economics.MaxHalvings = &v
	}
	return c
}

// Record is the on-disk structured checkpoint record.
type Record struct {
	SchemaVersion int
	Seed          int64
	Draws         uint64
	Time          float64

	Blocks              []blockRecord
	DifficultyHistory   []difficultyPointRecord
	ChainDifficulty     float64
	ChainReward         float64
	BlocksSinceRetarget int
	Halvings            int
	TotalCoinsMinted    float64

	Mempool     []txRecord
	NodeHeights []nodeHeightRecord
	Wallets     []walletRecord
	NextTxID    uint64

	Metrics metricsRecord
	Config  configRecord
}

// Save builds a Record from c's current state and writes it atomically
// (write-temp-then-rename) to path.
func Save(c *coordinator.Coordinator, path string) error {
	rec := Record{
		SchemaVersion:       SchemaVersion,
		Seed:                c.RNG.Seed(),
		Draws:               c.RNG.Draws(),
		Time:                c.Scheduler.Now(),
		ChainDifficulty:     c.Chain.Difficulty,
		ChainReward:         c.Chain.Reward,
		BlocksSinceRetarget: c.Chain.BlocksSinceRetarget,
		Halvings:            c.Chain.Halvings,
		TotalCoinsMinted:    c.Chain.TotalCoinsMinted,
		NextTxID:            c.NextTxID,
		Config:              toConfigRecord(c.Cfg),
	}

	for _, b := range c.Chain.Blocks {
		rec.Blocks = append(rec.Blocks, blockRecord{
			Height: b.Height, ProducerID: b.ProducerID, ParentHeight: b.ParentHeight,
			Timestamp: b.Timestamp, TxCount: b.TxCount, Reward: b.Reward,
			Difficulty: b.Difficulty, Consensus: int(b.Consensus), ProofWitness: b.ProofWitness,
		})
	}
	for _, dp := range c.Chain.DifficultyHistory {
		rec.DifficultyHistory = append(rec.DifficultyHistory, difficultyPointRecord{Height: dp.Height, Difficulty: dp.Difficulty})
	}
	for _, tx := range c.Mempool.Drain(c.Mempool.Len()) {
		rec.Mempool = append(rec.Mempool, txRecord{ID: tx.ID, WalletID: tx.WalletID, CreatedAt: tx.CreatedAt, Size: tx.Size})
		c.Mempool.Enqueue(tx) // Drain is destructive; put every tx straight back.
	}
	nodeIDs := make([]int, 0, len(c.NodeHeights))
	for id := range c.NodeHeights {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Ints(nodeIDs)
	for _, id := range nodeIDs {
		rec.NodeHeights = append(rec.NodeHeights, nodeHeightRecord{NodeID: id, Height: c.NodeHeights[id]})
	}
	for _, w := range c.Wallets {
		rec.Wallets = append(rec.Wallets, walletRecord{ID: w.ID, RemainingBudget: w.RemainingBudget, NextEmit: w.NextEmit})
	}

	producerIDs := make([]int, 0, len(c.MetricsAcc.ProducerBlockCounts))
	for id := range c.MetricsAcc.ProducerBlockCounts {
		producerIDs = append(producerIDs, id)
	}
	sort.Ints(producerIDs)
	mr := metricsRecord{
		BlocksProduced:     c.MetricsAcc.BlocksProduced,
		TxIncluded:         c.MetricsAcc.TxIncluded,
		TotalCoinsIssued:   c.MetricsAcc.TotalCoinsIssued,
		BlockTimes:         append([]float64{}, c.MetricsAcc.BlockTimes...),
		PropagationHops:    append([]int{}, c.MetricsAcc.PropagationHops...),
		EmptyMempoolBlocks: c.MetricsAcc.EmptyMempoolBlocks,
	}
	for _, id := range producerIDs {
		mr.ProducerShares = append(mr.ProducerShares, producerShareRecord{ProducerID: id, Count: c.MetricsAcc.ProducerBlockCounts[id]})
	}
	rec.Metrics = mr

	return writeAtomic(path, rec)
}

func writeAtomic(path string, rec Record) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(rec); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Load decodes a checkpoint and returns a fully rebuilt *coordinator.Coordinator
// positioned to resume the run: topology is deterministically rebuilt from
// the saved seed/config (identical to the interrupted run's build), then
// chain, mempool, RNG position, wallets and node heights are restored from
// the record. Pending events are not serialized: the returned coordinator has
// an empty queue and the RNG at the saved position, and its Run re-derives the
// events (the same routine Coordinator.ResumeEvents exposes) when it starts.
func Load(path string, logger *logrus.Logger, reg *metrics.Registry) (*coordinator.Coordinator, error) {
	var rec Record
	if _, err := toml.DecodeFile(path, &rec); err != nil {
		return nil, err
	}
	if rec.SchemaVersion != SchemaVersion {
		return nil, &SchemaMismatchError{Found: rec.SchemaVersion, Want: SchemaVersion}
	}

	cfg := fromConfigRecord(rec.Config)
	c, err := coordinator.New(cfg, logger, reg)
	if err != nil {
		return nil, err
	}

	c.RNG = rngstream.Resume(rec.Seed, rec.Draws)

	c.Chain.Blocks = c.Chain.Blocks[:0]
	for _, b := range rec.Blocks {
		c.Chain.Blocks = append(c.Chain.Blocks, chainmodel.Block{
			Height: b.Height, ProducerID: b.ProducerID, ParentHeight: b.ParentHeight,
			Timestamp: b.Timestamp, TxCount: b.TxCount, Reward: b.Reward,
			Difficulty: b.Difficulty, Consensus: chainmodel.ConsensusKind(b.Consensus), ProofWitness: b.ProofWitness,
		})
	}
	c.Chain.DifficultyHistory = c.Chain.DifficultyHistory[:0]
	for _, dp := range rec.DifficultyHistory {
		c.Chain.DifficultyHistory = append(c.Chain.DifficultyHistory, chainstate.DifficultyPoint{Height: dp.Height, Difficulty: dp.Difficulty})
	}
	c.Chain.Difficulty = rec.ChainDifficulty
	c.Chain.Reward = rec.ChainReward
	c.Chain.BlocksSinceRetarget = rec.BlocksSinceRetarget
	c.Chain.Halvings = rec.Halvings
	c.Chain.TotalCoinsMinted = rec.TotalCoinsMinted
	// The last retarget happened at the block BlocksSinceRetarget blocks back
	// from the tip; before any retarget the window starts at time 0.
	c.Chain.LastRetargetTime = 0
	if last := len(c.Chain.Blocks) - 1 - rec.BlocksSinceRetarget; len(c.Chain.DifficultyHistory) > 0 && last >= 0 {
		c.Chain.LastRetargetTime = c.Chain.Blocks[last].Timestamp
	}

	for _, tx := range rec.Mempool {
		c.Mempool.Enqueue(chainmodel.Transaction{ID: tx.ID, WalletID: tx.WalletID, CreatedAt: tx.CreatedAt, Size: tx.Size})
	}

	for _, nh := range rec.NodeHeights {
		c.NodeHeights[nh.NodeID] = nh.Height
		if n, ok := c.Graph.Nodes[nh.NodeID]; ok {
			n.LastKnownHeight = nh.Height
		}
	}

	if len(rec.Wallets) == len(c.Wallets) {
		for i, w := range rec.Wallets {
			c.Wallets[i].RemainingBudget = w.RemainingBudget
			c.Wallets[i].NextEmit = w.NextEmit
		}
	}
	c.NextTxID = rec.NextTxID

	c.MetricsAcc.BlocksProduced = rec.Metrics.BlocksProduced
	c.MetricsAcc.TxIncluded = rec.Metrics.TxIncluded
	c.MetricsAcc.TotalCoinsIssued = rec.Metrics.TotalCoinsIssued
	c.MetricsAcc.BlockTimes = append([]float64{}, rec.Metrics.BlockTimes...)
	c.MetricsAcc.PropagationHops = append([]int{}, rec.Metrics.PropagationHops...)
	c.MetricsAcc.EmptyMempoolBlocks = rec.Metrics.EmptyMempoolBlocks
	for _, ps := range rec.Metrics.ProducerShares {
		c.MetricsAcc.ProducerBlockCounts[ps.ProducerID] = ps.Count
	}

	if n := len(c.Chain.Blocks); n > 0 {
		c.MetricsAcc.Resume(c.Chain.Blocks[n-1].Timestamp, true)
	}

	c.Scheduler.Fastforward(rec.Time)
	return c, nil
}
