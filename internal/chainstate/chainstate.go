// Package chainstate owns the append-only ordered chain, difficulty
// retargeting, and the halving reward schedule.
package chainstate

import "chainsim/internal/chainmodel"

// DifficultyPoint is one sample in the difficulty-over-time history kept for
// metrics export.
type DifficultyPoint struct {
	Height     uint64
	Difficulty float64
}

// ChainState is the coordinator's canonical view of the chain: the ordered
// blocks, the live difficulty/reward, and the bookkeeping counters needed to
// decide when to retarget or halve.
type ChainState struct {
	Blocks []chainmodel.Block

	Difficulty            float64
	BlocksSinceRetarget    int
	LastRetargetTime       float64
	RetargetInterval       int
	TargetBlocktime        float64
	FixedDifficulty        bool // when true (config has no retarget_interval), never retarget
	DifficultyHistory      []DifficultyPoint

	Reward            float64
	HalvingInterval   int
	Halvings          int
	MaxHalvings       float64 // +Inf when max_halvings is null: unlimited
	TotalCoinsMinted  float64
}

// New constructs a ChainState at genesis with the given starting difficulty
// and reward parameters. maxHalvings should be math.Inf(1) when the config's
// max_halvings is null/unset: null means unlimited halvings, never zero.
func New(initialDifficulty float64, retargetInterval int, targetBlocktime float64, fixedDifficulty bool, initialReward float64, halvingInterval int, maxHalvings float64) *ChainState {
	return &ChainState{
		Difficulty:       initialDifficulty,
		RetargetInterval: retargetInterval,
		TargetBlocktime:  targetBlocktime,
		FixedDifficulty:  fixedDifficulty,
		Reward:           initialReward,
		HalvingInterval:  halvingInterval,
		MaxHalvings:      maxHalvings,
	}
}

// Height returns the current chain height (number of blocks appended).
func (c *ChainState) Height() uint64 {
	return uint64(len(c.Blocks))
}

// MaybeRetarget recomputes difficulty if the configured window has elapsed
// since the last retarget. now is the current simulated time. The new
// difficulty is clamped to [old/4, old*4] so one anomalous window cannot
// swing it by more than 4x. A no-op when FixedDifficulty is set or the
// window hasn't elapsed.
func (c *ChainState) MaybeRetarget(now float64) {
	if c.FixedDifficulty || c.BlocksSinceRetarget < c.RetargetInterval {
		return
	}

	elapsed := now - c.LastRetargetTime
	actualAvg := c.TargetBlocktime
	if c.BlocksSinceRetarget > 0 && elapsed > 0 {
		actualAvg = elapsed / float64(c.BlocksSinceRetarget)
	}

	factor := 1.0
	if actualAvg > 0 {
		factor = c.TargetBlocktime / actualAvg
	}

	newDifficulty := c.Difficulty * factor
	if newDifficulty > c.Difficulty*4 {
		newDifficulty = c.Difficulty * 4
	}
	if newDifficulty < c.Difficulty/4 {
		newDifficulty = c.Difficulty / 4
	}
	if newDifficulty <= 0 {
		newDifficulty = c.Difficulty
	}

	c.Difficulty = newDifficulty
	c.LastRetargetTime = now
	c.BlocksSinceRetarget = 0
	c.DifficultyHistory = append(c.DifficultyHistory, DifficultyPoint{
		Height:     c.Height(),
		Difficulty: newDifficulty,
	})
}

// Append adds a mined block to the chain, advances the retarget counter, and
// applies the reward/halving schedule. Returns the reward actually minted
// for this block (0 once MaxHalvings has been exhausted). The schedule is
// incremental: the live reward halves each time the chain length reaches a
// multiple of HalvingInterval, so with 0-based block heights a block at
// height h mints initial / 2^(h / HalvingInterval) (integer division).
func (c *ChainState) Append(b chainmodel.Block) float64 {
	c.Blocks = append(c.Blocks, b)
	c.BlocksSinceRetarget++

	minted := 0.0
	if float64(c.Halvings) < c.MaxHalvings {
		minted = c.Reward
		c.TotalCoinsMinted += minted
	}

	if c.HalvingInterval > 0 &&
		int(c.Height())%c.HalvingInterval == 0 &&
		float64(c.Halvings) < c.MaxHalvings {
		c.Halvings++
		if float64(c.Halvings) < c.MaxHalvings {
			c.Reward = c.Reward / 2
		} else {
			c.Reward = 0
		}
	}

	return minted
}
