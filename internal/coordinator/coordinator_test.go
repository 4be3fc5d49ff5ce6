package coordinator

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainsim/internal/attacks"
	"chainsim/internal/config"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func testConfig(blocks int, seed int64) config.Config {
	cfg := config.Default()
	cfg.Simulation.Blocks = blocks
	cfg.Simulation.Seed = seed
	cfg.Simulation.PrintInterval = 0
	cfg.Network.Nodes = 20
	cfg.Network.Neighbors = 4
	cfg.Transactions.Wallets = 20
	cfg.Transactions.TransactionsPerWallet = 50
	return cfg
}

func runSim(t *testing.T, cfg config.Config) (Result, *Coordinator) {
	t.Helper()
	c, err := New(cfg, quietLogger(), nil)
	require.NoError(t, err)
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	return res, c
}

func TestChainHeightsAreDenseAndTimestampsMonotone(t *testing.T) {
	res, _ := runSim(t, testConfig(200, 42))

	require.Len(t, res.Chain.Blocks, 200)
	for i, b := range res.Chain.Blocks {
		assert.Equal(t, uint64(i), b.Height)
		assert.Equal(t, int64(i)-1, b.ParentHeight)
		if i > 0 {
			assert.GreaterOrEqual(t, b.Timestamp, res.Chain.Blocks[i-1].Timestamp)
		}
	}
}

func TestIssuanceEqualsSumOfBlockRewards(t *testing.T) {
	res, _ := runSim(t, testConfig(300, 5))

	var sum float64
	for _, b := range res.Chain.Blocks {
		sum += b.Reward
	}
	assert.InDelta(t, sum, res.Metrics.TotalCoinsIssued, 1e-9)
	assert.InDelta(t, sum, res.Chain.TotalCoinsMinted, 1e-9)
}

func TestIdenticalSeedProducesIdenticalChain(t *testing.T) {
	resA, _ := runSim(t, testConfig(250, 99))
	resB, _ := runSim(t, testConfig(250, 99))
	require.Equal(t, resA.Chain.Blocks, resB.Chain.Blocks)
	require.Equal(t, resA.Metrics.BlockTimes, resB.Metrics.BlockTimes)
}

func TestDifferentSeedsDiverge(t *testing.T) {
	resA, _ := runSim(t, testConfig(50, 1))
	resB, _ := runSim(t, testConfig(50, 2))
	assert.NotEqual(t, resA.Chain.Blocks, resB.Chain.Blocks)
}

func TestBtcPresetRewardsAndIssuance(t *testing.T) {
	cfg, err := config.FromFile("btc", "")
	require.NoError(t, err)
	cfg.Simulation.Blocks = 100
	cfg.Simulation.Seed = 42
	cfg.Simulation.PrintInterval = 0

	res, _ := runSim(t, cfg)
	require.Equal(t, 100, res.Metrics.BlocksProduced)
	for _, b := range res.Chain.Blocks {
		assert.Equal(t, 50.0, b.Reward)
	}
	assert.InDelta(t, 5000.0, res.Metrics.TotalCoinsIssued, 1e-9)
}

func TestDogePresetConstantIssuance(t *testing.T) {
	cfg, err := config.FromFile("doge", "")
	require.NoError(t, err)
	cfg.Simulation.Blocks = 50
	cfg.Simulation.Seed = 1
	cfg.Simulation.PrintInterval = 0

	res, _ := runSim(t, cfg)
	for _, b := range res.Chain.Blocks {
		assert.Equal(t, 10000.0, b.Reward)
	}
	assert.InDelta(t, 500000.0, res.Metrics.TotalCoinsIssued, 1e-6)
}

func TestEqualHashrateMinersConvergeToEqualShares(t *testing.T) {
	cfg := testConfig(5000, 7)
	cfg.Mining.Miners = 4
	cfg.Mining.Blocktime = 10
	cfg.Transactions.Wallets = 5
	cfg.Transactions.TransactionsPerWallet = 10

	res, _ := runSim(t, cfg)
	for id, count := range res.Metrics.ProducerBlockCounts {
		share := float64(count) / float64(res.Metrics.BlocksProduced)
		assert.InDelta(t, 0.25, share, 0.05, "miner %d share %f", id, share)
	}
}

func TestMeanBlockTimeConvergesToTarget(t *testing.T) {
	cfg := testConfig(2000, 3)
	cfg.Mining.Blocktime = 60
	cfg.Transactions.Wallets = 5
	cfg.Transactions.TransactionsPerWallet = 10

	res, _ := runSim(t, cfg)
	mean := res.Metrics.MeanBlockTime()
	assert.InDelta(t, 60.0, mean, 6.0)
}

func TestRetargetKeepsDifficultyWithinClamp(t *testing.T) {
	cfg := testConfig(1000, 11)
	retarget := 50
	cfg.Mining.RetargetInterval = &retarget

	res, c := runSim(t, cfg)
	require.NotEmpty(t, res.Chain.DifficultyHistory)

	prev := c.Cfg.Mining.Blocktime * float64(cfg.Mining.Miners) // derived start
	for _, dp := range res.Chain.DifficultyHistory {
		ratio := dp.Difficulty / prev
		assert.GreaterOrEqual(t, ratio, 0.25-1e-9)
		assert.LessOrEqual(t, ratio, 4.0+1e-9)
		prev = dp.Difficulty
	}
}

func TestTransactionsFlowFromWalletsIntoBlocks(t *testing.T) {
	cfg := testConfig(100, 21)
	cfg.Transactions.Wallets = 10
	cfg.Transactions.TransactionsPerWallet = 30
	cfg.Transactions.Interval = 1
	cfg.Mining.Blocksize = 7

	res, c := runSim(t, cfg)
	total := cfg.Transactions.Wallets * cfg.Transactions.TransactionsPerWallet
	assert.Equal(t, res.Metrics.TxIncluded+c.Mempool.Len(), int(c.NextTxID))
	assert.LessOrEqual(t, int(c.NextTxID), total)
	for _, b := range res.Chain.Blocks {
		assert.LessOrEqual(t, b.TxCount, cfg.Mining.Blocksize)
	}
}

func TestTimeBoundTermination(t *testing.T) {
	cfg := testConfig(0, 13)
	cfg.Simulation.Blocks = 0
	cfg.Simulation.Years = 1.0 / 365.0 // one simulated day
	cfg.Mining.Blocktime = 600

	res, c := runSim(t, cfg)
	assert.Greater(t, res.Metrics.BlocksProduced, 0)
	assert.GreaterOrEqual(t, c.Scheduler.Now(), 24*3600.0)
}

func TestSelfishMinerEarnsMoreThanHashrateShare(t *testing.T) {
	cfg := testConfig(2000, 3)
	cfg.Attack.Type = config.AttackSelfish
	cfg.Attack.AttackerHashrate = 0.33
	cfg.Transactions.Wallets = 5
	cfg.Transactions.TransactionsPerWallet = 10

	res, _ := runSim(t, cfg)
	selfish := res.Attack.(*attacks.Selfish)
	assert.Greater(t, selfish.RelativeRevenue(), 0.33,
		"selfish revenue %f should exceed hashrate share", selfish.RelativeRevenue())
}

func TestMajorityDoubleSpendMostlySucceeds(t *testing.T) {
	cfg := testConfig(1000, 4)
	cfg.Attack.Type = config.AttackDoubleSpend
	cfg.Attack.AttackerHashrate = 0.6
	cfg.Attack.Confirmations = 3
	cfg.Transactions.Wallets = 5
	cfg.Transactions.TransactionsPerWallet = 10

	res, _ := runSim(t, cfg)
	ds := res.Attack.(*attacks.DoubleSpend)
	require.Greater(t, ds.AttackAttempts, 0)
	assert.Greater(t, ds.SuccessfulAttacks, ds.FailedAttacks)
	assert.Greater(t, ds.SuccessRate(), 0.5)
}

func TestEclipsedVictimsSeeNoHonestBlocks(t *testing.T) {
	cfg := testConfig(100, 8)
	cfg.Attack.Type = config.AttackEclipse
	cfg.Attack.VictimNodes = 2

	res, c := runSim(t, cfg)
	require.Equal(t, 100, res.Metrics.BlocksProduced)

	// Victims sit just below the attacker node at the top of the id range.
	attackerNode := cfg.Network.Nodes - 1
	for _, victim := range []int{attackerNode - 1, attackerNode - 2} {
		n := c.Graph.Nodes[victim]
		require.True(t, n.Eclipsed)
		assert.Equal(t, int64(-1), n.LastKnownHeight, "victim %d saw an honest block", victim)
		_, saw := c.NodeHeights[victim]
		assert.False(t, saw)
	}

	ec := res.Attack.(*attacks.Eclipse)
	assert.Equal(t, 100, ec.BlocksWithheld)
	assert.Equal(t, 0, ec.VictimBlocksSeen)
	assert.Equal(t, 0.0, ec.VictimSeenFraction())
}

func TestZeroCapacityConfigFailsFast(t *testing.T) {
	cfg := testConfig(10, 1)
	cfg.Mining.Capacity = 0
	_, err := New(cfg, quietLogger(), nil)
	require.Error(t, err)
	var cerr *config.ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestContextCancellationStopsRun(t *testing.T) {
	cfg := testConfig(1000000, 2)
	c, err := New(cfg, quietLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
