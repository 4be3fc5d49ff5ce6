package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"zero miners", func(c *Config) { c.Mining.Miners = 0 }, "mining.miners"},
		{"zero capacity", func(c *Config) { c.Mining.Capacity = 0 }, "mining.capacity"},
		{"zero blocktime", func(c *Config) { c.Mining.Blocktime = 0 }, "mining.blocktime"},
		{"zero blocksize", func(c *Config) { c.Mining.Blocksize = 0 }, "mining.blocksize"},
		{"zero nodes", func(c *Config) { c.Network.Nodes = 0 }, "network.nodes"},
		{"neighbors not below nodes", func(c *Config) { c.Network.Neighbors = c.Network.Nodes }, "network.neighbors"},
		{"attacker hashrate above one", func(c *Config) {
			c.Attack.Type = AttackSelfish
			c.Attack.AttackerHashrate = 1.5
		}, "attack.attacker_hashrate"},
		{"double-spend without confirmations", func(c *Config) {
			c.Attack.Type = AttackDoubleSpend
			c.Attack.AttackerHashrate = 0.6
		}, "attack.confirmations"},
		{"too many victims", func(c *Config) {
			c.Attack.Type = AttackEclipse
			c.Attack.VictimNodes = c.Network.Nodes
		}, "attack.victim_nodes"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.edit(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			cerr, ok := err.(*ConfigError)
			require.True(t, ok)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestPresetsCoverEveryChainFlagValue(t *testing.T) {
	presets := Presets()
	for _, chain := range []string{"btc", "bch", "ltc", "doge", "eth2", "chia", "custom"} {
		_, ok := presets[chain]
		assert.True(t, ok, "missing preset %q", chain)
	}
}

func TestFromFileUnknownChain(t *testing.T) {
	_, err := FromFile("nochain", "")
	require.Error(t, err)
	cerr, ok := err.(*ConfigError)
	require.True(t, ok)
	assert.Equal(t, "chain", cerr.Field)
}

func TestBtcPresetValues(t *testing.T) {
	cfg, err := FromFile("btc", "")
	require.NoError(t, err)
	assert.Equal(t, ConsensusPoW, cfg.Consensus.Type)
	assert.Equal(t, 600.0, cfg.Mining.Blocktime)
	require.NotNil(t, cfg.Mining.RetargetInterval)
	assert.Equal(t, 2016, *cfg.Mining.RetargetInterval)
	require.NotNil(t, cfg.Economics.HalvingInterval)
	assert.Equal(t, 210000, *cfg.Economics.HalvingInterval)
}

func TestDogePresetHasNoHalving(t *testing.T) {
	cfg, err := FromFile("doge", "")
	require.NoError(t, err)
	assert.Nil(t, cfg.Economics.HalvingInterval)
	assert.Equal(t, 10000.0, cfg.Economics.InitialReward)
}

func TestEth2PresetIsProofOfStake(t *testing.T) {
	cfg, err := FromFile("eth2", "")
	require.NoError(t, err)
	assert.Equal(t, ConsensusPoS, cfg.Consensus.Type)
}

func TestFromFileMergesYAMLOverPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	body := `
mining:
  miners: 7
  blocktime: 30
simulation:
  blocks: 12
  seed: 77
transactions:
  wallets: 3
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := FromFile("btc", path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Mining.Miners)
	assert.Equal(t, 30.0, cfg.Mining.Blocktime)
	assert.Equal(t, 12, cfg.Simulation.Blocks)
	assert.Equal(t, int64(77), cfg.Simulation.Seed)
	assert.Equal(t, 3, cfg.Transactions.Wallets)
	// Untouched preset values survive the merge.
	require.NotNil(t, cfg.Mining.RetargetInterval)
	assert.Equal(t, 2016, *cfg.Mining.RetargetInterval)
}

func TestFromFileMissingFile(t *testing.T) {
	_, err := FromFile("custom", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
