// Package config owns the external configuration surface: chain presets,
// YAML file loading, and startup validation; the CLI (cmd/chainsim) merges
// its flags over the Config this package builds. It
// is deliberately the only package that knows about Viper; everything below
// internal/coordinator only sees the resulting Config struct. Precedence is
// defaults, then preset, then file, then CLI flags.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ConfigError reports a validation or load failure with the offending field
// named.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ConsensusType tags which discipline a run uses.
type ConsensusType string

const (
	ConsensusPoW     ConsensusType = "pow"
	ConsensusPoS     ConsensusType = "pos"
	ConsensusPoSpace ConsensusType = "pospace"
)

// AttackType tags which adversary module (if any) is installed.
type AttackType string

const (
	AttackNone        AttackType = ""
	AttackSelfish     AttackType = "selfish"
	AttackDoubleSpend AttackType = "double-spend"
	AttackEclipse     AttackType = "eclipse"
)

type NetworkConfig struct {
	Nodes     int `mapstructure:"nodes"`
	Neighbors int `mapstructure:"neighbors"`
}

type ConsensusConfig struct {
	Type ConsensusType `mapstructure:"type"`
}

type MiningConfig struct {
	Miners int `mapstructure:"miners"`
	// Capacity holds hashrate, stake, or allocated space depending on
	// Consensus.Type: hashrate, stake, or space.
	Capacity         float64 `mapstructure:"capacity"`
	Blocktime        float64 `mapstructure:"blocktime"`
	Blocksize        int     `mapstructure:"blocksize"`
	Difficulty       float64 `mapstructure:"difficulty"`
	// RetargetInterval nil means absent: difficulty is fixed.
	RetargetInterval *int `mapstructure:"retarget_interval"`
}

type EconomicsConfig struct {
	InitialReward float64 `mapstructure:"initial_reward"`
	// HalvingInterval nil means null: reward is constant.
	HalvingInterval *int `mapstructure:"halving_interval"`
	// MaxHalvings nil means null: unlimited halvings, NOT zero. An explicit
	// 0 disables halving entirely.
	MaxHalvings *int `mapstructure:"max_halvings"`
}

type TransactionsConfig struct {
	Wallets               int     `mapstructure:"wallets"`
	TransactionsPerWallet int     `mapstructure:"transactions_per_wallet"`
	Interval              float64 `mapstructure:"interval"`
}

type SimulationConfig struct {
	Blocks       int     `mapstructure:"blocks"`
	Years        float64 `mapstructure:"years"`
	PrintInterval int    `mapstructure:"print_interval"`
	Debug        bool    `mapstructure:"debug"`
	Seed         int64   `mapstructure:"seed"`
}

type AttackConfig struct {
	Type             AttackType `mapstructure:"type"`
	AttackerHashrate float64    `mapstructure:"attacker_hashrate"`
	Confirmations    int        `mapstructure:"confirmations"`
	VictimNodes      int        `mapstructure:"victim_nodes"`
	// Gamma is the fraction of the honest network that mines on the
	// attacker's block during a selfish-mining tie race.
	Gamma float64 `mapstructure:"gamma"`
}

// Config is the fully merged, validated configuration for one run.
type Config struct {
	Chain        string             `mapstructure:"chain"`
	Network      NetworkConfig      `mapstructure:"network"`
	Consensus    ConsensusConfig    `mapstructure:"consensus"`
	Mining       MiningConfig       `mapstructure:"mining"`
	Economics    EconomicsConfig    `mapstructure:"economics"`
	Transactions TransactionsConfig `mapstructure:"transactions"`
	Simulation   SimulationConfig   `mapstructure:"simulation"`
	Attack       AttackConfig       `mapstructure:"attack"`

	ExportMetricsPath string `mapstructure:"export_metrics"`
	CheckpointPath    string `mapstructure:"checkpoint"`
	ResumePath        string `mapstructure:"resume"`
}

// Default returns the baseline configuration before any chain preset, config
// file, or CLI override has been applied.
func Default() Config {
	return Config{
		Chain:     "custom",
		Network:   NetworkConfig{Nodes: 20, Neighbors: 4},
		Consensus: ConsensusConfig{Type: ConsensusPoW},
		Mining: MiningConfig{
			Miners:    10,
			Capacity:  1.0,
			Blocktime: 60,
			Blocksize: 2000,
			// Difficulty 0 derives blocktime * total capacity at startup, so
			// the expected inter-block delay starts at the configured
			// blocktime; presets rely on this.
			Difficulty: 0,
		},
		Economics: EconomicsConfig{InitialReward: 50},
		Transactions: TransactionsConfig{
			Wallets:               100,
			TransactionsPerWallet: 10,
			Interval:              5,
		},
		Simulation: SimulationConfig{
			Blocks:        1000,
			PrintInterval: 100,
			Seed:          0,
		},
	}
}

// Presets are the named chain profiles selectable with --chain. Each
// is applied on top of Default() before file/CLI overrides; "custom" applies
// nothing, leaving Default()'s (or the caller's) values untouched.
func Presets() map[string]func(*Config) {
	intp := func(v int) *int { return &v }
	return map[string]func(*Config){
		"btc": func(c *Config) {
			c.Consensus.Type = ConsensusPoW
			c.Mining.Blocktime = 600
			c.Mining.Blocksize = 2000
			c.Mining.RetargetInterval = intp(2016)
			c.Economics.InitialReward = 50
			c.Economics.HalvingInterval = intp(210000)
		},
		"bch": func(c *Config) {
			c.Consensus.Type = ConsensusPoW
			c.Mining.Blocktime = 600
			c.Mining.Blocksize = 20000
			c.Mining.RetargetInterval = intp(1)
			c.Economics.InitialReward = 50
			c.Economics.HalvingInterval = intp(210000)
		},
		"ltc": func(c *Config) {
			c.Consensus.Type = ConsensusPoW
			c.Mining.Blocktime = 150
			c.Mining.Blocksize = 2000
			c.Mining.RetargetInterval = intp(2016)
			c.Economics.InitialReward = 50
			c.Economics.HalvingInterval = intp(840000)
		},
		"doge": func(c *Config) {
			c.Consensus.Type = ConsensusPoW
			c.Mining.Blocktime = 60
			c.Mining.Blocksize = 2000
			c.Mining.RetargetInterval = intp(1)
			c.Economics.InitialReward = 10000
			c.Economics.HalvingInterval = nil // post-2014 Dogecoin: constant issuance
		},
		"eth2": func(c *Config) {
			c.Consensus.Type = ConsensusPoS
			c.Mining.Blocktime = 12
			c.Mining.Blocksize = 200
			c.Economics.InitialReward = 0.03
			c.Economics.HalvingInterval = nil
		},
		"chia": func(c *Config) {
			c.Consensus.Type = ConsensusPoSpace
			c.Mining.Blocktime = 18.75
			c.Mining.Blocksize = 1000
			c.Economics.InitialReward = 2
			c.Economics.HalvingInterval = intp(1051200)
		},
		"custom": func(c *Config) {},
	}
}

// FromFile builds a Config by applying the named chain preset over Default()
// and then merging a YAML file at path (if path is non-empty) via Viper.
func FromFile(chain, path string) (Config, error) {
	cfg := Default()
	cfg.Chain = chain

	apply, ok := Presets()[chain]
	if !ok {
		return cfg, &ConfigError{Field: "chain", Message: fmt.Sprintf("unknown chain preset %q", chain)}
	}
	apply(&cfg)

	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, &ConfigError{Field: "config_file", Message: err.Error()}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, &ConfigError{Field: "config_file", Message: err.Error()}
	}
	return cfg, nil
}

// Validate applies the startup sanity checks. Returns the first violation
// found as a *ConfigError.
func (c Config) Validate() error {
	switch {
	case c.Mining.Miners <= 0:
		return &ConfigError{"mining.miners", "must be > 0"}
	case c.Mining.Capacity <= 0:
		return &ConfigError{"mining.capacity", "must be > 0"}
	case c.Mining.Blocktime <= 0:
		return &ConfigError{"mining.blocktime", "must be > 0"}
	case c.Mining.Blocksize <= 0:
		return &ConfigError{"mining.blocksize", "must be > 0"}
	case c.Network.Nodes <= 0:
		return &ConfigError{"network.nodes", "must be > 0"}
	case c.Network.Neighbors >= c.Network.Nodes:
		return &ConfigError{"network.neighbors", "must be < network.nodes"}
	case c.Attack.Type != AttackNone && (c.Attack.AttackerHashrate < 0 || c.Attack.AttackerHashrate > 1):
		return &ConfigError{"attack.attacker_hashrate", "must be in [0, 1]"}
	case c.Attack.Type == AttackDoubleSpend && c.Attack.Confirmations < 1:
		return &ConfigError{"attack.confirmations", "must be >= 1"}
	case c.Attack.Type == AttackEclipse && c.Attack.VictimNodes >= c.Network.Nodes:
		return &ConfigError{"attack.victim_nodes", "must be < network.nodes"}
	}
	return nil
}
