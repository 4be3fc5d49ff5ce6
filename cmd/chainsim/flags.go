package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

func simFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "chain",
			Usage: "Chain preset (btc|bch|ltc|doge|eth2|chia|custom)",
			Value: "custom",
		},
		cli.StringFlag{
			Name:  "config",
			Usage: "YAML configuration file applied over the chain preset",
		},
		cli.IntFlag{
			Name:  "blocks",
			Usage: "Stop after this many accepted blocks",
		},
		cli.Float64Flag{
			Name:  "years",
			Usage: "Stop after this many simulated years",
		},
		cli.Float64Flag{
			Name:  "blocktime",
			Usage: "Target seconds between blocks",
		},
		cli.IntFlag{
			Name:  "miners",
			Usage: "Number of block producers",
		},
		cli.Float64Flag{
			Name:  "hashrate",
			Usage: "Per-producer capacity (hashrate, stake or space)",
		},
		cli.IntFlag{
			Name:  "nodes",
			Usage: "Number of network nodes",
		},
		cli.IntFlag{
			Name:  "neighbors",
			Usage: "Approximate peers per node",
		},
		cli.IntFlag{
			Name:  "blocksize",
			Usage: "Max transactions per block",
		},
		cli.IntFlag{
			Name:  "wallets",
			Usage: "Number of transaction-emitting wallets",
		},
		cli.IntFlag{
			Name:  "transactions-per-wallet",
			Usage: "Transaction budget per wallet",
		},
		cli.Float64Flag{
			Name:  "interval",
			Usage: "Seconds between a wallet's transactions",
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "Deterministic RNG seed",
		},
		cli.IntFlag{
			Name:  "print-interval",
			Usage: "Blocks between progress summaries",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
		cli.StringFlag{
			Name:  "attack",
			Usage: "Adversary module (selfish|double-spend|eclipse)",
		},
		cli.Float64Flag{
			Name:  "attacker-hashrate",
			Usage: "Attacker capacity fraction in [0,1]",
		},
		cli.IntFlag{
			Name:  "confirmations",
			Usage: "Victim confirmation depth for double-spend",
		},
		cli.IntFlag{
			Name:  "victim-nodes",
			Usage: "Number of eclipsed victim nodes",
		},
		cli.Float64Flag{
			Name:  "gamma",
			Usage: "Selfish-mining race-win fraction",
		},
		cli.StringFlag{
			Name:  "export-metrics",
			Usage: "Write the JSON metrics record to this file",
		},
		cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address (e.g. :9090) during the run",
		},
		cli.StringFlag{
			Name:  "checkpoint",
			Usage: "Write checkpoints to this file every print interval",
		},
		cli.StringFlag{
			Name:  "resume",
			Usage: "Resume from a checkpoint file",
		},
	}
}

// applyFlags merges set CLI flags over cfg, the last stage of the
// preset -> file -> CLI override order.
func applyFlags(ctx *cli.Context, cfg *configOverrides) {
	set := func(name string, f func()) {
		if ctx.IsSet(name) {
			f()
		}
	}
	c := cfg.cfg
	set("blocks", func() { c.Simulation.Blocks = ctx.Int("blocks") })
	set("years", func() { c.Simulation.Years = ctx.Float64("years") })
	set("blocktime", func() { c.Mining.Blocktime = ctx.Float64("blocktime") })
	set("miners", func() { c.Mining.Miners = ctx.Int("miners") })
	set("hashrate", func() { c.Mining.Capacity = ctx.Float64("hashrate") })
	set("nodes", func() { c.Network.Nodes = ctx.Int("nodes") })
	set("neighbors", func() { c.Network.Neighbors = ctx.Int("neighbors") })
	set("blocksize", func() { c.Mining.Blocksize = ctx.Int("blocksize") })
	set("wallets", func() { c.Transactions.Wallets = ctx.Int("wallets") })
	set("transactions-per-wallet", func() { c.Transactions.TransactionsPerWallet = ctx.Int("transactions-per-wallet") })
	set("interval", func() { c.Transactions.Interval = ctx.Float64("interval") })
	set("seed", func() { c.Simulation.Seed = ctx.Int64("seed") })
	set("print-interval", func() { c.Simulation.PrintInterval = ctx.Int("print-interval") })
	set("debug", func() { c.Simulation.Debug = ctx.Bool("debug") })
	set("attack", func() { cfg.attackType = ctx.String("attack") })
	set("attacker-hashrate", func() { c.Attack.AttackerHashrate = ctx.Float64("attacker-hashrate") })
	set("confirmations", func() { c.Attack.Confirmations = ctx.Int("confirmations") })
	set("victim-nodes", func() { c.Attack.VictimNodes = ctx.Int("victim-nodes") })
	set("gamma", func() { c.Attack.Gamma = ctx.Float64("gamma") })
	set("export-metrics", func() { c.ExportMetricsPath = ctx.String("export-metrics") })
	set("checkpoint", func() { c.CheckpointPath = ctx.String("checkpoint") })
	set("resume", func() { c.ResumePath = ctx.String("resume") })
}
