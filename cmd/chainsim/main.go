// chainsim runs one blockchain-network simulation from the command line:
// preset/file/flag configuration in, progress logs during the run, and an
// optional JSON metrics record and TOML checkpoint out.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "gopkg.in/urfave/cli.v1"

	"chainsim/internal/checkpoint"
	"chainsim/internal/config"
	"chainsim/internal/coordinator"
	"chainsim/internal/export"
	"chainsim/internal/logging"
	"chainsim/internal/metrics"
)

const (
	exitOK         = 0
	exitConfigErr  = 1
	exitRuntimeErr = 2
)

// configOverrides bundles the merged config with flag values that need
// translation before they fit the Config struct.
type configOverrides struct {
	cfg        *config.Config
	attackType string
}

func main() {
	app := cli.NewApp()
	app.Name = "chainsim"
	app.Usage = "discrete-event simulator for permissionless blockchain networks"
	app.Version = "1.0.0"
	app.Flags = simFlags()
	app.Writer = os.Stdout
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		code := exitRuntimeErr
		if _, ok := err.(*config.ConfigError); ok {
			code = exitConfigErr
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(code)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.FromFile(ctx.String("chain"), ctx.String("config"))
	if err != nil {
		return err
	}

	ov := &configOverrides{cfg: &cfg}
	applyFlags(ctx, ov)
	if ov.attackType != "" {
		switch config.AttackType(ov.attackType) {
		case config.AttackSelfish, config.AttackDoubleSpend, config.AttackEclipse:
			cfg.Attack.Type = config.AttackType(ov.attackType)
		default:
			return &config.ConfigError{Field: "attack", Message: fmt.Sprintf("unknown attack %q", ov.attackType)}
		}
	}

	logger := logging.New(cfg.Simulation.Debug)

	var reg *metrics.Registry
	if addr := ctx.String("metrics-addr"); addr != "" {
		reg = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg.Registerer(), promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.WithError(err).Warn("metrics listener stopped")
			}
		}()
		logger.WithField("addr", addr).Info("serving Prometheus metrics")
	}

	var coord *coordinator.Coordinator
	if cfg.ResumePath != "" {
		coord, err = checkpoint.Load(cfg.ResumePath, logger, reg)
		if err != nil {
			return err
		}
		logger.WithField("path", cfg.ResumePath).Info("resumed from checkpoint")
	} else {
		coord, err = coordinator.New(cfg, logger, reg)
		if err != nil {
			return err
		}
	}

	if coord.Cfg.CheckpointPath == "" && cfg.CheckpointPath != "" {
		coord.Cfg.CheckpointPath = cfg.CheckpointPath
	}
	if path := coord.Cfg.CheckpointPath; path != "" {
		coord.OnPrintInterval = func(c *coordinator.Coordinator) {
			if err := checkpoint.Save(c, path); err != nil {
				logger.WithError(err).Warn("checkpoint write failed")
			}
		}
	}

	res, err := coord.Run(context.Background())
	if err != nil {
		return err
	}

	rec := export.Build(coord.Cfg, res, coord.Scheduler.Now())
	printSummary(rec)

	if path := coord.Cfg.ExportMetricsPath; path != "" {
		if err := export.WriteFile(path, rec); err != nil {
			return err
		}
		logger.WithField("path", path).Info("metrics exported")
	}
	if path := coord.Cfg.CheckpointPath; path != "" {
		if err := checkpoint.Save(coord, path); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(rec export.Record) {
	fmt.Printf("chain=%s seed=%d duration=%.1fs\n", rec.Chain, rec.Seed, rec.Duration)
	fmt.Printf("blocks=%d transactions=%d coins_issued=%.4f\n", rec.Blocks, rec.Transactions, rec.CoinsIssued)
	fmt.Printf("mean_block_time=%.2fs mean_propagation_hops=%.2f\n", rec.MeanBlockTime, rec.MeanPropagationHops)
	for _, ps := range rec.ProducerShares {
		fmt.Printf("  producer %3d: %6d blocks (%.1f%%)\n", ps.ProducerID, ps.Blocks, ps.Share*100)
	}
	if rec.Attack == nil {
		return
	}
	fmt.Printf("attack=%s\n", rec.Attack.Name)
	switch {
	case rec.Attack.Selfish != nil:
		s := rec.Attack.Selfish
		fmt.Printf("  attacker_blocks=%d honest_blocks=%d relative_revenue=%.3f wasted_honest=%d\n",
			s.AttackerBlocksWon, s.HonestBlocksWon, s.RelativeRevenue, s.WastedHonestBlocks)
	case rec.Attack.DoubleSpend != nil:
		d := rec.Attack.DoubleSpend
		fmt.Printf("  attempts=%d successes=%d failures=%d success_rate=%.3f\n",
			d.Attempts, d.Successes, d.Failures, d.SuccessRate)
	case rec.Attack.Eclipse != nil:
		e := rec.Attack.Eclipse
		fmt.Printf("  victims=%d blocks_withheld=%d victim_seen_fraction=%.3f\n",
			e.Victims, e.BlocksWithheld, e.VictimSeenFraction)
	}
}
