package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/rayo1uo/singleton"
	"github.com/rayo1uo/singleton/di"
	"github.com/rayo1uo/singleton/probe"
)

var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	configPath  string
	workers     int
	rounds      int
	rate        float64
	burst       int
	logLevel    string
	dev         bool
	printConfig bool
}

func main() {
	if err := newRootCommand(&options{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "singletonprobe",
		Short:        "Call GetInstance from many goroutines at once and check a single address comes back",
		Version:      fmt.Sprintf("%s (commit %s)", version, commit),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.printConfig {
				cfg, err := opts.probeConfig(cmd.Flags())
				if err != nil {
					return err
				}
				out, err := cfg.YAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			fx.New(appOptions(cmd.Flags(), opts)...).Run()
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to probe config yaml (optional)")
	flags.IntVar(&opts.workers, "workers", 0, "goroutines released at once (overrides config)")
	flags.IntVar(&opts.rounds, "rounds", 0, "GetInstance calls per goroutine (overrides config)")
	flags.Float64Var(&opts.rate, "rate", 0, "calls per second across all goroutines, 0 for unpaced (overrides config)")
	flags.IntVar(&opts.burst, "burst", 0, "rate limiter burst (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "debug | info | warn | error")
	flags.BoolVar(&opts.dev, "dev", false, "human readable development logging")
	flags.BoolVar(&opts.printConfig, "print-config", false, "print the effective probe config as yaml and exit")
	return cmd
}

// probeConfig loads the config file and environment, then applies the flags
// that were set explicitly.
func (o *options) probeConfig(flags *pflag.FlagSet) (probe.Config, error) {
	cfg, err := probe.LoadConfig(o.configPath)
	if err != nil {
		return probe.Config{}, err
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("rounds") {
		cfg.Rounds = o.rounds
	}
	if flags.Changed("rate") {
		cfg.Rate = o.rate
	}
	if flags.Changed("burst") {
		cfg.Burst = o.burst
	}
	if err := cfg.Validate(); err != nil {
		return probe.Config{}, errors.Wrap(err, "invalid flags")
	}
	return cfg, nil
}

func appOptions(flags *pflag.FlagSet, opts *options) []fx.Option {
	return []fx.Option{
		di.LoggerOption(di.Config{Level: opts.logLevel, Development: opts.dev}),
		di.Module,
		configOption(flags, opts),
		fx.Provide(
			func() prometheus.Registerer { return prometheus.NewRegistry() },
			probe.New,
		),
		fx.Invoke(register),
	}
}

// configOption fails the app on a bad config so the error is reported
// through the app's logger.
func configOption(flags *pflag.FlagSet, opts *options) fx.Option {
	cfg, err := opts.probeConfig(flags)
	if err != nil {
		return fx.Error(err)
	}
	return fx.Supply(cfg)
}

// register runs the probe once the app has started and shuts the app down
// with a non-zero exit code unless exactly one address was seen.
func register(lc fx.Lifecycle, sd fx.Shutdowner, p *probe.Probe, h singleton.Handle, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if h != singleton.GetInstance() {
				return errors.New("injected handle differs from GetInstance")
			}
			go func() {
				defer close(done)
				code := 0
				report, err := p.Run(ctx)
				switch {
				case err != nil:
					logger.Error("probe failed", zap.Error(err))
					code = 1
				case !report.Unique():
					code = 2
				}
				if err := sd.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Error("shutdown", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
