package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/UnknownOlympus/hestia/internal/boundary"
	"github.com/UnknownOlympus/hestia/internal/config"
	"github.com/UnknownOlympus/hestia/internal/geocoding"
	"github.com/UnknownOlympus/hestia/internal/ingest"
	"github.com/UnknownOlympus/hestia/internal/lowres"
	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/UnknownOlympus/hestia/internal/report"
	"github.com/UnknownOlympus/hestia/internal/repository"
	"github.com/UnknownOlympus/hestia/internal/service"
	"github.com/UnknownOlympus/hestia/internal/workerpool"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var errNoLayers = errors.New("custom boundary lookup needs a layers file (--layers or HESTIA_LAYERS_FILE)")

// app carries what every command shares.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics

	input      string
	csvOut     string
	xlsxOut    string
	maxRows    int
	skipRemote bool

	pool *pgxpool.Pool
	repo repository.Interface
}

func newRootCommand(cfg *config.Config, log *slog.Logger) *cobra.Command {
	a := &app{cfg: cfg, log: log}

	root := &cobra.Command{
		Use:           "hestia",
		Short:         "Reverse geocode wildfire hotspots and compare lookup methods",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.pool != nil {
				a.pool.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "custom lookup worker pool size (0 = CPUs - 1)")
	flags.StringVar(&cfg.LayersFile, "layers", cfg.LayersFile, "YAML file listing custom boundary layers")
	flags.StringVar(&cfg.Provider.Type, "provider", cfg.Provider.Type, "remote provider: photon, nominatim or google")
	flags.StringVar(&cfg.Provider.URL, "provider-url", cfg.Provider.URL, "remote provider endpoint override")
	flags.IntVar(&cfg.Provider.RateLimit, "rate-limit", cfg.Provider.RateLimit, "remote requests per second (0 = unlimited)")
	flags.IntVar(&cfg.Provider.Retries, "retries", cfg.Provider.Retries, "retries of transient remote failures")
	flags.DurationVar(&cfg.RemoteTimeout, "timeout", cfg.RemoteTimeout, "deadline for the whole remote batch")
	flags.StringVar(&cfg.InvalidPolicy, "policy", cfg.InvalidPolicy, "invalid coordinate rows: skip or reject")
	flags.IntVar(&cfg.Port, "metrics-port", cfg.Port, "serve /metrics and /healthz on this port (0 = off)")

	root.AddCommand(
		a.batchCommand("compare", "Run every method over the input and compare them", a.compareRunners),
		a.batchCommand("remote", "Reverse geocode through the remote provider", a.remoteRunners),
		a.batchCommand("lowres", "Look up the bundled low resolution boundaries", a.lowresRunners),
		a.batchCommand("custom", "Look up the configured boundary layers in parallel", a.customRunners),
		a.runsCommand(),
	)

	return root
}

func (a *app) setup(ctx context.Context) error {
	a.reg = prometheus.NewRegistry()
	a.reg.MustRegister(collectors.NewGoCollector())
	a.reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewMetrics(a.reg)

	if a.cfg.Workers <= 0 {
		a.cfg.Workers = workerpool.DefaultWorkers()
	}

	if a.cfg.Database.Enabled() {
		db := a.cfg.Database
		pool, err := repository.NewDatabase(ctx, db.Host, db.Port, db.User, db.Password, db.Name)
		if err != nil {
			return fmt.Errorf("failed to connect to DB: %w", err)
		}
		a.pool = pool
		repo := repository.NewRepository(pool, a.log)
		if err = repo.EnsureSchema(ctx); err != nil {
			return err
		}
		a.repo = repo
	}

	if a.cfg.Port > 0 {
		var db pinger
		if a.pool != nil {
			db = a.pool
		}
		go startMonitoringServer(ctx, a.log, a.reg, db, a.cfg.Port)
	}

	return nil
}

type runnersFunc func(ctx context.Context) ([]service.Runner, error)

func (a *app) batchCommand(use, short string, runners runnersFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBatch(cmd, runners)
		},
	}

	cmd.Flags().StringVarP(&a.input, "input", "i", "", "hotspot CSV file (required)")
	cmd.Flags().StringVar(&a.csvOut, "csv", "", "also write all rows to this CSV file")
	cmd.Flags().StringVar(&a.xlsxOut, "xlsx", "", "also write a workbook with one sheet per method")
	cmd.Flags().IntVar(&a.maxRows, "rows", 20, "rows shown per method (0 = all)")
	if use == "compare" {
		cmd.Flags().BoolVar(&a.skipRemote, "skip-remote", false, "leave out the remote provider")
	}
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, runnersFn runnersFunc) error {
	ctx := cmd.Context()

	policy, err := ingest.ParsePolicy(a.cfg.InvalidPolicy)
	if err != nil {
		return err
	}

	observations, err := ingest.LoadFile(a.log, a.input, policy)
	if err != nil {
		return err
	}
	a.log.InfoContext(ctx, "Input loaded", "file", a.input, "rows", len(observations))

	runners, err := runnersFn(ctx)
	if err != nil {
		return err
	}

	results := service.NewComparison(a.log, a.repo, filepath.Base(a.input), runners...).Run(ctx, observations)

	if err = report.Render(cmd.OutOrStdout(), results, report.Options{MaxRows: a.maxRows}); err != nil {
		return err
	}
	if a.csvOut != "" {
		if err = report.SaveCSV(a.csvOut, results); err != nil {
			return err
		}
	}
	if a.xlsxOut != "" {
		if err = report.SaveXLSX(a.xlsxOut, results); err != nil {
			return err
		}
	}

	return ctx.Err()
}

func (a *app) compareRunners(ctx context.Context) ([]service.Runner, error) {
	var runners []service.Runner
	if !a.skipRemote {
		remote, err := a.remoteRunners(ctx)
		if err != nil {
			return nil, err
		}
		runners = append(runners, remote...)
	}

	low, err := a.lowresRunners(ctx)
	if err != nil {
		return nil, err
	}
	runners = append(runners, low...)

	if a.cfg.LayersFile == "" {
		a.log.WarnContext(ctx, "No layers file configured, skipping custom boundary lookup")
		return runners, nil
	}
	custom, err := a.customRunners(ctx)
	if err != nil {
		return nil, err
	}

	return append(runners, custom...), nil
}

func (a *app) remoteRunners(ctx context.Context) ([]service.Runner, error) {
	providerConfig := geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(a.cfg.Provider.Type),
		APIKey:    a.cfg.Provider.APIKey,
		BaseURL:   a.cfg.Provider.URL,
		RateLimit: a.cfg.Provider.RateLimit,
		Logger:    a.log,
	}

	provider, err := geocoding.NewProvider(providerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding provider: %w", err)
	}

	retry := geocoding.DefaultRetryConfig()
	retry.MaxRetries = a.cfg.Provider.Retries
	retry.OnRetry = func(error, time.Duration) { a.metrics.ProviderRetries.Inc() }
	provider = geocoding.NewRetryingProvider(provider, retry, a.log)

	if a.cfg.Cache.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: a.cfg.Cache.Addr, Password: a.cfg.Cache.Password})
		if err = client.Ping(ctx).Err(); err != nil {
			a.log.WarnContext(ctx, "Redis cache unavailable, continuing without it", "addr", a.cfg.Cache.Addr, "error", err)
		} else {
			provider = geocoding.NewCachedProvider(provider, client, a.cfg.Cache.TTL, a.log)
		}
	}

	a.log.InfoContext(ctx, "Geocoding provider initialized", "type", providerConfig.Type)

	return []service.Runner{
		service.NewRemoteBatch(a.log, provider, a.cfg.Provider.Type, a.metrics, a.cfg.RemoteTimeout),
	}, nil
}

func (a *app) lowresRunners(_ context.Context) ([]service.Runner, error) {
	maps, err := lowres.Maps()
	if err != nil {
		return nil, err
	}

	return []service.Runner{service.NewBoundaryBatch(a.log, service.MethodLowRes, maps, 1, a.metrics)}, nil
}

func (a *app) customRunners(ctx context.Context) ([]service.Runner, error) {
	if a.cfg.LayersFile == "" {
		return nil, errNoLayers
	}

	specs, err := config.LoadLayers(a.cfg.LayersFile)
	if err != nil {
		return nil, err
	}

	maps, err := boundary.LoadLayers(ctx, a.log, specs)
	if err != nil {
		return nil, err
	}

	return []service.Runner{
		service.NewBoundaryBatch(a.log, service.MethodCustom, maps, a.cfg.Workers, a.metrics),
	}, nil
}

func (a *app) runsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored batch runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.repo == nil {
				return errors.New("result storage is disabled, set DB_HOST")
			}
			runs, err := a.repo.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-7s %-24s rows=%-6d elapsed=%-12s %s\n",
					run.ID, run.Method, run.Input, run.Rows, run.Elapsed, run.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")

	return cmd
}
