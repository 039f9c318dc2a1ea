package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"AssetDash/internal/cache"
	"AssetDash/internal/config"
	"AssetDash/internal/fetcher"
	"AssetDash/internal/logger"
	"AssetDash/internal/model"
	"AssetDash/internal/render"
	"AssetDash/internal/scheduler"
	"AssetDash/internal/store"
	"AssetDash/internal/web"
)

type options struct {
	configPath string
	web        bool
	host       string
	port       int
	dbStats    bool
	period     string
	refresh    bool
	assets     string
	csvDir     string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "assetdash",
		Short: "Historical asset prices with a local SQLite cache",
		Long: `AssetDash prints recent closing prices for a watch list of assets, or serves
them on a web dashboard. Prices are cached in SQLite and only missing dates
are fetched from the provider.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", defaultConfig, "config file (optional)")
	f.BoolVar(&opts.web, "web", false, "run the web dashboard")
	f.StringVar(&opts.host, "host", "", "web host (default from config or 0.0.0.0)")
	f.IntVar(&opts.port, "port", 0, "web port (default from config or 5000)")
	f.BoolVar(&opts.dbStats, "db-stats", false, "print a summary of the cache and exit")
	f.StringVar(&opts.period, "period", web.DefaultPeriod, "period for the table: "+strings.Join(web.PeriodOrder, ", "))
	f.BoolVar(&opts.refresh, "refresh", false, "fetch the whole period again")
	f.StringVar(&opts.assets, "assets", "", "comma-separated symbols to show (default all)")
	f.StringVar(&opts.csvDir, "csv", "", "also save the table rows as a timestamped CSV in this directory")
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = opts.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = opts.port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Dir: cfg.Log.Dir}, os.Stderr); err != nil {
		return err
	}

	st, err := store.Open(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer st.Close()

	var src fetcher.Fetcher
	if cfg.DataSource.BaseURL != "" {
		src = fetcher.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	} else {
		src = fetcher.NewYahooFetcher(cfg.Proxy)
	}
	log.Debug().Str("source", src.Name()).Str("cache", cfg.Cache.Path).Msg("initialized")
	orch := cache.New(st, src, cache.WithTodayRefresh(cfg.Cache.RefreshToday))

	assets, err := selectAssets(cfg, opts.assets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	switch {
	case opts.dbStats:
		return printStats(ctx, orch, out)
	case opts.web:
		return serve(ctx, cfg, orch, assets)
	}

	items, err := printTable(ctx, orch, assets, opts.period, opts.refresh, out)
	if err != nil || opts.csvDir == "" {
		return err
	}
	path, err := saveCSV(opts.csvDir, time.Now(), items)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSaved %s\n", path)
	return nil
}

// selectAssets narrows the configured assets to the comma-separated symbols.
func selectAssets(cfg *config.Config, csv string) ([]model.Asset, error) {
	if strings.TrimSpace(csv) == "" {
		return cfg.Assets, nil
	}
	var assets []model.Asset
	for _, s := range strings.Split(csv, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		a, ok := cfg.Asset(s)
		if !ok {
			return nil, fmt.Errorf("%s is not a configured asset", s)
		}
		assets = append(assets, a)
	}
	return assets, nil
}

func printStats(ctx context.Context, orch *cache.Orchestrator, out io.Writer) error {
	stats, err := orch.Stats(ctx)
	if err != nil {
		return err
	}
	return render.Stats(out, stats)
}

// printTable writes the closing-price table and returns the series shown.
// Assets that cannot be loaded are logged and skipped; a store failure stops
// the run.
func printTable(ctx context.Context, orch *cache.Orchestrator, assets []model.Asset, period string, refresh bool, out io.Writer) ([]render.AssetSeries, error) {
	rng, err := web.ResolvePeriod(period, orch.Today())
	if err != nil {
		return nil, err
	}
	items := make([]render.AssetSeries, 0, len(assets))
	for _, a := range assets {
		res, err := orch.GetSeries(ctx, a.Symbol, rng, refresh)
		if err != nil {
			var se *store.Error
			if errors.As(err, &se) {
				return nil, err
			}
			log.Warn().Err(err).Str("symbol", a.Symbol).Str("name", a.Name).Msg("skipping asset")
			continue
		}
		items = append(items, render.AssetSeries{Asset: a, Series: res})
	}
	return items, render.Table(out, fmt.Sprintf("Closing prices %s", rng), items)
}

// saveCSV writes items to dir/prices_YYYYMMDD_HHMMSS.csv and returns the path.
func saveCSV(dir string, now time.Time, items []render.AssetSeries) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create csv dir: %w", err)
	}
	path := filepath.Join(dir, "prices_"+now.Format("20060102_150405")+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	if err := render.CSV(f, items); err != nil {
		f.Close()
		return "", fmt.Errorf("write csv: %w", err)
	}
	return path, f.Close()
}

func serve(ctx context.Context, cfg *config.Config, orch *cache.Orchestrator, assets []model.Asset) error {
	srv, err := web.New(orch, assets)
	if err != nil {
		return err
	}

	if cfg.Schedule.WarmCron != "" {
		sched := scheduler.NewScheduler(ctx, orch, assets, cfg.Schedule.WarmDays)
		if err := sched.Register(cfg.Schedule.WarmCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	log.Info().Msgf("dashboard at http://%s:%d", cfg.DisplayHost(), cfg.Server.Port)
	return srv.Run(ctx, cfg.Addr())
}
