package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/ngmaloney/forecast-terminal/internal/acquisition"
	"github.com/ngmaloney/forecast-terminal/internal/basemap"
	"github.com/ngmaloney/forecast-terminal/internal/config"
	"github.com/ngmaloney/forecast-terminal/internal/database"
	"github.com/ngmaloney/forecast-terminal/internal/dataset"
	"github.com/ngmaloney/forecast-terminal/internal/logging"
	"github.com/ngmaloney/forecast-terminal/internal/metrics"
	"github.com/ngmaloney/forecast-terminal/internal/pipeline"
	"github.com/ngmaloney/forecast-terminal/internal/providers"
	"github.com/ngmaloney/forecast-terminal/internal/store"
	"github.com/ngmaloney/forecast-terminal/internal/ui"
)

func main() {
	envFile := flag.String("env", "", "Path to a dotenv file (default: .env if present)")
	headless := flag.Bool("headless", false, "Run the acquisition pipeline without the terminal UI")
	once := flag.Bool("once", false, "Run a single acquisition cycle and exit")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	if err := run(cfg, *headless, *once); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, headless, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	var logOut io.Writer = os.Stderr
	tui := !headless && !once
	if tui {
		logPath := cfg.LogFile
		if !filepath.IsAbs(logPath) {
			logPath = filepath.Join(cfg.DataDir, logPath)
		}
		f, err := tea.LogToFile(logPath, "forecast-terminal")
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.New(logOut, cfg.LogLevel)
	slog.SetDefault(logger)

	collector := metrics.NewCollector("forecast_terminal")
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, collector, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	db, err := database.Open(database.DBPath(cfg.DataDir))
	if err != nil {
		return err
	}
	defer db.Close()

	coordinator, err := acquisition.New(acquisition.Config{
		Regional:       providers.NewFMIClient(cfg.FMIBaseURL, cfg.HTTPTimeout),
		Global:         providers.NewECMWFClient(cfg.ECMWFBaseURL, cfg.ECMWFModel, cfg.ECMWFResolution, cfg.HTTPTimeout),
		DataDir:        cfg.DataDir,
		VerifyFallback: cfg.VerifyFallback,
		Logger:         logger,
		Metrics:        collector,
	})
	if err != nil {
		return err
	}

	repo := store.NewRepository()
	newPipeline := func(pub pipeline.Publisher) (*pipeline.Pipeline, error) {
		return pipeline.New(pipeline.Config{
			Acquirer:  coordinator,
			Loader:    dataset.NewLoader(logger),
			Store:     repo,
			Publisher: pub,
			History:   database.NewHistory(db),
			Interval:  cfg.PollInterval,
			Logger:    logger.With("component", "pipeline"),
			Metrics:   collector,
		})
	}

	switch {
	case once:
		p, err := newPipeline(nil)
		if err != nil {
			return err
		}
		r := p.RunCycle(ctx)
		if r.Err != nil {
			return r.Err
		}
		fmt.Printf("run %s new=%t fallback=%t downloaded=%s\n", r.Run, r.IsNew, r.Fallback, humanize.Bytes(uint64(r.Bytes)))
		return nil

	case headless:
		p, err := newPipeline(nil)
		if err != nil {
			return err
		}
		return p.Run(ctx)
	}

	opts := ui.Options{
		Source:     repo,
		Coastlines: basemap.NewCoastlines(db),
		Interval:   cfg.PollInterval,
		Logger:     logger.With("component", "ui"),
		Metrics:    collector,
	}
	if needs, err := basemap.NeedsProvisioning(ctx, db); err != nil {
		logger.Warn("basemap check failed", "error", err)
	} else if needs {
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		opts.Provision = func(ctx context.Context, progress chan<- string) error {
			return basemap.Provision(ctx, db, cfg.CoastlineURL, cfg.DataDir, client, progress)
		}
	}

	program := tea.NewProgram(ui.NewModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	p, err := newPipeline(ui.NewProgramPublisher(program))
	if err != nil {
		return err
	}

	pipelineCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(pipelineCtx); err != nil {
			logger.Error("pipeline stopped", "error", err)
		}
	}()

	_, err = program.Run()

	// A cycle in flight finishes before the database closes.
	cancel()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		fmt.Println("Waiting for the current forecast download to finish...")
		<-done
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}
