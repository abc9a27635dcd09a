package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ngmaloney/forecast-terminal/internal/metrics"
	"github.com/ngmaloney/forecast-terminal/internal/models"
	"github.com/ngmaloney/forecast-terminal/internal/providers"
	"golang.org/x/sync/errgroup"
)

// Config holds the coordinator's collaborators.
type Config struct {
	Regional providers.RegionalClient
	Global   providers.GlobalClient
	DataDir  string

	// VerifyFallback re-fetches yesterday's 18Z run instead of assuming it.
	VerifyFallback bool

	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Coordinator finds the most recent run both providers have published.
type Coordinator struct {
	regional       providers.RegionalClient
	global         providers.GlobalClient
	dataDir        string
	verifyFallback bool
	now            func() time.Time
	logger         *slog.Logger
	metrics        *metrics.Collector
}

// Result describes the run found by Acquire.
type Result struct {
	Run      models.RunID
	Files    Files
	IsNew    bool
	Fallback bool  // yesterday's 18Z run, taken without a fresh download
	Bytes    int64 // downloaded this cycle
}

// candidate pairs a run with the way to obtain it.
type candidate struct {
	run      models.RunID
	fallback bool
	attempt  func(ctx context.Context) (Files, int64, error)
}

// New creates a Coordinator, making sure the data directory exists and
// clearing anything an interrupted cycle left there.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Regional == nil || cfg.Global == nil {
		return nil, fmt.Errorf("both provider clients are required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "acquisition")
	removed, err := recoverStaging(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("cleaning data directory: %w", err)
	}
	if removed > 0 {
		logger.Info("removed stale staging files", "count", removed)
	}
	return &Coordinator{
		regional:       cfg.Regional,
		global:         cfg.Global,
		dataDir:        cfg.DataDir,
		verifyFallback: cfg.VerifyFallback,
		now:            cfg.Now,
		logger:         logger,
		metrics:        cfg.Metrics,
	}, nil
}

// Candidates lists the runs to try, newest first: today at 18, 12, 6 and 0 UTC,
// then yesterday at 18 UTC.
func (c *Coordinator) Candidates(now time.Time) []models.RunID {
	list := c.candidates(now)
	runs := make([]models.RunID, len(list))
	for i, cand := range list {
		runs[i] = cand.run
	}
	return runs
}

func (c *Coordinator) candidates(now time.Time) []candidate {
	now = now.UTC()
	list := make([]candidate, 0, len(models.RunHours)+1)
	for _, h := range models.RunHours {
		run := models.NewRunID(now, h)
		list = append(list, candidate{run: run, attempt: c.dualFetch(run)})
	}

	yesterday := models.NewRunID(now.AddDate(0, 0, -1), 18)
	fallback := candidate{run: yesterday, fallback: true, attempt: c.assumeAvailable}
	if c.verifyFallback {
		fallback.attempt = c.dualFetch(yesterday)
	}
	return append(list, fallback)
}

// Acquire walks the candidate list. A candidate equal to last ends the walk
// with IsNew=false before any network call. Candidate failures are logged
// and the next older run is tried.
func (c *Coordinator) Acquire(ctx context.Context, last *models.RunID) (Result, error) {
	for _, cand := range c.candidates(c.now()) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if last != nil && cand.run.Equal(*last) {
			c.logger.Info("no new run", "run", cand.run)
			c.metrics.RecordAcquisition("unchanged")
			return Result{Run: cand.run, IsNew: false}, nil
		}

		files, n, err := cand.attempt(ctx)
		if err != nil {
			c.logger.Warn("candidate run unavailable", "run", cand.run, "error", err)
			c.metrics.RecordCandidate(cand.run.Hour, "unavailable")
			continue
		}

		c.metrics.RecordCandidate(cand.run.Hour, "ok")
		outcome := "new"
		if cand.fallback {
			outcome = "fallback"
		}
		c.metrics.RecordAcquisition(outcome)
		c.logger.Info("run acquired", "run", cand.run, "fallback", cand.fallback, "downloaded", humanize.Bytes(uint64(n)))
		return Result{Run: cand.run, Files: files, IsNew: true, Fallback: cand.fallback, Bytes: n}, nil
	}
	return Result{}, models.ErrNoRunAvailable
}

// assumeAvailable treats the last committed files as the run.
func (c *Coordinator) assumeAvailable(ctx context.Context) (Files, int64, error) {
	c.logger.Info("falling back to yesterday's 18Z run without download")
	return committedFiles(c.dataDir), 0, nil
}

// dualFetch downloads both sides of a run concurrently. The first failure
// cancels the other request; staged files are committed only if both succeed.
func (c *Coordinator) dualFetch(run models.RunID) func(ctx context.Context) (Files, int64, error) {
	return func(ctx context.Context) (Files, int64, error) {
		regional, err := newStagedFile(c.dataDir, "regional-*.partial")
		if err != nil {
			return Files{}, 0, err
		}
		global, err := newStagedFile(c.dataDir, "global-*.partial")
		if err != nil {
			regional.discard()
			return Files{}, 0, err
		}

		var (
			regionalBytes, globalBytes int64
			regionalErr, globalErr     error
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			regionalBytes, regionalErr = c.regional.FetchRegional(gctx, run, regional)
			return regionalErr
		})
		g.Go(func() error {
			globalBytes, globalErr = c.global.FetchGlobal(gctx, run, global)
			return globalErr
		})
		waitErr := g.Wait()

		c.metrics.RecordBytes("regional", regionalBytes)
		c.metrics.RecordBytes("global", globalBytes)
		total := regionalBytes + globalBytes

		if waitErr != nil {
			regional.discard()
			global.discard()
			return Files{}, total, classify(regionalErr, globalErr)
		}

		files, err := commitPair(c.dataDir, regional, global)
		if err != nil {
			return Files{}, total, err
		}
		c.logger.Debug("run committed", "run", run,
			"regional", humanize.Bytes(uint64(regionalBytes)),
			"global", humanize.Bytes(uint64(globalBytes)))
		return files, total, nil
	}
}

// classify reports a failure where exactly one side completed as partial;
// anything else means the run is unavailable.
func classify(regionalErr, globalErr error) error {
	switch {
	case regionalErr != nil && globalErr == nil:
		return fmt.Errorf("%w: regional failed: %w", models.ErrPartialAcquisition, regionalErr)
	case globalErr != nil && regionalErr == nil:
		return fmt.Errorf("%w: global failed: %w", models.ErrPartialAcquisition, globalErr)
	case errors.Is(globalErr, context.Canceled) && !errors.Is(regionalErr, context.Canceled):
		return fmt.Errorf("%w: regional failed: %w", models.ErrProviderUnavailable, regionalErr)
	case errors.Is(regionalErr, context.Canceled) && !errors.Is(globalErr, context.Canceled):
		return fmt.Errorf("%w: global failed: %w", models.ErrProviderUnavailable, globalErr)
	default:
		return fmt.Errorf("%w: regional: %v; global: %v", models.ErrProviderUnavailable, regionalErr, globalErr)
	}
}
