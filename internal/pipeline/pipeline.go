// Package pipeline runs the periodic acquire → open → store cycle.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/ngmaloney/forecast-terminal/internal/acquisition"
	"github.com/ngmaloney/forecast-terminal/internal/metrics"
	"github.com/ngmaloney/forecast-terminal/internal/models"
)

// DefaultInterval is the time between cycles.
const DefaultInterval = time.Hour

type Acquirer interface {
	Acquire(ctx context.Context, last *models.RunID) (acquisition.Result, error)
}

type Loader interface {
	Load(globalPath, regionalPath string) (global, regional *models.Dataset, err error)
}

type Store interface {
	Store(outcome models.Outcome) bool
	LastRun() *models.RunID
}

// Publisher is told about every finished cycle.
type Publisher interface {
	Publish(r Report)
}

// History persists acquired runs.
type History interface {
	RecordRun(ctx context.Context, run models.RunID, bytes int64, fallback bool, acquiredAt time.Time) error
}

type Config struct {
	Acquirer  Acquirer
	Loader    Loader
	Store     Store
	Publisher Publisher // optional
	History   History   // optional
	Interval  time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
	Metrics   *metrics.Collector
}

// Report summarises one cycle.
type Report struct {
	Run      models.RunID
	IsNew    bool
	Fallback bool
	Bytes    int64
	Err      error
	Started  time.Time
	Finished time.Time
}

// Stored reports whether the cycle replaced the repository's run.
func (r Report) Stored() bool {
	return r.IsNew && r.Err == nil
}

type Pipeline struct {
	acquirer  Acquirer
	loader    Loader
	store     Store
	publisher Publisher
	history   History
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Collector
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Acquirer == nil || cfg.Loader == nil || cfg.Store == nil {
		return nil, errors.New("pipeline: acquirer, loader and store are required")
	}
	p := &Pipeline{
		acquirer:  cfg.Acquirer,
		loader:    cfg.Loader,
		store:     cfg.Store,
		publisher: cfg.Publisher,
		history:   cfg.History,
		interval:  cfg.Interval,
		now:       cfg.Now,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// RunCycle performs one acquisition cycle. A failed cycle leaves the
// repository untouched, so the same run is tried again next time.
func (p *Pipeline) RunCycle(ctx context.Context) Report {
	timer := p.metrics.CycleTimer()
	defer timer.ObserveDuration()

	report := p.cycle(ctx)
	report.Finished = p.now()
	if report.Err != nil {
		p.logger.Error("cycle failed", "error", report.Err, "took", report.Finished.Sub(report.Started))
	}
	if p.publisher != nil {
		p.publisher.Publish(report)
	}
	return report
}

func (p *Pipeline) cycle(ctx context.Context) Report {
	report := Report{Started: p.now()}

	res, err := p.acquirer.Acquire(ctx, p.store.LastRun())
	if err != nil {
		p.metrics.RecordCycleFailure("acquire")
		report.Err = err
		return report
	}
	report.Run, report.IsNew, report.Fallback, report.Bytes = res.Run, res.IsNew, res.Fallback, res.Bytes
	if !res.IsNew {
		return report
	}

	global, regional, err := p.loader.Load(res.Files.Global, res.Files.Regional)
	if err != nil {
		p.metrics.RecordCycleFailure("open")
		report.Err = err
		return report
	}

	if global != nil && !global.Reference.IsZero() && !global.Reference.Equal(res.Run.Origin()) {
		p.logger.Warn("forecast data is from a different run",
			"run", res.Run, "reference", global.Reference, "fallback", res.Fallback)
	}

	acquiredAt := p.now()
	p.store.Store(models.Outcome{
		Run:        res.Run,
		Global:     global,
		Regional:   regional,
		IsNew:      true,
		AcquiredAt: acquiredAt,
	})
	p.metrics.SetLastRun(res.Run.Origin())
	p.logger.Info("forecast updated", "run", res.Run, "steps", global.StepCount())

	if p.history != nil {
		if err := p.history.RecordRun(ctx, res.Run, res.Bytes, res.Fallback, acquiredAt); err != nil {
			p.logger.Warn("run history not recorded", "run", res.Run, "error", err)
		}
	}
	return report
}

// Run schedules RunCycle every interval, starting immediately, until ctx is
// cancelled. Cycles never overlap, and a cycle in flight when ctx is cancelled
// runs to completion.
func (p *Pipeline) Run(ctx context.Context) error {
	cycleCtx := context.WithoutCancel(ctx)
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(p.interval).SingletonMode().Do(func() {
		p.RunCycle(cycleCtx)
	})
	if err != nil {
		return err
	}

	p.logger.Info("pipeline started", "interval", p.interval)
	s.StartAsync()
	<-ctx.Done()
	s.Stop()
	p.logger.Info("pipeline stopped")
	return nil
}
