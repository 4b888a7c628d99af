package guide

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/locastarr/internal/models"
	"github.com/jmylchreest/locastarr/internal/observability"
	"github.com/jmylchreest/locastarr/internal/repository"
	"github.com/jmylchreest/locastarr/pkg/xmltv"
)

// State is the refresher's execution state.
type State string

// Refresher states.
const (
	StateIdle       State = "idle"
	StateRefreshing State = "refreshing"
)

// Refresher is the background task that keeps the canonical document fresh:
// fetch, translate, persist, hand off, sleep, repeat. It wakes on the
// configured schedule or on an explicit trigger.
type Refresher struct {
	fetcher    *Fetcher
	translator *Translator
	outputPath string
	handoff    Handoff
	runs       repository.RefreshRunRepository
	metrics    *observability.Metrics
	logger     *slog.Logger
	schedule   cron.Schedule
	retention  time.Duration
	now        func() time.Time

	trigger chan struct{}

	mu          sync.Mutex
	state       State
	lastOutcome models.RefreshOutcome
	lastSuccess time.Time
}

// NewRefresher creates a Refresher writing to outputPath on the given cron
// schedule.
func NewRefresher(fetcher *Fetcher, translator *Translator, outputPath string, schedule cron.Schedule, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		fetcher:    fetcher,
		translator: translator,
		outputPath: outputPath,
		logger:     observability.WithComponent(logger, "refresher"),
		schedule:   schedule,
		now:        time.Now,
		trigger:    make(chan struct{}, 1),
		state:      StateIdle,
	}
}

// WithHandoff sets the post-write hand-off target.
func (r *Refresher) WithHandoff(handoff Handoff) *Refresher {
	r.handoff = handoff
	return r
}

// WithRunRepository sets the refresh history store.
func (r *Refresher) WithRunRepository(runs repository.RefreshRunRepository) *Refresher {
	r.runs = runs
	return r
}

// WithRetention sets how long run history is kept. Zero keeps it forever.
func (r *Refresher) WithRetention(d time.Duration) *Refresher {
	r.retention = d
	return r
}

// WithMetrics sets the metrics sink.
func (r *Refresher) WithMetrics(m *observability.Metrics) *Refresher {
	r.metrics = m
	return r
}

// WithClock overrides the time source, for tests.
func (r *Refresher) WithClock(now func() time.Time) *Refresher {
	r.now = now
	return r
}

// OutputPath returns the path the canonical document is written to.
func (r *Refresher) OutputPath() string {
	return r.outputPath
}

// State returns the current execution state.
func (r *Refresher) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastSuccess returns the time of the last successful refresh, zero if none.
func (r *Refresher) LastSuccess() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSuccess
}

// LastOutcome returns the outcome of the most recent cycle, empty if none.
func (r *Refresher) LastOutcome() models.RefreshOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastOutcome
}

// Trigger requests an immediate refresh cycle. It never blocks; a cycle
// already pending absorbs the request.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run executes the refresh loop until ctx is cancelled. The first cycle
// runs immediately; afterwards the loop sleeps until the next scheduled
// wake or an explicit trigger. A failed cycle is logged and skipped, never
// retried within the same tick.
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info("refresher started", slog.String("output", r.outputPath))
	r.restoreHistory(ctx)

	for {
		if err := r.RefreshOnce(ctx); err != nil {
			r.logger.Error("guide refresh failed", slog.String("error", err.Error()))
		}

		now := r.now()
		wait := r.schedule.Next(now).Sub(now)
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("refresher stopped")
			return
		case <-timer.C:
		case <-r.trigger:
			timer.Stop()
			r.logger.Info("refresh triggered")
		}
	}
}

// RefreshOnce executes a single refresh cycle: fetch, translate, persist,
// hand off. An empty guide skips the write entirely so the previous
// document stays valid.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	r.setState(StateRefreshing)
	defer r.setState(StateIdle)

	started := r.now()
	run := &models.RefreshRun{StartedAt: started}

	err := r.refresh(ctx, run)

	run.DurationMillis = r.now().Sub(started).Milliseconds()
	if err != nil {
		run.Outcome = models.RefreshOutcomeFailed
		run.Error = err.Error()
	}

	r.mu.Lock()
	r.lastOutcome = run.Outcome
	if run.Outcome == models.RefreshOutcomeOK {
		r.lastSuccess = started
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.GuideRefreshes.WithLabelValues(string(run.Outcome)).Inc()
	}
	r.recordRun(ctx, run)
	r.pruneHistory(ctx)

	return err
}

// refresh performs the fetch/translate/write/hand-off sequence, filling in
// the run record as it goes.
func (r *Refresher) refresh(ctx context.Context, run *models.RefreshRun) error {
	done := observability.TimedOperation(ctx, r.logger, "guide_refresh")
	defer done()

	channels, err := r.fetcher.FetchGuide(ctx)
	if err != nil {
		return err
	}

	if len(channels) == 0 {
		// Observed upstream behavior: write nothing rather than replace a
		// good document with an empty one. See DESIGN.md for the caveat.
		r.logger.Warn("source returned empty guide, keeping previous document")
		run.Outcome = models.RefreshOutcomeSkippedEmpty
		return nil
	}

	doc := r.translator.Translate(channels)
	run.ChannelCount = len(doc.Channels)
	run.ProgrammeCount = len(doc.Programmes)

	if err := r.writeDocument(doc); err != nil {
		return err
	}

	run.Outcome = models.RefreshOutcomeOK
	if r.metrics != nil {
		r.metrics.LastRefreshUnix.Set(float64(r.now().Unix()))
		r.metrics.GuideChannels.Set(float64(run.ChannelCount))
		r.metrics.GuideProgrammes.Set(float64(run.ProgrammeCount))
	}

	r.logger.Info("guide written",
		slog.Int("channels", run.ChannelCount),
		slog.Int("programmes", run.ProgrammeCount),
		slog.String("path", r.outputPath),
	)

	if r.handoff != nil {
		if err := r.handoff.Deliver(ctx, r.outputPath); err != nil {
			// The written file remains valid for the next cycle and for
			// external polling.
			r.logger.Warn("guide hand-off failed", slog.String("error", err.Error()))
		} else {
			run.HandoffDelivered = true
		}
	}

	return nil
}

// writeDocument persists the document atomically at the configured path.
func (r *Refresher) writeDocument(doc *xmltv.Document) error {
	if err := os.MkdirAll(filepath.Dir(r.outputPath), 0o755); err != nil {
		return fmt.Errorf("creating guide directory: %w", err)
	}

	tmp := r.outputPath + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating guide document: %w", err)
	}

	writer := xmltv.NewWriter(file, r.translator.Location())
	if err := writer.WriteDocument(doc); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("writing guide document: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("closing guide document: %w", err)
	}

	if err := os.Rename(tmp, r.outputPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing guide document: %w", err)
	}
	return nil
}

// setState updates the execution state.
func (r *Refresher) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// restoreHistory seeds the last-success timestamp from persisted run
// history so status reporting survives a restart.
func (r *Refresher) restoreHistory(ctx context.Context) {
	if r.runs == nil {
		return
	}
	last, err := r.runs.GetLastSuccessful(ctx)
	if err != nil {
		r.logger.Warn("could not restore refresh history", slog.String("error", err.Error()))
		return
	}
	if last == nil {
		return
	}
	r.mu.Lock()
	r.lastSuccess = last.StartedAt
	r.mu.Unlock()
}

// pruneHistory removes run records older than the retention window.
func (r *Refresher) pruneHistory(ctx context.Context) {
	if r.runs == nil || r.retention <= 0 {
		return
	}
	deleted, err := r.runs.DeleteOlderThan(ctx, r.now().Add(-r.retention))
	if err != nil {
		r.logger.Warn("could not prune refresh history", slog.String("error", err.Error()))
		return
	}
	if deleted > 0 {
		r.logger.Debug("pruned refresh history", slog.Int64("deleted", deleted))
	}
}

// recordRun persists the run record; history failures are logged, never
// surfaced to the cycle.
func (r *Refresher) recordRun(ctx context.Context, run *models.RefreshRun) {
	if r.runs == nil {
		return
	}
	if err := r.runs.Create(ctx, run); err != nil {
		r.logger.Warn("could not record refresh run", slog.String("error", err.Error()))
	}
}
