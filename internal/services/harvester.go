// Package services – Harvester
//
// This file implements one harvest run over a channel: crawl the directory
// with the probe alphabet, upsert every observation, sweep departures, and
// record the run with its per-key probe report. Runs for the same channel are
// mutually exclusive; a second caller gets ErrHarvestInProgress instead of
// waiting.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-tgstats/internal/directory"
	"github.com/tbourn/go-tgstats/internal/domain"
	"github.com/tbourn/go-tgstats/internal/observability"
)

// RunRepo defines the repository contract required by Harvester and
// RunService.
type RunRepo interface {
	// CreateRun inserts a running HarvestRun.
	CreateRun(ctx context.Context, db *gorm.DB, channelID int64, source string, startedAt time.Time) (*domain.HarvestRun, error)

	// FinishRun stores the final state of a run.
	FinishRun(ctx context.Context, db *gorm.DB, r *domain.HarvestRun) error

	// CreateProbes inserts the per-key report of a run.
	CreateProbes(ctx context.Context, db *gorm.DB, probes []domain.HarvestProbe) error

	// GetRun fetches one run by ID.
	GetRun(ctx context.Context, db *gorm.DB, id string) (*domain.HarvestRun, error)

	// CountRuns returns the number of runs of a channel.
	CountRuns(ctx context.Context, db *gorm.DB, channelID int64) (int64, error)

	// ListRunsPage returns a page of runs, most recent first.
	ListRunsPage(ctx context.Context, db *gorm.DB, channelID int64, offset, limit int) ([]domain.HarvestRun, error)

	// ListProbes returns the probe report of a run.
	ListProbes(ctx context.Context, db *gorm.DB, runID string) ([]domain.HarvestProbe, error)
}

// Run sources.
const (
	SourceSchedule = "schedule"
	SourceAPI      = "api"
)

// errNoCoverage marks a crawl in which every probe key failed.
var errNoCoverage = errors.New("every probe key failed, departure sweep skipped")

// Harvester runs crawl + sweep passes and records them.
type Harvester struct {
	// DB is the GORM handle used for run records.
	DB *gorm.DB
	// Runs is the run repository.
	Runs RunRepo

	Crawler *Crawler
	Store   *RosterStore

	// Staleness is the departure sweep threshold.
	Staleness time.Duration
	// Channels restricts Run to the configured channels. Empty allows any.
	Channels []int64
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	Log *zerolog.Logger

	locks sync.Map // channel id -> *sync.Mutex
}

func (h *Harvester) logger() *zerolog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return &log.Logger
}

func (h *Harvester) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

// Allowed reports whether channelID may be harvested.
func (h *Harvester) Allowed(channelID int64) bool {
	return len(h.Channels) == 0 || slices.Contains(h.Channels, channelID)
}

// Run harvests channelID once and returns the finished run record.
//
// The run is recorded even when it fails or is canceled. Errors:
//   - ErrUnknownChannel when channelID is not configured
//   - ErrHarvestInProgress when another run holds the channel
//   - ctx.Err() when canceled
//   - ErrPersistence when the run record cannot be written
func (h *Harvester) Run(ctx context.Context, channelID int64, source string) (*domain.HarvestRun, error) {
	if !h.Allowed(channelID) {
		return nil, ErrUnknownChannel
	}
	v, _ := h.locks.LoadOrStore(channelID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, ErrHarvestInProgress
	}
	defer mu.Unlock()

	ctx, span := otel.Tracer("services/harvester").Start(ctx, "Harvester.Run")
	defer span.End()
	span.SetAttributes(attribute.Int64("channel.id", channelID), attribute.String("harvest.source", source))

	started := h.now()
	run, err := h.Runs.CreateRun(ctx, h.DB, channelID, source, started)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: create run: %w", ErrPersistence, err)
	}
	lg := h.logger().With().Str("run_id", run.ID).Int64("channel_id", channelID).Str("source", source).Logger()
	lg.Info().Msg("harvest: started")

	var ups UpsertReport
	crawl, runErr := h.Crawler.Crawl(ctx, channelID, func(ctx context.Context, e directory.Entity) error {
		res, err := h.Store.Upsert(ctx, channelID, e, h.now())
		ups.Add(res)
		return err
	})

	var sweep SweepReport
	if runErr == nil {
		if len(crawl.Probes) > 0 && crawl.FailedKeys() == len(crawl.Probes) {
			runErr = errNoCoverage
		} else {
			sweep, runErr = h.Store.SweepDepartures(ctx, channelID, h.Staleness, h.now())
		}
	}

	run.Observed = crawl.Observed
	run.Inserted = ups.Inserted
	run.Updated = ups.Updated
	run.Reactivated = ups.Reactivated
	run.Failed = ups.Failed + sweep.Failed
	run.Departed = sweep.Departed
	run.Verified = sweep.Verified
	run.Ambiguous = sweep.Ambiguous
	run.ProbesFailed = crawl.FailedKeys()
	run.Status = domain.RunSucceeded
	switch {
	case runErr == nil:
	case ctx.Err() != nil:
		run.Status = domain.RunCanceled
		run.Error = ctx.Err().Error()
	default:
		run.Status = domain.RunFailed
		run.Error = runErr.Error()
	}
	finished := h.now()
	run.FinishedAt = &finished

	// The record is written even when ctx is already canceled.
	wctx := context.WithoutCancel(ctx)
	if err := h.Runs.CreateProbes(wctx, h.DB, probeRows(run.ID, crawl.Probes)); err != nil {
		lg.Error().Err(err).Msg("harvest: probe report not stored")
	}
	if err := h.Runs.FinishRun(wctx, h.DB, run); err != nil {
		lg.Error().Err(err).Msg("harvest: run record not finalized")
		if runErr == nil {
			runErr = fmt.Errorf("%w: finish run: %w", ErrPersistence, err)
		}
	}

	observability.ObserveHarvest(string(run.Status), finished.Sub(started))
	if active, departed, err := h.Store.Repo.StateCounts(wctx, h.DB, channelID); err == nil {
		observability.SetRosterSize(channelID, active, departed)
	}

	span.SetAttributes(attribute.String("harvest.status", string(run.Status)), attribute.Int("harvest.observed", run.Observed))
	ev := lg.Info()
	if run.Status != domain.RunSucceeded {
		ev = lg.Warn().Err(runErr)
	}
	ev.Str("status", string(run.Status)).
		Int("observed", run.Observed).
		Int("inserted", run.Inserted).
		Int("updated", run.Updated).
		Int("reactivated", run.Reactivated).
		Int("departed", run.Departed).
		Int("verified", run.Verified).
		Int("ambiguous", run.Ambiguous).
		Int("failed", run.Failed).
		Int("probes_failed", run.ProbesFailed).
		Dur("took", finished.Sub(started)).
		Msg("harvest: finished")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return run, ctxErr
	}
	if errors.Is(runErr, errNoCoverage) {
		return run, nil
	}
	return run, runErr
}

// RunAll harvests every configured channel sequentially. A failing channel
// does not stop the others; a canceled ctx does.
func (h *Harvester) RunAll(ctx context.Context, source string) error {
	for _, ch := range h.Channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := h.Run(ctx, ch, source); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			h.logger().Error().Err(err).Int64("channel_id", ch).Msg("harvest: run failed")
		}
	}
	return nil
}

// probeRows converts a crawl report into probe records.
func probeRows(runID string, probes []ProbeResult) []domain.HarvestProbe {
	out := make([]domain.HarvestProbe, 0, len(probes))
	for _, p := range probes {
		row := domain.HarvestProbe{
			RunID:       runID,
			ProbeKey:    p.Key,
			Pages:       p.Pages,
			Entities:    p.Entities,
			NewEntities: p.NewEntities,
		}
		switch {
		case p.Err != nil:
			row.Error = p.Err.Error()
		case p.Truncated:
			row.Error = "page cap reached"
		}
		out = append(out, row)
	}
	return out
}
