// Package app is the composition root: it opens the store, reconciles the
// schema, builds the directory client and wires the services, the scheduler
// and the HTTP handlers. cmd/harvester only adds the process lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-tgstats/internal/config"
	"github.com/tbourn/go-tgstats/internal/directory"
	"github.com/tbourn/go-tgstats/internal/http/handlers"
	"github.com/tbourn/go-tgstats/internal/observability"
	"github.com/tbourn/go-tgstats/internal/repo"
	"github.com/tbourn/go-tgstats/internal/scheduler"
	"github.com/tbourn/go-tgstats/internal/schema"
	"github.com/tbourn/go-tgstats/internal/services"
)

// App holds the wired components of one harvester process.
type App struct {
	DB        *gorm.DB
	Schema    *schema.Reconciler
	Harvester *services.Harvester
	Scheduler *scheduler.Scheduler
	Handlers  *handlers.Handlers
}

// New opens the database, brings its schema up to date and wires every
// component from cfg. A schema that cannot be reconciled is fatal for the
// caller: no harvest may write to an incompatible store.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	rec, err := reconcile(ctx, db)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	dir, err := NewDirectory(cfg.Directory)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	alpha, err := services.ResolveAlphabet(cfg.Harvest)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("probe alphabet: %w", err)
	}

	a := Wire(db, dir, alpha, rec, cfg.Harvest)
	a.Schema = rec
	return a, nil
}

// Wire builds the services, the scheduler and the handlers on top of an open
// db and a directory. It neither opens nor migrates anything.
func Wire(db *gorm.DB, dir directory.Directory, alpha services.Alphabet, sc handlers.SchemaChecker, hc config.HarvestConfig) *App {
	store := services.NewRosterStore(db, ParticipantRepo{}, dir)
	store.AmbiguousThreshold = hc.AmbiguousThreshold

	h := &services.Harvester{
		DB:   db,
		Runs: RunRepo{},
		Crawler: &services.Crawler{
			Dir:            dir,
			Alphabet:       alpha,
			PageLimit:      hc.PageLimit,
			MaxPagesPerKey: hc.MaxPagesPerKey,
			Concurrency:    hc.Concurrency,
		},
		Store:     store,
		Staleness: hc.Staleness,
		Channels:  hc.ChannelIDs,
	}

	ps := &services.ParticipantService{DB: db, Repo: ParticipantRepo{}, Channels: hc.ChannelIDs}
	rs := &services.RunService{DB: db, Repo: RunRepo{}, Channels: hc.ChannelIDs}

	return &App{
		DB:        db,
		Harvester: h,
		Scheduler: &scheduler.Scheduler{
			Runner:     h,
			Interval:   hc.Interval,
			RunOnStart: hc.RunOnStart,
			Source:     services.SourceSchedule,
		},
		Handlers: handlers.New(ps, rs, h, sc),
	}
}

// NewDirectory returns the fixture directory when one is configured, the
// HTTP gateway client otherwise, wrapped in rate limiting and retries.
func NewDirectory(cfg config.DirectoryConfig) (directory.Directory, error) {
	var next directory.Directory
	switch {
	case cfg.Fixture != "":
		st, err := directory.LoadFixture(cfg.Fixture)
		if err != nil {
			return nil, fmt.Errorf("directory fixture: %w", err)
		}
		log.Warn().Str("fixture", cfg.Fixture).Msg("directory: serving from fixture")
		next = st
	case cfg.URL != "":
		next = directory.NewHTTPClient(cfg.URL, cfg.Token)
	default:
		return nil, errors.New("directory: neither URL nor fixture configured")
	}
	return directory.NewResilient(next, cfg), nil
}

// reconcile applies the additive schema difference and records it.
func reconcile(ctx context.Context, db *gorm.DB) (*schema.Reconciler, error) {
	eng, err := schema.NewGormEngine(db)
	if err != nil {
		return nil, fmt.Errorf("schema engine: %w", err)
	}
	rec := schema.NewReconciler(eng, schema.Expected())
	rep, err := rec.Reconcile(ctx)
	observability.CountSchemaChanges(len(rep.CreatedTables), len(rep.AddedColumns))
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("dialect", rep.Dialect).
		Strs("created_tables", rep.CreatedTables).
		Strs("added_columns", rep.AddedColumns).
		Msg("schema: reconciled")
	return rec, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
