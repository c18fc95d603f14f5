package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-tgstats/internal/directory"
	"github.com/tbourn/go-tgstats/internal/domain"
	"github.com/tbourn/go-tgstats/internal/repo"
)

// ----- Repo shims over the real repository -----

type participantShim struct{}

func (participantShim) GetParticipant(ctx context.Context, db *gorm.DB, channelID, userID int64) (*domain.Participant, error) {
	return repo.GetParticipant(ctx, db, channelID, userID)
}

func (participantShim) GetParticipantByID(ctx context.Context, db *gorm.DB, id uint64) (*domain.Participant, error) {
	return repo.GetParticipantByID(ctx, db, id)
}

func (participantShim) CreateParticipant(ctx context.Context, db *gorm.DB, p *domain.Participant) error {
	return repo.CreateParticipant(ctx, db, p)
}

func (participantShim) UpdateParticipantFields(ctx context.Context, db *gorm.DB, id uint64, fields map[string]any) error {
	return repo.UpdateParticipantFields(ctx, db, id, fields)
}

func (participantShim) ListStaleActive(ctx context.Context, db *gorm.DB, channelID int64, cutoff time.Time) ([]domain.Participant, error) {
	return repo.ListStaleActive(ctx, db, channelID, cutoff)
}

func (participantShim) StateCounts(ctx context.Context, db *gorm.DB, channelID int64) (int64, int64, error) {
	return repo.StateCounts(ctx, db, channelID)
}

func (participantShim) CountParticipants(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState) (int64, error) {
	return repo.CountParticipants(ctx, db, channelID, state)
}

func (participantShim) ListParticipantsPage(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState, offset, limit int) ([]domain.Participant, error) {
	return repo.ListParticipantsPage(ctx, db, channelID, state, offset, limit)
}

func (participantShim) ParticipantsStats(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState) (int64, *time.Time, error) {
	return repo.ParticipantsStats(ctx, db, channelID, state)
}

type runShim struct{}

func (runShim) CreateRun(ctx context.Context, db *gorm.DB, channelID int64, source string, startedAt time.Time) (*domain.HarvestRun, error) {
	return repo.CreateRun(ctx, db, channelID, source, startedAt)
}

func (runShim) FinishRun(ctx context.Context, db *gorm.DB, r *domain.HarvestRun) error {
	return repo.FinishRun(ctx, db, r)
}

func (runShim) CreateProbes(ctx context.Context, db *gorm.DB, probes []domain.HarvestProbe) error {
	return repo.CreateProbes(ctx, db, probes)
}

func (runShim) GetRun(ctx context.Context, db *gorm.DB, id string) (*domain.HarvestRun, error) {
	return repo.GetRun(ctx, db, id)
}

func (runShim) CountRuns(ctx context.Context, db *gorm.DB, channelID int64) (int64, error) {
	return repo.CountRuns(ctx, db, channelID)
}

func (runShim) ListRunsPage(ctx context.Context, db *gorm.DB, channelID int64, offset, limit int) ([]domain.HarvestRun, error) {
	return repo.ListRunsPage(ctx, db, channelID, offset, limit)
}

func (runShim) ListProbes(ctx context.Context, db *gorm.DB, runID string) ([]domain.HarvestProbe, error) {
	return repo.ListProbes(ctx, db, runID)
}

// ----- Fixtures -----

// newTestDB opens a file-backed SQLite database with the harvester tables.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "roster.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := db.AutoMigrate(&domain.Participant{}, &domain.HarvestRun{}, &domain.HarvestProbe{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func mustGet(t *testing.T, db *gorm.DB, channelID, userID int64) *domain.Participant {
	t.Helper()
	p, err := repo.GetParticipant(context.Background(), db, channelID, userID)
	if err != nil {
		t.Fatalf("get participant %d/%d: %v", channelID, userID, err)
	}
	return p
}

func seed(t *testing.T, db *gorm.DB, p domain.Participant) *domain.Participant {
	t.Helper()
	if p.State == "" {
		p.State = domain.StateActive
	}
	if p.FirstSeen.IsZero() {
		p.FirstSeen = p.LastSeen
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.LastSeen
	}
	if err := repo.CreateParticipant(context.Background(), db, &p); err != nil {
		t.Fatalf("seed participant: %v", err)
	}
	return &p
}

func ent(id int64, username string) directory.Entity {
	return directory.Entity{ID: id, Username: username, Status: directory.StatusMember}
}

// scriptedDirectory serves search pages and lookups from maps and records
// every call.
type scriptedDirectory struct {
	mu       sync.Mutex
	pages    map[string][][]directory.Entity // key -> pages by index
	failKeys map[string]error
	lookups  map[int64]error // user -> lookup error; missing = member
	searches []string
	looked   []int64
}

func (d *scriptedDirectory) Search(ctx context.Context, channelID int64, filter string, offset, limit int) ([]directory.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.searches = append(d.searches, filter)
	if err, ok := d.failKeys[filter]; ok {
		return nil, err
	}
	pages := d.pages[filter]
	idx := offset / limit
	if idx >= len(pages) {
		return nil, nil
	}
	return pages[idx], nil
}

func (d *scriptedDirectory) Lookup(ctx context.Context, channelID, userID int64) (*directory.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.looked = append(d.looked, userID)
	if err, ok := d.lookups[userID]; ok && err != nil {
		return nil, err
	}
	e := ent(userID, "")
	return &e, nil
}
