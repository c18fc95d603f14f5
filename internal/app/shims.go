package app

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-tgstats/internal/domain"
	"github.com/tbourn/go-tgstats/internal/repo"
)

// ParticipantRepo adapts the repo free functions to services.ParticipantRepo.
type ParticipantRepo struct{}

// GetParticipant proxies repo.GetParticipant.
func (ParticipantRepo) GetParticipant(ctx context.Context, db *gorm.DB, channelID, userID int64) (*domain.Participant, error) {
	return repo.GetParticipant(ctx, db, channelID, userID)
}

// GetParticipantByID proxies repo.GetParticipantByID.
func (ParticipantRepo) GetParticipantByID(ctx context.Context, db *gorm.DB, id uint64) (*domain.Participant, error) {
	return repo.GetParticipantByID(ctx, db, id)
}

// CreateParticipant proxies repo.CreateParticipant.
func (ParticipantRepo) CreateParticipant(ctx context.Context, db *gorm.DB, p *domain.Participant) error {
	return repo.CreateParticipant(ctx, db, p)
}

// UpdateParticipantFields proxies repo.UpdateParticipantFields.
func (ParticipantRepo) UpdateParticipantFields(ctx context.Context, db *gorm.DB, id uint64, fields map[string]any) error {
	return repo.UpdateParticipantFields(ctx, db, id, fields)
}

// ListStaleActive proxies repo.ListStaleActive.
func (ParticipantRepo) ListStaleActive(ctx context.Context, db *gorm.DB, channelID int64, cutoff time.Time) ([]domain.Participant, error) {
	return repo.ListStaleActive(ctx, db, channelID, cutoff)
}

// CountParticipants proxies repo.CountParticipants.
func (ParticipantRepo) CountParticipants(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState) (int64, error) {
	return repo.CountParticipants(ctx, db, channelID, state)
}

// ListParticipantsPage proxies repo.ListParticipantsPage.
func (ParticipantRepo) ListParticipantsPage(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState, offset, limit int) ([]domain.Participant, error) {
	return repo.ListParticipantsPage(ctx, db, channelID, state, offset, limit)
}

// ParticipantsStats proxies repo.ParticipantsStats (ETag support).
func (ParticipantRepo) ParticipantsStats(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState) (int64, *time.Time, error) {
	return repo.ParticipantsStats(ctx, db, channelID, state)
}

// StateCounts proxies repo.StateCounts.
func (ParticipantRepo) StateCounts(ctx context.Context, db *gorm.DB, channelID int64) (int64, int64, error) {
	return repo.StateCounts(ctx, db, channelID)
}

// RunRepo adapts the repo free functions to services.RunRepo.
type RunRepo struct{}

// CreateRun proxies repo.CreateRun.
func (RunRepo) CreateRun(ctx context.Context, db *gorm.DB, channelID int64, source string, startedAt time.Time) (*domain.HarvestRun, error) {
	return repo.CreateRun(ctx, db, channelID, source, startedAt)
}

// FinishRun proxies repo.FinishRun.
func (RunRepo) FinishRun(ctx context.Context, db *gorm.DB, r *domain.HarvestRun) error {
	return repo.FinishRun(ctx, db, r)
}

// CreateProbes proxies repo.CreateProbes.
func (RunRepo) CreateProbes(ctx context.Context, db *gorm.DB, probes []domain.HarvestProbe) error {
	return repo.CreateProbes(ctx, db, probes)
}

// GetRun proxies repo.GetRun.
func (RunRepo) GetRun(ctx context.Context, db *gorm.DB, id string) (*domain.HarvestRun, error) {
	return repo.GetRun(ctx, db, id)
}

// CountRuns proxies repo.CountRuns.
func (RunRepo) CountRuns(ctx context.Context, db *gorm.DB, channelID int64) (int64, error) {
	return repo.CountRuns(ctx, db, channelID)
}

// ListRunsPage proxies repo.ListRunsPage.
func (RunRepo) ListRunsPage(ctx context.Context, db *gorm.DB, channelID int64, offset, limit int) ([]domain.HarvestRun, error) {
	return repo.ListRunsPage(ctx, db, channelID, offset, limit)
}

// ListProbes proxies repo.ListProbes.
func (RunRepo) ListProbes(ctx context.Context, db *gorm.DB, runID string) ([]domain.HarvestProbe, error) {
	return repo.ListProbes(ctx, db, runID)
}
