package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-tgstats/internal/domain"
)

// CreateRun inserts a running HarvestRun for channelID with a fresh UUID.
func CreateRun(ctx context.Context, db *gorm.DB, channelID int64, source string, startedAt time.Time) (*domain.HarvestRun, error) {
	r := &domain.HarvestRun{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Source:    source,
		Status:    domain.RunRunning,
		StartedAt: startedAt.UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// FinishRun stores every field of r, including zero counters.
func FinishRun(ctx context.Context, db *gorm.DB, r *domain.HarvestRun) error {
	res := db.WithContext(ctx).Model(r).Select("*").Updates(r)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateProbes inserts the per-key report of a run.
func CreateProbes(ctx context.Context, db *gorm.DB, probes []domain.HarvestProbe) error {
	if len(probes) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(probes, 100).Error
}

// GetRun fetches one run by ID.
func GetRun(ctx context.Context, db *gorm.DB, id string) (*domain.HarvestRun, error) {
	var r domain.HarvestRun
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRuns returns the number of runs recorded for channelID.
func CountRuns(ctx context.Context, db *gorm.DB, channelID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.HarvestRun{}).
		Where("channel_id = ?", channelID).
		Count(&total).Error
	return total, err
}

// ListRunsPage returns runs of channelID, most recent first.
func ListRunsPage(ctx context.Context, db *gorm.DB, channelID int64, offset, limit int) ([]domain.HarvestRun, error) {
	var out []domain.HarvestRun
	err := db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("started_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListProbes returns the probe report of a run in key order.
func ListProbes(ctx context.Context, db *gorm.DB, runID string) ([]domain.HarvestProbe, error) {
	var out []domain.HarvestProbe
	err := db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id asc").
		Find(&out).Error
	return out, err
}
