// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Participant model (table channel_participants).
//
// All functions are context-aware and accept a *gorm.DB handle, so they can
// run on the root handle or on the transaction handed out by RunUnit. They
// follow the "thin repository" approach: no roster rules live here, only
// persistence and query composition. The state machine is enforced by
// services.RosterStore.
//
// Error semantics:
//   - When a participant is not found, functions return ErrNotFound
//     (gorm.ErrRecordNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-tgstats/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetParticipant fetches the row identified by (channelID, userID).
func GetParticipant(ctx context.Context, db *gorm.DB, channelID, userID int64) (*domain.Participant, error) {
	var p domain.Participant
	err := db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetParticipantByID fetches a row by surrogate key.
func GetParticipantByID(ctx context.Context, db *gorm.DB, id uint64) (*domain.Participant, error) {
	var p domain.Participant
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateParticipant inserts p. Zero-valued State and FirstSeen fall back to
// the column defaults; a zero UpdatedAt is set to the current UTC time.
func CreateParticipant(ctx context.Context, db *gorm.DB, p *domain.Participant) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(p).Error
}

// UpdateParticipantFields writes the given columns of row id and stamps
// updated_at with the current time. Zero values in fields are written as-is.
// Returns ErrNotFound when no row matched.
func UpdateParticipantFields(ctx context.Context, db *gorm.DB, id uint64, fields map[string]any) error {
	set := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		set[k] = v
	}
	set["updated_at"] = time.Now().UTC()

	res := db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("id = ?", id).
		Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStaleActive returns active participants of channelID whose last_seen
// is strictly before cutoff, oldest first.
func ListStaleActive(ctx context.Context, db *gorm.DB, channelID int64, cutoff time.Time) ([]domain.Participant, error) {
	var out []domain.Participant
	err := db.WithContext(ctx).
		Where("channel_id = ? AND state = ? AND last_seen < ?", channelID, domain.StateActive, cutoff.UTC()).
		Order("last_seen asc, id asc").
		Find(&out).Error
	return out, err
}

// participantScope filters by channel and, when state is non-empty, by state.
func participantScope(db *gorm.DB, channelID int64, state domain.ParticipantState) *gorm.DB {
	q := db.Model(&domain.Participant{}).Where("channel_id = ?", channelID)
	if state != "" {
		q = q.Where("state = ?", state)
	}
	return q
}

// CountParticipants counts the rows of channelID, optionally by state.
func CountParticipants(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState) (int64, error) {
	var total int64
	err := participantScope(db.WithContext(ctx), channelID, state).Count(&total).Error
	return total, err
}

// ListParticipantsPage returns a page of channelID's roster ordered by
// user id. The caller computes offset and limit.
func ListParticipantsPage(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState, offset, limit int) ([]domain.Participant, error) {
	var out []domain.Participant
	err := participantScope(db.WithContext(ctx), channelID, state).
		Order("user_id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ParticipantsStats returns the number of rows matching (channelID, state)
// and the most recent updated_at among them, for ETag generation. Any write
// to a row (observation, verification, departure) moves updated_at. When
// there are no rows, the timestamp is nil.
func ParticipantsStats(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState) (count int64, maxUpdatedAt *time.Time, err error) {
	q := participantScope(db.WithContext(ctx), channelID, state)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt *time.Time
	}
	q = participantScope(db.WithContext(ctx), channelID, state)
	if err = q.Select("updated_at").
		Where("updated_at IS NOT NULL").
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, row.UpdatedAt, nil
}

// StateCounts returns the number of active and departed rows of channelID.
func StateCounts(ctx context.Context, db *gorm.DB, channelID int64) (active, departed int64, err error) {
	var rows []struct {
		State domain.ParticipantState
		N     int64
	}
	err = db.WithContext(ctx).
		Model(&domain.Participant{}).
		Select("state, COUNT(*) AS n").
		Where("channel_id = ?", channelID).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch r.State {
		case domain.StateActive:
			active = r.N
		case domain.StateDeparted:
			departed = r.N
		}
	}
	return active, departed, nil
}
