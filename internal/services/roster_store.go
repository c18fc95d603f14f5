// Package services – RosterStore
//
// This file implements the roster state machine on top of the participant
// repository. Every write is one unit of work scoped to one participant, so a
// failure rolls back that participant only and the caller moves on.
//
// Transitions: active→active (re-observation or confirmed membership),
// active→departed (confirmed absence, or enough ambiguous verifications),
// departed→active (re-observation). Rows are never deleted.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-tgstats/internal/directory"
	"github.com/tbourn/go-tgstats/internal/domain"
	"github.com/tbourn/go-tgstats/internal/observability"
	"github.com/tbourn/go-tgstats/internal/repo"
)

// ParticipantRepo defines the repository contract required by RosterStore
// and ParticipantService.
type ParticipantRepo interface {
	// GetParticipant fetches the row of (channelID, userID).
	GetParticipant(ctx context.Context, db *gorm.DB, channelID, userID int64) (*domain.Participant, error)

	// GetParticipantByID fetches a row by surrogate key.
	GetParticipantByID(ctx context.Context, db *gorm.DB, id uint64) (*domain.Participant, error)

	// CreateParticipant inserts a new row.
	CreateParticipant(ctx context.Context, db *gorm.DB, p *domain.Participant) error

	// UpdateParticipantFields writes the given columns of row id.
	UpdateParticipantFields(ctx context.Context, db *gorm.DB, id uint64, fields map[string]any) error

	// ListStaleActive returns active rows last seen before cutoff.
	ListStaleActive(ctx context.Context, db *gorm.DB, channelID int64, cutoff time.Time) ([]domain.Participant, error)

	// StateCounts returns the number of active and departed rows.
	StateCounts(ctx context.Context, db *gorm.DB, channelID int64) (active, departed int64, err error)

	// CountParticipants counts rows, optionally filtered by state.
	CountParticipants(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState) (int64, error)

	// ListParticipantsPage returns a page of rows ordered by user id.
	ListParticipantsPage(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState, offset, limit int) ([]domain.Participant, error)

	// ParticipantsStats returns the count and latest updated_at for ETags.
	ParticipantsStats(ctx context.Context, db *gorm.DB, channelID int64, state domain.ParticipantState) (int64, *time.Time, error)
}

// UpsertResult is the outcome of one roster upsert.
type UpsertResult string

const (
	UpsertInserted    UpsertResult = "inserted"
	UpsertUpdated     UpsertResult = "updated"
	UpsertReactivated UpsertResult = "reactivated"
	UpsertFailed      UpsertResult = "failed"
)

// UpsertReport counts upsert results.
type UpsertReport struct {
	Inserted    int
	Updated     int
	Reactivated int
	Failed      int
}

// Add counts one result.
func (r *UpsertReport) Add(res UpsertResult) {
	switch res {
	case UpsertInserted:
		r.Inserted++
	case UpsertUpdated:
		r.Updated++
	case UpsertReactivated:
		r.Reactivated++
	default:
		r.Failed++
	}
}

// Verdict is the classification of one departure verification.
type Verdict string

const (
	VerdictMember    Verdict = "member"
	VerdictDeparted  Verdict = "departed"
	VerdictAmbiguous Verdict = "ambiguous"
	VerdictFailed    Verdict = "failed"
	// VerdictSkipped means the row changed under the sweep and was left alone.
	VerdictSkipped Verdict = "skipped"
)

// SweepReport summarizes a departure sweep.
//
// Ambiguous counts inconclusive lookups; those that reached the strike
// threshold are also counted in Departed.
type SweepReport struct {
	Candidates int
	Verified   int
	Departed   int
	Ambiguous  int
	Failed     int
}

// DefaultAmbiguousThreshold treats the first inconclusive verification as a
// confirmed absence.
const DefaultAmbiguousThreshold = 1

// RosterStore persists observations and runs the departure sweep.
type RosterStore struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the participant repository used by this store.
	Repo ParticipantRepo
	// Dir verifies membership during the sweep.
	Dir directory.Directory
	// AmbiguousThreshold is the number of consecutive inconclusive
	// verifications after which a participant is marked departed.
	AmbiguousThreshold int
	Log                *zerolog.Logger
}

// NewRosterStore constructs a RosterStore with the default strike threshold.
func NewRosterStore(db *gorm.DB, r ParticipantRepo, dir directory.Directory) *RosterStore {
	return &RosterStore{DB: db, Repo: r, Dir: dir, AmbiguousThreshold: DefaultAmbiguousThreshold}
}

func (s *RosterStore) logger() *zerolog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return &log.Logger
}

func (s *RosterStore) threshold() int {
	if s.AmbiguousThreshold < 1 {
		return DefaultAmbiguousThreshold
	}
	return s.AmbiguousThreshold
}

// Upsert records one observation of e in channelID at now. A new participant
// is inserted active. A known one gets its profile overwritten, its strikes
// reset and last_seen moved forward to now (never backwards); a departed one
// is reactivated. Storage failures are returned wrapped in ErrPersistence and
// leave the row untouched.
func (s *RosterStore) Upsert(ctx context.Context, channelID int64, e directory.Entity, now time.Time) (UpsertResult, error) {
	now = now.UTC()
	var res UpsertResult
	err := repo.RunUnit(ctx, s.DB, func(tx *gorm.DB) error {
		cur, err := s.Repo.GetParticipant(ctx, tx, channelID, e.ID)
		if errors.Is(err, repo.ErrNotFound) {
			p := &domain.Participant{
				ChannelID: channelID,
				UserID:    e.ID,
				State:     domain.StateActive,
				LastSeen:  now,
				FirstSeen: now,
			}
			applyProfile(p, e)
			res = UpsertInserted
			return s.Repo.CreateParticipant(ctx, tx, p)
		}
		if err != nil {
			return err
		}

		fields := profileFields(e)
		fields["absence_strikes"] = 0
		if now.After(cur.LastSeen) {
			fields["last_seen"] = now
		}
		res = UpsertUpdated
		if cur.State == domain.StateDeparted {
			fields["state"] = domain.StateActive
			fields["departed_at"] = nil
			res = UpsertReactivated
		}
		return s.Repo.UpdateParticipantFields(ctx, tx, cur.ID, fields)
	})
	if err != nil {
		observability.CountUpsert(string(UpsertFailed))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return UpsertFailed, ctxErr
		}
		return UpsertFailed, fmt.Errorf("%w: upsert channel %d user %d: %w", ErrPersistence, channelID, e.ID, err)
	}
	observability.CountUpsert(string(res))
	return res, nil
}

// UpsertAll upserts every entity with the same timestamp. Failures are
// logged and counted; the remaining entities are still processed. Only a
// canceled ctx stops it early.
func (s *RosterStore) UpsertAll(ctx context.Context, channelID int64, entities []directory.Entity, now time.Time) (UpsertReport, error) {
	var rep UpsertReport
	for _, e := range entities {
		res, err := s.Upsert(ctx, channelID, e, now)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return rep, ctxErr
			}
			s.logger().Error().Err(err).Int64("channel_id", channelID).Int64("user_id", e.ID).Msg("roster: upsert failed")
		}
		rep.Add(res)
	}
	return rep, nil
}

// SweepDepartures verifies every active participant of channelID not seen
// since now-threshold with one directory lookup each. Confirmed members are
// touched, confirmed absences are marked departed at now, and inconclusive
// lookups add a strike. Each participant is its own unit of work. A canceled
// ctx aborts the sweep without classifying the pending lookup.
func (s *RosterStore) SweepDepartures(ctx context.Context, channelID int64, threshold time.Duration, now time.Time) (SweepReport, error) {
	ctx, span := otel.Tracer("services/roster").Start(ctx, "RosterStore.SweepDepartures")
	defer span.End()

	now = now.UTC()
	cutoff := now.Add(-threshold)
	var rep SweepReport

	cands, err := s.Repo.ListStaleActive(ctx, s.DB, channelID, cutoff)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rep, ctxErr
		}
		return rep, fmt.Errorf("%w: list stale participants: %w", ErrPersistence, err)
	}
	rep.Candidates = len(cands)
	span.SetAttributes(attribute.Int64("channel.id", channelID), attribute.Int("sweep.candidates", rep.Candidates))

	for _, p := range cands {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		v, departed, err := s.verify(ctx, p, cutoff, now)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rep, ctxErr
		}
		switch v {
		case VerdictMember:
			rep.Verified++
		case VerdictDeparted:
			rep.Departed++
		case VerdictAmbiguous:
			rep.Ambiguous++
			if departed {
				rep.Departed++
			}
		case VerdictFailed:
			rep.Failed++
			s.logger().Error().Err(err).Int64("channel_id", channelID).Int64("user_id", p.UserID).Msg("roster: verification write failed")
		}
		if v != VerdictSkipped {
			observability.CountVerification(string(v))
		}
	}

	span.SetAttributes(attribute.Int("sweep.departed", rep.Departed), attribute.Int("sweep.ambiguous", rep.Ambiguous))
	return rep, nil
}

// verify looks p up once and applies the verdict in its own unit of work.
// departed reports whether the row ended up departed, which an ambiguous
// verdict does once the strike threshold is reached.
func (s *RosterStore) verify(ctx context.Context, p domain.Participant, cutoff, now time.Time) (Verdict, bool, error) {
	ent, lerr := s.Dir.Lookup(ctx, p.ChannelID, p.UserID)
	if ctx.Err() != nil {
		return VerdictSkipped, false, ctx.Err()
	}

	verdict := VerdictAmbiguous
	switch {
	case lerr == nil && ent != nil && ent.IsMember():
		verdict = VerdictMember
	case lerr == nil, directory.IsAbsence(lerr):
		verdict = VerdictDeparted
	default:
		s.logger().Warn().Err(fmt.Errorf("%w: %w", ErrVerificationAmbiguous, lerr)).
			Int64("channel_id", p.ChannelID).Int64("user_id", p.UserID).
			Msg("roster: membership verification inconclusive")
	}

	var departed bool
	err := repo.RunUnit(ctx, s.DB, func(tx *gorm.DB) error {
		cur, err := s.Repo.GetParticipantByID(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		// Observed or swept since the candidate list was read.
		if !cur.IsActive() || !cur.LastSeen.Before(cutoff) {
			verdict = VerdictSkipped
			return nil
		}

		fields := map[string]any{}
		switch verdict {
		case VerdictMember:
			fields["last_seen"] = now
			fields["absence_strikes"] = 0
		case VerdictDeparted:
			fields["state"] = domain.StateDeparted
			fields["departed_at"] = now
			departed = true
		case VerdictAmbiguous:
			strikes := cur.AbsenceStrikes + 1
			fields["absence_strikes"] = strikes
			if strikes >= s.threshold() {
				fields["state"] = domain.StateDeparted
				fields["departed_at"] = now
				departed = true
			}
		}
		return s.Repo.UpdateParticipantFields(ctx, tx, cur.ID, fields)
	})
	if err != nil {
		if ctx.Err() != nil {
			return VerdictSkipped, false, ctx.Err()
		}
		return VerdictFailed, false, fmt.Errorf("%w: verify channel %d user %d: %w", ErrPersistence, p.ChannelID, p.UserID, err)
	}
	return verdict, departed, nil
}

// applyProfile copies the observed profile onto a new row.
func applyProfile(p *domain.Participant, e directory.Entity) {
	p.Username = cleanName(e.Username)
	p.FirstName = cleanName(e.FirstName)
	p.LastName = cleanName(e.LastName)
	p.Phone = phonePtr(e.Phone)
	p.IsBot = e.IsBot
	p.Raw = e.RawJSON()
}

// profileFields returns the column map that overwrites a row's profile.
func profileFields(e directory.Entity) map[string]any {
	return map[string]any{
		"username":   cleanName(e.Username),
		"first_name": cleanName(e.FirstName),
		"last_name":  cleanName(e.LastName),
		"phone":      phonePtr(e.Phone),
		"is_bot":     e.IsBot,
		"raw":        e.RawJSON(),
	}
}

// cleanName trims s and puts it in NFC so equal names compare equal.
func cleanName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func phonePtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
