// Package domain defines the persistence models for channel rosters and the
// harvest runs that keep them current. These types are mapped with GORM; the
// storage structure itself is owned by the schema package, which keeps the
// live database in line with them.
package domain

import (
	"time"
)

// ParticipantState is the membership state of a roster row.
type ParticipantState string

const (
	// StateActive marks a participant observed as a member.
	StateActive ParticipantState = "active"
	// StateDeparted marks a participant whose absence has been confirmed.
	StateDeparted ParticipantState = "departed"
)

// Participant is one member of one channel, identified by (ChannelID, UserID).
// Rows are never deleted; departure is a soft state.
//
// Fields:
//   - ID: surrogate primary key.
//   - ChannelID / UserID: composite identity (unique index).
//   - Username, FirstName, LastName, Phone, IsBot: profile of the last observation.
//   - Raw: JSON document of the last observation as returned by the directory.
//   - State: active or departed.
//   - LastSeen: last time the member was observed or verified. Never moves backwards.
//   - DepartedAt: set only by a confirmed absence in the departure sweep.
//   - AbsenceStrikes: consecutive ambiguous verifications since the last observation.
//   - FirstSeen: time of the first observation.
//   - UpdatedAt: wall-clock time of the last write to the row (ETags).
type Participant struct {
	ID             uint64           `json:"id"              gorm:"primaryKey;autoIncrement"`
	ChannelID      int64            `json:"channel_id"      gorm:"not null;uniqueIndex:ux_participants_channel_user,priority:1"`
	UserID         int64            `json:"user_id"         gorm:"not null;uniqueIndex:ux_participants_channel_user,priority:2"`
	Username       string           `json:"username,omitempty"`
	FirstName      string           `json:"first_name,omitempty"`
	LastName       string           `json:"last_name,omitempty"`
	Phone          *string          `json:"phone,omitempty"`
	IsBot          bool             `json:"is_bot"          gorm:"not null;default:false"`
	Raw            string           `json:"-"               gorm:"type:text"`
	State          ParticipantState `json:"state"           gorm:"type:text;not null;default:'active'"`
	LastSeen       time.Time        `json:"last_seen"       gorm:"not null"`
	DepartedAt     *time.Time       `json:"departed_at,omitempty"`
	AbsenceStrikes int              `json:"absence_strikes" gorm:"not null;default:0"`
	FirstSeen      time.Time        `json:"first_seen"      gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time        `json:"updated_at"      gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName returns the database table name for Participant.
func (Participant) TableName() string { return "channel_participants" }

// IsActive reports whether the participant is currently a member.
func (p Participant) IsActive() bool { return p.State == StateActive }

// RunStatus is the terminal or current status of a harvest run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// HarvestRun records one crawl + sweep pass over a channel.
type HarvestRun struct {
	ID           string     `json:"id"            gorm:"type:char(36);primaryKey"`
	ChannelID    int64      `json:"channel_id"    gorm:"not null;index:idx_runs_channel_started,priority:1"`
	Source       string     `json:"source"        gorm:"type:text;not null"`
	Status       RunStatus  `json:"status"        gorm:"type:text;not null"`
	StartedAt    time.Time  `json:"started_at"    gorm:"not null;index:idx_runs_channel_started,priority:2"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Observed     int        `json:"observed"      gorm:"not null;default:0"`
	Inserted     int        `json:"inserted"      gorm:"not null;default:0"`
	Updated      int        `json:"updated"       gorm:"not null;default:0"`
	Reactivated  int        `json:"reactivated"   gorm:"not null;default:0"`
	Failed       int        `json:"failed"        gorm:"not null;default:0"`
	Departed     int        `json:"departed"      gorm:"not null;default:0"`
	Verified     int        `json:"verified"      gorm:"not null;default:0"`
	Ambiguous    int        `json:"ambiguous"     gorm:"not null;default:0"`
	ProbesFailed int        `json:"probes_failed" gorm:"not null;default:0"`
	Error        string     `json:"error,omitempty"`
}

// TableName returns the database table name for HarvestRun.
func (HarvestRun) TableName() string { return "harvest_runs" }

// HarvestProbe records what one probe key contributed to a run.
type HarvestProbe struct {
	ID          uint64    `json:"id"           gorm:"primaryKey;autoIncrement"`
	RunID       string    `json:"run_id"       gorm:"type:char(36);not null;index:idx_probes_run"`
	ProbeKey    string    `json:"probe_key"    gorm:"type:text;not null"`
	Pages       int       `json:"pages"        gorm:"not null;default:0"`
	Entities    int       `json:"entities"     gorm:"not null;default:0"`
	NewEntities int       `json:"new_entities" gorm:"not null;default:0"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"   gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName returns the database table name for HarvestProbe.
func (HarvestProbe) TableName() string { return "harvest_probes" }
