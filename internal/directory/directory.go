// Package directory is the port to the remote participant directory of the
// messaging platform: a capped, paginated search by filter key and a single
// member lookup. Adapters live next to the port (HTTP gateway, YAML fixture)
// together with Resilient, which adds deadlines, retries and throttling.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MemberStatus is the membership status reported for an entity.
type MemberStatus string

const (
	StatusMember        MemberStatus = "member"
	StatusAdministrator MemberStatus = "administrator"
	StatusCreator       MemberStatus = "creator"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// Entity is one participant as returned by the directory.
type Entity struct {
	ID        int64           `json:"id"                   yaml:"id"`
	Username  string          `json:"username,omitempty"   yaml:"username"`
	FirstName string          `json:"first_name,omitempty" yaml:"first_name"`
	LastName  string          `json:"last_name,omitempty"  yaml:"last_name"`
	Phone     string          `json:"phone,omitempty"      yaml:"phone"`
	IsBot     bool            `json:"is_bot,omitempty"     yaml:"is_bot"`
	Status    MemberStatus    `json:"status,omitempty"     yaml:"status"`
	Raw       json.RawMessage `json:"-"                    yaml:"-"`
}

// IsMember reports whether the status counts as current membership. An empty
// status is a member: search only returns members.
func (e Entity) IsMember() bool {
	switch e.Status {
	case StatusLeft, StatusKicked:
		return false
	default:
		return true
	}
}

// RawJSON returns the original document, or a re-encoding of e when the
// adapter did not keep one.
func (e Entity) RawJSON() string {
	if len(e.Raw) > 0 {
		return string(e.Raw)
	}
	b, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	return string(b)
}

// Directory is the remote directory port.
//
// Search returns one page of the entities matching filter. Continuation is
// only valid within one filter: callers restart offset at 0 for every key.
// Lookup returns the entity if it is still a member, ErrNotMember when the
// directory states it left or was removed, and ErrNotFound when the account
// is unknown.
type Directory interface {
	Search(ctx context.Context, channelID int64, filter string, offset, limit int) ([]Entity, error)
	Lookup(ctx context.Context, channelID, userID int64) (*Entity, error)
}

var (
	// ErrNotMember is a confirmed absence: the user left or was removed.
	ErrNotMember = errors.New("not a member")
	// ErrNotFound means the account does not exist (deleted or never known).
	ErrNotFound = errors.New("entity not found")
	// ErrUnavailable wraps any failure to get an answer from the directory.
	ErrUnavailable = errors.New("directory unavailable")
)

// IsAbsence reports whether err confirms the user is no longer a member.
func IsAbsence(err error) bool {
	return errors.Is(err, ErrNotMember) || errors.Is(err, ErrNotFound)
}

// RetryAfterError is returned by adapters when the directory asks the
// caller to slow down.
type RetryAfterError struct {
	After time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("directory rate limited, retry after %s", e.After)
}

// Unwrap makes a rate limit an ErrUnavailable.
func (e *RetryAfterError) Unwrap() error { return ErrUnavailable }
