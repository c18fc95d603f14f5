package directory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultWindow mirrors the platform's cap on how deep one search can page.
const DefaultWindow = 10000

// Static is an in-memory Directory, used for dry runs from a YAML fixture
// and in tests. Search matches filter case-insensitively against username,
// first and last name, returns members only, ordered by id, and never pages
// past Window results.
type Static struct {
	Window int

	mu       sync.RWMutex
	channels map[int64]map[int64]Entity
}

// NewStatic builds a Static directory from channel id -> entities.
func NewStatic(channels map[int64][]Entity) *Static {
	s := &Static{Window: DefaultWindow, channels: map[int64]map[int64]Entity{}}
	for ch, ents := range channels {
		s.ensure(ch)
		for _, e := range ents {
			s.Put(ch, e)
		}
	}
	return s
}

type fixtureFile struct {
	Window   int `yaml:"window"`
	Channels []struct {
		ID      int64    `yaml:"id"`
		Members []Entity `yaml:"members"`
	} `yaml:"channels"`
}

// LoadFixture reads a YAML fixture:
//
//	window: 200
//	channels:
//	  - id: 1001
//	    members:
//	      - {id: 1, username: alice, first_name: Alice}
//	      - {id: 2, username: bob, status: left}
func LoadFixture(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f fixtureFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	s := NewStatic(nil)
	if f.Window > 0 {
		s.Window = f.Window
	}
	for _, ch := range f.Channels {
		s.ensure(ch.ID)
		for _, m := range ch.Members {
			if m.ID == 0 {
				return nil, fmt.Errorf("fixture %s: channel %d has a member without id", path, ch.ID)
			}
			s.Put(ch.ID, m)
		}
	}
	return s, nil
}

func (s *Static) ensure(channelID int64) map[int64]Entity {
	m, ok := s.channels[channelID]
	if !ok {
		m = map[int64]Entity{}
		s.channels[channelID] = m
	}
	return m
}

// Put adds or replaces an entity.
func (s *Static) Put(channelID int64, e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Raw = nil
	s.ensure(channelID)[e.ID] = e
}

// SetStatus changes the membership status of an entity, if present.
func (s *Static) SetStatus(channelID, userID int64, st MemberStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.channels[channelID][userID]; ok {
		e.Status = st
		s.channels[channelID][userID] = e
	}
}

// Remove deletes an entity so Lookup reports ErrNotFound.
func (s *Static) Remove(channelID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels[channelID], userID)
}

// Search implements Directory.
func (s *Static) Search(ctx context.Context, channelID int64, filter string, offset, limit int) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown channel %d", ErrUnavailable, channelID)
	}

	f := strings.ToLower(filter)
	var matched []Entity
	for _, e := range members {
		if !e.IsMember() {
			continue
		}
		if f == "" || strings.Contains(strings.ToLower(e.Username), f) ||
			strings.Contains(strings.ToLower(e.FirstName), f) ||
			strings.Contains(strings.ToLower(e.LastName), f) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if s.Window > 0 && len(matched) > s.Window {
		matched = matched[:s.Window]
	}
	if offset >= len(matched) || limit <= 0 {
		return []Entity{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return append([]Entity(nil), matched[offset:end]...), nil
}

// Lookup implements Directory.
func (s *Static) Lookup(ctx context.Context, channelID, userID int64) (*Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown channel %d", ErrUnavailable, channelID)
	}
	e, ok := members[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.IsMember() {
		return nil, ErrNotMember
	}
	return &e, nil
}
