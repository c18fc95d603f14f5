package directory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStatic_SearchFiltersPagesAndCaps(t *testing.T) {
	s := NewStatic(map[int64][]Entity{
		1: {
			{ID: 3, Username: "anna"},
			{ID: 1, Username: "alex"},
			{ID: 2, FirstName: "Boris"},
			{ID: 4, Username: "dana", Status: StatusLeft},
			{ID: 5, LastName: "Kuznetsova"},
		},
	})
	ctx := context.Background()

	page, err := s.Search(ctx, 1, "A", 0, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page) != 2 || page[0].ID != 1 || page[1].ID != 3 {
		t.Fatalf("first page = %+v", page)
	}
	page, _ = s.Search(ctx, 1, "a", 2, 2)
	if len(page) != 1 || page[0].ID != 5 {
		t.Fatalf("second page = %+v", page)
	}
	page, _ = s.Search(ctx, 1, "a", 10, 2)
	if len(page) != 0 {
		t.Fatalf("past the end should be empty, got %+v", page)
	}

	s.Window = 1
	page, _ = s.Search(ctx, 1, "", 0, 10)
	if len(page) != 1 {
		t.Fatalf("window cap not applied: %+v", page)
	}

	if _, err := s.Search(ctx, 2, "a", 0, 10); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unknown channel should be unavailable, got %v", err)
	}
}

func TestStatic_LookupStates(t *testing.T) {
	s := NewStatic(map[int64][]Entity{7: {{ID: 1}, {ID: 2, Status: StatusKicked}}})
	ctx := context.Background()

	if e, err := s.Lookup(ctx, 7, 1); err != nil || e.ID != 1 {
		t.Fatalf("member lookup: %+v %v", e, err)
	}
	if _, err := s.Lookup(ctx, 7, 2); !errors.Is(err, ErrNotMember) {
		t.Fatalf("kicked should be ErrNotMember, got %v", err)
	}
	if _, err := s.Lookup(ctx, 7, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user should be ErrNotFound, got %v", err)
	}

	s.SetStatus(7, 1, StatusLeft)
	if _, err := s.Lookup(ctx, 7, 1); !errors.Is(err, ErrNotMember) {
		t.Fatalf("left should be ErrNotMember, got %v", err)
	}
	s.Remove(7, 1)
	if _, err := s.Lookup(ctx, 7, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removed should be ErrNotFound, got %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.Lookup(cctx, 7, 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStatic_EmptyChannelIsKnown(t *testing.T) {
	s := NewStatic(map[int64][]Entity{7: {}})
	ctx := context.Background()

	page, err := s.Search(ctx, 7, "a", 0, 10)
	if err != nil || len(page) != 0 {
		t.Fatalf("empty channel search = %+v, %v", page, err)
	}
	if _, err := s.Lookup(ctx, 7, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lookup in empty channel should be ErrNotFound, got %v", err)
	}
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	yml := `
window: 50
channels:
  - id: 1001
    members:
      - {id: 1, username: alice, first_name: Alice, phone: "+100"}
      - {id: 2, username: bob, status: left}
  - id: 1002
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if s.Window != 50 {
		t.Fatalf("window = %d", s.Window)
	}
	e, err := s.Lookup(context.Background(), 1001, 1)
	if err != nil || e.Phone != "+100" || e.FirstName != "Alice" {
		t.Fatalf("lookup alice: %+v %v", e, err)
	}
	if page, err := s.Search(context.Background(), 1002, "", 0, 10); err != nil || len(page) != 0 {
		t.Fatalf("empty channel should search to nothing: %v %v", page, err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("channels:\n  - id: 1\n    members:\n      - {username: x}\n"), 0o600)
	if _, err := LoadFixture(bad); err == nil {
		t.Fatalf("expected error for member without id")
	}
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEntity_RawJSON(t *testing.T) {
	e := Entity{ID: 1, Username: "u"}
	if got := e.RawJSON(); got != `{"id":1,"username":"u"}` {
		t.Fatalf("RawJSON re-encode = %s", got)
	}
	e.Raw = []byte(`{"id":1,"x":true}`)
	if got := e.RawJSON(); got != `{"id":1,"x":true}` {
		t.Fatalf("RawJSON raw = %s", got)
	}
}
