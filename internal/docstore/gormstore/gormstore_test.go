package gormstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/project-alluminati/alluminati-backend/internal/docstore"
)

// Needs a reachable Postgres; set ALLUMINATI_TEST_DATABASE_DSN to run.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ALLUMINATI_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("ALLUMINATI_TEST_DATABASE_DSN not set")
	}
	s, err := Open(dsn)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPostgresRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	code := uuid.NewString()[:6]
	defer func() { _ = s.Delete(ctx, code) }()

	doc := map[string]any{"phase": "waiting", "votes": map[string]any{"A": float64(0), "B": float64(0)}}
	if err := s.Set(ctx, code, doc); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	if got["phase"] != "waiting" {
		t.Fatalf("unexpected doc: %v", got)
	}

	if err := s.Update(ctx, code, map[string]any{"votes.A": float64(2)}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, code)
	if got["votes"].(map[string]any)["A"] != float64(2) {
		t.Fatalf("dotted update lost: %v", got)
	}

	if err := s.Delete(ctx, code); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, code); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgresUpdateMissing(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(context.Background(), "zz-absent", map[string]any{"phase": "results"})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
