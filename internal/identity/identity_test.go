package identity

import (
	"path/filepath"
	"testing"
)

func TestDefaultsWhenFileAbsent(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "identity.json"))
	if got := s.PlayerName(); got != DefaultName {
		t.Fatalf("expected %q, got %q", DefaultName, got)
	}
	if got := s.ProfileImage(); got != DefaultImage {
		t.Fatalf("expected %q, got %q", DefaultImage, got)
	}
}

func TestSetPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	s := Open(path)
	if err := s.Set(KeyPlayerName, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(KeyProfileImage, "https://i.ibb.co/a.png"); err != nil {
		t.Fatal(err)
	}

	reopened := Open(path)
	if got := reopened.PlayerName(); got != "alice" {
		t.Fatalf("name not persisted: %q", got)
	}
	if got := reopened.ProfileImage(); got != "https://i.ibb.co/a.png" {
		t.Fatalf("image not persisted: %q", got)
	}
}

func TestGetUnknownKeyIsEmpty(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "identity.json"))
	if got := s.Get("nope"); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}
