package wsstore

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/project-alluminati/alluminati-backend/internal/docstore"
	"github.com/project-alluminati/alluminati-backend/internal/ws"
)

// newGateway spins up a real gateway over an in-memory store and returns a
// connected client-side store.
func newGateway(t *testing.T) (*Store, *docstore.Memory) {
	t.Helper()

	backend := docstore.NewMemory()
	r := chi.NewRouter()
	r.Get("/ws", ws.Handler(backend, zap.NewNop()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	remote, err := Dial(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = remote.Close() })
	return remote, backend
}

func recvSnap(t *testing.T, ch <-chan docstore.Snapshot, within time.Duration) docstore.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return docstore.Snapshot{} // unreachable
	}
}

func TestRemoteSetGetRoundTrip(t *testing.T) {
	remote, _ := newGateway(t)
	ctx := context.Background()

	doc := map[string]any{"phase": "waiting", "votes": map[string]any{"A": 0, "B": 0}}
	if err := remote.Set(ctx, "482913", doc); err != nil {
		t.Fatal(err)
	}

	got, err := remote.Get(ctx, "482913")
	if err != nil {
		t.Fatal(err)
	}
	if got["phase"] != "waiting" {
		t.Fatalf("unexpected doc: %v", got)
	}
}

func TestRemoteGetMissingMapsToNotFound(t *testing.T) {
	remote, _ := newGateway(t)
	if _, err := remote.Get(context.Background(), "000000"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across the wire, got %v", err)
	}
}

func TestRemoteDottedUpdate(t *testing.T) {
	remote, backend := newGateway(t)
	ctx := context.Background()

	_ = backend.Set(ctx, "482913", map[string]any{"votes": map[string]any{"A": 0, "B": 0}})
	if err := remote.Update(ctx, "482913", map[string]any{"votes.A": 4}); err != nil {
		t.Fatal(err)
	}

	doc, _ := backend.Get(ctx, "482913")
	if doc["votes"].(map[string]any)["A"] != float64(4) {
		t.Fatalf("dotted update lost: %v", doc)
	}
}

func TestRemoteUpdateMissingMapsToNotFound(t *testing.T) {
	remote, _ := newGateway(t)
	err := remote.Update(context.Background(), "000000", map[string]any{"phase": "results"})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoteSubscribeStreamsSnapshots(t *testing.T) {
	remote, backend := newGateway(t)
	ctx := context.Background()

	snaps := make(chan docstore.Snapshot, 16)
	unsub, err := remote.Subscribe(ctx, "482913", func(s docstore.Snapshot) { snaps <- s })
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	if snap := recvSnap(t, snaps, time.Second); snap.Exists {
		t.Fatalf("expected initial not-exists, got %+v", snap)
	}

	_ = backend.Set(ctx, "482913", map[string]any{"round": float64(0)})
	snap := recvSnap(t, snaps, time.Second)
	if !snap.Exists || snap.Data["round"] != float64(0) {
		t.Fatalf("unexpected snapshot after set: %+v", snap)
	}

	_ = backend.Delete(ctx, "482913")
	if snap := recvSnap(t, snaps, time.Second); snap.Exists {
		t.Fatalf("expected not-exists after delete, got %+v", snap)
	}
}

func TestRemoteCreateAndList(t *testing.T) {
	remote, _ := newGateway(t)
	ctx := context.Background()

	id, err := remote.Create(ctx, map[string]any{"round": float64(1)})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	docs, err := remote.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[id]["round"] != float64(1) {
		t.Fatalf("unexpected listing: %v", docs)
	}
}

func TestRemoteDelete(t *testing.T) {
	remote, backend := newGateway(t)
	ctx := context.Background()

	_ = backend.Set(ctx, "482913", map[string]any{})
	if err := remote.Delete(ctx, "482913"); err != nil {
		t.Fatal(err)
	}
	if _, err := backend.Get(ctx, "482913"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("delete did not reach the backend: %v", err)
	}
}
