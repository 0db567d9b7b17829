// Package lobby owns session membership: lobby creation with collision-free
// join codes, idempotent join, heartbeats, stale-player eviction, best-effort
// leave, and the empty-lobby sweep.
//
// Every write here is a plain read-modify-write against the shared session
// document. Concurrent heartbeats from different players can interleave and
// one writer's update can be dropped; the eviction filter self-heals the
// record, so lost updates cost at worst one heartbeat window.
package lobby

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/project-alluminati/alluminati-backend/internal/docstore"
	"github.com/project-alluminati/alluminati-backend/internal/questions"
	"github.com/project-alluminati/alluminati-backend/internal/session"
)

const (
	codeCharset = "0123456789"
	codeLength  = 6

	// One attempt per possible code; past this the keyspace is exhausted
	// and looping further cannot succeed.
	maxCodeAttempts = 1_000_000
)

var ErrNotFound = docstore.ErrNotFound
var ErrCodesExhausted = errors.New("lobby: join code keyspace exhausted")

// Options tune the manager's intervals. Zero values take the defaults,
// which match the deployed protocol.
type Options struct {
	HeartbeatInterval time.Duration // default 5s
	StaleThreshold    time.Duration // default 15s
	SweepInterval     time.Duration // default 15m
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval == 0 {
		o.HeartbeatInterval = 5 * time.Second
	}
	if o.StaleThreshold == 0 {
		o.StaleThreshold = 15 * time.Second
	}
	if o.SweepInterval == 0 {
		o.SweepInterval = 15 * time.Minute
	}
	return o
}

type Manager struct {
	store docstore.Store
	log   *zap.Logger
	opts  Options
}

func NewManager(store docstore.Store, log *zap.Logger, opts Options) *Manager {
	return &Manager{store: store, log: log, opts: opts.withDefaults()}
}

// Create allocates an unused 6-digit code, writes the new session record
// with the creator as sole player and host, and returns the code. The
// generate-and-check loop re-rolls on collision and gives up only once the
// keyspace is exhausted.
func (m *Manager) Create(ctx context.Context, name, image string) (string, error) {
	code, err := m.freeCode(ctx)
	if err != nil {
		return "", err
	}

	now := time.Now().UnixMilli()
	rec := session.Record{
		Players: []session.Player{
			{ID: name, Name: name, Image: image, LastSeen: now, IsHost: true},
		},
		HostID:    name,
		Phase:     session.PhaseWaiting,
		Round:     0,
		Questions: questions.Pick(len(questions.Bank)),
		Votes:     session.Votes{},
	}
	if err := m.store.Set(ctx, code, session.Encode(rec)); err != nil {
		return "", fmt.Errorf("lobby: create %s: %w", code, err)
	}
	m.log.Info("lobby created", zap.String("code", code), zap.String("host", name))
	return code, nil
}

func (m *Manager) freeCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := generateCode()
		if err != nil {
			return "", fmt.Errorf("lobby: generate code: %w", err)
		}
		_, err = m.store.Get(ctx, code)
		if errors.Is(err, docstore.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("lobby: check code: %w", err)
		}
		m.log.Debug("code collision, regenerating", zap.String("code", code))
	}
	return "", ErrCodesExhausted
}

func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[n.Int64()]
	}
	return string(code), nil
}

// Join appends the player to an existing lobby. Joining a code that does not
// exist returns ErrNotFound and creates nothing. Joining twice with the same
// id is idempotent: the list is left untouched.
func (m *Manager) Join(ctx context.Context, code, name, image string) error {
	doc, err := m.store.Get(ctx, code)
	if err != nil {
		return err
	}
	rec := session.Decode(doc)
	if rec.FindPlayer(name) >= 0 {
		m.log.Debug("player already in lobby", zap.String("code", code), zap.String("player", name))
		return nil
	}
	players := append(rec.Players, session.Player{
		ID:       name,
		Name:     name,
		Image:    image,
		LastSeen: time.Now().UnixMilli(),
	})
	if err := m.store.Update(ctx, code, map[string]any{"players": session.EncodePlayers(players)}); err != nil {
		return fmt.Errorf("lobby: join %s: %w", code, err)
	}
	m.log.Info("player joined", zap.String("code", code), zap.String("player", name))
	return nil
}

// Heartbeat re-reads the player list and bumps only the caller's lastSeen.
// Failures are logged and swallowed; the next tick retries implicitly.
func (m *Manager) Heartbeat(ctx context.Context, code, playerID string) {
	doc, err := m.store.Get(ctx, code)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			m.log.Warn("heartbeat read failed", zap.String("code", code), zap.Error(err))
		}
		return
	}
	rec := session.Decode(doc)
	now := time.Now().UnixMilli()
	for i := range rec.Players {
		if rec.Players[i].ID == playerID {
			rec.Players[i].LastSeen = now
		}
	}
	err = m.store.Update(ctx, code, map[string]any{"players": session.EncodePlayers(rec.Players)})
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		m.log.Warn("heartbeat write failed", zap.String("code", code), zap.Error(err))
	}
}

// RunHeartbeat drives Heartbeat on the configured interval until ctx ends.
func (m *Manager) RunHeartbeat(ctx context.Context, code, playerID string) {
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Heartbeat(ctx, code, playerID)
		}
	}
}

// EvictStale filters players whose lastSeen is outside the threshold and
// writes the list back only when it shrank. Filtering an already-filtered
// list is a fixed point, so the write it triggers cannot loop: the follow-up
// snapshot filters to itself and no further write happens.
func (m *Manager) EvictStale(ctx context.Context, code string, players []session.Player, now time.Time) []session.Player {
	active := FilterActive(players, now, m.opts.StaleThreshold)
	if len(active) == len(players) {
		return players
	}
	err := m.store.Update(ctx, code, map[string]any{"players": session.EncodePlayers(active)})
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		m.log.Warn("stale eviction write failed", zap.String("code", code), zap.Error(err))
	} else {
		m.log.Info("evicted stale players",
			zap.String("code", code), zap.Int("removed", len(players)-len(active)))
	}
	return active
}

// FilterActive keeps players seen within the threshold before now.
func FilterActive(players []session.Player, now time.Time, threshold time.Duration) []session.Player {
	cutoff := now.UnixMilli() - threshold.Milliseconds()
	active := make([]session.Player, 0, len(players))
	for _, p := range players {
		if p.LastSeen >= cutoff {
			active = append(active, p)
		}
	}
	return active
}

// Leave removes the player and deletes the whole record when nobody is
// left. Called best-effort on client teardown; a lost race with shutdown is
// accepted, the sweep and eviction cover the remainder.
func (m *Manager) Leave(ctx context.Context, code, playerID string) {
	doc, err := m.store.Get(ctx, code)
	if err != nil {
		return
	}
	rec := session.Decode(doc)
	remaining := make([]session.Player, 0, len(rec.Players))
	for _, p := range rec.Players {
		if p.ID != playerID {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == 0 {
		if err := m.store.Delete(ctx, code); err != nil {
			m.log.Warn("empty lobby delete failed", zap.String("code", code), zap.Error(err))
			return
		}
		m.log.Info("lobby deleted, last player left", zap.String("code", code))
		return
	}
	err = m.store.Update(ctx, code, map[string]any{"players": session.EncodePlayers(remaining)})
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		m.log.Warn("leave write failed", zap.String("code", code), zap.Error(err))
	}
}

// SweepEmpty deletes every record whose player list is empty.
func (m *Manager) SweepEmpty(ctx context.Context) {
	docs, err := m.store.ListAll(ctx)
	if err != nil {
		m.log.Warn("sweep list failed", zap.Error(err))
		return
	}
	for code, doc := range docs {
		if len(session.Decode(doc).Players) > 0 {
			continue
		}
		if err := m.store.Delete(ctx, code); err != nil {
			m.log.Warn("sweep delete failed", zap.String("code", code), zap.Error(err))
			continue
		}
		m.log.Info("swept empty lobby", zap.String("code", code))
	}
}

// RunSweeper runs SweepEmpty once immediately and then on every sweep
// interval until ctx ends.
func (m *Manager) RunSweeper(ctx context.Context) {
	m.SweepEmpty(ctx)
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepEmpty(ctx)
		}
	}
}

// Subscribe adapts a raw document subscription into session records. A
// deleted or never-created document is delivered with ok=false.
func (m *Manager) Subscribe(ctx context.Context, code string, fn func(rec session.Record, ok bool)) (docstore.UnsubscribeFunc, error) {
	return m.store.Subscribe(ctx, code, func(snap docstore.Snapshot) {
		if !snap.Exists {
			fn(session.Record{}, false)
			return
		}
		fn(session.Decode(snap.Data), true)
	})
}

// StaleThreshold reports the configured eviction window.
func (m *Manager) StaleThreshold() time.Duration { return m.opts.StaleThreshold }
