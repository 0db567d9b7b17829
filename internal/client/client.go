// Package client ties the per-device loops together: identity, the session
// subscription, the heartbeat ticker, stale eviction on every delivery, the
// round coordinator's timer lifecycle, avatar uploads, and the best-effort
// leave on teardown.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/project-alluminati/alluminati-backend/internal/docstore"
	"github.com/project-alluminati/alluminati-backend/internal/identity"
	"github.com/project-alluminati/alluminati-backend/internal/imgupload"
	"github.com/project-alluminati/alluminati-backend/internal/lobby"
	"github.com/project-alluminati/alluminati-backend/internal/round"
	"github.com/project-alluminati/alluminati-backend/internal/session"
)

// leaveTimeout bounds the teardown write. If it doesn't finish in time the
// player lingers until eviction, which the protocol accepts.
const leaveTimeout = 2 * time.Second

var ErrNoUploader = errors.New("client: no image uploader configured")

type Client struct {
	store    docstore.Store
	lobby    *lobby.Manager
	round    *round.Coordinator
	ident    *identity.Store
	uploader *imgupload.Uploader
	log      *zap.Logger

	playerID string

	mu     sync.Mutex
	image  string
	latest session.Record
	live   bool
}

// New builds a client whose identity comes from the device store, falling
// back to the stock name and avatar. uploader may be nil when avatar uploads
// are not needed.
func New(store docstore.Store, ident *identity.Store, uploader *imgupload.Uploader, log *zap.Logger, opts lobby.Options, votingDuration time.Duration) *Client {
	name := ident.PlayerName()
	return &Client{
		store:    store,
		lobby:    lobby.NewManager(store, log, opts),
		round:    round.NewCoordinator(store, log, name, votingDuration),
		ident:    ident,
		uploader: uploader,
		log:      log,
		playerID: name,
		image:    ident.ProfileImage(),
	}
}

func (c *Client) PlayerID() string { return c.playerID }

// ProfileImage returns the avatar URL the client currently presents.
func (c *Client) ProfileImage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image
}

// SetAvatar uploads the image and persists its hosted URL as this device's
// profile image. On failure the previous image is kept.
func (c *Client) SetAvatar(ctx context.Context, image []byte) error {
	if c.uploader == nil {
		return ErrNoUploader
	}
	url, err := c.uploader.Upload(ctx, image)
	if err != nil {
		c.log.Warn("avatar upload failed, keeping previous image", zap.Error(err))
		return err
	}
	if err := c.ident.Set(identity.KeyProfileImage, url); err != nil {
		return err
	}
	c.mu.Lock()
	c.image = url
	c.mu.Unlock()
	c.log.Info("avatar updated", zap.String("url", url))
	return nil
}

// CreateLobby creates a fresh lobby with this client as host.
func (c *Client) CreateLobby(ctx context.Context) (string, error) {
	return c.lobby.Create(ctx, c.playerID, c.ProfileImage())
}

// JoinLobby joins an existing lobby; lobby.ErrNotFound on a bad code.
func (c *Client) JoinLobby(ctx context.Context, code string) error {
	return c.lobby.Join(ctx, code, c.playerID, c.ProfileImage())
}

// StartGame begins the round sequence (host only, silently ignored
// otherwise).
func (c *Client) StartGame(ctx context.Context, code string) error {
	return c.round.Start(ctx, code)
}

// Vote casts this instance's single vote for the current voting phase.
func (c *Client) Vote(ctx context.Context, code string, choice round.Choice) error {
	return c.round.Vote(ctx, code, choice)
}

// NextRound advances past the results screen (host only).
func (c *Client) NextRound(ctx context.Context, code string) error {
	return c.round.Next(ctx, code)
}

// Run attaches the client to a session until ctx ends: subscribes, starts
// the heartbeat, applies stale eviction to every delivery, and feeds the
// round coordinator. On return, pending timers are stopped, the
// subscription is torn down, and the leave write has been attempted.
func (c *Client) Run(ctx context.Context, code string) error {
	unsub, err := c.lobby.Subscribe(ctx, code, func(rec session.Record, ok bool) {
		if !ok {
			c.setState(session.Record{}, false)
			return
		}
		rec.Players = c.lobby.EvictStale(ctx, code, rec.Players, time.Now())
		c.round.ObserveSnapshot(ctx, code, rec)
		c.setState(rec, true)
	})
	if err != nil {
		return err
	}

	go c.lobby.RunHeartbeat(ctx, code, c.playerID)

	<-ctx.Done()

	c.round.Stop()
	unsub()

	leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	c.lobby.Leave(leaveCtx, code, c.playerID)
	return nil
}

// State returns the last observed session record; ok is false before the
// first delivery or after the record disappeared.
func (c *Client) State() (session.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.live
}

func (c *Client) setState(rec session.Record, live bool) {
	c.mu.Lock()
	c.latest = rec
	c.live = live
	c.mu.Unlock()
}
