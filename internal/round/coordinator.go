// Package round drives the phase machine: waiting -> voting -> results,
// looping back to voting until the round bound. Phase and round changes are
// host-gated on the client side only; the store enforces nothing, matching
// the trust model of the rest of the protocol.
package round

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/project-alluminati/alluminati-backend/internal/docstore"
	"github.com/project-alluminati/alluminati-backend/internal/questions"
	"github.com/project-alluminati/alluminati-backend/internal/session"
)

const DefaultVotingDuration = 15 * time.Second

// Choice selects one of the two vote counters.
type Choice string

const (
	ChoiceA Choice = "A"
	ChoiceB Choice = "B"
)

// Placeholder subjects shown when a lobby has no players to draw from.
const (
	placeholderA = "Person A"
	placeholderB = "Person B"
)

// Coordinator is one client's view of the round machine. Exactly one
// Coordinator exists per client instance; its vote lock is what limits that
// instance to a single vote per voting phase. A second instance for the
// same player name can still vote again, which is the protocol's documented
// weakness, not something enforced here.
type Coordinator struct {
	store    docstore.Store
	log      *zap.Logger
	playerID string
	duration time.Duration

	mu         sync.Mutex
	voteLocked bool
	prevPhase  session.Phase
	timer      *time.Timer
}

func NewCoordinator(store docstore.Store, log *zap.Logger, playerID string, votingDuration time.Duration) *Coordinator {
	if votingDuration == 0 {
		votingDuration = DefaultVotingDuration
	}
	return &Coordinator{
		store:    store,
		log:      log,
		playerID: playerID,
		duration: votingDuration,
	}
}

// Start begins the round sequence. Non-host callers are a silent no-op.
// The session's questions are reshuffled and truncated to the round bound,
// the counters reset, and two subjects drawn from the current players.
func (c *Coordinator) Start(ctx context.Context, code string) error {
	rec, err := c.fetch(ctx, code)
	if err != nil {
		return err
	}
	if rec.HostID == "" || rec.HostID != c.playerID {
		c.log.Debug("start ignored, not host", zap.String("code", code))
		return nil
	}

	personA, personB := pickSubjects(rec.Players)
	fields := map[string]any{
		"questions": questions.Shuffle(truncate(rec.Questions, session.TotalRounds)),
		"round":     0,
		"phase":     string(session.PhaseVoting),
		"votes":     map[string]any{"A": 0, "B": 0},
		"personA":   personA,
		"personB":   personB,
	}
	if err := c.store.Update(ctx, code, fields); err != nil {
		return fmt.Errorf("round: start %s: %w", code, err)
	}
	c.log.Info("game started", zap.String("code", code))
	return nil
}

// Vote bumps one counter. Outside the voting phase the call is a no-op and
// the lock is left untouched. The first in-phase attempt locks this client
// instance until the next voting phase begins; later attempts are no-ops.
// The write is a read-then-write counter bump, not an atomic increment, so
// two clients voting at the same instant can collapse into one recorded
// vote.
func (c *Coordinator) Vote(ctx context.Context, code string, choice Choice) error {
	rec, err := c.fetch(ctx, code)
	if err != nil {
		return err
	}
	if rec.Phase != session.PhaseVoting {
		c.log.Debug("vote ignored outside voting", zap.String("code", code), zap.String("phase", string(rec.Phase)))
		return nil
	}

	c.mu.Lock()
	if c.voteLocked {
		c.mu.Unlock()
		c.log.Debug("vote blocked, already voted", zap.String("code", code))
		return nil
	}
	c.voteLocked = true
	c.mu.Unlock()

	current := rec.Votes.A
	if choice == ChoiceB {
		current = rec.Votes.B
	}
	field := "votes." + string(choice)
	if err := c.store.Update(ctx, code, map[string]any{field: current + 1}); err != nil {
		return fmt.Errorf("round: vote %s: %w", code, err)
	}
	c.log.Info("vote recorded", zap.String("code", code), zap.String("choice", string(choice)))
	return nil
}

// Next advances to the following round. Non-host callers are a no-op. Once
// the last round's results are showing, the session stays in results for
// good: there is no further transition, matching the protocol as shipped.
func (c *Coordinator) Next(ctx context.Context, code string) error {
	rec, err := c.fetch(ctx, code)
	if err != nil {
		return err
	}
	if rec.HostID == "" || rec.HostID != c.playerID {
		c.log.Debug("next ignored, not host", zap.String("code", code))
		return nil
	}
	if rec.Round+1 >= session.TotalRounds {
		c.log.Info("round sequence finished", zap.String("code", code), zap.Int("round", rec.Round))
		return nil
	}

	personA, personB := pickSubjects(rec.Players)
	fields := map[string]any{
		"round":   rec.Round + 1,
		"phase":   string(session.PhaseVoting),
		"votes":   map[string]any{"A": 0, "B": 0},
		"personA": personA,
		"personB": personB,
	}
	if err := c.store.Update(ctx, code, fields); err != nil {
		return fmt.Errorf("round: next %s: %w", code, err)
	}
	c.log.Info("round advanced", zap.String("code", code), zap.Int("round", rec.Round+1))
	return nil
}

// ObserveSnapshot feeds the coordinator one subscription delivery. Entering
// voting clears the vote lock and, on the host's client only, arms the
// countdown that closes the phase; leaving voting disarms it. If the host's
// client is gone mid-voting nobody closes the round.
func (c *Coordinator) ObserveSnapshot(ctx context.Context, code string, rec session.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entering := rec.Phase == session.PhaseVoting && c.prevPhase != session.PhaseVoting
	c.prevPhase = rec.Phase

	if rec.Phase != session.PhaseVoting {
		c.stopTimerLocked()
		return
	}
	if !entering {
		return
	}

	c.voteLocked = false
	if rec.HostID != c.playerID {
		return
	}

	c.stopTimerLocked()
	c.log.Debug("voting timer armed", zap.String("code", code), zap.Duration("duration", c.duration))
	c.timer = time.AfterFunc(c.duration, func() {
		err := c.store.Update(ctx, code, map[string]any{"phase": string(session.PhaseResults)})
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			c.log.Warn("voting close failed", zap.String("code", code), zap.Error(err))
			return
		}
		c.log.Info("voting closed", zap.String("code", code))
	})
}

// Stop cancels any pending timer; called on client teardown.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) fetch(ctx context.Context, code string) (session.Record, error) {
	doc, err := c.store.Get(ctx, code)
	if err != nil {
		return session.Record{}, err
	}
	return session.Decode(doc), nil
}

// pickSubjects draws two distinct player names by shuffling the list and
// taking the first two. With one player both subjects are that player; with
// none, placeholder labels. Deliberately permissive, not an error.
func pickSubjects(players []session.Player) (string, string) {
	switch len(players) {
	case 0:
		return placeholderA, placeholderB
	case 1:
		return players[0].Name, players[0].Name
	}
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	rand.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	return names[0], names[1]
}

func truncate(qs []string, n int) []string {
	if len(qs) <= n {
		return qs
	}
	return qs[:n]
}
