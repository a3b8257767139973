package state

import (
	"context"
	"fmt"

	"github.com/gridplay/ttrpg-client/pkg/types"

	"golang.org/x/sync/errgroup"
)

// Loader is the slice of the REST client the cache needs to seed itself.
type Loader interface {
	GetSession(ctx context.Context, sessionID string) (types.Session, error)
	SessionPlayers(ctx context.Context, sessionID string) ([]types.Player, error)
	Characters(ctx context.Context) ([]types.Character, error)
}

// Cache is one session view's in-memory projection of session, players and
// the viewer's characters. It is a best-effort mirror: the server always
// wins, events patch by identifier, there is no merge logic. Exactly one
// goroutine (the owning controller's loop) mutates it.
type Cache struct {
	Session    types.Session
	Players    []types.Player
	Characters []types.Character
	Started    bool
}

// Seed performs the three lobby reads concurrently and joins them
// all-or-nothing: any failure leaves no partially populated cache behind.
func Seed(ctx context.Context, loader Loader, sessionID string) (*Cache, error) {
	var (
		session    types.Session
		players    []types.Player
		characters []types.Character
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		session, err = loader.GetSession(ctx, sessionID)
		return err
	})
	g.Go(func() error {
		var err error
		players, err = loader.SessionPlayers(ctx, sessionID)
		return err
	})
	g.Go(func() error {
		var err error
		characters, err = loader.Characters(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("state: seed session %s: %w", sessionID, err)
	}

	return &Cache{
		Session:    session,
		Players:    players,
		Characters: characters,
		Started:    session.Status == types.StatusActive,
	}, nil
}

// ApplyPlayerJoined appends the new membership record, preserving arrival
// order. The server sends each join once; no dedup beyond that.
func (c *Cache) ApplyPlayerJoined(p types.Player) {
	c.Players = append(c.Players, p)
}

// ApplyPlayerReady replaces the record matching the player's id, so repeated
// or out-of-order deliveries of the same logical event converge on the latest
// payload. An unseen id is appended rather than dropped.
func (c *Cache) ApplyPlayerReady(p types.Player) {
	for i := range c.Players {
		if c.Players[i].ID == p.ID {
			c.Players[i] = p
			return
		}
	}
	c.Players = append(c.Players, p)
}

// ApplyGameStarted flips the started flag and session status. Player data is
// untouched; navigation is the caller's business.
func (c *Cache) ApplyGameStarted() {
	c.Started = true
	c.Session.Status = types.StatusActive
}

// PlayerByUserID finds the membership record for a user, if any.
func (c *Cache) PlayerByUserID(userID int) (types.Player, bool) {
	for _, p := range c.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return types.Player{}, false
}

// CharacterByID finds one of the viewer's characters.
func (c *Cache) CharacterByID(id int) (types.Character, bool) {
	for _, ch := range c.Characters {
		if ch.ID == id {
			return ch, true
		}
	}
	return types.Character{}, false
}

// StartGate reports whether the session can be started: at least two players
// and every one of them ready. GMs are implicitly ready.
func (c *Cache) StartGate() bool {
	if len(c.Players) < 2 {
		return false
	}
	for _, p := range c.Players {
		if !p.IsGM && !p.IsReady {
			return false
		}
	}
	return true
}

// CanStart adds the creator-only condition on top of StartGate.
func (c *Cache) CanStart(userID int) bool {
	return c.Session.CreatorID == userID && c.StartGate()
}
