package state

import (
	"context"
	"errors"
	"testing"

	"github.com/gridplay/ttrpg-client/pkg/types"
)

type fakeLoader struct {
	session    types.Session
	players    []types.Player
	characters []types.Character

	sessionErr error
	playersErr error
	charsErr   error
}

func (f *fakeLoader) GetSession(ctx context.Context, id string) (types.Session, error) {
	return f.session, f.sessionErr
}

func (f *fakeLoader) SessionPlayers(ctx context.Context, id string) ([]types.Player, error) {
	return f.players, f.playersErr
}

func (f *fakeLoader) Characters(ctx context.Context) ([]types.Character, error) {
	return f.characters, f.charsErr
}

func TestSeed_AllOrNothing(t *testing.T) {
	boom := errors.New("boom")

	cases := []struct {
		name    string
		loader  *fakeLoader
		wantErr bool
	}{
		{
			name: "all three reads succeed",
			loader: &fakeLoader{
				session: types.Session{ID: "s1", Status: types.StatusWaiting},
				players: []types.Player{{ID: 1, UserID: 10}},
			},
		},
		{
			name:    "session read fails",
			loader:  &fakeLoader{sessionErr: boom},
			wantErr: true,
		},
		{
			name:    "player read fails",
			loader:  &fakeLoader{playersErr: boom},
			wantErr: true,
		},
		{
			name:    "character read fails",
			loader:  &fakeLoader{charsErr: boom},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cache, err := Seed(context.Background(), tc.loader, "s1")
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				if cache != nil {
					t.Fatalf("failed seed must not return a partial cache")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if cache.Session.ID != "s1" || len(cache.Players) != 1 {
				t.Fatalf("unexpected cache: %+v", cache)
			}
		})
	}
}

func TestApplyPlayerJoined_PreservesArrivalOrder(t *testing.T) {
	c := &Cache{}
	c.ApplyPlayerJoined(types.Player{ID: 1, UserID: 10})
	c.ApplyPlayerJoined(types.Player{ID: 2, UserID: 11})

	if len(c.Players) != 2 {
		t.Fatalf("got %d players, want 2", len(c.Players))
	}
	if c.Players[0].UserID != 10 || c.Players[1].UserID != 11 {
		t.Fatalf("order broken: %+v", c.Players)
	}
}

func TestApplyPlayerReady_IdempotentReplace(t *testing.T) {
	c := &Cache{Players: []types.Player{
		{ID: 1, UserID: 10, IsReady: false},
		{ID: 2, UserID: 11, IsReady: false},
	}}

	// Any sequence of ready events leaves exactly one record per id with the
	// latest payload winning.
	c.ApplyPlayerReady(types.Player{ID: 1, UserID: 10, IsReady: true})
	c.ApplyPlayerReady(types.Player{ID: 1, UserID: 10, IsReady: true})
	c.ApplyPlayerReady(types.Player{ID: 1, UserID: 10, IsReady: false})

	if len(c.Players) != 2 {
		t.Fatalf("got %d players, want 2", len(c.Players))
	}
	count := 0
	for _, p := range c.Players {
		if p.ID == 1 {
			count++
			if p.IsReady {
				t.Fatalf("latest payload must win, got %+v", p)
			}
		}
	}
	if count != 1 {
		t.Fatalf("got %d records for id 1, want 1", count)
	}
}

func TestApplyPlayerReady_UnseenIDAppended(t *testing.T) {
	c := &Cache{}
	c.ApplyPlayerReady(types.Player{ID: 9, UserID: 42, IsReady: true})
	if len(c.Players) != 1 || c.Players[0].ID != 9 {
		t.Fatalf("unexpected players: %+v", c.Players)
	}
}

func TestStartGate(t *testing.T) {
	ready := func(id, user int) types.Player {
		return types.Player{ID: id, UserID: user, IsReady: true}
	}

	cases := []struct {
		name    string
		players []types.Player
		want    bool
	}{
		{
			name:    "single player never starts",
			players: []types.Player{ready(1, 10)},
			want:    false,
		},
		{
			name:    "two ready players start",
			players: []types.Player{ready(1, 10), ready(2, 11)},
			want:    true,
		},
		{
			name: "one unready player blocks",
			players: []types.Player{
				ready(1, 10),
				{ID: 2, UserID: 11, IsReady: false},
			},
			want: false,
		},
		{
			name: "unready GM does not block",
			players: []types.Player{
				ready(1, 10),
				{ID: 2, UserID: 11, IsGM: true},
			},
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Cache{Players: tc.players}
			if got := c.StartGate(); got != tc.want {
				t.Fatalf("StartGate: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanStart_CreatorOnly(t *testing.T) {
	c := &Cache{
		Session: types.Session{CreatorID: 10},
		Players: []types.Player{
			{ID: 1, UserID: 10, IsReady: true},
			{ID: 2, UserID: 11, IsReady: true},
		},
	}
	if !c.CanStart(10) {
		t.Fatalf("creator with full gate should be able to start")
	}
	if c.CanStart(11) {
		t.Fatalf("non-creator must not start")
	}
}

func TestApplyGameStarted_LeavesPlayersAlone(t *testing.T) {
	c := &Cache{
		Session: types.Session{Status: types.StatusWaiting},
		Players: []types.Player{{ID: 1, UserID: 10, IsReady: true}},
	}
	c.ApplyGameStarted()
	if !c.Started || c.Session.Status != types.StatusActive {
		t.Fatalf("started flag not folded: %+v", c)
	}
	if len(c.Players) != 1 || !c.Players[0].IsReady {
		t.Fatalf("player data must be untouched: %+v", c.Players)
	}
}
