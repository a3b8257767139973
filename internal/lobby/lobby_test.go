package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gridplay/ttrpg-client/pkg/types"

	"go.uber.org/zap"
)

func intp(v int) *int { return &v }

type fakeAPI struct {
	session    types.Session
	players    []types.Player
	characters []types.Character

	readyResp  types.Player
	readyErr   error
	readyCalls int

	startErr   error
	startCalls int
}

func (f *fakeAPI) GetSession(ctx context.Context, id string) (types.Session, error) {
	return f.session, nil
}

func (f *fakeAPI) SessionPlayers(ctx context.Context, id string) ([]types.Player, error) {
	return append([]types.Player(nil), f.players...), nil
}

func (f *fakeAPI) Characters(ctx context.Context) ([]types.Character, error) {
	return append([]types.Character(nil), f.characters...), nil
}

func (f *fakeAPI) SetReady(ctx context.Context, id string, characterID int) (types.Player, error) {
	f.readyCalls++
	return f.readyResp, f.readyErr
}

func (f *fakeAPI) StartSession(ctx context.Context, id string) error {
	f.startCalls++
	return f.startErr
}

type fakeConn struct {
	handlers map[string]func(types.Envelope)
}

func newFakeConn() *fakeConn {
	return &fakeConn{handlers: make(map[string]func(types.Envelope))}
}

func (f *fakeConn) On(eventType string, h func(types.Envelope)) {
	f.handlers[eventType] = h
}

func (f *fakeConn) push(t *testing.T, eventType string, payload any) {
	t.Helper()
	h, ok := f.handlers[eventType]
	if !ok {
		t.Fatalf("no handler bound for %s", eventType)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	h(types.Envelope{Type: eventType, Data: data})
}

func sendAndWait(t *testing.T, ctrl *Controller, msg Msg, reply <-chan error) error {
	t.Helper()
	ctrl.Inbox() <- msg
	select {
	case err := <-reply:
		return err
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for reply")
		return nil // unreachable
	}
}

func view(t *testing.T, ctrl *Controller) View {
	t.Helper()
	reply := make(chan View, 1)
	ctrl.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

// waitingLobby: user 7 owns the session with user 8; user 7 has one
// character available.
func waitingLobby() *fakeAPI {
	return &fakeAPI{
		session: types.Session{
			ID:         "s1",
			CreatorID:  7,
			Status:     types.StatusWaiting,
			MaxPlayers: 4,
		},
		players: []types.Player{
			{ID: 1, UserID: 7},
			{ID: 2, UserID: 8},
		},
		characters: []types.Character{
			{ID: 30, Name: "Brambles", Race: "gnome", Class: "wizard"},
		},
	}
}

func newController(t *testing.T, api *fakeAPI, userID int) (*Controller, *fakeConn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ctrl, err := New(ctx, api, "s1", userID, zap.NewNop())
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	conn := newFakeConn()
	ctrl.Bind(conn)
	return ctrl, conn
}

func TestSelectCharacter(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(api *fakeAPI)
		charID  int
		wantErr error
	}{
		{
			name:   "non-GM with unready state selects freely",
			setup:  func(*fakeAPI) {},
			charID: 30,
		},
		{
			name: "GM cannot select",
			setup: func(api *fakeAPI) {
				api.players[0].IsGM = true
			},
			charID:  30,
			wantErr: ErrIsGameMaster,
		},
		{
			name: "ready player is locked in",
			setup: func(api *fakeAPI) {
				api.players[0].IsReady = true
				api.players[0].CharacterID = intp(30)
			},
			charID:  30,
			wantErr: ErrAlreadyReady,
		},
		{
			name:    "unknown character id",
			setup:   func(*fakeAPI) {},
			charID:  999,
			wantErr: ErrNoCharacterSelected,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := waitingLobby()
			tc.setup(api)
			ctrl, _ := newController(t, api, 7)

			reply := make(chan error, 1)
			err := sendAndWait(t, ctrl, SelectCharacter{CharacterID: tc.charID, Reply: reply}, reply)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				if v := view(t, ctrl); v.SelectedID != tc.charID {
					t.Fatalf("selection not applied: %+v", v.SelectedID)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestToggleReady_RequiresSelectedCharacter(t *testing.T) {
	api := waitingLobby()
	ctrl, _ := newController(t, api, 7)

	reply := make(chan error, 1)
	err := sendAndWait(t, ctrl, ToggleReady{Reply: reply}, reply)
	if !errors.Is(err, ErrNoCharacterSelected) {
		t.Fatalf("got %v, want ErrNoCharacterSelected", err)
	}
	if api.readyCalls != 0 {
		t.Fatalf("precondition failure must not hit the network")
	}
}

func TestToggleReady_FoldsConfirmedRecord(t *testing.T) {
	api := waitingLobby()
	api.readyResp = types.Player{ID: 1, UserID: 7, CharacterID: intp(30), IsReady: true}
	ctrl, _ := newController(t, api, 7)

	selReply := make(chan error, 1)
	if err := sendAndWait(t, ctrl, SelectCharacter{CharacterID: 30, Reply: selReply}, selReply); err != nil {
		t.Fatalf("select: %v", err)
	}

	reply := make(chan error, 1)
	if err := sendAndWait(t, ctrl, ToggleReady{Reply: reply}, reply); err != nil {
		t.Fatalf("ready: %v", err)
	}

	v := view(t, ctrl)
	for _, p := range v.Players {
		if p.ID == 1 {
			if !p.IsReady || p.CharacterID == nil || *p.CharacterID != 30 {
				t.Fatalf("confirmed record not folded: %+v", p)
			}
			return
		}
	}
	t.Fatalf("player 1 missing from cache")
}

func TestToggleReady_FailureLeavesCacheUntouched(t *testing.T) {
	api := waitingLobby()
	api.readyErr = errors.New("503")
	ctrl, _ := newController(t, api, 7)

	selReply := make(chan error, 1)
	if err := sendAndWait(t, ctrl, SelectCharacter{CharacterID: 30, Reply: selReply}, selReply); err != nil {
		t.Fatalf("select: %v", err)
	}

	reply := make(chan error, 1)
	if err := sendAndWait(t, ctrl, ToggleReady{Reply: reply}, reply); err == nil {
		t.Fatalf("expected the REST error through")
	}

	v := view(t, ctrl)
	for _, p := range v.Players {
		if p.IsReady {
			t.Fatalf("no optimistic mutation allowed: %+v", p)
		}
	}
}

func TestToggleReady_GMGetsIndicatorNotToggle(t *testing.T) {
	api := waitingLobby()
	api.players[0].IsGM = true
	ctrl, _ := newController(t, api, 7)

	reply := make(chan error, 1)
	err := sendAndWait(t, ctrl, ToggleReady{Reply: reply}, reply)
	if !errors.Is(err, ErrIsGameMaster) {
		t.Fatalf("got %v, want ErrIsGameMaster", err)
	}
	if api.readyCalls != 0 {
		t.Fatalf("GM toggle must not hit the network")
	}
}

func TestStartGame_Gate(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(api *fakeAPI)
		userID  int
		wantErr error
	}{
		{
			name: "creator with everyone ready starts",
			setup: func(api *fakeAPI) {
				api.players[0].IsReady = true
				api.players[1].IsReady = true
			},
			userID: 7,
		},
		{
			name: "non-creator rejected",
			setup: func(api *fakeAPI) {
				api.players[0].IsReady = true
				api.players[1].IsReady = true
			},
			userID:  8,
			wantErr: ErrNotCreator,
		},
		{
			name: "unready player blocks",
			setup: func(api *fakeAPI) {
				api.players[0].IsReady = true
			},
			userID:  7,
			wantErr: ErrNotAllReady,
		},
		{
			name: "single player blocks",
			setup: func(api *fakeAPI) {
				api.players = api.players[:1]
				api.players[0].IsReady = true
			},
			userID:  7,
			wantErr: ErrTooFewPlayers,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := waitingLobby()
			tc.setup(api)
			ctrl, _ := newController(t, api, tc.userID)

			reply := make(chan error, 1)
			err := sendAndWait(t, ctrl, StartGame{Reply: reply}, reply)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				if api.startCalls != 1 {
					t.Fatalf("expected one start call, got %d", api.startCalls)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
			if api.startCalls != 0 {
				t.Fatalf("gated start must not hit the network")
			}
		})
	}
}

func TestStartGame_NavigationIsEventDriven(t *testing.T) {
	api := waitingLobby()
	api.players[0].IsReady = true
	api.players[1].IsReady = true
	ctrl, conn := newController(t, api, 7)

	reply := make(chan error, 1)
	if err := sendAndWait(t, ctrl, StartGame{Reply: reply}, reply); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The REST response alone does not navigate.
	select {
	case <-ctrl.Started():
		t.Fatalf("Started closed before the push event")
	case <-time.After(50 * time.Millisecond):
	}

	conn.push(t, types.EventGameStarted, types.GameStarted{SessionID: "s1", CurrentPlayerID: 7})

	select {
	case <-ctrl.Started():
	case <-time.After(time.Second):
		t.Fatalf("game_started push must close Started")
	}
	if v := view(t, ctrl); !v.Started {
		t.Fatalf("started flag not folded")
	}
}

func TestPlayerJoinedEventsKeepArrivalOrder(t *testing.T) {
	api := waitingLobby()
	ctrl, conn := newFakePair(t, api)

	conn.push(t, types.EventPlayerJoined, types.Player{ID: 3, UserID: 10})
	conn.push(t, types.EventPlayerJoined, types.Player{ID: 4, UserID: 11})

	v := view(t, ctrl)
	n := len(v.Players)
	if n < 2 || v.Players[n-2].UserID != 10 || v.Players[n-1].UserID != 11 {
		t.Fatalf("arrival order broken: %+v", v.Players)
	}
}

func newFakePair(t *testing.T, api *fakeAPI) (*Controller, *fakeConn) {
	t.Helper()
	return newController(t, api, 7)
}

func TestPlayerReadyEventReplacesById(t *testing.T) {
	api := waitingLobby()
	ctrl, conn := newController(t, api, 7)

	conn.push(t, types.EventPlayerReady, types.Player{ID: 2, UserID: 8, CharacterID: intp(41), IsReady: true})
	conn.push(t, types.EventPlayerReady, types.Player{ID: 2, UserID: 8, CharacterID: intp(41), IsReady: true})

	v := view(t, ctrl)
	count := 0
	for _, p := range v.Players {
		if p.ID == 2 {
			count++
			if !p.IsReady {
				t.Fatalf("latest payload must win: %+v", p)
			}
		}
	}
	if count != 1 {
		t.Fatalf("duplicate events produced %d records", count)
	}
}
