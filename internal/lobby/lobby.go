package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/gridplay/ttrpg-client/internal/state"
	"github.com/gridplay/ttrpg-client/pkg/types"

	"go.uber.org/zap"
)

var (
	ErrIsGameMaster        = errors.New("game masters do not select a character")
	ErrAlreadyReady        = errors.New("revoke ready before changing character")
	ErrNoCharacterSelected = errors.New("select a character first")
	ErrNotInSession        = errors.New("you are not a player in this session")
	ErrNotCreator          = errors.New("only the session creator can start the game")
	ErrNotAllReady         = errors.New("not every player is ready")
	ErrTooFewPlayers       = errors.New("need at least two players to start")
)

const callTimeout = 10 * time.Second

// API is the slice of the REST client the lobby drives.
type API interface {
	state.Loader
	SetReady(ctx context.Context, sessionID string, characterID int) (types.Player, error)
	StartSession(ctx context.Context, sessionID string) error
}

type Msg interface{ isLobbyMsg() }

type SelectCharacter struct {
	CharacterID int
	Reply       chan error
}

type ToggleReady struct {
	Reply chan error
}

type StartGame struct {
	Reply chan error
}

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

// fromServer wraps a decoded push event for the loop.
type fromServer struct {
	ev types.Event
}

func (SelectCharacter) isLobbyMsg() {}
func (ToggleReady) isLobbyMsg()     {}
func (StartGame) isLobbyMsg()       {}
func (GetState) isLobbyMsg()        {}
func (Shutdown) isLobbyMsg()        {}
func (fromServer) isLobbyMsg()      {}

// View mirrors controller state for tests and the CLI without data races.
type View struct {
	Session     types.Session
	Players     []types.Player
	Characters  []types.Character
	SelectedID  int
	Started     bool
	CanStart    bool
	LastMessage string
}

// Controller reconciles user actions in one session lobby with REST calls
// and folds resulting and pushed state into the cache. It owns the cache; all
// mutation happens on the loop goroutine.
type Controller struct {
	sessionID string
	userID    int
	api       API
	log       *zap.Logger

	inbox    chan Msg
	cache    *state.Cache
	selected int
	lastMsg  string

	started   chan struct{}
	startOnce bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New seeds the cache (all three reads must succeed) and starts the loop.
func New(parent context.Context, api API, sessionID string, userID int, log *zap.Logger) (*Controller, error) {
	cache, err := state.Seed(parent, api, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		sessionID: sessionID,
		userID:    userID,
		api:       api,
		log:       log,
		inbox:     make(chan Msg, 64),
		cache:     cache,
		started:   make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	go c.loop()
	return c, nil
}

func (c *Controller) Inbox() chan<- Msg { return c.inbox }

// Started is closed when the game_started push event arrives. Navigation into
// the game view keys off this, never off the start call's response.
func (c *Controller) Started() <-chan struct{} { return c.started }

// Bind subscribes the controller to its session socket. The conn is passed in
// explicitly; the controller never looks one up globally.
func (c *Controller) Bind(conn interface {
	On(eventType string, h func(types.Envelope))
}) {
	for _, t := range []string{
		types.EventPlayerJoined,
		types.EventPlayerReady,
		types.EventGameStarted,
		types.EventConnectionFailed,
	} {
		conn.On(t, c.deliver)
	}
}

func (c *Controller) deliver(env types.Envelope) {
	ev, err := types.DecodeEvent(env)
	if err != nil {
		c.log.Warn("dropping undecodable event", zap.String("type", env.Type), zap.Error(err))
		return
	}
	select {
	case c.inbox <- fromServer{ev: ev}:
	case <-c.ctx.Done():
	}
}

func (c *Controller) loop() {
	for {
		select {
		case <-c.ctx.Done():
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case SelectCharacter:
				msg.Reply <- c.selectCharacter(msg.CharacterID)

			case ToggleReady:
				msg.Reply <- c.toggleReady()

			case StartGame:
				msg.Reply <- c.startGame()

			case fromServer:
				c.applyEvent(msg.ev)

			case GetState:
				msg.Reply <- View{
					Session:     c.cache.Session,
					Players:     append([]types.Player(nil), c.cache.Players...),
					Characters:  append([]types.Character(nil), c.cache.Characters...),
					SelectedID:  c.selected,
					Started:     c.cache.Started,
					CanStart:    c.cache.CanStart(c.userID),
					LastMessage: c.lastMsg,
				}

			case Shutdown:
				c.cancel()
				return
			}
		}
	}
}

// selectCharacter is a purely local state change; no network call happens
// until the ready toggle.
func (c *Controller) selectCharacter(characterID int) error {
	me, ok := c.cache.PlayerByUserID(c.userID)
	if !ok {
		return ErrNotInSession
	}
	if me.IsGM {
		return ErrIsGameMaster
	}
	if me.IsReady {
		return ErrAlreadyReady
	}
	if _, ok := c.cache.CharacterByID(characterID); !ok {
		return ErrNoCharacterSelected
	}
	c.selected = characterID
	return nil
}

func (c *Controller) toggleReady() error {
	me, ok := c.cache.PlayerByUserID(c.userID)
	if !ok {
		return ErrNotInSession
	}
	if me.IsGM {
		// GMs are implicitly ready; the UI shows an indicator instead.
		return ErrIsGameMaster
	}
	if !me.IsReady && c.selected == 0 && me.CharacterID == nil {
		return ErrNoCharacterSelected
	}

	ctx, cancel := context.WithTimeout(c.ctx, callTimeout)
	defer cancel()
	updated, err := c.api.SetReady(ctx, c.sessionID, c.selected)
	if err != nil {
		c.lastMsg = err.Error()
		return err
	}

	// Fold the confirmed record; the cache never holds optimistic state.
	c.cache.ApplyPlayerReady(updated)
	return nil
}

func (c *Controller) startGame() error {
	if c.cache.Session.CreatorID != c.userID {
		return ErrNotCreator
	}
	if len(c.cache.Players) < 2 {
		return ErrTooFewPlayers
	}
	if !c.cache.StartGate() {
		return ErrNotAllReady
	}

	ctx, cancel := context.WithTimeout(c.ctx, callTimeout)
	defer cancel()
	if err := c.api.StartSession(ctx, c.sessionID); err != nil {
		c.lastMsg = err.Error()
		return err
	}
	// Success means a game_started event is coming; that event, not this
	// response, performs the transition. Keeps every client on one path.
	return nil
}

func (c *Controller) applyEvent(ev types.Event) {
	switch e := ev.(type) {
	case types.PlayerJoined:
		c.cache.ApplyPlayerJoined(e.Player)

	case types.PlayerReady:
		c.cache.ApplyPlayerReady(e.Player)

	case types.GameStarted:
		c.cache.ApplyGameStarted()
		if !c.startOnce {
			c.startOnce = true
			close(c.started)
		}

	case types.ConnectionFailed:
		c.lastMsg = "connection failed"
		c.log.Error("session connection failed", zap.String("session_id", c.sessionID))

	case types.UnknownEvent:
		c.log.Debug("ignoring unknown event", zap.String("type", e.Type))
	}
}
