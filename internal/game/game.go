package game

import (
	"context"
	"time"

	"github.com/gridplay/ttrpg-client/pkg/types"

	"go.uber.org/zap"
)

const callTimeout = 10 * time.Second

// Sender is the slice of the session transport the controller needs.
// Satisfied by *transport.Conn.
type Sender interface {
	Send(ctx context.Context, msg types.ClientMessage) error
	Connected() bool
}

// DiceAPI submits roll requests over REST. The result shown to everyone
// arrives via the dice_rolled push event, never from this call's response.
type DiceAPI interface {
	RollDice(ctx context.Context, formula string) (types.DiceRollResult, error)
}

type Msg interface{ isGameMsg() }

type Move struct {
	To    types.Position
	Reply chan error
}

type EndTurn struct {
	Reply chan error
}

type RollDice struct {
	Formula string
	Reply   chan error
}

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

type fromServer struct {
	ev types.Event
}

func (Move) isGameMsg()       {}
func (EndTurn) isGameMsg()    {}
func (RollDice) isGameMsg()   {}
func (GetState) isGameMsg()   {}
func (Shutdown) isGameMsg()   {}
func (fromServer) isGameMsg() {}

// View mirrors controller state for tests and the CLI.
type View struct {
	Positions   map[int]types.Position
	CurrentTurn int
	Turn        int
	MyTurn      bool
	LastRoll    *types.DiceRollResult
	LastRollBy  int
	LastMessage string
	Failed      bool
}

// Controller runs one user's in-game loop for a session: it validates local
// actions, sends them, and folds authoritative push events into the state.
type Controller struct {
	userID int
	conn   Sender
	dice   DiceAPI
	log    *zap.Logger

	inbox   chan Msg
	state   State
	lastMsg string
	failed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, conn Sender, dice DiceAPI, userID int, log *zap.Logger) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		userID: userID,
		conn:   conn,
		dice:   dice,
		log:    log,
		inbox:  make(chan Msg, 64),
		state:  NewState(),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.loop()
	return c
}

func (c *Controller) Inbox() chan<- Msg { return c.inbox }

// Bind subscribes the controller to the in-game push events on its conn.
func (c *Controller) Bind(conn interface {
	On(eventType string, h func(types.Envelope))
}) {
	for _, t := range []string{
		types.EventGameStarted,
		types.EventInitialState,
		types.EventPlayerMoved,
		types.EventTurnEnded,
		types.EventDiceRolled,
		types.EventPlayerConnected,
		types.EventPlayerDisconnected,
		types.EventDiceError,
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
			case Move:
				msg.Reply <- c.move(msg.To)

			case EndTurn:
				msg.Reply <- c.endTurn()

			case RollDice:
				msg.Reply <- c.rollDice(msg.Formula)

			case fromServer:
				c.applyEvent(msg.ev)

			case GetState:
				positions := make(map[int]types.Position, len(c.state.Positions))
				for id, pos := range c.state.Positions {
					positions[id] = pos
				}
				msg.Reply <- View{
					Positions:   positions,
					CurrentTurn: c.state.CurrentTurn,
					Turn:        c.state.Turn,
					MyTurn:      c.state.MyTurn(c.userID),
					LastRoll:    c.state.LastRoll,
					LastRollBy:  c.state.LastRollBy,
					LastMessage: c.lastMsg,
					Failed:      c.failed,
				}

			case Shutdown:
				c.cancel()
				return
			}
		}
	}
}

// move sends a move request only when every local precondition holds: my
// turn, transport connected, target in range. A violation is a local-only
// rejection; nothing goes out and the position is unchanged.
func (c *Controller) move(to types.Position) error {
	if err := ValidateMove(c.state, c.userID, to); err != nil {
		c.lastMsg = err.Error()
		return err
	}
	if !c.conn.Connected() {
		c.lastMsg = "not connected"
		return ErrDisconnected
	}

	ctx, cancel := context.WithTimeout(c.ctx, callTimeout)
	defer cancel()
	if err := c.conn.Send(ctx, types.ClientMessage{Type: types.MessageMove, Data: to}); err != nil {
		c.lastMsg = err.Error()
		return err
	}
	// The echoed player_moved event updates the position; no local guess.
	return nil
}

func (c *Controller) endTurn() error {
	if !c.state.MyTurn(c.userID) {
		c.lastMsg = ErrNotYourTurn.Error()
		return ErrNotYourTurn
	}
	if !c.conn.Connected() {
		c.lastMsg = "not connected"
		return ErrDisconnected
	}

	ctx, cancel := context.WithTimeout(c.ctx, callTimeout)
	defer cancel()
	if err := c.conn.Send(ctx, types.ClientMessage{Type: types.MessageEndTurn}); err != nil {
		c.lastMsg = err.Error()
		return err
	}
	// Flip locally right away; the next turn_ended event stays authoritative.
	c.state.CurrentTurn = 0
	return nil
}

func (c *Controller) rollDice(formula string) error {
	if _, err := ParseFormula(formula); err != nil {
		c.lastMsg = err.Error()
		return err
	}

	ctx, cancel := context.WithTimeout(c.ctx, callTimeout)
	defer cancel()
	if _, err := c.dice.RollDice(ctx, formula); err != nil {
		c.lastMsg = err.Error()
		return err
	}
	// Display state only changes on the dice_rolled event, so every
	// participant sees the same roll through the same path.
	return nil
}

func (c *Controller) applyEvent(ev types.Event) {
	switch e := ev.(type) {
	case types.DiceError:
		c.lastMsg = e.Message

	case types.ConnectionFailed:
		c.failed = true
		c.lastMsg = "connection failed"

	case types.UnknownEvent:
		c.log.Debug("ignoring unknown event", zap.String("type", e.Type))

	default:
		c.state.Apply(ev)
	}
}
