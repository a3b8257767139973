package game

import (
	"errors"

	"github.com/gridplay/ttrpg-client/pkg/types"
)

// Board and movement constants. The server enforces the real rules; these
// local checks only stop requests that cannot possibly be legal.
const (
	BoardWidth  = 20
	BoardHeight = 15
	MoveRange   = 3
)

var (
	ErrNotYourTurn  = errors.New("not your turn")
	ErrNoPosition   = errors.New("no known position yet")
	ErrOffBoard     = errors.New("target is off the board")
	ErrOutOfRange   = errors.New("target is out of movement range")
	ErrDisconnected = errors.New("session connection is down")
)

// State is the in-game projection: positions keyed by user id plus the turn
// sub-state. Positions only ever come from initial_state / player_moved
// events; the client invents none.
type State struct {
	Positions map[int]types.Position

	// CurrentTurn is the turn holder's user id, 0 while unknown.
	CurrentTurn int
	// Turn is the server's monotonically increasing counter.
	Turn int

	LastRoll   *types.DiceRollResult
	LastRollBy int
}

func NewState() State {
	return State{Positions: make(map[int]types.Position)}
}

// MyTurn derives the local turn state from the turn holder.
func (s State) MyTurn(userID int) bool {
	return s.CurrentTurn != 0 && s.CurrentTurn == userID
}

func manhattan(a, b types.Position) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

func onBoard(p types.Position) bool {
	return p.X >= 0 && p.X < BoardWidth && p.Y >= 0 && p.Y < BoardHeight
}

// ValidateMove checks the local preconditions for sending a move request:
// it must be this user's turn, the user must have a server-confirmed
// position, and the target must be on the board within the per-turn range.
// Advisory only; the server remains the arbiter of legality.
func ValidateMove(s State, userID int, to types.Position) error {
	if !s.MyTurn(userID) {
		return ErrNotYourTurn
	}
	from, ok := s.Positions[userID]
	if !ok {
		return ErrNoPosition
	}
	if !onBoard(to) {
		return ErrOffBoard
	}
	if manhattan(from, to) > MoveRange {
		return ErrOutOfRange
	}
	return nil
}

// Apply folds one push event into the state. Events are authoritative and
// overwrite by key, so duplicate or re-sent deliveries converge.
func (s *State) Apply(ev types.Event) {
	switch e := ev.(type) {
	case types.InitialState:
		for id, pos := range e.Positions {
			s.Positions[id] = pos
		}
		if e.CurrentPlayerID != 0 {
			s.CurrentTurn = e.CurrentPlayerID
		}
		if e.Turn > s.Turn {
			s.Turn = e.Turn
		}

	case types.GameStarted:
		if e.CurrentPlayerID != 0 {
			s.CurrentTurn = e.CurrentPlayerID
		}

	case types.PlayerMoved:
		s.Positions[e.UserID] = e.Position

	case types.TurnEnded:
		s.CurrentTurn = e.NextPlayerID
		if e.Turn > s.Turn {
			s.Turn = e.Turn
		}

	case types.DiceRolled:
		result := e.Result
		s.LastRoll = &result
		s.LastRollBy = e.UserID

	case types.PlayerDisconnected:
		// Position stays; the player may reconnect. Nothing to fold.
	}
}
