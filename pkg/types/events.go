package types

import (
	"encoding/json"
	"fmt"
)

// Envelope is the frame every socket message travels in: a type discriminator
// plus an opaque payload. DecodeEvent turns it into one of the typed events
// below.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ClientMessage is the outbound frame. Data is marshaled as-is.
type ClientMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	EventPlayerJoined       = "player_joined"
	EventPlayerReady        = "player_ready"
	EventGameStarted        = "game_started"
	EventInitialState       = "initial_state"
	EventPlayerMoved        = "player_moved"
	EventTurnEnded          = "turn_ended"
	EventDiceRolled         = "dice_rolled"
	EventPlayerConnected    = "player_connected"
	EventPlayerDisconnected = "player_disconnected"
	EventDiceError          = "dice_error"

	// EventConnectionFailed is synthesized by the transport when the
	// reconnect budget is exhausted; the server never sends it.
	EventConnectionFailed = "connection_failed"

	// EventWildcard registers a handler for every inbound envelope.
	EventWildcard = "*"
)

// Outbound message types.
const (
	MessageMove    = "move"
	MessageEndTurn = "end_turn"
)

// Event is the decoded form of an inbound envelope.
type Event interface{ isEvent() }

type PlayerJoined struct {
	Player Player
}

type PlayerReady struct {
	Player Player
}

type GameStarted struct {
	SessionID       string `json:"session_id"`
	CurrentPlayerID int    `json:"current_player_id"`
}

type InitialState struct {
	Positions       map[int]Position `json:"positions"`
	CurrentPlayerID int              `json:"current_player_id"`
	Turn            int              `json:"turn"`
}

type PlayerMoved struct {
	UserID   int      `json:"user_id"`
	Position Position `json:"position"`
}

type TurnEnded struct {
	NextPlayerID int `json:"next_player_id"`
	Turn         int `json:"turn"`
}

type DiceRolled struct {
	UserID int            `json:"user_id"`
	Result DiceRollResult `json:"result"`
}

type PlayerConnected struct {
	UserID int `json:"user_id"`
}

type PlayerDisconnected struct {
	UserID int `json:"user_id"`
}

type DiceError struct {
	Message string `json:"message"`
}

type ConnectionFailed struct{}

// UnknownEvent carries any type the client has no decoder for, so new server
// event kinds degrade gracefully instead of silently matching nothing.
type UnknownEvent struct {
	Type string
	Data json.RawMessage
}

func (PlayerJoined) isEvent()       {}
func (PlayerReady) isEvent()        {}
func (GameStarted) isEvent()        {}
func (InitialState) isEvent()       {}
func (PlayerMoved) isEvent()        {}
func (TurnEnded) isEvent()          {}
func (DiceRolled) isEvent()         {}
func (PlayerConnected) isEvent()    {}
func (PlayerDisconnected) isEvent() {}
func (DiceError) isEvent()          {}
func (ConnectionFailed) isEvent()   {}
func (UnknownEvent) isEvent()       {}

// DecodeEvent maps an envelope onto its typed event. A malformed payload for
// a known type is an error; an unrecognized type is not.
func DecodeEvent(env Envelope) (Event, error) {
	switch env.Type {
	case EventPlayerJoined:
		var ev PlayerJoined
		if err := json.Unmarshal(env.Data, &ev.Player); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil

	case EventPlayerReady:
		var ev PlayerReady
		if err := json.Unmarshal(env.Data, &ev.Player); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil

	case EventGameStarted:
		var ev GameStarted
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil

	case EventInitialState:
		var ev InitialState
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil

	case EventPlayerMoved:
		var ev PlayerMoved
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil

	case EventTurnEnded:
		var ev TurnEnded
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil

	case EventDiceRolled:
		var ev DiceRolled
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil

	case EventPlayerConnected:
		var ev PlayerConnected
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil

	case EventPlayerDisconnected:
		var ev PlayerDisconnected
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil

	case EventDiceError:
		var ev DiceError
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil

	case EventConnectionFailed:
		return ConnectionFailed{}, nil

	default:
		return UnknownEvent{Type: env.Type, Data: env.Data}, nil
	}
}
