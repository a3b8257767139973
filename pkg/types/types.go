package types

// Wire records shared by the REST client and the session socket. Field names
// match the backend's JSON exactly; the client never invents values for
// server-owned fields (session status, turn holder, positions).

type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusActive   SessionStatus = "active"
	StatusFinished SessionStatus = "finished"
)

type User struct {
	ID       int    `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

type Session struct {
	ID         string        `json:"id"`
	CreatorID  int           `json:"creator_id"`
	Status     SessionStatus `json:"status"`
	MaxPlayers int           `json:"max_players"`
	Players    []Player      `json:"players"`
	CreatedAt  string        `json:"created_at,omitempty"`
}

// Player is a user's membership record within one session. CharacterID is nil
// until a character has been assigned; GMs never assign one.
type Player struct {
	ID          int  `json:"id"`
	UserID      int  `json:"user_id"`
	CharacterID *int `json:"character_id"`
	IsReady     bool `json:"is_ready"`
	IsGM        bool `json:"is_gm"`
}

type Character struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Race         string `json:"race"`
	Class        string `json:"class"`
	Strength     int    `json:"strength"`
	Dexterity    int    `json:"dexterity"`
	Intelligence int    `json:"intelligence"`
	Level        int    `json:"level,omitempty"`
	Experience   int    `json:"experience,omitempty"`
}

// Position is a cell on the board. The authoritative copy lives server-side;
// local copies only ever come from initial_state / player_moved events.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type DiceRollResult struct {
	Total    int    `json:"total"`
	Rolls    []int  `json:"rolls"`
	Formula  string `json:"formula"`
	DiceType string `json:"dice_type"`
}
