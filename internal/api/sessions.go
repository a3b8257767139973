package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gridplay/ttrpg-client/pkg/types"
)

func (c *Client) CreateSession(ctx context.Context, maxPlayers int) (types.Session, error) {
	var out types.Session
	err := c.do(ctx, http.MethodPost, "/gamesessions/",
		map[string]int{"max_players": maxPlayers}, &out)
	return out, err
}

// WaitingSessions lists joinable lobbies.
func (c *Client) WaitingSessions(ctx context.Context) ([]types.Session, error) {
	var out []types.Session
	if err := c.do(ctx, http.MethodGet, "/gamesessions?status=waiting", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MySessions lists sessions the current user created.
func (c *Client) MySessions(ctx context.Context) ([]types.Session, error) {
	var out []types.Session
	if err := c.do(ctx, http.MethodGet, "/gamesessions/my-sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (types.Session, error) {
	var out types.Session
	err := c.do(ctx, http.MethodGet, "/gamesessions/"+url.PathEscape(sessionID), nil, &out)
	return out, err
}

func (c *Client) SessionPlayers(ctx context.Context, sessionID string) ([]types.Player, error) {
	var out []types.Player
	if err := c.do(ctx, http.MethodGet,
		"/gamesessions/"+url.PathEscape(sessionID)+"/players", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JoinSession adds the current user to the session. characterID 0 joins
// without a character; one is picked later in the lobby.
func (c *Client) JoinSession(ctx context.Context, sessionID string, characterID int) (types.Player, error) {
	body := map[string]any{}
	if characterID > 0 {
		body["character_id"] = characterID
	}
	var out types.Player
	err := c.do(ctx, http.MethodPost,
		"/gamesessions/"+url.PathEscape(sessionID)+"/join", body, &out)
	return out, err
}

// SetReady flips the caller's ready flag server-side, assigning characterID
// when given, and returns the updated player record.
func (c *Client) SetReady(ctx context.Context, sessionID string, characterID int) (types.Player, error) {
	body := map[string]any{}
	if characterID > 0 {
		body["character_id"] = characterID
	}
	var out types.Player
	err := c.do(ctx, http.MethodPost,
		"/gamesessions/"+url.PathEscape(sessionID)+"/ready", body, &out)
	return out, err
}

func (c *Client) StartSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost,
		"/gamesessions/"+url.PathEscape(sessionID)+"/start", struct{}{}, nil)
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete,
		"/gamesessions/"+url.PathEscape(sessionID), nil, nil)
}
