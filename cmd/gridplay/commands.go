package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gridplay/ttrpg-client/internal/api"
	"github.com/gridplay/ttrpg-client/internal/auth"
	"github.com/gridplay/ttrpg-client/pkg/types"
)

func asAPIError(err error, target **api.APIError) bool {
	return errors.As(err, target)
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: register <nickname> <email> <password>")
	}
	tok, err := a.api.Register(ctx, args[0], args[1], args[2], a.creds.Fingerprint)
	if err != nil {
		return err
	}
	return a.saveToken(tok)
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <email> <password>")
	}
	tok, err := a.api.Login(ctx, args[0], args[1], a.creds.Fingerprint)
	if err != nil {
		return err
	}
	return a.saveToken(tok)
}

func (a *app) saveToken(tok api.TokenResponse) error {
	a.creds.Token = tok.AccessToken
	a.creds.UserID = tok.UserID
	if a.creds.UserID == 0 {
		if id, err := auth.UserIDFromToken(tok.AccessToken); err == nil {
			a.creds.UserID = id
		}
	}
	a.api.SetToken(tok.AccessToken)
	if err := a.store.Save(a.creds); err != nil {
		return err
	}
	fmt.Println("logged in as user", a.creds.UserID)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	me, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d  %s  %s\n", me.ID, me.Nickname, me.Email)
	return nil
}

func (a *app) listCharacters(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	chars, err := a.api.Characters(ctx)
	if err != nil {
		return err
	}
	if len(chars) == 0 {
		fmt.Println("no characters yet; run create-character")
		return nil
	}
	for _, c := range chars {
		fmt.Printf("%d  %-16s %s %s  STR %d DEX %d INT %d\n",
			c.ID, c.Name, c.Race, c.Class, c.Strength, c.Dexterity, c.Intelligence)
	}
	return nil
}

func (a *app) createCharacter(ctx context.Context, args []string) error {
	if len(args) != 6 {
		return fmt.Errorf("usage: create-character <name> <race> <class> <str> <dex> <int>")
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	attrs := make([]int, 3)
	for i, raw := range args[3:] {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("attribute %q is not a number", raw)
		}
		attrs[i] = n
	}

	created, err := a.api.CreateCharacter(ctx, api.CharacterDraft{
		Name:         args[0],
		Race:         args[1],
		Class:        args[2],
		Strength:     attrs[0],
		Dexterity:    attrs[1],
		Intelligence: attrs[2],
	})
	if err != nil {
		return err
	}
	fmt.Println("created character", created.ID, created.Name)
	return nil
}

func (a *app) createSession(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: create-session <max-players>")
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	maxPlayers, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("max-players %q is not a number", args[0])
	}
	session, err := a.api.CreateSession(ctx, maxPlayers)
	if err != nil {
		return err
	}
	fmt.Println("created session", session.ID)
	return nil
}

func (a *app) browseSessions(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	sessions, err := a.api.WaitingSessions(ctx)
	if err != nil {
		return err
	}
	printSessions(sessions)
	return nil
}

func (a *app) mySessions(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	sessions, err := a.api.MySessions(ctx)
	if err != nil {
		return err
	}
	printSessions(sessions)
	return nil
}

func printSessions(sessions []types.Session) {
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return
	}
	for _, s := range sessions {
		fmt.Printf("%s  %-8s %d/%d players  creator %d\n",
			s.ID, s.Status, len(s.Players), s.MaxPlayers, s.CreatorID)
	}
}

func (a *app) deleteSession(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete-session <session-id>")
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.api.DeleteSession(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("deleted session", args[0])
	return nil
}

func (a *app) joinSession(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: join <session-id>")
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	// Join without a character; one is picked in the lobby.
	player, err := a.api.JoinSession(ctx, args[0], 0)
	if err != nil {
		return err
	}
	fmt.Printf("joined session %s as player %d; run: gridplay lobby %s\n",
		args[0], player.ID, args[0])
	return nil
}
