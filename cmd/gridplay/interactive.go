package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gridplay/ttrpg-client/internal/game"
	"github.com/gridplay/ttrpg-client/internal/lobby"
	"github.com/gridplay/ttrpg-client/internal/transport"
	"github.com/gridplay/ttrpg-client/pkg/types"
)

// stdinLines feeds stdin line by line into a channel so the interactive loops
// can select over input and push-driven transitions at the same time.
func stdinLines(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func (a *app) lobby(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: lobby <session-id>")
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	sessionID := args[0]

	mgr := transport.NewManager(a.cfg.WSBaseURL, a.log)
	defer mgr.DisconnectAll()

	conn, err := mgr.Connect(ctx, sessionID, a.creds.Token)
	if err != nil {
		return err
	}

	ctrl, err := lobby.New(ctx, a.api, sessionID, a.creds.UserID, a.log)
	if err != nil {
		return err
	}
	defer func() { ctrl.Inbox() <- lobby.Shutdown{} }()
	ctrl.Bind(conn)

	fmt.Println("lobby", sessionID, "- commands: players, select <char-id>, ready, start, quit")
	printLobby(lobbyView(ctrl))

	lines := stdinLines(ctx)
	for {
		select {
		case <-ctrl.Started():
			fmt.Println("game started")
			return a.runGame(ctx, conn, sessionID)

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if done := a.lobbyCommand(ctrl, line); done {
				return nil
			}
		}
	}
}

func (a *app) lobbyCommand(ctrl *lobby.Controller, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "players":
		printLobby(lobbyView(ctrl))

	case "select":
		if len(fields) != 2 {
			fmt.Println("usage: select <char-id>")
			return false
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println("bad character id")
			return false
		}
		reply := make(chan error, 1)
		ctrl.Inbox() <- lobby.SelectCharacter{CharacterID: id, Reply: reply}
		report(<-reply, "character selected")

	case "ready":
		reply := make(chan error, 1)
		ctrl.Inbox() <- lobby.ToggleReady{Reply: reply}
		report(<-reply, "ready")

	case "start":
		reply := make(chan error, 1)
		ctrl.Inbox() <- lobby.StartGame{Reply: reply}
		report(<-reply, "start requested; waiting for the server")

	case "quit":
		return true

	default:
		fmt.Println("commands: players, select <char-id>, ready, start, quit")
	}
	return false
}

func (a *app) play(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: play <session-id>")
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	sessionID := args[0]

	mgr := transport.NewManager(a.cfg.WSBaseURL, a.log)
	defer mgr.DisconnectAll()

	conn, err := mgr.Connect(ctx, sessionID, a.creds.Token)
	if err != nil {
		return err
	}
	return a.runGame(ctx, conn, sessionID)
}

func (a *app) runGame(ctx context.Context, conn *transport.Conn, sessionID string) error {
	ctrl := game.New(ctx, conn, a.api, a.creds.UserID, a.log)
	defer func() { ctrl.Inbox() <- game.Shutdown{} }()
	ctrl.Bind(conn)

	fmt.Println("playing", sessionID, "- commands: board, move <x> <y>, roll <formula>, end, quit")

	lines := stdinLines(ctx)
	for line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "board":
			printGame(gameView(ctrl))

		case "move":
			if len(fields) != 3 {
				fmt.Println("usage: move <x> <y>")
				continue
			}
			x, errX := strconv.Atoi(fields[1])
			y, errY := strconv.Atoi(fields[2])
			if errX != nil || errY != nil {
				fmt.Println("coordinates must be numbers")
				continue
			}
			reply := make(chan error, 1)
			ctrl.Inbox() <- game.Move{To: types.Position{X: x, Y: y}, Reply: reply}
			report(<-reply, "move sent")

		case "roll":
			formula := "d20"
			if len(fields) == 2 {
				formula = fields[1]
			}
			reply := make(chan error, 1)
			ctrl.Inbox() <- game.RollDice{Formula: formula, Reply: reply}
			report(<-reply, "roll requested")

		case "end":
			reply := make(chan error, 1)
			ctrl.Inbox() <- game.EndTurn{Reply: reply}
			report(<-reply, "turn ended")

		case "quit":
			return nil

		default:
			fmt.Println("commands: board, move <x> <y>, roll <formula>, end, quit")
		}
	}
	return nil
}

func report(err error, okMsg string) {
	if err != nil {
		fmt.Println("!", err)
		return
	}
	fmt.Println(okMsg)
}

func lobbyView(ctrl *lobby.Controller) lobby.View {
	reply := make(chan lobby.View, 1)
	ctrl.Inbox() <- lobby.GetState{Reply: reply}
	return <-reply
}

func gameView(ctrl *game.Controller) game.View {
	reply := make(chan game.View, 1)
	ctrl.Inbox() <- game.GetState{Reply: reply}
	return <-reply
}

func printLobby(v lobby.View) {
	fmt.Printf("session %s (%s) %d/%d players\n",
		v.Session.ID, v.Session.Status, len(v.Players), v.Session.MaxPlayers)
	for _, p := range v.Players {
		marker := " "
		if p.IsReady {
			marker = "R"
		}
		if p.IsGM {
			marker = "GM"
		}
		char := "-"
		if p.CharacterID != nil {
			char = strconv.Itoa(*p.CharacterID)
		}
		fmt.Printf("  [%2s] player %d (user %d) character %s\n", marker, p.ID, p.UserID, char)
	}
	for _, c := range v.Characters {
		selected := " "
		if c.ID == v.SelectedID {
			selected = "*"
		}
		fmt.Printf("  %s char %d %s (%s %s)\n", selected, c.ID, c.Name, c.Race, c.Class)
	}
	if v.LastMessage != "" {
		fmt.Println("  note:", v.LastMessage)
	}
}

func printGame(v game.View) {
	turn := "unknown"
	if v.CurrentTurn != 0 {
		turn = strconv.Itoa(v.CurrentTurn)
	}
	if v.MyTurn {
		turn += " (you)"
	}
	fmt.Printf("turn %d, holder %s\n", v.Turn, turn)
	for id, pos := range v.Positions {
		fmt.Printf("  user %d at (%d,%d)\n", id, pos.X, pos.Y)
	}
	if v.LastRoll != nil {
		fmt.Printf("  last roll by %d: %s = %d %v\n",
			v.LastRollBy, v.LastRoll.Formula, v.LastRoll.Total, v.LastRoll.Rolls)
	}
	if v.Failed {
		fmt.Println("  connection failed; restart to reconnect")
	}
	if v.LastMessage != "" {
		fmt.Println("  note:", v.LastMessage)
	}
}
