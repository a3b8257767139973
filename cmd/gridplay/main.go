package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gridplay/ttrpg-client/internal/api"
	"github.com/gridplay/ttrpg-client/internal/auth"
	"github.com/gridplay/ttrpg-client/internal/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `usage: gridplay <command> [args]

  register <nickname> <email> <password>
  login <email> <password>
  logout
  whoami
  characters
  create-character <name> <race> <class> <str> <dex> <int>
  create-session <max-players>
  browse
  my-sessions
  delete-session <session-id>
  join <session-id>
  lobby <session-id>
  play <session-id>`

type app struct {
	cfg   config.Config
	log   *zap.Logger
	api   *api.Client
	store *auth.Store
	creds auth.Credentials
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}

	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	store := auth.NewStore(cfg.CredentialsFile)
	creds, err := store.Load()
	if err != nil {
		log.Fatal(err)
	}

	a := &app{
		cfg:   cfg,
		log:   logger,
		api:   api.New(cfg.APIBaseURL, cfg.HTTPTimeout(), logger),
		store: store,
		creds: creds,
	}
	if creds.LoggedIn() {
		a.api.SetToken(creds.Token)
	}

	ctx := context.Background()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad LOG_LEVEL %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.store.Clear()
	case "whoami":
		return a.whoami(ctx)
	case "characters":
		return a.listCharacters(ctx)
	case "create-character":
		return a.createCharacter(ctx, args)
	case "create-session":
		return a.createSession(ctx, args)
	case "browse":
		return a.browseSessions(ctx)
	case "my-sessions":
		return a.mySessions(ctx)
	case "delete-session":
		return a.deleteSession(ctx, args)
	case "join":
		return a.joinSession(ctx, args)
	case "lobby":
		return a.lobby(ctx, args)
	case "play":
		return a.play(ctx, args)
	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// requireLogin refreshes the user id from /auth/me; a 401 clears the stored
// token so the next run starts clean.
func (a *app) requireLogin(ctx context.Context) error {
	if !a.creds.LoggedIn() {
		return fmt.Errorf("not logged in; run: gridplay login <email> <password>")
	}
	me, err := a.api.Me(ctx)
	if err != nil {
		var apiErr *api.APIError
		if ok := asAPIError(err, &apiErr); ok && apiErr.Status == 401 {
			_ = a.store.Clear()
			return fmt.Errorf("session expired; log in again")
		}
		// Backend unreachable: fall back to the token's own claims.
		if id, claimsErr := auth.UserIDFromToken(a.creds.Token); claimsErr == nil {
			a.creds.UserID = id
			return nil
		}
		return err
	}
	if me.ID != a.creds.UserID {
		a.creds.UserID = me.ID
		_ = a.store.Save(a.creds)
	}
	return nil
}
