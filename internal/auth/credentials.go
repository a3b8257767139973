package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Credentials are the only client state that survives across runs: the
// bearer token, the user id behind it, and the device fingerprint sent with
// login/register. Session and game state are always rebuilt from the server.
type Credentials struct {
	Token       string `json:"token"`
	UserID      int    `json:"user_id"`
	Fingerprint string `json:"fingerprint"`
}

func (c Credentials) LoggedIn() bool { return c.Token != "" }

type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

// Load reads the credentials file. A missing file is not an error: it yields
// empty credentials with a freshly generated fingerprint.
func (s *Store) Load() (Credentials, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{Fingerprint: uuid.NewString()}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("auth: read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("auth: parse credentials: %w", err)
	}
	if creds.Fingerprint == "" {
		creds.Fingerprint = uuid.NewString()
	}
	return creds, nil
}

func (s *Store) Save(creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("auth: create config dir: %w", err)
	}
	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: marshal credentials: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("auth: write credentials: %w", err)
	}
	return nil
}

// Clear drops the token and user id but keeps the fingerprint, so the device
// identity is stable across logins.
func (s *Store) Clear() error {
	creds, err := s.Load()
	if err != nil {
		return err
	}
	return s.Save(Credentials{Fingerprint: creds.Fingerprint})
}
