package transport

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Manager owns the live socket per session id. Whoever mounts a session view
// holds a Manager (or shares the app's one) and passes the Conn to its
// handlers explicitly; there is no package-level registry.
type Manager struct {
	wsBase string
	log    *zap.Logger
	delay  time.Duration
	maxRe  int

	conns map[string]*Conn
}

type Option func(*Manager)

// WithRetrySchedule overrides the reconnect bound and delay. Mainly for
// tests; production uses the defaults.
func WithRetrySchedule(maxAttempts int, delay time.Duration) Option {
	return func(m *Manager) {
		m.maxRe = maxAttempts
		m.delay = delay
	}
}

func NewManager(wsBase string, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		wsBase: wsBase,
		log:    log,
		delay:  DefaultReconnectDelay,
		maxRe:  DefaultMaxReconnects,
		conns:  make(map[string]*Conn),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect dials the session socket. A prior live conn for the same session id
// is torn down first, so at most one subscription per session exists.
// The initial dial must succeed; the retry schedule only covers drops after
// that.
func (m *Manager) Connect(ctx context.Context, sessionID, token string) (*Conn, error) {
	if prev, ok := m.conns[sessionID]; ok {
		prev.Close()
		delete(m.conns, sessionID)
	}

	u := fmt.Sprintf("%s/gamesessions/%s/ws?token=%s",
		m.wsBase, url.PathEscape(sessionID), url.QueryEscape(token))

	c := newConn(u, m.delay, m.maxRe, m.log.With(zap.String("session_id", sessionID)))
	if err := c.dial(ctx); err != nil {
		return nil, fmt.Errorf("transport: dial session %s: %w", sessionID, err)
	}
	go c.readLoop(ctx)

	m.conns[sessionID] = c
	return c, nil
}

func (m *Manager) Disconnect(sessionID string) {
	if c, ok := m.conns[sessionID]; ok {
		c.Close()
		delete(m.conns, sessionID)
	}
}

func (m *Manager) DisconnectAll() {
	for id, c := range m.conns {
		c.Close()
		delete(m.conns, id)
	}
}
