package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gridplay/ttrpg-client/pkg/types"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Reconnect schedule: fixed delay, bounded attempts. After the last failed
// attempt the conn goes terminal and delivers connection_failed to handlers.
const (
	DefaultMaxReconnects  = 5
	DefaultReconnectDelay = 3 * time.Second

	writeTimeout = 3 * time.Second
)

var ErrNotConnected = errors.New("transport: not connected")

type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateConnected
	stateRetrying
	stateFailed
	stateClosed
)

// Handler receives an inbound envelope. Handlers run on the read loop
// goroutine, in server send order; they must not block for long. An alias so
// controllers can accept *Conn through a plain func-typed interface.
type Handler = func(env types.Envelope)

// Conn is one session's socket. Dispatch is by exact match on the envelope
// type, then the wildcard handler if registered, else the envelope is logged
// and dropped.
type Conn struct {
	url   string
	log   *zap.Logger
	delay time.Duration
	maxRe int

	mu       sync.Mutex
	ws       *websocket.Conn
	state    connState
	handlers map[string]Handler

	done chan struct{}
	once sync.Once
}

func newConn(url string, delay time.Duration, maxRe int, log *zap.Logger) *Conn {
	return &Conn{
		url:      url,
		log:      log,
		delay:    delay,
		maxRe:    maxRe,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
}

// On registers the handler for an event type. types.EventWildcard matches
// every envelope. Re-registering replaces the previous handler.
func (c *Conn) On(eventType string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = h
}

func (c *Conn) Off(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, eventType)
}

func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateConnected
}

// Send marshals msg and writes it with a bounded timeout. It fails without
// side effects when the socket is down.
func (c *Conn) Send(ctx context.Context, msg types.ClientMessage) error {
	c.mu.Lock()
	ws := c.ws
	connected := c.state == stateConnected
	c.mu.Unlock()

	if !connected || ws == nil {
		return ErrNotConnected
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("transport: marshal %s: %w", msg.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("transport: write %s: %w", msg.Type, err)
	}
	return nil
}

// Close tears the socket down. No reconnect is attempted after Close.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })

	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.state = stateClosed
	c.mu.Unlock()

	if ws != nil {
		_ = ws.Close(websocket.StatusNormalClosure, "bye")
	}
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) dial(ctx context.Context) error {
	c.mu.Lock()
	c.state = stateConnecting
	c.mu.Unlock()

	ws, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		_ = ws.Close(websocket.StatusNormalClosure, "bye")
		return ErrNotConnected
	}
	c.ws = ws
	c.state = stateConnected
	c.mu.Unlock()
	return nil
}

// readLoop reads until the socket drops, then runs the retry schedule. It
// owns all handler dispatch, so delivery order matches server send order.
func (c *Conn) readLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws == nil {
			return
		}

		_, data, err := ws.Read(ctx)
		if err != nil {
			if c.closed() || ctx.Err() != nil {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Debug("socket closed by server", zap.String("url", c.url))
				c.mu.Lock()
				c.state = stateIdle
				c.ws = nil
				c.mu.Unlock()
				return
			}
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("dropping malformed envelope", zap.Error(err))
			continue
		}
		c.dispatch(env)
	}
}

// reconnect runs the bounded fixed-delay retry schedule. A successful redial
// resets the budget for the next drop. Exhaustion delivers connection_failed
// and reports false.
func (c *Conn) reconnect(ctx context.Context) bool {
	for attempt := 1; attempt <= c.maxRe; attempt++ {
		c.mu.Lock()
		c.state = stateRetrying
		c.mu.Unlock()

		c.log.Info("reconnecting",
			zap.Int("attempt", attempt),
			zap.Int("max", c.maxRe))

		select {
		case <-time.After(c.delay):
		case <-c.done:
			return false
		case <-ctx.Done():
			return false
		}

		if err := c.dial(ctx); err != nil {
			c.log.Warn("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return true
	}

	c.mu.Lock()
	c.state = stateFailed
	c.ws = nil
	c.mu.Unlock()

	c.log.Error("reconnect budget exhausted", zap.String("url", c.url))
	c.dispatch(types.Envelope{Type: types.EventConnectionFailed})
	return false
}

func (c *Conn) dispatch(env types.Envelope) {
	c.mu.Lock()
	h := c.handlers[env.Type]
	wild := c.handlers[types.EventWildcard]
	c.mu.Unlock()

	if h != nil {
		h(env)
	}
	if wild != nil {
		wild(env)
	}
	if h == nil && wild == nil {
		c.log.Debug("no handler for event", zap.String("type", env.Type))
	}
}
