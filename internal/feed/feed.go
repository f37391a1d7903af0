package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"deriv-alert-bot/internal/types"
)

// Config holds feed connection settings.
type Config struct {
	URL               string
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration
	WriteTimeout      time.Duration
	BufferSize        int
}

// DefaultConfig returns feed settings suitable for the public Deriv endpoint.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  30 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        256,
	}
}

// Connection owns the single upstream websocket session to the Deriv tick
// feed. It keeps upstream subscriptions synchronized with the desired
// instrument set, decodes inbound messages into TickEvents, and rebuilds the
// transport with exponential backoff when it drops. Only the transport is
// rebuilt on reconnect; the desired set survives and is re-issued upstream
// before tick delivery resumes.
type Connection struct {
	cfg Config

	mu      sync.Mutex
	conn    *websocket.Conn
	desired map[string]struct{}
	streams map[string]string // instrument -> upstream subscription id

	writeMu sync.Mutex

	ticks chan types.TickEvent
}

// New creates a feed connection. Call Connect before Run.
func New(cfg Config) *Connection {
	return &Connection{
		cfg:     cfg,
		desired: make(map[string]struct{}),
		streams: make(map[string]string),
		ticks:   make(chan types.TickEvent, cfg.BufferSize),
	}
}

// Ticks returns the channel of decoded tick events. The channel is never
// closed while the connection is running.
func (c *Connection) Ticks() <-chan types.TickEvent {
	return c.ticks
}

// Connect establishes the initial websocket session. A failure here is fatal
// to process start; later drops are recovered internally by Run.
func (c *Connection) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return errors.Wrapf(err, "could not connect to feed at %s", c.cfg.URL)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	return c.resubscribeAll()
}

// Run consumes the feed until ctx is cancelled, reconnecting with exponential
// backoff whenever the transport drops.
func (c *Connection) Run(ctx context.Context) {
	for {
		err := c.readLoop(ctx)
		if ctx.Err() != nil {
			c.close()
			return
		}

		log.Warnf("feed connection lost: %v", err)
		if !c.reconnect(ctx) {
			return
		}
	}
}

// Subscribe adds an instrument to the desired set and requests ticks for it.
// Idempotent; safe to call concurrently with tick delivery.
func (c *Connection) Subscribe(instrument string) {
	c.mu.Lock()
	if _, ok := c.desired[instrument]; ok {
		c.mu.Unlock()
		return
	}
	c.desired[instrument] = struct{}{}
	connected := c.conn != nil
	c.mu.Unlock()

	if !connected {
		return
	}

	if err := c.sendJSON(subscribeRequest{Ticks: instrument, Subscribe: 1}); err != nil {
		log.Warnf("failed to subscribe to %s: %v", instrument, err)
	} else {
		log.Debugf("subscribed to %s", instrument)
	}
}

// Unsubscribe removes an instrument from the desired set and forgets its
// upstream stream. Idempotent; a no-op if not subscribed. If no tick has
// arrived yet, the stream id is unknown; the forget is then issued from the
// read loop on the stream's first tick.
func (c *Connection) Unsubscribe(instrument string) {
	c.mu.Lock()
	if _, ok := c.desired[instrument]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.desired, instrument)
	streamID := c.streams[instrument]
	delete(c.streams, instrument)
	connected := c.conn != nil
	c.mu.Unlock()

	if !connected || streamID == "" {
		return
	}

	if err := c.sendJSON(forgetRequest{Forget: streamID}); err != nil {
		log.Warnf("failed to unsubscribe from %s: %v", instrument, err)
	} else {
		log.Debugf("unsubscribed from %s", instrument)
	}
}

// Subscribed returns a snapshot of the desired instrument set.
func (c *Connection) Subscribed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	instruments := make([]string, 0, len(c.desired))
	for instrument := range c.desired {
		instruments = append(instruments, instrument)
	}
	return instruments
}

func (c *Connection) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	return conn, err
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.conn.Close()
		c.conn = nil
	}
}

// readLoop reads and decodes messages until the transport fails. Malformed
// payloads are logged and skipped; the connection stays open.
func (c *Connection) readLoop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		tick, ok := decodeTick(data)
		if !ok {
			continue
		}

		c.mu.Lock()
		if tick.streamID != "" {
			c.streams[tick.event.Instrument] = tick.streamID
		}
		_, wanted := c.desired[tick.event.Instrument]
		c.mu.Unlock()

		if !wanted {
			// A tick for an instrument unsubscribed before its stream id was
			// known. Forget it now that the id is available.
			if tick.streamID != "" {
				if err := c.sendJSON(forgetRequest{Forget: tick.streamID}); err != nil {
					log.Warnf("failed to forget stale stream for %s: %v", tick.event.Instrument, err)
				}
			}
			continue
		}

		select {
		case c.ticks <- tick.event:
		default:
			log.Warnf("tick buffer full, dropping tick for %s", tick.event.Instrument)
		}
	}
}

// reconnect re-establishes the session with exponential backoff and re-issues
// every desired subscription before tick delivery resumes. Returns false when
// ctx was cancelled before a session could be established.
func (c *Connection) reconnect(ctx context.Context) bool {
	c.close()

	wait := c.cfg.ReconnectBaseWait
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}

		log.Infof("attempting feed reconnection to %s", c.cfg.URL)

		conn, err := c.dial(ctx)
		if err != nil {
			log.Warnf("feed reconnection failed: %v", err)
			wait *= 2
			if wait > c.cfg.ReconnectMaxWait {
				wait = c.cfg.ReconnectMaxWait
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.streams = make(map[string]string)
		c.mu.Unlock()

		if err := c.resubscribeAll(); err != nil {
			log.Warnf("feed resubscription failed: %v", err)
			c.close()
			continue
		}

		log.Info("feed reconnected")
		return true
	}
}

func (c *Connection) resubscribeAll() error {
	for _, instrument := range c.Subscribed() {
		if err := c.sendJSON(subscribeRequest{Ticks: instrument, Subscribe: 1}); err != nil {
			return errors.Wrapf(err, "could not resubscribe to %s", instrument)
		}
		log.Debugf("subscribed to %s", instrument)
	}
	return nil
}

func (c *Connection) sendJSON(v interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
