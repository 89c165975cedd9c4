package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/BioHazard786/warplink/internal/dns"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var (
	// ErrClosed is returned by sends after Close or after the connection dropped.
	ErrClosed = errors.New("signaling client closed")

	// ErrInvalidPayload is returned for negotiation payloads that are not JSON.
	ErrInvalidPayload = errors.New("payload is not a JSON document")
)

// Client manages the WebSocket connection to the relay. It implements the
// rendezvous side of a session: Join and the Send methods forward local
// artifacts, Events delivers remote ones.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	resolver  *dns.Resolver

	events   chan Event
	outgoing chan *Message
	done     chan struct{}
	dead     chan struct{}

	mu     sync.Mutex
	closed bool

	log *slog.Logger
}

type Option func(*Client)

// WithResolver dials the relay through r. Without it the system resolver is
// used.
func WithResolver(r *dns.Resolver) Option {
	return func(c *Client) { c.resolver = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a new signaling client
func NewClient(serverURL string, opts ...Option) *Client {
	c := &Client{
		serverURL: serverURL,
		events:    make(chan Event, 64),
		outgoing:  make(chan *Message, 64),
		done:      make(chan struct{}),
		dead:      make(chan struct{}),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes the WebSocket connection and starts the pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	dialer := *websocket.DefaultDialer
	if c.resolver != nil {
		dialer.NetDialContext = c.resolver.DialContext
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.log.Debug("connected to relay", "url", u.String())

	go c.readPump()
	go c.writePump()

	return nil
}

// Events delivers relay notifications. The last event is EventDisconnected,
// after which the channel is closed.
func (c *Client) Events() <-chan Event {
	return c.events
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	var readErr error
	defer func() {
		c.conn.Close()
		close(c.dead)
		c.emit(Event{Kind: EventDisconnected, Err: readErr})
		close(c.events)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			readErr = err
			return
		}

		ev, ok := toEvent(&msg)
		if !ok {
			c.log.Debug("ignoring relay message", "type", msg.Type)
			continue
		}
		c.emit(ev)
	}
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// writePump writes messages to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Warn("relay write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-c.dead:
			return
		}
	}
}

// Join asks the relay to add this connection to room.
func (c *Client) Join(room string) error {
	return c.send(&Message{Type: MessageTypeJoinRoom, RoomID: room})
}

func (c *Client) SendOffer(room string, payload []byte) error {
	return c.sendPayload(MessageTypeOffer, room, payload)
}

func (c *Client) SendAnswer(room string, payload []byte) error {
	return c.sendPayload(MessageTypeAnswer, room, payload)
}

func (c *Client) SendCandidate(room string, payload []byte) error {
	return c.sendPayload(MessageTypeICECandidate, room, payload)
}

func (c *Client) sendPayload(kind, room string, payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("%s: %w", kind, ErrInvalidPayload)
	}
	return c.send(&Message{Type: kind, RoomID: room, Payload: payload})
}

// send queues msg for the write pump. It never blocks on a dead connection.
func (c *Client) send(msg *Message) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case <-c.dead:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	case <-c.dead:
		return ErrClosed
	}
}

// Close closes the WebSocket connection and cleans up resources.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
