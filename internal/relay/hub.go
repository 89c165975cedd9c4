// Package relay is the rendezvous server: it groups websocket clients into
// rooms and forwards negotiation messages between the members of a room.
package relay

import (
	"context"
	"log/slog"

	"github.com/BioHazard786/warplink/internal/signaling"
)

// DefaultMaxPeers caps room size; a session pairs exactly two endpoints.
const DefaultMaxPeers = 2

type inbound struct {
	client *Client
	msg    *signaling.Message
}

// Hub is the central brain of the relay. Run is the single goroutine that
// owns all rooms and clients.
type Hub struct {
	rooms   map[string]*Room
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan inbound
	done       chan struct{}

	maxPeers int
	log      *slog.Logger
}

type Option func(*Hub)

// WithMaxPeers limits members per room. Zero or less means unlimited.
func WithMaxPeers(n int) Option {
	return func(h *Hub) { h.maxPeers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// NewHub creates a new Hub instance.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		rooms:      make(map[string]*Room),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan inbound),
		done:       make(chan struct{}),
		maxPeers:   DefaultMaxPeers,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes registrations and messages until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			h.drop(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Info("client registered", "client", client.ID, "addr", client.addr())

		case client := <-h.unregister:
			if h.clients[client] {
				h.log.Info("client unregistered", "client", client.ID)
				h.drop(client)
			}

		case in := <-h.broadcast:
			if !h.clients[in.client] {
				continue
			}
			h.handle(in.client, in.msg)
		}
	}
}

func (h *Hub) handle(c *Client, msg *signaling.Message) {
	switch msg.Type {
	case signaling.MessageTypeJoinRoom:
		h.join(c, msg.RoomID)

	case signaling.MessageTypeOffer, signaling.MessageTypeAnswer, signaling.MessageTypeICECandidate:
		h.relay(c, msg)

	default:
		h.log.Warn("unknown message type", "client", c.ID, "type", msg.Type)
		h.deliver(c, signaling.NewErrorMessage(msg.RoomID, "unknown message type"))
	}
}

// join adds c to the room and tells every other member about it. A client
// joining a room that already has members is told about them too, so the
// side that joins second still learns it has a peer.
func (h *Hub) join(c *Client, roomID string) {
	if roomID == "" {
		h.deliver(c, signaling.NewErrorMessage("", "room id is required"))
		return
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = &Room{ID: roomID}
		h.rooms[roomID] = room
		h.log.Info("room created", "room", roomID)
	}

	if room.has(c) {
		h.log.Debug("duplicate join ignored", "room", roomID, "client", c.ID)
		return
	}

	if h.maxPeers > 0 && len(room.Members) >= h.maxPeers {
		h.log.Info("room join failed: room is full", "room", roomID, "client", c.ID)
		h.deliver(c, signaling.NewErrorMessage(roomID, "room is full"))
		return
	}

	notice := &signaling.Message{Type: signaling.MessageTypePeerJoined, RoomID: roomID}
	for _, m := range room.Members {
		h.deliver(m, notice)
	}
	if len(room.Members) > 0 {
		h.deliver(c, notice)
	}

	room.Members = append(room.Members, c)
	c.rooms[roomID] = true
	h.log.Info("client joined room", "room", roomID, "client", c.ID, "members", len(room.Members))
}

func (h *Hub) relay(c *Client, msg *signaling.Message) {
	room, ok := h.rooms[msg.RoomID]
	if !ok || !room.has(c) {
		h.log.Info("relay failed: not a member", "room", msg.RoomID, "client", c.ID)
		h.deliver(c, signaling.NewErrorMessage(msg.RoomID, "you must join the room first"))
		return
	}

	forward := &signaling.Message{Type: msg.Type, RoomID: msg.RoomID, Payload: msg.Payload}
	for _, m := range room.Members {
		if m != c {
			h.deliver(m, forward)
		}
	}
	h.log.Info("relayed", "type", msg.Type, "room", msg.RoomID, "from", c.ID)
}

// deliver queues msg without blocking the hub. A client whose queue is full
// is dropped.
func (h *Hub) deliver(c *Client, msg *signaling.Message) {
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.log.Warn("client send queue full, dropping", "client", c.ID)
		h.drop(c)
	}
}

// drop removes c from every room and closes its send queue, which stops its
// write pump.
func (h *Hub) drop(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)

	for roomID := range c.rooms {
		room, ok := h.rooms[roomID]
		if !ok {
			continue
		}
		room.remove(c)
		if len(room.Members) == 0 {
			delete(h.rooms, roomID)
			h.log.Info("room deleted", "room", roomID)
		}
	}
	c.rooms = nil
	close(c.send)
}
