// Package negotiation drives the asymmetric offer/answer/candidate exchange
// that turns a room id into one open channel.
package negotiation

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/BioHazard786/warplink/internal/channel"
)

var (
	// ErrRendezvousLost fails a negotiation whose relay connection dropped
	// before the channel opened.
	ErrRendezvousLost = errors.New("rendezvous lost")

	// ErrViolation marks an out-of-role or out-of-state negotiation event.
	// Such events are dropped; they never fail the machine.
	ErrViolation = errors.New("negotiation violation")
)

type Role int

const (
	Initiator Role = iota
	Joiner
)

func (r Role) String() string {
	switch r {
	case Initiator:
		return "initiator"
	case Joiner:
		return "joiner"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

type State int

const (
	Idle State = iota
	AwaitingPeer
	AwaitingAnswer
	AwaitingOffer
	Negotiated
	Connected
	Failed
)

var stateNames = [...]string{
	Idle:           "idle",
	AwaitingPeer:   "awaiting-peer",
	AwaitingAnswer: "awaiting-answer",
	AwaitingOffer:  "awaiting-offer",
	Negotiated:     "negotiated",
	Connected:      "connected",
	Failed:         "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == Failed
}

// Signaler forwards local negotiation artifacts through the relay.
type Signaler interface {
	Join(room string) error
	SendOffer(room string, payload []byte) error
	SendAnswer(room string, payload []byte) error
	SendCandidate(room string, payload []byte) error
}

// Peer produces and consumes negotiation artifacts. channel.Link satisfies it.
type Peer interface {
	CreateOffer() ([]byte, error)
	AcceptOffer(offer []byte) ([]byte, error)
	AcceptAnswer(answer []byte) error
	AddCandidate(candidate []byte) error
}

var _ Peer = channel.Link(nil)

// Machine is the negotiation state machine of one session. It is not safe
// for concurrent use: the session event loop calls it one event at a time,
// and every message a transition emits is sent before the method returns.
type Machine struct {
	room  string
	role  Role
	state State
	err   error

	sig  Signaler
	peer Peer

	offer     []byte
	answer    []byte
	remoteSet bool
	pending   [][]byte

	onChange func(from, to State)
	log      *slog.Logger
}

type Option func(*Machine)

// WithLogger sets the logger; room and role are added to it.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// OnStateChange registers fn to run after every transition.
func OnStateChange(fn func(from, to State)) Option {
	return func(m *Machine) { m.onChange = fn }
}

func New(room string, role Role, sig Signaler, peer Peer, opts ...Option) *Machine {
	m := &Machine{
		room: room,
		role: role,
		sig:  sig,
		peer: peer,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("room", room, "role", role)
	return m
}

func (m *Machine) Room() string { return m.room }
func (m *Machine) Role() Role   { return m.role }
func (m *Machine) State() State { return m.state }

// Err is the reason the machine failed, if it did.
func (m *Machine) Err() error { return m.err }

// Offer and Answer return the artifacts seen so far, local or remote.
func (m *Machine) Offer() []byte  { return m.offer }
func (m *Machine) Answer() []byte { return m.answer }

// Pending is the number of remote candidates waiting for the remote
// description.
func (m *Machine) Pending() int { return len(m.pending) }

// Join announces the session on the relay.
func (m *Machine) Join() error {
	if m.state != Idle {
		return m.violation("join")
	}
	if err := m.sig.Join(m.room); err != nil {
		return m.fail(fmt.Errorf("join room: %w", err))
	}
	m.transition(AwaitingPeer)
	return nil
}

// HandlePeerJoined reacts to another member joining the room. The initiator
// creates and sends the offer; the joiner starts waiting for it.
func (m *Machine) HandlePeerJoined() error {
	if m.state != AwaitingPeer {
		return m.violation("peer-joined")
	}

	if m.role == Joiner {
		m.transition(AwaitingOffer)
		return nil
	}

	offer, err := m.peer.CreateOffer()
	if err != nil {
		return m.fail(fmt.Errorf("create offer: %w", err))
	}
	m.offer = offer
	if err := m.sig.SendOffer(m.room, offer); err != nil {
		return m.fail(fmt.Errorf("send offer: %w", err))
	}
	m.transition(AwaitingAnswer)
	return nil
}

// HandleOffer answers a remote offer. Only a joiner that has not answered yet
// accepts one.
func (m *Machine) HandleOffer(payload []byte) error {
	if m.role != Joiner || (m.state != AwaitingPeer && m.state != AwaitingOffer) {
		return m.violation("offer")
	}

	answer, err := m.peer.AcceptOffer(payload)
	if err != nil {
		return m.fail(fmt.Errorf("accept offer: %w", err))
	}
	m.offer = payload
	m.answer = answer
	if err := m.sig.SendAnswer(m.room, answer); err != nil {
		return m.fail(fmt.Errorf("send answer: %w", err))
	}
	m.remoteApplied()
	m.transition(Negotiated)
	return nil
}

// HandleAnswer applies the remote answer on the initiator.
func (m *Machine) HandleAnswer(payload []byte) error {
	if m.role != Initiator || m.state != AwaitingAnswer {
		return m.violation("answer")
	}

	if err := m.peer.AcceptAnswer(payload); err != nil {
		return m.fail(fmt.Errorf("accept answer: %w", err))
	}
	m.answer = payload
	m.remoteApplied()
	m.transition(Negotiated)
	return nil
}

// HandleCandidate applies a remote candidate, or queues it until the remote
// description is in place. A candidate the peer rejects is logged and
// dropped; the remaining candidates may still connect.
func (m *Machine) HandleCandidate(payload []byte) error {
	if m.state == Failed {
		return m.violation("ice-candidate")
	}

	if !m.remoteSet {
		m.pending = append(m.pending, payload)
		m.log.Debug("candidate queued", "pending", len(m.pending))
		return nil
	}
	m.addCandidate(payload)
	return nil
}

// HandleLocalCandidate forwards a locally gathered candidate to the peer.
func (m *Machine) HandleLocalCandidate(payload []byte) error {
	if m.state == Idle || m.state == Failed {
		return m.violation("local candidate")
	}
	if err := m.sig.SendCandidate(m.room, payload); err != nil {
		return fmt.Errorf("send candidate: %w", err)
	}
	return nil
}

// HandleChannelOpen completes the negotiation. An initiator still waiting for
// its answer accepts the open too: the transport is the authority on whether
// a channel exists.
func (m *Machine) HandleChannelOpen() error {
	switch m.state {
	case AwaitingAnswer, AwaitingOffer, Negotiated:
		m.transition(Connected)
		return nil
	default:
		return m.violation("channel open")
	}
}

// HandleChannelClosed fails the machine. There is no reconnection; a new
// session has to be started from Idle.
func (m *Machine) HandleChannelClosed(cause error) error {
	if m.state == Failed {
		return nil
	}
	err := channel.ErrClosed
	if cause != nil && !errors.Is(cause, channel.ErrClosed) {
		err = fmt.Errorf("%w: %w", channel.ErrClosed, cause)
	}
	m.fail(err)
	return nil
}

// HandleRendezvousLost fails a negotiation still in progress. A connected
// channel does not depend on the relay and is left alone.
func (m *Machine) HandleRendezvousLost() error {
	if m.state == Connected || m.state == Failed {
		return nil
	}
	return m.fail(ErrRendezvousLost)
}

func (m *Machine) remoteApplied() {
	m.remoteSet = true
	pending := m.pending
	m.pending = nil
	for _, c := range pending {
		m.addCandidate(c)
	}
}

func (m *Machine) addCandidate(payload []byte) {
	if err := m.peer.AddCandidate(payload); err != nil {
		m.log.Warn("remote candidate rejected", "error", err)
	}
}

func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	m.log.Debug("negotiation state", "from", from, "to", to)
	if m.onChange != nil {
		m.onChange(from, to)
	}
}

func (m *Machine) fail(err error) error {
	m.err = err
	m.pending = nil
	m.log.Error("negotiation failed", "state", m.state, "error", err)
	m.transition(Failed)
	return err
}

func (m *Machine) violation(event string) error {
	return fmt.Errorf("%w: %s in state %s as %s", ErrViolation, event, m.state, m.role)
}
