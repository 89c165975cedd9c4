// Package session ties negotiation, flow control and transfers together for
// one room. Every reaction of a Session runs on its own event loop, one at a
// time, so none of the state below the loop needs locking.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/BioHazard786/warplink/internal/channel"
	"github.com/BioHazard786/warplink/internal/flow"
	"github.com/BioHazard786/warplink/internal/negotiation"
	"github.com/BioHazard786/warplink/internal/protocol"
	"github.com/BioHazard786/warplink/internal/signaling"
	"github.com/BioHazard786/warplink/internal/transfer"
)

var (
	ErrClosed        = errors.New("session closed")
	ErrNotConnected  = errors.New("session not connected")
	ErrStarted       = errors.New("session already started")
	ErrDuplicateRoom = errors.New("a session for this room already exists")
)

// Callbacks are invoked on the session's event loop. They must not block on
// the session's own methods (SendChat, SendFile, Close).
type Callbacks struct {
	OnStateChange     func(state negotiation.State)
	OnChatReceived    func(text string)
	OnSendProgress    func(percent int)
	OnReceiveProgress func(percent int)
	OnFileSent        func(src transfer.Source)
	OnFileReceived    func(artifact transfer.Artifact)
	OnTransferError   func(dir transfer.Direction, err error)

	// OnWarning reports conditions that do not abort anything: size
	// mismatches and relay error messages.
	OnWarning func(err error)
}

type Config struct {
	ChunkSize     int
	HighWaterMark uint64
	LowWaterMark  uint64

	// Sink stores inbound files. Nil keeps them in memory.
	Sink   transfer.Sink
	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:     transfer.DefaultChunkSize,
		HighWaterMark: flow.DefaultHighWaterMark,
		LowWaterMark:  flow.DefaultLowWaterMark,
	}
}

func (c *Config) normalize() error {
	if c.ChunkSize <= 0 {
		c.ChunkSize = transfer.DefaultChunkSize
	}
	if c.HighWaterMark == 0 {
		c.HighWaterMark = flow.DefaultHighWaterMark
	}
	if c.LowWaterMark == 0 {
		c.LowWaterMark = flow.DefaultLowWaterMark
	}
	if c.LowWaterMark >= c.HighWaterMark {
		return fmt.Errorf("low-water mark %d must be below high-water mark %d", c.LowWaterMark, c.HighWaterMark)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Session is one pairing attempt for a room. It owns the negotiation and,
// once connected, the channel and the transfers running over it.
type Session struct {
	room string
	role negotiation.Role
	link channel.Link
	cb   Callbacks
	cfg  Config

	box       *mailbox
	quit      chan struct{}
	done      chan struct{}
	started   atomic.Bool
	closeOnce sync.Once
	state     atomic.Int32

	// Owned by the event loop.
	machine  *negotiation.Machine
	ch       channel.Channel
	ctl      *flow.Controller
	sender   *transfer.Sender
	receiver *transfer.Receiver
	opened   bool

	// early holds frames that overtook the open event.
	early []channel.Frame

	chat *transfer.ChatLog
	log  *slog.Logger
}

// New creates a session for room. sig carries negotiation messages to the
// relay; link establishes the channel. Nothing happens until Start.
func New(room string, role negotiation.Role, sig negotiation.Signaler, link channel.Link, cb Callbacks, cfg Config) (*Session, error) {
	if room == "" {
		return nil, errors.New("room id is required")
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	s := &Session{
		room: room,
		role: role,
		link: link,
		cb:   cb,
		cfg:  cfg,
		box:  newMailbox(),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		chat: transfer.NewChatLog(),
		log:  cfg.Logger.With("room", room, "role", role),
	}

	s.machine = negotiation.New(room, role, sig, link,
		negotiation.WithLogger(cfg.Logger),
		negotiation.OnStateChange(func(_, to negotiation.State) {
			s.state.Store(int32(to))
			if s.cb.OnStateChange != nil {
				s.cb.OnStateChange(to)
			}
		}),
	)

	s.receiver = transfer.NewReceiver(cfg.Sink, transfer.ReceiverHooks{
		Progress: cb.OnReceiveProgress,
		Aborted: func(err error) {
			s.transferError(transfer.Inbound, err)
		},
	})

	link.Bind(linkEvents{s})
	return s, nil
}

func (s *Session) Room() string             { return s.room }
func (s *Session) Role() negotiation.Role   { return s.role }
func (s *Session) State() negotiation.State { return negotiation.State(s.state.Load()) }

// Chat returns the chat history so far.
func (s *Session) Chat() []transfer.ChatEntry { return s.chat.Entries() }

// Done is closed once the event loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start runs the event loop and joins the room. The loop stops when ctx is
// cancelled or Close is called.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	go s.run(ctx)
	s.post(func() { s.check(s.machine.Join()) })
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-s.quit:
			s.shutdown()
			return
		case <-s.box.wake:
			for {
				fn, ok := s.box.take()
				if !ok {
					break
				}
				fn()
			}
		}
	}
}

// Close stops the session, aborting any transfer in flight and closing the
// link. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		if s.started.CompareAndSwap(false, true) {
			s.shutdown()
			close(s.done)
		}
	})
	<-s.done
	return nil
}

func (s *Session) shutdown() {
	s.box.close()
	if s.sender != nil {
		src := s.sender.Source()
		s.sender.Abort(ErrClosed)
		s.sender = nil
		s.transferError(transfer.Outbound, transfer.NewFileError("send", src.Name, ErrClosed))
	}
	s.receiver.Abort(transfer.NewError("receive", ErrClosed))
	s.early = nil
	if s.ch != nil {
		s.ch.Close()
		s.ch, s.ctl = nil, nil
	}
	if err := s.link.Close(); err != nil {
		s.log.Debug("close link", "error", err)
	}
	s.log.Debug("session closed")
}

func (s *Session) post(fn func()) bool {
	return s.box.post(fn)
}

// call runs fn on the event loop and waits for its result.
func (s *Session) call(fn func() error) error {
	res := make(chan error, 1)
	if !s.post(func() { res <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-res:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// Deliver posts a relay event for this session's room.
func (s *Session) Deliver(ev signaling.Event) {
	s.post(func() {
		switch ev.Kind {
		case signaling.EventPeerJoined:
			s.check(s.machine.HandlePeerJoined())
		case signaling.EventOffer:
			s.check(s.machine.HandleOffer(ev.Payload))
		case signaling.EventAnswer:
			s.check(s.machine.HandleAnswer(ev.Payload))
		case signaling.EventCandidate:
			s.check(s.machine.HandleCandidate(ev.Payload))
		case signaling.EventError:
			s.log.Warn("relay error", "error", ev.Err)
			s.warn(ev.Err)
		case signaling.EventDisconnected:
			s.check(s.machine.HandleRendezvousLost())
		}
	})
}

// SendChat sends text to the peer. The line is added to the local chat log
// before it is sent.
func (s *Session) SendChat(text string) error {
	return s.call(func() error {
		if err := s.sendable(); err != nil {
			return err
		}
		frame, err := protocol.Encode(protocol.Chat{Text: text})
		if err != nil {
			return err
		}
		s.chat.Append(transfer.Local, text)
		if err := s.ch.SendText(frame); err != nil {
			return fmt.Errorf("send chat: %w", err)
		}
		return nil
	})
}

// SendFile starts streaming src. It returns once the transfer has started;
// completion is reported through OnSendProgress and OnFileSent. Only one
// outbound transfer may run at a time.
func (s *Session) SendFile(src transfer.Source) error {
	return s.call(func() error {
		if err := s.sendable(); err != nil {
			return err
		}
		if s.sender != nil {
			return transfer.NewFileError("send", src.Name, transfer.ErrTransferInProgress)
		}

		sender := transfer.NewSender(s.ctl, src, s.cfg.ChunkSize, s.cb.OnSendProgress)
		s.sender = sender
		if err := sender.Start(); err != nil {
			s.sender = nil
			return err
		}
		s.afterSend(nil)
		return nil
	})
}

// sendable reports why nothing can be sent right now: the channel never
// opened, or it opened and has since closed.
func (s *Session) sendable() error {
	switch {
	case s.ch != nil:
		return nil
	case s.opened:
		return transfer.ErrChannelClosed
	default:
		return ErrNotConnected
	}
}

// afterSend settles the outbound transfer after the send loop returned.
func (s *Session) afterSend(err error) {
	if s.sender == nil {
		return
	}
	if err == nil {
		err = s.sender.Err()
	}
	if err != nil {
		s.sender = nil
		s.transferError(transfer.Outbound, err)
		return
	}
	if s.sender.Done() {
		src := s.sender.Source()
		s.sender = nil
		s.log.Info("file sent", "file", src.Name, "size", src.Size)
		if s.cb.OnFileSent != nil {
			s.cb.OnFileSent(src)
		}
	}
}

func (s *Session) onLocalCandidate(candidate []byte) {
	if err := s.machine.HandleLocalCandidate(candidate); err != nil {
		if errors.Is(err, negotiation.ErrViolation) {
			s.log.Debug("local candidate dropped", "error", err)
			return
		}
		s.log.Warn("forward local candidate", "error", err)
	}
}

func (s *Session) onOpen(ch channel.Channel) {
	early := s.early
	s.early = nil

	if err := s.machine.HandleChannelOpen(); err != nil {
		s.check(err)
		if s.machine.State() == negotiation.Failed {
			ch.Close()
		}
		return
	}

	ctl, err := flow.NewController(ch, flow.WithWatermarks(s.cfg.HighWaterMark, s.cfg.LowWaterMark))
	if err != nil {
		s.log.Error("configure flow control", "error", err)
		ch.Close()
		return
	}
	s.ch, s.ctl = ch, ctl
	s.opened = true
	s.log.Info("channel open")

	for _, f := range early {
		s.onFrame(f)
	}
}

func (s *Session) onFrame(f channel.Frame) {
	if s.ch == nil {
		if s.opened || s.machine.State() == negotiation.Failed {
			s.log.Debug("frame after close dropped", "bytes", len(f.Data))
			return
		}
		s.early = append(s.early, f)
		return
	}

	if !f.Text {
		if err := s.receiver.HandleChunk(f.Data); err != nil {
			if errors.Is(err, transfer.ErrNoTransfer) {
				s.log.Warn("chunk dropped", "error", err)
				return
			}
			s.transferError(transfer.Inbound, err)
		}
		return
	}

	msg, err := protocol.Decode(string(f.Data))
	if err != nil {
		s.log.Warn("control frame dropped", "error", err)
		return
	}

	switch m := msg.(type) {
	case protocol.Chat:
		s.chat.Append(transfer.Remote, m.Text)
		if s.cb.OnChatReceived != nil {
			s.cb.OnChatReceived(m.Text)
		}

	case protocol.FileMeta:
		if err := s.receiver.HandleMeta(m); err != nil {
			s.transferError(transfer.Inbound, err)
		}

	case protocol.FileEnd:
		artifact, err := s.receiver.HandleEnd()
		if err != nil {
			if errors.Is(err, transfer.ErrNoTransfer) {
				s.log.Warn("file-end dropped", "error", err)
				return
			}
			s.transferError(transfer.Inbound, err)
			return
		}
		if werr := artifact.SizeErr(); werr != nil {
			s.log.Warn("size mismatch", "error", werr)
			s.warn(werr)
		}
		s.log.Info("file received", "file", artifact.Name, "size", artifact.Size)
		if s.cb.OnFileReceived != nil {
			s.cb.OnFileReceived(artifact)
		}
	}
}

func (s *Session) onBufferedAmountLow() {
	if s.ctl == nil {
		return
	}
	err := s.ctl.Resume()
	s.afterSend(err)
}

func (s *Session) onClose(cause error) {
	s.check(s.machine.HandleChannelClosed(cause))

	if s.sender != nil {
		src := s.sender.Source()
		s.sender.Abort(transfer.ErrChannelClosed)
		s.sender = nil
		s.transferError(transfer.Outbound, transfer.NewFileError("send", src.Name, transfer.ErrChannelClosed))
	}
	s.receiver.Abort(transfer.NewError("receive", transfer.ErrChannelClosed))
	s.ch, s.ctl = nil, nil
	s.early = nil
}

func (s *Session) transferError(dir transfer.Direction, err error) {
	s.log.Warn("transfer aborted", "direction", dir, "error", err)
	if s.cb.OnTransferError != nil {
		s.cb.OnTransferError(dir, err)
	}
}

func (s *Session) warn(err error) {
	if s.cb.OnWarning != nil {
		s.cb.OnWarning(err)
	}
}

// check logs the outcome of a negotiation reaction. Violations are dropped;
// real failures were already logged by the machine.
func (s *Session) check(err error) {
	switch {
	case err == nil:
	case errors.Is(err, negotiation.ErrViolation):
		s.log.Warn("negotiation message dropped", "error", err)
	default:
		s.log.Debug("negotiation step failed", "error", err)
	}
}

// linkEvents posts link callbacks into the event loop.
type linkEvents struct {
	s *Session
}

func (h linkEvents) OnLocalCandidate(candidate []byte) {
	h.s.post(func() { h.s.onLocalCandidate(candidate) })
}

func (h linkEvents) OnOpen(ch channel.Channel) {
	h.s.post(func() { h.s.onOpen(ch) })
}

func (h linkEvents) OnFrame(f channel.Frame) {
	h.s.post(func() { h.s.onFrame(f) })
}

func (h linkEvents) OnBufferedAmountLow() {
	h.s.post(h.s.onBufferedAmountLow)
}

func (h linkEvents) OnClose(err error) {
	h.s.post(func() { h.s.onClose(err) })
}
