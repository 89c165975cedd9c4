package webrtc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/BioHazard786/warplink/internal/channel"
	pion "github.com/pion/webrtc/v4"
)

var ErrUnexpectedType = errors.New("unexpected session description type")

type Option func(*options)

type options struct {
	settings pion.SettingEngine
	log      *slog.Logger
}

// WithSettingEngine tunes the ICE agent, for example to allow loopback
// candidates.
func WithSettingEngine(se pion.SettingEngine) Option {
	return func(o *options) { o.settings = se }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Link is one peer connection carrying a single ordered, reliable data
// channel. The initiator creates the channel in CreateOffer; the joiner gets
// it from the remote side.
type Link struct {
	pc  *pion.PeerConnection
	log *slog.Logger

	mu        sync.Mutex
	handler   channel.Handler
	closeOnce sync.Once
}

var _ channel.Link = (*Link)(nil)

func NewLink(conf pion.Configuration, opts ...Option) (*Link, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	api := pion.NewAPI(pion.WithSettingEngine(o.settings))
	pc, err := api.NewPeerConnection(conf)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	l := &Link{pc: pc, log: o.log}
	pc.OnICECandidate(l.onICECandidate)
	pc.OnDataChannel(l.attach)
	pc.OnConnectionStateChange(l.onConnectionState)
	return l, nil
}

func (l *Link) Bind(h channel.Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

func (l *Link) bound() channel.Handler {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handler
}

// CreateOffer creates the data channel and returns the JSON offer. ICE
// candidates trickle out through the handler afterwards.
func (l *Link) CreateOffer() ([]byte, error) {
	ordered := true
	dc, err := l.pc.CreateDataChannel(ChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	l.attach(dc)

	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(l.pc.LocalDescription())
}

// AcceptOffer applies the remote offer and returns the JSON answer.
func (l *Link) AcceptOffer(payload []byte) ([]byte, error) {
	offer, err := parseDescription(payload, pion.SDPTypeOffer)
	if err != nil {
		return nil, err
	}
	if err := l.pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(l.pc.LocalDescription())
}

func (l *Link) AcceptAnswer(payload []byte) error {
	answer, err := parseDescription(payload, pion.SDPTypeAnswer)
	if err != nil {
		return err
	}
	if err := l.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (l *Link) AddCandidate(payload []byte) error {
	var ice pion.ICECandidateInit
	if err := json.Unmarshal(payload, &ice); err != nil {
		return fmt.Errorf("parse ICE candidate: %w", err)
	}
	if err := l.pc.AddICECandidate(ice); err != nil {
		return fmt.Errorf("add ICE candidate: %w", err)
	}
	return nil
}

func (l *Link) Close() error {
	return l.pc.Close()
}

func parseDescription(payload []byte, want pion.SDPType) (pion.SessionDescription, error) {
	var desc pion.SessionDescription
	if err := json.Unmarshal(payload, &desc); err != nil {
		return desc, fmt.Errorf("parse session description: %w", err)
	}
	if desc.Type != want {
		return desc, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedType, desc.Type, want)
	}
	return desc, nil
}

func (l *Link) onICECandidate(c *pion.ICECandidate) {
	if c == nil {
		l.log.Debug("candidate gathering complete")
		return
	}
	payload, err := json.Marshal(c.ToJSON())
	if err != nil {
		l.log.Warn("encode local candidate", "error", err)
		return
	}
	if h := l.bound(); h != nil {
		h.OnLocalCandidate(payload)
	}
}

func (l *Link) onConnectionState(state pion.PeerConnectionState) {
	l.log.Debug("peer connection state", "state", state)
	switch state {
	case pion.PeerConnectionStateFailed:
		l.closed(fmt.Errorf("peer connection %s", state))
	case pion.PeerConnectionStateClosed:
		l.closed(nil)
	}
}

// closed reports the end of the link once, whichever way it ended.
func (l *Link) closed(cause error) {
	l.closeOnce.Do(func() {
		if h := l.bound(); h != nil {
			h.OnClose(cause)
		}
	})
}

func (l *Link) attach(dc *pion.DataChannel) {
	if dc.Label() != ChannelLabel {
		l.log.Warn("unexpected data channel", "label", dc.Label())
		dc.Close()
		return
	}

	// pion runs the open handler and the read loop on separate goroutines,
	// so the first message can arrive before OnOpen fires.
	ch := &dataChannel{dc: dc}
	dc.OnOpen(func() {
		l.log.Debug("data channel open", "label", dc.Label())
		ch.announce(l.bound())
	})
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		h := l.bound()
		ch.announce(h)
		if h != nil {
			h.OnFrame(channel.Frame{Text: msg.IsString, Data: msg.Data})
		}
	})
	dc.OnBufferedAmountLow(func() {
		if h := l.bound(); h != nil {
			h.OnBufferedAmountLow()
		}
	})
	dc.OnError(func(err error) {
		l.log.Debug("data channel error", "error", err)
	})
	dc.OnClose(func() {
		l.closed(errors.New("data channel closed"))
	})
}

// dataChannel adapts a pion data channel to channel.Channel.
type dataChannel struct {
	dc       *pion.DataChannel
	openOnce sync.Once
}

// announce reports the channel open to h exactly once. It returns after the
// open has been reported, whichever goroutine got there first.
func (c *dataChannel) announce(h channel.Handler) {
	c.openOnce.Do(func() {
		if h != nil {
			h.OnOpen(c)
		}
	})
}

func (c *dataChannel) BufferedAmount() uint64 { return c.dc.BufferedAmount() }

func (c *dataChannel) SetBufferedAmountLowThreshold(threshold uint64) {
	c.dc.SetBufferedAmountLowThreshold(threshold)
}

func (c *dataChannel) Send(data []byte) error {
	return c.check(c.dc.Send(data))
}

func (c *dataChannel) SendText(text string) error {
	return c.check(c.dc.SendText(text))
}

func (c *dataChannel) Close() error {
	return c.dc.Close()
}

// check maps send failures on a channel that is no longer open to
// channel.ErrClosed.
func (c *dataChannel) check(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.ErrClosedPipe) || c.dc.ReadyState() != pion.DataChannelStateOpen {
		return fmt.Errorf("%w: %v", channel.ErrClosed, err)
	}
	return err
}
