package channeltest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BioHazard786/warplink/internal/channel"
)

var ErrUnexpectedDescription = errors.New("unexpected session description")

// FakeLink is one end of an in-memory link created by Pipe. Offers and
// answers are plain strings naming the side that produced them; each side
// reports one local candidate after producing its description. The channel
// opens on both ends once the initiator accepts the answer.
type FakeLink struct {
	mu         sync.Mutex
	name       string
	peer       *FakeLink
	handler    channel.Handler
	ch         *PipeChannel
	Candidates []string
	closed     bool
}

var _ channel.Link = (*FakeLink)(nil)

// Pipe returns two connected links.
func Pipe() (*FakeLink, *FakeLink) {
	a := &FakeLink{name: "a"}
	b := &FakeLink{name: "b"}
	a.peer, b.peer = b, a

	shared := &pipeState{closeAfter: -1}
	a.ch = &PipeChannel{owner: a, state: shared}
	b.ch = &PipeChannel{owner: b, state: shared}
	return a, b
}

func (l *FakeLink) Bind(h channel.Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

func (l *FakeLink) bound() channel.Handler {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handler
}

func (l *FakeLink) CreateOffer() ([]byte, error) {
	l.localCandidate()
	return []byte("offer-from-" + l.name), nil
}

func (l *FakeLink) AcceptOffer(offer []byte) ([]byte, error) {
	if string(offer) != "offer-from-"+l.peer.name {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedDescription, offer)
	}
	l.localCandidate()
	return []byte("answer-from-" + l.name), nil
}

func (l *FakeLink) AcceptAnswer(answer []byte) error {
	if string(answer) != "answer-from-"+l.peer.name {
		return fmt.Errorf("%w: %q", ErrUnexpectedDescription, answer)
	}
	if h := l.bound(); h != nil {
		h.OnOpen(l.ch)
	}
	if h := l.peer.bound(); h != nil {
		h.OnOpen(l.peer.ch)
	}
	return nil
}

func (l *FakeLink) AddCandidate(candidate []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Candidates = append(l.Candidates, string(candidate))
	return nil
}

// RemoteCandidates returns the candidates added so far.
func (l *FakeLink) RemoteCandidates() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Candidates...)
}

func (l *FakeLink) localCandidate() {
	if h := l.bound(); h != nil {
		h.OnLocalCandidate([]byte("candidate-from-" + l.name))
	}
}

// Close closes the link and both ends of its channel.
func (l *FakeLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	l.ch.state.shutdown(l, nil)
	return nil
}

// Channel returns this end's channel.
func (l *FakeLink) Channel() *PipeChannel {
	return l.ch
}

// CloseAfterBinary closes the channel right after the nth binary frame has
// been delivered, in either direction.
func (l *FakeLink) CloseAfterBinary(n int) {
	l.ch.state.mu.Lock()
	defer l.ch.state.mu.Unlock()
	l.ch.state.closeAfter = n
}

type pipeState struct {
	mu         sync.Mutex
	closed     bool
	binary     int
	closeAfter int
}

// shutdown reports the close to both ends once.
func (p *pipeState) shutdown(from *FakeLink, cause error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for _, end := range []*FakeLink{from, from.peer} {
		if h := end.bound(); h != nil {
			h.OnClose(cause)
		}
	}
}

// PipeChannel delivers every frame straight to the peer's handler, so its
// buffered amount is always zero.
type PipeChannel struct {
	owner *FakeLink
	state *pipeState
}

var _ channel.Channel = (*PipeChannel)(nil)

func (c *PipeChannel) BufferedAmount() uint64 { return 0 }

func (c *PipeChannel) SetBufferedAmountLowThreshold(uint64) {}

func (c *PipeChannel) Send(data []byte) error {
	return c.deliver(channel.Frame{Data: append([]byte(nil), data...)})
}

func (c *PipeChannel) SendText(text string) error {
	return c.deliver(channel.Frame{Text: true, Data: []byte(text)})
}

func (c *PipeChannel) deliver(f channel.Frame) error {
	s := c.state
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return channel.ErrClosed
	}
	cut := false
	if !f.Text {
		s.binary++
		cut = s.closeAfter >= 0 && s.binary >= s.closeAfter
	}
	s.mu.Unlock()

	if h := c.owner.peer.bound(); h != nil {
		h.OnFrame(f)
	}
	if cut {
		s.shutdown(c.owner, errors.New("transport reset"))
	}
	return nil
}

func (c *PipeChannel) Close() error {
	return c.owner.Close()
}
