// Package channeltest provides in-memory channel.Channel and channel.Link
// implementations for tests.
package channeltest

import (
	"errors"
	"sync"

	"github.com/BioHazard786/warplink/internal/channel"
)

// ErrFakeClosed is returned by FakeChannel after Close.
var ErrFakeClosed = errors.New("fake channel closed")

// FakeChannel is an in-memory Channel for tests. Sent frames accumulate in
// Frames; BufferedAmount is driven explicitly with SetBuffered/Drain, and
// every sent byte is added to it when AutoBuffer is set.
type FakeChannel struct {
	mu         sync.Mutex
	buffered   uint64
	threshold  uint64
	closed     bool
	AutoBuffer bool
	Frames     []channel.Frame

	// OnLow is called when Drain crosses the low threshold.
	OnLow func()
	// OnSend is called after each successful send.
	OnSend func(f channel.Frame)
	// FailAfter makes the n+1th send fail with ErrFakeClosed when non-negative.
	FailAfter int
}

var _ channel.Channel = (*FakeChannel)(nil)

func NewFakeChannel() *FakeChannel {
	return &FakeChannel{FailAfter: -1}
}

func (c *FakeChannel) BufferedAmount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffered
}

func (c *FakeChannel) SetBufferedAmountLowThreshold(threshold uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = threshold
}

func (c *FakeChannel) Threshold() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threshold
}

func (c *FakeChannel) Send(data []byte) error {
	return c.send(channel.Frame{Data: append([]byte(nil), data...)})
}

func (c *FakeChannel) SendText(text string) error {
	return c.send(channel.Frame{Text: true, Data: []byte(text)})
}

func (c *FakeChannel) send(f channel.Frame) error {
	c.mu.Lock()
	if c.closed || c.FailAfter == 0 {
		c.mu.Unlock()
		return ErrFakeClosed
	}
	if c.FailAfter > 0 {
		c.FailAfter--
	}
	c.Frames = append(c.Frames, f)
	if c.AutoBuffer {
		c.buffered += uint64(len(f.Data))
	}
	onSend := c.OnSend
	c.mu.Unlock()

	if onSend != nil {
		onSend(f)
	}
	return nil
}

func (c *FakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// SetBuffered sets the buffered amount without firing the low event.
func (c *FakeChannel) SetBuffered(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffered = n
}

// Drain lowers the buffered amount to n and fires OnLow on a crossing from
// above the threshold to at or below it.
func (c *FakeChannel) Drain(n uint64) {
	c.mu.Lock()
	crossed := c.buffered > c.threshold && n <= c.threshold
	c.buffered = n
	onLow := c.OnLow
	c.mu.Unlock()

	if crossed && onLow != nil {
		onLow()
	}
}

// Binary returns the binary frames sent so far.
func (c *FakeChannel) Binary() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, f := range c.Frames {
		if !f.Text {
			out = append(out, f.Data)
		}
	}
	return out
}

// Texts returns the text frames sent so far.
func (c *FakeChannel) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, f := range c.Frames {
		if f.Text {
			out = append(out, string(f.Data))
		}
	}
	return out
}

// Sent returns a copy of every frame sent so far.
func (c *FakeChannel) Sent() []channel.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]channel.Frame(nil), c.Frames...)
}
