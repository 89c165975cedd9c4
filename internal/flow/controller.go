// Package flow paces outbound chunk writes against the channel's send buffer.
package flow

import (
	"fmt"

	"github.com/BioHazard786/warplink/internal/channel"
)

// --- Buffer Management Constants ---
const (
	DefaultHighWaterMark = 8 * 1024 * 1024 // 8 MiB - backpressure threshold
	DefaultLowWaterMark  = 64 * 1024       // 64 KiB - resume threshold
)

// Continuation resumes a suspended send loop.
type Continuation func() error

// Controller gates chunk writes with a high-water mark and parks the sender
// until the channel reports its buffer drained to the low-water mark.
//
// A Controller is owned by one session event loop and is not safe for
// concurrent use.
type Controller struct {
	ch        channel.Channel
	high      uint64
	low       uint64
	parked    Continuation
	deferrals int
}

type Option func(*Controller)

// WithWatermarks overrides the reference watermarks.
func WithWatermarks(high, low uint64) Option {
	return func(c *Controller) {
		c.high = high
		c.low = low
	}
}

// NewController configures ch's low-water threshold and returns a controller
// for it.
func NewController(ch channel.Channel, opts ...Option) (*Controller, error) {
	c := &Controller{
		ch:   ch,
		high: DefaultHighWaterMark,
		low:  DefaultLowWaterMark,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.low >= c.high {
		return nil, fmt.Errorf("low-water mark %d must be below high-water mark %d", c.low, c.high)
	}

	ch.SetBufferedAmountLowThreshold(c.low)
	return c, nil
}

// Admit reports whether a chunk may be written now. When the buffer is above
// the high-water mark it parks resume and returns false; resume then runs
// from the next Resume call, never from a timer.
//
// Buffered bytes are at most high at the moment Admit returns true, so the
// buffer never exceeds high plus one chunk.
func (c *Controller) Admit(resume Continuation) bool {
	if c.ch.BufferedAmount() > c.high {
		c.parked = resume
		c.deferrals++
		return false
	}
	return true
}

// SendChunk writes a binary chunk. Callers must have been admitted.
func (c *Controller) SendChunk(chunk []byte) error {
	return c.ch.Send(chunk)
}

// SendControl writes a control frame, bypassing the watermark check.
func (c *Controller) SendControl(text string) error {
	return c.ch.SendText(text)
}

// Resume runs the parked continuation, if any, exactly once. It is driven by
// the channel's low-water event.
func (c *Controller) Resume() error {
	next := c.parked
	if next == nil {
		return nil
	}
	c.parked = nil
	return next()
}

// Parked reports whether a sender is waiting for the low-water event.
func (c *Controller) Parked() bool {
	return c.parked != nil
}

// Cancel drops any parked continuation without running it.
func (c *Controller) Cancel() {
	c.parked = nil
}

// Deferrals is the number of times a send was deferred.
func (c *Controller) Deferrals() int {
	return c.deferrals
}

func (c *Controller) HighWaterMark() uint64 { return c.high }
func (c *Controller) LowWaterMark() uint64  { return c.low }
