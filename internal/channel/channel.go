// Package channel describes the direct peer channel the core runs on and the
// external mechanism that establishes it. The pion adapter in
// internal/webrtc is the production implementation.
package channel

import "errors"

// ErrClosed is reported for sends after close and for a channel that closed
// underneath its users.
var ErrClosed = errors.New("channel closed")

// Channel is an ordered, reliable, message-oriented duplex pipe. Text and
// binary frames share the channel and keep their kind end to end.
type Channel interface {
	// BufferedAmount is the number of bytes queued for sending but not yet
	// handed to the network.
	BufferedAmount() uint64

	// SetBufferedAmountLowThreshold sets the low watermark. The link reports
	// Handler.OnBufferedAmountLow whenever BufferedAmount crosses from above to
	// at or below it.
	SetBufferedAmountLowThreshold(threshold uint64)

	Send(data []byte) error
	SendText(text string) error
	Close() error
}

// Frame is one message received from the channel. The receiver owns Data.
type Frame struct {
	Text bool
	Data []byte
}

// Handler receives link events. Implementations must not assume the calling
// goroutine; the session posts every call into its own event loop.
type Handler interface {
	OnLocalCandidate(candidate []byte)
	OnOpen(ch Channel)
	OnFrame(f Frame)
	OnBufferedAmountLow()
	OnClose(err error)
}

// Link is the opaque channel-establishment capability: it produces and
// consumes negotiation artifacts and eventually yields an open Channel.
// Payloads are opaque to the core.
type Link interface {
	// CreateOffer is called on the initiator once its peer is known.
	CreateOffer() ([]byte, error)

	// AcceptOffer applies a remote offer and returns the local answer.
	AcceptOffer(offer []byte) ([]byte, error)

	// AcceptAnswer applies the remote answer on the initiator.
	AcceptAnswer(answer []byte) error

	AddCandidate(candidate []byte) error

	// Bind installs the event handler. It is called once, before any other
	// method.
	Bind(h Handler)

	Close() error
}
