package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRelay wraps error messages sent by the relay.
var ErrRelay = errors.New("relay error")

type EventKind int

const (
	EventPeerJoined EventKind = iota
	EventOffer
	EventAnswer
	EventCandidate
	EventError
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventPeerJoined:
		return MessageTypePeerJoined
	case EventOffer:
		return MessageTypeOffer
	case EventAnswer:
		return MessageTypeAnswer
	case EventCandidate:
		return MessageTypeICECandidate
	case EventError:
		return MessageTypeError
	case EventDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a relay notification for one room. Disconnected events carry no
// room: they concern every room joined over the connection.
type Event struct {
	Kind    EventKind
	Room    string
	Payload []byte
	Err     error
}

// toEvent routes an incoming relay message to an Event. Unknown types are
// reported as not ok.
func toEvent(msg *Message) (Event, bool) {
	ev := Event{Room: msg.RoomID}

	switch msg.Type {
	case MessageTypePeerJoined:
		ev.Kind = EventPeerJoined
	case MessageTypeOffer:
		ev.Kind = EventOffer
		ev.Payload = msg.Payload
	case MessageTypeAnswer:
		ev.Kind = EventAnswer
		ev.Payload = msg.Payload
	case MessageTypeICECandidate:
		ev.Kind = EventCandidate
		ev.Payload = msg.Payload
	case MessageTypeError:
		ev.Kind = EventError
		ev.Err = decodeError(msg.Payload)
	default:
		return Event{}, false
	}
	return ev, true
}

func decodeError(payload json.RawMessage) error {
	var errPayload ErrorPayload
	if len(payload) == 0 || json.Unmarshal(payload, &errPayload) != nil || errPayload.Error == "" {
		return fmt.Errorf("%w: unknown error from server", ErrRelay)
	}
	return fmt.Errorf("%w: %s", ErrRelay, errPayload.Error)
}
