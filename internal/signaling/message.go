package signaling

import "encoding/json"

// Message is the JSON object exchanged with the relay, one per websocket
// message. Payload is forwarded by the relay without inspection.
type Message struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	MessageTypeJoinRoom     = "join-room"
	MessageTypePeerJoined   = "peer-joined"
	MessageTypeOffer        = "offer"
	MessageTypeAnswer       = "answer"
	MessageTypeICECandidate = "ice-candidate"
	MessageTypeError        = "error"
)

// ErrorPayload represents error messages from the relay.
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewErrorMessage builds an error message for room.
func NewErrorMessage(room, text string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Error: text})
	return &Message{Type: MessageTypeError, RoomID: room, Payload: payload}
}
