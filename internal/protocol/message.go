package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Control message types carried in text frames on the data channel.
const (
	TypeChat     = "chat"
	TypeFileMeta = "file-meta"
	TypeFileEnd  = "file-end"
)

var (
	ErrUnknownType = errors.New("unknown control message type")
	ErrMalformed   = errors.New("malformed control message")
)

// Message is one of Chat, FileMeta or FileEnd.
type Message interface {
	Type() string
}

// Chat is a line of chat text.
type Chat struct {
	Text string
}

// FileMeta announces a file that is about to be streamed as binary frames.
type FileMeta struct {
	Name string
	Size int64
}

// FileEnd marks the end of the binary frames of the current file.
type FileEnd struct{}

func (Chat) Type() string     { return TypeChat }
func (FileMeta) Type() string { return TypeFileMeta }
func (FileEnd) Type() string  { return TypeFileEnd }

// envelope is the flat JSON shape shared by every control message, e.g.
// {"type":"file-meta","name":"a.txt","size":40960}.
type envelope struct {
	Type string  `json:"type"`
	Text *string `json:"text,omitempty"`
	Name *string `json:"name,omitempty"`
	Size *int64  `json:"size,omitempty"`
}

// Encode renders msg as the UTF-8 JSON text carried by a text frame.
func Encode(msg Message) (string, error) {
	var env envelope
	switch m := msg.(type) {
	case Chat:
		env = envelope{Type: TypeChat, Text: &m.Text}
	case *Chat:
		env = envelope{Type: TypeChat, Text: &m.Text}
	case FileMeta:
		if m.Size < 0 {
			return "", fmt.Errorf("%w: negative size %d", ErrMalformed, m.Size)
		}
		env = envelope{Type: TypeFileMeta, Name: &m.Name, Size: &m.Size}
	case *FileMeta:
		return Encode(*m)
	case FileEnd, *FileEnd:
		env = envelope{Type: TypeFileEnd}
	case nil:
		return "", fmt.Errorf("%w: nil message", ErrMalformed)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}

	b, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses the text of a text frame. Binary frames never reach Decode:
// the frame kind, not its content, tells chunks and control messages apart.
func Decode(text string) (Message, error) {
	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeChat:
		var chat Chat
		if env.Text != nil {
			chat.Text = *env.Text
		}
		return chat, nil

	case TypeFileMeta:
		if env.Size == nil {
			return nil, fmt.Errorf("%w: file-meta without size", ErrMalformed)
		}
		if *env.Size < 0 {
			return nil, fmt.Errorf("%w: negative size %d", ErrMalformed, *env.Size)
		}
		meta := FileMeta{Size: *env.Size}
		if env.Name != nil {
			meta.Name = *env.Name
		}
		return meta, nil

	case TypeFileEnd:
		return FileEnd{}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
