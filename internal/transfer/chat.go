package transfer

import (
	"sync"
	"time"
)

// Origin tells who wrote a chat line.
type Origin int

const (
	Local Origin = iota
	Remote
)

func (o Origin) String() string {
	if o == Local {
		return "local"
	}
	return "remote"
}

type ChatEntry struct {
	From Origin
	Text string
	At   time.Time
}

// ChatLog is the ordered chat history of one session. Local lines are
// appended when they are sent, without waiting for any acknowledgement.
type ChatLog struct {
	mu      sync.RWMutex
	entries []ChatEntry
	now     func() time.Time
}

func NewChatLog() *ChatLog {
	return &ChatLog{now: time.Now}
}

func (l *ChatLog) Append(from Origin, text string) ChatEntry {
	entry := ChatEntry{From: from, Text: text, At: l.now()}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return entry
}

// Entries returns a copy of the log.
func (l *ChatLog) Entries() []ChatEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]ChatEntry(nil), l.entries...)
}

func (l *ChatLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
