package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLogOrder(t *testing.T) {
	log := NewChatLog()
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return at }

	log.Append(Local, "hi")
	log.Append(Remote, "hello")
	log.Append(Local, "bye")

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, ChatEntry{From: Local, Text: "hi", At: at}, entries[0])
	assert.Equal(t, Remote, entries[1].From)
	assert.Equal(t, "bye", entries[2].Text)
	assert.Equal(t, 3, log.Len())

	entries[0].Text = "changed"
	assert.Equal(t, "hi", log.Entries()[0].Text)
}

func TestOriginString(t *testing.T) {
	assert.Equal(t, "local", Local.String())
	assert.Equal(t, "remote", Remote.String())
	assert.Equal(t, "send", Outbound.String())
	assert.Equal(t, "receive", Inbound.String())
}
