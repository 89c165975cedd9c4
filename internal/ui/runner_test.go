package ui

import (
	"testing"
	"time"

	"github.com/BioHazard786/warplink/internal/negotiation"
	"github.com/BioHazard786/warplink/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeDeliversCallbacks(t *testing.T) {
	b := NewBridge()
	defer b.Close()
	cb := b.Callbacks()

	cb.OnStateChange(negotiation.Connected)
	cb.OnChatReceived("hi")
	cb.OnReceiveProgress(30)
	cb.OnTransferError(transfer.Outbound, transfer.ErrChannelClosed)

	want := []any{
		StateMsg(negotiation.Connected),
		ChatMsg{Text: "hi"},
		ProgressMsg{Direction: transfer.Inbound, Percent: 30},
		TransferErrMsg{Direction: transfer.Outbound, Err: transfer.ErrChannelClosed},
	}
	for _, w := range want {
		assert.Equal(t, bridgeMsg{msg: w}, b.wait()())
	}
}

func TestBridgeDropsProgressWhenFull(t *testing.T) {
	b := NewBridge()
	cb := b.Callbacks()

	for range cap(b.updates) {
		cb.OnStateChange(negotiation.Connected)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		cb.OnSendProgress(50)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("progress blocked on a full bridge")
	}

	blocked := make(chan struct{})
	go func() {
		defer close(blocked)
		cb.OnChatReceived("late")
	}()
	b.Close()
	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("close did not release a blocked callback")
	}

	require.Len(t, b.updates, cap(b.updates))
}

func TestBridgeWaitAfterClose(t *testing.T) {
	b := NewBridge()
	b.Close()
	b.Close()
	assert.Nil(t, b.wait()())
}
