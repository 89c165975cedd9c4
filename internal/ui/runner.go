package ui

import (
	"context"
	"sync"

	"github.com/BioHazard786/warplink/internal/negotiation"
	"github.com/BioHazard786/warplink/internal/session"
	"github.com/BioHazard786/warplink/internal/transfer"
	tea "github.com/charmbracelet/bubbletea"
)

// Session callbacks as screen messages.
type (
	StateMsg    negotiation.State
	ChatMsg     struct{ Text string }
	SentMsg     transfer.Source
	ReceivedMsg transfer.Artifact
	WarningMsg  struct{ Err error }

	ProgressMsg struct {
		Direction transfer.Direction
		Percent   int
	}

	TransferErrMsg struct {
		Direction transfer.Direction
		Err       error
	}

	bridgeMsg struct{ msg tea.Msg }
)

// Bridge carries session callbacks to the chat screen. Callbacks run on the
// session's event loop, so progress updates are dropped rather than waited
// for when the screen falls behind.
type Bridge struct {
	updates   chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once
}

func NewBridge() *Bridge {
	return &Bridge{
		updates: make(chan tea.Msg, 256),
		done:    make(chan struct{}),
	}
}

// Callbacks returns session callbacks that feed the bridge.
func (b *Bridge) Callbacks() session.Callbacks {
	return session.Callbacks{
		OnStateChange:  func(s negotiation.State) { b.push(StateMsg(s)) },
		OnChatReceived: func(text string) { b.push(ChatMsg{Text: text}) },
		OnSendProgress: func(p int) {
			b.offer(ProgressMsg{Direction: transfer.Outbound, Percent: p})
		},
		OnReceiveProgress: func(p int) {
			b.offer(ProgressMsg{Direction: transfer.Inbound, Percent: p})
		},
		OnFileSent:     func(src transfer.Source) { b.push(SentMsg(src)) },
		OnFileReceived: func(a transfer.Artifact) { b.push(ReceivedMsg(a)) },
		OnTransferError: func(dir transfer.Direction, err error) {
			b.push(TransferErrMsg{Direction: dir, Err: err})
		},
		OnWarning: func(err error) { b.push(WarningMsg{Err: err}) },
	}
}

func (b *Bridge) push(msg tea.Msg) {
	select {
	case b.updates <- msg:
	case <-b.done:
	}
}

func (b *Bridge) offer(msg tea.Msg) {
	select {
	case b.updates <- msg:
	default:
	}
}

// Close releases anything blocked on the bridge.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// wait returns a command that delivers the next session update.
func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.updates:
			return bridgeMsg{msg: msg}
		case <-b.done:
			return nil
		}
	}
}

// RunChat runs the chat screen until the user quits or ctx is done. The
// caller closes the session and then the returned model.
func RunChat(ctx context.Context, peer Peer, bridge *Bridge) (*ChatModel, error) {
	model := NewChatModel(peer, bridge)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	bridge.Close()
	if m, ok := final.(*ChatModel); ok {
		return m, err
	}
	return model, err
}
