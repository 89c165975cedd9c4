package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/warplink/internal/files"
	"github.com/BioHazard786/warplink/internal/negotiation"
	"github.com/BioHazard786/warplink/internal/transfer"
	"github.com/BioHazard786/warplink/internal/utils"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Peer is the part of a session the chat screen drives.
type Peer interface {
	Room() string
	Role() negotiation.Role
	SendChat(text string) error
	SendFile(src transfer.Source) error
}

const helpText = "type to chat · /send <path>... sends files or folders · /quit leaves"

// Messages produced by the chat screen's own commands.
type (
	chatSentMsg struct {
		text string
		err  error
	}
	sendStartedMsg struct {
		name string
		err  error
	}
)

// ChatModel is the interactive screen of a session: the chat log, transfer
// progress and a prompt.
type ChatModel struct {
	peer   Peer
	bridge *Bridge

	state   negotiation.State
	lines   []string
	input   textinput.Model
	log     viewport.Model
	spinner spinner.Model

	queue    []files.FileInfo
	current  *files.Outgoing
	outgoing *transferBar
	incoming *transferBar

	summary Summary

	width  int
	height int
}

func NewChatModel(peer Peer, bridge *Bridge) *ChatModel {
	in := textinput.New()
	in.Placeholder = "say something, or /send a file"
	in.Prompt = "› "
	in.CharLimit = 4096
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := &ChatModel{
		peer:    peer,
		bridge:  bridge,
		input:   in,
		log:     viewport.New(80, 16),
		spinner: s,
		width:   80,
		height:  24,
		summary: Summary{Room: peer.Room(), Started: time.Now()},
	}
	m.notice(MutedStyle.Render(helpText))
	return m
}

func (m *ChatModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.bridge != nil {
		cmds = append(cmds, m.bridge.wait())
	}
	return tea.Batch(cmds...)
}

// Summary returns what happened during the session so far.
func (m *ChatModel) Summary() Summary {
	return m.summary
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			return m, m.submit(text)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(10, msg.Width-4)
		m.layout()
		return m, nil

	case spinner.TickMsg:
		if m.state == negotiation.Connected || m.state.Terminal() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case chatSentMsg:
		if msg.err != nil {
			m.notice(ErrorStyle.Render(fmt.Sprintf("%s message not sent: %v", IconError, msg.err)))
		}
		return m, nil

	case sendStartedMsg:
		if msg.err != nil {
			m.notice(ErrorStyle.Render(fmt.Sprintf("%s %s: %v", IconError, msg.name, msg.err)))
			m.finishSend(false)
			return m, m.startNext()
		}
		return m, nil

	case bridgeMsg:
		cmd := m.handleSession(msg.msg)
		return m, tea.Batch(cmd, m.bridge.wait())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSession reacts to a session callback.
func (m *ChatModel) handleSession(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case StateMsg:
		m.state = negotiation.State(msg)
		switch m.state {
		case negotiation.AwaitingPeer:
			m.notice(MutedStyle.Render(fmt.Sprintf("%s waiting for a peer in room %s", IconWaiting, m.peer.Room())))
		case negotiation.Connected:
			m.notice(SuccessStyle.Render(IconConnect + " connected, say hi"))
			return m.startNext()
		case negotiation.Failed:
			m.notice(ErrorStyle.Render(IconError + " connection lost, /quit to leave"))
		}

	case ChatMsg:
		m.summary.Messages++
		m.notice(PeerStyle.Render("peer") + " " + msg.Text)

	case ProgressMsg:
		bar := m.outgoing
		if msg.Direction == transfer.Inbound {
			if m.incoming == nil {
				m.incoming = newTransferBar(IconReceive+" incoming file", 0)
			}
			bar = m.incoming
		}
		if bar != nil {
			bar.set(msg.Percent)
		}

	case SentMsg:
		m.summary.Sent = append(m.summary.Sent, transfer.Artifact{Name: msg.Name, Size: msg.Size})
		m.notice(SuccessStyle.Render(IconSuccess) + fmt.Sprintf(" sent %s (%s)", msg.Name, utils.FormatSize(msg.Size)))
		m.finishSend(true)
		return m.startNext()

	case ReceivedMsg:
		m.incoming = nil
		m.summary.Received = append(m.summary.Received, transfer.Artifact(msg))
		m.notice(SuccessStyle.Render(IconReceive) + " " + describeArtifact(transfer.Artifact(msg)))

	case TransferErrMsg:
		m.notice(ErrorStyle.Render(fmt.Sprintf("%s %s failed: %v", IconError, msg.Direction, msg.Err)))
		if msg.Direction == transfer.Inbound {
			m.incoming = nil
			return nil
		}
		m.finishSend(false)
		return m.startNext()

	case WarningMsg:
		m.notice(WarningStyle.Render(fmt.Sprintf("%s %v", IconWarning, msg.Err)))
	}
	return nil
}

func (m *ChatModel) submit(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	if !strings.HasPrefix(text, "/") {
		return m.say(text)
	}

	fields := strings.Fields(text)
	switch fields[0] {
	case "/quit", "/exit":
		return tea.Quit
	case "/help":
		m.notice(MutedStyle.Render(helpText))
	case "/send":
		return m.enqueue(fields[1:])
	default:
		m.notice(WarningStyle.Render(fmt.Sprintf("%s unknown command %s", IconWarning, fields[0])))
	}
	return nil
}

func (m *ChatModel) say(text string) tea.Cmd {
	if m.state != negotiation.Connected {
		m.notice(WarningStyle.Render(IconWaiting + " not connected yet"))
		return nil
	}
	m.summary.Messages++
	m.notice(YouStyle.Render("you") + " " + text)

	peer := m.peer
	return func() tea.Msg {
		return chatSentMsg{text: text, err: peer.SendChat(text)}
	}
}

func (m *ChatModel) enqueue(paths []string) tea.Cmd {
	infos, err := files.ValidateFiles(paths)
	if err != nil {
		m.notice(ErrorStyle.Render(IconError + " " + err.Error()))
		return nil
	}

	items := make([]FileTableItem, len(infos))
	for i, f := range infos {
		items[i] = FileTableItem{Index: len(m.queue) + i + 1, Name: f.Name, Size: f.Size, Type: f.Type}
	}
	m.notice(NewFileTable(items).View())
	m.notice(MutedStyle.Render(fmt.Sprintf("%d file(s), %s", len(infos), utils.FormatSize(files.GetTotalSize(infos)))))

	m.queue = append(m.queue, infos...)
	if m.current != nil {
		return nil
	}
	return m.startNext()
}

// startNext begins the next queued send, if nothing is being sent.
func (m *ChatModel) startNext() tea.Cmd {
	if m.current != nil || len(m.queue) == 0 {
		return nil
	}
	if m.state != negotiation.Connected {
		m.notice(WarningStyle.Render(fmt.Sprintf("%s %d file(s) queued until connected", IconWaiting, len(m.queue))))
		return nil
	}

	info := m.queue[0]
	m.queue = m.queue[1:]

	out, err := files.Open(info)
	if err != nil {
		m.notice(ErrorStyle.Render(fmt.Sprintf("%s %s: %v", IconError, info.Name, err)))
		return m.startNext()
	}
	m.current = out
	m.outgoing = newTransferBar(IconSend+" "+out.Info.Name, out.Info.Size)

	peer, src := m.peer, out.Source()
	return func() tea.Msg {
		return sendStartedMsg{name: src.Name, err: peer.SendFile(src)}
	}
}

func (m *ChatModel) finishSend(ok bool) {
	m.Close()
	m.outgoing = nil
	if !ok {
		m.summary.Failed++
	}
}

// Close releases the file being sent, if any.
func (m *ChatModel) Close() {
	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
}

func (m *ChatModel) notice(line string) {
	m.lines = append(m.lines, line)
	m.log.SetContent(strings.Join(m.lines, "\n"))
	m.log.GotoBottom()
}

func (m *ChatModel) layout() {
	reserved := 6
	if m.outgoing != nil {
		reserved++
	}
	if m.incoming != nil {
		reserved++
	}
	m.log.Width = m.width
	m.log.Height = max(3, m.height-reserved)
	m.log.GotoBottom()
}

func (m *ChatModel) View() string {
	m.layout()

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.log.View())
	b.WriteString("\n")
	for _, bar := range []*transferBar{m.outgoing, m.incoming} {
		if bar != nil {
			b.WriteString(bar.View())
			b.WriteString("\n")
		}
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("enter send · ctrl+c quit"))
	return b.String()
}

func (m *ChatModel) header() string {
	status := m.state.String()
	if m.state != negotiation.Connected && !m.state.Terminal() {
		status = m.spinner.View() + " " + status
	}
	title := HeaderStyle.Render(fmt.Sprintf("%s warplink · room %s", IconRoom, m.peer.Room()))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", MutedStyle.Render(m.peer.Role().String()), " ", StatusStyle.Render(status))
}

// describeArtifact formats a received file for the chat log.
func describeArtifact(a transfer.Artifact) string {
	kind := ""
	switch {
	case a.Path != "":
		kind = files.DetectType(a.Path)
	case len(a.Data) > 0:
		kind = files.DetectBytes(a.Data)
	}

	line := fmt.Sprintf("received %s (%s)", a.Name, utils.FormatSize(a.Size))
	if kind != "" {
		line += " " + MutedStyle.Render(kind)
	}
	if a.Path != "" {
		line += " → " + a.Path
	}
	return line
}
