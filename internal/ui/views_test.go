package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/BioHazard786/warplink/internal/transfer"
	"github.com/stretchr/testify/assert"
)

func TestTransferBar(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	bar := newTransferBar("report.pdf", 1000)
	bar.now = func() time.Time { return now }

	bar.set(0)
	assert.Zero(t, bar.speed())
	_, ok := bar.eta()
	assert.False(t, ok)

	now = start.Add(time.Second)
	bar.set(50)
	assert.InDelta(t, 500, bar.speed(), 0.001)
	left, ok := bar.eta()
	assert.True(t, ok)
	assert.Equal(t, time.Second, left)

	view := bar.View()
	assert.Contains(t, view, "report.pdf")
	assert.Contains(t, view, "50%")
	assert.Contains(t, view, "500 B/s")

	bar.set(140)
	assert.Equal(t, 100, bar.percent)
	_, ok = bar.eta()
	assert.False(t, ok)
}

func TestTransferBarUnknownSize(t *testing.T) {
	bar := newTransferBar("incoming", 0)
	bar.set(20)
	assert.Zero(t, bar.speed())
	assert.NotContains(t, bar.View(), "B/s")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "日本語...", truncateString("日本語のファイル名", 6))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}

func TestFileTable(t *testing.T) {
	assert.Contains(t, NewFileTable(nil).View(), "No files")

	view := NewFileTable([]FileTableItem{
		{Index: 1, Name: "a.txt", Size: 2048, Type: "text/plain"},
		{Index: 2, Name: "photos.zip", Type: "application/zip"},
	}).View()
	assert.Contains(t, view, "a.txt")
	assert.Contains(t, view, "2.00 KB")
	assert.Contains(t, view, "folder")
}

func TestSummaryView(t *testing.T) {
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Summary{
		Room:     "4821",
		Started:  started,
		Messages: 3,
		Sent:     []transfer.Artifact{{Name: "a", Size: 1024}},
	}

	view := SummaryView(s, started.Add(90*time.Second))
	assert.Contains(t, view, "4821")
	assert.Contains(t, view, "1 (1.00 KB)")
	assert.NotContains(t, view, "Failed")

	s.Failed = 2
	assert.Contains(t, SummaryView(s, started), "Failed")
}

func TestRoomInfo(t *testing.T) {
	host := RoomInfo{RoomID: "4821", Host: true}.View()
	assert.Contains(t, host, "Room ready")
	assert.Contains(t, host, "warplink join 4821")

	assert.Contains(t, RoomInfo{RoomID: "4821"}.View(), "Joining room")
}

func TestLineSpinner(t *testing.T) {
	var out bytes.Buffer
	sp := NewConnectionSpinner(&out, "connecting")
	sp.Start()
	sp.Stop()
	sp.Stop()

	assert.True(t, strings.Contains(out.String(), "connecting"))
	assert.True(t, strings.HasSuffix(out.String(), "\r\033[K"))
}
