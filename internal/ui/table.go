package ui

import (
	"fmt"
	"time"

	"github.com/BioHazard786/warplink/internal/transfer"
	"github.com/BioHazard786/warplink/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// FileTableItem represents a file in the table
type FileTableItem struct {
	Index int
	Name  string
	Size  int64
	Type  string
}

// FileTable renders a file list using lipgloss/table
type FileTable struct {
	items []FileTableItem
}

func NewFileTable(items []FileTableItem) *FileTable {
	return &FileTable{items: items}
}

// View renders the table as a string
func (t *FileTable) View() string {
	if len(t.items) == 0 {
		return MutedStyle.Render("No files")
	}

	var rows [][]string
	for _, item := range t.items {
		size := utils.FormatSize(item.Size)
		if item.Type == "application/zip" && item.Size == 0 {
			size = "folder"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.Index),
			truncateString(item.Name, 50),
			size,
			truncateString(item.Type, 24),
		})
	}

	return styledTable([]string{"#", "Name", "Size", "Type"}, rows)
}

// Summary is what happened during one session.
type Summary struct {
	Room     string
	Started  time.Time
	Messages int
	Sent     []transfer.Artifact
	Received []transfer.Artifact
	Failed   int
}

func totalSize(items []transfer.Artifact) int64 {
	var total int64
	for _, a := range items {
		total += a.Size
	}
	return total
}

// SummaryView renders s as a two-column table.
func SummaryView(s Summary, now time.Time) string {
	rows := [][]string{
		{"Room", s.Room},
		{"Duration", utils.FormatTimeDuration(now.Sub(s.Started))},
		{"Messages", fmt.Sprintf("%d", s.Messages)},
		{"Sent", fmt.Sprintf("%d (%s)", len(s.Sent), utils.FormatSize(totalSize(s.Sent)))},
		{"Received", fmt.Sprintf("%d (%s)", len(s.Received), utils.FormatSize(totalSize(s.Received)))},
	}
	if s.Failed > 0 {
		rows = append(rows, []string{"Failed", fmt.Sprintf("%d", s.Failed)})
	}
	return styledTable([]string{"Session", ""}, rows)
}

func styledTable(headers []string, rows [][]string) string {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

type RoomInfo struct {
	RoomID string
	Host   bool
}

// View shows the room id and how the other side joins it.
func (r RoomInfo) View() string {
	title := IconRoom + " Joining room"
	if r.Host {
		title = IconSuccess + " Room ready"
	}
	content := fmt.Sprintf("%s\n\n%s Room ID:  %s\n%s Peer runs: %s",
		title,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconLink, MutedStyle.Render("warplink join "+r.RoomID),
	)
	return SuccessBoxStyle.Render(content)
}
