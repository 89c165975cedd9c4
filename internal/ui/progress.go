package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/warplink/internal/utils"
	"github.com/charmbracelet/bubbles/progress"
)

// transferBar renders one transfer's progress. Sessions report whole
// percentages only, so speed and ETA are estimated from the declared size.
type transferBar struct {
	label   string
	size    int64
	percent int
	started time.Time
	now     func() time.Time
	bar     progress.Model
}

func newTransferBar(label string, size int64) *transferBar {
	return &transferBar{
		label: label,
		size:  size,
		now:   time.Now,
		bar: progress.New(
			progress.WithGradient(ProgressStart, ProgressEnd),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

func (b *transferBar) set(percent int) {
	if b.started.IsZero() {
		b.started = b.now()
	}
	b.percent = min(100, max(0, percent))
}

// speed returns the estimated bytes per second, or 0 while unknown.
func (b *transferBar) speed() float64 {
	if b.size <= 0 || b.started.IsZero() {
		return 0
	}
	elapsed := b.now().Sub(b.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	done := float64(b.size) * float64(b.percent) / 100
	return done / elapsed
}

func (b *transferBar) eta() (time.Duration, bool) {
	s := b.speed()
	if s <= 0 || b.percent >= 100 {
		return 0, false
	}
	left := float64(b.size) * float64(100-b.percent) / 100
	return time.Duration(left / s * float64(time.Second)), true
}

func (b *transferBar) View() string {
	var parts []string
	parts = append(parts, ProgressLabelStyle.Render(truncateString(b.label, 38)))
	parts = append(parts, b.bar.ViewAs(float64(b.percent)/100))
	parts = append(parts, ProgressPercentStyle.Render(fmt.Sprintf("%d%%", b.percent)))

	if s := b.speed(); s > 0 {
		parts = append(parts, ProgressSpeedStyle.Render(utils.FormatSpeed(s)))
	}
	if left, ok := b.eta(); ok {
		parts = append(parts, MutedStyle.Render(IconTime+" "+utils.FormatTimeDuration(left)))
	}
	return strings.Join(parts, " ")
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
