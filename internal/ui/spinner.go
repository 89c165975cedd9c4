package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// LineSpinner animates a single status line on a terminal until stopped.
type LineSpinner struct {
	out      io.Writer
	message  string
	spinner  spinner.Spinner
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// NewConnectionSpinner creates a spinner for network operations (Globe style)
func NewConnectionSpinner(out io.Writer, message string) *LineSpinner {
	return &LineSpinner{
		out:      out,
		message:  message,
		spinner:  spinner.Globe,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (s *LineSpinner) Start() {
	go func() {
		defer close(s.finished)
		ticker := time.NewTicker(s.spinner.FPS)
		defer ticker.Stop()

		frames := s.spinner.Frames
		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s %s", SpinnerStyle.Render(frames[i%len(frames)]), s.message)
			select {
			case <-s.done:
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and clears the line. Safe to call more than once.
func (s *LineSpinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		<-s.finished
	})
}

// RunConnectionSpinner starts a connection spinner on stdout and returns a
// stop function.
func RunConnectionSpinner(message string) func() {
	sp := NewConnectionSpinner(os.Stdout, message)
	sp.Start()
	return sp.Stop
}
