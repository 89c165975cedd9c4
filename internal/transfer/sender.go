package transfer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/BioHazard786/warplink/internal/flow"
	"github.com/BioHazard786/warplink/internal/protocol"
)

// Source is a byte source of known size.
type Source struct {
	Name   string
	Size   int64
	Reader io.ReaderAt
}

// Sender streams one Source as file-meta, binary chunks, file-end. It is a
// resumable continuation: Start runs the loop until the flow controller
// defers, and the controller's Resume picks it up again from the low-water
// event. The call depth stays constant however large the file is.
//
// A Sender is driven by a single session event loop.
type Sender struct {
	ctl       *flow.Controller
	src       Source
	chunkSize int
	buf       []byte
	offset    int64
	chunks    int
	progress  *Progress
	started   bool
	done      bool
	err       error
	log       *slog.Logger
}

func NewSender(ctl *flow.Controller, src Source, chunkSize int, onProgress func(percent int)) *Sender {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Sender{
		ctl:       ctl,
		src:       src,
		chunkSize: chunkSize,
		progress:  NewProgress(src.Size, onProgress),
		log:       slog.Default().With("file", src.Name, "size", src.Size),
	}
}

// Start emits file-meta, reports 0% and sends until done or deferred.
func (s *Sender) Start() error {
	if s.started {
		return NewFileError("start send", s.src.Name, ErrTransferInProgress)
	}
	s.started = true

	if s.src.Size < 0 {
		return s.fail(NewFileError("start send", s.src.Name, ErrInvalidFile))
	}

	meta, err := protocol.Encode(protocol.FileMeta{Name: s.src.Name, Size: s.src.Size})
	if err != nil {
		return s.fail(NewFileError("encode file-meta", s.src.Name, err))
	}
	if err := s.ctl.SendControl(meta); err != nil {
		return s.fail(NewFileError("send file-meta", s.src.Name, err))
	}

	if s.src.Size > 0 {
		s.buf = make([]byte, min(int64(s.chunkSize), s.src.Size))
	}
	s.progress.Start()
	s.log.Debug("file-meta sent")
	return s.pump()
}

// pump is the send loop body. It returns nil both when the file is finished
// and when it parked itself on the flow controller.
func (s *Sender) pump() error {
	for {
		if s.done || s.err != nil {
			return nil
		}

		if s.offset >= s.src.Size {
			return s.finish()
		}

		if !s.ctl.Admit(s.pump) {
			s.log.Debug("send deferred", "offset", s.offset)
			return nil
		}

		n := min(int64(s.chunkSize), s.src.Size-s.offset)
		chunk := s.buf[:n]
		read, err := s.src.Reader.ReadAt(chunk, s.offset)
		if int64(read) < n {
			if err == nil || errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return s.fail(WrapError("read chunk", err, fmt.Sprintf("%s at offset %d", s.src.Name, s.offset)))
		}

		if err := s.ctl.SendChunk(chunk); err != nil {
			return s.fail(NewFileError("send chunk", s.src.Name, err))
		}

		s.offset += n
		s.chunks++
		s.progress.Update(s.offset)
	}
}

func (s *Sender) finish() error {
	end, err := protocol.Encode(protocol.FileEnd{})
	if err != nil {
		return s.fail(NewFileError("encode file-end", s.src.Name, err))
	}
	if err := s.ctl.SendControl(end); err != nil {
		return s.fail(NewFileError("send file-end", s.src.Name, err))
	}
	s.done = true
	s.progress.Complete()
	s.log.Debug("file-end sent", "chunks", s.chunks)
	return nil
}

// Abort stops the loop; a parked continuation is dropped and never runs.
func (s *Sender) Abort(err error) {
	if s.done || s.err != nil {
		return
	}
	s.err = err
	s.ctl.Cancel()
}

func (s *Sender) fail(err error) error {
	s.Abort(err)
	return err
}

// Done reports whether file-end was sent.
func (s *Sender) Done() bool { return s.done }

// Err is the reason the transfer was aborted, if it was.
func (s *Sender) Err() error { return s.err }

// Active reports whether the transfer has started and not yet finished or failed.
func (s *Sender) Active() bool { return s.started && !s.done && s.err == nil }

func (s *Sender) Chunks() int    { return s.chunks }
func (s *Sender) Source() Source { return s.src }
