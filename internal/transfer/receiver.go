package transfer

import (
	"fmt"
	"log/slog"

	"github.com/BioHazard786/warplink/internal/protocol"
)

// Artifact is a completed inbound file.
type Artifact struct {
	Name     string
	Size     int64
	Declared int64

	// Data holds the bytes when assembled in memory.
	Data []byte
	// Path is set when the artifact was spooled to disk.
	Path string
}

// SizeErr reports ErrSizeMismatch when the assembled size disagrees with the
// size announced in file-meta. The artifact is still complete in arrival order.
func (a Artifact) SizeErr() error {
	if a.Size == a.Declared {
		return nil
	}
	return WrapError("assemble", ErrSizeMismatch,
		fmt.Sprintf("%s: received %d bytes, declared %d", a.Name, a.Size, a.Declared))
}

// ReceiverHooks are invoked synchronously from the Receiver methods.
type ReceiverHooks struct {
	Progress func(percent int)
	// Aborted fires when an in-flight transfer is discarded, either by Abort
	// or by a new file-meta replacing it.
	Aborted func(err error)
}

type inbound struct {
	name        string
	declared    int64
	transferred int64
	chunks      int
	spool       Spool
	progress    *Progress
}

// Receiver reassembles the file-meta, chunks, file-end sequence. Chunks are
// kept in arrival order; the channel's ordering is the only sequencing.
type Receiver struct {
	sink  Sink
	hooks ReceiverHooks
	cur   *inbound
	log   *slog.Logger
}

func NewReceiver(sink Sink, hooks ReceiverHooks) *Receiver {
	if sink == nil {
		sink = NewMemorySink()
	}
	return &Receiver{
		sink:  sink,
		hooks: hooks,
		log:   slog.Default(),
	}
}

// HandleMeta starts a new inbound transfer, discarding any incomplete one.
func (r *Receiver) HandleMeta(meta protocol.FileMeta) error {
	if r.cur != nil {
		r.log.Warn("file-meta replaces incomplete transfer",
			"previous", r.cur.name, "received", r.cur.transferred, "declared", r.cur.declared)
		r.Abort(NewFileError("receive", r.cur.name, ErrSuperseded))
	}

	name := meta.Name
	if name == "" {
		name = DefaultFileName
	}

	spool, err := r.sink.Begin(name, meta.Size)
	if err != nil {
		return NewFileError("begin receive", name, err)
	}

	r.cur = &inbound{
		name:     name,
		declared: meta.Size,
		spool:    spool,
		progress: NewProgress(meta.Size, r.hooks.Progress),
	}
	r.cur.progress.Start()
	return nil
}

// HandleChunk appends one binary frame. Frames with no file-meta before them
// are dropped with ErrNoTransfer.
func (r *Receiver) HandleChunk(data []byte) error {
	if r.cur == nil {
		return WrapError("receive chunk", ErrNoTransfer, fmt.Sprintf("%d bytes dropped", len(data)))
	}

	if err := r.cur.spool.Write(data); err != nil {
		name := r.cur.name
		r.Abort(NewFileError("write chunk", name, err))
		return NewFileError("write chunk", name, err)
	}

	r.cur.transferred += int64(len(data))
	r.cur.chunks++
	r.cur.progress.Update(r.cur.transferred)
	return nil
}

// HandleEnd assembles the chunks received since file-meta into an artifact
// and clears the transfer. A size mismatch does not fail; see Artifact.SizeErr.
func (r *Receiver) HandleEnd() (Artifact, error) {
	if r.cur == nil {
		return Artifact{}, NewError("receive file-end", ErrNoTransfer)
	}

	cur := r.cur
	r.cur = nil

	artifact, err := cur.spool.Commit()
	if err != nil {
		_ = cur.spool.Discard()
		return Artifact{}, NewFileError("assemble", cur.name, err)
	}
	artifact.Name = cur.name
	artifact.Size = cur.transferred
	artifact.Declared = cur.declared

	cur.progress.Complete()
	r.log.Debug("file assembled", "file", cur.name, "chunks", cur.chunks, "size", cur.transferred)
	return artifact, nil
}

// Abort discards the in-flight transfer, if any. No partial artifact is ever
// handed out.
func (r *Receiver) Abort(reason error) {
	if r.cur == nil {
		return
	}
	cur := r.cur
	r.cur = nil

	if err := cur.spool.Discard(); err != nil {
		r.log.Warn("discard partial file", "file", cur.name, "error", err)
	}
	if r.hooks.Aborted != nil {
		r.hooks.Aborted(reason)
	}
}

// Active reports whether a transfer is in flight.
func (r *Receiver) Active() bool {
	return r.cur != nil
}

// Transferred is the byte count of the in-flight transfer.
func (r *Receiver) Transferred() int64 {
	if r.cur == nil {
		return 0
	}
	return r.cur.transferred
}
