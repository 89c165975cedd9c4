package transfer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BioHazard786/warplink/internal/utils"
)

// Sink creates storage for inbound files.
type Sink interface {
	Begin(name string, declared int64) (Spool, error)
}

// Spool accumulates one inbound file.
type Spool interface {
	Write(chunk []byte) error
	// Commit finalises the file. Name, Size and Declared of the returned
	// artifact are filled in by the Receiver.
	Commit() (Artifact, error)
	Discard() error
}

// MemorySink keeps chunks in memory and concatenates them on file-end.
type MemorySink struct{}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (MemorySink) Begin(string, int64) (Spool, error) {
	return &memorySpool{}, nil
}

type memorySpool struct {
	chunks [][]byte
}

func (s *memorySpool) Write(chunk []byte) error {
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *memorySpool) Commit() (Artifact, error) {
	data := bytes.Join(s.chunks, nil)
	s.chunks = nil
	return Artifact{Data: data}, nil
}

func (s *memorySpool) Discard() error {
	s.chunks = nil
	return nil
}

// DiskSink spools inbound files into Dir and renames them into place on
// file-end. Incomplete files are removed.
type DiskSink struct {
	Dir string
}

func NewDiskSink(dir string) *DiskSink {
	return &DiskSink{Dir: dir}
}

func (d *DiskSink) Begin(name string, _ int64) (Spool, error) {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, NewFileError("create directory", dir, err)
	}

	file, err := os.CreateTemp(dir, ".warplink-*.part")
	if err != nil {
		return nil, NewFileError("create file", name, err)
	}
	return &diskSpool{dir: dir, name: SafeName(name), file: file}, nil
}

type diskSpool struct {
	dir  string
	name string
	file *os.File
}

func (s *diskSpool) Write(chunk []byte) error {
	_, err := s.file.Write(chunk)
	return err
}

func (s *diskSpool) Commit() (Artifact, error) {
	if err := s.file.Close(); err != nil {
		return Artifact{}, err
	}

	target := utils.GetUniqueFilename(filepath.Join(s.dir, s.name))
	if err := os.Rename(s.file.Name(), target); err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: target}, nil
}

func (s *diskSpool) Discard() error {
	s.file.Close()
	if err := os.Remove(s.file.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SafeName reduces a peer-supplied file name to a single path element.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean("/" + name))
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "/" {
		return DefaultFileName
	}
	return name
}
