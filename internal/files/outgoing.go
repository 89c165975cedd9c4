package files

import (
	"fmt"
	"os"

	"github.com/BioHazard786/warplink/internal/transfer"
	"github.com/BioHazard786/warplink/internal/utils"
)

// Outgoing is a validated file opened for sending.
type Outgoing struct {
	Info FileInfo

	file *os.File
	temp string
}

// Open opens a validated file for reading. Directories are packed into a
// temporary zip archive first; Close removes it again.
func Open(info FileInfo) (*Outgoing, error) {
	path := info.Path
	var temp string

	if info.IsDir {
		f, err := os.CreateTemp("", "warplink-*.zip")
		if err != nil {
			return nil, fmt.Errorf("create archive: %w", err)
		}
		temp = f.Name()
		f.Close()

		if err := utils.ZipDirectory(info.Path, temp); err != nil {
			os.Remove(temp)
			return nil, fmt.Errorf("zip %s: %w", info.Path, err)
		}
		path = temp
	}

	file, err := os.Open(path)
	if err != nil {
		if temp != "" {
			os.Remove(temp)
		}
		return nil, err
	}

	// The size is taken from the open file so that the announced size
	// matches what will be read.
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		if temp != "" {
			os.Remove(temp)
		}
		return nil, err
	}
	info.Size = stat.Size()

	return &Outgoing{Info: info, file: file, temp: temp}, nil
}

// Source describes the file to a transfer.
func (o *Outgoing) Source() transfer.Source {
	return transfer.Source{Name: o.Info.Name, Size: o.Info.Size, Reader: o.file}
}

func (o *Outgoing) Close() error {
	err := o.file.Close()
	if o.temp != "" {
		if rerr := os.Remove(o.temp); err == nil {
			err = rerr
		}
	}
	return err
}
