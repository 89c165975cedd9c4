package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNoFiles = errors.New("no files specified")

// FileInfo holds information about a file to be sent
type FileInfo struct {
	// Path is the absolute path to the file or directory
	Path string

	// Name is the name announced to the peer. Directories are sent as
	// "<name>.zip".
	Name string

	// Size is the file size in bytes; zero for directories until packed
	Size int64

	// Type is the sniffed MIME type (e.g., "application/pdf", "text/plain")
	Type string

	IsDir bool
}

// ValidateFiles checks if all files exist and are readable
// Returns a list of FileInfo for valid files and an error naming every invalid one
func ValidateFiles(filePaths []string) ([]FileInfo, error) {
	if len(filePaths) == 0 {
		return nil, ErrNoFiles
	}

	var fileInfos []FileInfo
	var problems []string

	for _, path := range filePaths {
		fileInfo, err := validateSingleFile(path)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		fileInfos = append(fileInfos, fileInfo)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("file validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return fileInfos, nil
}

// validateSingleFile checks a single path and returns its info
func validateSingleFile(path string) (FileInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: failed to get absolute path: %w", path, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, fmt.Errorf("%s: file does not exist", path)
		}
		return FileInfo{}, fmt.Errorf("%s: failed to stat file: %w", path, err)
	}

	name := filepath.Base(absPath)

	if stat.IsDir() {
		return FileInfo{
			Path:  absPath,
			Name:  name + ".zip",
			Type:  "application/zip",
			IsDir: true,
		}, nil
	}

	if !stat.Mode().IsRegular() {
		return FileInfo{}, fmt.Errorf("%s: not a regular file", path)
	}

	// Opening is the only reliable permission check
	file, err := os.Open(absPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: cannot open file (check permissions): %w", path, err)
	}
	file.Close()

	return FileInfo{
		Path: absPath,
		Name: name,
		Size: stat.Size(),
		Type: DetectType(absPath),
	}, nil
}

// DetectType sniffs the MIME type of the file at path from its content,
// falling back to application/octet-stream.
func DetectType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

// DetectBytes sniffs the MIME type of an in-memory file.
func DetectBytes(data []byte) string {
	return mimetype.Detect(data).String()
}

// GetTotalSize returns the total size of all files
func GetTotalSize(fileInfos []FileInfo) int64 {
	var total int64
	for _, file := range fileInfos {
		total += file.Size
	}
	return total
}
