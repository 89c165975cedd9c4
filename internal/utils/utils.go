package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var sizeUnits = []string{"KB", "MB", "GB"}

// scale divides v by 1024 until it drops below 1024 or the units run out.
// ok is false when v is below 1 KB.
func scale(v float64, units []string) (float64, string, bool) {
	if v < 1024 {
		return v, "", false
	}
	unit := ""
	for _, u := range units {
		if v < 1024 {
			break
		}
		v /= 1024
		unit = u
	}
	return v, unit, true
}

// FormatSize formats bytes to human readable string
func FormatSize(bytes int64) string {
	v, unit, ok := scale(float64(bytes), sizeUnits)
	if !ok {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.2f %s", v, unit)
}

// FormatSpeed formats speed to human readable string
func FormatSpeed(bytesPerSecond float64) string {
	v, unit, ok := scale(bytesPerSecond, sizeUnits[:2])
	if !ok {
		return fmt.Sprintf("%.0f B/s", bytesPerSecond)
	}
	return fmt.Sprintf("%.2f %s/s", v, unit)
}

// GetUniqueFilename returns filename, or the first free "name (n).ext"
// beside it when filename is taken.
func GetUniqueFilename(filename string) string {
	if free(filename) {
		return filename
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if free(candidate) {
			return candidate
		}
	}
}

func free(path string) bool {
	_, err := os.Lstat(path)
	return errors.Is(err, fs.ErrNotExist)
}

// FormatTimeDuration formats duration to human readable string
func FormatTimeDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
