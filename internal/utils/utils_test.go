package utils

import (
	"archive/zip"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "1023 B", FormatSize(1023))
	assert.Equal(t, "40.00 KB", FormatSize(40*1024))
	assert.Equal(t, "1.50 MB", FormatSize(3*512*1024))
	assert.Equal(t, "2.00 GB", FormatSize(2*1024*1024*1024))
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "512 B/s", FormatSpeed(512))
	assert.Equal(t, "16.00 KB/s", FormatSpeed(16*1024))
	assert.Equal(t, "8.00 MB/s", FormatSpeed(8*1024*1024))
}

func TestFormatTimeDuration(t *testing.T) {
	assert.Equal(t, "42s", FormatTimeDuration(42*time.Second))
	assert.Equal(t, "3m 5s", FormatTimeDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "1h 0m 9s", FormatTimeDuration(time.Hour+9*time.Second))
}

func TestGetUniqueFilename(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "report.pdf")
	assert.Equal(t, target, GetUniqueFilename(target))

	require.NoError(t, os.WriteFile(target, nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "report (1).pdf"), GetUniqueFilename(target))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "report (1).pdf"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "report (2).pdf"), GetUniqueFilename(target))
}

func TestLooksTunnelled(t *testing.T) {
	assert.True(t, looksTunnelled("wg0", nil))
	assert.True(t, looksTunnelled("CloudflareWARP", nil))
	assert.False(t, looksTunnelled("eth0", []net.Addr{&net.IPNet{IP: net.ParseIP("192.168.1.5")}}))
	assert.True(t, looksTunnelled("eth0", []net.Addr{&net.IPNet{IP: net.ParseIP("100.101.4.2")}}))
	assert.True(t, looksTunnelled("en0", []net.Addr{&net.IPAddr{IP: net.ParseIP("100.127.255.254")}}))
	assert.False(t, looksTunnelled("en0", []net.Addr{&net.IPAddr{IP: net.ParseIP("100.128.0.1")}}))
}

func TestZipDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "photos")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024", "b.txt"), []byte("beta"), 0o644))

	target := filepath.Join(t.TempDir(), "photos.zip")
	require.NoError(t, ZipDirectory(root, target))

	r, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer r.Close()

	contents := map[string]string{}
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = string(data)
	}
	sort.Strings(names)

	assert.Equal(t, []string{"photos/", "photos/2024/", "photos/2024/b.txt", "photos/a.txt"}, names)
	assert.Equal(t, "alpha", contents["photos/a.txt"])
	assert.Equal(t, "beta", contents["photos/2024/b.txt"])
}
