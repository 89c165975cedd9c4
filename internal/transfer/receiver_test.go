package transfer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BioHazard786/warplink/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	progress []int
	aborted  []error
}

func (r *recorder) hooks() ReceiverHooks {
	return ReceiverHooks{
		Progress: func(p int) { r.progress = append(r.progress, p) },
		Aborted:  func(err error) { r.aborted = append(r.aborted, err) },
	}
}

func TestReceiverAssemblesInArrivalOrder(t *testing.T) {
	rec := &recorder{}
	rx := NewReceiver(NewMemorySink(), rec.hooks())

	require.NoError(t, rx.HandleMeta(protocol.FileMeta{Name: "a.txt", Size: 40960}))
	assert.True(t, rx.Active())

	data := randomBytes(t, 40960)
	require.NoError(t, rx.HandleChunk(data[:16384]))
	require.NoError(t, rx.HandleChunk(data[16384:32768]))
	require.NoError(t, rx.HandleChunk(data[32768:]))
	assert.Equal(t, int64(40960), rx.Transferred())

	art, err := rx.HandleEnd()
	require.NoError(t, err)
	assert.Equal(t, "a.txt", art.Name)
	assert.Equal(t, int64(40960), art.Size)
	assert.Equal(t, data, art.Data)
	assert.NoError(t, art.SizeErr())

	assert.Equal(t, []int{0, 40, 80, 99, 100}, rec.progress)
	assert.False(t, rx.Active())
	assert.Empty(t, rec.aborted)
}

func TestReceiverDropsChunksWithoutMeta(t *testing.T) {
	rx := NewReceiver(nil, ReceiverHooks{})

	err := rx.HandleChunk([]byte("stray"))
	assert.ErrorIs(t, err, ErrNoTransfer)

	_, err = rx.HandleEnd()
	assert.ErrorIs(t, err, ErrNoTransfer)
}

func TestReceiverDefaultName(t *testing.T) {
	rx := NewReceiver(nil, ReceiverHooks{})
	require.NoError(t, rx.HandleMeta(protocol.FileMeta{Size: 2}))
	require.NoError(t, rx.HandleChunk([]byte("hi")))

	art, err := rx.HandleEnd()
	require.NoError(t, err)
	assert.Equal(t, DefaultFileName, art.Name)
}

func TestReceiverSizeMismatchStillAssembles(t *testing.T) {
	rec := &recorder{}
	rx := NewReceiver(nil, rec.hooks())
	require.NoError(t, rx.HandleMeta(protocol.FileMeta{Name: "short", Size: 10}))
	require.NoError(t, rx.HandleChunk([]byte("12345")))

	art, err := rx.HandleEnd()
	require.NoError(t, err)
	assert.Equal(t, []byte("12345"), art.Data)
	assert.Equal(t, int64(5), art.Size)
	assert.Equal(t, int64(10), art.Declared)
	assert.ErrorIs(t, art.SizeErr(), ErrSizeMismatch)
	assert.Equal(t, []int{0, 50, 100}, rec.progress)
}

func TestReceiverOverrunCapsProgress(t *testing.T) {
	rec := &recorder{}
	rx := NewReceiver(nil, rec.hooks())
	require.NoError(t, rx.HandleMeta(protocol.FileMeta{Name: "long", Size: 4}))
	require.NoError(t, rx.HandleChunk([]byte("123456")))
	require.NoError(t, rx.HandleChunk([]byte("78")))
	assert.Equal(t, []int{0, 99}, rec.progress)

	art, err := rx.HandleEnd()
	require.NoError(t, err)
	assert.ErrorIs(t, art.SizeErr(), ErrSizeMismatch)
	assert.Equal(t, []int{0, 99, 100}, rec.progress)
}

func TestReceiverNewMetaSupersedes(t *testing.T) {
	rec := &recorder{}
	rx := NewReceiver(nil, rec.hooks())

	require.NoError(t, rx.HandleMeta(protocol.FileMeta{Name: "first", Size: 100}))
	require.NoError(t, rx.HandleChunk([]byte("partial")))

	require.NoError(t, rx.HandleMeta(protocol.FileMeta{Name: "second", Size: 3}))
	require.Len(t, rec.aborted, 1)
	assert.ErrorIs(t, rec.aborted[0], ErrSuperseded)

	require.NoError(t, rx.HandleChunk([]byte("abc")))
	art, err := rx.HandleEnd()
	require.NoError(t, err)
	assert.Equal(t, "second", art.Name)
	assert.Equal(t, []byte("abc"), art.Data)
}

func TestReceiverAbortDiscards(t *testing.T) {
	rec := &recorder{}
	rx := NewReceiver(nil, rec.hooks())
	require.NoError(t, rx.HandleMeta(protocol.FileMeta{Name: "x", Size: 10}))
	require.NoError(t, rx.HandleChunk([]byte("12345")))

	rx.Abort(ErrChannelClosed)
	require.Len(t, rec.aborted, 1)
	assert.ErrorIs(t, rec.aborted[0], ErrChannelClosed)
	assert.False(t, rx.Active())

	_, err := rx.HandleEnd()
	assert.ErrorIs(t, err, ErrNoTransfer)

	rx.Abort(ErrChannelClosed)
	assert.Len(t, rec.aborted, 1)
}

func TestDiskSink(t *testing.T) {
	dir := t.TempDir()
	rx := NewReceiver(NewDiskSink(dir), ReceiverHooks{})

	receive := func(name, body string) Artifact {
		require.NoError(t, rx.HandleMeta(protocol.FileMeta{Name: name, Size: int64(len(body))}))
		require.NoError(t, rx.HandleChunk([]byte(body)))
		art, err := rx.HandleEnd()
		require.NoError(t, err)
		return art
	}

	first := receive("../../notes.txt", "one")
	assert.Equal(t, filepath.Join(dir, "notes.txt"), first.Path)
	assert.Nil(t, first.Data)

	second := receive("notes.txt", "two")
	assert.Equal(t, filepath.Join(dir, "notes (1).txt"), second.Path)

	got, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))
	got, err = os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestDiskSinkAbortRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	rx := NewReceiver(NewDiskSink(dir), ReceiverHooks{})

	require.NoError(t, rx.HandleMeta(protocol.FileMeta{Name: "big.iso", Size: 1 << 20}))
	require.NoError(t, rx.HandleChunk(make([]byte, 1024)))
	rx.Abort(ErrChannelClosed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"a/b/c.txt", "c.txt"},
		{"../../etc/passwd", "passwd"},
		{`..\..\boot.ini`, "boot.ini"},
		{".hidden", "hidden"},
		{"..", DefaultFileName},
		{"", DefaultFileName},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeName(tt.in))
		})
	}
}
