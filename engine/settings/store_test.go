package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()
	snap.SliceCount = 19

	assert.Equal(t, uint32(2), s.Snapshot().SliceCount)
}

func TestStoreUpdateBumpsRevision(t *testing.T) {
	var seen []EffectSettings
	s := NewStore(WithChangeCallback(func(e EffectSettings) { seen = append(seen, e) }))
	assert.Equal(t, uint64(0), s.Revision())

	s.Update(func(e *EffectSettings) { e.DenoisePasses = 2 })
	assert.Equal(t, uint64(1), s.Revision())
	assert.Equal(t, uint32(2), s.Snapshot().DenoisePasses)
	require.Len(t, seen, 1)
	assert.Equal(t, uint32(2), seen[0].DenoisePasses)

	s.Reset()
	assert.Equal(t, Defaults(), s.Snapshot())
	assert.Equal(t, uint64(2), s.Revision())
}

func TestStoreDocumentRoundTrip(t *testing.T) {
	s := NewStore()
	s.Update(func(e *EffectSettings) { e.UseBitmask = false })

	doc := map[string]json.RawMessage{}
	require.NoError(t, s.SaveDocument(doc))
	require.Contains(t, doc, DefaultName)

	other := NewStore()
	assert.True(t, other.LoadDocument(doc))
	assert.Equal(t, s.Snapshot(), other.Snapshot())
}

func TestStoreLoadDocumentIgnoresMissingOrNonObject(t *testing.T) {
	s := NewStore(WithName("SSGI"))
	s.Update(func(e *EffectSettings) { e.Thickness = 10 })

	assert.False(t, s.LoadDocument(map[string]json.RawMessage{}))
	assert.False(t, s.LoadDocument(map[string]json.RawMessage{"SSGI": json.RawMessage(`42`)}))
	assert.Equal(t, float32(10), s.Snapshot().Thickness)
}

func TestStoreFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ssgi.json", "ssgi.toml"} {
		path := filepath.Join(dir, name)

		s := NewStore()
		s.Update(func(e *EffectSettings) {
			e.StepsPerSlice = 9
			e.DebugView = DebugViewAO
		})
		require.NoError(t, s.SaveFile(path), name)

		other := NewStore()
		require.NoError(t, other.LoadFile(path), name)
		assert.Equal(t, s.Snapshot(), other.Snapshot(), name)
	}
}

func TestStoreLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()

	assert.Error(t, s.LoadFile(filepath.Join(dir, "missing.json")))

	bad := filepath.Join(dir, "bad.ini")
	require.NoError(t, os.WriteFile(bad, []byte("x=1"), 0o644))
	assert.ErrorIs(t, s.LoadFile(bad), ErrUnsupportedFormat)
	assert.Equal(t, uint64(0), s.Revision())
}

func TestStoreLoadFileRejectsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssgi.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"DenoisePasses": 4294967295, "Thickness": 20}`), 0o644))

	s := NewStore()
	require.NoError(t, s.LoadFile(path))

	got := s.Snapshot()
	assert.Equal(t, Defaults().DenoisePasses, got.DenoisePasses)
	assert.Equal(t, float32(20), got.Thickness)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ssgi.toml")

	s := NewStore()
	require.NoError(t, s.SaveFile(path))

	w, err := Watch(s, path)
	require.NoError(t, err)
	defer w.Close()

	writer := NewStore()
	writer.Update(func(e *EffectSettings) { e.SliceCount = 7 })
	require.NoError(t, writer.SaveFile(path))

	assert.Eventually(t, func() bool {
		return s.Snapshot().SliceCount == 7
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
