package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cvstudio/internal/cv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestDocumentWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.json")
	base := time.Now().Add(-time.Hour)
	writeFile(t, path, `{"name":"Ada"}`, base)

	changes := make(chan cv.Document, 4)
	errs := make(chan error, 4)
	w := NewDocumentWatcher(path, 20*time.Millisecond,
		func(doc cv.Document) { changes <- doc },
		func(err error) { errs <- err },
		nil)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()
	assert.True(t, w.IsRunning())

	writeFile(t, path, `{"name":"Ada Lovelace"}`, base.Add(time.Minute))

	select {
	case doc := <-changes:
		assert.Equal(t, "Ada Lovelace", doc.Name)
	case err := <-errs:
		t.Fatalf("unexpected reload error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	writeFile(t, path, `{"name": 12`, base.Add(2*time.Minute))

	select {
	case err := <-errs:
		assert.Error(t, err)
	case doc := <-changes:
		t.Fatalf("invalid file produced a document: %+v", doc)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
}

func TestDocumentWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.yaml")
	writeFile(t, path, "name: Ada\n", time.Now().Add(-time.Hour))

	changes := make(chan cv.Document, 1)
	w := NewDocumentWatcher(path, 10*time.Millisecond, func(doc cv.Document) { changes <- doc }, nil, nil)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0600))

	select {
	case doc := <-changes:
		t.Fatalf("unrelated file triggered a reload: %+v", doc)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDocumentWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.json")

	w := NewDocumentWatcher(path, 0, func(cv.Document) {}, nil, nil)
	assert.Equal(t, path, w.Path())
	require.NoError(t, w.Start(), "a missing file is fine; its directory is watched")
	assert.Error(t, w.Start(), "double start is rejected")

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	assert.NoError(t, w.Stop(), "stopping twice is a no-op")
}
