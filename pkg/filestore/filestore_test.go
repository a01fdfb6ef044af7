package filestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	return s
}

func TestStageAndPersist(t *testing.T) {
	s := newTestStore(t)
	content := []byte("psbt bytes")

	tempPath, size, err := s.Stage(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
	assert.Equal(t, s.Dir(), filepath.Dir(tempPath))

	fileID, err := s.Persist(tempPath)
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), fileID)

	// temp file is gone, content-addressed file exists
	_, err = os.Stat(tempPath)
	assert.True(t, os.IsNotExist(err))

	f, gotSize, err := s.Open(fileID)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(len(content)), gotSize)
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestPersistDeduplicates(t *testing.T) {
	s := newTestStore(t)
	content := []byte("same bytes")

	temp1, _, err := s.Stage(bytes.NewReader(content))
	require.NoError(t, err)
	id1, err := s.Persist(temp1)
	require.NoError(t, err)

	temp2, _, err := s.Stage(bytes.NewReader(content))
	require.NoError(t, err)
	id2, err := s.Persist(temp2)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	_, err = os.Stat(temp2)
	assert.True(t, os.IsNotExist(err))

	// only the content-addressed file remains in the directory
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id1, entries[0].Name())
}

func TestOpenNotFound(t *testing.T) {
	s := newTestStore(t)

	missing := strings.Repeat("ab", 32)
	_, _, err := s.Open(missing)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Stat(missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRejectsMalformedID(t *testing.T) {
	s := newTestStore(t)

	// path traversal and non-hex names never resolve
	for _, id := range []string{"../escape", "short", strings.Repeat("zz", 32)} {
		_, _, err := s.Open(id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
}

func TestDiscard(t *testing.T) {
	s := newTestStore(t)

	tempPath, _, err := s.Stage(bytes.NewReader([]byte("to discard")))
	require.NoError(t, err)
	s.Discard(tempPath)

	_, err = os.Stat(tempPath)
	assert.True(t, os.IsNotExist(err))

	// discarding twice is harmless
	s.Discard(tempPath)
	s.Discard("")
}

func TestComputeFileIDStreamsLargeFiles(t *testing.T) {
	s := newTestStore(t)

	// larger than one hash buffer
	content := bytes.Repeat([]byte{0x42}, hashBufSize*3+17)
	tempPath, size, err := s.Stage(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)

	id, err := ComputeFileID(tempPath)
	require.NoError(t, err)
	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), id)
	s.Discard(tempPath)
}
