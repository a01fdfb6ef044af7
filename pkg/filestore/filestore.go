// Package filestore implements the content-addressed file store.
//
// Files are named by the hex SHA-256 of their bytes, so identical uploads
// from different cosigners land on the same on-disk file. Writes are staged
// into a temp file in the same directory and persisted with rename + fsync;
// a crash can leave a stale temp file but never a half-written file at a
// final name.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// hashBufSize is the chunk size used when hashing staged files.
const hashBufSize = 8192

// ErrNotFound is returned when a file_id has no file on disk.
var ErrNotFound = errors.New("file not found")

// Store is a content-addressed file store rooted at a single directory.
type Store struct {
	dir string
}

// New creates the store directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create files directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Stage streams r into a fresh temp file inside the store directory and
// returns its path and size. The caller owns the temp file: pass it to
// Persist or clean it up with Discard.
func (s *Store) Stage(r io.Reader) (string, int64, error) {
	f, err := os.CreateTemp(s.dir, "tmp_"+uuid.NewString())
	if err != nil {
		return "", 0, err
	}
	path := f.Name()

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", 0, err
	}
	return path, size, nil
}

// Discard removes a staged temp file. Missing files are ignored.
func (s *Store) Discard(tempPath string) {
	if tempPath != "" {
		os.Remove(tempPath)
	}
}

// Persist moves a staged temp file into its content-addressed location and
// returns the file_id. If a file with the same content already exists, the
// temp file is dropped and the existing file is reused.
func (s *Store) Persist(tempPath string) (string, error) {
	fileID, err := ComputeFileID(tempPath)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.dir, fileID)

	if _, err := os.Stat(target); err == nil {
		// dedup: same content is already stored
		os.Remove(tempPath)
		return fileID, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	if err := os.Rename(tempPath, target); err != nil {
		return "", fmt.Errorf("failed to persist file: %w", err)
	}
	if err := syncFile(target); err != nil {
		return "", fmt.Errorf("failed to sync file: %w", err)
	}
	if err := syncFile(s.dir); err != nil {
		return "", fmt.Errorf("failed to sync directory: %w", err)
	}
	return fileID, nil
}

// Open returns a reader over a stored file and its size.
func (s *Store) Open(fileID string) (*os.File, int64, error) {
	path, err := s.path(fileID)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Stat returns the size of a stored file.
func (s *Store) Stat(fileID string) (int64, error) {
	path, err := s.path(fileID)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

// path validates a file_id and resolves it inside the store directory.
// IDs are always 64 hex characters, so anything else cannot exist.
func (s *Store) path(fileID string) (string, error) {
	if len(fileID) != sha256.Size*2 {
		return "", ErrNotFound
	}
	if _, err := hex.DecodeString(fileID); err != nil {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, fileID), nil
}

// ComputeFileID streams the file at path through SHA-256 and returns the
// hex digest.
func ComputeFileID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, hashBufSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
