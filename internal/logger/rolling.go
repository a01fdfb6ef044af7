package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// rollingWriter appends to <dir>/<prefix>.log.YYYY-MM-DD and rolls to a new
// file when the local date changes.
type rollingWriter struct {
	mu     sync.Mutex
	dir    string
	prefix string
	day    string
	file   *os.File
}

func newRollingWriter(dir, prefix string) (*rollingWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	rw := &rollingWriter{dir: dir, prefix: prefix}
	if err := rw.roll(time.Now()); err != nil {
		return nil, err
	}
	return rw, nil
}

// roll opens the file for the given day. Callers must hold mu (or be the
// constructor).
func (rw *rollingWriter) roll(now time.Time) error {
	day := now.Format("2006-01-02")
	name := filepath.Join(rw.dir, fmt.Sprintf("%s.log.%s", rw.prefix, day))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if rw.file != nil {
		rw.file.Close()
	}
	rw.file = f
	rw.day = day
	return nil
}

func (rw *rollingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	now := time.Now()
	if now.Format("2006-01-02") != rw.day {
		if err := rw.roll(now); err != nil {
			return 0, err
		}
	}
	return rw.file.Write(p)
}

func (rw *rollingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}
