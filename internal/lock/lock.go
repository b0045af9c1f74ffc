// Package lock guards against two install runs sharing a download
// directory at the same time.
package lock

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const (
	// FileName is the lock file created inside the guarded directory.
	FileName = "install.lock"

	// StaleThreshold is the maximum age of a lock before it's considered
	// stale. It covers a full authorization wait plus a full download.
	StaleThreshold = 15 * time.Minute
)

var (
	ErrLockExists = errors.New("install lock exists: another install may be in progress")
)

// Owner is the metadata recorded in a lock file.
type Owner struct {
	PID      int
	Acquired time.Time
}

// Lock represents a held install lock.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the lock in dir, creating dir if needed. Uses
// O_CREATE|O_EXCL for atomic lock creation. A lock left behind by a
// process that no longer runs, or older than StaleThreshold, is removed
// and acquisition retried once.
func Acquire(ctx context.Context, dir string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, FileName)

	file, err := create(lockPath)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if !isStale(ctx, lockPath) {
			return nil, ErrLockExists
		}
		os.Remove(lockPath)
		if file, err = create(lockPath); err != nil {
			return nil, ErrLockExists
		}
	}

	// Write lock metadata (PID and timestamp)
	data := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(data); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{path: lockPath, file: file}, nil
}

func create(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. Calling it more than once is harmless.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		path := l.path
		l.path = ""
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}

	return nil
}

// ReadOwner parses the metadata of an existing lock file.
func ReadOwner(path string) (*Owner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	owner := &Owner{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			if owner.PID, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("parse lock pid: %w", err)
			}
		case "timestamp":
			if owner.Acquired, err = time.Parse(time.RFC3339, value); err != nil {
				return nil, fmt.Errorf("parse lock timestamp: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lock file: %w", err)
	}

	return owner, nil
}

// isStale reports whether the lock at path can be taken over: it is
// older than StaleThreshold, or its owner process has exited.
func isStale(ctx context.Context, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > StaleThreshold {
		return true
	}

	owner, err := ReadOwner(path)
	if err != nil || owner.PID <= 0 {
		// Unreadable locks are only reclaimed by age
		return false
	}
	if owner.PID == os.Getpid() {
		return false
	}

	alive, err := process.PidExistsWithContext(ctx, int32(owner.PID))
	if err != nil {
		return false
	}
	return !alive
}
