// Package runlock implements per-run exclusive locking with stale-lock
// recovery, using the filesystem as the only coordination mechanism.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dagctl/dagctl/internal/runid"
	"github.com/pkg/errors"
)

// DefaultStaleAfter is the age at which an existing lock file is assumed
// abandoned by a crashed process and may be reclaimed.
const DefaultStaleAfter = time.Hour

// Lock represents a held exclusive lock on a run directory.
type Lock struct {
	path  string
	token string
}

// Acquire attempts to exclusively create the lock file at runDir/.lock.
// If an existing lock is older than staleAfter, it is removed and
// reclamation is retried once, itself via an exclusive create so a
// concurrent reclaimer cannot race this one into believing it holds the
// lock.
func Acquire(runDir string, staleAfter time.Duration) (*Lock, error) {
	path := filepath.Join(runDir, ".lock")
	token := runid.Token()

	lock, err := tryCreate(path, token)
	if err == nil {
		return lock, nil
	}
	if !os.IsExist(err) {
		return nil, errors.Wrap(err, "cannot create lock file")
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			// lock disappeared between our failed create and this stat; retry once
			return tryCreate(path, token)
		}
		return nil, errors.Wrap(statErr, "cannot stat existing lock")
	}

	if time.Since(info.ModTime()) < staleAfter {
		return nil, fmt.Errorf("run is locked by another process (lock age %s)", time.Since(info.ModTime()).Round(time.Second))
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "cannot remove stale lock")
	}

	lock, err = tryCreate(path, token)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("lost race reclaiming stale lock")
		}
		return nil, errors.Wrap(err, "cannot recreate lock file after stale reclamation")
	}
	return lock, nil
}

func tryCreate(path, token string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.WriteString(token); err != nil {
		os.Remove(path)
		return nil, err
	}
	return &Lock{path: path, token: token}, nil
}

// Release removes the lock file, but only if it still carries this Lock's
// token — guarding against releasing a lock that was reclaimed as stale and
// is now held by a different process.
func (l *Lock) Release() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "cannot read lock file before release")
	}
	if string(data) != l.token {
		return fmt.Errorf("refusing to release lock: held by a different token")
	}
	return os.Remove(l.path)
}

// IsHeld reports whether a lock file exists and is not older than
// staleAfter, i.e. whether a writer currently, plausibly, holds the run.
func IsHeld(runDir string, staleAfter time.Duration) bool {
	info, err := os.Stat(filepath.Join(runDir, ".lock"))
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < staleAfter
}
