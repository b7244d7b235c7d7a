//go:build !windows

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dixieflatline76/ProductScene/config"
	"golang.org/x/sys/unix"
)

var (
	lockFile *os.File
)

// acquireLock takes an exclusive flock on a lock file inside dataDir so two
// instances never write the same store.
func acquireLock(dataDir string) (bool, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return false, fmt.Errorf("failed to create data directory: %w", err)
	}
	lockFilePath := filepath.Join(dataDir, config.ServiceName+".lock")
	file, err := os.OpenFile(lockFilePath, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return false, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	lockFile = file
	return true, nil
}

// releaseLock releases the single-instance lock.
func releaseLock() {
	if lockFile != nil {
		_ = unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
		lockFile.Close()
		os.Remove(lockFile.Name())
	}
}
