//go:build windows

package main

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"path/filepath"

	"github.com/dixieflatline76/ProductScene/config"
	"github.com/dixieflatline76/ProductScene/util/log"
	"golang.org/x/sys/windows"
)

var (
	mutex windows.Handle
)

// acquireLock creates a named mutex per data directory.
func acquireLock(dataDir string) (bool, error) {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return false, err
	}
	sum := sha1.Sum([]byte(abs))
	namePtr, err := windows.UTF16PtrFromString(config.AppName + "_" + hex.EncodeToString(sum[:8]))
	if err != nil {
		return false, err
	}

	mutex, err = windows.CreateMutex(nil, false, namePtr)
	if err != nil {
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			windows.CloseHandle(mutex)
			mutex = 0
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// releaseLock releases the single-instance lock.
func releaseLock() {
	if mutex != 0 {
		if err := windows.ReleaseMutex(mutex); err != nil {
			log.Printf("Failed to release mutex: %v", err)
		}
		if err := windows.CloseHandle(mutex); err != nil {
			log.Printf("Failed to close mutex handle: %v", err)
		}
	}
}
