package log

import (
	"path/filepath"

	"github.com/dixieflatline76/ProductScene/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the service log file.
const (
	maxSizeMB  = 10
	maxBackups = 2
	maxAgeDays = 28
)

// DebugEnv enables debug lines in release builds when set to a non-empty value.
const DebugEnv = config.EnvPrefix + "DEBUG"

// FilePath returns where the service log lives. Windows keeps it under the
// user cache dir, everything else under a dot directory in home.
func FilePath(goos, cacheDir, homeDir string) string {
	dir := filepath.Join(homeDir, config.LogSubDir)
	if goos == "windows" {
		dir = filepath.Join(cacheDir, config.LogWinSubDir)
	}
	return filepath.Join(dir, config.AppName+config.LogExt)
}

// NewFileWriter returns a size rotated, compressed writer for path.
func NewFileWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
}
