package config

import "strings"

// AppVersion is the version of the service.
var AppVersion string // Set with -ldflags "-X .../config.AppVersion=..."

// AppName is the name of the service.
const AppName = "ProductScene"

// ServiceName is the name used for the config directory and keyring entries.
const ServiceName = AppName

// LogWinSubDir is the sub directory for the log files on windows.
var LogWinSubDir = AppName

// LogSubDir is the sub directory for the log files.
var LogSubDir = "." + strings.ToLower(AppName)

// LogExt is the extension of the log file.
const LogExt = ".log"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PRODUCTSCENE_"

// Store backends.
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)
