//go:build release

package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
)

var debugEnabled = os.Getenv(DebugEnv) != ""

func init() {
	cacheDir, _ := os.UserCacheDir()
	homeDir, err := os.UserHomeDir()
	if err != nil && runtime.GOOS != "windows" {
		log.Fatalf("log: no home directory: %v", err)
	}

	path := FilePath(runtime.GOOS, cacheDir, homeDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatalf("log: create %s: %v", filepath.Dir(path), err)
	}

	log.SetOutput(NewFileWriter(path))
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

// Print calls the standard log.Print()
func Print(v ...interface{}) {
	log.Output(2, fmt.Sprint(v...))
}

// Printf calls the standard log.Printf()
func Printf(format string, v ...interface{}) {
	log.Output(2, fmt.Sprintf(format, v...))
}

// Println calls the standard log.Println()
func Println(v ...interface{}) {
	log.Output(2, fmt.Sprintln(v...))
}

// Fatal logs and exits.
func Fatal(v ...interface{}) {
	log.Output(2, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs and exits.
func Fatalf(format string, v ...interface{}) {
	log.Output(2, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Fatalln logs and exits.
func Fatalln(v ...interface{}) {
	log.Output(2, fmt.Sprintln(v...))
	os.Exit(1)
}

// Debug writes only when PRODUCTSCENE_DEBUG is set.
func Debug(v ...interface{}) {
	if debugEnabled {
		log.Output(2, "[DEBUG] "+fmt.Sprint(v...))
	}
}

// Debugf writes only when PRODUCTSCENE_DEBUG is set.
func Debugf(format string, v ...interface{}) {
	if debugEnabled {
		log.Output(2, "[DEBUG] "+fmt.Sprintf(format, v...))
	}
}

// Writer returns the rotated log file, for access logs.
func Writer() io.Writer {
	return log.Writer()
}
