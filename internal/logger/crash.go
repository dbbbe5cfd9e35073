// Package logger builds the CLI's zap logger and records crash logs for
// unrecovered panics.
package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// StateDir holds ngb's own files below the project root.
	StateDir = ".ngb"

	// CrashLogDir is the directory for crash logs relative to StateDir.
	CrashLogDir = "crash_logs"

	// MaxCrashLogs is the maximum number of crash logs to keep.
	MaxCrashLogs = 10
)

// CrashContext stores context for crash logging.
type CrashContext struct {
	mu       sync.RWMutex
	rootDir  string
	version  string
	command  string
	project  string
	step     string
	exitFunc func(int)
}

var globalContext = &CrashContext{exitFunc: os.Exit}

// SetProjectRoot sets the directory below which .ngb/crash_logs is created.
func SetProjectRoot(dir string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.rootDir = dir
}

// SetVersion sets the application version for crash logs.
func SetVersion(version string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.version = version
}

// SetCommand sets the current command being executed.
func SetCommand(cmd string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.command = cmd
}

// SetStep records the project and step currently executing.
func SetStep(project, step string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.project = project
	globalContext.step = step
}

// CrashLog is one crash log file.
type CrashLog struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	Command    string    `json:"command"`
	Project    string    `json:"project,omitempty"`
	Step       string    `json:"step,omitempty"`
	PanicValue string    `json:"panic_value"`
	StackTrace string    `json:"stack_trace"`
	GoVersion  string    `json:"go_version"`
	OS         string    `json:"os"`
	Arch       string    `json:"arch"`
}

// HandlePanic recovers from a panic, writes a crash log and exits with status 2.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}
	log := createCrashLog(r)
	path, err := writeCrashLog(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\n[CRASH] Failed to write crash log: %v\n", err)
		fmt.Fprintf(os.Stderr, "[CRASH] Panic: %v\n%s\n", r, log.StackTrace)
	} else {
		fmt.Fprintf(os.Stderr, "\nngb crashed: %v\n", r)
		fmt.Fprintf(os.Stderr, "A crash log has been saved to:\n  %s\n", path)
	}

	globalContext.mu.RLock()
	exit := globalContext.exitFunc
	globalContext.mu.RUnlock()
	exit(2)
}

func createCrashLog(panicValue any) CrashLog {
	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()

	return CrashLog{
		Timestamp:  time.Now(),
		Version:    globalContext.version,
		Command:    globalContext.command,
		Project:    globalContext.project,
		Step:       globalContext.step,
		PanicValue: fmt.Sprintf("%v", panicValue),
		StackTrace: string(debug.Stack()),
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
}

func writeCrashLog(log CrashLog) (string, error) {
	dir := crashLogDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create crash log dir: %w", err)
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode crash log: %w", err)
	}
	path := crashLogPath(log.Timestamp)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write crash log: %w", err)
	}

	if err := pruneCrashLogs(dir, MaxCrashLogs); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to clean old crash logs: %v\n", err)
	}
	return path, nil
}

func crashLogDir() string {
	globalContext.mu.RLock()
	root := globalContext.rootDir
	globalContext.mu.RUnlock()
	return filepath.Join(root, StateDir, CrashLogDir)
}

func crashLogPath(t time.Time) string {
	name := fmt.Sprintf("crash_%s.json", t.Format("20060102_150405.000"))
	return filepath.Join(crashLogDir(), name)
}

func isCrashLog(name string) bool {
	return strings.HasPrefix(name, "crash_") && strings.HasSuffix(name, ".json")
}

// pruneCrashLogs keeps the newest keep crash logs in dir.
func pruneCrashLogs(dir string, keep int) error {
	logs, err := listCrashLogs(dir)
	if err != nil || len(logs) <= keep {
		return err
	}
	for _, p := range logs[:len(logs)-keep] {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("remove old crash log %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func listCrashLogs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var logs []string
	for _, e := range entries {
		if !e.IsDir() && isCrashLog(e.Name()) {
			logs = append(logs, filepath.Join(dir, e.Name()))
		}
	}
	// Names embed the timestamp, so lexical order is oldest first.
	sort.Strings(logs)
	return logs, nil
}

// ListCrashLogs returns the crash logs of the current project root, oldest first.
func ListCrashLogs() ([]string, error) {
	return listCrashLogs(crashLogDir())
}
