package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetContext(t *testing.T, root string) {
	t.Helper()
	globalContext = &CrashContext{rootDir: root, exitFunc: os.Exit}
}

func TestCrashContext_Setters(t *testing.T) {
	resetContext(t, "")
	SetProjectRoot("/work")
	SetVersion("1.0.0-test")
	SetCommand("build")
	SetStep("core", "bundle:0")

	log := createCrashLog("boom")
	assert.Equal(t, "1.0.0-test", log.Version)
	assert.Equal(t, "build", log.Command)
	assert.Equal(t, "core", log.Project)
	assert.Equal(t, "bundle:0", log.Step)
	assert.Equal(t, "boom", log.PanicValue)
	assert.NotEmpty(t, log.StackTrace)
	assert.Equal(t, filepath.Join("/work", ".ngb", "crash_logs"), crashLogDir())
}

func TestWriteCrashLog_JSON(t *testing.T) {
	root := t.TempDir()
	resetContext(t, root)

	path, err := writeCrashLog(CrashLog{Timestamp: time.Now(), PanicValue: "nil map write"})
	require.NoError(t, err)
	assert.True(t, isCrashLog(filepath.Base(path)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded CrashLog
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "nil map write", decoded.PanicValue)
}

func TestPruneCrashLogs_KeepsNewest(t *testing.T) {
	root := t.TempDir()
	resetContext(t, root)
	dir := crashLogDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for i := 0; i < MaxCrashLogs+3; i++ {
		name := fmt.Sprintf("crash_20260101_1200%02d.000.json", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	require.NoError(t, pruneCrashLogs(dir, MaxCrashLogs))

	logs, err := ListCrashLogs()
	require.NoError(t, err)
	require.Len(t, logs, MaxCrashLogs)
	assert.Equal(t, "crash_20260101_120003.000.json", filepath.Base(logs[0]))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestListCrashLogs_MissingDir(t *testing.T) {
	resetContext(t, t.TempDir())
	logs, err := ListCrashLogs()
	assert.NoError(t, err)
	assert.Empty(t, logs)
}

func TestHandlePanic_WritesLogAndExits(t *testing.T) {
	root := t.TempDir()
	resetContext(t, root)
	var code int
	globalContext.exitFunc = func(c int) { code = c }

	func() {
		defer HandlePanic()
		panic("kaboom")
	}()

	assert.Equal(t, 2, code)
	logs, err := ListCrashLogs()
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "info", false},
		{"DEBUG", "debug", false},
		{"warn", "warn", false},
		{"error", "error", false},
		{"trace", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lvl, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, lvl.String())
		})
	}
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	l, err := New(Options{Level: "error", Verbose: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))

	l, err = New(Options{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(0))

	_, err = New(Options{Level: "loud"})
	assert.Error(t, err)
}
