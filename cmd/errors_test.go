package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	originalStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w
	fn()
	_ = w.Close()
	os.Stderr = originalStderr

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return strings.TrimSpace(buf.String())
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name         string
		userMsg      string
		technicalErr error
		verbose      bool
		expectedOut  string
	}{
		{
			name:        "normal mode without error",
			userMsg:     "User friendly message",
			expectedOut: "User friendly message",
		},
		{
			name:         "verbose mode prints the chain",
			userMsg:      "User friendly message",
			technicalErr: fmt.Errorf("core: %w", errors.New("technical details")),
			verbose:      true,
			expectedOut:  "Error: core: technical details",
		},
		{
			name:         "normal mode hides the chain",
			userMsg:      "User friendly message",
			technicalErr: errors.New("technical details"),
			expectedOut:  "User friendly message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Set("verbose", tt.verbose)
			defer viper.Set("verbose", false)

			output := captureStderr(t, func() { PrintError(tt.userMsg, tt.technicalErr) })
			assert.Equal(t, tt.expectedOut, output)
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config not found", fmt.Errorf("%w in /tmp", errs.ErrConfigNotFound), "angular-build.json not found"},
		{"no projects", fmt.Errorf("filter [x]: %w", errs.ErrNoProjects), "No app or lib config to build"},
		{"failed build", &buildFailedError{failed: 2, err: errors.New("x")}, "build failed: 2 project(s) failed"},
		{"typed", fmt.Errorf("load: %w", errs.InvalidConfig("libs[0].outDir", "is required")), "Error: invalid config at libs[0].outDir: is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, userMessage(tt.err), tt.want)
		})
	}
}
