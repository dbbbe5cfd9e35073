package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/errs"
)

// buildFailedError summarizes failed projects; the project errors are wrapped.
type buildFailedError struct {
	failed int
	err    error
}

func (e *buildFailedError) Error() string {
	return fmt.Sprintf("build failed: %d project(s) failed", e.failed)
}

func (e *buildFailedError) Unwrap() error {
	return e.err
}

// userMessage maps an error to the line shown without --verbose.
func userMessage(err error) string {
	var failed *buildFailedError
	switch {
	case errors.As(err, &failed):
		return failed.Error()
	case errors.Is(err, errs.ErrConfigNotFound):
		return "angular-build.json not found. Run ngb inside the workspace or pass --config."
	case errors.Is(err, errs.ErrNoProjects):
		return "No app or lib config to build. Check --filter and the \"skip\" options."
	}
	return "Error: " + errs.Message(err)
}

// PrintError prints an error message without exiting, allowing for recovery.
// With --verbose the full wrapped chain is printed instead of userMsg.
func PrintError(userMsg string, technicalErr error) {
	if viper.GetBool(config.KeyVerbose) && technicalErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", technicalErr)
		return
	}
	fmt.Fprintln(os.Stderr, userMsg)
}
