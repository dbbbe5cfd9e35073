// Package app holds the state shared by every stage of one build invocation.
// The CLI creates a single BuildContext; the planner and collaborators read it
// and only the orchestrator records results into it.
package app

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/config"
)

// BuildContext holds shared dependencies for one CLI invocation.
type BuildContext struct {
	RunID       string
	Logger      *zap.Logger
	Fs          afero.Fs
	ProjectRoot string
	ConfigPath  string
	Env         config.Environment
	Options     config.BuildOptions
	StartedAt   time.Time

	mu       sync.Mutex
	counters Counters
}

// Counters are the aggregate step results of a run.
type Counters struct {
	Projects       int
	FailedProjects int
	Steps          int
	FailedSteps    int
}

// Option configures a BuildContext.
type Option func(*BuildContext)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(bc *BuildContext) {
		if l != nil {
			bc.Logger = l
		}
	}
}

// WithFs sets the filesystem used for every read and write.
func WithFs(fs afero.Fs) Option {
	return func(bc *BuildContext) { bc.Fs = fs }
}

// WithEnvironment sets the active environment.
func WithEnvironment(env config.Environment) Option {
	return func(bc *BuildContext) { bc.Env = env }
}

// WithOptions sets the merged build options.
func WithOptions(opts config.BuildOptions) Option {
	return func(bc *BuildContext) { bc.Options = opts }
}

// NewBuildContext creates a context rooted at the directory holding configPath.
// Defaults: OS filesystem, no-op logger, dev environment.
func NewBuildContext(configPath string, opts ...Option) *BuildContext {
	bc := &BuildContext{
		RunID:       uuid.NewString(),
		Logger:      zap.NewNop(),
		Fs:          afero.NewOsFs(),
		ConfigPath:  configPath,
		ProjectRoot: filepath.Dir(configPath),
		Env:         config.NormalizeEnvironment(nil, false),
		StartedAt:   time.Now(),
	}
	for _, opt := range opts {
		opt(bc)
	}
	bc.Logger = bc.Logger.With(zap.String("run_id", bc.RunID))
	return bc
}

// RecordProject adds one finished project and its step counts.
func (bc *BuildContext) RecordProject(failed bool, steps, failedSteps int) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.counters.Projects++
	if failed {
		bc.counters.FailedProjects++
	}
	bc.counters.Steps += steps
	bc.counters.FailedSteps += failedSteps
}

// Counters returns a snapshot of the recorded results.
func (bc *BuildContext) Counters() Counters {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.counters
}

// Elapsed returns the time since the run started.
func (bc *BuildContext) Elapsed() time.Duration {
	return time.Since(bc.StartedAt)
}

// Abs resolves p against the project root.
func (bc *BuildContext) Abs(p string) string {
	if p == "" {
		return bc.ProjectRoot
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(bc.ProjectRoot, p)
}
