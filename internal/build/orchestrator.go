// Package build executes project plans: projects run one after another, steps
// in plan order, and a failing step stops only its own project.
package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/app"
	"github.com/josephgoksu/ngbuild/internal/executor"
	"github.com/josephgoksu/ngbuild/internal/planner"
	"github.com/josephgoksu/ngbuild/internal/resolve"
)

// Orchestrator plans and runs projects with one Toolchain.
type Orchestrator struct {
	bc      *app.BuildContext
	tools   executor.Toolchain
	planner *planner.Planner
	locks   *dirLocks

	// OnStep is called after every executed step. Optional.
	OnStep func(project string, step StepResult)
}

// New creates an Orchestrator.
func New(bc *app.BuildContext, tools executor.Toolchain) *Orchestrator {
	return &Orchestrator{
		bc:      bc,
		tools:   tools,
		planner: planner.New(bc),
		locks:   newDirLocks(),
	}
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	ID       planner.StepRef
	Kind     planner.StepKind
	Duration time.Duration
	Err      error
}

// ProjectResult is the outcome of one project.
type ProjectResult struct {
	Name     string
	Path     string
	Plan     *planner.Plan
	Steps    []StepResult
	Duration time.Duration
	Err      error
}

// Result aggregates every project of a run.
type Result struct {
	Projects []ProjectResult
}

// Failed reports whether any project failed.
func (r *Result) Failed() bool {
	for _, p := range r.Projects {
		if p.Err != nil {
			return true
		}
	}
	return false
}

// Err joins the project errors, each prefixed with its project name.
func (r *Result) Err() error {
	var errList []error
	for _, p := range r.Projects {
		if p.Err != nil {
			errList = append(errList, fmt.Errorf("%s: %w", p.Name, p.Err))
		}
	}
	return errors.Join(errList...)
}

// Plan plans every project without executing anything. Projects whose
// configuration failed to resolve or plan carry the error.
func (o *Orchestrator) Plan(ctx context.Context, projects []resolve.Project) *Result {
	res := &Result{}
	for _, p := range projects {
		pr := ProjectResult{Name: p.DisplayName(), Path: p.Path}
		pr.Plan, pr.Err = o.planner.PlanProject(ctx, p)
		res.Projects = append(res.Projects, pr)
	}
	return res
}

// Run plans and executes projects sequentially. Cancellation stops before
// the next step; the remaining projects are reported as cancelled.
func (o *Orchestrator) Run(ctx context.Context, projects []resolve.Project) *Result {
	res := &Result{}
	for _, p := range projects {
		pr := ProjectResult{Name: p.DisplayName(), Path: p.Path}
		if err := ctx.Err(); err != nil {
			pr.Err = err
			res.Projects = append(res.Projects, pr)
			continue
		}

		start := time.Now()
		pr.Plan, pr.Err = o.planner.PlanProject(ctx, p)
		if pr.Err == nil {
			pr.Steps, pr.Err = o.execute(ctx, pr.Name, pr.Plan, pr.Plan.Steps)
		}
		pr.Duration = time.Since(start)
		o.record(pr)
		res.Projects = append(res.Projects, pr)
	}
	return res
}

// execute runs steps in order while holding the lock of the plan's output
// directory. It stops at the first failing step.
func (o *Orchestrator) execute(ctx context.Context, project string, plan *planner.Plan, steps []planner.Step) ([]StepResult, error) {
	unlock := o.locks.lock(plan.OutDir)
	defer unlock()

	results := make([]StepResult, 0, len(steps))
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := time.Now()
		err := o.runStep(ctx, step)
		sr := StepResult{ID: step.ID, Kind: step.Kind, Duration: time.Since(start), Err: err}
		results = append(results, sr)
		if o.OnStep != nil {
			o.OnStep(project, sr)
		}
		if err != nil {
			o.bc.Logger.Error("step failed",
				zap.String("project", project),
				zap.String("step", step.ID),
				zap.Error(err))
			return results, fmt.Errorf("step %s: %w", step.ID, err)
		}
		o.bc.Logger.Debug("step done",
			zap.String("project", project),
			zap.String("step", step.ID),
			zap.Duration("duration", sr.Duration))
	}
	return results, nil
}

func (o *Orchestrator) record(pr ProjectResult) {
	failedSteps := 0
	for _, s := range pr.Steps {
		if s.Err != nil {
			failedSteps++
		}
	}
	o.bc.RecordProject(pr.Err != nil, len(pr.Steps), failedSteps)
	if pr.Err != nil {
		o.bc.Logger.Error("project failed", zap.String("project", pr.Name), zap.Error(pr.Err))
		return
	}
	o.bc.Logger.Info("project built",
		zap.String("project", pr.Name),
		zap.Int("steps", len(pr.Steps)),
		zap.Duration("duration", pr.Duration))
}

// dirLocks serializes writers of the same output directory.
type dirLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDirLocks() *dirLocks {
	return &dirLocks{locks: map[string]*sync.Mutex{}}
}

func (d *dirLocks) lock(dir string) func() {
	key := filepath.Clean(dir)
	d.mu.Lock()
	l, ok := d.locks[key]
	if !ok {
		l = &sync.Mutex{}
		d.locks[key] = l
	}
	d.mu.Unlock()

	l.Lock()
	return l.Unlock
}
