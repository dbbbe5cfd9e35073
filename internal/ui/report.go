package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/josephgoksu/ngbuild/internal/app"
	"github.com/josephgoksu/ngbuild/internal/build"
	"github.com/josephgoksu/ngbuild/internal/errs"
	"github.com/josephgoksu/ngbuild/internal/planner"
)

// PlanTable lists the steps of a plan with outputs relative to root.
func PlanTable(plan *planner.Plan, root string) *Table {
	t := &Table{
		Headers:  []string{"Step", "Kind", "Depends on", "Output"},
		MaxWidth: 60,
	}
	for _, s := range plan.Steps {
		outputs := s.Outputs()
		for i, o := range outputs {
			outputs[i] = relTo(root, o)
		}
		t.Rows = append(t.Rows, []string{
			s.ID,
			string(s.Kind),
			strings.Join(s.DependsOn, ","),
			strings.Join(outputs, ", "),
		})
	}
	return t
}

// RenderPlans renders every planned project, or its planning error.
func RenderPlans(res *build.Result, root string) string {
	var sb strings.Builder
	for i, p := range res.Projects {
		if i > 0 {
			sb.WriteString("\n")
		}
		if p.Err != nil {
			sb.WriteString(Icon("✗ ", StyleError) + StyleTitle.Render(p.Name) + "\n")
			sb.WriteString("  " + StyleError.Render(errs.Message(p.Err)) + "\n")
			continue
		}
		sb.WriteString(StyleTitle.Render(p.Name) + " " +
			StyleSubtle.Render(fmt.Sprintf("(%s, out: %s)", p.Plan.Type, relTo(root, p.Plan.OutDir))) + "\n")
		sb.WriteString(PlanTable(p.Plan, root).Render())
	}
	return sb.String()
}

// StepLine formats a progress line for one executed step.
func StepLine(project string, step build.StepResult) string {
	style := StyleKindOutput
	switch step.Kind {
	case planner.KindTranspile, planner.KindTransform:
		style = StyleKindCompile
	}
	status := Icon("✓", StyleSuccess)
	if step.Err != nil {
		status = Icon("✗", StyleError)
	}
	return fmt.Sprintf("%s %s %s %s",
		status,
		StyleSubtle.Render(project),
		style.Render(step.ID),
		StyleSubtle.Render(formatDuration(step.Duration)))
}

// RenderSummary renders the per-project outcome and the totals of a run.
func RenderSummary(res *build.Result, c app.Counters, elapsed time.Duration) string {
	var sb strings.Builder
	for _, p := range res.Projects {
		if p.Err != nil {
			fmt.Fprintf(&sb, "%s %s\n", Icon("✗", StyleError), StyleTitle.Render(p.Name))
			fmt.Fprintf(&sb, "  %s\n", StyleError.Render(errs.Message(p.Err)))
			continue
		}
		fmt.Fprintf(&sb, "%s %s %s\n",
			Icon("✓", StyleSuccess),
			StyleTitle.Render(p.Name),
			StyleSubtle.Render(formatDuration(p.Duration)))
	}

	totals := fmt.Sprintf("%d project(s), %d step(s) in %s", c.Projects, c.Steps, formatDuration(elapsed))
	if c.FailedProjects > 0 {
		sb.WriteString(StyleError.Render(fmt.Sprintf("Build failed: %d of %s", c.FailedProjects, totals)) + "\n")
	} else {
		sb.WriteString(StyleSuccess.Render("Build succeeded: "+totals) + "\n")
	}
	return sb.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func relTo(root, p string) string {
	if root == "" {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// RenderRebuild renders the outcome of a watch-mode rebuild.
func RenderRebuild(changed []string, res *build.Result) string {
	var sb strings.Builder
	if len(res.Projects) == 0 {
		return StyleSubtle.Render(fmt.Sprintf("%d change(s), nothing to rebuild", len(changed))) + "\n"
	}
	for _, p := range res.Projects {
		if p.Err != nil {
			fmt.Fprintf(&sb, "%s %s %s\n", Icon("✗", StyleError), StyleTitle.Render(p.Name), StyleError.Render(errs.Message(p.Err)))
			continue
		}
		fmt.Fprintf(&sb, "%s %s %s\n",
			Icon("↻", StyleSuccess),
			StyleTitle.Render(p.Name),
			StyleSubtle.Render(fmt.Sprintf("rebuilt in %s (%d change(s))", formatDuration(p.Duration), len(changed))))
	}
	return sb.String()
}
