package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/ngbuild/internal/build"
	"github.com/josephgoksu/ngbuild/internal/errs"
	"github.com/josephgoksu/ngbuild/internal/executor"
	"github.com/josephgoksu/ngbuild/internal/planner"
	"github.com/josephgoksu/ngbuild/internal/ui"
)

var planFormat string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the resolved build plan without running it",
	Long: `Plan resolves angular-build.json exactly like build does and prints the
steps, computed output paths and dependencies of every project.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFormat, "format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(planCmd)
}

// planDoc is the machine-readable form of one planned project.
type planDoc struct {
	Project string        `json:"project" yaml:"project"`
	Path    string        `json:"path" yaml:"path"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
	Plan    *planner.Plan `json:"plan,omitempty" yaml:"plan,omitempty"`
}

func runPlan(cmd *cobra.Command, _ []string) error {
	switch planFormat {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown --format %q (want table, json or yaml)", planFormat)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	res := build.New(s.bc, executor.Toolchain{}).Plan(cmd.Context(), s.projects)

	out := cmd.OutOrStdout()
	switch planFormat {
	case "table":
		fmt.Fprint(out, ui.RenderPlans(res, s.bc.ProjectRoot))
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(planDocs(res)); err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(planDocs(res)); err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}
		_ = enc.Close()
	}

	if res.Failed() {
		failed := 0
		for _, p := range res.Projects {
			if p.Err != nil {
				failed++
			}
		}
		return &buildFailedError{failed: failed, err: res.Err()}
	}
	return nil
}

func planDocs(res *build.Result) []planDoc {
	docs := make([]planDoc, 0, len(res.Projects))
	for _, p := range res.Projects {
		d := planDoc{Project: p.Name, Path: p.Path, Plan: p.Plan}
		if p.Err != nil {
			d.Error = errs.Message(p.Err)
		}
		docs = append(docs, d)
	}
	return docs
}
