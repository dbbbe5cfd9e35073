package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/ngbuild/internal/build"
	"github.com/josephgoksu/ngbuild/internal/logger"
	"github.com/josephgoksu/ngbuild/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the apps and libs defined in angular-build.json",
	Long: `Build resolves every app and lib of angular-build.json for the active
environments and runs their build steps in order. A failing project does not
stop the others; the command exits non-zero when any project failed.

Examples:
  ngb build --prod
  ngb build --env prod,aot --filter core
  ngb build --watch --poll 500`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.Bool("progress", false, "print every step as it finishes")
	f.Bool("watch", false, "rebuild when sources change")
	f.Int("poll", 0, "in watch mode, poll for changes every <ms> instead of using file notifications")
	f.Bool("beep", false, "ring the terminal bell when a build finishes")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	orch := build.New(s.bc, newToolchain(s.bc.Fs, s.bc.ProjectRoot, s.bc.Logger))
	p := newProgress(errOut, s.opts.Progress)
	orch.OnStep = p.step

	p.start()
	res := orch.Run(ctx, s.projects)
	p.stop()

	fmt.Fprint(out, ui.RenderSummary(res, s.bc.Counters(), s.bc.Elapsed()))
	if s.opts.Beep {
		ui.Beep(errOut)
	}

	if s.opts.Watch && ctx.Err() == nil {
		fmt.Fprintln(out, ui.StyleSubtle.Render("Watching for changes. Press Ctrl+C to stop."))
		return orch.Watch(ctx, res, build.WatchOptions{
			Poll: time.Duration(s.opts.Poll) * time.Millisecond,
			OnRebuild: func(changed []string, r *build.Result) {
				fmt.Fprint(out, ui.RenderRebuild(changed, r))
				if s.opts.Beep {
					ui.Beep(errOut)
				}
			},
		})
	}

	if res.Failed() {
		return &buildFailedError{failed: s.bc.Counters().FailedProjects, err: res.Err()}
	}
	return nil
}

// progress reports finished steps: a spinner on terminals, one line per
// step otherwise. It is silent unless enabled.
type progress struct {
	out     io.Writer
	enabled bool
	spinner *ui.Spinner
}

func newProgress(out io.Writer, enabled bool) *progress {
	p := &progress{out: out, enabled: enabled}
	if enabled && ui.IsInteractive(out) {
		p.spinner = ui.NewSpinner(out, "building")
	}
	return p
}

func (p *progress) start() {
	if p.spinner != nil {
		p.spinner.Start()
	}
}

func (p *progress) stop() {
	if p.spinner != nil {
		p.spinner.Stop()
	}
}

func (p *progress) step(project string, step build.StepResult) {
	logger.SetStep(project, step.ID)
	if !p.enabled {
		return
	}
	if p.spinner != nil {
		p.spinner.SetSuffix(fmt.Sprintf("%s %s", project, step.ID))
		return
	}
	fmt.Fprintln(p.out, ui.StepLine(project, step))
}
