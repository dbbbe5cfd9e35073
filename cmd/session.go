package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/app"
	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/executor"
	"github.com/josephgoksu/ngbuild/internal/logger"
	"github.com/josephgoksu/ngbuild/internal/resolve"
)

var (
	// appFs is the filesystem every command works on.
	appFs = afero.NewOsFs()
	// newToolchain builds the step collaborators; tests swap it for fakes.
	newToolchain = executor.NewToolchain
)

// session is the resolved state shared by build and plan.
type session struct {
	bc       *app.BuildContext
	opts     config.BuildOptions
	projects []resolve.Project
}

// openSession locates and loads the manifest, merges build options and
// resolves every project. Per-project errors stay on the projects.
func openSession(cmd *cobra.Command) (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	path, err := config.FindManifest(appFs, cwd, cfgFile)
	if err != nil {
		return nil, err
	}
	manifest, err := config.LoadManifest(appFs, path)
	if err != nil {
		return nil, err
	}

	opts, err := buildOptions(manifest)
	if err != nil {
		return nil, err
	}
	logOpts := currentLogOptions()
	logOpts.Level, logOpts.Verbose = opts.LogLevel, opts.Verbose
	if err := initLogger(logOpts); err != nil {
		return nil, err
	}

	env := config.NormalizeEnvironment(opts.Environment, opts.Production)
	bc := app.NewBuildContext(path,
		app.WithLogger(appLogger),
		app.WithFs(appFs),
		app.WithEnvironment(env),
		app.WithOptions(opts))
	logger.SetProjectRoot(bc.ProjectRoot)

	bc.Logger.Debug("config loaded",
		zap.String("path", path),
		zap.String("env", env.String()),
		zap.Strings("filter", opts.Filter))

	projects, err := resolve.Resolve(manifest, resolve.Options{
		ProjectRoot:   bc.ProjectRoot,
		Env:           env,
		StrictExtends: opts.StrictExtendsEnabled(),
		Filter:        opts.Filter,
		Logger:        bc.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &session{bc: bc, opts: opts, projects: projects}, nil
}
