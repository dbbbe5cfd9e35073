/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/logger"
)

var (
	// cfgFile is the path to angular-build.json (or a directory holding it).
	cfgFile string
	// version is the application version.
	version = "0.1.0"
	// appLogger is rebuilt once the effective log level is known.
	appLogger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ngb",
	Short: "ngb builds Angular apps and libraries from angular-build.json",
	Long: `ngb reads angular-build.json, applies "extends" inheritance and
environment overrides to every app and lib, validates the result and builds
each project in order: TypeScript transpilation, bundling, script-target
transforms, minification, global styles and scripts, assets and package.json.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLogger != nil {
			_ = appLogger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer logger.HandlePanic()
	if err := rootCmd.Execute(); err != nil {
		PrintError(userMessage(err), err)
		os.Exit(1)
	}
}

// persistentPreRunE is assigned in init to avoid an initialization cycle
// between rootCmd and currentLogOptions.
func persistentPreRunE(cmd *cobra.Command, args []string) error {
	logger.SetVersion(version)
	logger.SetCommand(cmd.CommandPath())
	if err := initConfig(cmd); err != nil {
		return err
	}
	return initLogger(currentLogOptions())
}

func init() {
	rootCmd.PersistentPreRunE = persistentPreRunE
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "path to angular-build.json (default: search the working directory and its parents)")
	pf.StringSlice("env", nil, "build environments, e.g. --env prod,aot or --env dll=false (alias --environment)")
	pf.Bool("prod", false, "shorthand for --env prod")
	pf.StringSlice("filter", nil, "only build projects with these names or kinds (app, lib)")
	pf.String("logLevel", config.DefaultLogLevel, "log level: debug, info, warn or error")
	pf.BoolP("verbose", "v", false, "enable verbose output (debug logging and full error chains)")
	pf.Bool("strict-extends", true, `treat unresolved "extends" names as config errors`)

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
}

// normalizeFlagName maps flag aliases onto their canonical names.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "environment":
		name = "env"
	case "loglevel", "log-level":
		name = "logLevel"
	case "strictExtends":
		name = "strict-extends"
	}
	return pflag.NormalizedName(name)
}

// GetVersion returns the application version.
func GetVersion() string {
	return version
}
