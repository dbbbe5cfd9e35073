package cmd

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/logger"
	"github.com/josephgoksu/ngbuild/internal/ui"
)

// flagKeys maps viper keys to the CLI flags bound to them.
var flagKeys = map[string]string{
	config.KeyEnv:           "env",
	config.KeyProd:          "prod",
	config.KeyFilter:        "filter",
	config.KeyProgress:      "progress",
	config.KeyLogLevel:      "logLevel",
	config.KeyVerbose:       "verbose",
	config.KeyWatch:         "watch",
	config.KeyPoll:          "poll",
	config.KeyBeep:          "beep",
	config.KeyStrictExtends: "strict-extends",
}

// newLogger is replaced in tests.
var newLogger = logger.New

// initConfig loads .env, registers defaults and binds flags and NGB_*
// environment variables. Flags win over environment variables.
func initConfig(cmd *cobra.Command) error {
	// A missing .env file is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	config.RegisterDefaults(viper.GetViper())

	for key, name := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// buildOptions layers the manifest's buildOptions below flags and environment
// variables and validates the merged result.
func buildOptions(manifest *config.AngularBuildConfig) (config.BuildOptions, error) {
	var opts config.BuildOptions
	if manifest != nil {
		if err := viper.MergeConfigMap(manifest.BuildOptions.Settings()); err != nil {
			return opts, fmt.Errorf("merge buildOptions: %w", err)
		}
	}
	if err := viper.Unmarshal(&opts); err != nil {
		return opts, fmt.Errorf("decode build options: %w", err)
	}
	opts.Environment = splitAll(opts.Environment)
	opts.Filter = splitAll(opts.Filter)
	if err := config.ValidateBuildOptions(&opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func splitAll(items []string) []string {
	var out []string
	for _, item := range items {
		out = append(out, config.SplitList(item)...)
	}
	return out
}

func currentLogOptions() logger.Options {
	return logger.Options{
		Level:       viper.GetString(config.KeyLogLevel),
		Verbose:     viper.GetBool(config.KeyVerbose),
		Development: ui.IsInteractive(rootCmd.ErrOrStderr()),
	}
}

// initLogger replaces the application logger.
func initLogger(opts logger.Options) error {
	l, err := newLogger(opts)
	if err != nil {
		return err
	}
	if appLogger != nil {
		_ = appLogger.Sync()
	}
	appLogger = l
	return nil
}
