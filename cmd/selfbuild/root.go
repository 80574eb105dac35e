package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ngld/selfbuild/pkg/config"
	"github.com/ngld/selfbuild/pkg/fsops"
	"github.com/ngld/selfbuild/pkg/logging"
	"github.com/ngld/selfbuild/pkg/runner"
)

type app struct {
	ctx    context.Context
	cfg    *config.Config
	ops    *fsops.Ops
	runner *runner.Exec
	stdout io.Writer
	stderr io.Writer
	exit   func(code int)
}

func (a *app) setup(cmd *cobra.Command) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("no-color") {
		cfg.Log.NoColor, _ = flags.GetBool("no-color")
	}

	err = cfg.Validate()
	if err != nil {
		return err
	}

	logger := logging.NewWithWriter(&logging.ConsoleWriter{
		Out:     a.stdout,
		Err:     a.stderr,
		NoColor: cfg.Log.NoColor,
	}, cfg.LogLevel())

	a.cfg = cfg
	a.ctx = logging.WithLogger(context.Background(), &logger)
	a.ops = fsops.New(fsops.OS())
	a.runner = &runner.Exec{
		Stdin:  os.Stdin,
		Stdout: a.stdout,
		Stderr: a.stderr,
	}
	return nil
}

// log returns the configured logger or a default console logger if the setup failed
func (a *app) log() *zerolog.Logger {
	if a.ctx != nil {
		return logging.Log(a.ctx)
	}

	logger := zerolog.New(&logging.ConsoleWriter{Out: a.stdout, Err: a.stderr}).Level(zerolog.InfoLevel)
	return &logger
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "selfbuild",
		Short: "Build primitives for shell and Starlark build scripts",
		Long: `selfbuild exposes the primitives self-rebuilding build programs use: recursive
mkdir/rm, exclusive file creation, child processes with exit status reporting and the
source/binary staleness check. "selfbuild run" executes Starlark build scripts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultFile, "config file (TOML)")
	flags.String("log-level", "info", "echo level: none, info, trace or all")
	flags.Bool("no-color", false, "disable ANSI colors")

	rootCmd.AddCommand(
		newRunCmd(a),
		newMkdirCmd(a),
		newMkfileCmd(a),
		newRmCmd(a),
		newMvCmd(a),
		newExecCmd(a),
		newStaleCmd(a),
	)
	return rootCmd
}

// Execute runs the CLI with the given arguments. A failure is logged as a single line.
func Execute(args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr, exit: os.Exit}
	return execute(a, args)
}

func execute(a *app, args []string) error {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		name := rootCmd.Name()
		if cmd != nil {
			name = cmd.Name()
		}
		a.log().Error().Err(err).Msg(name)
	}
	return err
}
