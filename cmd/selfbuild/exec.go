package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ngld/selfbuild/pkg/bootstrap"
	"github.com/ngld/selfbuild/pkg/script"
)

func newExecCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <program> [args]...",
		Short: "Run a program, wait for it and report how it terminated",
		Long: `Runs the program with the given arguments. The program is searched in PATH if it
doesn't contain a slash. A non-zero exit code or a terminating signal is reported and
makes selfbuild exit with code 1.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runner.Run(a.ctx, args...)
		},
	}
	// everything after the program name belongs to the program
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script.star> [args]...",
		Short: "Execute a Starlark build script",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := script.Run(a.ctx, script.Options{
				File:   args[0],
				Args:   args[1:],
				Ops:    a.ops,
				Runner: a.runner,
			})
			return err
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newStaleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stale <source> <binary>",
		Short: "Print whether binary is older than source",
		Long: `Prints "stale" if source was modified after binary, "fresh" otherwise. With --rebuild
a stale binary is moved to <binary>.old, rebuilt with the configured compiler
(<compiler> -o <binary> <source>) and started; selfbuild exits once it finished.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			boot := bootstrap.New(a.ops, a.runner)
			boot.Exit = a.exit

			compiler, err := a.cfg.CompilerCommand()
			if err != nil {
				return err
			}
			boot.Compiler = compiler

			rebuild, err := cmd.Flags().GetBool("rebuild")
			if err != nil {
				return err
			}

			if rebuild {
				err = boot.Rebuild(a.ctx, args[0], args[1])
				if eris.Is(err, bootstrap.ErrReplaced) {
					return nil
				}
				return err
			}

			verdict, err := boot.Check(a.ctx, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintln(a.stdout, verdict)
			return nil
		},
	}

	cmd.Flags().Bool("rebuild", false, "rebuild and restart a stale binary")
	return cmd
}
