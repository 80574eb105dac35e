package main

import (
	"github.com/spf13/cobra"
)

func newMkdirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <segment>...",
		Short: "Create the directory chain joined from the given segments (like mkdir -p)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ops.MakeDirectories(a.ctx, args...)
		},
	}
}

func newMkfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkfile <segment>...",
		Short: "Create an empty file and its parent directories; existing files are left alone",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ops.MakeFile(a.ctx, args...)
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Recursively remove files and directories; missing paths only produce a warning",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, item := range args {
				err := a.ops.Remove(a.ctx, item)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <source> <destination>",
		Short: "Rename a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ops.Move(a.ctx, args[0], args[1])
		},
	}
}
