// Package mk is what a build program imports. Every method performs one build step and
// terminates the program with exit code 1 if it fails, so build programs read as a flat
// list of steps:
//
//	func main() {
//		b := mk.Init()
//		b.RebuildMyself()
//
//		b.Mkdir("build", "obj")
//		b.Cmd("cc", "-c", "-o", "build/obj/main.o", "src/main.c")
//	}
package mk

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/ngld/selfbuild/pkg/bootstrap"
	"github.com/ngld/selfbuild/pkg/config"
	"github.com/ngld/selfbuild/pkg/fsops"
	"github.com/ngld/selfbuild/pkg/logging"
	"github.com/ngld/selfbuild/pkg/runner"
)

// Build bundles the primitives a build program uses
type Build struct {
	Ctx    context.Context
	FS     *fsops.Ops
	Runner *runner.Exec
	Boot   *bootstrap.Bootstrap
	// Exit is called with 1 after a failed step. The methods return zero values if it
	// returns.
	Exit func(code int)
}

// Init loads the configuration from selfbuild.toml and SELFBUILD_* variables and returns
// a Build working on the real filesystem. A broken configuration terminates the program.
func Init() *Build {
	b, err := Load()
	if err != nil {
		logger := logging.New(zerolog.InfoLevel, false)
		logger.Error().Err(err).Msg("config")
		os.Exit(1)
	}
	return b
}

// Load is Init for explicit config files; it returns configuration errors instead of
// exiting
func Load(files ...string) (*Build, error) {
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	compiler, err := cfg.CompilerCommand()
	if err != nil {
		return nil, eris.Wrap(err, "invalid value for compiler")
	}

	logger := logging.New(cfg.LogLevel(), cfg.Log.NoColor)
	return New(logging.WithLogger(context.Background(), &logger), fsops.OS(), runner.New(), compiler), nil
}

// New wires a Build from its parts. An empty compiler selects bootstrap.DefaultCompiler.
func New(ctx context.Context, fsys fsops.Filesystem, r *runner.Exec, compiler []string) *Build {
	ops := fsops.New(fsys)
	boot := bootstrap.New(ops, r)
	if len(compiler) > 0 {
		boot.Compiler = compiler
	}

	b := &Build{
		Ctx:    ctx,
		FS:     ops,
		Runner: r,
		Boot:   boot,
		Exit:   os.Exit,
	}
	// the bootstrap exits through the same hook so tests can intercept both
	boot.Exit = func(code int) { b.Exit(code) }
	return b
}

func (b *Build) check(err error, op string, args ...interface{}) bool {
	if err == nil {
		return true
	}

	logging.Log(b.Ctx).Error().Err(err).Msgf(op, args...)
	b.Exit(1)
	return false
}

// RebuildMyself rebuilds the build program if the file calling RebuildMyself is newer than
// the running binary. In that case the rebuilt binary is run and the current process exits
// with code 0 once it finishes.
func (b *Build) RebuildMyself() {
	source, err := bootstrap.SourcePath(1)
	if !b.check(err, "rebuild") {
		return
	}

	binary, err := bootstrap.BinaryPath()
	if !b.check(err, "rebuild") {
		return
	}

	b.Rebuild(source, binary)
}

// Rebuild is RebuildMyself with explicit paths
func (b *Build) Rebuild(source, binary string) {
	err := b.Boot.Rebuild(b.Ctx, source, binary)
	if eris.Is(err, bootstrap.ErrReplaced) {
		return
	}
	b.check(err, "rebuild %s", binary)
}

// Exists reports whether path names an existing entry
func (b *Build) Exists(path string) bool {
	ok, err := b.FS.Exists(b.Ctx, path)
	return b.check(err, "exists %s", path) && ok
}

// IsFile reports whether path is a regular file
func (b *Build) IsFile(path string) bool {
	ok, err := b.FS.IsFile(b.Ctx, path)
	return b.check(err, "isfile %s", path) && ok
}

// IsDir reports whether path is a directory
func (b *Build) IsDir(path string) bool {
	ok, err := b.FS.IsDir(b.Ctx, path)
	return b.check(err, "isdir %s", path) && ok
}

// Mkdir creates the directory chain made of segments, like mkdir -p
func (b *Build) Mkdir(segments ...string) {
	b.check(b.FS.MakeDirectories(b.Ctx, segments...), "mkdir %s", fsops.Path(segments...))
}

// Mkfile creates an empty file and any missing parent directories
func (b *Build) Mkfile(segments ...string) {
	b.check(b.FS.MakeFile(b.Ctx, segments...), "mkfile %s", fsops.Path(segments...))
}

// Rm removes each path recursively, like rm -r
func (b *Build) Rm(paths ...string) {
	for _, path := range paths {
		if !b.check(b.FS.Remove(b.Ctx, path), "rm %s", path) {
			return
		}
	}
}

// Mv renames source to destination
func (b *Build) Mv(source, destination string) {
	b.check(b.FS.Move(b.Ctx, source, destination), "mv %s %s", source, destination)
}

// ListDir returns the sorted names inside path
func (b *Build) ListDir(path string) []string {
	names, err := b.FS.ListDir(b.Ctx, path)
	if !b.check(err, "listdir %s", path) {
		return nil
	}
	return names
}

// Cmd runs argv and waits for it
func (b *Build) Cmd(argv ...string) {
	b.check(b.Runner.Run(b.Ctx, argv...), "cmd")
}

// Shell splits line like a POSIX shell would and runs the result
func (b *Build) Shell(line string) {
	b.check(b.Runner.Shell(b.Ctx, line), "cmd")
}

// WithEnv returns a copy of b whose commands see the given environment overrides
func (b *Build) WithEnv(overrides map[string]string) *Build {
	clone := *b
	clone.Runner = b.Runner.WithEnv(overrides)
	return &clone
}

// Info prints a message at the info echo level
func (b *Build) Info(format string, args ...interface{}) {
	logging.Log(b.Ctx).Info().Msg(fmt.Sprintf(format, args...))
}

// Warn prints a warning to stderr
func (b *Build) Warn(format string, args ...interface{}) {
	logging.Log(b.Ctx).Warn().Msg(fmt.Sprintf(format, args...))
}

// Trace prints a message at the trace echo level
func (b *Build) Trace(format string, args ...interface{}) {
	logging.Log(b.Ctx).Debug().Msg(fmt.Sprintf(format, args...))
}

// Fatal prints an error and exits with code 1
func (b *Build) Fatal(format string, args ...interface{}) {
	logging.Log(b.Ctx).Error().Msg(fmt.Sprintf(format, args...))
	b.Exit(1)
}
