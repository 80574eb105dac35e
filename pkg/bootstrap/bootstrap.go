// Package bootstrap lets a build program rebuild itself. On every start the program
// compares its source file with its own binary; if the source is newer it moves the
// binary aside, recompiles it, starts the new binary and exits. The fresh process runs
// the same check, finds itself up to date and carries on with the build.
//
// If the compiler fails, the previous binary is left at <binary>.old and nothing exists
// at <binary>.
package bootstrap

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ngld/selfbuild/pkg/fsops"
	"github.com/ngld/selfbuild/pkg/logging"
	"github.com/ngld/selfbuild/pkg/runner"
)

// BackupSuffix is appended to the binary's path while the replacement is compiled
const BackupSuffix = ".old"

// ErrReplaced is returned by Rebuild if Exit returned after the new binary finished.
// With the default Exit this never happens.
var ErrReplaced = eris.New("build program was replaced by a rebuilt binary")

// DefaultCompiler compiles a single-file Go build program
var DefaultCompiler = []string{"go", "build"}

// Verdict is the result of comparing the source and binary timestamps
type Verdict int

const (
	// Fresh means the binary is at least as new as its source
	Fresh Verdict = iota
	// Stale means the source was modified after the binary was built
	Stale
)

func (v Verdict) String() string {
	if v == Stale {
		return "stale"
	}
	return "fresh"
}

// Bootstrap holds the collaborators the rebuild needs
type Bootstrap struct {
	FS     *fsops.Ops
	Runner runner.Runner
	// Compiler is invoked as Compiler... -o <binary> <source>.
	Compiler []string
	// Exit terminates the current process once the rebuilt binary finished.
	Exit func(code int)
}

// New returns a Bootstrap using DefaultCompiler and os.Exit
func New(ops *fsops.Ops, r runner.Runner) *Bootstrap {
	return &Bootstrap{
		FS:       ops,
		Runner:   r,
		Compiler: DefaultCompiler,
		Exit:     os.Exit,
	}
}

// Check compares the modification times of source and binary. The binary is stale only
// if the source is strictly newer; equal timestamps count as fresh.
func (b *Bootstrap) Check(ctx context.Context, source, binary string) (Verdict, error) {
	sourceTime, err := b.FS.ModTime(ctx, source)
	if err != nil {
		return Fresh, eris.Wrap(err, "failed to check build program source")
	}

	binaryTime, err := b.FS.ModTime(ctx, binary)
	if err != nil {
		return Fresh, eris.Wrap(err, "failed to check build program binary")
	}

	logging.Log(ctx).Trace().
		Time("source", sourceTime).
		Time("binary", binaryTime).
		Msgf("comparing %s with %s", source, binary)

	if sourceTime.After(binaryTime) {
		return Stale, nil
	}
	return Fresh, nil
}

// CompileCommand returns the argv that rebuilds binary from source
func (b *Bootstrap) CompileCommand(source, binary string) []string {
	compiler := b.Compiler
	if len(compiler) == 0 {
		compiler = DefaultCompiler
	}

	argv := make([]string, 0, len(compiler)+3)
	argv = append(argv, compiler...)
	return append(argv, "-o", binary, source)
}

// Rebuild returns nil right away if binary is fresh. Otherwise it replaces binary with a
// build of source, runs the new binary and calls Exit(0); it doesn't return in that case.
// An error in any step aborts the remaining steps.
func (b *Bootstrap) Rebuild(ctx context.Context, source, binary string) error {
	verdict, err := b.Check(ctx, source, binary)
	if err != nil {
		return err
	}

	if verdict == Fresh {
		logging.Log(ctx).Debug().Msgf("%s is up to date", binary)
		return nil
	}

	logging.Log(ctx).Info().Msgf("Rebuilding %s", filepath.Base(binary))
	backup := fsops.Concat(binary, BackupSuffix)

	err = b.FS.Move(ctx, binary, backup)
	if err != nil {
		return err
	}

	err = b.Runner.Run(ctx, b.CompileCommand(source, binary)...)
	if err != nil {
		return eris.Wrapf(err, "failed to rebuild %s (the previous binary was kept at %s)", binary, backup)
	}

	err = b.FS.Remove(ctx, backup)
	if err != nil {
		return err
	}

	err = b.Runner.Run(ctx, executablePath(binary))
	if err != nil {
		return err
	}

	b.Exit(0)
	return ErrReplaced
}

// executablePath keeps a bare file name from being looked up in PATH
func executablePath(binary string) string {
	if strings.ContainsRune(binary, filepath.Separator) {
		return binary
	}
	return "." + string(filepath.Separator) + binary
}

// SourcePath returns the path of the source file skip frames above the caller of
// SourcePath, i.e. SourcePath(0) is the file calling it.
func SourcePath(skip int) (string, error) {
	_, path, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return "", eris.New("failed to determine the build program's source path")
	}

	return filepath.FromSlash(path), nil
}

// BinaryPath returns the path of the running binary as it was invoked (os.Args[0]).
// A bare name is resolved through PATH the same way the shell found it.
func BinaryPath() (string, error) {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return "", eris.New("program name is missing from the arguments")
	}

	program := os.Args[0]
	if strings.ContainsRune(program, filepath.Separator) {
		return program, nil
	}

	resolved, err := exec.LookPath(program)
	if err != nil {
		return "", eris.Wrapf(err, "failed to locate %s", program)
	}
	return resolved, nil
}
