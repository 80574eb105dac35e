// Package runner runs the external commands of a build: compilers, the freshly built
// build program, tools. Every call blocks until the child terminates. There is no retry
// and no timeout; a hung child hangs the build.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"

	"github.com/ngld/selfbuild/pkg/logging"
)

// ErrEmptyCommand is returned when Run is called without an executable
var ErrEmptyCommand = eris.New("command needs at least the executable")

// Runner runs argv as a child process and waits for it. A nil error means the child
// exited with code 0.
type Runner interface {
	Run(ctx context.Context, argv ...string) error
}

// Exec runs commands as local child processes. The zero value discards the child's output;
// use New to inherit the current process' streams.
type Exec struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Dir is the working directory of the child; empty means the current one.
	Dir string
	// Env replaces the child's environment; nil inherits the current one.
	Env []string
}

// New returns an Exec sharing stdin, stdout and stderr with the current process
func New() *Exec {
	return &Exec{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// WithEnv returns a copy of e whose children see the given variables on top of the
// inherited environment
func (e *Exec) WithEnv(overrides map[string]string) *Exec {
	base := e.Env
	if base == nil {
		base = os.Environ()
	}

	env := make([]string, 0, len(base)+len(overrides))
	for _, item := range base {
		parts := strings.SplitN(item, "=", 2)

		// skip overriden entries to avoid conflicts
		if _, present := overrides[parts[0]]; !present {
			env = append(env, item)
		}
	}

	for k, v := range overrides {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	clone := *e
	clone.Env = env
	return &clone
}

func (e *Exec) getenv(name string) string {
	if e.Env == nil {
		return os.Getenv(name)
	}

	prefix := name + "="
	value := ""
	for _, item := range e.Env {
		if strings.HasPrefix(item, prefix) {
			value = item[len(prefix):]
		}
	}
	return value
}

// Run starts argv[0] with argv as its arguments and waits for it to terminate. argv[0]
// is searched in PATH if it doesn't contain a path separator.
func (e *Exec) Run(ctx context.Context, argv ...string) error {
	if len(argv) == 0 {
		return ErrEmptyCommand
	}

	line := FormatCommand(argv)
	logging.Log(ctx).Info().Bool("command", true).Msg(line)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.Dir = e.Dir
	cmd.Env = e.Env

	err := cmd.Run()
	if err == nil {
		logging.Log(ctx).Trace().Str("command", line).Msg("child process exited with code 0")
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Argv:    append([]string(nil), argv...),
			Outcome: outcomeOf(exitErr.ProcessState),
		}
	}

	return eris.Wrapf(err, "failed to execute child process `%s`", line)
}

// Shell splits line into fields following POSIX shell quoting rules, expands variables
// from the runner's environment and runs the result
func (e *Exec) Shell(ctx context.Context, line string) error {
	argv, err := shell.Fields(line, e.getenv)
	if err != nil {
		return eris.Wrapf(err, "failed to parse command %q", line)
	}

	return e.Run(ctx, argv...)
}

func outcomeOf(state *os.ProcessState) Outcome {
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return KilledBy(status.Signal())
	}

	return Exited(state.ExitCode())
}

var printer = syntax.NewPrinter(syntax.Minify(true))

// FormatCommand renders argv as a shell command line, quoting arguments where necessary
func FormatCommand(argv []string) string {
	call := &syntax.CallExpr{Args: make([]*syntax.Word, len(argv))}

	for idx, arg := range argv {
		var part syntax.WordPart

		switch {
		case strings.Contains(arg, "'"):
			escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`").Replace(arg)
			part = &syntax.DblQuoted{Parts: []syntax.WordPart{&syntax.Lit{Value: escaped}}}
		case arg == "" || strings.ContainsAny(arg, " \t\n$\"\\`*?[]{}()<>|&;#~!"):
			part = &syntax.SglQuoted{Value: arg}
		default:
			part = &syntax.Lit{Value: arg}
		}

		call.Args[idx] = &syntax.Word{Parts: []syntax.WordPart{part}}
	}

	var buf strings.Builder
	if err := printer.Print(&buf, call); err != nil {
		return strings.Join(argv, " ")
	}
	return buf.String()
}
