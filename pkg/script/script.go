// Package script runs build scripts written in Starlark. The scripts get the same
// primitives a Go build program gets through pkg/mk, but any failing step aborts the
// script with a backtrace instead of terminating the process.
//
// Relative paths are resolved against the working directory, just like in a Go build
// program. Paths starting with // are resolved against the directory containing the
// script.
package script

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"

	"github.com/ngld/selfbuild/pkg/fsops"
	"github.com/ngld/selfbuild/pkg/logging"
	"github.com/ngld/selfbuild/pkg/runner"
)

// EntryPoint is called after the script's global scope was executed, if the script
// defines it
const EntryPoint = "main"

// Options configures a script run
type Options struct {
	File   string
	Args   []string
	Ops    *fsops.Ops
	Runner *runner.Exec
}

type scriptCtx struct {
	ctx          context.Context
	ops          *fsops.Ops
	runner       *runner.Exec
	envOverrides map[string]string
	yamlCache    map[string]interface{}
	filepath     string
	root         string
}

func getCtx(thread *starlark.Thread) *scriptCtx {
	return thread.Local("scriptCtx").(*scriptCtx)
}

func (s *scriptCtx) normalizePath(path string) string {
	if strings.HasPrefix(path, "//") {
		return filepath.Join(s.root, path[2:])
	}
	return path
}

func (s *scriptCtx) cmdRunner() *runner.Exec {
	if len(s.envOverrides) == 0 {
		return s.runner
	}
	return s.runner.WithEnv(s.envOverrides)
}

func (s *scriptCtx) getenv(key string) (string, bool) {
	if value, ok := s.envOverrides[key]; ok {
		return value, true
	}

	return os.LookupEnv(key)
}

func position(thread *starlark.Thread) string {
	pos := thread.CallFrame(1).Pos
	return fmt.Sprintf("%s:%d:%d", filepath.Base(pos.Filename()), pos.Line, pos.Col)
}

func info(thread *starlark.Thread, msg string, args ...interface{}) {
	logging.Log(getCtx(thread).ctx).Info().
		Msgf("%s: %s", position(thread), fmt.Sprintf(msg, args...))
}

func warn(thread *starlark.Thread, msg string, args ...interface{}) {
	logging.Log(getCtx(thread).ctx).Warn().
		Msgf("%s: %s", position(thread), fmt.Sprintf(msg, args...))
}

func builtins(args []string) starlark.StringDict {
	argv := make(starlark.Tuple, len(args))
	for idx, arg := range args {
		argv[idx] = starlark.String(arg)
	}

	return starlark.StringDict{
		"OS":        starlark.String(runtime.GOOS),
		"ARCH":      starlark.String(runtime.GOARCH),
		"ARGS":      argv,
		"path":      starlark.NewBuiltin("path", starPath),
		"join":      starlark.NewBuiltin("join", starJoin),
		"concat":    starlark.NewBuiltin("concat", starConcat),
		"exists":    starlark.NewBuiltin("exists", starExists),
		"isfile":    starlark.NewBuiltin("isfile", starIsfile),
		"isdir":     starlark.NewBuiltin("isdir", starIsdir),
		"mkdir":     starlark.NewBuiltin("mkdir", starMkdir),
		"mkfile":    starlark.NewBuiltin("mkfile", starMkfile),
		"rm":        starlark.NewBuiltin("rm", starRm),
		"mv":        starlark.NewBuiltin("mv", starMv),
		"listdir":   starlark.NewBuiltin("listdir", starListdir),
		"cmd":       starlark.NewBuiltin("cmd", starCmd),
		"info":      starlark.NewBuiltin("info", starInfo),
		"warn":      starlark.NewBuiltin("warn", starWarn),
		"error":     starlark.NewBuiltin("error", starError),
		"getenv":    starlark.NewBuiltin("getenv", getenv),
		"setenv":    starlark.NewBuiltin("setenv", setenv),
		"read_yaml": starlark.NewBuiltin("read_yaml", readYaml),
	}
}

// Run executes the script in opts.File. If the script defines a main function, it's
// called without arguments after the global scope finished.
func Run(ctx context.Context, opts Options) (starlark.StringDict, error) {
	filename, err := filepath.Abs(opts.File)
	if err != nil {
		return nil, err
	}

	if opts.Ops == nil {
		opts.Ops = fsops.New(fsops.OS())
	}
	if opts.Runner == nil {
		opts.Runner = runner.New()
	}

	thread := &starlark.Thread{
		Name: "main",
		Print: func(thread *starlark.Thread, msg string) {
			logging.Log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	threadCtx := scriptCtx{
		ctx:          ctx,
		ops:          opts.Ops,
		runner:       opts.Runner,
		envOverrides: make(map[string]string),
		yamlCache:    make(map[string]interface{}),
		filepath:     filename,
		root:         filepath.Dir(filename),
	}
	thread.SetLocal("scriptCtx", &threadCtx)

	source, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", opts.File)
	}

	logging.Log(ctx).Debug().Msgf("Running %s", opts.File)
	globals, err := starlark.ExecFile(thread, filename, source, builtins(opts.Args))
	if err != nil {
		return nil, evalError(opts.File, err)
	}

	entry, ok := globals[EntryPoint]
	if !ok {
		return globals, nil
	}

	entryFunc, ok := entry.(starlark.Callable)
	if !ok {
		return nil, eris.Errorf("%s declared %s but it's not a function", opts.File, EntryPoint)
	}

	_, err = starlark.Call(thread, entryFunc, starlark.Tuple{}, nil)
	if err != nil {
		return nil, evalError(opts.File, err)
	}

	return globals, nil
}

func evalError(file string, err error) error {
	if evalErr, ok := err.(*starlark.EvalError); ok {
		return eris.Errorf("failed to execute %s:\n%s", file, evalErr.Backtrace())
	}
	return eris.Wrapf(err, "failed to execute %s", file)
}
