package script

import (
	"errors"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"

	"github.com/ngld/selfbuild/pkg/fsops"
	"github.com/ngld/selfbuild/pkg/runner"
)

func stringArgs(fn *starlark.Builtin, args starlark.Tuple) ([]string, error) {
	result := make([]string, len(args))
	for idx, arg := range args {
		value, ok := starlark.AsString(arg)
		if !ok {
			return nil, eris.Errorf("only accepts string arguments but argument %d was a %s", idx+1, arg.Type())
		}
		result[idx] = value
	}
	return result, nil
}

func segmentArgs(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) ([]string, error) {
	if len(kwargs) > 0 {
		return nil, eris.Errorf("unexpected keyword argument %s", kwargs[0][0])
	}
	if len(args) < 1 {
		return nil, eris.New("expects at least one argument")
	}

	segments, err := stringArgs(fn, args)
	if err != nil {
		return nil, err
	}

	segments[0] = getCtx(thread).normalizePath(segments[0])
	return segments, nil
}

func starPath(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	segments, err := segmentArgs(thread, fn, args, kwargs)
	if err != nil {
		return nil, err
	}

	return starlark.String(fsops.Path(segments...)), nil
}

func starJoin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) < 1 {
		return nil, eris.New("expects a separator")
	}

	parts, err := stringArgs(fn, args)
	if err != nil {
		return nil, err
	}

	return starlark.String(fsops.Join(parts[0], parts[1:]...)), nil
}

func starConcat(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	parts, err := stringArgs(fn, args)
	if err != nil {
		return nil, err
	}

	return starlark.String(fsops.Concat(parts...)), nil
}

type probe func(ops *fsops.Ops, thread *starlark.Thread, path string) (bool, error)

func probeBuiltin(check probe) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path string

		err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &path)
		if err != nil {
			return nil, err
		}

		ctx := getCtx(thread)
		result, err := check(ctx.ops, thread, ctx.normalizePath(path))
		if err != nil {
			return nil, err
		}

		return starlark.Bool(result), nil
	}
}

var (
	starExists = probeBuiltin(func(ops *fsops.Ops, thread *starlark.Thread, path string) (bool, error) {
		return ops.Exists(getCtx(thread).ctx, path)
	})
	starIsfile = probeBuiltin(func(ops *fsops.Ops, thread *starlark.Thread, path string) (bool, error) {
		return ops.IsFile(getCtx(thread).ctx, path)
	})
	starIsdir = probeBuiltin(func(ops *fsops.Ops, thread *starlark.Thread, path string) (bool, error) {
		return ops.IsDir(getCtx(thread).ctx, path)
	})
)

func starMkdir(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	segments, err := segmentArgs(thread, fn, args, kwargs)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	return starlark.None, ctx.ops.MakeDirectories(ctx.ctx, segments...)
}

func starMkfile(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	segments, err := segmentArgs(thread, fn, args, kwargs)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	return starlark.None, ctx.ops.MakeFile(ctx.ctx, segments...)
}

func starRm(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	paths, err := stringArgs(fn, args)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	for _, path := range paths {
		err = ctx.ops.Remove(ctx.ctx, ctx.normalizePath(path))
		if err != nil {
			return nil, err
		}
	}

	return starlark.None, nil
}

func starMv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var source, destination string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &source, &destination)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	return starlark.None, ctx.ops.Move(ctx.ctx, ctx.normalizePath(source), ctx.normalizePath(destination))
}

func starListdir(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &path)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	names, err := ctx.ops.ListDir(ctx.ctx, ctx.normalizePath(path))
	if err != nil {
		return nil, err
	}

	items := make([]starlark.Value, len(names))
	for idx, name := range names {
		items[idx] = starlark.String(name)
	}
	return starlark.NewList(items), nil
}

// cmd("cc -o app main.c"), cmd("cc", "-o", "app", "main.c") and cmd(["cc", ...]) are
// equivalent. With check=False a non-zero exit returns False instead of aborting.
func starCmd(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	check := true
	for _, kv := range kwargs {
		key, _ := starlark.AsString(kv[0])
		if key != "check" {
			return nil, eris.Errorf("unexpected keyword argument %s", key)
		}
		check = bool(kv[1].Truth())
	}

	if len(args) == 0 {
		return nil, eris.New("expects a command")
	}

	if len(args) == 1 {
		if list, ok := args[0].(starlark.Indexable); ok {
			if _, isString := args[0].(starlark.String); !isString {
				parts := make(starlark.Tuple, list.Len())
				for idx := range parts {
					parts[idx] = list.Index(idx)
				}
				args = parts
			}
		}
	}

	if len(args) == 0 {
		return nil, runner.ErrEmptyCommand
	}

	ctx := getCtx(thread)
	r := ctx.cmdRunner()

	var err error
	if line, ok := args[0].(starlark.String); ok && len(args) == 1 {
		err = r.Shell(ctx.ctx, line.GoString())
	} else {
		var argv []string
		argv, err = stringArgs(fn, args)
		if err != nil {
			return nil, err
		}
		err = r.Run(ctx.ctx, argv...)
	}

	if err != nil {
		var exitErr *runner.ExitError
		if !check && errors.As(err, &exitErr) {
			return starlark.False, nil
		}
		return nil, err
	}

	return starlark.True, nil
}

func starInfo(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	info(thread, message)
	return starlark.None, nil
}

func starWarn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	warn(thread, message)
	return starlark.None, nil
}

func starError(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	return nil, eris.New(message)
}

func getenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var defaultValue starlark.Value = starlark.String("")

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &key, &defaultValue)
	if err != nil {
		return nil, err
	}

	value, ok := getCtx(thread).getenv(key)
	if !ok {
		return defaultValue, nil
	}

	return starlark.String(value), nil
}

func setenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var value string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &key, &value)
	if err != nil {
		return nil, err
	}

	getCtx(thread).envOverrides[key] = value
	return starlark.None, nil
}
