package fsops

import (
	"context"
	"io/fs"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
)

// isAbsent reports whether err means that the path (or one of its parents) doesn't exist
func isAbsent(err error) bool {
	return eris.Is(err, fs.ErrNotExist) || eris.Is(err, syscall.ENOTDIR)
}

func (o *Ops) stat(ctx context.Context, op, path string) (fs.FileInfo, error) {
	log(ctx).Debug().Msgf("Calling %s(%s)", op, path)

	info, err := o.fs.Stat(path)
	if err != nil {
		if isAbsent(err) {
			return nil, nil
		}

		return nil, eris.Wrapf(err, "could not stat `%s`", path)
	}

	log(ctx).Trace().
		Str("path", path).
		Str("mode", info.Mode().String()).
		Msgf("%s(%s) found an entry", op, path)
	return info, nil
}

// Exists reports whether path refers to an existing entry. A missing path is not an error.
func (o *Ops) Exists(ctx context.Context, path string) (bool, error) {
	info, err := o.stat(ctx, "exists", path)
	return info != nil, err
}

// IsFile reports whether path is a regular file
func (o *Ops) IsFile(ctx context.Context, path string) (bool, error) {
	info, err := o.stat(ctx, "isfile", path)
	if info == nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// IsDir reports whether path is a directory
func (o *Ops) IsDir(ctx context.Context, path string) (bool, error) {
	info, err := o.stat(ctx, "isdir", path)
	if info == nil {
		return false, err
	}
	return info.IsDir(), nil
}

// ModTime returns the modification time of path. Unlike the other probes a missing path
// is an error here.
func (o *Ops) ModTime(ctx context.Context, path string) (time.Time, error) {
	info, err := o.fs.Stat(path)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "could not stat `%s`", path)
	}

	return info.ModTime(), nil
}
