// Package fsops implements the filesystem probe (exists/isfile/isdir) and mutator
// (recursive mkdir, exclusive file creation, recursive removal and rename) used by build
// scripts.
//
// Every operation treats exactly one class of failure as recoverable: the target is
// already in the requested end state (a directory that already exists, a path that is
// already gone). Those produce a warning and the call succeeds. Everything else is
// returned as an error and the caller is expected to stop.
package fsops

import (
	"context"
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/ngld/selfbuild/pkg/logging"
)

// Filesystem is the set of primitive calls the operations are built on. Errors must
// behave like the ones returned by package os (i.e. match fs.ErrNotExist and friends
// through errors.Is).
type Filesystem interface {
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	Mkdir(name string, perm fs.FileMode) error
	// CreateExclusive creates an empty regular file and fails if name already exists.
	CreateExclusive(name string, perm fs.FileMode) error
	// ReadDir lists the raw entry names of a directory.
	ReadDir(name string) ([]string, error)
	Unlink(name string) error
	Rmdir(name string) error
	Rename(oldpath, newpath string) error
}

// Ops bundles the probe and mutator operations on top of a Filesystem
type Ops struct {
	fs Filesystem
}

// New returns Ops working on the given filesystem
func New(fsys Filesystem) *Ops {
	return &Ops{fs: fsys}
}

func log(ctx context.Context) *zerolog.Logger {
	return logging.Log(ctx)
}
