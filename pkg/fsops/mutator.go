package fsops

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
)

// MakeDirectories creates every directory along the chain of segments, i.e.
// MakeDirectories(ctx, "a", "b") creates "a" and "a/b". Directories that already exist
// are skipped with a warning.
func (o *Ops) MakeDirectories(ctx context.Context, segments ...string) error {
	if len(segments) == 0 {
		return eris.New("mkdir: no path given")
	}

	log(ctx).Debug().Msgf("Calling mkdir(%s)", Path(segments...))
	return o.makeChain(ctx, segments)
}

func (o *Ops) makeChain(ctx context.Context, segments []string) error {
	for idx := range segments {
		current := Path(segments[:idx+1]...)

		err := o.fs.Mkdir(current, 0777)
		if err == nil {
			log(ctx).Trace().Str("path", current).Msg("created directory")
			continue
		}

		if eris.Is(err, fs.ErrExist) {
			log(ctx).Warn().Str("path", current).Msgf("Directory `%s` already exists", current)
			continue
		}

		return eris.Wrapf(err, "failed to create directory at path `%s`", current)
	}

	return nil
}

// MakeFile creates an empty file. Every segment except the last one is treated as a
// directory and created like MakeDirectories does. An existing file is left untouched
// and only produces a warning.
func (o *Ops) MakeFile(ctx context.Context, segments ...string) error {
	if len(segments) == 0 {
		return eris.New("mkfile: no path given")
	}

	path := Path(segments...)
	log(ctx).Debug().Msgf("Calling mkfile(%s)", path)

	if len(segments) > 1 {
		if err := o.makeChain(ctx, segments[:len(segments)-1]); err != nil {
			return err
		}
	}

	err := o.fs.CreateExclusive(path, 0700)
	if err != nil {
		if eris.Is(err, fs.ErrExist) {
			log(ctx).Warn().Str("path", path).Msgf("Path `%s` already exists", path)
			return nil
		}

		return eris.Wrapf(err, "failed to create file at path `%s`", path)
	}

	return nil
}

// Remove deletes path. Directories are removed recursively, children before their
// parent. Symlinks are removed, not followed. A path that doesn't exist only produces a
// warning.
func (o *Ops) Remove(ctx context.Context, path string) error {
	log(ctx).Debug().Msgf("Calling rm(%s)", path)

	// a trailing slash would make lstat resolve a symlink to its target
	return o.remove(ctx, filepath.Clean(path))
}

func (o *Ops) remove(ctx context.Context, path string) error {
	info, err := o.fs.Lstat(path)
	if err != nil {
		if isAbsent(err) {
			log(ctx).Warn().Str("path", path).Msgf("Path `%s` does not exist", path)
			return nil
		}

		return eris.Wrapf(err, "could not stat `%s`", path)
	}

	if !info.IsDir() {
		err = o.fs.Unlink(path)
		if err != nil {
			if eris.Is(err, fs.ErrNotExist) {
				log(ctx).Warn().Str("path", path).Msgf("File `%s` does not exist", path)
				return nil
			}

			return eris.Wrapf(err, "failed to remove file at path `%s`", path)
		}

		log(ctx).Trace().Str("path", path).Msg("removed file")
		return nil
	}

	names, err := o.fs.ReadDir(path)
	if err != nil {
		if eris.Is(err, fs.ErrNotExist) {
			log(ctx).Warn().Str("path", path).Msgf("Directory `%s` does not exist", path)
			return nil
		}

		return eris.Wrapf(err, "failed to list directory `%s`", path)
	}

	for _, name := range names {
		if isDots(name) {
			continue
		}

		if err := o.remove(ctx, Path(path, name)); err != nil {
			return err
		}
	}

	err = o.fs.Rmdir(path)
	if err != nil {
		if eris.Is(err, fs.ErrNotExist) {
			log(ctx).Warn().Str("path", path).Msgf("Directory `%s` does not exist", path)
			return nil
		}

		return eris.Wrapf(err, "failed to remove directory at path `%s`", path)
	}

	log(ctx).Trace().Str("path", path).Msg("removed directory")
	return nil
}

// Move renames source to destination
func (o *Ops) Move(ctx context.Context, source, destination string) error {
	log(ctx).Debug().Msgf("Calling mv(%s, %s)", source, destination)

	err := o.fs.Rename(source, destination)
	if err != nil {
		return eris.Wrapf(err, "failed to move path from `%s` to `%s`", source, destination)
	}

	return nil
}

// ListDir returns the sorted entry names of a directory without the "." and ".." entries
func (o *Ops) ListDir(ctx context.Context, path string) ([]string, error) {
	log(ctx).Debug().Msgf("Calling listdir(%s)", path)

	names, err := o.fs.ReadDir(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to list directory `%s`", path)
	}

	result := make([]string, 0, len(names))
	for _, name := range names {
		if !isDots(name) {
			result = append(result, name)
		}
	}

	sort.Strings(result)
	return result, nil
}
