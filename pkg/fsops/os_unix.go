//go:build unix

package fsops

import (
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

type osFilesystem struct{}

// OS returns the Filesystem backed by the host's system calls
func OS() Filesystem {
	return osFilesystem{}
}

func (osFilesystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (osFilesystem) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

func (osFilesystem) Mkdir(name string, perm fs.FileMode) error {
	return os.Mkdir(name, perm)
}

func (osFilesystem) CreateExclusive(name string, perm fs.FileMode) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	return f.Close()
}

func (osFilesystem) ReadDir(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		return nil, err
	}

	return names, nil
}

func (osFilesystem) Unlink(name string) error {
	if err := unix.Unlink(name); err != nil {
		return &os.PathError{Op: "unlink", Path: name, Err: err}
	}
	return nil
}

func (osFilesystem) Rmdir(name string) error {
	if err := unix.Rmdir(name); err != nil {
		return &os.PathError{Op: "rmdir", Path: name, Err: err}
	}
	return nil
}

func (osFilesystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}
