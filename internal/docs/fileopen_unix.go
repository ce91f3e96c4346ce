//go:build !windows

package docs

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/scribe/internal/errors"
)

// OpenNoFollow opens path with O_NOFOLLOW so the final component cannot be a symlink.
// Callers keep files directly in a vetted directory so no intermediate component can be swapped.
func OpenNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

// OpenNoFollowRead is the read-only counterpart of OpenNoFollow. A missing file is NOT_FOUND.
func OpenNoFollowRead(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) {
			return nil, errors.NewNotFound(path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
