//go:build windows

package docs

import (
	"os"

	"github.com/hpungsan/scribe/internal/errors"
)

// OpenNoFollow opens path for writing. O_NOFOLLOW is unavailable on Windows;
// Save still rejects an existing symlink target before writing.
func OpenNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// OpenNoFollowRead opens path for reading. A missing file is NOT_FOUND.
func OpenNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, err
	}
	return f, nil
}
