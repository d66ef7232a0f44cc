//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/binder/internal/errors"
)

// openFileNoFollow opens an export temp file for writing. Windows has no
// O_NOFOLLOW, so a symlink at path is refused with an Lstat first.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	if isSymlink(path) {
		return nil, errors.NewInvalidRequest("cannot write export through a symlink")
	}
	return os.OpenFile(path, flag, perm)
}
