//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/binder/internal/errors"
)

// openFileNoFollow opens an export temp file for writing with O_NOFOLLOW, so a
// symlink planted at the final component fails with ELOOP. Parent directories
// are covered by ResolveExportPath.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write export through a symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
