//go:build unix

package disk

import (
	"os"

	"github.com/buildbarn/bb-storage/pkg/util"

	"golang.org/x/sys/unix"

	"google.golang.org/grpc/codes"
)

// OpenDiskImage opens a file on the host that acts as the backing
// store of a simulated disk, creating it if it does not exist. The file
// is locked exclusively, so that multiple simulators cannot use the
// same disk image at once.
func OpenDiskImage(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.NotFound, "Failed to open disk image %#v", path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, util.StatusWrapfWithCode(err, codes.Unavailable, "Failed to lock disk image %#v", path)
	}
	return f, nil
}
