//go:build !unix

package disk

import (
	"os"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
)

// OpenDiskImage opens a file on the host that acts as the backing
// store of a simulated disk, creating it if it does not exist. On this
// platform no locking is performed.
func OpenDiskImage(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.NotFound, "Failed to open disk image %#v", path)
	}
	return f, nil
}
