//go:build unix

package disk_test

import (
	"path/filepath"
	"testing"

	"github.com/buildbarn/bb-disk-simulator/pkg/clock"
	"github.com/buildbarn/bb-disk-simulator/pkg/disk"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestOpenDiskImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "DISK")

	f, err := disk.OpenDiskImage(path)
	require.NoError(t, err)

	t.Run("Initialize", func(t *testing.T) {
		_, err := disk.NewDisk(f, disk.DefaultGeometry, clock.NewVirtualClock(), func() {}, false)
		require.NoError(t, err)
		info, err := f.Stat()
		require.NoError(t, err)
		require.Equal(t, disk.DefaultGeometry.SizeBytes(), info.Size())
	})

	t.Run("Locked", func(t *testing.T) {
		_, err := disk.OpenDiskImage(path)
		require.Equal(t, codes.Unavailable, status.Code(err))
	})

	t.Run("Reopen", func(t *testing.T) {
		require.NoError(t, f.Close())
		f, err := disk.OpenDiskImage(path)
		require.NoError(t, err)
		defer f.Close()
		_, err = disk.NewDisk(f, disk.DefaultGeometry, clock.NewVirtualClock(), func() {}, false)
		require.NoError(t, err)
	})
}
