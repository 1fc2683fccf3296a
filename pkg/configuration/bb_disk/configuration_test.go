package configuration_test

import (
	"os"
	"path/filepath"
	"testing"

	configuration "github.com/buildbarn/bb-disk-simulator/pkg/configuration/bb_disk"
	"github.com/buildbarn/bb-disk-simulator/pkg/disk"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func writeConfiguration(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "bb_disk.jsonnet")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o666))
	return path
}

func TestGetDiskConfiguration(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		diskConfiguration, err := configuration.GetDiskConfiguration(writeConfiguration(t, "{}"))
		require.NoError(t, err)
		require.Equal(t, "DISK", diskConfiguration.DiskImagePath)
		require.Equal(t, disk.DefaultGeometry, diskConfiguration.Geometry())
		require.False(t, diskConfiguration.DebugDisk)
	})

	t.Run("Overrides", func(t *testing.T) {
		diskConfiguration, err := configuration.GetDiskConfiguration(writeConfiguration(t, `
local tracks = 16;
{
  diskImagePath: '/tmp/disk.img',
  sectorsPerTrack: 64,
  numTracks: tracks * 2,
  seekTimeTicks: 250,
  debugFileSystem: true,
}`))
		require.NoError(t, err)
		require.Equal(t, "/tmp/disk.img", diskConfiguration.DiskImagePath)
		require.Equal(t, disk.Geometry{
			SectorsPerTrack: 64,
			NumTracks:       32,
			SeekTime:        250,
			RotationTime:    500,
		}, diskConfiguration.Geometry())
		require.True(t, diskConfiguration.DebugFileSystem)
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := configuration.GetDiskConfiguration(writeConfiguration(t, "{ sectorSize: 512 }"))
		require.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("NonexistentFile", func(t *testing.T) {
		_, err := configuration.GetDiskConfiguration(filepath.Join(t.TempDir(), "nonexistent.jsonnet"))
		require.Error(t, err)
	})
}
