package filesystem_test

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/buildbarn/bb-disk-simulator/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestVolume(t *testing.T) {
	ctx := context.Background()
	device, volume := newFormattedVolume(t)

	t.Run("Format", func(t *testing.T) {
		// Only the header and contents of the free map are in
		// use.
		freeSectors, err := volume.FreeSectorCount(ctx)
		require.NoError(t, err)
		require.Equal(t, 1022, freeSectors)

		var out bytes.Buffer
		require.NoError(t, volume.PrintFreeMap(ctx, &out))
		require.Equal(t, "Bitmap set:\n0, 1, \n", out.String())

		freeMapFile, err := filesystem.NewOpenFile(ctx, device, filesystem.FreeMapSector)
		require.NoError(t, err)
		require.Equal(t, 128, freeMapFile.Length())
	})

	t.Run("OpenInvalid", func(t *testing.T) {
		_, err := volume.Open(ctx, filesystem.FreeMapSector)
		testutil.RequireEqualStatus(t, status.Error(codes.PermissionDenied, "Sector 0 contains the header of the free map file"), err)

		_, err = volume.Open(ctx, 17)
		testutil.RequireEqualStatus(t, status.Error(codes.NotFound, "Sector 17 does not contain a file header"), err)

		_, err = volume.Open(ctx, 1024)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Sector 1024 lies outside the range [0, 1024)"), err)

		err = volume.RemoveFile(ctx, 17)
		testutil.RequireEqualStatus(t, status.Error(codes.NotFound, "Sector 17 does not contain a file header"), err)
	})

	t.Run("CreateTooLarge", func(t *testing.T) {
		_, err := volume.CreateFile(ctx, filesystem.MaxFileSizeBytes+1)
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.OutOfRange, "Failed to allocate space for file of 7809 bytes: File size of 7809 bytes exceeds the maximum of 7808 bytes"),
			err)

		_, err = volume.CreateFile(ctx, math.MaxInt64)
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.OutOfRange, "Failed to allocate space for file of 9223372036854775807 bytes: File size of 9223372036854775807 bytes exceeds the maximum of 7808 bytes"),
			err)

		// The header sector should not have been leaked.
		freeSectors, err := volume.FreeSectorCount(ctx)
		require.NoError(t, err)
		require.Equal(t, 1022, freeSectors)
	})

	t.Run("PrintFile", func(t *testing.T) {
		headerSector, err := volume.CreateFile(ctx, 0)
		require.NoError(t, err)
		f, err := volume.Open(ctx, headerSector)
		require.NoError(t, err)
		_, err = f.Write(ctx, []byte("Hello\n"))
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, f.Header().Print(ctx, &out))
		require.Equal(t, "FileHeader contents.  File size: 6.  File blocks:\n3 \nFile contents:\nHello\\a\n", out.String())
	})

	t.Run("ExhaustSpace", func(t *testing.T) {
		// Keep creating files of maximum size until the disk is
		// full. Each file consumes 63 sectors.
		var headerSectors []int
		for {
			headerSector, err := volume.CreateFile(ctx, filesystem.MaxFileSizeBytes)
			if err != nil {
				require.Equal(t, codes.ResourceExhausted, status.Code(err))
				break
			}
			headerSectors = append(headerSectors, headerSector)
		}
		require.Len(t, headerSectors, 16)

		for _, headerSector := range headerSectors {
			require.NoError(t, volume.RemoveFile(ctx, headerSector))
		}
		freeSectors, err := volume.FreeSectorCount(ctx)
		require.NoError(t, err)
		require.Equal(t, 1020, freeSectors)
	})
}
