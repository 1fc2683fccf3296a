package filesystem_test

import (
	"bytes"
	"context"
	"log"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/buildbarn/bb-disk-simulator/pkg/disk"
	"github.com/buildbarn/bb-disk-simulator/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newFormattedVolume(t *testing.T) (*disk.SynchronousDisk, *filesystem.Volume) {
	device := newTestDisk(t)
	volume := filesystem.NewVolume(device, false)
	require.NoError(t, volume.Format(context.Background()))
	return device, volume
}

func alphabet(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return data
}

func TestOpenFilePartialSectors(t *testing.T) {
	ctx := context.Background()
	device, volume := newFormattedVolume(t)

	// Sector 2 holds the header. As the file needs 30 sectors,
	// sectors 3 to 31 are referenced directly, while sector 32 is
	// the indirect block referencing sector 33.
	headerSector, err := volume.CreateFile(ctx, 3800)
	require.NoError(t, err)
	require.Equal(t, 2, headerSector)
	f, err := volume.Open(ctx, headerSector)
	require.NoError(t, err)
	require.Equal(t, 3800, f.Length())

	contents := alphabet(3800)
	n, err := f.WriteAt(ctx, contents, 0)
	require.NoError(t, err)
	require.Equal(t, 3800, n)

	t.Run("ByteToSector", func(t *testing.T) {
		for offset, expected := range map[int]int{0: 3, 127: 3, 128: 4, 28*128 + 5: 31, 29 * 128: 33, 3799: 33} {
			sector, err := f.Header().ByteToSector(ctx, offset)
			require.NoError(t, err)
			require.Equal(t, expected, sector, "offset %d", offset)
		}
	})

	t.Run("ReadModifyWrite", func(t *testing.T) {
		// Overwriting part of a sector should leave the bytes
		// around it intact.
		n, err := f.WriteAt(ctx, bytes.Repeat([]byte("X"), 50), 100)
		require.NoError(t, err)
		require.Equal(t, 50, n)
		copy(contents[100:], bytes.Repeat([]byte("X"), 50))

		buf := make([]byte, 130)
		n, err = f.ReadAt(ctx, buf, 90)
		require.NoError(t, err)
		require.Equal(t, 130, n)
		require.Equal(t, contents[90:220], buf)

		sector := make([]byte, disk.SectorSizeBytes)
		require.NoError(t, device.ReadSector(ctx, 3, sector))
		require.Equal(t, contents[:128], sector)
		require.NoError(t, device.ReadSector(ctx, 4, sector))
		require.Equal(t, contents[128:256], sector)
	})

	t.Run("ReadPastEnd", func(t *testing.T) {
		buf := make([]byte, 100)
		n, err := f.ReadAt(ctx, buf, 3750)
		require.NoError(t, err)
		require.Equal(t, 50, n)
		require.Equal(t, contents[3750:], buf[:50])

		n, err = f.ReadAt(ctx, buf, 3800)
		require.NoError(t, err)
		require.Equal(t, 0, n)

		n, err = f.ReadAt(ctx, nil, 0)
		require.NoError(t, err)
		require.Equal(t, 0, n)

		_, err = f.ReadAt(ctx, buf, -1)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Negative read offset: -1"), err)
	})

	t.Run("Cursor", func(t *testing.T) {
		f.Seek(3790)
		buf := make([]byte, 8)
		n, err := f.Read(ctx, buf)
		require.NoError(t, err)
		require.Equal(t, 8, n)
		require.Equal(t, contents[3790:3798], buf)

		n, err = f.Read(ctx, buf)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.Equal(t, contents[3798:], buf[:2])

		n, err = f.Read(ctx, buf)
		require.NoError(t, err)
		require.Equal(t, 0, n)
	})

	t.Run("FreeMapCannotGrow", func(t *testing.T) {
		freeMapFile, err := filesystem.NewOpenFile(ctx, device, filesystem.FreeMapSector)
		require.NoError(t, err)
		_, err = freeMapFile.WriteAt(ctx, []byte("Hello"), 128)
		testutil.RequireEqualStatus(t, status.Error(codes.FailedPrecondition, "The free map file cannot be extended"), err)
	})
}

func TestOpenFileGrowth(t *testing.T) {
	ctx := context.Background()
	_, volume := newFormattedVolume(t)

	headerSector, err := volume.CreateFile(ctx, 0)
	require.NoError(t, err)
	freeSectors, err := volume.FreeSectorCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1021, freeSectors)

	f, err := volume.Open(ctx, headerSector)
	require.NoError(t, err)
	contents := alphabet(29*128 + 1)

	t.Run("FillDirectSlots", func(t *testing.T) {
		n, err := f.Write(ctx, contents[:29*128])
		require.NoError(t, err)
		require.Equal(t, 29*128, n)
		require.Equal(t, 29*128, f.Length())
		require.Equal(t, 29, f.Header().SectorCount())

		freeSectors, err := volume.FreeSectorCount(ctx)
		require.NoError(t, err)
		require.Equal(t, 1021-29, freeSectors)
	})

	t.Run("CrossIntoIndirect", func(t *testing.T) {
		// Writing a single byte past the direct slots requires
		// both a data sector and an indirect block.
		n, err := f.Write(ctx, contents[29*128:])
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, 29*128+1, f.Length())
		require.Equal(t, 30, f.Header().SectorCount())

		freeSectors, err := volume.FreeSectorCount(ctx)
		require.NoError(t, err)
		require.Equal(t, 1021-31, freeSectors)
	})

	t.Run("WriteWithinAllocatedSpace", func(t *testing.T) {
		// Growing the file within its last sector should not
		// allocate any sectors.
		n, err := f.WriteAt(ctx, []byte("Hello"), 29*128+1)
		require.NoError(t, err)
		require.Equal(t, 5, n)
		contents = append(contents, "Hello"...)
		require.Equal(t, 30, f.Header().SectorCount())
	})

	t.Run("TooLarge", func(t *testing.T) {
		_, err := f.WriteAt(ctx, []byte("X"), filesystem.MaxFileSizeBytes)
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.OutOfRange, "Writing 1 bytes at offset 7808 would exceed the maximum file size of 7808 bytes"),
			err)
		require.Equal(t, len(contents), f.Length())

		// The end of the write would not be representable.
		f.Seek(math.MaxInt64 - 3)
		n, err := f.Write(ctx, make([]byte, 10))
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.OutOfRange, "Writing 10 bytes at offset 9223372036854775804 would exceed the maximum file size of 7808 bytes"),
			err)
		require.Equal(t, 0, n)
		require.Equal(t, len(contents), f.Length())
		require.Equal(t, 30, f.Header().SectorCount())
	})

	t.Run("Reopen", func(t *testing.T) {
		// Changes to the header only become visible after
		// writing it back.
		require.NoError(t, f.WriteBack(ctx))
		f.Close()

		f, err := volume.Open(ctx, headerSector)
		require.NoError(t, err)
		require.Equal(t, len(contents), f.Length())
		buf := make([]byte, 4000)
		n, err := f.ReadAt(ctx, buf, 0)
		require.NoError(t, err)
		require.Equal(t, contents, buf[:n])
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, volume.RemoveFile(ctx, headerSector))
		freeSectors, err := volume.FreeSectorCount(ctx)
		require.NoError(t, err)
		require.Equal(t, 1022, freeSectors)
	})
}

func TestOpenFileDebugLogging(t *testing.T) {
	ctx := context.Background()
	device := newTestDisk(t)
	volume := filesystem.NewVolume(device, true)
	require.NoError(t, volume.Format(ctx))
	headerSector, err := volume.CreateFile(ctx, 0)
	require.NoError(t, err)
	f, err := volume.Open(ctx, headerSector)
	require.NoError(t, err)

	var out strings.Builder
	log.SetOutput(&out)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	// Growing the file loads and stores the free map. Accesses to
	// the free map file should be logged as well.
	_, err = f.Write(ctx, []byte("Hello"))
	require.NoError(t, err)
	require.Contains(t, out.String(), "Reading 128 bytes at 0, from file of length 128")
	require.Contains(t, out.String(), "Writing 128 bytes at 0, from file of length 128")
	require.Contains(t, out.String(), "Writing 5 bytes at 0, from file of length 5")
}
