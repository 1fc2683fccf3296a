package disk_test

import (
	"io"
	"testing"

	"github.com/buildbarn/bb-disk-simulator/pkg/disk"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMemoryBackingStore(t *testing.T) {
	backingStore := disk.NewMemoryBackingStore()

	t.Run("ReadEmpty", func(t *testing.T) {
		var p [4]byte
		n, err := backingStore.ReadAt(p[:], 0)
		require.Equal(t, 0, n)
		require.Equal(t, io.EOF, err)
	})

	t.Run("WriteGrows", func(t *testing.T) {
		n, err := backingStore.WriteAt([]byte("Hello"), 10)
		require.NoError(t, err)
		require.Equal(t, 5, n)

		var p [15]byte
		n, err = backingStore.ReadAt(p[:], 0)
		require.NoError(t, err)
		require.Equal(t, 15, n)
		require.Equal(t, "\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00Hello", string(p[:]))
	})

	t.Run("ShortRead", func(t *testing.T) {
		var p [8]byte
		n, err := backingStore.ReadAt(p[:], 12)
		require.Equal(t, 3, n)
		require.Equal(t, io.EOF, err)
		require.Equal(t, "llo", string(p[:n]))
	})

	t.Run("NegativeOffset", func(t *testing.T) {
		_, err := backingStore.ReadAt(make([]byte, 1), -1)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Negative read offset: -1"), err)
		_, err = backingStore.WriteAt(make([]byte, 1), -1)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Negative write offset: -1"), err)
	})

	t.Run("SyncAndClose", func(t *testing.T) {
		require.NoError(t, backingStore.Sync())
		require.NoError(t, backingStore.Close())
	})
}
