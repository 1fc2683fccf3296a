package filesystem_test

import (
	"bytes"
	"testing"

	"github.com/buildbarn/bb-disk-simulator/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestBitMapExample(t *testing.T) {
	bitMap := filesystem.NewBitMap(100)
	require.Equal(t, 13, bitMap.SizeBytes())
	require.Equal(t, 100, bitMap.NumClear())

	// Sectors are handed out in increasing order.
	bitMap.Mark(1)
	for _, expected := range []int{0, 2, 3} {
		sector, err := bitMap.Find()
		require.NoError(t, err)
		require.Equal(t, expected, sector)
	}
	require.Equal(t, 96, bitMap.NumClear())

	// Freed sectors are reused first.
	bitMap.Clear(2)
	require.False(t, bitMap.Test(2))
	sector, err := bitMap.Find()
	require.NoError(t, err)
	require.Equal(t, 2, sector)
	require.True(t, bitMap.Test(2))

	// Allocate all remaining sectors. Bits beyond the end of the
	// bitmap should never be returned.
	for i := 4; i < 100; i++ {
		sector, err := bitMap.Find()
		require.NoError(t, err)
		require.Equal(t, i, sector)
	}
	require.Equal(t, 0, bitMap.NumClear())
	_, err = bitMap.Find()
	testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "No free sectors available"), err)

	require.PanicsWithValue(t, "Attempted to access bit 100, which lies outside the range [0, 100)", func() {
		bitMap.Test(100)
	})
}

func TestBitMapPrint(t *testing.T) {
	bitMap := filesystem.NewBitMap(70)
	bitMap.Mark(0)
	bitMap.Mark(5)
	bitMap.Mark(69)

	var out bytes.Buffer
	bitMap.Print(&out)
	require.Equal(t, "Bitmap set:\n0, 5, 69, \n", out.String())
}
