package filesystem

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	allBits = ^uint64(0)
)

// BitMap keeps track of which sectors of a disk are in use. Its
// contents are persisted as an ordinary file, where bit i is stored
// in byte i/8 at position i%8.
//
// BitMap is not thread-safe. All mutations of the free map of a disk
// need to be serialized by the caller.
type BitMap struct {
	numBits int
	words   []uint64 // One bits indicate sectors that are allocated.
}

// NewBitMap creates a BitMap of a given number of bits, all of which
// are clear.
func NewBitMap(numBits int) *BitMap {
	bm := &BitMap{
		numBits: numBits,
		words:   make([]uint64, (numBits+63)/64),
	}
	bm.markPadding()
	return bm
}

// markPadding sets the bits in the final word that lie beyond the
// end of the bitmap, so that Find() never hands them out.
func (bm *BitMap) markPadding() {
	if r := bm.numBits % 64; r != 0 {
		bm.words[len(bm.words)-1] |= allBits << r
	}
}

func (bm *BitMap) checkBit(which int) {
	if which < 0 || which >= bm.numBits {
		panic(fmt.Sprintf("Attempted to access bit %d, which lies outside the range [0, %d)", which, bm.numBits))
	}
}

// SizeBytes returns the size of the persisted image of the bitmap.
func (bm *BitMap) SizeBytes() int {
	return (bm.numBits + 7) / 8
}

// Mark a sector as being in use.
func (bm *BitMap) Mark(which int) {
	bm.checkBit(which)
	bm.words[which/64] |= 1 << (which % 64)
}

// Clear marks a sector as being free.
func (bm *BitMap) Clear(which int) {
	bm.checkBit(which)
	bm.words[which/64] &^= 1 << (which % 64)
}

// Test returns whether a sector is in use.
func (bm *BitMap) Test(which int) bool {
	bm.checkBit(which)
	return bm.words[which/64]&(1<<(which%64)) != 0
}

// Find the lowest numbered free sector and mark it as being in use.
func (bm *BitMap) Find() (int, error) {
	for i, w := range bm.words {
		if w != allBits {
			b := bits.TrailingZeros64(^w)
			bm.words[i] |= 1 << b
			return i*64 + b, nil
		}
	}
	return 0, status.Error(codes.ResourceExhausted, "No free sectors available")
}

// NumClear returns the number of free sectors.
func (bm *BitMap) NumClear() int {
	count := 0
	for _, w := range bm.words {
		count += bits.OnesCount64(^w)
	}
	return count
}

// FetchFrom loads the contents of the bitmap from a file.
func (bm *BitMap) FetchFrom(ctx context.Context, file *OpenFile) error {
	data := make([]byte, len(bm.words)*8)
	n, err := file.ReadAt(ctx, data[:bm.SizeBytes()], 0)
	if err != nil {
		return util.StatusWrap(err, "Failed to read free map")
	}
	if n != bm.SizeBytes() {
		return status.Errorf(codes.DataLoss, "Free map file is %d bytes in size, while %d bytes were expected", n, bm.SizeBytes())
	}
	for i := range bm.words {
		bm.words[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	bm.markPadding()
	return nil
}

// WriteBack stores the contents of the bitmap in a file.
func (bm *BitMap) WriteBack(ctx context.Context, file *OpenFile) error {
	data := make([]byte, len(bm.words)*8)
	for i, w := range bm.words {
		binary.LittleEndian.PutUint64(data[i*8:], w)
	}
	if _, err := file.WriteAt(ctx, data[:bm.SizeBytes()], 0); err != nil {
		return util.StatusWrap(err, "Failed to write free map")
	}
	return nil
}

// Print the numbers of all sectors that are in use.
func (bm *BitMap) Print(w io.Writer) {
	fmt.Fprint(w, "Bitmap set:\n")
	for i := 0; i < bm.numBits; i++ {
		if bm.Test(i) {
			fmt.Fprintf(w, "%d, ", i)
		}
	}
	fmt.Fprint(w, "\n")
}
