package disk

import (
	"io"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/blockdevice"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type memoryBackingStore struct {
	lock sync.Mutex
	data []byte
}

// NewMemoryBackingStore creates a BlockDevice that keeps its contents
// in memory. It grows as data is written past its end. This is useful
// for running the simulator without touching the host file system.
func NewMemoryBackingStore() blockdevice.BlockDevice {
	return &memoryBackingStore{}
}

func (bs *memoryBackingStore) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative read offset: %d", off)
	}

	bs.lock.Lock()
	defer bs.lock.Unlock()

	if off >= int64(len(bs.data)) {
		return 0, io.EOF
	}
	n := copy(p, bs.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (bs *memoryBackingStore) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative write offset: %d", off)
	}

	bs.lock.Lock()
	defer bs.lock.Unlock()

	if end := off + int64(len(p)); end > int64(len(bs.data)) {
		bs.data = append(bs.data, make([]byte, end-int64(len(bs.data)))...)
	}
	return copy(bs.data[off:], p), nil
}

func (bs *memoryBackingStore) Sync() error {
	return nil
}

func (bs *memoryBackingStore) Close() error {
	return nil
}
