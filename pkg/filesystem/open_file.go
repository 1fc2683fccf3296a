package filesystem

import (
	"context"
	"log"

	"github.com/buildbarn/bb-disk-simulator/pkg/disk"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FreeMapSector is the sector containing the file header of the file
// that stores the free map. It is reserved, so that the free map can
// be located without consulting any other data structures.
const FreeMapSector = 0

// OpenFile provides access to the contents of a file. It translates
// reads and writes of arbitrary byte ranges to transfers of whole
// sectors. Writes past the end of the file cause it to be extended.
//
// Changes to the file header are only kept in memory. Callers need to
// call WriteBack() to persist them.
//
// OpenFile is not thread-safe.
type OpenFile struct {
	device       disk.SectorDevice
	header       *FileHeader
	headerSector int
	position     int
	debug        bool
}

// NewOpenFile opens a file by loading its header from a sector.
func NewOpenFile(ctx context.Context, device disk.SectorDevice, headerSector int) (*OpenFile, error) {
	header := NewFileHeader(device)
	if err := header.FetchFrom(ctx, headerSector); err != nil {
		return nil, err
	}
	return &OpenFile{
		device:       device,
		header:       header,
		headerSector: headerSector,
	}, nil
}

// Header returns the in-memory copy of the file header.
func (f *OpenFile) Header() *FileHeader {
	return f.header
}

// HeaderSector returns the sector in which the file header is stored.
func (f *OpenFile) HeaderSector() int {
	return f.headerSector
}

// Seek changes the position at which the next call to Read() or
// Write() takes place.
func (f *OpenFile) Seek(position int) {
	f.position = position
}

// Read data from the current position, advancing it.
func (f *OpenFile) Read(ctx context.Context, p []byte) (int, error) {
	n, err := f.ReadAt(ctx, p, f.position)
	f.position += n
	return n, err
}

// Write data at the current position, advancing it.
func (f *OpenFile) Write(ctx context.Context, p []byte) (int, error) {
	n, err := f.WriteAt(ctx, p, f.position)
	f.position += n
	return n, err
}

// getSectors returns the sector numbers of count consecutive sectors
// of the file, starting at a given logical sector.
func (f *OpenFile) getSectors(ctx context.Context, first, count int) ([]int, error) {
	sectors := make([]int, 0, count)
	for i := first; i < first+count; i++ {
		sector, err := f.header.ByteToSector(ctx, i*disk.SectorSizeBytes)
		if err != nil {
			return nil, err
		}
		sectors = append(sectors, sector)
	}
	return sectors, nil
}

// ReadAt reads data at a given offset. Reads are truncated at the end
// of the file.
func (f *OpenFile) ReadAt(ctx context.Context, p []byte, position int) (int, error) {
	if position < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative read offset: %d", position)
	}
	length := f.header.FileLength()
	n := len(p)
	if n == 0 || position >= length {
		return 0, nil
	}
	if position+n > length {
		n = length - position
	}
	if f.debug {
		log.Printf("Reading %d bytes at %d, from file of length %d", n, position, length)
	}

	firstSector := position / disk.SectorSizeBytes
	lastSector := (position + n - 1) / disk.SectorSizeBytes
	sectors, err := f.getSectors(ctx, firstSector, lastSector-firstSector+1)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, len(sectors)*disk.SectorSizeBytes)
	for i, sector := range sectors {
		if err := f.device.ReadSector(ctx, sector, buf[i*disk.SectorSizeBytes:(i+1)*disk.SectorSizeBytes]); err != nil {
			return 0, util.StatusWrapf(err, "Failed to read data sector %d", sector)
		}
	}
	return copy(p[:n], buf[position-firstSector*disk.SectorSizeBytes:]), nil
}

// WriteAt writes data at a given offset. If the write ends beyond the
// end of the file, the file is extended.
func (f *OpenFile) WriteAt(ctx context.Context, p []byte, position int) (int, error) {
	if position < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative write offset: %d", position)
	}
	n := len(p)
	if n == 0 {
		return 0, nil
	}
	if position > MaxFileSizeBytes-n {
		return 0, status.Errorf(codes.OutOfRange, "Writing %d bytes at offset %d would exceed the maximum file size of %d bytes", n, position, MaxFileSizeBytes)
	}
	end := position + n
	if length := f.header.FileLength(); end > length {
		if allocated := f.header.SectorCount() * disk.SectorSizeBytes; end > allocated {
			if err := f.AllocateSpace(ctx, end-allocated); err != nil {
				return 0, err
			}
		}
		f.header.SetLength(end)
	}
	if f.debug {
		log.Printf("Writing %d bytes at %d, from file of length %d", n, position, f.header.FileLength())
	}

	firstSector := position / disk.SectorSizeBytes
	lastSector := (end - 1) / disk.SectorSizeBytes
	sectors, err := f.getSectors(ctx, firstSector, lastSector-firstSector+1)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, len(sectors)*disk.SectorSizeBytes)

	// Sectors that are only partially overwritten need to be read
	// first, so that the bytes around the written range are
	// preserved.
	firstAligned := position == firstSector*disk.SectorSizeBytes
	lastAligned := end == (lastSector+1)*disk.SectorSizeBytes
	if !firstAligned {
		if err := f.device.ReadSector(ctx, sectors[0], buf[:disk.SectorSizeBytes]); err != nil {
			return 0, util.StatusWrapf(err, "Failed to read data sector %d", sectors[0])
		}
	}
	if !lastAligned && (len(sectors) > 1 || firstAligned) {
		last := len(sectors) - 1
		if err := f.device.ReadSector(ctx, sectors[last], buf[last*disk.SectorSizeBytes:]); err != nil {
			return 0, util.StatusWrapf(err, "Failed to read data sector %d", sectors[last])
		}
	}

	copy(buf[position-firstSector*disk.SectorSizeBytes:], p)
	for i, sector := range sectors {
		if err := f.device.WriteSector(ctx, sector, buf[i*disk.SectorSizeBytes:(i+1)*disk.SectorSizeBytes]); err != nil {
			return 0, util.StatusWrapf(err, "Failed to write data sector %d", sector)
		}
	}
	return n, nil
}

// Length returns the size of the file in bytes.
func (f *OpenFile) Length() int {
	return f.header.FileLength()
}

// WriteBack persists the file header.
func (f *OpenFile) WriteBack(ctx context.Context) error {
	return f.header.WriteBack(ctx, f.headerSector)
}

// AllocateSpace allocates additional sectors for the file, so that it
// can grow by a given number of bytes. The free map is loaded from
// disk and written back after the sectors have been allocated. The
// file containing the free map itself cannot be extended.
func (f *OpenFile) AllocateSpace(ctx context.Context, size int) error {
	if f.headerSector == FreeMapSector {
		return status.Error(codes.FailedPrecondition, "The free map file cannot be extended")
	}

	freeMapFile, err := NewOpenFile(ctx, f.device, FreeMapSector)
	if err != nil {
		return util.StatusWrap(err, "Failed to open free map file")
	}
	defer freeMapFile.Close()
	freeMapFile.debug = f.debug
	freeMap := NewBitMap(f.device.SectorCount())
	if err := freeMap.FetchFrom(ctx, freeMapFile); err != nil {
		return err
	}

	if err := f.header.ExtendSpace(ctx, freeMap, size); err != nil {
		return util.StatusWrapf(err, "Failed to extend file with header sector %d by %d bytes", f.headerSector, size)
	}
	if err := freeMap.WriteBack(ctx, freeMapFile); err != nil {
		return err
	}
	filesystemFilesExtended.Inc()
	return nil
}

// Close releases the in-memory copy of the file header without
// writing it back.
func (f *OpenFile) Close() {
	f.header = nil
}
