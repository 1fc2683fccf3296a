package filesystem

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/buildbarn/bb-disk-simulator/pkg/disk"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// NumDirect is the number of sector numbers that fit in a file
	// header, next to the file's size in bytes and sectors.
	NumDirect = (disk.SectorSizeBytes - 2*4) / 4
	// NumIndirect is the number of sector numbers that fit in an
	// indirect block.
	NumIndirect = disk.SectorSizeBytes / 4
	// MaxFileSectors is the maximum number of data sectors a file
	// may have. The last direct slot is used to point to the
	// indirect block once a file no longer fits in the direct
	// slots.
	MaxFileSectors = NumDirect - 1 + NumIndirect
	// MaxFileSizeBytes is the maximum size of a file.
	MaxFileSizeBytes = MaxFileSectors * disk.SectorSizeBytes

	// unusedSector is stored in the last direct slot of files that
	// don't use an indirect block.
	unusedSector = -1
)

type indirectBlock [NumIndirect]int32

func divRoundUp(n, s int) int {
	return (n + s - 1) / s
}

// FileHeader is the on-disk structure that describes where the
// contents of a file are stored. A file header occupies exactly one
// sector. The first NumDirect-1 data sectors of a file are listed in
// the header itself. Sector numbers of any data sectors beyond that
// are stored in an indirect block, which is pointed to by the last
// direct slot.
//
// FileHeader is not thread-safe.
type FileHeader struct {
	device      disk.SectorDevice
	numBytes    int32
	numSectors  int32
	dataSectors [NumDirect]int32
}

// NewFileHeader creates an empty file header. Its contents need to be
// filled in by calling Allocate() or FetchFrom().
func NewFileHeader(device disk.SectorDevice) *FileHeader {
	return &FileHeader{
		device: device,
	}
}

func (h *FileHeader) usesIndirectBlock() bool {
	return h.numSectors >= NumDirect
}

// sectorReservation keeps track of sectors that have been taken from
// the free map, so that they can be returned if an operation fails
// halfway.
type sectorReservation struct {
	freeMap *BitMap
	sectors []int
}

func (r *sectorReservation) take() (int32, error) {
	sector, err := r.freeMap.Find()
	if err != nil {
		return 0, err
	}
	r.sectors = append(r.sectors, sector)
	return int32(sector), nil
}

func (r *sectorReservation) release() {
	for _, sector := range r.sectors {
		r.freeMap.Clear(sector)
	}
	r.sectors = nil
}

// checkCapacity returns an error if a file cannot be grown to a given
// number of sectors, requiring a given number of free sectors.
func checkCapacity(freeMap *BitMap, sectorCount, sectorsNeeded int) error {
	if sectorCount > MaxFileSectors {
		return status.Errorf(codes.OutOfRange, "File would require %d sectors, while files can be at most %d sectors in size", sectorCount, MaxFileSectors)
	}
	if free := freeMap.NumClear(); free < sectorsNeeded {
		return status.Errorf(codes.ResourceExhausted, "File would require %d more sectors, while only %d sectors are free", sectorsNeeded, free)
	}
	return nil
}

// Allocate space for a newly created file of a given size. Sectors
// are taken from the free map. Upon failure, both the file header and
// the free map are left unmodified.
func (h *FileHeader) Allocate(ctx context.Context, freeMap *BitMap, fileSize int) error {
	if fileSize < 0 {
		return status.Errorf(codes.InvalidArgument, "Negative file size: %d", fileSize)
	}
	if fileSize > MaxFileSizeBytes {
		return status.Errorf(codes.OutOfRange, "File size of %d bytes exceeds the maximum of %d bytes", fileSize, MaxFileSizeBytes)
	}
	sectorCount := divRoundUp(fileSize, disk.SectorSizeBytes)
	sectorsNeeded := sectorCount
	if sectorCount >= NumDirect {
		sectorsNeeded++
	}
	if err := checkCapacity(freeMap, sectorCount, sectorsNeeded); err != nil {
		return err
	}

	reservation := sectorReservation{freeMap: freeMap}
	var dataSectors [NumDirect]int32
	if sectorCount < NumDirect {
		for i := 0; i < sectorCount; i++ {
			sector, err := reservation.take()
			if err != nil {
				reservation.release()
				return err
			}
			dataSectors[i] = sector
		}
		dataSectors[NumDirect-1] = unusedSector
	} else {
		for i := 0; i < NumDirect; i++ {
			sector, err := reservation.take()
			if err != nil {
				reservation.release()
				return err
			}
			dataSectors[i] = sector
		}
		var indirect indirectBlock
		for i := 0; i < sectorCount-(NumDirect-1); i++ {
			sector, err := reservation.take()
			if err != nil {
				reservation.release()
				return err
			}
			indirect[i] = sector
		}
		if err := h.writeIndirectBlock(ctx, int(dataSectors[NumDirect-1]), &indirect); err != nil {
			reservation.release()
			return err
		}
	}

	h.numBytes = int32(fileSize)
	h.numSectors = int32(sectorCount)
	h.dataSectors = dataSectors
	return nil
}

// ExtendSpace allocates additional sectors, so that the file can grow
// by a given number of bytes. The length of the file is not altered.
// Callers need to call SetLength() separately. Upon failure, both the
// file header and the free map are left unmodified.
func (h *FileHeader) ExtendSpace(ctx context.Context, freeMap *BitMap, appendBytes int) error {
	if appendBytes <= 0 {
		return nil
	}
	if appendBytes > MaxFileSizeBytes {
		return status.Errorf(codes.OutOfRange, "Extending the file by %d bytes would exceed the maximum file size of %d bytes", appendBytes, MaxFileSizeBytes)
	}
	oldCount := int(h.numSectors)
	newCount := oldCount + divRoundUp(appendBytes, disk.SectorSizeBytes)
	sectorsNeeded := newCount - oldCount
	if oldCount < NumDirect && newCount >= NumDirect {
		sectorsNeeded++
	}
	if err := checkCapacity(freeMap, newCount, sectorsNeeded); err != nil {
		return err
	}

	reservation := sectorReservation{freeMap: freeMap}
	dataSectors := h.dataSectors
	switch {
	case newCount < NumDirect:
		// File remains small enough to only use direct slots.
		for i := oldCount; i < newCount; i++ {
			sector, err := reservation.take()
			if err != nil {
				reservation.release()
				return err
			}
			dataSectors[i] = sector
		}
	case oldCount < NumDirect:
		// File needs an indirect block for the first time. Fill
		// up the remaining direct slots, including the one
		// pointing to the indirect block.
		for i := oldCount; i < NumDirect; i++ {
			sector, err := reservation.take()
			if err != nil {
				reservation.release()
				return err
			}
			dataSectors[i] = sector
		}
		var indirect indirectBlock
		for i := 0; i < newCount-(NumDirect-1); i++ {
			sector, err := reservation.take()
			if err != nil {
				reservation.release()
				return err
			}
			indirect[i] = sector
		}
		if err := h.writeIndirectBlock(ctx, int(dataSectors[NumDirect-1]), &indirect); err != nil {
			reservation.release()
			return err
		}
	default:
		// File already has an indirect block. Append to it.
		indirect, err := h.readIndirectBlock(ctx)
		if err != nil {
			return err
		}
		for i := oldCount - (NumDirect - 1); i < newCount-(NumDirect-1); i++ {
			sector, err := reservation.take()
			if err != nil {
				reservation.release()
				return err
			}
			indirect[i] = sector
		}
		if err := h.writeIndirectBlock(ctx, int(dataSectors[NumDirect-1]), indirect); err != nil {
			reservation.release()
			return err
		}
	}

	h.numSectors = int32(newCount)
	h.dataSectors = dataSectors
	return nil
}

// dataSectorList returns the sector numbers of all data sectors of
// the file, in logical order.
func (h *FileHeader) dataSectorList(ctx context.Context) ([]int, error) {
	sectors := make([]int, 0, h.numSectors)
	if !h.usesIndirectBlock() {
		for _, sector := range h.dataSectors[:h.numSectors] {
			sectors = append(sectors, int(sector))
		}
		return sectors, nil
	}

	indirect, err := h.readIndirectBlock(ctx)
	if err != nil {
		return nil, err
	}
	for _, sector := range h.dataSectors[:NumDirect-1] {
		sectors = append(sectors, int(sector))
	}
	for _, sector := range indirect[:int(h.numSectors)-(NumDirect-1)] {
		sectors = append(sectors, int(sector))
	}
	return sectors, nil
}

// Deallocate returns all sectors of the file to the free map,
// including the indirect block. The header sector itself is not
// released.
func (h *FileHeader) Deallocate(ctx context.Context, freeMap *BitMap) error {
	sectors, err := h.dataSectorList(ctx)
	if err != nil {
		return err
	}
	if h.usesIndirectBlock() {
		sectors = append(sectors, int(h.dataSectors[NumDirect-1]))
	}
	for _, sector := range sectors {
		if !freeMap.Test(sector) {
			panic(fmt.Sprintf("Attempted to free sector %d, even though it's not allocated", sector))
		}
		freeMap.Clear(sector)
	}
	return nil
}

// ByteToSector returns the sector in which a byte of the file is
// stored.
func (h *FileHeader) ByteToSector(ctx context.Context, offset int) (int, error) {
	index := offset / disk.SectorSizeBytes
	if offset < 0 || index >= int(h.numSectors) {
		panic(fmt.Sprintf("Attempted to resolve byte offset %d, which lies outside the %d sectors of the file", offset, h.numSectors))
	}
	if index < NumDirect-1 {
		return int(h.dataSectors[index]), nil
	}
	indirect, err := h.readIndirectBlock(ctx)
	if err != nil {
		return 0, err
	}
	return int(indirect[index-(NumDirect-1)]), nil
}

func (h *FileHeader) checkSector(sector int32, location string) error {
	if sector < 0 || int(sector) >= h.device.SectorCount() {
		return status.Errorf(codes.DataLoss, "%s refers to sector %d, which lies outside the range [0, %d)", location, sector, h.device.SectorCount())
	}
	return nil
}

func (h *FileHeader) readIndirectBlock(ctx context.Context) (*indirectBlock, error) {
	sector := int(h.dataSectors[NumDirect-1])
	data := make([]byte, disk.SectorSizeBytes)
	if err := h.device.ReadSector(ctx, sector, data); err != nil {
		return nil, util.StatusWrapf(err, "Failed to read indirect block from sector %d", sector)
	}
	var indirect indirectBlock
	for i := range indirect {
		indirect[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
	}
	for i := 0; i < int(h.numSectors)-(NumDirect-1); i++ {
		if err := h.checkSector(indirect[i], fmt.Sprintf("Indirect block entry %d", i)); err != nil {
			return nil, err
		}
	}
	return &indirect, nil
}

func (h *FileHeader) writeIndirectBlock(ctx context.Context, sector int, indirect *indirectBlock) error {
	data := make([]byte, disk.SectorSizeBytes)
	for i, s := range indirect {
		binary.LittleEndian.PutUint32(data[4*i:], uint32(s))
	}
	if err := h.device.WriteSector(ctx, sector, data); err != nil {
		return util.StatusWrapf(err, "Failed to write indirect block to sector %d", sector)
	}
	return nil
}

// FetchFrom loads the file header from a sector.
func (h *FileHeader) FetchFrom(ctx context.Context, sector int) error {
	data := make([]byte, disk.SectorSizeBytes)
	if err := h.device.ReadSector(ctx, sector, data); err != nil {
		return util.StatusWrapf(err, "Failed to read file header from sector %d", sector)
	}
	numBytes := int32(binary.LittleEndian.Uint32(data[0:]))
	numSectors := int32(binary.LittleEndian.Uint32(data[4:]))
	if numSectors < 0 || numSectors > MaxFileSectors {
		return status.Errorf(codes.DataLoss, "File header in sector %d has %d sectors, while files can be at most %d sectors in size", sector, numSectors, MaxFileSectors)
	}
	if numBytes < 0 || int(numBytes) > int(numSectors)*disk.SectorSizeBytes {
		return status.Errorf(codes.DataLoss, "File header in sector %d has a length of %d bytes, which does not fit in %d sectors", sector, numBytes, numSectors)
	}
	var dataSectors [NumDirect]int32
	for i := range dataSectors {
		dataSectors[i] = int32(binary.LittleEndian.Uint32(data[8+4*i:]))
	}

	h.numBytes = numBytes
	h.numSectors = numSectors
	h.dataSectors = dataSectors

	usedSlots := int(numSectors)
	if h.usesIndirectBlock() {
		usedSlots = NumDirect
	}
	for i := 0; i < usedSlots; i++ {
		if err := h.checkSector(dataSectors[i], fmt.Sprintf("File header in sector %d", sector)); err != nil {
			return err
		}
	}
	return nil
}

// WriteBack stores the file header in a sector.
func (h *FileHeader) WriteBack(ctx context.Context, sector int) error {
	data := make([]byte, disk.SectorSizeBytes)
	binary.LittleEndian.PutUint32(data[0:], uint32(h.numBytes))
	binary.LittleEndian.PutUint32(data[4:], uint32(h.numSectors))
	for i, s := range h.dataSectors {
		binary.LittleEndian.PutUint32(data[8+4*i:], uint32(s))
	}
	if err := h.device.WriteSector(ctx, sector, data); err != nil {
		return util.StatusWrapf(err, "Failed to write file header to sector %d", sector)
	}
	return nil
}

// FileLength returns the size of the file in bytes.
func (h *FileHeader) FileLength() int {
	return int(h.numBytes)
}

// SetLength changes the size of the file in bytes. No validation is
// performed against the number of sectors allocated.
func (h *FileHeader) SetLength(length int) {
	h.numBytes = int32(length)
}

// SectorCount returns the number of data sectors allocated to the
// file. The indirect block is not included.
func (h *FileHeader) SectorCount() int {
	return int(h.numSectors)
}

// Print the sectors of the file, followed by its contents.
// Non-printable characters are written as hexadecimal escapes.
func (h *FileHeader) Print(ctx context.Context, w io.Writer) error {
	sectors, err := h.dataSectorList(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "FileHeader contents.  File size: %d.  File blocks:\n", h.numBytes)
	for _, sector := range sectors {
		fmt.Fprintf(w, "%d ", sector)
	}
	fmt.Fprint(w, "\nFile contents:\n")

	data := make([]byte, disk.SectorSizeBytes)
	remaining := int(h.numBytes)
	for _, sector := range sectors {
		if err := h.device.ReadSector(ctx, sector, data); err != nil {
			return util.StatusWrapf(err, "Failed to read data sector %d", sector)
		}
		for _, c := range data[:min(remaining, len(data))] {
			if c >= 0x20 && c <= 0x7e {
				fmt.Fprintf(w, "%c", c)
			} else {
				fmt.Fprintf(w, "\\%x", c)
			}
		}
		remaining -= len(data)
		if remaining <= 0 {
			break
		}
		fmt.Fprint(w, "\n")
	}
	fmt.Fprint(w, "\n")
	return nil
}
