package filesystem

import (
	"context"
	"io"
	"sync"

	"github.com/buildbarn/bb-disk-simulator/pkg/disk"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	filesystemPrometheusMetrics sync.Once

	filesystemFilesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "filesystem",
			Name:      "volume_files_created_total",
			Help:      "Number of files created on simulated disks.",
		})
	filesystemFilesRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "filesystem",
			Name:      "volume_files_removed_total",
			Help:      "Number of files removed from simulated disks.",
		})
	filesystemFilesExtended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "filesystem",
			Name:      "volume_files_extended_total",
			Help:      "Number of times a file was extended by allocating additional sectors.",
		})
)

// Volume is a file system stored on a SectorDevice. It does not
// provide a name space. Files are identified by the sector holding
// their header.
//
// The free map is stored in an ordinary file, whose header is stored
// in FreeMapSector. It is loaded from disk for every operation that
// allocates or releases sectors.
type Volume struct {
	device disk.SectorDevice
	debug  bool
}

// NewVolume creates a Volume on top of a SectorDevice. The device
// needs to be formatted before files can be created.
func NewVolume(device disk.SectorDevice, debug bool) *Volume {
	filesystemPrometheusMetrics.Do(func() {
		prometheus.MustRegister(filesystemFilesCreated)
		prometheus.MustRegister(filesystemFilesRemoved)
		prometheus.MustRegister(filesystemFilesExtended)
	})

	return &Volume{
		device: device,
		debug:  debug,
	}
}

// Format the device, so that it only contains the free map file.
func (v *Volume) Format(ctx context.Context) error {
	freeMap := NewBitMap(v.device.SectorCount())
	freeMap.Mark(FreeMapSector)
	header := NewFileHeader(v.device)
	if err := header.Allocate(ctx, freeMap, freeMap.SizeBytes()); err != nil {
		return util.StatusWrap(err, "Failed to allocate space for free map")
	}
	if err := header.WriteBack(ctx, FreeMapSector); err != nil {
		return err
	}

	freeMapFile, err := NewOpenFile(ctx, v.device, FreeMapSector)
	if err != nil {
		return err
	}
	defer freeMapFile.Close()
	return freeMap.WriteBack(ctx, freeMapFile)
}

// openFreeMap loads the free map from disk. The file containing the
// free map is returned as well, so that the free map can be written
// back.
func (v *Volume) openFreeMap(ctx context.Context) (*BitMap, *OpenFile, error) {
	freeMapFile, err := NewOpenFile(ctx, v.device, FreeMapSector)
	if err != nil {
		return nil, nil, util.StatusWrap(err, "Failed to open free map file")
	}
	freeMapFile.debug = v.debug
	freeMap := NewBitMap(v.device.SectorCount())
	if err := freeMap.FetchFrom(ctx, freeMapFile); err != nil {
		freeMapFile.Close()
		return nil, nil, err
	}
	return freeMap, freeMapFile, nil
}

// checkFile returns an error if a sector does not contain the header
// of a regular file.
func (v *Volume) checkFile(freeMap *BitMap, headerSector int) error {
	if headerSector < 0 || headerSector >= v.device.SectorCount() {
		return status.Errorf(codes.InvalidArgument, "Sector %d lies outside the range [0, %d)", headerSector, v.device.SectorCount())
	}
	if headerSector == FreeMapSector {
		return status.Errorf(codes.PermissionDenied, "Sector %d contains the header of the free map file", headerSector)
	}
	if !freeMap.Test(headerSector) {
		return status.Errorf(codes.NotFound, "Sector %d does not contain a file header", headerSector)
	}
	return nil
}

// CreateFile creates a new file of a given size. The sector number of
// its header is returned.
func (v *Volume) CreateFile(ctx context.Context, size int) (int, error) {
	freeMap, freeMapFile, err := v.openFreeMap(ctx)
	if err != nil {
		return 0, err
	}
	defer freeMapFile.Close()

	headerSector, err := freeMap.Find()
	if err != nil {
		return 0, util.StatusWrap(err, "Failed to allocate file header")
	}
	header := NewFileHeader(v.device)
	if err := header.Allocate(ctx, freeMap, size); err != nil {
		return 0, util.StatusWrapf(err, "Failed to allocate space for file of %d bytes", size)
	}
	if err := header.WriteBack(ctx, headerSector); err != nil {
		return 0, err
	}
	if err := freeMap.WriteBack(ctx, freeMapFile); err != nil {
		return 0, err
	}
	filesystemFilesCreated.Inc()
	return headerSector, nil
}

// Open a file, given the sector containing its header.
func (v *Volume) Open(ctx context.Context, headerSector int) (*OpenFile, error) {
	freeMap, freeMapFile, err := v.openFreeMap(ctx)
	if err != nil {
		return nil, err
	}
	freeMapFile.Close()
	if err := v.checkFile(freeMap, headerSector); err != nil {
		return nil, err
	}

	f, err := NewOpenFile(ctx, v.device, headerSector)
	if err != nil {
		return nil, err
	}
	f.debug = v.debug
	return f, nil
}

// RemoveFile releases all sectors of a file, including its header.
func (v *Volume) RemoveFile(ctx context.Context, headerSector int) error {
	freeMap, freeMapFile, err := v.openFreeMap(ctx)
	if err != nil {
		return err
	}
	defer freeMapFile.Close()
	if err := v.checkFile(freeMap, headerSector); err != nil {
		return err
	}

	header := NewFileHeader(v.device)
	if err := header.FetchFrom(ctx, headerSector); err != nil {
		return err
	}
	if err := header.Deallocate(ctx, freeMap); err != nil {
		return err
	}
	freeMap.Clear(headerSector)
	if err := freeMap.WriteBack(ctx, freeMapFile); err != nil {
		return err
	}
	filesystemFilesRemoved.Inc()
	return nil
}

// FreeSectorCount returns the number of sectors that are not in use.
func (v *Volume) FreeSectorCount(ctx context.Context) (int, error) {
	freeMap, freeMapFile, err := v.openFreeMap(ctx)
	if err != nil {
		return 0, err
	}
	freeMapFile.Close()
	return freeMap.NumClear(), nil
}

// PrintFreeMap writes the numbers of all sectors in use.
func (v *Volume) PrintFreeMap(ctx context.Context, w io.Writer) error {
	freeMap, freeMapFile, err := v.openFreeMap(ctx)
	if err != nil {
		return err
	}
	freeMapFile.Close()
	freeMap.Print(w)
	return nil
}
