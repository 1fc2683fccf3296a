package disk

import (
	"github.com/buildbarn/bb-disk-simulator/pkg/clock"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SectorSizeBytes is the number of bytes in a disk sector. It is a
// constant, as the on-disk structures of the file system are laid out
// to occupy exactly one sector.
const SectorSizeBytes = 128

// Geometry describes the physical layout and timing of a simulated
// disk. The disk consists of NumTracks tracks of SectorsPerTrack
// sectors each.
type Geometry struct {
	SectorsPerTrack int
	NumTracks       int
	// SeekTime is the time needed to move the head by one track.
	SeekTime clock.Ticks
	// RotationTime is the time needed for a single sector to pass
	// under the head. This is also the time needed to transfer a
	// sector.
	RotationTime clock.Ticks
}

// DefaultGeometry is a disk of 32 tracks of 32 sectors, providing
// 128 KiB of storage.
var DefaultGeometry = Geometry{
	SectorsPerTrack: 32,
	NumTracks:       32,
	SeekTime:        500,
	RotationTime:    500,
}

// NumSectors returns the total number of sectors on the disk.
func (g Geometry) NumSectors() int {
	return g.SectorsPerTrack * g.NumTracks
}

// SizeBytes returns the size of a disk image having this geometry,
// including the magic number that precedes the sectors.
func (g Geometry) SizeBytes() int64 {
	return magicSizeBytes + int64(g.NumSectors())*SectorSizeBytes
}

// Validate checks whether all parameters of the geometry are positive.
func (g Geometry) Validate() error {
	if g.SectorsPerTrack <= 0 {
		return status.Errorf(codes.InvalidArgument, "Sectors per track must be positive, while %d was provided", g.SectorsPerTrack)
	}
	if g.NumTracks <= 0 {
		return status.Errorf(codes.InvalidArgument, "Number of tracks must be positive, while %d was provided", g.NumTracks)
	}
	if g.SeekTime <= 0 {
		return status.Errorf(codes.InvalidArgument, "Seek time must be positive, while %d was provided", g.SeekTime)
	}
	if g.RotationTime <= 0 {
		return status.Errorf(codes.InvalidArgument, "Rotation time must be positive, while %d was provided", g.RotationTime)
	}
	return nil
}

// track returns the track on which a sector is located.
func (g Geometry) track(sector int) int {
	return sector / g.SectorsPerTrack
}

// moduloDiff returns the number of sectors of rotational delay between
// the target sector "to" and the current position "from".
func (g Geometry) moduloDiff(to, from int) int {
	toOffset := to % g.SectorsPerTrack
	fromOffset := from % g.SectorsPerTrack
	return ((toOffset - fromOffset) + g.SectorsPerTrack) % g.SectorsPerTrack
}
