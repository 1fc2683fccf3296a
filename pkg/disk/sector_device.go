package disk

import (
	"context"
)

// SectorDevice provides blocking access to the sectors of a disk. Calls
// return once the transfer has completed.
//
// Buffers passed to ReadSector() and WriteSector() must be at least
// SectorSizeBytes in size. Only the first SectorSizeBytes are
// transferred.
type SectorDevice interface {
	ReadSector(ctx context.Context, sectorNumber int, data []byte) error
	WriteSector(ctx context.Context, sectorNumber int, data []byte) error
	SectorCount() int
}
