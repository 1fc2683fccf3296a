package disk

import (
	"context"

	"github.com/buildbarn/bb-disk-simulator/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/blockdevice"
	"github.com/buildbarn/bb-storage/pkg/util"

	"golang.org/x/sync/semaphore"
)

// InterruptRunner is a Scheduler that can also be instructed to let
// time pass until the next pending interrupt fires.
// clock.VirtualClock implements this interface.
type InterruptRunner interface {
	clock.Scheduler
	RunNext() bool
}

// SynchronousDisk provides a blocking interface on top of Disk. Only
// one request is issued against the underlying Disk at a time. After
// issuing a request, simulated time is moved forward until the
// completion interrupt of the request has fired.
type SynchronousDisk struct {
	disk      *Disk
	clock     InterruptRunner
	semaphore *semaphore.Weighted
	completed bool
}

var _ SectorDevice = (*SynchronousDisk)(nil)

// NewSynchronousDisk creates a simulated disk on top of a backing
// store that can be accessed through blocking calls.
func NewSynchronousDisk(backingStore blockdevice.BlockDevice, geometry Geometry, clock InterruptRunner, debug bool) (*SynchronousDisk, error) {
	sd := &SynchronousDisk{
		clock:     clock,
		semaphore: semaphore.NewWeighted(1),
	}
	d, err := NewDisk(backingStore, geometry, clock, sd.requestDone, debug)
	if err != nil {
		return nil, err
	}
	sd.disk = d
	return sd, nil
}

// Disk returns the simulated disk on top of which SynchronousDisk is
// built.
func (sd *SynchronousDisk) Disk() *Disk {
	return sd.disk
}

// SectorCount returns the number of sectors on the disk.
func (sd *SynchronousDisk) SectorCount() int {
	return sd.disk.Geometry().NumSectors()
}

func (sd *SynchronousDisk) requestDone() {
	sd.completed = true
}

// waitForCompletion lets simulated time pass until the interrupt of
// the outstanding request has fired. Other interrupts that are due
// earlier are fired along the way.
func (sd *SynchronousDisk) waitForCompletion() {
	for !sd.completed {
		if !sd.clock.RunNext() {
			panic("Disk request is outstanding, but no interrupts are pending")
		}
	}
	sd.completed = false
}

// ReadSector reads a single sector, blocking until the disk reports
// completion. Cancelation of the context is only respected before the
// request is issued.
func (sd *SynchronousDisk) ReadSector(ctx context.Context, sectorNumber int, data []byte) error {
	if err := sd.semaphore.Acquire(ctx, 1); err != nil {
		return util.StatusFromContext(ctx)
	}
	defer sd.semaphore.Release(1)

	if err := sd.disk.ReadRequest(sectorNumber, data); err != nil {
		return err
	}
	sd.waitForCompletion()
	return nil
}

// WriteSector writes a single sector, blocking until the disk reports
// completion. Cancelation of the context is only respected before the
// request is issued.
func (sd *SynchronousDisk) WriteSector(ctx context.Context, sectorNumber int, data []byte) error {
	if err := sd.semaphore.Acquire(ctx, 1); err != nil {
		return util.StatusFromContext(ctx)
	}
	defer sd.semaphore.Release(1)

	if err := sd.disk.WriteRequest(sectorNumber, data); err != nil {
		return err
	}
	sd.waitForCompletion()
	return nil
}
