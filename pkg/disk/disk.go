package disk

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/buildbarn/bb-disk-simulator/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/blockdevice"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// The magic number is stored at the front of the backing store, so
// that a file that happens to be useful is less likely to be treated
// as a disk image and get trashed.
const (
	magicNumber    = 0x456789ab
	magicSizeBytes = 4
)

var (
	diskPrometheusMetrics sync.Once

	diskRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "disk",
			Name:      "requests_total",
			Help:      "Number of sector requests issued against simulated disks.",
		},
		[]string{"operation"})
	diskRequestsRead  = diskRequests.WithLabelValues("Read")
	diskRequestsWrite = diskRequests.WithLabelValues("Write")

	diskTrackBufferHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "disk",
			Name:      "track_buffer_hits_total",
			Help:      "Number of read requests that were served from the track buffer.",
		})

	diskRequestLatencyTicks = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "disk",
			Name:      "request_latency_ticks",
			Help:      "Simulated latency of sector requests, in ticks.",
			Buckets:   prometheus.ExponentialBuckets(500, 2, 10),
		},
		[]string{"operation"})
	diskRequestLatencyTicksRead  = diskRequestLatencyTicks.WithLabelValues("Read")
	diskRequestLatencyTicksWrite = diskRequestLatencyTicks.WithLabelValues("Write")
)

// Statistics contains the number of requests processed by a Disk.
type Statistics struct {
	Reads  int
	Writes int
}

// Disk simulates a mechanical disk. Sector contents are stored in a
// backing store, while timing is modeled after a disk that has a
// single head, a constant rotation speed and a track buffer.
//
// Requests are asynchronous. ReadRequest() and WriteRequest() transfer
// data immediately, but schedule an interrupt that calls the
// completion handler once the simulated latency has passed. Only a
// single request may be outstanding at any point in time.
//
// Disk is not thread-safe. Callers need to serialize access, for
// example by using SynchronousDisk.
type Disk struct {
	backingStore blockdevice.BlockDevice
	geometry     Geometry
	scheduler    clock.Scheduler
	handler      func()
	debug        bool

	active     bool
	lastSector int
	bufferInit clock.Ticks
	statistics Statistics
}

// NewDisk creates a simulated disk on top of a backing store. If the
// backing store does not start with the magic number, it is assumed to
// be empty and is initialized to hold a disk of the provided geometry.
// Backing stores that contain other data are rejected.
//
// The handler is invoked through the scheduler every time a request
// completes.
func NewDisk(backingStore blockdevice.BlockDevice, geometry Geometry, scheduler clock.Scheduler, handler func(), debug bool) (*Disk, error) {
	diskPrometheusMetrics.Do(func() {
		prometheus.MustRegister(diskRequests)
		prometheus.MustRegister(diskTrackBufferHits)
		prometheus.MustRegister(diskRequestLatencyTicks)
	})

	if err := geometry.Validate(); err != nil {
		return nil, err
	}

	var magic [magicSizeBytes]byte
	if n, err := backingStore.ReadAt(magic[:], 0); err != nil && (err != io.EOF || n != 0) {
		return nil, util.StatusWrap(err, "Failed to read magic number")
	}
	switch binary.LittleEndian.Uint32(magic[:]) {
	case magicNumber:
	case 0:
		// Reserve space for all sectors by writing at the
		// very end, so that reads never run into EOF.
		binary.LittleEndian.PutUint32(magic[:], magicNumber)
		if _, err := backingStore.WriteAt(magic[:], 0); err != nil {
			return nil, util.StatusWrap(err, "Failed to write magic number")
		}
		var trailer [4]byte
		if _, err := backingStore.WriteAt(trailer[:], geometry.SizeBytes()-int64(len(trailer))); err != nil {
			return nil, util.StatusWrap(err, "Failed to reserve space for sectors")
		}
		if err := backingStore.Sync(); err != nil {
			return nil, util.StatusWrap(err, "Failed to synchronize backing store")
		}
	default:
		return nil, status.Errorf(codes.FailedPrecondition, "Backing store starts with magic number 0x%08x, while 0x%08x was expected", binary.LittleEndian.Uint32(magic[:]), magicNumber)
	}

	return &Disk{
		backingStore: backingStore,
		geometry:     geometry,
		scheduler:    scheduler,
		handler:      handler,
		debug:        debug,
	}, nil
}

// Geometry returns the geometry of the disk.
func (d *Disk) Geometry() Geometry {
	return d.geometry
}

// Statistics returns the number of requests issued so far.
func (d *Disk) Statistics() Statistics {
	return d.statistics
}

func (d *Disk) checkRequest(sectorNumber int, data []byte) {
	if d.active {
		panic(fmt.Sprintf("Attempted to issue a request for sector %d while another request is outstanding", sectorNumber))
	}
	if sectorNumber < 0 || sectorNumber >= d.geometry.NumSectors() {
		panic(fmt.Sprintf("Attempted to access sector %d, which lies outside the range [0, %d)", sectorNumber, d.geometry.NumSectors()))
	}
	if len(data) < SectorSizeBytes {
		panic(fmt.Sprintf("Attempted to transfer sector %d using a buffer of %d bytes", sectorNumber, len(data)))
	}
}

func toBackingStoreOffset(sectorNumber int) int64 {
	return magicSizeBytes + int64(sectorNumber)*SectorSizeBytes
}

// ReadRequest reads a single sector into data. The contents of data
// are available immediately, but the caller must wait for the
// completion handler to be called before issuing the next request.
func (d *Disk) ReadRequest(sectorNumber int, data []byte) error {
	d.checkRequest(sectorNumber, data)
	ticks, trackBufferHit := d.computeLatency(sectorNumber, false)

	data = data[:SectorSizeBytes]
	if n, err := d.backingStore.ReadAt(data, toBackingStoreOffset(sectorNumber)); err != nil && (err != io.EOF || n != len(data)) {
		return util.StatusWrapf(err, "Failed to read sector %d", sectorNumber)
	}
	if d.debug {
		d.printSector(false, sectorNumber, data)
	}

	d.startRequest(sectorNumber, ticks)
	d.statistics.Reads++
	diskRequestsRead.Inc()
	diskRequestLatencyTicksRead.Observe(float64(ticks))
	if trackBufferHit {
		diskTrackBufferHits.Inc()
	}
	return nil
}

// WriteRequest writes a single sector from data. The caller must wait
// for the completion handler to be called before issuing the next
// request.
func (d *Disk) WriteRequest(sectorNumber int, data []byte) error {
	d.checkRequest(sectorNumber, data)
	ticks, _ := d.computeLatency(sectorNumber, true)

	data = data[:SectorSizeBytes]
	if n, err := d.backingStore.WriteAt(data, toBackingStoreOffset(sectorNumber)); err != nil {
		return util.StatusWrapf(err, "Failed to write sector %d", sectorNumber)
	} else if n != len(data) {
		return status.Errorf(codes.Internal, "Write of sector %d against backing store returned %d bytes, while %d bytes were expected", sectorNumber, n, len(data))
	}
	if d.debug {
		d.printSector(true, sectorNumber, data)
	}

	d.startRequest(sectorNumber, ticks)
	d.statistics.Writes++
	diskRequestsWrite.Inc()
	diskRequestLatencyTicksWrite.Observe(float64(ticks))
	return nil
}

func (d *Disk) startRequest(sectorNumber int, ticks clock.Ticks) {
	d.active = true
	d.UpdateLast(sectorNumber)
	d.scheduler.Schedule(d.HandleCompletion, ticks, clock.DiskInterrupt)
}

// HandleCompletion is invoked by the scheduler when the simulated
// latency of the outstanding request has passed. It marks the disk as
// idle and notifies the completion handler.
func (d *Disk) HandleCompletion() {
	d.active = false
	d.handler()
}

// timeToSeek returns how long it takes to position the head over the
// track containing newSector. As the head will likely end up in the
// middle of a sector when the seek finishes, it also returns how long
// it takes until the head is at the next sector boundary.
func (d *Disk) timeToSeek(newSector int) (clock.Ticks, clock.Ticks) {
	newTrack := d.geometry.track(newSector)
	oldTrack := d.geometry.track(d.lastSector)
	distance := newTrack - oldTrack
	if distance < 0 {
		distance = -distance
	}
	seek := clock.Ticks(distance) * d.geometry.SeekTime

	var rotation clock.Ticks
	if over := (d.scheduler.Now() + seek) % d.geometry.RotationTime; over > 0 {
		rotation = d.geometry.RotationTime - over
	}
	return seek, rotation
}

// ComputeLatency returns how long it takes to read or write a sector,
// starting from the current position of the head. The latency is the
// sum of the seek time, the rotational delay and the time it takes to
// transfer the sector.
//
// The disk continuously reads the contents of the current track into
// a track buffer. Reads of sectors that already passed under the head
// since the last seek are served from this buffer, only taking the
// transfer time. The track buffer is discarded by every seek.
func (d *Disk) ComputeLatency(newSector int, writing bool) clock.Ticks {
	ticks, _ := d.computeLatency(newSector, writing)
	return ticks
}

func (d *Disk) computeLatency(newSector int, writing bool) (clock.Ticks, bool) {
	rotationTime := d.geometry.RotationTime
	seek, rotation := d.timeToSeek(newSector)
	timeAfter := d.scheduler.Now() + seek + rotation

	if !writing && seek == 0 &&
		int((timeAfter-d.bufferInit)/rotationTime) > d.geometry.moduloDiff(newSector, int(d.bufferInit/rotationTime)) {
		if d.debug {
			log.Printf("Request latency = %d", rotationTime)
		}
		return rotationTime, true
	}

	rotation += clock.Ticks(d.geometry.moduloDiff(newSector, int(timeAfter/rotationTime))) * rotationTime
	if d.debug {
		log.Printf("Request latency = %d", seek+rotation+rotationTime)
	}
	return seek + rotation + rotationTime, false
}

// UpdateLast keeps track of the most recently requested sector, so
// that the contents of the track buffer are known. If reaching the
// sector requires a seek, the track buffer starts filling up at the
// moment the seek completes.
func (d *Disk) UpdateLast(newSector int) {
	if seek, rotation := d.timeToSeek(newSector); seek != 0 {
		d.bufferInit = d.scheduler.Now() + seek + rotation
	}
	d.lastSector = newSector
	if d.debug {
		log.Printf("Updating last sector = %d, %d", d.lastSector, d.bufferInit)
	}
}

// printSector dumps the data of a request for debugging.
func (d *Disk) printSector(writing bool, sectorNumber int, data []byte) {
	var words strings.Builder
	for i := 0; i+4 <= len(data); i += 4 {
		fmt.Fprintf(&words, "%x ", binary.LittleEndian.Uint32(data[i:]))
	}
	if writing {
		log.Printf("Writing sector: %d\n%s", sectorNumber, words.String())
	} else {
		log.Printf("Reading sector: %d\n%s", sectorNumber, words.String())
	}
}
