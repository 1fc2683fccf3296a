package configuration

import (
	"bytes"
	"encoding/json"

	"github.com/buildbarn/bb-disk-simulator/pkg/clock"
	"github.com/buildbarn/bb-disk-simulator/pkg/disk"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// DiskConfiguration contains the settings of bb_disk.
type DiskConfiguration struct {
	// Path of the host file in which the contents of the disk are
	// stored.
	DiskImagePath string `json:"diskImagePath"`

	SectorsPerTrack   int   `json:"sectorsPerTrack"`
	NumTracks         int   `json:"numTracks"`
	SeekTimeTicks     int64 `json:"seekTimeTicks"`
	RotationTimeTicks int64 `json:"rotationTimeTicks"`

	// Log every sector transferred by the disk, including its
	// contents.
	DebugDisk bool `json:"debugDisk"`
	// Log every read and write against open files.
	DebugFileSystem bool `json:"debugFileSystem"`
	// Create a trace span for every sector transferred.
	EnableTracing bool `json:"enableTracing"`
}

// Geometry returns the disk geometry described by the configuration.
func (c *DiskConfiguration) Geometry() disk.Geometry {
	return disk.Geometry{
		SectorsPerTrack: c.SectorsPerTrack,
		NumTracks:       c.NumTracks,
		SeekTime:        clock.Ticks(c.SeekTimeTicks),
		RotationTime:    clock.Ticks(c.RotationTimeTicks),
	}
}

// GetDiskConfiguration reads the configuration from file and fill in
// default values.
func GetDiskConfiguration(path string) (*DiskConfiguration, error) {
	var message structpb.Struct
	if err := util.UnmarshalConfigurationFromFile(path, &message); err != nil {
		return nil, util.StatusWrap(err, "Failed to retrieve configuration")
	}
	data, err := protojson.Marshal(&message)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to convert configuration to JSON")
	}

	var diskConfiguration DiskConfiguration
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&diskConfiguration); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Failed to parse configuration: %s", err)
	}
	setDefaultDiskValues(&diskConfiguration)
	return &diskConfiguration, nil
}

func setDefaultDiskValues(diskConfiguration *DiskConfiguration) {
	if diskConfiguration.DiskImagePath == "" {
		diskConfiguration.DiskImagePath = "DISK"
	}
	if diskConfiguration.SectorsPerTrack == 0 {
		diskConfiguration.SectorsPerTrack = disk.DefaultGeometry.SectorsPerTrack
	}
	if diskConfiguration.NumTracks == 0 {
		diskConfiguration.NumTracks = disk.DefaultGeometry.NumTracks
	}
	if diskConfiguration.SeekTimeTicks == 0 {
		diskConfiguration.SeekTimeTicks = int64(disk.DefaultGeometry.SeekTime)
	}
	if diskConfiguration.RotationTimeTicks == 0 {
		diskConfiguration.RotationTimeTicks = int64(disk.DefaultGeometry.RotationTime)
	}
}
