package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/buildbarn/bb-disk-simulator/pkg/clock"
	configuration "github.com/buildbarn/bb-disk-simulator/pkg/configuration/bb_disk"
	"github.com/buildbarn/bb-disk-simulator/pkg/disk"
	"github.com/buildbarn/bb-disk-simulator/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// bb_disk operates on a disk image containing a simple file system.
// Every access to the image goes through a simulated disk, so that
// the number of ticks spent performing disk I/O can be reported.
//
// The file system has no directories. Files are identified by the
// number of the sector holding their header, which is printed when
// the file is created.

const usage = "Usage: bb_disk --config=bb_disk.jsonnet format | create <size> | put <header> <host file> | get <header> | print <header> | remove <header> | free"

func main() {
	configurationPath := pflag.String("config", "", "Path of the Jsonnet configuration file")
	pflag.SetInterspersed(false)
	pflag.Parse()
	args := pflag.Args()
	if len(args) == 0 || *configurationPath == "" {
		log.Fatal(usage)
	}

	diskConfiguration, err := configuration.GetDiskConfiguration(*configurationPath)
	if err != nil {
		log.Fatal("Failed to read configuration: ", err)
	}
	diskImage, err := disk.OpenDiskImage(diskConfiguration.DiskImagePath)
	if err != nil {
		log.Fatal(err)
	}
	defer diskImage.Close()

	virtualClock := clock.NewVirtualClock()
	synchronousDisk, err := disk.NewSynchronousDisk(diskImage, diskConfiguration.Geometry(), virtualClock, diskConfiguration.DebugDisk)
	if err != nil {
		log.Fatal("Failed to create disk: ", err)
	}
	var device disk.SectorDevice = synchronousDisk
	if diskConfiguration.EnableTracing {
		device = disk.NewTracingSectorDevice(device, otel.GetTracerProvider())
	}
	volume := filesystem.NewVolume(device, diskConfiguration.DebugFileSystem)

	if err := runCommand(context.Background(), volume, args); err != nil {
		log.Fatal(err)
	}

	statistics := synchronousDisk.Disk().Statistics()
	fmt.Printf("Ticks: total %d\n", virtualClock.Now())
	fmt.Printf("Disk I/O: reads %d, writes %d\n", statistics.Reads, statistics.Writes)
}

func parseSector(s string) (int, error) {
	sector, err := strconv.Atoi(s)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "Invalid sector number %#v", s)
	}
	return sector, nil
}

func checkArgumentCount(args []string, count int) error {
	if len(args) != count+1 {
		return status.Errorf(codes.InvalidArgument, "Command %#v takes %d arguments, while %d were provided", args[0], count, len(args)-1)
	}
	return nil
}

func runCommand(ctx context.Context, volume *filesystem.Volume, args []string) error {
	switch args[0] {
	case "format":
		if err := checkArgumentCount(args, 0); err != nil {
			return err
		}
		return volume.Format(ctx)
	case "create":
		if err := checkArgumentCount(args, 1); err != nil {
			return err
		}
		size, err := strconv.Atoi(args[1])
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "Invalid file size %#v", args[1])
		}
		headerSector, err := volume.CreateFile(ctx, size)
		if err != nil {
			return err
		}
		fmt.Printf("Created file with header sector %d\n", headerSector)
		return nil
	case "put":
		if err := checkArgumentCount(args, 2); err != nil {
			return err
		}
		headerSector, err := parseSector(args[1])
		if err != nil {
			return err
		}
		contents, err := os.ReadFile(args[2])
		if err != nil {
			return util.StatusWrapf(err, "Failed to read %#v", args[2])
		}
		f, err := volume.Open(ctx, headerSector)
		if err != nil {
			return err
		}
		defer f.Close()
		f.Seek(f.Length())
		if _, err := f.Write(ctx, contents); err != nil {
			return err
		}
		return f.WriteBack(ctx)
	case "get":
		if err := checkArgumentCount(args, 1); err != nil {
			return err
		}
		headerSector, err := parseSector(args[1])
		if err != nil {
			return err
		}
		f, err := volume.Open(ctx, headerSector)
		if err != nil {
			return err
		}
		defer f.Close()
		contents := make([]byte, f.Length())
		n, err := f.Read(ctx, contents)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(contents[:n])
		return err
	case "print":
		if err := checkArgumentCount(args, 1); err != nil {
			return err
		}
		headerSector, err := parseSector(args[1])
		if err != nil {
			return err
		}
		f, err := volume.Open(ctx, headerSector)
		if err != nil {
			return err
		}
		defer f.Close()
		return f.Header().Print(ctx, os.Stdout)
	case "remove":
		if err := checkArgumentCount(args, 1); err != nil {
			return err
		}
		headerSector, err := parseSector(args[1])
		if err != nil {
			return err
		}
		return volume.RemoveFile(ctx, headerSector)
	case "free":
		if err := checkArgumentCount(args, 0); err != nil {
			return err
		}
		freeSectors, err := volume.FreeSectorCount(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d sectors free\n", freeSectors)
		return volume.PrintFreeMap(ctx, os.Stdout)
	default:
		return status.Errorf(codes.InvalidArgument, "Unknown command %#v", args[0])
	}
}
