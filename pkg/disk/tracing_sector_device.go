package disk

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracingSectorDevice struct {
	SectorDevice
	tracer trace.Tracer
}

// NewTracingSectorDevice is a decorator for SectorDevice that creates
// an OpenTelemetry trace span for every sector that is transferred.
func NewTracingSectorDevice(base SectorDevice, tracerProvider trace.TracerProvider) SectorDevice {
	return &tracingSectorDevice{
		SectorDevice: base,
		tracer:       tracerProvider.Tracer("github.com/buildbarn/bb-disk-simulator/pkg/disk"),
	}
}

func (sd *tracingSectorDevice) ReadSector(ctx context.Context, sectorNumber int, data []byte) error {
	ctxWithTracing, span := sd.tracer.Start(ctx, "SectorDevice.ReadSector", trace.WithAttributes(
		attribute.Int("sector", sectorNumber),
	))
	defer span.End()

	err := sd.SectorDevice.ReadSector(ctxWithTracing, sectorNumber, data)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (sd *tracingSectorDevice) WriteSector(ctx context.Context, sectorNumber int, data []byte) error {
	ctxWithTracing, span := sd.tracer.Start(ctx, "SectorDevice.WriteSector", trace.WithAttributes(
		attribute.Int("sector", sectorNumber),
	))
	defer span.End()

	err := sd.SectorDevice.WriteSector(ctxWithTracing, sectorNumber, data)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
