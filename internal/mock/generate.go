package mock

//go:generate mockgen -package mock -destination aliases.go github.com/buildbarn/bb-disk-simulator/internal/mock/aliases CompletionHandler
//go:generate mockgen -package mock -destination blockdevice.go github.com/buildbarn/bb-storage/pkg/blockdevice BlockDevice
//go:generate mockgen -package mock -destination clock.go github.com/buildbarn/bb-disk-simulator/pkg/clock Scheduler
//go:generate mockgen -package mock -destination disk.go github.com/buildbarn/bb-disk-simulator/pkg/disk SectorDevice
