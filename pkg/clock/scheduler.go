package clock

// Ticks is a duration or point in time, expressed in simulated clock
// ticks. The simulated clock only advances when it is told to, making
// all timing derived from it deterministic.
type Ticks int64

// InterruptKind identifies the device that raised an interrupt.
type InterruptKind int

const (
	// TimerInterrupt is raised by the hardware timer.
	TimerInterrupt InterruptKind = iota
	// DiskInterrupt is raised when a disk request completes.
	DiskInterrupt
	// ConsoleWriteInterrupt is raised when a character has been
	// written to the console.
	ConsoleWriteInterrupt
	// ConsoleReadInterrupt is raised when a character is available
	// on the console.
	ConsoleReadInterrupt
	// NetworkSendInterrupt is raised when a packet has been sent.
	NetworkSendInterrupt
	// NetworkReceiveInterrupt is raised when a packet has arrived.
	NetworkReceiveInterrupt
)

var interruptKindNames = [...]string{
	TimerInterrupt:          "timer",
	DiskInterrupt:           "disk",
	ConsoleWriteInterrupt:   "console write",
	ConsoleReadInterrupt:    "console read",
	NetworkSendInterrupt:    "network send",
	NetworkReceiveInterrupt: "network receive",
}

func (k InterruptKind) String() string {
	if k >= 0 && int(k) < len(interruptKindNames) {
		return interruptKindNames[k]
	}
	return "unknown"
}

// Scheduler is the facility through which simulated devices announce
// that an operation completes at some point in the future. Devices
// obtain the current simulated time from it to model their latency.
type Scheduler interface {
	// Now returns the current simulated time.
	Now() Ticks
	// Schedule arranges for handler to be called once delay ticks
	// have passed. The delay must be positive.
	Schedule(handler func(), delay Ticks, kind InterruptKind)
}
