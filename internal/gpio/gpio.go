// Package gpio provides digital input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads raw digital input levels.
type Reader interface {
	// Read returns the instantaneous level of pin (true = high,
	// after any active-low inversion configured on the line).
	Read(pin int) (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Default input pins (BCM numbering).
const (
	DefaultPinDI0 = 22
	DefaultPinDI1 = 27
)
