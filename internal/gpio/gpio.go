// Package gpio provides push-button reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the two operator buttons.
type Reader interface {
	// Read returns the logical pressed states of the Send (A) and Learn (B)
	// buttons. The buttons pull the line low when pressed: raw 0 = pressed.
	// Returns (sendPressed, learnPressed, error).
	Read() (bool, bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	PinSend  = 17 // Button A
	PinLearn = 27 // Button B
)
