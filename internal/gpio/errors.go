package gpio

import "errors"

var (
	// ErrUnsupported is returned by the hardware reader on non-Linux builds.
	ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

	// ErrNoSamples is returned by a FakeReader with an empty script.
	ErrNoSamples = errors.New("gpio: no samples configured")
)
