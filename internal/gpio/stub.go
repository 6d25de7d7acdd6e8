//go:build !linux

package gpio

// RealReader stands in for the gpiocdev reader so the daemon builds on
// development machines. Run with buttons.enabled=false there.
type RealReader struct{}

// NewRealReader always fails with ErrUnsupported.
func NewRealReader(chipName string, pinSend, pinLearn int) (*RealReader, error) {
	return nil, ErrUnsupported
}

func (r *RealReader) Read() (bool, bool, error) { return false, false, ErrUnsupported }

func (r *RealReader) Close() error { return nil }
