//go:build !linux

package ir

import (
	"errors"
	"time"

	"github.com/sweeney/ir-learner/internal/logic"
)

var errNotSupported = errors.New("ir: lirc not supported on this platform (requires Linux)")

// LircReceiver is not available on non-Linux platforms.
type LircReceiver struct{}

// NewLircReceiver returns an error on non-Linux platforms.
func NewLircReceiver(path string, now func() time.Time) (*LircReceiver, error) {
	return nil, errNotSupported
}

// TryDecode is not implemented on non-Linux platforms.
func (r *LircReceiver) TryDecode() (logic.DecodedEvent, bool, error) {
	return logic.DecodedEvent{}, false, errNotSupported
}

// Close is not implemented on non-Linux platforms.
func (r *LircReceiver) Close() error {
	return nil
}

// LircTransmitter is not available on non-Linux platforms.
type LircTransmitter struct{}

// NewLircTransmitter returns an error on non-Linux platforms.
func NewLircTransmitter(path string) (*LircTransmitter, error) {
	return nil, errNotSupported
}

func (t *LircTransmitter) SendNEC(uint64, uint16) error         { return errNotSupported }
func (t *LircTransmitter) SendSony(uint64, uint16) error        { return errNotSupported }
func (t *LircTransmitter) SendRC5(uint64, uint16) error         { return errNotSupported }
func (t *LircTransmitter) SendRC6(uint64, uint16) error         { return errNotSupported }
func (t *LircTransmitter) SendSAMSUNG(uint64, uint16) error     { return errNotSupported }
func (t *LircTransmitter) SendLG(uint64, uint16) error          { return errNotSupported }
func (t *LircTransmitter) SendPanasonic64(uint64, uint16) error { return errNotSupported }
func (t *LircTransmitter) SendSharpRaw(uint64, uint16) error    { return errNotSupported }
func (t *LircTransmitter) SendMitsubishi(uint64, uint16) error  { return errNotSupported }
func (t *LircTransmitter) SendJVC(uint64, uint16) error         { return errNotSupported }

// Close is not implemented on non-Linux platforms.
func (t *LircTransmitter) Close() error {
	return nil
}
