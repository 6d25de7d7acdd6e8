// Package ir provides decoded IR input and protocol transmit output with
// hardware abstraction. The real implementation uses the Linux LIRC
// character device in scancode mode. The fakes allow testing without hardware.
package ir

import (
	"errors"
	"fmt"

	"github.com/sweeney/ir-learner/internal/logic"
)

// ErrTransmitUnsupported is returned by transmitters that cannot encode a protocol.
var ErrTransmitUnsupported = errors.New("ir: transmitter cannot encode protocol")

// Receiver delivers already-decoded IR events.
type Receiver interface {
	// TryDecode returns the next decoded event, if any. It never blocks.
	// A returned event is consumed; the next call yields the following one.
	TryDecode() (logic.DecodedEvent, bool, error)

	// Close releases receiver resources.
	Close() error
}

// Transmitter sends protocol frames. Each call is synchronous and fire-and-forget.
type Transmitter interface {
	SendNEC(value uint64, bits uint16) error
	SendSony(value uint64, bits uint16) error
	SendRC5(value uint64, bits uint16) error
	SendRC6(value uint64, bits uint16) error
	SendSAMSUNG(value uint64, bits uint16) error
	SendLG(value uint64, bits uint16) error
	SendPanasonic64(value uint64, bits uint16) error
	SendSharpRaw(value uint64, bits uint16) error
	SendMitsubishi(value uint64, bits uint16) error
	SendJVC(value uint64, bits uint16) error
}

// Send dispatches a resolved request to the matching transmitter primitive.
func Send(tx Transmitter, req logic.TransmitRequest) error {
	switch req.Primitive {
	case logic.SendNEC:
		return tx.SendNEC(req.Value, req.Bits)
	case logic.SendSony:
		return tx.SendSony(req.Value, req.Bits)
	case logic.SendRC5:
		return tx.SendRC5(req.Value, req.Bits)
	case logic.SendRC6:
		return tx.SendRC6(req.Value, req.Bits)
	case logic.SendSamsung:
		return tx.SendSAMSUNG(req.Value, req.Bits)
	case logic.SendLG:
		return tx.SendLG(req.Value, req.Bits)
	case logic.SendPanasonic64:
		return tx.SendPanasonic64(req.Value, req.Bits)
	case logic.SendSharpRaw:
		return tx.SendSharpRaw(req.Value, req.Bits)
	case logic.SendMitsubishi:
		return tx.SendMitsubishi(req.Value, req.Bits)
	case logic.SendJVC:
		return tx.SendJVC(req.Value, req.Bits)
	default:
		return fmt.Errorf("%w: primitive %q", logic.ErrUnsupportedProtocol, req.Primitive)
	}
}
