package logic

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSignalRegistered is returned when replay is requested before a signal was learned.
	ErrNoSignalRegistered = errors.New("no signal registered")
	// ErrUnsupportedProtocol is returned for protocols without a transmit primitive.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)

// Primitive names the transmitter call used to replay a protocol.
type Primitive string

const (
	SendNEC         Primitive = "sendNEC"
	SendSony        Primitive = "sendSony"
	SendRC5         Primitive = "sendRC5"
	SendRC6         Primitive = "sendRC6"
	SendSamsung     Primitive = "sendSAMSUNG"
	SendLG          Primitive = "sendLG"
	SendPanasonic64 Primitive = "sendPanasonic64"
	SendSharpRaw    Primitive = "sendSharpRaw"
	SendMitsubishi  Primitive = "sendMitsubishi"
	SendJVC         Primitive = "sendJVC"
)

// TransmitRequest is a fully resolved replay call.
type TransmitRequest struct {
	Protocol  Protocol
	Primitive Primitive
	Value     uint64
	Bits      uint16
}

// Panasonic returns the address/data split of a 48-bit Panasonic payload.
// ok is false for any other protocol or frame length.
func (r TransmitRequest) Panasonic() (address uint16, data uint32, ok bool) {
	return PanasonicFields(r.Protocol, r.Value, r.Bits)
}

// Encode resolves the transmit primitive for a learned signal.
func Encode(s LearnedSignal) (TransmitRequest, error) {
	if !s.Committed {
		return TransmitRequest{}, ErrNoSignalRegistered
	}

	var p Primitive
	switch s.Protocol {
	case ProtocolNEC:
		p = SendNEC
	case ProtocolSony:
		p = SendSony
	case ProtocolRC5:
		p = SendRC5
	case ProtocolRC6:
		p = SendRC6
	case ProtocolSamsung:
		p = SendSamsung
	case ProtocolLG:
		p = SendLG
	case ProtocolPanasonic:
		// Replayed as the 64-bit payload it was learned as, not address/data.
		p = SendPanasonic64
	case ProtocolSharp:
		p = SendSharpRaw
	case ProtocolMitsubishi:
		p = SendMitsubishi
	case ProtocolJVC:
		p = SendJVC
	default:
		return TransmitRequest{}, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, s.Protocol)
	}

	return TransmitRequest{
		Protocol:  s.Protocol,
		Primitive: p,
		Value:     s.Value,
		Bits:      s.Bits,
	}, nil
}

// PanasonicBits is the frame length of a standard Panasonic (Kaseikyo) frame.
const PanasonicBits = 48

// DecomposePanasonic splits a Panasonic payload into the 16-bit address in
// bits 32-47 and the 32-bit data field in bits 0-31.
func DecomposePanasonic(value uint64) (address uint16, data uint32) {
	return uint16((value >> 32) & 0xFFFF), uint32(value & 0xFFFFFFFF)
}

// PanasonicFields decomposes value when it is a 48-bit Panasonic frame.
func PanasonicFields(p Protocol, value uint64, bits uint16) (address uint16, data uint32, ok bool) {
	if p != ProtocolPanasonic || bits != PanasonicBits {
		return 0, 0, false
	}
	address, data = DecomposePanasonic(value)
	return address, data, true
}
