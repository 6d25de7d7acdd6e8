package ir

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sweeney/ir-learner/internal/logic"
)

// rcProto values from <linux/lirc.h> (enum rc_proto).
const (
	rcProtoUnknown  = 0
	rcProtoRC5      = 2
	rcProtoRC5X20   = 3
	rcProtoJVC      = 5
	rcProtoSony12   = 6
	rcProtoSony15   = 7
	rcProtoSony20   = 8
	rcProtoNEC      = 9
	rcProtoNECX     = 10
	rcProtoNEC32    = 11
	rcProtoRC6_0    = 15
	rcProtoRC6_6A20 = 16
	rcProtoRC6_6A24 = 17
	rcProtoRC6_6A32 = 18
	rcProtoRC6MCE   = 19
	rcProtoSharp    = 20
)

// lirc_scancode flags.
const (
	scancodeFlagToggle = 1
	scancodeFlagRepeat = 2
)

// scancodeSize is sizeof(struct lirc_scancode).
const scancodeSize = 24

// lircScancode mirrors struct lirc_scancode.
type lircScancode struct {
	Timestamp uint64 // CLOCK_MONOTONIC nanoseconds
	Flags     uint16
	RCProto   uint16
	Keycode   uint32
	Scancode  uint64
}

func (s lircScancode) marshal() []byte {
	buf := make([]byte, scancodeSize)
	binary.LittleEndian.PutUint64(buf[0:], s.Timestamp)
	binary.LittleEndian.PutUint16(buf[8:], s.Flags)
	binary.LittleEndian.PutUint16(buf[10:], s.RCProto)
	binary.LittleEndian.PutUint32(buf[12:], s.Keycode)
	binary.LittleEndian.PutUint64(buf[16:], s.Scancode)
	return buf
}

func unmarshalScancode(buf []byte) (lircScancode, error) {
	if len(buf) < scancodeSize {
		return lircScancode{}, fmt.Errorf("short scancode record: %d bytes", len(buf))
	}
	return lircScancode{
		Timestamp: binary.LittleEndian.Uint64(buf[0:]),
		Flags:     binary.LittleEndian.Uint16(buf[8:]),
		RCProto:   binary.LittleEndian.Uint16(buf[10:]),
		Keycode:   binary.LittleEndian.Uint32(buf[12:]),
		Scancode:  binary.LittleEndian.Uint64(buf[16:]),
	}, nil
}

// rxFormat describes how a kernel protocol maps onto a DecodedEvent.
type rxFormat struct {
	protocol logic.Protocol
	// bits is the over-the-air frame length reported for the protocol.
	bits         uint16
	addressShift uint
	addressMask  uint64
	commandMask  uint64
}

var rxFormats = map[uint16]rxFormat{
	rcProtoRC5:      {logic.ProtocolRC5, 14, 8, 0x1F, 0x3F},
	rcProtoRC5X20:   {logic.ProtocolRC5, 20, 16, 0x1F, 0xFF7F},
	rcProtoJVC:      {logic.ProtocolJVC, 16, 8, 0xFF, 0xFF},
	rcProtoSony12:   {logic.ProtocolSony, 12, 16, 0x1F, 0x7F},
	rcProtoSony15:   {logic.ProtocolSony, 15, 16, 0xFF, 0x7F},
	rcProtoSony20:   {logic.ProtocolSony, 20, 16, 0x1F, 0xFF7F},
	rcProtoNEC:      {logic.ProtocolNEC, 32, 8, 0xFF, 0xFF},
	rcProtoNECX:     {logic.ProtocolNEC, 32, 8, 0xFFFF, 0xFF},
	rcProtoNEC32:    {logic.ProtocolNEC, 32, 16, 0xFFFF, 0xFFFF},
	rcProtoRC6_0:    {logic.ProtocolRC6, 20, 8, 0xFF, 0xFF},
	rcProtoRC6_6A20: {logic.ProtocolRC6, 20, 8, 0xFFF, 0xFF},
	rcProtoRC6_6A24: {logic.ProtocolRC6, 24, 8, 0xFFFF, 0xFF},
	rcProtoRC6_6A32: {logic.ProtocolRC6, 32, 16, 0xFFFF, 0xFFFF},
	rcProtoRC6MCE:   {logic.ProtocolRC6, 32, 16, 0xFFFF, 0xFFFF},
	rcProtoSharp:    {logic.ProtocolSharp, 15, 8, 0x1F, 0xFF},
}

// toEvent converts a kernel scancode record. Protocols the daemon does not
// know become ProtocolUnknown with the raw scancode as value.
func (s lircScancode) toEvent(receivedAt time.Time) logic.DecodedEvent {
	ev := logic.DecodedEvent{
		Value:      s.Scancode,
		Repeat:     s.Flags&scancodeFlagRepeat != 0,
		ReceivedAt: receivedAt,
	}
	f, ok := rxFormats[s.RCProto]
	if !ok {
		return ev
	}
	ev.Protocol = f.protocol
	ev.Bits = f.bits
	ev.Address = uint32((s.Scancode >> f.addressShift) & f.addressMask)
	ev.Command = uint32(s.Scancode & f.commandMask)
	return ev
}

// txProto picks the kernel encoder for a transmit primitive. The receive
// path reports kernel scancodes as values, so the value width selects the
// protocol variant within a family.
func txProto(p logic.Primitive, value uint64, bits uint16) (uint16, error) {
	switch p {
	case logic.SendNEC:
		switch {
		case value <= 0xFFFF:
			return rcProtoNEC, nil
		case value <= 0xFFFFFF:
			return rcProtoNECX, nil
		default:
			return rcProtoNEC32, nil
		}
	case logic.SendSony:
		switch bits {
		case 12:
			return rcProtoSony12, nil
		case 15:
			return rcProtoSony15, nil
		case 20:
			return rcProtoSony20, nil
		}
	case logic.SendRC5:
		if bits == 20 {
			return rcProtoRC5X20, nil
		}
		return rcProtoRC5, nil
	case logic.SendRC6:
		switch bits {
		case 20:
			if value <= 0xFFFF {
				return rcProtoRC6_0, nil
			}
			return rcProtoRC6_6A20, nil
		case 24:
			return rcProtoRC6_6A24, nil
		case 32:
			if value&0xFFFF0000 == 0x800F0000 {
				return rcProtoRC6MCE, nil
			}
			return rcProtoRC6_6A32, nil
		}
	case logic.SendSharpRaw:
		return rcProtoSharp, nil
	case logic.SendJVC:
		return rcProtoJVC, nil
	}
	return rcProtoUnknown, fmt.Errorf("%w: %s/%d bits", ErrTransmitUnsupported, p, bits)
}
