// Package logic contains pure business logic for learning and replaying IR signals.
// This package has NO external dependencies (no receiver, transmitter, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters or event timestamps.
package logic

import (
	"fmt"
	"strings"
	"time"
)

// Protocol identifies a decoded IR protocol family.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolNEC
	ProtocolSony
	ProtocolRC5
	ProtocolRC6
	ProtocolSamsung
	ProtocolLG
	ProtocolPanasonic
	ProtocolSharp
	ProtocolMitsubishi
	ProtocolJVC
)

var protocolNames = [...]string{
	ProtocolUnknown:    "UNKNOWN",
	ProtocolNEC:        "NEC",
	ProtocolSony:       "SONY",
	ProtocolRC5:        "RC5",
	ProtocolRC6:        "RC6",
	ProtocolSamsung:    "SAMSUNG",
	ProtocolLG:         "LG",
	ProtocolPanasonic:  "PANASONIC",
	ProtocolSharp:      "SHARP",
	ProtocolMitsubishi: "MITSUBISHI",
	ProtocolJVC:        "JVC",
}

// String returns the upper-case protocol name, e.g. "NEC".
func (p Protocol) String() string {
	if p < 0 || int(p) >= len(protocolNames) {
		return fmt.Sprintf("PROTOCOL(%d)", int(p))
	}
	return protocolNames[p]
}

// ParseProtocol converts a protocol name (case insensitive) to a Protocol.
// Unrecognized names return ProtocolUnknown and false.
func ParseProtocol(s string) (Protocol, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range protocolNames {
		if i == int(ProtocolUnknown) {
			continue
		}
		if name == s {
			return Protocol(i), true
		}
	}
	return ProtocolUnknown, false
}

// DecodedEvent is one decoded IR burst as delivered by the external decoder.
type DecodedEvent struct {
	Protocol Protocol
	Value    uint64
	Bits     uint16
	// Address and Command are populated by decoders that split the payload.
	// Zero means "not populated" for some protocols.
	Address uint32
	Command uint32
	// Repeat is the decoder's hardware auto-repeat marker.
	Repeat     bool
	ReceivedAt time.Time
}

// SameSignal reports whether two events carry the same (protocol, value, bits) triple.
func (e DecodedEvent) SameSignal(o DecodedEvent) bool {
	return e.Protocol == o.Protocol && e.Value == o.Value && e.Bits == o.Bits
}

// LearnedSignal is the single replayable signal slot.
// The zero value is the empty slot.
type LearnedSignal struct {
	Protocol  Protocol
	Value     uint64
	Bits      uint16
	Committed bool
}

// Matches reports whether the event carries this signal's triple.
func (s LearnedSignal) Matches(e DecodedEvent) bool {
	return s.Protocol == e.Protocol && s.Value == e.Value && s.Bits == e.Bits
}

// Mode selects which engine consumes incoming decoded events.
type Mode string

const (
	ModeSending  Mode = "SENDING"
	ModeLearning Mode = "LEARNING"
)

// Outcome is the result of the last operator-visible operation.
type Outcome string

const (
	OutcomeNone       Outcome = ""
	OutcomeCommitted  Outcome = "COMMITTED"
	OutcomeMismatched Outcome = "MISMATCHED"
	OutcomeTimedOut   Outcome = "TIMED_OUT"
	OutcomeSent       Outcome = "SENT"
	OutcomeSendFailed Outcome = "SEND_FAILED"
)

// Rejection explains why the registrar dropped an event.
type Rejection string

const (
	RejectNone                Rejection = ""
	RejectRepeatFlag          Rejection = "repeat_flag"
	RejectRepeatWindow        Rejection = "repeat_window"
	RejectTooShort            Rejection = "too_short"
	RejectUnsupportedProtocol Rejection = "unsupported_protocol"
)

// IsNoise reports whether the rejection is one of the silently dropped noise kinds.
func (r Rejection) IsNoise() bool {
	return r == RejectRepeatFlag || r == RejectRepeatWindow || r == RejectTooShort
}

// Default timing and filtering parameters.
const (
	DefaultRepeatIgnore   = 500 * time.Millisecond
	DefaultReceiveTimeout = 10 * time.Second
	DefaultMinBits        = 20
	RegistrationSamples   = 3
)

// Params holds the registration and matching thresholds.
type Params struct {
	// RepeatIgnore drops events closer than this to the last accepted one.
	RepeatIgnore time.Duration
	// ReceiveTimeout discards a partially filled buffer.
	ReceiveTimeout time.Duration
	// MinBits is the shortest frame treated as a real signal.
	MinBits uint16
}

// DefaultParams returns the stock thresholds.
func DefaultParams() Params {
	return Params{
		RepeatIgnore:   DefaultRepeatIgnore,
		ReceiveTimeout: DefaultReceiveTimeout,
		MinBits:        DefaultMinBits,
	}
}
