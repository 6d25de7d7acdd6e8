package ir

import (
	"github.com/sweeney/ir-learner/internal/logic"
)

// FakeReceiver is a test double that returns scripted decoded events.
type FakeReceiver struct {
	// Events contains the scripted events. Each successful TryDecode consumes one.
	Events []logic.DecodedEvent

	// index tracks current position in Events
	index int

	// Closed tracks if Close was called
	Closed bool

	// DecodeError, if set, will be returned by TryDecode.
	DecodeError error
}

// NewFakeReceiver creates a FakeReceiver with the given events.
func NewFakeReceiver(events []logic.DecodedEvent) *FakeReceiver {
	return &FakeReceiver{Events: events}
}

// TryDecode returns the next scripted event, or false once they are exhausted.
func (f *FakeReceiver) TryDecode() (logic.DecodedEvent, bool, error) {
	if f.DecodeError != nil {
		return logic.DecodedEvent{}, false, f.DecodeError
	}
	if f.index >= len(f.Events) {
		return logic.DecodedEvent{}, false, nil
	}
	ev := f.Events[f.index]
	f.index++
	return ev, true, nil
}

// Push appends an event to the script.
func (f *FakeReceiver) Push(ev logic.DecodedEvent) {
	f.Events = append(f.Events, ev)
}

// Remaining returns the number of unconsumed events.
func (f *FakeReceiver) Remaining() int {
	return len(f.Events) - f.index
}

// Close marks the receiver as closed.
func (f *FakeReceiver) Close() error {
	f.Closed = true
	return nil
}

// Call records one transmitter invocation.
type Call struct {
	Primitive logic.Primitive
	Value     uint64
	Bits      uint16
}

// FakeTransmitter records transmit calls for test assertions.
type FakeTransmitter struct {
	Calls []Call

	// SendError, if set, will be returned by every send.
	SendError error
}

// NewFakeTransmitter creates a FakeTransmitter.
func NewFakeTransmitter() *FakeTransmitter {
	return &FakeTransmitter{}
}

func (f *FakeTransmitter) record(p logic.Primitive, value uint64, bits uint16) error {
	if f.SendError != nil {
		return f.SendError
	}
	f.Calls = append(f.Calls, Call{Primitive: p, Value: value, Bits: bits})
	return nil
}

func (f *FakeTransmitter) SendNEC(v uint64, b uint16) error  { return f.record(logic.SendNEC, v, b) }
func (f *FakeTransmitter) SendSony(v uint64, b uint16) error { return f.record(logic.SendSony, v, b) }
func (f *FakeTransmitter) SendRC5(v uint64, b uint16) error  { return f.record(logic.SendRC5, v, b) }
func (f *FakeTransmitter) SendRC6(v uint64, b uint16) error  { return f.record(logic.SendRC6, v, b) }
func (f *FakeTransmitter) SendSAMSUNG(v uint64, b uint16) error {
	return f.record(logic.SendSamsung, v, b)
}
func (f *FakeTransmitter) SendLG(v uint64, b uint16) error { return f.record(logic.SendLG, v, b) }
func (f *FakeTransmitter) SendPanasonic64(v uint64, b uint16) error {
	return f.record(logic.SendPanasonic64, v, b)
}
func (f *FakeTransmitter) SendSharpRaw(v uint64, b uint16) error {
	return f.record(logic.SendSharpRaw, v, b)
}
func (f *FakeTransmitter) SendMitsubishi(v uint64, b uint16) error {
	return f.record(logic.SendMitsubishi, v, b)
}
func (f *FakeTransmitter) SendJVC(v uint64, b uint16) error { return f.record(logic.SendJVC, v, b) }

// Reset clears recorded calls and errors.
func (f *FakeTransmitter) Reset() {
	f.Calls = nil
	f.SendError = nil
}
