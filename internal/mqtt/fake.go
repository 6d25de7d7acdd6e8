package mqtt

import (
	"github.com/sweeney/ir-learner/internal/control"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Reports contains all controller reports that were published.
	Reports []control.Report

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// Commands is the queue served by TryCommand.
	Commands []string

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the report.
func (f *FakePublisher) Publish(r control.Report) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Reports = append(f.Reports, r)

	payload, err := FormatPayload(r)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// TryCommand pops the next queued command.
func (f *FakePublisher) TryCommand() (string, bool) {
	if len(f.Commands) == 0 {
		return "", false
	}
	c := f.Commands[0]
	f.Commands = f.Commands[1:]
	return c, true
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Reports = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Commands = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}

// FakeBus is an in-memory Bus. Deliver feeds a payload to subscribers.
type FakeBus struct {
	Handlers  map[string][]func(payload []byte)
	Published []FakeMessage

	SubscribeError error
	PublishError   error

	// Offline makes PublishNow fail with ErrNotConnected.
	Offline bool
}

// FakeMessage is one message published on a FakeBus.
type FakeMessage struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// NewFakeBus creates an empty FakeBus.
func NewFakeBus() *FakeBus {
	return &FakeBus{Handlers: make(map[string][]func(payload []byte))}
}

// Subscribe records handler for topic.
func (b *FakeBus) Subscribe(topic string, handler func(payload []byte)) error {
	if b.SubscribeError != nil {
		return b.SubscribeError
	}
	b.Handlers[topic] = append(b.Handlers[topic], handler)
	return nil
}

// PublishNow records the message.
func (b *FakeBus) PublishNow(topic string, qos byte, retained bool, payload []byte) error {
	if b.Offline {
		return ErrNotConnected
	}
	if b.PublishError != nil {
		return b.PublishError
	}
	b.Published = append(b.Published, FakeMessage{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	return nil
}

// Deliver hands payload to every handler subscribed to topic.
func (b *FakeBus) Deliver(topic string, payload []byte) {
	for _, h := range b.Handlers[topic] {
		h(payload)
	}
}
