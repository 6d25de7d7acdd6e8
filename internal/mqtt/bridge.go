package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/sweeney/ir-learner/internal/logic"
)

// Bus is the subset of a broker connection the IR bridge needs.
// RealPublisher implements it.
type Bus interface {
	Subscribe(topic string, handler func(payload []byte)) error
	// PublishNow sends payload immediately. It never queues and fails
	// with ErrNotConnected while the broker is unreachable.
	PublishNow(topic string, qos byte, retained bool, payload []byte) error
}

// hexNumber accepts a JSON number or a string in any strconv base-0 form
// ("0x11A807F", "18483327").
type hexNumber uint64

func (h *hexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*h = 0
			return nil
		}
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return err
		}
		*h = hexNumber(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*h = hexNumber(v)
	return nil
}

// DecodedMessage is the wire form of a decoded event published by a remote
// decoder on the decoded topic.
type DecodedMessage struct {
	Protocol string    `json:"protocol"`
	Value    hexNumber `json:"value"`
	Bits     uint16    `json:"bits"`
	Address  hexNumber `json:"address,omitempty"`
	Command  hexNumber `json:"command,omitempty"`
	Repeat   bool      `json:"repeat,omitempty"`
}

// ParseDecoded converts a decoded-event message. Unknown protocol names
// become ProtocolUnknown so the registrar can reject them.
func ParseDecoded(payload []byte, receivedAt time.Time) (logic.DecodedEvent, error) {
	var m DecodedMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return logic.DecodedEvent{}, fmt.Errorf("%w: %v", ErrBadDecoded, err)
	}
	if m.Protocol == "" {
		return logic.DecodedEvent{}, fmt.Errorf("%w: missing protocol", ErrBadDecoded)
	}
	p, _ := logic.ParseProtocol(m.Protocol)
	return logic.DecodedEvent{
		Protocol:   p,
		Value:      uint64(m.Value),
		Bits:       m.Bits,
		Address:    uint32(m.Address),
		Command:    uint32(m.Command),
		Repeat:     m.Repeat,
		ReceivedAt: receivedAt,
	}, nil
}

// TransmitMessage is the wire form of a transmit request sent to a remote
// transmitter on the transmit topic.
type TransmitMessage struct {
	Primitive string `json:"primitive"`
	Value     string `json:"value"`
	Bits      uint16 `json:"bits"`
}

// BridgeReceiver receives decoded events from a remote decoder over MQTT.
type BridgeReceiver struct {
	now    func() time.Time
	log    *slog.Logger
	events chan logic.DecodedEvent

	mu     sync.Mutex
	closed bool
}

// NewBridgeReceiver subscribes to topic on bus. Up to queue events are held
// between polls; the newest are dropped beyond that.
func NewBridgeReceiver(bus Bus, topic string, queue int, now func() time.Time, logger *slog.Logger) (*BridgeReceiver, error) {
	if queue <= 0 {
		queue = 32
	}
	r := &BridgeReceiver{
		now:    now,
		log:    logger,
		events: make(chan logic.DecodedEvent, queue),
	}
	if err := bus.Subscribe(topic, r.handle); err != nil {
		return nil, fmt.Errorf("bridge receiver: %w", err)
	}
	return r, nil
}

func (r *BridgeReceiver) handle(payload []byte) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}

	ev, err := ParseDecoded(payload, r.now())
	if err != nil {
		r.log.Warn("dropping decoded message", "error", err)
		return
	}
	select {
	case r.events <- ev:
	default:
		r.log.Warn("decoded queue full, dropping event", "protocol", ev.Protocol)
	}
}

// TryDecode returns the next queued event without blocking.
func (r *BridgeReceiver) TryDecode() (logic.DecodedEvent, bool, error) {
	select {
	case ev := <-r.events:
		return ev, true, nil
	default:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return logic.DecodedEvent{}, false, ErrClosed
	}
	return logic.DecodedEvent{}, false, nil
}

// Close stops accepting new events.
func (r *BridgeReceiver) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// BridgeTransmitter forwards transmit requests to a remote transmitter.
// It can replay every protocol primitive. Requests are never held for a
// later reconnect; an offline broker is a failed send.
type BridgeTransmitter struct {
	bus   Bus
	topic string
}

// NewBridgeTransmitter publishes requests on topic.
func NewBridgeTransmitter(bus Bus, topic string) *BridgeTransmitter {
	return &BridgeTransmitter{bus: bus, topic: topic}
}

func (t *BridgeTransmitter) send(p logic.Primitive, value uint64, bits uint16) error {
	payload, err := json.Marshal(TransmitMessage{Primitive: string(p), Value: hex(value), Bits: bits})
	if err != nil {
		return fmt.Errorf("format transmit: %w", err)
	}
	if err := t.bus.PublishNow(t.topic, 1, false, payload); err != nil {
		return fmt.Errorf("transmit %s: %w", p, err)
	}
	return nil
}

func (t *BridgeTransmitter) SendNEC(v uint64, b uint16) error  { return t.send(logic.SendNEC, v, b) }
func (t *BridgeTransmitter) SendSony(v uint64, b uint16) error { return t.send(logic.SendSony, v, b) }
func (t *BridgeTransmitter) SendRC5(v uint64, b uint16) error  { return t.send(logic.SendRC5, v, b) }
func (t *BridgeTransmitter) SendRC6(v uint64, b uint16) error  { return t.send(logic.SendRC6, v, b) }
func (t *BridgeTransmitter) SendSAMSUNG(v uint64, b uint16) error {
	return t.send(logic.SendSamsung, v, b)
}
func (t *BridgeTransmitter) SendLG(v uint64, b uint16) error { return t.send(logic.SendLG, v, b) }
func (t *BridgeTransmitter) SendPanasonic64(v uint64, b uint16) error {
	return t.send(logic.SendPanasonic64, v, b)
}
func (t *BridgeTransmitter) SendSharpRaw(v uint64, b uint16) error {
	return t.send(logic.SendSharpRaw, v, b)
}
func (t *BridgeTransmitter) SendMitsubishi(v uint64, b uint16) error {
	return t.send(logic.SendMitsubishi, v, b)
}
func (t *BridgeTransmitter) SendJVC(v uint64, b uint16) error { return t.send(logic.SendJVC, v, b) }
