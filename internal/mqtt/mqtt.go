// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/ir-learner/internal/control"
	"github.com/sweeney/ir-learner/internal/logic"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "home/ir-learner"

// Topics holds every topic the daemon uses under one prefix.
type Topics struct {
	Events   string // outcomes, detections, identifications
	System   string // STARTUP, SHUTDOWN, HEARTBEAT, RECONNECTED
	Command  string // incoming operator text commands
	Decoded  string // decoded IR events from a remote bridge
	Transmit string // transmit requests to a remote bridge
}

// NewTopics derives the topic set from prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		Events:   prefix + "/events",
		System:   prefix + "/system",
		Command:  prefix + "/command",
		Decoded:  prefix + "/decoded",
		Transmit: prefix + "/transmit",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a controller report to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(r control.Report) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandSource yields operator text commands received over MQTT.
type CommandSource interface {
	// TryCommand returns the next queued command without blocking.
	TryCommand() (string, bool)
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	IR EventPayload `json:"ir"`
}

// EventPayload contains the report details.
type EventPayload struct {
	Timestamp string      `json:"timestamp"`
	Event     string      `json:"event"`
	Reason    string      `json:"reason,omitempty"`
	Signal    *SignalJSON `json:"signal,omitempty"`
	Button    string      `json:"button,omitempty"`
	Table     string      `json:"table,omitempty"`
}

// SignalJSON is the wire form of a signal. Numbers are hex strings.
type SignalJSON struct {
	Protocol string `json:"protocol"`
	Value    string `json:"value"`
	Bits     uint16 `json:"bits"`
	Address  string `json:"address,omitempty"`
	Command  string `json:"command,omitempty"`
	Data     string `json:"data,omitempty"` // Panasonic data field
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%X", v)
}

// SignalFromLearned converts a learned signal. 48-bit Panasonic frames carry
// their address/data split.
func SignalFromLearned(s logic.LearnedSignal) *SignalJSON {
	sj := &SignalJSON{Protocol: s.Protocol.String(), Value: hex(s.Value), Bits: s.Bits}
	if addr, data, ok := logic.PanasonicFields(s.Protocol, s.Value, s.Bits); ok {
		sj.Address = fmt.Sprintf("0x%04X", addr)
		sj.Data = fmt.Sprintf("0x%08X", data)
	}
	return sj
}

// SignalFromEvent converts a decoded event, keeping non-zero address and command.
func SignalFromEvent(ev logic.DecodedEvent) *SignalJSON {
	sj := &SignalJSON{Protocol: ev.Protocol.String(), Value: hex(ev.Value), Bits: ev.Bits}
	if ev.Address != 0 {
		sj.Address = hex(uint64(ev.Address))
	}
	if ev.Command != 0 {
		sj.Command = hex(uint64(ev.Command))
	}
	return sj
}

// EventName returns the payload event name for a report.
func EventName(r control.Report) string {
	if r.Kind == control.KindOutcome {
		return string(r.Outcome)
	}
	return string(r.Kind)
}

// FormatPayload creates the JSON payload for a controller report.
func FormatPayload(r control.Report) ([]byte, error) {
	ep := EventPayload{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		Event:     EventName(r),
		Reason:    r.Reason,
		Button:    r.Button,
		Table:     r.Table,
	}
	switch {
	case r.Kind == control.KindDetected || r.Kind == control.KindIdentified:
		ep.Signal = SignalFromEvent(r.Event)
	case r.Signal.Committed:
		ep.Signal = SignalFromLearned(r.Signal)
	}
	return json.Marshal(Payload{IR: ep})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
