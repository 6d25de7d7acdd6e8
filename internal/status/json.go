package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/ir-learner/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	BootID        string       `json:"boot_id"`
	Mode          string       `json:"mode"`
	Progress      int          `json:"progress"`
	Learned       *SignalJSON  `json:"learned,omitempty"`
	LastOutcome   string       `json:"last_outcome,omitempty"`
	LastReason    string       `json:"last_reason,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SignalJSON is the learned signal. Numbers are hex strings; 48-bit
// Panasonic frames also carry their address/data split.
type SignalJSON struct {
	Protocol string `json:"protocol"`
	Value    string `json:"value"`
	Bits     uint16 `json:"bits"`
	Address  string `json:"address,omitempty"`
	Data     string `json:"data,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Buffered  int    `json:"buffered"`
}

// CountsJSON is the JSON representation of controller counters.
type CountsJSON struct {
	Decoded    int            `json:"decoded"`
	Committed  int            `json:"committed"`
	Mismatched int            `json:"mismatched"`
	TimedOut   int            `json:"timed_out"`
	Sent       int            `json:"sent"`
	SendFailed int            `json:"send_failed"`
	Detected   int            `json:"detected"`
	Identified int            `json:"identified"`
	Rejected   map[string]int `json:"rejected"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs           int64    `json:"poll_ms"`
	DebounceMs       int64    `json:"debounce_ms"`
	HeartbeatMs      int64    `json:"heartbeat_ms"`
	RepeatIgnoreMs   int64    `json:"repeat_ignore_ms"`
	ReceiveTimeoutMs int64    `json:"receive_timeout_ms"`
	MinBits          uint16   `json:"min_bits"`
	Broker           string   `json:"broker"`
	Prefix           string   `json:"prefix"`
	HTTPAddr         string   `json:"http_addr"`
	Receiver         string   `json:"receiver"`
	Transmitter      string   `json:"transmitter"`
	Profiles         []string `json:"profiles,omitempty"`
}

func learnedJSON(s logic.LearnedSignal) *SignalJSON {
	if !s.Committed {
		return nil
	}
	sj := &SignalJSON{
		Protocol: s.Protocol.String(),
		Value:    fmt.Sprintf("0x%X", s.Value),
		Bits:     s.Bits,
	}
	if addr, data, ok := logic.PanasonicFields(s.Protocol, s.Value, s.Bits); ok {
		sj.Address = fmt.Sprintf("0x%04X", addr)
		sj.Data = fmt.Sprintf("0x%08X", data)
	}
	return sj
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Control
	mode := string(c.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}

	return StatusInner{
		BootID:        snap.BootID,
		Mode:          mode,
		Progress:      c.Progress,
		Learned:       learnedJSON(c.Learned),
		LastOutcome:   string(c.LastOutcome),
		LastReason:    c.LastReason,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Buffered: snap.MQTTBuffered},
		Counts: CountsJSON{
			Decoded:    c.Counts.Decoded,
			Committed:  c.Counts.Committed,
			Mismatched: c.Counts.Mismatched,
			TimedOut:   c.Counts.TimedOut,
			Sent:       c.Counts.Sent,
			SendFailed: c.Counts.SendFailed,
			Detected:   c.Counts.Detected,
			Identified: c.Counts.Identified,
			Rejected: map[string]int{
				string(logic.RejectRepeatFlag):          c.Counts.RejectedRepeatFlag,
				string(logic.RejectRepeatWindow):        c.Counts.RejectedRepeatWindow,
				string(logic.RejectTooShort):            c.Counts.RejectedTooShort,
				string(logic.RejectUnsupportedProtocol): c.Counts.RejectedUnsupported,
			},
		},
		Config: ConfigJSON{
			PollMs:           snap.Config.PollMs,
			DebounceMs:       snap.Config.DebounceMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			RepeatIgnoreMs:   snap.Config.RepeatIgnoreMs,
			ReceiveTimeoutMs: snap.Config.ReceiveTimeoutMs,
			MinBits:          snap.Config.MinBits,
			Broker:           snap.Config.Broker,
			Prefix:           snap.Config.Prefix,
			HTTPAddr:         snap.Config.HTTPAddr,
			Receiver:         snap.Config.Receiver,
			Transmitter:      snap.Config.Transmitter,
			Profiles:         snap.Config.Profiles,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatCompactJSON returns the same document as FormatJSON on one line.
// Used for the websocket feed.
func FormatCompactJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
