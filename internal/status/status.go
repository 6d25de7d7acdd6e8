// Package status provides a thread-safe status tracker for the ir-learner daemon.
// It is read by HTTP handlers, the websocket feed and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/ir-learner/internal/control"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs           int64
	DebounceMs       int64
	HeartbeatMs      int64
	RepeatIgnoreMs   int64
	ReceiveTimeoutMs int64
	MinBits          uint16
	Broker           string
	Prefix           string
	HTTPAddr         string
	Receiver         string // "lirc" or "mqtt"
	Transmitter      string // "lirc" or "mqtt"
	Profiles         []string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Control       control.Status
	BootID        string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTBuffered  int
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
// Every tracker gets a fresh boot id.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    uuid.NewString(),
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the controller view.
// Called from runLoop on every tick.
func (t *Tracker) Update(st control.Status) {
	t.mu.Lock()
	t.snap.Control = st
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBuffered sets the number of messages waiting for the broker.
func (t *Tracker) SetMQTTBuffered(n int) {
	t.mu.Lock()
	t.snap.MQTTBuffered = n
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Config.Profiles = append([]string(nil), s.Config.Profiles...)
	s.Now = time.Now()
	return s
}
