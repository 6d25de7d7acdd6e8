// Package config defines daemon configuration and its layered loading.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/ir-learner/internal/gpio"
	"github.com/sweeney/ir-learner/internal/logic"
	"github.com/sweeney/ir-learner/internal/mqtt"
)

// IR backends.
const (
	BackendLIRC = "lirc"
	BackendMQTT = "mqtt"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Poll is the control loop period.
	Poll time.Duration `koanf:"poll"`

	// Heartbeat is the system heartbeat interval; 0 disables it.
	Heartbeat time.Duration `koanf:"heartbeat"`

	// SentPause and ErrorPause hold the loop after a send result so the
	// operator can read it.
	SentPause  time.Duration `koanf:"sent_pause"`
	ErrorPause time.Duration `koanf:"error_pause"`

	Learning LearningConfig `koanf:"learning"`
	Buttons  ButtonsConfig  `koanf:"buttons"`
	IR       IRConfig       `koanf:"ir"`
	MQTT     MQTTConfig     `koanf:"mqtt"`
	HTTP     HTTPConfig     `koanf:"http"`

	// Profiles lists extra fingerprint profile files (YAML).
	Profiles []string `koanf:"profiles"`
}

// LearningConfig holds registration and matching thresholds.
type LearningConfig struct {
	RepeatIgnore   time.Duration `koanf:"repeat_ignore"`
	ReceiveTimeout time.Duration `koanf:"receive_timeout"`
	MinBits        uint16        `koanf:"min_bits"`
}

// ButtonsConfig selects the GPIO lines of the operator buttons.
type ButtonsConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Chip     string        `koanf:"chip"`
	PinSend  int           `koanf:"pin_send"`
	PinLearn int           `koanf:"pin_learn"`
	Debounce time.Duration `koanf:"debounce"`
}

// IRConfig selects where decoded events come from and where frames go.
type IRConfig struct {
	Receiver    string `koanf:"receiver"`
	Transmitter string `koanf:"transmitter"`
	RxDevice    string `koanf:"rx_device"`
	TxDevice    string `koanf:"tx_device"`
	BridgeQueue int    `koanf:"bridge_queue"`
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker     string `koanf:"broker"`
	ClientID   string `koanf:"client_id"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
	Prefix     string `koanf:"prefix"`
	BufferSize int    `koanf:"buffer_size"`
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	// Addr is the listen address; empty disables the server.
	Addr string `koanf:"addr"`
	// PushInterval is the websocket snapshot period.
	PushInterval time.Duration `koanf:"push_interval"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:   "info",
		Poll:       20 * time.Millisecond,
		Heartbeat:  15 * time.Minute,
		SentPause:  time.Second,
		ErrorPause: 2 * time.Second,
		Learning: LearningConfig{
			RepeatIgnore:   logic.DefaultRepeatIgnore,
			ReceiveTimeout: logic.DefaultReceiveTimeout,
			MinBits:        logic.DefaultMinBits,
		},
		Buttons: ButtonsConfig{
			Enabled:  true,
			Chip:     "gpiochip0",
			PinSend:  gpio.PinSend,
			PinLearn: gpio.PinLearn,
			Debounce: 50 * time.Millisecond,
		},
		IR: IRConfig{
			Receiver:    BackendLIRC,
			Transmitter: BackendLIRC,
			RxDevice:    "/dev/lirc0",
			TxDevice:    "/dev/lirc1",
			BridgeQueue: 32,
		},
		MQTT: MQTTConfig{
			Broker:     "tcp://192.168.1.200:1883",
			ClientID:   "ir-learner",
			Prefix:     mqtt.DefaultPrefix,
			BufferSize: mqtt.DefaultBufferSize,
		},
		HTTP: HTTPConfig{
			Addr:         ":80",
			PushInterval: time.Second,
		},
	}
}

// Params returns the learning thresholds.
func (c *Config) Params() logic.Params {
	return logic.Params{
		RepeatIgnore:   c.Learning.RepeatIgnore,
		ReceiveTimeout: c.Learning.ReceiveTimeout,
		MinBits:        c.Learning.MinBits,
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log_level %q (want debug, info, warn or error)", ErrInvalidConfig, c.LogLevel)
	}
	if c.Poll <= 0 {
		return fmt.Errorf("%w: poll must be positive", ErrInvalidConfig)
	}
	if c.Heartbeat < 0 || c.SentPause < 0 || c.ErrorPause < 0 {
		return fmt.Errorf("%w: heartbeat and pauses must not be negative", ErrInvalidConfig)
	}
	if c.Learning.RepeatIgnore < 0 {
		return fmt.Errorf("%w: learning.repeat_ignore must not be negative", ErrInvalidConfig)
	}
	if c.Learning.ReceiveTimeout <= 0 {
		return fmt.Errorf("%w: learning.receive_timeout must be positive", ErrInvalidConfig)
	}
	if c.Buttons.Enabled && c.Buttons.PinSend == c.Buttons.PinLearn {
		return fmt.Errorf("%w: buttons.pin_send and buttons.pin_learn are both %d", ErrInvalidConfig, c.Buttons.PinSend)
	}
	if err := validBackend("ir.receiver", c.IR.Receiver); err != nil {
		return err
	}
	if err := validBackend("ir.transmitter", c.IR.Transmitter); err != nil {
		return err
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker must not be empty", ErrInvalidConfig)
	}
	return nil
}

func validBackend(key, v string) error {
	if v != BackendLIRC && v != BackendMQTT {
		return fmt.Errorf("%w: %s %q (want %s or %s)", ErrInvalidConfig, key, v, BackendLIRC, BackendMQTT)
	}
	return nil
}
