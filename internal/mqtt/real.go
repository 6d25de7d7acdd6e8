package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/ir-learner/internal/control"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	commandQueue   = 16
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Topics     Topics
	BufferSize int
}

type subscription struct {
	topic   string
	qos     byte
	handler func(payload []byte)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are kept in an outbox and flushed on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    *slog.Logger
	now    func() time.Time

	mu            sync.Mutex
	buffer        *outbox
	subs          []subscription
	connectedOnce bool

	commands chan string
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// is unreachable at startup the client keeps retrying in the background and
// publishes are buffered meanwhile.
func NewRealPublisher(opts Options, now func() time.Time, logger *slog.Logger) (*RealPublisher, error) {
	if opts.ClientID == "" {
		opts.ClientID = "ir-learner"
	}
	p := &RealPublisher{
		topics:   opts.Topics,
		log:      logger,
		now:      now,
		buffer:   newOutbox(opts.BufferSize),
		commands: make(chan string, commandQueue),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: now(), Event: "SHUTDOWN", Reason: "MQTT_DISCONNECT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(opts.Topics.System, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn("mqtt connection lost", "error", err)
		})
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	// Commands are always wanted; register before connecting so the first
	// onConnect subscribes.
	p.subs = append(p.subs, subscription{topic: opts.Topics.Command, qos: 1, handler: p.handleCommand})

	p.client = paho.NewClient(co)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.log.Warn("mqtt broker not reachable yet, buffering", "broker", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connectedOnce
	p.connectedOnce = true
	subs := append([]subscription(nil), p.subs...)
	pending, dropped := p.buffer.drain()
	p.mu.Unlock()

	for _, s := range subs {
		handler := s.handler
		token := c.Subscribe(s.topic, s.qos, func(_ paho.Client, m paho.Message) {
			handler(m.Payload())
		})
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			p.log.Error("mqtt subscribe failed", "topic", s.topic, "error", token.Error())
		}
	}

	if len(pending) > 0 {
		p.log.Info("mqtt flushing buffered messages", "count", len(pending), "dropped", dropped)
	}
	for _, m := range pending {
		if err := p.send(m); err != nil {
			p.log.Warn("mqtt flush failed", "topic", m.topic, "error", err)
		}
	}

	if reconnect {
		p.log.Info("mqtt reconnected")
		if err := p.PublishSystem(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"}); err != nil {
			p.log.Warn("failed to publish reconnect event", "error", err)
		}
	}
}

func (p *RealPublisher) handleCommand(payload []byte) {
	select {
	case p.commands <- string(payload):
	default:
		p.log.Warn("mqtt command queue full, dropping", "command", string(payload))
	}
}

// TryCommand returns the next queued operator command.
func (p *RealPublisher) TryCommand() (string, bool) {
	select {
	case c := <-p.commands:
		return c, true
	default:
		return "", false
	}
}

// Subscribe registers handler for topic. The subscription is renewed on
// every reconnect.
func (p *RealPublisher) Subscribe(topic string, handler func(payload []byte)) error {
	s := subscription{topic: topic, qos: 0, handler: handler}
	p.mu.Lock()
	p.subs = append(p.subs, s)
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		return nil
	}
	token := p.client.Subscribe(topic, s.qos, func(_ paho.Client, m paho.Message) {
		handler(m.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// PublishNow publishes payload on topic without going through the outbox.
func (p *RealPublisher) PublishNow(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	return p.send(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
}

// Publish sends a controller report to the MQTT broker.
func (p *RealPublisher) Publish(r control.Report) error {
	payload, err := FormatPayload(r)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: p.topics.Events, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) so lifecycle events survive a flaky link
	return p.publish(bufferedMsg{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.hold(m)
		return nil
	}
	if err := p.send(m); err != nil {
		p.hold(m)
		return err
	}
	return nil
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *RealPublisher) hold(m bufferedMsg) {
	p.mu.Lock()
	dropped := p.buffer.push(m)
	p.mu.Unlock()
	if dropped {
		p.log.Warn("mqtt buffer full, dropping oldest", "limit", p.buffer.limit)
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
