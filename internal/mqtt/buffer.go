package mqtt

// DefaultBufferSize is how many messages are kept while the broker is unreachable.
const DefaultBufferSize = 100

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox queues messages while the broker is down. A retained message
// supersedes any queued retained message on the same topic, so a long
// outage replays one STARTUP/HEARTBEAT state instead of all of them.
// When full the oldest message is dropped.
// Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	msgs    []bufferedMsg
	limit   int
	dropped int // since the last drain
}

func newOutbox(limit int) *outbox {
	if limit <= 0 {
		limit = DefaultBufferSize
	}
	return &outbox{msgs: make([]bufferedMsg, 0, limit), limit: limit}
}

// push queues msg. It returns true only for the first drop since the
// last drain.
func (o *outbox) push(msg bufferedMsg) bool {
	if msg.retained {
		for i, m := range o.msgs {
			if m.retained && m.topic == msg.topic {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				break
			}
		}
	}

	first := false
	if len(o.msgs) == o.limit {
		o.msgs = append(o.msgs[:0], o.msgs[1:]...)
		o.dropped++
		first = o.dropped == 1
	}
	o.msgs = append(o.msgs, msg)
	return first
}

// drain returns the queued messages oldest first, plus how many were
// dropped, and empties the outbox.
func (o *outbox) drain() ([]bufferedMsg, int) {
	dropped := o.dropped
	o.dropped = 0
	if len(o.msgs) == 0 {
		return nil, dropped
	}
	out := make([]bufferedMsg, len(o.msgs))
	copy(out, o.msgs)
	o.msgs = o.msgs[:0]
	return out, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
