package logic

import "time"

// Registrar collects decoded events while learning and commits a signal
// once RegistrationSamples consecutive accepted events agree.
type Registrar struct {
	params Params

	buffer [RegistrationSamples]DecodedEvent
	count  int

	// Time of the last accepted event; zero when nothing was accepted
	// since the last reset.
	lastAccepted time.Time
	// Origin of the receive timeout window.
	timeoutOrigin time.Time

	learned LearnedSignal
}

// RegistrationResult describes what OnEvent did with an event.
type RegistrationResult struct {
	// Accepted is true when the event was appended to the buffer.
	Accepted bool
	// Rejection is set when the event was dropped without any state change.
	Rejection Rejection
	// Outcome is OutcomeCommitted or OutcomeMismatched once the buffer
	// filled up, OutcomeNone otherwise.
	Outcome Outcome
	// Progress is the buffer count after the event was handled.
	Progress int
	// Signal is the newly committed signal when Outcome is OutcomeCommitted.
	Signal LearnedSignal
}

// NewRegistrar creates a registrar with an empty learned signal.
func NewRegistrar(params Params) *Registrar {
	return &Registrar{params: params}
}

// StartLearning empties the buffer and arms a fresh timeout window.
func (r *Registrar) StartLearning(now time.Time) {
	r.reset(now)
}

// Cancel discards an in-progress buffer. The learned signal is untouched.
func (r *Registrar) Cancel(now time.Time) {
	r.reset(now)
}

func (r *Registrar) reset(now time.Time) {
	r.buffer = [RegistrationSamples]DecodedEvent{}
	r.count = 0
	r.lastAccepted = time.Time{}
	r.timeoutOrigin = now
}

// OnEvent handles one decoded event while in learning mode.
// The event's ReceivedAt is used as the current time.
func (r *Registrar) OnEvent(ev DecodedEvent) RegistrationResult {
	if rej := r.check(ev); rej != RejectNone {
		return RegistrationResult{Rejection: rej, Progress: r.count}
	}

	r.buffer[r.count] = ev
	r.count++
	r.lastAccepted = ev.ReceivedAt
	r.timeoutOrigin = ev.ReceivedAt

	res := RegistrationResult{Accepted: true, Progress: r.count}
	if r.count < RegistrationSamples {
		return res
	}

	if !r.verify() {
		r.reset(ev.ReceivedAt)
		res.Outcome = OutcomeMismatched
		res.Progress = 0
		return res
	}

	first := r.buffer[0]
	r.learned = LearnedSignal{
		Protocol:  first.Protocol,
		Value:     first.Value,
		Bits:      first.Bits,
		Committed: true,
	}
	r.reset(ev.ReceivedAt)
	res.Outcome = OutcomeCommitted
	res.Progress = 0
	res.Signal = r.learned
	return res
}

// check applies the rejection filters in order. It has no side effects.
func (r *Registrar) check(ev DecodedEvent) Rejection {
	if ev.Repeat {
		return RejectRepeatFlag
	}
	if !r.lastAccepted.IsZero() && ev.ReceivedAt.Sub(r.lastAccepted) < r.params.RepeatIgnore {
		return RejectRepeatWindow
	}
	if ev.Bits < r.params.MinBits {
		return RejectTooShort
	}
	if ev.Protocol == ProtocolUnknown {
		return RejectUnsupportedProtocol
	}
	return RejectNone
}

// verify reports whether every buffered sample equals the first one.
func (r *Registrar) verify() bool {
	for i := 1; i < r.count; i++ {
		if !r.buffer[0].SameSignal(r.buffer[i]) {
			return false
		}
	}
	return true
}

// CheckTimeout discards a partially filled buffer once the receive timeout
// has elapsed since the last accepted event. Returns true if it timed out.
// An empty buffer never times out.
func (r *Registrar) CheckTimeout(now time.Time) bool {
	if r.count == 0 {
		return false
	}
	if now.Sub(r.timeoutOrigin) <= r.params.ReceiveTimeout {
		return false
	}
	r.reset(now)
	return true
}

// Progress returns the number of buffered samples (0 to RegistrationSamples).
func (r *Registrar) Progress() int {
	return r.count
}

// Learned returns a copy of the learned signal slot.
func (r *Registrar) Learned() LearnedSignal {
	return r.learned
}
