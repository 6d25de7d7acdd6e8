package control

import "time"

// Presses reports which buttons went from released to pressed on a sample.
type Presses struct {
	Send  bool
	Learn bool
}

// Any reports whether any button was pressed.
func (p Presses) Any() bool {
	return p.Send || p.Learn
}

// buttonState is the debounce state of one button.
type buttonState struct {
	stable       bool
	pending      bool
	hasPending   bool
	pendingSince time.Time
	baselined    bool
}

// Buttons debounces the Send and Learn buttons.
type Buttons struct {
	debounce  time.Duration
	send      buttonState
	learn     buttonState
	baselined bool
}

// NewButtons creates a debouncer. A level must hold for debounce before it
// becomes stable.
func NewButtons(debounce time.Duration) *Buttons {
	return &Buttons{debounce: debounce}
}

// Process takes one sample of both buttons and returns the presses it
// completes. Nothing is emitted until both buttons have a stable baseline,
// so a button held down at startup does not fire.
func (b *Buttons) Process(send, learn bool, now time.Time) Presses {
	sendPressed := b.processButton(&b.send, send, now)
	learnPressed := b.processButton(&b.learn, learn, now)

	if !b.baselined {
		if b.send.baselined && b.learn.baselined {
			b.baselined = true
		}
		return Presses{}
	}

	return Presses{Send: sendPressed, Learn: learnPressed}
}

// processButton returns true on a debounced released->pressed transition.
func (b *Buttons) processButton(s *buttonState, level bool, now time.Time) bool {
	if !s.baselined {
		if !s.hasPending || s.pending != level {
			s.pending = level
			s.hasPending = true
			s.pendingSince = now
			return false
		}
		if now.Sub(s.pendingSince) >= b.debounce {
			s.stable = level
			s.baselined = true
			s.hasPending = false
		}
		return false
	}

	if level == s.stable {
		s.hasPending = false
		return false
	}

	if !s.hasPending || s.pending != level {
		s.pending = level
		s.hasPending = true
		s.pendingSince = now
		return false
	}

	if now.Sub(s.pendingSince) >= b.debounce {
		s.stable = level
		s.hasPending = false
		return level
	}
	return false
}

// isBaselined returns whether both buttons have a stable baseline.
func (b *Buttons) isBaselined() bool {
	return b.baselined
}

// held returns the current stable levels.
func (b *Buttons) held() (send, learn bool) {
	return b.send.stable, b.learn.stable
}
