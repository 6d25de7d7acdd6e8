package logic

import "time"

// Matcher detects live recurrences of the learned signal while sending.
type Matcher struct {
	repeatIgnore time.Duration
	lastMatch    time.Time
}

// NewMatcher creates a matcher that suppresses matches closer than
// repeatIgnore to the previous one.
func NewMatcher(repeatIgnore time.Duration) *Matcher {
	return &Matcher{repeatIgnore: repeatIgnore}
}

// Matches reports whether ev is a fresh press of the learned signal.
// Only a positive match moves the repeat window.
func (m *Matcher) Matches(ev DecodedEvent, learned LearnedSignal) bool {
	if !learned.Committed {
		return false
	}
	if ev.Repeat {
		return false
	}
	if !m.lastMatch.IsZero() && ev.ReceivedAt.Sub(m.lastMatch) < m.repeatIgnore {
		return false
	}
	if !learned.Matches(ev) {
		return false
	}
	m.lastMatch = ev.ReceivedAt
	return true
}
