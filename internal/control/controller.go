// Package control wires the learning and matching engines to the operator
// surface. It owns the mode and every piece of mutable IR state; only the
// run loop calls into it.
package control

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/sweeney/ir-learner/internal/fingerprint"
	"github.com/sweeney/ir-learner/internal/ir"
	"github.com/sweeney/ir-learner/internal/logic"
)

// Send failure reasons reported to the operator.
const (
	ReasonNoSignal    = "no signal registered"
	ReasonUnsupported = "unsupported protocol"
)

// ReportKind classifies a Report.
type ReportKind string

const (
	KindOutcome    ReportKind = "OUTCOME"
	KindDetected   ReportKind = "DETECTED"
	KindIdentified ReportKind = "IDENTIFIED"
)

// Report is one operator-visible result.
type Report struct {
	Timestamp time.Time
	Kind      ReportKind

	// Outcome and Reason are set for KindOutcome.
	Outcome logic.Outcome
	Reason  string

	// Signal is the learned signal involved (committed, sent or detected).
	Signal logic.LearnedSignal

	// Event is the decoded event behind a detection or identification.
	Event logic.DecodedEvent

	// Button and Table are set for KindIdentified.
	Button string
	Table  string
}

// Counts tracks everything the controller has seen since startup.
type Counts struct {
	Decoded int

	Committed  int
	Mismatched int
	TimedOut   int
	Sent       int
	SendFailed int

	RejectedRepeatFlag   int
	RejectedRepeatWindow int
	RejectedTooShort     int
	RejectedUnsupported  int

	Detected   int
	Identified int
}

// Status is a point-in-time view of the controller.
type Status struct {
	Mode        logic.Mode
	Progress    int
	Learned     logic.LearnedSignal
	LastOutcome logic.Outcome
	LastReason  string
	Counts      Counts
}

// HeartbeatData is returned by CheckHeartbeat when a heartbeat is due.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}

// Observer is notified of decoded events, rejections and reports.
type Observer interface {
	Decoded(ev logic.DecodedEvent)
	Rejected(r logic.Rejection)
	Reported(r Report)
}

type nopObserver struct{}

func (nopObserver) Decoded(logic.DecodedEvent) {}
func (nopObserver) Rejected(logic.Rejection)   {}
func (nopObserver) Reported(Report)            {}

// Controller routes decoded events and operator commands.
type Controller struct {
	mode         logic.Mode
	registrar    *logic.Registrar
	matcher      *logic.Matcher
	fingerprints *fingerprint.Set
	tx           ir.Transmitter
	observer     Observer
	log          *slog.Logger

	startTime     time.Time
	lastHeartbeat time.Time

	lastOutcome logic.Outcome
	lastReason  string
	counts      Counts
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Controller in Sending mode with an empty learned slot.
// fps may be nil to disable identification.
func New(params logic.Params, fps *fingerprint.Set, tx ir.Transmitter, startTime time.Time, opts ...Option) *Controller {
	if fps == nil {
		fps = fingerprint.NewSet()
	}
	c := &Controller{
		mode:          logic.ModeSending,
		registrar:     logic.NewRegistrar(params),
		matcher:       logic.NewMatcher(params.RepeatIgnore),
		fingerprints:  fps,
		tx:            tx,
		observer:      nopObserver{},
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the current mode.
func (c *Controller) Mode() logic.Mode {
	return c.mode
}

// ToggleLearning flips between Sending and Learning and returns the new mode.
// Leaving Learning discards any partially filled buffer.
func (c *Controller) ToggleLearning(now time.Time) logic.Mode {
	if c.mode == logic.ModeLearning {
		c.registrar.Cancel(now)
		c.mode = logic.ModeSending
		c.log.Info("learning cancelled")
		return c.mode
	}
	c.registrar.StartLearning(now)
	c.mode = logic.ModeLearning
	c.log.Info("learning started", "samples", logic.RegistrationSamples)
	return c.mode
}

// RequestSend replays the learned signal. It is ignored while learning and
// returns false in that case.
func (c *Controller) RequestSend(now time.Time) (Report, bool) {
	if c.mode != logic.ModeSending {
		c.log.Debug("send ignored while learning")
		return Report{}, false
	}

	learned := c.registrar.Learned()
	r := Report{Timestamp: now, Kind: KindOutcome, Signal: learned}

	req, err := logic.Encode(learned)
	if err == nil {
		err = ir.Send(c.tx, req)
	}
	switch {
	case err == nil:
		r.Outcome = logic.OutcomeSent
		c.log.Info("sent", "protocol", req.Protocol, "primitive", req.Primitive,
			"value", hex(req.Value), "bits", req.Bits)
	case errors.Is(err, logic.ErrNoSignalRegistered):
		r.Outcome, r.Reason = logic.OutcomeSendFailed, ReasonNoSignal
	case errors.Is(err, logic.ErrUnsupportedProtocol):
		r.Outcome, r.Reason = logic.OutcomeSendFailed, ReasonUnsupported
	default:
		r.Outcome, r.Reason = logic.OutcomeSendFailed, err.Error()
	}
	if r.Outcome == logic.OutcomeSendFailed {
		c.log.Warn("send failed", "reason", r.Reason)
	}

	c.record(r)
	return r, true
}

// HandleEvent routes one decoded event to the engine for the current mode.
func (c *Controller) HandleEvent(ev logic.DecodedEvent) []Report {
	c.counts.Decoded++
	c.observer.Decoded(ev)

	if c.mode == logic.ModeLearning {
		return c.learn(ev)
	}
	return c.watch(ev)
}

func (c *Controller) learn(ev logic.DecodedEvent) []Report {
	res := c.registrar.OnEvent(ev)

	if res.Rejection != logic.RejectNone {
		c.countRejection(res.Rejection)
		c.observer.Rejected(res.Rejection)
		c.log.Debug("event rejected", "reason", res.Rejection, "protocol", ev.Protocol,
			"value", hex(ev.Value), "bits", ev.Bits)
		return nil
	}

	switch res.Outcome {
	case logic.OutcomeCommitted:
		c.mode = logic.ModeSending
		r := Report{Timestamp: ev.ReceivedAt, Kind: KindOutcome, Outcome: logic.OutcomeCommitted, Signal: res.Signal}
		c.log.Info("signal committed", "protocol", res.Signal.Protocol,
			"value", hex(res.Signal.Value), "bits", res.Signal.Bits)
		c.record(r)
		return []Report{r}
	case logic.OutcomeMismatched:
		r := Report{Timestamp: ev.ReceivedAt, Kind: KindOutcome, Outcome: logic.OutcomeMismatched}
		c.log.Info("samples disagree, restarting registration")
		c.record(r)
		return []Report{r}
	}

	c.log.Info("sample accepted", "progress", res.Progress, "of", logic.RegistrationSamples,
		"protocol", ev.Protocol, "value", hex(ev.Value))
	return nil
}

func (c *Controller) watch(ev logic.DecodedEvent) []Report {
	if ev.Repeat {
		return nil
	}

	var reports []Report
	learned := c.registrar.Learned()
	if c.matcher.Matches(ev, learned) {
		r := Report{Timestamp: ev.ReceivedAt, Kind: KindDetected, Signal: learned, Event: ev}
		c.log.Info("learned signal detected", "protocol", ev.Protocol, "value", hex(ev.Value))
		c.record(r)
		reports = append(reports, r)
	}

	if name, table, ok := c.fingerprints.Identify(ev); ok {
		r := Report{Timestamp: ev.ReceivedAt, Kind: KindIdentified, Event: ev, Button: name, Table: table}
		c.log.Info("button identified", "button", name, "table", table, "value", hex(ev.Value))
		c.record(r)
		reports = append(reports, r)
	}
	return reports
}

// Tick runs the registration timeout check. It reports TIMED_OUT at most once
// per abandoned buffer.
func (c *Controller) Tick(now time.Time) []Report {
	if c.mode != logic.ModeLearning {
		return nil
	}
	if !c.registrar.CheckTimeout(now) {
		return nil
	}
	r := Report{Timestamp: now, Kind: KindOutcome, Outcome: logic.OutcomeTimedOut}
	c.log.Info("registration timed out")
	c.record(r)
	return []Report{r}
}

func (c *Controller) record(r Report) {
	switch r.Kind {
	case KindOutcome:
		c.lastOutcome = r.Outcome
		c.lastReason = r.Reason
		switch r.Outcome {
		case logic.OutcomeCommitted:
			c.counts.Committed++
		case logic.OutcomeMismatched:
			c.counts.Mismatched++
		case logic.OutcomeTimedOut:
			c.counts.TimedOut++
		case logic.OutcomeSent:
			c.counts.Sent++
		case logic.OutcomeSendFailed:
			c.counts.SendFailed++
		}
	case KindDetected:
		c.counts.Detected++
	case KindIdentified:
		c.counts.Identified++
	}
	c.observer.Reported(r)
}

func (c *Controller) countRejection(r logic.Rejection) {
	switch r {
	case logic.RejectRepeatFlag:
		c.counts.RejectedRepeatFlag++
	case logic.RejectRepeatWindow:
		c.counts.RejectedRepeatWindow++
	case logic.RejectTooShort:
		c.counts.RejectedTooShort++
	case logic.RejectUnsupportedProtocol:
		c.counts.RejectedUnsupported++
	}
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	return Status{
		Mode:        c.mode,
		Progress:    c.registrar.Progress(),
		Learned:     c.registrar.Learned(),
		LastOutcome: c.lastOutcome,
		LastReason:  c.lastReason,
		Counts:      c.counts,
	}
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}
	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}
