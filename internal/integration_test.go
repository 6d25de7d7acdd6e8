package internal

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/ir-learner/internal/control"
	"github.com/sweeney/ir-learner/internal/fingerprint"
	"github.com/sweeney/ir-learner/internal/gpio"
	"github.com/sweeney/ir-learner/internal/ir"
	"github.com/sweeney/ir-learner/internal/logic"
	"github.com/sweeney/ir-learner/internal/metrics"
	"github.com/sweeney/ir-learner/internal/mqtt"
	"github.com/sweeney/ir-learner/internal/status"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// stepClock yields startTime, +step, +2*step, ... on successive calls.
func stepClock(step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := startTime.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// bridgeRig wires a controller to a remote decoder and transmitter over a
// fake broker, publishing reports to a fake publisher.
type bridgeRig struct {
	bus      *mqtt.FakeBus
	topics   mqtt.Topics
	rx       *mqtt.BridgeReceiver
	ctrl     *control.Controller
	pub      *mqtt.FakePublisher
	recorder *metrics.Recorder
}

func newBridgeRig(t *testing.T, clock func() time.Time) *bridgeRig {
	t.Helper()
	bus := mqtt.NewFakeBus()
	topics := mqtt.NewTopics("test/ir")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rx, err := mqtt.NewBridgeReceiver(bus, topics.Decoded, 8, clock, logger)
	if err != nil {
		t.Fatalf("NewBridgeReceiver: %v", err)
	}
	tx := mqtt.NewBridgeTransmitter(bus, topics.Transmit)
	recorder := metrics.NewRecorder()
	ctrl := control.New(logic.DefaultParams(), fingerprint.NewSet(fingerprint.Builtin()...), tx, startTime,
		control.WithObserver(recorder), control.WithLogger(logger))

	return &bridgeRig{
		bus:      bus,
		topics:   topics,
		rx:       rx,
		ctrl:     ctrl,
		pub:      mqtt.NewFakePublisher(),
		recorder: recorder,
	}
}

// deliver feeds one decoded message through the bridge and the controller,
// publishing any reports.
func (r *bridgeRig) deliver(t *testing.T, payload string) []control.Report {
	t.Helper()
	r.bus.Deliver(r.topics.Decoded, []byte(payload))
	ev, ok, err := r.rx.TryDecode()
	if err != nil {
		t.Fatalf("TryDecode: %v", err)
	}
	if !ok {
		return nil
	}
	reports := r.ctrl.HandleEvent(ev)
	for _, rep := range reports {
		if err := r.pub.Publish(rep); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	return reports
}

const panasonicTV1 = `{"protocol":"PANASONIC","value":"0x555AF148688B","bits":48}`

// TestIntegrationLearnOverBridgeAndReplay learns a Panasonic frame from a
// remote decoder and replays it through the remote transmitter.
func TestIntegrationLearnOverBridgeAndReplay(t *testing.T) {
	rig := newBridgeRig(t, stepClock(time.Second))

	rig.ctrl.ToggleLearning(startTime)
	var last []control.Report
	for i := 0; i < logic.RegistrationSamples; i++ {
		last = rig.deliver(t, panasonicTV1)
	}

	if len(last) != 1 || last[0].Outcome != logic.OutcomeCommitted {
		t.Fatalf("expected COMMITTED, got %+v", last)
	}
	if rig.ctrl.Mode() != logic.ModeSending {
		t.Errorf("mode after commit: got %s, want SENDING", rig.ctrl.Mode())
	}

	// The COMMITTED payload carries the address/data split.
	var p mqtt.Payload
	if err := json.Unmarshal(rig.pub.Payloads[0], &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.IR.Event != "COMMITTED" || p.IR.Signal == nil {
		t.Fatalf("payload: got %+v", p.IR)
	}
	if p.IR.Signal.Address != "0x555A" || p.IR.Signal.Data != "0xF148688B" {
		t.Errorf("split: got %s/%s, want 0x555A/0xF148688B", p.IR.Signal.Address, p.IR.Signal.Data)
	}

	rep, ok := rig.ctrl.RequestSend(startTime.Add(time.Minute))
	if !ok || rep.Outcome != logic.OutcomeSent {
		t.Fatalf("RequestSend: got %+v ok=%v", rep, ok)
	}
	if len(rig.bus.Published) != 1 {
		t.Fatalf("expected 1 transmit request, got %d", len(rig.bus.Published))
	}
	msg := rig.bus.Published[0]
	if msg.Topic != "test/ir/transmit" || msg.QoS != 1 {
		t.Errorf("transmit message: topic=%s qos=%d", msg.Topic, msg.QoS)
	}
	var tm mqtt.TransmitMessage
	if err := json.Unmarshal(msg.Payload, &tm); err != nil {
		t.Fatalf("unmarshal transmit: %v", err)
	}
	want := mqtt.TransmitMessage{Primitive: "sendPanasonic64", Value: "0x555AF148688B", Bits: 48}
	if tm != want {
		t.Errorf("transmit: got %+v, want %+v", tm, want)
	}
}

// TestIntegrationNoiseDuringLearning checks that noise is counted but never
// reaches the broker and never advances registration.
func TestIntegrationNoiseDuringLearning(t *testing.T) {
	rig := newBridgeRig(t, stepClock(time.Second))
	rig.ctrl.ToggleLearning(startTime)

	noise := []string{
		`{"protocol":"NEC","value":"0xFFFFFFFF","bits":32,"repeat":true}`,
		`{"protocol":"NEC","value":"0x1234","bits":12}`,
		`{"protocol":"XMP","value":"0x1234567","bits":32}`,
		`not json`,
	}
	for _, n := range noise {
		if reports := rig.deliver(t, n); len(reports) != 0 {
			t.Errorf("noise %s produced reports %+v", n, reports)
		}
	}

	st := rig.ctrl.Status()
	if st.Progress != 0 {
		t.Errorf("progress: got %d, want 0", st.Progress)
	}
	if len(rig.pub.Reports) != 0 {
		t.Errorf("expected nothing published, got %+v", rig.pub.Reports)
	}

	tracker := status.NewTracker(startTime, status.Config{})
	tracker.Update(st)
	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &sj); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	// The malformed message never becomes an event.
	if sj.Status.Counts.Decoded != 3 {
		t.Errorf("decoded: got %d, want 3", sj.Status.Counts.Decoded)
	}
	for _, reason := range []string{"repeat_flag", "too_short", "unsupported_protocol"} {
		if sj.Status.Counts.Rejected[reason] != 1 {
			t.Errorf("rejected[%s]: got %d, want 1", reason, sj.Status.Counts.Rejected[reason])
		}
	}
}

// TestIntegrationMismatchThenRetry registers two different buttons, fails,
// then succeeds on a clean run of three.
func TestIntegrationMismatchThenRetry(t *testing.T) {
	rig := newBridgeRig(t, stepClock(time.Second))
	rig.ctrl.ToggleLearning(startTime)

	ch1 := `{"protocol":"NEC","value":"0x11A807F","bits":32}`
	ch2 := `{"protocol":"NEC","value":"0x11AD22D","bits":32}`

	rig.deliver(t, ch1)
	rig.deliver(t, ch1)
	if reports := rig.deliver(t, ch2); len(reports) != 1 || reports[0].Outcome != logic.OutcomeMismatched {
		t.Fatalf("expected MISMATCHED, got %+v", reports)
	}
	if rig.ctrl.Mode() != logic.ModeLearning {
		t.Fatalf("mode after mismatch: got %s, want LEARNING", rig.ctrl.Mode())
	}

	rig.deliver(t, ch2)
	rig.deliver(t, ch2)
	reports := rig.deliver(t, ch2)
	if len(reports) != 1 || reports[0].Outcome != logic.OutcomeCommitted {
		t.Fatalf("expected COMMITTED, got %+v", reports)
	}
	if got := reports[0].Signal.Value; got != 0x11AD22D {
		t.Errorf("learned value: got 0x%X, want 0x11AD22D", got)
	}

	names := []string{}
	for _, p := range rig.pub.Payloads {
		var pl mqtt.Payload
		json.Unmarshal(p, &pl)
		names = append(names, pl.IR.Event)
	}
	if len(names) != 2 || names[0] != "MISMATCHED" || names[1] != "COMMITTED" {
		t.Errorf("published events: got %v, want [MISMATCHED COMMITTED]", names)
	}
}

// TestIntegrationDetectAndIdentify checks sending-mode recognition of the
// learned signal and of a builtin fingerprint.
func TestIntegrationDetectAndIdentify(t *testing.T) {
	rig := newBridgeRig(t, stepClock(time.Second))
	rig.ctrl.ToggleLearning(startTime)
	ch1 := `{"protocol":"NEC","value":"0x11A807F","bits":32,"address":"0x11","command":"0xA8"}`
	for i := 0; i < logic.RegistrationSamples; i++ {
		rig.deliver(t, ch1)
	}
	rig.pub.Reset()

	reports := rig.deliver(t, ch1)
	if len(reports) != 2 {
		t.Fatalf("expected DETECTED and IDENTIFIED, got %+v", reports)
	}
	if reports[0].Kind != control.KindDetected {
		t.Errorf("first report: got %s, want DETECTED", reports[0].Kind)
	}
	if reports[1].Kind != control.KindIdentified || reports[1].Button != "CH_1" {
		t.Errorf("second report: got %+v, want IDENTIFIED CH_1", reports[1])
	}

	var p mqtt.Payload
	json.Unmarshal(rig.pub.Payloads[1], &p)
	if p.IR.Button != "CH_1" || p.IR.Table != "tvmoc-nec" || p.IR.Signal.Command != "0xA8" {
		t.Errorf("identified payload: got %+v / %+v", p.IR, p.IR.Signal)
	}

	// A repeat frame is ignored entirely.
	if reports := rig.deliver(t, `{"protocol":"NEC","value":"0x11A807F","bits":32,"repeat":true}`); len(reports) != 0 {
		t.Errorf("repeat produced %+v", reports)
	}
}

// TestIntegrationButtonsDriveController runs debounced button samples through
// the controller with a local transmitter.
func TestIntegrationButtonsDriveController(t *testing.T) {
	samples := gpio.Script{}.
		Idle(3).
		Send(3).Idle(3). // nothing learned yet
		Learn(3).Idle(3).
		Learn(3) // second Learn cancels
	reader := gpio.NewFakeReader(samples)
	tx := ir.NewFakeTransmitter()
	ctrl := control.New(logic.DefaultParams(), nil, tx, startTime)
	buttons := control.NewButtons(150 * time.Millisecond)
	pub := mqtt.NewFakePublisher()

	var modes []logic.Mode
	for i := range samples {
		now := startTime.Add(time.Duration(i) * 100 * time.Millisecond)
		send, learn, err := reader.Read()
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		p := buttons.Process(send, learn, now)
		if p.Send {
			if r, ok := ctrl.RequestSend(now); ok {
				pub.Publish(r)
			}
		}
		if p.Learn {
			modes = append(modes, ctrl.ToggleLearning(now))
		}
	}

	if len(pub.Reports) != 1 || pub.Reports[0].Outcome != logic.OutcomeSendFailed {
		t.Fatalf("expected one SEND_FAILED, got %+v", pub.Reports)
	}
	if len(tx.Calls) != 0 {
		t.Errorf("expected no transmissions, got %+v", tx.Calls)
	}
	if len(modes) != 2 || modes[0] != logic.ModeLearning || modes[1] != logic.ModeSending {
		t.Errorf("modes: got %v, want [LEARNING SENDING]", modes)
	}
}

// TestIntegrationTransmitFailure covers a broker error on the transmit path.
func TestIntegrationTransmitFailure(t *testing.T) {
	rig := newBridgeRig(t, stepClock(time.Second))
	rig.ctrl.ToggleLearning(startTime)
	for i := 0; i < logic.RegistrationSamples; i++ {
		rig.deliver(t, panasonicTV1)
	}
	rig.bus.PublishError = errors.New("broker down")

	rep, ok := rig.ctrl.RequestSend(startTime.Add(time.Minute))
	if !ok {
		t.Fatal("RequestSend ignored")
	}
	if rep.Outcome != logic.OutcomeSendFailed || rep.Reason == "" {
		t.Errorf("got %s (%q), want SEND_FAILED with a reason", rep.Outcome, rep.Reason)
	}
	payload, err := mqtt.FormatPayload(rep)
	if err != nil {
		t.Fatal(err)
	}
	var p mqtt.Payload
	json.Unmarshal(payload, &p)
	if p.IR.Event != "SEND_FAILED" || p.IR.Signal == nil || p.IR.Signal.Protocol != "PANASONIC" {
		t.Errorf("payload: got %+v", p.IR)
	}
}

// TestIntegrationReplayWhileBrokerOffline checks that a replay with no broker
// connection fails at once instead of being queued for a later reconnect.
func TestIntegrationReplayWhileBrokerOffline(t *testing.T) {
	rig := newBridgeRig(t, stepClock(time.Second))
	rig.ctrl.ToggleLearning(startTime)
	for i := 0; i < logic.RegistrationSamples; i++ {
		rig.deliver(t, panasonicTV1)
	}
	rig.bus.Offline = true

	for i := 0; i < 3; i++ {
		rep, ok := rig.ctrl.RequestSend(startTime.Add(time.Minute + time.Duration(i)*time.Second))
		if !ok {
			t.Fatal("RequestSend ignored")
		}
		if rep.Outcome != logic.OutcomeSendFailed {
			t.Fatalf("send %d: got %s, want SEND_FAILED", i, rep.Outcome)
		}
		if !strings.Contains(rep.Reason, "not connected") {
			t.Errorf("send %d: reason %q should mention the broker connection", i, rep.Reason)
		}
	}
	if len(rig.bus.Published) != 0 {
		t.Errorf("expected no queued transmit requests, got %d", len(rig.bus.Published))
	}
	st := rig.ctrl.Status()
	if st.Counts.Sent != 0 || st.LastOutcome != logic.OutcomeSendFailed {
		t.Errorf("status: sent=%d last=%s", st.Counts.Sent, st.LastOutcome)
	}

	// Once the broker is back a single replay goes out.
	rig.bus.Offline = false
	rep, _ := rig.ctrl.RequestSend(startTime.Add(2 * time.Minute))
	if rep.Outcome != logic.OutcomeSent || len(rig.bus.Published) != 1 {
		t.Errorf("after reconnect: got %s with %d messages", rep.Outcome, len(rig.bus.Published))
	}
}

// TestIntegrationStartupPayloadFormat verifies the retained STARTUP document.
func TestIntegrationStartupPayloadFormat(t *testing.T) {
	ctrl := control.New(logic.DefaultParams(), nil, ir.NewFakeTransmitter(), startTime)
	tracker := status.NewTracker(startTime, status.Config{
		Broker:   "tcp://192.168.1.200:1883",
		Receiver: "lirc",
	})
	tracker.Update(ctrl.Status())
	tracker.SetMQTTConnected(true)

	pub := mqtt.NewFakePublisher()
	snap := tracker.Snapshot()
	err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	})
	if err != nil {
		t.Fatal(err)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sj.Status.Event != "STARTUP" {
		t.Errorf("event: got %q, want STARTUP", sj.Status.Event)
	}
	if sj.Status.Mode != "SENDING" {
		t.Errorf("mode: got %q, want SENDING", sj.Status.Mode)
	}
	if sj.Status.BootID == "" {
		t.Error("expected boot_id")
	}
	if sj.Status.Learned != nil {
		t.Errorf("learned: got %+v, want none", sj.Status.Learned)
	}
	if !sj.Status.MQTT.Connected || sj.Status.Config.Receiver != "lirc" {
		t.Errorf("mqtt/config: got %+v / %+v", sj.Status.MQTT, sj.Status.Config)
	}
}
