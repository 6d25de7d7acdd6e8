package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/sweeney/ir-learner/internal/control"
	"github.com/sweeney/ir-learner/internal/logic"
)

// value returns the first sample of the named family whose labels include
// every pair in labels.
func value(reg *prometheus.Registry, name string, labels map[string]string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return -1
}

func TestRecorder(t *testing.T) {
	Convey("Given a recorder on a fresh registry", t, func() {
		reg := prometheus.NewRegistry()
		r := NewRecorder(WithRegistry(reg), WithNamespace("test"))

		Convey("Decoded events are counted by protocol", func() {
			r.Decoded(logic.DecodedEvent{Protocol: logic.ProtocolNEC})
			r.Decoded(logic.DecodedEvent{Protocol: logic.ProtocolNEC})
			r.Decoded(logic.DecodedEvent{Protocol: logic.ProtocolSony})

			So(value(reg, "test_decoded_events_total", map[string]string{"protocol": "NEC"}), ShouldEqual, 2)
			So(value(reg, "test_decoded_events_total", map[string]string{"protocol": "SONY"}), ShouldEqual, 1)
		})

		Convey("Rejections are counted by reason", func() {
			r.Rejected(logic.RejectRepeatWindow)
			So(value(reg, "test_rejected_events_total", map[string]string{"reason": "repeat_window"}), ShouldEqual, 1)
		})

		Convey("Reports are split by kind", func() {
			r.Reported(control.Report{Kind: control.KindOutcome, Outcome: logic.OutcomeCommitted})
			r.Reported(control.Report{Kind: control.KindOutcome, Outcome: logic.OutcomeSendFailed})
			r.Reported(control.Report{Kind: control.KindDetected})
			r.Reported(control.Report{Kind: control.KindIdentified, Table: "panasonic-tv", Button: "TV_1"})

			So(value(reg, "test_outcomes_total", map[string]string{"outcome": "COMMITTED"}), ShouldEqual, 1)
			So(value(reg, "test_outcomes_total", map[string]string{"outcome": "SEND_FAILED"}), ShouldEqual, 1)
			So(value(reg, "test_detections_total", nil), ShouldEqual, 1)
			So(value(reg, "test_identified_buttons_total", map[string]string{"button": "TV_1"}), ShouldEqual, 1)
		})

		Convey("Status gauges follow the controller", func() {
			r.SetStatus(control.Status{Mode: logic.ModeLearning, Progress: 2})
			So(value(reg, "test_learning", nil), ShouldEqual, 1)
			So(value(reg, "test_registration_progress", nil), ShouldEqual, 2)
			So(value(reg, "test_signal_committed", nil), ShouldEqual, 0)

			r.SetStatus(control.Status{Mode: logic.ModeSending, Learned: logic.LearnedSignal{Committed: true}})
			So(value(reg, "test_learning", nil), ShouldEqual, 0)
			So(value(reg, "test_signal_committed", nil), ShouldEqual, 1)
		})

		Convey("MQTT gauges", func() {
			r.SetMQTT(true, 3)
			So(value(reg, "test_mqtt_connected", nil), ShouldEqual, 1)
			So(value(reg, "test_mqtt_buffered_messages", nil), ShouldEqual, 3)
		})

		Convey("The handler exposes the registry", func() {
			r.Rejected(logic.RejectTooShort)
			rec := httptest.NewRecorder()
			r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

			body, _ := io.ReadAll(rec.Body)
			So(rec.Code, ShouldEqual, 200)
			So(strings.Contains(string(body), `test_rejected_events_total{reason="too_short"} 1`), ShouldBeTrue)
		})
	})
}

func TestRecorderDefaults(t *testing.T) {
	Convey("A recorder without options gets its own registry", t, func() {
		a := NewRecorder()
		b := NewRecorder()
		So(a.Registry(), ShouldNotBeNil)
		So(a.Registry(), ShouldNotPointTo, b.Registry())

		a.Decoded(logic.DecodedEvent{Protocol: logic.ProtocolJVC})
		So(value(a.Registry(), "irlearner_decoded_events_total", map[string]string{"protocol": "JVC"}), ShouldEqual, 1)
	})
}
