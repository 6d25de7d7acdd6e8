package main

import (
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/ir-learner/internal/control"
	"github.com/sweeney/ir-learner/internal/gpio"
	"github.com/sweeney/ir-learner/internal/ir"
	"github.com/sweeney/ir-learner/internal/logic"
	"github.com/sweeney/ir-learner/internal/metrics"
	"github.com/sweeney/ir-learner/internal/mqtt"
	"github.com/sweeney/ir-learner/internal/status"
)

// loopDeps are the collaborators driven by runLoop. buttons, commands,
// mqttStatus, tracker and recorder may be nil.
type loopDeps struct {
	ctrl       *control.Controller
	buttons    gpio.Reader
	receiver   ir.Receiver
	commands   mqtt.CommandSource
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	recorder   *metrics.Recorder
	log        *slog.Logger
}

type loopTiming struct {
	debounce   time.Duration
	heartbeat  time.Duration
	sentPause  time.Duration
	errorPause time.Duration
}

// bufferStatus is implemented by publishers that hold messages while offline.
type bufferStatus interface {
	Buffered() int
}

func runLoop(d loopDeps, timing loopTiming, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, sleep func(time.Duration)) error {
	buttons := control.NewButtons(timing.debounce)

	for {
		select {
		case s := <-sig:
			d.log.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				d.refreshTracker()
				snap := d.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				d.log.Warn("failed to publish shutdown event", "error", err)
			} else {
				d.log.Info("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			var reports []control.Report

			if d.buttons != nil {
				send, learn, err := d.buttons.Read()
				if err != nil {
					d.log.Warn("gpio read error", "error", err)
				} else {
					presses := buttons.Process(send, learn, t)
					if presses.Any() {
						d.log.Debug("button press", "send", presses.Send, "learn", presses.Learn)
					}
					if presses.Send {
						reports = append(reports, d.send(t)...)
					}
					if presses.Learn {
						d.ctrl.ToggleLearning(t)
					}
				}
			}

			if d.commands != nil {
				if text, ok := d.commands.TryCommand(); ok {
					reports = append(reports, d.command(text, t)...)
				}
			}

			ev, ok, err := d.receiver.TryDecode()
			if err != nil {
				d.log.Warn("ir receive error", "error", err)
			} else if ok {
				d.log.Debug("decoded", "protocol", ev.Protocol, "value", ev.Value, "bits", ev.Bits, "repeat", ev.Repeat)
				reports = append(reports, d.ctrl.HandleEvent(ev)...)
			}

			reports = append(reports, d.ctrl.Tick(t)...)

			var pause time.Duration
			for _, r := range reports {
				if err := d.publisher.Publish(r); err != nil {
					d.log.Warn("publish error", "event", mqtt.EventName(r), "error", err)
					// Don't crash on publish failure
				}
				switch r.Outcome {
				case logic.OutcomeSent:
					pause = max(pause, timing.sentPause)
				case logic.OutcomeSendFailed:
					pause = max(pause, timing.errorPause)
				}
			}

			// Check for heartbeat
			if hb := d.ctrl.CheckHeartbeat(t, timing.heartbeat); hb != nil {
				d.log.Info("heartbeat",
					"uptime", hb.Uptime,
					"decoded", hb.Counts.Decoded,
					"committed", hb.Counts.Committed,
					"sent", hb.Counts.Sent,
					"identified", hb.Counts.Identified)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
				}
				if d.tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						d.tracker.SetNetwork(net)
					}
					d.refreshTracker()
					hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					d.log.Warn("heartbeat publish error", "error", err)
				}
			}

			// Update status tracker for HTTP and metrics consumers
			d.refreshTracker()

			if pause > 0 {
				sleep(pause)
			}
		}
	}
}

func (d loopDeps) send(t time.Time) []control.Report {
	r, ok := d.ctrl.RequestSend(t)
	if !ok {
		return nil
	}
	return []control.Report{r}
}

// command runs one operator text command.
func (d loopDeps) command(text string, t time.Time) []control.Report {
	cmd := control.ParseCommand(text)
	d.log.Info("command", "command", cmd)

	switch cmd {
	case control.CommandSend:
		return d.send(t)
	case control.CommandLearn:
		d.ctrl.ToggleLearning(t)
	case control.CommandStatus:
		d.log.Info(control.FormatStatus(d.ctrl.Status()))
		if d.tracker != nil {
			d.refreshTracker()
			ev := mqtt.SystemEvent{
				Timestamp:  t,
				Event:      "STATUS",
				RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "STATUS", ""),
			}
			if err := d.publisher.PublishSystem(ev); err != nil {
				d.log.Warn("status publish error", "error", err)
			}
		}
	case control.CommandHelp:
		d.log.Info(control.HelpText)
	default:
		d.log.Warn("unknown command", "text", text)
	}
	return nil
}

func (d loopDeps) refreshTracker() {
	st := d.ctrl.Status()
	connected := false
	if d.mqttStatus != nil {
		connected = d.mqttStatus.IsConnected()
	}
	buffered := 0
	if b, ok := d.mqttStatus.(bufferStatus); ok {
		buffered = b.Buffered()
	}

	if d.tracker != nil {
		d.tracker.Update(st)
		d.tracker.SetMQTTConnected(connected)
		d.tracker.SetMQTTBuffered(buffered)
	}
	if d.recorder != nil {
		d.recorder.SetStatus(st)
		d.recorder.SetMQTT(connected, buffered)
	}
}
