package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/ir-learner/internal/control"
	"github.com/sweeney/ir-learner/internal/logic"
	"github.com/sweeney/ir-learner/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"modeOrUnknown": func(m logic.Mode) string {
		if m == "" {
			return "UNKNOWN"
		}
		return string(m)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>IR Learner</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.learning { color: orange; font-weight: bold; }
.sending { color: green; font-weight: bold; }
.unknown { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>IR Learner<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Signal</h2>
<table>
<tr><th>Mode</th><td id="mode" class="{{if eq (modeOrUnknown .Control.Mode) "LEARNING"}}learning{{else if eq (modeOrUnknown .Control.Mode) "SENDING"}}sending{{else}}unknown{{end}}">{{modeOrUnknown .Control.Mode}}</td></tr>
<tr><th>Progress</th><td id="progress">{{.Control.Progress}}/{{.Samples}}</td></tr>
<tr><th>Learned</th><td id="learned">{{if .Control.Learned.Committed}}{{.Learned}}{{else}}none{{end}}</td></tr>
<tr><th>Last outcome</th><td id="last">{{if .Control.LastOutcome}}{{.Control.LastOutcome}}{{if .Control.LastReason}} ({{.Control.LastReason}}){{end}}{{else}}-{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}{{if .MQTTBuffered}} ({{.MQTTBuffered}} buffered){{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Receiver</th><td>{{.Config.Receiver}}</td></tr>
<tr><th>Transmitter</th><td>{{.Config.Transmitter}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Decoded</th><td>{{.Control.Counts.Decoded}}</td></tr>
<tr><th>Committed</th><td>{{.Control.Counts.Committed}}</td></tr>
<tr><th>Mismatched</th><td>{{.Control.Counts.Mismatched}}</td></tr>
<tr><th>Timed out</th><td>{{.Control.Counts.TimedOut}}</td></tr>
<tr><th>Sent</th><td>{{.Control.Counts.Sent}}</td></tr>
<tr><th>Send failed</th><td>{{.Control.Counts.SendFailed}}</td></tr>
<tr><th>Detected</th><td>{{.Control.Counts.Detected}}</td></tr>
<tr><th>Identified</th><td>{{.Control.Counts.Identified}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot</th><td>{{.BootID}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Repeat window</th><td>{{.Config.RepeatIgnoreMs}}ms</td></tr>
<tr><th>Receive timeout</th><td>{{.Config.ReceiveTimeoutMs}}ms</td></tr>
<tr><th>Min bits</th><td>{{.Config.MinBits}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var modeEl = document.getElementById("mode");
  var progressEl = document.getElementById("progress");
  var learnedEl = document.getElementById("learned");
  var lastEl = document.getElementById("last");
  var samples = {{.Samples}};

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function render(st) {
    modeEl.textContent = st.mode;
    modeEl.className = st.mode === "LEARNING" ? "learning" : st.mode === "SENDING" ? "sending" : "unknown";
    progressEl.textContent = st.progress + "/" + samples;
    if (st.learned) {
      var s = st.learned.protocol + " " + st.learned.value + "/" + st.learned.bits;
      if (st.learned.address) {
        s += " (address=" + st.learned.address + " data=" + st.learned.data + ")";
      }
      learnedEl.textContent = s;
    } else {
      learnedEl.textContent = "none";
    }
    if (st.last_outcome) {
      lastEl.textContent = st.last_outcome + (st.last_reason ? " (" + st.last_reason + ")" : "");
    } else {
      lastEl.textContent = "-";
    }
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.status) {
          render(msg.status);
        }
      } catch (e) {}
    };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Learned string
		Samples int
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Learned:  control.FormatSignal(snap.Control.Learned),
		Samples:  logic.RegistrationSamples,
	}
	return indexTmpl.Execute(w, data)
}
