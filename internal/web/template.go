package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/musclemate/internal/gesture"
	"github.com/sweeney/musclemate/internal/status"
	"github.com/sweeney/musclemate/internal/workflow"
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
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>MuscleMate</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.state { font-weight: bold; }
.abort { color: red; font-weight: bold; }
.active { color: green; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>MuscleMate<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Workflow</h2>
<table>
<tr><th>State</th><td id="state" class="{{if .Aborting}}abort{{else}}state{{end}}">{{.Event.State}}</td></tr>
<tr><th>Last intent</th><td id="intent">{{.Intent}}</td></tr>
<tr><th>Selected bin</th><td id="bin">{{.Event.SelectedBin}}</td></tr>
<tr><th>Door open</th><td id="door">{{yesno .Event.DoorOpen}}</td></tr>
<tr><th>Gripper closed</th><td id="grip">{{yesno .Event.LastGripClosed}}</td></tr>
<tr><th>Ticks</th><td id="ticks">{{.Ticks}}</td></tr>
</table>

<h2>EMG</h2>
<table>
<tr><th>Channel 1</th><td id="ch1" class="{{if .Ch1Active}}active{{else}}idle{{end}}">{{printf "%.3f" .Ch1}}</td></tr>
<tr><th>Channel 2</th><td id="ch2" class="{{if .Ch2Active}}active{{else}}idle{{end}}">{{printf "%.3f" .Ch2}}</td></tr>
</table>

<h2>Intent Counts</h2>
<table>
<tr><th>START</th><td id="n-start">{{.IntentCounts.Start}}</td></tr>
<tr><th>GRIP</th><td id="n-grip">{{.IntentCounts.Grip}}</td></tr>
<tr><th>OPEN_DOOR</th><td id="n-open">{{.IntentCounts.OpenDoor}}</td></tr>
<tr><th>ABORT</th><td id="n-abort">{{.IntentCounts.Abort}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Run</th><td>{{.Config.RunID}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}none{{end}}</td></tr>
<tr><th>Arm</th><td>{{.Config.ArmDriver}}</td></tr>
<tr><th>Source</th><td>{{.Config.Source}}</td></tr>
<tr><th>Loop</th><td>{{.Config.LoopHz}} Hz</td></tr>
<tr><th>Runtime</th><td>{{if eq .Config.RuntimeMs 0}}unbounded{{else}}{{.Config.RuntimeMs}}ms{{end}}</td></tr>
<tr><th>Thresholds</th><td>on {{.Config.EMGOn}} / off {{.Config.EMGOff}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function set(id, v) { document.getElementById(id).textContent = v; }
  function setDot(cls, title) { dot.className = "live-dot " + cls; dot.title = title; }

  function apply(s) {
    set("state", s.state);
    document.getElementById("state").className = s.state === "ABORT" ? "abort" : "state";
    set("intent", s.intent);
    set("bin", s.selected_bin);
    set("door", s.door_open ? "yes" : "no");
    set("grip", s.last_grip_closed ? "yes" : "no");
    set("ticks", s.ticks);
    ["ch1", "ch2"].forEach(function(id, i) {
      var c = s.channels[i];
      set(id, c.value.toFixed(3));
      document.getElementById(id).className = c.active ? "active" : "idle";
    });
    set("n-start", s.intent_counts.start);
    set("n-grip", s.intent_counts.grip);
    set("n-open", s.intent_counts.open_door);
    set("n-abort", s.intent_counts.abort);
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onmessage = function(e) {
      try { apply(JSON.parse(e.data).data); } catch (err) {}
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

type pageData struct {
	status.Snapshot
	Uptime    time.Duration
	Intent    gesture.Intent
	Aborting  bool
	Ch1Active bool
	Ch2Active bool
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	in := snap.Event.Intent
	if in == "" {
		in = gesture.None
	}
	return indexTmpl.Execute(w, pageData{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		Intent:    in,
		Aborting:  snap.Event.State == workflow.Abort,
		Ch1Active: snap.Channels[gesture.Ch1].Active,
		Ch2Active: snap.Channels[gesture.Ch2].Active,
	})
}
