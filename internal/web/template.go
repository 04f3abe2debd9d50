package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/door-controller/internal/journal"
	"github.com/sweeney/door-controller/internal/status"
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
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"short": func(s string) string {
		if len(s) > 12 {
			return s[:12]
		}
		return s
	},
	"yesNo": func(b bool) string {
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
<meta http-equiv="refresh" content="5">
<title>Door Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
pre.lcd { background: #2b4d8c; color: #e8f0ff; padding: 8px; display: inline-block; line-height: 1.3; }
.armed { color: red; font-weight: bold; }
.disarmed { color: green; font-weight: bold; }
.alert { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Door Controller</h1>

<pre class="lcd" id="lcd">{{range .Display}}{{.}}
{{end}}</pre>

<h2>State</h2>
<table>
<tr><th>State</th><td id="state">{{stateOrUnknown (printf "%s" .Controller.State)}}</td></tr>
<tr><th>Alarm</th><td class="{{if .Controller.Armed}}armed{{else}}disarmed{{end}}">{{if .Controller.Armed}}armed{{else}}disarmed{{end}}</td></tr>
<tr><th>System enabled</th><td>{{yesNo .Controller.SystemEnabled}}</td></tr>
<tr><th>Light mode</th><td>{{yesNo .Controller.LightMode}} (sensitivity {{.Controller.LightSensitivity}})</td></tr>
<tr><th>Light level</th><td>{{.Controller.LightLevel}}{{if .Controller.LowLight}} (low){{end}}</td></tr>
<tr><th>Wrong attempts</th><td{{if .Controller.AlertLatched}} class="alert"{{end}}>{{.Controller.WrongAttempts}}</td></tr>
<tr><th>Log entries</th><td>{{.Controller.LogEntries}}</td></tr>
{{if .Controller.PendingWrite}}<tr><th>Writing</th><td>{{.Controller.PendingWrite}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Activity</h2>
<table>
<tr><th>Opened</th><td>{{.Counts.Opened}}</td></tr>
<tr><th>Denied</th><td>{{.Counts.Denied}}</td></tr>
<tr><th>Alerts</th><td>{{.Counts.Alerts}}</td></tr>
</table>
{{if .Recent}}<table>
<tr><th>Time</th><th>Event</th></tr>
{{range .Recent}}<tr><td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td><td>{{.Type}}{{if .Method}} ({{.Method}}{{if .UID}} {{.UID}}{{end}}){{end}}</td></tr>
{{end}}</table>{{end}}

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Dropped</th><td>{{.DroppedTicks}} ticks, {{.DroppedEvents}} events, {{.DroppedWrites}} journal writes</td></tr>
<tr><th>Memory</th><td>{{.Config.Memory}}</td></tr>
<tr><th>Allowed cards</th><td>{{.Config.Cards}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

{{if .HasJournal}}<h2>Journal</h2>
{{if .JournalErr}}<p class="alert">{{.JournalErr}}</p>
{{else if .Journal}}<table id="journal">
<tr><th>Time (UTC)</th><th>Event</th></tr>
{{range .Journal}}<tr><td>{{.Time.Format "2006-01-02 15:04:05"}}</td><td>{{.Type}}{{if .Method}} ({{.Method}}){{end}}{{if .UIDHash}} card {{short .HashHex}}{{end}}{{if .Attempts}} attempt {{.Attempts}}{{end}}</td></tr>
{{end}}</table>
{{else}}<p>No entries yet.</p>
{{end}}{{end}}
<p><a href="/index.json">JSON</a>{{if .HasJournal}} | <a href="/journal.json">journal</a>{{end}}{{if .HasLog}} | <a href="/log.json">access log</a>{{end}}</p>
</body>
</html>
`

// pageData is what the status page renders.
type pageData struct {
	status.Snapshot
	Uptime time.Duration

	HasJournal bool
	Journal    []journal.Entry
	JournalErr string
	HasLog     bool
}

func renderHTML(w io.Writer, page pageData) error {
	return indexTmpl.Execute(w, page)
}
