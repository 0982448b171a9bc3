package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dio-controller/internal/logic"
	"github.com/sweeney/dio-controller/internal/status"
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
	"level": func(b bool) string {
		if b {
			return "HIGH"
		}
		return "LOW"
	},
	"port": func(p int) string {
		if p == logic.NoPort {
			return "-"
		}
		return fmt.Sprintf("%d", p)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DIO Controller</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.HIGH { color: green; font-weight: bold; }
.LOW { color: #888; }
.stopped { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>DIO Controller <small>{{.Config.Version}}</small></h1>

<h2>Inputs</h2>
<table>
<tr><th>Pin</th><th>Run</th><th>Level</th><th>Raw</th><th>Count</th><th>Max</th><th>On (s)</th><th>Errors</th></tr>
{{range .Inputs}}<tr>
<td><a href="/inputs/{{.Pin}}">{{.Pin}}</a></td>
<td>{{if .Running}}yes{{else}}<span class="stopped">no</span>{{end}}</td>
<td class="{{level .Level}}">{{level .Level}}</td>
<td class="{{level .RawLevel}}">{{level .RawLevel}}</td>
<td>{{.Count}}</td>
<td>{{.Config.MaxCount}}</td>
<td>{{.OnTimeS}}</td>
<td>{{.ReadErrors}}</td>
</tr>{{end}}
</table>

<h2>Outputs</h2>
<table>
<tr><th>Pin</th><th>Run</th><th>Function</th><th>Relation</th><th>Port</th><th>Trigger</th><th>Status</th><th>Actions</th><th>Errors</th></tr>
{{range .Outputs}}<tr>
<td><a href="/outputs/{{.Pin}}">{{.Pin}}</a></td>
<td>{{if .Running}}yes{{else}}<span class="stopped">no</span>{{end}}</td>
<td>{{.Config.Function}}</td>
<td>{{.Config.Relation}}</td>
<td>{{port .Config.RelationPort}}</td>
<td>{{port .TriggerPort}}</td>
<td>{{.Status}}</td>
<td>{{.Actions}}</td>
<td>{{.WriteErrors}}</td>
</tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Link</th><td>{{.Config.Transport}}</td></tr>
<tr><th>Requests</th><td>{{.Counters.Requests}} ({{.Counters.Failures}} NG)</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Period</th><td>{{.Config.PeriodUs}}us</td></tr>
<tr><th>Ticks</th><td>{{.Counters.Ticks}}</td></tr>
<tr><th>Dropped events</th><td>{{.Counters.Dropped}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
