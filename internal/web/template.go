package web

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/sweeney/sigtrack/internal/logic"
	"github.com/sweeney/sigtrack/internal/status"
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
	"num": func(v float64) string {
		if math.IsNaN(v) {
			return "n/a"
		}
		return fmt.Sprintf("%.4g", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>sigtrack</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.idle { color: #888; }
.accumulating { color: green; }
.pending { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>sigtrack{{with .Description}}: {{.}}{{else}}{{with .Config.Source}}: {{.}}{{end}}{{end}}</h1>

<h2>Source</h2>
<table>
<tr><th>Type</th><td>{{.Config.SourceType}}</td></tr>
<tr><th>Active</th><td class="{{if .Active}}connected{{else}}disconnected{{end}}">{{if .Active}}yes{{else}}no{{end}}</td></tr>
<tr><th>Last value</th><td id="last-value">{{if .HasValue}}{{num .LastValue}}{{else}}none{{end}}</td></tr>
<tr><th>Frame</th><td>{{.SamplesPerFrame}} x {{.SamplingInterval}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes ({{.Frames}} frames){{else}}no{{end}}</td></tr>
<tr><th>Watchers</th><td>{{.Observers}}</td></tr>
</table>

<h2>Trackers</h2>
<table>
<tr><th>Name</th><td><b>Kind</b></td><td><b>Phase</b></td><td><b>Last</b></td><td><b>Events</b></td></tr>
{{range .Trackers}}<tr><th><a href="/trackers/{{.Name}}">{{.Name}}</a></th><td>{{.Kind}}</td><td class="{{.Phase}}">{{.Phase}}</td><td>{{num .Last}}</td><td>{{.Events}}</td></tr>
{{else}}<tr><td colspan="5">no trackers configured</td></tr>
{{end}}</table>

<h2>Event Counts</h2>
<table>
{{range .Counts}}<tr><th>{{.Type}}</th><td>{{.N}}</td></tr>
{{else}}<tr><td>none yet</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.Topic}}</td></tr>
<tr><th>Outbox</th><td>{{.MQTTPending}} waiting, {{.MQTTDropped}} dropped</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Frame size</th><td>{{.Config.FrameSize}}</td></tr>
<tr><th>Unit</th><td>{{.Config.Unit}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

type countRow struct {
	Type string
	N    int
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	// The template needs Uptime as a field and counts in a stable order.
	rows := make([]countRow, 0, len(snap.Counts))
	for _, typ := range status.SortedCounts(snap) {
		rows = append(rows, countRow{Type: typ, N: snap.Counts[logic.EventType(typ)]})
	}
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Counts []countRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Counts:   rows,
	}
	indexTmpl.Execute(w, data)
}
