package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ebriand/teleinfod/internal/status"
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
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"va": func(f float64) string {
		return fmt.Sprintf("%.0f VA", f)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>teleinfod</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: red; font-weight: bold; }
.off { color: green; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>teleinfod</h1>

<table>
<tr><th>Load shedding</th><td class="{{if eq (printf "%s" .Signals.LoadShed) "ON"}}on{{else if eq (printf "%s" .Signals.LoadShed) "OFF"}}off{{else}}unknown{{end}}">{{orUnknown (printf "%s" .Signals.LoadShed)}}</td></tr>
<tr><th>Hot water allowed</th><td>{{orUnknown (printf "%s" .Signals.HotWater)}}</td></tr>
<tr><th>Tariff period</th><td>{{orUnknown (printf "%s" .Signals.Period)}}</td></tr>
<tr><th>Tempo today</th><td>{{orUnknown (printf "%s" .Signals.Today)}}</td></tr>
<tr><th>Tempo tomorrow</th><td>{{orUnknown (printf "%s" .Signals.Tomorrow)}}</td></tr>
<tr><th>Power</th><td>{{if .Signals.HasPower}}{{.Signals.Power}} VA{{else}}—{{end}}</td></tr>
<tr><th>Smoothed power</th><td>{{va .SmoothedPower}}</td></tr>
<tr><th>Last message</th><td>{{.LastMessage}}</td></tr>
</table>

<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}})</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Frames</th><td>{{.Counts.Frames}} ({{.Counts.Invalid}} invalid)</td></tr>
<tr><th>Batches published</th><td>{{.Counts.Batches}} ({{.Counts.PublishErrors}} errors)</td></tr>
<tr><th>Relay errors</th><td>{{.Counts.RelayErrors}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

// renderHTML writes the status page for the given snapshot.
func renderHTML(w io.Writer, snap status.Snapshot) {
	// Template errors mean a programming mistake; the partial page is
	// still useful for debugging.
	_ = indexTmpl.Execute(w, snap)
}
