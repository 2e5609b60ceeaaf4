package health

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>HomeFind · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --blue: #1D4ED8; --dark: #0F172A; --muted: #64748b; --bg: #F8FAFC; }
    body { background: var(--bg); color: var(--dark); font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 48px 20px; }
    .container { max-width: 960px; margin: 0 auto; }
    h1 { font-size: 44px; font-weight: 900; letter-spacing: -2px; margin: 0 0 8px 0; }
    h1.issue { color: #B91C1C; }
    .subtext { color: var(--muted); font-weight: 700; margin-bottom: 28px; }
    .card { background: #fff; border-radius: 24px; box-shadow: 0 20px 60px -20px rgba(29, 78, 216, 0.15); overflow: hidden; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); }
    .col { padding: 36px; border-right: 1px solid rgba(0,0,0,0.05); }
    .col:last-child { border-right: none; }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 900; letter-spacing: 2px; color: #94a3b8; margin-bottom: 20px; }
    .big { font-size: 38px; font-weight: 900; margin-bottom: 10px; }
    .row { display: flex; justify-content: space-between; padding: 8px 0; border-bottom: 1px solid rgba(0,0,0,0.03); font-size: 14px; font-weight: 700; }
    .pill { padding: 4px 10px; border-radius: 10px; font-size: 11px; font-weight: 900; }
    .ok { background: rgba(29, 78, 216, 0.08); color: var(--blue); }
    .err { background: rgba(239, 68, 68, 0.08); color: #EF4444; }
    .footer { background: rgba(15, 23, 42, 0.03); padding: 16px 36px; display: flex; justify-content: space-between; font-family: monospace; font-size: 13px; }
    a.btn { display: inline-block; margin-top: 24px; color: var(--muted); font-weight: 800; font-size: 13px; }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } .col { border-right: none; } }
  </style>
</head>
<body>
  <div class="container">
    {{if eq .Status "ok"}}<h1>All Systems Operational</h1>{{else}}<h1 class="issue">System Issues Detected</h1>{{end}}
    <p class="subtext">Live view of API traffic and dependencies. Raw data at <a href="/health/json">/health/json</a>.</p>
    <div class="card">
      <div class="grid">
        <div class="col">
          <div class="label">Traffic</div>
          <div class="big">{{.Traffic.TotalRequests}}</div>
          <div class="row"><span>Successful</span><span>{{.Traffic.SuccessCount}}</span></div>
          <div class="row"><span>Failed</span><span>{{.Traffic.FailedCount}}</span></div>
          <div class="row"><span>Success Rate</span><span>{{.Traffic.SuccessRate}}%</span></div>
          <div class="row"><span>Avg Latency</span><span>{{.Traffic.AvgResponseTime}}ms</span></div>
        </div>
        <div class="col">
          <div class="label">Runtime</div>
          <div class="big">{{.Uptime}}</div>
          <div class="row"><span>Heap Used</span><span>{{.Runtime.Memory.HeapUsed}} MB</span></div>
          <div class="row"><span>Goroutines</span><span>{{.Runtime.Goroutines}}</span></div>
          <div class="row"><span>Platform</span><span>{{.Runtime.Platform}}</span></div>
          <div class="row"><span>Go</span><span>{{.Runtime.GoVersion}}</span></div>
        </div>
        <div class="col">
          <div class="label">Connectivity</div>
          {{range .Deps}}<div class="row"><span>{{.Name}}</span><span class="pill {{if .OK}}ok{{else}}err{{end}}">{{.Status}}{{if .PingMs}} · {{.PingMs}} ms{{end}}</span></div>
          {{end}}
        </div>
      </div>
      <div class="footer">
        <span>LAST INBOUND {{.LastMethod}}</span><span>{{.LastPath}}</span><span>{{.LastIP}}</span>
      </div>
    </div>
    <a class="btn" href="/health/errors">View error log (last 50)</a>
  </div>
</body>
</html>`))

type dashboardDep struct {
	Name   string
	Status string
	OK     bool
	PingMs interface{}
}

type dashboardData struct {
	CollectResult
	Uptime                       string
	Deps                         []dashboardDep
	LastMethod, LastPath, LastIP string
}

// RenderDashboardHTML returns the HTML status page served at GET /.
func RenderDashboardHTML(h CollectResult) string {
	d := dashboardData{CollectResult: h, Uptime: formatUptime(h.Runtime.UptimeSeconds), LastMethod: "-", LastPath: "-", LastIP: "-"}
	for name, dep := range h.Dependencies {
		var ping interface{}
		if p, ok := dep.PingMs.(*int64); ok && p != nil {
			ping = *p
		}
		d.Deps = append(d.Deps, dashboardDep{
			Name:   name,
			Status: dep.Status,
			OK:     dep.Status == "connected" || dep.Status == "reachable",
			PingMs: ping,
		})
	}
	sort.Slice(d.Deps, func(i, j int) bool { return d.Deps[i].Name < d.Deps[j].Name })
	if m, ok := h.Traffic.LastRequest.(map[string]interface{}); ok {
		if v, ok := m["method"].(string); ok {
			d.LastMethod = v
		}
		if v, ok := m["path"].(string); ok {
			d.LastPath = v
		}
		if v, ok := m["ip"].(string); ok {
			d.LastIP = v
		}
	}
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, d); err != nil {
		return "<p>health dashboard unavailable</p>"
	}
	return buf.String()
}

func formatUptime(s int64) string {
	d, h, m, sec := s/86400, (s%86400)/3600, (s%3600)/60, s%60
	if d > 0 {
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	}
	return fmt.Sprintf("%dh %dm %ds", h, m, sec)
}
