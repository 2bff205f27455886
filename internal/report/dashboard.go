package report

import (
	"bytes"
	"fmt"
	"html/template"
)

// scoreColor buckets a sub-score into the dashboard's traffic-light palette.
func scoreColor(score int) string {
	switch {
	case score >= 16:
		return "#22c55e"
	case score >= 12:
		return "#84cc16"
	case score >= 8:
		return "#eab308"
	case score >= 4:
		return "#f97316"
	default:
		return "#ef4444"
	}
}

func formatMarketCap(cap float64) string {
	switch {
	case cap >= 1e12:
		return fmt.Sprintf("$%.2fT", cap/1e12)
	case cap >= 1e9:
		return fmt.Sprintf("$%.1fB", cap/1e9)
	case cap >= 1e6:
		return fmt.Sprintf("$%.1fM", cap/1e6)
	default:
		return fmt.Sprintf("$%.0f", cap)
	}
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"color": scoreColor,
	"cap":   formatMarketCap,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>MFSES Scoreboard</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
         background: #0f172a; color: #f8fafc; margin: 0; }
  header { background: #1e293b; padding: 1rem 2rem; border-bottom: 1px solid #475569; }
  header h1 { margin: 0; font-size: 1.5rem; }
  header .updated { color: #94a3b8; font-size: 0.8rem; }
  table { width: 100%; border-collapse: collapse; font-size: 0.875rem; }
  th { background: #334155; color: #94a3b8; text-align: left; padding: 0.6rem 0.5rem;
       border-bottom: 2px solid #475569; white-space: nowrap; }
  td { padding: 0.6rem 0.5rem; border-bottom: 1px solid #475569; }
  .score { text-align: center; font-weight: 600; color: #000; width: 2.2rem; border-radius: 4px; }
  .ticker { font-weight: 600; color: #2A84C7; }
  .name { color: #94a3b8; }
  .composite { font-variant-numeric: tabular-nums; }
  .failures { margin: 1rem 2rem; padding: 0.75rem 1rem; background: #78350f; color: #fef3c7;
              border-radius: 0.5rem; font-size: 0.875rem; }
  .audits { margin: 1.5rem 2rem; }
  .audits h2 { font-size: 1rem; color: #94a3b8; }
  details { background: #1e293b; border: 1px solid #475569; border-radius: 0.5rem;
            margin-bottom: 0.5rem; padding: 0.5rem 1rem; }
  summary { cursor: pointer; font-weight: 600; color: #2A84C7; }
  .audit-table { font-size: 0.8rem; margin-top: 0.5rem; }
  .audit-table th { background: none; border-bottom: 1px solid #475569; }
  .audit-table td { color: #cbd5e1; }
</style>
</head>
<body>
<header>
  <h1>MFSES Scoreboard</h1>
  <div class="updated">Updated: {{.Updated.Format "2006-01-02 15:04 UTC"}}</div>
</header>
{{range .Failures}}<div class="failures">{{.Ticker}}: {{.Error}}</div>
{{end}}
<table>
<thead>
<tr>
  <th>Ticker</th><th>Company</th><th>Price</th><th>Mkt Cap</th>
  <th title="Moat">M</th><th title="Growth">G</th><th title="Balance">B</th>
  <th title="Valuation">V</th><th title="Sentiment">S</th>
  <th>Short</th><th>Mid</th><th>Long</th><th>Intrinsic</th>
</tr>
</thead>
<tbody>
{{range .Stocks}}<tr>
  <td class="ticker">{{.Ticker}}</td>
  <td class="name">{{.Name}}</td>
  <td>${{printf "%.2f" .Price}}</td>
  <td>{{cap .MarketCap}}</td>
  <td class="score" style="background:{{color .SubScores.Moat}}">{{.SubScores.Moat}}</td>
  <td class="score" style="background:{{color .SubScores.Growth}}">{{.SubScores.Growth}}</td>
  <td class="score" style="background:{{color .SubScores.Balance}}">{{.SubScores.Balance}}</td>
  <td class="score" style="background:{{color .SubScores.Valuation}}">{{.SubScores.Valuation}}</td>
  <td class="score" style="background:{{color .SubScores.Sentiment}}">{{.SubScores.Sentiment}}</td>
  <td class="composite">{{printf "%.1f" .Composites.ShortTerm}}</td>
  <td class="composite">{{printf "%.1f" .Composites.MidTerm}}</td>
  <td class="composite">{{printf "%.1f" .Composites.LongTerm}}</td>
  <td class="composite">${{printf "%.2f" .Audit.Valuation.IntrinsicValue}}</td>
</tr>
{{end}}</tbody>
</table>
<div class="audits">
<h2>Fact check</h2>
{{range .Stocks}}<details>
  <summary>{{.Ticker}}</summary>
  <table class="audit-table">
  <thead><tr><th>Factor</th><th>Input</th><th>Bracket</th><th>Score</th></tr></thead>
  <tbody>
    <tr><td>Moat</td><td>{{.Audit.Moat.Input}}</td><td>{{.Audit.Moat.Bracket}}</td><td>{{.Audit.Moat.Score}}</td></tr>
    <tr><td>Growth</td><td>{{.Audit.Growth.Input}}</td><td>{{.Audit.Growth.Bracket}}</td><td>{{.Audit.Growth.Score}}</td></tr>
    <tr><td>Balance</td><td>{{.Audit.Balance.Input}}</td><td>{{.Audit.Balance.Bracket}}</td><td>{{.Audit.Balance.Score}}</td></tr>
    <tr><td>Valuation</td><td>{{.Audit.Valuation.Input}} (intrinsic ${{printf "%.2f" .Audit.Valuation.IntrinsicValue}})</td><td>{{.Audit.Valuation.Bracket}}</td><td>{{.Audit.Valuation.Score}}</td></tr>
    <tr><td>Sentiment</td><td>{{.Audit.Sentiment.Input}}</td><td>{{.Audit.Sentiment.Bracket}}</td><td>{{.Audit.Sentiment.Score}}</td></tr>
  </tbody>
  </table>
</details>
{{end}}</div>
</body>
</html>
`))

func renderDashboard(p Payload) ([]byte, error) {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
