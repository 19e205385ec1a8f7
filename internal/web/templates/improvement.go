package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;color:#222}
.badge{display:inline-block;padding:.2rem .6rem;border-radius:4px;font-size:.85rem}
.running{background:#e3f2fd}.success{background:#e8f5e9}.error{background:#ffebee}.completed{background:#eee}
table{border-collapse:collapse;width:100%}td,th{border-bottom:1px solid #ddd;padding:.4rem;text-align:left;vertical-align:top}
pre{white-space:pre-wrap;background:#f7f7f7;padding:1rem;border-radius:4px}`

// ImprovementPage renders a self-improvement session. Running sessions refresh every 5 seconds.
func ImprovementPage(v ImprovementView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		e := templ.EscapeString

		b.WriteString("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		if !v.Completed {
			b.WriteString("<meta http-equiv=\"refresh\" content=\"5\">")
		}
		b.WriteString("<title>Session " + e(v.SessionID) + "</title><style>" + pageStyle + "</style></head><body>")

		b.WriteString("<h1>Self-improvement session</h1>")
		b.WriteString("<p><code>" + e(v.SessionID) + "</code> ")
		b.WriteString("<span class=\"badge " + statusClass(v) + "\">" + e(v.State) + "</span></p>")

		b.WriteString("<table><tbody>")
		row := func(label, value string) {
			b.WriteString("<tr><th>" + label + "</th><td>" + e(value) + "</td></tr>")
		}
		row("Iteration", formatProgress(v.CurrentIteration, v.MaxIterations))
		row("Best score", formatScore(v.CurrentScore))
		row("Target score", formatScore(v.TargetScore))
		row("Latest change", v.LatestChange)
		row("Started", v.StartedAt)
		if v.EndedAt != "" {
			row("Ended", v.EndedAt)
		}
		b.WriteString("</tbody></table>")

		if len(v.Iterations) > 0 {
			b.WriteString("<h2>Iterations</h2><table><thead><tr><th>#</th><th>Score</th><th>Strengths</th><th>Improvements</th></tr></thead><tbody>")
			for _, it := range v.Iterations {
				score := formatScore(it.Score)
				if it.Fallback {
					score += " (fallback)"
				}
				b.WriteString("<tr><td>" + formatProgress(it.Iteration, v.MaxIterations) + "</td><td>" + e(score) + "</td>")
				b.WriteString("<td>" + list(it.Strengths) + "</td><td>" + list(it.Improvements) + "</td></tr>")
			}
			b.WriteString("</tbody></table>")
		}

		if v.Completed {
			b.WriteString("<h2>Original prompt</h2><pre>" + e(v.OriginalPrompt) + "</pre>")
			b.WriteString("<h2>Best prompt</h2><pre>" + e(v.BestPrompt) + "</pre>")
		}

		b.WriteString("</body></html>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func list(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<ul>")
	for _, item := range items {
		b.WriteString("<li>" + templ.EscapeString(item) + "</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
