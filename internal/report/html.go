package report

import (
	"bytes"
	"html/template"

	"github.com/mbeltran/armlex/internal/quad"
)

// HTML renders the report as a standalone document
func (r *Report) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"operand": quad.Operand,
	"inc":     func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Source}} analysis</title>
<style>
  body { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; margin: 2rem; color: #1f2937; }
  h1 { font-size: 1.3rem; }
  h2 { font-size: 1rem; margin-top: 1.6rem; text-transform: uppercase; letter-spacing: .05em; }
  .stats { color: #6b7280; }
  .pass { color: #10b981; font-weight: bold; }
  .fail { color: #ef4444; font-weight: bold; }
  table { border-collapse: collapse; margin-top: .5rem; }
  th, td { border: 1px solid #e5e7eb; padding: .25rem .6rem; text-align: left; }
  th { background: #f9fafb; }
  td.num { text-align: right; }
  .ok { color: #10b981; }
  .error { color: #ef4444; }
  .skipped { color: #9ca3af; }
  ul.diags li { color: #ef4444; }
</style>
</head>
<body>
<h1>{{if .Source}}{{.Source}}{{else}}program{{end}} &mdash; {{if .OK}}<span class="pass">PASS</span>{{else}}<span class="fail">FAIL</span>{{end}}</h1>
<p class="stats">hash {{.Hash}} &middot; {{.Stats.Lines}} lines &middot; {{.Stats.Tokens}} tokens &middot; {{.Stats.Robots}} robots &middot; {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>

<h2>Phases</h2>
<table>
<tr><th>Line</th><th>Lexical</th><th>Syntax</th><th>Semantic</th><th>Source</th></tr>
{{range .Lines}}<tr>
<td class="num">{{.Number}}</td>
<td class="{{if eq .Lexical "ok"}}ok{{else if eq .Lexical "error"}}error{{else}}skipped{{end}}">{{.Lexical}}</td>
<td class="{{if eq .Syntax "ok"}}ok{{else if eq .Syntax "error"}}error{{else}}skipped{{end}}">{{.Syntax}}</td>
<td class="{{if eq .Semantic "ok"}}ok{{else if eq .Semantic "error"}}error{{else}}skipped{{end}}">{{.Semantic}}</td>
<td><code>{{.Text}}</code></td>
</tr>{{end}}
</table>

{{if .Diagnostics}}
<h2>Diagnostics</h2>
<ul class="diags">
{{range .Diagnostics}}<li>{{.String}}</li>
{{end}}</ul>
{{end}}

{{if and .OK .Symbols}}
<h2>Symbols</h2>
<table>
<tr><th>ID</th><th>Method</th><th>Param</th><th>Value</th></tr>
{{range .Symbols}}<tr><td>{{.ID}}</td><td>{{.Method}}</td><td class="num">{{.Param}}</td><td class="num">{{.Value}}</td></tr>
{{end}}</table>
{{end}}

{{if and .OK .Quads}}
<h2>Quadruples</h2>
<table>
<tr><th>#</th><th>Op</th><th>Arg1</th><th>Arg2</th><th>Result</th></tr>
{{range $i, $q := .Quads}}<tr>
<td class="num">{{inc $i}}</td>
<td>{{$q.Op}}</td>
<td>{{operand $q.Arg1}}</td>
<td>{{operand $q.Arg2}}</td>
<td>{{operand $q.Result}}</td>
</tr>{{end}}
</table>
{{end}}

</body>
</html>
`))
