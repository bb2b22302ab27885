package mail

import (
	"bytes"
	"html/template"
	"strings"
)

// Body is a plain-text e-mail rendered into the shared HTML layout.
type Body struct {
	Greeting       string
	Text           string
	ActionURL      string
	ActionLabel    string
	UnsubscribeURL string
}

var layout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html><body style="font-family:Georgia,serif;line-height:1.5;color:#222;max-width:560px;margin:0 auto;padding:24px">
{{- if .Greeting}}
<p>{{.Greeting}}</p>
{{- end}}
{{- range .Paragraphs}}
<p>{{range $i, $line := .}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
{{- end}}
{{- if .ActionURL}}
<p><a href="{{.ActionURL}}">{{.ActionLabel}}</a></p>
{{- end}}
{{- if .UnsubscribeURL}}
<p style="font-size:12px;color:#888"><a href="{{.UnsubscribeURL}}">Unsubscribe</a></p>
{{- end}}
</body></html>
`))

// RenderHTML escapes b.Text, turning blank-line separated blocks into paragraphs
// and single newlines into line breaks.
func RenderHTML(b Body) (string, error) {
	data := struct {
		Body
		Paragraphs [][]string
	}{Body: b, Paragraphs: paragraphs(b.Text)}

	var buf bytes.Buffer
	if err := layout.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func paragraphs(text string) [][]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out [][]string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		out = append(out, strings.Split(block, "\n"))
	}
	return out
}
