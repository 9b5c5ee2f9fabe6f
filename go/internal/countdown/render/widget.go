// Package render turns published RemainingTime values into presentation.
package render

import (
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/mcdev12/countdown/go/internal/countdown"
)

// DefaultCompleteText replaces the numeric fields once a countdown completes.
const DefaultCompleteText = "Countdown complete!"

// Field is one labelled unit of a countdown.
type Field struct {
	Label string
	Value string
}

// Pad renders n with at least two digits. Wider values are never truncated.
func Pad(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// Fields lists the presented units of rt. Seconds are left out when
// showSeconds is false even though they are still computed.
func Fields(rt countdown.RemainingTime, showSeconds bool) []Field {
	fields := []Field{
		{Label: "Days", Value: Pad(rt.Days)},
		{Label: "Hours", Value: Pad(int64(rt.Hours))},
		{Label: "Minutes", Value: Pad(int64(rt.Minutes))},
	}
	if showSeconds {
		fields = append(fields, Field{Label: "Seconds", Value: Pad(int64(rt.Seconds))})
	}
	return fields
}

// ClassName is the root class list of the widget.
func ClassName(styleTag string) string {
	return strings.TrimSpace("countdown-timer " + strings.TrimSpace(styleTag))
}

var widgetTemplate = template.Must(template.New("countdown").Parse(
	`<div class="{{.Class}}">
{{- if .Complete}}<div class="countdown-timer__complete">{{.CompleteText}}</div>
{{- else}}<div class="countdown-timer__content">
{{- range .Fields}}<div class="countdown-timer__item"><span class="countdown-timer__value">{{.Value}}</span><span class="countdown-timer__label">{{.Label}}</span></div>
{{- end}}</div>
{{- end}}</div>
`))

type widgetData struct {
	Class        string
	Complete     bool
	CompleteText string
	Fields       []Field
}

// Widget is the HTML rendering adapter.
type Widget struct {
	CompleteText string
}

// NewWidget returns a Widget with the default completion text.
func NewWidget() Widget {
	return Widget{CompleteText: DefaultCompleteText}
}

// Render writes the markup for rt.
func (w Widget) Render(out io.Writer, rt countdown.RemainingTime, cfg countdown.DisplayConfig) error {
	text := w.CompleteText
	if text == "" {
		text = DefaultCompleteText
	}

	data := widgetData{
		Class:        ClassName(cfg.StyleTag),
		Complete:     rt.IsComplete,
		CompleteText: text,
	}
	if !rt.IsComplete {
		data.Fields = Fields(rt, cfg.ShowSeconds)
	}

	return widgetTemplate.Execute(out, data)
}

// String renders rt to a string, returning an empty string on failure.
func (w Widget) String(rt countdown.RemainingTime, cfg countdown.DisplayConfig) string {
	var sb strings.Builder
	if err := w.Render(&sb, rt, cfg); err != nil {
		return ""
	}
	return sb.String()
}
