package shortcode

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/countdown/go/internal/countdown"
	"github.com/mcdev12/countdown/go/internal/countdown/render"
)

// ErrorHTML replaces the widget when the supplied date is missing or malformed.
const ErrorHTML = `<p class="countdown-error">Error: Please specify a valid date for the countdown timer.</p>`

var containerTemplate = template.Must(template.New("container").Parse(
	`<div id="{{.ID}}" class="react-countdown-container" data-date="{{.Date}}" data-show-seconds="{{.ShowSeconds}}" data-class="{{.Class}}">{{.Snapshot}}</div>`))

type containerData struct {
	ID          string
	Date        string
	ShowSeconds string
	Class       string
	Snapshot    template.HTML
}

// Renderer validates embedding input and produces page markup.
type Renderer struct {
	widget render.Widget
	loc    *time.Location
	clock  clockwork.Clock
	newID  func() string
}

// NewRenderer creates a renderer. Zone-less dates are read in loc.
func NewRenderer(widget render.Widget, loc *time.Location, clock clockwork.Clock) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Renderer{
		widget: widget,
		loc:    loc,
		clock:  clock,
		newID:  func() string { return "countdown-" + uuid.New().String() },
	}
}

// Location is the zone used for dates without an offset.
func (r *Renderer) Location() *time.Location {
	return r.loc
}

// Validate rejects missing and malformed dates before any engine is built.
func (r *Renderer) Validate(attrs Attributes) (countdown.Target, error) {
	if attrs.Date == "" {
		return countdown.Target{}, ErrMissingDate
	}

	target, err := countdown.ParseTarget(attrs.Date, r.loc)
	if err != nil {
		log.Warn().Err(err).Str("date", attrs.Date).Msg("rejected countdown shortcode")
		return countdown.Target{}, err
	}
	return target, nil
}

// Render writes the widget container, or ErrorHTML when validation fails.
// The validation error is still returned so callers can report it.
func (r *Renderer) Render(w io.Writer, attrs Attributes) error {
	target, err := r.Validate(attrs)
	if err != nil {
		if _, werr := io.WriteString(w, ErrorHTML); werr != nil {
			return errors.Join(err, werr)
		}
		return err
	}

	snapshot := r.widget.String(countdown.Compute(target.Time(), r.clock.Now()), attrs.DisplayConfig())

	data := containerData{
		ID:          r.newID(),
		Date:        target.Time().Format(time.RFC3339),
		ShowSeconds: strconv.FormatBool(attrs.ShowSeconds),
		Class:       attrs.Class,
		Snapshot:    template.HTML(strings.TrimSuffix(snapshot, "\n")),
	}
	if err := containerTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render countdown container: %w", err)
	}
	return nil
}

// RenderString is Render into a string. Failures are already in the markup.
func (r *Renderer) RenderString(attrs Attributes) string {
	var sb strings.Builder
	_ = r.Render(&sb, attrs)
	return sb.String()
}

// Expand replaces every countdown shortcode in content with its markup.
func (r *Renderer) Expand(content string) string {
	return tagPattern.ReplaceAllStringFunc(content, func(tag string) string {
		attrs, err := ParseTag(tag)
		if err != nil {
			return tag
		}
		return r.RenderString(attrs)
	})
}
