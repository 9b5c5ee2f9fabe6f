// Package shortcode is the page-embedding surface for countdowns. It turns
// [react_countdown] tags, query strings and block attributes into validated
// countdown input, and renders either the widget container or an error.
package shortcode

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/mcdev12/countdown/go/internal/countdown"
)

// Tag is the shortcode name.
const Tag = "react_countdown"

var (
	// ErrMissingDate is returned when no date attribute was supplied
	ErrMissingDate = errors.New("countdown date is required")

	// ErrNoShortcode is returned when text does not contain a countdown tag
	ErrNoShortcode = errors.New("no " + Tag + " shortcode found")
)

var (
	tagPattern  = regexp.MustCompile(`\[` + Tag + `(\s[^\]]*)?/?\]`)
	attrPattern = regexp.MustCompile(`([\w-]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'\]]+))`)
)

// Attributes are the three textual parameters a page supplies.
type Attributes struct {
	Date        string
	ShowSeconds bool
	Class       string
}

// DefaultAttributes has no date, shows seconds and adds no class.
func DefaultAttributes() Attributes {
	return Attributes{ShowSeconds: true}
}

// DisplayConfig converts the attributes into engine display settings.
func (a Attributes) DisplayConfig() countdown.DisplayConfig {
	return countdown.DisplayConfig{
		ShowSeconds: a.ShowSeconds,
		StyleTag:    a.Class,
	}
}

// ParseBool accepts 1, true, on and yes in any case.
// Anything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

// ParseTag reads the first countdown shortcode found in text.
func ParseTag(text string) (Attributes, error) {
	match := tagPattern.FindStringSubmatch(text)
	if match == nil {
		return Attributes{}, ErrNoShortcode
	}
	return parseAttrString(match[1]), nil
}

func parseAttrString(s string) Attributes {
	values := url.Values{}
	for _, m := range attrPattern.FindAllStringSubmatchIndex(s, -1) {
		key := strings.ToLower(s[m[2]:m[3]])
		switch {
		case m[4] >= 0:
			values.Set(key, s[m[4]:m[5]])
		case m[6] >= 0:
			values.Set(key, s[m[6]:m[7]])
		default:
			values.Set(key, s[m[8]:m[9]])
		}
	}
	return FromValues(values)
}

// FromValues reads date, show_seconds and class, applying the defaults for
// missing keys.
func FromValues(values url.Values) Attributes {
	attrs := DefaultAttributes()
	attrs.Date = strings.TrimSpace(values.Get("date"))
	if values.Has("show_seconds") {
		attrs.ShowSeconds = ParseBool(values.Get("show_seconds"))
	}
	attrs.Class = strings.TrimSpace(values.Get("class"))
	return attrs
}

// FromBlock reads editor block attributes (date, showSeconds, className).
func FromBlock(block map[string]any) (Attributes, error) {
	attrs := DefaultAttributes()

	if v, ok := block["date"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return Attributes{}, fmt.Errorf("block attribute date: expected string, got %T", v)
		}
		attrs.Date = strings.TrimSpace(s)
	}

	if v, ok := block["showSeconds"]; ok && v != nil {
		switch b := v.(type) {
		case bool:
			attrs.ShowSeconds = b
		case string:
			attrs.ShowSeconds = ParseBool(b)
		default:
			return Attributes{}, fmt.Errorf("block attribute showSeconds: expected boolean, got %T", v)
		}
	}

	if v, ok := block["className"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return Attributes{}, fmt.Errorf("block attribute className: expected string, got %T", v)
		}
		attrs.Class = strings.TrimSpace(s)
	}

	return attrs, nil
}
