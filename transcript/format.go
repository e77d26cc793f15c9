package transcript

import (
	"time"

	"golang.org/x/text/language"
)

type layouts struct {
	date  string
	clock string
}

// The first tag is the fallback for unmatched locales.
var (
	supported = []language.Tag{
		language.AmericanEnglish,
		language.BritishEnglish,
		language.German,
		language.French,
		language.Japanese,
	}
	supportedLayouts = []layouts{
		{date: "1/2/2006", clock: "3:04:05 PM"},
		{date: "02/01/2006", clock: "15:04:05"},
		{date: "2.1.2006", clock: "15:04:05"},
		{date: "02/01/2006", clock: "15:04:05"},
		{date: "2006/1/2", clock: "15:04:05"},
	}
	matcher = language.NewMatcher(supported)
)

// Formatter renders dates and times the way a locale displays them.
type Formatter struct {
	Tag        language.Tag
	Location   *time.Location
	DateLayout string
	TimeLayout string
}

// NewFormatter picks layouts for locale, falling back to en-US when the locale
// is unknown or unparseable. A nil loc means time.Local.
func NewFormatter(locale string, loc *time.Location) Formatter {
	if loc == nil {
		loc = time.Local
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	_, idx, _ := matcher.Match(tag)
	l := supportedLayouts[idx]
	return Formatter{
		Tag:        supported[idx],
		Location:   loc,
		DateLayout: l.date,
		TimeLayout: l.clock,
	}
}

// Date formats the calendar date of t.
func (f Formatter) Date(t time.Time) string {
	return t.In(f.location()).Format(f.DateLayout)
}

// Clock formats the time of day of t.
func (f Formatter) Clock(t time.Time) string {
	return t.In(f.location()).Format(f.TimeLayout)
}

func (f Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}
