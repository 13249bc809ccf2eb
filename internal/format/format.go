// Package format renders numbers and dates for operator-facing views.
package format

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DateLayout = "2006-01-02"

// Formatter is injected into page controllers and renderers. The zero value
// is not usable; call New.
type Formatter struct {
	printer *message.Printer
	loc     *time.Location
}

func New(tag language.Tag, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{printer: message.NewPrinter(tag), loc: loc}
}

// Korean is the default formatter: grouping with commas, local dates.
func Korean() *Formatter {
	return New(language.Korean, nil)
}

// Number groups thousands, so 1234567 becomes "1,234,567".
func (f *Formatter) Number(n int64) string {
	return f.printer.Sprintf("%d", n)
}

// Won appends the currency suffix used on receipts.
func (f *Formatter) Won(n int64) string {
	return f.Number(n) + "원"
}

func (f *Formatter) Percent(n int64) string {
	return f.printer.Sprintf("%d%%", n)
}

func (f *Formatter) Date(t time.Time) string {
	return t.In(f.loc).Format(DateLayout)
}

func (f *Formatter) Today(now time.Time) string {
	return f.Date(now)
}

// ParseDate reads a YYYY-MM-DD value in the formatter's location.
func (f *Formatter) ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), f.loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "날짜 형식이 올바르지 않습니다: %q", value)
	}
	return t, nil
}

// MonthAgo is the default start of the refund lookup range.
func (f *Formatter) MonthAgo(today time.Time) time.Time {
	return today.In(f.loc).AddDate(0, -1, 0)
}

// NextDay shifts a YYYY-MM-DD value by one day, for all-day event ends.
func (f *Formatter) NextDay(value string) (string, error) {
	t, err := f.ParseDate(value)
	if err != nil {
		return "", err
	}
	return f.Date(t.AddDate(0, 0, 1)), nil
}
