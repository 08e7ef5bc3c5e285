package service

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const dateLayout = "2006-01-02"

// fieldSet accumulates missing or malformed fields of one payload, in the
// order they are checked.
type fieldSet struct {
	bad []string
}

// Column widths of the users and crops tables, in characters.
const (
	maxCropID   = 128
	maxText     = 255 // names, emails and locations
	maxUsername = 64
	maxRole     = 16
	maxPhone    = 32
	maxAddress  = 1024
)

// text requires a non-empty value of at most max characters.
func (f *fieldSet) text(name, v string, max int) string {
	v = strings.TrimSpace(v)
	if v == "" || utf8.RuneCountInString(v) > max {
		f.bad = append(f.bad, name)
	}
	return v
}

// positive parses a finite number that must be greater than zero.
func (f *fieldSet) positive(name, v string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		f.bad = append(f.bad, name)
		return 0
	}
	return n
}

// integer parses a whole number that must be greater than zero.
func (f *fieldSet) integer(name, v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 {
		f.bad = append(f.bad, name)
		return 0
	}
	return n
}

// date accepts YYYY-MM-DD or RFC 3339 and returns the instant in UTC.
func (f *fieldSet) date(name, v string) time.Time {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC()
	}
	f.bad = append(f.bad, name)
	return time.Time{}
}

func (f *fieldSet) err() error {
	if len(f.bad) == 0 {
		return nil
	}
	return validationError(f.bad)
}
