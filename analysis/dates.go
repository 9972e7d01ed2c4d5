package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// CanonicalLayout is the DD-MM-YYYY layout every date is compared in.
const CanonicalLayout = "02-01-2006"

// maxSerial is 9999-12-31 in the 1900 spreadsheet date system.
const maxSerial = 2958465

// NormalizeDate converts a raw date cell into the canonical DD-MM-YYYY form.
//
// Numbers are spreadsheet date serials. Text keeps only its first whitespace
// separated token (dropping any time of day) and is split on "/" or "-". A
// leading four digit part means YYYY-MM-DD; anything else is read day first,
// so MM/DD/YYYY input and two digit years are not told apart from DD/MM/YYYY.
func NormalizeDate(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return normalizeText(v)
	case float64:
		return normalizeSerial(v)
	case float32:
		return normalizeSerial(float64(v))
	case int:
		return normalizeSerial(float64(v))
	case int64:
		return normalizeSerial(float64(v))
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return v.Format(CanonicalLayout), true
	default:
		return normalizeText(fmt.Sprint(v))
	}
}

func normalizeText(s string) (string, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", false
	}
	token := fields[0]

	sep := "-"
	if strings.Contains(token, "/") {
		sep = "/"
	}
	parts := strings.Split(token, sep)
	if len(parts) != 3 {
		return "", false
	}

	day, month, year := parts[0], parts[1], parts[2]
	if len(parts[0]) == 4 {
		year, month, day = parts[0], parts[1], parts[2]
	}
	return padTwo(day) + "-" + padTwo(month) + "-" + year, true
}

func padTwo(s string) string {
	if len(s) >= 2 {
		return s
	}
	return strings.Repeat("0", 2-len(s)) + s
}

func normalizeSerial(serial float64) (string, bool) {
	if serial == 0 {
		return "", false
	}
	y, m, d, ok := serialToDate(serial)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%02d-%02d-%d", d, m, y), true
}

// serialToDate decodes a 1900 date system serial. Serial 60 is the fictitious
// 1900-02-29 that spreadsheet formats kept for compatibility, so serials before
// it are offset by one day. Serial 0 decodes to day 0 of January 1900.
func serialToDate(serial float64) (year, month, day int, ok bool) {
	if math.IsNaN(serial) || serial < 0 || serial > maxSerial {
		return 0, 0, 0, false
	}

	days := math.Floor(serial)
	if math.Round((serial-days)*86400) >= 86400 {
		days++
	}

	n := int(days)
	switch {
	case n == 0:
		return 1900, 1, 0, true
	case n == 60:
		return 1900, 2, 29, true
	case n < 60:
		t := time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
		return t.Year(), int(t.Month()), t.Day(), true
	default:
		t := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
		return t.Year(), int(t.Month()), t.Day(), true
	}
}

// FormatDay renders t as a canonical date.
func FormatDay(t time.Time) string {
	return t.Format(CanonicalLayout)
}

// minYear is the first year of the 1900 spreadsheet date system.
const minYear = 1900

var dayLayouts = []string{"2006-01-02", CanonicalLayout, "02/01/2006"}

// ParseDay parses a calendar day given as YYYY-MM-DD, DD-MM-YYYY or DD/MM/YYYY.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() < minYear {
				return time.Time{}, fmt.Errorf("invalid date %q: dates before %d are not supported", s, minYear)
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or DD-MM-YYYY", s)
}

// SelectionMode tells how a DateSelection picks its days.
type SelectionMode string

const (
	ModeRange    SelectionMode = "range"
	ModeMultiple SelectionMode = "multiple"
)

// DateSelection is the set of trading days an analysis is restricted to.
// In range mode every day from Start to End inclusive is selected, with End
// defaulting to Start. In multiple mode the listed Dates are selected.
type DateSelection struct {
	Mode  SelectionMode
	Start time.Time
	End   time.Time
	Dates []time.Time
}

// MaxSelectedDays caps how many days one selection may cover.
const MaxSelectedDays = 3660

// Validate rejects selections covering more than MaxSelectedDays days.
func (s DateSelection) Validate() error {
	if len(s.Dates) > MaxSelectedDays {
		return fmt.Errorf("%w: %d dates listed, at most %d allowed", ErrTooManyDates, len(s.Dates), MaxSelectedDays)
	}
	if s.Mode == ModeMultiple || (s.Mode == "" && len(s.Dates) > 0) || s.Start.IsZero() || s.End.IsZero() {
		return nil
	}
	last := truncateDay(s.Start).AddDate(0, 0, MaxSelectedDays-1)
	if truncateDay(s.End).After(last) {
		return fmt.Errorf("%w: range from %s to %s covers more than %d days",
			ErrTooManyDates, FormatDay(s.Start), FormatDay(s.End), MaxSelectedDays)
	}
	return nil
}

// Expand lists the selected days in canonical form, in selection order and
// without duplicates.
func (s DateSelection) Expand() []string {
	mode := s.Mode
	if mode == "" {
		mode = ModeRange
		if len(s.Dates) > 0 {
			mode = ModeMultiple
		}
	}

	if mode == ModeMultiple {
		seen := make(map[string]struct{}, len(s.Dates))
		out := make([]string, 0, len(s.Dates))
		for _, d := range s.Dates {
			day := FormatDay(d)
			if _, dup := seen[day]; dup {
				continue
			}
			seen[day] = struct{}{}
			out = append(out, day)
		}
		return out
	}

	if s.Start.IsZero() {
		return nil
	}
	start := truncateDay(s.Start)
	end := start
	if !s.End.IsZero() {
		end = truncateDay(s.End)
	}

	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, FormatDay(d))
	}
	return out
}

// ParseSelection builds a selection from user input. An empty mode is
// inferred from which fields are set.
func ParseSelection(mode, start, end string, dates []string) (DateSelection, error) {
	sel := DateSelection{Mode: SelectionMode(strings.ToLower(strings.TrimSpace(mode)))}
	switch sel.Mode {
	case "", ModeRange, ModeMultiple:
	default:
		return DateSelection{}, fmt.Errorf("invalid selection mode %q: use %s or %s", mode, ModeRange, ModeMultiple)
	}

	var err error
	if strings.TrimSpace(start) != "" {
		if sel.Start, err = ParseDay(start); err != nil {
			return DateSelection{}, err
		}
	}
	if strings.TrimSpace(end) != "" {
		if sel.End, err = ParseDay(end); err != nil {
			return DateSelection{}, err
		}
	}
	for _, d := range dates {
		if strings.TrimSpace(d) == "" {
			continue
		}
		day, err := ParseDay(d)
		if err != nil {
			return DateSelection{}, err
		}
		sel.Dates = append(sel.Dates, day)
	}
	if err := sel.Validate(); err != nil {
		return DateSelection{}, err
	}
	return sel, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateSet is a lookup of canonical dates.
type DateSet map[string]struct{}

func NewDateSet(dates []string) DateSet {
	set := make(DateSet, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

func (s DateSet) Contains(date string) bool {
	_, ok := s[date]
	return ok
}
