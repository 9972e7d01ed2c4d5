package analysis

import (
	"errors"
	"strings"
)

var (
	ErrNoDateColumn = errors.New("please select the date column")
	ErrNoDates      = errors.New("please select at least one date or range")
	ErrTooManyDates = errors.New("too many dates selected")
)

// Preconditions checks an analysis request before any file is read and returns
// the selected dates in canonical form.
func Preconditions(dateColumn string, selection DateSelection) ([]string, error) {
	if strings.TrimSpace(dateColumn) == "" {
		return nil, ErrNoDateColumn
	}
	if err := selection.Validate(); err != nil {
		return nil, err
	}
	dates := selection.Expand()
	if len(dates) == 0 {
		return nil, ErrNoDates
	}
	return dates, nil
}
