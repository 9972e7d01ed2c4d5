package analysis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SkipReason explains why a row did not count towards a summary.
type SkipReason string

const (
	SkipNotExit         SkipReason = "not_exit"
	SkipBadDate         SkipReason = "bad_date"
	SkipDateNotSelected SkipReason = "date_not_selected"
	// The two reasons below do not drop the row: its P&L counts as zero.
	SkipBadPnL      SkipReason = "bad_pnl"
	SkipNoPnLColumn SkipReason = "no_pnl_column"
)

// Accumulator collects the running totals of one file.
type Accumulator struct {
	TotalProfitPct float64
	TotalLossPct   float64
	TotalTrades    int
	WinningTrades  int
	ByDate         map[string]float64
	Skipped        map[SkipReason]int

	dateOrder []string
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		ByDate:  make(map[string]float64),
		Skipped: make(map[SkipReason]int),
	}
}

// Add records one closed trade on date.
func (a *Accumulator) Add(date string, pnlPct float64) {
	a.TotalTrades++
	if pnlPct > 0 {
		a.WinningTrades++
		a.TotalProfitPct += pnlPct
	} else {
		a.TotalLossPct += pnlPct
	}

	if _, seen := a.ByDate[date]; !seen {
		a.dateOrder = append(a.dateOrder, date)
	}
	a.ByDate[date] += pnlPct
}

func (a *Accumulator) skip(reason SkipReason) {
	a.Skipped[reason]++
}

// DateOrder lists the dates of ByDate in the order they were first seen.
func (a *Accumulator) DateOrder() []string {
	return a.dateOrder
}

// Aggregate scans rows once and sums the net P&L % of exit trades whose date
// is in selected. Rows are positional and aligned with schema.Headers.
func Aggregate(rows [][]any, schema Schema, selected DateSet) *Accumulator {
	acc := NewAccumulator()

	for _, row := range rows {
		if !strings.Contains(strings.ToLower(cellText(cell(row, schema.TypeColumn))), ExitKeyword) {
			acc.skip(SkipNotExit)
			continue
		}

		date, ok := NormalizeDate(cell(row, schema.DateColumn))
		if !ok {
			acc.skip(SkipBadDate)
			continue
		}
		if !selected.Contains(date) {
			acc.skip(SkipDateNotSelected)
			continue
		}

		acc.Add(date, rowPnL(acc, row, schema))
	}

	return acc
}

func rowPnL(acc *Accumulator, row []any, schema Schema) float64 {
	var raw any
	switch {
	case schema.PnLColumn >= 0:
		raw = cell(row, schema.PnLColumn)
	case schema.PnLFromEnd > 0:
		raw = valueFromEnd(row, schema.PnLFromEnd)
	default:
		acc.skip(SkipNoPnLColumn)
		return 0
	}

	pnl, ok := ParsePercent(raw)
	if !ok {
		acc.skip(SkipBadPnL)
	}
	return pnl
}

func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// valueFromEnd returns the n-th from last non-blank value of row.
func valueFromEnd(row []any, n int) any {
	for i := len(row) - 1; i >= 0; i-- {
		if row[i] == nil {
			continue
		}
		if s, ok := row[i].(string); ok && s == "" {
			continue
		}
		n--
		if n == 0 {
			return row[i]
		}
	}
	return nil
}

var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// ParsePercent reads a P&L cell. Text is parsed from its leading number, so
// "2.5%" is 2.5 and "1,234" is 1. Unreadable values are 0 and not ok.
func ParsePercent(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		m := leadingNumber.FindString(strings.TrimSpace(v))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// cellText renders a raw cell for substring matching.
func cellText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprint(c)
	}
}
