package analysis

import (
	"strings"
)

// DateColumnKeywords are tried in order against lower-cased headers when
// guessing a file's date column. Exit time comes first because only exit rows
// carry realized P&L.
var DateColumnKeywords = []string{"exit", "date", "time", "order", "entry"}

const (
	// TypeColumn holds the trade event ("Entry Long", "Exit Short", ...).
	TypeColumn = "Type"
	// ExitKeyword marks a closed position in the type column.
	ExitKeyword = "exit"

	pnlNameKeyword = "net"
	pnlNameMarker  = "%"

	// SpreadsheetPnLOffsetFromEnd locates net P&L % among the non-blank values
	// of a spreadsheet row when no header names it. It matches the broker trade
	// export whose last three columns are net P&L %, run-up and drawdown; it is
	// a layout assumption, not a general rule.
	SpreadsheetPnLOffsetFromEnd = 3
)

// ResolveDateColumn returns the header most likely to hold the trade date, or
// "" when no header matches any of DateColumnKeywords.
func ResolveDateColumn(headers []string) string {
	if i := dateColumnIndex(headers); i >= 0 {
		return headers[i]
	}
	return ""
}

func dateColumnIndex(headers []string) int {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(h)
	}
	for _, keyword := range DateColumnKeywords {
		for i, h := range lower {
			if strings.Contains(h, keyword) {
				return i
			}
		}
	}
	return -1
}

// Schema maps the logical fields of a trade log onto the columns of one file.
// Indexes are -1 when the field was not found.
type Schema struct {
	Headers    []string
	DateColumn int
	TypeColumn int
	PnLColumn  int
	// PnLFromEnd is the positional fallback offset, 0 when not in use.
	PnLFromEnd int
}

// ResolveSchema inspects the headers once so the row scan does no name
// matching. The positional P&L fallback is only enabled for spreadsheets.
func ResolveSchema(headers []string, spreadsheet bool) Schema {
	s := Schema{
		Headers:    headers,
		DateColumn: dateColumnIndex(headers),
		TypeColumn: typeColumnIndex(headers),
		PnLColumn:  pnlColumnIndex(headers),
	}
	if s.PnLColumn < 0 && spreadsheet {
		s.PnLFromEnd = SpreadsheetPnLOffsetFromEnd
	}
	return s
}

// DateColumnName is the header of the resolved date column, or "".
func (s Schema) DateColumnName() string {
	if s.DateColumn < 0 || s.DateColumn >= len(s.Headers) {
		return ""
	}
	return s.Headers[s.DateColumn]
}

func typeColumnIndex(headers []string) int {
	for i, h := range headers {
		if h == TypeColumn {
			return i
		}
	}
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), TypeColumn) {
			return i
		}
	}
	return -1
}

func pnlColumnIndex(headers []string) int {
	for i, h := range headers {
		if strings.Contains(strings.ToLower(h), pnlNameKeyword) && strings.Contains(h, pnlNameMarker) {
			return i
		}
	}
	return -1
}
