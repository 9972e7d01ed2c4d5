package analysis

import (
	"fmt"
	"sort"

	"github.com/viktsys/tradepnl/models"
)

type SortKey string

const (
	SortByNetPnL  SortKey = "netPnL"
	SortByWinRate SortKey = "winRate"
)

type SortOrder string

const (
	Descending SortOrder = "desc"
	Ascending  SortOrder = "asc"
)

// ParseSort validates sort options, defaulting to net P&L, highest first.
func ParseSort(key, order string) (SortKey, SortOrder, error) {
	k, o := SortKey(key), SortOrder(order)
	if k == "" {
		k = SortByNetPnL
	}
	if o == "" {
		o = Descending
	}
	if k != SortByNetPnL && k != SortByWinRate {
		return "", "", fmt.Errorf("invalid sort key %q: use %s or %s", key, SortByNetPnL, SortByWinRate)
	}
	if o != Descending && o != Ascending {
		return "", "", fmt.Errorf("invalid sort order %q: use %s or %s", order, Descending, Ascending)
	}
	return k, o, nil
}

// SortSummaries returns a sorted copy of summaries. The sort is stable, so
// files with equal values keep their submission order.
func SortSummaries(summaries []models.FileSummary, key SortKey, order SortOrder) []models.FileSummary {
	sorted := make([]models.FileSummary, len(summaries))
	copy(sorted, summaries)

	value := func(s models.FileSummary) float64 {
		if key == SortByWinRate {
			return s.WinRate
		}
		return s.NetPnLPct
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if order == Ascending {
			return value(sorted[i]) < value(sorted[j])
		}
		return value(sorted[i]) > value(sorted[j])
	})
	return sorted
}

// Overall aggregates the files of one analysis.
type Overall struct {
	NetPnLPct      float64 `json:"netPnLPct"`
	AverageWinRate float64 `json:"averageWinRate"`
	Files          int     `json:"files"`
}

func ComputeOverall(summaries []models.FileSummary) Overall {
	o := Overall{Files: len(summaries)}
	if len(summaries) == 0 {
		return o
	}
	var winRates float64
	for _, s := range summaries {
		o.NetPnLPct += s.NetPnLPct
		winRates += s.WinRate
	}
	o.AverageWinRate = winRates / float64(len(summaries))
	return o
}
