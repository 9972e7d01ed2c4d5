package analysis

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/viktsys/tradepnl/models"
)

// Round2 rounds to two decimals, half away from zero, on the shortest decimal
// representation of f (2.675 becomes 2.68).
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// BuildSummary derives the file summary from its accumulator. Win rate is over
// trades, not days. Net P&L is left unrounded.
func BuildSummary(fileName string, acc *Accumulator) models.FileSummary {
	summary := EmptySummary(fileName)
	if acc == nil {
		return summary
	}

	summary.TotalProfitPct = acc.TotalProfitPct
	summary.TotalLossPct = acc.TotalLossPct
	summary.NetPnLPct = acc.TotalProfitPct + acc.TotalLossPct
	summary.TotalTrades = acc.TotalTrades
	summary.WinningTrades = acc.WinningTrades
	if acc.TotalTrades > 0 {
		summary.WinRate = Round2(100 * float64(acc.WinningTrades) / float64(acc.TotalTrades))
	}

	for date, pnl := range acc.ByDate {
		summary.ByDate[date] = pnl
	}
	summary.SortedByDate = RankDates(acc.ByDate, acc.DateOrder())

	for reason, n := range acc.Skipped {
		summary.Skipped[string(reason)] = n
	}
	return summary
}

// EmptySummary is the all-zero summary used for files that produced no trades
// or could not be read.
func EmptySummary(fileName string) models.FileSummary {
	return models.FileSummary{
		FileName:     fileName,
		ByDate:       map[string]float64{},
		SortedByDate: []models.DatePnL{},
		Skipped:      map[string]int{},
	}
}

// RankDates orders days by P&L, best first. Days with equal P&L keep the order
// given in order, which for an accumulator is first appearance in the file and
// not calendar order.
func RankDates(byDate map[string]float64, order []string) []models.DatePnL {
	ranked := make([]models.DatePnL, 0, len(byDate))
	for _, date := range order {
		if pnl, ok := byDate[date]; ok {
			ranked = append(ranked, models.DatePnL{Date: date, PnL: pnl})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PnL > ranked[j].PnL
	})
	return ranked
}
