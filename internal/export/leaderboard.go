package export

import (
	"slices"

	"github.com/afasulo/htdashboard/internal/analytics"
)

var leaderboardHeaders = []string{
	"Graduation Year", "Rank", "Name", "School", "Value", "Unit",
	"At Bats", "AVG", "SLG", "Home Runs",
}

// Leaderboard writes one sheet per metric key in display order. Years are
// ascending; a year without qualified players contributes no rows.
func Leaderboard(lb analytics.Leaderboard) ([]byte, error) {
	w, err := newWorkbook()
	if err != nil {
		return nil, err
	}

	for _, key := range analytics.MetricKeys() {
		byYear := lb[key]
		years := make([]int, 0, len(byYear))
		for y := range byYear {
			years = append(years, y)
		}
		slices.Sort(years)

		var rows [][]any
		for _, y := range years {
			for _, e := range byYear[y] {
				rows = append(rows, []any{
					y, e.Rank, e.Name, e.School, e.Value, e.Unit,
					e.TotalABs, e.BattingAvg, e.SlgPct, e.HomeRuns,
				})
			}
		}
		if err := w.sheet(key, leaderboardHeaders, rows); err != nil {
			w.f.Close()
			return nil, err
		}
	}
	return w.bytes()
}
