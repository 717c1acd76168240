package export

import (
	"fmt"

	"github.com/afasulo/htdashboard/internal/analytics"
	"github.com/afasulo/htdashboard/internal/units"
)

const (
	SessionsSheet = "Sessions"
	SummarySheet  = "Summary"
	PlaysSheet    = "Plays"
)

var sessionHeaders = []string{
	"Date", "Skill Level", "At Bats", "Hits", "AVG", "SLG",
	"Max Exit Velo (mph)", "Avg Exit Velo (mph)", "Max Distance (ft)", "Avg Distance (ft)",
	"Home Runs", "Score",
}

var summaryHeaders = []string{
	"Name", "Skill Level", "Sessions", "At Bats", "Hits", "AVG", "SLG",
	"Max Exit Velo (mph)", "Avg Exit Velo (mph)", "Avg Pitch Velo (mph)",
	"Max Distance (ft)", "Avg Distance (ft)", "Home Runs",
}

// Player writes a player's sessions, their per skill level summary and the raw
// plays. plays is in source units and is converted here.
func Player(sessions []analytics.SessionRecord, plays *units.Batch) ([]byte, error) {
	converted, err := units.Convert(plays)
	if err != nil {
		return nil, fmt.Errorf("failed to convert plays: %w", err)
	}

	w, err := newWorkbook()
	if err != nil {
		return nil, err
	}

	sessionRows := make([][]any, len(sessions))
	for i, s := range sessions {
		sessionRows[i] = []any{
			s.TimeStamp, s.SkillLevel, s.AB, s.HitCount, s.AVG, s.SLG,
			s.MaxExitVelMph, s.AvgExitVelMph, s.MaxDistanceFeet, s.AvgDistanceFeet,
			s.HomeRuns, s.Score,
		}
	}

	summaries := analytics.CalculatePlayerSummary(sessions)
	summaryRows := make([][]any, len(summaries))
	for i, s := range summaries {
		summaryRows[i] = []any{
			s.Name, s.SkillLevel, s.Sessions, s.AB, s.HitCount, s.AVG, s.SLG,
			s.MaxExitVelMph, s.AvgExitVelMph, s.AvgPitchVelMph,
			s.MaxDistanceFeet, s.AvgDistanceFeet, s.HomeRuns,
		}
	}

	playHeaders := make([]string, len(converted.Columns))
	for i, c := range converted.Columns {
		playHeaders[i] = c
		if unit := units.KindOf(c).Unit(); unit != "" {
			playHeaders[i] = fmt.Sprintf("%s (%s)", c, unit)
		}
	}

	for _, s := range []struct {
		name    string
		headers []string
		rows    [][]any
	}{
		{SessionsSheet, sessionHeaders, sessionRows},
		{SummarySheet, summaryHeaders, summaryRows},
		{PlaysSheet, playHeaders, converted.Rows},
	} {
		if err := w.sheet(s.name, s.headers, s.rows); err != nil {
			w.f.Close()
			return nil, err
		}
	}
	return w.bytes()
}
