package query

import (
	"slices"
	"time"

	"github.com/afasulo/htdashboard/internal/analytics"
)

// SessionFilter narrows session results. Empty fields do not filter. Start and
// End are calendar dates; End includes its whole day.
type SessionFilter struct {
	SkillLevels []int64
	Players     []string
	Start       *time.Time
	End         *time.Time
}

func (fl SessionFilter) IsZero() bool {
	return len(fl.SkillLevels) == 0 && len(fl.Players) == 0 && fl.Start == nil && fl.End == nil
}

// Apply returns the matching sessions in input order.
func (fl SessionFilter) Apply(sessions []analytics.SessionRecord) []analytics.SessionRecord {
	out := make([]analytics.SessionRecord, 0, len(sessions))
	for _, s := range sessions {
		if fl.match(s) {
			out = append(out, s)
		}
	}
	return out
}

func (fl SessionFilter) match(s analytics.SessionRecord) bool {
	if len(fl.SkillLevels) > 0 && !slices.Contains(fl.SkillLevels, s.SkillLevel) {
		return false
	}
	if len(fl.Players) > 0 && !slices.Contains(fl.Players, s.Name) {
		return false
	}
	if fl.Start != nil && s.TimeStamp.Before(startOfDay(*fl.Start)) {
		return false
	}
	if fl.End != nil && !s.TimeStamp.Before(startOfDay(*fl.End).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
