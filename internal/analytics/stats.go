package analytics

// DefaultPlayerMinAtBats is the qualification threshold for player stats.
const DefaultPlayerMinAtBats = 10

// PlayerStats is the per (player, skill level) rollup shown in the stats table.
type PlayerStats struct {
	Name            string  `json:"name"`
	SkillLevel      int64   `json:"skill_level"`
	AB              int64   `json:"ab"`
	MaxExitVelMph   float64 `json:"max_exit_vel_mph"`
	AvgExitVelMph   float64 `json:"avg_exit_vel_mph"`
	MaxDistanceFeet int64   `json:"max_distance_ft"`
	AVG             float64 `json:"avg"`
	SLG             float64 `json:"slg"`
	HomeRuns        int64   `json:"home_runs"`
	HitCount        int64   `json:"hit_count"`
}

// CalculatePlayerStats groups sessions by player name and skill level and drops
// groups with fewer than minAtBats at-bats. Averages are plain means over
// sessions, not weighted by at-bats. The result is ordered by name then skill
// level and is never nil.
func CalculatePlayerStats(sessions []SessionRecord, minAtBats int) []PlayerStats {
	keys, groups := groupByPlayer(sessions)
	sortKeys(keys)

	out := make([]PlayerStats, 0, len(keys))
	for _, k := range keys {
		group := groups[k]
		st := PlayerStats{Name: k.name, SkillLevel: k.skillLevel}

		var avgExit, avg, slg float64
		for i, s := range group {
			st.AB += s.AB
			st.HomeRuns += s.HomeRuns
			st.HitCount += s.HitCount
			if i == 0 || s.MaxExitVelMph > st.MaxExitVelMph {
				st.MaxExitVelMph = s.MaxExitVelMph
			}
			if i == 0 || s.MaxDistanceFeet > st.MaxDistanceFeet {
				st.MaxDistanceFeet = s.MaxDistanceFeet
			}
			avgExit += s.AvgExitVelMph
			avg += s.AVG
			slg += s.SLG
		}
		if st.AB < int64(minAtBats) {
			continue
		}

		n := float64(len(group))
		st.AvgExitVelMph = avgExit / n
		st.AVG = avg / n
		st.SLG = slg / n
		out = append(out, st)
	}
	return out
}
