package analytics

// PlayerSummary is the career/period rollup of one player at one skill level:
// best values, plain means, totals, and rate stats weighted by their own
// denominators.
type PlayerSummary struct {
	Name       string `json:"name"`
	SkillLevel int64  `json:"skill_level"`
	Sessions   int    `json:"sessions"`

	MaxExitVelMph     float64 `json:"max_exit_vel_mph"`
	MaxPitchVelMph    float64 `json:"max_pitch_vel_mph"`
	MaxDistanceFeet   int64   `json:"max_distance_ft"`
	MaxGroundDistFeet int64   `json:"max_ground_dist_ft"`
	HHVelMph          float64 `json:"hh_vel_mph"`
	MaxPoints         int64   `json:"max_points"`

	AvgDistanceFeet   float64 `json:"avg_distance_ft"`
	AvgElevation      float64 `json:"avg_elevation"`
	AvgGroundDistFeet float64 `json:"avg_ground_dist_ft"`
	LDPercentage      float64 `json:"ld_pct"`
	FBPercentage      float64 `json:"fb_pct"`
	GBPercentage      float64 `json:"gb_pct"`
	LOPercentage      float64 `json:"lo_pct"`

	Singles    int64 `json:"singles"`
	Doubles    int64 `json:"doubles"`
	Triples    int64 `json:"triples"`
	HomeRuns   int64 `json:"home_runs"`
	HitCount   int64 `json:"hit_count"`
	AB         int64 `json:"ab"`
	FoulBalls  int64 `json:"foul_balls"`
	HHCount    int64 `json:"hh_count"`
	PitchCount int64 `json:"pitch_count"`
	Strikes    int64 `json:"strikes"`
	Balls      int64 `json:"balls"`
	Score      int64 `json:"score"`

	// AVG and SLG are weighted by AB, AvgExitVelMph by HitCount and
	// AvgPitchVelMph by PitchCount. A zero denominator yields 0.
	AVG            float64 `json:"avg"`
	SLG            float64 `json:"slg"`
	AvgExitVelMph  float64 `json:"avg_exit_vel_mph"`
	AvgPitchVelMph float64 `json:"avg_pitch_vel_mph"`
}

// CalculatePlayerSummary builds one summary per (name, skill level), ordered by
// name then skill level. The result is never nil.
func CalculatePlayerSummary(sessions []SessionRecord) []PlayerSummary {
	keys, groups := groupByPlayer(sessions)
	sortKeys(keys)

	out := make([]PlayerSummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, summarize(k, groups[k]))
	}
	return out
}

func summarize(k playerKey, group []SessionRecord) PlayerSummary {
	sum := PlayerSummary{Name: k.name, SkillLevel: k.skillLevel, Sessions: len(group)}

	var (
		avgDist, elev, ground, ld, fb, gb, lo float64
		avgW, slgW, exitW, pitchW             float64
	)
	for i, s := range group {
		first := i == 0
		if first || s.MaxExitVelMph > sum.MaxExitVelMph {
			sum.MaxExitVelMph = s.MaxExitVelMph
		}
		if first || s.MaxPitchVelMph > sum.MaxPitchVelMph {
			sum.MaxPitchVelMph = s.MaxPitchVelMph
		}
		if first || s.MaxDistanceFeet > sum.MaxDistanceFeet {
			sum.MaxDistanceFeet = s.MaxDistanceFeet
		}
		if first || s.MaxGroundDistFeet > sum.MaxGroundDistFeet {
			sum.MaxGroundDistFeet = s.MaxGroundDistFeet
		}
		if first || s.HHVelMph > sum.HHVelMph {
			sum.HHVelMph = s.HHVelMph
		}
		if first || s.MaxPoints > sum.MaxPoints {
			sum.MaxPoints = s.MaxPoints
		}

		avgDist += float64(s.AvgDistanceFeet)
		elev += s.AvgElevation
		ground += float64(s.AvgGroundDistFeet)
		ld += s.LDPercentage
		fb += s.FBPercentage
		gb += s.GBPercentage
		lo += s.LOPercentage

		sum.Singles += s.Singles
		sum.Doubles += s.Doubles
		sum.Triples += s.Triples
		sum.HomeRuns += s.HomeRuns
		sum.HitCount += s.HitCount
		sum.AB += s.AB
		sum.FoulBalls += s.FoulBalls
		sum.HHCount += s.HHCount
		sum.PitchCount += s.PitchCount
		sum.Strikes += s.Strikes
		sum.Balls += s.Balls
		sum.Score += s.Score

		avgW += s.AVG * float64(s.AB)
		slgW += s.SLG * float64(s.AB)
		exitW += s.AvgExitVelMph * float64(s.HitCount)
		pitchW += s.AvgPitchVelMph * float64(s.PitchCount)
	}

	n := float64(len(group))
	sum.AvgDistanceFeet = avgDist / n
	sum.AvgElevation = elev / n
	sum.AvgGroundDistFeet = ground / n
	sum.LDPercentage = ld / n
	sum.FBPercentage = fb / n
	sum.GBPercentage = gb / n
	sum.LOPercentage = lo / n

	sum.AVG = ratio(avgW, sum.AB)
	sum.SLG = ratio(slgW, sum.AB)
	sum.AvgExitVelMph = ratio(exitW, sum.HitCount)
	sum.AvgPitchVelMph = ratio(pitchW, sum.PitchCount)
	return sum
}

func ratio(num float64, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return num / float64(den)
}
