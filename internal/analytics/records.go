package analytics

import (
	"cmp"
	"slices"
	"time"
)

// FullNameSQL renders a player's "First Last" name from the users alias u. It is
// NULL when either part is NULL; such users have no name and are left out of
// player listings and rankings.
const FullNameSQL = `u."FirstName" || ' ' || u."LastName"`

// SessionRecord is one session joined with its player, in display units.
type SessionRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	TimeStamp  time.Time `json:"timestamp"`
	Name       string    `json:"name"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	School     string    `json:"school"`
	SkillLevel int64     `json:"skill_level"`
	Height     float64   `json:"height_ft"`
	Weight     int64     `json:"weight_lbs"`
	Active     int64     `json:"active"`

	MaxExitVelMph  float64 `json:"max_exit_vel_mph"`
	AvgExitVelMph  float64 `json:"avg_exit_vel_mph"`
	MaxPitchVelMph float64 `json:"max_pitch_vel_mph"`
	AvgPitchVelMph float64 `json:"avg_pitch_vel_mph"`
	HHVelMph       float64 `json:"hh_vel_mph"`

	MaxDistanceFeet   int64 `json:"max_distance_ft"`
	AvgDistanceFeet   int64 `json:"avg_distance_ft"`
	MaxGroundDistFeet int64 `json:"max_ground_dist_ft"`
	AvgGroundDistFeet int64 `json:"avg_ground_dist_ft"`

	AvgElevation float64 `json:"avg_elevation"`
	LDPercentage float64 `json:"ld_pct"`
	FBPercentage float64 `json:"fb_pct"`
	GBPercentage float64 `json:"gb_pct"`
	LOPercentage float64 `json:"lo_pct"`

	PitchCount int64   `json:"pitch_count"`
	HitCount   int64   `json:"hit_count"`
	Singles    int64   `json:"singles"`
	Doubles    int64   `json:"doubles"`
	Triples    int64   `json:"triples"`
	HomeRuns   int64   `json:"home_runs"`
	FoulBalls  int64   `json:"foul_balls"`
	Strikes    int64   `json:"strikes"`
	Balls      int64   `json:"balls"`
	HHCount    int64   `json:"hh_count"`
	Score      int64   `json:"score"`
	MaxPoints  int64   `json:"max_points"`
	AB         int64   `json:"ab"`
	AVG        float64 `json:"avg"`
	SLG        float64 `json:"slg"`
}

type playerKey struct {
	name       string
	skillLevel int64
}

// groupByPlayer buckets sessions by (name, skill level), preserving first-seen
// order. Sessions without a player name are dropped.
func groupByPlayer(sessions []SessionRecord) ([]playerKey, map[playerKey][]SessionRecord) {
	var keys []playerKey
	groups := make(map[playerKey][]SessionRecord)
	for _, s := range sessions {
		if s.Name == "" {
			continue
		}
		k := playerKey{name: s.Name, skillLevel: s.SkillLevel}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], s)
	}
	return keys, groups
}

func sortKeys(keys []playerKey) {
	slices.SortFunc(keys, func(a, b playerKey) int {
		return cmp.Or(cmp.Compare(a.name, b.name), cmp.Compare(a.skillLevel, b.skillLevel))
	})
}
