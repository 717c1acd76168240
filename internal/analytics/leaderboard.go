package analytics

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/config"
	"github.com/afasulo/htdashboard/internal/database"
	"github.com/afasulo/htdashboard/internal/metrics"
	"github.com/afasulo/htdashboard/internal/units"
)

// Metric keys of the leaderboard.
const (
	MaxExitVelocity     = "max-exit-velocity"
	AverageExitVelocity = "average-exit-velocity"
	MaxDistance         = "max-distance"
	AverageDistance     = "average-distance"
)

type LeaderboardEntry struct {
	Name       string  `json:"name"`
	School     string  `json:"school"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	TotalABs   int64   `json:"total_abs"`
	BattingAvg float64 `json:"batting_avg"`
	SlgPct     float64 `json:"slg_pct"`
	HomeRuns   int64   `json:"home_runs"`
	Rank       int     `json:"rank"`
}

// Leaderboard maps metric key -> graduation year -> ranked entries.
type Leaderboard map[string]map[int][]LeaderboardEntry

type metric struct {
	key   string
	unit  string
	value func(*playerTotals) float64
}

var leaderboardMetrics = []metric{
	{MaxExitVelocity, units.Velocity.Unit(), func(p *playerTotals) float64 { return p.maxExit }},
	{AverageExitVelocity, units.Velocity.Unit(), func(p *playerTotals) float64 { return p.mean(p.avgExit) }},
	{MaxDistance, units.Distance.Unit(), func(p *playerTotals) float64 { return p.maxDist }},
	{AverageDistance, units.Distance.Unit(), func(p *playerTotals) float64 { return p.mean(p.avgDist) }},
}

// MetricKeys lists the leaderboard metrics in display order.
func MetricKeys() []string {
	keys := make([]string, len(leaderboardMetrics))
	for i, m := range leaderboardMetrics {
		keys[i] = m.key
	}
	return keys
}

// LeaderboardQuery selects the sessions that feed a leaderboard. Nil dates mean
// one year ago and today; End includes the whole day. A nil MinAtBats means the
// configured default; zero keeps every player.
type LeaderboardQuery struct {
	Start     *time.Time
	End       *time.Time
	MinAtBats *int
}

type Engine struct {
	db       *database.Database
	cfg      config.LeaderboardConfig
	resolver *GradYearResolver
	log      *zap.Logger
	metrics  *metrics.Manager
	now      func() time.Time
}

// Ranking defaults applied by NewEngine to unset fields.
const (
	DefaultTopN        = 5
	DefaultMinGradYear = 2025
	DefaultMaxGradYear = 2034
)

func NewEngine(db *database.Database, cfg config.LeaderboardConfig, overrides map[string]int, log *zap.Logger, m *metrics.Manager) *Engine {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.MinGradYear == 0 && cfg.MaxGradYear == 0 {
		cfg.MinGradYear, cfg.MaxGradYear = DefaultMinGradYear, DefaultMaxGradYear
	}
	return &Engine{
		db:       db,
		cfg:      cfg,
		resolver: NewGradYearResolver(overrides, cfg.GradYearSentinel),
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// GetLeaderboardData never fails: errors are logged and yield an empty mapping.
func (e *Engine) GetLeaderboardData(ctx context.Context, start, end *time.Time, minAtBats *int) Leaderboard {
	lb, err := e.BuildLeaderboard(ctx, LeaderboardQuery{Start: start, End: end, MinAtBats: minAtBats})
	if err != nil {
		e.log.Error("Failed to build leaderboard", zap.Error(err))
		return Leaderboard{}
	}
	return lb
}

// Window resolves the query's date bounds to [from, to).
func (e *Engine) Window(q LeaderboardQuery) (from, to time.Time) {
	today := day(e.now())
	from = today.AddDate(-1, 0, 0)
	to = today
	if q.Start != nil {
		from = day(*q.Start)
	}
	if q.End != nil {
		to = day(*q.End)
	}
	return from, to.AddDate(0, 0, 1)
}

// MinAtBats resolves the query's at-bat threshold.
func (e *Engine) MinAtBats(q LeaderboardQuery) int {
	if q.MinAtBats == nil {
		return e.cfg.MinAtBats
	}
	return *q.MinAtBats
}

// day truncates to the calendar date, read as a naive store timestamp.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const leaderboardQuery = `
SELECT
	` + FullNameSQL + `,
	u."School",
	u."BirthDate",
	u."GraduationYear",
	COALESCE(s."MaxExitVelMph", 0),
	COALESCE(s."AvgExitVelMph", 0),
	CAST(COALESCE(s."MaxDistanceFeet", 0) AS DOUBLE),
	CAST(COALESCE(s."AvgDistanceFeet", 0) AS DOUBLE),
	COALESCE(s."AB", 0),
	COALESCE(s."AVG", 0),
	COALESCE(s."SLG", 0),
	COALESCE(s."HomeRuns", 0)
FROM "UsersConverted" u
JOIN "SessionConverted" s ON u."Id" = s."UserId"
WHERE s."Active" = 1
	AND s."TimeStamp" >= ?
	AND s."TimeStamp" < ?`

type groupKey struct {
	name     string
	school   string
	birth    time.Time
	gradYear int
}

type playerTotals struct {
	name, school string
	gradYear     int
	sessions     int
	maxExit      float64
	avgExit      float64
	maxDist      float64
	avgDist      float64
	ab           int64
	avg          float64
	slg          float64
	homeRuns     int64
}

func (p *playerTotals) mean(total float64) float64 {
	return total / float64(p.sessions)
}

// BuildLeaderboard computes the leaderboard and reports store errors.
func (e *Engine) BuildLeaderboard(ctx context.Context, q LeaderboardQuery) (Leaderboard, error) {
	started := time.Now()
	defer func() { e.metrics.ObserveLeaderboardBuild(time.Since(started)) }()

	minAB := e.MinAtBats(q)
	from, to := e.Window(q)

	players, err := e.loadPlayers(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byYear := make(map[int][]*playerTotals)
	for _, p := range players {
		if p.ab < int64(minAB) || p.gradYear < e.cfg.MinGradYear || p.gradYear > e.cfg.MaxGradYear {
			continue
		}
		byYear[p.gradYear] = append(byYear[p.gradYear], p)
	}

	lb := e.emptyLeaderboard()
	for _, m := range leaderboardMetrics {
		for year, group := range byYear {
			lb[m.key][year] = rank(group, m, e.cfg.TopN)
		}
	}

	e.log.Debug("Built leaderboard",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("min_at_bats", minAB),
		zap.Int("players", len(players)),
	)
	return lb, nil
}

func (e *Engine) emptyLeaderboard() Leaderboard {
	lb := make(Leaderboard, len(leaderboardMetrics))
	for _, m := range leaderboardMetrics {
		years := make(map[int][]LeaderboardEntry)
		for y := e.cfg.MinGradYear; y <= e.cfg.MaxGradYear; y++ {
			years[y] = []LeaderboardEntry{}
		}
		lb[m.key] = years
	}
	return lb
}

func (e *Engine) loadPlayers(ctx context.Context, from, to time.Time) ([]*playerTotals, error) {
	rows, err := e.db.DB.QueryContext(ctx, leaderboardQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard sessions: %w", err)
	}
	defer rows.Close()

	var order []groupKey
	groups := make(map[groupKey]*playerTotals)
	for rows.Next() {
		var (
			name, school     sql.NullString
			birth            sql.NullTime
			gradYear         sql.NullInt64
			maxExit, avgExit float64
			maxDist, avgDist float64
			ab, homeRuns     int64
			avg, slg         float64
		)
		if err := rows.Scan(&name, &school, &birth, &gradYear,
			&maxExit, &avgExit, &maxDist, &avgDist, &ab, &avg, &slg, &homeRuns); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}

		if !name.Valid {
			continue
		}
		year, ok := e.resolver.Resolve(name.String, gradYear, birth)
		if !ok {
			continue
		}

		key := groupKey{name: name.String, school: school.String, birth: birth.Time, gradYear: year}
		p, found := groups[key]
		if !found {
			p = &playerTotals{name: name.String, school: school.String, gradYear: year, maxExit: maxExit, maxDist: maxDist}
			groups[key] = p
			order = append(order, key)
		}
		p.sessions++
		p.maxExit = max(p.maxExit, maxExit)
		p.maxDist = max(p.maxDist, maxDist)
		p.avgExit += avgExit
		p.avgDist += avgDist
		p.ab += ab
		p.avg += avg
		p.slg += slg
		p.homeRuns += homeRuns
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*playerTotals, len(order))
	for i, k := range order {
		out[i] = groups[k]
	}
	return out, nil
}

// rank orders players by the metric, highest first, breaking ties by name then
// school, and keeps the first topN. Rank is the 1-based position.
func rank(players []*playerTotals, m metric, topN int) []LeaderboardEntry {
	sorted := slices.Clone(players)
	slices.SortStableFunc(sorted, func(a, b *playerTotals) int {
		return cmp.Or(
			cmp.Compare(m.value(b), m.value(a)),
			cmp.Compare(a.name, b.name),
			cmp.Compare(a.school, b.school),
		)
	})
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}

	out := make([]LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		out[i] = LeaderboardEntry{
			Name:       p.name,
			School:     p.school,
			Value:      m.value(p),
			Unit:       m.unit,
			TotalABs:   p.ab,
			BattingAvg: p.mean(p.avg),
			SlgPct:     p.mean(p.slg),
			HomeRuns:   p.homeRuns,
			Rank:       i + 1,
		}
	}
	return out
}
