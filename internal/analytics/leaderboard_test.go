package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/config"
	"github.com/afasulo/htdashboard/internal/database"
	"github.com/afasulo/htdashboard/internal/testinfra"
)

var (
	today   = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	inRange = time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
)

func testConfig() config.LeaderboardConfig {
	return config.LeaderboardConfig{
		MinAtBats:        50,
		PlayerMinAtBats:  10,
		TopN:             5,
		MinGradYear:      2025,
		MaxGradYear:      2034,
		GradYearSentinel: 0,
	}
}

func newTestEngine(t *testing.T, db *database.Database, overrides map[string]int) *Engine {
	t.Helper()
	e := NewEngine(db, testConfig(), overrides, zap.NewNop(), nil)
	e.now = func() time.Time { return today }
	return e
}

type seeder struct {
	t      *testing.T
	db     *database.Database
	nextID int64
}

func (s *seeder) player(first, last, school string, gradYear int, visits ...testinfra.Visit) int64 {
	s.nextID++
	userID := s.nextID
	testinfra.AddPlayer(s.t, s.db, testinfra.Player{
		ID: userID, FirstName: first, LastName: last, School: school,
		GraduationYear: testinfra.IntPtr(gradYear),
	})
	for _, v := range visits {
		s.nextID++
		v.ID = s.nextID
		v.UserID = userID
		if v.TimeStamp.IsZero() {
			v.TimeStamp = inRange
		}
		testinfra.AddVisit(s.t, s.db, v)
	}
	return userID
}

func TestLeaderboard_EmptyStore(t *testing.T) {
	e := newTestEngine(t, testinfra.OpenStore(t), nil)

	lb := e.GetLeaderboardData(context.Background(), nil, nil, nil)

	require.Len(t, lb, 4)
	for _, key := range MetricKeys() {
		years, ok := lb[key]
		require.True(t, ok, key)
		assert.Len(t, years, 10)
		for y := 2025; y <= 2034; y++ {
			entries, ok := years[y]
			require.True(t, ok, "%s %d", key, y)
			assert.NotNil(t, entries)
			assert.Empty(t, entries)
		}
	}
}

func TestLeaderboard_StoreFailureYieldsEmptyMapping(t *testing.T) {
	db := testinfra.OpenStore(t)
	require.NoError(t, db.Close())

	lb := newTestEngine(t, db, nil).GetLeaderboardData(context.Background(), nil, nil, nil)
	assert.NotNil(t, lb)
	assert.Empty(t, lb)
}

func TestLeaderboard_TiesAndRanking(t *testing.T) {
	db := testinfra.OpenStore(t)
	s := &seeder{t: t, db: db}
	s.player("Cole", "Carter", "North", 2026, testinfra.Visit{AB: 60, MaxExitMph: 90})
	s.player("Ben", "Brown", "South", 2026, testinfra.Visit{AB: 60, MaxExitMph: 95})
	s.player("Alex", "Ames", "West", 2026, testinfra.Visit{AB: 60, MaxExitMph: 95})

	lb := newTestEngine(t, db, nil).GetLeaderboardData(context.Background(), nil, nil, nil)
	entries := lb[MaxExitVelocity][2026]
	require.Len(t, entries, 3)

	assert.Equal(t, "Alex Ames", entries[0].Name)
	assert.Equal(t, "Ben Brown", entries[1].Name)
	assert.Equal(t, "Cole Carter", entries[2].Name)
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})

	assert.InDelta(t, 95.0, entries[0].Value, 1e-9)
	assert.InDelta(t, 95.0, entries[1].Value, 1e-9)
	assert.Less(t, entries[2].Value, entries[1].Value)
	assert.LessOrEqual(t, entries[1].Rank, entries[2].Rank)
	assert.Equal(t, "mph", entries[0].Unit)
	assert.Equal(t, "West", entries[0].School)
}

func TestLeaderboard_TopFive(t *testing.T) {
	db := testinfra.OpenStore(t)
	s := &seeder{t: t, db: db}
	for i := 0; i < 8; i++ {
		s.player("Player", fmt.Sprintf("%d", i), "Central", 2027, testinfra.Visit{
			AB:         55,
			MaxExitMph: 80 + float64(i),
			AvgExitMph: 70 + float64(i),
			MaxDistFt:  300 + 10*float64(i),
			AvgDistFt:  200 + 10*float64(i),
		})
	}

	lb := newTestEngine(t, db, nil).GetLeaderboardData(context.Background(), nil, nil, nil)

	for _, key := range MetricKeys() {
		entries := lb[key][2027]
		require.Len(t, entries, 5, key)
		for i, e := range entries {
			assert.Equal(t, fmt.Sprintf("Player %d", 7-i), e.Name, key)
			assert.Equal(t, i+1, e.Rank)
		}
	}
	assert.InDelta(t, 87.0, lb[MaxExitVelocity][2027][0].Value, 1e-9)
	assert.InDelta(t, 370.0, lb[MaxDistance][2027][0].Value, 1e-9)
	assert.Equal(t, "ft", lb[AverageDistance][2027][0].Unit)
}

func TestLeaderboard_GroupsSessions(t *testing.T) {
	db := testinfra.OpenStore(t)
	s := &seeder{t: t, db: db}
	s.player("Jane", "Doe", "Central", 2028,
		testinfra.Visit{AB: 30, MaxExitMph: 85, AvgExitMph: 80, AvgDistFt: 200, AVG: 0.3, SLG: 0.5, HomeRuns: 1},
		testinfra.Visit{AB: 25, MaxExitMph: 88, AvgExitMph: 90, AvgDistFt: 300, AVG: 0.1, SLG: 0.3, HomeRuns: 2},
	)

	lb := newTestEngine(t, db, nil).GetLeaderboardData(context.Background(), nil, nil, nil)

	maxExit := lb[MaxExitVelocity][2028]
	require.Len(t, maxExit, 1)
	assert.InDelta(t, 88.0, maxExit[0].Value, 1e-9)
	assert.Equal(t, int64(55), maxExit[0].TotalABs)
	assert.InDelta(t, 0.2, maxExit[0].BattingAvg, 1e-9)
	assert.InDelta(t, 0.4, maxExit[0].SlgPct, 1e-9)
	assert.Equal(t, int64(3), maxExit[0].HomeRuns)

	assert.InDelta(t, 85.0, lb[AverageExitVelocity][2028][0].Value, 1e-9)
	assert.InDelta(t, 250.0, lb[AverageDistance][2028][0].Value, 1e-9)
}

func TestLeaderboard_Filters(t *testing.T) {
	db := testinfra.OpenStore(t)
	s := &seeder{t: t, db: db}
	s.player("Short", "Sample", "A", 2026, testinfra.Visit{AB: 49, MaxExitMph: 99})
	s.player("Exact", "Fifty", "A", 2026, testinfra.Visit{AB: 50, MaxExitMph: 80})
	s.player("Inactive", "Only", "A", 2026, testinfra.Visit{AB: 80, MaxExitMph: 98, Inactive: true})
	s.player("Too", "Young", "A", 2035, testinfra.Visit{AB: 80, MaxExitMph: 97})
	s.player("Old", "Session", "A", 2026, testinfra.Visit{AB: 80, MaxExitMph: 96,
		TimeStamp: today.AddDate(-2, 0, 0)})

	lb := newTestEngine(t, db, nil).GetLeaderboardData(context.Background(), nil, nil, nil)

	entries := lb[MaxExitVelocity][2026]
	require.Len(t, entries, 1)
	assert.Equal(t, "Exact Fifty", entries[0].Name)
	_, hasOutOfRange := lb[MaxExitVelocity][2035]
	assert.False(t, hasOutOfRange)

	lower := newTestEngine(t, db, nil).GetLeaderboardData(context.Background(), nil, nil, testinfra.IntPtr(40))
	assert.Len(t, lower[MaxExitVelocity][2026], 2)
}

func TestLeaderboard_ZeroMinAtBatsKeepsEveryPlayer(t *testing.T) {
	db := testinfra.OpenStore(t)
	s := &seeder{t: t, db: db}
	s.player("Light", "Hitter", "North", 2027, testinfra.Visit{AB: 20, MaxExitMph: 75})
	e := newTestEngine(t, db, nil)
	ctx := context.Background()

	assert.Empty(t, e.GetLeaderboardData(ctx, nil, nil, nil)[MaxExitVelocity][2027])

	for _, threshold := range []int{0, 1, 20} {
		entries := e.GetLeaderboardData(ctx, nil, nil, testinfra.IntPtr(threshold))[MaxExitVelocity][2027]
		require.Len(t, entries, 1, "threshold %d", threshold)
		assert.Equal(t, "Light Hitter", entries[0].Name)
	}
	assert.Empty(t, e.GetLeaderboardData(ctx, nil, nil, testinfra.IntPtr(21))[MaxExitVelocity][2027])

	assert.Equal(t, 50, e.MinAtBats(LeaderboardQuery{}))
	assert.Equal(t, 0, e.MinAtBats(LeaderboardQuery{MinAtBats: testinfra.IntPtr(0)}))
}

func TestLeaderboard_SkipsUsersWithoutFullName(t *testing.T) {
	db := testinfra.OpenStore(t)
	testinfra.Insert(t, db, "Users", map[string]any{
		"Id": 1, "FirstName": "Jane", "School": "North", "GraduationYear": 2027, "Active": 1,
	})
	testinfra.AddVisit(t, db, testinfra.Visit{ID: 10, UserID: 1, TimeStamp: inRange, AB: 60, MaxExitMph: 90})

	lb := newTestEngine(t, db, nil).GetLeaderboardData(context.Background(), nil, nil, testinfra.IntPtr(0))
	for _, key := range MetricKeys() {
		assert.Empty(t, lb[key][2027], key)
	}
}

func TestNewEngine_DefaultsUnsetRanking(t *testing.T) {
	db := testinfra.OpenStore(t)
	s := &seeder{t: t, db: db}
	s.player("Jane", "Doe", "North", 2027, testinfra.Visit{AB: 60, MaxExitMph: 90})

	e := NewEngine(db, config.LeaderboardConfig{MinAtBats: 50}, nil, zap.NewNop(), nil)
	e.now = func() time.Time { return today }

	lb := e.GetLeaderboardData(context.Background(), nil, nil, nil)
	years := lb[MaxExitVelocity]
	assert.Len(t, years, DefaultMaxGradYear-DefaultMinGradYear+1)
	_, hasZero := years[0]
	assert.False(t, hasZero)
	require.Len(t, years[2027], 1)
	assert.Equal(t, "Jane Doe", years[2027][0].Name)
}

func TestLeaderboard_DateRange(t *testing.T) {
	db := testinfra.OpenStore(t)
	s := &seeder{t: t, db: db}
	s.player("Early", "Bird", "A", 2026, testinfra.Visit{AB: 60, MaxExitMph: 91,
		TimeStamp: time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)})
	s.player("First", "Day", "A", 2026, testinfra.Visit{AB: 60, MaxExitMph: 92,
		TimeStamp: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)})
	s.player("Last", "Evening", "A", 2026, testinfra.Visit{AB: 60, MaxExitMph: 93,
		TimeStamp: time.Date(2026, 2, 28, 21, 30, 0, 0, time.UTC)})
	s.player("Late", "Comer", "A", 2026, testinfra.Visit{AB: 60, MaxExitMph: 94,
		TimeStamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)})

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	lb := newTestEngine(t, db, nil).GetLeaderboardData(context.Background(), &start, &end, nil)

	entries := lb[MaxExitVelocity][2026]
	require.Len(t, entries, 2)
	assert.Equal(t, "Last Evening", entries[0].Name)
	assert.Equal(t, "First Day", entries[1].Name)
}

func TestLeaderboard_GradYearOverride(t *testing.T) {
	db := testinfra.OpenStore(t)
	testinfra.AddPlayer(t, db, testinfra.Player{
		ID: 1, FirstName: "Jane", LastName: "Doe", School: "Central",
		GraduationYear: testinfra.IntPtr(0),
		BirthDate:      testinfra.TimePtr(time.Date(2008, 10, 2, 0, 0, 0, 0, time.UTC)),
	})
	testinfra.AddVisit(t, db, testinfra.Visit{ID: 10, UserID: 1, TimeStamp: inRange, AB: 60, MaxExitMph: 85})
	testinfra.AddPlayer(t, db, testinfra.Player{
		ID: 2, FirstName: "John", LastName: "Roe", School: "Central",
		GraduationYear: testinfra.IntPtr(0),
		BirthDate:      testinfra.TimePtr(time.Date(2008, 10, 2, 0, 0, 0, 0, time.UTC)),
	})
	testinfra.AddVisit(t, db, testinfra.Visit{ID: 11, UserID: 2, TimeStamp: inRange, AB: 60, MaxExitMph: 84})

	lb := newTestEngine(t, db, map[string]int{"Jane Doe": 2027}).
		GetLeaderboardData(context.Background(), nil, nil, nil)

	require.Len(t, lb[MaxExitVelocity][2027], 1)
	assert.Equal(t, "Jane Doe", lb[MaxExitVelocity][2027][0].Name)
	require.Len(t, lb[MaxExitVelocity][2026], 1)
	assert.Equal(t, "John Roe", lb[MaxExitVelocity][2026][0].Name)
}

func TestWindow_Defaults(t *testing.T) {
	e := newTestEngine(t, nil, nil)

	from, to := e.Window(LeaderboardQuery{})
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC), to)
}
