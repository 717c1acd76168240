package testinfra

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/config"
	"github.com/afasulo/htdashboard/internal/database"
	"github.com/afasulo/htdashboard/internal/schema"
	"github.com/afasulo/htdashboard/internal/units"
)

// OpenStore returns an in-memory analytical store with the schema applied. It is
// closed when the test ends.
func OpenStore(t testing.TB) *database.Database {
	t.Helper()

	db, err := database.OpenAnalytics(config.AnalyticsStore{Path: ":memory:", Threads: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, schema.NewManager(db, zap.NewNop()).EnsureSchema(context.Background()))
	return db
}

// Insert writes one row given as column -> value.
func Insert(t testing.TB, db *database.Database, table string, values map[string]any) {
	t.Helper()

	cols := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for c, v := range values {
		cols = append(cols, schema.Quote(c))
		args = append(args, v)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.Quote(table),
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)
	_, err := db.DB.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

// Count returns the number of rows in a table or view.
func Count(t testing.TB, db *database.Database, table string) int {
	t.Helper()

	var n int
	err := db.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+schema.Quote(table)).Scan(&n)
	require.NoError(t, err)
	return n
}

// FromMph returns the m/s value the converted views display as mph.
func FromMph(mph float64) float64 {
	return mph / units.MPSToMPH
}

// FromFeet returns the meter value the converted views display as feet.
func FromFeet(feet float64) float64 {
	return feet / units.MetersToFeet
}

// Player seeds a user.
type Player struct {
	ID             int64
	FirstName      string
	LastName       string
	School         string
	SkillLevel     int
	GraduationYear *int
	BirthDate      *time.Time
}

func AddPlayer(t testing.TB, db *database.Database, p Player) {
	t.Helper()

	values := map[string]any{
		"Id":         p.ID,
		"FirstName":  p.FirstName,
		"LastName":   p.LastName,
		"School":     p.School,
		"SkillLevel": p.SkillLevel,
		"Active":     1,
	}
	if p.GraduationYear != nil {
		values["GraduationYear"] = *p.GraduationYear
	}
	if p.BirthDate != nil {
		values["BirthDate"] = *p.BirthDate
	}
	Insert(t, db, schema.Users.Name, values)
}

// Visit seeds a session. Velocities are given in mph and distances in feet; they
// are stored in source units.
type Visit struct {
	ID          int64
	UserID      int64
	TimeStamp   time.Time
	SkillLevel  int
	Inactive    bool
	AB          int
	HitCount    int
	PitchCount  int
	HomeRuns    int
	MaxExitMph  float64
	AvgExitMph  float64
	AvgPitchMph float64
	MaxDistFt   float64
	AvgDistFt   float64
	AVG         float64
	SLG         float64
}

func AddVisit(t testing.TB, db *database.Database, v Visit) {
	t.Helper()

	active := 1
	if v.Inactive {
		active = 0
	}
	Insert(t, db, schema.Session.Name, map[string]any{
		"Id":          v.ID,
		"UserId":      v.UserID,
		"TimeStamp":   v.TimeStamp,
		"SkillLevel":  v.SkillLevel,
		"Active":      active,
		"AB":          v.AB,
		"HitCount":    v.HitCount,
		"PitchCount":  v.PitchCount,
		"HomeRuns":    v.HomeRuns,
		"MaxExitVel":  FromMph(v.MaxExitMph),
		"AvgExitVel":  FromMph(v.AvgExitMph),
		"AvgPitchVel": FromMph(v.AvgPitchMph),
		"MaxDistance": FromFeet(v.MaxDistFt),
		"AvgDistance": FromFeet(v.AvgDistFt),
		"AVG":         v.AVG,
		"SLG":         v.SLG,
	})
}

func IntPtr(v int) *int { return &v }

func TimePtr(v time.Time) *time.Time { return &v }
