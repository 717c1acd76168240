// Package query is the read side used by the HTTP surface and exports. Every
// lookup degrades to an empty result when the store is empty or a query fails;
// the failure is only visible in the log.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/analytics"
	"github.com/afasulo/htdashboard/internal/database"
	"github.com/afasulo/htdashboard/internal/schema"
	"github.com/afasulo/htdashboard/internal/units"
)

type Facade struct {
	db     *database.Database
	schema *schema.Manager
	log    *zap.Logger
}

func New(db *database.Database, log *zap.Logger) *Facade {
	return &Facade{db: db, schema: schema.NewManager(db, log), log: log}
}

const fullName = analytics.FullNameSQL

type sessionRow struct {
	rec analytics.SessionRecord
	ts  sql.NullTime
}

type field struct {
	expr string
	dest func(*sessionRow) any
}

func num(col string) string {
	return "COALESCE(" + col + ", 0)"
}

var sessionFields = []field{
	{`s."Id"`, func(r *sessionRow) any { return &r.rec.ID }},
	{num(`s."UserId"`), func(r *sessionRow) any { return &r.rec.UserID }},
	{`s."TimeStamp"`, func(r *sessionRow) any { return &r.ts }},
	{`COALESCE(` + fullName + `, '')`, func(r *sessionRow) any { return &r.rec.Name }},
	{`COALESCE(u."FirstName", '')`, func(r *sessionRow) any { return &r.rec.FirstName }},
	{`COALESCE(u."LastName", '')`, func(r *sessionRow) any { return &r.rec.LastName }},
	{`COALESCE(u."School", '')`, func(r *sessionRow) any { return &r.rec.School }},
	{num(`s."SkillLevel"`), func(r *sessionRow) any { return &r.rec.SkillLevel }},
	{num(`u."HeightFeet"`), func(r *sessionRow) any { return &r.rec.Height }},
	{num(`u."WeightLbs"`), func(r *sessionRow) any { return &r.rec.Weight }},
	{num(`s."Active"`), func(r *sessionRow) any { return &r.rec.Active }},
	{num(`s."MaxExitVelMph"`), func(r *sessionRow) any { return &r.rec.MaxExitVelMph }},
	{num(`s."AvgExitVelMph"`), func(r *sessionRow) any { return &r.rec.AvgExitVelMph }},
	{num(`s."MaxPitchVelMph"`), func(r *sessionRow) any { return &r.rec.MaxPitchVelMph }},
	{num(`s."AvgPitchVelMph"`), func(r *sessionRow) any { return &r.rec.AvgPitchVelMph }},
	{num(`s."HHVelMph"`), func(r *sessionRow) any { return &r.rec.HHVelMph }},
	{num(`s."MaxDistanceFeet"`), func(r *sessionRow) any { return &r.rec.MaxDistanceFeet }},
	{num(`s."AvgDistanceFeet"`), func(r *sessionRow) any { return &r.rec.AvgDistanceFeet }},
	{num(`s."MaxGroundDistFeet"`), func(r *sessionRow) any { return &r.rec.MaxGroundDistFeet }},
	{num(`s."AvgGroundDistFeet"`), func(r *sessionRow) any { return &r.rec.AvgGroundDistFeet }},
	{num(`s."AvgElevation"`), func(r *sessionRow) any { return &r.rec.AvgElevation }},
	{num(`s."LDPercentage"`), func(r *sessionRow) any { return &r.rec.LDPercentage }},
	{num(`s."FBPercentage"`), func(r *sessionRow) any { return &r.rec.FBPercentage }},
	{num(`s."GBPercentage"`), func(r *sessionRow) any { return &r.rec.GBPercentage }},
	{num(`s."LOPercentage"`), func(r *sessionRow) any { return &r.rec.LOPercentage }},
	{num(`s."PitchCount"`), func(r *sessionRow) any { return &r.rec.PitchCount }},
	{num(`s."HitCount"`), func(r *sessionRow) any { return &r.rec.HitCount }},
	{num(`s."Singles"`), func(r *sessionRow) any { return &r.rec.Singles }},
	{num(`s."Doubles"`), func(r *sessionRow) any { return &r.rec.Doubles }},
	{num(`s."Triples"`), func(r *sessionRow) any { return &r.rec.Triples }},
	{num(`s."HomeRuns"`), func(r *sessionRow) any { return &r.rec.HomeRuns }},
	{num(`s."FoulBalls"`), func(r *sessionRow) any { return &r.rec.FoulBalls }},
	{num(`s."Strikes"`), func(r *sessionRow) any { return &r.rec.Strikes }},
	{num(`s."Balls"`), func(r *sessionRow) any { return &r.rec.Balls }},
	{num(`s."HHCount"`), func(r *sessionRow) any { return &r.rec.HHCount }},
	{num(`s."Score"`), func(r *sessionRow) any { return &r.rec.Score }},
	{num(`s."MaxPoints"`), func(r *sessionRow) any { return &r.rec.MaxPoints }},
	{num(`s."AB"`), func(r *sessionRow) any { return &r.rec.AB }},
	{num(`s."AVG"`), func(r *sessionRow) any { return &r.rec.AVG }},
	{num(`s."SLG"`), func(r *sessionRow) any { return &r.rec.SLG }},
}

func sessionQuery(where string) string {
	exprs := make([]string, len(sessionFields))
	for i, f := range sessionFields {
		exprs[i] = f.expr
	}
	return fmt.Sprintf(`SELECT %s
FROM "SessionConverted" s
LEFT JOIN "UsersConverted" u ON s."UserId" = u."Id"
WHERE %s
ORDER BY s."TimeStamp" DESC, s."Id" DESC`, strings.Join(exprs, ",\n\t"), where)
}

var (
	allSessionsQuery    = sessionQuery(`s."SkillLevel" IS NOT NULL`)
	playerSessionsQuery = sessionQuery(fullName + ` = ?`)
)

// GetAllSessions returns every session with a skill level, newest first.
func (f *Facade) GetAllSessions(ctx context.Context) []analytics.SessionRecord {
	out, err := f.sessions(ctx, allSessionsQuery)
	if err != nil {
		f.log.Error("Failed to load sessions", zap.Error(err))
		return []analytics.SessionRecord{}
	}
	return out
}

// GetPlayerSessions returns one player's sessions, newest first. name is the
// full "First Last" name, matched exactly.
func (f *Facade) GetPlayerSessions(ctx context.Context, name string) []analytics.SessionRecord {
	out, err := f.sessions(ctx, playerSessionsQuery, name)
	if err != nil {
		f.log.Error("Failed to load player sessions", zap.String("player", name), zap.Error(err))
		return []analytics.SessionRecord{}
	}
	return out
}

func (f *Facade) sessions(ctx context.Context, query string, args ...any) ([]analytics.SessionRecord, error) {
	rows, err := f.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []analytics.SessionRecord{}
	for rows.Next() {
		var r sessionRow
		dest := make([]any, len(sessionFields))
		for i, fld := range sessionFields {
			dest[i] = fld.dest(&r)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r.rec.TimeStamp = r.ts.Time
		out = append(out, r.rec)
	}
	return out, rows.Err()
}

// GetAvailableSkillLevels lists distinct session skill levels in ascending order.
func (f *Facade) GetAvailableSkillLevels(ctx context.Context) []int64 {
	query := `SELECT DISTINCT "SkillLevel" FROM "Session" WHERE "SkillLevel" IS NOT NULL ORDER BY 1`

	out := []int64{}
	err := f.each(ctx, query, func(rows *sql.Rows) error {
		var level int64
		if err := rows.Scan(&level); err != nil {
			return err
		}
		out = append(out, level)
		return nil
	})
	if err != nil {
		f.log.Error("Failed to load skill levels", zap.Error(err))
		return []int64{}
	}
	return out
}

// GetAvailablePlayers lists distinct full names in ascending order.
func (f *Facade) GetAvailablePlayers(ctx context.Context) []string {
	query := `SELECT DISTINCT "Name" FROM (
	SELECT ` + fullName + ` AS "Name" FROM "Users" u
) WHERE "Name" IS NOT NULL ORDER BY "Name"`

	out := []string{}
	err := f.each(ctx, query, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		out = append(out, name)
		return nil
	})
	if err != nil {
		f.log.Error("Failed to load players", zap.Error(err))
		return []string{}
	}
	return out
}

// GetPlayerPlays returns the raw plays of one player's sessions in source units,
// newest first. Callers convert them once with units.Convert.
func (f *Facade) GetPlayerPlays(ctx context.Context, name string) *units.Batch {
	cols := make([]string, len(schema.Plays.Columns))
	for i, c := range schema.Plays.Columns {
		cols[i] = "p." + schema.Quote(c.Name)
	}
	query := fmt.Sprintf(`SELECT %s
FROM "Plays" p
JOIN "Session" s ON p."SessionId" = s."Id"
JOIN "Users" u ON s."UserId" = u."Id"
WHERE %s = ?
ORDER BY p."TimeStamp" DESC, p."Id" DESC`, strings.Join(cols, ", "), fullName)

	batch := &units.Batch{Columns: schema.Plays.ColumnNames()}
	err := f.each(ctx, query, func(rows *sql.Rows) error {
		row := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		batch.Rows = append(batch.Rows, row)
		return nil
	}, name)
	if err != nil {
		f.log.Error("Failed to load player plays", zap.String("player", name), zap.Error(err))
		return &units.Batch{Columns: schema.Plays.ColumnNames()}
	}
	return batch
}

func (f *Facade) each(ctx context.Context, query string, fn func(*sql.Rows) error, args ...any) error {
	rows, err := f.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
