package schema

import (
	"fmt"
	"strings"

	"github.com/afasulo/htdashboard/internal/units"
)

// Analytical store column types.
const (
	BigInt    = "BIGINT"
	Integer   = "INTEGER"
	Double    = "DOUBLE"
	Varchar   = "VARCHAR"
	Timestamp = "TIMESTAMP"
)

type Column struct {
	Name string
	Type string
	Kind units.Kind
}

// Table describes one replicated entity. The same definition drives the DDL, the
// converted view, the source SELECT list and the replica INSERT.
type Table struct {
	Name    string
	View    string
	Columns []Column
}

func col(name, typ string) Column {
	return Column{Name: name, Type: typ, Kind: units.KindOf(name)}
}

func ints(names ...string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = col(n, Integer)
	}
	return out
}

func doubles(names ...string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = col(n, Double)
	}
	return out
}

func concat(groups ...[]Column) []Column {
	var out []Column
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Users omits the source's Password column.
var Users = Table{
	Name: "Users",
	View: "UsersConverted",
	Columns: concat(
		[]Column{
			col("Id", BigInt),
			col("UnitId", BigInt),
			col("FirstName", Varchar),
			col("LastName", Varchar),
			col("UserName", Varchar),
			col("Created", Timestamp),
			col("Email", Varchar),
		},
		ints("Stadium", "SkillLevel", "GameType"),
		[]Column{{Name: "Height", Type: Double, Kind: units.Height}},
		ints("Role", "Active"),
		[]Column{{Name: "Weight", Type: Double, Kind: units.Weight}},
		ints("Position", "Bats", "Throws"),
		[]Column{
			col("School", Varchar),
			col("HomeTown", Varchar),
			col("GraduationYear", Integer),
			col("Gender", Integer),
			col("BirthDate", Timestamp),
		},
	),
}

var Session = Table{
	Name: "Session",
	View: "SessionConverted",
	Columns: concat(
		[]Column{
			col("Id", BigInt),
			col("UnitId", BigInt),
			col("UserId", BigInt),
			col("UserUnitId", BigInt),
			col("TimeStamp", Timestamp),
		},
		ints("Stadium", "Type", "SkillLevel", "GameType"),
		doubles("MaxPitchVel", "MaxExitVel", "AvgPitchVel", "AvgExitVel",
			"AvgElevation", "AvgDistance", "MaxDistance"),
		ints("PitchCount", "HitCount", "Singles", "Doubles", "Triples", "HomeRuns",
			"FoulBalls", "Strikes", "Balls"),
		doubles("AVG", "SLG", "LDPercentage", "FBPercentage", "GBPercentage",
			"LIPercentage", "RIPercentage", "CIPercentage", "LOPercentage",
			"ROPercentage", "COPercentage", "StrikeZoneBottom", "StrikeZoneTop"),
		ints("HHCount"),
		doubles("HHVel"),
		ints("Active"),
		doubles("StrikeZoneWidth", "MaxGroundDist", "AvgGroundDist"),
		ints("Score", "MaxPoints", "AB", "Video"),
		doubles("RankMaxVel", "RankAvgVel", "RankMaxDist", "RankPoints"),
		ints("BatMaterial"),
	),
}

var Plays = Table{
	Name: "Plays",
	View: "PlaysConverted",
	Columns: concat(
		[]Column{
			col("Id", BigInt),
			col("SessionId", BigInt),
			col("TimeStamp", Timestamp),
		},
		doubles("ExitBallVel1", "ExitBallVel2", "ExitBallVel3", "Distance", "PitchVel"),
		ints("Result", "Type", "Fielder", "Quadrant"),
		doubles("PosStart1", "PosStart2", "PosStart3", "PosEnd1", "PosEnd2", "PosEnd3",
			"PosPitch1", "PosPitch2", "PosPitch3", "PosCaught1", "PosCaught2", "PosCaught3"),
		ints("PitchType"),
		doubles("PitchCoeffs1", "PitchCoeffs2", "PitchCoeffs3", "PitchCoeffs4",
			"PitchCoeffs5", "PitchCoeffs6", "PitchBreakH", "PitchBreakV", "Elevation",
			"PitchBreakVG"),
		ints("Ms"),
		doubles("GroundDist"),
		ints("Active"),
		doubles("Intersect1", "Intersect2", "Intersect3", "PitchAngle",
			"HorizontalAngle", "ExitVelo"),
		ints("Points"),
	),
}

// Tables lists the replicated entities in sync order.
var Tables = []Table{Users, Session, Plays}

// Quote renders an identifier. Several source names collide with SQL keywords.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// SelectList renders the quoted, comma separated column list.
func (t Table) SelectList() string {
	quoted := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quoted[i] = Quote(c.Name)
	}
	return strings.Join(quoted, ", ")
}

// CreateSQL renders the table DDL. Id is the only constraint: each table is
// replaced on its own, so references between them are not enforced.
func (t Table) CreateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", Quote(t.Name))
	for i, c := range t.Columns {
		fmt.Fprintf(&b, "\t%s %s", Quote(c.Name), c.Type)
		if c.Name == "Id" {
			b.WriteString(" PRIMARY KEY")
		}
		if i < len(t.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// ViewSQL renders the converted view: measurement columns are replaced by their
// display-unit expressions, everything else passes through.
func (t Table) ViewSQL() string {
	exprs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if c.Kind == units.None {
			exprs[i] = Quote(c.Name)
			continue
		}
		expr, alias := units.Expression(c.Kind, c.Name)
		exprs[i] = expr + " AS " + Quote(alias)
	}
	return fmt.Sprintf("CREATE VIEW IF NOT EXISTS %s AS SELECT\n\t%s\nFROM %s",
		Quote(t.View), strings.Join(exprs, ",\n\t"), Quote(t.Name))
}

const syncLogDDL = `CREATE TABLE IF NOT EXISTS "SyncLog" (
	"Id" VARCHAR PRIMARY KEY,
	"RunId" VARCHAR NOT NULL,
	"TableName" VARCHAR NOT NULL,
	"LastSyncTime" TIMESTAMP NOT NULL,
	"RowsSynced" BIGINT NOT NULL,
	"Status" VARCHAR NOT NULL,
	"Message" VARCHAR
)`

type index struct {
	name, table, column string
}

var indexes = []index{
	{"idx_users_active", "Users", "Active"},
	{"idx_users_skilllevel", "Users", "SkillLevel"},
	{"idx_session_userid", "Session", "UserId"},
	{"idx_session_timestamp", "Session", "TimeStamp"},
	{"idx_session_skilllevel", "Session", "SkillLevel"},
	{"idx_session_active", "Session", "Active"},
	{"idx_plays_sessionid", "Plays", "SessionId"},
	{"idx_plays_timestamp", "Plays", "TimeStamp"},
	{"idx_plays_exitvelo", "Plays", "ExitVelo"},
	{"idx_plays_distance", "Plays", "Distance"},
	{"idx_plays_active", "Plays", "Active"},
	{"idx_synclog_tablename", "SyncLog", "TableName"},
}

func (i index) sql() string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", i.name, Quote(i.table), Quote(i.column))
}
