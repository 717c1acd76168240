package analytics

import (
	"database/sql"
	"time"
)

// GradYearResolver derives a player's graduation year.
type GradYearResolver struct {
	overrides map[string]int
	sentinel  int
}

// NewGradYearResolver takes the override table keyed by exact full name and the
// source's "unset" graduation year value.
func NewGradYearResolver(overrides map[string]int, sentinel int) *GradYearResolver {
	if overrides == nil {
		overrides = map[string]int{}
	}
	return &GradYearResolver{overrides: overrides, sentinel: sentinel}
}

// Resolve applies, in order: the override table, the source graduation year when
// set, then the birth date (born September or later graduates at 18, otherwise
// at 17). ok is false when none applies.
func (r *GradYearResolver) Resolve(name string, gradYear sql.NullInt64, birthDate sql.NullTime) (year int, ok bool) {
	if y, found := r.overrides[name]; found {
		return y, true
	}
	if gradYear.Valid && int(gradYear.Int64) != r.sentinel {
		return int(gradYear.Int64), true
	}
	if birthDate.Valid {
		return FromBirthDate(birthDate.Time), true
	}
	return 0, false
}

func FromBirthDate(birth time.Time) int {
	if birth.Month() >= time.September {
		return birth.Year() + 18
	}
	return birth.Year() + 17
}
