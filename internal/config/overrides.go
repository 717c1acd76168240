package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// GradYearOverride pins the graduation year of one player, matched by exact full name.
type GradYearOverride struct {
	Name           string `mapstructure:"name"`
	GraduationYear int    `mapstructure:"graduation_year"`
}

type overridesFile struct {
	Overrides []GradYearOverride `mapstructure:"overrides"`
}

// LoadGradYearOverrides reads a YAML list of overrides:
//
//	overrides:
//	  - name: Jane Doe
//	    graduation_year: 2027
//
// Names are kept as values rather than keys so their case survives decoding.
// An empty path yields an empty table.
func LoadGradYearOverrides(path string) (map[string]int, error) {
	out := make(map[string]int)
	if path == "" {
		return out, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read overrides %s: %w", path, err)
	}

	var f overridesFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to decode overrides %s: %w", path, err)
	}

	for i, o := range f.Overrides {
		if o.Name == "" {
			return nil, fmt.Errorf("override %d has no name", i)
		}
		if o.GraduationYear <= 0 {
			return nil, fmt.Errorf("override %q has invalid graduation year %d", o.Name, o.GraduationYear)
		}
		out[o.Name] = o.GraduationYear
	}
	return out, nil
}
