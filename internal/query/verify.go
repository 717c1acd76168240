package query

import (
	"context"
	"fmt"

	"github.com/afasulo/htdashboard/internal/schema"
)

// Verification describes what the analytical store holds.
type Verification struct {
	Objects *schema.Objects  `json:"objects"`
	Counts  map[string]int64 `json:"counts"`
}

// Verify lists tables, views and indexes and counts the rows of every
// replicated table and converted view.
func (f *Facade) Verify(ctx context.Context) (*Verification, error) {
	objects, err := f.schema.Objects(ctx)
	if err != nil {
		return nil, err
	}

	v := &Verification{Objects: objects, Counts: make(map[string]int64)}
	for _, t := range schema.Tables {
		for _, name := range []string{t.Name, t.View} {
			var n int64
			if err := f.db.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+schema.Quote(name)).Scan(&n); err != nil {
				return nil, fmt.Errorf("failed to count %s: %w", name, err)
			}
			v.Counts[name] = n
		}
	}
	return v, nil
}
