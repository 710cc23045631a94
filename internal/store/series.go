package store

import (
	"database/sql"
	"math"
)

// seriesRow is one (kind, epoch, value) sample from loss or metrics. Value
// is nullable because SQLite stores NaN as NULL.
type seriesRow struct {
	ExpID string          `db:"expid"`
	Kind  string          `db:"kind"`
	Epoch int             `db:"epoch"`
	Value sql.NullFloat64 `db:"value"`
}

func (r seriesRow) value() Float {
	if !r.Value.Valid {
		return Float(math.NaN())
	}
	return Float(r.Value.Float64)
}
