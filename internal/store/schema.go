package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/franz/mldb/internal/util"
)

type columnKind int

const (
	colKey columnKind = iota
	colPath
	colPayload
	colInt
	colReal
)

type column struct {
	name     string
	kind     columnKind
	nullable bool
}

type table struct {
	name    string
	columns []column
	unique  []string
	indexes [][]string
}

var (
	expidCol = column{name: "expid", kind: colKey}
	epochCol = column{name: "epoch", kind: colInt}
	valueCol = column{name: "value", kind: colReal, nullable: true}
)

// tables is the whole schema in creation order. Every table carries an
// expid column; deletion relies on that.
var tables = []table{
	{
		name:    "status",
		columns: []column{expidCol, {name: "status", kind: colKey}},
		unique:  []string{"expid"},
	},
	{
		name:    "config",
		columns: []column{expidCol, {name: "config", kind: colPath}},
		unique:  []string{"expid"},
	},
	{
		name:    "loss",
		columns: []column{expidCol, epochCol, {name: "kind", kind: colKey}, valueCol},
		unique:  []string{"expid", "epoch", "kind"},
	},
	{
		name:    "metrics",
		columns: []column{expidCol, epochCol, {name: "kind", kind: colKey}, valueCol},
		unique:  []string{"expid", "epoch", "kind"},
	},
	{
		name:    "hyperparams",
		columns: []column{expidCol, {name: "name", kind: colKey}, {name: "value", kind: colPayload, nullable: true}},
		unique:  []string{"expid", "name"},
	},
	{
		name:    "state",
		columns: []column{expidCol, epochCol, {name: "path", kind: colPath}},
		unique:  []string{"expid", "epoch", "path"},
	},
	{
		name:    "learningrate",
		columns: []column{expidCol, epochCol, valueCol},
		unique:  []string{"expid", "epoch"},
	},
	{
		name:    "qualitativeresultsmeta",
		columns: []column{expidCol, {name: "plotid", kind: colKey}, {name: "value", kind: colPayload}},
		unique:  []string{"expid", "plotid"},
	},
	{
		name:    "qualitativeresults",
		columns: []column{expidCol, epochCol, {name: "plotid", kind: colKey}, {name: "value", kind: colPayload}},
		indexes: [][]string{{"expid", "plotid"}},
	},
	{
		name:    "expgroups",
		columns: []column{expidCol, {name: "groupname", kind: colKey}},
		indexes: [][]string{{"expid"}, {"groupname"}},
	},
}

// Tables lists the schema's table names in creation order.
func Tables() []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.name
	}
	return names
}

func (d *Dialect) columnType(k columnKind) string {
	switch k {
	case colKey:
		return d.KeyType
	case colPath:
		return d.PathType
	case colPayload:
		return d.PayloadType
	case colInt:
		return d.IntType
	default:
		return d.RealType
	}
}

func indexName(t table, cols []string) string {
	return "idx_" + t.name + "_" + strings.Join(cols, "_")
}

// schemaStatements renders the schema for one dialect. Every statement is
// idempotent.
func schemaStatements(d *Dialect) []string {
	var stmts []string
	for _, t := range tables {
		var defs []string
		for _, c := range t.columns {
			def := c.name + " " + d.columnType(c.kind)
			if !c.nullable {
				def += " NOT NULL"
			}
			defs = append(defs, def)
		}
		if len(t.unique) > 0 {
			defs = append(defs, fmt.Sprintf("UNIQUE (%s)", strings.Join(t.unique, ", ")))
		}
		if d.InlineKeys {
			for _, idx := range t.indexes {
				defs = append(defs, fmt.Sprintf("INDEX %s (%s)", indexName(t, idx), strings.Join(idx, ", ")))
			}
		}

		create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.name, strings.Join(defs, ", "))
		if d.InlineKeys {
			// binary collation so ids and kinds compare exactly
			create += " DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin"
		}
		stmts = append(stmts, create)

		if !d.InlineKeys {
			for _, idx := range t.indexes {
				stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
					indexName(t, idx), t.name, strings.Join(idx, ", ")))
			}
		}
	}
	return stmts
}

// EnsureSchema creates any missing table or index. It is safe to call on
// every connection, including from several processes at once: errors that
// only mean another session created the object first are ignored.
func EnsureSchema(ctx context.Context, c *Connector) error {
	for _, stmt := range schemaStatements(c.dialect) {
		if err := c.Run(ctx, stmt); err != nil {
			if c.dialect.isAlreadyExists(err) {
				util.DebugLog("Schema object already exists: %v", err)
				continue
			}
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
