package store

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect carries the handful of backend-specific SQL fragments the store
// needs: identifier quoting, bind placeholders, type names, and whether
// the backend supports a BRIN index hint. Covers the three wired drivers:
// sqlite, mysql, postgres.
type dialect struct {
	driver string
}

func newDialect(driver string) *dialect {
	return &dialect{driver: driver}
}

// quoteIdentifier quotes name for this backend, escaping any embedded quote
// character. mysql and sqlite both accept backtick-quoted identifiers;
// postgres requires double quotes.
func (d *dialect) quoteIdentifier(name string) string {
	if d.driver == "postgres" {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// placeholder returns the bind-parameter marker for the i'th argument
// (1-based), which differs only for postgres.
func (d *dialect) placeholder(i int) string {
	if d.driver == "postgres" {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// stringType is the SQL type used for errormsg/errortype storage columns.
func (d *dialect) stringType() string {
	return "TEXT"
}

// bigintType is the SQL type used for every system column (rowid, pos_N,
// v_min, v_max).
func (d *dialect) bigintType() string {
	return "BIGINT"
}

// blobType is the SQL type used for an indexed column's raw-vector storage.
func (d *dialect) blobType() string {
	switch d.driver {
	case "postgres":
		return "BYTEA"
	default:
		return "BLOB"
	}
}

// supportsBRIN reports whether CREATE INDEX ... USING BRIN is meaningful on
// this backend. sqlite and mysql silently get a plain index instead.
func (d *dialect) supportsBRIN() bool {
	return d.driver == "postgres"
}

// createIndexSQL renders a CREATE INDEX statement, using USING BRIN only
// when both the backend and the index definition ask for it.
func (d *dialect) createIndexSQL(idx IndexDef, tableName string) string {
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = d.quoteIdentifier(c)
	}
	using := ""
	if idx.Kind == "brin" && d.supportsBRIN() {
		using = " USING BRIN"
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s%s (%s)",
		d.quoteIdentifier(idx.Name), d.quoteIdentifier(tableName), using, strings.Join(cols, ", "))
}
