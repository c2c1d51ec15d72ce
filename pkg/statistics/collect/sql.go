// Copyright 2025 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package collect

import (
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/statistics/colstats"
	"github.com/pingcap/statsplan/pkg/util/sqlescape"
)

// statsColumns is the column order of the statistics tables.
var statsColumns = [numStatsColumns]string{
	"table_id", "column_name", "db_id", "table_name", "db_name",
	"row_count", "data_size", "distinct_count", "null_count", "max", "min", "update_time",
}

const numStatsColumns = 12

// aggColumns are the statistics computed per column, in table order.
var aggColumns = [numAggColumns]string{"row_count", "data_size", "distinct_count", "null_count", "max", "min"}

const numAggColumns = 6

// aggValues are the values of aggColumns.
type aggValues [numAggColumns]string

// maxInsertLength is the length limit of one VALUES insert.
const maxInsertLength = 1 * units.MiB

// statsRow is one row of a statistics table, rendered as SQL values.
type statsRow [numStatsColumns]string

func (r *statsRow) String() string {
	return strings.Join(r[:], ", ")
}

// tableRef identifies the collected table.
type tableRef struct {
	dbID      int64
	tableID   int64
	dbName    string
	tableName string
}

// qualified returns the quoted `db`.`table` reference.
func (t tableRef) qualified() string {
	return sqlescape.QuoteIdentifier(t.dbName) + "." + sqlescape.QuoteIdentifier(t.tableName)
}

// row fills the identifying columns of a statistics row. aggs are the six
// statistic values in aggColumns order.
func (t tableRef) row(columnName string, aggs aggValues) statsRow {
	var r statsRow
	r[0] = strconv.FormatInt(t.tableID, 10)
	r[1] = sqlescape.MustEscapeSQL("%?", columnName)
	r[2] = strconv.FormatInt(t.dbID, 10)
	r[3] = sqlescape.MustEscapeSQL("%?", t.dbName+"."+t.tableName)
	r[4] = sqlescape.MustEscapeSQL("%?", t.dbName)
	copy(r[5:], aggs[:])
	r[numStatsColumns-1] = "NOW()"
	return r
}

// aggregates renders the statistic expressions of c over scope s.
func aggregates(c colstats.ColumnStats, s colstats.Scope) aggValues {
	return aggValues{
		c.RowCount(s), c.DataSize(s), c.DistinctCount(s), c.NullCount(s), c.Max(s), c.Min(s),
	}
}

// aggregateRefs are the references to the aggregates a CTE computed.
func aggregateRefs() aggValues {
	var refs aggValues
	for i, name := range aggColumns {
		refs[i] = sqlescape.QuoteIdentifier(name)
	}
	return refs
}

// cteList is the WITH clause of a statement. Names are unique.
type cteList struct {
	names map[string]struct{}
	defs  []string
}

func (l *cteList) add(name, body string) error {
	if l.names == nil {
		l.names = make(map[string]struct{})
	}
	if _, dup := l.names[name]; dup {
		return errors.Errorf("duplicate common table expression %s", name)
	}
	l.names[name] = struct{}{}
	l.defs = append(l.defs, sqlescape.QuoteIdentifier(name)+" AS ("+body+")")
	return nil
}

func (l *cteList) len() int {
	return len(l.defs)
}

func (l *cteList) String() string {
	if len(l.defs) == 0 {
		return ""
	}
	return "WITH " + strings.Join(l.defs, ", ")
}

// insertBuilder assembles an INSERT into a statistics table. A statement
// either selects its rows, optionally from common table expressions, or lists
// them as VALUES.
type insertBuilder struct {
	db    string
	table string

	ctes    cteList
	selects []string
	values  []statsRow
}

func newInsertBuilder(db, table string) *insertBuilder {
	return &insertBuilder{db: db, table: table}
}

func (b *insertBuilder) addCTE(name, body string) error {
	return b.ctes.add(name, body)
}

// addSelect adds a row selected from the relation from.
func (b *insertBuilder) addSelect(row statsRow, from string) {
	b.selects = append(b.selects, "SELECT "+row.String()+" FROM "+from)
}

func (b *insertBuilder) addValues(row statsRow) {
	b.values = append(b.values, row)
}

func (b *insertBuilder) prefix() string {
	var sb strings.Builder
	sqlescape.MustFormatSQL(&sb, "INSERT INTO %n.%n (", b.db, b.table)
	sb.WriteString(strings.Join(statsColumns[:], ", "))
	sb.WriteString(") ")
	return sb.String()
}

// build renders the statement. VALUES inserts longer than maxInsertLength are
// split into several statements.
func (b *insertBuilder) build() ([]string, error) {
	switch {
	case len(b.selects) > 0 && len(b.values) > 0:
		return nil, errors.New("insert mixes SELECT and VALUES rows")
	case len(b.selects) == 0 && len(b.values) == 0:
		return nil, errors.New("insert has no rows")
	case len(b.values) > 0 && b.ctes.len() > 0:
		return nil, errors.New("VALUES insert can not have common table expressions")
	}
	prefix := b.prefix()
	if len(b.selects) > 0 {
		sql := new(strings.Builder)
		sql.WriteString(prefix)
		if b.ctes.len() > 0 {
			sql.WriteString(b.ctes.String())
			sql.WriteString(" ")
		}
		sql.WriteString(strings.Join(b.selects, " UNION ALL "))
		return []string{sql.String()}, nil
	}

	var sqls []string
	for i := 0; i < len(b.values); {
		sql := new(strings.Builder)
		sql.WriteString(prefix)
		sql.WriteString("VALUES ")
		end := i
		for ; end < len(b.values); end++ {
			val := "(" + b.values[end].String() + ")"
			if end > i {
				val = ", " + val
			}
			if end > i && sql.Len()+len(val) > maxInsertLength {
				break
			}
			sql.WriteString(val)
		}
		i = end
		sqls = append(sqls, sql.String())
	}
	return sqls, nil
}

// subquery wraps body as a derived table.
func subquery(body, alias string) string {
	return "(" + body + ") " + alias
}
