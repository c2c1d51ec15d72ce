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

package colstats

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pingcap/statsplan/pkg/statistics/sample"
	"github.com/pingcap/statsplan/pkg/types"
	"github.com/pingcap/statsplan/pkg/util/sqlescape"
)

// Kind tells the ColumnStats variants apart.
type Kind int

// ColumnStats variants.
const (
	KindPrimitive Kind = iota
	KindComplex
	KindDistribution
	KindSubField
	KindVirtual
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindComplex:
		return "complex"
	case KindDistribution:
		return "distribution"
	case KindSubField:
		return "subfield"
	case KindVirtual:
		return "virtual"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// maxStringStatsLen truncates string max/min values.
const maxStringStatsLen = 200

// Scope is what the aggregate expressions of a ColumnStats are rendered against.
type Scope struct {
	// Ref is the reference to the column values, the quoted column for a full
	// scan or the grouped key of the sampled rows.
	Ref string
	// CountRef is the per-key row count of the sampled rows. Empty for full scans.
	CountRef string
	// Sample is the sampling plan, nil for full scans.
	Sample *sample.SampleInfo
	// TotalRows is the row count reported by the metastore. Literal
	// statistics of complex columns are derived from it.
	TotalRows int64
}

// FullScope renders the expressions over every row of ref.
func FullScope(ref string, totalRows int64) Scope {
	return Scope{Ref: ref, TotalRows: totalRows}
}

// SampleScope renders the expressions over sampled rows grouped by ref with
// countRef rows each.
func SampleScope(ref, countRef string, info *sample.SampleInfo) Scope {
	return Scope{Ref: ref, CountRef: countRef, Sample: info, TotalRows: info.TotalRowCount}
}

func (s Scope) sampled() bool {
	return s.Sample != nil
}

// ColumnStats renders the statistics row of one column.
type ColumnStats interface {
	// Kind returns the variant.
	Kind() Kind
	// ColumnName is the name the statistics row is stored under.
	ColumnName() string
	// ColumnType is the type of the values the statistics describe.
	ColumnType() *types.FieldType
	// QuotedColumnName is the reference reading the values from the table.
	QuotedColumnName() string
	// LateralJoin is the FROM clause fragment producing the values, if any.
	LateralJoin() string
	// IsPrimitive reports whether the values can be aggregated by SQL.
	IsPrimitive() bool

	RowCount(s Scope) string
	DataSize(s Scope) string
	DistinctCount(s Scope) string
	NullCount(s Scope) string
	Max(s Scope) string
	Min(s Scope) string
}

// IsPrimitiveType reports whether values of tp can be aggregated row by row.
func IsPrimitiveType(tp *types.FieldType) bool {
	return tp.CanStatistic() && !tp.IsCollectionType()
}

func formatRatio(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// primitiveRenderer renders the aggregates of a directly aggregable column.
type primitiveRenderer struct {
	tp *types.FieldType
}

func (r primitiveRenderer) RowCount(s Scope) string {
	if !s.sampled() {
		return "COUNT(1)"
	}
	return fmt.Sprintf("IFNULL(SUM(%s), 0) / %s", s.CountRef, formatRatio(s.Sample.RowSampleRatio))
}

func (r primitiveRenderer) DataSize(s Scope) string {
	switch {
	case !s.sampled() && r.tp.IsStringType():
		return fmt.Sprintf("IFNULL(SUM(CHAR_LENGTH(%s)), 0)", s.Ref)
	case !s.sampled():
		return fmt.Sprintf("COUNT(1) * %d", r.tp.TypeSize())
	case r.tp.IsStringType():
		return fmt.Sprintf("IFNULL(SUM(CHAR_LENGTH(%s) * %s), 0) / %s", s.Ref, s.CountRef, formatRatio(s.Sample.RowSampleRatio))
	default:
		return fmt.Sprintf("IFNULL(SUM(%s), 0) * %d / %s", s.CountRef, r.tp.TypeSize(), formatRatio(s.Sample.RowSampleRatio))
	}
}

// DistinctCount uses the DUJ1 estimator on sampled rows: n*d / (n - f1 + f1*q)
// where f1 is the number of keys seen once and q the row sample ratio.
func (r primitiveRenderer) DistinctCount(s Scope) string {
	if !s.sampled() {
		return fmt.Sprintf("ndv(%s)", s.Ref)
	}
	f1 := fmt.Sprintf("SUM(IF(%s = 1, 1, 0))", s.CountRef)
	return fmt.Sprintf("IFNULL(SUM(%[1]s) * COUNT(1) / (SUM(%[1]s) - %[2]s + %[2]s * %[3]s), COUNT(1))",
		s.CountRef, f1, formatRatio(s.Sample.RowSampleRatio))
}

func (r primitiveRenderer) NullCount(s Scope) string {
	if !s.sampled() {
		return fmt.Sprintf("COUNT(1) - COUNT(%s)", s.Ref)
	}
	return fmt.Sprintf("IFNULL(SUM(IF(%s IS NULL, %s, 0)), 0) / %s", s.Ref, s.CountRef, formatRatio(s.Sample.RowSampleRatio))
}

func (r primitiveRenderer) Max(s Scope) string {
	return r.extreme("MAX", s)
}

func (r primitiveRenderer) Min(s Scope) string {
	return r.extreme("MIN", s)
}

func (r primitiveRenderer) extreme(fn string, s Scope) string {
	if r.tp.IsStringType() {
		return fmt.Sprintf("IFNULL(%s(LEFT(%s, %d)), '')", fn, s.Ref, maxStringStatsLen)
	}
	return fmt.Sprintf("IFNULL(%s(%s), '')", fn, s.Ref)
}

// complexRenderer renders literal statistics of columns which are not aggregated.
type complexRenderer struct {
	tp *types.FieldType
}

func (r complexRenderer) RowCount(s Scope) string {
	return strconv.FormatInt(s.TotalRows, 10)
}

func (r complexRenderer) DataSize(s Scope) string {
	return strconv.FormatInt(r.tp.TypeSize()*s.TotalRows, 10)
}

func (complexRenderer) DistinctCount(Scope) string {
	return "0"
}

func (complexRenderer) NullCount(Scope) string {
	return "0"
}

func (complexRenderer) Max(Scope) string {
	return "''"
}

func (complexRenderer) Min(Scope) string {
	return "''"
}

type renderer interface {
	RowCount(s Scope) string
	DataSize(s Scope) string
	DistinctCount(s Scope) string
	NullCount(s Scope) string
	Max(s Scope) string
	Min(s Scope) string
}

func rendererFor(tp *types.FieldType) renderer {
	if IsPrimitiveType(tp) {
		return primitiveRenderer{tp: tp}
	}
	return complexRenderer{tp: tp}
}

// PrimitiveTypeColumnStats is a top-level column aggregated directly.
type PrimitiveTypeColumnStats struct {
	primitiveRenderer
	name string
}

// NewPrimitiveTypeColumnStats creates a PrimitiveTypeColumnStats.
func NewPrimitiveTypeColumnStats(name string, tp *types.FieldType) *PrimitiveTypeColumnStats {
	return &PrimitiveTypeColumnStats{primitiveRenderer: primitiveRenderer{tp: tp}, name: name}
}

// Kind implements ColumnStats.
func (*PrimitiveTypeColumnStats) Kind() Kind { return KindPrimitive }

// ColumnName implements ColumnStats.
func (c *PrimitiveTypeColumnStats) ColumnName() string { return c.name }

// ColumnType implements ColumnStats.
func (c *PrimitiveTypeColumnStats) ColumnType() *types.FieldType { return c.tp }

// QuotedColumnName implements ColumnStats.
func (c *PrimitiveTypeColumnStats) QuotedColumnName() string { return sqlescape.QuoteIdentifier(c.name) }

// LateralJoin implements ColumnStats.
func (*PrimitiveTypeColumnStats) LateralJoin() string { return "" }

// IsPrimitive implements ColumnStats.
func (*PrimitiveTypeColumnStats) IsPrimitive() bool { return true }

// DistributionColumnStats is the sole hash distribution key of a table. Its
// values never span tablets, so sampled distinct values scale by the tablet ratio.
type DistributionColumnStats struct {
	*PrimitiveTypeColumnStats
	sampleInfo *sample.SampleInfo
}

// NewDistributionColumnStats creates a DistributionColumnStats.
func NewDistributionColumnStats(name string, tp *types.FieldType, info *sample.SampleInfo) *DistributionColumnStats {
	return &DistributionColumnStats{PrimitiveTypeColumnStats: NewPrimitiveTypeColumnStats(name, tp), sampleInfo: info}
}

// Kind implements ColumnStats.
func (*DistributionColumnStats) Kind() Kind { return KindDistribution }

// DistinctCount implements ColumnStats.
func (c *DistributionColumnStats) DistinctCount(s Scope) string {
	if !s.sampled() {
		return c.PrimitiveTypeColumnStats.DistinctCount(s)
	}
	return fmt.Sprintf("COUNT(1) / %s", formatRatio(c.sampleInfo.TabletSampleRatio))
}

// ComplexTypeColumnStats is a top-level collection or struct column. Its
// statistics are literals rather than aggregates.
type ComplexTypeColumnStats struct {
	complexRenderer
	name string
}

// NewComplexTypeColumnStats creates a ComplexTypeColumnStats.
func NewComplexTypeColumnStats(name string, tp *types.FieldType) *ComplexTypeColumnStats {
	return &ComplexTypeColumnStats{complexRenderer: complexRenderer{tp: tp}, name: name}
}

// Kind implements ColumnStats.
func (*ComplexTypeColumnStats) Kind() Kind { return KindComplex }

// ColumnName implements ColumnStats.
func (c *ComplexTypeColumnStats) ColumnName() string { return c.name }

// ColumnType implements ColumnStats.
func (c *ComplexTypeColumnStats) ColumnType() *types.FieldType { return c.tp }

// QuotedColumnName implements ColumnStats.
func (c *ComplexTypeColumnStats) QuotedColumnName() string { return sqlescape.QuoteIdentifier(c.name) }

// LateralJoin implements ColumnStats.
func (*ComplexTypeColumnStats) LateralJoin() string { return "" }

// IsPrimitive implements ColumnStats.
func (*ComplexTypeColumnStats) IsPrimitive() bool { return false }

// SubFieldColumnStats is a field nested in a struct column, addressed by its path.
type SubFieldColumnStats struct {
	renderer
	path []string
	tp   *types.FieldType
}

// NewSubFieldColumnStats creates a SubFieldColumnStats of the given path and declared leaf type.
func NewSubFieldColumnStats(path []string, tp *types.FieldType) *SubFieldColumnStats {
	return &SubFieldColumnStats{renderer: rendererFor(tp), path: path, tp: tp}
}

// Kind implements ColumnStats.
func (*SubFieldColumnStats) Kind() Kind { return KindSubField }

// Path returns the resolved field names, starting at the top-level column.
func (c *SubFieldColumnStats) Path() []string { return c.path }

// ColumnName implements ColumnStats.
func (c *SubFieldColumnStats) ColumnName() string { return strings.Join(c.path, ".") }

// ColumnType implements ColumnStats.
func (c *SubFieldColumnStats) ColumnType() *types.FieldType { return c.tp }

// QuotedColumnName implements ColumnStats.
func (c *SubFieldColumnStats) QuotedColumnName() string {
	quoted := make([]string, 0, len(c.path))
	for _, name := range c.path {
		quoted = append(quoted, sqlescape.QuoteIdentifier(name))
	}
	return strings.Join(quoted, ".")
}

// LateralJoin implements ColumnStats.
func (*SubFieldColumnStats) LateralJoin() string { return "" }

// IsPrimitive implements ColumnStats.
func (c *SubFieldColumnStats) IsPrimitive() bool { return IsPrimitiveType(c.tp) }
