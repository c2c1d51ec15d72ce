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
	"strings"

	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/meta/model"
	statslogutil "github.com/pingcap/statsplan/pkg/statistics/handle/logutil"
	"github.com/pingcap/statsplan/pkg/statistics/handle/metrics"
	"github.com/pingcap/statsplan/pkg/statistics/sample"
	"github.com/pingcap/statsplan/pkg/statistics/virtual"
	"github.com/pingcap/statsplan/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Table is the metastore view of the table the columns belong to.
type Table interface {
	// FindColumn finds a top-level column by name.
	FindColumn(name string) *model.ColumnInfo
	// SoleDistributionColumn returns the distribution key if the table has exactly one.
	SoleDistributionColumn() (*model.ColumnInfo, bool)
}

// Classification is the result of Classify.
type Classification struct {
	// Stats holds every entry in input order, virtual entries right after their base column.
	Stats []ColumnStats
	// PrimitiveStats are the entries aggregated by SQL, in the order of Stats.
	PrimitiveStats []ColumnStats
	// ComplexStats are the entries written as literals, in the order of Stats.
	ComplexStats []ColumnStats
}

func (c *Classification) add(stats ColumnStats) {
	c.Stats = append(c.Stats, stats)
	if stats.IsPrimitive() {
		c.PrimitiveStats = append(c.PrimitiveStats, stats)
	} else {
		c.ComplexStats = append(c.ComplexStats, stats)
	}
	classifyCounter(stats.Kind()).Inc()
}

func classifyCounter(kind Kind) prometheus.Counter {
	switch kind {
	case KindComplex:
		return metrics.ComplexColumnCounter
	case KindDistribution:
		return metrics.DistributionColumnCounter
	case KindSubField:
		return metrics.SubFieldColumnCounter
	case KindVirtual:
		return metrics.VirtualColumnCounter
	}
	return metrics.PrimitiveColumnCounter
}

// Classify builds the ColumnStats of the requested columns. fieldTypes holds
// the declared type of every name. Names which are neither a column of tbl
// nor a path into one of its struct columns are skipped. sampling is nil for
// full collect jobs.
func Classify(names []string, fieldTypes []*types.FieldType, tbl Table,
	sampling *sample.SampleInfo, props map[string]string) (*Classification, error) {
	if len(names) != len(fieldTypes) {
		return nil, errors.Errorf("got %d column names but %d column types", len(names), len(fieldTypes))
	}
	distCol, hasDistCol := tbl.SoleDistributionColumn()
	c := &Classification{}
	for i, name := range names {
		declared := fieldTypes[i]
		if declared == nil {
			return nil, errors.Errorf("column %s has no type", name)
		}
		col := tbl.FindColumn(name)
		if col == nil {
			path := resolveSubFieldPath(tbl, name)
			if len(path) == 0 {
				metrics.SkippedColumnCounter.Inc()
				statslogutil.StatsLogger().Debug("skip unresolved column", zap.String("column", name))
				continue
			}
			c.add(NewSubFieldColumnStats(path, declared))
			continue
		}

		switch {
		case !IsPrimitiveType(declared):
			c.add(NewComplexTypeColumnStats(col.Name, col.FieldType))
		case sampling != nil && hasDistCol && strings.EqualFold(distCol.Name, col.Name):
			c.add(NewDistributionColumnStats(col.Name, col.FieldType, sampling))
		default:
			c.add(NewPrimitiveTypeColumnStats(col.Name, col.FieldType))
		}

		for _, stat := range virtual.EnabledFor(col.FieldType, props) {
			vs, err := NewVirtualColumnStats(col.Name, col.FieldType, stat)
			if err != nil {
				return nil, errors.Trace(err)
			}
			c.add(vs)
		}
	}
	return c, nil
}

// resolveSubFieldPath splits a dotted name into the path of a struct field.
// The first dotted prefix naming a struct column is the root. The rest is
// walked segment by segment while the current type is a struct; a segment
// which is not a field is merged with the following one, so field names may
// contain dots. Whatever remains becomes the last path element.
func resolveSubFieldPath(tbl Table, name string) []string {
	for end := indexFrom(name, 0); end > 0; end = indexFrom(name, end+1) {
		root := tbl.FindColumn(name[:end])
		if root == nil || !root.FieldType.IsStructType() {
			continue
		}
		path := []string{name[:end]}
		rest := name[end+1:]
		tp := root.FieldType
		start, pos := 0, 0
		for sep := indexFrom(rest, pos); sep > 0 && tp.IsStructType(); sep = indexFrom(rest, pos) {
			segment := rest[start:sep]
			if fieldType, ok := tp.Field(segment); ok {
				path = append(path, segment)
				tp = fieldType
				start = sep + 1
			}
			pos = sep + 1
		}
		return append(path, rest[start:])
	}
	return nil
}

// indexFrom returns the index of the first '.' in s at or after from, or -1.
func indexFrom(s string, from int) int {
	if from >= len(s) {
		return -1
	}
	idx := strings.IndexByte(s[from:], '.')
	if idx < 0 {
		return -1
	}
	return from + idx
}
