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
	"testing"

	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/meta/model"
	"github.com/pingcap/statsplan/pkg/statistics"
	"github.com/pingcap/statsplan/pkg/statistics/handle/metrics"
	"github.com/pingcap/statsplan/pkg/statistics/sample"
	"github.com/pingcap/statsplan/pkg/statistics/virtual"
	"github.com/pingcap/statsplan/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newStructTable() *model.TableInfo {
	columns := []struct{ name, tp string }{
		{"c0", "int"},
		{"c1", "date"},
		{"c2", "varchar(255)"},
		{"c3", "decimal(10, 2)"},
		{"c4", "struct<a int, b array<struct<a int, b int>>>"},
		{"c5", "struct<a int, b int>"},
		{"c6", "struct<a int, b int, c struct<a int, b int>, d array<int>>"},
		{"c7", "array<int>"},
		{"carr2", "array<int>"},
		{"cmap", "map<int,varchar(8)>"},
	}
	tbl := &model.TableInfo{ID: 1, Name: "t_struct", DistributionKeys: []string{"c0"}}
	for i, col := range columns {
		tbl.Columns = append(tbl.Columns, &model.ColumnInfo{
			ID:        int64(i + 1),
			Name:      col.name,
			FieldType: types.MustParseFieldType(col.tp),
		})
	}
	return tbl
}

func declaredTypes(tbl *model.TableInfo, names ...string) []*types.FieldType {
	tps := make([]*types.FieldType, 0, len(names))
	for _, name := range names {
		tps = append(tps, tbl.FindColumn(name).FieldType)
	}
	return tps
}

func columnNames(stats []ColumnStats) []string {
	names := make([]string, 0, len(stats))
	for _, s := range stats {
		names = append(names, s.ColumnName())
	}
	return names
}

func TestClassifyTopLevelColumns(t *testing.T) {
	tbl := newStructTable()
	names := []string{"c0", "c1", "c2", "c3", "c4", "cmap"}

	c, err := Classify(names, declaredTypes(tbl, names...), tbl, sample.NewDefaultSampleInfo(), nil)
	require.NoError(t, err)
	require.Equal(t, names, columnNames(c.Stats))
	require.Equal(t, []string{"c0", "c1", "c2", "c3"}, columnNames(c.PrimitiveStats))
	require.Equal(t, []string{"c4", "cmap"}, columnNames(c.ComplexStats))
	require.Equal(t, KindDistribution, c.Stats[0].Kind())
	require.Equal(t, KindPrimitive, c.Stats[1].Kind())
	require.Equal(t, KindComplex, c.Stats[4].Kind())

	// Full collect jobs do not special-case the distribution key.
	c, err = Classify(names, declaredTypes(tbl, names...), tbl, nil, nil)
	require.NoError(t, err)
	require.Equal(t, KindPrimitive, c.Stats[0].Kind())

	// Column names resolve case-insensitively to the schema name.
	c, err = Classify([]string{"C2"}, declaredTypes(tbl, "c2"), tbl, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"c2"}, columnNames(c.Stats))

	// A table distributed on several columns has no distribution column stats.
	tbl.DistributionKeys = []string{"c0", "c1"}
	c, err = Classify([]string{"c0"}, declaredTypes(tbl, "c0"), tbl, sample.NewDefaultSampleInfo(), nil)
	require.NoError(t, err)
	require.Equal(t, KindPrimitive, c.Stats[0].Kind())
}

func TestClassifySubFields(t *testing.T) {
	tbl := newStructTable()
	intType := types.NewFieldType(types.KindInt)
	names := []string{"c6.c.b", "c5.a", "c6.d", "c4.b.a", "c6.x.y", "nope.a", "c1.x", "zzz"}
	tps := []*types.FieldType{
		intType,
		intType,
		types.MustParseFieldType("array<int>"),
		intType,
		intType,
		intType,
		intType,
		intType,
	}
	skipped := testutil.ToFloat64(metrics.SkippedColumnCounter)
	c, err := Classify(names, tps, tbl, nil, nil)
	require.NoError(t, err)
	require.Equal(t, skipped+3, testutil.ToFloat64(metrics.SkippedColumnCounter))

	require.Len(t, c.Stats, 5)
	paths := make([][]string, 0, len(c.Stats))
	for _, s := range c.Stats {
		require.Equal(t, KindSubField, s.Kind())
		paths = append(paths, s.(*SubFieldColumnStats).Path())
	}
	require.Equal(t, [][]string{
		{"c6", "c", "b"},
		{"c5", "a"},
		{"c6", "d"},
		{"c4", "b", "a"},
		{"c6", "x.y"},
	}, paths)

	leaf := c.Stats[0]
	require.Equal(t, types.KindInt, leaf.ColumnType().GetType())
	require.Equal(t, "c6.c.b", leaf.ColumnName())
	require.Equal(t, "`c6`.`c`.`b`", leaf.QuotedColumnName())
	require.Equal(t, []string{"c6.c.b", "c5.a", "c4.b.a", "c6.x.y"}, columnNames(c.PrimitiveStats))
	require.Equal(t, []string{"c6.d"}, columnNames(c.ComplexStats))
}

func TestClassifyUnnest(t *testing.T) {
	tbl := newStructTable()
	names := []string{"c7", "c2", "carr2", "cmap"}
	enabled := map[string]string{statistics.UnnestVirtualStatistics: "true"}

	c, err := Classify(names, declaredTypes(tbl, names...), tbl, nil, enabled)
	require.NoError(t, err)
	require.Equal(t, []string{
		"c7", "VIRTUAL_STATISTIC_c7_UNNEST",
		"c2",
		"carr2", "VIRTUAL_STATISTIC_carr2_UNNEST",
		"cmap",
	}, columnNames(c.Stats))
	require.Equal(t, []string{"VIRTUAL_STATISTIC_c7_UNNEST", "c2", "VIRTUAL_STATISTIC_carr2_UNNEST"}, columnNames(c.PrimitiveStats))
	require.Equal(t, []string{"c7", "carr2", "cmap"}, columnNames(c.ComplexStats))

	vs, ok := c.Stats[1].(*VirtualColumnStats)
	require.True(t, ok)
	require.Equal(t, KindVirtual, vs.Kind())
	require.Equal(t, "c7", vs.BaseColumn())
	require.Same(t, virtual.Unnest, vs.Statistic())
	require.Contains(t, vs.Expression(), "unnest(`c7`)")
	require.Equal(t, types.KindInt, vs.ColumnType().GetType())
	require.Equal(t, "`VIRTUAL_STATISTIC_c7_UNNEST`", vs.QuotedColumnName())
	require.Equal(t, ", unnest(`c7`) `VIRTUAL_STATISTIC_c7_UNNEST`(`VIRTUAL_STATISTIC_c7_UNNEST`)", vs.LateralJoin())

	base, stat, ok := virtual.Decode(vs.ColumnName())
	require.True(t, ok)
	require.Equal(t, "c7", base)
	require.Same(t, virtual.Unnest, stat)

	for _, props := range []map[string]string{nil, {statistics.UnnestVirtualStatistics: "false"}} {
		c, err = Classify(names, declaredTypes(tbl, names...), tbl, nil, props)
		require.NoError(t, err)
		require.Equal(t, names, columnNames(c.Stats))
		for _, s := range c.Stats {
			require.NotEqual(t, KindVirtual, s.Kind())
			require.Empty(t, s.LateralJoin())
		}
	}
}

func TestClassifyErrors(t *testing.T) {
	tbl := newStructTable()
	_, err := Classify([]string{"c0", "c1"}, declaredTypes(tbl, "c0"), tbl, nil, nil)
	require.Error(t, err)
	_, err = Classify([]string{"c0"}, []*types.FieldType{nil}, tbl, nil, nil)
	require.Error(t, err)

	_, err = NewVirtualColumnStats("c0", types.NewFieldType(types.KindInt), virtual.Unnest)
	require.ErrorIs(t, errors.Cause(err), virtual.ErrInvalidVirtualStatistic)
	_, err = NewVirtualColumnStats("c0", types.MustParseFieldType("array<array<int>>"), virtual.Unnest)
	require.ErrorIs(t, errors.Cause(err), virtual.ErrInvalidVirtualStatistic)

	c, err := Classify(nil, nil, tbl, nil, nil)
	require.NoError(t, err)
	require.Empty(t, c.Stats)
}

func TestClassifyCountsKinds(t *testing.T) {
	tbl := newStructTable()
	before := testutil.ToFloat64(metrics.VirtualColumnCounter)
	primitive := testutil.ToFloat64(metrics.PrimitiveColumnCounter)
	_, err := Classify([]string{"c7", "c1"}, declaredTypes(tbl, "c7", "c1"), tbl, nil,
		map[string]string{statistics.UnnestVirtualStatistics: "TRUE"})
	require.NoError(t, err)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.VirtualColumnCounter))
	require.Equal(t, primitive+1, testutil.ToFloat64(metrics.PrimitiveColumnCounter))
}
