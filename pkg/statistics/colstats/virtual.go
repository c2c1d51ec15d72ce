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
	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/statistics/virtual"
	"github.com/pingcap/statsplan/pkg/types"
	"github.com/pingcap/statsplan/pkg/util/sqlescape"
)

// VirtualColumnStats is a virtual statistic derived from a top-level column.
// It is stored under the synthesized virtual column name.
type VirtualColumnStats struct {
	renderer
	baseColumn string
	baseType   *types.FieldType
	stat       *virtual.Statistic
	tp         *types.FieldType
}

// NewVirtualColumnStats derives stat from baseColumn of type baseType.
func NewVirtualColumnStats(baseColumn string, baseType *types.FieldType, stat *virtual.Statistic) (*VirtualColumnStats, error) {
	if !stat.AppliesTo(baseType) {
		return nil, errors.Annotatef(virtual.ErrInvalidVirtualStatistic,
			"%s does not apply to column %s of type %s", stat.Name(), baseColumn, baseType)
	}
	tp, err := stat.ExpressionType(baseType)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &VirtualColumnStats{
		renderer:   rendererFor(tp),
		baseColumn: baseColumn,
		baseType:   baseType,
		stat:       stat,
		tp:         tp,
	}, nil
}

// Kind implements ColumnStats.
func (*VirtualColumnStats) Kind() Kind { return KindVirtual }

// BaseColumn returns the column the statistic is derived from.
func (c *VirtualColumnStats) BaseColumn() string { return c.baseColumn }

// Statistic returns the virtual statistic.
func (c *VirtualColumnStats) Statistic() *virtual.Statistic { return c.stat }

// Expression returns the SQL expression deriving the values.
func (c *VirtualColumnStats) Expression() string { return c.stat.Expression(c.baseColumn) }

// ColumnName implements ColumnStats.
func (c *VirtualColumnStats) ColumnName() string { return c.stat.ColumnName(c.baseColumn) }

// ColumnType implements ColumnStats.
func (c *VirtualColumnStats) ColumnType() *types.FieldType { return c.tp }

// QuotedColumnName implements ColumnStats. Laterally joined values are read
// through the alias of the lateral join, the others through the expression.
func (c *VirtualColumnStats) QuotedColumnName() string {
	if c.stat.RequiresLateralJoin() {
		return sqlescape.QuoteIdentifier(c.ColumnName())
	}
	return c.Expression()
}

// LateralJoin implements ColumnStats.
func (c *VirtualColumnStats) LateralJoin() string { return c.stat.LateralJoin(c.baseColumn) }

// IsPrimitive implements ColumnStats.
func (c *VirtualColumnStats) IsPrimitive() bool { return IsPrimitiveType(c.tp) }
