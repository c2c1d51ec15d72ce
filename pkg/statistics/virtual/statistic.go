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

package virtual

import (
	"fmt"
	"strings"

	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/types"
	"github.com/pingcap/statsplan/pkg/util/sqlescape"
)

// ColumnNamePrefix starts the stats-table column name of every virtual statistic.
const ColumnNamePrefix = "VIRTUAL_STATISTIC"

// ErrInvalidVirtualStatistic is returned when a virtual statistic is applied
// to a column type it does not support.
var ErrInvalidVirtualStatistic = errors.New("invalid virtual statistic")

// Kind tags a registered virtual statistic.
type Kind int

// Registered virtual statistic kinds.
const (
	KindUnnest Kind = iota
)

// QueryOptions are the session switches consulted when the optimizer reads statistics.
type QueryOptions struct {
	EnableUnnestVirtualStatistics bool
}

// Statistic is a statistic derived from a base column by an expression, such
// as the distribution of the elements of an array column. Instances are
// immutable and shared.
type Statistic struct {
	kind                Kind
	name                string
	analyzePropertyKey  string
	requiresLateralJoin bool
	appliesTo           func(tp *types.FieldType) bool
	expressionType      func(tp *types.FieldType) (*types.FieldType, error)
	expression          func(quotedBase string) string
	queryingEnabled     func(opts QueryOptions) bool
}

// Kind returns the variant tag of s.
func (s *Statistic) Kind() Kind {
	return s.kind
}

// Name is the unique name of s. It never contains an underscore.
func (s *Statistic) Name() string {
	return s.name
}

// AnalyzePropertyKey is the job property enabling the collection of s.
func (s *Statistic) AnalyzePropertyKey() string {
	return s.analyzePropertyKey
}

// AppliesTo reports whether a column of type tp can produce s.
func (s *Statistic) AppliesTo(tp *types.FieldType) bool {
	return tp != nil && s.appliesTo(tp)
}

// ExpressionType returns the type of the derived values of a column of type tp.
func (s *Statistic) ExpressionType(tp *types.FieldType) (*types.FieldType, error) {
	if tp == nil {
		return nil, errors.Annotatef(ErrInvalidVirtualStatistic, "%s: missing column type", s.name)
	}
	return s.expressionType(tp)
}

// Expression returns the SQL expression computing the derived values of baseColumn.
func (s *Statistic) Expression(baseColumn string) string {
	return s.expression(sqlescape.QuoteIdentifier(baseColumn))
}

// RequiresLateralJoin reports whether the expression yields a set of values
// per row and so has to be joined laterally in the FROM clause.
func (s *Statistic) RequiresLateralJoin() bool {
	return s.requiresLateralJoin
}

// QueryingEnabled reports whether the optimizer may use s.
func (s *Statistic) QueryingEnabled(opts QueryOptions) bool {
	return s.queryingEnabled(opts)
}

// EnabledInJobProperties reports whether the collect job asks for s. Only
// "true", in any case, enables it.
func (s *Statistic) EnabledInJobProperties(props map[string]string) bool {
	return strings.EqualFold(props[s.analyzePropertyKey], "true")
}

// ColumnName returns the stats-table column name of s over baseColumn.
func (s *Statistic) ColumnName(baseColumn string) string {
	return fmt.Sprintf("%s_%s_%s", ColumnNamePrefix, baseColumn, s.name)
}

// BaseColumn recovers the base column from a name built by ColumnName.
func (s *Statistic) BaseColumn(columnName string) (string, error) {
	head, tail := ColumnNamePrefix+"_", "_"+s.name
	if !strings.HasPrefix(columnName, head) || !strings.HasSuffix(columnName, tail) ||
		len(columnName) <= len(head)+len(tail) {
		return "", errors.Errorf("%s is not a %s virtual column name", columnName, s.name)
	}
	return columnName[len(head) : len(columnName)-len(tail)], nil
}

// LateralJoin returns the FROM clause fragment exploding baseColumn, or an
// empty string when s needs no lateral join.
func (s *Statistic) LateralJoin(baseColumn string) string {
	if !s.requiresLateralJoin {
		return ""
	}
	alias := sqlescape.QuoteIdentifier(s.ColumnName(baseColumn))
	return fmt.Sprintf(", %s %s(%s)", s.Expression(baseColumn), alias, alias)
}

func (s *Statistic) String() string {
	return s.name
}
