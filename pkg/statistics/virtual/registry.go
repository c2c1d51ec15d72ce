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
	"slices"
	"strings"

	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/statistics"
	"github.com/pingcap/statsplan/pkg/types"
)

// Unnest is the distribution of the elements of an array column.
var Unnest = &Statistic{
	kind:                KindUnnest,
	name:                "UNNEST",
	analyzePropertyKey:  statistics.UnnestVirtualStatistics,
	requiresLateralJoin: true,
	appliesTo: func(tp *types.FieldType) bool {
		if !tp.IsArrayType() {
			return false
		}
		item := tp.ItemType()
		return item.CanStatistic() && !item.IsCollectionType()
	},
	expressionType: func(tp *types.FieldType) (*types.FieldType, error) {
		if !tp.IsArrayType() {
			return nil, errors.Annotatef(ErrInvalidVirtualStatistic, "UNNEST can only be applied to array types, got %s", tp)
		}
		return tp.ItemType(), nil
	},
	expression: func(quotedBase string) string {
		return "unnest(" + quotedBase + ")"
	},
	queryingEnabled: func(opts QueryOptions) bool {
		return opts.EnableUnnestVirtualStatistics
	},
}

var registry = mustRegister(Unnest)

func mustRegister(stats ...*Statistic) []*Statistic {
	names := make(map[string]struct{}, len(stats))
	keys := make(map[string]struct{}, len(stats))
	for _, s := range stats {
		if s.name == "" || strings.Contains(s.name, "_") {
			panic(fmt.Sprintf("invalid virtual statistic name %q", s.name))
		}
		if _, dup := names[s.name]; dup {
			panic(fmt.Sprintf("duplicate virtual statistic %s", s.name))
		}
		if _, dup := keys[s.analyzePropertyKey]; dup {
			panic(fmt.Sprintf("duplicate virtual statistic property %s", s.analyzePropertyKey))
		}
		names[s.name] = struct{}{}
		keys[s.analyzePropertyKey] = struct{}{}
	}
	return stats
}

// Instances returns the registered virtual statistics in registration order.
func Instances() []*Statistic {
	return slices.Clone(registry)
}

// IsVirtualColumnName reports whether a stats-table column name starts with ColumnNamePrefix.
func IsVirtualColumnName(columnName string) bool {
	return strings.HasPrefix(columnName, ColumnNamePrefix)
}

// minUnderscores is one underscore after the prefix plus one before the statistic name.
var minUnderscores = strings.Count(ColumnNamePrefix, "_") + 2

// FromColumnName finds the virtual statistic a stats-table column name was built for.
// The statistic name is the part after the last underscore, matched case-sensitively.
func FromColumnName(columnName string) (*Statistic, bool) {
	if !IsVirtualColumnName(columnName) || strings.Count(columnName, "_") < minUnderscores {
		return nil, false
	}
	name := columnName[strings.LastIndexByte(columnName, '_')+1:]
	for _, s := range registry {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

// Decode splits a virtual stats-table column name into its base column and statistic.
func Decode(columnName string) (string, *Statistic, bool) {
	s, ok := FromColumnName(columnName)
	if !ok {
		return "", nil, false
	}
	base, err := s.BaseColumn(columnName)
	if err != nil {
		return "", nil, false
	}
	return base, s, true
}

// LookupForQuery is Decode restricted to the statistics the optimizer may use under opts.
func LookupForQuery(columnName string, opts QueryOptions) (string, *Statistic, bool) {
	base, s, ok := Decode(columnName)
	if !ok || !s.QueryingEnabled(opts) {
		return "", nil, false
	}
	return base, s, true
}

// EnabledFor returns the statistics enabled in props which apply to tp, in registration order.
func EnabledFor(tp *types.FieldType, props map[string]string) []*Statistic {
	var stats []*Statistic
	for _, s := range registry {
		if s.EnabledInJobProperties(props) && s.AppliesTo(tp) {
			stats = append(stats, s)
		}
	}
	return stats
}
