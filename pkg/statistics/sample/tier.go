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

package sample

import "fmt"

// WeightTier groups tablets of similar row counts so that each group can be
// read with its own ratio.
type WeightTier int

// Weight tiers ordered from the heaviest tablets to the lightest.
const (
	TierHigh WeightTier = iota
	TierMediumHigh
	TierMediumLow
	TierLow

	numTiers = 4
)

// AllTiers lists every tier in rendering order.
var AllTiers = [numTiers]WeightTier{TierHigh, TierMediumHigh, TierMediumLow, TierLow}

type tierAttr struct {
	name      string
	minRows   int64
	readRatio float64
}

var tierAttrs = [numTiers]tierAttr{
	TierHigh:       {name: "high", minRows: 10_000_000, readRatio: 0.01},
	TierMediumHigh: {name: "medium_high", minRows: 1_000_000, readRatio: 0.1},
	TierMediumLow:  {name: "medium_low", minRows: 100_000, readRatio: 0.2},
	TierLow:        {name: "low", minRows: 0, readRatio: 0.8},
}

func (t WeightTier) valid() bool {
	return t >= TierHigh && t <= TierLow
}

// String implements fmt.Stringer.
func (t WeightTier) String() string {
	if !t.valid() {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierAttrs[t].name
}

// ReadRatio is the fraction of rows read from every sampled tablet of the tier.
func (t WeightTier) ReadRatio() float64 {
	return tierAttrs[t].readRatio
}

// MinRows is the smallest tablet row count belonging to the tier.
func (t WeightTier) MinRows() int64 {
	return tierAttrs[t].minRows
}

// Alias is the derived-table alias of the tier's sample sub-query.
func (t WeightTier) Alias() string {
	return "t_" + t.String()
}

// TierOf returns the tier of a tablet with rowCount rows.
// It depends on nothing but the row count, so tablets of equal weight share a tier.
func TierOf(rowCount int64) WeightTier {
	for _, t := range AllTiers {
		if rowCount >= tierAttrs[t].minRows {
			return t
		}
	}
	return TierLow
}
