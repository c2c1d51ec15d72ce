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

import (
	"cmp"
	"math"
	"slices"

	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/statistics"
)

// TabletStats is the row count of one tablet as reported by the metastore.
type TabletStats struct {
	TabletID    int64
	PartitionID int64
	RowCount    int64
}

// NewTabletStats creates a TabletStats, rejecting negative row counts.
func NewTabletStats(tabletID, partitionID, rowCount int64) (TabletStats, error) {
	if rowCount < 0 {
		return TabletStats{}, errors.Annotatef(statistics.ErrInvalidRowCount,
			"tablet %d of partition %d reports %d rows", tabletID, partitionID, rowCount)
	}
	return TabletStats{TabletID: tabletID, PartitionID: partitionID, RowCount: rowCount}, nil
}

// ratioEpsilon absorbs float error in n*ratio before rounding up.
const ratioEpsilon = 1e-9

// TabletSampler picks the tablets read for one weight tier.
type TabletSampler struct {
	tier              WeightTier
	tabletSampleRatio float64
	maxSize           int

	tablets   []TabletStats
	totalRows int64
}

// NewTabletSampler creates a sampler keeping tabletSampleRatio of the tier's
// tablets, but never more than maxSize of them.
func NewTabletSampler(tier WeightTier, tabletSampleRatio float64, maxSize int) *TabletSampler {
	return &TabletSampler{
		tier:              tier,
		tabletSampleRatio: tabletSampleRatio,
		maxSize:           maxSize,
	}
}

// AddTabletStats adds a tablet to the tier.
func (s *TabletSampler) AddTabletStats(ts TabletStats) {
	s.tablets = append(s.tablets, ts)
	s.totalRows += ts.RowCount
}

// Tier returns the tier the sampler works on.
func (s *TabletSampler) Tier() WeightTier {
	return s.tier
}

// ReadRatio returns the fraction of rows read from each sampled tablet.
func (s *TabletSampler) ReadRatio() float64 {
	return s.tier.ReadRatio()
}

// TotalRows returns the rows of all tablets in the tier.
func (s *TabletSampler) TotalRows() int64 {
	return s.totalRows
}

// TotalTablets returns the number of tablets in the tier.
func (s *TabletSampler) TotalTablets() int {
	return len(s.tablets)
}

// Sample returns the tablets to read, heaviest first. Tablets with equal row
// counts are ordered by tablet id so the choice is deterministic.
func (s *TabletSampler) Sample() []TabletStats {
	n := len(s.tablets)
	if n == 0 {
		return nil
	}
	sorted := slices.Clone(s.tablets)
	slices.SortFunc(sorted, func(a, b TabletStats) int {
		if c := cmp.Compare(b.RowCount, a.RowCount); c != 0 {
			return c
		}
		return cmp.Compare(a.TabletID, b.TabletID)
	})
	keep := int(math.Ceil(float64(n)*s.tabletSampleRatio - ratioEpsilon))
	keep = max(keep, 1)
	keep = min(keep, s.maxSize, n)
	return sorted[:keep]
}

// SampleRows returns the expected number of rows read from the sampled tablets.
func (s *TabletSampler) SampleRows(sampled []TabletStats) int64 {
	var rows float64
	for _, ts := range sampled {
		rows += float64(ts.RowCount) * s.ReadRatio()
	}
	return int64(math.Round(rows))
}

// Classify assigns every tablet to exactly one weight tier.
// Tablets keep their input order within a tier.
func Classify(tablets []TabletStats) map[WeightTier][]TabletStats {
	tiers := make(map[WeightTier][]TabletStats, numTiers)
	for _, ts := range tablets {
		tier := TierOf(ts.RowCount)
		tiers[tier] = append(tiers[tier], ts)
	}
	return tiers
}
