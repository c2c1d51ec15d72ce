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
	"github.com/pingcap/errors"
)

// SampleInfo is the sampling plan of one collect job. It is immutable once built.
type SampleInfo struct {
	// TabletSampleRatio is the fraction of tablets read.
	TabletSampleRatio float64
	// SampleRowCount is the expected number of rows read.
	SampleRowCount int64
	// TotalRowCount is the number of rows of the sampled scope.
	TotalRowCount int64
	// RowSampleRatio is SampleRowCount / TotalRowCount.
	RowSampleRatio float64

	tiers [numTiers][]TabletStats
}

// NewDefaultSampleInfo returns the degenerate plan used when row counts are unknown:
// every count and ratio is 1 and no tablet hint is emitted.
func NewDefaultSampleInfo() *SampleInfo {
	return &SampleInfo{
		TabletSampleRatio: 1,
		SampleRowCount:    1,
		TotalRowCount:     1,
		RowSampleRatio:    1,
	}
}

// NewSampleInfo builds a sampling plan from the per-tier sampled tablets.
func NewSampleInfo(tabletSampleRatio float64, sampleRowCount, totalRowCount int64,
	tiers map[WeightTier][]TabletStats) (*SampleInfo, error) {
	if totalRowCount <= 0 || sampleRowCount <= 0 || sampleRowCount > totalRowCount {
		return nil, errors.Errorf("invalid sample row count %d of total %d", sampleRowCount, totalRowCount)
	}
	if tabletSampleRatio <= 0 || tabletSampleRatio > 1 {
		return nil, errors.Errorf("invalid tablet sample ratio %v", tabletSampleRatio)
	}
	info := &SampleInfo{
		TabletSampleRatio: tabletSampleRatio,
		SampleRowCount:    sampleRowCount,
		TotalRowCount:     totalRowCount,
		RowSampleRatio:    float64(sampleRowCount) / float64(totalRowCount),
	}
	for tier, tablets := range tiers {
		if !tier.valid() {
			return nil, errors.Errorf("unknown weight tier %d", int(tier))
		}
		info.tiers[tier] = tablets
	}
	return info, nil
}

func newFullScanSampleInfo(totalRowCount int64) *SampleInfo {
	return &SampleInfo{
		TabletSampleRatio: 1,
		SampleRowCount:    totalRowCount,
		TotalRowCount:     totalRowCount,
		RowSampleRatio:    1,
	}
}

// TierTablets returns the sampled tablets of a tier.
func (si *SampleInfo) TierTablets(tier WeightTier) []TabletStats {
	if !tier.valid() {
		return nil
	}
	return si.tiers[tier]
}

// TierTabletIDs returns the ids of the sampled tablets of a tier.
func (si *SampleInfo) TierTabletIDs(tier WeightTier) []int64 {
	tablets := si.TierTablets(tier)
	ids := make([]int64, 0, len(tablets))
	for _, ts := range tablets {
		ids = append(ids, ts.TabletID)
	}
	return ids
}

// MaxSampleTabletNum returns the size of the largest tier.
func (si *SampleInfo) MaxSampleTabletNum() int {
	maxNum := 0
	for _, tablets := range si.tiers {
		maxNum = max(maxNum, len(tablets))
	}
	return maxNum
}

// SampledTabletNum returns the number of tablets over all tiers.
func (si *SampleInfo) SampledTabletNum() int {
	num := 0
	for _, tablets := range si.tiers {
		num += len(tablets)
	}
	return num
}

// IsFullScan reports whether the plan reads the scope without tablet hints.
func (si *SampleInfo) IsFullScan() bool {
	return si.SampledTabletNum() == 0
}
