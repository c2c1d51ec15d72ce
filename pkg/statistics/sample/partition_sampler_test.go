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
	"math/rand"
	"testing"

	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/config"
	"github.com/pingcap/statsplan/pkg/meta/model"
	"github.com/pingcap/statsplan/pkg/statistics"
	"github.com/stretchr/testify/require"
)

func defaultOptions(t *testing.T) SamplerOptions {
	opts, err := NewSamplerOptions(nil, config.NewConfig())
	require.NoError(t, err)
	return opts
}

func uniformPartition(pid, firstTablet int64, n int, rows int64) PartitionTablets {
	pt := PartitionTablets{PartitionID: pid}
	for i := 0; i < n; i++ {
		pt.Tablets = append(pt.Tablets, TabletStats{TabletID: firstTablet + int64(i), PartitionID: pid, RowCount: rows})
	}
	return pt
}

func TestNewSamplerOptions(t *testing.T) {
	opts := defaultOptions(t)
	require.Equal(t, [numTiers]float64{0.5, 0.45, 0.35, 0.3}, opts.TabletSampleRatios)
	require.Equal(t, 5000, opts.MaxSampleTabletNum)
	require.Equal(t, int64(200_000), opts.SampleRowsLimit)
	require.False(t, opts.UseTableSample)

	opts, err := NewSamplerOptions(map[string]string{
		statistics.HighWeightSampleRatio:                 "0.9",
		statistics.LowWeightSampleRatio:                  "1",
		statistics.MaxSampleTabletNum:                    "10",
		statistics.SampleCollectRows:                     "1000",
		statistics.EnableUseTableSampleCollectStatistics: "true",
	}, config.NewConfig())
	require.NoError(t, err)
	require.Equal(t, [numTiers]float64{0.9, 0.45, 0.35, 1}, opts.TabletSampleRatios)
	require.Equal(t, 10, opts.MaxSampleTabletNum)
	require.Equal(t, int64(1000), opts.SampleRowsLimit)
	require.True(t, opts.UseTableSample)

	for _, props := range []map[string]string{
		{statistics.HighWeightSampleRatio: "0"},
		{statistics.MediumHighWeightSampleRatio: "1.5"},
		{statistics.MediumLowWeightSampleRatio: "half"},
		{statistics.HighWeightSampleRatio: "NaN"},
		{statistics.LowWeightSampleRatio: "nan"},
		{statistics.MaxSampleTabletNum: "0"},
		{statistics.MaxSampleTabletNum: "ten"},
		{statistics.SampleCollectRows: "-1"},
	} {
		_, err := NewSamplerOptions(props, config.NewConfig())
		require.ErrorIs(t, errors.Cause(err), statistics.ErrInvalidProperty, "%v", props)
	}
}

func TestSampleZeroRows(t *testing.T) {
	s := NewPartitionSampler(defaultOptions(t))
	require.Equal(t, NewDefaultSampleInfo(), s.MergedSampleInfo())

	require.NoError(t, s.Sample([]PartitionTablets{uniformPartition(1, 100, 4, 0), {PartitionID: 2}}))
	for _, pid := range []int64{1, 2} {
		info, ok := s.SampleInfo(pid)
		require.True(t, ok)
		require.Equal(t, NewDefaultSampleInfo(), info)
		require.True(t, info.IsFullScan())
	}
	_, ok := s.SampleInfo(3)
	require.False(t, ok)
}

func TestSampleFullScanShortCircuit(t *testing.T) {
	opts := defaultOptions(t)
	s := NewPartitionSampler(opts)
	rng := rand.New(rand.NewSource(7))
	var partitions []PartitionTablets
	tablet := int64(0)
	for pid := int64(1); pid <= 30; pid++ {
		pt := PartitionTablets{PartitionID: pid}
		budget := rng.Int63n(opts.SampleRowsLimit) + 1
		for budget > 0 {
			rows := min(budget, rng.Int63n(50_000)+1)
			budget -= rows
			tablet++
			pt.Tablets = append(pt.Tablets, TabletStats{TabletID: tablet, PartitionID: pid, RowCount: rows})
		}
		partitions = append(partitions, pt)
	}
	require.NoError(t, s.Sample(partitions))
	for _, pt := range partitions {
		info, ok := s.SampleInfo(pt.PartitionID)
		require.True(t, ok)
		require.Equal(t, 1.0, info.RowSampleRatio)
		require.Equal(t, 1.0, info.TabletSampleRatio)
		require.Equal(t, info.TotalRowCount, info.SampleRowCount)
		require.True(t, info.IsFullScan())
		require.Zero(t, info.MaxSampleTabletNum())
	}
}

func TestSampleTiers(t *testing.T) {
	s := NewPartitionSampler(defaultOptions(t))
	mixed := PartitionTablets{PartitionID: 1, Tablets: []TabletStats{
		{TabletID: 1, PartitionID: 1, RowCount: 20_000_000},
		{TabletID: 2, PartitionID: 1, RowCount: 5_000_000},
		{TabletID: 3, PartitionID: 1, RowCount: 500_000},
		{TabletID: 4, PartitionID: 1, RowCount: 50_000},
	}}
	uniform := uniformPartition(2, 10, 10, 50_000)
	require.NoError(t, s.Sample([]PartitionTablets{mixed, uniform}))

	info, ok := s.SampleInfo(1)
	require.True(t, ok)
	require.False(t, info.IsFullScan())
	for i, tier := range AllTiers {
		require.Equal(t, []int64{int64(i + 1)}, info.TierTabletIDs(tier))
	}
	require.Equal(t, 1.0, info.TabletSampleRatio)
	// high 200,000, medium-high 500,000 capped to 200,000, medium-low 100,000, low 40,000.
	require.Equal(t, int64(540_000), info.SampleRowCount)
	require.Equal(t, int64(25_550_000), info.TotalRowCount)
	require.InDelta(t, 540_000.0/25_550_000.0, info.RowSampleRatio, 1e-12)
	require.Equal(t, 1, info.MaxSampleTabletNum())

	info, ok = s.SampleInfo(2)
	require.True(t, ok)
	require.Equal(t, []int64{10, 11, 12}, info.TierTabletIDs(TierLow))
	require.Empty(t, info.TierTablets(TierHigh))
	require.InDelta(t, 0.3, info.TabletSampleRatio, 1e-12)
	require.Equal(t, int64(120_000), info.SampleRowCount)
	require.Equal(t, int64(500_000), info.TotalRowCount)
	require.InDelta(t, 0.24, info.RowSampleRatio, 1e-12)

	merged := s.MergedSampleInfo()
	require.Equal(t, int64(26_050_000), merged.TotalRowCount)
	// The eleven low tablets keep ceil(11 * 0.3) = 4, heaviest first.
	require.Equal(t, []int64{4, 10, 11, 12}, merged.TierTabletIDs(TierLow))
	require.Equal(t, 4, merged.MaxSampleTabletNum())
	require.InDelta(t, 7.0/14.0, merged.TabletSampleRatio, 1e-12)
}

func TestSampleRowSampleRatioBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	opts := defaultOptions(t)
	opts.SampleRowsLimit = 1000
	s := NewPartitionSampler(opts)
	var partitions []PartitionTablets
	tablet := int64(0)
	for pid := int64(1); pid <= 50; pid++ {
		pt := PartitionTablets{PartitionID: pid}
		for i := rng.Intn(40); i >= 0; i-- {
			tablet++
			pt.Tablets = append(pt.Tablets, TabletStats{TabletID: tablet, PartitionID: pid, RowCount: rng.Int63n(20_000_000)})
		}
		partitions = append(partitions, pt)
	}
	require.NoError(t, s.Sample(partitions))
	for _, pt := range partitions {
		info, _ := s.SampleInfo(pt.PartitionID)
		require.Greater(t, info.RowSampleRatio, 0.0)
		require.LessOrEqual(t, info.RowSampleRatio, 1.0)
		require.LessOrEqual(t, info.SampleRowCount, info.TotalRowCount)

		seen := make(map[int64]struct{})
		for _, tier := range AllTiers {
			for _, ts := range info.TierTablets(tier) {
				require.Equal(t, tier, TierOf(ts.RowCount))
				require.Equal(t, pt.PartitionID, ts.PartitionID)
				_, dup := seen[ts.TabletID]
				require.False(t, dup)
				seen[ts.TabletID] = struct{}{}
			}
		}
	}
}

func TestSampleRejectsMalformedInput(t *testing.T) {
	s := NewPartitionSampler(defaultOptions(t))
	good := uniformPartition(1, 1, 3, 1_000_000)
	require.NoError(t, s.Sample([]PartitionTablets{good}))
	before := s.MergedSampleInfo()

	negative := uniformPartition(2, 10, 2, 10)
	negative.Tablets[1].RowCount = -1
	err := s.Sample([]PartitionTablets{good, negative})
	require.ErrorIs(t, errors.Cause(err), statistics.ErrInvalidRowCount)

	require.Error(t, s.Sample([]PartitionTablets{good, uniformPartition(2, 3, 2, 10)}))
	require.Error(t, s.Sample([]PartitionTablets{good, uniformPartition(1, 10, 2, 10)}))

	// Failed calls leave the previous plans untouched.
	require.Same(t, before, s.MergedSampleInfo())
	_, ok := s.SampleInfo(2)
	require.False(t, ok)
}

func TestNewPartitionTablets(t *testing.T) {
	p := &model.PartitionInfo{ID: 5, Tablets: []model.TabletInfo{{ID: 1, RowCount: 10}, {ID: 2, RowCount: 20}}}
	pt, err := NewPartitionTablets(p)
	require.NoError(t, err)
	require.Equal(t, int64(5), pt.PartitionID)
	require.Equal(t, TabletStats{TabletID: 2, PartitionID: 5, RowCount: 20}, pt.Tablets[1])

	p.Tablets[0].RowCount = -5
	_, err = NewPartitionTablets(p)
	require.ErrorIs(t, errors.Cause(err), statistics.ErrInvalidRowCount)
}

func TestNewSampleInfo(t *testing.T) {
	tiers := map[WeightTier][]TabletStats{
		TierHigh: {{TabletID: 1, RowCount: 10_000_000}},
		TierLow:  {{TabletID: 2, RowCount: 10}, {TabletID: 3, RowCount: 10}},
	}
	info, err := NewSampleInfo(0.5, 100, 1000, tiers)
	require.NoError(t, err)
	require.Equal(t, 0.1, info.RowSampleRatio)
	require.Equal(t, 2, info.MaxSampleTabletNum())
	require.Equal(t, 3, info.SampledTabletNum())
	require.Nil(t, info.TierTablets(WeightTier(-1)))

	_, err = NewSampleInfo(0.5, 0, 1000, nil)
	require.Error(t, err)
	_, err = NewSampleInfo(0.5, 1001, 1000, nil)
	require.Error(t, err)
	_, err = NewSampleInfo(0, 10, 1000, nil)
	require.Error(t, err)
	_, err = NewSampleInfo(0.5, 10, 1000, map[WeightTier][]TabletStats{WeightTier(8): nil})
	require.Error(t, err)
}
