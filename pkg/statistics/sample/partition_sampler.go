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
	"github.com/pingcap/statsplan/pkg/config"
	"github.com/pingcap/statsplan/pkg/meta/model"
	"github.com/pingcap/statsplan/pkg/statistics"
	statslogutil "github.com/pingcap/statsplan/pkg/statistics/handle/logutil"
	"github.com/pingcap/statsplan/pkg/statistics/handle/metrics"
	"go.uber.org/zap"
)

// SamplerOptions controls how many tablets and rows a sampled collect job reads.
type SamplerOptions struct {
	// TabletSampleRatios is the fraction of tablets kept per tier.
	TabletSampleRatios [numTiers]float64
	// MaxSampleTabletNum caps the tablets kept per tier.
	MaxSampleTabletNum int
	// SampleRowsLimit caps the rows read per tier sub-query.
	SampleRowsLimit int64
	// UseTableSample renders native SAMPLE hints instead of a rand() filter.
	UseTableSample bool
}

// NewSamplerOptions reads the sampler options from the job properties, falling
// back to cfg for the ones which are absent.
func NewSamplerOptions(props map[string]string, cfg *config.Config) (SamplerOptions, error) {
	stats := &cfg.Stats
	opts := SamplerOptions{UseTableSample: statistics.PropertyBool(props,
		statistics.EnableUseTableSampleCollectStatistics, stats.EnableUseTableSampleCollectStatistics)}
	ratioKeys := [numTiers]struct {
		key string
		def float64
	}{
		TierHigh:       {statistics.HighWeightSampleRatio, stats.HighWeightSampleRatio},
		TierMediumHigh: {statistics.MediumHighWeightSampleRatio, stats.MediumHighWeightSampleRatio},
		TierMediumLow:  {statistics.MediumLowWeightSampleRatio, stats.MediumLowWeightSampleRatio},
		TierLow:        {statistics.LowWeightSampleRatio, stats.LowWeightSampleRatio},
	}
	for tier, rk := range ratioKeys {
		ratio, err := statistics.PropertyFloat64(props, rk.key, rk.def)
		if err != nil {
			return SamplerOptions{}, err
		}
		if !(ratio > 0 && ratio <= 1) {
			return SamplerOptions{}, errors.Annotatef(statistics.ErrInvalidProperty, "%s=%v out of (0, 1]", rk.key, ratio)
		}
		opts.TabletSampleRatios[tier] = ratio
	}
	maxTablets, err := statistics.PropertyInt64(props, statistics.MaxSampleTabletNum, int64(stats.MaxSampleTabletNum))
	if err != nil {
		return SamplerOptions{}, err
	}
	if maxTablets <= 0 {
		return SamplerOptions{}, errors.Annotatef(statistics.ErrInvalidProperty, "%s=%d should be positive",
			statistics.MaxSampleTabletNum, maxTablets)
	}
	opts.MaxSampleTabletNum = int(maxTablets)
	opts.SampleRowsLimit, err = statistics.PropertyInt64(props, statistics.SampleCollectRows, stats.SampleCollectRows)
	if err != nil {
		return SamplerOptions{}, err
	}
	if opts.SampleRowsLimit <= 0 {
		return SamplerOptions{}, errors.Annotatef(statistics.ErrInvalidProperty, "%s=%d should be positive",
			statistics.SampleCollectRows, opts.SampleRowsLimit)
	}
	return opts, nil
}

// PartitionTablets are the tablets of one partition.
type PartitionTablets struct {
	PartitionID int64
	Tablets     []TabletStats
}

// NewPartitionTablets converts the metastore view of a partition.
func NewPartitionTablets(p *model.PartitionInfo) (PartitionTablets, error) {
	pt := PartitionTablets{PartitionID: p.ID, Tablets: make([]TabletStats, 0, len(p.Tablets))}
	for _, tablet := range p.Tablets {
		ts, err := NewTabletStats(tablet.ID, p.ID, tablet.RowCount)
		if err != nil {
			return PartitionTablets{}, err
		}
		pt.Tablets = append(pt.Tablets, ts)
	}
	return pt, nil
}

// PartitionSampler computes a SampleInfo per partition and one for the
// partitions together.
type PartitionSampler struct {
	opts SamplerOptions

	infos  map[int64]*SampleInfo
	merged *SampleInfo
}

// NewPartitionSampler creates a PartitionSampler.
func NewPartitionSampler(opts SamplerOptions) *PartitionSampler {
	return &PartitionSampler{opts: opts}
}

// Sample computes the sampling plans of partitions. Previous results are
// replaced only when every partition is valid.
func (s *PartitionSampler) Sample(partitions []PartitionTablets) error {
	seenPartitions := make(map[int64]struct{}, len(partitions))
	seenTablets := make(map[int64]int64)
	var all []TabletStats
	for _, p := range partitions {
		if _, dup := seenPartitions[p.PartitionID]; dup {
			return errors.Errorf("duplicate partition %d", p.PartitionID)
		}
		seenPartitions[p.PartitionID] = struct{}{}
		for _, ts := range p.Tablets {
			if ts.RowCount < 0 {
				return errors.Annotatef(statistics.ErrInvalidRowCount,
					"tablet %d of partition %d reports %d rows", ts.TabletID, p.PartitionID, ts.RowCount)
			}
			if other, dup := seenTablets[ts.TabletID]; dup {
				return errors.Errorf("tablet %d appears in partition %d and %d", ts.TabletID, other, p.PartitionID)
			}
			seenTablets[ts.TabletID] = p.PartitionID
		}
		all = append(all, p.Tablets...)
	}

	infos := make(map[int64]*SampleInfo, len(partitions))
	for _, p := range partitions {
		info, err := s.sampleTablets(p.Tablets)
		if err != nil {
			return errors.Trace(err)
		}
		statslogutil.StatsLogger().Debug("partition sample plan",
			zap.Int64("partitionID", p.PartitionID),
			zap.Int("tablets", len(p.Tablets)),
			zap.Int("sampledTablets", info.SampledTabletNum()),
			zap.Int64("totalRows", info.TotalRowCount),
			zap.Int64("sampleRows", info.SampleRowCount),
			zap.Float64("rowSampleRatio", info.RowSampleRatio))
		infos[p.PartitionID] = info
	}
	merged, err := s.sampleTablets(all)
	if err != nil {
		return errors.Trace(err)
	}
	metrics.SampleRowRatioHistogram.Observe(merged.RowSampleRatio)
	s.infos, s.merged = infos, merged
	return nil
}

// SampleInfo returns the plan of a partition computed by the last Sample call.
func (s *PartitionSampler) SampleInfo(partitionID int64) (*SampleInfo, bool) {
	info, ok := s.infos[partitionID]
	return info, ok
}

// MergedSampleInfo returns the plan of all partitions sampled as one scope.
// It is the default plan before Sample is called.
func (s *PartitionSampler) MergedSampleInfo() *SampleInfo {
	if s.merged == nil {
		return NewDefaultSampleInfo()
	}
	return s.merged
}

func (s *PartitionSampler) sampleTablets(tablets []TabletStats) (*SampleInfo, error) {
	var totalRows int64
	for _, ts := range tablets {
		totalRows += ts.RowCount
	}
	if totalRows == 0 {
		return NewDefaultSampleInfo(), nil
	}
	if totalRows <= s.opts.SampleRowsLimit {
		return newFullScanSampleInfo(totalRows), nil
	}

	samplers := make(map[WeightTier]*TabletSampler, numTiers)
	for _, tier := range AllTiers {
		samplers[tier] = NewTabletSampler(tier, s.opts.TabletSampleRatios[tier], s.opts.MaxSampleTabletNum)
	}
	for tier, members := range Classify(tablets) {
		for _, ts := range members {
			samplers[tier].AddTabletStats(ts)
		}
	}

	sampledTiers := make(map[WeightTier][]TabletStats, numTiers)
	var sampleRows int64
	sampledTablets := 0
	for _, tier := range AllTiers {
		sampled := samplers[tier].Sample()
		if len(sampled) == 0 {
			continue
		}
		sampledTiers[tier] = sampled
		sampledTablets += len(sampled)
		// Every tier sub-query is capped by the same LIMIT.
		sampleRows += min(samplers[tier].SampleRows(sampled), s.opts.SampleRowsLimit)
	}
	sampleRows = min(max(sampleRows, 1), totalRows)
	tabletRatio := float64(sampledTablets) / float64(len(tablets))
	return NewSampleInfo(tabletRatio, sampleRows, totalRows, sampledTiers)
}
