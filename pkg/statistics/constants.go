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

package statistics

import (
	"strconv"
	"strings"

	"github.com/pingcap/errors"
)

// Statistics storage names.
const (
	// StatisticsDBName is the database holding the statistics tables.
	StatisticsDBName = "_statistics_"
	// ColumnStatisticsTableName stores one row per collected column.
	ColumnStatisticsTableName = "column_statistics"
	// SampleStatisticsTableName stores sampled column statistics.
	SampleStatisticsTableName = "sample_statistics"
)

// Collect job property keys.
const (
	// UnnestVirtualStatistics enables the array element distribution statistic.
	UnnestVirtualStatistics = "unnest_virtual_statistics"
	// CollectParallelism is the number of batches a job is split into.
	CollectParallelism = "statistic_collect_parallelism"
	// HighWeightSampleRatio is the tablet sample ratio of the high weight tier.
	HighWeightSampleRatio = "high_weight_sample_ratio"
	// MediumHighWeightSampleRatio is the tablet sample ratio of the medium-high weight tier.
	MediumHighWeightSampleRatio = "medium_high_weight_sample_ratio"
	// MediumLowWeightSampleRatio is the tablet sample ratio of the medium-low weight tier.
	MediumLowWeightSampleRatio = "medium_low_weight_sample_ratio"
	// LowWeightSampleRatio is the tablet sample ratio of the low weight tier.
	LowWeightSampleRatio = "low_weight_sample_ratio"
	// MaxSampleTabletNum caps the tablets sampled per tier.
	MaxSampleTabletNum = "max_sample_tablet_num"
	// SampleCollectRows caps the rows read per sampled column.
	SampleCollectRows = "statistic_sample_collect_rows"
	// EnableUseTableSampleCollectStatistics switches the sampled row filter to native table sampling.
	EnableUseTableSampleCollectStatistics = "enable_use_table_sample_collect_statistics"
)

var (
	// ErrInvalidProperty is returned when a job property can not be parsed.
	ErrInvalidProperty = errors.New("invalid statistics job property")
	// ErrInvalidRowCount is returned when the metastore reports a negative row count.
	ErrInvalidRowCount = errors.New("invalid tablet row count")
)

// PropertyOn reports whether a property value means enabled.
// "true", "on" and "1" are accepted case-insensitively.
func PropertyOn(opt string) bool {
	return strings.EqualFold(opt, "ON") || strings.EqualFold(opt, "TRUE") || opt == "1"
}

// PropertyInt64 reads an integer property, returning defaultVal when it is absent.
func PropertyInt64(props map[string]string, key string, defaultVal int64) (int64, error) {
	raw, ok := props[key]
	if !ok {
		return defaultVal, nil
	}
	val, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.Annotatef(ErrInvalidProperty, "%s=%q", key, raw)
	}
	return val, nil
}

// PropertyFloat64 reads a float property, returning defaultVal when it is absent.
func PropertyFloat64(props map[string]string, key string, defaultVal float64) (float64, error) {
	raw, ok := props[key]
	if !ok {
		return defaultVal, nil
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, errors.Annotatef(ErrInvalidProperty, "%s=%q", key, raw)
	}
	return val, nil
}

// PropertyBool reads a boolean property, returning defaultVal when it is absent.
func PropertyBool(props map[string]string, key string, defaultVal bool) bool {
	raw, ok := props[key]
	if !ok {
		return defaultVal
	}
	return PropertyOn(strings.TrimSpace(raw))
}
