// Copyright 2018 PingCAP, Inc.
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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stats metrics.
var (
	StatsCollectJobCounter     *prometheus.CounterVec
	StatsColumnClassifyCounter *prometheus.CounterVec
	StatsSampleRatioHistogram  prometheus.Histogram
	StatsCollectDuration       *prometheus.HistogramVec
)

// InitStatsMetrics initializes stats metrics.
func InitStatsMetrics() {
	StatsCollectJobCounter = NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statsplan",
			Subsystem: "statistics",
			Name:      "collect_job_total",
			Help:      "Counter of planned statistics collect jobs.",
		}, []string{LblType})

	StatsColumnClassifyCounter = NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statsplan",
			Subsystem: "statistics",
			Name:      "column_classify_total",
			Help:      "Counter of requested columns by the statistics shape they were classified into.",
		}, []string{LblType})

	StatsSampleRatioHistogram = NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "statsplan",
			Subsystem: "statistics",
			Name:      "sample_row_ratio",
			Help:      "Bucketed histogram of the row sample ratio of sampled partitions.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.0001 ~ 1.6
		})

	StatsCollectDuration = NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "statsplan",
			Subsystem: "statistics",
			Name:      "collect_job_duration_seconds",
			Help:      "Bucketed histogram of execution time (s) of statistics collect jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 20), // 10ms ~ 1.5h
		}, []string{LblResult})
}
