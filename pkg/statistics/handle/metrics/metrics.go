// Copyright 2023 PingCAP, Inc.
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
	"github.com/pingcap/statsplan/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// statistics metrics vars
var (
	FullCollectJobCounter   prometheus.Counter
	SampleCollectJobCounter prometheus.Counter
	ConstCollectJobCounter  prometheus.Counter

	PrimitiveColumnCounter    prometheus.Counter
	ComplexColumnCounter      prometheus.Counter
	DistributionColumnCounter prometheus.Counter
	SubFieldColumnCounter     prometheus.Counter
	VirtualColumnCounter      prometheus.Counter
	SkippedColumnCounter      prometheus.Counter

	SampleRowRatioHistogram   prometheus.Observer
	CollectJobSuccessDuration prometheus.Observer
	CollectJobFailedDuration  prometheus.Observer
)

func init() {
	InitMetricsVars()
}

// InitMetricsVars init statistics metrics vars.
func InitMetricsVars() {
	FullCollectJobCounter = metrics.StatsCollectJobCounter.WithLabelValues("full")
	SampleCollectJobCounter = metrics.StatsCollectJobCounter.WithLabelValues("sample")
	ConstCollectJobCounter = metrics.StatsCollectJobCounter.WithLabelValues("const")

	PrimitiveColumnCounter = metrics.StatsColumnClassifyCounter.WithLabelValues("primitive")
	ComplexColumnCounter = metrics.StatsColumnClassifyCounter.WithLabelValues("complex")
	DistributionColumnCounter = metrics.StatsColumnClassifyCounter.WithLabelValues("distribution")
	SubFieldColumnCounter = metrics.StatsColumnClassifyCounter.WithLabelValues("subfield")
	VirtualColumnCounter = metrics.StatsColumnClassifyCounter.WithLabelValues("virtual")
	SkippedColumnCounter = metrics.StatsColumnClassifyCounter.WithLabelValues("skipped")

	SampleRowRatioHistogram = metrics.StatsSampleRatioHistogram
	CollectJobSuccessDuration = metrics.StatsCollectDuration.WithLabelValues(metrics.LblOK)
	CollectJobFailedDuration = metrics.StatsCollectDuration.WithLabelValues(metrics.LblError)
}
