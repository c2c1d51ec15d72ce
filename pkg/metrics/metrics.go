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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics labels.
const (
	LblType   = "type"
	LblResult = "result"
	LblOK     = "ok"
	LblError  = "error"
)

var registerOnce sync.Once

func init() {
	InitMetrics()
}

// InitMetrics is used to initialize metrics.
func InitMetrics() {
	InitStatsMetrics()
}

// RegisterMetrics registers the metrics which are ONLY used by the planner.
// It is safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(StatsCollectJobCounter)
		prometheus.MustRegister(StatsColumnClassifyCounter)
		prometheus.MustRegister(StatsSampleRatioHistogram)
		prometheus.MustRegister(StatsCollectDuration)
	})
}

// NewCounterVec creates a new CounterVec.
func NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(opts, labelNames)
}

// NewHistogram creates a new Histogram.
func NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	return prometheus.NewHistogram(opts)
}

// NewHistogramVec creates a new HistogramVec.
func NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(opts, labelNames)
}
