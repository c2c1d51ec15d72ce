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

package collect

import (
	"fmt"
	"slices"

	"github.com/pingcap/statsplan/pkg/statistics/colstats"
	"github.com/pingcap/statsplan/pkg/statistics/sample"
)

// JobType is the kind of a collect job.
type JobType int

const (
	// JobTypeConst writes literal statistics of complex columns.
	JobTypeConst JobType = iota
	// JobTypeFull aggregates every row of the collected partitions.
	JobTypeFull
	// JobTypeSample aggregates the sampled rows and scales the result.
	JobTypeSample
)

// String implements fmt.Stringer.
func (t JobType) String() string {
	switch t {
	case JobTypeConst:
		return "const"
	case JobTypeFull:
		return "full"
	case JobTypeSample:
		return "sample"
	}
	return fmt.Sprintf("job_type(%d)", int(t))
}

// QueryJob is one independent unit of statistics collection. Jobs of the same
// build share no data and may run concurrently.
type QueryJob interface {
	// Type returns the kind of the job.
	Type() JobType
	// Columns returns the columns the job collects.
	Columns() []colstats.ColumnStats
	// BuildQuerySQL returns the statements of the job, to be run in order.
	BuildQuerySQL() []string
}

type queryJob struct {
	columns []colstats.ColumnStats
	sqls    []string
}

// Columns implements QueryJob.
func (j *queryJob) Columns() []colstats.ColumnStats {
	return j.columns
}

// BuildQuerySQL implements QueryJob.
func (j *queryJob) BuildQuerySQL() []string {
	return slices.Clone(j.sqls)
}

// ConstQueryJob inserts literal rows for columns which are not aggregated.
type ConstQueryJob struct {
	queryJob
}

// Type implements QueryJob.
func (*ConstQueryJob) Type() JobType { return JobTypeConst }

// FullQueryJob aggregates a batch of columns over every row.
type FullQueryJob struct {
	queryJob
}

// Type implements QueryJob.
func (*FullQueryJob) Type() JobType { return JobTypeFull }

// SampleQueryJob aggregates a batch of columns over the sampled tablets.
type SampleQueryJob struct {
	queryJob
	info *sample.SampleInfo
}

// Type implements QueryJob.
func (*SampleQueryJob) Type() JobType { return JobTypeSample }

// SampleInfo returns the sampling plan of the job.
func (j *SampleQueryJob) SampleInfo() *sample.SampleInfo { return j.info }
