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
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/config"
	"github.com/pingcap/statsplan/pkg/meta/model"
	"github.com/pingcap/statsplan/pkg/statistics"
	"github.com/pingcap/statsplan/pkg/statistics/colstats"
	statslogutil "github.com/pingcap/statsplan/pkg/statistics/handle/logutil"
	"github.com/pingcap/statsplan/pkg/statistics/handle/metrics"
	"github.com/pingcap/statsplan/pkg/statistics/sample"
	"github.com/pingcap/statsplan/pkg/types"
	"github.com/pingcap/statsplan/pkg/util/sqlescape"
	"go.uber.org/zap"
)

// BuilderOptions describes the table a Builder collects statistics of.
type BuilderOptions struct {
	DB    *model.DBInfo
	Table *model.TableInfo
	// Partitions restricts collection to the given partition ids. Empty means
	// every partition.
	Partitions []int64
	// Config supplies the defaults of the job properties. Nil means the
	// built-in defaults.
	Config *config.Config
	// Properties are the job properties.
	Properties map[string]string
}

// Builder builds the query jobs collecting column statistics of one table.
type Builder struct {
	ref        tableRef
	table      *model.TableInfo
	partitions []*model.PartitionInfo
	// partitionHint is empty when every partition is collected.
	partitionHint string
	statsDB       string
	props         map[string]string
	parallelism   int
	sampler       sample.SamplerOptions
}

// NewBuilder validates opts and creates a Builder.
func NewBuilder(opts BuilderOptions) (*Builder, error) {
	if opts.DB == nil || opts.Table == nil {
		return nil, errors.New("collect builder needs a database and a table")
	}
	if err := opts.Table.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	b := &Builder{
		ref: tableRef{
			dbID:      opts.DB.ID,
			tableID:   opts.Table.ID,
			dbName:    opts.DB.Name,
			tableName: opts.Table.Name,
		},
		table:   opts.Table,
		statsDB: cfg.Stats.StatisticsDB,
		props:   opts.Properties,
	}
	if err := b.selectPartitions(opts.Partitions); err != nil {
		return nil, err
	}
	parallelism, err := statistics.PropertyInt64(opts.Properties, statistics.CollectParallelism,
		int64(cfg.Stats.CollectParallelism))
	if err != nil {
		return nil, err
	}
	b.parallelism = int(parallelism)
	if b.sampler, err = sample.NewSamplerOptions(opts.Properties, cfg); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builder) selectPartitions(ids []int64) error {
	if len(ids) == 0 {
		for i := range b.table.Partitions {
			b.partitions = append(b.partitions, &b.table.Partitions[i])
		}
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return errors.Errorf("partition %d is requested twice", id)
		}
		seen[id] = struct{}{}
		p := b.table.FindPartition(id)
		if p == nil {
			return errors.Errorf("partition %d does not exist in table %s", id, b.table.Name)
		}
		b.partitions = append(b.partitions, p)
		names = append(names, sqlescape.QuoteIdentifier(p.Name))
	}
	if len(ids) < len(b.table.Partitions) {
		b.partitionHint = " PARTITION(" + strings.Join(names, ", ") + ")"
	}
	return nil
}

// TableName returns the collected table as db.table.
func (b *Builder) TableName() string {
	return b.ref.dbName + "." + b.ref.tableName
}

// Parallelism returns the configured degree of parallelism.
func (b *Builder) Parallelism() int {
	return b.parallelism
}

// SamplerOptions returns the sampling options read from the job properties.
func (b *Builder) SamplerOptions() sample.SamplerOptions {
	return b.sampler
}

// TotalRowCount returns the row count of the collected partitions.
func (b *Builder) TotalRowCount() int64 {
	var total int64
	for _, p := range b.partitions {
		total += p.RowCount()
	}
	return total
}

// PlanSample computes the sampling plan of the collected partitions.
func (b *Builder) PlanSample() (*sample.SampleInfo, error) {
	partitions := make([]sample.PartitionTablets, 0, len(b.partitions))
	for _, p := range b.partitions {
		pt, err := sample.NewPartitionTablets(p)
		if err != nil {
			return nil, err
		}
		partitions = append(partitions, pt)
	}
	sampler := sample.NewPartitionSampler(b.sampler)
	if err := sampler.Sample(partitions); err != nil {
		return nil, err
	}
	return sampler.MergedSampleInfo(), nil
}

// BuildFullQueryJobs builds the jobs collecting the columns over every row.
// fieldTypes holds the declared type of every name.
func (b *Builder) BuildFullQueryJobs(names []string, fieldTypes []*types.FieldType) ([]QueryJob, error) {
	cls, err := colstats.Classify(names, fieldTypes, b.table, nil, b.props)
	if err != nil {
		return nil, err
	}
	var jobs []QueryJob
	for _, batch := range SplitBatches(cls.PrimitiveStats, b.parallelism) {
		sqls, err := b.buildFullSQL(batch)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, &FullQueryJob{queryJob{columns: batch, sqls: sqls}})
	}
	constJob, err := b.buildConstJob(statistics.ColumnStatisticsTableName, cls.ComplexStats,
		colstats.FullScope("", b.TotalRowCount()))
	if err != nil {
		return nil, err
	}
	if constJob != nil {
		jobs = append(jobs, constJob)
	}
	b.logJobs("full", jobs)
	return jobs, nil
}

// BuildSampleQueryJobs builds the jobs collecting the columns over the rows
// sampled by info.
func (b *Builder) BuildSampleQueryJobs(names []string, fieldTypes []*types.FieldType,
	info *sample.SampleInfo) ([]QueryJob, error) {
	if info == nil {
		return nil, errors.New("sample collect jobs need a sample info")
	}
	cls, err := colstats.Classify(names, fieldTypes, b.table, info, b.props)
	if err != nil {
		return nil, err
	}
	var jobs []QueryJob
	for _, batch := range SplitBatches(cls.PrimitiveStats, b.parallelism) {
		sqls, err := b.buildSampleSQL(batch, info)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, &SampleQueryJob{queryJob: queryJob{columns: batch, sqls: sqls}, info: info})
	}
	constJob, err := b.buildConstJob(statistics.SampleStatisticsTableName, cls.ComplexStats,
		colstats.SampleScope("", "", info))
	if err != nil {
		return nil, err
	}
	if constJob != nil {
		jobs = append(jobs, constJob)
	}
	b.logJobs("sample", jobs, zap.Float64("rowSampleRatio", info.RowSampleRatio),
		zap.Float64("tabletSampleRatio", info.TabletSampleRatio))
	return jobs, nil
}

func (b *Builder) logJobs(mode string, jobs []QueryJob, fields ...zap.Field) {
	var sqlSize int
	for _, job := range jobs {
		for _, sql := range job.BuildQuerySQL() {
			sqlSize += len(sql)
		}
		switch job.Type() {
		case JobTypeConst:
			metrics.ConstCollectJobCounter.Inc()
		case JobTypeFull:
			metrics.FullCollectJobCounter.Inc()
		case JobTypeSample:
			metrics.SampleCollectJobCounter.Inc()
		}
	}
	statslogutil.StatsLogger().Info("built statistics collect jobs",
		append([]zap.Field{
			zap.String("table", b.ref.dbName+"."+b.ref.tableName),
			zap.String("mode", mode),
			zap.Int("jobs", len(jobs)),
			zap.Int("parallelism", b.parallelism),
			zap.String("sql size", units.HumanSize(float64(sqlSize))),
		}, fields...)...)
}

func (b *Builder) buildConstJob(statsTable string, stats []colstats.ColumnStats,
	scope colstats.Scope) (*ConstQueryJob, error) {
	if len(stats) == 0 {
		return nil, nil
	}
	ib := newInsertBuilder(b.statsDB, statsTable)
	for _, c := range stats {
		ib.addValues(b.ref.row(c.ColumnName(), aggregates(c, scope)))
	}
	sqls, err := ib.build()
	if err != nil {
		return nil, err
	}
	return &ConstQueryJob{queryJob{columns: stats, sqls: sqls}}, nil
}

func cteName(i int) string {
	return "cte_" + strconv.Itoa(i)
}

// buildFullSQL computes the aggregates of every column in its own CTE over
// the collected partitions.
func (b *Builder) buildFullSQL(batch []colstats.ColumnStats) ([]string, error) {
	ib := newInsertBuilder(b.statsDB, statistics.ColumnStatisticsTableName)
	refs := aggregateRefs()
	for i, c := range batch {
		scope := colstats.FullScope(c.QuotedColumnName(), b.TotalRowCount())
		aggs := aggregates(c, scope)
		projections := make([]string, 0, numAggColumns)
		for j, agg := range aggs {
			projections = append(projections, agg+" AS "+refs[j])
		}
		body := "SELECT " + strings.Join(projections, ", ") + " FROM " + b.ref.qualified() + b.partitionHint + c.LateralJoin()
		name := cteName(i)
		if err := ib.addCTE(name, body); err != nil {
			return nil, err
		}
		ib.addSelect(b.ref.row(c.ColumnName(), refs), sqlescape.QuoteIdentifier(name))
	}
	return ib.build()
}

const (
	sampleValueColumn = "col"
	sampleKeyColumn   = "column_key"
	sampleCountColumn = "count"
	noHintAlias       = "t_no_hint"
)

// buildSampleSQL reads the sampled values of every column in its own CTE and
// aggregates them grouped by value.
func (b *Builder) buildSampleSQL(batch []colstats.ColumnStats, info *sample.SampleInfo) ([]string, error) {
	ib := newInsertBuilder(b.statsDB, statistics.SampleStatisticsTableName)
	keyRef := "t1." + sqlescape.QuoteIdentifier(sampleKeyColumn)
	countRef := "t1." + sqlescape.QuoteIdentifier(sampleCountColumn)
	for i, c := range batch {
		name := cteName(i)
		if err := ib.addCTE(name, b.sampleSource(c, info)); err != nil {
			return nil, err
		}
		aggs := aggregates(c, colstats.SampleScope(keyRef, countRef, info))
		ib.addSelect(b.ref.row(c.ColumnName(), aggs), groupedSample(name))
	}
	return ib.build()
}

// groupedSample counts the rows of every distinct value read into cte.
func groupedSample(cte string) string {
	key := sqlescape.QuoteIdentifier(sampleKeyColumn)
	inner := "SELECT " + sampleValueColumn + " AS " + key + " FROM " + sqlescape.QuoteIdentifier(cte)
	grouped := "SELECT t0." + key + ", COUNT(1) AS " + sqlescape.QuoteIdentifier(sampleCountColumn) +
		" FROM " + subquery(inner, "AS t0") + " GROUP BY t0." + key
	return subquery(grouped, "AS t1")
}

// sampleSource reads the values of c from the sampled tablets, one sub-query
// per weight tier. Without sampled tablets the collected partitions are read
// up to the row limit.
func (b *Builder) sampleSource(c colstats.ColumnStats, info *sample.SampleInfo) string {
	projection := "SELECT " + c.QuotedColumnName() + " AS " + sampleValueColumn + " FROM " + b.ref.qualified()
	limit := " LIMIT " + strconv.FormatInt(b.sampler.SampleRowsLimit, 10)
	var tiers []string
	for _, tier := range sample.AllTiers {
		ids := info.TierTabletIDs(tier)
		if len(ids) == 0 {
			continue
		}
		hint := sqlescape.MustEscapeSQL(" TABLET(%?)", ids)
		filter := limit
		if b.sampler.UseTableSample {
			hint += fmt.Sprintf(" SAMPLE('percent'='%d')", samplePercent(tier.ReadRatio()))
		} else {
			filter = " WHERE rand() <= " + strconv.FormatFloat(tier.ReadRatio(), 'f', -1, 64) + limit
		}
		tiers = append(tiers, "SELECT * FROM "+subquery(projection+hint+c.LateralJoin()+filter, tier.Alias()))
	}
	if len(tiers) == 0 {
		return "SELECT * FROM " + subquery(projection+b.partitionHint+c.LateralJoin(), noHintAlias) + limit
	}
	return strings.Join(tiers, " UNION ALL ")
}

// samplePercent converts a read ratio to the percent of a SAMPLE hint.
func samplePercent(readRatio float64) int {
	return max(1, min(100, int(readRatio*100)))
}
