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

package exec

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/statistics/collect"
	statslogutil "github.com/pingcap/statsplan/pkg/statistics/handle/logutil"
	"github.com/pingcap/statsplan/pkg/statistics/handle/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Executor runs the statements of collect jobs.
type Executor interface {
	// ExecSQL runs one statement. The result set, if any, is discarded.
	ExecSQL(ctx context.Context, sql string) error
}

// DBExecutor runs statements through a database/sql connection pool.
type DBExecutor struct {
	db *sql.DB
}

// NewDBExecutor creates a DBExecutor.
func NewDBExecutor(db *sql.DB) *DBExecutor {
	return &DBExecutor{db: db}
}

// ExecSQL implements Executor.
func (e *DBExecutor) ExecSQL(ctx context.Context, sql string) error {
	_, err := e.db.ExecContext(ctx, sql)
	return errors.Trace(err)
}

// WriterExecutor writes the statements to w instead of running them.
type WriterExecutor struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterExecutor creates a WriterExecutor.
func NewWriterExecutor(w io.Writer) *WriterExecutor {
	return &WriterExecutor{w: w}
}

// ExecSQL implements Executor.
func (e *WriterExecutor) ExecSQL(_ context.Context, sql string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := fmt.Fprintf(e.w, "%s;\n", sql)
	return errors.Trace(err)
}

// RunJobs runs jobs with at most concurrency of them at a time. The
// statements of one job run in order. The first failure cancels the jobs
// which have not finished and is returned.
func RunJobs(ctx context.Context, exec Executor, jobs []collect.QueryJob, concurrency int) error {
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(max(concurrency, 1))
	for i, job := range jobs {
		i, job := i, job
		eg.Go(func() error {
			start := time.Now()
			err := runJob(ectx, exec, job)
			dur := time.Since(start)
			logger := statslogutil.StatsJobLogger(ctx, i, job.Type())
			if err != nil {
				metrics.CollectJobFailedDuration.Observe(dur.Seconds())
				logger.Warn("statistics collect job failed",
					zap.Duration("duration", dur),
					zap.Error(err))
				return errors.Annotatef(err, "collect job %d (%s)", i, job.Type())
			}
			metrics.CollectJobSuccessDuration.Observe(dur.Seconds())
			logger.Info("statistics collect job finished",
				zap.Int("columns", len(job.Columns())),
				zap.Duration("duration", dur))
			return nil
		})
	}
	return eg.Wait()
}

func runJob(ctx context.Context, exec Executor, job collect.QueryJob) error {
	for _, sql := range job.BuildQuerySQL() {
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}
		statslogutil.StatsLoggerWithContext(ctx).Debug("exec statistics collect sql", zap.String("sql", sql))
		if err := exec.ExecSQL(ctx, sql); err != nil {
			return err
		}
	}
	return nil
}
