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

package logutil

import (
	"context"
	"fmt"

	"github.com/pingcap/statsplan/pkg/util/logutil"
	"go.uber.org/zap"
)

const category = "stats"

// StatsLogger with category "stats" is used to log statistic related messages.
// Do not use it to log the message that is not related to statistics.
func StatsLogger() *zap.Logger {
	return logutil.BgLogger().With(zap.String(logutil.LogFieldCategory, category))
}

// StatsLoggerWithContext is like StatsLogger but keeps the fields attached to ctx.
func StatsLoggerWithContext(ctx context.Context) *zap.Logger {
	return logutil.Logger(ctx).With(zap.String(logutil.LogFieldCategory, category))
}

// StatsJobLogger returns the logger of the i-th collect job.
func StatsJobLogger(ctx context.Context, i int, tp fmt.Stringer) *zap.Logger {
	return StatsLoggerWithContext(ctx).With(zap.Int(logutil.LogFieldJob, i), zap.Stringer("type", tp))
}
