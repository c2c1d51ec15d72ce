// Copyright 2017 PingCAP, Inc.
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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggerToFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "planner.log")
	fileCfg := NewFileLogConfig(DefaultLogMaxSize)
	fileCfg.Filename = fileName
	conf := NewLogConfig("warn", DefaultLogFormat, fileCfg, false)
	require.NoError(t, InitLogger(conf))

	BgLogger().Info("this message should not be written")
	BgLogger().Warn("this message should be written", zap.String(LogFieldCategory, "stats"))
	require.NoError(t, BgLogger().Sync())

	content, err := os.ReadFile(fileName)
	require.NoError(t, err)
	require.NotContains(t, string(content), "should not be written")
	require.Contains(t, string(content), "should be written")
	require.Contains(t, string(content), "[category=stats]")
}

func TestContextLogger(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, BgLogger(), Logger(ctx))

	ctx = WithFields(ctx, zap.String(LogFieldCategory, "stats"))
	require.NotEqual(t, BgLogger(), Logger(ctx))

	ctx2 := WithFields(ctx, zap.Int64(LogFieldJob, 7))
	require.NotEqual(t, Logger(ctx), Logger(ctx2))
}
