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

package main

import (
	"database/sql"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-sql-driver/mysql"
	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/config"
	"github.com/pingcap/statsplan/pkg/meta/model"
	"github.com/pingcap/statsplan/pkg/statistics/collect"
	"github.com/pingcap/statsplan/pkg/statistics/handle/exec"
	"github.com/pingcap/statsplan/pkg/types"
	"github.com/pingcap/statsplan/pkg/util/logutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	flagConfig      = "config"
	flagLogLevel    = "log-level"
	flagTable       = "table"
	flagColumns     = "columns"
	flagPartitions  = "partitions"
	flagSample      = "sample"
	flagProperty    = "property"
	flagDSN         = "dsn"
	flagConcurrency = "concurrency"
)

// tableFile is the description of the collected table.
type tableFile struct {
	DB    model.DBInfo    `toml:"db"`
	Table model.TableInfo `toml:"table"`
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stats-planner",
		Short:         "stats-planner builds the SQL collecting column statistics of a table.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String(flagConfig, "", "Path of the config file")
	rootCmd.PersistentFlags().StringP(flagLogLevel, "L", "", "Override the log level of the config file")
	rootCmd.AddCommand(newPlanCommand(), newRunCommand())
	return rootCmd
}

func defineJobFlags(flags *pflag.FlagSet) {
	flags.String(flagTable, "", "Path of the TOML description of the database and the table")
	flags.StringArray(flagColumns, nil,
		"Column to collect, as name or name:type for struct fields. Repeatable. Default is every column")
	flags.StringSlice(flagPartitions, nil, "Names of the partitions to collect. Default is every partition")
	flags.Bool(flagSample, false, "Collect on sampled tablets instead of every row")
	flags.StringToString(flagProperty, nil, "Job property as key=value")
}

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the statements of the collect jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, b, err := planJobs(cmd)
			if err != nil {
				return err
			}
			ctx := logutil.WithFields(cmd.Context(), zap.String("table", b.TableName()))
			return exec.RunJobs(ctx, exec.NewWriterExecutor(cmd.OutOrStdout()), jobs, 1)
		},
	}
	defineJobFlags(cmd.Flags())
	return cmd
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the collect jobs against a MySQL protocol endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			jobs, b, err := planJobs(cmd)
			if err != nil {
				return err
			}
			dsn, err := cmd.Flags().GetString(flagDSN)
			if err != nil {
				return errors.Trace(err)
			}
			concurrency, err := cmd.Flags().GetInt(flagConcurrency)
			if err != nil {
				return errors.Trace(err)
			}
			if concurrency <= 0 {
				concurrency = b.Parallelism()
			}
			db, err := openDB(dsn)
			if err != nil {
				return err
			}
			defer func() {
				err = multierr.Combine(err, errors.Annotate(db.Close(), "close database"))
			}()
			if err := db.PingContext(cmd.Context()); err != nil {
				return errors.Annotate(err, "connect to statistics endpoint")
			}
			ctx := logutil.WithFields(cmd.Context(), zap.String("table", b.TableName()))
			return exec.RunJobs(ctx, exec.NewDBExecutor(db), jobs, concurrency)
		},
	}
	defineJobFlags(cmd.Flags())
	cmd.Flags().String(flagDSN, "", "MySQL data source name, e.g. root:@tcp(127.0.0.1:9030)/")
	cmd.Flags().Int(flagConcurrency, 0, "Number of jobs run at a time. Default is the collect parallelism")
	_ = cmd.MarkFlagRequired(flagDSN)
	return cmd
}

func openDB(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Annotate(err, "parse dsn")
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	logutil.BgLogger().Info("connect to statistics endpoint",
		zap.String("addr", cfg.Addr), zap.String("user", cfg.User))
	return sql.OpenDB(connector), nil
}

// initConfig loads the config file, initializes the logger and stores the
// config as the global one.
func initConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if path != "" {
		if err := cfg.Load(path); err != nil {
			return nil, err
		}
	}
	level, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	if err := logutil.InitLogger(cfg.Log.ToLogConfig()); err != nil {
		return nil, err
	}
	config.StoreGlobalConfig(cfg)
	return cfg, nil
}

func loadTableFile(path string) (*tableFile, error) {
	if path == "" {
		return nil, errors.Errorf("--%s is required", flagTable)
	}
	var tf tableFile
	meta, err := toml.DecodeFile(path, &tf)
	if err != nil {
		return nil, errors.Annotatef(err, "decode table file %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("table file %s contains unknown keys: %v", path, undecoded)
	}
	return &tf, nil
}

// parseColumns resolves the requested columns and their declared types.
func parseColumns(tbl *model.TableInfo, specs []string) ([]string, []*types.FieldType, error) {
	if len(specs) == 0 {
		names := make([]string, 0, len(tbl.Columns))
		fieldTypes := make([]*types.FieldType, 0, len(tbl.Columns))
		for _, col := range tbl.Columns {
			names = append(names, col.Name)
			fieldTypes = append(fieldTypes, col.FieldType)
		}
		return names, fieldTypes, nil
	}
	names := make([]string, 0, len(specs))
	fieldTypes := make([]*types.FieldType, 0, len(specs))
	for _, spec := range specs {
		name, typeStr, hasType := strings.Cut(spec, ":")
		name = strings.TrimSpace(name)
		var tp *types.FieldType
		switch {
		case hasType:
			ft, err := types.ParseFieldType(typeStr)
			if err != nil {
				return nil, nil, err
			}
			tp = ft
		case tbl.FindColumn(name) != nil:
			tp = tbl.FindColumn(name).FieldType
		default:
			return nil, nil, errors.Errorf("column %s is not a column of %s, write it as name:type", name, tbl.Name)
		}
		names = append(names, name)
		fieldTypes = append(fieldTypes, tp)
	}
	return names, fieldTypes, nil
}

func partitionIDs(tbl *model.TableInfo, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		p := tbl.FindPartitionByName(name)
		if p == nil {
			return nil, errors.Errorf("partition %s does not exist in table %s", name, tbl.Name)
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// planJobs builds the collect jobs described by the flags of cmd.
func planJobs(cmd *cobra.Command) ([]collect.QueryJob, *collect.Builder, error) {
	cfg, err := initConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	flags := cmd.Flags()
	tablePath, err := flags.GetString(flagTable)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	tf, err := loadTableFile(tablePath)
	if err != nil {
		return nil, nil, err
	}
	columnSpecs, err := flags.GetStringArray(flagColumns)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	names, fieldTypes, err := parseColumns(&tf.Table, columnSpecs)
	if err != nil {
		return nil, nil, err
	}
	partitionNames, err := flags.GetStringSlice(flagPartitions)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	pids, err := partitionIDs(&tf.Table, partitionNames)
	if err != nil {
		return nil, nil, err
	}
	props, err := flags.GetStringToString(flagProperty)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	sampled, err := flags.GetBool(flagSample)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	b, err := collect.NewBuilder(collect.BuilderOptions{
		DB:         &tf.DB,
		Table:      &tf.Table,
		Partitions: pids,
		Config:     cfg,
		Properties: props,
	})
	if err != nil {
		return nil, nil, err
	}
	var jobs []collect.QueryJob
	if sampled {
		info, err := b.PlanSample()
		if err != nil {
			return nil, nil, err
		}
		jobs, err = b.BuildSampleQueryJobs(names, fieldTypes, info)
		if err != nil {
			return nil, nil, err
		}
	} else {
		jobs, err = b.BuildFullQueryJobs(names, fieldTypes)
		if err != nil {
			return nil, nil, err
		}
	}
	return jobs, b, nil
}
