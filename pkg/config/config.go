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

package config

import (
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/util/logutil"
	"go.uber.org/zap/zapcore"
)

// Config contains configuration options.
type Config struct {
	Log   Log   `toml:"log" json:"log"`
	Stats Stats `toml:"stats" json:"stats"`
}

// Log is the log section of config.
type Log struct {
	// Log level.
	Level string `toml:"level" json:"level"`
	// Log format. one of json, text, or console.
	Format string `toml:"format" json:"format"`
	// Disable automatic timestamps in output.
	DisableTimestamp bool `toml:"disable-timestamp" json:"disable-timestamp"`
	// File log config.
	File logutil.FileLogConfig `toml:"file" json:"file"`
}

// Stats is the statistics collection section of the config.
// Every item can be overridden per job through job properties.
type Stats struct {
	// SampleCollectRows caps the rows read per sampled column.
	SampleCollectRows int64 `toml:"sample-collect-rows" json:"sample-collect-rows"`
	// EnableUseTableSampleCollectStatistics uses SAMPLE('percent'=...) instead of a rand() filter.
	EnableUseTableSampleCollectStatistics bool `toml:"enable-use-table-sample-collect-statistics" json:"enable-use-table-sample-collect-statistics"`
	// CollectParallelism is the number of batches a collect job is split into.
	CollectParallelism int `toml:"collect-parallelism" json:"collect-parallelism"`

	HighWeightSampleRatio       float64 `toml:"high-weight-sample-ratio" json:"high-weight-sample-ratio"`
	MediumHighWeightSampleRatio float64 `toml:"medium-high-weight-sample-ratio" json:"medium-high-weight-sample-ratio"`
	MediumLowWeightSampleRatio  float64 `toml:"medium-low-weight-sample-ratio" json:"medium-low-weight-sample-ratio"`
	LowWeightSampleRatio        float64 `toml:"low-weight-sample-ratio" json:"low-weight-sample-ratio"`
	// MaxSampleTabletNum caps the tablets sampled per weight tier.
	MaxSampleTabletNum int `toml:"max-sample-tablet-num" json:"max-sample-tablet-num"`
	// StatisticsDB is the database the statistics tables live in.
	StatisticsDB string `toml:"statistics-db" json:"statistics-db"`
}

var defaultConf = Config{
	Log: Log{
		Level:  "info",
		Format: logutil.DefaultLogFormat,
		File:   logutil.NewFileLogConfig(logutil.DefaultLogMaxSize),
	},
	Stats: Stats{
		SampleCollectRows:                     200000,
		EnableUseTableSampleCollectStatistics: false,
		CollectParallelism:                    1,
		HighWeightSampleRatio:                 0.5,
		MediumHighWeightSampleRatio:           0.45,
		MediumLowWeightSampleRatio:            0.35,
		LowWeightSampleRatio:                  0.3,
		MaxSampleTabletNum:                    5000,
		StatisticsDB:                          "_statistics_",
	},
}

var globalConf atomic.Pointer[Config]

func init() {
	conf := defaultConf
	StoreGlobalConfig(&conf)
}

// NewConfig creates a new config instance with default value.
func NewConfig() *Config {
	conf := defaultConf
	return &conf
}

// GetGlobalConfig returns the global configuration for this process.
// It should store configuration from command line and configuration file.
// Library code reads it only when no *Config is passed in.
func GetGlobalConfig() *Config {
	return globalConf.Load()
}

// StoreGlobalConfig stores a new config to the globalConf. It mostly uses in the test to avoid some data races.
func StoreGlobalConfig(config *Config) {
	globalConf.Store(config)
}

// Load loads config options from a toml file.
func (c *Config) Load(confFile string) error {
	metaData, err := toml.DecodeFile(confFile, c)
	if err != nil {
		return errors.Trace(err)
	}
	if undecoded := metaData.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, item := range undecoded {
			keys = append(keys, item.String())
		}
		return errors.Errorf("config file %s contained unknown configuration options: %v", confFile, keys)
	}
	return nil
}

// Valid checks if this config is valid.
func (c *Config) Valid() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Errorf("invalid log level %q", c.Log.Level)
	}
	s := &c.Stats
	ratios := map[string]float64{
		"high-weight-sample-ratio":        s.HighWeightSampleRatio,
		"medium-high-weight-sample-ratio": s.MediumHighWeightSampleRatio,
		"medium-low-weight-sample-ratio":  s.MediumLowWeightSampleRatio,
		"low-weight-sample-ratio":         s.LowWeightSampleRatio,
	}
	for name, ratio := range ratios {
		if !(ratio > 0 && ratio <= 1) {
			return errors.Errorf("stats.%s should be in (0, 1], got %v", name, ratio)
		}
	}
	if s.MaxSampleTabletNum <= 0 {
		return errors.Errorf("stats.max-sample-tablet-num should be positive, got %d", s.MaxSampleTabletNum)
	}
	if s.SampleCollectRows <= 0 {
		return errors.Errorf("stats.sample-collect-rows should be positive, got %d", s.SampleCollectRows)
	}
	if s.CollectParallelism <= 0 {
		return errors.Errorf("stats.collect-parallelism should be positive, got %d", s.CollectParallelism)
	}
	if s.StatisticsDB == "" {
		return errors.New("stats.statistics-db should not be empty")
	}
	return nil
}

// ToLogConfig converts *Log to *logutil.LogConfig.
func (l *Log) ToLogConfig() *logutil.LogConfig {
	return logutil.NewLogConfig(l.Level, l.Format, l.File, l.DisableTimestamp)
}
