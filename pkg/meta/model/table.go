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

package model

import (
	"strings"

	"github.com/pingcap/errors"
	"github.com/pingcap/statsplan/pkg/types"
)

// DBInfo provides meta data describing a database.
type DBInfo struct {
	ID   int64  `toml:"id" json:"id"`
	Name string `toml:"name" json:"name"`
}

// ColumnInfo provides meta data describing a table column.
type ColumnInfo struct {
	ID        int64            `toml:"id" json:"id"`
	Name      string           `toml:"name" json:"name"`
	FieldType *types.FieldType `toml:"type" json:"type"`
}

// TabletInfo is the storage-layer shard of a partition as reported by the metastore.
type TabletInfo struct {
	ID       int64 `toml:"id" json:"id"`
	RowCount int64 `toml:"row_count" json:"row_count"`
	DataSize int64 `toml:"data_size" json:"data_size"`
}

// PartitionInfo provides meta data describing a physical partition.
type PartitionInfo struct {
	ID      int64        `toml:"id" json:"id"`
	Name    string       `toml:"name" json:"name"`
	Tablets []TabletInfo `toml:"tablets" json:"tablets"`
}

// RowCount returns the sum of the tablet row counts.
func (p *PartitionInfo) RowCount() int64 {
	var total int64
	for _, t := range p.Tablets {
		total += t.RowCount
	}
	return total
}

// TableInfo provides meta data describing a table.
type TableInfo struct {
	ID      int64         `toml:"id" json:"id"`
	Name    string        `toml:"name" json:"name"`
	Columns []*ColumnInfo `toml:"columns" json:"columns"`
	// DistributionKeys are the columns the table is hash-distributed on.
	DistributionKeys []string        `toml:"distribution_keys" json:"distribution_keys"`
	Partitions       []PartitionInfo `toml:"partitions" json:"partitions"`
}

// FindColumn finds a top-level column by name, case-insensitively.
func (t *TableInfo) FindColumn(name string) *ColumnInfo {
	for _, col := range t.Columns {
		if strings.EqualFold(col.Name, name) {
			return col
		}
	}
	return nil
}

// SoleDistributionColumn returns the distribution key when the table is
// distributed on exactly one column.
func (t *TableInfo) SoleDistributionColumn() (*ColumnInfo, bool) {
	if len(t.DistributionKeys) != 1 {
		return nil, false
	}
	col := t.FindColumn(t.DistributionKeys[0])
	return col, col != nil
}

// FindPartition finds a partition by id.
func (t *TableInfo) FindPartition(id int64) *PartitionInfo {
	for i := range t.Partitions {
		if t.Partitions[i].ID == id {
			return &t.Partitions[i]
		}
	}
	return nil
}

// FindPartitionByName finds a partition by name, case-insensitively.
func (t *TableInfo) FindPartitionByName(name string) *PartitionInfo {
	for i := range t.Partitions {
		if strings.EqualFold(t.Partitions[i].Name, name) {
			return &t.Partitions[i]
		}
	}
	return nil
}

// PartitionIDs returns the ids of all partitions in declaration order.
func (t *TableInfo) PartitionIDs() []int64 {
	ids := make([]int64, 0, len(t.Partitions))
	for _, p := range t.Partitions {
		ids = append(ids, p.ID)
	}
	return ids
}

// Validate checks the table description is self-consistent.
func (t *TableInfo) Validate() error {
	if t.Name == "" {
		return errors.New("table name is empty")
	}
	names := make(map[string]struct{}, len(t.Columns))
	for _, col := range t.Columns {
		if col.Name == "" {
			return errors.Errorf("table %s has a column without name", t.Name)
		}
		if col.FieldType == nil {
			return errors.Errorf("column %s.%s has no type", t.Name, col.Name)
		}
		lower := strings.ToLower(col.Name)
		if _, dup := names[lower]; dup {
			return errors.Errorf("duplicate column %s in table %s", col.Name, t.Name)
		}
		names[lower] = struct{}{}
	}
	for _, key := range t.DistributionKeys {
		if t.FindColumn(key) == nil {
			return errors.Errorf("distribution key %s is not a column of table %s", key, t.Name)
		}
	}
	partitions := make(map[int64]struct{}, len(t.Partitions))
	tablets := make(map[int64]struct{})
	for _, p := range t.Partitions {
		if _, dup := partitions[p.ID]; dup {
			return errors.Errorf("duplicate partition id %d in table %s", p.ID, t.Name)
		}
		partitions[p.ID] = struct{}{}
		for _, tablet := range p.Tablets {
			if _, dup := tablets[tablet.ID]; dup {
				return errors.Errorf("duplicate tablet id %d in table %s", tablet.ID, t.Name)
			}
			tablets[tablet.ID] = struct{}{}
			if tablet.RowCount < 0 {
				return errors.Errorf("tablet %d has negative row count %d", tablet.ID, tablet.RowCount)
			}
		}
	}
	return nil
}
