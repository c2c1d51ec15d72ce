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

package types

import (
	"fmt"
	"strings"
)

// Kind is the storage type of a column value.
type Kind byte

// Kinds supported by the table store.
const (
	KindUnknown Kind = iota
	KindBoolean
	KindTinyInt
	KindSmallInt
	KindInt
	KindBigInt
	KindLargeInt
	KindFloat
	KindDouble
	KindDecimal
	KindDate
	KindDatetime
	KindChar
	KindVarchar
	KindVarbinary
	KindJSON
	KindHLL
	KindBitmap
	KindPercentile
	KindArray
	KindMap
	KindStruct
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown",
	KindBoolean:    "boolean",
	KindTinyInt:    "tinyint",
	KindSmallInt:   "smallint",
	KindInt:        "int",
	KindBigInt:     "bigint",
	KindLargeInt:   "largeint",
	KindFloat:      "float",
	KindDouble:     "double",
	KindDecimal:    "decimal",
	KindDate:       "date",
	KindDatetime:   "datetime",
	KindChar:       "char",
	KindVarchar:    "varchar",
	KindVarbinary:  "varbinary",
	KindJSON:       "json",
	KindHLL:        "hll",
	KindBitmap:     "bitmap",
	KindPercentile: "percentile",
	KindArray:      "array",
	KindMap:        "map",
	KindStruct:     "struct",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// UnspecifiedLength is the flen of a string type declared without a length.
const UnspecifiedLength = -1

// StructField is a named field of a struct type.
type StructField struct {
	Name string
	Type *FieldType
}

// FieldType describes the value type of a column or of a nested field.
// It is immutable once built; use FieldTypeBuilder to create one.
type FieldType struct {
	tp      Kind
	flen    int
	decimal int
	// elem is the item type of an array.
	elem *FieldType
	// key and value are the types of a map.
	key   *FieldType
	value *FieldType
	// fields of a struct. A struct without fields matches any struct.
	fields []StructField
}

// GetType returns the kind of the ft.
func (ft *FieldType) GetType() Kind {
	return ft.tp
}

// GetFlen returns the declared length of the ft.
func (ft *FieldType) GetFlen() int {
	return ft.flen
}

// GetDecimal returns the declared scale of the ft.
func (ft *FieldType) GetDecimal() int {
	return ft.decimal
}

// ItemType returns the item type of an array, nil for other types.
func (ft *FieldType) ItemType() *FieldType {
	return ft.elem
}

// KeyType returns the key type of a map, nil for other types.
func (ft *FieldType) KeyType() *FieldType {
	return ft.key
}

// ValueType returns the value type of a map, nil for other types.
func (ft *FieldType) ValueType() *FieldType {
	return ft.value
}

// Fields returns the fields of a struct.
func (ft *FieldType) Fields() []StructField {
	return ft.fields
}

// Field looks up a struct field by name. Field names are case-insensitive.
func (ft *FieldType) Field(name string) (*FieldType, bool) {
	if ft.tp != KindStruct {
		return nil, false
	}
	for _, f := range ft.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Type, true
		}
	}
	return nil, false
}

// ContainsField reports whether the struct has a field called name.
func (ft *FieldType) ContainsField(name string) bool {
	_, ok := ft.Field(name)
	return ok
}

// IsArrayType reports whether ft is an array.
func (ft *FieldType) IsArrayType() bool {
	return ft.tp == KindArray
}

// IsMapType reports whether ft is a map.
func (ft *FieldType) IsMapType() bool {
	return ft.tp == KindMap
}

// IsStructType reports whether ft is a struct.
func (ft *FieldType) IsStructType() bool {
	return ft.tp == KindStruct
}

// IsAnyStruct reports whether ft is a struct placeholder without declared fields.
func (ft *FieldType) IsAnyStruct() bool {
	return ft.tp == KindStruct && len(ft.fields) == 0
}

// IsCollectionType reports whether ft holds a variable number of values per row.
func (ft *FieldType) IsCollectionType() bool {
	return ft.IsArrayType() || ft.IsMapType()
}

// IsComplexType reports whether ft is a nested type.
func (ft *FieldType) IsComplexType() bool {
	return ft.IsCollectionType() || ft.IsStructType()
}

// IsStringType reports whether ft belongs to the char family.
func (ft *FieldType) IsStringType() bool {
	return ft.tp == KindChar || ft.tp == KindVarchar || ft.tp == KindVarbinary
}

// CanStatistic reports whether min/max/ndv statistics can be aggregated directly on ft.
func (ft *FieldType) CanStatistic() bool {
	switch ft.tp {
	case KindUnknown, KindJSON, KindHLL, KindBitmap, KindPercentile:
		return false
	}
	return !ft.IsComplexType()
}

// TypeSize is the estimated in-memory width of one value in bytes.
func (ft *FieldType) TypeSize() int64 {
	switch ft.tp {
	case KindBoolean, KindTinyInt:
		return 1
	case KindSmallInt:
		return 2
	case KindInt, KindFloat, KindDate:
		return 4
	case KindBigInt, KindDouble, KindDatetime:
		return 8
	case KindLargeInt:
		return 16
	case KindDecimal:
		switch {
		case ft.flen <= 9:
			return 4
		case ft.flen <= 18:
			return 8
		default:
			return 16
		}
	case KindChar, KindVarchar, KindVarbinary:
		if ft.flen > 0 {
			return int64(ft.flen)
		}
		return 1
	case KindArray, KindMap, KindStruct, KindJSON:
		return 16
	}
	return 8
}

// Equal reports whether two types are structurally identical.
func (ft *FieldType) Equal(other *FieldType) bool {
	if ft == other {
		return true
	}
	if ft == nil || other == nil {
		return false
	}
	if ft.tp != other.tp || ft.flen != other.flen || ft.decimal != other.decimal {
		return false
	}
	if !ft.elem.Equal(other.elem) || !ft.key.Equal(other.key) || !ft.value.Equal(other.value) {
		return false
	}
	if len(ft.fields) != len(other.fields) {
		return false
	}
	for i := range ft.fields {
		if ft.fields[i].Name != other.fields[i].Name || !ft.fields[i].Type.Equal(other.fields[i].Type) {
			return false
		}
	}
	return true
}

// String returns the type in the DDL syntax accepted by ParseFieldType.
func (ft *FieldType) String() string {
	var sb strings.Builder
	ft.writeTo(&sb)
	return sb.String()
}

func (ft *FieldType) writeTo(sb *strings.Builder) {
	sb.WriteString(ft.tp.String())
	switch ft.tp {
	case KindChar, KindVarchar, KindVarbinary:
		if ft.flen != UnspecifiedLength {
			fmt.Fprintf(sb, "(%d)", ft.flen)
		}
	case KindDecimal:
		fmt.Fprintf(sb, "(%d, %d)", ft.flen, ft.decimal)
	case KindArray:
		sb.WriteByte('<')
		ft.elem.writeTo(sb)
		sb.WriteByte('>')
	case KindMap:
		sb.WriteByte('<')
		ft.key.writeTo(sb)
		sb.WriteByte(',')
		ft.value.writeTo(sb)
		sb.WriteByte('>')
	case KindStruct:
		if len(ft.fields) == 0 {
			return
		}
		sb.WriteByte('<')
		for i, f := range ft.fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteByte(' ')
			f.Type.writeTo(sb)
		}
		sb.WriteByte('>')
	}
}

// NewFieldType creates a scalar field type of the given kind.
func NewFieldType(tp Kind) *FieldType {
	return NewFieldTypeBuilder().SetType(tp).BuildP()
}

// NewArrayType creates an array of item.
func NewArrayType(item *FieldType) *FieldType {
	return NewFieldTypeBuilder().SetType(KindArray).SetElem(item).BuildP()
}

// NewMapType creates a map from key to value.
func NewMapType(key, value *FieldType) *FieldType {
	return NewFieldTypeBuilder().SetType(KindMap).SetKeyValue(key, value).BuildP()
}

// NewAnyStructType creates a struct placeholder which matches any struct.
func NewAnyStructType() *FieldType {
	return NewFieldTypeBuilder().SetType(KindStruct).BuildP()
}

// MarshalText implements encoding.TextMarshaler.
func (ft *FieldType) MarshalText() ([]byte, error) {
	return []byte(ft.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ft *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*ft = *parsed
	return nil
}
