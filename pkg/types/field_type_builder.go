// Copyright 2022 PingCAP, Inc.
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

// FieldTypeBuilder constructor
type FieldTypeBuilder struct {
	ft FieldType
}

// NewFieldTypeBuilder will allocate the builder on the heap.
func NewFieldTypeBuilder() *FieldTypeBuilder {
	return &FieldTypeBuilder{ft: FieldType{flen: UnspecifiedLength}}
}

// GetType returns type of the ft
func (b *FieldTypeBuilder) GetType() Kind {
	return b.ft.GetType()
}

// SetType sets type of the ft
func (b *FieldTypeBuilder) SetType(tp Kind) *FieldTypeBuilder {
	b.ft.tp = tp
	return b
}

// SetFlen sets length of the ft
func (b *FieldTypeBuilder) SetFlen(flen int) *FieldTypeBuilder {
	b.ft.flen = flen
	return b
}

// SetDecimal sets decimal of the ft
func (b *FieldTypeBuilder) SetDecimal(decimal int) *FieldTypeBuilder {
	b.ft.decimal = decimal
	return b
}

// SetElem sets the item type of an array ft
func (b *FieldTypeBuilder) SetElem(elem *FieldType) *FieldTypeBuilder {
	b.ft.elem = elem
	return b
}

// SetKeyValue sets the key and value types of a map ft
func (b *FieldTypeBuilder) SetKeyValue(key, value *FieldType) *FieldTypeBuilder {
	b.ft.key = key
	b.ft.value = value
	return b
}

// AddField appends a field to a struct ft
func (b *FieldTypeBuilder) AddField(name string, tp *FieldType) *FieldTypeBuilder {
	b.ft.fields = append(b.ft.fields, StructField{Name: name, Type: tp})
	return b
}

// Build returns the ft
func (b *FieldTypeBuilder) Build() FieldType {
	return b.ft
}

// BuildP returns pointer of the ft
func (b *FieldTypeBuilder) BuildP() *FieldType {
	return &b.ft
}
