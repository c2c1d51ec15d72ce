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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldTypeTraits(t *testing.T) {
	tests := []struct {
		tp           string
		canStatistic bool
		collection   bool
		complex      bool
		str          bool
		size         int64
	}{
		{"boolean", true, false, false, false, 1},
		{"tinyint", true, false, false, false, 1},
		{"smallint", true, false, false, false, 2},
		{"int", true, false, false, false, 4},
		{"bigint", true, false, false, false, 8},
		{"largeint", true, false, false, false, 16},
		{"float", true, false, false, false, 4},
		{"double", true, false, false, false, 8},
		{"decimal(9, 2)", true, false, false, false, 4},
		{"decimal(27, 9)", true, false, false, false, 16},
		{"date", true, false, false, false, 4},
		{"datetime", true, false, false, false, 8},
		{"varchar(20)", true, false, false, true, 20},
		{"char", true, false, false, true, 1},
		{"json", false, false, false, false, 16},
		{"hll", false, false, false, false, 8},
		{"bitmap", false, false, false, false, 8},
		{"percentile", false, false, false, false, 8},
		{"array<int>", false, true, true, false, 16},
		{"map<int, int>", false, true, true, false, 16},
		{"struct<a int>", false, false, true, false, 16},
	}
	for _, tt := range tests {
		t.Run(tt.tp, func(t *testing.T) {
			ft, err := ParseFieldType(tt.tp)
			require.NoError(t, err)
			require.Equal(t, tt.canStatistic, ft.CanStatistic())
			require.Equal(t, tt.collection, ft.IsCollectionType())
			require.Equal(t, tt.complex, ft.IsComplexType())
			require.Equal(t, tt.str, ft.IsStringType())
			require.Equal(t, tt.size, ft.TypeSize())
		})
	}
}

func TestParseNestedType(t *testing.T) {
	ft, err := ParseFieldType("struct<a int, b array<struct<c bigint, `d` varchar(8)>>, m map<int,string>>")
	require.NoError(t, err)
	require.True(t, ft.IsStructType())
	require.False(t, ft.IsAnyStruct())
	require.Len(t, ft.Fields(), 3)

	a, ok := ft.Field("A")
	require.True(t, ok)
	require.Equal(t, KindInt, a.GetType())

	b, ok := ft.Field("b")
	require.True(t, ok)
	require.True(t, b.IsArrayType())
	item := b.ItemType()
	require.True(t, item.ContainsField("d"))
	d, _ := item.Field("d")
	require.Equal(t, 8, d.GetFlen())

	m, ok := ft.Field("m")
	require.True(t, ok)
	require.True(t, m.IsMapType())
	require.Equal(t, KindInt, m.KeyType().GetType())
	require.Equal(t, defaultStringLength, m.ValueType().GetFlen())

	_, ok = ft.Field("missing")
	require.False(t, ok)
	_, ok = a.Field("a")
	require.False(t, ok)
}

func TestFieldTypeStringRoundTrip(t *testing.T) {
	for _, s := range []string{
		"int",
		"varchar(64)",
		"decimal(10, 2)",
		"array<bigint>",
		"map<int,varchar(10)>",
		"struct<a int, b array<struct<c int, d double>>>",
		"struct",
	} {
		ft := MustParseFieldType(s)
		require.Equal(t, s, ft.String())
		again, err := ParseFieldType(ft.String())
		require.NoError(t, err)
		require.True(t, ft.Equal(again), s)
	}
	require.True(t, NewAnyStructType().IsAnyStruct())
	require.False(t, NewFieldType(KindInt).Equal(NewFieldType(KindBigInt)))
	require.True(t, NewArrayType(NewFieldType(KindInt)).Equal(MustParseFieldType("array<int>")))
}

func TestParseFieldTypeErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"unknown",
		"array<int",
		"map<int>",
		"struct<a int,>",
		"struct<a int, a bigint>",
		"decimal(40, 2)",
		"decimal(5, 6)",
		"varchar(x)",
		"int int",
		"`unterminated",
	} {
		_, err := ParseFieldType(s)
		require.Error(t, err, s)
	}
	require.Panics(t, func() { MustParseFieldType("array<") })
}

func TestFieldTypeBuilder(t *testing.T) {
	b := NewFieldTypeBuilder()
	b.SetType(KindDecimal).SetFlen(20).SetDecimal(4)
	require.Equal(t, KindDecimal, b.GetType())
	ft := b.Build()
	require.Equal(t, 20, ft.GetFlen())
	require.Equal(t, 4, ft.GetDecimal())
	require.Equal(t, int64(16), ft.TypeSize())
	require.Equal(t, "decimal", KindDecimal.String())
	require.Equal(t, "kind(200)", Kind(200).String())
}
