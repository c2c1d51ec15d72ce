// Copyright 2021 PingCAP, Inc.
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

package sqlescape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReserveBuffer(t *testing.T) {
	res0 := reserveBuffer(nil, 0)
	require.Len(t, res0, 0)

	res1 := reserveBuffer(res0, 3)
	require.Len(t, res1, 3)
	res1[1] = 3

	res2 := reserveBuffer(res1, 9)
	require.Len(t, res2, 12)
	require.Equal(t, 15, cap(res2))
	require.Equal(t, res1, res2[:3])
}

func TestEscapeBackslash(t *testing.T) {
	type TestCase struct {
		name   string
		input  []byte
		output []byte
	}
	tests := []TestCase{
		{
			name:   "normal",
			input:  []byte("hello"),
			output: []byte("hello"),
		},
		{
			name:   "0",
			input:  []byte("he\x00lo"),
			output: []byte("he\\0lo"),
		},
		{
			name:   "break line",
			input:  []byte("he\nlo"),
			output: []byte("he\\nlo"),
		},
		{
			name:   "carry",
			input:  []byte("he\rlo"),
			output: []byte("he\\rlo"),
		},
		{
			name:   "substitute",
			input:  []byte("he\x1alo"),
			output: []byte("he\\Zlo"),
		},
		{
			name:   "single quote",
			input:  []byte("he'lo"),
			output: []byte("he\\'lo"),
		},
		{
			name:   "double quote",
			input:  []byte("he\"lo"),
			output: []byte("he\\\"lo"),
		},
		{
			name:   "back slash",
			input:  []byte("he\\lo"),
			output: []byte("he\\\\lo"),
		},
		{
			name:   "double escape",
			input:  []byte("he\x00lo\""),
			output: []byte("he\\0lo\\\""),
		},
		{
			name:   "chinese",
			input:  []byte("中文?"),
			output: []byte("中文?"),
		},
	}
	for _, v := range tests {
		// copy iterator variable into a new variable, see issue #27779
		v := v
		t.Run(v.name, func(t *testing.T) {
			require.Equal(t, v.output, escapeBytesBackslash(nil, v.input))
			require.Equal(t, v.output, escapeStringBackslash(nil, string(v.input)))
		})
	}
}

func TestEscapeSQL(t *testing.T) {
	type TestCase struct {
		name   string
		input  string
		output string
		err    string
		params []any
	}
	tests := []TestCase{
		{
			name:   "normal 1",
			input:  "select * from 1",
			params: []any{},
			output: "select * from 1",
		},
		{
			name:   "normal 2",
			input:  "WHERE source != 'builtin'",
			params: []any{},
			output: "WHERE source != 'builtin'",
		},
		{
			name:   "discard extra arguments",
			input:  "select * from 1",
			params: []any{4, 5, "rt"},
			output: "select * from 1",
		},
		{
			name:   "%? missing arguments",
			input:  "select %? from %?",
			params: []any{4},
			err:    "missing arguments.*",
		},
		{
			name:   "nil",
			input:  "select %?",
			params: []any{nil},
			output: "select NULL",
		},
		{
			name:   "int64",
			input:  "select %?",
			params: []any{int64(7)},
			output: "select 7",
		},
		{
			name:   "float64",
			input:  "select %?",
			params: []any{float64(0.14)},
			output: "select 0.14",
		},
		{
			name:   "bool on",
			input:  "select %?",
			params: []any{true},
			output: "select 1",
		},
		{
			name:   "string",
			input:  "select %?",
			params: []any{"33"},
			output: "select '33'",
		},
		{
			name:   "string slice",
			input:  "select %?",
			params: []any{[]string{"33", "44"}},
			output: "select '33','44'",
		},
		{
			name:   "int64 slice",
			input:  "TABLET(%?)",
			params: []any{[]int64{10001, 10002}},
			output: "TABLET(10001,10002)",
		},
		{
			name:   "unsupported args",
			input:  "select %?",
			params: []any{make(chan byte)},
			err:    "unsupported 1-th argument.*",
		},
		{
			name:   "simple injection",
			input:  "select %?",
			params: []any{"0; drop database"},
			output: "select '0; drop database'",
		},
		{
			name:   "identifier, wrong arg",
			input:  "use %n",
			params: []any{3},
			err:    "^expect a string identifier",
		},
		{
			name:   "identifier",
			input:  "use %n",
			params: []any{"table`"},
			output: "use `table```",
		},
		{
			name:   "% escape",
			input:  "select * from t where val = '%%?'",
			params: []any{},
			output: "select * from t where val = '%?'",
		},
		{
			name:   "unknown specifier",
			input:  "%v",
			params: []any{},
			output: "%v",
		},
		{
			name:   "truncated specifier ",
			input:  "rv %",
			params: []any{},
			output: "rv %",
		},
	}
	for _, v := range tests {
		t.Run(v.name, func(t *testing.T) {
			r3 := new(strings.Builder)
			r1, e1 := escapeSQL(v.input, v.params...)
			r2, e2 := EscapeSQL(v.input, v.params...)
			e3 := FormatSQL(r3, v.input, v.params...)
			if v.err == "" {
				require.NoError(t, e1)
				require.Equal(t, v.output, string(r1))
				require.NoError(t, e2)
				require.Equal(t, v.output, r2)
				require.NoError(t, e3)
				require.Equal(t, v.output, r3.String())
			} else {
				require.Error(t, e1)
				require.Regexp(t, v.err, e1.Error())
				require.Error(t, e2)
				require.Regexp(t, v.err, e2.Error())
				require.Error(t, e3)
				require.Regexp(t, v.err, e3.Error())
			}
		})
	}
}

func TestMustUtils(t *testing.T) {
	require.PanicsWithError(t, "missing arguments, need 1-th arg, but only got 0 args", func() {
		MustEscapeSQL("%?")
	})

	require.PanicsWithError(t, "missing arguments, need 1-th arg, but only got 0 args", func() {
		sql := new(strings.Builder)
		MustFormatSQL(sql, "%?")
	})

	sql := new(strings.Builder)
	MustFormatSQL(sql, "t")
	MustEscapeSQL("tt")
}

func TestEscapeString(t *testing.T) {
	type testCase struct {
		input  string
		output string
	}
	tests := []testCase{
		{
			input:  "testData",
			output: "testData",
		},
		{
			input:  `it's all good`,
			output: `it\'s all good`,
		},
		{
			input:  `+ -><()~*:""&|`,
			output: `+ -><()~*:\"\"&|`,
		},
	}
	for _, v := range tests {
		require.Equal(t, v.output, EscapeString(v.input))
	}
}

func TestQuoteIdentifier(t *testing.T) {
	require.Equal(t, "`c1`", QuoteIdentifier("c1"))
	require.Equal(t, "`VIRTUAL_STATISTIC_c7_UNNEST`", QuoteIdentifier("VIRTUAL_STATISTIC_c7_UNNEST"))
	require.Equal(t, "`a``b`", QuoteIdentifier("a`b"))
}

func BenchmarkEscapeString(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = escapeSQL("select %?", "3")
	}
}
