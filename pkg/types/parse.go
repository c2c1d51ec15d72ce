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
	"strconv"
	"strings"

	"github.com/pingcap/errors"
)

// scalarAliases maps type keywords to kinds. Keywords are matched lower-cased.
var scalarAliases = map[string]Kind{
	"boolean":    KindBoolean,
	"bool":       KindBoolean,
	"tinyint":    KindTinyInt,
	"smallint":   KindSmallInt,
	"int":        KindInt,
	"integer":    KindInt,
	"bigint":     KindBigInt,
	"largeint":   KindLargeInt,
	"float":      KindFloat,
	"double":     KindDouble,
	"decimal":    KindDecimal,
	"decimalv3":  KindDecimal,
	"date":       KindDate,
	"datetime":   KindDatetime,
	"char":       KindChar,
	"varchar":    KindVarchar,
	"string":     KindVarchar,
	"varbinary":  KindVarbinary,
	"json":       KindJSON,
	"hll":        KindHLL,
	"bitmap":     KindBitmap,
	"percentile": KindPercentile,
}

const (
	defaultStringLength   = 65533
	defaultDecimalPrec    = 10
	defaultDecimalScale   = 0
	maxDecimalPrecision   = 38
	maxNestedTypeDepthLim = 15
)

// ParseFieldType parses a column type written in DDL syntax, for example
// "int", "varchar(64)", "decimal(10, 2)", "array<bigint>",
// "map<int, varchar(10)>" or "struct<a int, b array<struct<c int>>>".
func ParseFieldType(s string) (*FieldType, error) {
	p := &typeParser{src: s}
	ft, err := p.parseType(0)
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if !p.eof() {
		return nil, p.errorf("unexpected trailing input")
	}
	return ft, nil
}

// MustParseFieldType is like ParseFieldType but panics on malformed input.
func MustParseFieldType(s string) *FieldType {
	ft, err := ParseFieldType(s)
	if err != nil {
		panic(err)
	}
	return ft
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *typeParser) errorf(format string, args ...any) error {
	return errors.Errorf("invalid type %q at offset %d: "+format, append([]any{p.src, p.pos}, args...)...)
}

func (p *typeParser) skipSpaces() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *typeParser) peek() byte {
	p.skipSpaces()
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expect '%c'", c)
	}
	p.pos++
	return nil
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// ident reads a bare or backquoted identifier.
func (p *typeParser) ident() (string, error) {
	p.skipSpaces()
	if p.eof() {
		return "", p.errorf("expect identifier")
	}
	if p.src[p.pos] == '`' {
		end := strings.IndexByte(p.src[p.pos+1:], '`')
		if end < 0 {
			return "", p.errorf("unterminated quoted identifier")
		}
		name := p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return name, nil
	}
	start := p.pos
	for !p.eof() && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return "", p.errorf("expect identifier")
	}
	return p.src[start:p.pos], nil
}

func (p *typeParser) number() (int, error) {
	p.skipSpaces()
	start := p.pos
	for !p.eof() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expect number")
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return 0, p.errorf("%v", err)
	}
	return n, nil
}

func (p *typeParser) parseType(depth int) (*FieldType, error) {
	if depth > maxNestedTypeDepthLim {
		return nil, p.errorf("type nested too deep")
	}
	word, err := p.ident()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(word) {
	case "array":
		if err := p.expect('<'); err != nil {
			return nil, err
		}
		item, err := p.parseType(depth + 1)
		if err != nil {
			return nil, err
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
		return NewArrayType(item), nil
	case "map":
		if err := p.expect('<'); err != nil {
			return nil, err
		}
		key, err := p.parseType(depth + 1)
		if err != nil {
			return nil, err
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
		value, err := p.parseType(depth + 1)
		if err != nil {
			return nil, err
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
		return NewMapType(key, value), nil
	case "struct":
		return p.parseStruct(depth)
	}
	tp, ok := scalarAliases[strings.ToLower(word)]
	if !ok {
		return nil, p.errorf("unknown type %s", word)
	}
	b := NewFieldTypeBuilder().SetType(tp)
	switch tp {
	case KindChar, KindVarchar, KindVarbinary:
		flen := UnspecifiedLength
		if strings.EqualFold(word, "string") {
			flen = defaultStringLength
		}
		if p.peek() == '(' {
			p.pos++
			if flen, err = p.number(); err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
		}
		b.SetFlen(flen)
	case KindDecimal:
		prec, scale := defaultDecimalPrec, defaultDecimalScale
		if p.peek() == '(' {
			p.pos++
			if prec, err = p.number(); err != nil {
				return nil, err
			}
			if p.peek() == ',' {
				p.pos++
				if scale, err = p.number(); err != nil {
					return nil, err
				}
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
		}
		if prec == 0 || prec > maxDecimalPrecision || scale > prec {
			return nil, p.errorf("invalid decimal(%d, %d)", prec, scale)
		}
		b.SetFlen(prec).SetDecimal(scale)
	}
	return b.BuildP(), nil
}

func (p *typeParser) parseStruct(depth int) (*FieldType, error) {
	b := NewFieldTypeBuilder().SetType(KindStruct)
	if p.peek() != '<' {
		return b.BuildP(), nil
	}
	p.pos++
	seen := make(map[string]struct{})
	for {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		lower := strings.ToLower(name)
		if _, dup := seen[lower]; dup {
			return nil, p.errorf("duplicate struct field %s", name)
		}
		seen[lower] = struct{}{}
		// "name: type" is accepted as well as "name type".
		if p.peek() == ':' {
			p.pos++
		}
		ft, err := p.parseType(depth + 1)
		if err != nil {
			return nil, err
		}
		b.AddField(name, ft)
		switch p.peek() {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return b.BuildP(), nil
		default:
			return nil, p.errorf("expect ',' or '>'")
		}
	}
}
