// This file is part of lumi-lang - https://github.com/martin-bucinskas/lumi-lang
//
// Copyright 2025 Martin Bucinskas
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

package asm

import (
	"encoding/binary"
	"math"
	"text/scanner"

	"github.com/pkg/errors"

	"github.com/martin-bucinskas/lumi-lang/vm"
)

// builder is the first assembly pass. It walks parsed statements in
// order, routes them to the active section and defines every label with
// a segment-relative offset. Sections may be reopened; data and bss
// grow monotonically across all their spans.
type builder struct {
	syms    *vm.SymbolTable
	data    []byte
	bss     int
	text    []stmt
	section directive
}

func newBuilder() *builder {
	return &builder{syms: vm.NewSymbolTable()}
}

func (b *builder) build(prog []stmt) error {
	for k := range prog {
		st := &prog[k]
		switch st.kind {
		case stmtComment:
			// comments survive parsing for tooling; nothing to emit

		case stmtSection:
			b.section = st.dir

		case stmtLabel:
			if err := b.define(st); err != nil {
				return err
			}

		case stmtData:
			if err := b.define(st); err != nil {
				return err
			}
			switch b.section {
			case dirData:
				if err := b.emitData(st); err != nil {
					return err
				}
			case dirBss:
				if err := b.reserveBss(st); err != nil {
					return err
				}
			default:
				return &ParseError{Pos: st.pos, Msg: "data declaration outside .data or .bss section"}
			}

		case stmtInstr:
			if b.section != dirText {
				return &ParseError{Pos: st.pos, Msg: "instruction outside .text section"}
			}
			if st.label != "" {
				if err := b.define(st); err != nil {
					return err
				}
			}
			b.text = append(b.text, *st)
		}
	}
	return nil
}

// define records st's label at the current offset of the active
// section. All sections share one namespace, so a name clashing across
// sections is still a duplicate.
func (b *builder) define(st *stmt) error {
	var seg vm.Segment
	var off int
	switch b.section {
	case dirData:
		seg, off = vm.SegData, len(b.data)
	case dirBss:
		seg, off = vm.SegBss, b.bss
	case dirText:
		seg, off = vm.SegText, len(b.text)
	default:
		return &ParseError{Pos: st.pos, Msg: "label outside any section"}
	}
	if err := b.syms.Define(st.label, seg, off); err != nil {
		return errors.Wrapf(err, "%s", st.pos)
	}
	return nil
}

// emitData appends an initialized literal to the data image.
func (b *builder) emitData(st *stmt) error {
	if len(st.args) != 1 {
		return &ParseError{Pos: st.pos, Msg: "data declaration requires an initializer"}
	}
	a := &st.args[0]
	switch st.dir {
	case dirAsciiz:
		if a.kind != opdString {
			return badInit(a.pos, ".asciiz", "string")
		}
		b.data = append(b.data, a.str...)
		b.data = append(b.data, 0)
	case dirInteger:
		if a.kind != opdInt {
			return badInit(a.pos, ".integer", "integer")
		}
		b.data = appendWord(b.data, uint64(a.num))
	case dirFloat:
		if a.kind != opdFloat {
			return badInit(a.pos, ".float", "float")
		}
		b.data = appendWord(b.data, math.Float64bits(a.fnum))
	}
	return nil
}

// reserveBss grows the zero-filled region. Initializers are not allowed
// in .bss; .asciiz takes a byte count instead of a string, .integer and
// .float take nothing and reserve one word each.
func (b *builder) reserveBss(st *stmt) error {
	switch st.dir {
	case dirAsciiz:
		if len(st.args) != 1 || st.args[0].kind != opdInt {
			return &ParseError{Pos: st.pos, Msg: ".asciiz in .bss requires a byte count"}
		}
		n := st.args[0].num
		if n < 0 {
			return &ParseError{Pos: st.pos, Msg: "negative .asciiz byte count"}
		}
		b.bss += int(n)
	case dirInteger, dirFloat:
		if len(st.args) != 0 {
			return &ParseError{Pos: st.pos, Msg: "initializer not allowed in .bss"}
		}
		b.bss += vm.WordSize
	}
	return nil
}

func badInit(pos scanner.Position, dir, want string) error {
	return &ParseError{Pos: pos, Msg: dir + " initializer must be a " + want + " literal"}
}

func appendWord(p []byte, v uint64) []byte {
	var w [vm.WordSize]byte
	binary.LittleEndian.PutUint64(w[:], v)
	return append(p, w[:]...)
}
