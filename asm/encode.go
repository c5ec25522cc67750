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
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/martin-bucinskas/lumi-lang/vm"
)

// encoder is the second assembly pass. All symbols are defined by the
// time it runs, so every label reference resolves or is an error.
type encoder struct {
	syms    *vm.SymbolTable
	dataLen int
	ext     map[string]vm.Opcode
}

func newEncoder(b *builder, extNames []string) *encoder {
	e := &encoder{
		syms:    b.syms,
		dataLen: len(b.data),
		ext:     make(map[string]vm.Opcode, len(extNames)),
	}
	for i, name := range extNames {
		e.ext[name] = vm.ExtBase + vm.Opcode(i)
	}
	return e
}

// encode validates and encodes all collected text statements into
// instruction records. Record k corresponds to text statement k, so
// text symbol offsets are already record indices.
func (e *encoder) encode(text []stmt) ([]vm.Instr, error) {
	out := make([]vm.Instr, len(text))
	for k := range text {
		in, err := e.instr(&text[k])
		if err != nil {
			return nil, err
		}
		out[k] = in
	}
	return out, nil
}

func (e *encoder) instr(st *stmt) (vm.Instr, error) {
	op, ok := vm.OpcodeByName(strings.ToUpper(st.op))
	if !ok {
		if xop, xok := e.ext[st.op]; xok {
			return e.extInstr(st, xop)
		}
		return vm.Instr{}, &EncodingError{Pos: st.pos, Code: UnknownOpcode, Msg: st.op}
	}
	sig, _ := vm.Signature(op)
	in := vm.Instr{Op: op}
	for k := 0; k < 3; k++ {
		if k >= len(st.args) {
			if sig[k] != vm.ClassNone {
				return vm.Instr{}, e.mismatch(st, "%s requires %d operands, got %d", op, arity(sig), len(st.args))
			}
			continue
		}
		if sig[k] == vm.ClassNone {
			return vm.Instr{}, e.mismatch(st, "%s requires %d operands, got %d", op, arity(sig), len(st.args))
		}
		a, err := e.operand(st, op, k, sig[k])
		if err != nil {
			return vm.Instr{}, err
		}
		in.Args[k] = a
	}
	return in, nil
}

// operand checks one parsed operand against its signature class and
// resolves label references to absolute addresses.
func (e *encoder) operand(st *stmt, op vm.Opcode, k int, class vm.OperandClass) (vm.Operand, error) {
	a := &st.args[k]
	switch a.kind {
	case opdReg:
		if class != vm.ClassReg && class != vm.ClassRegOrInt &&
			class != vm.ClassRegOrAddr && class != vm.ClassRegOrFloat {
			break
		}
		if a.reg >= vm.RegisterCount {
			return vm.Operand{}, e.mismatch(st, "register $%d out of range for %s", a.reg, op)
		}
		return vm.Reg(a.reg), nil
	case opdInt:
		if class != vm.ClassInt && class != vm.ClassRegOrInt {
			break
		}
		return vm.Int(a.num), nil
	case opdFloat:
		if class != vm.ClassRegOrFloat && class != vm.ClassFloatOrAddr {
			break
		}
		return vm.Float(a.fnum), nil
	case opdLabel:
		if class != vm.ClassAddr && class != vm.ClassRegOrAddr && class != vm.ClassFloatOrAddr {
			break
		}
		addr, err := e.resolve(a)
		if err != nil {
			return vm.Operand{}, err
		}
		return vm.Addr(addr), nil
	}
	return vm.Operand{}, e.mismatch(st, "operand %d of %s has the wrong kind", k+1, op)
}

// extInstr encodes an extension opcode. Extension signatures are not
// known to the assembler, so any mix of up to three register, numeric
// or label operands is accepted as declared.
func (e *encoder) extInstr(st *stmt, op vm.Opcode) (vm.Instr, error) {
	in := vm.Instr{Op: op}
	for k := range st.args {
		a := &st.args[k]
		switch a.kind {
		case opdReg:
			if a.reg >= vm.RegisterCount {
				return vm.Instr{}, e.mismatch(st, "register $%d out of range for %s", a.reg, st.op)
			}
			in.Args[k] = vm.Reg(a.reg)
		case opdInt:
			in.Args[k] = vm.Int(a.num)
		case opdFloat:
			in.Args[k] = vm.Float(a.fnum)
		case opdLabel:
			addr, err := e.resolve(a)
			if err != nil {
				return vm.Instr{}, err
			}
			in.Args[k] = vm.Addr(addr)
		default:
			return vm.Instr{}, e.mismatch(st, "operand %d of %s has the wrong kind", k+1, st.op)
		}
	}
	return in, nil
}

// resolve turns a label reference into an absolute address. Data
// symbols address their byte offset, bss symbols follow the data image,
// text symbols address their record index.
func (e *encoder) resolve(a *operand) (int, error) {
	s, err := e.syms.Resolve(a.name)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", a.pos)
	}
	switch s.Seg {
	case vm.SegBss:
		return e.dataLen + s.Off, nil
	default:
		return s.Off, nil
	}
}

func (e *encoder) mismatch(st *stmt, format string, args ...interface{}) error {
	return &EncodingError{Pos: st.pos, Code: OperandMismatch, Msg: fmt.Sprintf(format, args...)}
}

func arity(sig [3]vm.OperandClass) int {
	n := 0
	for _, c := range sig {
		if c != vm.ClassNone {
			n++
		}
	}
	return n
}
