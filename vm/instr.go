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

package vm

import (
	"math"
	"strconv"
)

// OperandKind tags one operand slot of an encoded instruction record.
type OperandKind uint8

// Operand slot kinds. KindNone is the zero value so an unused slot of a
// record is self-describing.
const (
	KindNone OperandKind = iota
	KindRegister
	KindImmediateInt
	KindImmediateFloat
	KindAbsoluteAddress
)

// Operand is one slot of an instruction record. Int holds the register
// index, integer immediate or absolute offset; Float holds a float
// immediate.
type Operand struct {
	Kind  OperandKind
	Int   int64
	Float float64
}

// Reg returns a register operand.
func Reg(n int) Operand { return Operand{Kind: KindRegister, Int: int64(n)} }

// Int returns an integer immediate operand.
func Int(v int64) Operand { return Operand{Kind: KindImmediateInt, Int: v} }

// Float returns a float immediate operand.
func Float(v float64) Operand { return Operand{Kind: KindImmediateFloat, Float: v} }

// Addr returns an absolute address operand.
func Addr(off int) Operand { return Operand{Kind: KindAbsoluteAddress, Int: int64(off)} }

// bits returns the operand value as raw codec bits.
func (o Operand) bits() uint64 {
	if o.Kind == KindImmediateFloat {
		return math.Float64bits(o.Float)
	}
	return uint64(o.Int)
}

func operandFromBits(kind OperandKind, raw uint64) Operand {
	if kind == KindImmediateFloat {
		return Operand{Kind: kind, Float: math.Float64frombits(raw)}
	}
	return Operand{Kind: kind, Int: int64(raw)}
}

func (o Operand) String() string {
	switch o.Kind {
	case KindRegister:
		return "$" + strconv.FormatInt(o.Int, 10)
	case KindImmediateInt:
		return strconv.FormatInt(o.Int, 10)
	case KindImmediateFloat:
		return strconv.FormatFloat(o.Float, 'g', -1, 64)
	case KindAbsoluteAddress:
		return "@" + strconv.FormatInt(o.Int, 10)
	}
	return ""
}

// Instr is one fixed-stride instruction record: an opcode tag and three
// self-describing operand slots, present whether used or not.
type Instr struct {
	Op   Opcode
	Args [3]Operand
}

func (in Instr) String() string {
	s := in.Op.String()
	for _, a := range in.Args {
		if a.Kind == KindNone {
			break
		}
		s += " " + a.String()
	}
	return s
}
