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

import "strconv"

// Opcode is the tag stored in the first slot of an instruction record.
type Opcode uint8

// Lumi Virtual Machine opcodes.
const (
	OpNop Opcode = iota
	OpLoad
	OpLoadI
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpInc
	OpDec
	OpAloc
	OpSetmb
	OpEq
	OpNeq
	OpGt
	OpLt
	OpGte
	OpLte
	OpJmp
	OpDjmp
	OpJmpe
	OpDjmpe
	OpCall
	OpRet
	OpPrts
	OpHlt
	OpLoadF64
	OpAddF64
	OpSubF64
	OpMulF64
	OpDivF64
	OpEqF64
	OpNeqF64
	OpGtF64
	OpLtF64
	OpGteF64
	OpLteF64
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpNot
	OpPush
	OpPop
	OpLoadM
	OpSetM

	opCount
)

// OpIgl is a sentinel tag for faults raised where no instruction record
// exists, such as a program counter outside the text region. It is
// never encoded and never dispatched.
const OpIgl Opcode = 0x7F

// ExtBase is the first opcode tag available to extension opcodes. Tags
// below it are reserved for the built-in set.
const ExtBase Opcode = 0x80

var opcodeNames = [...]string{
	"NOP",
	"LOAD",
	"LOADI",
	"ADD",
	"SUB",
	"MUL",
	"DIV",
	"MOD",
	"INC",
	"DEC",
	"ALOC",
	"SETMB",
	"EQ",
	"NEQ",
	"GT",
	"LT",
	"GTE",
	"LTE",
	"JMP",
	"DJMP",
	"JMPE",
	"DJMPE",
	"CALL",
	"RET",
	"PRTS",
	"HLT",
	"LOADF64",
	"ADDF64",
	"SUBF64",
	"MULF64",
	"DIVF64",
	"EQF64",
	"NEQF64",
	"GTF64",
	"LTF64",
	"GTEF64",
	"LTEF64",
	"SHL",
	"SHR",
	"AND",
	"OR",
	"XOR",
	"NOT",
	"PUSH",
	"POP",
	"LOADM",
	"SETM",
}

var opcodeIndex = make(map[string]Opcode)

func init() {
	for i, v := range opcodeNames {
		opcodeIndex[v] = Opcode(i)
	}
}

// String returns the mnemonic for op, or the numeric tag for tags
// outside the built-in set.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	if op == OpIgl {
		return "IGL"
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// OpcodeByName maps an upper-case mnemonic to its built-in opcode tag.
func OpcodeByName(name string) (Opcode, bool) {
	op, ok := opcodeIndex[name]
	return op, ok
}

// OperandClass describes what an operand slot of an opcode accepts.
// The encoder validates parsed operands against these; the respective
// record slot then carries the concrete OperandKind.
type OperandClass uint8

// Operand classes used in opcode signatures.
const (
	ClassNone OperandClass = iota
	ClassReg
	ClassInt
	ClassAddr        // label reference or absolute address
	ClassRegOrInt    // register or integer immediate
	ClassRegOrAddr   // register or label reference/absolute address
	ClassRegOrFloat  // register or float immediate
	ClassFloatOrAddr // float immediate or label reference/absolute address
)

// signatures is the fixed operand signature per built-in opcode. A
// ClassNone slot must be left empty in source.
var signatures = [opCount][3]OperandClass{
	OpNop:   {ClassNone, ClassNone, ClassNone},
	OpLoad:  {ClassReg, ClassAddr, ClassNone},
	OpLoadI: {ClassReg, ClassInt, ClassNone},
	OpAdd:   {ClassReg, ClassReg, ClassRegOrInt},
	OpSub:   {ClassReg, ClassReg, ClassRegOrInt},
	OpMul:   {ClassReg, ClassReg, ClassRegOrInt},
	OpDiv:   {ClassReg, ClassReg, ClassRegOrInt},
	OpMod:   {ClassReg, ClassReg, ClassRegOrInt},
	OpInc:   {ClassReg, ClassNone, ClassNone},
	OpDec:   {ClassReg, ClassNone, ClassNone},
	OpAloc:  {ClassReg, ClassNone, ClassNone},
	OpSetmb: {ClassAddr, ClassReg, ClassNone},
	OpEq:    {ClassReg, ClassReg, ClassNone},
	OpNeq:   {ClassReg, ClassReg, ClassNone},
	OpGt:    {ClassReg, ClassReg, ClassNone},
	OpLt:    {ClassReg, ClassReg, ClassNone},
	OpGte:   {ClassReg, ClassReg, ClassNone},
	OpLte:   {ClassReg, ClassReg, ClassNone},
	OpJmp:   {ClassAddr, ClassNone, ClassNone},
	OpDjmp:  {ClassAddr, ClassNone, ClassNone},
	OpJmpe:  {ClassAddr, ClassNone, ClassNone},
	OpDjmpe: {ClassAddr, ClassNone, ClassNone},
	OpCall:  {ClassAddr, ClassNone, ClassNone},
	OpRet:   {ClassNone, ClassNone, ClassNone},
	OpPrts:  {ClassRegOrAddr, ClassNone, ClassNone},
	OpHlt:   {ClassNone, ClassNone, ClassNone},

	OpLoadF64: {ClassReg, ClassFloatOrAddr, ClassNone},
	OpAddF64:  {ClassReg, ClassReg, ClassRegOrFloat},
	OpSubF64:  {ClassReg, ClassReg, ClassRegOrFloat},
	OpMulF64:  {ClassReg, ClassReg, ClassRegOrFloat},
	OpDivF64:  {ClassReg, ClassReg, ClassRegOrFloat},
	OpEqF64:   {ClassReg, ClassReg, ClassNone},
	OpNeqF64:  {ClassReg, ClassReg, ClassNone},
	OpGtF64:   {ClassReg, ClassReg, ClassNone},
	OpLtF64:   {ClassReg, ClassReg, ClassNone},
	OpGteF64:  {ClassReg, ClassReg, ClassNone},
	OpLteF64:  {ClassReg, ClassReg, ClassNone},
	OpShl:     {ClassReg, ClassRegOrInt, ClassNone},
	OpShr:     {ClassReg, ClassRegOrInt, ClassNone},
	OpAnd:     {ClassReg, ClassReg, ClassRegOrInt},
	OpOr:      {ClassReg, ClassReg, ClassRegOrInt},
	OpXor:     {ClassReg, ClassReg, ClassRegOrInt},
	OpNot:     {ClassReg, ClassNone, ClassNone},
	OpPush:    {ClassRegOrInt, ClassNone, ClassNone},
	OpPop:     {ClassReg, ClassNone, ClassNone},
	OpLoadM:   {ClassReg, ClassReg, ClassNone},
	OpSetM:    {ClassReg, ClassReg, ClassNone},
}

// Signature returns the operand signature of a built-in opcode.
func Signature(op Opcode) ([3]OperandClass, bool) {
	if op >= opCount {
		return [3]OperandClass{}, false
	}
	return signatures[op], true
}
