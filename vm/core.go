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
	"context"
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/martin-bucinskas/lumi-lang/ext"
)

// ctl is the control outcome of one opcode handler. The execute loop is
// the only place that acts on it; handlers never touch the PC.
type ctl struct {
	kind   ctlKind
	target int
}

type ctlKind uint8

const (
	ctlNext ctlKind = iota
	ctlJump
	ctlHalt
)

var (
	next = ctl{kind: ctlNext}
	halt = ctl{kind: ctlHalt}
)

func jump(target int) ctl { return ctl{kind: ctlJump, target: target} }

// Run executes the instance until it halts, faults or ctx is cancelled.
// Cancellation is checked at instruction boundaries, never
// mid-instruction. On a fault, Run returns the *Fault, the instance
// transitions to StatusFaulted and the PC is left at the faulting
// instruction. Calling Run on a halted instance returns immediately.
func (i *Instance) Run(ctx context.Context) error {
	for i.status == StatusRunning {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i.pc < 0 || i.pc >= len(i.mod.text) {
			return i.raise(&Fault{Code: FaultOutOfBoundsPC}, OpIgl)
		}
		in := &i.mod.text[i.pc]
		c, err := i.exec(in)
		i.insCount++
		if err != nil {
			f, ok := err.(*Fault)
			if !ok {
				f = &Fault{Code: FaultIOError, Err: err}
			}
			return i.raise(f, in.Op)
		}
		switch c.kind {
		case ctlNext:
			i.pc++
		case ctlJump:
			i.pc = c.target
		case ctlHalt:
			i.status = StatusHalted
		}
	}
	if i.status == StatusFaulted {
		return i.fault
	}
	return nil
}

// raise records f as the instance's terminal fault.
func (i *Instance) raise(f *Fault, op Opcode) error {
	f.PC, f.Op = i.pc, op
	i.fault = f
	i.status = StatusFaulted
	return f
}

// exec dispatches one instruction record. A record whose operand kinds
// do not match its opcode signature is treated as an unknown opcode;
// the encoder never emits such a record, but modules can be built by
// hand.
func (i *Instance) exec(in *Instr) (ctl, error) {
	switch in.Op {
	case OpNop:
		return next, nil

	case OpLoad:
		r, err := i.regIndex(in.Args[0])
		if err != nil {
			return next, err
		}
		addr, err := addrOf(in.Args[1])
		if err != nil {
			return next, err
		}
		v, err := i.readWord(addr)
		if err != nil {
			return next, err
		}
		i.reg[r] = v
		return next, nil

	case OpLoadI:
		r, err := i.regIndex(in.Args[0])
		if err != nil {
			return next, err
		}
		if in.Args[1].Kind != KindImmediateInt {
			return next, newFault(FaultUnknownOpcode)
		}
		i.reg[r] = in.Args[1].Int
		return next, nil

	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return i.arith(in)

	case OpInc, OpDec:
		r, err := i.regIndex(in.Args[0])
		if err != nil {
			return next, err
		}
		if in.Op == OpInc {
			i.reg[r]++
		} else {
			i.reg[r]--
		}
		return next, nil

	case OpAloc:
		n, err := i.val(in.Args[0])
		if err != nil {
			return next, err
		}
		if n < 0 || n > int64(MemLimit-len(i.mem)) {
			return next, newFault(FaultOutOfBoundsMemory)
		}
		i.mem = append(i.mem, make([]byte, n)...)
		return next, nil

	case OpSetmb:
		addr, err := addrOf(in.Args[0])
		if err != nil {
			return next, err
		}
		v, err := i.val(in.Args[1])
		if err != nil {
			return next, err
		}
		return next, i.WriteByte(addr, byte(v))

	case OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte:
		a, err := i.val(in.Args[0])
		if err != nil {
			return next, err
		}
		b, err := i.val(in.Args[1])
		if err != nil {
			return next, err
		}
		switch in.Op {
		case OpEq:
			i.flag = a == b
		case OpNeq:
			i.flag = a != b
		case OpGt:
			i.flag = a > b
		case OpLt:
			i.flag = a < b
		case OpGte:
			i.flag = a >= b
		case OpLte:
			i.flag = a <= b
		}
		return next, nil

	case OpJmp, OpDjmp:
		t, err := addrOf(in.Args[0])
		if err != nil {
			return next, err
		}
		return jump(t), nil

	case OpJmpe, OpDjmpe:
		if !i.flag {
			return next, nil
		}
		t, err := addrOf(in.Args[0])
		if err != nil {
			return next, err
		}
		return jump(t), nil

	case OpCall:
		t, err := addrOf(in.Args[0])
		if err != nil {
			return next, err
		}
		i.calls = append(i.calls, i.pc+1)
		return jump(t), nil

	case OpRet:
		n := len(i.calls)
		if n == 0 {
			return next, newFault(FaultStackUnderflow)
		}
		t := i.calls[n-1]
		i.calls = i.calls[:n-1]
		return jump(t), nil

	case OpPrts:
		return next, i.prts(in.Args[0])

	case OpHlt:
		return halt, nil

	case OpLoadF64:
		r, err := i.regIndex(in.Args[0])
		if err != nil {
			return next, err
		}
		switch a := in.Args[1]; a.Kind {
		case KindImmediateFloat:
			i.freg[r] = a.Float
			return next, nil
		case KindAbsoluteAddress:
			v, err := i.readWord(int(a.Int))
			if err != nil {
				return next, err
			}
			i.freg[r] = math.Float64frombits(uint64(v))
			return next, nil
		}
		return next, newFault(FaultUnknownOpcode)

	case OpAddF64, OpSubF64, OpMulF64, OpDivF64:
		return i.arithF64(in)

	case OpEqF64, OpNeqF64, OpGtF64, OpLtF64, OpGteF64, OpLteF64:
		a, err := i.fval(in.Args[0])
		if err != nil {
			return next, err
		}
		b, err := i.fval(in.Args[1])
		if err != nil {
			return next, err
		}
		switch in.Op {
		case OpEqF64:
			i.flag = a == b
		case OpNeqF64:
			i.flag = a != b
		case OpGtF64:
			i.flag = a > b
		case OpLtF64:
			i.flag = a < b
		case OpGteF64:
			i.flag = a >= b
		case OpLteF64:
			i.flag = a <= b
		}
		return next, nil

	case OpShl, OpShr:
		r, err := i.regIndex(in.Args[0])
		if err != nil {
			return next, err
		}
		n, err := i.val(in.Args[1])
		if err != nil {
			return next, err
		}
		sh := uint64(n) & 63
		if in.Op == OpShl {
			i.reg[r] <<= sh
		} else {
			i.reg[r] >>= sh
		}
		return next, nil

	case OpAnd, OpOr, OpXor:
		d, err := i.regIndex(in.Args[0])
		if err != nil {
			return next, err
		}
		a, err := i.val(in.Args[1])
		if err != nil {
			return next, err
		}
		b, err := i.val(in.Args[2])
		if err != nil {
			return next, err
		}
		switch in.Op {
		case OpAnd:
			i.reg[d] = a & b
		case OpOr:
			i.reg[d] = a | b
		case OpXor:
			i.reg[d] = a ^ b
		}
		return next, nil

	case OpNot:
		r, err := i.regIndex(in.Args[0])
		if err != nil {
			return next, err
		}
		i.reg[r] = ^i.reg[r]
		return next, nil

	case OpPush:
		v, err := i.val(in.Args[0])
		if err != nil {
			return next, err
		}
		i.stack = append(i.stack, v)
		return next, nil

	case OpPop:
		r, err := i.regIndex(in.Args[0])
		if err != nil {
			return next, err
		}
		n := len(i.stack)
		if n == 0 {
			return next, newFault(FaultStackUnderflow)
		}
		i.reg[r] = i.stack[n-1]
		i.stack = i.stack[:n-1]
		return next, nil

	case OpLoadM:
		r, err := i.regIndex(in.Args[0])
		if err != nil {
			return next, err
		}
		addr, err := i.val(in.Args[1])
		if err != nil {
			return next, err
		}
		v, err := i.readWord(int(addr))
		if err != nil {
			return next, err
		}
		i.reg[r] = v
		return next, nil

	case OpSetM:
		addr, err := i.val(in.Args[0])
		if err != nil {
			return next, err
		}
		v, err := i.val(in.Args[1])
		if err != nil {
			return next, err
		}
		return next, i.writeWord(int(addr), v)
	}

	if in.Op >= ExtBase {
		if k := int(in.Op - ExtBase); k < len(i.extFns) {
			return next, i.extFns[k](i, extArgs(in))
		}
	}
	return next, newFault(FaultUnknownOpcode)
}

// arith executes the three-operand integer ops. Destination first,
// third operand register or immediate. Results wrap; only a zero
// divisor faults.
func (i *Instance) arith(in *Instr) (ctl, error) {
	d, err := i.regIndex(in.Args[0])
	if err != nil {
		return next, err
	}
	a, err := i.val(in.Args[1])
	if err != nil {
		return next, err
	}
	b, err := i.val(in.Args[2])
	if err != nil {
		return next, err
	}
	switch in.Op {
	case OpAdd:
		i.reg[d] = a + b
	case OpSub:
		i.reg[d] = a - b
	case OpMul:
		i.reg[d] = a * b
	case OpDiv:
		if b == 0 {
			return next, newFault(FaultDivisionByZero)
		}
		i.reg[d] = a / b
	case OpMod:
		if b == 0 {
			return next, newFault(FaultDivisionByZero)
		}
		i.reg[d] = a % b
	}
	return next, nil
}

// arithF64 executes the three-operand float ops on the float register
// file. Division follows IEEE 754: a zero divisor yields an infinity or
// NaN, never a fault.
func (i *Instance) arithF64(in *Instr) (ctl, error) {
	d, err := i.regIndex(in.Args[0])
	if err != nil {
		return next, err
	}
	a, err := i.fval(in.Args[1])
	if err != nil {
		return next, err
	}
	b, err := i.fval(in.Args[2])
	if err != nil {
		return next, err
	}
	switch in.Op {
	case OpAddF64:
		i.freg[d] = a + b
	case OpSubF64:
		i.freg[d] = a - b
	case OpMulF64:
		i.freg[d] = a * b
	case OpDivF64:
		i.freg[d] = a / b
	}
	return next, nil
}

// prts resolves the PRTS addressing mode at execution time: a register
// operand prints the register's numeric value, an address operand the
// NUL-terminated byte run at that address.
func (i *Instance) prts(a Operand) error {
	switch a.Kind {
	case KindRegister:
		v, err := i.Reg(int(a.Int))
		if err != nil {
			return err
		}
		if _, err := io.WriteString(i.Output(), strconv.FormatInt(v, 10)); err != nil {
			return &Fault{Code: FaultIOError, Err: err}
		}
		return nil
	case KindAbsoluteAddress:
		addr := int(a.Int)
		if addr < 0 || addr >= len(i.mem) {
			return newFault(FaultOutOfBoundsMemory)
		}
		if _, err := io.WriteString(i.Output(), DecodeString(i.mem, addr)); err != nil {
			return &Fault{Code: FaultIOError, Err: err}
		}
		return nil
	}
	return newFault(FaultUnknownOpcode)
}

// regIndex returns the register index of a KindRegister operand.
func (i *Instance) regIndex(a Operand) (int, error) {
	if a.Kind != KindRegister {
		return 0, newFault(FaultUnknownOpcode)
	}
	n := int(a.Int)
	if n < 0 || n >= RegisterCount {
		return 0, newFault(FaultInvalidRegister)
	}
	return n, nil
}

// val resolves a register or integer-immediate operand to its value.
func (i *Instance) val(a Operand) (int64, error) {
	switch a.Kind {
	case KindRegister:
		return i.Reg(int(a.Int))
	case KindImmediateInt:
		return a.Int, nil
	}
	return 0, newFault(FaultUnknownOpcode)
}

// fval resolves a float-register or float-immediate operand.
func (i *Instance) fval(a Operand) (float64, error) {
	switch a.Kind {
	case KindRegister:
		n := int(a.Int)
		if n < 0 || n >= RegisterCount {
			return 0, newFault(FaultInvalidRegister)
		}
		return i.freg[n], nil
	case KindImmediateFloat:
		return a.Float, nil
	}
	return 0, newFault(FaultUnknownOpcode)
}

// addrOf returns the offset of an absolute-address operand.
func addrOf(a Operand) (int, error) {
	if a.Kind != KindAbsoluteAddress {
		return 0, newFault(FaultUnknownOpcode)
	}
	return int(a.Int), nil
}

// readWord reads one little-endian machine word from instance memory.
// The bounds check must hold for any addr, including near-MaxInt values
// where addr+WordSize would wrap.
func (i *Instance) readWord(addr int) (int64, error) {
	if addr < 0 || addr > len(i.mem)-WordSize {
		return 0, newFault(FaultOutOfBoundsMemory)
	}
	return int64(binary.LittleEndian.Uint64(i.mem[addr:])), nil
}

// writeWord stores one little-endian machine word into instance memory.
func (i *Instance) writeWord(addr int, v int64) error {
	if addr < 0 || addr > len(i.mem)-WordSize {
		return newFault(FaultOutOfBoundsMemory)
	}
	binary.LittleEndian.PutUint64(i.mem[addr:], uint64(v))
	return nil
}

// extArgs converts a record's operand slots to SDK args. The two kind
// enumerations are declared in the same order.
func extArgs(in *Instr) [3]ext.Arg {
	var args [3]ext.Arg
	for k, a := range in.Args {
		args[k] = ext.Arg{Kind: ext.ArgKind(a.Kind), Int: a.Int, Float: a.Float}
	}
	return args
}
