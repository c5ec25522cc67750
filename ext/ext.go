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

// Package ext is the SDK for lumi native extension opcodes.
//
// An extension module is a Go plugin that exports a symbol named Opcodes:
//
//	func Opcodes() map[string]ext.HostFunc
//
// The returned map binds opcode mnemonics to host functions. A bound
// opcode is dispatched from the VM execute loop exactly like a built-in
// one: the call runs synchronously on the calling VM's goroutine and
// operates on that instance only, through the Machine interface.
package ext

import "io"

// ArgKind identifies the addressing mode of an operand slot as it was
// encoded by the assembler.
type ArgKind uint8

// Operand slot kinds. ArgNone marks an unused slot.
const (
	ArgNone ArgKind = iota
	ArgRegister
	ArgInt
	ArgFloat
	ArgAddress
)

// Arg is one decoded operand slot. For ArgRegister, Int holds the
// register index; for ArgAddress, the absolute byte or record offset;
// for ArgFloat, Float holds the immediate.
type Arg struct {
	Kind  ArgKind
	Int   int64
	Float float64
}

// Machine is the capability a host function gets over the VM instance
// executing it. Register and memory accessors validate their arguments
// the same way built-in opcodes do and return an error on a bad index
// or address; a host function should propagate such errors unchanged so
// that the VM can fault the instance.
type Machine interface {
	// Reg returns the value of register n.
	Reg(n int) (int64, error)
	// SetReg sets register n to v.
	SetReg(n int, v int64) error
	// ReadByte reads the byte at the given memory address.
	ReadByte(addr int) (byte, error)
	// WriteByte stores b at the given memory address.
	WriteByte(addr int, b byte) error
	// MemSize returns the current size of addressable memory in bytes.
	MemSize() int
	// Flag reports the equality flag.
	Flag() bool
	// SetFlag sets the equality flag.
	SetFlag(v bool)
	// Output returns the instance's output sink.
	Output() io.Writer
}

// HostFunc is a native opcode implementation. A non-nil error faults
// the calling instance.
type HostFunc func(m Machine, args [3]Arg) error
