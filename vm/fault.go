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

import "fmt"

// FaultCode enumerates terminal run-time faults.
type FaultCode uint8

// Fault codes. A fault halts the instance that raised it and no other.
const (
	FaultInvalidRegister FaultCode = iota
	FaultOutOfBoundsMemory
	FaultOutOfBoundsPC
	FaultDivisionByZero
	FaultStackUnderflow
	FaultUnknownOpcode
	FaultIOError
)

var faultNames = [...]string{
	"invalid register",
	"out of bounds memory access",
	"out of bounds program counter",
	"division by zero",
	"call stack underflow",
	"unknown opcode",
	"I/O error",
}

func (c FaultCode) String() string {
	if int(c) < len(faultNames) {
		return faultNames[c]
	}
	return fmt.Sprintf("fault(%d)", uint8(c))
}

// Fault is a terminal run-time error, scoped to the instance that
// raised it. PC and Op identify the faulting instruction. Err carries
// the underlying cause for FaultIOError (sink write or host call
// failures).
type Fault struct {
	Code FaultCode
	PC   int
	Op   Opcode
	Err  error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%v at pc=%d (%v): %v", f.Code, f.PC, f.Op, f.Err)
	}
	return fmt.Sprintf("%v at pc=%d (%v)", f.Code, f.PC, f.Op)
}

// Cause returns the underlying error, if any.
func (f *Fault) Cause() error { return f.Err }

// Unwrap returns the underlying error, if any.
func (f *Fault) Unwrap() error { return f.Err }

func newFault(code FaultCode) *Fault { return &Fault{Code: code} }
