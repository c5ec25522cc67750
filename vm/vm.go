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
	"io"

	"github.com/pkg/errors"

	"github.com/martin-bucinskas/lumi-lang/ext"
)

// RegisterCount is the size of each register file.
const RegisterCount = 32

// MemLimit is the maximum addressable memory of an instance in bytes.
// An ALOC request that would grow memory past it faults the requesting
// instance instead of exhausting the process.
const MemLimit = 1 << 30

// Status is the life-cycle state of an Instance.
type Status uint8

// Instance states. Halted and Faulted are terminal.
const (
	StatusRunning Status = iota
	StatusHalted
	StatusFaulted
)

var statusNames = [...]string{"running", "halted", "faulted"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "status(?)"
}

// Instance is one running copy of a Module: register file, equality
// flag, program counter, call stack and private memory. Instances share
// nothing; any number may run the same Module concurrently.
type Instance struct {
	mod      *Module
	pc       int
	reg      [RegisterCount]int64
	freg     [RegisterCount]float64
	flag     bool
	calls    []int
	stack    []int64
	mem      []byte
	status   Status
	fault    *Fault
	out      io.Writer
	insCount int64

	extPaths []string
	bound    map[string]ext.HostFunc
	extFns   []ext.HostFunc // indexed by tag-ExtBase, aligned with mod.ExtOpcodes
}

// Option configures an Instance at creation time.
type Option func(*Instance) error

// Output sets the byte sink PRTS and host functions write to. Without
// it, printed output is discarded.
func Output(w io.Writer) Option {
	return func(i *Instance) error {
		i.out = w
		return nil
	}
}

// BindOpcode binds a host function to an extension opcode name without
// going through a plugin. Binding a name twice is an ExtensionLoadError.
func BindOpcode(name string, fn ext.HostFunc) Option {
	return func(i *Instance) error {
		if _, ok := i.bound[name]; ok {
			return &ExtensionLoadError{Name: name, Reason: "opcode bound twice"}
		}
		i.bound[name] = fn
		return nil
	}
}

// Extensions adds native extension modules to load at startup. Each
// path must be a Go plugin exporting the Opcodes symbol described in
// package ext. Any open, lookup or bind failure prevents the instance
// from starting.
func Extensions(paths ...string) Option {
	return func(i *Instance) error {
		i.extPaths = append(i.extPaths, paths...)
		return nil
	}
}

// SetOptions applies the provided options.
func (i *Instance) SetOptions(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return err
		}
	}
	return nil
}

// New creates a VM instance for the given module: registers zeroed,
// flag cleared, call stack empty, PC at the module entry, memory a
// fresh copy of data plus a zero-filled bss region. Extension modules
// are opened and every extension opcode the module names is bound; a
// failure there returns an ExtensionLoadError and no instance.
func New(mod *Module, opts ...Option) (*Instance, error) {
	if mod.MemSize() > MemLimit {
		return nil, errors.Errorf("module requires %d bytes of memory, limit is %d", mod.MemSize(), MemLimit)
	}
	i := &Instance{
		mod:    mod,
		pc:     mod.Entry(),
		status: StatusRunning,
		bound:  make(map[string]ext.HostFunc),
	}
	if err := i.SetOptions(opts...); err != nil {
		return nil, err
	}
	for _, path := range i.extPaths {
		if err := i.bindPlugin(path); err != nil {
			return nil, err
		}
	}
	names := mod.ExtOpcodes()
	i.extFns = make([]ext.HostFunc, len(names))
	for k, name := range names {
		fn, ok := i.bound[name]
		if !ok {
			return nil, &ExtensionLoadError{Name: name, Reason: "no binding for extension opcode"}
		}
		i.extFns[k] = fn
	}
	i.mem = make([]byte, mod.MemSize())
	copy(i.mem, mod.Data())
	return i, nil
}

// PC returns the current program counter.
func (i *Instance) PC() int { return i.pc }

// Status returns the instance state.
func (i *Instance) Status() Status { return i.status }

// Fault returns the fault that stopped the instance, or nil.
func (i *Instance) Fault() *Fault { return i.fault }

// InstructionCount returns the number of instructions executed so far.
func (i *Instance) InstructionCount() int64 { return i.insCount }

// Registers returns a copy of the integer register file.
func (i *Instance) Registers() []int64 {
	r := make([]int64, RegisterCount)
	copy(r, i.reg[:])
	return r
}

// FloatRegisters returns a copy of the float register file.
func (i *Instance) FloatRegisters() []float64 {
	r := make([]float64, RegisterCount)
	copy(r, i.freg[:])
	return r
}

// CallDepth returns the current call stack depth.
func (i *Instance) CallDepth() int { return len(i.calls) }

// StackDepth returns the current data stack depth.
func (i *Instance) StackDepth() int { return len(i.stack) }

// Reg returns the value of register n.
func (i *Instance) Reg(n int) (int64, error) {
	if n < 0 || n >= RegisterCount {
		return 0, newFault(FaultInvalidRegister)
	}
	return i.reg[n], nil
}

// SetReg sets register n to v.
func (i *Instance) SetReg(n int, v int64) error {
	if n < 0 || n >= RegisterCount {
		return newFault(FaultInvalidRegister)
	}
	i.reg[n] = v
	return nil
}

// ReadByte reads one byte of instance memory.
func (i *Instance) ReadByte(addr int) (byte, error) {
	if addr < 0 || addr >= len(i.mem) {
		return 0, newFault(FaultOutOfBoundsMemory)
	}
	return i.mem[addr], nil
}

// WriteByte stores one byte of instance memory.
func (i *Instance) WriteByte(addr int, b byte) error {
	if addr < 0 || addr >= len(i.mem) {
		return newFault(FaultOutOfBoundsMemory)
	}
	i.mem[addr] = b
	return nil
}

// MemSize returns the current addressable memory size in bytes,
// including any heap grown by ALOC.
func (i *Instance) MemSize() int { return len(i.mem) }

// Flag reports the equality flag.
func (i *Instance) Flag() bool { return i.flag }

// SetFlag sets the equality flag.
func (i *Instance) SetFlag(v bool) { i.flag = v }

// Output returns the instance's output sink.
func (i *Instance) Output() io.Writer {
	if i.out == nil {
		return io.Discard
	}
	return i.out
}

var _ ext.Machine = (*Instance)(nil)
