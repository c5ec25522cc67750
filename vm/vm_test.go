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

package vm_test

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/martin-bucinskas/lumi-lang/asm"
	"github.com/martin-bucinskas/lumi-lang/vm"
)

// R maps register index to expected value after a run.
type R map[int]int64

func setup(t *testing.T, src string, opts ...vm.Option) *vm.Instance {
	t.Helper()
	m, err := asm.Assemble(t.Name(), strings.NewReader(src))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	i, err := vm.New(m, opts...)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return i
}

func check(t *testing.T, i *vm.Instance, want R, flag bool) {
	t.Helper()
	if err := i.Run(context.Background()); err != nil {
		t.Fatalf("%+v", err)
	}
	if i.Status() != vm.StatusHalted {
		t.Fatalf("status %v, want halted", i.Status())
	}
	reg := i.Registers()
	for n, v := range want {
		if reg[n] != v {
			t.Errorf("$%d = %d, want %d", n, reg[n], v)
		}
	}
	if i.Flag() != flag {
		t.Errorf("flag = %v, want %v", i.Flag(), flag)
	}
}

var runTests = [...]struct {
	name string
	code string
	reg  R
	flag bool
}{
	{"nop", "NOP\nHLT", nil, false},
	{"loadi", "LOADI $1 1000\nHLT", R{1: 1000}, false},
	{"loadi-negative", "LOADI $1 -42\nHLT", R{1: -42}, false},
	{"add", "LOADI $1 2\nLOADI $2 3\nADD $3 $1 $2\nHLT", R{3: 5}, false},
	{"add-imm", "LOADI $1 2\nADD $3 $1 40\nHLT", R{3: 42}, false},
	{"add-in-place", "LOADI $1 2\nADD $1 $1 $1\nHLT", R{1: 4}, false},
	{"sub", "LOADI $1 2\nLOADI $2 3\nSUB $3 $1 $2\nHLT", R{3: -1}, false},
	{"mul", "LOADI $1 -5\nMUL $3 $1 5\nHLT", R{3: -25}, false},
	{"div", "LOADI $1 26\nDIV $3 $1 5\nHLT", R{3: 5}, false},
	{"div-truncates", "LOADI $1 -7\nDIV $3 $1 2\nHLT", R{3: -3}, false},
	{"mod", "LOADI $1 26\nMOD $3 $1 5\nHLT", R{3: 1}, false},
	{"inc", "LOADI $1 9\nINC $1\nHLT", R{1: 10}, false},
	{"dec", "LOADI $1 9\nDEC $1\nHLT", R{1: 8}, false},
	{"add-wraps", "LOADI $1 9223372036854775807\nADD $1 $1 1\nHLT", R{1: -9223372036854775808}, false},
	{"sub-wraps", "LOADI $1 -9223372036854775808\nSUB $1 $1 1\nHLT", R{1: 9223372036854775807}, false},
	{"eq-true", "LOADI $1 5\nLOADI $2 5\nEQ $1 $2\nHLT", nil, true},
	{"eq-false", "LOADI $1 5\nLOADI $2 6\nEQ $1 $2\nHLT", nil, false},
	{"neq", "LOADI $1 5\nLOADI $2 6\nNEQ $1 $2\nHLT", nil, true},
	{"gt", "LOADI $1 6\nLOADI $2 5\nGT $1 $2\nHLT", nil, true},
	{"lt", "LOADI $1 6\nLOADI $2 5\nLT $1 $2\nHLT", nil, false},
	{"gte-equal", "LOADI $1 5\nLOADI $2 5\nGTE $1 $2\nHLT", nil, true},
	{"lte", "LOADI $1 4\nLOADI $2 5\nLTE $1 $2\nHLT", nil, true},
	{"jmp", "JMP @over\nLOADI $1 1\nover: HLT", R{1: 0}, false},
	{"djmp", "DJMP @over\nLOADI $1 1\nover: HLT", R{1: 0}, false},
	{"jmpe-taken", "LOADI $1 5\nEQ $1 $1\nJMPE @over\nLOADI $2 1\nover: HLT", R{2: 0}, true},
	{"jmpe-not-taken", "LOADI $1 5\nLOADI $2 6\nEQ $1 $2\nDJMPE @over\nLOADI $3 1\nover: HLT", R{3: 1}, false},
	{"call-ret", "CALL @sub\nHLT\nsub: LOADI $1 7\nRET", R{1: 7}, false},
	{"aloc", "LOADI $1 64\nALOC $1\nHLT", R{1: 64}, false},
	{"shl", "LOADI $1 3\nSHL $1 4\nHLT", R{1: 48}, false},
	{"shr", "LOADI $1 -48\nSHR $1 4\nHLT", R{1: -3}, false},
	{"shl-by-reg", "LOADI $1 1\nLOADI $2 10\nSHL $1 $2\nHLT", R{1: 1024}, false},
	{"and", "LOADI $1 12\nLOADI $2 10\nAND $3 $1 $2\nHLT", R{3: 8}, false},
	{"or", "LOADI $1 12\nOR $3 $1 3\nHLT", R{3: 15}, false},
	{"xor", "LOADI $1 12\nXOR $3 $1 10\nHLT", R{3: 6}, false},
	{"not", "LOADI $1 0\nNOT $1\nHLT", R{1: -1}, false},
	{"push-pop", "LOADI $1 5\nPUSH $1\nPUSH 9\nPOP $2\nPOP $3\nHLT", R{2: 9, 3: 5}, false},
}

func TestRun(t *testing.T) {
	for _, test := range runTests {
		t.Run(test.name, func(t *testing.T) {
			i := setup(t, ".text\nmain:\n"+test.code)
			check(t, i, test.reg, test.flag)
		})
	}
}

// The canonical factorial program: load-from-data, multiply-accumulate,
// conditional exit. Pins the load/compare/jump interplay in one place.
func TestFactorial(t *testing.T) {
	src := `
.data
N:       .integer 5
RESULT:  .integer 1
COUNTER: .integer 1
.text
main:    LOAD $0 @N
         LOAD $1 @RESULT
         LOAD $2 @COUNTER
LOOP:    MUL $1 $1 $2
         EQ $2 $0
         JMPE @END
         INC $2
         JMP @LOOP
END:     HLT
`
	i := setup(t, src)
	check(t, i, R{0: 5, 1: 120, 2: 5}, true)
}

func TestLoadFromData(t *testing.T) {
	src := `
.data
answer: .integer 42
.text
main:   LOAD $1 @answer
        HLT
`
	i := setup(t, src)
	check(t, i, R{1: 42}, false)
}

func TestBssReadsZero(t *testing.T) {
	src := `
.data
pad: .integer 7
.bss
slot: .integer
.text
main:   LOAD $1 @slot
        HLT
`
	i := setup(t, src)
	check(t, i, R{1: 0}, false)
}

func TestSetmb(t *testing.T) {
	src := `
.bss
buf: .asciiz 8
.text
main:   LOADI $1 65
        SETMB @buf $1
        LOAD $2 @buf
        HLT
`
	i := setup(t, src)
	check(t, i, R{2: 65}, false)
}

func TestPrtsRegister(t *testing.T) {
	var buf bytes.Buffer
	i := setup(t, ".text\nmain: LOADI $1 -37\nPRTS $1\nHLT", vm.Output(&buf))
	check(t, i, nil, false)
	if got := buf.String(); got != "-37" {
		t.Errorf("output %q, want %q", got, "-37")
	}
}

func TestPrtsString(t *testing.T) {
	src := `
.data
greet: .asciiz "hello, world"
.text
main:   PRTS @greet
        HLT
`
	var buf bytes.Buffer
	i := setup(t, src, vm.Output(&buf))
	check(t, i, nil, false)
	if got := buf.String(); got != "hello, world" {
		t.Errorf("output %q, want %q", got, "hello, world")
	}
}

var faultTests = [...]struct {
	name string
	code string
	want vm.FaultCode
}{
	{"div-by-zero", "LOADI $1 1\nDIV $2 $1 0\nHLT", vm.FaultDivisionByZero},
	{"mod-by-zero", "LOADI $1 1\nMOD $2 $1 0\nHLT", vm.FaultDivisionByZero},
	{"ret-underflow", "RET", vm.FaultStackUnderflow},
	{"pop-underflow", "POP $1", vm.FaultStackUnderflow},
	{"run-off-end", "NOP", vm.FaultOutOfBoundsPC},
	{"aloc-negative", "LOADI $1 -8\nALOC $1\nHLT", vm.FaultOutOfBoundsMemory},
	{"aloc-huge", "LOADI $1 9223372036854775807\nALOC $1\nHLT", vm.FaultOutOfBoundsMemory},
	{"setm-out-of-bounds", "LOADI $1 9000\nLOADI $2 1\nSETM $1 $2\nHLT", vm.FaultOutOfBoundsMemory},
}

func TestFaults(t *testing.T) {
	for _, test := range faultTests {
		t.Run(test.name, func(t *testing.T) {
			i := setup(t, ".text\nmain:\n"+test.code)
			err := i.Run(context.Background())
			f, ok := err.(*vm.Fault)
			if !ok {
				t.Fatalf("got %v, want a fault", err)
			}
			if f.Code != test.want {
				t.Errorf("fault %v, want %v", f.Code, test.want)
			}
			if i.Status() != vm.StatusFaulted {
				t.Errorf("status %v, want faulted", i.Status())
			}
			if i.Fault() != f {
				t.Errorf("stored fault differs from returned fault")
			}
		})
	}
}

// A record the encoder would never emit still has to fault cleanly.
func TestInvalidRegisterFault(t *testing.T) {
	syms := vm.NewSymbolTable()
	if err := syms.Define("main", vm.SegText, 0); err != nil {
		t.Fatal(err)
	}
	text := []vm.Instr{
		{Op: vm.OpInc, Args: [3]vm.Operand{vm.Reg(40)}},
		{Op: vm.OpHlt},
	}
	m, err := vm.NewModule(nil, 0, text, syms, nil, "main")
	if err != nil {
		t.Fatal(err)
	}
	i, err := vm.New(m)
	if err != nil {
		t.Fatal(err)
	}
	f, ok := i.Run(context.Background()).(*vm.Fault)
	if !ok || f.Code != vm.FaultInvalidRegister {
		t.Fatalf("got %v, want invalid register fault", f)
	}
	if f.PC != 0 || f.Op != vm.OpInc {
		t.Errorf("fault at pc=%d op=%v, want pc=0 op=INC", f.PC, f.Op)
	}
}

// The float file is separate from the integer file; LOADF64 consumes
// either a float immediate or a .float data word.
func TestFloatOps(t *testing.T) {
	src := `
.data
ratio:  .float 2.5
.text
main:   LOADF64 $1 @ratio
        LOADF64 $2 1.5
        ADDF64 $3 $1 $2
        SUBF64 $4 $1 $2
        MULF64 $5 $1 $2
        DIVF64 $6 $1 0.5
        MULF64 $7 $1 2.0
        GTF64 $7 $1
        HLT
`
	i := setup(t, src)
	check(t, i, nil, true)
	freg := i.FloatRegisters()
	want := map[int]float64{1: 2.5, 2: 1.5, 3: 4, 4: 1, 5: 3.75, 6: 5, 7: 5}
	for n, v := range want {
		if freg[n] != v {
			t.Errorf("float $%d = %g, want %g", n, freg[n], v)
		}
	}
}

// IEEE semantics: a zero float divisor yields an infinity, not a fault.
func TestDivF64ByZero(t *testing.T) {
	i := setup(t, ".text\nmain: LOADF64 $1 1.0\nDIVF64 $2 $1 0.0\nHLT")
	check(t, i, nil, false)
	if got := i.FloatRegisters()[2]; !math.IsInf(got, 1) {
		t.Errorf("float $2 = %g, want +Inf", got)
	}
}

// SETM and LOADM address memory through a register.
func TestLoadMSetM(t *testing.T) {
	src := `
.bss
slot:   .integer
.text
main:   LOADI $1 0
        LOADI $2 77
        SETM $1 $2
        LOADM $3 $1
        HLT
`
	i := setup(t, src)
	check(t, i, R{3: 77}, false)
}

// A huge absolute address in a hand-built record must fault, not panic.
func TestLoadHugeAddressFault(t *testing.T) {
	syms := vm.NewSymbolTable()
	if err := syms.Define("main", vm.SegText, 0); err != nil {
		t.Fatal(err)
	}
	text := []vm.Instr{
		{Op: vm.OpLoad, Args: [3]vm.Operand{vm.Reg(1), vm.Addr(math.MaxInt64 - 4)}},
		{Op: vm.OpHlt},
	}
	m, err := vm.NewModule(make([]byte, 16), 0, text, syms, nil, "main")
	if err != nil {
		t.Fatal(err)
	}
	i, err := vm.New(m)
	if err != nil {
		t.Fatal(err)
	}
	f, ok := i.Run(context.Background()).(*vm.Fault)
	if !ok || f.Code != vm.FaultOutOfBoundsMemory {
		t.Fatalf("got %v, want out of bounds memory fault", f)
	}
}

// An out-of-bounds PC has no record to blame; the fault carries the
// illegal-opcode sentinel instead of a real mnemonic.
func TestRunOffEndDiagnostics(t *testing.T) {
	i := setup(t, ".text\nmain: NOP")
	f, ok := i.Run(context.Background()).(*vm.Fault)
	if !ok || f.Code != vm.FaultOutOfBoundsPC {
		t.Fatalf("got %v, want out of bounds PC fault", f)
	}
	if f.Op != vm.OpIgl {
		t.Errorf("fault op %v, want %v", f.Op, vm.OpIgl)
	}
	if f.PC != 1 {
		t.Errorf("fault pc %d, want 1", f.PC)
	}
}

func TestRunCancelled(t *testing.T) {
	i := setup(t, ".text\nmain: DJMP @main")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := i.Run(ctx); err != context.Canceled {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	// the instance is still runnable after a cancellation
	if i.Status() != vm.StatusRunning {
		t.Errorf("status %v, want running", i.Status())
	}
}

func TestInstancesShareModule(t *testing.T) {
	m, err := asm.Assemble(t.Name(), strings.NewReader(`
.data
msg: .asciiz "x"
.text
main:   LOADI $1 10
        SETMB @msg $1
        HLT
`))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for k := 0; k < 2; k++ {
		i, err := vm.New(m)
		if err != nil {
			t.Fatal(err)
		}
		if err = i.Run(context.Background()); err != nil {
			t.Fatalf("%+v", err)
		}
		// a prior instance's SETMB must not leak into fresh memory
		b, err := i.ReadByte(0)
		if err != nil {
			t.Fatal(err)
		}
		if b != 10 {
			t.Errorf("run %d: mem[0] = %d, want 10", k, b)
		}
	}
	if m.Data()[0] != 'x' {
		t.Errorf("module data mutated to %q", m.Data()[:1])
	}
}
