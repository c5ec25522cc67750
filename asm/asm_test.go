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

package asm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/martin-bucinskas/lumi-lang/asm"
	"github.com/martin-bucinskas/lumi-lang/vm"
)

func assemble(t *testing.T, src string, opts ...asm.Option) *vm.Module {
	t.Helper()
	m, err := asm.Assemble(t.Name(), strings.NewReader(src), opts...)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return m
}

func TestLayout(t *testing.T) {
	src := `
; leading comment
.data
greet:  .asciiz "hey"       ; 4 bytes with the NUL
count:  .integer 7
.bss
buf:    .asciiz 16
slot:   .float
.text
main:   NOP
loop:   DJMP @loop
`
	m := assemble(t, src)

	wantData := append([]byte("hey\x00"), 7, 0, 0, 0, 0, 0, 0, 0)
	if !bytes.Equal(m.Data(), wantData) {
		t.Errorf("data %v, want %v", m.Data(), wantData)
	}
	if m.BssSize() != 24 {
		t.Errorf("bss size %d, want 24", m.BssSize())
	}
	if m.Entry() != 0 {
		t.Errorf("entry %d, want 0", m.Entry())
	}

	want := []vm.Symbol{
		{Name: "greet", Seg: vm.SegData, Off: 0},
		{Name: "count", Seg: vm.SegData, Off: 4},
		{Name: "buf", Seg: vm.SegBss, Off: 0},
		{Name: "slot", Seg: vm.SegBss, Off: 16},
		{Name: "main", Seg: vm.SegText, Off: 0},
		{Name: "loop", Seg: vm.SegText, Off: 1},
	}
	got := m.Symbols().Symbols()
	if len(got) != len(want) {
		t.Fatalf("%d symbols, want %d", len(got), len(want))
	}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("symbol %d: %v, want %v", k, got[k], want[k])
		}
	}
}

// bss labels resolve past the data image; text labels to record
// indices.
func TestAddressResolution(t *testing.T) {
	src := `
.data
count:  .integer 7
.bss
slot:   .integer
.text
main:   LOAD $1 @slot
        JMP @end
end:    HLT
`
	m := assemble(t, src)
	text := m.Text()
	if got := text[0].Args[1]; got != vm.Addr(8) {
		t.Errorf("@slot encoded as %v, want @8", got)
	}
	if got := text[1].Args[0]; got != vm.Addr(2) {
		t.Errorf("@end encoded as %v, want @2", got)
	}
}

func TestForwardReference(t *testing.T) {
	m := assemble(t, ".text\nmain: JMP @later\nNOP\nlater: HLT")
	if got := m.Text()[0].Args[0]; got != vm.Addr(2) {
		t.Errorf("@later encoded as %v, want @2", got)
	}
}

func TestMnemonicsCaseInsensitive(t *testing.T) {
	m := assemble(t, ".text\nmain: loadi $1 5\nHlt")
	if m.Text()[0].Op != vm.OpLoadI {
		t.Errorf("opcode %v, want LOADI", m.Text()[0].Op)
	}
}

var parseErrTests = [...]struct {
	name string
	src  string
	frag string // expected substring of the error
}{
	{"unterminated-string", ".data\ns: .asciiz \"oops\n.text\nmain: HLT", "unterminated"},
	{"bad-register", ".text\nmain: LOADI $x 1\nHLT", "register"},
	{"unknown-directive", ".weird\nmain: HLT", "directive"},
	{"instr-outside-text", ".data\nNOP", "outside"},
	{"data-outside-section", "x: .integer 4\n.text\nmain: HLT", "section"},
	{"unlabeled-data", ".data\n.integer 4\n.text\nmain: HLT", "label"},
	{"labeled-section", ".data\nx: .data", "label"},
	{"bss-initializer", ".bss\nx: .integer 4\n.text\nmain: HLT", "initializer"},
	{"bss-string", ".bss\nx: .asciiz \"hi\"\n.text\nmain: HLT", "byte count"},
	{"signed-float", ".data\nf: .float -1.5\n.text\nmain: HLT", "float"},
	{"too-many-operands", ".text\nmain: ADD $1 $2 $3 $4\nHLT", "operands"},
}

func TestParseErrors(t *testing.T) {
	for _, test := range parseErrTests {
		t.Run(test.name, func(t *testing.T) {
			_, err := asm.Assemble(test.name, strings.NewReader(test.src))
			if err == nil {
				t.Fatal("assembly succeeded")
			}
			if !strings.Contains(err.Error(), test.frag) {
				t.Errorf("error %q does not mention %q", err, test.frag)
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := asm.Assemble("pos", strings.NewReader(".text\nmain: LOADI $zz 1\nHLT"))
	pe, ok := err.(*asm.ParseError)
	if !ok {
		t.Fatalf("got %T, want *ParseError", err)
	}
	if pe.Pos.Filename != "pos" || pe.Pos.Line != 2 {
		t.Errorf("position %s, want pos:2", pe.Pos)
	}
}

func TestDuplicateSymbol(t *testing.T) {
	_, err := asm.Assemble("dup", strings.NewReader(`
.data
x: .integer 1
.text
x: HLT
`))
	se, ok := errors.Cause(err).(*vm.SymbolError)
	if !ok || se.Code != vm.CodeDuplicate {
		t.Fatalf("got %v, want a duplicate symbol error", err)
	}
	if se.Name != "x" {
		t.Errorf("symbol %q, want %q", se.Name, "x")
	}
}

func TestUndefinedSymbol(t *testing.T) {
	_, err := asm.Assemble("undef", strings.NewReader(".text\nmain: JMP @missing\nHLT"))
	se, ok := errors.Cause(err).(*vm.SymbolError)
	if !ok || se.Code != vm.CodeUndefined {
		t.Fatalf("got %v, want an undefined symbol error", err)
	}
}

var encodeErrTests = [...]struct {
	name string
	src  string
	code asm.EncodingErrorCode
}{
	{"unknown-opcode", ".text\nmain: FROB $1\nHLT", asm.UnknownOpcode},
	{"missing-operand", ".text\nmain: LOADI $1\nHLT", asm.OperandMismatch},
	{"extra-operand", ".text\nmain: HLT $1", asm.OperandMismatch},
	{"wrong-kind", ".text\nmain: LOADI 5 5\nHLT", asm.OperandMismatch},
	{"float-where-int", ".text\nmain: LOADI $1 2.5\nHLT", asm.OperandMismatch},
	{"register-out-of-range", ".text\nmain: INC $32\nHLT", asm.OperandMismatch},
	{"label-where-register", ".text\nmain: INC @main\nHLT", asm.OperandMismatch},
	{"int-where-float", ".text\nmain: LOADF64 $1 5\nHLT", asm.OperandMismatch},
	{"float-where-address", ".text\nmain: JMP 2.5", asm.OperandMismatch},
}

func TestEncodingErrors(t *testing.T) {
	for _, test := range encodeErrTests {
		t.Run(test.name, func(t *testing.T) {
			_, err := asm.Assemble(test.name, strings.NewReader(test.src))
			ee, ok := err.(*asm.EncodingError)
			if !ok {
				t.Fatalf("got %v, want an encoding error", err)
			}
			if ee.Code != test.code {
				t.Errorf("code %d, want %d", ee.Code, test.code)
			}
		})
	}
}

func TestMissingEntrySymbol(t *testing.T) {
	_, err := asm.Assemble("noentry", strings.NewReader(".text\nstart: HLT"))
	se, ok := errors.Cause(err).(*vm.SymbolError)
	if !ok || se.Code != vm.CodeMissingEntryPoint {
		t.Fatalf("got %v, want a missing entry point error", err)
	}
}

func TestExtensionOpcodes(t *testing.T) {
	src := `
.text
main:   rand $1
        syscall $1 7 @main
        HLT
`
	m := assemble(t, src, asm.Extensions("rand", "syscall"))
	text := m.Text()
	if text[0].Op != vm.ExtBase {
		t.Errorf("rand tag %v, want %v", text[0].Op, vm.ExtBase)
	}
	if text[1].Op != vm.ExtBase+1 {
		t.Errorf("syscall tag %v, want %v", text[1].Op, vm.ExtBase+1)
	}
	if got := text[1].Args[2]; got != vm.Addr(0) {
		t.Errorf("label operand encoded as %v, want @0", got)
	}
	names := m.ExtOpcodes()
	if len(names) != 2 || names[0] != "rand" || names[1] != "syscall" {
		t.Errorf("ext opcodes %v, want [rand syscall]", names)
	}
}

func TestDisassembleAll(t *testing.T) {
	m := assemble(t, ".text\nmain: LOADI $1 5\nPRTS $1\nHLT")
	var buf bytes.Buffer
	if err := asm.DisassembleAll(m, &buf); err != nil {
		t.Fatalf("%+v", err)
	}
	want := "00000000\tLOADI $1 5\n00000001\tPRTS $1\n00000002\tHLT\n"
	if buf.String() != want {
		t.Errorf("listing %q, want %q", buf.String(), want)
	}
}
