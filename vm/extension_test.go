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
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/martin-bucinskas/lumi-lang/asm"
	"github.com/martin-bucinskas/lumi-lang/ext"
	"github.com/martin-bucinskas/lumi-lang/vm"
)

const extSrc = `
.text
main:   LOADI $1 20
        double $2 $1
        HLT
`

// double is the host side of the test opcode: first operand the
// destination register, second the source.
func double(m ext.Machine, args [3]ext.Arg) error {
	v, err := m.Reg(int(args[1].Int))
	if err != nil {
		return err
	}
	return m.SetReg(int(args[0].Int), 2*v)
}

func TestBindOpcode(t *testing.T) {
	m, err := asm.Assemble(t.Name(), strings.NewReader(extSrc),
		asm.Extensions("double"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	i, err := vm.New(m, vm.BindOpcode("double", double))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err = i.Run(context.Background()); err != nil {
		t.Fatalf("%+v", err)
	}
	if got := i.Registers()[2]; got != 40 {
		t.Errorf("$2 = %d, want 40", got)
	}
}

func TestUnboundExtensionOpcode(t *testing.T) {
	m, err := asm.Assemble(t.Name(), strings.NewReader(extSrc),
		asm.Extensions("double"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	_, err = vm.New(m)
	if _, ok := err.(*vm.ExtensionLoadError); !ok {
		t.Fatalf("got %v, want an extension load error", err)
	}
}

func TestBindOpcodeTwice(t *testing.T) {
	m, err := asm.Assemble(t.Name(), strings.NewReader(".text\nmain: HLT"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	_, err = vm.New(m,
		vm.BindOpcode("double", double),
		vm.BindOpcode("double", double))
	if _, ok := err.(*vm.ExtensionLoadError); !ok {
		t.Fatalf("got %v, want an extension load error", err)
	}
}

func TestExtensionModuleMissing(t *testing.T) {
	m, err := asm.Assemble(t.Name(), strings.NewReader(".text\nmain: HLT"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	_, err = vm.New(m, vm.Extensions("testdata/no-such-module.so"))
	e, ok := err.(*vm.ExtensionLoadError)
	if !ok {
		t.Fatalf("got %v, want an extension load error", err)
	}
	if e.Path != "testdata/no-such-module.so" {
		t.Errorf("error path %q, want the module path", e.Path)
	}
}

// A host error surfaces as an IO fault stamped with the extension
// opcode's tag.
func TestExtensionHostError(t *testing.T) {
	m, err := asm.Assemble(t.Name(), strings.NewReader(".text\nmain: fail\nHLT"),
		asm.Extensions("fail"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	i, err := vm.New(m, vm.BindOpcode("fail", func(m ext.Machine, args [3]ext.Arg) error {
		return errors.New("host rejected")
	}))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	f, ok := i.Run(context.Background()).(*vm.Fault)
	if !ok || f.Code != vm.FaultIOError {
		t.Fatalf("got %v, want an IO fault", f)
	}
	if f.Op != vm.ExtBase {
		t.Errorf("fault op %v, want tag %v", f.Op, vm.ExtBase)
	}
}
