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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/martin-bucinskas/lumi-lang/asm"
	"github.com/martin-bucinskas/lumi-lang/vm"
)

// Assemble a small program that prints a greeting followed by a
// computed number, then run it.
func Example() {
	src := `
.data
greet:  .asciiz "6 * 7 = "
.text
main:   PRTS @greet
        LOADI $1 6
        MUL $1 $1 7
        PRTS $1
        HLT
`
	m, err := asm.Assemble("example", strings.NewReader(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	i, err := vm.New(m, vm.Output(os.Stdout))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if err = i.Run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	// Output:
	// 6 * 7 = 42
}
