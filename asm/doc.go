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

// Package asm implements the lumi assembler.
//
// Source is line oriented. A `;` starts a comment running to the end of
// the line. Sections are opened with the bare directives `.data`, `.bss`
// and `.text` and may be reopened; a statement before any section
// directive is an error.
//
// In .data, a labeled directive declares an initialized item:
//
//	greet: .asciiz "hello"   ; bytes plus a trailing NUL
//	count: .integer 42       ; one 8-byte little-endian word
//	ratio: .float 2.5        ; one 8-byte word, IEEE 754 bits
//
// In .bss the same directives reserve zero-filled space and take no
// initializer; `.asciiz` takes a byte count instead of a string:
//
//	buf: .asciiz 64
//	tmp: .integer
//
// In .text each line is an optional label followed by an opcode and up
// to three operands. Registers are written `$0` through `$31`, label
// references `@name`. Example:
//
//	.text
//	main:   LOADI $1 10
//	loop:   DEC $1
//	        EQ $1 $0
//	        DJMPE @done
//	        DJMP @loop
//	done:   HLT
//
// Labels from all sections share one namespace and forward references
// are allowed; the encoder resolves them to absolute addresses after
// layout. Data and bss labels resolve to byte offsets in instance
// memory (bss follows the data image), text labels to instruction
// record indices.
//
// Assemble produces a vm.Module ready to run or to serialize with its
// Save method. Disassemble and DisassembleAll render the encoded text
// region back to mnemonics for inspection.
package asm
