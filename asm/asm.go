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

package asm

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/martin-bucinskas/lumi-lang/vm"
)

// DefaultEntry is the entry symbol used when no Entry option is given.
const DefaultEntry = "main"

// config collects per-assembly options.
type config struct {
	entry string
	ext   []string
}

// Option is a function to customize an assembly run.
type Option func(*config)

// Entry sets the entry point symbol. The symbol must be defined in the
// text section of the assembled source.
func Entry(name string) Option {
	return func(c *config) { c.entry = name }
}

// Extensions declares the extension opcode names available to the
// source, in order. Name k encodes as tag ExtBase+k and the names are
// recorded in the module for the VM to bind at instance creation.
func Extensions(names ...string) Option {
	return func(c *config) { c.ext = append(c.ext, names...) }
}

// Assemble reads assembly source from r and produces a loadable module.
// The name parameter is used in error positions only, usually the file
// name.
//
// Assembly is two passes over an in-memory parse: the first lays out
// sections and defines symbols, the second validates operands against
// opcode signatures and resolves label references to absolute
// addresses. The first error of any pass aborts with no module.
func Assemble(name string, r io.Reader, opts ...Option) (*vm.Module, error) {
	c := config{entry: DefaultEntry}
	for _, opt := range opts {
		opt(&c)
	}

	prog, err := newParser().Parse(name, r)
	if err != nil {
		return nil, err
	}
	b := newBuilder()
	if err = b.build(prog); err != nil {
		return nil, err
	}
	text, err := newEncoder(b, c.ext).encode(b.text)
	if err != nil {
		return nil, err
	}
	return vm.NewModule(b.data, b.bss, text, b.syms, c.ext, c.entry)
}

// listingWriter wraps the destination of a disassembly listing so that
// rendering can proceed unconditionally: the first write error is kept
// and every later write is a no-op returning it.
type listingWriter struct {
	w   io.Writer
	err error
}

func (lw *listingWriter) Write(p []byte) (int, error) {
	if lw.err != nil {
		return 0, lw.err
	}
	n, err := lw.w.Write(p)
	if err != nil {
		lw.err = errors.Wrap(err, "listing write failed")
	}
	return n, lw.err
}

// Disassemble writes a listing of the instruction record at offset pc
// to w, prefixed with the offset itself.
func Disassemble(m *vm.Module, pc int, w io.Writer) error {
	lw := &listingWriter{w: w}
	disasm(m, pc, lw)
	return lw.err
}

// DisassembleAll writes a listing of the whole text region to w, one
// record per line.
func DisassembleAll(m *vm.Module, w io.Writer) error {
	lw := &listingWriter{w: w}
	for pc := range m.Text() {
		disasm(m, pc, lw)
		fmt.Fprintln(lw)
	}
	return lw.err
}

func disasm(m *vm.Module, pc int, w io.Writer) {
	text := m.Text()
	if pc < 0 || pc >= len(text) {
		fmt.Fprintf(w, "%08d\t???", pc)
		return
	}
	fmt.Fprintf(w, "%08d\t%v", pc, text[pc])
}
