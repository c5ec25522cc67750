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
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// WordSize is the width in bytes of a machine word. Integer and float
// data items each occupy one word in the data segment.
const WordSize = 8

// magic identifies a lumi module binary.
var magic = [4]byte{'L', 'U', 'M', 'I'}

// Module is an immutable, loadable program: initialized data bytes, the
// size of the zero-filled bss region, encoded text records, the symbol
// table and the resolved entry offset. A Module is built once and may
// be shared read-only by any number of VM instances; each instance
// copies the data region into its own memory.
type Module struct {
	data  []byte
	bss   int
	text  []Instr
	syms  *SymbolTable
	ext   []string
	entry int
}

// NewModule bundles the output of an assembly pass into a Module. The
// entry symbol must name a text-segment symbol; otherwise a SymbolError
// with CodeMissingEntryPoint is returned. Modules loaded from a binary
// carry no symbol table; syms may then be nil.
func NewModule(data []byte, bss int, text []Instr, syms *SymbolTable, extNames []string, entry string) (*Module, error) {
	if syms == nil {
		syms = NewSymbolTable()
	}
	s, ok := syms.Lookup(entry)
	if !ok || s.Seg != SegText {
		return nil, &SymbolError{Code: CodeMissingEntryPoint, Name: entry}
	}
	m := &Module{
		data:  append([]byte(nil), data...),
		bss:   bss,
		text:  append([]Instr(nil), text...),
		syms:  syms,
		ext:   append([]string(nil), extNames...),
		entry: s.Off,
	}
	return m, nil
}

// Data returns the initialized data region. The slice is shared; treat
// it as read-only.
func (m *Module) Data() []byte { return m.data }

// BssSize returns the size in bytes of the zero-filled bss region.
func (m *Module) BssSize() int { return m.bss }

// Text returns the encoded text region. The slice is shared; treat it
// as read-only.
func (m *Module) Text() []Instr { return m.text }

// Symbols returns the module's symbol table. It is empty for modules
// loaded from a binary.
func (m *Module) Symbols() *SymbolTable { return m.syms }

// ExtOpcodes returns the extension opcode names the module requires, in
// tag order starting at ExtBase.
func (m *Module) ExtOpcodes() []string { return m.ext }

// Entry returns the text offset where execution begins.
func (m *Module) Entry() int { return m.entry }

// MemSize returns the initial addressable memory size (data+bss) in
// bytes of an instance running this module.
func (m *Module) MemSize() int { return len(m.data) + m.bss }

// Save writes the module in its binary form: a magic prefix, then
// [data bytes][bss size][entry offset][extension names][text records],
// all little-endian. Each text record has a fixed stride: one opcode
// tag plus three self-describing operand slots.
func (m *Module) Save(w io.Writer) (err error) {
	bw := bufio.NewWriter(w)
	put32 := func(v int) {
		if err != nil {
			return
		}
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		_, err = bw.Write(b[:])
	}
	put64 := func(v uint64) {
		if err != nil {
			return
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		_, err = bw.Write(b[:])
	}

	if _, err = bw.Write(magic[:]); err != nil {
		return errors.Wrap(err, "module write failed")
	}
	put32(len(m.data))
	if err == nil {
		_, err = bw.Write(m.data)
	}
	put32(m.bss)
	put32(m.entry)
	put32(len(m.ext))
	for _, name := range m.ext {
		put32(len(name))
		if err == nil {
			_, err = bw.WriteString(name)
		}
	}
	put32(len(m.text))
	for _, in := range m.text {
		if err == nil {
			err = bw.WriteByte(byte(in.Op))
		}
		for _, a := range in.Args {
			if err == nil {
				err = bw.WriteByte(byte(a.Kind))
			}
			put64(a.bits())
		}
	}
	if err != nil {
		return errors.Wrap(err, "module write failed")
	}
	return errors.Wrap(bw.Flush(), "module write failed")
}

// LoadModule reads a module binary written by Save. The entry offset is
// taken from the file; the returned module has an empty symbol table.
func LoadModule(r io.Reader) (*Module, error) {
	br := bufio.NewReader(r)
	var hdr [4]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "module read failed")
	}
	if hdr != magic {
		return nil, errors.New("not a lumi module: bad magic")
	}

	get32 := func() (int, error) {
		var b [4]byte
		if _, err := io.ReadFull(br, b[:]); err != nil {
			return 0, err
		}
		return int(binary.LittleEndian.Uint32(b[:])), nil
	}
	get64 := func() (uint64, error) {
		var b [8]byte
		if _, err := io.ReadFull(br, b[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b[:]), nil
	}

	m := &Module{syms: NewSymbolTable()}
	n, err := get32()
	if err != nil {
		return nil, errors.Wrap(err, "module read failed")
	}
	m.data = make([]byte, n)
	if _, err = io.ReadFull(br, m.data); err != nil {
		return nil, errors.Wrap(err, "module read failed")
	}
	if m.bss, err = get32(); err != nil {
		return nil, errors.Wrap(err, "module read failed")
	}
	if m.entry, err = get32(); err != nil {
		return nil, errors.Wrap(err, "module read failed")
	}
	next, err := get32()
	if err != nil {
		return nil, errors.Wrap(err, "module read failed")
	}
	for k := 0; k < next; k++ {
		var l int
		if l, err = get32(); err != nil {
			return nil, errors.Wrap(err, "module read failed")
		}
		name := make([]byte, l)
		if _, err = io.ReadFull(br, name); err != nil {
			return nil, errors.Wrap(err, "module read failed")
		}
		m.ext = append(m.ext, string(name))
	}
	ntext, err := get32()
	if err != nil {
		return nil, errors.Wrap(err, "module read failed")
	}
	m.text = make([]Instr, ntext)
	for k := range m.text {
		op, err := br.ReadByte()
		if err != nil {
			return nil, errors.Wrap(err, "module read failed")
		}
		m.text[k].Op = Opcode(op)
		for s := 0; s < 3; s++ {
			kind, err := br.ReadByte()
			if err != nil {
				return nil, errors.Wrap(err, "module read failed")
			}
			raw, err := get64()
			if err != nil {
				return nil, errors.Wrap(err, "module read failed")
			}
			m.text[k].Args[s] = operandFromBits(OperandKind(kind), raw)
		}
	}
	if m.entry < 0 || m.entry >= len(m.text) {
		return nil, errors.Errorf("entry offset %d outside text region", m.entry)
	}
	return m, nil
}

// DecodeString returns the NUL-terminated string starting at pos in
// mem. The trailing NUL is not returned; an unterminated run ends at
// the end of mem.
func DecodeString(mem []byte, pos int) string {
	end := pos
	for ; end < len(mem) && mem[end] != 0; end++ {
	}
	return string(mem[pos:end])
}
