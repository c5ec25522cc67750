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

// Segment identifies the module region a symbol points into.
type Segment uint8

// Module segments.
const (
	SegData Segment = iota
	SegBss
	SegText
)

var segmentNames = [...]string{"data", "bss", "text"}

func (s Segment) String() string {
	if int(s) < len(segmentNames) {
		return segmentNames[s]
	}
	return fmt.Sprintf("segment(%d)", uint8(s))
}

// Symbol is a named, segment-relative offset. Data and bss offsets are
// in bytes, text offsets in instruction records. All symbols of a
// module share one namespace.
type Symbol struct {
	Name string
	Seg  Segment
	Off  int
}

// SymbolTable maps names to symbols. It is populated during the section
// pass and frozen before encoding; lookups after that never mutate it.
type SymbolTable struct {
	index map[string]int
	syms  []Symbol
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]int)}
}

// Define adds a symbol. Redeclaring a name anywhere in the module is a
// SymbolError with CodeDuplicate.
func (t *SymbolTable) Define(name string, seg Segment, off int) error {
	if _, ok := t.index[name]; ok {
		return &SymbolError{Code: CodeDuplicate, Name: name}
	}
	t.index[name] = len(t.syms)
	t.syms = append(t.syms, Symbol{Name: name, Seg: seg, Off: off})
	return nil
}

// Lookup returns the symbol for name.
func (t *SymbolTable) Lookup(name string) (Symbol, bool) {
	i, ok := t.index[name]
	if !ok {
		return Symbol{}, false
	}
	return t.syms[i], true
}

// Resolve is Lookup returning a SymbolError with CodeUndefined when the
// name is unknown.
func (t *SymbolTable) Resolve(name string) (Symbol, error) {
	s, ok := t.Lookup(name)
	if !ok {
		return Symbol{}, &SymbolError{Code: CodeUndefined, Name: name}
	}
	return s, nil
}

// Symbols returns all symbols in declaration order.
func (t *SymbolTable) Symbols() []Symbol {
	s := make([]Symbol, len(t.syms))
	copy(s, t.syms)
	return s
}

// Len returns the number of defined symbols.
func (t *SymbolTable) Len() int { return len(t.syms) }

// SymbolErrorCode discriminates symbol resolution failures.
type SymbolErrorCode uint8

// Symbol error codes.
const (
	CodeDuplicate SymbolErrorCode = iota
	CodeUndefined
	CodeMissingEntryPoint
)

// SymbolError is an assembly-time symbol resolution failure.
type SymbolError struct {
	Code SymbolErrorCode
	Name string
}

func (e *SymbolError) Error() string {
	switch e.Code {
	case CodeDuplicate:
		return fmt.Sprintf("duplicate symbol %q", e.Name)
	case CodeUndefined:
		return fmt.Sprintf("undefined symbol %q", e.Name)
	case CodeMissingEntryPoint:
		return fmt.Sprintf("entry point %q is not a text label", e.Name)
	}
	return fmt.Sprintf("symbol error %d: %q", e.Code, e.Name)
}
