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
	"fmt"
	"plugin"
	"sort"

	"github.com/martin-bucinskas/lumi-lang/ext"
)

// opcodesSymbol is the symbol every extension module must export.
const opcodesSymbol = "Opcodes"

// ExtensionLoadError reports a failure to open an extension module or
// to bind its opcodes. It is startup-fatal for the instance that
// requested the extension: New returns it and the instance never runs.
type ExtensionLoadError struct {
	Path   string // extension module path, if the failure was file-level
	Name   string // opcode name, if the failure was a binding conflict or gap
	Reason string
	Err    error
}

func (e *ExtensionLoadError) Error() string {
	switch {
	case e.Err != nil && e.Path != "":
		return fmt.Sprintf("extension %s: %s: %v", e.Path, e.Reason, e.Err)
	case e.Path != "":
		return fmt.Sprintf("extension %s: %s", e.Path, e.Reason)
	default:
		return fmt.Sprintf("extension opcode %s: %s", e.Name, e.Reason)
	}
}

// Cause returns the underlying error, if any.
func (e *ExtensionLoadError) Cause() error { return e.Err }

// Unwrap returns the underlying error, if any.
func (e *ExtensionLoadError) Unwrap() error { return e.Err }

// PluginOpcodeNames returns the opcode names exported by the extension
// module at path, sorted. The assembler needs the names up front to
// assign deterministic tags; binding proper happens in New.
func PluginOpcodeNames(path string) ([]string, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, &ExtensionLoadError{Path: path, Reason: "open failed", Err: err}
	}
	sym, err := p.Lookup(opcodesSymbol)
	if err != nil {
		return nil, &ExtensionLoadError{Path: path, Reason: "missing Opcodes symbol", Err: err}
	}
	table, ok := sym.(func() map[string]ext.HostFunc)
	if !ok {
		return nil, &ExtensionLoadError{Path: path, Reason: fmt.Sprintf("Opcodes has type %T, want func() map[string]ext.HostFunc", sym)}
	}
	var names []string
	for name := range table() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// bindPlugin opens one extension module and merges its exported opcode
// table into the instance's bindings.
func (i *Instance) bindPlugin(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return &ExtensionLoadError{Path: path, Reason: "open failed", Err: err}
	}
	sym, err := p.Lookup(opcodesSymbol)
	if err != nil {
		return &ExtensionLoadError{Path: path, Reason: "missing Opcodes symbol", Err: err}
	}
	table, ok := sym.(func() map[string]ext.HostFunc)
	if !ok {
		return &ExtensionLoadError{Path: path, Reason: fmt.Sprintf("Opcodes has type %T, want func() map[string]ext.HostFunc", sym)}
	}
	for name, fn := range table() {
		if _, dup := i.bound[name]; dup {
			return &ExtensionLoadError{Path: path, Name: name, Reason: "opcode bound twice"}
		}
		i.bound[name] = fn
	}
	return nil
}
