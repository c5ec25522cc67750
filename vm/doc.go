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

// Package vm implements the lumi virtual machine: a register machine
// executing fixed-stride instruction records out of an immutable
// Module.
//
// A Module bundles data bytes, a zero-filled bss region, encoded text
// records, the symbol table and an entry offset. It is built by the
// companion asm package (or loaded from its binary form with
// LoadModule) and may be shared read-only by any number of Instances.
// Each Instance owns its register file, equality flag, program counter,
// call stack and a private copy of memory, so instances can run the
// same module concurrently without coordination.
//
// Execution either reaches HLT (StatusHalted) or raises a terminal
// Fault (StatusFaulted) identifying the faulting PC and opcode. Faults
// are scoped to their instance.
//
// Native extension opcodes are bound at instance creation, either from
// Go plugins (Extensions option) or in-process (BindOpcode); see
// package ext for the SDK. A binding failure is an ExtensionLoadError
// and prevents the instance from starting at all.
package vm
