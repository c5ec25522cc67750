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

// Command lumi assembles and runs lumi programs.
//
// Usage:
//
//	lumi [options] [file]
//
// A file ending in .bin is loaded as a compiled module; anything else
// is assembled as source. With no file, or with -repl, an interactive
// session starts instead.
//
// Options:
//
//	-c          compile only, do not run
//	-o file     write the compiled module to file
//	-d          print a disassembly listing instead of running
//	-e symbol   entry point symbol (default "main")
//	-x file     load an extension module (repeatable)
//	-repl       start an interactive session
//	-debug      enable debug diagnostics
//	-log level  log level; the LUMI_LOG environment variable is the
//	            fallback, warning the default
//
// A VM fault is reported with the faulting program counter and opcode;
// -debug adds the full error chain.
package main
