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

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/martin-bucinskas/lumi-lang/asm"
	"github.com/martin-bucinskas/lumi-lang/vm"
)

type fileList []string

func (f *fileList) String() string     { return strings.Join(*f, ",") }
func (f *fileList) Set(s string) error { *f = append(*f, s); return nil }
func (f *fileList) Get() interface{}   { return *f }

var (
	compileOnly bool
	disassemble bool
	repl        bool
	debug       bool
	outFileName string
	entryName   string
	logLevel    string
	extModules  fileList
)

// setupLogging configures logrus from the -log flag, with LUMI_LOG as
// the fallback.
func setupLogging() {
	log.SetOutput(os.Stderr)
	lvl := logLevel
	if lvl == "" {
		lvl = os.Getenv("LUMI_LOG")
	}
	if lvl == "" {
		lvl = "warning"
	}
	l, err := log.ParseLevel(lvl)
	if err != nil {
		log.Warnf("unknown log level %q, using warning", lvl)
		l = log.WarnLevel
	}
	log.SetLevel(l)
	if debug && l < log.DebugLevel {
		log.SetLevel(log.DebugLevel)
	}
}

// extensionNames opens every -x module to learn the opcode names it
// exports. Names from all modules are concatenated in command line
// order; the tags the assembler hands out follow that order.
func extensionNames() ([]string, error) {
	var names []string
	for _, path := range extModules {
		n, err := vm.PluginOpcodeNames(path)
		if err != nil {
			return nil, err
		}
		log.Debugf("extension %s exports %v", path, n)
		names = append(names, n...)
	}
	return names, nil
}

// loadProgram assembles source files or loads a compiled module,
// depending on the file extension.
func loadProgram(name string, extNames []string) (*vm.Module, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if filepath.Ext(name) == ".bin" {
		return vm.LoadModule(bufio.NewReader(f))
	}
	return asm.Assemble(name, bufio.NewReader(f),
		asm.Entry(entryName), asm.Extensions(extNames...))
}

func atExit(i *vm.Instance, err error) {
	if err == nil {
		return
	}
	if debug {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	if f, ok := err.(*vm.Fault); ok && i != nil {
		fmt.Fprintf(os.Stderr, "pc=%d op=%v executed=%d\n", f.PC, f.Op, i.InstructionCount())
	}
	os.Exit(1)
}

func main() {
	var err error
	var i *vm.Instance

	flag.BoolVar(&compileOnly, "c", false, "compile only, do not run")
	flag.BoolVar(&disassemble, "d", false, "print a disassembly listing instead of running")
	flag.BoolVar(&repl, "repl", false, "start an interactive session")
	flag.BoolVar(&debug, "debug", false, "enable debug diagnostics")
	flag.StringVar(&outFileName, "o", "", "`filename` to write the compiled module to")
	flag.StringVar(&entryName, "e", asm.DefaultEntry, "entry point `symbol`")
	flag.StringVar(&logLevel, "log", "", "log `level` (overrides LUMI_LOG)")
	flag.Var(&extModules, "x", "load extension module `filename` (can be specified multiple times)")
	flag.Parse()

	setupLogging()

	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extNames, err := extensionNames()
	if err != nil {
		atExit(nil, err)
	}

	if repl || flag.NArg() == 0 {
		err = runRepl(ctx, stdout, extNames)
		stdout.Flush()
		atExit(nil, err)
		return
	}

	name := flag.Arg(0)
	log.Debugf("loading %s", name)
	m, err := loadProgram(name, extNames)
	if err != nil {
		atExit(nil, err)
	}
	log.Debugf("module: %d data bytes, %d bss bytes, %d instructions, entry %d",
		len(m.Data()), m.BssSize(), len(m.Text()), m.Entry())

	if disassemble {
		err = asm.DisassembleAll(m, stdout)
		stdout.Flush()
		atExit(nil, err)
		return
	}

	if outFileName != "" {
		var out *os.File
		if out, err = os.Create(outFileName); err != nil {
			atExit(nil, err)
		}
		if err = m.Save(out); err == nil {
			err = out.Close()
		} else {
			out.Close()
		}
		if err != nil {
			atExit(nil, err)
		}
		log.Infof("wrote %s", outFileName)
	}
	if compileOnly {
		return
	}

	i, err = vm.New(m, vm.Output(stdout), vm.Extensions(extModules...))
	if err != nil {
		atExit(nil, err)
	}
	err = i.Run(ctx)
	stdout.Flush()
	atExit(i, err)
}
