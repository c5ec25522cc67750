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
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	log "github.com/sirupsen/logrus"

	"github.com/martin-bucinskas/lumi-lang/asm"
	"github.com/martin-bucinskas/lumi-lang/vm"
)

const replHelp = `commands:
  !run        assemble the buffered program and run it
  !program    show a disassembly of the buffered program
  !registers  show the register file of the last run
  !symbols    show the symbol table of the buffered program
  !clear      discard the buffered program
  !help       show this help
  !quit       leave the session
anything else is buffered as assembly source`

var replCommands = []string{"!run", "!program", "!registers", "!symbols", "!clear", "!help", "!quit"}

// session is one interactive session: source lines accumulate until
// !run assembles and executes them as a whole program.
type session struct {
	lines    []string
	last     *vm.Instance
	out      *bufio.Writer
	extNames []string
}

func runRepl(ctx context.Context, out *bufio.Writer, extNames []string) error {
	l := liner.NewLiner()
	defer l.Close()
	l.SetCtrlCAborts(true)
	l.SetCompleter(func(line string) (c []string) {
		for _, cmd := range replCommands {
			if strings.HasPrefix(cmd, line) && line != "" {
				c = append(c, cmd)
			}
		}
		return c
	})

	s := &session{out: out, extNames: extNames}
	fmt.Fprintln(out, "lumi interactive session, !help for commands")
	out.Flush()

	for {
		line, err := l.Prompt(">>> ")
		switch err {
		case nil:
		case liner.ErrPromptAborted, io.EOF:
			return nil
		default:
			return err
		}
		l.AppendHistory(line)
		if quit := s.handle(ctx, strings.TrimSpace(line)); quit {
			return nil
		}
		out.Flush()
	}
}

// handle processes one input line and reports whether the session
// should end.
func (s *session) handle(ctx context.Context, line string) bool {
	switch line {
	case "":
		return false
	case "!quit":
		return true
	case "!help":
		fmt.Fprintln(s.out, replHelp)
		return false
	case "!clear":
		s.lines = s.lines[:0]
		return false
	case "!run":
		s.run(ctx)
		return false
	case "!program":
		if m := s.assemble(); m != nil {
			if err := asm.DisassembleAll(m, s.out); err != nil {
				fmt.Fprintln(s.out, err)
			}
		}
		return false
	case "!symbols":
		if m := s.assemble(); m != nil {
			for _, sym := range m.Symbols().Symbols() {
				fmt.Fprintf(s.out, "%-20s %s+%d\n", sym.Name, sym.Seg, sym.Off)
			}
		}
		return false
	case "!registers":
		s.registers()
		return false
	}
	if strings.HasPrefix(line, "!") {
		fmt.Fprintf(s.out, "unknown command %s, !help for help\n", line)
		return false
	}
	s.lines = append(s.lines, line)
	return false
}

// assemble builds a module from the buffered lines. Sessions rarely
// bother with sections, so a .text header is supplied when the buffer
// does not open one itself.
func (s *session) assemble() *vm.Module {
	src := strings.Join(s.lines, "\n")
	if !strings.Contains(src, ".text") {
		src = ".text\n" + asm.DefaultEntry + ":\n" + src
	}
	m, err := asm.Assemble("repl", strings.NewReader(src), asm.Extensions(s.extNames...))
	if err != nil {
		fmt.Fprintln(s.out, err)
		return nil
	}
	return m
}

func (s *session) run(ctx context.Context) {
	m := s.assemble()
	if m == nil {
		return
	}
	i, err := vm.New(m, vm.Output(s.out), vm.Extensions(extModules...))
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	s.last = i
	if err = i.Run(ctx); err != nil {
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, err)
		return
	}
	log.Debugf("halted after %d instructions", i.InstructionCount())
	fmt.Fprintln(s.out)
}

func (s *session) registers() {
	if s.last == nil {
		fmt.Fprintln(s.out, "nothing has run yet")
		return
	}
	reg := s.last.Registers()
	for k := 0; k < len(reg); k += 4 {
		for j := k; j < k+4 && j < len(reg); j++ {
			fmt.Fprintf(s.out, "$%-2d %-16d", j, reg[j])
		}
		fmt.Fprintln(s.out)
	}
	fmt.Fprintf(s.out, "pc=%d flag=%v status=%v\n", s.last.PC(), s.last.Flag(), s.last.Status())
}
