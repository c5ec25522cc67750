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
	"text/scanner"
)

// ParseError is a position-tagged syntax violation. Assembly stops at
// the first one; no module is produced.
type ParseError struct {
	Pos scanner.Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// EncodingErrorCode discriminates encoding failures.
type EncodingErrorCode uint8

// Encoding error codes.
const (
	OperandMismatch EncodingErrorCode = iota
	UnknownOpcode
)

// EncodingError reports an instruction the encoder rejected: an unknown
// mnemonic, or operands whose kind or arity do not match the opcode's
// fixed signature.
type EncodingError struct {
	Pos  scanner.Position
	Code EncodingErrorCode
	Msg  string
}

func (e *EncodingError) Error() string {
	switch e.Code {
	case OperandMismatch:
		return fmt.Sprintf("%s: operand mismatch: %s", e.Pos, e.Msg)
	case UnknownOpcode:
		return fmt.Sprintf("%s: unknown opcode %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: encoding error: %s", e.Pos, e.Msg)
}
