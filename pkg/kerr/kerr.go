// Package kerr defines K's two structured error kinds: ParseError and
// CodeGenerationError (spec.md §7).
//
// Design: concrete Go error types carrying a token.Location, in the
// style of the teacher's fmt.Errorf-based parser errors combined with
// the location-carrying error struct pattern seen in the retrieval
// pack's MindScript lexer (*LexError{Line, Col, Msg}), adapted to
// idiomatic Go errors rather than a string-formatting helper.
package kerr

import (
	"fmt"

	"github.com/kale-lang/kalec/pkg/token"
)

// ParseError is produced exclusively by pkg/parser. Its Error() message
// is always prefixed "Parse error: " per spec.md §7.
type ParseError struct {
	Loc token.Location
	Msg string
}

func (e *ParseError) Error() string {
	return "Parse error: " + e.Msg
}

// NewParse constructs a ParseError at loc with the given message.
func NewParse(loc token.Location, msg string) *ParseError {
	return &ParseError{Loc: loc, Msg: msg}
}

// NewParsef is NewParse with fmt.Sprintf-style formatting.
func NewParsef(loc token.Location, format string, args ...any) *ParseError {
	return &ParseError{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

// CodeGenerationError is produced by pkg/codegen. Its Error() message
// is always prefixed "Code generation error: " per spec.md §7.
type CodeGenerationError struct {
	Loc token.Location
	Msg string
}

func (e *CodeGenerationError) Error() string {
	return "Code generation error: " + e.Msg
}

// NewCodegen constructs a CodeGenerationError at loc with the given message.
func NewCodegen(loc token.Location, msg string) *CodeGenerationError {
	return &CodeGenerationError{Loc: loc, Msg: msg}
}

// NewCodegenf is NewCodegen with fmt.Sprintf-style formatting.
func NewCodegenf(loc token.Location, format string, args ...any) *CodeGenerationError {
	return &CodeGenerationError{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}
