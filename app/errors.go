package app

import "fmt"

// Span locates a compile-time error in the source application description.
// The out-of-scope parser (spec.md §1) is responsible for attaching real
// line/column information when one exists; a zero Span means "whole
// document".
type Span struct {
	Line   int
	Column int
}

func (s Span) String() string {
	if s.Line == 0 {
		return "<document>"
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// CompileError is a single fatal violation of spec.md §6's compile-time
// error surface. Every pass (check, analyze, postcheck) returns these
// instead of bailing on the first one, so a user sees every violation in
// one run.
type CompileError struct {
	Span    Span
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Message)
}

func errf(span Span, format string, args ...any) *CompileError {
	return &CompileError{Span: span, Message: fmt.Sprintf(format, args...)}
}
