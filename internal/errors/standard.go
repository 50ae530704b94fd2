// Package errors provides the fatal-error taxonomy used throughout
// luajit-pro. Per spec.md §7, every category here is terminal: there is no
// recovery path, only a diagnostic and a non-zero exit.
package errors

import (
	"fmt"
	"runtime"

	"github.com/xieby1/luajit-pro/internal/position"
)

// Category is one of the four fatal error kinds spec.md §7 names.
// SentinelMissing is deliberately absent: a missing sentinel is normal
// pass-through behaviour, not an error.
type Category string

const (
	CategoryInput      Category = "INPUT"
	CategoryStructural Category = "STRUCTURAL"
	CategoryEval       Category = "EVAL"
	CategoryInclude    Category = "INCLUDE"
)

// StandardError is the common shape for every fatal error this package
// produces.
type StandardError struct {
	Category Category
	Code     string
	Message  string
	Span     position.Span // zero value if the error has no source anchor
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface.
func (e *StandardError) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("%s: [%s:%s] %s", e.Span, e.Category, e.Code, e.Message)
	}

	if e.Span.Start.IsValid() {
		return fmt.Sprintf("%s: [%s:%s] %s", e.Span.Start, e.Category, e.Code, e.Message)
	}

	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

func newError(category Category, code, message string, span position.Span, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(2)
	caller := "unknown"

	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Span:     span,
		Context:  context,
		Caller:   caller,
	}
}

// InputError reports a file that could not be opened or read.
func InputError(filename string, cause error) *StandardError {
	return newError(CategoryInput, "INPUT_ERROR",
		fmt.Sprintf("cannot read %s: %v", filename, cause),
		position.Span{}, map[string]interface{}{"filename": filename, "cause": cause})
}

// StructuralError reports a malformed construct: an unexpected token
// neighbourhood around a combinator keyword, unbalanced braces, or a
// missing return in map/filter.
func StructuralError(span position.Span, format string, args ...interface{}) *StandardError {
	return newError(CategoryStructural, "STRUCTURAL_ERROR", fmt.Sprintf(format, args...), span, nil)
}

// EvalError reports a compile-time chunk that raised a host-language error.
func EvalError(label, chunk string, cause error) *StandardError {
	return newError(CategoryEval, "EVAL_ERROR",
		fmt.Sprintf("%s: %v", label, cause),
		position.Span{}, map[string]interface{}{"label": label, "chunk": chunk, "cause": cause})
}

// IncludeError reports a failed module search path or an unreadable
// resolved file.
func IncludeError(span position.Span, format string, args ...interface{}) *StandardError {
	return newError(CategoryInclude, "INCLUDE_ERROR", fmt.Sprintf(format, args...), span, nil)
}
