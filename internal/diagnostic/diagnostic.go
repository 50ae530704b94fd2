// Package diagnostic formats the fatal diagnostics the transformer prints
// before exiting. Per spec.md §7, every diagnostic here is an error: there
// is no warning level, no suppression list, and no recovery.
package diagnostic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xieby1/luajit-pro/internal/errors"
	"github.com/xieby1/luajit-pro/internal/position"
)

// Category groups a diagnostic by the construct it was raised against,
// mirroring internal/errors.Category.
type Category int

const (
	CategoryInput Category = iota
	CategoryStructural
	CategoryEval
	CategoryInclude
)

func (c Category) String() string {
	switch c {
	case CategoryInput:
		return "input"
	case CategoryStructural:
		return "structural"
	case CategoryEval:
		return "eval"
	case CategoryInclude:
		return "include"
	default:
		return "unknown"
	}
}

// Diagnostic is a single fatal report, always rendered with "error" level.
type Diagnostic struct {
	Code     string
	Title    string
	Message  string
	Span     position.Span
	Category Category
}

// Builder constructs a Diagnostic with a fluent API.
type Builder struct {
	diagnostic *Diagnostic
}

// New starts a diagnostic builder.
func New() *Builder {
	return &Builder{diagnostic: &Diagnostic{}}
}

func (b *Builder) InCategory(cat Category) *Builder {
	b.diagnostic.Category = cat
	return b
}

func (b *Builder) Code(code string) *Builder {
	b.diagnostic.Code = code
	return b
}

func (b *Builder) Title(title string) *Builder {
	b.diagnostic.Title = title
	return b
}

func (b *Builder) Message(format string, args ...interface{}) *Builder {
	b.diagnostic.Message = fmt.Sprintf(format, args...)
	return b
}

func (b *Builder) Span(span position.Span) *Builder {
	b.diagnostic.Span = span
	return b
}

func (b *Builder) Build() *Diagnostic {
	return b.diagnostic
}

// FromStandardError builds a Diagnostic from a fatal *internal/errors.StandardError
// — the single source of truth for display here, since every StandardError
// renders at "error" level (spec.md §7: all errors are fatal, there is no
// recovery and no warning tier).
func FromStandardError(se *errors.StandardError) *Diagnostic {
	return New().
		InCategory(categoryFromErrors(se.Category)).
		Code(se.Code).
		Title(se.Message).
		Span(se.Span).
		Build()
}

func categoryFromErrors(c errors.Category) Category {
	switch c {
	case errors.CategoryInput:
		return CategoryInput
	case errors.CategoryStructural:
		return CategoryStructural
	case errors.CategoryEval:
		return CategoryEval
	case errors.CategoryInclude:
		return CategoryInclude
	default:
		return CategoryStructural
	}
}

// Engine collects diagnostics for a single run and renders them in
// file:line:col order.
type Engine struct {
	diagnostics []Diagnostic
}

// NewEngine creates an empty diagnostic engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Add appends a diagnostic to the engine.
func (e *Engine) Add(d *Diagnostic) {
	e.diagnostics = append(e.diagnostics, *d)
}

// Diagnostics returns every diagnostic added so far.
func (e *Engine) Diagnostics() []Diagnostic {
	return e.diagnostics
}

// HasDiagnostics reports whether any diagnostic was added.
func (e *Engine) HasDiagnostics() bool {
	return len(e.diagnostics) > 0
}

// Sort orders diagnostics by file, then line, then column.
func (e *Engine) Sort() {
	sort.Slice(e.diagnostics, func(i, j int) bool {
		a, b := e.diagnostics[i], e.diagnostics[j]

		if a.Span.Start.Filename != b.Span.Start.Filename {
			return a.Span.Start.Filename < b.Span.Start.Filename
		}

		if a.Span.Start.Line != b.Span.Start.Line {
			return a.Span.Start.Line < b.Span.Start.Line
		}

		return a.Span.Start.Column < b.Span.Start.Column
	})
}

// Format renders every diagnostic as "file:line:col: error[code]: title"
// followed by its message, one block per diagnostic.
func (e *Engine) Format() string {
	if len(e.diagnostics) == 0 {
		return ""
	}

	e.Sort()

	var out strings.Builder

	for i, d := range e.diagnostics {
		if i > 0 {
			out.WriteString("\n")
		}

		out.WriteString(formatOne(&d))
	}

	return out.String()
}

func formatOne(d *Diagnostic) string {
	var out strings.Builder

	out.WriteString(fmt.Sprintf("%s:%d:%d: error[%s]: %s\n",
		d.Span.Start.Filename, d.Span.Start.Line, d.Span.Start.Column, d.Code, d.Title))

	if d.Message != "" {
		out.WriteString(fmt.Sprintf("  %s\n", d.Message))
	}

	return out.String()
}
