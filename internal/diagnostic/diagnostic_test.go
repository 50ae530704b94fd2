package diagnostic

import (
	"strings"
	"testing"

	"github.com/xieby1/luajit-pro/internal/errors"
	"github.com/xieby1/luajit-pro/internal/position"
)

func TestBuilderBuildsDiagnostic(t *testing.T) {
	span := position.Span{
		Start: position.Position{Filename: "t.lua", Line: 3, Column: 5},
		End:   position.Position{Filename: "t.lua", Line: 3, Column: 9},
	}

	d := New().
		InCategory(CategoryStructural).
		Code("E001").
		Title("missing return").
		Message("map body at %s has no return", "T").
		Span(span).
		Build()

	if d.Category != CategoryStructural {
		t.Fatalf("Category = %v, want %v", d.Category, CategoryStructural)
	}

	if d.Message != "map body at T has no return" {
		t.Fatalf("Message = %q", d.Message)
	}

	if d.Span != span {
		t.Fatalf("Span = %+v, want %+v", d.Span, span)
	}
}

func TestEngineFormatOrdersByPosition(t *testing.T) {
	e := NewEngine()

	e.Add(New().Code("E2").Title("second").
		Span(position.Span{Start: position.Position{Filename: "a.lua", Line: 5, Column: 0}}).Build())
	e.Add(New().Code("E1").Title("first").
		Span(position.Span{Start: position.Position{Filename: "a.lua", Line: 1, Column: 0}}).Build())

	out := e.Format()

	if strings.Index(out, "E1") > strings.Index(out, "E2") {
		t.Fatalf("expected E1 before E2 in output:\n%s", out)
	}
}

func TestEngineHasDiagnostics(t *testing.T) {
	e := NewEngine()
	if e.HasDiagnostics() {
		t.Fatalf("expected no diagnostics on a fresh engine")
	}

	e.Add(New().Code("E1").Title("x").Build())

	if !e.HasDiagnostics() {
		t.Fatalf("expected HasDiagnostics to be true after Add")
	}
}

func TestFromStandardErrorCarriesCategoryAndSpan(t *testing.T) {
	span := position.Span{
		Start: position.Position{Filename: "t.lua", Line: 2, Column: 1},
		End:   position.Position{Filename: "t.lua", Line: 2, Column: 4},
	}

	se := errors.StructuralError(span, "unexpected token %q", "}")

	d := FromStandardError(se)

	if d.Category != CategoryStructural {
		t.Fatalf("Category = %v, want %v", d.Category, CategoryStructural)
	}

	if d.Code != "STRUCTURAL_ERROR" {
		t.Fatalf("Code = %q, want %q", d.Code, "STRUCTURAL_ERROR")
	}

	if d.Title != `unexpected token "}"` {
		t.Fatalf("Title = %q", d.Title)
	}

	if d.Span != span {
		t.Fatalf("Span = %+v, want %+v", d.Span, span)
	}
}
