package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/xieby1/luajit-pro/internal/position"
)

func TestInputErrorMessage(t *testing.T) {
	err := InputError("foo.lua", errors.New("permission denied"))

	if err.Category != CategoryInput {
		t.Fatalf("Category = %v, want %v", err.Category, CategoryInput)
	}

	if !strings.Contains(err.Error(), "foo.lua") {
		t.Fatalf("Error() = %q, want it to mention the filename", err.Error())
	}
}

func TestStructuralErrorIncludesSpan(t *testing.T) {
	span := position.Span{Start: position.Position{Filename: "t.lua", Line: 2, Column: 4}}

	err := StructuralError(span, "missing return in %s body", "map")

	if !strings.Contains(err.Error(), "t.lua:2:4") {
		t.Fatalf("Error() = %q, want it to contain the span", err.Error())
	}

	if err.Message != "missing return in map body" {
		t.Fatalf("Message = %q", err.Message)
	}
}

func TestEvalErrorCarriesChunk(t *testing.T) {
	err := EvalError("t.lua/compTime/tag:3", "return 1+", errors.New("unexpected symbol"))

	if err.Category != CategoryEval {
		t.Fatalf("Category = %v, want %v", err.Category, CategoryEval)
	}

	if err.Context["chunk"] != "return 1+" {
		t.Fatalf("Context[chunk] = %v", err.Context["chunk"])
	}
}

func TestIncludeError(t *testing.T) {
	span := position.Span{Start: position.Position{Filename: "t.lua", Line: 9, Column: 0}}

	err := IncludeError(span, "module %q not found on package.path", "mymod")

	if err.Category != CategoryInclude {
		t.Fatalf("Category = %v, want %v", err.Category, CategoryInclude)
	}
}
