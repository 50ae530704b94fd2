package linebuf

import "testing"

func TestNewPreservesLineCount(t *testing.T) {
	tests := []struct {
		content   string
		wantLines int
	}{
		{"", 1},
		{"a", 1},
		{"a\nb\nc", 3},
		{"a\nb\nc\n", 3},
	}

	for i, tt := range tests {
		b := New(tt.content)
		if b.Len() != tt.wantLines {
			t.Fatalf("tests[%d]: Len() = %d, want %d", i, b.Len(), tt.wantLines)
		}
	}
}

func TestReplaceRange(t *testing.T) {
	b := New("local t = {1,2,3}; t.foreach { x => print(x) }")

	b.ReplaceRange(1, 19, 36, "for _, x in ipairs(t) do ")

	want := "local t = {1,2,3}; for _, x in ipairs(t) do print(x) }"
	if got := b.Line(1); got != want {
		t.Fatalf("Line(1) = %q, want %q", got, want)
	}
}

func TestKeepDoesNotChangeLineCount(t *testing.T) {
	b := New("line1\nline2\nline3")
	b.Keep(2)

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}

	if got := b.Line(2); got != Keeper {
		t.Fatalf("Line(2) = %q, want %q", got, Keeper)
	}

	if got := b.Line(1); got != "line1" {
		t.Fatalf("Line(1) changed unexpectedly: %q", got)
	}
}

func TestKeepRange(t *testing.T) {
	b := New("a\nb\nc\nd")
	b.KeepRange(2, 3)

	if b.Line(1) != "a" || b.Line(4) != "d" {
		t.Fatalf("lines outside range were modified: %q %q", b.Line(1), b.Line(4))
	}

	if b.Line(2) != Keeper || b.Line(3) != Keeper {
		t.Fatalf("lines inside range were not blanked: %q %q", b.Line(2), b.Line(3))
	}
}

func TestBlankPrefix(t *testing.T) {
	b := New("  return x")
	b.BlankPrefix(1, 2)

	if got, want := b.Line(1), "  return x"; got != want {
		t.Fatalf("Line(1) = %q, want %q", got, want)
	}
}

func TestAppendToLine(t *testing.T) {
	b := New("--[[comp_time]] ")
	b.AppendToLine(1, "local N = 42")

	if got, want := b.Line(1), "--[[comp_time]] local N = 42"; got != want {
		t.Fatalf("Line(1) = %q, want %q", got, want)
	}
}

func TestStringRoundTrips(t *testing.T) {
	content := "a\nb\nc"
	b := New(content)

	if got := b.String(); got != content {
		t.Fatalf("String() = %q, want %q", got, content)
	}
}
