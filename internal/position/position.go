// Package position tracks source code coordinates for the luajit-pro
// transformer. Lines are 1-based, columns are 0-based, and a span's end
// column is one past the last character it covers — the exact convention
// spec.md's Token data model requires, so that lexer spans can be fed
// straight into linebuf.Buffer.ReplaceRange without translation.
package position

import "fmt"

// Position is a single point in a source file.
type Position struct {
	Filename string
	Line     int // 1-based
	Column   int // 0-based
}

// IsValid reports whether the position carries a real line number.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// String renders "file:line:col" or "line:col" when Filename is empty.
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}

	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open range [Start, End) between two positions on the
// same or different lines. End.Column is one past the last covered
// character, matching spec.md's Token.end_column.
type Span struct {
	Start Position
	End   Position
}

// IsValid reports whether both endpoints carry real line numbers.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid()
}

// SingleLine reports whether the span starts and ends on the same line.
func (s Span) SingleLine() bool {
	return s.Start.Line == s.End.Line
}

// String renders a human-readable span, collapsing the end line when it
// matches the start line.
func (s Span) String() string {
	if s.SingleLine() {
		return fmt.Sprintf("%s:%d:%d-%d", s.Start.Filename, s.Start.Line, s.Start.Column, s.End.Column)
	}

	return fmt.Sprintf("%s:%d:%d-%d:%d", s.Start.Filename, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// SourceFile holds a file's content split into lines for quick lookups by
// the rewriter and diagnostic renderer.
type SourceFile struct {
	Filename string
	Lines    []string
}

// NewSourceFile splits content into lines without its trailing terminators.
func NewSourceFile(filename, content string) *SourceFile {
	var lines []string

	start := 0

	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}

	if start < len(content) || len(content) == 0 {
		lines = append(lines, content[start:])
	}

	return &SourceFile{Filename: filename, Lines: lines}
}

// GetLine returns the given 1-based line, or "" if out of range.
func (sf *SourceFile) GetLine(lineNum int) string {
	if lineNum < 1 || lineNum > len(sf.Lines) {
		return ""
	}

	return sf.Lines[lineNum-1]
}

// GetSpanText returns the text a span covers, joining lines with "\n" when
// it spans more than one line.
func (sf *SourceFile) GetSpanText(span Span) string {
	if span.Start.Line == span.End.Line {
		line := sf.GetLine(span.Start.Line)
		if span.Start.Column < 0 || span.End.Column > len(line) || span.Start.Column > span.End.Column {
			return ""
		}

		return line[span.Start.Column:span.End.Column]
	}

	if span.Start.Column < 0 || span.End.Column < 0 {
		return ""
	}

	var out string

	for ln := span.Start.Line; ln <= span.End.Line; ln++ {
		line := sf.GetLine(ln)

		switch ln {
		case span.Start.Line:
			out += line[min(span.Start.Column, len(line)):]
		case span.End.Line:
			out += line[:min(span.End.Column, len(line))]
		default:
			out += line
		}

		if ln != span.End.Line {
			out += "\n"
		}
	}

	return out
}
