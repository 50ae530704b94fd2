package rewriter

import (
	"fmt"
	"strings"

	"github.com/xieby1/luajit-pro/internal/lexer"
)

// parseCompTime handles a $comp_time [(name)] { ... } construct at idx: it
// extracts the body's original source text, evaluates it as Lua through the
// shared comptime.Session, and splices the string result back in, per
// spec.md §4.4.
func (d *Driver) parseCompTime(idx int) error {
	key := anchorOf(d.at(idx))
	if d.visited[key] {
		return nil
	}

	d.visited[key] = true

	openIdx := idx + 1

	name := "Unknown"
	if d.at(openIdx).Text == "(" {
		if d.at(openIdx+1).Kind == lexer.Identifier {
			name = d.at(openIdx + 1).Text
		}

		openIdx += 3 // '(' name ')'
	}

	closeIdx, err := d.matchBrace(openIdx, d.at(idx).Span)
	if err != nil {
		return err
	}

	open := d.at(openIdx)
	close := d.at(closeIdx)

	chunk := d.extractBody(open, close)

	label := fmt.Sprintf("%s/compTime/%s:%d", d.filename, name, d.at(idx).Span.Start.Line)

	result, err := d.comp.Eval(label, chunk)
	if err != nil {
		return err
	}

	d.spliceResult(d.at(idx), open, close, result)

	return nil
}

// extractBody reconstructs the original source text strictly between the
// opening and closing brace tokens (exclusive), joining multi-line bodies
// with newlines so the evaluated chunk keeps its own line structure.
func (d *Driver) extractBody(open, close lexer.Token) string {
	if open.Span.End.Line == close.Span.Start.Line {
		line := d.buf.Line(open.Span.End.Line)
		return sliceCols(line, open.Span.End.Column, close.Span.Start.Column)
	}

	var b strings.Builder

	first := d.buf.Line(open.Span.End.Line)
	b.WriteString(sliceCols(first, open.Span.End.Column, len(first)))

	for ln := open.Span.End.Line + 1; ln < close.Span.Start.Line; ln++ {
		b.WriteByte('\n')
		b.WriteString(d.buf.Line(ln))
	}

	last := d.buf.Line(close.Span.Start.Line)
	b.WriteByte('\n')
	b.WriteString(sliceCols(last, 0, close.Span.Start.Column))

	return b.String()
}

func sliceCols(line string, start, end int) string {
	if start < 0 {
		start = 0
	}

	if end > len(line) {
		end = len(line)
	}

	if start >= end {
		return ""
	}

	return line[start:end]
}

// spliceResult replaces the whole $comp_time{...} construct with the
// evaluated result text, per spec.md §4.4 and lj_load_helper.cpp:826-829:
// every line the construct spans is first blanked to the line-keeper
// placeholder, the keyword's own line is then overwritten with the bare
// "--[[comp_time]] " marker, and the result is appended to whatever now sits
// on the line that held the opening `{` — which is the marker line itself
// when the keyword and `{` share a line, and a keeper line otherwise. A
// construct that opens and closes on one line is instead replaced in place
// by the marker plus the result; text before and after it on that line is
// kept.
func (d *Driver) spliceResult(keyword, open, close lexer.Token, result string) {
	startLine := keyword.Span.Start.Line
	openLine := open.Span.Start.Line
	endLine := close.Span.Start.Line

	if startLine == endLine {
		replacement := "--[[comp_time]] " + result
		d.buf.ReplaceRange(startLine, keyword.Span.Start.Column, close.Span.End.Column, replacement)
		return
	}

	d.buf.KeepRange(startLine, endLine)
	d.buf.SetLine(startLine, "--[[comp_time]] ")
	d.buf.AppendToLine(openLine, result)
}
