package rewriter

import (
	"github.com/xieby1/luajit-pro/internal/errors"
	"github.com/xieby1/luajit-pro/internal/lexer"
	"github.com/xieby1/luajit-pro/internal/position"
)

// parseInclude handles a $include(expr) construct at idx, per spec.md §4.5.
// The construct must live entirely on one physical line; its parenthesized
// expression source is handed verbatim to the Includer, which resolves,
// transforms, and flattens the target file into a single-line replacement.
func (d *Driver) parseInclude(idx int) error {
	keyword := d.at(idx)

	key := anchorOf(keyword)
	if d.visited[key] {
		return nil
	}

	d.visited[key] = true

	openParen := d.at(idx + 1)

	if openParen.Text != "(" {
		return errors.StructuralError(keyword.Span, "expected '(' after $include")
	}

	closeIdx, err := d.matchParen(idx+1, keyword.Span)
	if err != nil {
		return err
	}

	closeParen := d.at(closeIdx)

	if keyword.Span.Start.Line != closeParen.Span.Start.Line {
		return errors.StructuralError(keyword.Span, "$include must appear entirely on one line")
	}

	line := d.buf.Line(keyword.Span.Start.Line)
	exprSource := sliceCols(line, openParen.Span.End.Column, closeParen.Span.Start.Column)

	replacement, err := d.includer.Resolve(keyword.Span, exprSource)
	if err != nil {
		return err
	}

	d.buf.ReplaceRange(keyword.Span.Start.Line, keyword.Span.Start.Column, closeParen.Span.End.Column, replacement)

	return nil
}

// matchParen scans forward from the index of an opening '(' token for its
// matching ')', tracking nested parens within the expression. Unlike
// matchBrace, it never recurses — $include expressions hold no nested
// constructs.
func (d *Driver) matchParen(openIdx int, anchorSpan position.Span) (int, error) {
	i := openIdx
	depth := 0
	tok := d.at(i)

	if tok.Text != "(" {
		return 0, errors.StructuralError(anchorSpan, "expected '(' to open $include expression, found %q", tok.Text)
	}

	for {
		switch tok.Text {
		case "(":
			depth++
		case ")":
			depth--

			if depth == 0 {
				return i, nil
			}
		}

		i++
		tok = d.at(i)

		if tok.Kind == lexer.EndOfFile {
			return 0, errors.StructuralError(anchorSpan, "unbalanced parens in $include expression")
		}
	}
}
