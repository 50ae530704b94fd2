package rewriter

import (
	"github.com/xieby1/luajit-pro/internal/errors"
	"github.com/xieby1/luajit-pro/internal/lexer"
)

type foreachShape int

const (
	foreachPlain foreachShape = iota
	foreachSimple
	foreachKZipWithIndex // T.foreach.zipWithIndex
	foreachZipWithIndexK // T.zipWithIndex.foreach
)

// parseForeach handles the Foreach token at idx: identifies which of the
// four shapes spec.md §4.3 describes, locates the matching closing brace
// (recursing into nested constructs first), and rewrites the construct.
func (d *Driver) parseForeach(idx int) error {
	f := idx
	rel := func(off int) lexer.Token { return d.at(f + off) }

	var (
		shape     foreachShape
		tbl       lexer.Token
		ref       = synthetic("ref")
		idxTok    = synthetic("_")
		funcTok   lexer.Token
		bodyStart lexer.Token
		braceIdx  int
	)

	switch {
	case rel(-2).Kind == lexer.Identifier:
		switch {
		case rel(2).Kind == lexer.ZipWithIndex:
			shape = foreachKZipWithIndex
		case rel(2).Kind == lexer.Identifier && rel(3).Kind == lexer.Symbol && rel(3).Text == "}":
			shape = foreachSimple
		default:
			shape = foreachPlain
		}
	case rel(-2).Kind == lexer.ZipWithIndex:
		shape = foreachZipWithIndexK
	default:
		return errors.StructuralError(rel(0).Span, "unexpected token neighbourhood around 'foreach'")
	}

	switch shape {
	case foreachPlain:
		tbl, ref, bodyStart, braceIdx = rel(-2), rel(2), rel(5), f+1
	case foreachSimple:
		tbl, funcTok, braceIdx = rel(-2), rel(2), f+1
		bodyStart = funcTok
	case foreachKZipWithIndex:
		tbl, ref, idxTok, bodyStart, braceIdx = rel(-2), rel(5), rel(7), rel(11), f+3
	case foreachZipWithIndexK:
		tbl, idxTok, ref, bodyStart, braceIdx = rel(-4), rel(3), rel(5), rel(9), f+1
	}

	key := anchorOf(tbl)
	if d.visited[key] {
		return nil
	}

	closeIdx, err := d.matchBrace(braceIdx, tbl.Span)
	if err != nil {
		return err
	}

	closeTok := d.at(closeIdx)

	if d.visited[key] {
		return nil
	}

	d.visited[key] = true

	d.rewriteForeach(shape, tbl, ref, idxTok, funcTok, bodyStart, closeTok)

	return nil
}

func (d *Driver) rewriteForeach(shape foreachShape, tbl, ref, idxTok, funcTok, bodyStart, closeTok lexer.Token) {
	header := "for " + idxTok.Text + ", " + ref.Text + " in ipairs(" + tbl.Text + ") do "

	if tbl.Span.Start.Line == bodyStart.Span.Start.Line {
		d.buf.ReplaceRange(closeTok.Span.Start.Line, closeTok.Span.Start.Column, closeTok.Span.End.Column, " end")

		if shape == foreachSimple {
			d.buf.ReplaceRange(funcTok.Span.Start.Line, funcTok.Span.Start.Column, funcTok.Span.End.Column,
				funcTok.Text+"("+ref.Text+") ")
		}

		d.buf.ReplaceRange(tbl.Span.Start.Line, tbl.Span.Start.Column, bodyStart.Span.Start.Column, header)

		return
	}

	d.buf.ReplaceRange(closeTok.Span.Start.Line, closeTok.Span.Start.Column, closeTok.Span.End.Column, " end")

	if shape == foreachSimple {
		d.buf.ReplaceRange(funcTok.Span.Start.Line, funcTok.Span.Start.Column, funcTok.Span.End.Column,
			funcTok.Text+"("+ref.Text+") ")
	}

	d.buf.SetLine(tbl.Span.Start.Line, header)

	for ln := tbl.Span.Start.Line + 1; ln <= bodyStart.Span.Start.Line; ln++ {
		if ln == bodyStart.Span.Start.Line {
			d.buf.BlankPrefix(ln, bodyStart.Span.Start.Column)
		} else {
			d.buf.Keep(ln)
		}
	}
}
