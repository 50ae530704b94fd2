package rewriter

import (
	"github.com/xieby1/luajit-pro/internal/errors"
	"github.com/xieby1/luajit-pro/internal/lexer"
)

type combinatorShape int

const (
	combinatorPlain combinatorShape = iota
	combinatorSimple
	combinatorKZipWithIndex // T.K.zipWithIndex
	combinatorZipWithIndexK // T.zipWithIndex.K
)

// combinatorSite is the common token geometry captured for a map or filter
// construct before its (shape-specific) replacement text is generated.
type combinatorSite struct {
	shape     combinatorShape
	ret       lexer.Token
	tbl       lexer.Token
	ref       lexer.Token
	idxTok    lexer.Token
	funcTok   lexer.Token
	bodyStart lexer.Token
	braceIdx  int
}

// locateCombinator identifies the shape of a map/filter construct whose
// keyword token sits at idx, per the shape table in spec.md §4.3.
func (d *Driver) locateCombinator(idx int, keyword string) (combinatorSite, error) {
	f := idx
	rel := func(off int) lexer.Token { return d.at(f + off) }

	site := combinatorSite{ref: synthetic("ref"), idxTok: synthetic("_")}

	switch {
	case rel(-2).Kind == lexer.Identifier:
		switch {
		case rel(2).Kind == lexer.ZipWithIndex:
			site.shape = combinatorKZipWithIndex
		case rel(2).Kind == lexer.Identifier && rel(3).Text == "}":
			site.shape = combinatorSimple
		default:
			site.shape = combinatorPlain
		}
	case rel(-2).Kind == lexer.ZipWithIndex:
		site.shape = combinatorZipWithIndexK
	default:
		return site, errors.StructuralError(rel(0).Span, "unexpected token neighbourhood around '%s'", keyword)
	}

	switch site.shape {
	case combinatorPlain:
		site.ret, site.tbl, site.ref, site.bodyStart, site.braceIdx = rel(-4), rel(-2), rel(2), rel(5), f+1
	case combinatorSimple:
		site.ret, site.tbl, site.funcTok, site.braceIdx = rel(-4), rel(-2), rel(2), f+1
		site.bodyStart = site.funcTok
	case combinatorKZipWithIndex:
		site.ret, site.tbl, site.ref, site.idxTok, site.bodyStart, site.braceIdx =
			rel(-4), rel(-2), rel(5), rel(7), rel(11), f+3
	case combinatorZipWithIndexK:
		site.ret, site.tbl, site.idxTok, site.ref, site.bodyStart, site.braceIdx =
			rel(-6), rel(-4), rel(3), rel(5), rel(9), f+1
	}

	return site, nil
}

// parseMap handles the Map token at idx.
func (d *Driver) parseMap(idx int) error {
	site, err := d.locateCombinator(idx, "map")
	if err != nil {
		return err
	}

	key := anchorOf(site.tbl)
	if d.visited[key] {
		return nil
	}

	closeIdx, err := d.matchBrace(site.braceIdx, site.tbl.Span)
	if err != nil {
		return err
	}

	var returnTok lexer.Token
	if site.shape != combinatorSimple {
		returnTok, err = d.findReturn(closeIdx, idx, site.tbl.Span)
		if err != nil {
			return err
		}
	}

	closeTok := d.at(closeIdx)

	if d.visited[key] {
		return nil
	}

	d.visited[key] = true

	d.rewriteMap(site, returnTok, closeTok)

	return nil
}

func (d *Driver) rewriteMap(site combinatorSite, returnTok, closeTok lexer.Token) {
	header := site.ret.Text + " = {}; for " + site.idxTok.Text + ", " + site.ref.Text +
		" in ipairs(" + site.tbl.Text + ") do "

	d.buf.ReplaceRange(closeTok.Span.Start.Line, closeTok.Span.Start.Column, closeTok.Span.End.Column, ") end")

	if site.shape == combinatorSimple {
		d.buf.ReplaceRange(site.funcTok.Span.Start.Line, site.funcTok.Span.Start.Column, site.funcTok.Span.End.Column,
			"_tinsert("+site.ret.Text+", "+site.funcTok.Text+"("+site.ref.Text+") ")
	} else {
		d.buf.ReplaceRange(returnTok.Span.Start.Line, returnTok.Span.Start.Column, returnTok.Span.End.Column,
			"_tinsert("+site.ret.Text+",")
	}

	if site.tbl.Span.Start.Line == site.bodyStart.Span.Start.Line {
		d.buf.ReplaceRange(site.tbl.Span.Start.Line, site.ret.Span.Start.Column, site.bodyStart.Span.Start.Column, header)
		return
	}

	line := d.buf.Line(site.tbl.Span.Start.Line)
	prefix := ""

	if site.ret.Span.Start.Column <= len(line) {
		prefix = line[:site.ret.Span.Start.Column]
	}

	d.buf.SetLine(site.tbl.Span.Start.Line, prefix+header)

	for ln := site.tbl.Span.Start.Line + 1; ln <= site.bodyStart.Span.Start.Line; ln++ {
		if ln == site.bodyStart.Span.Start.Line {
			d.buf.BlankPrefix(ln, site.bodyStart.Span.Start.Column)
		} else {
			d.buf.Keep(ln)
		}
	}
}

// parseFilter handles the Filter token at idx.
func (d *Driver) parseFilter(idx int) error {
	site, err := d.locateCombinator(idx, "filter")
	if err != nil {
		return err
	}

	key := anchorOf(site.tbl)
	if d.visited[key] {
		return nil
	}

	closeIdx, err := d.matchBrace(site.braceIdx, site.tbl.Span)
	if err != nil {
		return err
	}

	var returnTok lexer.Token
	if site.shape != combinatorSimple {
		returnTok, err = d.findReturn(closeIdx, idx, site.tbl.Span)
		if err != nil {
			return err
		}
	}

	closeTok := d.at(closeIdx)

	if d.visited[key] {
		return nil
	}

	d.visited[key] = true

	d.rewriteFilter(site, returnTok, closeTok)

	return nil
}

func (d *Driver) rewriteFilter(site combinatorSite, returnTok, closeTok lexer.Token) {
	header := site.ret.Text + " = {}; for " + site.idxTok.Text + ", " + site.ref.Text +
		" in ipairs(" + site.tbl.Text + ") do "

	sameLine := site.tbl.Span.Start.Line == site.bodyStart.Span.Start.Line

	switch {
	case site.shape == combinatorSimple && sameLine:
		d.buf.ReplaceRange(closeTok.Span.Start.Line, closeTok.Span.Start.Column, closeTok.Span.End.Column, ") end end")
		d.buf.ReplaceRange(site.funcTok.Span.Start.Line, site.funcTok.Span.Start.Column, site.funcTok.Span.End.Column,
			"if "+site.funcTok.Text+"("+site.ref.Text+") then _tinsert("+site.ret.Text+", "+site.ref.Text)
	case site.shape == combinatorSimple:
		d.buf.ReplaceRange(closeTok.Span.Start.Line, closeTok.Span.Start.Column, closeTok.Span.End.Column, "end")
		d.buf.ReplaceRange(site.funcTok.Span.Start.Line, site.funcTok.Span.Start.Column, site.funcTok.Span.End.Column,
			"if "+site.funcTok.Text+"("+site.ref.Text+") then _tinsert("+site.ret.Text+", "+site.ref.Text+") end")
	default:
		d.buf.ReplaceRange(closeTok.Span.Start.Line, closeTok.Span.Start.Column, closeTok.Span.End.Column,
			" then _tinsert("+site.ret.Text+", "+site.ref.Text+") end end")
		d.buf.ReplaceRange(returnTok.Span.Start.Line, returnTok.Span.Start.Column, returnTok.Span.End.Column, "if")
	}

	if sameLine {
		d.buf.ReplaceRange(site.tbl.Span.Start.Line, site.ret.Span.Start.Column, site.bodyStart.Span.Start.Column, header)
		return
	}

	line := d.buf.Line(site.tbl.Span.Start.Line)
	prefix := ""

	if site.ret.Span.Start.Column <= len(line) {
		prefix = line[:site.ret.Span.Start.Column]
	}

	d.buf.SetLine(site.tbl.Span.Start.Line, prefix+header)

	for ln := site.tbl.Span.Start.Line + 1; ln <= site.bodyStart.Span.Start.Line; ln++ {
		if ln == site.bodyStart.Span.Start.Line {
			d.buf.BlankPrefix(ln, site.bodyStart.Span.Start.Column)
		} else {
			d.buf.Keep(ln)
		}
	}
}
