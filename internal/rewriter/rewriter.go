// Package rewriter implements the structural rewriter: the token-window
// construct matcher that turns foreach/map/filter/$comp_time/$include into
// plain host-language code, per spec.md §4.2-§4.5.
package rewriter

import (
	"github.com/xieby1/luajit-pro/internal/comptime"
	"github.com/xieby1/luajit-pro/internal/errors"
	"github.com/xieby1/luajit-pro/internal/lexer"
	"github.com/xieby1/luajit-pro/internal/linebuf"
	"github.com/xieby1/luajit-pro/internal/position"
)

// Includer resolves a $include(expr) construct to the text that should
// replace it. Implemented by internal/transform, which supplies the label
// and the $include path chain before calling internal/include, so this
// package never imports internal/include directly.
type Includer interface {
	Resolve(span position.Span, exprSource string) (string, error)
}

// anchor identifies a construct by the (line, column) of its receiver or
// keyword token, per spec.md's TransformerState.processed/replaced sets.
type anchor struct {
	line, col int
}

// Driver walks a token vector and rewrites the constructs it recognizes
// into the line buffer in place.
//
// spec.md §9 notes that the original's twin processed/replaced anchor sets
// are never observed to diverge and invites collapsing them; this port
// takes that invitation and keeps a single visited-anchor set.
type Driver struct {
	filename string
	tokens   []lexer.Token
	buf      *linebuf.Buffer
	comp     *comptime.Session
	includer Includer
	visited  map[anchor]bool
}

// New creates a Driver over an already-lexed token vector and its
// corresponding line buffer.
func New(filename string, tokens []lexer.Token, buf *linebuf.Buffer, comp *comptime.Session, includer Includer) *Driver {
	return &Driver{
		filename: filename,
		tokens:   tokens,
		buf:      buf,
		comp:     comp,
		includer: includer,
		visited:  make(map[anchor]bool),
	}
}

// Run rewrites every construct in the token vector, starting at index 0.
func (d *Driver) Run() error {
	return d.parse(0)
}

// at returns the token at idx, or a synthetic EndOfFile token if idx falls
// outside the vector — the driver treats out-of-range lookahead the same
// way the original treats a premature end of stream.
func (d *Driver) at(idx int) lexer.Token {
	if idx < 0 || idx >= len(d.tokens) {
		return lexer.Token{Kind: lexer.EndOfFile}
	}

	return d.tokens[idx]
}

func synthetic(text string) lexer.Token {
	return lexer.Token{Kind: lexer.Identifier, Text: text}
}

func anchorOf(tok lexer.Token) anchor {
	return anchor{tok.Span.Start.Line, tok.Span.Start.Column}
}

// parse is the general driver: it walks tokens from idx, dispatching each
// construct keyword to its handler, per spec.md §4.2. It is invoked both at
// the top level and recursively to rewrite nested constructs' bodies first.
func (d *Driver) parse(idx int) error {
	i := idx

	for {
		tok := d.at(i)

		var err error

		switch tok.Kind {
		case lexer.Foreach:
			err = d.parseForeach(i)
		case lexer.Map:
			err = d.parseMap(i)
		case lexer.Filter:
			err = d.parseFilter(i)
		case lexer.CompTime:
			err = d.parseCompTime(i)
		case lexer.Include:
			err = d.parseInclude(i)
		}

		if err != nil {
			return err
		}

		i++

		if d.at(i).Kind == lexer.EndOfFile {
			return nil
		}
	}
}

// matchBrace scans forward from the index of an opening '{' token,
// recursing into the general driver for every nested '{' so inner
// constructs are rewritten before the outer one, and returns the index of
// the matching '}'.
func (d *Driver) matchBrace(openIdx int, anchorSpan position.Span) (int, error) {
	i := openIdx
	depth := 0
	tok := d.at(i)

	if tok.Text != "{" {
		return 0, errors.StructuralError(anchorSpan, "expected '{' to open construct body, found %q", tok.Text)
	}

	for tok.Text == "{" || depth != 0 {
		switch tok.Text {
		case "}":
			depth--

			if depth == 0 {
				return i, nil
			}
		case "{":
			depth++

			if err := d.parse(i + 1); err != nil {
				return 0, err
			}
		}

		i++
		tok = d.at(i)

		if tok.Kind == lexer.EndOfFile {
			return 0, errors.StructuralError(anchorSpan, "unbalanced braces in construct body")
		}
	}

	return i, nil
}

// findReturn scans backward from fromIdx (the body's closing '}') for the
// nearest Return token at the body's own brace depth, skipping returns
// inside nested braces, and fails if it reaches stopIdx — the combinator
// keyword's position — without finding one. Required for map/filter's
// non-Simple shapes (spec.md §3's "at least one return" invariant).
func (d *Driver) findReturn(fromIdx, stopIdx int, anchorSpan position.Span) (lexer.Token, error) {
	i := fromIdx
	depth := 0

	for {
		tok := d.at(i)

		switch {
		case tok.Text == "}":
			depth++
		case tok.Text == "{":
			depth--
		case tok.Kind == lexer.Return && depth == 1:
			return tok, nil
		}

		i--

		if i == stopIdx {
			return lexer.Token{}, errors.StructuralError(anchorSpan, "missing return in map/filter body")
		}
	}
}
