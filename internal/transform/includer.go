package transform

import (
	"fmt"

	"github.com/xieby1/luajit-pro/internal/include"
	"github.com/xieby1/luajit-pro/internal/position"
)

// includerAdapter satisfies rewriter.Includer for one file's Transform call,
// closing over the Driver (which already satisfies include.Transformer —
// its Transform method has exactly that signature) and the path chain that
// led to this file.
type includerAdapter struct {
	driver   *Driver
	filename string
	visited  []string
}

func (a *includerAdapter) Resolve(span position.Span, exprSource string) (string, error) {
	label := fmt.Sprintf("%s/include:%d", a.filename, span.Start.Line)
	return include.Resolve(a.driver.Comp, a.driver, a.visited, label, span, exprSource)
}

// zeroSpan builds a span pointing at line 1, column 0 of filename, for errors raised before
// any token has been lexed (e.g. a malformed sentinel on line 1).
func zeroSpan(filename string) position.Span {
	pos := position.Position{Filename: filename, Line: 1, Column: 0}
	return position.Span{Start: pos, End: pos}
}
