// Package include implements $include(expr) resolution: turning a module
// expression into the flattened, comment-stripped text of its transformed
// target file, per spec.md §4.5.
package include

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xieby1/luajit-pro/internal/comptime"
	"github.com/xieby1/luajit-pro/internal/errors"
	"github.com/xieby1/luajit-pro/internal/position"
)

// Transformer recursively transforms the file at path, threading the
// visited path set forward so a cycle back to an ancestor can be detected
// instead of recursing without bound. Implemented by internal/transform.Driver
// (internal/include cannot import internal/transform directly: transform
// imports rewriter, and rewriter's Includer is satisfied by transform —
// importing transform here would close that cycle).
type Transformer interface {
	Transform(path string, visited []string) (string, error)
}

var (
	blockComment = regexp.MustCompile(`(?s)--\[\[.*?\]\]`)
	lineComment  = regexp.MustCompile(`--[^\n]*`)
)

// Resolve builds the `package.searchpath` snippet for exprSource, evaluates
// it through comp, recursively transforms the file it names, and flattens
// the result into the single-line replacement text $include splices in.
//
// visited holds the chain of resolved paths that led here; the resolved path
// is made absolute, and one already in that chain is reported as a cycle
// rather than recursed into.
func Resolve(comp *comptime.Session, tr Transformer, visited []string, label string, span position.Span, exprSource string) (string, error) {
	snippet := fmt.Sprintf("return assert(package.searchpath(%s, package.path))", exprSource)

	resolved, err := comp.Eval(label, snippet)
	if err != nil {
		return "", errors.IncludeError(span, "cannot resolve %s: %v", exprSource, err)
	}

	if abs, absErr := filepath.Abs(resolved); absErr == nil {
		resolved = abs
	}

	for _, v := range visited {
		if v == resolved {
			return "", errors.IncludeError(span, "include cycle: %s -> %s", strings.Join(visited, " -> "), resolved)
		}
	}

	transformedPath, err := tr.Transform(resolved, append(visited, resolved))
	if err != nil {
		return "", errors.IncludeError(span, "cannot transform included file %s: %v", resolved, err)
	}

	data, err := os.ReadFile(transformedPath)
	if err != nil {
		return "", errors.IncludeError(span, "cannot read transformed include %s: %v", transformedPath, err)
	}

	return flatten(string(data)), nil
}

// flatten strips line and block comments (by regexp, not string-literal
// aware — spec.md §4.5/§9 preserves this limitation from the original) and
// joins the lines that remain with a single space each, per spec.md §8
// scenario (f): no trimming, no dropping of now-blank lines, so whitespace
// either side of a stripped comment or a blank trailing line survives into
// the joined result exactly as the original does.
func flatten(src string) string {
	src = blockComment.ReplaceAllString(src, "")

	lines := strings.Split(src, "\n")

	for i, ln := range lines {
		lines[i] = lineComment.ReplaceAllString(ln, "")
	}

	return strings.Join(lines, " ")
}
