// Package transform implements the top-level transformer driver: sentinel
// detection, the optional external macro-preprocessor stage, the
// lex+rewrite pipeline, and cache-file bookkeeping, per spec.md §4 and
// SPEC_FULL.md §4.6.
package transform

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/xieby1/luajit-pro/internal/cli"
	"github.com/xieby1/luajit-pro/internal/comptime"
	"github.com/xieby1/luajit-pro/internal/errors"
	"github.com/xieby1/luajit-pro/internal/include"
	"github.com/xieby1/luajit-pro/internal/lexer"
	"github.com/xieby1/luajit-pro/internal/linebuf"
	"github.com/xieby1/luajit-pro/internal/rewriter"
)

const (
	sentinel     = "--[[luajit-pro"
	noPreprocess = "preprocess: false"
	firstLine    = "--[[luajit-pro]] local ipairs, _tinsert = ipairs, table.insert"
)

// Driver runs the per-file transformer pipeline. One Driver is meant to be
// shared by an entire process (spec.md §5): it owns the cache directory,
// the removal list, and a reference to the process-wide comptime.Session.
type Driver struct {
	Comp          *comptime.Session
	CacheDir      string
	KeepFiles     bool
	WithPIDSuffix bool
	Logger        *cli.Logger

	removal *removalList
}

// NewDriver builds a Driver from the resolved CLI config.
func NewDriver(comp *comptime.Session, cfg *cli.Config, logger *cli.Logger) *Driver {
	return &Driver{
		Comp:          comp,
		CacheDir:      cfg.CacheDir,
		KeepFiles:     cfg.KeepFiles || os.Getenv("LJP_KEEP_FILE") == "1",
		WithPIDSuffix: cfg.WithPIDSuffix || os.Getenv("LJP_WITH_PID_SUFFIX") == "1",
		Logger:        logger,
		removal:       newRemovalList(),
	}
}

// Drain deletes every registered cache file, unless keep-files is set. Meant
// to be called once via defer in cmd/ljp's main — spec.md §5's "process-wide
// RemovalList drained at normal exit", expressed here as an explicit handle
// instead of ambient state.
func (d *Driver) Drain() {
	if d.KeepFiles {
		return
	}

	d.removal.drain()
}

// Transform runs the sentinel→preprocess→lex→rewrite pipeline on path and
// returns the path of the cache file holding the transformed source. A file
// without the sentinel on its first line is returned unchanged, per
// spec.md §4.7 step 1 — this is SentinelMissing, not an error.
//
// visited threads the chain of paths that led here via $include, so
// internal/include can detect a cycle instead of recursing without bound.
func (d *Driver) Transform(path string, visited []string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.InputError(path, err)
	}

	src := string(raw)
	lines := strings.SplitN(src, "\n", 2)
	first := lines[0]

	if !strings.Contains(first, sentinel) {
		return path, nil
	}

	if err := checkVersionGate(path, first); err != nil {
		return "", err
	}

	preprocessed, err := d.preprocess(path, src, strings.Contains(first, noPreprocess))
	if err != nil {
		return "", err
	}

	base := filepath.Base(path)
	suffix := ""

	if d.WithPIDSuffix {
		suffix = fmt.Sprintf(".%d", os.Getpid())
	}

	if err := os.MkdirAll(d.CacheDir, 0o755); err != nil {
		return "", errors.InputError(d.CacheDir, err)
	}

	processedPath := filepath.Join(d.CacheDir, base+".1.processed"+suffix)
	if err := os.WriteFile(processedPath, []byte(preprocessed), 0o644); err != nil {
		return "", errors.InputError(processedPath, err)
	}

	d.removal.add(processedPath)

	toks := lexer.New(path, preprocessed).Tokenize()
	buf := linebuf.New(preprocessed)

	includer := &includerAdapter{
		driver:   d,
		filename: path,
		visited:  append(append([]string{}, visited...), path),
	}

	if err := rewriter.New(path, toks, buf, d.Comp, includer).Run(); err != nil {
		return "", err
	}

	if buf.Len() > 0 {
		buf.SetLine(1, firstLine)
	}

	transformedPath := filepath.Join(d.CacheDir, base+".2.transformed"+suffix)
	if err := os.WriteFile(transformedPath, []byte(buf.String()), 0o644); err != nil {
		return "", errors.InputError(transformedPath, err)
	}

	d.removal.add(transformedPath)

	if d.Logger != nil {
		d.Logger.Debug("transformed %s -> %s", path, transformedPath)
	}

	return transformedPath, nil
}

// preprocess runs the external macro pass, or copies src verbatim when
// disabled by the first line's "preprocess: false" directive.
func (d *Driver) preprocess(path, src string, disabled bool) (string, error) {
	if disabled {
		return src, nil
	}

	cmd := exec.Command("sh", "-c", fmt.Sprintf("cpp %s -E | sed '/^#/d'", shellQuote(path)))

	out, err := cmd.Output()
	if err != nil {
		return "", errors.InputError(path, fmt.Errorf("macro preprocessor: %w", err))
	}

	return string(out), nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// checkVersionGate parses an optional trailing semver constraint off the
// sentinel line (e.g. "--[[luajit-pro >=1.2.0]]") and fails the file if this
// binary's own version does not satisfy it. Supplemented affordance, not in
// spec.md — see SPEC_FULL.md §3.
func checkVersionGate(path, line string) error {
	start := strings.Index(line, sentinel)
	if start < 0 {
		return nil
	}

	rest := line[start+len(sentinel):]

	end := strings.Index(rest, "]]")
	if end < 0 {
		return nil
	}

	constraint := strings.TrimSpace(rest[:end])
	if constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.StructuralError(zeroSpan(path), "malformed sentinel version constraint %q: %v", constraint, err)
	}

	v, err := semver.NewVersion(cli.Version)
	if err != nil {
		return errors.StructuralError(zeroSpan(path), "this binary's own version %q is not valid semver: %v", cli.Version, err)
	}

	if !c.Check(v) {
		return errors.StructuralError(zeroSpan(path),
			"sentinel requires luajit-pro %s, running binary is %s", constraint, cli.Version)
	}

	return nil
}
