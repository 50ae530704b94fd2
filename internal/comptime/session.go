// Package comptime implements the compile-time evaluator: the process-wide
// embedded host-language interpreter that runs $comp_time bodies and the
// $include searchpath snippet, per spec.md §4.6.
package comptime

import (
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/flosch/pongo2/v6"
	lua "github.com/yuin/gopher-lua"

	"github.com/xieby1/luajit-pro/internal/errors"
)

const (
	purple = "\033[35m"
	reset  = "\033[0m"
	marker = purple + "[comp_time]" + reset
)

// DefaultPackagePath is the default module search template list, mirroring
// Lua's own package.path convention.
const DefaultPackagePath = "./?.lua;./?/init.lua"

// Session is a long-lived embedded Lua interpreter plus the preloaded
// prelude spec.md §4.6 describes. One Session is meant to be shared by an
// entire process; Eval holds the Session's mutex, so concurrent callers are
// serialized.
type Session struct {
	mu      sync.Mutex
	l       *lua.LState
	verbose bool
}

// global is the process-wide singleton, created lazily on first use.
var (
	global     *Session
	globalOnce sync.Once
)

// Global returns the process-wide Session, creating it on first call.
func Global() *Session {
	globalOnce.Do(func() {
		global = newSession()
	})

	return global
}

func newSession() *Session {
	verbose := os.Getenv("LJP_VERBOSE_DO_STRING") == "1"
	if verbose {
		fmt.Println("[luajit-pro] LJP_VERBOSE_DO_STRING is enabled!")
	}

	l := lua.NewState()
	l.OpenLibs()

	s := &Session{l: l, verbose: verbose}
	s.installPrelude()

	return s
}

// installPrelude wires print/printf/env_vars/render/package.searchpath into
// the interpreter's global table.
func (s *Session) installPrelude() {
	s.l.SetGlobal("old_print", s.l.GetGlobal("print"))

	s.l.SetGlobal("print", s.l.NewFunction(s.luaPrint))
	s.l.SetGlobal("printf", s.l.NewFunction(s.luaPrintf))

	envVars := s.l.NewTable()
	meta := s.l.NewTable()
	s.l.SetField(meta, "__index", s.l.NewFunction(s.luaEnvVarsIndex))
	s.l.SetMetatable(envVars, meta)
	s.l.SetGlobal("env_vars", envVars)

	if strLib, ok := s.l.GetGlobal("string").(*lua.LTable); ok {
		strLib.RawSetString("render", s.l.NewFunction(s.luaRender))
	}

	pkg, ok := s.l.GetGlobal("package").(*lua.LTable)
	if !ok {
		pkg = s.l.NewTable()
		s.l.SetGlobal("package", pkg)
	}

	s.l.SetField(pkg, "path", lua.LString(DefaultPackagePath))
	s.l.SetField(pkg, "searchpath", s.l.NewFunction(s.luaSearchpath))
}

func (s *Session) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	args := make([]string, n)

	for i := 1; i <= n; i++ {
		args[i-1] = lua.LVAsString(L.Get(i))
	}

	fmt.Print(marker, " ")

	for i, a := range args {
		if i > 0 {
			fmt.Print("\t")
		}

		fmt.Print(a)
	}

	fmt.Println()

	return 0
}

func (s *Session) luaPrintf(L *lua.LState) int {
	n := L.GetTop()
	if n == 0 {
		return 0
	}

	format := L.CheckString(1)
	args := make([]interface{}, 0, n-1)

	for i := 2; i <= n; i++ {
		args = append(args, L.Get(i))
	}

	fmt.Print(marker, "\t", fmt.Sprintf(format, args...))

	return 0
}

func (s *Session) luaEnvVarsIndex(L *lua.LState) int {
	key := L.CheckString(2)

	value, ok := os.LookupEnv(key)
	if !ok {
		fmt.Printf("%s\t[warn] env_vars[%s] is nil!\n", marker, key)
		L.Push(lua.LNil)

		return 1
	}

	L.Push(lua.LString(value))

	return 1
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// luaRender implements render(template, vars): substitutes {{key}}
// placeholders via pongo2, asserting every placeholder is present in vars.
func (s *Session) luaRender(L *lua.LState) int {
	template := L.CheckString(1)
	vars := L.CheckTable(2)

	ctx := pongo2.Context{}
	vars.ForEach(func(k, v lua.LValue) {
		ctx[lua.LVAsString(k)] = luaValueToGo(v)
	})

	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		key := match[1]
		if _, ok := ctx[key]; !ok {
			L.RaiseError("[render] key not found: %s\n\ttemplate_str is: %s", key, template)
			return 0
		}
	}

	tpl, err := pongo2.FromString(template)
	if err != nil {
		L.RaiseError("[render] invalid template: %v", err)
		return 0
	}

	out, err := tpl.Execute(&ctx)
	if err != nil {
		L.RaiseError("[render] execution failed: %v", err)
		return 0
	}

	L.Push(lua.LString(out))

	return 1
}

func luaValueToGo(v lua.LValue) interface{} {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	default:
		return v.String()
	}
}

// luaSearchpath implements package.searchpath(name, path): splits path on
// ';', substitutes '?' with name, and returns the first template whose file
// exists.
func (s *Session) luaSearchpath(L *lua.LState) int {
	name := L.CheckString(1)
	path := L.CheckString(2)

	found, tried := Searchpath(name, path)
	if found == "" {
		L.Push(lua.LNil)
		L.Push(lua.LString(tried))

		return 2
	}

	L.Push(lua.LString(found))

	return 1
}

// Searchpath implements Lua's package.searchpath semantics: split path on
// ';', substitute '?' with name, and return the first template naming an
// existing file. On failure it returns the newline-joined list of paths
// tried, matching Lua's own diagnostic convention.
func Searchpath(name, path string) (found, tried string) {
	var attempted []string

	start := 0

	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == ';' {
			template := path[start:i]
			start = i + 1

			if template == "" {
				continue
			}

			candidate := replaceAll(template, "?", name)
			attempted = append(attempted, candidate)

			if _, err := os.Stat(candidate); err == nil {
				return candidate, ""
			}
		}
	}

	joined := ""
	for _, a := range attempted {
		joined += "\n\tno file '" + a + "'"
	}

	return "", joined
}

func replaceAll(s, old, new string) string {
	out := ""

	for {
		idx := indexOf(s, old)
		if idx < 0 {
			return out + s
		}

		out += s[:idx] + new
		s = s[idx+len(old):]
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}

	return -1
}

// Eval executes chunk (a Lua source chunk whose final statement may be a
// return) under label for diagnostics, returning its string result (empty
// if the chunk returned nothing or a non-string). Execution failures are
// reported as an *errors.StandardError; callers are expected to treat any
// returned error as fatal, per spec.md §7.
func (s *Session) Eval(label, chunk string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn, err := s.l.LoadString(chunk)
	if err != nil {
		s.reportFailure(label, chunk, err)
		return "", errors.EvalError(label, chunk, err)
	}

	s.l.Push(fn)

	if err := s.l.PCall(0, 1, nil); err != nil {
		s.reportFailure(label, chunk, err)
		return "", errors.EvalError(label, chunk, err)
	}

	ret := s.l.Get(-1)
	s.l.Pop(1)

	result := ""
	if str, ok := ret.(lua.LString); ok {
		result = string(str)
	}

	if s.verbose {
		fmt.Printf("%s\t%s => %q\n", marker, label, result)
	}

	return result, nil
}

func (s *Session) reportFailure(label, chunk string, cause error) {
	fmt.Printf("%s\t%s %s\n%s\n%s%s\n", marker, label, "evaluation failed:", cause, chunk, reset)
}
