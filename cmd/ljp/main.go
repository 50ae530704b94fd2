// Package main provides the entry point for ljp, the luajit-pro source
// transformer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xieby1/luajit-pro/internal/cli"
	"github.com/xieby1/luajit-pro/internal/comptime"
	"github.com/xieby1/luajit-pro/internal/diagnostic"
	"github.com/xieby1/luajit-pro/internal/errors"
	"github.com/xieby1/luajit-pro/internal/transform"
	"github.com/xieby1/luajit-pro/internal/watch"
)

func main() {
	var (
		showVersion   = flag.Bool("version", false, "show version information")
		showHelp      = flag.Bool("help", false, "show help information")
		jsonOutput    = flag.Bool("json", false, "output version in JSON format")
		verbose       = flag.Bool("verbose", false, "enable verbose logging")
		debugMode     = flag.Bool("debug", false, "enable debug logging")
		keepFiles     = flag.Bool("keep-files", false, "do not delete cache files at exit")
		withPIDSuffix = flag.Bool("with-pid-suffix", false, "append the process id to cache file suffixes")
		cacheDir      = flag.String("cache-dir", "", "directory for intermediate and transformed cache files")
		configFile    = flag.String("config", "", "path to a JSON config file")
		saveConfig    = flag.String("save-config", "", "write the resolved configuration to this path and exit")
		watchMode     = flag.Bool("watch", false, "watch the given files' directories and re-transform on change")
	)

	flag.Parse()

	if *showVersion {
		cli.PrintVersion("ljp", *jsonOutput)
		return
	}

	if *showHelp {
		printUsage()
		return
	}

	usage := "ljp [OPTIONS] <file.lua>..."
	args := flag.Args()

	minArgs := 1
	if *saveConfig != "" {
		minArgs = 0
	}

	if err := cli.ValidateArgs(args, minArgs, usage); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	cfg, err := cli.LoadConfig(*configFile)
	if err != nil {
		cli.ExitWithError("loading config: %v", err)
	}

	cfg.Verbose = cfg.Verbose || *verbose
	cfg.Debug = cfg.Debug || *debugMode
	cfg.KeepFiles = cfg.KeepFiles || *keepFiles
	cfg.WithPIDSuffix = cfg.WithPIDSuffix || *withPIDSuffix

	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}

	if *saveConfig != "" {
		if err := cfg.SaveConfig(*saveConfig); err != nil {
			cli.ExitWithError("saving config: %v", err)
		}

		return
	}

	logger := cli.NewLogger(cfg.Verbose, cfg.Debug)
	driver := transform.NewDriver(comptime.Global(), cfg, logger)

	defer driver.Drain()

	for _, path := range args {
		out, err := driver.Transform(path, nil)
		if err != nil {
			reportAndExit(err, logger)
		}

		logger.Info("%s -> %s", path, out)
	}

	if *watchMode {
		runWatch(args, driver, logger)
	}
}

func runWatch(paths []string, driver *transform.Driver, logger *cli.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		cancel()
	}()

	dirs := map[string]bool{}

	for _, p := range paths {
		dirs[dirOf(p)] = true
	}

	onRebuild := func(path string, err error) {
		if err != nil {
			logger.Error("rebuild failed for %s: %v", path, err)
			return
		}

		logger.Info("rebuilt %s", path)
	}

	for dir := range dirs {
		dir := dir

		go func() {
			if err := watch.Run(ctx, dir, driver, onRebuild); err != nil {
				logger.Error("watch on %s stopped: %v", dir, err)
			}
		}()
	}

	<-ctx.Done()
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}

	return "."
}

// reportAndExit renders err through the diagnostic engine and exits the
// process. A $comp_time chunk's own runtime error (CategoryEval) gets its
// own exit code so a caller scripting ljp can tell an evaluation failure
// apart from every other fatal category, which all share HandleError's exit
// path.
func reportAndExit(err error, logger *cli.Logger) {
	engine := diagnostic.NewEngine()

	se, isStandard := err.(*errors.StandardError)
	if isStandard {
		engine.Add(diagnostic.FromStandardError(se))
	}

	formatted := err.Error()
	if engine.HasDiagnostics() {
		formatted = engine.Format()
	}

	if isStandard && se.Category == errors.CategoryEval {
		cli.ExitWithCode(2, "%s", formatted)
		return
	}

	cli.HandleError(fmt.Errorf("%s", formatted), logger)
}

func printUsage() {
	flags := []cli.FlagInfo{
		{Name: "version", Usage: "show version information"},
		{Name: "help", Usage: "show this help message"},
		{Name: "json", Usage: "output version in JSON format"},
		{Name: "verbose", Usage: "enable verbose logging"},
		{Name: "debug", Usage: "enable debug logging"},
		{Name: "keep-files", Usage: "do not delete cache files at exit", Default: "false"},
		{Name: "with-pid-suffix", Usage: "append the process id to cache file suffixes", Default: "false"},
		{Name: "cache-dir", Usage: "directory for intermediate and transformed cache files", Default: "./.luajit_pro"},
		{Name: "config", Usage: "path to a JSON config file"},
		{Name: "save-config", Usage: "write the resolved configuration to this path and exit"},
		{Name: "watch", Usage: "watch the given files' directories and re-transform on change", Default: "false"},
	}

	examples := []string{
		"ljp main.lua",
		"ljp --keep-files main.lua util.lua",
		"ljp --watch --cache-dir /tmp/ljp main.lua",
		"ljp --cache-dir /tmp/ljp --save-config ljp.json",
	}

	cli.PrintUsage("ljp", flags, examples)
}
