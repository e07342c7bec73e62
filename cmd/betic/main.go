package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"devt.de/krotik/common/logutil"

	"betic-lang/internal/ast"
	"betic-lang/internal/config"
	"betic-lang/internal/diag"
	"betic-lang/internal/frontend"
	"betic-lang/internal/port"
	"betic-lang/internal/runtime"
)

var log = logutil.GetLogger("betic.cli")

func main() {
	configFile := flag.String("config", "", "configuration file (default "+config.DefaultFile+")")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	switch command := args[0]; command {
	case "run":
		os.Exit(cmdRun(cfg, fileArg(args)))
	case "tree":
		os.Exit(cmdTree(cfg, fileArg(args)))
	case "repl":
		cmdRepl(cfg)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command '%s'\n", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  betic [-config <file>] run  <file>   Run a module")
	fmt.Fprintln(os.Stderr, "  betic [-config <file>] tree <file>   Print the program tree (JSON)")
	fmt.Fprintln(os.Stderr, "  betic [-config <file>] repl          Start interactive REPL")
}

func fileArg(args []string) string {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "error: missing file argument")
		os.Exit(1)
	}
	return args[1]
}

func loadConfig(file string) (config.Config, error) {
	if file == "" {
		return config.LoadOptional(config.DefaultFile)
	}
	return config.Load(file)
}

// setupLogging routes every betic scope to stderr at the configured level.
// Messages below that level go to a discarding sink.
func setupLogging(cfg config.Config) {
	level := logutil.StringToLoglevel(cfg.Str(config.LogLevel))
	if level == "" {
		level = logutil.Error
	}
	root := logutil.GetLogger("betic")
	root.AddLogSink(level, logutil.SimpleFormatter(), os.Stderr)
	root.AddLogSink(logutil.Debug, logutil.SimpleFormatter(), io.Discard)
	log.Debug("Configuration: ", map[string]interface{}(cfg))
}

func newFrontend(cfg config.Config) *frontend.Command {
	cmd := cfg.Fields(config.ParserCommand)
	if len(cmd) == 0 {
		cmd = []string{fmt.Sprint(config.DefaultConfig[config.ParserCommand])}
	}
	return &frontend.Command{Path: cmd[0], Args: cmd[1:]}
}

// diagStyle picks how diagnostics are rendered.
func diagStyle(cfg config.Config) diag.Style {
	if cfg.Bool(config.ColorOutput) {
		return colorStyle{}
	}
	return diag.Plain
}

func newSession(cfg config.Config, stdout io.Writer, sink diag.Sink) *runtime.Session {
	return runtime.NewSession(runtime.Options{
		Stdout:     stdout,
		Stdin:      os.Stdin,
		Frontend:   newFrontend(cfg),
		LibDir:     cfg.Str(config.LibDir),
		Foundation: cfg.Str(config.Foundation),
		Ports:      port.Registry(),
		Sink:       sink,
	})
}

// ---- run command ----

func cmdRun(cfg config.Config, filename string) int {
	session := newSession(cfg, os.Stdout, &diag.WriterSink{W: os.Stderr, Style: diagStyle(cfg)})
	if err := session.Run(context.Background(), filename); err != nil {
		if _, ok := diag.KindOf(err); !ok {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}

// ---- tree command ----

func cmdTree(cfg config.Config, filename string) int {
	unit, err := newFrontend(cfg).Load(context.Background(), filename)
	if err != nil {
		var d *diag.Error
		if errors.As(err, &d) {
			diag.Render(os.Stderr, d, diagStyle(cfg))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	if err := printJSON(os.Stdout, ast.ProgramToMap(unit.Program)); err != nil {
		fmt.Fprintf(os.Stderr, "error: JSON encoding failed: %v\n", err)
		return 1
	}
	return 0
}
