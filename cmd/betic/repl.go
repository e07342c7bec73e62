package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"betic-lang/internal/ast"
	"betic-lang/internal/config"
	"betic-lang/internal/diag"
)

// ---- repl command ----

func cmdRepl(cfg config.Config) {
	// Determine history file path (~/.betic_history)
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".betic_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            colorGreen + "betic> " + colorReset,
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	// Welcome banner
	fmt.Fprintf(rl.Stdout(), "%s%sbetic REPL%s %s(type 'exit' or Ctrl+D to quit)%s\n\n",
		colorBold, colorCyan, colorReset, colorGray, colorReset)

	// One long-lived module keeps definitions across entries
	ctx := context.Background()
	style := diagStyle(cfg)
	parser := newFrontend(cfg)
	session := newSession(cfg, rl.Stdout(), nil)
	module := session.NewModule("<repl>", "", &ast.Program{})
	if err := module.Init(ctx); err != nil {
		printError(rl.Stderr(), err, style)
	}

	var accumulated strings.Builder
	braceDepth := 0

	for {
		// Update prompt based on multi-line state
		if braceDepth > 0 {
			rl.SetPrompt(colorGray + "...    " + colorReset)
		} else {
			rl.SetPrompt(colorGreen + "betic> " + colorReset)
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if braceDepth > 0 {
					// Cancel multi-line input
					accumulated.Reset()
					braceDepth = 0
					continue
				}
				// Show hint instead of exiting
				fmt.Fprintf(rl.Stdout(), "\n%s(use 'exit' or Ctrl+D to quit)%s\n", colorGray, colorReset)
				continue
			}
			// EOF (Ctrl+D) or other error → exit
			if err == io.EOF {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		// Exit command
		if braceDepth == 0 && strings.TrimSpace(line) == "exit" {
			break
		}

		// Count braces for multi-line input
		braceDepth += strings.Count(line, "{") - strings.Count(line, "}")
		accumulated.WriteString(line)
		accumulated.WriteString("\n")

		// If braces are unbalanced, keep reading
		if braceDepth > 0 {
			continue
		}
		braceDepth = 0

		source := accumulated.String()
		accumulated.Reset()

		// Skip empty input
		if strings.TrimSpace(source) == "" {
			continue
		}

		// Parse
		unit, err := parser.Parse(ctx, source)
		if err != nil {
			printError(rl.Stderr(), err, style)
			continue
		}

		// Resolve new imports, then execute
		module.SetSource(source)
		if err := module.Import(ctx, unit.Program.Imports); err != nil {
			printError(rl.Stderr(), err, style)
			continue
		}
		if err := module.Exec(ctx, unit.Program.Statements); err != nil {
			printError(rl.Stderr(), err, style)
			continue
		}
	}
}

// printError renders a diagnostic with style; anything else is printed as is.
func printError(w io.Writer, err error, style diag.Style) {
	var d *diag.Error
	if errors.As(err, &d) {
		diag.Render(w, d, style)
		return
	}
	fmt.Fprintf(w, "error: %s\n", style.Title(err.Error()))
}
