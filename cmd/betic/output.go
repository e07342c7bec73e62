package main

import (
	"encoding/json"
	"io"
)

// ---- ANSI colors ----

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// ---- output helpers ----

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// colorStyle renders diagnostics for a terminal.
type colorStyle struct{}

func (colorStyle) Title(s string) string    { return colorBold + colorRed + s + colorReset }
func (colorStyle) Location(s string) string { return colorCyan + s + colorReset }
func (colorStyle) Source(s string) string   { return colorYellow + s + colorReset }
func (colorStyle) Muted(s string) string    { return colorGray + s + colorReset }
