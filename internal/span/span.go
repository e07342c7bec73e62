// Package span provides the source position type carried by program tree nodes.
package span

import "fmt"

// Position represents a position in source code as reported by the front end.
type Position struct {
	Line   int `json:"line" yaml:"line"` // 1-based line number
	Column int `json:"col" yaml:"col"`   // 1-based column number
}

// Unknown is used for nodes synthesized by the runtime and for positionless errors.
var Unknown = Position{}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Known reports whether p points at a concrete source location.
func (p Position) Known() bool {
	return p.Line >= 1 && p.Column >= 1
}
