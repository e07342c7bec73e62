package diag

import "fmt"

// CallKind is the kind of an active call.
type CallKind int

const (
	InitCall CallKind = iota
	FunctionCall
	MicroCall
)

func (k CallKind) String() string {
	switch k {
	case InitCall:
		return "init"
	case FunctionCall:
		return "function"
	case MicroCall:
		return "micro"
	default:
		return "unknown"
	}
}

// Call is one call stack entry.
type Call struct {
	Kind   CallKind
	Name   string
	Module string // path of the module the call executes in
	Entry  bool   // true when Module is the entry module of the run
}

func (c Call) String() string {
	switch c.Kind {
	case FunctionCall:
		return fmt.Sprintf("function %s() %s", c.Name, c.Module)
	case MicroCall:
		return fmt.Sprintf("micro .%s %s", c.Name, c.Module)
	default:
		return fmt.Sprintf("init %s %s", c.Name, c.Module)
	}
}

// CallStack tracks active calls of one run.
type CallStack struct {
	calls []Call
}

// Push adds a call.
func (s *CallStack) Push(c Call) {
	s.calls = append(s.calls, c)
}

// Pop removes the most recent call.
func (s *CallStack) Pop() {
	if len(s.calls) > 0 {
		s.calls = s.calls[:len(s.calls)-1]
	}
}

// Len returns the number of active calls.
func (s *CallStack) Len() int {
	return len(s.calls)
}

// Snapshot copies the active calls, oldest first.
func (s *CallStack) Snapshot() []Call {
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Trace orders calls most recent first and drops the
// initialization frames of modules other than the entry module.
func Trace(calls []Call) []Call {
	out := make([]Call, 0, len(calls))
	for i := len(calls) - 1; i >= 0; i-- {
		c := calls[i]
		if c.Kind == InitCall && !c.Entry {
			continue
		}
		out = append(out, c)
	}
	return out
}
