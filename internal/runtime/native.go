package runtime

import (
	"betic-lang/internal/types"
)

// Native describes a host function as a port constructor yields it.
type Native struct {
	Impl   NativeFunc
	Params []types.Field // nil skips argument validation
	Return *types.Type   // nil means Occult
}

// Constructor produces the description of one native function.
type Constructor func() Native

// Member is a port entry: a native function, or a named group of members
// which is installed as a map (console.write, make.int, ...).
type Member struct {
	Name  string
	New   Constructor
	Group []Member
}

// Port is a named library of native functions.
type Port struct {
	Name    string
	Members []Member
}

// Bindings builds the root frame bindings a port contributes.
func (p *Port) Bindings() Frame {
	f := make(Frame, len(p.Members))
	for _, m := range p.Members {
		v := m.value()
		v.Constant = true
		f[m.Name] = Ref{Value: v}
	}
	return f
}

func (m Member) value() *Value {
	if m.New == nil {
		pairs := make([]Pair, 0, len(m.Group))
		for _, g := range m.Group {
			v := g.value()
			v.Constant = true
			pairs = append(pairs, Pair{Key: g.Name, Value: v})
		}
		return NewMap(types.Named(types.Occult), pairs)
	}

	n := m.New()
	ret := types.Named(types.Occult)
	if n.Return != nil {
		ret = *n.Return
	}
	v := NewNative(n.Impl, n.Params, ret)
	v.Name = m.Name
	return v
}
