package runtime

import (
	"devt.de/krotik/common/errorutil"
)

// Ref is a resolved binding: the storage cell plus the module instance that
// owns it. A nil Owner means the module doing the lookup.
type Ref struct {
	Value *Value
	Owner *Module
}

// Frame maps names to bindings. Owners stored in a frame are absolute except
// for nil, which stands for the module the frame belongs to.
type Frame map[string]Ref

// FrameStack is the scope stack of one module instance. Pushing copies the
// top frame forward, so lookups only ever read the top frame.
type FrameStack struct {
	frames []Frame
}

// NewFrameStack creates a stack holding the root frame.
func NewFrameStack() *FrameStack {
	return &FrameStack{frames: []Frame{{}}}
}

// Current returns the top frame.
func (s *FrameStack) Current() Frame {
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of frames, the root frame included.
func (s *FrameStack) Depth() int {
	return len(s.frames)
}

// Push creates a new top frame: the union of the current top frame and
// bindings, where bindings win on name clashes.
func (s *FrameStack) Push(bindings Frame) {
	top := s.Current()
	next := make(Frame, len(top)+len(bindings))
	for name, ref := range top {
		next[name] = ref
	}
	for name, ref := range bindings {
		next[name] = ref
	}
	s.frames = append(s.frames, next)
}

// Pop discards the top frame. The root frame is never popped.
func (s *FrameStack) Pop() {
	errorutil.AssertTrue(len(s.frames) > 1, "cannot pop the root frame")
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
}

// Lookup reads name from the top frame.
func (s *FrameStack) Lookup(name string) (Ref, bool) {
	ref, ok := s.Current()[name]
	return ref, ok
}

// Define binds name in the top frame.
func (s *FrameStack) Define(name string, ref Ref) {
	s.Current()[name] = ref
}

// Names returns every name visible in the top frame.
func (s *FrameStack) Names() []string {
	top := s.Current()
	names := make([]string, 0, len(top))
	for name := range top {
		names = append(names, name)
	}
	return names
}
