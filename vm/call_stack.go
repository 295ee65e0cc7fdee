package vm

import "strings"

// DefaultMaxCallDepth bounds a call stack unless configured otherwise.
const DefaultMaxCallDepth = 256

// CallNode is one in-flight invocation: either a unit's global initializer
// or a method with its defining class.
type CallNode struct {
	Unit   *TranslationUnit
	Method Method
	Class  *ClassObject
}

// IsGlobalInit reports whether the frame runs a unit's top-level code.
func (n CallNode) IsGlobalInit() bool { return n.Method == nil }

func (n CallNode) String() string {
	if n.IsGlobalInit() {
		name := "<No translation unit>"
		if n.Unit != nil {
			name = n.Unit.Name()
			if name == "" {
				name = "<No name>"
			}
		}
		return "global$init() [unit=" + name + "]"
	}
	var b strings.Builder
	displayFunction(&b, n.Method, n.Class)
	return b.String()
}

// CallStack is the diagnostic stack of one logical call chain.
type CallStack struct {
	nodes    []CallNode
	maxDepth int
}

// NewCallStack creates a stack that overflows beyond maxDepth frames.
// A non-positive maxDepth selects DefaultMaxCallDepth.
func NewCallStack(maxDepth int) *CallStack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCallDepth
	}
	return &CallStack{maxDepth: maxDepth}
}

// Push records a method invocation. It fails with Error 1023 when the
// stack is full.
func (cs *CallStack) Push(m Method, cls *ClassObject) error {
	if len(cs.nodes) >= cs.maxDepth {
		return errStackOverflow()
	}
	cs.nodes = append(cs.nodes, CallNode{Method: m, Class: cls})
	return nil
}

// PushGlobalInit records the start of a unit's global initializer.
func (cs *CallStack) PushGlobalInit(unit *TranslationUnit) error {
	if len(cs.nodes) >= cs.maxDepth {
		return errStackOverflow()
	}
	cs.nodes = append(cs.nodes, CallNode{Unit: unit})
	return nil
}

// Pop removes the innermost frame.
func (cs *CallStack) Pop() (CallNode, bool) {
	if len(cs.nodes) == 0 {
		return CallNode{}, false
	}
	n := cs.nodes[len(cs.nodes)-1]
	cs.nodes = cs.nodes[:len(cs.nodes)-1]
	return n, true
}

// Len returns the current depth.
func (cs *CallStack) Len() int { return len(cs.nodes) }

// IsEmpty reports whether no call is in flight.
func (cs *CallStack) IsEmpty() bool { return len(cs.nodes) == 0 }

// Frames returns the frames innermost first.
func (cs *CallStack) Frames() []CallNode {
	out := make([]CallNode, len(cs.nodes))
	for i, n := range cs.nodes {
		out[len(cs.nodes)-1-i] = n
	}
	return out
}

// Display writes the trace, innermost frame first, one "\n\tat " line each.
func (cs *CallStack) Display(b *strings.Builder) {
	for i := len(cs.nodes) - 1; i >= 0; i-- {
		b.WriteString("\n\tat ")
		b.WriteString(cs.nodes[i].String())
	}
}

func (cs *CallStack) String() string {
	var b strings.Builder
	cs.Display(&b)
	return b.String()
}
