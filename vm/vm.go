package vm

import (
	"fmt"
	"sync"
)

// VM owns the global class domain, the early classes and the installed
// bytecode interpreter.
//
// Interpreter code is single-threaded: every entry into the runtime from
// outside goes through Mutate, which grants exclusive access for the
// duration of one bounded step.
type VM struct {
	mu sync.Mutex

	interpreter  Interpreter
	maxCallDepth int

	globalDomain *Domain

	objectClass   *ClassObject
	classClass    *ClassObject
	functionClass *ClassObject

	primMu     sync.RWMutex
	primitives map[ValueKind]*ClassObject

	nativeMu sync.RWMutex
	natives  map[string]Method
}

// Option configures a VM.
type Option func(*VM)

// WithInterpreter installs the bytecode interpreter.
func WithInterpreter(i Interpreter) Option {
	return func(vm *VM) { vm.interpreter = i }
}

// WithMaxCallDepth bounds the call stack of every activation chain.
func WithMaxCallDepth(n int) Option {
	return func(vm *VM) { vm.maxCallDepth = n }
}

// New creates a VM with Object, Class, Function and the primitive classes
// linked into its global domain.
func New(opts ...Option) (*VM, error) {
	vm := &VM{
		maxCallDepth: DefaultMaxCallDepth,
		globalDomain: NewDomain(nil),
		primitives:   make(map[ValueKind]*ClassObject),
		natives:      make(map[string]Method),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if err := vm.Mutate(vm.bootstrap); err != nil {
		return nil, fmt.Errorf("bootstrapping early classes: %w", err)
	}
	return vm, nil
}

// Mutate runs fn with exclusive access to the heap and a fresh top-level
// activation.
func (vm *VM) Mutate(fn func(act *Activation) error) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return fn(vm.NewActivation())
}

func (vm *VM) GlobalDomain() *Domain        { return vm.globalDomain }
func (vm *VM) ObjectClass() *ClassObject    { return vm.objectClass }
func (vm *VM) ClassClass() *ClassObject     { return vm.classClass }
func (vm *VM) FunctionClass() *ClassObject  { return vm.functionClass }
func (vm *VM) MaxCallDepth() int            { return vm.maxCallDepth }
func (vm *VM) SetInterpreter(i Interpreter) { vm.interpreter = i }

// DefineClass links desc in the domain of scope and exports it. The
// superclass, if named, must already be linked.
func (vm *VM) DefineClass(act *Activation, desc *ClassDescriptor, scope *ScopeChain) (*ClassObject, error) {
	if scope == nil {
		scope = NewScopeChain(vm.globalDomain)
	}
	domain := scope.Domain()
	if domain == nil {
		domain = vm.globalDomain
	}

	var super *ClassObject
	if desc.SuperclassName != nil {
		var err error
		if super, err = domain.GetClass(*desc.SuperclassName); err != nil {
			return nil, fmt.Errorf("defining %s: %w", desc.Name.QualifiedName(), err)
		}
	}

	domain.ExportDescriptor(desc)
	cls, err := FromClass(act, desc, scope, super)
	if err != nil {
		return nil, err
	}
	domain.ExportClass(cls)
	return cls, nil
}

// ---------------------------------------------------------------------------
// Primitive classes
// ---------------------------------------------------------------------------

// RegisterPrimitiveClass makes cls the boxing and coercion class of kind.
func (vm *VM) RegisterPrimitiveClass(kind ValueKind, cls *ClassObject) {
	vm.primMu.Lock()
	defer vm.primMu.Unlock()
	vm.primitives[kind] = cls
}

func (vm *VM) primitiveClass(kind ValueKind) (*ClassObject, bool) {
	vm.primMu.RLock()
	defer vm.primMu.RUnlock()
	cls, ok := vm.primitives[kind]
	return cls, ok
}

func (vm *VM) primitiveKindOf(cls *ClassObject) (ValueKind, bool) {
	vm.primMu.RLock()
	defer vm.primMu.RUnlock()
	for kind, c := range vm.primitives {
		if c == cls {
			return kind, true
		}
	}
	return KindUndefined, false
}

// ---------------------------------------------------------------------------
// Native method registry
// ---------------------------------------------------------------------------

// RegisterNative makes m available to class loaders under name.
func (vm *VM) RegisterNative(name string, m Method) {
	vm.nativeMu.Lock()
	defer vm.nativeMu.Unlock()
	vm.natives[name] = m
}

// LookupNative finds a registered native method.
func (vm *VM) LookupNative(name string) (Method, bool) {
	vm.nativeMu.RLock()
	defer vm.nativeMu.RUnlock()
	m, ok := vm.natives[name]
	return m, ok
}

func (vm *VM) runBytecode(act *Activation, m *BytecodeMethod) (Value, error) {
	if vm.interpreter == nil {
		return Undefined, fmt.Errorf("no bytecode interpreter installed to run %s", m)
	}
	return vm.interpreter.Run(act, m)
}
