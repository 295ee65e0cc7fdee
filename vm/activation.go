package vm

import "fmt"

// Interpreter runs bytecode method bodies. The runtime never inspects a
// body itself; it hands the method to the installed interpreter together
// with an activation carrying the receiver, scope and arguments.
type Interpreter interface {
	Run(act *Activation, m *BytecodeMethod) (Value, error)
}

// Activation is the context of one method invocation. Nested activations
// share their caller's VM and call stack.
type Activation struct {
	vm        *VM
	callStack *CallStack

	this       Object
	scope      *ScopeChain
	boundClass *ClassObject
	method     Method
	args       []Value
	callee     Object
}

// NewActivation returns a top-level activation with a fresh call stack.
func (vm *VM) NewActivation() *Activation {
	return &Activation{
		vm:        vm,
		callStack: NewCallStack(vm.maxCallDepth),
		scope:     NewScopeChain(vm.globalDomain),
	}
}

func (act *Activation) nested(this Object, scope *ScopeChain, boundClass *ClassObject, m Method, args []Value, callee Object) *Activation {
	return &Activation{
		vm:         act.vm,
		callStack:  act.callStack,
		this:       this,
		scope:      scope,
		boundClass: boundClass,
		method:     m,
		args:       args,
		callee:     callee,
	}
}

func (act *Activation) VM() *VM                  { return act.vm }
func (act *Activation) CallStack() *CallStack    { return act.callStack }
func (act *Activation) This() Object             { return act.this }
func (act *Activation) Scope() *ScopeChain       { return act.scope }
func (act *Activation) BoundClass() *ClassObject { return act.boundClass }
func (act *Activation) Method() Method           { return act.method }
func (act *Activation) Args() []Value            { return act.args }
func (act *Activation) Callee() Object           { return act.callee }

// Domain returns the class domain visible to the running code.
func (act *Activation) Domain() *Domain {
	if d := act.scope.Domain(); d != nil {
		return d
	}
	return act.vm.globalDomain
}

// Arg returns argument i, or undefined.
func (act *Activation) Arg(i int) Value {
	if i < 0 || i >= len(act.args) {
		return Undefined
	}
	return act.args[i]
}

// ---------------------------------------------------------------------------
// super
// ---------------------------------------------------------------------------

// superclassObject returns the superclass of the class defining the
// running method. Supercalls start their lookup there.
func (act *Activation) superclassObject(name string) (*ClassObject, error) {
	if act.boundClass == nil {
		return nil, fmt.Errorf("attempted to use super.%s outside of a class method", name)
	}
	super := act.boundClass.superclass
	if super == nil {
		return nil, fmt.Errorf("attempted to use super.%s in class %s, which has no superclass",
			name, act.boundClass.desc.Name.QualifiedName())
	}
	return super, nil
}

// CallSuper is `super.name(args...)`.
func (act *Activation) CallSuper(name *Multiname, args []Value) (Value, error) {
	super, err := act.superclassObject(name.ErrorName())
	if err != nil {
		return Undefined, err
	}
	return super.CallSuper(act, name, act.this, args)
}

// GetSuper is `super.name`.
func (act *Activation) GetSuper(name *Multiname) (Value, error) {
	super, err := act.superclassObject(name.ErrorName())
	if err != nil {
		return Undefined, err
	}
	return super.GetSuper(act, name, act.this)
}

// SetSuper is `super.name = v`.
func (act *Activation) SetSuper(name *Multiname, v Value) error {
	super, err := act.superclassObject(name.ErrorName())
	if err != nil {
		return err
	}
	return super.SetSuper(act, name, act.this, v)
}

// ConstructSuper is `super(args...)` inside a constructor.
func (act *Activation) ConstructSuper(args []Value) error {
	super, err := act.superclassObject("constructor")
	if err != nil {
		return err
	}
	return super.CallNativeInit(act, act.this, args)
}
