package vm

import (
	"fmt"
	"strings"
)

// Executable is a method bound to the scope it closes over, an optional
// receiver and an optional defining class used to resolve `super`.
// Executables are cheap; one is created per binding and invoked once.
type Executable struct {
	method        Method
	scope         *ScopeChain
	boundReceiver Object
	boundClass    *ClassObject
}

// NewExecutable binds m. receiver and boundClass may be nil.
func NewExecutable(m Method, scope *ScopeChain, receiver Object, boundClass *ClassObject) *Executable {
	return &Executable{method: m, scope: scope, boundReceiver: receiver, boundClass: boundClass}
}

// Method returns the underlying method.
func (e *Executable) Method() Method { return e.method }

// Scope returns the captured scope chain.
func (e *Executable) Scope() *ScopeChain { return e.scope }

// BoundReceiver returns the pre-bound receiver, or nil.
func (e *Executable) BoundReceiver() Object { return e.boundReceiver }

// BoundClass returns the class the method was defined in, or nil.
func (e *Executable) BoundClass() *ClassObject { return e.boundClass }

// Exec invokes the method.
//
// The receiver is the bound receiver if any; otherwise a null or undefined
// receiver falls back to the global object of the captured scope and any
// other value is coerced to an object. A call stack frame is held for the
// duration of the call and popped on every exit path.
func (e *Executable) Exec(caller *Activation, receiver Value, args []Value, callee Object) (Value, error) {
	this, err := e.resolveReceiver(caller, receiver)
	if err != nil {
		return Undefined, err
	}

	args, err = resolveParameters(e.method, e.DisplayName(), args)
	if err != nil {
		return Undefined, err
	}

	stack := caller.callStack
	if err := stack.Push(e.method, e.boundClass); err != nil {
		return Undefined, err
	}
	defer stack.Pop()

	act := caller.nested(this, e.scope, e.boundClass, e.method, args, callee)
	switch m := e.method.(type) {
	case *NativeMethod:
		return m.fn(act, this, args)
	case *BytecodeMethod:
		return caller.vm.runBytecode(act, m)
	default:
		panic(fmt.Sprintf("Executable.Exec: unknown method %T", m))
	}
}

func (e *Executable) resolveReceiver(caller *Activation, receiver Value) (Object, error) {
	if e.boundReceiver != nil {
		return e.boundReceiver, nil
	}
	if receiver.IsNullish() {
		global := e.scope.GlobalObject()
		if global == nil {
			return nil, errNullReference()
		}
		return global, nil
	}
	return CoerceToObject(caller, receiver)
}

// DisplayName renders the executable the way stack traces show it.
func (e *Executable) DisplayName() string {
	var b strings.Builder
	displayFunction(&b, e.method, e.boundClass)
	return b.String()
}

// displayFunction writes the trace name of m defined in cls, e.g.
// "pkg::Point/move()", "Point$cinit()" or "Function/handler()".
func displayFunction(b *strings.Builder, m Method, cls *ClassObject) {
	var desc *ClassDescriptor
	if cls != nil {
		desc = cls.desc
		b.WriteString(desc.Name.QualifiedName())
	}

	switch m := m.(type) {
	case *NativeMethod:
		b.WriteByte('/')
		b.WriteString(m.name)

	case *BytecodeMethod:
		switch {
		case desc != nil:
			if desc.ClassInit == Method(m) {
				b.WriteString("$cinit")
				break
			}
			// Instance initializers print the class name alone.
			if desc.InstanceInit == Method(m) {
				break
			}
			t, static := findMethodTrait(desc, m)
			if t == nil {
				if m.name != "" {
					b.WriteByte('/')
					b.WriteString(m.name)
				}
				break
			}
			if static {
				b.WriteByte('$')
			}
			b.WriteByte('/')
			switch t.Kind {
			case TraitGetter:
				b.WriteString("get ")
			case TraitSetter:
				b.WriteString("set ")
			}
			if t.Name.ns.IsNamespace() {
				b.WriteString(t.Name.QualifiedName())
			} else {
				b.WriteString(t.Name.name)
			}
		case m.IsFunction && m.name != "":
			b.WriteString("Function/")
			b.WriteString(m.name)
		default:
			fmt.Fprintf(b, "MethodInfo-%d", m.Index)
		}
	}
	b.WriteString("()")
}

// findMethodTrait finds the trait declaring m, instance traits first.
func findMethodTrait(desc *ClassDescriptor, m *BytecodeMethod) (t *Trait, static bool) {
	for _, t := range desc.InstanceTraits {
		if t.Method == Method(m) {
			return t, false
		}
	}
	for _, t := range desc.ClassTraits {
		if t.Method == Method(m) {
			return t, true
		}
	}
	return nil, false
}
