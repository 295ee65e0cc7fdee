package vm

// FunctionObject is a callable object wrapping an Executable. Reading a
// method trait produces one bound to the receiver.
type FunctionObject struct {
	base      ScriptObjectData
	exec      *Executable
	prototype Object
}

// NewFunctionObject creates a function for m. receiver and boundClass may
// be nil.
func NewFunctionObject(act *Activation, m Method, scope *ScopeChain, receiver Object, boundClass *ClassObject) *FunctionObject {
	f := &FunctionObject{exec: NewExecutable(m, scope, receiver, boundClass)}
	if act != nil && act.vm.functionClass != nil {
		f.base = newScriptObjectData(act.vm.functionClass)
	}
	return f
}

func (f *FunctionObject) Base() *ScriptObjectData { return &f.base }

// Executable returns the wrapped executable.
func (f *FunctionObject) Executable() *Executable { return f.exec }

// Prototype returns the object instances constructed by f inherit from.
func (f *FunctionObject) Prototype() Object { return f.prototype }

// SetPrototype replaces the function's prototype object.
func (f *FunctionObject) SetPrototype(proto Object) { f.prototype = proto }

// Call invokes the function.
func (f *FunctionObject) Call(act *Activation, receiver Value, args []Value) (Value, error) {
	return f.exec.Exec(act, receiver, args, f)
}

// functionAllocator backs `new Function()`, which yields a function that
// does nothing.
func functionAllocator(cls *ClassObject, act *Activation) (Object, error) {
	return &FunctionObject{
		base: newScriptObjectData(cls),
		exec: NewExecutable(NewNativeMethod("", noopInit), nil, nil, nil),
	}, nil
}
