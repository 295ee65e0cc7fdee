package vm

import "fmt"

// NativeFunc implements a method in Go. this is the resolved receiver and
// args have already been conformed to the method's parameter list.
type NativeFunc func(act *Activation, this Object, args []Value) (Value, error)

// ParamConfig describes one declared parameter.
type ParamConfig struct {
	Name    string
	Type    *QName
	Default *Value
}

// Param declares a required parameter.
func Param(name string) ParamConfig {
	return ParamConfig{Name: name}
}

// OptionalParam declares a parameter with a default value.
func OptionalParam(name string, def Value) ParamConfig {
	return ParamConfig{Name: name, Default: &def}
}

// Method is either a *NativeMethod or a *BytecodeMethod.
type Method interface {
	MethodName() string
	Params() []ParamConfig
	IsVariadic() bool
	isMethod()
}

// ---------------------------------------------------------------------------
// NativeMethod
// ---------------------------------------------------------------------------

// NativeMethod is a method implemented by a Go function.
//
// Native methods are strict about arity: passing more arguments than the
// method declares is an ArgumentError unless the method is variadic.
type NativeMethod struct {
	name     string
	fn       NativeFunc
	params   []ParamConfig
	variadic bool
}

// NewNativeMethod wraps fn as a method.
func NewNativeMethod(name string, fn NativeFunc, params ...ParamConfig) *NativeMethod {
	return &NativeMethod{name: name, fn: fn, params: params}
}

// NewVariadicNativeMethod wraps fn as a method accepting extra arguments.
func NewVariadicNativeMethod(name string, fn NativeFunc, params ...ParamConfig) *NativeMethod {
	return &NativeMethod{name: name, fn: fn, params: params, variadic: true}
}

func (m *NativeMethod) MethodName() string    { return m.name }
func (m *NativeMethod) Params() []ParamConfig { return m.params }
func (m *NativeMethod) IsVariadic() bool      { return m.variadic }
func (m *NativeMethod) isMethod()             {}

// Func returns the underlying Go function.
func (m *NativeMethod) Func() NativeFunc { return m.fn }

// ---------------------------------------------------------------------------
// BytecodeMethod
// ---------------------------------------------------------------------------

// BytecodeMethod is a method whose body is run by the installed Interpreter.
// The body is opaque to this package.
type BytecodeMethod struct {
	name     string
	params   []ParamConfig
	variadic bool

	Body       []byte
	Index      int
	Unit       *TranslationUnit
	IsFunction bool
}

// NewBytecodeMethod creates a bytecode method.
func NewBytecodeMethod(name string, body []byte, params ...ParamConfig) *BytecodeMethod {
	return &BytecodeMethod{name: name, Body: body, params: params}
}

// SetVariadic marks the method as accepting a rest argument.
func (m *BytecodeMethod) SetVariadic(v bool) *BytecodeMethod {
	m.variadic = v
	return m
}

func (m *BytecodeMethod) MethodName() string    { return m.name }
func (m *BytecodeMethod) Params() []ParamConfig { return m.params }
func (m *BytecodeMethod) IsVariadic() bool      { return m.variadic }
func (m *BytecodeMethod) isMethod()             {}

func (m *BytecodeMethod) String() string {
	if m.name == "" {
		return fmt.Sprintf("MethodInfo-%d", m.Index)
	}
	return m.name
}

// ---------------------------------------------------------------------------
// Parameter resolution
// ---------------------------------------------------------------------------

// resolveParameters conforms args to m's declared parameters.
//
// Extra arguments are an error for native methods and are dropped for
// bytecode methods. Missing optional arguments take their declared default;
// a missing required argument is an error for both.
func resolveParameters(m Method, name string, args []Value) ([]Value, error) {
	params := m.Params()
	if len(args) > len(params) && !m.IsVariadic() {
		if _, native := m.(*NativeMethod); native {
			return nil, errArgCount(name, len(params), len(args))
		}
		args = args[:len(params)]
	}
	if len(args) >= len(params) {
		return args, nil
	}

	resolved := make([]Value, len(params))
	copy(resolved, args)
	for i := len(args); i < len(params); i++ {
		if params[i].Default == nil {
			return nil, errArgCount(name, len(params), len(args))
		}
		resolved[i] = *params[i].Default
	}
	return resolved, nil
}
