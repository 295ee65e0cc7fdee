package vm

import (
	"fmt"
	"testing"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// scriptBody is the Go stand-in for a bytecode method body.
type scriptBody func(act *Activation) (Value, error)

// scriptedInterpreter runs bytecode methods by looking up their body bytes
// as a key into a table of Go closures.
type scriptedInterpreter struct {
	bodies map[string]scriptBody
}

func (s *scriptedInterpreter) Run(act *Activation, m *BytecodeMethod) (Value, error) {
	body, ok := s.bodies[string(m.Body)]
	if !ok {
		return Undefined, fmt.Errorf("no scripted body %q", m.Body)
	}
	return body(act)
}

func newTestVM(t *testing.T, bodies map[string]scriptBody, opts ...Option) *VM {
	t.Helper()
	if bodies == nil {
		bodies = map[string]scriptBody{}
	}
	opts = append([]Option{WithInterpreter(&scriptedInterpreter{bodies: bodies})}, opts...)
	vm, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return vm
}

func bytecode(name, body string, params ...ParamConfig) *BytecodeMethod {
	return NewBytecodeMethod(name, []byte(body), params...)
}

func publicName(name string) QName { return PublicQName(name) }

func mustDefine(t *testing.T, vm *VM, act *Activation, desc *ClassDescriptor) *ClassObject {
	t.Helper()
	cls, err := vm.DefineClass(act, desc, nil)
	if err != nil {
		t.Fatalf("DefineClass(%s) error: %v", desc.Name, err)
	}
	return cls
}

func mustConstruct(t *testing.T, act *Activation, cls *ClassObject, args ...Value) Object {
	t.Helper()
	obj, err := cls.Construct(act, args)
	if err != nil {
		t.Fatalf("Construct(%s) error: %v", cls.Name(), err)
	}
	return obj
}

func objectName() *QName {
	q := PublicQName("Object")
	return &q
}

func typeName(name string) *QName {
	q := PublicQName(name)
	return &q
}

func expectCode(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected Error #%d, got nil", code)
	}
	if got := ErrorCode(err); got != code {
		t.Fatalf("error code = %d, want %d (%v)", got, code, err)
	}
}
