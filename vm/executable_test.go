package vm

import (
	"errors"
	"testing"
)

func echoArgs(act *Activation, this Object, args []Value) (Value, error) {
	return Int(int32(len(args))), nil
}

func TestNativeArityIsStrict(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	m := NewNativeMethod("pair", echoArgs, Param("a"), Param("b"))

	exec := NewExecutable(m, nil, NewScriptObject(nil), nil)
	_, err := exec.Exec(act, Undefined, []Value{Int(1), Int(2), Int(3)}, nil)
	expectCode(t, err, 1063)
	if !IsErrorKind(err, KindArgumentError) {
		t.Errorf("kind = %v, want ArgumentError", err)
	}
}

func TestBytecodeArityTruncates(t *testing.T) {
	var seen []Value
	vm := newTestVM(t, map[string]scriptBody{
		"pair": func(act *Activation) (Value, error) {
			seen = act.Args()
			return Undefined, nil
		},
	})
	act := vm.NewActivation()
	m := bytecode("pair", "pair", Param("a"), Param("b"))

	exec := NewExecutable(m, nil, NewScriptObject(nil), nil)
	if _, err := exec.Exec(act, Undefined, []Value{Int(1), Int(2), Int(3)}, nil); err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("bytecode method saw %d args, want 2", len(seen))
	}
}

func TestVariadicKeepsExtraArguments(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	m := NewVariadicNativeMethod("rest", echoArgs, Param("a"))

	v, err := NewExecutable(m, nil, NewScriptObject(nil), nil).Exec(act, Undefined, []Value{Int(1), Int(2), Int(3)}, nil)
	if err != nil || !v.StrictEquals(Int(3)) {
		t.Errorf("variadic call = %v, %v, want 3", v, err)
	}
}

func TestParameterDefaults(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	var got []Value
	m := NewNativeMethod("opt", func(act *Activation, this Object, args []Value) (Value, error) {
		got = args
		return Undefined, nil
	}, Param("a"), OptionalParam("b", String("dflt")))

	exec := NewExecutable(m, nil, NewScriptObject(nil), nil)
	if _, err := exec.Exec(act, Undefined, []Value{Int(1)}, nil); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].String() != "dflt" {
		t.Errorf("args = %v, want [1 dflt]", got)
	}

	_, err := exec.Exec(act, Undefined, nil, nil)
	expectCode(t, err, 1063)
}

func TestMissingRequiredArgumentForBytecode(t *testing.T) {
	vm := newTestVM(t, map[string]scriptBody{"f": func(act *Activation) (Value, error) { return Undefined, nil }})
	act := vm.NewActivation()
	exec := NewExecutable(bytecode("f", "f", Param("a")), nil, NewScriptObject(nil), nil)
	_, err := exec.Exec(act, Undefined, nil, nil)
	expectCode(t, err, 1063)
}

func TestReceiverResolution(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()

	var this Object
	m := NewNativeMethod("who", func(act *Activation, th Object, args []Value) (Value, error) {
		this = th
		return Undefined, nil
	})

	global := NewScriptObject(nil)
	scope := NewScopeChain(vm.GlobalDomain()).Chain(NewScope(global))
	bound := NewScriptObject(nil)
	other := NewScriptObject(nil)

	_, _ = NewExecutable(m, scope, bound, nil).Exec(act, ObjectValue(other), nil, nil)
	if this != Object(bound) {
		t.Error("bound receiver should win")
	}

	_, _ = NewExecutable(m, scope, nil, nil).Exec(act, Null, nil, nil)
	if this != Object(global) {
		t.Error("null receiver should fall back to the global object")
	}

	_, _ = NewExecutable(m, scope, nil, nil).Exec(act, ObjectValue(other), nil, nil)
	if this != Object(other) {
		t.Error("object receiver should be used as-is")
	}

	_, _ = NewExecutable(m, scope, nil, nil).Exec(act, Int(4), nil, nil)
	prim, ok := this.(*PrimitiveObject)
	if !ok || !prim.Value().StrictEquals(Int(4)) {
		t.Errorf("primitive receiver boxed as %v", this)
	}
	if prim.Base().InstanceOf() != vm.primitives[KindInt] {
		t.Error("int receiver should be boxed by the int class")
	}
}

func TestCallStackPoppedOnError(t *testing.T) {
	boom := errors.New("boom")
	vm := newTestVM(t, nil)
	act := vm.NewActivation()

	var depth int
	m := NewNativeMethod("fails", func(act *Activation, this Object, args []Value) (Value, error) {
		depth = act.CallStack().Len()
		return Undefined, boom
	})
	_, err := NewExecutable(m, nil, NewScriptObject(nil), nil).Exec(act, Undefined, nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if depth != 1 {
		t.Errorf("depth inside call = %d, want 1", depth)
	}
	if !act.CallStack().IsEmpty() {
		t.Errorf("call stack not empty after error: %v", act.CallStack())
	}
}

func TestStackOverflow(t *testing.T) {
	vm := newTestVM(t, nil, WithMaxCallDepth(8))
	act := vm.NewActivation()

	calls := 0
	var exec *Executable
	m := NewNativeMethod("recurse", func(act *Activation, this Object, args []Value) (Value, error) {
		calls++
		return exec.Exec(act, Undefined, nil, nil)
	})
	exec = NewExecutable(m, nil, NewScriptObject(nil), nil)

	_, err := exec.Exec(act, Undefined, nil, nil)
	expectCode(t, err, 1023)
	if calls != 8 {
		t.Errorf("calls = %d, want 8", calls)
	}
	if !act.CallStack().IsEmpty() {
		t.Error("call stack not unwound after overflow")
	}
}

func TestNoInterpreterInstalled(t *testing.T) {
	vm, err := New()
	if err != nil {
		t.Fatal(err)
	}
	act := vm.NewActivation()
	_, err = NewExecutable(bytecode("f", "f"), nil, NewScriptObject(nil), nil).Exec(act, Undefined, nil, nil)
	if err == nil {
		t.Fatal("expected an error without an interpreter")
	}
	if ErrorCode(err) != 0 {
		t.Errorf("missing interpreter should not be a catalog error, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()

	move := bytecode("", "move")
	getX := bytecode("", "getX")
	create := bytecode("", "create")
	ctor := bytecode("", "ctor")
	cinit := bytecode("", "cinit")
	nsMethod := bytecode("", "ns")
	ns := ExplicitNamespace("mx_internal")

	desc := NewClassDescriptor(NewQName(PackageNamespace("geom"), "Point"), objectName(), 0).
		AddInstanceTrait(MethodTrait(publicName("move"), move)).
		AddInstanceTrait(GetterTrait(publicName("x"), getX)).
		AddInstanceTrait(MethodTrait(NewQName(ns, "hidden"), nsMethod)).
		AddClassTrait(MethodTrait(publicName("create"), create))
	desc.InstanceInit = ctor
	desc.ClassInit = cinit
	desc.markClassInitialized()
	cls := mustDefine(t, vm, act, desc)

	fn := bytecode("handler", "h")
	fn.IsFunction = true
	anon := bytecode("", "anon")
	anon.Index = 12

	tests := []struct {
		exec *Executable
		want string
	}{
		{NewExecutable(move, nil, nil, cls), "geom::Point/move()"},
		{NewExecutable(getX, nil, nil, cls), "geom::Point/get x()"},
		{NewExecutable(create, nil, nil, cls), "geom::Point$/create()"},
		{NewExecutable(ctor, nil, nil, cls), "geom::Point()"},
		{NewExecutable(cinit, nil, nil, cls), "geom::Point$cinit()"},
		{NewExecutable(nsMethod, nil, nil, cls), "geom::Point/mx_internal::hidden()"},
		{NewExecutable(NewNativeMethod("push", noopInit), nil, nil, cls), "geom::Point/push()"},
		{NewExecutable(NewNativeMethod("trace", noopInit), nil, nil, nil), "/trace()"},
		{NewExecutable(fn, nil, nil, nil), "Function/handler()"},
		{NewExecutable(anon, nil, nil, nil), "MethodInfo-12()"},
	}
	for _, tt := range tests {
		if got := tt.exec.DisplayName(); got != tt.want {
			t.Errorf("DisplayName = %q, want %q", got, tt.want)
		}
	}
}
