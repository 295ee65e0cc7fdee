package vm

import (
	"strings"
	"testing"
)

func TestCallStackDisplay(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	point, _ := pointClasses(t, vm, act)

	cs := NewCallStack(0)
	if err := cs.PushGlobalInit(NewTranslationUnit("main.abc", nil)); err != nil {
		t.Fatal(err)
	}
	if err := cs.Push(NewNativeMethod("distance", noopInit), point); err != nil {
		t.Fatal(err)
	}

	want := "\n\tat Point/distance()\n\tat global$init() [unit=main.abc]"
	if got := cs.String(); got != want {
		t.Errorf("Display = %q, want %q", got, want)
	}

	var b strings.Builder
	cs.Display(&b)
	if b.String() != want {
		t.Errorf("Display(builder) = %q, want %q", b.String(), want)
	}
}

func TestCallStackUnnamedUnit(t *testing.T) {
	cs := NewCallStack(0)
	_ = cs.PushGlobalInit(NewTranslationUnit("", nil))
	_ = cs.PushGlobalInit(nil)
	want := "\n\tat global$init() [unit=<No translation unit>]\n\tat global$init() [unit=<No name>]"
	if got := cs.String(); got != want {
		t.Errorf("Display = %q, want %q", got, want)
	}
}

func TestCallStackPushPop(t *testing.T) {
	cs := NewCallStack(2)
	m := NewNativeMethod("f", noopInit)
	if err := cs.Push(m, nil); err != nil {
		t.Fatal(err)
	}
	if err := cs.Push(m, nil); err != nil {
		t.Fatal(err)
	}
	expectCode(t, cs.Push(m, nil), 1023)
	if cs.Len() != 2 {
		t.Errorf("Len = %d, want 2", cs.Len())
	}

	frames := cs.Frames()
	if len(frames) != 2 || frames[0].IsGlobalInit() {
		t.Errorf("Frames = %v", frames)
	}
	cs.Pop()
	cs.Pop()
	if _, ok := cs.Pop(); ok {
		t.Error("Pop on empty stack reported a frame")
	}
	if !cs.IsEmpty() {
		t.Error("stack should be empty")
	}
}

func TestTraceDuringNestedCalls(t *testing.T) {
	var trace string
	vm := newTestVM(t, map[string]scriptBody{
		"outer": func(act *Activation) (Value, error) {
			return CallProperty(act, act.This(), PublicMultiname("inner"), nil)
		},
		"inner": func(act *Activation) (Value, error) {
			trace = act.CallStack().String()
			return Undefined, nil
		},
	})
	act := vm.NewActivation()
	desc := NewClassDescriptor(NewQName(PackageNamespace("app"), "Main"), objectName(), 0).
		AddInstanceTrait(MethodTrait(publicName("outer"), bytecode("", "outer"))).
		AddInstanceTrait(MethodTrait(publicName("inner"), bytecode("", "inner")))
	cls := mustDefine(t, vm, act, desc)
	obj := mustConstruct(t, act, cls)

	if _, err := CallProperty(act, obj, PublicMultiname("outer"), nil); err != nil {
		t.Fatal(err)
	}
	want := "\n\tat app::Main/inner()\n\tat app::Main/outer()"
	if trace != want {
		t.Errorf("trace = %q, want %q", trace, want)
	}
}
