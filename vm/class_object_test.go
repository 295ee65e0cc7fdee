package vm

import (
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Supercalls
// ---------------------------------------------------------------------------

func TestSupercallWalksUpward(t *testing.T) {
	var trace []string
	f := PublicMultiname("f")
	vm := newTestVM(t, map[string]scriptBody{
		"A.f": func(act *Activation) (Value, error) {
			trace = append(trace, "A")
			return String("A"), nil
		},
		"B.f": func(act *Activation) (Value, error) {
			trace = append(trace, "B")
			return act.CallSuper(f, nil)
		},
		"C.f": func(act *Activation) (Value, error) {
			trace = append(trace, "C")
			return act.CallSuper(f, nil)
		},
	})
	act := vm.NewActivation()

	a := NewClassDescriptor(publicName("A"), objectName(), 0).
		AddInstanceTrait(MethodTrait(publicName("f"), bytecode("f", "A.f")))
	b := NewClassDescriptor(publicName("B"), typeName("A"), 0).
		AddInstanceTrait(MethodTrait(publicName("f"), bytecode("f", "B.f")))
	c := NewClassDescriptor(publicName("C"), typeName("B"), 0).
		AddInstanceTrait(MethodTrait(publicName("f"), bytecode("f", "C.f")))
	mustDefine(t, vm, act, a)
	mustDefine(t, vm, act, b)
	cc := mustDefine(t, vm, act, c)

	obj := mustConstruct(t, act, cc)
	v, err := CallProperty(act, obj, f, nil)
	if err != nil {
		t.Fatalf("CallProperty(f) error: %v", err)
	}
	if v.String() != "A" {
		t.Errorf("result = %v, want A", v)
	}
	if got := strings.Join(trace, ""); got != "CBA" {
		t.Errorf("trace = %s, want CBA", got)
	}
}

func TestSupercallStartsAtDefiningClass(t *testing.T) {
	// B.f calls super.f even when invoked on a C that overrides f.
	var trace []string
	f := PublicMultiname("f")
	vm := newTestVM(t, map[string]scriptBody{
		"A.f": func(act *Activation) (Value, error) { trace = append(trace, "A"); return Undefined, nil },
		"B.f": func(act *Activation) (Value, error) {
			trace = append(trace, "B")
			return act.CallSuper(f, nil)
		},
		"C.f": func(act *Activation) (Value, error) { trace = append(trace, "C"); return Undefined, nil },
	})
	act := vm.NewActivation()

	mustDefine(t, vm, act, NewClassDescriptor(publicName("A"), objectName(), 0).
		AddInstanceTrait(MethodTrait(publicName("f"), bytecode("f", "A.f"))))
	b := mustDefine(t, vm, act, NewClassDescriptor(publicName("B"), typeName("A"), 0).
		AddInstanceTrait(MethodTrait(publicName("f"), bytecode("f", "B.f"))))
	cc := mustDefine(t, vm, act, NewClassDescriptor(publicName("C"), typeName("B"), 0).
		AddInstanceTrait(MethodTrait(publicName("f"), bytecode("f", "C.f"))))
	obj := mustConstruct(t, act, cc)

	// Call B's implementation directly on the C instance.
	p, _ := b.InstanceVTable().GetTrait(f)
	full, _ := b.InstanceVTable().GetFullMethod(p.(MethodProperty).DispID)
	if _, err := NewExecutable(full.Method, full.Scope, obj, full.Class).Exec(act, ObjectValue(obj), nil, nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(trace, ""); got != "BA" {
		t.Errorf("trace = %s, want BA", got)
	}
}

func TestSuperMissingMethod(t *testing.T) {
	vm := newTestVM(t, map[string]scriptBody{
		"B.g": func(act *Activation) (Value, error) { return act.CallSuper(PublicMultiname("nope"), nil) },
	})
	act := vm.NewActivation()
	mustDefine(t, vm, act, NewClassDescriptor(publicName("A"), objectName(), 0))
	b := mustDefine(t, vm, act, NewClassDescriptor(publicName("B"), typeName("A"), 0).
		AddInstanceTrait(MethodTrait(publicName("g"), bytecode("g", "B.g"))))
	obj := mustConstruct(t, act, b)

	_, err := CallProperty(act, obj, PublicMultiname("g"), nil)
	expectCode(t, err, 1070)
	if !strings.Contains(err.Error(), "nope") || !strings.Contains(err.Error(), "A") {
		t.Errorf("error %q should name the method and class", err)
	}
}

func TestSuperSlotDegradesToPropertyAccess(t *testing.T) {
	vm := newTestVM(t, map[string]scriptBody{
		"B.bump": func(act *Activation) (Value, error) {
			x := PublicMultiname("x")
			v, err := act.GetSuper(x)
			if err != nil {
				return Undefined, err
			}
			n, _ := v.AsNumber()
			return Undefined, act.SetSuper(x, Int(int32(n)+1))
		},
	})
	act := vm.NewActivation()
	mustDefine(t, vm, act, NewClassDescriptor(publicName("A"), objectName(), ClassSealed).
		AddInstanceTrait(SlotTrait(publicName("x"), typeName("int"), nil)))
	b := mustDefine(t, vm, act, NewClassDescriptor(publicName("B"), typeName("A"), ClassSealed).
		AddInstanceTrait(MethodTrait(publicName("bump"), bytecode("bump", "B.bump"))))
	obj := mustConstruct(t, act, b)

	if _, err := CallProperty(act, obj, PublicMultiname("bump"), nil); err != nil {
		t.Fatal(err)
	}
	if v := obj.Base().GetSlot(0); !v.StrictEquals(Int(1)) {
		t.Errorf("x = %v, want 1", v)
	}
}

func TestSuperAccessorRules(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	a := mustDefine(t, vm, act, NewClassDescriptor(publicName("A"), objectName(), 0).
		AddInstanceTrait(MethodTrait(publicName("m"), NewNativeMethod("m", noopInit))).
		AddInstanceTrait(GetterTrait(publicName("ro"), NewNativeMethod("ro", noopInit))))
	obj := mustConstruct(t, act, a)

	expectCode(t, a.SetSuper(act, PublicMultiname("m"), obj, Int(1)), 1037)
	expectCode(t, a.SetSuper(act, PublicMultiname("ro"), obj, Int(1)), 1074)

	v, err := a.GetSuper(act, PublicMultiname("m"), obj)
	if err != nil {
		t.Fatal(err)
	}
	if fo, _ := v.AsObject(); fo == nil {
		t.Error("GetSuper(method) should return a function")
	}
}

func TestSuperOutsideClassMethod(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	if _, err := act.CallSuper(PublicMultiname("f"), nil); err == nil {
		t.Error("super outside a class method should fail")
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestClassInitializerRunsOnce(t *testing.T) {
	runs := 0
	vm := newTestVM(t, map[string]scriptBody{
		"cinit": func(act *Activation) (Value, error) { runs++; return Undefined, nil },
	})
	act := vm.NewActivation()
	desc := NewClassDescriptor(publicName("Counter"), objectName(), 0)
	desc.ClassInit = bytecode("", "cinit")
	cls := mustDefine(t, vm, act, desc)

	if runs != 1 {
		t.Errorf("runs after link = %d, want 1", runs)
	}
	mustConstruct(t, act, cls)
	mustConstruct(t, act, cls)
	if runs != 1 {
		t.Errorf("runs after two constructions = %d, want 1", runs)
	}
	if err := cls.RunClassInitializer(act); err != nil || runs != 1 {
		t.Errorf("explicit rerun: runs = %d, err = %v", runs, err)
	}
}

func TestFailedClassInitializerIsNotRetried(t *testing.T) {
	runs := 0
	boom := errors.New("cinit failed")
	vm := newTestVM(t, map[string]scriptBody{
		"cinit": func(act *Activation) (Value, error) { runs++; return Undefined, boom },
	})
	act := vm.NewActivation()
	desc := NewClassDescriptor(publicName("Broken"), objectName(), 0)
	desc.ClassInit = bytecode("", "cinit")

	if _, err := vm.DefineClass(act, desc, nil); !errors.Is(err, boom) {
		t.Fatalf("DefineClass error = %v, want cinit failure", err)
	}
	if !desc.IsClassInitialized() {
		t.Error("guard should stay set after a failure")
	}
	if _, err := FromClass(act, desc, nil, vm.ObjectClass()); err != nil {
		t.Errorf("relinking should skip the initializer, got %v", err)
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestCannotExtendFinalOrInterface(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	mustDefine(t, vm, act, NewClassDescriptor(publicName("Leaf"), objectName(), ClassFinal))
	mustDefine(t, vm, act, NewClassDescriptor(publicName("IShape"), nil, ClassInterface))

	_, err := vm.DefineClass(act, NewClassDescriptor(publicName("Sub"), typeName("Leaf"), 0), nil)
	expectCode(t, err, 1103)
	if !IsErrorKind(err, KindVerifyError) {
		t.Errorf("kind = %v, want VerifyError", err)
	}

	_, err = vm.DefineClass(act, NewClassDescriptor(publicName("Impl"), typeName("IShape"), 0), nil)
	expectCode(t, err, 1110)
}

func TestImplementingNonInterfaceFails(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	mustDefine(t, vm, act, NewClassDescriptor(publicName("Plain"), objectName(), 0))

	desc := NewClassDescriptor(publicName("Impl"), objectName(), 0).Implements(publicName("Plain"))
	_, err := vm.DefineClass(act, desc, nil)
	expectCode(t, err, 1111)
}

func TestUnresolvedInterfaceFails(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	desc := NewClassDescriptor(publicName("Impl"), objectName(), 0).Implements(publicName("IMissing"))
	_, err := vm.DefineClass(act, desc, nil)
	if err == nil || ErrorCode(err) != 0 {
		t.Errorf("err = %v, want plain resolution error", err)
	}
}

func TestInterfaceLinking(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	ns := NewQName(ExplicitNamespace("IShape"), "area")
	parentNS := NewQName(ExplicitNamespace("IBase"), "id")

	mustDefine(t, vm, act, NewClassDescriptor(publicName("IBase"), nil, ClassInterface).
		AddInstanceTrait(MethodTrait(parentNS, NewNativeMethod("id", noopInit))))
	mustDefine(t, vm, act, NewClassDescriptor(publicName("IShape"), nil, ClassInterface).
		Implements(publicName("IBase")).
		AddInstanceTrait(MethodTrait(ns, NewNativeMethod("area", noopInit))))

	area := NewNativeMethod("area", func(act *Activation, this Object, args []Value) (Value, error) {
		return Number(4), nil
	})
	sq := mustDefine(t, vm, act, NewClassDescriptor(publicName("Square"), objectName(), 0).
		Implements(publicName("IShape")).
		AddInstanceTrait(MethodTrait(publicName("area"), area)).
		AddInstanceTrait(MethodTrait(publicName("id"), NewNativeMethod("id", noopInit))))

	if len(sq.Interfaces()) != 2 {
		t.Fatalf("Interfaces = %d, want 2 (flattened)", len(sq.Interfaces()))
	}
	obj := mustConstruct(t, act, sq)
	v, err := CallProperty(act, obj, NewMultiname("area", ns.Namespace()), nil)
	if err != nil || !v.StrictEquals(Number(4)) {
		t.Errorf("IShape::area() = %v, %v, want 4", v, err)
	}
	if !sq.InstanceVTable().HasTrait(NewMultiname("id", parentNS.Namespace())) {
		t.Error("inherited interface trait not aliased")
	}

	ishape, _ := vm.GlobalDomain().LookupDescriptor(publicName("IShape"))
	if !sq.HasClassInChain(ishape) {
		t.Error("HasClassInChain(IShape) = false")
	}
	if !sq.IsOfType(obj) {
		t.Error("IsOfType(instance) = false")
	}

	// Subclasses inherit the interface set.
	sub := mustDefine(t, vm, act, NewClassDescriptor(publicName("Tile"), typeName("Square"), 0))
	if !sub.HasClassInChain(ishape) {
		t.Error("subclass lost inherited interface")
	}
}

func TestPhaseOrderIsEnforced(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	cls, err := FromClassPartial(act, NewClassDescriptor(publicName("Early"), objectName(), 0), nil, vm.ObjectClass())
	if err != nil {
		t.Fatal(err)
	}
	if err := cls.InitInstanceVTable(); err == nil {
		t.Error("InitInstanceVTable before LinkPrototype should fail")
	}
	if _, err := cls.Construct(act, nil); ErrorCode(err) != 2099 {
		t.Errorf("Construct on partial class = %v, want 2099", err)
	}
	if cls.State() != ClassPartial {
		t.Errorf("State = %v, want partial", cls.State())
	}
}

func TestConstructRunsInitializers(t *testing.T) {
	vm := newTestVM(t, map[string]scriptBody{
		"ctor": func(act *Activation) (Value, error) {
			return Undefined, SetProperty(act, act.This(), PublicMultiname("x"), act.Arg(0))
		},
	})
	act := vm.NewActivation()
	desc := NewClassDescriptor(publicName("Box"), objectName(), ClassSealed).
		AddInstanceTrait(SlotTrait(publicName("x"), nil, nil))
	desc.InstanceInit = bytecode("", "ctor", Param("x"))
	cls := mustDefine(t, vm, act, desc)

	obj := mustConstruct(t, act, cls, String("v"))
	if v := obj.Base().GetSlot(0); v.String() != "v" {
		t.Errorf("x = %v, want v", v)
	}

	nativeRan := false
	native := NewClassDescriptor(publicName("NativeBox"), objectName(), 0)
	native.InstanceInit = bytecode("", "ctor", Param("x"))
	native.NativeInit = NewNativeMethod("", func(act *Activation, this Object, args []Value) (Value, error) {
		nativeRan = true
		return Undefined, nil
	})
	ncls := mustDefine(t, vm, act, native)
	mustConstruct(t, act, ncls)
	if !nativeRan {
		t.Error("native initializer should run in place of the declared one")
	}
}

func TestConstructSuper(t *testing.T) {
	vm := newTestVM(t, map[string]scriptBody{
		"A.ctor": func(act *Activation) (Value, error) {
			return Undefined, SetProperty(act, act.This(), PublicMultiname("fromA"), True)
		},
		"B.ctor": func(act *Activation) (Value, error) {
			return Undefined, act.ConstructSuper(nil)
		},
	})
	act := vm.NewActivation()
	a := NewClassDescriptor(publicName("A"), objectName(), 0)
	a.InstanceInit = bytecode("", "A.ctor")
	b := NewClassDescriptor(publicName("B"), typeName("A"), 0)
	b.InstanceInit = bytecode("", "B.ctor")
	mustDefine(t, vm, act, a)
	bcls := mustDefine(t, vm, act, b)

	obj := mustConstruct(t, act, bcls)
	if v, _ := GetProperty(act, obj, PublicMultiname("fromA")); !v.StrictEquals(True) {
		t.Errorf("fromA = %v, want true", v)
	}
}

func TestInterfacesCannotBeConstructed(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	iface := mustDefine(t, vm, act, NewClassDescriptor(publicName("IShape"), nil, ClassInterface))
	_, err := iface.Construct(act, nil)
	expectCode(t, err, 1115)
}

func TestClassObjectExposesMetaClassTraits(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	point, _ := pointClasses(t, vm, act)

	v, err := GetProperty(act, point, PublicMultiname("prototype"))
	if err != nil {
		t.Fatal(err)
	}
	if o, _ := v.AsObject(); o != point.Prototype() {
		t.Error("Point.prototype should be the linked prototype")
	}
	if v, _ := GetProperty(act, vm.ClassClass(), PublicMultiname("length")); !v.StrictEquals(Int(1)) {
		t.Errorf("Class.length = %v, want 1", v)
	}
	if point.String() != "[class Point]" {
		t.Errorf("String() = %q", point.String())
	}
}

// ---------------------------------------------------------------------------
// Calling and coercion
// ---------------------------------------------------------------------------

func TestClassCoercion(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	point, point3D := pointClasses(t, vm, act)
	p3 := mustConstruct(t, act, point3D)
	p := mustConstruct(t, act, point)

	if v, err := point.Call(act, Null, []Value{ObjectValue(p3)}); err != nil || !v.StrictEquals(ObjectValue(p3)) {
		t.Errorf("Point(p3) = %v, %v", v, err)
	}
	_, err := point3D.Call(act, Null, []Value{ObjectValue(p)})
	expectCode(t, err, 1034)

	_, err = point.Call(act, Null, []Value{})
	expectCode(t, err, 1112)
	_, err = point.Call(act, Null, []Value{Null, Null})
	expectCode(t, err, 1112)

	if v, _ := point.Call(act, Null, []Value{Undefined}); !v.IsNull() {
		t.Errorf("Point(undefined) = %v, want null", v)
	}

	intClass, _ := vm.GlobalDomain().LookupClass(publicName("int"))
	if v, _ := intClass.Call(act, Null, []Value{String("42.9")}); !v.StrictEquals(Int(42)) || v.Kind() != KindInt {
		t.Errorf("int(\"42.9\") = %v, want 42", v)
	}
}

func TestCallHandlerOverridesCoercion(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	desc := NewClassDescriptor(publicName("Maker"), objectName(), 0)
	desc.CallHandler = NewVariadicNativeMethod("make", func(act *Activation, this Object, args []Value) (Value, error) {
		return Int(int32(len(args))), nil
	})
	cls := mustDefine(t, vm, act, desc)

	v, err := cls.Call(act, ObjectValue(NewScriptObject(nil)), []Value{Int(1), Int(2)})
	if err != nil || !v.StrictEquals(Int(2)) {
		t.Errorf("Maker(1, 2) = %v, %v, want 2", v, err)
	}

	// No receiver and no global object to fall back to.
	_, err = cls.Call(act, Null, []Value{Int(1)})
	expectCode(t, err, 1009)
}

// ---------------------------------------------------------------------------
// Generic application
// ---------------------------------------------------------------------------

func vectorClass(t *testing.T, vm *VM, act *Activation) *ClassObject {
	t.Helper()
	return mustDefine(t, vm, act, NewClassDescriptor(publicName("Vector"), objectName(), ClassGeneric|ClassFinal))
}

func TestApplyIsIdempotent(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	vector := vectorClass(t, vm, act)
	number, _ := vm.GlobalDomain().LookupClass(publicName("Number"))
	intClass, _ := vm.GlobalDomain().LookupClass(publicName("int"))

	a, err := vector.Apply(act, []Value{ObjectValue(number)})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := vector.Apply(act, []Value{ObjectValue(number)})
	if a != b {
		t.Error("Vector.<Number> applied twice gave different classes")
	}
	c, _ := vector.Apply(act, []Value{ObjectValue(intClass)})
	if c == a {
		t.Error("Vector.<int> and Vector.<Number> should differ")
	}
	if again, _ := vector.Apply(act, []Value{ObjectValue(intClass)}); again != c {
		t.Error("Vector.<int> not cached")
	}
	if vector.Applications() != 2 {
		t.Errorf("Applications = %d, want 2", vector.Applications())
	}
	if got := a.Name().LocalName(); got != "Vector.<Number>" {
		t.Errorf("specialized name = %q", got)
	}
	if param, ok := a.Descriptor().TypeParam(); !ok || param != number {
		t.Error("TypeParam should be Number")
	}
	if !a.IsFinished() {
		t.Error("specialization should be finished")
	}
}

func TestApplyNull(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	vector := vectorClass(t, vm, act)

	a, err := vector.Apply(act, []Value{Null})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := vector.Apply(act, []Value{Null})
	if a != b {
		t.Error("Vector.<*> not cached")
	}
	if param, ok := a.Descriptor().TypeParam(); !ok || param != nil {
		t.Error("null application should record a nil parameter")
	}
	if a.Name().LocalName() != "Vector.<*>" {
		t.Errorf("name = %q, want Vector.<*>", a.Name().LocalName())
	}
}

func TestApplyErrors(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	vector := vectorClass(t, vm, act)
	point, _ := pointClasses(t, vm, act)

	_, err := point.Apply(act, []Value{Null})
	expectCode(t, err, 1127)

	_, err = vector.Apply(act, []Value{Null, Null})
	expectCode(t, err, 1128)
	if !IsErrorKind(err, KindArgumentError) {
		t.Errorf("kind = %v, want ArgumentError", err)
	}

	_, err = vector.Apply(act, []Value{Int(3)})
	expectCode(t, err, 1034)
}

func TestAddApplicationPreseeds(t *testing.T) {
	vm := newTestVM(t, nil)
	act := vm.NewActivation()
	vector := vectorClass(t, vm, act)
	intClass, _ := vm.GlobalDomain().LookupClass(publicName("int"))
	special := mustDefine(t, vm, act, NewClassDescriptor(publicName("IntVector"), objectName(), ClassFinal))

	vector.AddApplication(intClass, special)
	got, err := vector.Apply(act, []Value{ObjectValue(intClass)})
	if err != nil || got != special {
		t.Errorf("Apply(int) = %v, %v, want pre-seeded IntVector", got, err)
	}
}
