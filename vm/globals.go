package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Early classes
// ---------------------------------------------------------------------------
//
// Object, Class and Function refer to one another: every class is an
// instance of Class, Class extends Object, and methods are Functions.
// They are created partially, woven together, and only then finished.

func objectDescriptor() *ClassDescriptor {
	desc := NewClassDescriptor(PublicQName("Object"), nil, 0)
	desc.ClassInit = NewNativeMethod("", objectClassInit)
	desc.AddClassTrait(ConstTrait(PublicQName("length"), qnamePtr(PublicQName("int")), valuePtr(Int(1))))
	return desc
}

func classDescriptor() *ClassDescriptor {
	object := PublicQName("Object")
	desc := NewClassDescriptor(PublicQName("Class"), &object, ClassFinal)
	desc.InstanceInit = NewNativeMethod("", classInstanceInit)
	desc.AddInstanceTrait(GetterTrait(PublicQName("prototype"), NewNativeMethod("prototype", classPrototype)))
	desc.AddClassTrait(ConstTrait(PublicQName("length"), qnamePtr(PublicQName("int")), valuePtr(Int(1))))
	return desc
}

func functionDescriptor() *ClassDescriptor {
	object := PublicQName("Object")
	desc := NewClassDescriptor(PublicQName("Function"), &object, ClassFinal)
	desc.Allocator = functionAllocator
	desc.AddInstanceTrait(MethodTrait(PublicQName("call"), NewVariadicNativeMethod("call", functionCall)))
	desc.AddInstanceTrait(GetterTrait(PublicQName("length"), NewNativeMethod("length", functionLength)))
	return desc
}

// bootstrap links the early classes and the primitive classes.
func (vm *VM) bootstrap(act *Activation) error {
	scope := NewScopeChain(vm.globalDomain)

	object, err := FromClassPartial(act, objectDescriptor(), scope, nil)
	if err != nil {
		return err
	}
	class, err := FromClassPartial(act, classDescriptor(), scope, object)
	if err != nil {
		return err
	}
	function, err := FromClassPartial(act, functionDescriptor(), scope, object)
	if err != nil {
		return err
	}
	vm.objectClass, vm.classClass, vm.functionClass = object, class, function

	objectProto := NewScriptObject(nil)
	objectProto.base.SetInstanceOf(object, object.instanceVTable)
	classProto := NewScriptObject(objectProto)
	classProto.base.SetInstanceOf(object, object.instanceVTable)
	functionProto := NewScriptObject(objectProto)
	functionProto.base.SetInstanceOf(object, object.instanceVTable)

	for _, link := range []struct {
		cls   *ClassObject
		proto Object
	}{{object, objectProto}, {class, classProto}, {function, functionProto}} {
		if err := link.cls.LinkType(classProto, class); err != nil {
			return err
		}
		if err := link.cls.LinkPrototype(link.proto); err != nil {
			return err
		}
	}
	for _, cls := range []*ClassObject{object, class, function} {
		if err := cls.InitInstanceVTable(); err != nil {
			return err
		}
	}
	for _, cls := range []*ClassObject{object, class, function} {
		if err := cls.IntoFinishedClass(act); err != nil {
			return err
		}
		vm.globalDomain.ExportClass(cls)
	}

	return vm.definePrimitiveClasses(act, scope)
}

func objectClassInit(act *Activation, this Object, args []Value) (Value, error) {
	proto := act.vm.objectClass.prototype.Base()
	for _, m := range []*NativeMethod{
		NewNativeMethod("hasOwnProperty", objectHasOwnProperty, OptionalParam("name", Undefined)),
		NewNativeMethod("propertyIsEnumerable", objectPropertyIsEnumerable, OptionalParam("name", Undefined)),
		NewNativeMethod("setPropertyIsEnumerable", objectSetPropertyIsEnumerable,
			OptionalParam("name", Undefined), OptionalParam("isEnum", True)),
		NewNativeMethod("toString", objectToString),
	} {
		proto.setDynamic(m.name, ObjectValue(NewFunctionObject(act, m, act.scope, nil, nil)))
		proto.SetLocalPropertyIsEnumerable(m.name, false)
	}
	return Undefined, nil
}

func objectHasOwnProperty(act *Activation, this Object, args []Value) (Value, error) {
	return Bool(HasOwnProperty(this, PublicMultiname(args[0].String()))), nil
}

func objectPropertyIsEnumerable(act *Activation, this Object, args []Value) (Value, error) {
	return Bool(this.Base().PropertyIsEnumerable(args[0].String())), nil
}

func objectSetPropertyIsEnumerable(act *Activation, this Object, args []Value) (Value, error) {
	this.Base().SetLocalPropertyIsEnumerable(args[0].String(), truthy(args[1]))
	return Undefined, nil
}

func objectToString(act *Activation, this Object, args []Value) (Value, error) {
	if this == nil {
		return String("[object null]"), nil
	}
	return String(objectString(this)), nil
}

func classInstanceInit(act *Activation, this Object, args []Value) (Value, error) {
	return Undefined, errors.New("Classes cannot be constructed.")
}

func classPrototype(act *Activation, this Object, args []Value) (Value, error) {
	cls, ok := this.(*ClassObject)
	if !ok || cls.prototype == nil {
		return Undefined, nil
	}
	return ObjectValue(cls.prototype), nil
}

func functionCall(act *Activation, this Object, args []Value) (Value, error) {
	fn, ok := this.(*FunctionObject)
	if !ok {
		return Undefined, errNotAFunction(objectString(this))
	}
	receiver := Undefined
	if len(args) > 0 {
		receiver, args = args[0], args[1:]
	}
	return fn.Call(act, receiver, args)
}

func functionLength(act *Activation, this Object, args []Value) (Value, error) {
	fn, ok := this.(*FunctionObject)
	if !ok {
		return Int(0), nil
	}
	return Int(int32(len(fn.exec.method.Params()))), nil
}

// ---------------------------------------------------------------------------
// Primitive classes
// ---------------------------------------------------------------------------

var primitiveClassNames = []struct {
	name string
	kind ValueKind
}{
	{"Boolean", KindBool},
	{"int", KindInt},
	{"uint", KindUint},
	{"Number", KindNumber},
	{"String", KindString},
}

func (vm *VM) definePrimitiveClasses(act *Activation, scope *ScopeChain) error {
	object := vm.objectClass.desc.Name
	for _, p := range primitiveClassNames {
		name, kind := p.name, p.kind
		zero := defaultValueForType(qnamePtr(PublicQName(name)))
		desc := NewClassDescriptor(PublicQName(name), &object, ClassSealed|ClassFinal)
		desc.Allocator = func(cls *ClassObject, act *Activation) (Object, error) {
			return &PrimitiveObject{base: newScriptObjectData(cls), value: zero}, nil
		}
		desc.InstanceInit = NewNativeMethod("", func(act *Activation, this Object, args []Value) (Value, error) {
			prim, ok := this.(*PrimitiveObject)
			if !ok {
				return Undefined, fmt.Errorf("%s initializer called on %s", name, objectString(this))
			}
			prim.value = coercePrimitive(args[0], kind)
			return Undefined, nil
		}, OptionalParam("value", zero))

		cls, err := vm.DefineClass(act, desc, scope)
		if err != nil {
			return err
		}
		vm.RegisterPrimitiveClass(kind, cls)
	}
	return nil
}

func qnamePtr(q QName) *QName { return &q }
func valuePtr(v Value) *Value { return &v }
