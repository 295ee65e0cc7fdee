package vm

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// ClassState
// ---------------------------------------------------------------------------

// ClassState tracks how far a class object has been linked. Each state is
// a precondition for the next.
type ClassState uint8

const (
	ClassPartial ClassState = iota
	ClassTyped
	ClassPrototypeLinked
	ClassInstanceVTableInitialized
	ClassFinished
)

func (s ClassState) String() string {
	switch s {
	case ClassPartial:
		return "partial"
	case ClassTyped:
		return "typed"
	case ClassPrototypeLinked:
		return "prototype-linked"
	case ClassInstanceVTableInitialized:
		return "instance-vtable-initialized"
	case ClassFinished:
		return "finished"
	}
	return "unknown"
}

// ---------------------------------------------------------------------------
// ClassObject
// ---------------------------------------------------------------------------

// ClassObject is the runtime value of a class. Classes are objects: their
// own storage holds class-side slots and their vtable resolves class-side
// traits layered over the meta-class's instance traits.
type ClassObject struct {
	base ScriptObjectData
	desc *ClassDescriptor

	classScope    *ScopeChain
	instanceScope *ScopeChain

	superclass  *ClassObject
	allocator   AllocatorFunc
	callHandler Method
	prototype   Object

	instanceVTable *VTable
	classVTable    *VTable
	interfaces     []*ClassDescriptor

	state ClassState

	appMu        sync.Mutex
	applications map[*ClassObject]*ClassObject
}

// FromClass runs every linking phase and returns a Finished class.
// scope is the environment methods close over; nil selects an empty chain
// over the VM's global domain.
func FromClass(act *Activation, desc *ClassDescriptor, scope *ScopeChain, superclass *ClassObject) (*ClassObject, error) {
	cls, err := FromClassPartial(act, desc, scope, superclass)
	if err != nil {
		return nil, err
	}

	meta := act.vm.classClass
	if err := cls.LinkType(meta.Prototype(), meta); err != nil {
		return nil, err
	}
	proto, err := cls.AllocatePrototype(act)
	if err != nil {
		return nil, err
	}
	if err := cls.LinkPrototype(proto); err != nil {
		return nil, err
	}
	if err := cls.InitInstanceVTable(); err != nil {
		return nil, err
	}
	if err := cls.IntoFinishedClass(act); err != nil {
		return nil, err
	}
	return cls, nil
}

// FromClassPartial records the descriptor, scope and superclass and picks
// the instance allocator. Extending a final class or an interface fails.
func FromClassPartial(act *Activation, desc *ClassDescriptor, scope *ScopeChain, superclass *ClassObject) (*ClassObject, error) {
	if superclass != nil {
		if superclass.desc.IsFinal() {
			return nil, errExtendFinal(desc.Name.ErrorName())
		}
		if superclass.desc.IsInterface() {
			return nil, errExtendInterface(desc.Name.ErrorName(), superclass.desc.Name.ErrorName())
		}
	}
	if scope == nil {
		scope = NewScopeChain(act.vm.globalDomain)
	}

	allocator := desc.Allocator
	if allocator == nil && superclass != nil {
		allocator = superclass.allocator
	}
	if allocator == nil {
		allocator = ScriptObjectAllocator
	}

	cls := &ClassObject{
		desc:           desc,
		classScope:     scope,
		superclass:     superclass,
		allocator:      allocator,
		callHandler:    desc.CallHandler,
		instanceVTable: NewVTable(),
		classVTable:    NewVTable(),
		state:          ClassPartial,
		applications:   make(map[*ClassObject]*ClassObject),
	}
	cls.instanceScope = scope.Chain(NewScope(cls))

	log.Debugf("class %s: partial", desc.Name.QualifiedName())
	return cls, nil
}

func (c *ClassObject) expectState(want ClassState, phase string) error {
	if c.state != want {
		return fmt.Errorf("class %s: %s requires state %s, have %s",
			c.desc.Name.QualifiedName(), phase, want, c.state)
	}
	return nil
}

// LinkType binds the class object to its meta-class and sets its prototype
// link to proto.
func (c *ClassObject) LinkType(proto Object, meta *ClassObject) error {
	if err := c.expectState(ClassPartial, "link type"); err != nil {
		return err
	}
	c.base.SetInstanceOf(meta, meta.instanceVTable)
	c.base.SetProto(proto)
	c.state = ClassTyped
	return nil
}

// AllocatePrototype creates an Object instance chained to the superclass's
// prototype, for use with LinkPrototype.
func (c *ClassObject) AllocatePrototype(act *Activation) (Object, error) {
	proto, err := act.vm.objectClass.Construct(act, nil)
	if err != nil {
		return nil, err
	}
	if c.superclass != nil {
		proto.Base().SetProto(c.superclass.prototype)
	}
	return proto, nil
}

// LinkPrototype installs proto as the class's prototype and points its
// non-enumerable "constructor" property back at the class.
func (c *ClassObject) LinkPrototype(proto Object) error {
	if err := c.expectState(ClassTyped, "link prototype"); err != nil {
		return err
	}
	c.prototype = proto
	pb := proto.Base()
	pb.setDynamic("constructor", ObjectValue(c))
	pb.SetLocalPropertyIsEnumerable("constructor", false)
	c.state = ClassPrototypeLinked
	return nil
}

// InitInstanceVTable resolves instance traits over the superclass's table.
func (c *ClassObject) InitInstanceVTable() error {
	if err := c.expectState(ClassPrototypeLinked, "init instance vtable"); err != nil {
		return err
	}
	var super *VTable
	if c.superclass != nil {
		super = c.superclass.instanceVTable
	}
	c.instanceVTable.Init(c, c.desc.InstanceTraits, c.instanceScope, super)
	c.state = ClassInstanceVTableInitialized
	return nil
}

// IntoFinishedClass builds the class-side vtable, links interfaces,
// installs class-side slots and runs the class initializer once.
func (c *ClassObject) IntoFinishedClass(act *Activation) error {
	if err := c.expectState(ClassInstanceVTableInitialized, "finish"); err != nil {
		return err
	}

	// Class-side traits sit over the meta-class's instance traits, so every
	// class value exposes what Class declares (prototype and friends).
	meta := c.base.instanceOf
	c.classVTable.Init(c, c.desc.ClassTraits, c.instanceScope, meta.instanceVTable)

	if err := c.linkInterfaces(); err != nil {
		return err
	}

	c.base.SetInstanceOf(meta, c.classVTable)
	c.base.InstallInstanceSlots(c.classVTable)
	c.state = ClassFinished
	log.Debugf("class %s: finished (%d slots, %d methods)",
		c.desc.Name.QualifiedName(), c.instanceVTable.SlotCount(), c.instanceVTable.MethodCount())

	return c.RunClassInitializer(act)
}

// linkInterfaces flattens the interfaces implemented by the class and its
// superclasses, then aliases every non-public interface trait under its
// public name. Aliasing is redone for the whole set on every link.
func (c *ClassObject) linkInterfaces() error {
	domain := c.classScope.Domain()

	var queue []*ClassDescriptor
	for k := c; k != nil; k = k.superclass {
		queue = append(queue, k.desc)
	}

	seen := make(map[*ClassDescriptor]bool)
	var interfaces []*ClassDescriptor
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		for _, name := range d.Interfaces {
			if domain == nil {
				return fmt.Errorf("could not resolve class %s", name.QualifiedName())
			}
			iface, err := domain.GetDescriptor(name)
			if err != nil {
				return err
			}
			if !iface.IsInterface() {
				return errImplementNonInterface(c.desc.Name.ErrorName(), iface.Name.ErrorName())
			}
			if !seen[iface] {
				seen[iface] = true
				interfaces = append(interfaces, iface)
				queue = append(queue, iface)
			}
		}
	}
	c.interfaces = interfaces

	for _, iface := range interfaces {
		for _, t := range iface.InstanceTraits {
			if t.Name.ns.IsPublic() {
				continue
			}
			c.instanceVTable.CopyPropertyForInterface(PublicQName(t.Name.name), t.Name)
		}
	}
	return nil
}

// RunClassInitializer runs the class initializer unless it already ran for
// this descriptor. The guard is set before the call, so a failing
// initializer is never retried.
func (c *ClassObject) RunClassInitializer(act *Activation) error {
	if !c.desc.markClassInitialized() {
		return nil
	}
	log.Debugf("class %s: running class initializer", c.desc.Name.QualifiedName())
	exec := NewExecutable(c.desc.ClassInit, c.classScope, c, c)
	_, err := exec.Exec(act, ObjectValue(c), nil, c)
	return err
}

// ---------------------------------------------------------------------------
// Instantiation
// ---------------------------------------------------------------------------

// Construct allocates an instance, installs its default slots and runs the
// instance initializer with args.
func (c *ClassObject) Construct(act *Activation, args []Value) (Object, error) {
	if c.state != ClassFinished {
		return nil, errNotLoaded()
	}
	if c.desc.IsInterface() {
		return nil, errNotAConstructor(c.desc.Name.ErrorName())
	}
	obj, err := c.allocator(c, act)
	if err != nil {
		return nil, err
	}
	obj.Base().InstallInstanceSlots(c.instanceVTable)
	if err := c.CallNativeInit(act, obj, args); err != nil {
		return nil, err
	}
	return obj, nil
}

// CallInit runs the declared instance initializer on receiver.
func (c *ClassObject) CallInit(act *Activation, receiver Object, args []Value) error {
	exec := NewExecutable(c.desc.InstanceInit, c.instanceScope, receiver, c)
	_, err := exec.Exec(act, ObjectValue(receiver), args, c)
	return err
}

// CallNativeInit runs the native initializer if the class has one, and the
// declared initializer otherwise.
func (c *ClassObject) CallNativeInit(act *Activation, receiver Object, args []Value) error {
	if c.desc.NativeInit == nil {
		return c.CallInit(act, receiver, args)
	}
	exec := NewExecutable(c.desc.NativeInit, c.instanceScope, receiver, c)
	_, err := exec.Exec(act, ObjectValue(receiver), args, c)
	return err
}

// ---------------------------------------------------------------------------
// Supercalls
// ---------------------------------------------------------------------------
//
// Supercalls resolve against c's own instance vtable, where c is the
// superclass of the class defining the running method, not the class of
// the receiver. The resolved method is invoked with the original receiver.

// CallSuper calls the superclass implementation of name on receiver.
func (c *ClassObject) CallSuper(act *Activation, name *Multiname, receiver Object, args []Value) (Value, error) {
	p, ok := c.instanceVTable.GetTrait(name)
	if !ok {
		return Undefined, errSuperMethodNotFound(name.ErrorName(), c.desc.Name.ErrorName())
	}
	switch p := p.(type) {
	case MethodProperty:
		full, _ := c.instanceVTable.GetFullMethod(p.DispID)
		exec := NewExecutable(full.Method, full.Scope, receiver, full.Class)
		return exec.Exec(act, ObjectValue(receiver), args, nil)
	case VirtualProperty, SlotProperty, ConstSlotProperty:
		return CallProperty(act, receiver, name, args)
	default:
		panic(fmt.Sprintf("ClassObject.CallSuper: unknown property %T", p))
	}
}

// GetSuper reads the superclass implementation of name on receiver.
func (c *ClassObject) GetSuper(act *Activation, name *Multiname, receiver Object) (Value, error) {
	p, ok := c.instanceVTable.GetTrait(name)
	if !ok {
		return Undefined, errSuperMethodNotFound(name.ErrorName(), c.desc.Name.ErrorName())
	}
	switch p := p.(type) {
	case MethodProperty:
		full, _ := c.instanceVTable.GetFullMethod(p.DispID)
		return ObjectValue(NewFunctionObject(act, full.Method, full.Scope, receiver, full.Class)), nil
	case VirtualProperty:
		if !p.HasGet {
			return Undefined, errWriteOnly(name.ErrorName(), c.desc.Name.ErrorName())
		}
		full, _ := c.instanceVTable.GetFullMethod(p.Get)
		exec := NewExecutable(full.Method, full.Scope, receiver, full.Class)
		return exec.Exec(act, ObjectValue(receiver), nil, nil)
	case SlotProperty, ConstSlotProperty:
		return GetProperty(act, receiver, name)
	default:
		panic(fmt.Sprintf("ClassObject.GetSuper: unknown property %T", p))
	}
}

// SetSuper writes the superclass implementation of name on receiver.
func (c *ClassObject) SetSuper(act *Activation, name *Multiname, receiver Object, v Value) error {
	p, ok := c.instanceVTable.GetTrait(name)
	if !ok {
		return errSuperMethodNotFound(name.ErrorName(), c.desc.Name.ErrorName())
	}
	switch p := p.(type) {
	case MethodProperty:
		return errAssignToMethod(name.ErrorName(), c.desc.Name.ErrorName())
	case VirtualProperty:
		if !p.HasSet {
			return errReadOnly(name.ErrorName(), c.desc.Name.ErrorName())
		}
		full, _ := c.instanceVTable.GetFullMethod(p.Set)
		exec := NewExecutable(full.Method, full.Scope, receiver, full.Class)
		_, err := exec.Exec(act, ObjectValue(receiver), []Value{v}, nil)
		return err
	case SlotProperty, ConstSlotProperty:
		return SetProperty(act, receiver, name, v)
	default:
		panic(fmt.Sprintf("ClassObject.SetSuper: unknown property %T", p))
	}
}

// ---------------------------------------------------------------------------
// Calling a class
// ---------------------------------------------------------------------------

// Call implements `ClassName(x)`. A class with a call handler delegates to
// it; otherwise the single argument is coerced to the class.
func (c *ClassObject) Call(act *Activation, receiver Value, args []Value) (Value, error) {
	if c.callHandler != nil {
		exec := NewExecutable(c.callHandler, c.classScope, nil, c)
		return exec.Exec(act, receiver, args, c)
	}
	if len(args) != 1 {
		return Undefined, errCoercionArity(len(args))
	}
	return c.CoerceValue(act, args[0])
}

// CoerceValue converts v to an instance of c.
//
// Null and undefined become null, except for the primitive classes, which
// convert every value to their primitive kind. Objects must already be
// instances of c.
func (c *ClassObject) CoerceValue(act *Activation, v Value) (Value, error) {
	if kind, ok := act.vm.primitiveKindOf(c); ok {
		return coercePrimitive(v, kind), nil
	}
	if v.IsNullish() {
		return Null, nil
	}
	if c == act.vm.objectClass {
		return v, nil
	}
	obj, err := CoerceToObject(act, v)
	if err != nil {
		return Undefined, err
	}
	if c.IsOfType(obj) {
		return v, nil
	}
	return Undefined, errCoercion(v.String(), c.desc.Name.ErrorName())
}

func coercePrimitive(v Value, kind ValueKind) Value {
	switch kind {
	case KindBool:
		return Bool(truthy(v))
	case KindInt:
		return Int(toInt32(v))
	case KindUint:
		return Uint(toUint32(v))
	case KindNumber:
		n, _ := toNumber(v)
		return Number(n)
	case KindString:
		return String(v.String())
	}
	return v
}

// ---------------------------------------------------------------------------
// Generic application
// ---------------------------------------------------------------------------

// Apply specializes a generic class to one type parameter. Null is a valid
// parameter. Repeated applications of the same parameter return the same
// class object.
func (c *ClassObject) Apply(act *Activation, params []Value) (*ClassObject, error) {
	if !c.desc.IsGeneric() {
		return nil, errNotParameterized()
	}
	if len(params) != 1 {
		return nil, errTypeParamCount(c.desc.Name.ErrorName(), len(params))
	}
	if c.state != ClassFinished {
		return nil, errNotLoaded()
	}

	var param *ClassObject
	if !params[0].IsNull() {
		obj, ok := params[0].AsObject()
		cls, isClass := obj.(*ClassObject)
		if !ok || !isClass {
			return nil, errCoercion(params[0].String(), "Class")
		}
		param = cls
	}

	c.appMu.Lock()
	if applied, ok := c.applications[param]; ok {
		c.appMu.Unlock()
		return applied, nil
	}
	c.appMu.Unlock()

	applied, err := FromClass(act, c.desc.WithTypeParam(param), c.classScope, c.superclass)
	if err != nil {
		return nil, err
	}

	c.appMu.Lock()
	defer c.appMu.Unlock()
	if existing, ok := c.applications[param]; ok {
		return existing, nil
	}
	c.applications[param] = applied
	log.Debugf("class %s: applied %s", c.desc.Name.QualifiedName(), applied.desc.Name.QualifiedName())
	return applied, nil
}

// AddApplication pre-seeds the specialization returned by Apply for param.
// param may be nil for the null application.
func (c *ClassObject) AddApplication(param, applied *ClassObject) {
	c.appMu.Lock()
	defer c.appMu.Unlock()
	c.applications[param] = applied
}

// Applications returns the number of cached specializations.
func (c *ClassObject) Applications() int {
	c.appMu.Lock()
	defer c.appMu.Unlock()
	return len(c.applications)
}

// ---------------------------------------------------------------------------
// Type queries
// ---------------------------------------------------------------------------

// HasClassInChain reports whether test is c, a superclass of c, or an
// interface c implements.
func (c *ClassObject) HasClassInChain(test *ClassDescriptor) bool {
	for k := c; k != nil; k = k.superclass {
		if k.desc == test {
			return true
		}
	}
	for _, iface := range c.interfaces {
		if iface == test {
			return true
		}
	}
	return false
}

// IsOfType reports whether o is an instance of c.
func (c *ClassObject) IsOfType(o Object) bool {
	cls := o.Base().instanceOf
	return cls != nil && cls.HasClassInChain(c.desc)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (c *ClassObject) Base() *ScriptObjectData { return &c.base }

func (c *ClassObject) Descriptor() *ClassDescriptor   { return c.desc }
func (c *ClassObject) Name() QName                    { return c.desc.Name }
func (c *ClassObject) State() ClassState              { return c.state }
func (c *ClassObject) IsFinished() bool               { return c.state == ClassFinished }
func (c *ClassObject) SuperclassObject() *ClassObject { return c.superclass }
func (c *ClassObject) Prototype() Object              { return c.prototype }
func (c *ClassObject) InstanceVTable() *VTable        { return c.instanceVTable }
func (c *ClassObject) ClassVTable() *VTable           { return c.classVTable }
func (c *ClassObject) ClassScope() *ScopeChain        { return c.classScope }
func (c *ClassObject) InstanceScope() *ScopeChain     { return c.instanceScope }
func (c *ClassObject) Allocator() AllocatorFunc       { return c.allocator }
func (c *ClassObject) Interfaces() []*ClassDescriptor { return c.interfaces }

func (c *ClassObject) String() string {
	return "[class " + c.desc.Name.name + "]"
}
