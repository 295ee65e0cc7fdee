package vm

import (
	"fmt"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// ClassDescriptor: static class description
// ---------------------------------------------------------------------------

// ClassFlags modify how a class may be instantiated and extended.
type ClassFlags uint8

const (
	// ClassSealed instances reject dynamic property writes.
	ClassSealed ClassFlags = 1 << iota
	// ClassFinal classes cannot be extended.
	ClassFinal
	// ClassInterface classes cannot be extended or constructed.
	ClassInterface
	// ClassGeneric classes accept a type parameter via Apply.
	ClassGeneric
)

// AllocatorFunc creates a bare instance of cls. The returned object must be
// bound to cls; slot defaults and initializers are handled by the caller.
type AllocatorFunc func(cls *ClassObject, act *Activation) (Object, error)

// ClassDescriptor is produced once per class by the loader and never changes
// after it is handed to FromClass, except for the class-initialized flag.
type ClassDescriptor struct {
	Name           QName
	SuperclassName *QName
	Flags          ClassFlags

	InstanceTraits []*Trait
	ClassTraits    []*Trait

	// InstanceInit is the declared constructor. NativeInit, when set, runs
	// in its place for natively-backed classes.
	InstanceInit Method
	NativeInit   Method
	ClassInit    Method

	Allocator   AllocatorFunc
	CallHandler Method
	Interfaces  []QName

	ProtectedNamespace *Namespace

	param       *ClassObject
	applied     bool
	initialized atomic.Bool
}

// NewClassDescriptor creates a descriptor with empty initializers.
func NewClassDescriptor(name QName, super *QName, flags ClassFlags) *ClassDescriptor {
	return &ClassDescriptor{
		Name:           name,
		SuperclassName: super,
		Flags:          flags,
		InstanceInit:   NewNativeMethod("", noopInit),
		ClassInit:      NewNativeMethod("", noopInit),
	}
}

func noopInit(act *Activation, this Object, args []Value) (Value, error) {
	return Undefined, nil
}

// AddInstanceTrait appends an instance trait and returns d.
func (d *ClassDescriptor) AddInstanceTrait(t *Trait) *ClassDescriptor {
	d.InstanceTraits = append(d.InstanceTraits, t)
	return d
}

// AddClassTrait appends a class-side trait and returns d.
func (d *ClassDescriptor) AddClassTrait(t *Trait) *ClassDescriptor {
	d.ClassTraits = append(d.ClassTraits, t)
	return d
}

// Implements appends interface names and returns d.
func (d *ClassDescriptor) Implements(names ...QName) *ClassDescriptor {
	d.Interfaces = append(d.Interfaces, names...)
	return d
}

func (d *ClassDescriptor) IsSealed() bool    { return d.Flags&ClassSealed != 0 }
func (d *ClassDescriptor) IsFinal() bool     { return d.Flags&ClassFinal != 0 }
func (d *ClassDescriptor) IsInterface() bool { return d.Flags&ClassInterface != 0 }
func (d *ClassDescriptor) IsGeneric() bool   { return d.Flags&ClassGeneric != 0 }

// IsClassInitialized reports whether the class initializer has been started.
func (d *ClassDescriptor) IsClassInitialized() bool {
	return d.initialized.Load()
}

// markClassInitialized sets the sticky initializer guard. It returns true
// only for the caller that flipped it.
func (d *ClassDescriptor) markClassInitialized() bool {
	return d.initialized.CompareAndSwap(false, true)
}

// TypeParam returns the applied type parameter. ok is false for classes
// that are not generic applications; cls is nil for applications to null.
func (d *ClassDescriptor) TypeParam() (cls *ClassObject, ok bool) {
	return d.param, d.applied
}

// WithTypeParam returns the descriptor of the specialization of d to param.
// param may be nil, which applies the type to null.
func (d *ClassDescriptor) WithTypeParam(param *ClassObject) *ClassDescriptor {
	paramName := "*"
	if param != nil {
		paramName = param.Descriptor().Name.ErrorName()
	}
	return &ClassDescriptor{
		Name:               NewQName(d.Name.ns, fmt.Sprintf("%s.<%s>", d.Name.name, paramName)),
		SuperclassName:     d.SuperclassName,
		Flags:              d.Flags &^ ClassGeneric,
		InstanceTraits:     d.InstanceTraits,
		ClassTraits:        d.ClassTraits,
		InstanceInit:       d.InstanceInit,
		NativeInit:         d.NativeInit,
		ClassInit:          d.ClassInit,
		Allocator:          d.Allocator,
		CallHandler:        d.CallHandler,
		Interfaces:         d.Interfaces,
		ProtectedNamespace: d.ProtectedNamespace,
		param:              param,
		applied:            true,
	}
}

func (d *ClassDescriptor) String() string {
	return d.Name.QualifiedName()
}
