package vm

import "fmt"

// ---------------------------------------------------------------------------
// Property protocol
// ---------------------------------------------------------------------------
//
// These functions resolve a name against the object's vtable first and fall
// back to dynamic storage. Every trait access switches over all four
// property kinds.

// GetProperty reads name from o.
func GetProperty(act *Activation, o Object, name *Multiname) (Value, error) {
	base := o.Base()
	if vt := base.vtable; vt != nil {
		if p, ok := vt.GetTrait(name); ok {
			switch p := p.(type) {
			case SlotProperty:
				return base.GetSlot(p.ID), nil
			case ConstSlotProperty:
				return base.GetSlot(p.ID), nil
			case MethodProperty:
				fn, err := boundMethod(act, o, vt, p.DispID)
				if err != nil {
					return Undefined, err
				}
				return ObjectValue(fn), nil
			case VirtualProperty:
				if !p.HasGet {
					return Undefined, errWriteOnly(name.ErrorName(), base.className())
				}
				return callMethod(act, o, vt, p.Get, nil)
			default:
				panic(fmt.Sprintf("GetProperty: unknown property %T", p))
			}
		}
	}
	return base.GetPropertyLocal(name)
}

// SetProperty writes name on o.
func SetProperty(act *Activation, o Object, name *Multiname, v Value) error {
	return setProperty(act, o, name, v, false)
}

// InitProperty writes name on o, permitting const-slot initialization.
func InitProperty(act *Activation, o Object, name *Multiname, v Value) error {
	return setProperty(act, o, name, v, true)
}

func setProperty(act *Activation, o Object, name *Multiname, v Value, init bool) error {
	base := o.Base()
	if vt := base.vtable; vt != nil {
		if p, ok := vt.GetTrait(name); ok {
			switch p := p.(type) {
			case SlotProperty:
				base.SetSlot(p.ID, v)
				return nil
			case ConstSlotProperty:
				if !init {
					return errReadOnly(name.ErrorName(), base.className())
				}
				base.InitSlot(p.ID, v)
				return nil
			case MethodProperty:
				return errAssignToMethod(name.ErrorName(), base.className())
			case VirtualProperty:
				if !p.HasSet {
					return errReadOnly(name.ErrorName(), base.className())
				}
				_, err := callMethod(act, o, vt, p.Set, []Value{v})
				return err
			default:
				panic(fmt.Sprintf("SetProperty: unknown property %T", p))
			}
		}
	}
	if init {
		return base.InitPropertyLocal(name, v)
	}
	return base.SetPropertyLocal(name, v)
}

// DeleteProperty removes a dynamic property. Trait-backed names are never
// deleted and report false.
func DeleteProperty(act *Activation, o Object, name *Multiname) bool {
	base := o.Base()
	if vt := base.vtable; vt != nil && vt.HasTrait(name) {
		return false
	}
	return base.DeletePropertyLocal(name)
}

// CallProperty calls name on o with o as the receiver.
func CallProperty(act *Activation, o Object, name *Multiname, args []Value) (Value, error) {
	base := o.Base()
	if vt := base.vtable; vt != nil {
		if p, ok := vt.GetTrait(name); ok {
			switch p := p.(type) {
			case SlotProperty:
				return callValue(act, base.GetSlot(p.ID), ObjectValue(o), args, name)
			case ConstSlotProperty:
				return callValue(act, base.GetSlot(p.ID), ObjectValue(o), args, name)
			case MethodProperty:
				return callMethod(act, o, vt, p.DispID, args)
			case VirtualProperty:
				if !p.HasGet {
					return Undefined, errWriteOnly(name.ErrorName(), base.className())
				}
				fn, err := callMethod(act, o, vt, p.Get, nil)
				if err != nil {
					return Undefined, err
				}
				return callValue(act, fn, ObjectValue(o), args, name)
			default:
				panic(fmt.Sprintf("CallProperty: unknown property %T", p))
			}
		}
	}
	fn, err := base.GetPropertyLocal(name)
	if err != nil {
		return Undefined, err
	}
	return callValue(act, fn, ObjectValue(o), args, name)
}

// HasProperty reports whether name resolves on o as a trait, an own dynamic
// property or a prototype property.
func HasProperty(o Object, name *Multiname) bool {
	base := o.Base()
	if vt := base.vtable; vt != nil && vt.HasTrait(name) {
		return true
	}
	return base.HasOwnDynamic(name) || base.HasPropertyViaPrototype(name)
}

// HasOwnProperty reports whether name resolves on o without consulting
// the prototype chain.
func HasOwnProperty(o Object, name *Multiname) bool {
	base := o.Base()
	if vt := base.vtable; vt != nil && vt.HasTrait(name) {
		return true
	}
	return base.HasOwnDynamic(name)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// callMethod invokes dispatch entry id with o as the bound receiver.
func callMethod(act *Activation, o Object, vt *VTable, id uint32, args []Value) (Value, error) {
	full, ok := vt.GetFullMethod(id)
	if !ok {
		return Undefined, fmt.Errorf("dispatch id %d out of range", id)
	}
	exec := NewExecutable(full.Method, full.Scope, o, full.Class)
	return exec.Exec(act, ObjectValue(o), args, nil)
}

// boundMethod returns the cached method closure for id, creating it on
// first access.
func boundMethod(act *Activation, o Object, vt *VTable, id uint32) (*FunctionObject, error) {
	base := o.Base()
	if fn, ok := base.GetBoundMethod(id); ok {
		return fn, nil
	}
	full, ok := vt.GetFullMethod(id)
	if !ok {
		return nil, fmt.Errorf("dispatch id %d out of range", id)
	}
	fn := NewFunctionObject(act, full.Method, full.Scope, o, full.Class)
	base.InstallBoundMethod(id, fn)
	return fn, nil
}

// callValue calls v if it is callable.
func callValue(act *Activation, v Value, receiver Value, args []Value, name *Multiname) (Value, error) {
	if obj, ok := v.AsObject(); ok {
		if c, ok := obj.(Callable); ok {
			return c.Call(act, receiver, args)
		}
	}
	return Undefined, errNotAFunction(name.ErrorName())
}

// CallValue calls v with receiver, failing with TypeError 1006 when v is
// not callable.
func CallValue(act *Activation, v Value, receiver Value, args []Value) (Value, error) {
	if obj, ok := v.AsObject(); ok {
		if c, ok := obj.(Callable); ok {
			return c.Call(act, receiver, args)
		}
	}
	return Undefined, errNotAFunction(v.String())
}
