package vm

import "fmt"

// Property is a resolved vtable entry. The set of implementations is closed:
// SlotProperty, ConstSlotProperty, MethodProperty and VirtualProperty.
// Access sites switch over all four.
type Property interface {
	isProperty()
}

// SlotProperty is a read/write instance slot.
type SlotProperty struct{ ID uint32 }

// ConstSlotProperty is a slot that scripts may only initialize.
type ConstSlotProperty struct{ ID uint32 }

// MethodProperty indexes the vtable's dispatch list.
type MethodProperty struct{ DispID uint32 }

// VirtualProperty pairs independently optional getter and setter dispatch ids.
type VirtualProperty struct {
	Get, Set       uint32
	HasGet, HasSet bool
}

func (SlotProperty) isProperty()      {}
func (ConstSlotProperty) isProperty() {}
func (MethodProperty) isProperty()    {}
func (VirtualProperty) isProperty()   {}

func (p SlotProperty) String() string      { return fmt.Sprintf("slot %d", p.ID) }
func (p ConstSlotProperty) String() string { return fmt.Sprintf("const %d", p.ID) }
func (p MethodProperty) String() string    { return fmt.Sprintf("method %d", p.DispID) }

func (p VirtualProperty) String() string {
	get, set := "-", "-"
	if p.HasGet {
		get = fmt.Sprint(p.Get)
	}
	if p.HasSet {
		set = fmt.Sprint(p.Set)
	}
	return fmt.Sprintf("virtual get=%s set=%s", get, set)
}

// withGetter returns p with its getter replaced.
func (p VirtualProperty) withGetter(id uint32) VirtualProperty {
	p.Get, p.HasGet = id, true
	return p
}

// withSetter returns p with its setter replaced.
func (p VirtualProperty) withSetter(id uint32) VirtualProperty {
	p.Set, p.HasSet = id, true
	return p
}
