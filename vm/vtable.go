package vm

import "sync"

// ClassBoundMethod is a dispatch-table entry: a method together with the
// class that declared it and the scope it closes over.
type ClassBoundMethod struct {
	Class  *ClassObject
	Scope  *ScopeChain
	Method Method
}

// VTable resolves names to properties for every instance of a class.
//
// A vtable is built once by Init, copying the superclass's table and
// layering the class's own traits over it. Slot ids are append-only across
// the inheritance chain: a subclass never renumbers an inherited slot.
// After linking the table is read-mostly; interface aliases may still be
// installed later, so access goes through an RWMutex.
type VTable struct {
	mu sync.RWMutex

	definedBy    *ClassObject
	resolved     map[QName]Property
	order        []QName
	methods      []ClassBoundMethod
	defaultSlots []Value
}

// NewVTable returns an empty vtable.
func NewVTable() *VTable {
	return &VTable{resolved: make(map[QName]Property)}
}

// Init fills vt from super (nil for root classes) and traits declared
// directly on definedBy, in declaration order.
func (vt *VTable) Init(definedBy *ClassObject, traits []*Trait, scope *ScopeChain, super *VTable) {
	vt.mu.Lock()
	defer vt.mu.Unlock()

	vt.definedBy = definedBy
	vt.resolved = make(map[QName]Property)
	vt.order = vt.order[:0]
	vt.methods = nil
	vt.defaultSlots = nil

	if super != nil {
		super.mu.RLock()
		for _, name := range super.order {
			vt.resolved[name] = super.resolved[name]
		}
		vt.order = append(vt.order, super.order...)
		vt.methods = append(vt.methods, super.methods...)
		vt.defaultSlots = append(vt.defaultSlots, super.defaultSlots...)
		super.mu.RUnlock()
	}

	bind := func(m Method) ClassBoundMethod {
		return ClassBoundMethod{Class: definedBy, Scope: scope, Method: m}
	}

	for _, t := range traits {
		existing, inherited := vt.resolved[t.Name]

		switch t.Kind {
		case TraitSlot, TraitConst:
			id := uint32(len(vt.defaultSlots))
			vt.defaultSlots = append(vt.defaultSlots, t.DefaultValue())
			if t.Kind == TraitConst {
				vt.put(t.Name, ConstSlotProperty{ID: id})
			} else {
				vt.put(t.Name, SlotProperty{ID: id})
			}

		case TraitMethod:
			// An override keeps the dispatch id of the method it replaces.
			if mp, ok := existing.(MethodProperty); inherited && ok {
				vt.methods[mp.DispID] = bind(t.Method)
				continue
			}
			vt.put(t.Name, MethodProperty{DispID: vt.addMethod(bind(t.Method))})

		case TraitGetter, TraitSetter:
			virt, ok := existing.(VirtualProperty)
			if !inherited || !ok {
				virt = VirtualProperty{}
			}
			if t.Kind == TraitGetter {
				if virt.HasGet {
					vt.methods[virt.Get] = bind(t.Method)
				} else {
					virt = virt.withGetter(vt.addMethod(bind(t.Method)))
				}
			} else {
				if virt.HasSet {
					vt.methods[virt.Set] = bind(t.Method)
				} else {
					virt = virt.withSetter(vt.addMethod(bind(t.Method)))
				}
			}
			vt.put(t.Name, virt)
		}
	}
}

// put inserts or replaces an entry. Caller holds the write lock.
func (vt *VTable) put(name QName, p Property) {
	if _, ok := vt.resolved[name]; !ok {
		vt.order = append(vt.order, name)
	}
	vt.resolved[name] = p
}

func (vt *VTable) addMethod(m ClassBoundMethod) uint32 {
	vt.methods = append(vt.methods, m)
	return uint32(len(vt.methods) - 1)
}

// DefinedBy returns the class whose traits were layered last.
func (vt *VTable) DefinedBy() *ClassObject {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return vt.definedBy
}

// GetTrait resolves a multiname against the table.
func (vt *VTable) GetTrait(mn *Multiname) (Property, bool) {
	name, ok := mn.LocalName()
	if !ok {
		return nil, false
	}
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	for _, ns := range mn.Namespaces() {
		if ns.IsAny() {
			for _, q := range vt.order {
				if q.name == name {
					return vt.resolved[q], true
				}
			}
			continue
		}
		if p, ok := vt.resolved[NewQName(ns, name)]; ok {
			return p, true
		}
	}
	return nil, false
}

// GetTraitByQName resolves an exact name.
func (vt *VTable) GetTraitByQName(name QName) (Property, bool) {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	p, ok := vt.resolved[name]
	return p, ok
}

// HasTrait reports whether mn resolves to any entry.
func (vt *VTable) HasTrait(mn *Multiname) bool {
	_, ok := vt.GetTrait(mn)
	return ok
}

// GetFullMethod returns the dispatch entry for id.
func (vt *VTable) GetFullMethod(id uint32) (ClassBoundMethod, bool) {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	if int(id) >= len(vt.methods) {
		return ClassBoundMethod{}, false
	}
	return vt.methods[id], true
}

// DefaultSlots returns a fresh copy of the initial slot values.
func (vt *VTable) DefaultSlots() []Value {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	slots := make([]Value, len(vt.defaultSlots))
	copy(slots, vt.defaultSlots)
	return slots
}

// SlotCount returns the number of slots an instance needs.
func (vt *VTable) SlotCount() int {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return len(vt.defaultSlots)
}

// MethodCount returns the length of the dispatch list.
func (vt *VTable) MethodCount() int {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return len(vt.methods)
}

// Each calls fn for every entry in insertion order. Inherited names come
// first, in the superclass's order.
func (vt *VTable) Each(fn func(name QName, p Property)) {
	vt.mu.RLock()
	names := make([]QName, len(vt.order))
	copy(names, vt.order)
	props := make([]Property, len(names))
	for i, q := range names {
		props[i] = vt.resolved[q]
	}
	vt.mu.RUnlock()

	for i, q := range names {
		fn(q, props[i])
	}
}

// CopyPropertyForInterface makes the implementing property reachable under
// both the public name and the interface-namespaced name. Whichever of the
// two already resolves is copied to the other. Existing entries under the
// target name are not replaced.
func (vt *VTable) CopyPropertyForInterface(publicName, interfaceName QName) bool {
	vt.mu.Lock()
	defer vt.mu.Unlock()

	if p, ok := vt.resolved[publicName]; ok {
		if _, taken := vt.resolved[interfaceName]; !taken {
			vt.put(interfaceName, p)
			return true
		}
		return false
	}
	if p, ok := vt.resolved[interfaceName]; ok {
		vt.put(publicName, p)
		return true
	}
	return false
}
