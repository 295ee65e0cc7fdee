package vm

// ---------------------------------------------------------------------------
// Object: every script-visible object
// ---------------------------------------------------------------------------

// Object is implemented by every heap value. All objects embed a
// ScriptObjectData and expose it through Base.
//
// Objects reference each other with plain pointers; classes, prototypes,
// instances and captured scopes routinely form cycles, which the Go
// collector traces.
type Object interface {
	Base() *ScriptObjectData
}

// Callable objects can be invoked with a receiver and arguments.
type Callable interface {
	Object
	Call(act *Activation, receiver Value, args []Value) (Value, error)
}

// ScriptObjectData is the storage every object carries: dynamic properties,
// the fixed slot vector, the bound-method cache and the links to prototype
// and owning class.
type ScriptObjectData struct {
	values        map[string]Value
	enumerants    []string
	nonEnumerable map[string]bool

	slots        []Value
	boundMethods []*FunctionObject

	proto      Object
	instanceOf *ClassObject
	vtable     *VTable
}

// newScriptObjectData returns storage bound to cls with cls's prototype.
// Slots are installed separately by InstallInstanceSlots.
func newScriptObjectData(cls *ClassObject) ScriptObjectData {
	d := ScriptObjectData{instanceOf: cls}
	if cls != nil {
		d.vtable = cls.InstanceVTable()
		d.proto = cls.Prototype()
	}
	return d
}

// newBareObjectData returns classless storage chained to proto.
func newBareObjectData(proto Object) ScriptObjectData {
	return ScriptObjectData{proto: proto}
}

// ---------------------------------------------------------------------------
// Class and prototype links
// ---------------------------------------------------------------------------

// Proto returns the prototype link, or nil.
func (d *ScriptObjectData) Proto() Object { return d.proto }

// SetProto replaces the prototype link.
func (d *ScriptObjectData) SetProto(proto Object) { d.proto = proto }

// InstanceOf returns the owning class, or nil for classless objects.
func (d *ScriptObjectData) InstanceOf() *ClassObject { return d.instanceOf }

// VTable returns the property table of the owning class, or nil.
func (d *ScriptObjectData) VTable() *VTable { return d.vtable }

// SetInstanceOf binds the object to cls using vt for trait resolution.
func (d *ScriptObjectData) SetInstanceOf(cls *ClassObject, vt *VTable) {
	d.instanceOf = cls
	d.vtable = vt
}

// IsSealed reports whether dynamic properties are rejected.
func (d *ScriptObjectData) IsSealed() bool {
	return d.instanceOf != nil && d.instanceOf.desc.IsSealed()
}

// className names the object in error messages.
func (d *ScriptObjectData) className() string {
	if d.instanceOf == nil {
		return "Object"
	}
	return d.instanceOf.desc.Name.ErrorName()
}

// ---------------------------------------------------------------------------
// Dynamic properties
// ---------------------------------------------------------------------------

// GetPropertyLocal reads a dynamic property, walking the prototype chain.
//
// Unset properties read as undefined on dynamic objects. Sealed objects and
// names outside the public namespace raise ReferenceError 1069.
func (d *ScriptObjectData) GetPropertyLocal(mn *Multiname) (Value, error) {
	name, ok := mn.LocalName()
	if !ok || !mn.ContainsPublicNamespace() {
		return Undefined, errInvalidRead(mn.ErrorName(), d.className())
	}
	if v, ok := d.values[name]; ok {
		return v, nil
	}
	for p := d.proto; p != nil; p = p.Base().proto {
		if v, ok := p.Base().values[name]; ok {
			return v, nil
		}
	}
	if d.IsSealed() {
		return Undefined, errInvalidRead(mn.ErrorName(), d.className())
	}
	return Undefined, nil
}

// SetPropertyLocal writes a dynamic property. New names are appended to the
// enumeration order.
func (d *ScriptObjectData) SetPropertyLocal(mn *Multiname, v Value) error {
	name, ok := mn.LocalName()
	if !ok || !mn.ContainsPublicNamespace() || d.IsSealed() {
		return errInvalidWrite(mn.ErrorName(), d.className())
	}
	d.setDynamic(name, v)
	return nil
}

// InitPropertyLocal is SetPropertyLocal for initialization writes.
func (d *ScriptObjectData) InitPropertyLocal(mn *Multiname, v Value) error {
	return d.SetPropertyLocal(mn, v)
}

func (d *ScriptObjectData) setDynamic(name string, v Value) {
	if d.values == nil {
		d.values = make(map[string]Value)
	}
	if _, exists := d.values[name]; !exists && !d.nonEnumerable[name] {
		d.enumerants = append(d.enumerants, name)
	}
	d.values[name] = v
}

// DeletePropertyLocal removes a dynamic property. It returns false for names
// that cannot be dynamic properties.
func (d *ScriptObjectData) DeletePropertyLocal(mn *Multiname) bool {
	name, ok := mn.LocalName()
	if !ok || !mn.ContainsPublicNamespace() || d.IsSealed() {
		return false
	}
	delete(d.values, name)
	delete(d.nonEnumerable, name)
	d.removeEnumerant(name)
	return true
}

func (d *ScriptObjectData) removeEnumerant(name string) {
	for i, n := range d.enumerants {
		if n == name {
			d.enumerants = append(d.enumerants[:i], d.enumerants[i+1:]...)
			return
		}
	}
}

// HasOwnDynamic reports whether the object itself holds a dynamic property.
func (d *ScriptObjectData) HasOwnDynamic(mn *Multiname) bool {
	name, ok := mn.LocalName()
	if !ok || !mn.ContainsPublicNamespace() {
		return false
	}
	_, has := d.values[name]
	return has
}

// HasPropertyViaPrototype reports whether a prototype holds the name.
func (d *ScriptObjectData) HasPropertyViaPrototype(mn *Multiname) bool {
	for p := d.proto; p != nil; p = p.Base().proto {
		if p.Base().HasOwnDynamic(mn) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Slots
// ---------------------------------------------------------------------------

// InstallInstanceSlots sizes and defaults the slot vector from vt.
func (d *ScriptObjectData) InstallInstanceSlots(vt *VTable) {
	d.slots = vt.DefaultSlots()
}

// SlotCount returns the length of the slot vector.
func (d *ScriptObjectData) SlotCount() int { return len(d.slots) }

// GetSlot reads a slot. An out-of-range id is a layout defect and panics.
func (d *ScriptObjectData) GetSlot(id uint32) Value {
	if int(id) >= len(d.slots) {
		panic("ScriptObjectData.GetSlot: index out of range")
	}
	return d.slots[id]
}

// SetSlot writes a slot. An out-of-range id is a layout defect and panics.
func (d *ScriptObjectData) SetSlot(id uint32, v Value) {
	if int(id) >= len(d.slots) {
		panic("ScriptObjectData.SetSlot: index out of range")
	}
	d.slots[id] = v
}

// InitSlot writes a slot during initialization, const slots included.
func (d *ScriptObjectData) InitSlot(id uint32, v Value) {
	if int(id) >= len(d.slots) {
		panic("ScriptObjectData.InitSlot: index out of range")
	}
	d.slots[id] = v
}

// ---------------------------------------------------------------------------
// Bound methods
// ---------------------------------------------------------------------------

// GetBoundMethod returns the cached bound method for a dispatch id.
func (d *ScriptObjectData) GetBoundMethod(id uint32) (*FunctionObject, bool) {
	if int(id) >= len(d.boundMethods) || d.boundMethods[id] == nil {
		return nil, false
	}
	return d.boundMethods[id], true
}

// InstallBoundMethod caches fn for a dispatch id, replacing any entry.
func (d *ScriptObjectData) InstallBoundMethod(id uint32, fn *FunctionObject) {
	if int(id) >= len(d.boundMethods) {
		grown := make([]*FunctionObject, id+1)
		copy(grown, d.boundMethods)
		d.boundMethods = grown
	}
	d.boundMethods[id] = fn
}

// ---------------------------------------------------------------------------
// Enumeration
// ---------------------------------------------------------------------------

// GetNextEnumerant returns the index after last, or 0 when enumeration is
// done. Indices are 1-based; 0 starts the enumeration.
func (d *ScriptObjectData) GetNextEnumerant(last uint32) uint32 {
	if int(last) < len(d.enumerants) {
		return last + 1
	}
	return 0
}

// GetEnumerantName returns the name at a 1-based index.
func (d *ScriptObjectData) GetEnumerantName(index uint32) (Value, bool) {
	if index == 0 || int(index) > len(d.enumerants) {
		return Undefined, false
	}
	return String(d.enumerants[index-1]), true
}

// GetEnumerantValue returns the value at a 1-based index.
func (d *ScriptObjectData) GetEnumerantValue(index uint32) (Value, bool) {
	if index == 0 || int(index) > len(d.enumerants) {
		return Undefined, false
	}
	return d.values[d.enumerants[index-1]], true
}

// PropertyIsEnumerable reports whether a dynamic property is visible to
// enumeration.
func (d *ScriptObjectData) PropertyIsEnumerable(name string) bool {
	for _, n := range d.enumerants {
		if n == name {
			return true
		}
	}
	return false
}

// SetLocalPropertyIsEnumerable hides or reveals a dynamic property.
// Revealing appends the name to the end of the enumeration order.
func (d *ScriptObjectData) SetLocalPropertyIsEnumerable(name string, enumerable bool) {
	if enumerable {
		delete(d.nonEnumerable, name)
		if _, has := d.values[name]; has && !d.PropertyIsEnumerable(name) {
			d.enumerants = append(d.enumerants, name)
		}
		return
	}
	if d.nonEnumerable == nil {
		d.nonEnumerable = make(map[string]bool)
	}
	d.nonEnumerable[name] = true
	d.removeEnumerant(name)
}

// Enumerants returns the enumerable dynamic property names in order.
func (d *ScriptObjectData) Enumerants() []string {
	out := make([]string, len(d.enumerants))
	copy(out, d.enumerants)
	return out
}

// ---------------------------------------------------------------------------
// ScriptObject
// ---------------------------------------------------------------------------

// ScriptObject is a plain object with no native state.
type ScriptObject struct {
	base ScriptObjectData
}

func (o *ScriptObject) Base() *ScriptObjectData { return &o.base }

// NewScriptObject returns a classless object chained to proto.
func NewScriptObject(proto Object) *ScriptObject {
	return &ScriptObject{base: newBareObjectData(proto)}
}

// ScriptObjectAllocator is the default instance allocator.
func ScriptObjectAllocator(cls *ClassObject, act *Activation) (Object, error) {
	return &ScriptObject{base: newScriptObjectData(cls)}, nil
}

// NewCustomObject creates storage for native object types that embed
// ScriptObjectData. Custom allocators call it with their class.
func NewCustomObject(cls *ClassObject) ScriptObjectData {
	return newScriptObjectData(cls)
}

func objectString(o Object) string {
	switch o := o.(type) {
	case *ClassObject:
		return "[class " + o.desc.Name.name + "]"
	case *FunctionObject:
		return "function Function() {}"
	case *PrimitiveObject:
		return o.value.String()
	}
	if cls := o.Base().instanceOf; cls != nil {
		return "[object " + cls.desc.Name.name + "]"
	}
	return "[object Object]"
}
