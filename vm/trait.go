package vm

// TraitKind identifies what a declared trait contributes to a vtable.
type TraitKind uint8

const (
	TraitSlot TraitKind = iota
	TraitConst
	TraitMethod
	TraitGetter
	TraitSetter
)

func (k TraitKind) String() string {
	switch k {
	case TraitSlot:
		return "slot"
	case TraitConst:
		return "const"
	case TraitMethod:
		return "method"
	case TraitGetter:
		return "getter"
	case TraitSetter:
		return "setter"
	}
	return "unknown"
}

// Trait is a member declared directly on a class, before resolution.
type Trait struct {
	Name QName
	Kind TraitKind

	// Slot and const traits.
	TypeName *QName
	Default  *Value

	// Method, getter and setter traits.
	Method Method

	Final    bool
	Override bool
}

// SlotTrait declares a read/write slot. typeName and def may be nil.
func SlotTrait(name QName, typeName *QName, def *Value) *Trait {
	return &Trait{Name: name, Kind: TraitSlot, TypeName: typeName, Default: def}
}

// ConstTrait declares a const slot. typeName and def may be nil.
func ConstTrait(name QName, typeName *QName, def *Value) *Trait {
	return &Trait{Name: name, Kind: TraitConst, TypeName: typeName, Default: def}
}

// MethodTrait declares a method.
func MethodTrait(name QName, m Method) *Trait {
	return &Trait{Name: name, Kind: TraitMethod, Method: m}
}

// GetterTrait declares the getter half of a virtual property.
func GetterTrait(name QName, m Method) *Trait {
	return &Trait{Name: name, Kind: TraitGetter, Method: m}
}

// SetterTrait declares the setter half of a virtual property.
func SetterTrait(name QName, m Method) *Trait {
	return &Trait{Name: name, Kind: TraitSetter, Method: m}
}

// IsSlot reports whether the trait occupies a slot.
func (t *Trait) IsSlot() bool {
	return t.Kind == TraitSlot || t.Kind == TraitConst
}

// DefaultValue returns the value a fresh slot for this trait holds.
func (t *Trait) DefaultValue() Value {
	if t.Default != nil {
		return *t.Default
	}
	return defaultValueForType(t.TypeName)
}

// defaultValueForType returns the zero value of a declared slot type.
// Untyped and object-typed slots start out null.
func defaultValueForType(typeName *QName) Value {
	if typeName == nil || !typeName.ns.IsPublic() {
		return Null
	}
	switch typeName.name {
	case "int":
		return Int(0)
	case "uint":
		return Uint(0)
	case "Number":
		return Number(0)
	case "String":
		return String("")
	case "Boolean":
		return False
	}
	return Null
}
