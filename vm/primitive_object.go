package vm

// PrimitiveObject boxes a primitive value so that properties can be looked
// up on it.
type PrimitiveObject struct {
	base  ScriptObjectData
	value Value
}

func (p *PrimitiveObject) Base() *ScriptObjectData { return &p.base }

// Value returns the boxed primitive.
func (p *PrimitiveObject) Value() Value { return p.value }

// CoerceToObject returns v as an object, boxing primitives through the
// class registered for their kind. Null and undefined fail with TypeError
// 1009.
func CoerceToObject(act *Activation, v Value) (Object, error) {
	if obj, ok := v.AsObject(); ok {
		return obj, nil
	}
	if v.IsNullish() {
		return nil, errNullReference()
	}

	if cls, ok := act.vm.primitiveClass(v.Kind()); ok {
		boxed := &PrimitiveObject{base: newScriptObjectData(cls), value: v}
		boxed.base.InstallInstanceSlots(cls.InstanceVTable())
		return boxed, nil
	}
	var proto Object
	if obj := act.vm.objectClass; obj != nil {
		proto = obj.Prototype()
	}
	return &PrimitiveObject{base: newBareObjectData(proto), value: v}, nil
}
