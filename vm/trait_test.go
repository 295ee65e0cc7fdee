package vm

import "testing"

func TestTraitDefaultValue(t *testing.T) {
	explicit := Int(9)
	tests := []struct {
		name  string
		trait *Trait
		want  Value
	}{
		{"int", SlotTrait(PublicQName("a"), typeName("int"), nil), Int(0)},
		{"uint", SlotTrait(PublicQName("a"), typeName("uint"), nil), Uint(0)},
		{"Number", SlotTrait(PublicQName("a"), typeName("Number"), nil), Number(0)},
		{"String", SlotTrait(PublicQName("a"), typeName("String"), nil), String("")},
		{"Boolean", SlotTrait(PublicQName("a"), typeName("Boolean"), nil), False},
		{"object", SlotTrait(PublicQName("a"), typeName("Point"), nil), Null},
		{"untyped", SlotTrait(PublicQName("a"), nil, nil), Null},
		{"explicit", ConstTrait(PublicQName("a"), typeName("int"), &explicit), Int(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.trait.DefaultValue()
			if got.Kind() != tt.want.Kind() || !got.StrictEquals(tt.want) {
				t.Errorf("DefaultValue() = %v (%v), want %v (%v)", got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestTraitIsSlot(t *testing.T) {
	m := NewNativeMethod("f", noopInit)
	for _, tr := range []*Trait{
		MethodTrait(PublicQName("f"), m),
		GetterTrait(PublicQName("f"), m),
		SetterTrait(PublicQName("f"), m),
	} {
		if tr.IsSlot() {
			t.Errorf("%v trait reported IsSlot", tr.Kind)
		}
	}
	if !SlotTrait(PublicQName("x"), nil, nil).IsSlot() || !ConstTrait(PublicQName("x"), nil, nil).IsSlot() {
		t.Error("slot traits should report IsSlot")
	}
}
