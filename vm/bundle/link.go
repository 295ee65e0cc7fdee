package bundle

import (
	"fmt"

	"github.com/chazu/avmrt/vm"
)

// Unit is the result of linking a bundle.
type Unit struct {
	TranslationUnit *vm.TranslationUnit
	Script          *vm.Script
	Classes         []*vm.ClassObject
}

// linker holds the state of one Link call.
type linker struct {
	act    *vm.Activation
	vm     *vm.VM
	unit   *vm.TranslationUnit
	domain *vm.Domain
	scope  *vm.ScopeChain

	descs    map[vm.QName]*vm.ClassDescriptor
	linked   map[vm.QName]*vm.ClassObject
	visiting map[vm.QName]bool
	order    []*vm.ClassObject
}

// Link turns b into Finished classes in domain (the VM's global domain when
// nil) and then runs the bundle's script initializer, if any.
//
// Classes may appear in any order: a superclass or interface defined in the
// same bundle is linked before the classes that depend on it. Superclasses
// from outside the bundle must already be linked in the domain. A class with
// no superclass extends Object unless it is an interface.
func Link(act *vm.Activation, b *Bundle, domain *vm.Domain) (*Unit, error) {
	v := act.VM()
	if domain == nil {
		domain = v.GlobalDomain()
	}
	tu := vm.NewTranslationUnit(b.Name, domain)

	initMethod, err := resolveScript(v, tu, b.Script)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", b.Name, err)
	}
	script := vm.NewScript(act, tu, initMethod)

	l := &linker{
		act:      act,
		vm:       v,
		unit:     tu,
		domain:   domain,
		scope:    script.Scope(),
		descs:    make(map[vm.QName]*vm.ClassDescriptor),
		linked:   make(map[vm.QName]*vm.ClassObject),
		visiting: make(map[vm.QName]bool),
	}

	// Descriptors are exported before any class links so interfaces and
	// superclasses can be resolved early.
	var names []vm.QName
	for i := range b.Classes {
		spec := &b.Classes[i]
		desc, err := l.describe(spec)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: class %s: %w", b.Name, spec.Name, err)
		}
		if _, dup := l.descs[desc.Name]; dup {
			return nil, fmt.Errorf("bundle %s: class %s declared twice", b.Name, desc.Name.QualifiedName())
		}
		if _, exists := domain.LookupClass(desc.Name); exists {
			return nil, fmt.Errorf("bundle %s: class %s already defined", b.Name, desc.Name.QualifiedName())
		}
		l.descs[desc.Name] = desc
		names = append(names, desc.Name)
	}
	for _, name := range names {
		domain.ExportDescriptor(l.descs[name])
	}

	for _, name := range names {
		if _, err := l.link(name); err != nil {
			return nil, fmt.Errorf("bundle %s: %w", b.Name, err)
		}
	}

	if err := script.RunInit(act); err != nil {
		return nil, fmt.Errorf("bundle %s: script init: %w", b.Name, err)
	}

	log.Infof("linked bundle %s as unit %s: %d classes", b.Name, tu.ID(), len(l.order))
	return &Unit{TranslationUnit: tu, Script: script, Classes: l.order}, nil
}

// link links name and, first, whatever it depends on within the bundle.
func (l *linker) link(name vm.QName) (*vm.ClassObject, error) {
	if cls, ok := l.linked[name]; ok {
		return cls, nil
	}
	desc, ok := l.descs[name]
	if !ok {
		return l.domain.GetClass(name)
	}
	if l.visiting[name] {
		return nil, fmt.Errorf("inheritance cycle through %s", name.QualifiedName())
	}
	l.visiting[name] = true
	defer delete(l.visiting, name)

	var super *vm.ClassObject
	if desc.SuperclassName != nil {
		var err error
		if super, err = l.link(*desc.SuperclassName); err != nil {
			return nil, fmt.Errorf("class %s: %w", name.QualifiedName(), err)
		}
	}
	for _, iface := range desc.Interfaces {
		if _, local := l.descs[iface]; !local {
			continue
		}
		if _, err := l.link(iface); err != nil {
			return nil, fmt.Errorf("class %s: %w", name.QualifiedName(), err)
		}
	}

	cls, err := vm.FromClass(l.act, desc, l.scope, super)
	if err != nil {
		return nil, err
	}
	l.domain.ExportClass(cls)
	l.linked[name] = cls
	l.order = append(l.order, cls)
	return cls, nil
}

// ---------------------------------------------------------------------------
// Spec to descriptor
// ---------------------------------------------------------------------------

func (l *linker) describe(spec *ClassSpec) (*vm.ClassDescriptor, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("missing class name")
	}
	name := vm.ParseQualifiedName(spec.Name)

	flags, err := parseFlags(spec.Flags)
	if err != nil {
		return nil, err
	}

	var super *vm.QName
	switch {
	case spec.Super != "":
		q := vm.ParseQualifiedName(spec.Super)
		super = &q
	case flags&vm.ClassInterface == 0:
		q := vm.PublicQName("Object")
		super = &q
	}

	desc := vm.NewClassDescriptor(name, super, flags)
	for _, iface := range spec.Implements {
		desc.Implements(vm.ParseQualifiedName(iface))
	}

	ns := &traitNamespaces{class: name}
	for i := range spec.Instance {
		t, err := l.trait(ns, &spec.Instance[i])
		if err != nil {
			return nil, err
		}
		desc.AddInstanceTrait(t)
	}
	for i := range spec.Static {
		t, err := l.trait(ns, &spec.Static[i])
		if err != nil {
			return nil, err
		}
		desc.AddClassTrait(t)
	}
	if ns.protected != nil {
		desc.ProtectedNamespace = ns.protected
	}

	if spec.Init != nil {
		m, err := l.method(spec.Init, name.LocalName())
		if err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
		desc.InstanceInit = m
	}
	if spec.ClassInit != nil {
		m, err := l.method(spec.ClassInit, name.LocalName()+"$cinit")
		if err != nil {
			return nil, fmt.Errorf("cinit: %w", err)
		}
		desc.ClassInit = m
	}
	if spec.Call != nil {
		m, err := l.method(spec.Call, name.LocalName())
		if err != nil {
			return nil, fmt.Errorf("call: %w", err)
		}
		desc.CallHandler = m
	}
	return desc, nil
}

func parseFlags(flags []string) (vm.ClassFlags, error) {
	var out vm.ClassFlags
	for _, f := range flags {
		switch f {
		case "sealed":
			out |= vm.ClassSealed
		case "final":
			out |= vm.ClassFinal
		case "interface":
			out |= vm.ClassInterface
		case "generic":
			out |= vm.ClassGeneric
		default:
			return 0, fmt.Errorf("unknown class flag %q", f)
		}
	}
	return out, nil
}

// traitNamespaces hands out the per-class private and protected namespaces.
type traitNamespaces struct {
	class     vm.QName
	private   *vm.Namespace
	protected *vm.Namespace
}

func (n *traitNamespaces) resolve(kind string) (vm.Namespace, error) {
	switch kind {
	case "", "public":
		return vm.PublicNamespace(), nil
	case "private":
		if n.private == nil {
			ns := vm.NewPrivateNamespace(n.class.QualifiedName())
			n.private = &ns
		}
		return *n.private, nil
	case "protected":
		if n.protected == nil {
			ns := vm.ProtectedNamespace(n.class.QualifiedName())
			n.protected = &ns
		}
		return *n.protected, nil
	case "internal":
		return vm.InternalNamespace(n.class.Namespace().URI()), nil
	case "interface":
		return vm.ExplicitNamespace(n.class.QualifiedName()), nil
	}
	return vm.Namespace{}, fmt.Errorf("unknown namespace %q", kind)
}

func (l *linker) trait(ns *traitNamespaces, spec *TraitSpec) (*vm.Trait, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("trait without a name")
	}
	space, err := ns.resolve(spec.Namespace)
	if err != nil {
		return nil, fmt.Errorf("trait %s: %w", spec.Name, err)
	}
	name := vm.NewQName(space, spec.Name)

	var t *vm.Trait
	switch spec.Kind {
	case "slot", "const":
		typeName := optionalName(spec.Type)
		var def *vm.Value
		if spec.Default != nil {
			v := spec.Default.Value()
			def = &v
		}
		if spec.Kind == "const" {
			t = vm.ConstTrait(name, typeName, def)
		} else {
			t = vm.SlotTrait(name, typeName, def)
		}
	case "method", "getter", "setter":
		if spec.Method == nil {
			return nil, fmt.Errorf("trait %s: %s without a method", spec.Name, spec.Kind)
		}
		m, err := l.method(spec.Method, spec.Name)
		if err != nil {
			return nil, fmt.Errorf("trait %s: %w", spec.Name, err)
		}
		switch spec.Kind {
		case "method":
			t = vm.MethodTrait(name, m)
		case "getter":
			t = vm.GetterTrait(name, m)
		default:
			t = vm.SetterTrait(name, m)
		}
	default:
		return nil, fmt.Errorf("trait %s: unknown kind %q", spec.Name, spec.Kind)
	}
	t.Final = spec.Final
	t.Override = spec.Override
	return t, nil
}

func (l *linker) method(spec *MethodSpec, defaultName string) (vm.Method, error) {
	return resolveMethod(l.vm, l.unit, spec, defaultName)
}

func resolveScript(v *vm.VM, tu *vm.TranslationUnit, spec *MethodSpec) (vm.Method, error) {
	if spec == nil {
		return vm.NewNativeMethod("", func(*vm.Activation, vm.Object, []vm.Value) (vm.Value, error) {
			return vm.Undefined, nil
		}), nil
	}
	m, err := resolveMethod(v, tu, spec, "")
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return m, nil
}

func resolveMethod(v *vm.VM, tu *vm.TranslationUnit, spec *MethodSpec, defaultName string) (vm.Method, error) {
	name := spec.Name
	if name == "" {
		name = defaultName
	}
	params := make([]vm.ParamConfig, len(spec.Params))
	for i, p := range spec.Params {
		params[i] = vm.ParamConfig{Name: p.Name, Type: optionalName(p.Type)}
		if p.Default != nil {
			d := p.Default.Value()
			params[i].Default = &d
		}
	}

	switch {
	case spec.Native != "" && spec.Body != "":
		return nil, fmt.Errorf("method %s has both a native and a body", name)
	case spec.Native != "":
		m, ok := v.LookupNative(spec.Native)
		if !ok {
			return nil, fmt.Errorf("unknown native method %q", spec.Native)
		}
		return m, nil
	case spec.Body != "":
		m := vm.NewBytecodeMethod(name, []byte(spec.Body), params...)
		m.Unit = tu
		return m.SetVariadic(spec.Variadic), nil
	}
	return nil, fmt.Errorf("method %s has neither a native nor a body", name)
}

func optionalName(s string) *vm.QName {
	if s == "" {
		return nil
	}
	q := vm.ParseQualifiedName(s)
	return &q
}

// Value converts v to a runtime value. A nil or empty spec is undefined.
func (v *ValueSpec) Value() vm.Value {
	switch {
	case v == nil:
		return vm.Undefined
	case v.Null:
		return vm.Null
	case v.Bool != nil:
		return vm.Bool(*v.Bool)
	case v.Int != nil:
		return vm.Int(*v.Int)
	case v.Uint != nil:
		return vm.Uint(*v.Uint)
	case v.Number != nil:
		return vm.Number(*v.Number)
	case v.String != nil:
		return vm.String(*v.String)
	}
	return vm.Undefined
}
