package vm

import (
	"fmt"
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// Domain: class registry
// ---------------------------------------------------------------------------

// Domain maps class names to descriptors and, once linked, to class objects.
//
// Lookups consult the parent domain first, so a child domain cannot shadow
// a class its parent already defines.
type Domain struct {
	mu          sync.RWMutex
	parent      *Domain
	descriptors map[QName]*ClassDescriptor
	classes     map[QName]*ClassObject
}

// NewDomain creates a domain. parent may be nil for the global domain.
func NewDomain(parent *Domain) *Domain {
	return &Domain{
		parent:      parent,
		descriptors: make(map[QName]*ClassDescriptor),
		classes:     make(map[QName]*ClassObject),
	}
}

// Parent returns the parent domain, or nil.
func (d *Domain) Parent() *Domain { return d.parent }

// ExportDescriptor registers desc so that other classes can resolve it
// before its class object exists. Returns the descriptor previously
// registered under the same name, or nil.
func (d *Domain) ExportDescriptor(desc *ClassDescriptor) *ClassDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.descriptors[desc.Name]
	d.descriptors[desc.Name] = desc
	return old
}

// ExportClass registers a class object and its descriptor.
func (d *Domain) ExportClass(cls *ClassObject) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name := cls.desc.Name
	d.descriptors[name] = cls.desc
	d.classes[name] = cls
}

// LookupDescriptor finds a descriptor by exact name.
func (d *Domain) LookupDescriptor(name QName) (*ClassDescriptor, bool) {
	if d.parent != nil {
		if desc, ok := d.parent.LookupDescriptor(name); ok {
			return desc, true
		}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	desc, ok := d.descriptors[name]
	return desc, ok
}

// LookupClass finds a linked class by exact name.
func (d *Domain) LookupClass(name QName) (*ClassObject, bool) {
	if d.parent != nil {
		if cls, ok := d.parent.LookupClass(name); ok {
			return cls, true
		}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	cls, ok := d.classes[name]
	return cls, ok
}

// ResolveDescriptor resolves a multiname to a descriptor.
func (d *Domain) ResolveDescriptor(mn *Multiname) (*ClassDescriptor, bool) {
	name, ok := mn.LocalName()
	if !ok {
		return nil, false
	}
	for _, ns := range mn.Namespaces() {
		if ns.IsAny() {
			if desc, ok := d.findByLocalName(name); ok {
				return desc, true
			}
			continue
		}
		if desc, ok := d.LookupDescriptor(NewQName(ns, name)); ok {
			return desc, true
		}
	}
	return nil, false
}

func (d *Domain) findByLocalName(name string) (*ClassDescriptor, bool) {
	if d.parent != nil {
		if desc, ok := d.parent.findByLocalName(name); ok {
			return desc, true
		}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for q, desc := range d.descriptors {
		if q.name == name {
			return desc, true
		}
	}
	return nil, false
}

// GetDescriptor is LookupDescriptor returning an error when absent.
func (d *Domain) GetDescriptor(name QName) (*ClassDescriptor, error) {
	desc, ok := d.LookupDescriptor(name)
	if !ok {
		return nil, fmt.Errorf("could not resolve class %s", name.QualifiedName())
	}
	return desc, nil
}

// GetClass is LookupClass returning an error when absent.
func (d *Domain) GetClass(name QName) (*ClassObject, error) {
	cls, ok := d.LookupClass(name)
	if !ok {
		return nil, fmt.Errorf("could not resolve class %s", name.QualifiedName())
	}
	return cls, nil
}

// Classes returns the linked classes of this domain (not its parents),
// ordered by qualified name.
func (d *Domain) Classes() []*ClassObject {
	d.mu.RLock()
	result := make([]*ClassObject, 0, len(d.classes))
	for _, c := range d.classes {
		result = append(result, c)
	}
	d.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].desc.Name.QualifiedName() < result[j].desc.Name.QualifiedName()
	})
	return result
}

// Len returns the number of descriptors registered directly in d.
func (d *Domain) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.descriptors)
}
