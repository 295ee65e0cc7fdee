package vm

import "strings"

// Multiname is a name that may match any of a set of namespaces.
//
// Multinames are what bytecode refers to before binding; lookup resolves
// them to a concrete QName. A multiname with no local name matches any name.
type Multiname struct {
	nsSet   []Namespace
	name    string
	anyName bool
}

// NewMultiname creates a multiname over the given namespace set.
func NewMultiname(name string, nss ...Namespace) *Multiname {
	return &Multiname{nsSet: nss, name: name}
}

// PublicMultiname creates a multiname in the public namespace only.
func PublicMultiname(name string) *Multiname {
	return NewMultiname(name, PublicNamespace())
}

// AnyNameMultiname creates a multiname with the wildcard local name.
func AnyNameMultiname(nss ...Namespace) *Multiname {
	return &Multiname{nsSet: nss, anyName: true}
}

// LocalName returns the local name, or false for the `*` name.
func (m *Multiname) LocalName() (string, bool) {
	if m.anyName {
		return "", false
	}
	return m.name, true
}

// Namespaces returns the candidate namespace set.
func (m *Multiname) Namespaces() []Namespace {
	return m.nsSet
}

// ContainsPublicNamespace reports whether the multiname admits the public
// namespace. Dynamic (non-trait) properties are only reachable through such
// names.
func (m *Multiname) ContainsPublicNamespace() bool {
	for _, ns := range m.nsSet {
		if ns.IsPublic() || ns.IsAny() {
			return true
		}
	}
	return false
}

// Matches reports whether q is one of the names this multiname denotes.
func (m *Multiname) Matches(q QName) bool {
	if !m.anyName && m.name != q.name {
		return false
	}
	for _, ns := range m.nsSet {
		if ns.IsAny() || ns == q.ns {
			return true
		}
	}
	return false
}

// ErrorName renders the multiname for script error messages.
func (m *Multiname) ErrorName() string {
	name := m.name
	if m.anyName {
		name = "*"
	}
	if m.ContainsPublicNamespace() || len(m.nsSet) == 0 {
		return name
	}
	return NewQName(m.nsSet[0], name).ErrorName()
}

// AsURI renders the multiname with its first namespace.
func (m *Multiname) AsURI() string {
	name := m.name
	if m.anyName {
		name = "*"
	}
	if len(m.nsSet) == 0 {
		return name
	}
	return NewQName(m.nsSet[0], name).AsURI()
}

func (m *Multiname) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, ns := range m.nsSet {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ns.String())
	}
	b.WriteString("]::")
	if m.anyName {
		b.WriteByte('*')
	} else {
		b.WriteString(m.name)
	}
	return b.String()
}
