package vm

import "strings"

// QName is a namespace plus a local name.
//
// A property cannot be read or written without first being resolved to a
// QName. Two QNames are equal only if both fields are equal.
type QName struct {
	ns   Namespace
	name string
}

// NewQName creates a QName.
func NewQName(ns Namespace, name string) QName {
	return QName{ns: ns, name: name}
}

// PublicQName creates a QName in the public namespace.
func PublicQName(name string) QName {
	return QName{ns: PublicNamespace(), name: name}
}

// ParseQualifiedName constructs a QName from a fully qualified name.
//
// Accepted forms are NAMESPACE::LOCAL_NAME, NAMESPACE.LOCAL_NAME (split on
// the last dot) and LOCAL_NAME (public namespace). Splitting always happens
// on the last separator so that package names containing dots survive.
func ParseQualifiedName(s string) QName {
	if i := strings.LastIndex(s, "::"); i >= 0 {
		return QName{ns: PackageNamespace(s[:i]), name: s[i+2:]}
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		return QName{ns: PackageNamespace(s[:i]), name: s[i+1:]}
	}
	return PublicQName(s)
}

// Namespace returns the namespace of q.
func (q QName) Namespace() Namespace { return q.ns }

// LocalName returns the local name of q.
func (q QName) LocalName() string { return q.name }

// QualifiedName renders q as ns::name, or just the local name when the
// namespace URI is empty. Used for internal diagnostics.
func (q QName) QualifiedName() string {
	if q.ns.uri == "" {
		return q.name
	}
	return q.ns.uri + "::" + q.name
}

// ErrorName renders q as ns.name, or just the local name when the namespace
// URI is empty. This matches the names printed in script error messages.
func (q QName) ErrorName() string {
	if q.ns.uri == "" {
		return q.name
	}
	return q.ns.uri + "." + q.name
}

// AsURI renders q including a `*` namespace for the wildcard.
func (q QName) AsURI() string {
	if q.ns.IsAny() {
		return "*::" + q.name
	}
	return q.QualifiedName()
}

// Multiname returns a multiname matching exactly q.
func (q QName) Multiname() *Multiname {
	return NewMultiname(q.name, q.ns)
}

func (q QName) String() string {
	return q.QualifiedName()
}
