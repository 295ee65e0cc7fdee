package vm

import "sync/atomic"

// NamespaceKind distinguishes the AVM2 namespace flavours.
type NamespaceKind uint8

const (
	NamespacePackage NamespaceKind = iota
	NamespacePackageInternal
	NamespaceProtected
	NamespaceStaticProtected
	NamespaceExplicit
	NamespacePrivate
	NamespaceAny
)

// Namespace partitions identically-spelled names.
//
// Namespaces are comparable values. Private namespaces carry a unique id so
// that two private namespaces sharing a URI are still distinct.
type Namespace struct {
	kind NamespaceKind
	uri  string
	id   uint32
}

var nextPrivateNamespaceID atomic.Uint32

// PublicNamespace returns the public (empty package) namespace.
func PublicNamespace() Namespace {
	return Namespace{kind: NamespacePackage}
}

// AnyNamespace returns the wildcard namespace `*`.
func AnyNamespace() Namespace {
	return Namespace{kind: NamespaceAny}
}

// PackageNamespace returns the namespace of a package.
func PackageNamespace(uri string) Namespace {
	return Namespace{kind: NamespacePackage, uri: uri}
}

// InternalNamespace returns the package-internal namespace of a package.
func InternalNamespace(uri string) Namespace {
	return Namespace{kind: NamespacePackageInternal, uri: uri}
}

// ProtectedNamespace returns a protected namespace.
func ProtectedNamespace(uri string) Namespace {
	return Namespace{kind: NamespaceProtected, uri: uri}
}

// StaticProtectedNamespace returns a static protected namespace.
func StaticProtectedNamespace(uri string) Namespace {
	return Namespace{kind: NamespaceStaticProtected, uri: uri}
}

// ExplicitNamespace returns a user-declared namespace.
func ExplicitNamespace(uri string) Namespace {
	return Namespace{kind: NamespaceExplicit, uri: uri}
}

// NewPrivateNamespace allocates a fresh private namespace.
func NewPrivateNamespace(uri string) Namespace {
	return Namespace{kind: NamespacePrivate, uri: uri, id: nextPrivateNamespaceID.Add(1)}
}

// Kind returns the namespace flavour.
func (ns Namespace) Kind() NamespaceKind { return ns.kind }

// URI returns the namespace URI.
func (ns Namespace) URI() string { return ns.uri }

// IsPublic reports whether ns is the public namespace.
func (ns Namespace) IsPublic() bool {
	return ns.kind == NamespacePackage && ns.uri == ""
}

// IsAny reports whether ns is the wildcard namespace.
func (ns Namespace) IsAny() bool { return ns.kind == NamespaceAny }

// IsPrivate reports whether ns is a private namespace.
func (ns Namespace) IsPrivate() bool { return ns.kind == NamespacePrivate }

// IsNamespace reports whether ns was declared with the `namespace` keyword.
func (ns Namespace) IsNamespace() bool { return ns.kind == NamespaceExplicit }

func (ns Namespace) String() string {
	switch ns.kind {
	case NamespaceAny:
		return "*"
	case NamespacePackage:
		return ns.uri
	case NamespacePackageInternal:
		return "internal " + ns.uri
	case NamespaceProtected:
		return "protected " + ns.uri
	case NamespaceStaticProtected:
		return "static protected " + ns.uri
	case NamespaceExplicit:
		return "namespace " + ns.uri
	case NamespacePrivate:
		return "private " + ns.uri
	}
	return ns.uri
}
