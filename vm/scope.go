package vm

// Scope is one entry of a lexical scope chain.
type Scope struct {
	values Object
	with   bool
}

// NewScope creates a scope backed by o.
func NewScope(o Object) Scope {
	return Scope{values: o}
}

// NewWithScope creates a scope introduced by a `with` statement.
func NewWithScope(o Object) Scope {
	return Scope{values: o, with: true}
}

// Values returns the object the scope resolves names against.
func (s Scope) Values() Object { return s.values }

// IsWith reports whether the scope came from a `with` statement.
func (s Scope) IsWith() bool { return s.with }

// ScopeChain is an immutable captured lexical environment. Chaining creates
// a new chain; the receiver is never modified, so a chain can be shared by
// every executable that captured it.
type ScopeChain struct {
	scopes []Scope
	domain *Domain
}

// NewScopeChain returns an empty chain resolving classes in domain.
func NewScopeChain(domain *Domain) *ScopeChain {
	return &ScopeChain{domain: domain}
}

// Chain returns a new chain with scopes appended.
func (sc *ScopeChain) Chain(scopes ...Scope) *ScopeChain {
	next := make([]Scope, 0, len(sc.scopes)+len(scopes))
	next = append(next, sc.scopes...)
	next = append(next, scopes...)
	return &ScopeChain{scopes: next, domain: sc.domain}
}

// Get returns the scope at index i, 0 being the outermost (global) scope.
func (sc *ScopeChain) Get(i int) (Scope, bool) {
	if sc == nil || i < 0 || i >= len(sc.scopes) {
		return Scope{}, false
	}
	return sc.scopes[i], true
}

// Len returns the number of scopes in the chain.
func (sc *ScopeChain) Len() int {
	if sc == nil {
		return 0
	}
	return len(sc.scopes)
}

// Domain returns the class domain of the chain.
func (sc *ScopeChain) Domain() *Domain {
	if sc == nil {
		return nil
	}
	return sc.domain
}

// GlobalObject returns the object at the base of the chain, or nil.
func (sc *ScopeChain) GlobalObject() Object {
	s, ok := sc.Get(0)
	if !ok {
		return nil
	}
	return s.values
}
