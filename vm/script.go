package vm

import (
	"fmt"

	"github.com/google/uuid"
)

// TranslationUnit is one loaded file of classes and scripts. Its ID is
// unique per load, so reloading the same file yields a distinct unit.
type TranslationUnit struct {
	id     uuid.UUID
	name   string
	domain *Domain
}

// NewTranslationUnit creates a unit loading into domain.
func NewTranslationUnit(name string, domain *Domain) *TranslationUnit {
	return &TranslationUnit{id: uuid.New(), name: name, domain: domain}
}

func (u *TranslationUnit) ID() uuid.UUID   { return u.id }
func (u *TranslationUnit) Name() string    { return u.name }
func (u *TranslationUnit) Domain() *Domain { return u.domain }

// Script is a unit's top-level code together with the global object it
// runs against.
type Script struct {
	unit        *TranslationUnit
	init        Method
	global      Object
	scope       *ScopeChain
	initialized bool
}

// NewScript creates a script whose global object is a fresh dynamic object
// chained to Object.prototype.
func NewScript(act *Activation, unit *TranslationUnit, init Method) *Script {
	global := NewScriptObject(act.vm.objectClass.prototype)
	domain := unit.domain
	if domain == nil {
		domain = act.vm.globalDomain
	}
	return &Script{
		unit:   unit,
		init:   init,
		global: global,
		scope:  NewScopeChain(domain).Chain(NewScope(global)),
	}
}

func (s *Script) Unit() *TranslationUnit { return s.unit }
func (s *Script) Global() Object         { return s.global }
func (s *Script) Scope() *ScopeChain     { return s.scope }

// RunInit runs the script initializer once, under a global$init frame.
func (s *Script) RunInit(act *Activation) error {
	if s.initialized {
		return nil
	}
	s.initialized = true

	if err := act.callStack.PushGlobalInit(s.unit); err != nil {
		return err
	}
	defer act.callStack.Pop()

	inner := act.nested(s.global, s.scope, nil, s.init, nil, nil)
	switch m := s.init.(type) {
	case *NativeMethod:
		_, err := m.fn(inner, s.global, nil)
		return err
	case *BytecodeMethod:
		_, err := act.vm.runBytecode(inner, m)
		return err
	default:
		return fmt.Errorf("script %s: unknown initializer %T", s.unit.name, m)
	}
}
