// Package bundle reads and writes class bundles, the loader-side stream of
// class descriptors, and links them into a VM.
//
// Bundles are authored as YAML and shipped as canonical CBOR. Both encodings
// decode to the same Bundle value.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Bundle is one translation unit's worth of classes plus an optional
// script initializer.
type Bundle struct {
	Name    string      `yaml:"name" cbor:"1,keyasint"`
	Classes []ClassSpec `yaml:"classes" cbor:"2,keyasint,omitempty"`
	Script  *MethodSpec `yaml:"script,omitempty" cbor:"3,keyasint,omitempty"`
}

// ClassSpec describes one class. Names may be qualified as "pkg::Name" or
// "pkg.Name".
type ClassSpec struct {
	Name       string      `yaml:"name" cbor:"1,keyasint"`
	Super      string      `yaml:"super,omitempty" cbor:"2,keyasint,omitempty"`
	Flags      []string    `yaml:"flags,omitempty" cbor:"3,keyasint,omitempty"`
	Implements []string    `yaml:"implements,omitempty" cbor:"4,keyasint,omitempty"`
	Instance   []TraitSpec `yaml:"instance,omitempty" cbor:"5,keyasint,omitempty"`
	Static     []TraitSpec `yaml:"static,omitempty" cbor:"6,keyasint,omitempty"`
	Init       *MethodSpec `yaml:"init,omitempty" cbor:"7,keyasint,omitempty"`
	ClassInit  *MethodSpec `yaml:"cinit,omitempty" cbor:"8,keyasint,omitempty"`
	Call       *MethodSpec `yaml:"call,omitempty" cbor:"9,keyasint,omitempty"`
}

// TraitSpec describes one instance or class member.
//
// Kind is one of slot, const, method, getter or setter. Namespace is empty
// for public members, or one of private, protected, internal or interface.
// Interface members live in a namespace named after the declaring
// interface.
type TraitSpec struct {
	Name      string      `yaml:"name" cbor:"1,keyasint"`
	Kind      string      `yaml:"kind" cbor:"2,keyasint"`
	Namespace string      `yaml:"ns,omitempty" cbor:"3,keyasint,omitempty"`
	Type      string      `yaml:"type,omitempty" cbor:"4,keyasint,omitempty"`
	Default   *ValueSpec  `yaml:"default,omitempty" cbor:"5,keyasint,omitempty"`
	Method    *MethodSpec `yaml:"method,omitempty" cbor:"6,keyasint,omitempty"`
	Final     bool        `yaml:"final,omitempty" cbor:"7,keyasint,omitempty"`
	Override  bool        `yaml:"override,omitempty" cbor:"8,keyasint,omitempty"`
}

// MethodSpec names either a registered native method or an opaque bytecode
// body. Exactly one of Native and Body is set.
type MethodSpec struct {
	Name     string      `yaml:"name,omitempty" cbor:"1,keyasint,omitempty"`
	Native   string      `yaml:"native,omitempty" cbor:"2,keyasint,omitempty"`
	Body     string      `yaml:"body,omitempty" cbor:"3,keyasint,omitempty"`
	Params   []ParamSpec `yaml:"params,omitempty" cbor:"4,keyasint,omitempty"`
	Variadic bool        `yaml:"variadic,omitempty" cbor:"5,keyasint,omitempty"`
}

// ParamSpec declares one parameter. A parameter with a default is optional.
type ParamSpec struct {
	Name    string     `yaml:"name" cbor:"1,keyasint"`
	Type    string     `yaml:"type,omitempty" cbor:"2,keyasint,omitempty"`
	Default *ValueSpec `yaml:"default,omitempty" cbor:"3,keyasint,omitempty"`
}

// ValueSpec is a constant. At most one field is set; none means undefined.
type ValueSpec struct {
	Null   bool     `yaml:"is-null,omitempty" cbor:"1,keyasint,omitempty"`
	Bool   *bool    `yaml:"bool,omitempty" cbor:"2,keyasint,omitempty"`
	Int    *int32   `yaml:"int,omitempty" cbor:"3,keyasint,omitempty"`
	Uint   *uint32  `yaml:"uint,omitempty" cbor:"4,keyasint,omitempty"`
	Number *float64 `yaml:"number,omitempty" cbor:"5,keyasint,omitempty"`
	String *string  `yaml:"string,omitempty" cbor:"6,keyasint,omitempty"`
}

// ---------------------------------------------------------------------------
// Codecs
// ---------------------------------------------------------------------------

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bundle: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// DecodeYAML parses a YAML bundle.
func DecodeYAML(data []byte) (*Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle: decode yaml: %w", err)
	}
	return &b, nil
}

// EncodeYAML renders b as YAML.
func EncodeYAML(b *Bundle) ([]byte, error) {
	return yaml.Marshal(b)
}

// EncodeCBOR serializes b with canonical CBOR, so equal bundles encode to
// equal bytes.
func EncodeCBOR(b *Bundle) ([]byte, error) {
	return cborEncMode.Marshal(b)
}

// DecodeCBOR deserializes a CBOR bundle.
func DecodeCBOR(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle: unmarshal: %w", err)
	}
	return &b, nil
}

// Load reads a bundle file, picking the codec from its extension. Bundles
// without a name take the file's base name.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var b *Bundle
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		b, err = DecodeYAML(data)
	case ".cbor":
		b, err = DecodeCBOR(data)
	default:
		return nil, fmt.Errorf("%s: unknown bundle format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if b.Name == "" {
		b.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	log.Infof("loaded bundle %s from %s (%d classes)", b.Name, path, len(b.Classes))
	return b, nil
}
