package resource

import (
	"fmt"
	"io"
	"slices"

	"github.com/driftwood-io/resource-sdk/pkg/resource/errors"

	yaml "gopkg.in/yaml.v2"
)

// Type declares the attribute capabilities of one remote entity type: which
// attributes may be written, which nested attributes materialize into typed
// sub-resources, and which nested resources save together with their
// parent. Field lists are configuration; the runtime never inspects domain
// structs.
type Type struct {
	Name       string
	CreatePath string
	Writable   []string

	// Nested maps attribute names to the resource type a raw object
	// should be wrapped into during merge.
	Nested map[string]*Type

	// Dicts maps attribute names to fixed-schema value containers that
	// carry no remote identity of their own.
	Dicts map[string]*DictType

	// Element is set on collection types only and names the type the
	// collection's items wrap into.
	Element *Type

	// Autosaves lists nested attributes to save, in order, after a
	// successful parent save.
	Autosaves []string
}

func (t *Type) writableAttr(name string) bool {
	return slices.Contains(t.Writable, name)
}

// CollectionOf returns the collection type for the given element type.
func CollectionOf(element *Type) *Type {
	return &Type{
		Name:    element.Name + "_collection",
		Element: element,
	}
}

// Untyped is the fallback for raw objects that carry an href but no
// declared attribute type. They materialize as lazy plain resources.
var Untyped = &Type{Name: "resource"}

// DictType declares the schema of a FixedDict.
type DictType struct {
	Name     string
	Writable []string
	Nested   map[string]*DictType
}

func (t *DictType) writableAttr(name string) bool {
	return slices.Contains(t.Writable, name)
}

// Registry resolves type names to declarations. Schemas loaded from YAML
// register every type here so nested references can be linked up.
type Registry struct {
	types map[string]*Type
	dicts map[string]*DictType
}

func NewRegistry() *Registry {
	return &Registry{
		types: map[string]*Type{},
		dicts: map[string]*DictType{},
	}
}

func (r *Registry) Register(t *Type) {
	r.types[t.Name] = t
}

func (r *Registry) Type(name string) (*Type, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("unknown resource type %q", name))
	}
	return t, nil
}

func (r *Registry) Dict(name string) (*DictType, error) {
	d, ok := r.dicts[name]
	if !ok {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("unknown dict type %q", name))
	}
	return d, nil
}

type dictDefinition struct {
	Name     string            `yaml:"name"`
	Writable []string          `yaml:"writable"`
	Nested   map[string]string `yaml:"nested"`
}

type typeDefinition struct {
	Name       string            `yaml:"name"`
	CreatePath string            `yaml:"createPath"`
	Writable   []string          `yaml:"writable"`
	Nested     map[string]string `yaml:"nested"`
	Collection map[string]string `yaml:"collections"`
	Dicts      map[string]string `yaml:"dicts"`
	Autosaves  []string          `yaml:"autosaves"`
}

type schemaFile struct {
	Dicts []dictDefinition `yaml:"dicts"`
	Types []typeDefinition `yaml:"types"`
}

// LoadSchema reads type declarations from YAML and returns a registry with
// all nested references resolved. Declarations may reference each other in
// any order, including cyclically (an account's directory may declare an
// accounts collection).
func LoadSchema(data io.Reader) (*Registry, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	file := &schemaFile{}
	if err := yaml.Unmarshal(buf, file); err != nil {
		return nil, err
	}

	registry := NewRegistry()

	// First pass creates every declaration so the second pass can link
	// references regardless of declaration order.
	for _, def := range file.Dicts {
		registry.dicts[def.Name] = &DictType{
			Name:     def.Name,
			Writable: def.Writable,
			Nested:   map[string]*DictType{},
		}
	}

	for _, def := range file.Types {
		registry.types[def.Name] = &Type{
			Name:       def.Name,
			CreatePath: def.CreatePath,
			Writable:   def.Writable,
			Nested:     map[string]*Type{},
			Dicts:      map[string]*DictType{},
			Autosaves:  def.Autosaves,
		}
	}

	for _, def := range file.Dicts {
		dict := registry.dicts[def.Name]
		for attr, target := range def.Nested {
			nested, err := registry.Dict(target)
			if err != nil {
				return nil, err
			}
			dict.Nested[attr] = nested
		}
	}

	for _, def := range file.Types {
		t := registry.types[def.Name]

		for attr, target := range def.Nested {
			nested, err := registry.Type(target)
			if err != nil {
				return nil, err
			}
			t.Nested[attr] = nested
		}

		for attr, target := range def.Collection {
			element, err := registry.Type(target)
			if err != nil {
				return nil, err
			}
			t.Nested[attr] = CollectionOf(element)
		}

		for attr, target := range def.Dicts {
			nested, err := registry.Dict(target)
			if err != nil {
				return nil, err
			}
			t.Dicts[attr] = nested
		}
	}

	return registry, nil
}
