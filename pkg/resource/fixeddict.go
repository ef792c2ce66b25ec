package resource

import (
	"fmt"
	"sort"

	"github.com/driftwood-io/resource-sdk/pkg/resource/errors"
	"github.com/driftwood-io/resource-sdk/pkg/resource/names"
)

// FixedDict is a nested value container with a declared attribute schema.
// It shares the write-permission and serialization discipline of Resource
// but has no remote identity, no lazy fetch and no events; it exists for
// embedded sub-objects such as nested configuration blocks.
type FixedDict struct {
	typ   *DictType
	props map[string]any
}

func NewFixedDict(typ *DictType, properties map[string]any) (*FixedDict, error) {
	if typ == nil {
		return nil, errors.NewInvalidArgumentError("a dict type is required")
	}

	d := &FixedDict{
		typ:   typ,
		props: map[string]any{},
	}

	if err := d.setProperties(properties); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *FixedDict) Get(name string) (any, error) {
	value, ok := d.props[name]
	if !ok {
		return nil, errors.NewNoSuchAttributeError(name, d.typ.Name)
	}

	return value, nil
}

func (d *FixedDict) Set(name string, value any) error {
	if !d.typ.writableAttr(name) {
		return errors.NewNotWritableError(name, d.typ.Name)
	}

	d.props[name] = value

	return nil
}

func (d *FixedDict) Contains(name string) bool {
	_, ok := d.props[name]
	return ok
}

func (d *FixedDict) Keys() []string {
	keys := make([]string, 0, len(d.props))
	for k := range d.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Update sets every given attribute, failing on the first non-writable one.
func (d *FixedDict) Update(properties map[string]any) error {
	for _, name := range sortedKeys(properties) {
		if err := d.Set(name, properties[name]); err != nil {
			return err
		}
	}

	return nil
}

func (d *FixedDict) setProperties(properties map[string]any) error {
	for wireName, value := range properties {
		name := names.ToLocal(wireName)

		if nested, declared := d.typ.Nested[name]; declared {
			wrapped, err := wrapDictAttr(nested, value)
			if err != nil {
				return err
			}
			d.props[name] = wrapped
			continue
		}

		d.props[name] = value
	}

	return nil
}

// Properties serializes the declared writable attributes back to wire form.
func (d *FixedDict) Properties() map[string]any {
	data := map[string]any{}

	for _, name := range d.typ.Writable {
		if value, ok := d.props[name]; ok {
			data[names.ToWire(name)] = sanitizeValue(value)
		}
	}

	return data
}

func wrapDictAttr(typ *DictType, value any) (any, error) {
	switch v := value.(type) {
	case *FixedDict:
		return v, nil
	case map[string]any:
		nested, err := NewFixedDict(typ, v)
		if err != nil {
			return nil, err
		}
		return nested, nil
	case nil:
		return nil, nil
	default:
		return nil, errors.NewTypeMismatchError(
			fmt.Sprintf("can't convert %T to dict type %s", value, typ.Name),
		)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
