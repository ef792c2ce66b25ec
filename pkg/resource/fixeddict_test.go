package resource

import (
	stderrors "errors"
	"testing"

	sdkerrors "github.com/driftwood-io/resource-sdk/pkg/resource/errors"

	"github.com/matryer/is"
)

var settingsDict = &DictType{
	Name:     "settings",
	Writable: []string{"theme", "api_key"},
	Nested: map[string]*DictType{
		"metadata": {Name: "metadata", Writable: []string{"description"}},
	},
}

func TestFixedDictConvertsWireNamesOnMerge(t *testing.T) {
	is := is.New(t)

	d, err := NewFixedDict(settingsDict, map[string]any{
		"theme":  "dark",
		"apiKey": "secret",
	})
	is.NoErr(err)

	key, err := d.Get("api_key")
	is.NoErr(err)
	is.Equal(key, "secret")
}

func TestFixedDictWrapsDeclaredNestedValues(t *testing.T) {
	is := is.New(t)

	d, err := NewFixedDict(settingsDict, map[string]any{
		"metadata": map[string]any{"description": "for ci"},
	})
	is.NoErr(err)

	value, err := d.Get("metadata")
	is.NoErr(err)

	nested, ok := value.(*FixedDict)
	is.True(ok)

	description, err := nested.Get("description")
	is.NoErr(err)
	is.Equal(description, "for ci")
}

func TestFixedDictNestedNullIsAbsent(t *testing.T) {
	is := is.New(t)

	d, err := NewFixedDict(settingsDict, map[string]any{"metadata": nil})
	is.NoErr(err)

	value, err := d.Get("metadata")
	is.NoErr(err)
	is.Equal(value, nil)
}

func TestFixedDictRejectsUnwrappableNestedValues(t *testing.T) {
	is := is.New(t)

	_, err := NewFixedDict(settingsDict, map[string]any{"metadata": 42})

	is.True(err != nil)
	is.True(stderrors.Is(err, sdkerrors.ErrTypeMismatch))
}

func TestFixedDictWriteProtection(t *testing.T) {
	is := is.New(t)

	d, err := NewFixedDict(settingsDict, map[string]any{})
	is.NoErr(err)

	is.NoErr(d.Set("theme", "light"))

	err = d.Set("metadata", "nope")
	is.True(stderrors.Is(err, sdkerrors.ErrNotWritable))
}

func TestFixedDictGetOfUnsetAttributeFails(t *testing.T) {
	is := is.New(t)

	d, err := NewFixedDict(settingsDict, map[string]any{})
	is.NoErr(err)

	_, err = d.Get("theme")
	is.True(stderrors.Is(err, sdkerrors.ErrNoSuchAttribute))
}

func TestFixedDictSerializesWritableAttrsToWireForm(t *testing.T) {
	is := is.New(t)

	d, err := NewFixedDict(settingsDict, map[string]any{
		"theme":     "dark",
		"apiKey":    "secret",
		"readOnly":  true,
		"dontCount": 1,
	})
	is.NoErr(err)

	properties := d.Properties()

	is.Equal(len(properties), 2)
	is.Equal(properties["theme"], "dark")
	is.Equal(properties["apiKey"], "secret")
}

func TestFixedDictSerializesPlainMapsRecursively(t *testing.T) {
	is := is.New(t)

	d, err := NewFixedDict(settingsDict, map[string]any{})
	is.NoErr(err)

	is.NoErr(d.Set("theme", map[string]any{"accent_color": "blue"}))

	properties := d.Properties()
	nested, ok := properties["theme"].(map[string]any)
	is.True(ok)
	is.Equal(nested["accentColor"], "blue")
}
