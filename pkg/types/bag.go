package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Property is a single configuration value held by an application.
type Property struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value" yaml:"value"`
	Masked bool   `json:"masked,omitempty" yaml:"masked,omitempty"`
}

// PropertyBag is an ordered, case-insensitive mapping from property key to
// property. It is the unit of data exchanged with the store and is never
// persisted on its own.
//
// Keys compare under full Unicode case folding. The first spelling of a key
// is kept; later writes under another spelling replace the value in place.
// The zero value is not usable; create bags with NewPropertyBag.
type PropertyBag struct {
	order []string
	items map[string]Property
}

// NewPropertyBag returns an empty bag.
func NewPropertyBag() *PropertyBag {
	return &PropertyBag{items: make(map[string]Property)}
}

// BagOf returns a bag holding props in the given order.
func BagOf(props ...Property) *PropertyBag {
	b := NewPropertyBag()
	for _, p := range props {
		b.SetProperty(p)
	}
	return b
}

// BagFromMap returns an unmasked bag built from m. Keys are inserted in
// sorted order so the result is deterministic.
func BagFromMap(m map[string]string) *PropertyBag {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := NewPropertyBag()
	for _, k := range keys {
		b.Set(k, m[k])
	}
	return b
}

// FoldKey returns the case-folded form used to compare property keys.
func FoldKey(key string) string {
	return cases.Fold().String(key)
}

// Set writes value under key. An existing property keeps its spelling and
// mask flag.
func (b *PropertyBag) Set(key, value string) {
	fk := FoldKey(key)
	if p, ok := b.items[fk]; ok {
		p.Value = value
		b.items[fk] = p
		return
	}
	b.order = append(b.order, fk)
	b.items[fk] = Property{Key: key, Value: value}
}

// SetProperty writes p, replacing value and mask of any property with the
// same folded key. The first spelling of the key is kept.
func (b *PropertyBag) SetProperty(p Property) {
	fk := FoldKey(p.Key)
	if existing, ok := b.items[fk]; ok {
		p.Key = existing.Key
		b.items[fk] = p
		return
	}
	b.order = append(b.order, fk)
	b.items[fk] = p
}

// Get returns the value stored under key.
func (b *PropertyBag) Get(key string) (string, bool) {
	p, ok := b.Lookup(key)
	return p.Value, ok
}

// Lookup returns the property stored under key.
func (b *PropertyBag) Lookup(key string) (Property, bool) {
	if b == nil {
		return Property{}, false
	}
	p, ok := b.items[FoldKey(key)]
	return p, ok
}

// Has reports whether key is present.
func (b *PropertyBag) Has(key string) bool {
	_, ok := b.Lookup(key)
	return ok
}

// Delete removes key from the bag and reports whether it was present.
// This only edits the in-memory bag; the store cannot drop a single field.
func (b *PropertyBag) Delete(key string) bool {
	if b == nil {
		return false
	}
	fk := FoldKey(key)
	if _, ok := b.items[fk]; !ok {
		return false
	}
	delete(b.items, fk)
	for i, k := range b.order {
		if k == fk {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of properties. A nil bag is empty.
func (b *PropertyBag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.order)
}

// Keys returns the property keys in bag order, as first spelled.
func (b *PropertyBag) Keys() []string {
	keys := make([]string, 0, b.Len())
	for _, p := range b.Properties() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Properties returns the properties in bag order.
func (b *PropertyBag) Properties() []Property {
	if b == nil {
		return []Property{}
	}
	props := make([]Property, 0, len(b.order))
	for _, fk := range b.order {
		props = append(props, b.items[fk])
	}
	return props
}

// Clone returns an independent copy of the bag.
func (b *PropertyBag) Clone() *PropertyBag {
	return BagOf(b.Properties()...)
}

// Merge writes every property of other into b. Values from other win on
// key collisions; keys absent from other are left untouched.
func (b *PropertyBag) Merge(other *PropertyBag) {
	for _, p := range other.Properties() {
		b.SetProperty(p)
	}
}

// MergeMissing adds the properties of other whose keys are not yet in b and
// returns how many were added. Existing values always win.
func (b *PropertyBag) MergeMissing(other *PropertyBag) int {
	added := 0
	for _, p := range other.Properties() {
		if b.Has(p.Key) {
			continue
		}
		b.SetProperty(p)
		added++
	}
	return added
}

// Unmasked returns a copy of the bag with every mask flag cleared.
func (b *PropertyBag) Unmasked() *PropertyBag {
	out := NewPropertyBag()
	for _, p := range b.Properties() {
		p.Masked = false
		out.SetProperty(p)
	}
	return out
}

// Redacted returns a copy of the bag with masked values replaced by
// placeholder.
func (b *PropertyBag) Redacted(placeholder string) *PropertyBag {
	out := NewPropertyBag()
	for _, p := range b.Properties() {
		if p.Masked {
			p.Value = placeholder
		}
		out.SetProperty(p)
	}
	return out
}

// Map flattens the bag into a key to value map.
func (b *PropertyBag) Map() map[string]string {
	m := make(map[string]string, b.Len())
	for _, p := range b.Properties() {
		m[p.Key] = p.Value
	}
	return m
}

// Search reports whether any key (when inKeys) or value (when inValues)
// contains query, ignoring case.
func (b *PropertyBag) Search(query string, inKeys, inValues bool) bool {
	q := strings.ToUpper(query)
	for _, p := range b.Properties() {
		if inKeys && strings.Contains(strings.ToUpper(p.Key), q) {
			return true
		}
		if inValues && strings.Contains(strings.ToUpper(p.Value), q) {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the bag as a JSON object in bag order.
func (b *PropertyBag) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range b.Properties() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping the order in
// which keys appear.
func (b *PropertyBag) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("property bag: expected JSON object")
	}

	*b = PropertyBag{items: make(map[string]Property)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		b.Set(key, scalarString(value))
	}
	_, err = dec.Token()
	return err
}

// scalarString renders a decoded JSON scalar the way the store keeps it.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
