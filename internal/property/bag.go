package property

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Change describes a single mutation of a Bag. Old is cty.NilVal when the key
// was absent before the change; New is cty.NilVal when the key was deleted.
type Change struct {
	Key string
	Old cty.Value
	New cty.Value
}

type observer struct {
	id int
	fn func(Change)
}

// Bag is the mutable key/value configuration of a node. Values are cty
// values, so a property can hold a string, a number, a bool or any nested
// structure. Observers registered with Observe are notified after every
// mutation, outside of the bag's lock.
type Bag struct {
	mu        sync.RWMutex
	values    map[string]cty.Value
	observers []observer
	nextID    int
}

// NewBag returns an empty bag.
func NewBag() *Bag {
	return &Bag{values: make(map[string]cty.Value)}
}

// BagOf returns a bag pre-populated with a copy of values.
func BagOf(values map[string]cty.Value) *Bag {
	b := NewBag()
	for k, v := range values {
		b.values[k] = v
	}
	return b
}

// Set stores v under key and notifies observers.
func (b *Bag) Set(key string, v cty.Value) {
	b.mu.Lock()
	old, ok := b.values[key]
	if !ok {
		old = cty.NilVal
	}
	b.values[key] = v
	obs := b.observersLocked()
	b.mu.Unlock()

	notify(obs, Change{Key: key, Old: old, New: v})
}

// SetGo converts a plain Go value with FromGo and stores it under key.
func (b *Bag) SetGo(key string, v any) error {
	cv, err := FromGo(v)
	if err != nil {
		return fmt.Errorf("property %q: %w", key, err)
	}
	b.Set(key, cv)
	return nil
}

// Delete removes key, reporting whether it was present.
func (b *Bag) Delete(key string) bool {
	b.mu.Lock()
	old, ok := b.values[key]
	if !ok {
		b.mu.Unlock()
		return false
	}
	delete(b.values, key)
	obs := b.observersLocked()
	b.mu.Unlock()

	notify(obs, Change{Key: key, Old: old, New: cty.NilVal})
	return true
}

// Get returns the value stored under key.
func (b *Bag) Get(key string) (cty.Value, bool) {
	if b == nil {
		return cty.NilVal, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Len returns the number of stored properties.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// Keys returns the property names in sorted order.
func (b *Bag) Keys() []string {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the stored values.
func (b *Bag) Snapshot() map[string]cty.Value {
	out := make(map[string]cty.Value)
	if b == nil {
		return out
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Observe registers fn to be called after every change. The returned function
// removes the registration and is safe to call more than once.
func (b *Bag) Observe(fn func(Change)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, observer{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, o := range b.observers {
				if o.id == id {
					b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *Bag) observersLocked() []observer {
	if len(b.observers) == 0 {
		return nil
	}
	return append([]observer(nil), b.observers...)
}

func notify(obs []observer, c Change) {
	for _, o := range obs {
		o.fn(c)
	}
}

// lookup returns the value for key, treating absent and null the same way.
func (b *Bag) lookup(key string) (cty.Value, bool) {
	v, ok := b.Get(key)
	if !ok || v == cty.NilVal || v.IsNull() {
		return cty.NilVal, false
	}
	return v, true
}

// String reads key as a string, returning def when the key is absent or null.
func (b *Bag) String(key, def string) (string, error) {
	v, ok := b.lookup(key)
	if !ok {
		return def, nil
	}
	sv, err := convert.Convert(v, cty.String)
	if err != nil {
		return def, fmt.Errorf("property %q must be a string: %w", key, err)
	}
	if !sv.IsKnown() {
		return def, fmt.Errorf("property %q is not known", key)
	}
	return sv.AsString(), nil
}

// Int reads key as a whole number, returning def when the key is absent or null.
// Numeric strings are accepted.
func (b *Bag) Int(key string, def int64) (int64, error) {
	v, ok := b.lookup(key)
	if !ok {
		return def, nil
	}
	nv, err := convert.Convert(v, cty.Number)
	if err != nil {
		return def, fmt.Errorf("property %q must be a number: %w", key, err)
	}
	var out int64
	if err := gocty.FromCtyValue(nv, &out); err != nil {
		return def, fmt.Errorf("property %q must be a whole number: %w", key, err)
	}
	return out, nil
}

// Bool reads key as a bool, returning def when the key is absent or null.
func (b *Bag) Bool(key string, def bool) (bool, error) {
	v, ok := b.lookup(key)
	if !ok {
		return def, nil
	}
	bv, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return def, fmt.Errorf("property %q must be a bool: %w", key, err)
	}
	return bv.True(), nil
}

// StringMap reads key as a map of strings. Objects and maps are both accepted;
// every element must be convertible to a string. An absent key yields an
// empty map.
func (b *Bag) StringMap(key string) (map[string]string, error) {
	out := make(map[string]string)
	v, ok := b.lookup(key)
	if !ok {
		return out, nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("property %q must be a map of strings, got %s", key, ty.FriendlyName())
	}
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		if ev.IsNull() {
			continue
		}
		sv, err := convert.Convert(ev, cty.String)
		if err != nil {
			return nil, fmt.Errorf("property %q, key %q must be a string: %w", key, k.AsString(), err)
		}
		out[k.AsString()] = sv.AsString()
	}
	return out, nil
}
