package property

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// ErrNaN is returned for NaN numbers, which have no cty representation.
var ErrNaN = errors.New("NaN is not a valid number")

func floatVal(f float64) (cty.Value, error) {
	if math.IsNaN(f) {
		return cty.NilVal, ErrNaN
	}
	return cty.NumberFloatVal(f), nil
}

// FromGo converts a plain Go value, as produced by YAML or JSON decoders, into
// a cty value. Heterogeneous slices become tuples and map[string]any becomes
// an object, so no element type is ever forced.
func FromGo(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return t, nil
	case string:
		return cty.StringVal(t), nil
	case bool:
		return cty.BoolVal(t), nil
	case int:
		return cty.NumberIntVal(int64(t)), nil
	case int8:
		return cty.NumberIntVal(int64(t)), nil
	case int16:
		return cty.NumberIntVal(int64(t)), nil
	case int32:
		return cty.NumberIntVal(int64(t)), nil
	case int64:
		return cty.NumberIntVal(t), nil
	case uint:
		return cty.NumberUIntVal(uint64(t)), nil
	case uint8:
		return cty.NumberUIntVal(uint64(t)), nil
	case uint16:
		return cty.NumberUIntVal(uint64(t)), nil
	case uint32:
		return cty.NumberUIntVal(uint64(t)), nil
	case uint64:
		return cty.NumberUIntVal(t), nil
	case float32:
		return floatVal(float64(t))
	case float64:
		return floatVal(t)
	case time.Time:
		return cty.StringVal(t.UTC().Format(time.RFC3339Nano)), nil
	case time.Duration:
		return cty.NumberIntVal(t.Milliseconds()), nil
	case []string:
		if len(t) == 0 {
			return cty.ListValEmpty(cty.String), nil
		}
		vals := make([]cty.Value, len(t))
		for i, s := range t {
			vals[i] = cty.StringVal(s)
		}
		return cty.ListVal(vals), nil
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal, nil
		}
		vals := make([]cty.Value, len(t))
		for i, e := range t {
			cv, err := FromGo(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("index %d: %w", i, err)
			}
			vals[i] = cv
		}
		return cty.TupleVal(vals), nil
	case map[string]string:
		if len(t) == 0 {
			return cty.MapValEmpty(cty.String), nil
		}
		vals := make(map[string]cty.Value, len(t))
		for k, s := range t {
			vals[k] = cty.StringVal(s)
		}
		return cty.MapVal(vals), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(t))
		for k, e := range t {
			cv, err := FromGo(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("key %q: %w", k, err)
			}
			attrs[k] = cv
		}
		return ObjectOf(attrs), nil
	case map[any]any:
		attrs := make(map[string]cty.Value, len(t))
		for k, e := range t {
			key := fmt.Sprint(k)
			cv, err := FromGo(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("key %q: %w", key, err)
			}
			attrs[key] = cv
		}
		return ObjectOf(attrs), nil
	}
	return cty.NilVal, fmt.Errorf("unsupported value type %T", v)
}

// ObjectOf builds an object value from attrs, returning the empty object for
// an empty or nil map.
func ObjectOf(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

// ToGo converts a cty value into plain Go data suitable for JSON encoding.
// Whole numbers become int64, other numbers float64, collections become
// []any or map[string]any. Null and unknown values become nil.
func ToGo(v cty.Value) any {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Bool:
		return v.True()
	case ty == cty.Number:
		return numberToGo(v.AsBigFloat())
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			out[k.AsString()] = ToGo(ev)
		}
		return out
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ToGo(ev))
		}
		return out
	}
	return nil
}

// DataToGo converts every value of a data bag with ToGo.
func DataToGo(data map[string]cty.Value) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = ToGo(v)
	}
	return out
}

// SortedKeys returns the keys of a data bag in sorted order.
func SortedKeys(data map[string]cty.Value) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func numberToGo(bf *big.Float) any {
	if bf.IsInt() {
		if i, acc := bf.Int64(); acc == big.Exact {
			return i
		}
	}
	f, _ := bf.Float64()
	return f
}
