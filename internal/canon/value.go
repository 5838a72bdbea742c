package canon

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the types that may appear in a canonical
// document. There is deliberately no float and no null.
type Value interface {
	canonValue()
}

// String is a string value.
type String string

func (String) canonValue() {}

// Int is an integer value.
type Int int64

func (Int) canonValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) canonValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) canonValue() {}

// Object maps keys to values. Iterate with SortedKeys for stable order.
type Object map[string]Value

func (Object) canonValue() {}

// Strings builds an Array of String values, preserving order.
func Strings(ss []string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

// SetOptional stores s under key only when s is non-nil.
// Canonical documents have no null, so absence is the encoding of "unknown".
func (obj Object) SetOptional(key string, s *string) {
	if s != nil {
		obj[key] = String(*s)
	}
}

// SetOptionalBool is SetOptional for nullable booleans.
func (obj Object) SetOptionalBool(key string, b *bool) {
	if b != nil {
		obj[key] = Bool(*b)
	}
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// sort.Strings compares UTF-8 bytes, which differs for supplementary planes.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
