package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed JSON value tree. Only String, Int, Bool, Array and
// Object implement it, which keeps floats and nulls out of anything that
// gets hashed.
type Value interface {
	value()
}

// String is a JSON string.
type String string

func (String) value() {}

// Int is a JSON integer.
type Int int64

func (Int) value() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) value() {}

// Array is a JSON array.
type Array []Value

func (Array) value() {}

// Object is a JSON object. Iterate with SortedKeys for deterministic output.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns the keys in RFC 8785 order (UTF-16 code units).
// Plain string comparison orders by UTF-8 bytes, which differs above U+FFFF.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

// Strings converts a string slice to an Array.
func Strings(ss []string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}
