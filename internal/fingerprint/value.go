package fingerprint

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the types that can be canonically
// encoded. Only String, Int, Float, Bool, Array and Object implement it.
type Value interface {
	value()
}

// String is a JSON string. It is NFC-normalized when encoded.
type String string

// Int is a JSON integer.
type Int int64

// Float is encoded as a JSON string holding the shortest decimal form.
type Float float64

// Bool is a JSON boolean.
type Bool bool

// Array is an ordered JSON array.
type Array []Value

// Object is a JSON object. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (String) value() {}
func (Int) value()    {}
func (Float) value()  {}
func (Bool) value()   {}
func (Array) value()  {}
func (Object) value() {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's native string order compares UTF-8 bytes and differs for
// characters outside the BMP.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
