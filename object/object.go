// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package object models the generic structured values exchanged with an
// embedding host, along with the host's mode and option metadata types,
// which convert to and from them.
package object

import (
	"strconv"
)

type (
	// Kind identifies the variant held by an Object.
	Kind uint8

	// Object is a generic structured value. The zero value is Nil.
	Object struct {
		s    string
		arr  []Object
		dict []KeyValue
		i    int64
		f    float64
		kind Kind
		b    bool
	}

	// KeyValue is a single Dictionary entry.
	KeyValue struct {
		Key   string
		Value Object
	}

	// Marshaler is implemented by types convertible to an Object.
	Marshaler interface {
		ToObject() Object
	}

	// Unmarshaler is implemented by types that can be populated from an
	// Object.
	Unmarshaler interface {
		FromObject(obj Object) error
	}
)

const (
	KindNil Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindString
	KindArray
	KindDictionary
)

func (x Kind) String() string {
	switch x {
	case KindNil:
		return `nil`
	case KindBoolean:
		return `boolean`
	case KindInteger:
		return `integer`
	case KindFloat:
		return `float`
	case KindString:
		return `string`
	case KindArray:
		return `array`
	case KindDictionary:
		return `dictionary`
	default:
		return `kind(` + strconv.Itoa(int(x)) + `)`
	}
}

// Nil returns the nil Object, the same as the zero value.
func Nil() Object { return Object{} }

func Bool(v bool) Object { return Object{kind: KindBoolean, b: v} }

func Int(v int64) Object { return Object{kind: KindInteger, i: v} }

func Float(v float64) Object { return Object{kind: KindFloat, f: v} }

func Str(v string) Object { return Object{kind: KindString, s: v} }

// Array returns an Array Object, holding items. The slice is retained.
func Array(items ...Object) Object { return Object{kind: KindArray, arr: items} }

// Dict returns a Dictionary Object. Entries keep their order. The slice is
// retained.
func Dict(entries ...KeyValue) Object { return Object{kind: KindDictionary, dict: entries} }

func (x Object) Kind() Kind { return x.kind }

func (x Object) IsNil() bool { return x.kind == KindNil }

func (x Object) AsBool() (bool, bool) { return x.b, x.kind == KindBoolean }

func (x Object) AsInt() (int64, bool) { return x.i, x.kind == KindInteger }

func (x Object) AsFloat() (float64, bool) { return x.f, x.kind == KindFloat }

func (x Object) AsString() (string, bool) { return x.s, x.kind == KindString }

// AsArray returns the items of an Array, which must not be modified.
func (x Object) AsArray() ([]Object, bool) { return x.arr, x.kind == KindArray }

// AsDict returns the entries of a Dictionary, which must not be modified.
func (x Object) AsDict() ([]KeyValue, bool) { return x.dict, x.kind == KindDictionary }

// Get returns the value of the last entry with the given key, if x is a
// Dictionary.
func (x Object) Get(key string) (Object, bool) {
	for i := len(x.dict) - 1; i >= 0; i-- {
		if x.dict[i].Key == key {
			return x.dict[i].Value, true
		}
	}
	return Object{}, false
}

// Len returns the number of items (Array), entries (Dictionary), or bytes
// (String), or 0.
func (x Object) Len() int {
	switch x.kind {
	case KindArray:
		return len(x.arr)
	case KindDictionary:
		return len(x.dict)
	case KindString:
		return len(x.s)
	default:
		return 0
	}
}

// Equal reports whether x and y hold the same variant and value. Dictionary
// entries are compared in order. Floats are compared with ==.
func (x Object) Equal(y Object) bool {
	if x.kind != y.kind {
		return false
	}
	switch x.kind {
	case KindNil:
		return true
	case KindBoolean:
		return x.b == y.b
	case KindInteger:
		return x.i == y.i
	case KindFloat:
		return x.f == y.f
	case KindString:
		return x.s == y.s
	case KindArray:
		if len(x.arr) != len(y.arr) {
			return false
		}
		for i := range x.arr {
			if !x.arr[i].Equal(y.arr[i]) {
				return false
			}
		}
		return true
	case KindDictionary:
		if len(x.dict) != len(y.dict) {
			return false
		}
		for i := range x.dict {
			if x.dict[i].Key != y.dict[i].Key || !x.dict[i].Value.Equal(y.dict[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String returns the JSON encoding of x.
func (x Object) String() string {
	return string(x.AppendJSON(nil))
}
