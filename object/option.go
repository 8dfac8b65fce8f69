// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package object

import (
	"math"
	"strconv"
)

type (
	// OptionScope is the scope of an editor option.
	OptionScope string

	// OptionDefault is the default value of an option, one of a boolean, a
	// number, or a string. The zero value is the boolean false.
	OptionDefault struct {
		s    string
		n    int64
		kind Kind
		b    bool
	}

	// OptionInfos describes an editor option. Unlike the host's own
	// representation, the type of the option is implied by Default.
	OptionInfos struct {
		// Default is the default value of the option.
		Default OptionDefault
		// Name is the name of the option, e.g. "filetype".
		Name string
		// Scope of the option.
		Scope OptionScope
		// ShortName is the abbreviated name of the option, e.g. "ft".
		ShortName string
		// LastSetLineNr is the line number where the option was set.
		LastSetLineNr uint64
		// LastSetChan is the channel id where the option was set, 0 for local.
		LastSetChan uint32
		// LastSetSID is the id of the script that last set the option, if any.
		LastSetSID       uint32
		AllowsDuplicates bool
		// CommaList indicates a list of comma-separated values.
		CommaList bool
		FlagList  bool
		// GlobalLocal indicates a window or buffer option also has a global
		// value.
		GlobalLocal bool
		// WasSet indicates the option was set.
		WasSet bool
	}
)

const (
	OptionScopeBuffer OptionScope = `buf`
	OptionScopeGlobal OptionScope = `global`
	OptionScopeWindow OptionScope = `win`
)

var (
	_ Marshaler   = OptionScope(``)
	_ Unmarshaler = (*OptionScope)(nil)
	_ Marshaler   = OptionDefault{}
	_ Unmarshaler = (*OptionDefault)(nil)
	_ Marshaler   = OptionInfos{}
	_ Unmarshaler = (*OptionInfos)(nil)
)

// Valid reports whether x is a known scope.
func (x OptionScope) Valid() bool {
	switch x {
	case OptionScopeBuffer, OptionScopeGlobal, OptionScopeWindow:
		return true
	default:
		return false
	}
}

func (x OptionScope) ToObject() Object { return Str(string(x)) }

func (x *OptionScope) FromObject(obj Object) error {
	s, ok := obj.AsString()
	if !ok {
		return &KindError{Want: []Kind{KindString}, Got: obj.Kind()}
	}
	if v := OptionScope(s); v.Valid() {
		*x = v
		return nil
	}
	return &ValueError{Type: `option scope`, Value: s}
}

func DefaultBoolean(v bool) OptionDefault { return OptionDefault{kind: KindBoolean, b: v} }

func DefaultNumber(v int64) OptionDefault { return OptionDefault{kind: KindInteger, n: v} }

func DefaultString(v string) OptionDefault { return OptionDefault{kind: KindString, s: v} }

// Kind returns KindBoolean, KindInteger, or KindString.
func (x OptionDefault) Kind() Kind {
	if x.kind == KindNil {
		return KindBoolean
	}
	return x.kind
}

func (x OptionDefault) Boolean() (bool, bool) { return x.b, x.Kind() == KindBoolean }

func (x OptionDefault) Number() (int64, bool) { return x.n, x.kind == KindInteger }

func (x OptionDefault) Str() (string, bool) { return x.s, x.kind == KindString }

func (x OptionDefault) ToObject() Object {
	switch x.Kind() {
	case KindInteger:
		return Int(x.n)
	case KindString:
		return Str(x.s)
	default:
		return Bool(x.b)
	}
}

// FromObject accepts a boolean, a number, or a string. Integral floats are
// accepted as numbers.
func (x *OptionDefault) FromObject(obj Object) error {
	if v, ok := obj.AsBool(); ok {
		*x = DefaultBoolean(v)
		return nil
	}
	if v, ok := toInt(obj); ok {
		*x = DefaultNumber(v)
		return nil
	}
	if v, ok := obj.AsString(); ok {
		*x = DefaultString(v)
		return nil
	}
	return &KindError{Want: []Kind{KindBoolean, KindInteger, KindString}, Got: obj.Kind()}
}

// ToObject encodes x as a Dictionary, keyed as per the host.
func (x OptionInfos) ToObject() Object {
	return Dict(
		KeyValue{`allows_duplicates`, Bool(x.AllowsDuplicates)},
		KeyValue{`commalist`, Bool(x.CommaList)},
		KeyValue{`default`, x.Default.ToObject()},
		KeyValue{`flaglist`, Bool(x.FlagList)},
		KeyValue{`global_local`, Bool(x.GlobalLocal)},
		KeyValue{`last_set_chan`, Int(int64(x.LastSetChan))},
		KeyValue{`last_set_linenr`, Int(int64(min(x.LastSetLineNr, math.MaxInt64)))},
		KeyValue{`last_set_sid`, Int(int64(x.LastSetSID))},
		KeyValue{`name`, Str(x.Name)},
		KeyValue{`scope`, x.Scope.ToObject()},
		KeyValue{`shortname`, Str(x.ShortName)},
		KeyValue{`was_set`, Bool(x.WasSet)},
	)
}

// FromObject decodes a Dictionary, as returned by the host. Every field is
// required, and unknown entries (e.g. "type") are ignored.
func (x *OptionInfos) FromObject(obj Object) error {
	if obj.Kind() != KindDictionary {
		return &KindError{Want: []Kind{KindDictionary}, Got: obj.Kind()}
	}

	var v OptionInfos
	d := fieldDecoder{obj: obj, typ: `option infos`}
	d.bool(`allows_duplicates`, &v.AllowsDuplicates)
	d.bool(`commalist`, &v.CommaList)
	d.value(`default`, &v.Default)
	d.bool(`flaglist`, &v.FlagList)
	d.bool(`global_local`, &v.GlobalLocal)
	d.uint(`last_set_chan`, math.MaxUint32, func(n uint64) { v.LastSetChan = uint32(n) })
	d.uint(`last_set_linenr`, math.MaxInt64, func(n uint64) { v.LastSetLineNr = n })
	d.uint(`last_set_sid`, math.MaxUint32, func(n uint64) { v.LastSetSID = uint32(n) })
	d.str(`name`, &v.Name)
	d.value(`scope`, &v.Scope)
	d.str(`shortname`, &v.ShortName)
	d.bool(`was_set`, &v.WasSet)
	if d.err != nil {
		return d.err
	}

	*x = v
	return nil
}

// fieldDecoder decodes Dictionary entries, retaining the first error.
type fieldDecoder struct {
	err error
	obj Object
	typ string
}

func (d *fieldDecoder) get(key string) (Object, bool) {
	if d.err != nil {
		return Object{}, false
	}
	v, ok := d.obj.Get(key)
	if !ok {
		d.err = &MissingFieldError{Type: d.typ, Field: key}
	}
	return v, ok
}

func (d *fieldDecoder) bool(key string, dst *bool) {
	if v, ok := d.get(key); ok {
		if b, ok := v.AsBool(); ok {
			*dst = b
		} else {
			d.err = &KindError{Field: key, Want: []Kind{KindBoolean}, Got: v.Kind()}
		}
	}
}

func (d *fieldDecoder) str(key string, dst *string) {
	if v, ok := d.get(key); ok {
		if s, ok := v.AsString(); ok {
			*dst = s
		} else {
			d.err = &KindError{Field: key, Want: []Kind{KindString}, Got: v.Kind()}
		}
	}
}

func (d *fieldDecoder) uint(key string, limit uint64, set func(n uint64)) {
	if v, ok := d.get(key); ok {
		n, ok := toInt(v)
		switch {
		case !ok:
			d.err = &KindError{Field: key, Want: []Kind{KindInteger}, Got: v.Kind()}
		case n < 0 || uint64(n) > limit:
			d.err = &ValueError{Type: `integer`, Field: key, Value: strconv.FormatInt(n, 10)}
		default:
			set(uint64(n))
		}
	}
}

func (d *fieldDecoder) value(key string, dst Unmarshaler) {
	if v, ok := d.get(key); ok {
		if err := dst.FromObject(v); err != nil {
			d.err = withField(err, key)
		}
	}
}
