// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package object

// Mode is an editor mode, as used by the host for keymaps, encoded as a
// short string tag.
type Mode string

const (
	ModeCmdLine       Mode = `c`
	ModeInsert        Mode = `i`
	ModeInsertCmdLine Mode = `!`
	ModeLangmap       Mode = `l`
	// ModeNormalVisualOperator is the empty tag, the same as the zero value.
	ModeNormalVisualOperator Mode = ``
	ModeNormal               Mode = `n`
	ModeOperatorPending      Mode = `o`
	ModeSelect               Mode = `s`
	ModeTerminal             Mode = `t`
	ModeVisual               Mode = `x`
	ModeVisualSelect         Mode = `v`
)

var (
	_ Marshaler   = Mode(``)
	_ Unmarshaler = (*Mode)(nil)
)

// Modes returns every known mode.
func Modes() []Mode {
	return []Mode{
		ModeCmdLine,
		ModeInsert,
		ModeInsertCmdLine,
		ModeLangmap,
		ModeNormalVisualOperator,
		ModeNormal,
		ModeOperatorPending,
		ModeSelect,
		ModeTerminal,
		ModeVisual,
		ModeVisualSelect,
	}
}

// Valid reports whether x is a known mode.
func (x Mode) Valid() bool {
	switch x {
	case ModeCmdLine, ModeInsert, ModeInsertCmdLine, ModeLangmap,
		ModeNormalVisualOperator, ModeNormal, ModeOperatorPending,
		ModeSelect, ModeTerminal, ModeVisual, ModeVisualSelect:
		return true
	default:
		return false
	}
}

func (x Mode) ToObject() Object { return Str(string(x)) }

func (x *Mode) FromObject(obj Object) error {
	s, ok := obj.AsString()
	if !ok {
		return &KindError{Want: []Kind{KindString}, Got: obj.Kind()}
	}
	if v := Mode(s); v.Valid() {
		*x = v
		return nil
	}
	return &ValueError{Type: `mode`, Value: s}
}
