// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package object

import (
	"strconv"
)

type (
	// KindError indicates an Object of an unexpected kind.
	KindError struct {
		// Field is the dictionary key, if any.
		Field string
		Want  []Kind
		Got   Kind
	}

	// ValueError indicates a value not valid for the target type, e.g. an
	// unknown mode tag.
	ValueError struct {
		Type  string
		Field string
		Value string
	}

	// MissingFieldError indicates a required dictionary entry is missing.
	MissingFieldError struct {
		Type  string
		Field string
	}
)

func (e *KindError) Error() string {
	b := []byte(`object: `)
	if e.Field != `` {
		b = append(b, `field `...)
		b = strconv.AppendQuote(b, e.Field)
		b = append(b, `: `...)
	}
	b = append(b, `expected `...)
	for i, k := range e.Want {
		if i != 0 {
			b = append(b, ` or `...)
		}
		b = append(b, k.String()...)
	}
	b = append(b, `, got `...)
	b = append(b, e.Got.String()...)
	return string(b)
}

func (e *ValueError) Error() string {
	b := []byte(`object: `)
	if e.Field != `` {
		b = append(b, `field `...)
		b = strconv.AppendQuote(b, e.Field)
		b = append(b, `: `...)
	}
	b = append(b, `invalid `...)
	b = append(b, e.Type...)
	b = append(b, ` `...)
	b = strconv.AppendQuote(b, e.Value)
	return string(b)
}

func (e *MissingFieldError) Error() string {
	return `object: ` + e.Type + `: missing field ` + strconv.Quote(e.Field)
}

// withField sets the field on known error types, returning err.
func withField(err error, field string) error {
	switch e := err.(type) {
	case *KindError:
		if e.Field == `` {
			e.Field = field
		}
	case *ValueError:
		if e.Field == `` {
			e.Field = field
		}
	}
	return err
}
