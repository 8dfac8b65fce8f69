// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package object

import (
	"fmt"
	"math"
	"strconv"

	"github.com/joeycumines/go-utilpkg/jsonenc"
	"gopkg.in/yaml.v3"
)

var (
	_ yaml.Unmarshaler = (*Object)(nil)
)

// AppendJSON appends the JSON encoding of x to dst. NaN and infinite floats
// are encoded as strings.
func (x Object) AppendJSON(dst []byte) []byte {
	switch x.kind {
	case KindBoolean:
		return strconv.AppendBool(dst, x.b)
	case KindInteger:
		return strconv.AppendInt(dst, x.i, 10)
	case KindFloat:
		return jsonenc.AppendFloat64(dst, x.f)
	case KindString:
		return jsonenc.AppendString(dst, x.s)
	case KindArray:
		dst = append(dst, '[')
		for i, v := range x.arr {
			if i != 0 {
				dst = append(dst, ',')
			}
			dst = v.AppendJSON(dst)
		}
		return append(dst, ']')
	case KindDictionary:
		dst = append(dst, '{')
		for i, kv := range x.dict {
			if i != 0 {
				dst = append(dst, ',')
			}
			dst = jsonenc.AppendString(dst, kv.Key)
			dst = append(dst, ':')
			dst = kv.Value.AppendJSON(dst)
		}
		return append(dst, '}')
	default:
		return append(dst, `null`...)
	}
}

// MarshalJSON implements json.Marshaler.
func (x Object) MarshalJSON() ([]byte, error) {
	return x.AppendJSON(nil), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Since YAML is a superset of
// JSON, this also decodes JSON documents. Mapping keys must be scalars, and
// are stored as strings.
func (x *Object) UnmarshalYAML(value *yaml.Node) error {
	var d nodeDecoder
	v, err := d.decode(value, 0)
	if err != nil {
		return err
	}
	*x = v
	return nil
}

// Decode parses a single YAML (or JSON) document.
func Decode(data []byte) (Object, error) {
	var v Object
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Object{}, err
	}
	return v, nil
}

const (
	// maximum alias expansion depth, guarding against cycles
	maxDepth = 1000

	// alias expansion limits, as per yaml.v3's own
	aliasRatioRangeLow  = 400000
	aliasRatioRangeHigh = 4000000
)

// nodeDecoder converts yaml nodes, counting nodes reached via aliases, so
// that documents which expand exponentially are rejected.
type nodeDecoder struct {
	decoded int
	aliased int
	inAlias int
}

// allowedAliasRatio is the fraction of decoded nodes that may come from
// alias expansion, which shrinks as the document grows.
func allowedAliasRatio(decoded int) float64 {
	switch {
	case decoded <= aliasRatioRangeLow:
		return 0.99
	case decoded >= aliasRatioRangeHigh:
		return 0.10
	default:
		return 0.99 - 0.89*(float64(decoded-aliasRatioRangeLow)/(aliasRatioRangeHigh-aliasRatioRangeLow))
	}
}

func (d *nodeDecoder) decode(node *yaml.Node, depth int) (Object, error) {
	if depth > maxDepth {
		return Object{}, fmt.Errorf("object: line %d: exceeded max depth", node.Line)
	}

	d.decoded++
	if d.inAlias != 0 {
		d.aliased++
		if d.aliased > 100 && d.decoded > 1000 && float64(d.aliased)/float64(d.decoded) > allowedAliasRatio(d.decoded) {
			return Object{}, fmt.Errorf("object: line %d: document contains excessive aliasing", node.Line)
		}
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Object{}, nil
		}
		return d.decode(node.Content[0], depth+1)

	case yaml.AliasNode:
		d.inAlias++
		defer func() { d.inAlias-- }()
		return d.decode(node.Alias, depth+1)

	case yaml.SequenceNode:
		items := make([]Object, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := d.decode(child, depth+1)
			if err != nil {
				return Object{}, err
			}
			items = append(items, v)
		}
		return Array(items...), nil

	case yaml.MappingNode:
		entries := make([]KeyValue, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Kind == yaml.AliasNode {
				key = key.Alias
			}
			if key.Kind != yaml.ScalarNode {
				return Object{}, fmt.Errorf("object: line %d: unsupported mapping key", key.Line)
			}
			v, err := d.decode(node.Content[i+1], depth+1)
			if err != nil {
				return Object{}, err
			}
			entries = append(entries, KeyValue{Key: key.Value, Value: v})
		}
		return Dict(entries...), nil

	case yaml.ScalarNode:
		return decodeScalar(node)

	default:
		return Object{}, fmt.Errorf("object: line %d: unsupported node kind %d", node.Line, node.Kind)
	}
}

func decodeScalar(node *yaml.Node) (Object, error) {
	switch node.ShortTag() {
	case `!!null`:
		return Object{}, nil
	case `!!bool`:
		var v bool
		if err := node.Decode(&v); err != nil {
			return Object{}, err
		}
		return Bool(v), nil
	case `!!int`:
		var v int64
		if err := node.Decode(&v); err != nil {
			return Object{}, err
		}
		return Int(v), nil
	case `!!float`:
		var v float64
		if err := node.Decode(&v); err != nil {
			return Object{}, err
		}
		return Float(v), nil
	case `!!str`, `!!timestamp`:
		return Str(node.Value), nil
	default:
		return Object{}, fmt.Errorf("object: line %d: unsupported tag %s", node.Line, node.ShortTag())
	}
}

// toInt converts integral floats, as some hosts encode numbers as floats.
func toInt(obj Object) (int64, bool) {
	if v, ok := obj.AsInt(); ok {
		return v, true
	}
	if v, ok := obj.AsFloat(); ok && v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
		return int64(v), true
	}
	return 0, false
}
