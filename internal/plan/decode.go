package plan

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// field is one key of a mapping, kept in document order.
type field struct {
	key string
	val any
}

// object is a mapping whose keys keep their document order.
// Values are object, []any, string, int, float64, bool or nil.
type object []field

func (o object) get(key string) (any, bool) {
	for _, f := range o {
		if f.key == key {
			return f.val, true
		}
	}
	return nil, false
}

func (o object) has(key string) bool {
	_, ok := o.get(key)
	return ok
}

// decodeJSON reads a JSON document into ordered values.
func decodeJSON(data []byte) (any, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	return fromGJSON(gjson.ParseBytes(data)), nil
}

func fromGJSON(r gjson.Result) any {
	switch {
	case r.IsObject():
		var obj object
		r.ForEach(func(k, v gjson.Result) bool {
			obj = append(obj, field{key: k.String(), val: fromGJSON(v)})
			return true
		})
		if obj == nil {
			obj = object{}
		}
		return obj
	case r.IsArray():
		items := []any{}
		r.ForEach(func(_, v gjson.Result) bool {
			items = append(items, fromGJSON(v))
			return true
		})
		return items
	}

	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		if n, err := strconv.Atoi(r.Raw); err == nil {
			return n
		}
		return r.Num
	case gjson.True:
		return true
	case gjson.False:
		return false
	default:
		return nil
	}
}

// decodeYAML reads a YAML document into ordered values.
func decodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty YAML document")
	}
	return fromYAML(doc.Content[0])
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		obj := make(object, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
			}
			val, err := fromYAML(v)
			if err != nil {
				return nil, err
			}
			obj = append(obj, field{key: k.Value, val: val})
		}
		return obj, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			items = append(items, val)
		}
		return items, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}
