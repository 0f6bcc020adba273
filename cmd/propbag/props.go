package main

import (
	"strconv"

	"github.com/Neumenon/propbag/propbag"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// entry is one property in decode output.
type entry struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Value any    `yaml:"value"`
}

// bagFromYAML builds a Bag from either a mapping of name to scalar, where the
// YAML type picks the kind, or a sequence of entries as written by decode.
func bagFromYAML(data []byte) (*propbag.Bag, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "parse yaml")
	}
	bag := propbag.NewBag()
	if root.Kind == 0 {
		return bag, nil
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 {
		return nil, errors.New("input must be a single yaml document")
	}

	top := root.Content[0]
	switch top.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(top.Content); i += 2 {
			p, err := propertyFromNode(top.Content[i].Value, top.Content[i+1])
			if err != nil {
				return nil, err
			}
			bag.Set(p)
		}
	case yaml.SequenceNode:
		for _, item := range top.Content {
			p, err := propertyFromEntry(item)
			if err != nil {
				return nil, err
			}
			bag.Set(p)
		}
	default:
		return nil, errors.Errorf("line %d: input must be a mapping or a list of entries", top.Line)
	}
	return bag, nil
}

func propertyFromNode(name string, val *yaml.Node) (propbag.Property, error) {
	if val.Kind != yaml.ScalarNode {
		return propbag.Property{}, errors.Errorf("%s: line %d: value must be a scalar", name, val.Line)
	}
	switch val.ShortTag() {
	case "!!int":
		var v int64
		if err := val.Decode(&v); err != nil {
			return propbag.Property{}, errors.Wrapf(err, "%s: line %d", name, val.Line)
		}
		return propbag.Int(name, v), nil
	case "!!float":
		var v float64
		if err := val.Decode(&v); err != nil {
			return propbag.Property{}, errors.Wrapf(err, "%s: line %d", name, val.Line)
		}
		return propbag.Real(name, v), nil
	case "!!str":
		return propbag.Str(name, val.Value), nil
	}
	return propbag.Property{}, errors.Errorf("%s: line %d: unsupported value type %s", name, val.Line, val.ShortTag())
}

func propertyFromEntry(item *yaml.Node) (propbag.Property, error) {
	var raw struct {
		Name  string    `yaml:"name"`
		Kind  string    `yaml:"kind"`
		Value yaml.Node `yaml:"value"`
	}
	if err := item.Decode(&raw); err != nil {
		return propbag.Property{}, errors.Wrapf(err, "line %d", item.Line)
	}
	if raw.Value.Kind != yaml.ScalarNode {
		return propbag.Property{}, errors.Errorf("%s: line %d: value must be a scalar", raw.Name, item.Line)
	}

	// The kind field overrides the YAML type, so "value: 7" can be a str.
	switch raw.Kind {
	case "int":
		v, err := strconv.ParseInt(raw.Value.Value, 10, 64)
		if err != nil {
			return propbag.Property{}, errors.Wrapf(err, "%s: line %d", raw.Name, item.Line)
		}
		return propbag.Int(raw.Name, v), nil
	case "real":
		var v float64
		if err := raw.Value.Decode(&v); err != nil {
			return propbag.Property{}, errors.Wrapf(err, "%s: line %d", raw.Name, item.Line)
		}
		return propbag.Real(raw.Name, v), nil
	case "str":
		return propbag.Str(raw.Name, raw.Value.Value), nil
	case "":
		return propertyFromNode(raw.Name, &raw.Value)
	}
	return propbag.Property{}, errors.Errorf("%s: line %d: unknown kind %q", raw.Name, item.Line, raw.Kind)
}

// entriesOf lists props for decode output.
func entriesOf(props []propbag.Property) []entry {
	out := make([]entry, 0, len(props))
	for _, p := range props {
		e := entry{Name: p.Name, Kind: p.Kind.String()}
		switch p.Kind {
		case propbag.KindInt:
			e.Value = p.Int
		case propbag.KindReal:
			e.Value = p.Real
		case propbag.KindStr:
			e.Value = p.Str
		}
		out = append(out, e)
	}
	return out
}
