package cli

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// propertyFlags are the flags shared by commands that write properties.
type propertyFlags struct {
	file   string
	masked []string
}

// bag builds the property bag from the file named by --file followed by
// key=value arguments. Later entries win. Keys listed in --mask are marked
// masked.
func (f *propertyFlags) bag(args []string) (*types.PropertyBag, error) {
	bag := types.NewPropertyBag()
	if f.file != "" {
		fromFile, err := loadPropertyFile(f.file)
		if err != nil {
			return nil, err
		}
		bag.Merge(fromFile)
	}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, userError("property %q: expected key=value", arg)
		}
		masked := false
		if p, found := bag.Lookup(key); found {
			masked = p.Masked
		}
		bag.SetProperty(types.Property{Key: key, Value: value, Masked: masked})
	}
	for _, key := range f.masked {
		p, ok := bag.Lookup(key)
		if !ok {
			return nil, userError("--mask %q: no such property given", key)
		}
		p.Masked = true
		bag.SetProperty(p)
	}
	return bag, nil
}

// loadPropertyFile reads a YAML property file. The document is either a
// mapping of key to value or a sequence of {key, value, masked} entries.
func loadPropertyFile(path string) (*types.PropertyBag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, userError("read property file: %v", err)
	}
	bag, err := parsePropertyYAML(data)
	if err != nil {
		return nil, userError("parse property file %s: %v", path, err)
	}
	return bag, nil
}

func parsePropertyYAML(data []byte) (*types.PropertyBag, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	bag := types.NewPropertyBag()
	if len(doc.Content) == 0 {
		return bag, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
		// Walk the node pairs directly to keep document order.
		for i := 0; i+1 < len(root.Content); i += 2 {
			k, v := root.Content[i], root.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: value of %q must be a scalar", v.Line, k.Value)
			}
			bag.Set(k.Value, v.Value)
		}
	case yaml.SequenceNode:
		var props []types.Property
		if err := root.Decode(&props); err != nil {
			return nil, err
		}
		for _, p := range props {
			if p.Key == "" {
				return nil, fmt.Errorf("property entry without key")
			}
			bag.SetProperty(p)
		}
	default:
		return nil, fmt.Errorf("line %d: expected a mapping or a list of properties", root.Line)
	}
	return bag, nil
}
