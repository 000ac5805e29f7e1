package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// document is a decoded descriptor file whose handler values are still
// unresolved names.
type document []documentEntry

type documentEntry struct {
	path   string
	method string
	value  any
}

// FileLoader loads declarative descriptor files (YAML, TOML or JSON). The
// handler names they contain are resolved against Handlers when the
// factory runs.
type FileLoader struct {
	Handlers *Handlers
}

// NewFileLoader creates a FileLoader resolving names with h.
func NewFileLoader(h *Handlers) *FileLoader {
	return &FileLoader{Handlers: h}
}

// Load reads and decodes the file at path.
func (l *FileLoader) Load(path string) (Factory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		doc, err = decodeYAML(data)
	case ".toml":
		doc, err = decodeTOML(data)
	case ".json":
		doc, err = decodeJSON(data)
	default:
		return nil, fmt.Errorf("unsupported descriptor file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return func(Router) (Descriptor, error) {
		var d Descriptor
		for _, e := range doc {
			d = d.add(e.path, e.method, l.Handlers.Resolve(e.value))
		}
		return d, nil
	}, nil
}

// decodeYAML keeps the document order of paths and methods.
func decodeYAML(data []byte) (document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	top := resolve(root.Content[0])
	if top.Kind == yaml.ScalarNode && top.Tag == "!!null" {
		return nil, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: descriptor must be a mapping of paths", top.Line)
	}

	paths, err := pairs(top)
	if err != nil {
		return nil, err
	}

	var doc document
	for _, p := range paths {
		path, methods := p.key.Value, resolve(p.value)
		if methods.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: methods of %q must be a mapping", methods.Line, path)
		}
		entries, err := pairs(methods)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			var value any
			if err := resolve(e.value).Decode(&value); err != nil {
				return nil, err
			}
			doc = append(doc, documentEntry{
				path:   path,
				method: e.key.Value,
				value:  value,
			})
		}
	}
	return doc, nil
}

type pair struct {
	key, value *yaml.Node
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// pairs lists the entries of a mapping with "<<" merge keys expanded in
// place. Keys written in the mapping win over merged ones, and an earlier
// merged mapping wins over a later one.
func pairs(m *yaml.Node) ([]pair, error) {
	var out []pair
	index := map[string]int{}

	put := func(p pair, merged bool) {
		i, seen := index[p.key.Value]
		switch {
		case !seen:
			index[p.key.Value] = len(out)
			out = append(out, p)
		case !merged:
			out[i].value = p.value
		}
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		key, value := m.Content[i], m.Content[i+1]
		if key.ShortTag() != "!!merge" {
			put(pair{key, value}, false)
			continue
		}

		value = resolve(value)
		sources := []*yaml.Node{value}
		if value.Kind == yaml.SequenceNode {
			sources = value.Content
		}
		for _, src := range sources {
			src = resolve(src)
			if src.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: merge value must be a mapping", src.Line)
			}
			merged, err := pairs(src)
			if err != nil {
				return nil, err
			}
			for _, p := range merged {
				put(p, true)
			}
		}
	}
	return out, nil
}

func decodeTOML(data []byte) (document, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return fromRaw(raw)
}

func decodeJSON(data []byte) (document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return fromRaw(raw)
}

// fromRaw flattens a decoded mapping in sorted key order.
func fromRaw(raw map[string]any) (document, error) {
	var doc document
	for _, path := range sortedKeys(raw) {
		methods, ok := raw[path].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("methods of %q must be a mapping", path)
		}
		for _, method := range sortedKeys(methods) {
			doc = append(doc, documentEntry{path: path, method: method, value: methods[method]})
		}
	}
	return doc, nil
}
