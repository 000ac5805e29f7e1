package controller

import (
	"fmt"
	"plugin"
)

// DefaultPluginSymbol is the exported symbol a controller plugin provides.
const DefaultPluginSymbol = "Controller"

// PluginLoader loads controllers compiled with -buildmode=plugin. The
// symbol may be a function or a variable holding one.
type PluginLoader struct {
	Symbol string
}

// Load opens the plugin at path and looks up its factory.
func (l *PluginLoader) Load(path string) (Factory, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}

	name := l.Symbol
	if name == "" {
		name = DefaultPluginSymbol
	}
	sym, err := p.Lookup(name)
	if err != nil {
		return nil, err
	}
	return factoryOf(sym)
}

func factoryOf(sym any) (Factory, error) {
	switch f := sym.(type) {
	case Factory:
		return f, nil
	case func(Router) (Descriptor, error):
		return f, nil
	case *Factory:
		if f != nil {
			return *f, nil
		}
	case *func(Router) (Descriptor, error):
		if f != nil {
			return *f, nil
		}
	}
	return nil, fmt.Errorf("symbol has type %T, want controller.Factory", sym)
}
