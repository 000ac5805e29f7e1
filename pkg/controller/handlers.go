package controller

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Handlers resolves the handler names used in descriptor files.
//
// Handlers is filled at startup and is not safe for concurrent Register
// calls.
type Handlers struct {
	named    map[string][]gin.HandlerFunc
	prefixes map[string]func(arg string) (gin.HandlerFunc, bool)
	fallback func(name string) gin.HandlerFunc
}

// NewHandlers returns an empty registry.
func NewHandlers() *Handlers {
	return &Handlers{
		named:    map[string][]gin.HandlerFunc{},
		prefixes: map[string]func(string) (gin.HandlerFunc, bool){},
	}
}

// Register binds name to a handler chain.
func (h *Handlers) Register(name string, chain ...gin.HandlerFunc) *Handlers {
	h.named[name] = chain
	return h
}

// Prefix binds every name of the form "prefix:arg" to fn(arg).
func (h *Handlers) Prefix(prefix string, fn func(arg string) (gin.HandlerFunc, bool)) *Handlers {
	h.prefixes[prefix] = fn
	return h
}

// Fallback resolves names nothing else matched.
func (h *Handlers) Fallback(fn func(name string) gin.HandlerFunc) *Handlers {
	h.fallback = fn
	return h
}

// Lookup resolves name to a non-empty handler chain.
func (h *Handlers) Lookup(name string) ([]gin.HandlerFunc, bool) {
	if h == nil {
		return nil, false
	}
	if chain, ok := h.named[name]; ok && validChain(chain) {
		return chain, true
	}
	if prefix, arg, ok := strings.Cut(name, ":"); ok {
		if fn, ok := h.prefixes[prefix]; ok {
			if hf, ok := fn(arg); ok && hf != nil {
				return []gin.HandlerFunc{hf}, true
			}
		}
	}
	if h.fallback != nil {
		if hf := h.fallback(name); hf != nil {
			return []gin.HandlerFunc{hf}, true
		}
	}
	return nil, false
}

// Resolve turns a decoded descriptor value into a HandlerEntry. A string
// names one handler; a list of strings names a chain. Anything else, or any
// unknown name, is Invalid.
func (h *Handlers) Resolve(v any) HandlerEntry {
	var names []string
	switch val := v.(type) {
	case string:
		names = []string{val}
	case []string:
		names = val
	case []any:
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return Invalid{Raw: v}
			}
			names = append(names, s)
		}
	default:
		return Invalid{Raw: v}
	}
	if len(names) == 0 {
		return Invalid{Raw: v}
	}

	var chain []gin.HandlerFunc
	for _, name := range names {
		resolved, ok := h.Lookup(name)
		if !ok {
			return Invalid{Raw: v}
		}
		chain = append(chain, resolved...)
	}
	return Valid{Handlers: chain}
}
