package controller

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ranorsolutions/svc-controller-go/pkg/route"
)

// Map is the literal form of a descriptor: path -> method -> handler value.
type Map map[string]map[string]any

// Descriptor is an ordered path -> method -> handler mapping describing
// the routes a controller wants registered.
type Descriptor []Route

// Route holds the method entries declared for a single path.
type Route struct {
	Path    string
	Methods []Method
}

// Method pairs a lower-cased HTTP method name with its handler entry.
type Method struct {
	Name  string
	Entry HandlerEntry
}

// HandlerEntry is either Valid or Invalid. Validity is decided once, when
// the descriptor is built.
type HandlerEntry interface {
	isHandlerEntry()
}

// Valid is a handler chain that can be registered.
type Valid struct {
	Handlers []gin.HandlerFunc
}

// Invalid keeps the raw value that could not be turned into a handler.
type Invalid struct {
	Raw any
}

func (Valid) isHandlerEntry()   {}
func (Invalid) isHandlerEntry() {}

// Classify turns an arbitrary value into a HandlerEntry.
func Classify(v any) HandlerEntry {
	switch h := v.(type) {
	case gin.HandlerFunc:
		if h != nil {
			return Valid{Handlers: []gin.HandlerFunc{h}}
		}
	case func(*gin.Context):
		if h != nil {
			return Valid{Handlers: []gin.HandlerFunc{h}}
		}
	case []gin.HandlerFunc:
		if validChain(h) {
			return Valid{Handlers: append([]gin.HandlerFunc(nil), h...)}
		}
	case http.HandlerFunc:
		if h != nil {
			return Valid{Handlers: []gin.HandlerFunc{gin.WrapF(h)}}
		}
	case func(http.ResponseWriter, *http.Request):
		if h != nil {
			return Valid{Handlers: []gin.HandlerFunc{gin.WrapF(h)}}
		}
	case http.Handler:
		if h != nil {
			return Valid{Handlers: []gin.HandlerFunc{gin.WrapH(h)}}
		}
	}
	return Invalid{Raw: v}
}

func validChain(chain []gin.HandlerFunc) bool {
	if len(chain) == 0 {
		return false
	}
	for _, h := range chain {
		if h == nil {
			return false
		}
	}
	return true
}

// Handle appends an entry for path and method, grouping it with any
// earlier entries for the same path.
func (d Descriptor) Handle(path, method string, handler any) Descriptor {
	return d.add(path, method, Classify(handler))
}

func (d Descriptor) add(path, method string, entry HandlerEntry) Descriptor {
	m := Method{Name: strings.ToLower(method), Entry: entry}
	for i := range d {
		if d[i].Path == path {
			d[i].Methods = append(d[i].Methods, m)
			return d
		}
	}
	return append(d, Route{Path: path, Methods: []Method{m}})
}

// Len returns the number of method entries in the descriptor.
func (d Descriptor) Len() int {
	n := 0
	for _, r := range d {
		n += len(r.Methods)
	}
	return n
}

// FromMap builds a Descriptor from its literal form. Paths and methods are
// taken in sorted order.
func FromMap(m Map) Descriptor {
	var d Descriptor
	for _, path := range sortedKeys(m) {
		methods := m[path]
		for _, method := range sortedKeys(methods) {
			d = d.Handle(path, method, methods[method])
		}
	}
	return d
}

// FromHandlers builds a Descriptor from a flat list of route handlers.
func FromHandlers(handlers []*route.Handler) Descriptor {
	var d Descriptor
	for _, h := range handlers {
		if h == nil {
			continue
		}
		d = d.Handle(h.Path, h.Method, h.Handler)
	}
	return d
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d Descriptor) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, r := range d {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.Path)
		b.WriteString(": {")
		for j, m := range r.Methods {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.Name)
			b.WriteString(": ")
			switch e := m.Entry.(type) {
			case Valid:
				fmt.Fprintf(&b, "handler(%d)", len(e.Handlers))
			case Invalid:
				fmt.Fprintf(&b, "%#v", e.Raw)
			}
		}
		b.WriteString("}")
	}
	b.WriteString("}")
	return b.String()
}
