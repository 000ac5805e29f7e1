package route

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrUnsupportedMethod is returned for method names the router cannot
// register.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// Handler is a single route registration: method, path and handler chain.
type Handler struct {
	Method  string
	Path    string
	Handler []gin.HandlerFunc
}

// Group registers routes on a gin engine or router group.
type Group struct {
	routes gin.IRoutes
}

// NewGroup wraps a gin router.
func NewGroup(routes gin.IRoutes) *Group {
	return &Group{routes: routes}
}

// Register adds the handler chain for method and path. Panics raised by gin
// (conflicting or malformed paths) are returned as errors.
func (g *Group) Register(method, path string, handlers ...gin.HandlerFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()

	switch strings.ToLower(method) {
	case "get":
		g.routes.GET(path, handlers...)
	case "post":
		g.routes.POST(path, handlers...)
	case "put":
		g.routes.PUT(path, handlers...)
	case "delete":
		g.routes.DELETE(path, handlers...)
	case "patch":
		g.routes.PATCH(path, handlers...)
	case "head":
		g.routes.HEAD(path, handlers...)
	case "options":
		g.routes.OPTIONS(path, handlers...)
	case "all", "any":
		g.routes.Any(path, handlers...)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
	return nil
}

// Table records registrations without serving them.
type Table struct {
	Routes []Handler
}

// Register appends the route to the table.
func (t *Table) Register(method, path string, handlers ...gin.HandlerFunc) error {
	t.Routes = append(t.Routes, Handler{
		Method:  strings.ToUpper(method),
		Path:    path,
		Handler: handlers,
	})
	return nil
}
