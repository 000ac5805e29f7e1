package controller

import (
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ranorsolutions/svc-controller-go/pkg/route"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// named returns a handler that writes its own name, so tests can tell
// registered handlers apart.
func named(name string) gin.HandlerFunc {
	return func(c *gin.Context) { c.String(200, name) }
}

// call runs a handler chain against a test context and returns the body.
func call(chain []gin.HandlerFunc) string {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("GET", "/", nil)
	for _, h := range chain {
		h(c)
	}
	return rec.Body.String()
}

// registration is a flattened, comparable form of a recorded route.
type registration struct {
	Method string
	Path   string
	Body   string
}

func registrations(tbl *route.Table) []registration {
	var out []registration
	for _, r := range tbl.Routes {
		out = append(out, registration{Method: r.Method, Path: r.Path, Body: call(r.Handler)})
	}
	return out
}

// failingRouter accepts a fixed number of routes, then fails.
type failingRouter struct {
	route.Table
	accept int
}

func (f *failingRouter) Register(method, path string, handlers ...gin.HandlerFunc) error {
	if len(f.Routes) >= f.accept {
		return errors.New("router refused route")
	}
	return f.Table.Register(method, path, handlers...)
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

// writeTree creates files under root. Keys ending in "/" create empty
// directories.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			require.NoError(t, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func testHandlers() *Handlers {
	return NewHandlers().
		Register("fn1", named("fn1")).
		Register("fn2", named("fn2")).
		Register("fn3", named("fn3")).
		Register("fn4", named("fn4"))
}

// routerFunc records the raw method and path it was called with.
type routerFunc func(method, path string)

func (f routerFunc) Register(method, path string, _ ...gin.HandlerFunc) error {
	f(method, path)
	return nil
}
