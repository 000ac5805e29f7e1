package http

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"regexp"

	"github.com/gin-gonic/gin"
	ctxmw "github.com/ranorsolutions/http-common-go/pkg/middleware/context"
	"github.com/ranorsolutions/svc-controller-go/pkg/controller"
	"github.com/ranorsolutions/svc-controller-go/pkg/metrics"
	"github.com/ranorsolutions/svc-controller-go/pkg/route"
	"github.com/ranorsolutions/svc-controller-go/pkg/service"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type HTTPService struct {
	Engine  *gin.Engine
	Server  *http.Server
	Service *service.Service
	App     *App
	Metrics *metrics.Metrics
}

// App is the router handle passed to controller factories. Factories that
// need the service can reach it with AppFrom.
type App struct {
	Service *service.Service

	routes  *route.Group
	metrics *metrics.Metrics
}

// Register implements controller.Router.
func (a *App) Register(method, path string, handlers ...gin.HandlerFunc) error {
	err := a.routes.Register(method, path, handlers...)
	a.metrics.ObserveRoute(method, err)
	return err
}

// AppFrom returns the App behind a controller.Router.
func AppFrom(r controller.Router) (*App, bool) {
	app, ok := r.(*App)
	return app, ok
}

// New creates a Gin HTTP service wrapping a given `service.Service`.
// It registers svc.HTTPHandlers and every controller found under
// svc.Controllers.Paths, mounted under /api/{version}.
func New(svc *service.Service, version string) (*HTTPService, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	engine := gin.New()
	engine.Use(ctxmw.GinContextToContextMiddleware())
	engine.Use(gin.Recovery())

	m := metrics.New(nil)
	app := &App{
		Service: svc,
		routes:  route.NewGroup(engine.Group(fmt.Sprintf("/api/%s", version))),
		metrics: m,
	}

	log := logrus.WithField("component", "controllers")
	parser := &controller.Parser{Logger: log}
	if err := parser.Parse(app, controller.FromHandlers(svc.HTTPHandlers)); err != nil {
		return nil, fmt.Errorf("registering http handlers: %w", err)
	}

	if len(svc.Controllers.Paths) > 0 {
		scanner := svc.Scanner(controller.WithLogger(log), controller.WrapLoader(m.Loader))
		if err := scanner.Scan(app, svc.Controllers.Paths...); err != nil {
			return nil, fmt.Errorf("registering controllers: %w", err)
		}
	}

	if os.Getenv("SWAGGER_ENABLED") == "true" {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if os.Getenv("METRICS_ENABLED") != "false" {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	server := &http.Server{Handler: engine}

	return &HTTPService{
		Server:  server,
		Engine:  engine,
		Service: svc,
		App:     app,
		Metrics: m,
	}, nil
}

// ListenAndServe starts serving requests on the given listener.
func (s *HTTPService) ListenAndServe(l net.Listener) error {
	s.Service.Logger.Info("HTTP server listening on %s", formatAddr(l.Addr().String()))
	return s.Server.Serve(l)
}

// formatAddr normalizes the listener address for readable logs.
func formatAddr(addr string) string {
	re := regexp.MustCompile(`\[::\]`)
	return re.ReplaceAllString(addr, "http://localhost")
}
