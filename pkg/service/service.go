package service

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ranorsolutions/http-common-go/pkg/db/postgres"
	logs "github.com/ranorsolutions/http-common-go/pkg/log/logger"
	"github.com/ranorsolutions/svc-controller-go/pkg/controller"
	"github.com/ranorsolutions/svc-controller-go/pkg/route"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	connectPostgres = postgres.Connect
	dialGRPC        = grpc.Dial
)

type Service struct {
	DB                 *sql.DB
	ServiceConnections map[string]*grpc.ClientConn
	Services           map[string]interface{}
	Logger             *logs.Logger
	Port               string
	HTTPHandlers       []*route.Handler
	Handlers           *controller.Handlers
	Controllers        ControllerConfig
}

// ControllerConfig says where controller descriptors are discovered and
// how they are loaded.
type ControllerConfig struct {
	Paths     []string
	Recursive bool
	Plugins   bool
	// Loader overrides the loader chosen from Plugins.
	Loader controller.Loader
}

type ServiceOption struct {
	GRPCCredential credentials.TransportCredentials
}

// New -- Create the common service from the environment
func New(serviceOpts ...ServiceOption) (*Service, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	// Create the service logger
	logger, err := logs.New(os.Getenv("SERVICE"), os.Getenv("VERSION"), os.Getenv("IS_TERMINAL") != "true")
	if err != nil {
		log.Fatalf("unable to create service logger")
	}

	// Connect to the Database
	connString := postgres.GetURIFromEnv()
	db, err := connectPostgres(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create db connection: %v", err)
	}
	logger.Info(fmt.Sprintf("Connected to database %s", connString.HostString()))

	grpcOptions := []grpc.DialOption{}
	if len(serviceOpts) > 0 {
		for _, option := range serviceOpts {
			if option.GRPCCredential != nil {
				grpcOptions = append(grpcOptions, grpc.WithTransportCredentials(option.GRPCCredential))
			}
		}
	} else {
		grpcOptions = append(grpcOptions, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	// Parse the service dependencies
	services := map[string]*grpc.ClientConn{}
	for _, dep := range splitList(os.Getenv("SERVICE_DEPS")) {
		name, addr, ok := strings.Cut(dep, "@")
		if !ok {
			continue
		}
		conn, err := dialGRPC(addr, grpcOptions...)
		if err != nil {
			return nil, err
		}
		services[name] = conn
		logger.Info(fmt.Sprintf("Registered %s service at %s", name, addr))
	}

	service := &Service{
		DB:                 db,
		ServiceConnections: services,
		Services:           map[string]interface{}{},
		Logger:             logger,
		Port:               port,
		Handlers:           controller.NewHandlers(),
		Controllers:        ControllerConfigFromEnv(),
	}

	return service, nil
}

// ControllerConfigFromEnv reads CONTROLLER_PATHS, CONTROLLER_RECURSIVE and
// CONTROLLER_PLUGINS.
func ControllerConfigFromEnv() ControllerConfig {
	return ControllerConfig{
		Paths:     splitList(os.Getenv("CONTROLLER_PATHS")),
		Recursive: envBool("CONTROLLER_RECURSIVE", true),
		Plugins:   envBool("CONTROLLER_PLUGINS", false),
	}
}

// Scanner builds the controller scanner for this service.
func (s *Service) Scanner(opts ...controller.Option) *controller.Scanner {
	cfg := s.Controllers
	loader := cfg.Loader
	conventions := controller.DefaultConventions
	if cfg.Plugins {
		conventions = controller.PluginConventions
		if loader == nil {
			loader = &controller.PluginLoader{}
		}
	}
	if loader == nil {
		loader = controller.NewFileLoader(s.Handlers)
	}

	base := []controller.Option{
		controller.WithRecursive(cfg.Recursive),
		controller.WithConventions(conventions),
	}
	return controller.NewScanner(loader, append(base, opts...)...)
}

func (s *Service) HandleErr(c *gin.Context, err error, message string, code int) {
	s.Logger.Error(message)
	if message == "" {
		c.JSON(code, gin.H{"error": err.Error()})
	} else {

		c.JSON(code, gin.H{"error": err.Error(), "details": message})
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
