package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"os"
	"time"

	grpcsvc "github.com/ranorsolutions/svc-controller-go/pkg/grpc"
	"github.com/ranorsolutions/svc-controller-go/pkg/http"
	"github.com/ranorsolutions/svc-controller-go/pkg/service"
	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	GRPC     *grpcsvc.GRPCService
	HTTP     *http.HTTPService
	Listener net.Listener
	Service  *service.Service
	Version  string
}

func New(svc *service.Service, version string, creds ...grpc.ServerOption) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", svc.Port))
	if err != nil {
		return nil, fmt.Errorf("error creating net listener: %w", err)
	}

	srv := &Server{
		GRPC:     grpcsvc.New(svc, creds...),
		Listener: listener,
		Service:  svc,
		Version:  version,
	}

	return srv, nil
}

// Run serves gRPC and HTTP on the shared listener until ctx is done or one
// of them fails. SERVICE_PROTOCOL=http or =grpc disables the other side.
// Controllers are mounted before anything is served; a registration error
// is returned without serving.
func (s *Server) Run(ctx context.Context) error {
	protocol := os.Getenv("SERVICE_PROTOCOL")

	if protocol != "grpc" {
		httpService, err := http.New(s.Service, s.Version)
		if err != nil {
			s.Listener.Close()
			return fmt.Errorf("error creating http service: %w", err)
		}
		s.HTTP = httpService
		s.GRPC.SetServing(grpcsvc.ControllersHealthService, true)
	}

	m := cmux.New(s.Listener)
	g, ctx := errgroup.WithContext(ctx)

	if protocol != "http" {
		grpcListener := m.MatchWithWriters(
			cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"),
			cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc+proto"),
		)
		g.Go(stopped(ctx, func() error { return s.GRPC.Serve(grpcListener) }))
	}

	if s.HTTP != nil {
		httpListener := m.Match(cmux.HTTP1Fast())
		g.Go(stopped(ctx, func() error { return s.HTTP.ListenAndServe(httpListener) }))
	}

	g.Go(stopped(ctx, m.Serve))
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	})

	err := g.Wait()
	s.Service.Logger.Info(fmt.Sprintf("run server: %v", err))
	return err
}

// stopped drops the errors a serve loop returns because its listener was
// closed, once ctx is done. The shutdown goroutine then reports ctx.Err().
func stopped(ctx context.Context, serve func() error) func() error {
	return func() error {
		err := serve()
		if ctx.Err() != nil && closedErr(err) {
			return nil
		}
		return err
	}
}

func closedErr(err error) bool {
	return errors.Is(err, nethttp.ErrServerClosed) ||
		errors.Is(err, grpc.ErrServerStopped) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, cmux.ErrListenerClosed) ||
		errors.Is(err, cmux.ErrServerClosed)
}

// Shutdown stops both servers and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.GRPC.GracefulStop()

	if s.HTTP != nil {
		if err := s.HTTP.Server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	if err := s.Listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
