package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ranorsolutions/svc-controller-go/pkg/auth"
	"github.com/ranorsolutions/svc-controller-go/pkg/firebase"
	"github.com/ranorsolutions/svc-controller-go/pkg/server"
	"github.com/ranorsolutions/svc-controller-go/pkg/service"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the service with the controllers found under CONTROLLER_PATHS",
		Long: `Build the service from the environment, register the auth and
Firebase middleware as handler names, mount every controller found under
CONTROLLER_PATHS at /api/$API_VERSION and serve gRPC and HTTP on $PORT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	svc, err := service.New()
	if err != nil {
		return err
	}

	authCfg := auth.ConfigFromEnv()
	if key := os.Getenv("AUTH_KEY"); key != "" {
		decrypter, err := auth.NewKMSDecrypter(ctx, key)
		if err != nil {
			return err
		}
		authCfg.Decrypter = decrypter
	}
	auth.Register(svc.Handlers, authCfg)

	if os.Getenv("FIREBASE_PROJECT_ID") != "" || os.Getenv("FIREBASE_CREDENTIALS") != "" {
		if _, err := firebase.NewFirebaseService(svc, nil); err != nil {
			return err
		}
	}

	srv, err := server.New(svc, apiVersion())
	if err != nil {
		return err
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func apiVersion() string {
	if v := os.Getenv("API_VERSION"); v != "" {
		return v
	}
	return "v1"
}
