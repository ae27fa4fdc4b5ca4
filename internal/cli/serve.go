package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"product-meta-viewer/internal/api"
	"product-meta-viewer/internal/auth"
	"product-meta-viewer/internal/config"
)

const (
	defaultAppName  = "ProductMetaViewer"
	shutdownTimeout = 30 * time.Second
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin page, JSON API and gRPC service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.Get())
		},
	}
}

// servers is the pair of listeners serve runs.
type servers struct {
	http *http.Server
	grpc *grpc.Server
}

func newServers(cfg *config.Config, a *app, authenticator *auth.Authenticator) *servers {
	httpAPIHandler := api.NewHTTPHandler(api.HandlerConfig{
		Reports:       a.reports,
		Matcher:       a.matcher,
		Authenticator: authenticator,
		Pinger:        a.pinger,
		PageURL:       cfg.Display.PageURL,
		CORSOrigins:   cfg.HttpServer.CORSOrigins,
		SearchRate:    cfg.Search.RateLimit,
		SearchBurst:   cfg.Search.RateBurst,
		ServiceName:   defaultAppName,
	})
	grpcAPIHandler := api.NewGRPCHandler(a.reports, a.matcher, cfg.Display.PageURL)

	httpRouter := chi.NewRouter()
	httpRouter.Use(middleware.RealIP)
	httpRouter.Use(middleware.Recoverer)
	httpRouter.Use(middleware.Timeout(60 * time.Second))
	httpAPIHandler.RegisterRoutes(httpRouter)

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		api.LoggingInterceptor,
		api.AuthInterceptor(authenticator),
	))
	api.RegisterProductMetaViewerServer(s, grpcAPIHandler)
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	if cfg.GrpcServer.Reflection {
		reflection.Register(s)
		log.Debug().Msg("gRPC reflection service registered")
	}

	return &servers{
		http: &http.Server{
			Addr:         ":" + cfg.HttpServer.Port,
			Handler:      httpRouter,
			ReadTimeout:  cfg.HttpServer.TimeoutRead,
			WriteTimeout: cfg.HttpServer.TimeoutWrite,
			IdleTimeout:  cfg.HttpServer.TimeoutIdle,
		},
		grpc: s,
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	authenticator, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Capability, cfg.Auth.JWTIssuer)
	if err != nil {
		return fmt.Errorf("serve requires JWT_SECRET: %w", err)
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	srv := newServers(cfg, a, authenticator)

	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		a.Close()
		return fmt.Errorf("failed to listen for gRPC on port %s: %w", cfg.GrpcServer.Port, err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("port", cfg.HttpServer.Port).Msg("HTTP server listening")
		if err := srv.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		log.Info().Str("port", cfg.GrpcServer.Port).Msg("gRPC server listening")
		if err := srv.grpc.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("Server failed, shutting down")
	}
	waitForShutdown(srv, a, shutdownTimeout)
	return runErr
}

// waitForShutdown drains both servers, forcing the gRPC server down once
// timeout passes, then closes the catalog.
func waitForShutdown(srv *servers, a *app, timeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stoppedGrpc := make(chan struct{})
	go func() {
		srv.grpc.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := srv.http.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server graceful shutdown failed")
	} else {
		log.Info().Msg("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		log.Info().Msg("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		log.Warn().Err(shutdownCtx.Err()).Msg("gRPC graceful shutdown timed out, forcing stop")
		srv.grpc.Stop()
	}

	if err := a.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing catalog")
	}
	log.Info().Msg("Graceful shutdown sequence completed")
}
