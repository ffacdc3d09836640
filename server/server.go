// Package server wires the HTTP API, metrics and the background recalculation runner.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/netvalue/internal/profile"
	"github.com/hrygo/netvalue/plugin/propagation"
	"github.com/hrygo/netvalue/server/middleware"
	apiv1 "github.com/hrygo/netvalue/server/router/api/v1"
	"github.com/hrygo/netvalue/server/runner/recalc"
	"github.com/hrygo/netvalue/server/service/network"
	"github.com/hrygo/netvalue/store"
)

// backgroundRunner runs until ctx is canceled.
type backgroundRunner interface {
	Run(ctx context.Context)
}

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	runner     backgroundRunner
	runnerDone sync.WaitGroup
	cancel     context.CancelFunc
}

func NewServer(_ context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.HTTPErrorHandler = apiv1.HTTPErrorHandler
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(middleware.RequestContext(slog.Default()))
	s.echoServer = echoServer

	echoServer.GET("/healthz", func(c echo.Context) error {
		if err := s.Store.Ping(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "Database not ready.")
		}
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	runner := recalc.NewRunner(store, RunnerConfig(profile))
	s.runner = runner
	networkService := network.NewService(store, network.Config{
		ValueScale: profile.ValueScale,
		Ceiling:    profile.Ceiling,
	})
	rateLimiter := middleware.NewRateLimiter(profile.RateLimitPerSecond, profile.RateLimitBurst)
	apiv1.NewAPIV1Service(profile, store, networkService, runner).
		RegisterRoutes(echoServer, rateLimiter.Middleware())

	return s, nil
}

// RunnerConfig builds the recalculation settings from the profile.
func RunnerConfig(profile *profile.Profile) recalc.Config {
	return recalc.Config{
		ValueScale: profile.ValueScale,
		Propagation: propagation.Options{
			Epsilon:       profile.Epsilon,
			MaxIterations: profile.MaxIterations,
			Ceiling:       profile.Ceiling,
		},
		ChunkSize:    profile.ChunkSize,
		ChunkTimeout: profile.ChunkTimeout,
		ChunkRetries: profile.ChunkRetries,
		Interval:     profile.RecalcInterval,
	}
}

// Start binds the listener, then serves requests and runs the recalculation runner in the background.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.runnerDone.Go(func() {
		s.runner.Run(ctx)
	})

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	slog.Info("netvalue server started", "address", listener.Addr().String(), "mode", s.Profile.Mode, "driver", s.Profile.Driver)
	return nil
}

// Shutdown stops the runner, drains the HTTP server and closes the store
// once the runner has returned.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	runnerDone := make(chan struct{})
	go func() {
		s.runnerDone.Wait()
		close(runnerDone)
	}()
	select {
	case <-runnerDone:
	case <-ctx.Done():
		slog.Warn("recalculation runner did not stop in time")
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("netvalue stopped properly")
}

// Handler exposes the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}
