package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lexconsult/consult-client/internal/app"
	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/relay"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

func main() {
	// Logging setup
	slog.SetDefault(jsonLogger)
	// Load configuration
	ch := config.NewConfigHandler()
	relayConfig, err := ch.Config()
	if err != nil {
		slog.Error("loading the configuration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("loaded config", "config", relayConfig)
	// Set log level to "debug" if activated
	if relayConfig.DebugMode {
		logLevel.Set(slog.LevelDebug)
	}
	ch.HandleChanges(func(c config.Config, err error) {
		if err != nil {
			slog.Error("reloading the configuration failed", "error", err)
			return
		}
		// only the log level can change without a restart
		if c.DebugMode {
			logLevel.Set(slog.LevelDebug)
		} else {
			logLevel.Set(slog.LevelInfo)
		}
	})
	ch.Watch()
	// Setup
	e := echo.New()
	e.Pre(middleware.RequestID(), middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	// The banner and the port do not respect the logger formatting we set below so we remove them
	// the port will be logged further down when the server starts.
	e.HideBanner = true
	e.HidePort = true
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	// Version endpoint
	buildInfo, ok := debug.ReadBuildInfo()
	version := ""
	if ok && buildInfo != nil {
		version = buildInfo.Main.Version
	}
	e.GET("/version", func(c echo.Context) error {
		return c.String(http.StatusOK, version)
	})
	// Initialize the session, the refresh machinery and the clients
	appOptions := []app.AppOption{
		app.WithRedirectHook(func(ctx context.Context, route string) {
			slog.Warn("RELAY", "message", "the session ended, log in again through /session/login", "route", route)
		}),
	}
	if relayConfig.Monitoring.Prometheus.Enabled {
		appOptions = append(appOptions, app.WithRegisterer(prometheus.DefaultRegisterer))
	}
	consult, err := app.New(context.Background(), relayConfig, appOptions...)
	if err != nil {
		slog.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	// Proactive token refresh
	if consult.Refresher != nil {
		scheduler, err := consult.Refresher.GetScheduler()
		if err != nil {
			slog.Error("token refresher initialization failed", "error", err)
			os.Exit(1)
		}
		scheduler.StartAsync()
		defer scheduler.Stop()
	}
	// Initialize the relay
	relayServer, err := relay.NewServer(
		relay.WithClient(consult.Client),
		relay.WithStreamConsumer(consult.Stream),
		relay.WithSessionStore(consult.Store),
		relay.WithLoginRoute(relayConfig.API.LoginRoute),
	)
	if err != nil {
		slog.Error("relay handlers initialization failed", "error", err)
		os.Exit(1)
	}
	relayServer.RegisterHandlers(e, commonMiddlewares...)
	// Rate limiting
	if relayConfig.Server.RateLimits.Enabled {
		e.Use(middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(relayConfig.Server.RateLimits.Rate),
					Burst:     relayConfig.Server.RateLimits.Burst,
					ExpiresIn: 3 * time.Minute,
				}),
		),
		)
	}
	// CORS
	if len(relayConfig.Server.AllowOrigin) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: relayConfig.Server.AllowOrigin}))
	}
	// Sentry
	if relayConfig.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(relayConfig.Monitoring.Sentry.Dsn),
			TracesSampleRate: relayConfig.Monitoring.Sentry.SampleRate,
			Environment:      relayConfig.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("sentry initialization failed", "error", err)
		}
		e.Use(sentryecho.New(sentryecho.Options{}))
	}
	// Prometheus
	if relayConfig.Monitoring.Prometheus.Enabled {
		e.Use(echoprometheus.NewMiddleware("consult_relay"))
		go func() {
			metrics := echo.New()
			metrics.HideBanner = true
			metrics.HidePort = true
			metrics.GET("/metrics", echoprometheus.NewHandler())
			err := metrics.Start(fmt.Sprintf(":%d", relayConfig.Monitoring.Prometheus.Port))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("prometheus server failed to start", "error", err)
				os.Exit(1)
			}
		}()
	}
	// Start server
	address := fmt.Sprintf("%s:%d", relayConfig.Server.Host, relayConfig.Server.Port)
	slog.Info("starting the server on address " + address)
	go func() {
		err := e.Start(address)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("shutting down the server gracefuly failed", "error", err)
			os.Exit(1)
		}
	}()
	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("received signal to shut down the server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		slog.Error("shutting down the server gracefully failed", "error", err)
		os.Exit(1)
	}
}
