package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ideation-workspace/config"
	"ideation-workspace/export"
	apipresence "ideation-workspace/handlers/api/presence"
	"ideation-workspace/handlers/api/workspaces"
	"ideation-workspace/handlers/auth"
	"ideation-workspace/handlers/websocket"
	authMiddleware "ideation-workspace/middleware"
	"ideation-workspace/presence"
	"ideation-workspace/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(cfg *config.Config, b workspaces.Backend, svc *apipresence.Service, rd *export.Renderer) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/v2", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT)
			r.Route("/workspaces", func(r chi.Router) {
				r.Get("/", workspaces.HandleList(b))
				r.Post("/", workspaces.HandleCreate(b))
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", workspaces.HandleGet(b))
					r.Put("/", workspaces.HandleSave(b))
					r.Delete("/", workspaces.HandleDelete(b))
					r.Post("/actions", workspaces.HandleActions(b))
					r.Post("/export", workspaces.HandleExport(b, rd, cfg.Export.Padding))
					r.Route("/history", func(r chi.Router) {
						r.Get("/", workspaces.HandleHistory(b))
						r.Post("/undo", workspaces.HandleUndo(b))
						r.Post("/redo", workspaces.HandleRedo(b))
					})
					r.Route("/presence", func(r chi.Router) {
						r.Get("/", svc.HandleRoster())
						r.Post("/", svc.HandlePublish())
						r.Get("/stream", svc.HandleStream())
					})
				})
			})
		})
	})

	r.Get("/api/presence", svc.HandleChannels())
	r.Post("/auth/token", auth.HandleIssueToken())
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func waitForShutdown(srv *http.Server, ioo *socketio.Server, closers ...func() error) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	s := <-signalC
	logrus.WithField("signal", s.String()).Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ioo.Close(nil)
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to drain HTTP server")
	}
	for _, c := range closers {
		if err := c(); err != nil {
			logrus.WithError(err).Warn("Failed to close resource")
		}
	}
}

func main() {
	configPath := flag.String("config", "", "Optional YAML configuration file.")
	listenAddress := flag.String("listen", "", "The address to listen on (default :3002).")
	logLevel := flag.String("loglevel", "", "The log level (debug, info, warn, error).")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	if *listenAddress != "" {
		cfg.Listen = *listenAddress
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.Init(cfg.Auth.JWTSecret)
	if !auth.Enabled() {
		logrus.Warn("JWT_SECRET is not set, the API accepts anonymous requests")
	}

	ctx := context.Background()
	var closers []func() error

	var rc *redis.Client
	if cfg.UsesRedis() {
		rc = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rc.Ping(ctx).Err(); err != nil {
			logrus.WithField("addr", cfg.Redis.Addr).Fatalf("Failed to connect to redis: %v", err)
		}
		closers = append(closers, rc.Close)
	}

	store, err := stores.GetStore(ctx, cfg.Storage, rc)
	if err != nil {
		logrus.WithField("event", "open store").Fatal(err)
	}
	if c, ok := store.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	historyStore, closeHistory, err := stores.HistoryStore(cfg.History, store)
	if err != nil {
		logrus.WithField("event", "open history").Fatal(err)
	}
	closers = append([]func() error{closeHistory}, closers...)

	var transport presence.Transport = presence.NewLocalTransport()
	if cfg.Presence.Transport == "redis" {
		transport = presence.NewRedisTransport(rc)
	}
	logrus.WithField("transport", cfg.Presence.Transport).Info("Use presence transport")
	svc := apipresence.NewService(transport)

	backend := workspaces.Backend{Store: store, History: historyStore, MaxDepth: cfg.History.MaxDepth}
	renderer := export.NewRenderer(export.WithScale(cfg.Export.Scale))

	r := setupRouter(cfg, backend, svc, renderer)

	ioo, _ := websocket.SetupSocketIO(svc)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	srv := &http.Server{Addr: cfg.Listen, Handler: r}
	logrus.WithField("addr", cfg.Listen).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(srv, ioo, closers...)
}
