package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/research-gateway/internal/clients"
	"github.com/pribylovaa/research-gateway/internal/config"
	"github.com/pribylovaa/research-gateway/internal/credentials"
	"github.com/pribylovaa/research-gateway/internal/gateway"
	gwhttp "github.com/pribylovaa/research-gateway/internal/http"
	"github.com/pribylovaa/research-gateway/internal/http/handlers"
	"github.com/pribylovaa/research-gateway/internal/metrics"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting research-gateway", "env", cfg.Env, "persist", cfg.Session.Persist)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Хранилище credential и его персистентность.
	persister, closePersister, err := openPersister(rootCtx, cfg.Session)
	if err != nil {
		log.Error("persister_init_failed", slog.String("persist", cfg.Session.Persist), slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closePersister()

	storeOpts := []credentials.Option{credentials.WithLogger(log)}
	if persister != nil {
		storeOpts = append(storeOpts, credentials.WithPersister(persister, cfg.Timeouts.Service))
	}
	store := credentials.NewMemoryStore(storeOpts...)
	// Close дописывает последнюю запись до закрытия persister.
	defer store.Close()

	restored, err := store.Restore(rootCtx)
	if err != nil {
		log.Warn("session_restore_failed", slog.String("err", err.Error()))
	}
	log.Info("credential_store_initialized", slog.Bool("restored", restored))

	// Клиенты и координатор.
	cl := clients.New(*cfg, log)
	defer func() {
		if cerr := cl.Close(); cerr != nil {
			log.Warn("clients_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	coord := gateway.New(store, cl.Identity,
		gateway.WithExecutor(cl.Backend),
		gateway.WithObserver(metrics.New(prometheus.DefaultRegisterer)),
		gateway.WithLogger(log),
		gateway.WithRefreshTimeout(cfg.Session.RefreshTimeout),
		gateway.WithExpiryThreshold(cfg.Session.ExpiryThreshold),
	)
	coord.OnLogout(func(reason error) {
		if errors.Is(reason, gateway.ErrSessionClosed) {
			return
		}
		log.Warn("session_expired", slog.String("reason", reason.Error()))
	})

	grpc_prometheus.EnableClientHandlingTimeHistogram()

	if err := cl.DialBackend(coord); err != nil {
		log.Error("backend_dial_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("clients_initialized", slog.String("grpc_addr", cfg.Backend.GRPCAddr))

	var prober handlers.BackendProber
	if cl.Health != nil {
		prober = cl
	}

	apiHandler := gwhttp.NewRouter(
		handlers.New(coord, cl.Identity, prober, cfg.Backend.MaxBodyBytes),
		gwhttp.Options{
			Logger:  log,
			Timeout: cfg.Timeouts.Service,
			APIKey:  cfg.Security.APIKey,
		},
	)

	var ready int32 // 0 — not ready; 1 — ready

	// Служебный HTTP: liveness, readiness, метрики.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 && cl.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	servers := []*http.Server{
		{Addr: cfg.HTTP.Addr(), Handler: apiHandler, ReadHeaderTimeout: 5 * time.Second},
		{Addr: cfg.Metrics.Addr(), Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}

	g, gctx := errgroup.WithContext(rootCtx)

	for _, srv := range servers {
		srv := srv
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			log.Error("http_listen_failed", slog.String("addr", srv.Addr), slog.String("err", err.Error()))
			rootCancel()
			os.Exit(1)
		}
		log.Info("http_listen_start", slog.String("addr", srv.Addr))

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	atomic.StoreInt32(&ready, 1)
	log.Info("gateway_ready")

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown_requested")
		atomic.StoreInt32(&ready, 0)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("http_shutdown_incomplete", slog.String("addr", srv.Addr), slog.String("err", err.Error()))
			}
		}
		log.Info("http_stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("http_serve_failed", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
