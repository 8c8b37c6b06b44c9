package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/room-sync/config"
	"github.com/cwrk-planet/room-sync/internal/auth"
	"github.com/cwrk-planet/room-sync/internal/metrics"
	"github.com/cwrk-planet/room-sync/internal/roomstate"
	"github.com/cwrk-planet/room-sync/internal/service"
	grpcx "github.com/cwrk-planet/room-sync/internal/transport/grpc"
	httpx "github.com/cwrk-planet/room-sync/internal/transport/http"
	"github.com/cwrk-planet/room-sync/internal/transport/ws"
	"github.com/cwrk-planet/room-sync/pkg/logger"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting room-sync",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- auth ---
	validator, err := newValidator(cfg.Auth)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	// --- state ---
	// одно хранилище на оба транспорта
	store := roomstate.NewMemoryStore(roomstate.WithCapacity(cfg.Sync.EventLogCapacity))
	m := metrics.New()
	m.ObserveStore(store)

	syncSvc := service.NewSyncService(store, cfg.Sync.DefaultSinceWindow)

	// --- WS Hub & Server ---
	var hub *ws.Hub
	var wsHandler http.HandlerFunc
	if !cfg.Sync.PushDisabled {
		hub = ws.NewHub(store, m)
		wsServer := ws.NewServer(hub, validator, ws.Options{
			PingInterval:   cfg.WS.PingInterval,
			WriteTimeout:   cfg.WS.WriteTimeout,
			SendBuffer:     cfg.WS.SendBuffer,
			MaxMessageSize: cfg.WS.MaxMessageSize,
			AllowedOrigins: cfg.WS.AllowedOrigins,
		})
		wsHandler = wsServer.HandleWS
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	// --- HTTP ---
	if !cfg.HTTP.Disabled {
		router := httpx.NewRouter(httpx.Deps{
			Handler:        httpx.NewHandler(syncSvc),
			Validator:      validator,
			WS:             wsHandler,
			Metrics:        m.Handler(),
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			RequestTimeout: cfg.HTTP.RequestTimeout,
		})
		httpSrv := &http.Server{
			Addr:        cfg.HTTP.Addr,
			Handler:     router,
			ReadTimeout: cfg.HTTP.ReadTimeout,
			IdleTimeout: cfg.HTTP.IdleTimeout,
		}

		g.Go(func() error {
			slog.Info("http listen", "addr", cfg.HTTP.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
			defer cancel()
			// hijacked /ws соединения Shutdown не закрывает
			if hub != nil {
				hub.Close()
			}
			return httpSrv.Shutdown(shCtx)
		})
	}

	// --- gRPC ---
	if !cfg.GRPC.Disabled {
		grpcServer := grpcx.NewGRPCServer(cfg.GRPC.DeadlineGuard)
		hs := grpcx.Register(grpcServer, grpcx.NewServer(syncSvc, validator))

		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				return err
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			markNotServing(hs)
			grpcServer.GracefulStop()
			return nil
		})
	}

	// --- graceful shutdown ---
	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		stop()
		os.Exit(1)
	}
	st := store.Stats()
	slog.Info("stopped", "rooms", st.Rooms, "participants", st.Participants)
}

func newValidator(a config.Auth) (auth.Validator, error) {
	jc := auth.JWTConfig{
		Alg:       a.Alg,
		Secret:    []byte(a.JWTSecret),
		Issuer:    a.Issuer,
		Audience:  a.Audience,
		ClockSkew: a.ClockSkew,
	}
	if a.PublicKeyPath != "" {
		pk, err := auth.LoadRSAPublicKeyFromPEM(a.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		jc.PublicKey = pk
	}
	return auth.NewJWTValidator(jc, nil)
}

func markNotServing(hs *health.Server) {
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(grpcx.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
}
