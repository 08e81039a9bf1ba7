package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/linkpulse/linkpulse/pkg/rpc"
	"github.com/linkpulse/linkpulse/pkg/types"
	"github.com/linkpulse/linkpulse/server/internal/alerts"
	"github.com/linkpulse/linkpulse/server/internal/api"
	"github.com/linkpulse/linkpulse/server/internal/auth"
	"github.com/linkpulse/linkpulse/server/internal/config"
	"github.com/linkpulse/linkpulse/server/internal/history"
	"github.com/linkpulse/linkpulse/server/internal/receiver"
	"github.com/linkpulse/linkpulse/server/internal/report"
	"github.com/linkpulse/linkpulse/server/internal/store"
	"github.com/linkpulse/linkpulse/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve dashboard static files from this directory; leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("linkpulse-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"snapshot_ttl", cfg.Server.Snapshot.TTL,
		"history", cfg.Server.History.Path,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *uiDir); err != nil {
		slog.Error("linkpulse-server stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("linkpulse-server shut down")
}

func run(ctx context.Context, cfg *config.Config, uiDir string) error {
	sc := cfg.Server

	st := store.New(sc.Snapshot.TTL)
	alertEngine := alerts.New(sc.Alerts)
	charts := report.New(sc.Charts.Width, sc.Charts.Height)

	hist, err := history.Open(sc.History.Path)
	if err != nil {
		return err
	}
	defer hist.Close()

	hub := ws.New(st, sc.Stream.Interval, ws.WithAlerts(alertEngine))

	rec := receiver.New(st, alertEngine, hist)
	rec.OnStored(func(*types.Snapshot) { hub.Notify() })

	interceptor := auth.APIKeyInterceptor(sc.Auth.Mode, sc.Auth.EffectiveHeader(), sc.Auth.Key())
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	rpc.RegisterSnapshotServiceServer(grpcSrv, rec)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", sc.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen on gRPC port %d: %w", sc.GRPCPort, err)
	}

	apiHandler := api.New(st, api.Deps{Alerts: alertEngine, History: hist, Charts: charts})
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle("/ws/stream", hub)
	if uiDir != "" {
		mux.HandleFunc("/", spaHandler(uiDir))
		slog.Info("serving UI static files", "dir", uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           auth.HTTPMiddleware(sc.Auth.Mode, sc.Auth.EffectiveHeader(), sc.Auth.Key(), mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st.Run(gctx)
		return nil
	})
	g.Go(func() error {
		hist.Run(gctx, sc.History.Retention, sc.History.PruneInterval)
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("gRPC receiver listening", "port", sc.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("HTTP server listening", "port", sc.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("linkpulse-server shutting down")
		grpcSrv.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// spaHandler serves files from dir and falls back to index.html for unknown
// paths so client-side routing works.
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	}
}
