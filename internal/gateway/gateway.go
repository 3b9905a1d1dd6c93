// ABOUTME: Gateway orchestrator that wires the router to its transport and HTTP servers
// ABOUTME: Manages listeners, the router loop, health endpoints and shutdown

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/2389/pacman-gateway/internal/agent"
	"github.com/2389/pacman-gateway/internal/behavior"
	"github.com/2389/pacman-gateway/internal/config"
	"github.com/2389/pacman-gateway/internal/game"
	"github.com/2389/pacman-gateway/internal/metrics"
	"github.com/2389/pacman-gateway/internal/replay"
	"github.com/2389/pacman-gateway/internal/router"
	"github.com/2389/pacman-gateway/internal/session"
	"github.com/2389/pacman-gateway/internal/transport"
)

// WebSocketPath is where the websocket transport accepts adapters.
const WebSocketPath = "/ws"

// Gateway orchestrates the pacman-gateway server components.
// It runs the router loop behind one adapter transport and serves health
// and metrics over HTTP.
type Gateway struct {
	config  *config.Config
	router  *router.Router
	queue   *transport.Queue
	metrics *metrics.Metrics
	logger  *slog.Logger

	// replay is nil when replays are disabled
	replay *replay.Cache

	// exactly one of grpcServer and wsServer is set, per server.transport
	grpcServer *grpc.Server
	wsServer   *http.Server

	httpServer *http.Server

	// serverID identifies this gateway instance
	serverID string

	// stopped is closed by the first Shutdown
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates a gateway from cfg. Nothing listens until Run.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	gw := &Gateway{
		config:   cfg,
		metrics:  metrics.New(),
		logger:   logger,
		serverID: generateServerID(),
		stopped:  make(chan struct{}),
	}

	if cfg.Server.ReplaySize > 0 {
		gw.replay = replay.New(cfg.Server.ReplayTTL, cfg.Server.ReplaySize)
	}
	gw.queue = transport.NewQueue(gw.replay, logger.With("component", "transport"))

	registry := agent.NewRegistry(
		behavior.DefaultCatalog(),
		cfg.Game.FirstIteration,
		logger.With("component", "registry"),
	)
	sessions := session.NewStore(logger.With("component", "sessions"))
	gw.router = router.New(
		registry,
		sessions,
		gw.queue,
		game.Team(cfg.Game.EaterTeam),
		gw.metrics,
		logger.With("component", "router"),
	)

	switch cfg.Server.Transport {
	case config.TransportGRPC:
		gw.grpcServer = grpc.NewServer(
			grpc.KeepaliveParams(keepalive.ServerParameters{
				Time:    15 * time.Second,
				Timeout: 5 * time.Second,
			}),
			grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
				MinTime:             5 * time.Second,
				PermitWithoutStream: true,
			}),
		)
		transport.RegisterGRPC(gw.grpcServer, gw.queue, logger.With("component", "grpc"))
	case config.TransportWebSocket:
		wsMux := http.NewServeMux()
		wsMux.Handle(WebSocketPath, transport.NewWebSocketServer(gw.queue, logger.With("component", "websocket")))
		gw.wsServer = &http.Server{
			Handler:           wsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/health/ready", gw.handleReady)
	mux.HandleFunc("/agents", gw.handleAgents)
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, gw.metrics.Handler())
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Router returns the gateway's router.
func (g *Gateway) Router() *router.Router {
	return g.router
}

// ServerID returns the identifier of this gateway instance.
func (g *Gateway) ServerID() string {
	return g.serverID
}

// setupListeners opens the transport and HTTP listeners.
func (g *Gateway) setupListeners() (transportLn, httpLn net.Listener, err error) {
	g.logger.Info("starting gateway",
		"server_id", g.serverID,
		"transport", g.config.Server.Transport,
		"addr", g.config.Server.Addr(),
		"http_addr", g.config.Server.HTTPAddr,
	)

	transportLn, err = net.Listen("tcp", g.config.Server.Addr())
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s address: %w", g.config.Server.Transport, err)
	}

	httpLn, err = net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		_ = transportLn.Close()
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}

	return transportLn, httpLn, nil
}

// Run starts the router and servers and blocks until ctx is canceled or one
// of them fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	transportLn, httpLn, err := g.setupListeners()
	if err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return g.router.Run(egCtx)
	})

	eg.Go(func() error {
		g.logger.Info("transport listening",
			"transport", g.config.Server.Transport,
			"addr", transportLn.Addr().String(),
		)
		if g.grpcServer != nil {
			if err := g.grpcServer.Serve(transportLn); err != nil {
				return fmt.Errorf("gRPC server: %w", err)
			}
			return nil
		}
		if err := g.wsServer.Serve(transportLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("websocket server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		select {
		case <-egCtx.Done():
		case <-g.stopped:
			return nil
		}
		if ctx.Err() != nil {
			g.logger.Info("context canceled, initiating shutdown")
		}
		return g.gracefulShutdown()
	})

	return eg.Wait()
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
func (g *Gateway) gracefulShutdown() error {
	timeout := g.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return g.Shutdown(ctx)
}

func (g *Gateway) shutdownGRPCServer(ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		g.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		g.grpcServer.Stop()
	}
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the servers, wakes any adapter still waiting on the router
// and releases the replay cache. Router state is not persisted.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")
	g.stopOnce.Do(func() { close(g.stopped) })

	// Closing the queue first fails pending exchanges so graceful stops can finish.
	g.queue.Close()

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.grpcServer != nil {
		g.shutdownGRPCServer(ctx)
	}
	if g.wsServer != nil {
		errs = appendCloseError(errs, "websocket shutdown", g.wsServer.Shutdown(ctx))
	}

	if g.replay != nil {
		g.replay.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once at least one agent has registered.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	n := g.router.Registry().Len()
	if n == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no agents registered"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d agents)", n)
}

// handleAgents lists registered agents as JSON.
func (g *Gateway) handleAgents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(g.router.Registry().List()); err != nil {
		g.logger.Warn("failed to encode agent list", "error", err)
	}
}

// generateServerID creates a unique identifier for this gateway instance.
func generateServerID() string {
	return "pacman-gateway-" + uuid.NewString()[:8]
}
