// Package gateway orchestrates the pacman-gateway server components.
//
// # Overview
//
// The gateway owns the router (and through it the agent registry and session
// store), the request queue that feeds it, one adapter transport and an HTTP
// server for operations.
//
// # Transports
//
// server.transport selects how adapters connect on server.port:
//
//   - grpc: unary pacman.v1.Controller/Exchange carrying google.protobuf.Struct
//   - websocket: JSON envelopes on /ws, one reply per request
//
// # HTTP Endpoints
//
//   - GET /health - Liveness check
//   - GET /health/ready - 200 once at least one agent has registered
//   - GET /agents - Registered agents as JSON
//   - GET /metrics - Prometheus metrics, when metrics.enabled
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	err = gw.Run(ctx) // returns nil after cancel
//
// Nothing is persisted; registry and sessions are lost on exit.
package gateway
