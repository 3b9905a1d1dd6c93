// Package transport carries request/reply envelopes between game adapters and
// the router.
//
// The router sees a single Endpoint. Adapters reach it over gRPC or a
// websocket; both servers feed the same Queue, which hands the router one
// request at a time and routes each reply back to the connection that asked.
package transport
