// ABOUTME: Scripted game adapter for E2E testing: plays small games against a running gateway.
// ABOUTME: Usage: fake-adapter [-addr localhost:5555] [-transport grpc] [-games 2] [-turns 20]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/2389/pacman-gateway/internal/transport"
)

func main() {
	addr := flag.String("addr", "localhost:5555", "gateway transport address")
	transportName := flag.String("transport", "grpc", "grpc or websocket")
	kind := flag.String("kind", "greedy", "decision unit kind for every agent")
	games := flag.Int("games", 2, "games to play")
	turns := flag.Int("turns", 20, "turns per game")
	width := flag.Int("width", 10, "map width")
	height := flag.Int("height", 5, "map height")
	seed := flag.Int64("seed", 1, "food placement seed")
	flag.Parse()

	if err := run(*addr, *transportName, script{
		kind:   *kind,
		games:  *games,
		turns:  *turns,
		width:  *width,
		height: *height,
		seed:   *seed,
	}); err != nil {
		log.Fatal(err)
	}
}

// closingExchanger is a transport client that must be closed.
type closingExchanger interface {
	transport.Exchanger
	Close() error
}

func run(addr, transportName string, s script) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var client closingExchanger
	var err error
	switch transportName {
	case "grpc":
		client, err = transport.DialGRPC(addr)
	case "websocket":
		client, err = transport.DialWebSocket(ctx, "ws://"+addr+"/ws")
	default:
		return fmt.Errorf("unknown transport %q", transportName)
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer client.Close()

	summary, err := play(ctx, client, s, os.Stderr)
	if err != nil {
		if ctx.Err() != nil {
			return nil // interrupted
		}
		return err
	}
	fmt.Println(summary)
	return nil
}
