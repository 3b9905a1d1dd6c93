// ABOUTME: Entry point for pacman-gateway, the multi-agent session router
// ABOUTME: Installs signal handling and runs the cobra command tree

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _ __   __ _  ___ _ __ ___   __ _ _ __         __ _  __ _| |_ _____      ____ _ _   _
 | '_ \ / _' |/ __| '_ ' _ \ / _' | '_ \ _____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
 | |_) | (_| | (__| | | | | | (_| | | | |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
 | .__/ \__,_|\___|_| |_| |_|\__,_|_| |_|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
 |_|                                           |___/                             |___/
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
