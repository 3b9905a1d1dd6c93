// Package config handles configuration loading for pacman-gateway.
//
// # Overview
//
// Configuration is optional. Default returns a working setup; a YAML or TOML
// file loaded with Load overlays it. Environment variables are expanded
// before parsing.
//
// # Configuration File
//
// The file is chosen by, in order:
//
//  1. The --config flag
//  2. The PACMAN_CONFIG environment variable
//
// Files ending in .toml are decoded as TOML; everything else as YAML.
//
// # Environment Variable Expansion
//
//	server:
//	  http_addr: "${PACMAN_HTTP_ADDR}"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  host: ""                # empty binds every interface
//	  port: 5555              # adapter transport
//	  transport: "grpc"       # grpc, websocket
//	  http_addr: "localhost:8080"
//	  replay_ttl: "5m"
//	  replay_size: 10000      # 0 disables replays
//	  shutdown_timeout: "5s"
//
// Game rules:
//
//	game:
//	  eater_team: "pacman"
//	  first_iteration: 0
//
// Logging and metrics:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	metrics:
//	  enabled: true
//	  path: "/metrics"
package config
