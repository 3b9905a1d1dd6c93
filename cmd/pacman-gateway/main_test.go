// ABOUTME: Tests for the command tree, config resolution and the color log handler
// ABOUTME: Uses httptest to stand in for a running gateway

package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pacman-gateway/internal/agent"
	"github.com/2389/pacman-gateway/internal/config"
	"github.com/2389/pacman-gateway/internal/game"
)

func init() {
	color.NoColor = true
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 6001\n"), 0644))

	t.Run("defaults", func(t *testing.T) {
		t.Setenv(configEnvVar, "")
		cmd := newRootCmd()
		require.NoError(t, cmd.ParseFlags(nil))

		cfg, used, err := loadConfig(cmd, &options{})
		require.NoError(t, err)
		assert.Empty(t, used)
		assert.Equal(t, config.DefaultPort, cfg.Server.Port)
	})

	t.Run("env path", func(t *testing.T) {
		t.Setenv(configEnvVar, path)
		cmd := newRootCmd()
		require.NoError(t, cmd.ParseFlags(nil))

		cfg, used, err := loadConfig(cmd, &options{})
		require.NoError(t, err)
		assert.Equal(t, path, used)
		assert.Equal(t, 6001, cfg.Server.Port)
	})

	t.Run("invalid port", func(t *testing.T) {
		t.Setenv(configEnvVar, "")
		cmd := newRootCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--port", "0"}))

		_, _, err := loadConfig(cmd, &options{})
		assert.ErrorContains(t, err, "server.port")
	})

	t.Run("explicit port wins", func(t *testing.T) {
		t.Setenv(configEnvVar, "")
		cmd := newRootCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--port", "7001"}))

		cfg, _, err := loadConfig(cmd, &options{configPath: path})
		require.NoError(t, err)
		assert.Equal(t, 7001, cfg.Server.Port)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv(configEnvVar, filepath.Join(dir, "nope.yaml"))
		cmd := newRootCmd()
		require.NoError(t, cmd.ParseFlags(nil))

		_, _, err := loadConfig(cmd, &options{})
		assert.ErrorContains(t, err, "loading config")
	})
}

func writeHTTPConfig(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	addr := strings.TrimPrefix(srv.URL, "http://")
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_addr: \""+addr+"\"\n"), 0644))
	return path
}

func TestHealthCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	out, err := execute(t, "health", "--config", writeHTTPConfig(t, srv))
	require.NoError(t, err)
	assert.Equal(t, "healthy\n", out)
}

func TestHealthCmd_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := execute(t, "health", "--config", writeHTTPConfig(t, srv))
	assert.ErrorContains(t, err, "unhealthy")
}

func TestAgentsCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]agent.Info{
			{ID: 1, Kind: "greedy", Team: game.TeamPacman, Initialized: true, Iteration: 2},
		})
	}))
	defer srv.Close()

	out, err := execute(t, "agents", "--config", writeHTTPConfig(t, srv))
	require.NoError(t, err)
	assert.Contains(t, out, "TEAM")
	assert.Contains(t, out, "pacman")
	assert.Contains(t, out, "greedy")
}

func TestPrintAgents_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printAgents(&out, nil))
	assert.Equal(t, "no agents registered\n", out.String())
}

func TestColorHandler(t *testing.T) {
	var out bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "text"}, &out)

	logger.Debug("hidden")
	logger.With("component", "router").Info("registered agent", "agent_id", 1)
	logger.WithGroup("turn").Warn("slow", "ms", 12)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "INF registered agent component=router agent_id=1")
	assert.Contains(t, lines[1], "WRN slow turn.ms=12")
}

func TestSetupLogger_JSON(t *testing.T) {
	var out bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &out)
	logger.Debug("hello", "agent_id", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, float64(3), rec["agent_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("anything"))
}
