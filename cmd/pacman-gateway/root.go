// ABOUTME: Cobra command tree: serve (root), health, agents and version
// ABOUTME: Resolves configuration from --config, PACMAN_CONFIG and --port

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/pacman-gateway/internal/agent"
	"github.com/2389/pacman-gateway/internal/config"
	"github.com/2389/pacman-gateway/internal/gateway"
)

// configEnvVar names the environment variable holding a config file path.
const configEnvVar = "PACMAN_CONFIG"

type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "pacman-gateway",
		Short:         "Route Pac-Man game adapters to per-agent decision units",
		Long:          "pacman-gateway accepts messages from game adapters, keeps a registry of agents and their per-game sessions, and answers every turn with the action chosen by the agent's decision unit.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (YAML or .toml); defaults to $"+configEnvVar)
	rootCmd.Flags().IntP("port", "p", config.DefaultPort, "adapter transport port")

	rootCmd.AddCommand(
		newHealthCmd(opts),
		newAgentsCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// loadConfig returns the effective configuration. An explicit --port wins
// over the file.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, string, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv(configEnvVar)
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return nil, "", err
		}
		cfg.Server.Port = port
		if err := cfg.Validate(); err != nil {
			return nil, "", err
		}
	}
	return cfg, path, nil
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, path, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	_, _ = cyan.Fprint(out, banner)
	_, _ = gray.Fprintf(out, "    version: %s\n\n", version)

	if path == "" {
		path = "(defaults)"
	}
	printSetting(out, green, "Config:", path)
	printSetting(out, green, "Transport:", cfg.Server.Transport+" "+cfg.Server.Addr())
	printSetting(out, green, "HTTP:", cfg.Server.HTTPAddr)
	printSetting(out, green, "Eater:", cfg.Game.EaterTeam)
	_, _ = fmt.Fprintln(out)

	logger := setupLogger(cfg.Logging, out)
	logger.Info("starting pacman-gateway",
		"config", path,
		"transport", cfg.Server.Transport,
		"addr", cfg.Server.Addr(),
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	ctx := cmd.Context()
	if err := gw.Run(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		_, _ = yellow.Fprintln(out, "\n    interrupted, exiting")
	}
	return nil
}

func printSetting(out io.Writer, marker *color.Color, label, value string) {
	_, _ = marker.Fprint(out, "    ▶ ")
	_, _ = fmt.Fprintf(out, "%-10s %s\n", label, value)
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check gateway health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			body, status, err := fetch(cmd.Context(), fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr))
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			if status != http.StatusOK {
				return fmt.Errorf("unhealthy: status %d: %s", status, body)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return err
		},
	}
}

func newAgentsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List registered agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			body, status, err := fetch(cmd.Context(), fmt.Sprintf("http://%s/agents", cfg.Server.HTTPAddr))
			if err != nil {
				return fmt.Errorf("listing agents: %w", err)
			}
			if status != http.StatusOK {
				return fmt.Errorf("listing agents: status %d", status)
			}

			var agents []agent.Info
			if err := json.Unmarshal(body, &agents); err != nil {
				return fmt.Errorf("decoding agent list: %w", err)
			}
			return printAgents(cmd.OutOrStdout(), agents)
		},
	}
}

func printAgents(out io.Writer, agents []agent.Info) error {
	if len(agents) == 0 {
		_, err := fmt.Fprintln(out, "no agents registered")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTEAM\tKIND\tINITIALIZED\tITERATION")
	for _, a := range agents {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%d\n", a.ID, a.Team, a.Kind, a.Initialized, a.Iteration)
	}
	return tw.Flush()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}

func fetch(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}
	return body, resp.StatusCode, nil
}
