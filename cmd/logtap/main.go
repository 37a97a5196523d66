package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/modoterra/logtap/internal/buildinfo"
	"github.com/modoterra/logtap/pkg/config"
	"github.com/modoterra/logtap/pkg/core"
	"github.com/modoterra/logtap/pkg/daemon/service"
	"github.com/modoterra/logtap/pkg/transport/uds"
)

var (
	socketPath string
	jsonOutput bool
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "logtap",
	Short:        "Inspect a running logtapd",
	Long:         "logtap talks to logtapd over its admin socket and manages the logtapd systemd unit.",
	SilenceUsage: true,
}

func init() {
	defaultSocket := config.Default().AdminSocket
	if v := os.Getenv("LOGTAP_ADMIN_SOCKET"); v != "" {
		defaultSocket = v
	}
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", defaultSocket, "logtapd admin socket path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

func dialDaemon() (*uds.Client, error) {
	client, err := uds.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to logtapd at %s: %w", socketPath, err)
	}
	return client, nil
}

// call performs one admin request with a short timeout.
func call(method string, out any) error {
	client, err := dialDaemon()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Call(ctx, method, nil, out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Ping ---

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if logtapd is running",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var pong uds.PingResponse
		if err := call(uds.MethodPing, &pong); err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), pong)
		}
		if pong.Pong {
			fmt.Fprintf(cmd.OutOrStdout(), "pong ✓ logtapd %s, %d active stream(s)\n", pong.Version, pong.Sessions)
		}
		return nil
	},
}

// --- Sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List active log streams",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var infos []uds.SessionInfo
		if err := call(uds.MethodListSessions, &infos); err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), infos)
		}
		renderSessions(cmd.OutOrStdout(), infos)
		return nil
	},
}

func renderSessions(w io.Writer, infos []uds.SessionInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "no active streams")
		return
	}
	rows := make([][]string, 0, len(infos))
	for _, s := range infos {
		uptime := time.Duration(s.UptimeSec) * time.Second
		rows = append(rows, []string{s.Kind, s.SourceID, strconv.Itoa(s.PID), uptime.String(), formatBytes(s.RSSBytes), s.ID})
	}
	fmt.Fprintln(w, newTable("KIND", "SOURCE", "PID", "UPTIME", "RSS", "SESSION").Rows(rows...).String())
}

func formatBytes(n uint64) string {
	switch {
	case n == 0:
		return "-"
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%d KiB", n>>10)
	}
}

// --- Sources ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List streamable daemons and containers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var sources core.Sources
		if err := call(uds.MethodListSources, &sources); err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), sources)
		}
		renderSources(cmd.OutOrStdout(), sources)
		return nil
	},
}

func renderSources(w io.Writer, sources core.Sources) {
	all := append(append([]core.Source{}, sources.Daemons...), sources.Containers...)
	if len(all) == 0 {
		fmt.Fprintln(w, "no sources")
		return
	}
	rows := make([][]string, 0, len(all))
	for _, s := range all {
		status := s.Status
		if status == "" {
			status = "-"
		}
		rows = append(rows, []string{string(s.Type), s.Name, s.ID, status})
	}
	fmt.Fprintln(w, newTable("TYPE", "NAME", "ID", "STATUS").Rows(rows...).String())
}

func newTable(headers ...string) *table.Table {
	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = headerStyle.Render(h)
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(styled...)
}

// --- Service ---

var (
	serviceSystem bool
	serviceConfig string
)

func serviceScope() service.Scope {
	if serviceSystem {
		return service.ScopeSystem
	}
	return service.ScopeUser
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the logtapd systemd unit",
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and start logtapd as a systemd unit",
	Long:  "The unit carries the current configuration (file, .env and environment) as Environment= lines.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Resolve(serviceConfig)
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			return fmt.Errorf("invalid configuration: %v", errs[0])
		}
		if err := service.Install(serviceScope(), cfg.Environ()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logtapd installed as a %s unit ✓\n", serviceScope())
		return nil
	},
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the logtapd unit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := service.Uninstall(serviceScope()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "logtapd uninstalled ✓")
		return nil
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show admin socket and unit state",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), service.Status(serviceScope(), socketPath))
	},
}

func init() {
	serviceCmd.PersistentFlags().BoolVar(&serviceSystem, "system", false, "use the system instance instead of the user instance")
	serviceInstallCmd.Flags().StringVar(&serviceConfig, "config", "", "path to logtap.yaml")
	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String("logtap"))
	},
}
