package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/modoterra/logtap/internal/buildinfo"
	"github.com/modoterra/logtap/pkg/config"
	"github.com/modoterra/logtap/pkg/core"
	"github.com/modoterra/logtap/pkg/daemon"
	"github.com/modoterra/logtap/pkg/providers/docker"
	"github.com/modoterra/logtap/pkg/providers/logs/containerlogs"
	"github.com/modoterra/logtap/pkg/providers/logs/journald"
	"github.com/modoterra/logtap/pkg/providers/systemd"
)

var flags struct {
	config      string
	port        int
	heartbeat   int
	maxLines    int
	allow       string
	adminSocket string
	lister      string
	logLevel    string
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "logtapd",
	Short:         "Stream systemd and container logs to the browser",
	Long:          "logtapd follows journald units and container output and pushes normalized log events over Server-Sent Events and WebSockets.",
	SilenceUsage:  true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String("logtapd"))
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.config, "config", os.Getenv("LOGTAP_CONFIG"), "path to logtap.yaml")
	f.IntVar(&flags.port, "port", 0, "HTTP port (overrides PORT)")
	f.IntVar(&flags.heartbeat, "heartbeat", 0, "heartbeat interval in milliseconds (overrides HEARTBEAT_INTERVAL)")
	f.IntVar(&flags.maxLines, "max-lines", 0, "initial backlog lines per stream (overrides MAX_LOG_LINES)")
	f.StringVar(&flags.allow, "allow", "", "comma-separated daemon allow-list (overrides ALLOWED_DAEMONS)")
	f.StringVar(&flags.adminSocket, "admin-socket", "", "admin socket path (overrides LOGTAP_ADMIN_SOCKET)")
	f.StringVar(&flags.lister, "container-lister", "", "container lister: cli or api")
	f.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves file, .env and environment, then applies flags that
// were set explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Resolve(flags.config)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Port = flags.port
	}
	if f.Changed("heartbeat") {
		cfg.HeartbeatMs = flags.heartbeat
	}
	if f.Changed("max-lines") {
		cfg.MaxLogLines = flags.maxLines
	}
	if f.Changed("allow") {
		cfg.AllowedDaemons = config.ParseDaemonList(flags.allow)
	}
	if f.Changed("admin-socket") {
		cfg.AdminSocket = flags.adminSocket
	}
	if f.Changed("container-lister") {
		cfg.ContainerLister = flags.lister
	}
	if f.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(flags.logLevel)
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// containerLister picks the configured container source. The returned
// cleanup releases the API client, if any.
func containerLister(cfg *config.Config, logger *slog.Logger) (core.SourceLister, func(), error) {
	if cfg.ContainerLister == config.ListerAPI {
		api, err := docker.NewAPI(logger)
		if err != nil {
			return nil, nil, err
		}
		return api, func() { _ = api.Close() }, nil
	}
	return docker.New(logger), func() {}, nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	containers, closeContainers, err := containerLister(cfg, logger)
	if err != nil {
		return err
	}
	defer closeContainers()

	registry := daemon.NewRegistry(systemd.New(cfg.AllowedDaemons, cfg.UnitStatus, logger), containers)
	providers := []core.LogProvider{
		journald.New(cfg.AllowedDaemons),
		containerlogs.New(),
	}
	d := daemon.New(cfg, registry, providers, daemon.NewSupervisor(cfg.Niceness, logger), logger)
	d.SetVersion(buildinfo.Version)

	logger.Info("starting logtapd",
		"version", buildinfo.Version,
		"port", cfg.Port,
		"allowed_daemons", cfg.AllowedDaemons,
		"container_lister", cfg.ContainerLister,
		"config", cfg.FilePath,
	)

	ready := func() {
		if ok, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady); err != nil {
			logger.Debug("sd_notify ready", "err", err)
		} else if ok {
			logger.Debug("notified systemd")
		}
	}
	go func() {
		<-ctx.Done()
		_, _ = sddaemon.SdNotify(false, sddaemon.SdNotifyStopping)
	}()

	if err := d.Run(ctx, ready); err != nil {
		logger.Error("daemon error", "err", err)
		return err
	}
	logger.Info("stopped")
	return nil
}
