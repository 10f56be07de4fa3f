package main

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/locsync/internal/config"
	"github.com/vango-dev/locsync/internal/errors"
	"github.com/vango-dev/locsync/pkg/journal"
	"github.com/vango-dev/locsync/pkg/location"
	"github.com/vango-dev/locsync/pkg/middleware"
	"github.com/vango-dev/locsync/pkg/server"
)

type serveFlags struct {
	configPath string
	addr       string
	logLevel   string
	journal    string
	history    string
	demo       bool
}

func serveCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the location sync server",
		Long: `Run the location sync server until interrupted.

Configuration is read from locsync.json when present; flags override it.

Examples:
  locsync serve
  locsync serve --demo
  locsync serve --addr=0.0.0.0:9000 --log-level=debug
  locsync serve --journal=s3 --config=/etc/locsync/locsync.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, os.Stderr, f.demo)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", config.ConfigFileName, "Path to locsync.json")
	cmd.Flags().StringVarP(&f.addr, "addr", "a", "", "Listen address host:port (default from config)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&f.journal, "journal", "", "Journal backend: none, memory, s3")
	cmd.Flags().StringVar(&f.history, "history", "", "Soft update mode: "+strings.Join(historyModes, ", "))
	cmd.Flags().BoolVar(&f.demo, "demo", false, "Serve a demo page that loads the client at every unclaimed path")

	return cmd
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist, and applies flag overrides.
func loadConfig(f serveFlags, explicit bool) (*config.Config, error) {
	cfg, err := config.LoadFile(f.configPath)
	switch {
	case err == nil:
	case errors.Is(err, "L100") && !explicit:
		cfg = config.New()
	default:
		return nil, err
	}

	if f.addr != "" {
		if err := cfg.SetAddress(f.addr); err != nil {
			return nil, err
		}
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.journal != "" {
		cfg.Journal.Backend = f.journal
	}
	if f.history != "" {
		cfg.History = f.history
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer, demo bool) error {
	logger, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	store, err := newJournalStore(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	srvCfg := serverConfig(cfg, logger, store)
	if demo {
		srvCfg.Handler = demoHandler()
	}
	srv := server.New(srvCfg)

	logger.Info("locsync serving",
		"address", srvCfg.Address,
		"history", cfg.History,
		"journal", cfg.Journal.Backend,
		"metrics", cfg.Metrics.Enabled,
		"tracing", cfg.Tracing.Enabled)

	if err := srv.Run(ctx); err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.New("L201").Wrap(err)
		}
		return errors.New("L200").WithDetailf("address %s", srvCfg.Address).Wrap(err)
	}
	return nil
}

// serverConfig builds the server configuration, including metrics and
// tracing observers.
func serverConfig(cfg *config.Config, logger *slog.Logger, store journal.Store) *server.ServerConfig {
	read, write, handshake, heartbeat := cfg.Session.Durations()

	srvCfg := &server.ServerConfig{
		Address:         cfg.Address(),
		ReadBufferSize:  cfg.Server.ReadBufferSize,
		WriteBufferSize: cfg.Server.WriteBufferSize,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		Session: &server.SessionConfig{
			ReadTimeout:       read,
			WriteTimeout:      write,
			HandshakeTimeout:  handshake,
			HeartbeatInterval: heartbeat,
			MaxMessageSize:    cfg.Session.MaxMessageSize,
			MaxEventQueue:     cfg.Session.MaxEventQueue,
		},
		MaxSessions:       cfg.Session.MaxSessions,
		HistoryMode:       cfg.HistoryMode(),
		Logger:            logger,
		JournalMaxEntries: cfg.Journal.MaxEntries,
		MetricsPath:       cfg.Metrics.Path,
		Journal:           store,
	}

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := middleware.Prometheus(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(registry),
		)
		srvCfg.Observers = append(srvCfg.Observers, metrics.Observer)
		srvCfg.Hooks = append(srvCfg.Hooks, metrics)
		srvCfg.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}

	if cfg.Tracing.Enabled {
		tracing := middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Tracing.TracerName),
			middleware.WithIncludeURL(cfg.Tracing.IncludeURLs()),
		)
		srvCfg.Observers = append(srvCfg.Observers, tracing.Observer)
	}

	return srvCfg
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.New("L500").WithDetailf("log level %q", cfg.Level).Wrap(err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}

// newJournalStore opens the configured journal backend. It returns nil for
// the "none" backend.
func newJournalStore(ctx context.Context, cfg config.JournalConfig) (journal.Store, error) {
	switch cfg.Backend {
	case config.JournalNone:
		return nil, nil
	case config.JournalMemory:
		return journal.NewMemoryStore(), nil
	case config.JournalS3:
		if cfg.Bucket == "" {
			return nil, errors.New("L401")
		}
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, errors.New("L402").Wrap(err)
		}
		return journal.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, errors.New("L400").WithDetailf("journal backend %q", cfg.Backend)
	}
}

// historyModes lists the accepted --history values.
var historyModes = []string{location.ModePush.String(), location.ModeReplace.String()}
