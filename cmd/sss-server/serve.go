package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/labnation/sss-go/cmd/sss-server/interactive"
	"github.com/labnation/sss-go/internal/config"
	"github.com/labnation/sss-go/pkg/discovery"
	"github.com/labnation/sss-go/pkg/hardware/sim"
	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/netcfg"
	"github.com/labnation/sss-go/pkg/server"
)

func newServeCommand() *cobra.Command {
	var interactiveMode bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulated scope on the control and data sockets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, interactiveMode)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&interactiveMode, "interactive", "i", false, "Run an interactive console")
	f.String("bind", "", "Listen host for both sockets")
	f.Int("control-port", 0, "Control socket port (0 picks a free port)")
	f.Int("data-port", 0, "Data socket port (0 picks a free port)")
	f.Duration("control-timeout", 0, "Control socket accept/read timeout")
	f.Duration("data-timeout", 0, "Data socket accept/idle timeout")
	f.String("discovery", "", "Advertisement backend: zeroconf, avahi, none")
	f.String("name", "", "Advertised instance name")
	f.String("interface", "", "Network interface to advertise on")
	f.String("protocol-log", "", "Write CBOR protocol events to this file")
	f.Bool("router", false, "Enable the LEDE_* network commands")
	f.Bool("debug", false, "Report a debug flavor and log protocol events")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config, interactiveMode bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scope := sim.New(sim.DefaultConfig())

	var (
		console *interactive.Console
		out     io.Writer = os.Stderr
	)
	if interactiveMode {
		var err error
		console, err = interactive.New(scope)
		if err != nil {
			return err
		}
		out = console.Stderr()
	}
	logger := newLogger(out, cfg.Log.Level)

	protocolLogger, closeLog, err := newProtocolLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLog()

	advertiser, err := discovery.NewAdvertiser(cfg.Discovery.Backend, discovery.AdvertiserConfig{
		Interface: cfg.Discovery.Interface,
		TTL:       cfg.Discovery.TTL,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	var router netcfg.Configurator
	if cfg.Router.Enabled {
		router = netcfg.NewSimRouter([]netcfg.AccessPoint{
			{SSID: "SmartScope-lab", Signal: -42, Encryption: "psk2"},
			{SSID: "guest", Signal: -70},
		}, logger)
	}

	srv, err := server.New(server.Config{
		Hardware:       scope,
		Advertiser:     advertiser,
		Router:         router,
		ControlAddress: cfg.ControlAddress(),
		DataAddress:    cfg.DataAddress(),
		InstanceName:   cfg.Discovery.InstanceName,
		PollInterval:   cfg.Server.PollInterval,
		ControlTimeout: cfg.Server.ControlTimeout,
		DataTimeout:    cfg.Server.DataTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		Debug:          cfg.Debug,
		OnStateChange:  reportState(logger),
		ProtocolLogger: protocolLogger,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting", "flavor", srv.Flavor(), "discovery", cfg.Discovery.Backend)
	srv.Start()

	if console != nil {
		go console.Run(ctx, srv, stop)
	}

	err = srv.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("stopped")
	return err
}

// newProtocolLogger combines the protocol file and, at debug level, the
// console. The returned func closes the file.
func newProtocolLogger(cfg *config.Config, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if cfg.Log.ProtocolFile != "" {
		file, err := log.NewFileLogger(cfg.Log.ProtocolFile)
		if err != nil {
			return nil, nil, fmt.Errorf("protocol log: %w", err)
		}
		loggers = append(loggers, file)
		closeFn = func() {
			if dropped := file.Dropped(); dropped > 0 {
				logger.Warn("protocol log dropped events", "count", dropped)
			}
			file.Close()
		}
	}
	if cfg.Debug {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	multi := log.NewMultiLogger(loggers...)
	if multi.Len() == 0 {
		return nil, closeFn, nil
	}
	return multi, closeFn, nil
}

func reportState(logger *slog.Logger) func(*server.InterfaceServer) {
	return func(s *server.InterfaceServer) {
		switch s.State() {
		case server.StateStarted:
			logger.Info("listening", "control_port", s.ControlPort(), "data_port", s.DataPort())
			if err := s.AdvertiseErr(); err != nil {
				logger.Warn("not advertised", "error", err)
			}
		case server.StateStopped:
			if err := s.LastErr(); err != nil {
				logger.Error("start failed", "error", err)
				return
			}
			logger.Info("stopped listening")
		default:
			logger.Debug("state", "state", s.State())
		}
	}
}
