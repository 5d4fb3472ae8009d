package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"i2cmitm-go/bus"
	"i2cmitm-go/drivers/i2c/host"
	"i2cmitm-go/errcode"
	"i2cmitm-go/logging"
	"i2cmitm-go/platform"
	"i2cmitm-go/services/config"
	"i2cmitm-go/services/diag"
	"i2cmitm-go/services/heartbeat"
	"i2cmitm-go/services/i2cmitm"

	"github.com/spf13/cobra"
)

type serveFlags struct {
	configPath string
	backend    string
	diagAddr   string
	debug      bool
}

func newServeCmd() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proxy",
		Long: `Load the config file, open the I2C backend and serve the i2c and
i2c:pcv ports until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", config.DefaultPath, "Config file (.ini, .toml, .yaml)")
	cmd.Flags().StringVar(&flags.backend, "backend", platform.BackendHost, "I2C backend: host, linux")
	cmd.Flags().StringVar(&flags.diagAddr, "diag-addr", "", "Diagnostics listen address (overrides diag.listen)")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Log every transaction")

	return cmd
}

// loadConfig returns usable settings even when the file was rejected.
func loadConfig(path string, log logging.Sink) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errcode.Of(err) != errcode.InvalidConfig {
			return cfg, err
		}
		log.Errorf("%v; using %d mV", err, cfg.Voltage)
	}
	return cfg, nil
}

func runServe(ctx context.Context, flags *serveFlags) error {
	cfg, err := loadConfig(flags.configPath, logging.New(os.Stderr, false))
	if err != nil {
		return err
	}
	log := logging.New(os.Stderr, cfg.Debug || flags.debug)
	log.Infof("%s", cfg.LogLine())

	buses, err := platform.New(flags.backend)
	if err != nil {
		return err
	}
	drv := host.New(buses, nil)

	b := bus.NewBus(64)
	config.NewConfigService(cfg).Start(ctx, b.NewConnection("config"))

	svc := i2cmitm.New(b.NewConnection("i2cmitm"), drv, cfg, log.With("service", "i2cmitm"))
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	log.Infof("serving ports %v on %s backend", svc.Ports(), flags.backend)

	if err := heartbeat.New(log.With("service", "heartbeat")).Start(ctx, b.NewConnection("heartbeat")); err != nil {
		return err
	}

	addr := cfg.DiagListen
	if flags.diagAddr != "" {
		addr = flags.diagAddr
	}
	if addr != "" {
		d := diag.New(b.NewConnection("diag"), log.With("service", "diag"))
		go func() {
			if err := d.Run(ctx, addr); err != nil {
				log.Errorf("diag: %v", err)
			}
		}()
	}

	<-ctx.Done()
	<-done
	log.Infof("i2cmitm stopped")
	return nil
}
