package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"i2cmitm-go/bus"
	"i2cmitm-go/drivers/bq24193"
	"i2cmitm-go/drivers/i2c/host"
	"i2cmitm-go/logging"
	"i2cmitm-go/platform"
	"i2cmitm-go/services/config"
	"i2cmitm-go/services/i2cmitm"
	"i2cmitm-go/types"

	"github.com/spf13/cobra"
)

type selftestFlags struct {
	configPath string
	voltage    int
	verbose    bool
}

func newSelftestCmd() *cobra.Command {
	flags := &selftestFlags{}

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the proxy against an emulated charger",
		Long: `Start the service on the host emulator, replay the stock firmware's
charger writes through it and check the charge voltage that lands in the
charger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelftest(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", config.DefaultPath, "Config file")
	cmd.Flags().IntVar(&flags.voltage, "voltage", 0, "Charge voltage in mV (overrides the config file)")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "Print transaction log lines")

	return cmd
}

// lockedWriter serialises writes from the service goroutine and ours.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func runSelftest(ctx context.Context, w io.Writer, flags *selftestFlags) error {
	out := &lockedWriter{w: w}
	log := logging.New(out, flags.verbose)
	cfg, err := loadConfig(flags.configPath, log)
	if err != nil {
		return err
	}
	if flags.voltage != 0 {
		mV, code, err := config.ParseVoltage(fmt.Sprint(flags.voltage))
		if err != nil {
			return err
		}
		cfg.Voltage, cfg.VoltageConfig = mV, code
	}
	fmt.Fprintln(out, cfg.LogLine())

	power := platform.NewPowerBus()
	drv := host.New(platform.HostFactory(map[string]*platform.HostI2C{platform.BusID(0): power}), nil)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	b := bus.NewBus(16)
	svc := i2cmitm.New(b.NewConnection("i2cmitm"), drv, cfg, log)
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()
	if err := waitReady(ctx, b); err != nil {
		return err
	}

	client := i2cmitm.NewClient(b.NewConnection("selftest"), config.PortI2C, types.ClientInfo{ProgramID: 0x010000000000001F})
	s, err := client.OpenSession2(ctx, types.DeviceCodeBq24193)
	if err != nil {
		return fmt.Errorf("open charger session: %w", err)
	}
	defer s.Close()
	fmt.Fprintf(out, "session %s intercepted: %t\n", s.ID(), s.Intercepted())

	steps := []struct {
		name string
		data []byte
	}{
		{"enable charging", []byte{bq24193.RegPowerOnConfig, 0x1B}},
		{"stock charge voltage", bq24193.ChargeVoltageCommand(bq24193.ChargeVoltageStockCode)},
	}
	for _, st := range steps {
		if err := s.Send(ctx, types.ConventionAutoSelect, st.data, types.OptionStartStop); err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
		fmt.Fprintf(out, "sent %s % x\n", st.name, st.data)
	}

	got, ok := power.Register(bq24193.AddressDefault, bq24193.RegChargeVoltage)
	if !ok {
		return fmt.Errorf("charger missing from emulated bus")
	}
	fmt.Fprintf(out, "charger REG04: 0x%02x (%d mV)\n", got, bq24193.DecodeChargeVoltage(got))
	if got != cfg.VoltageConfig {
		return fmt.Errorf("selftest failed: REG04 is 0x%02x, want 0x%02x", got, cfg.VoltageConfig)
	}
	fmt.Fprintln(out, "selftest ok")
	return nil
}

func waitReady(ctx context.Context, b *bus.Bus) error {
	conn := b.NewConnection("selftest-state")
	sub := conn.Subscribe(i2cmitm.StateTopic())
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("service not ready: %w", ctx.Err())
		case m := <-sub.Channel():
			if st, ok := m.Payload.(types.ServiceState); ok && st.Level == "ready" {
				return nil
			}
		}
	}
}
