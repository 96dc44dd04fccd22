package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bleproximity/config"
	"bleproximity/logger"
	"bleproximity/monitor"
	"bleproximity/permission"
	"bleproximity/scanner"
	"bleproximity/telemetry"
	"bleproximity/tracer"
	"bleproximity/ui"
)

func main() {
	demo := flag.Bool("demo", false, "Run with simulated BLE devices (no hardware or root required)")
	configPath := flag.String("config", "", "Path to a YAML config file")
	headless := flag.Bool("headless", false, "Log tallies instead of drawing the terminal UI")
	flag.Parse()

	if err := run(*configPath, *demo, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "\n  [!] %v\n\n", err)
		os.Exit(1)
	}
}

func run(configPath string, demo, headless bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if demo {
		cfg.Demo = true
	}
	if !headless {
		config.ReserveTerminal(cfg)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Warn("tracer shutdown", "error", err)
		}
	}()

	var radio scanner.Radio
	if cfg.Demo {
		radio = scanner.NewDemoRadio()
	} else {
		radio = scanner.NewBluetoothRadio(log)
	}

	opts := []monitor.Option{
		monitor.WithLogger(log),
		monitor.WithPermissions(permission.NewProcess(cfg.Demo)),
	}
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			if cfg.MQTT.Broker, err = telemetry.DiscoverBroker(ctx, log); err != nil {
				return err
			}
		}
		pub, err := telemetry.Dial(ctx, cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, monitor.WithSink(pub))
	}

	m := monitor.New(radio, cfg, opts...)
	defer m.Close()

	if err := m.Start(ctx); err != nil {
		if cfg.Demo {
			return err
		}
		return fmt.Errorf("%w\n  [>] Or try:    bleproximity --demo", err)
	}

	log.Info("bleproximity started",
		"demo", cfg.Demo,
		"interval", cfg.Scan.Interval,
		"window", cfg.Scan.Window,
		"headless", headless,
	)

	if headless {
		return runHeadless(ctx, m, log)
	}
	if err := ui.New(m, cfg.Demo, log).Run(ctx); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}

// runHeadless scans until interrupted, logging one line per completed cycle.
func runHeadless(ctx context.Context, m *monitor.Monitor, log *slog.Logger) error {
	updates := make(chan struct{}, 1)
	unsubscribe := m.Subscribe(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if err := m.SetScanning(ctx, true); err != nil {
		if errors.Is(err, scanner.ErrPermissionDenied) {
			return fmt.Errorf("%v\n  [>] Run with:  sudo bleproximity --headless", err)
		}
		return err
	}

	var printed time.Time
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case <-updates:
			tally, at := m.Latest()
			if at.IsZero() || !at.After(printed) {
				continue
			}
			printed = at
			log.Info("tally",
				"near", tally.Near,
				"medium", tally.Medium,
				"far", tally.Far,
				"total", tally.Total(),
				"devices", len(m.Devices()),
			)
		}
	}
}
