package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chaz8081/bluno-link/internal/ble"
	"github.com/chaz8081/bluno-link/internal/config"
	"github.com/chaz8081/bluno-link/internal/hotkey"
	"github.com/chaz8081/bluno-link/internal/inject"
	"github.com/chaz8081/bluno-link/internal/session"
	"github.com/chaz8081/bluno-link/internal/trigger"
	"github.com/chaz8081/bluno-link/internal/ui"
)

func main() {
	// Exit directly so gohook's C cleanup never runs.
	// The OS reclaims the event hook on process exit.
	os.Exit(run())
}

func run() int {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/bluno-link/config.yaml)")
	headless := flag.Bool("headless", false, "print status lines instead of the terminal UI")
	initConfig := flag.Bool("init-config", false, "write a commented default config and exit")
	noHotkey := flag.Bool("no-hotkey", false, "disable the global send hotkey")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Printf("init-config: %v", err)
			return 1
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return 0
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return 0
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("config validation: %v", err)
		return 1
	}

	// The terminal UI owns the screen, so logs go to the log file.
	logOut := io.Writer(os.Stderr)
	if !*headless {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			log.Printf("log file: %v", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	if *headless {
		printBanner(cfg)
	}

	radio := ble.NewTinyGoRadio()
	defer radio.Close()

	opts := optionsFromConfig(cfg)
	if cfg.Output.Method != "none" {
		wedge := inject.NewWedge(inject.NewInjector(cfg.Output.Method), 16)
		defer wedge.Close()
		opts.Sink = wedge
		log.Printf("Keyboard wedge ready (method: %s)", cfg.Output.Method)
	}

	ctrl, err := session.New(radio, opts)
	if err != nil {
		log.Printf("session: %v", err)
		return 1
	}
	trig := trigger.New(ctrl, cfg.Protocol.CommandValue, cfg.Trigger.MinInterval)

	// Signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- ctrl.Run(ctx)
	}()

	if !*noHotkey {
		listener := hotkey.NewListener(cfg.Trigger.Hotkey)
		go listener.Start()
		go trigger.Forward(ctx, trig, listener.Events())
		log.Printf("Hotkey listener ready (%s)", strings.Join(cfg.Trigger.Hotkey, "+"))
	}

	if *headless {
		log.Println("Ready! Press", strings.Join(cfg.Trigger.Hotkey, "+"), "to send. Ctrl+C to quit.")
		// Returns once Run closes the status stream.
		ui.PrintStatuses(os.Stdout, ctrl.Statuses())
	} else {
		p := tea.NewProgram(ui.NewModel("bluno-link", actions{trig: trig, ctrl: ctrl}), tea.WithAltScreen())
		go ui.Forward(ctx, ctrl.Statuses(), p.Send)
		if _, err := p.Run(); err != nil {
			slog.Error("terminal UI failed", "error", err)
		}
		cancel()
	}

	if err := <-runErr; err != nil {
		log.Printf("session: %v", err)
		return 1
	}
	log.Println("Goodbye!")
	return 0
}

// actions connects the terminal UI keys to the controller.
type actions struct {
	trig *trigger.Trigger
	ctrl *session.Controller
}

func (a actions) Send() bool { return a.trig.Fire() }

func (a actions) Rescan() bool { return a.ctrl.Enqueue(session.RescanRequest{}) }

// optionsFromConfig maps the ble and protocol sections onto controller options.
func optionsFromConfig(cfg *config.Config) session.Options {
	opts := session.DefaultOptions()
	opts.ServiceUUID = cfg.BLE.ServiceUUID
	opts.CharacteristicUUID = cfg.BLE.CharacteristicUUID
	opts.WriteCharacteristicUUID = cfg.BLE.WriteCharacteristic
	opts.NameFilter = cfg.BLE.NameFilter
	opts.CommandWidth = cfg.Protocol.CommandWidth
	opts.ConnectTimeout = cfg.BLE.ConnectTimeout
	opts.DiscoveryTimeout = cfg.BLE.DiscoveryTimeout
	opts.SubscribeTimeout = cfg.BLE.SubscribeTimeout
	opts.AutoRescan = cfg.BLE.AutoRescan
	opts.RescanMax = cfg.BLE.RescanMax
	return opts
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	write := cfg.BLE.WriteCharacteristic
	if write == "" {
		write = cfg.BLE.CharacteristicUUID
	}
	fmt.Println("=== bluno-link ===")
	fmt.Printf("  Service: %s\n", cfg.BLE.ServiceUUID)
	fmt.Printf("  Notify:  %s\n", cfg.BLE.CharacteristicUUID)
	fmt.Printf("  Write:   %s (%d bytes, value %d)\n", write, cfg.Protocol.CommandWidth, cfg.Protocol.CommandValue)
	if cfg.BLE.NameFilter != "" {
		fmt.Printf("  Filter:  %q\n", cfg.BLE.NameFilter)
	}
	fmt.Printf("  Hotkey:  %s\n", strings.Join(cfg.Trigger.Hotkey, "+"))
	fmt.Printf("  Output:  %s\n", cfg.Output.Method)
	fmt.Printf("  Rescan:  %v\n", cfg.BLE.AutoRescan)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("==================")
}
