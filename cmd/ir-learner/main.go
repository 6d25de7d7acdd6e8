// Command ir-learner learns one IR remote signal from two push buttons and
// replays it on demand, reporting outcomes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/ir-learner/internal/config"
	"github.com/sweeney/ir-learner/internal/control"
	"github.com/sweeney/ir-learner/internal/fingerprint"
	"github.com/sweeney/ir-learner/internal/gpio"
	"github.com/sweeney/ir-learner/internal/ir"
	"github.com/sweeney/ir-learner/internal/logic"
	"github.com/sweeney/ir-learner/internal/metrics"
	"github.com/sweeney/ir-learner/internal/mqtt"
	"github.com/sweeney/ir-learner/internal/status"
	"github.com/sweeney/ir-learner/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $IRLEARN_CONFIG)")
	logLevel := flag.String("log-level", "", "Override log level: debug, info, warn, error")
	printTable := flag.Bool("print-table", false, "Print the fingerprint tables and exit")

	flag.Parse()

	cfg, err := config.Load(context.Background(), *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogger(level)

	if err := run(cfg, *printTable, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, printTable bool, logger *slog.Logger) error {
	fps, err := loadFingerprints(cfg.Profiles, logger)
	if err != nil {
		return err
	}

	// Print table mode
	if printTable {
		for _, t := range fps.Tables() {
			fmt.Print(t.String())
		}
		return nil
	}

	// Initialize MQTT
	topics := mqtt.NewTopics(cfg.MQTT.Prefix)
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		Username:   cfg.MQTT.Username,
		Password:   cfg.MQTT.Password,
		Topics:     topics,
		BufferSize: cfg.MQTT.BufferSize,
	}, time.Now, logger.With("component", "mqtt"))
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize IR input and output
	receiver, err := newReceiver(cfg, publisher, topics, logger)
	if err != nil {
		return err
	}
	defer receiver.Close()

	tx, err := newTransmitter(cfg, publisher, topics)
	if err != nil {
		return err
	}
	if c, ok := tx.(io.Closer); ok {
		defer c.Close()
	}

	// Initialize buttons
	var buttons gpio.Reader
	if cfg.Buttons.Enabled {
		r, err := gpio.NewRealReader(cfg.Buttons.Chip, cfg.Buttons.PinSend, cfg.Buttons.PinLearn)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer r.Close()
		buttons = r
	}

	recorder := metrics.NewRecorder()
	startTime := time.Now()
	ctrl := control.New(cfg.Params(), fps, tx, startTime,
		control.WithObserver(recorder),
		control.WithLogger(logger.With("component", "control")))

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, status.Config{
		PollMs:           cfg.Poll.Milliseconds(),
		DebounceMs:       cfg.Buttons.Debounce.Milliseconds(),
		HeartbeatMs:      cfg.Heartbeat.Milliseconds(),
		RepeatIgnoreMs:   cfg.Learning.RepeatIgnore.Milliseconds(),
		ReceiveTimeoutMs: cfg.Learning.ReceiveTimeout.Milliseconds(),
		MinBits:          cfg.Learning.MinBits,
		Broker:           cfg.MQTT.Broker,
		Prefix:           cfg.MQTT.Prefix,
		HTTPAddr:         cfg.HTTP.Addr,
		Receiver:         cfg.IR.Receiver,
		Transmitter:      cfg.IR.Transmitter,
		Profiles:         cfg.Profiles,
	})
	tracker.Update(ctrl.Status())
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warn("failed to publish startup event", "error", err)
	} else {
		logger.Info("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker,
			web.WithMetrics(recorder.Handler()),
			web.WithPushInterval(cfg.HTTP.PushInterval),
			web.WithLogger(logger.With("component", "web")))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	logger.Info("started",
		"poll", cfg.Poll,
		"receiver", cfg.IR.Receiver,
		"transmitter", cfg.IR.Transmitter,
		"broker", cfg.MQTT.Broker,
		"tables", len(fps.Tables()),
		"buttons", fps.Buttons(),
		"heartbeat", cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	deps := loopDeps{
		ctrl:       ctrl,
		buttons:    buttons,
		receiver:   receiver,
		commands:   publisher,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		recorder:   recorder,
		log:        logger,
	}
	timing := loopTiming{
		debounce:   cfg.Buttons.Debounce,
		heartbeat:  cfg.Heartbeat,
		sentPause:  cfg.SentPause,
		errorPause: cfg.ErrorPause,
	}
	return runLoop(deps, timing, time.Now, ticker.C, sigCh, time.Sleep)
}

// loadFingerprints builds the lookup set: built-in tables first, then the
// profile files in order. Profile buttons whose value an earlier table
// already claims can never be identified and are reported.
func loadFingerprints(profiles []string, logger *slog.Logger) (*fingerprint.Set, error) {
	set := fingerprint.NewSet(fingerprint.Builtin()...)
	for _, path := range profiles {
		tables, err := fingerprint.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		for _, t := range tables {
			for _, b := range t.Buttons() {
				ev := logic.DecodedEvent{Protocol: t.Protocol, Value: b.Value}
				if name, table, ok := set.Identify(ev); ok {
					logger.Warn("profile button shadowed by earlier table",
						"profile", path, "table", t.Name, "button", b.Name,
						"shadowed_by", table+"/"+name)
				}
			}
			set.Add(t)
			logger.Info("loaded fingerprint table", "profile", path, "table", t.Name,
				"protocol", t.Protocol, "buttons", t.Len())
		}
	}
	return set, nil
}

func newReceiver(cfg *config.Config, bus mqtt.Bus, topics mqtt.Topics, logger *slog.Logger) (ir.Receiver, error) {
	if cfg.IR.Receiver == config.BackendMQTT {
		r, err := mqtt.NewBridgeReceiver(bus, topics.Decoded, cfg.IR.BridgeQueue, time.Now, logger.With("component", "bridge"))
		if err != nil {
			return nil, fmt.Errorf("init receiver: %w", err)
		}
		return r, nil
	}
	r, err := ir.NewLircReceiver(cfg.IR.RxDevice, time.Now)
	if err != nil {
		return nil, fmt.Errorf("init receiver: %w", err)
	}
	return r, nil
}

func newTransmitter(cfg *config.Config, bus mqtt.Bus, topics mqtt.Topics) (ir.Transmitter, error) {
	if cfg.IR.Transmitter == config.BackendMQTT {
		return mqtt.NewBridgeTransmitter(bus, topics.Transmit), nil
	}
	t, err := ir.NewLircTransmitter(cfg.IR.TxDevice)
	if err != nil {
		return nil, fmt.Errorf("init transmitter: %w", err)
	}
	return t, nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
