// Command dashboard runs the production line sensor monitor: it accepts the
// simulator's TCP telemetry stream, evaluates threshold alarms and serves
// the live state over a read-only HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aliafifi710/production-dashboard/internal/api"
	"github.com/aliafifi710/production-dashboard/internal/command"
	"github.com/aliafifi710/production-dashboard/internal/config"
	"github.com/aliafifi710/production-dashboard/internal/listener"
	"github.com/aliafifi710/production-dashboard/internal/metric"
	"github.com/aliafifi710/production-dashboard/internal/mqtt"
	"github.com/aliafifi710/production-dashboard/internal/store"
	"github.com/aliafifi710/production-dashboard/internal/wire"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to YAML configuration")
	httpAddr := flag.String("http", "", "HTTP API address (overrides config)")
	broker := flag.String("broker", "", "MQTT broker URL (overrides config; empty keeps config value)")
	flag.Parse()

	if err := run(*configPath, *httpAddr, *broker); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath, httpAddr, broker string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if broker != "" {
		cfg.MQTT.Broker = broker
	}

	sensors := make([]store.SensorConfig, len(cfg.Sensors))
	for i, s := range cfg.Sensors {
		sensors[i] = store.SensorConfig{Name: s.Name, Low: s.Low, High: s.High}
	}
	st, err := store.New(sensors)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	reg := prometheus.NewRegistry()
	metrics := metric.New(reg)

	lst := listener.New(cfg.ListenAddr(), listener.DefaultEventCapacity, metrics)
	if err := lst.Start(); err != nil {
		return fmt.Errorf("start listener: %w", err)
	}
	defer lst.Stop()

	dispatcher := command.New(st, lst, metrics)

	// MQTT publishing is optional; a missing broker must not stop ingestion.
	var publisher mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		real, err := mqtt.NewRealPublisher(cfg.MQTT.Broker)
		if err != nil {
			log.Printf("mqtt: publishing disabled: %v", err)
		} else {
			publisher = real
			defer real.Close()
		}
	}

	refresh := time.Duration(float64(time.Second) / cfg.UI.UpdateHz)

	srv := api.New(cfg.HTTP.Addr, st, api.Options{
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Commands: dispatcher,
		Token:    cfg.HTTP.CommandToken,
		Refresh:  refresh,
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()
	defer srv.Shutdown(context.Background())
	log.Printf("http query api listening on %s", cfg.HTTP.Addr)

	if publisher != nil {
		event := mqtt.SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		}
	}

	log.Printf("started: listen=%s refresh=%v sensors=%d", cfg.ListenAddr(), refresh, len(cfg.Sensors))

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(lst.Events(), st, publisher, metrics, time.Now, ticker.C, sigCh)
}

// runLoop is the consumer side of the core: on every tick it drains the
// inbound event channel and folds each event into the store.
func runLoop(events <-chan listener.Event, st *store.Store, publisher mqtt.Publisher, metrics *metric.Metrics, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if publisher != nil {
				event := mqtt.SystemEvent{Timestamp: now(), Event: "SHUTDOWN", Reason: signalName, Retained: true}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				}
			}
			return nil

		case <-tick:
			drain(events, st, publisher, metrics, now)
		}
	}
}

// drain applies every queued inbound event, preserving arrival order.
func drain(events <-chan listener.Event, st *store.Store, publisher mqtt.Publisher, metrics *metric.Metrics, now func() time.Time) {
	for {
		select {
		case ev := <-events:
			apply(ev, st, publisher, metrics, now)
		default:
			return
		}
	}
}

func apply(ev listener.Event, st *store.Store, publisher mqtt.Publisher, metrics *metric.Metrics, now func() time.Time) {
	if ev.Conn != "" {
		applyLifecycle(ev.Conn, st, publisher, metrics, now)
		return
	}

	switch f := ev.Frame.(type) {
	case wire.DataFrame:
		rec, known := st.Apply(f, now())
		if !known {
			// Name mismatch between config and producer; dropped.
			metrics.UnknownSensor.Inc()
			return
		}
		if rec != nil {
			metrics.AlarmsRaised.Inc()
			log.Printf("alarm: %s %s value=%.3f ts=%s", rec.Sensor, rec.Kind, rec.Value, rec.TS)
			if publisher != nil {
				if err := publisher.PublishAlarm(*rec); err != nil {
					log.Printf("mqtt: alarm publish error: %v", err)
				}
			}
		}
	case wire.LogFrame:
		log.Printf("producer: %s", f.Message)
	case wire.SnapshotFrame:
		log.Printf("producer snapshot: %d sensors at %s", len(f.Sensors), f.TS)
	case wire.CommandFrame:
		// A producer echoing commands back carries no state; ignored.
	}
}

func applyLifecycle(state listener.ConnState, st *store.Store, publisher mqtt.Publisher, metrics *metric.Metrics, now func() time.Time) {
	switch state {
	case listener.StateConnected:
		st.SetConnected(true)
		metrics.Connected.Set(1)
		publishSystem(publisher, "CONNECTED", now)
	case listener.StateDisconnected:
		// This transition resets every sensor in the store.
		st.SetConnected(false)
		metrics.Connected.Set(0)
		metrics.Disconnects.Inc()
		publishSystem(publisher, "DISCONNECTED", now)
	case listener.StateListening:
		st.SetConnected(false)
	}
}

func publishSystem(publisher mqtt.Publisher, event string, now func() time.Time) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishSystem(mqtt.SystemEvent{Timestamp: now(), Event: event}); err != nil {
		log.Printf("mqtt: system publish error: %v", err)
	}
}
