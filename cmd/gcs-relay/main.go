package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/kstaniek/go-mavgcs/internal/component"
	"github.com/kstaniek/go-mavgcs/internal/dialect"
	"github.com/kstaniek/go-mavgcs/internal/link"
	"github.com/kstaniek/go-mavgcs/internal/metrics"
	"github.com/kstaniek/go-mavgcs/internal/transport"
)

// Helper implementations moved to dedicated files: version.go, config.go, logger.go, mdns.go, metrics_logger.go.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("gcs-relay %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	rw, closeTransport, err := openTransport(cfg)
	if err != nil {
		l.Error("transport_open_error", "error", err)
		return
	}
	lk := link.New(ctx, rw, uint8(cfg.systemID), uint8(cfg.componentID))
	// Close the transport before the link: lk.Close waits for the link's
	// reader, which only returns once its blocked Read does.
	defer func() { closeTransport(); lk.Close() }()
	comp := component.New(lk, uint8(cfg.peerSystem), uint8(cfg.peerComp))

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := comp.StreamHeartbeat(ctx, cfg.heartbeatInterval); err != nil && ctx.Err() == nil {
			l.Warn("heartbeat_stream_stopped", "error", err)
		}
	}()

	// Ask the peer to stream AUTOPILOT_VERSION (interval argument 0), the way
	// original_source's version.rs example requests a rate for it. Only the
	// outcome of the request is logged; the AUTOPILOT_VERSION messages
	// themselves are not read here.
	wg.Add(1)
	go func() {
		defer wg.Done()
		rctx, rcancel := context.WithTimeout(ctx, 5*cfg.heartbeatInterval)
		defer rcancel()
		if _, err := comp.SetMessageInterval(rctx, dialect.IDAutopilotVersion, 0); err != nil {
			l.Warn("autopilot_version_interval_request_failed", "error", err)
			return
		}
		l.Info("autopilot_version_interval_requested", "message_id", dialect.IDAutopilotVersion)
	}()

	ready := make(chan struct{})
	close(ready) // the link is usable as soon as it's constructed
	metrics.SetReadinessFunc(func() bool {
		select {
		case <-ready:
		default:
			return false
		}
		return ctx.Err() == nil
	})

	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	go func() {
		if !cfg.mdnsEnable {
			return
		}
		cleanupMDNS, err := startMDNS(ctx, cfg, mdnsAdvertisedPort(cfg))
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
			return
		}
		l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName)
		go func() { <-ctx.Done(); cleanupMDNS() }()
	}()

	l.Info("build_info", "version", version, "commit", commit, "date", date)
	l.Info("link_started",
		"transport", cfg.transport,
		"system_id", cfg.systemID, "component_id", cfg.componentID,
		"peer_system_id", cfg.peerSystem, "peer_component_id", cfg.peerComp,
	)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	wg.Wait()
}

// openTransport opens the configured wire transport and returns it alongside
// a cleanup function the caller must invoke on shutdown.
func openTransport(cfg *appConfig) (io.ReadWriter, func(), error) {
	switch cfg.transport {
	case "serial":
		s, err := transport.OpenSerial(cfg.serialDev, cfg.baud, cfg.serialReadTO)
		if err != nil {
			return nil, nil, fmt.Errorf("open serial: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "udp":
		u, err := transport.DialUDP(cfg.udpLocal, cfg.udpRemote)
		if err != nil {
			return nil, nil, fmt.Errorf("dial udp: %w", err)
		}
		return u, func() { _ = u.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport: %s", cfg.transport)
	}
}

// mdnsAdvertisedPort extracts a port number to publish in the mDNS record:
// the UDP local port when relaying over UDP, or the metrics port as a
// fallback so the service is still discoverable.
func mdnsAdvertisedPort(cfg *appConfig) int {
	addr := cfg.udpLocal
	if cfg.transport != "udp" || addr == "" {
		addr = cfg.metricsAddr
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}
