package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	transport    string
	serialDev    string
	baud         int
	serialReadTO time.Duration
	udpLocal     string
	udpRemote    string

	systemID    int
	componentID int
	peerSystem  int
	peerComp    int

	heartbeatInterval time.Duration

	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration

	mdnsEnable bool
	mdnsName   string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	transport := flag.String("transport", "udp", "Link transport: serial|udp")
	serialDev := flag.String("serial", "/dev/ttyUSB0", "Serial device path (when --transport=serial)")
	baud := flag.Int("baud", 57600, "Serial baud rate")
	serialReadTO := flag.Duration("serial-read-timeout", 50*time.Millisecond, "Serial read timeout")
	udpLocal := flag.String("udp-local", ":14550", "UDP local listen address (when --transport=udp)")
	udpRemote := flag.String("udp-remote", "127.0.0.1:14551", "UDP remote peer address (when --transport=udp)")
	systemID := flag.Int("system-id", 255, "This station's MAVLink system id")
	componentID := flag.Int("component-id", 190, "This station's MAVLink component id (190 = MAV_COMP_ID_MISSIONPLANNER)")
	peerSystem := flag.Int("peer-system-id", 1, "Target vehicle system id")
	peerComp := flag.Int("peer-component-id", 1, "Target vehicle component id (1 = MAV_COMP_ID_AUTOPILOT1)")
	heartbeatInterval := flag.Duration("heartbeat-interval", time.Second, "Interval between outgoing HEARTBEATs")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS advertisement of this relay")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default gcs-relay-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.transport = *transport
	cfg.serialDev = *serialDev
	cfg.baud = *baud
	cfg.serialReadTO = *serialReadTO
	cfg.udpLocal = *udpLocal
	cfg.udpRemote = *udpRemote
	cfg.systemID = *systemID
	cfg.componentID = *componentID
	cfg.peerSystem = *peerSystem
	cfg.peerComp = *peerComp
	cfg.heartbeatInterval = *heartbeatInterval
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open devices or sockets – only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.transport {
	case "serial", "udp":
	default:
		return fmt.Errorf("invalid transport: %s", c.transport)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.serialReadTO <= 0 {
		return fmt.Errorf("serial-read-timeout must be > 0")
	}
	if c.systemID < 0 || c.systemID > 255 {
		return fmt.Errorf("system-id must be in [0, 255] (got %d)", c.systemID)
	}
	if c.componentID < 0 || c.componentID > 255 {
		return fmt.Errorf("component-id must be in [0, 255] (got %d)", c.componentID)
	}
	if c.peerSystem < 0 || c.peerSystem > 255 {
		return fmt.Errorf("peer-system-id must be in [0, 255] (got %d)", c.peerSystem)
	}
	if c.peerComp < 0 || c.peerComp > 255 {
		return fmt.Errorf("peer-component-id must be in [0, 255] (got %d)", c.peerComp)
	}
	if c.heartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat-interval must be > 0")
	}
	return nil
}

// applyEnvOverrides maps GCS_RELAY_* environment variables to config fields
// unless a corresponding flag was explicitly set. Boolean & numeric parsing is
// lax: empty values are ignored. Duration accepts Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["transport"]; !ok {
		if v, ok := get("GCS_RELAY_TRANSPORT"); ok && v != "" {
			c.transport = v
		}
	}
	if _, ok := set["serial"]; !ok {
		if v, ok := get("GCS_RELAY_SERIAL"); ok && v != "" {
			c.serialDev = v
		}
	}
	if _, ok := set["baud"]; !ok {
		if v, ok := get("GCS_RELAY_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.baud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid GCS_RELAY_BAUD: %w", err)
			}
		}
	}
	if _, ok := set["serial-read-timeout"]; !ok {
		if v, ok := get("GCS_RELAY_SERIAL_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.serialReadTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid GCS_RELAY_SERIAL_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["udp-local"]; !ok {
		if v, ok := get("GCS_RELAY_UDP_LOCAL"); ok && v != "" {
			c.udpLocal = v
		}
	}
	if _, ok := set["udp-remote"]; !ok {
		if v, ok := get("GCS_RELAY_UDP_REMOTE"); ok && v != "" {
			c.udpRemote = v
		}
	}
	if _, ok := set["system-id"]; !ok {
		if v, ok := get("GCS_RELAY_SYSTEM_ID"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.systemID = n
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid GCS_RELAY_SYSTEM_ID: %w", err)
			}
		}
	}
	if _, ok := set["component-id"]; !ok {
		if v, ok := get("GCS_RELAY_COMPONENT_ID"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.componentID = n
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid GCS_RELAY_COMPONENT_ID: %w", err)
			}
		}
	}
	if _, ok := set["peer-system-id"]; !ok {
		if v, ok := get("GCS_RELAY_PEER_SYSTEM_ID"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.peerSystem = n
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid GCS_RELAY_PEER_SYSTEM_ID: %w", err)
			}
		}
	}
	if _, ok := set["peer-component-id"]; !ok {
		if v, ok := get("GCS_RELAY_PEER_COMPONENT_ID"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.peerComp = n
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid GCS_RELAY_PEER_COMPONENT_ID: %w", err)
			}
		}
	}
	if _, ok := set["heartbeat-interval"]; !ok {
		if v, ok := get("GCS_RELAY_HEARTBEAT_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.heartbeatInterval = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid GCS_RELAY_HEARTBEAT_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("GCS_RELAY_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("GCS_RELAY_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("GCS_RELAY_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("GCS_RELAY_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid GCS_RELAY_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("GCS_RELAY_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("GCS_RELAY_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	return firstErr
}
