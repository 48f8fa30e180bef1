// Package metrics exposes this module's Prometheus counters and gauges,
// following the teacher's internal/metrics layout: promauto-registered
// series plus a local atomic mirror for cheap in-process logging, served
// over /metrics and /ready by StartHTTP.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-mavgcs/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PacketsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wire_packets_decoded_total",
		Help: "Total packets successfully decoded from a link's incoming stream.",
	})
	PacketsEncoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wire_packets_encoded_total",
		Help: "Total packets encoded onto a link's outgoing stream.",
	})
	InvalidCRC = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wire_invalid_crc_total",
		Help: "Total frames discarded for a CRC mismatch.",
	})
	InvalidPayload = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wire_invalid_payload_total",
		Help: "Total frames discarded for an unparseable or unknown-id payload.",
	})
	SubscriberDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_subscriber_drops_total",
		Help: "Total packets a slow subscriber lost to drop-oldest overflow.",
	})
	ActiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "link_active_subscribers",
		Help: "Current number of subscribers registered on the link.",
	})
	CommandRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "component_command_retries_total",
		Help: "Total COMMAND_LONG resends after a timed-out wait, by command.",
	}, []string{"command"})
	CommandTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "component_command_timeouts_total",
		Help: "Total COMMAND_INT/COMMAND_LONG exchanges that exhausted their retries.",
	}, []string{"command"})
	MissionItemsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "component_mission_items_sent_total",
		Help: "Total mission items sent in response to MISSION_REQUEST(_INT).",
	})
	MissionUploadResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "component_mission_upload_results_total",
		Help: "Total mission uploads by terminal MISSION_ACK result.",
	}, []string{"result"})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrTransportRead  = "transport_read"
	ErrTransportWrite = "transport_write"
	ErrLinkClosed     = "link_closed"
	ErrProtocol       = "protocol"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap in-process logging without scraping.
var (
	localDecoded  uint64
	localEncoded  uint64
	localInvCRC   uint64
	localInvPay   uint64
	localSubDrops uint64
	localErrors   uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	Decoded        uint64
	Encoded        uint64
	InvalidCRC     uint64
	InvalidPayload uint64
	SubscriberDrop uint64
	Errors         uint64
}

func Snap() Snapshot {
	return Snapshot{
		Decoded:        atomic.LoadUint64(&localDecoded),
		Encoded:        atomic.LoadUint64(&localEncoded),
		InvalidCRC:     atomic.LoadUint64(&localInvCRC),
		InvalidPayload: atomic.LoadUint64(&localInvPay),
		SubscriberDrop: atomic.LoadUint64(&localSubDrops),
		Errors:         atomic.LoadUint64(&localErrors),
	}
}

func IncDecoded() {
	PacketsDecoded.Inc()
	atomic.AddUint64(&localDecoded, 1)
}

func IncEncoded() {
	PacketsEncoded.Inc()
	atomic.AddUint64(&localEncoded, 1)
}

func IncInvalidCRC() {
	InvalidCRC.Inc()
	atomic.AddUint64(&localInvCRC, 1)
}

func IncInvalidPayload() {
	InvalidPayload.Inc()
	atomic.AddUint64(&localInvPay, 1)
}

func IncSubscriberDrop() {
	SubscriberDrops.Inc()
	atomic.AddUint64(&localSubDrops, 1)
}

func SetActiveSubscribers(n int) { ActiveSubscribers.Set(float64(n)) }

func IncCommandRetry(command string) { CommandRetries.WithLabelValues(command).Inc() }

func IncCommandTimeout(command string) { CommandTimeouts.WithLabelValues(command).Inc() }

func IncMissionItemSent() { MissionItemsSent.Inc() }

func IncMissionUploadResult(result string) { MissionUploadResults.WithLabelValues(result).Inc() }

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (called once at startup) and
// pre-registers common error label series so the first error doesn't pay
// registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrTransportRead, ErrTransportWrite, ErrLinkClosed, ErrProtocol} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
