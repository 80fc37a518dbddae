package api

import (
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"time"

	"brawler/internal/config"
	"brawler/internal/game"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-character labels to prevent DoS)
var (
	// Combat engine metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "combat_tick_duration_seconds",
		Help:    "Time spent in a simulation tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
	})

	characterCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "combat_characters",
		Help: "Characters in the arena, corpses included",
	})

	aliveCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "combat_characters_alive",
		Help: "Living characters in the arena",
	})

	pendingDeadlines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "combat_deadlines_pending",
		Help: "Armed strike, animation and combo-reset deadlines",
	})

	commandsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "combat_commands_total",
		Help: "Queued commands applied by the tick loop",
	})

	// Combat hook metrics
	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "combat_state_transitions_total",
		Help: "Combat state transitions by destination state",
	}, []string{"to"}) // Bounded: one value per CombatState

	attacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "combat_attacks_total",
		Help: "Strikes started",
	})

	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "combat_hits_total",
		Help: "Hits that dealt an impact",
	})

	damageTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "combat_damage_total",
		Help: "Health removed by hits",
	})

	deathsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "combat_deaths_total",
		Help: "Characters knocked out",
	})

	hookEventsDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "combat_hook_events_dropped",
		Help: "Hook notifications dropped because the broadcaster fell behind",
	})

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_events",
		Help: "Events written to the combat log",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is route pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// StartDebugServer starts the internal observability server
// CRITICAL: This MUST bind to loopback to prevent pprof-based DoS
func StartDebugServer(cfg config.ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	// SECURITY: Validate address is loopback
	if !isLoopbackAddr(cfg.ListenAddr) {
		// Only allow external binding if explicitly enabled via env
		if os.Getenv(config.EnvPrefix+"ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = config.DefaultObservability().ListenAddr
		}
	}

	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Optional basic auth wrapper
	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

func isLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records one tick. It is installed as EngineConfig.OnTick.
func RecordTick(stats game.TickStats) {
	tickDuration.Observe(stats.Duration.Seconds())
	characterCount.Set(float64(stats.Characters))
	aliveCount.Set(float64(stats.Alive))
	pendingDeadlines.Set(float64(stats.Deadlines))
	commandsApplied.Add(float64(stats.Commands))
}

// UpdateEventLogStats mirrors the event log counters into gauges.
// Called periodically from the broadcast loop.
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// UpdateHookDrops mirrors HookQueue.Dropped.
func UpdateHookDrops(dropped uint64) {
	hookEventsDropped.Set(float64(dropped))
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// MetricsHooks implements game.Hooks by counting combat events.
type MetricsHooks struct {
	states map[game.CombatState]prometheus.Counter
}

// NewMetricsHooks creates the hook set with every state label pre-resolved.
func NewMetricsHooks() *MetricsHooks {
	m := &MetricsHooks{states: make(map[game.CombatState]prometheus.Counter)}
	for _, s := range game.CombatStates() {
		m.states[s] = stateTransitions.WithLabelValues(s.String())
	}
	return m
}

func (m *MetricsHooks) OnStateChanged(_ game.CharacterID, _, to game.CombatState) {
	if c, ok := m.states[to]; ok {
		c.Inc()
	}
}

func (m *MetricsHooks) OnAttackStart(game.CharacterID, int) {
	attacksTotal.Inc()
}

func (m *MetricsHooks) OnHitLanded(_, _ game.CharacterID, damage int) {
	hitsTotal.Inc()
	damageTotal.Add(float64(damage))
}

func (m *MetricsHooks) OnDeath(game.CharacterID) {
	deathsTotal.Inc()
}
