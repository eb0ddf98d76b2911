package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Storage metrics
	StoreWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_store_writes_total",
			Help: "Total segment writes applied to storage",
		},
		[]string{"op"},
	)

	// Reconciliation metrics
	BreaksInserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_breaks_inserted_total",
			Help: "Automatic break segments inserted",
		},
		[]string{"reason"},
	)

	OverlapsCorrected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daybook_overlaps_corrected_total",
			Help: "Overlapping segments shifted to their predecessor's end",
		},
	)

	SegmentsSplit = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daybook_segments_split_total",
			Help: "Segments truncated to the block cap",
		},
	)

	ReconcilePasses = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "daybook_reconcile_passes",
			Help:    "Fix passes needed per reconciliation",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
	)

	InvariantViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daybook_invariant_violations_total",
			Help: "Reconciliations aborted on an invariant violation",
		},
	)

	// Consolidation metrics
	ConsolidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daybook_consolidations_total",
			Help: "Days consolidated into blocks",
		},
	)

	BlocksEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daybook_blocks_emitted_total",
			Help: "Blocks written by day consolidation",
		},
	)

	// Activity metrics
	ActiveSegmentMinutes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "daybook_active_segment_minutes",
			Help: "Minutes the running activity has been open",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_api_requests_total",
			Help: "Total API requests handled",
		},
		[]string{"route", "status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		StoreWritesTotal,
		BreaksInserted,
		OverlapsCorrected,
		SegmentsSplit,
		ReconcilePasses,
		InvariantViolations,
		ConsolidationsTotal,
		BlocksEmitted,
		ActiveSegmentMinutes,
		APIRequestsTotal,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			// Use systemd socket-activated listener
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			// Create and bind listener ourselves
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
