package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chelouizer/internal/domain"
	"chelouizer/internal/ports"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	KindAudio = "audio"
	KindText  = "text"
)

// Metrics contains all Prometheus metrics for the app.
type Metrics struct {
	registry *prometheus.Registry

	// Analysis metrics
	AnalyzeRequests *prometheus.CounterVec
	AnalyzeDuration *prometheus.HistogramVec

	// Speech metrics
	SpeechRequests *prometheus.CounterVec
	SpeechDuration prometheus.Histogram

	// Playback and recording metrics
	Playbacks      *prometheus.CounterVec
	Recordings     prometheus.Counter
	CapturedBytes  prometheus.Counter
	VisualizerDrop prometheus.Counter

	// Lifecycle metrics
	Transitions *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		AnalyzeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chelouizer_analyze_requests_total",
			Help: "Total number of analysis requests by input kind and outcome",
		}, []string{"kind", "outcome"}),
		AnalyzeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chelouizer_analyze_duration_seconds",
			Help:    "Duration of analysis requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~1 minute
		}, []string{"kind"}),

		SpeechRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chelouizer_speech_requests_total",
			Help: "Total number of speech synthesis requests by voice and outcome",
		}, []string{"voice", "outcome"}),
		SpeechDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chelouizer_speech_duration_seconds",
			Help:    "Duration of speech synthesis requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),

		Playbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chelouizer_playbacks_total",
			Help: "Total number of playbacks by outcome",
		}, []string{"outcome"}),
		Recordings: factory.NewCounter(prometheus.CounterOpts{
			Name: "chelouizer_recordings_total",
			Help: "Total number of finalized recordings",
		}),
		CapturedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "chelouizer_captured_bytes_total",
			Help: "Total PCM bytes captured from the microphone",
		}),
		VisualizerDrop: factory.NewCounter(prometheus.CounterOpts{
			Name: "chelouizer_visualizer_dropped_chunks_total",
			Help: "Audio chunks skipped by the visualizer because it was busy",
		}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chelouizer_status_transitions_total",
			Help: "Total number of status transitions by target status",
		}, []string{"status"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chelouizer_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chelouizer_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordTransition counts a status change.
func (m *Metrics) RecordTransition(status domain.Status) {
	m.Transitions.WithLabelValues(string(status)).Inc()
}

// RecordRecording counts a finalized recording and its captured size.
func (m *Metrics) RecordRecording(capturedBytes int) {
	m.Recordings.Inc()
	m.CapturedBytes.Add(float64(capturedBytes))
}

// RecordVisualizerDrop counts a chunk the visualizer could not take.
func (m *Metrics) RecordVisualizerDrop() {
	m.VisualizerDrop.Inc()
}

// RecordPlayback counts a finished playback.
func (m *Metrics) RecordPlayback(err error) {
	m.Playbacks.WithLabelValues(outcome(err)).Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// InstrumentAnalyzer counts and times every analysis request.
func InstrumentAnalyzer(next ports.Analyzer, m *Metrics) ports.Analyzer {
	if m == nil {
		return next
	}
	return instrumentedAnalyzer{next: next, metrics: m}
}

type instrumentedAnalyzer struct {
	next    ports.Analyzer
	metrics *Metrics
}

func (a instrumentedAnalyzer) AnalyzeAudio(ctx context.Context, clip domain.AudioClip) (domain.AnalysisResult, error) {
	started := time.Now()
	result, err := a.next.AnalyzeAudio(ctx, clip)
	a.observe(KindAudio, started, err)
	return result, err
}

func (a instrumentedAnalyzer) AnalyzeText(ctx context.Context, text string) (domain.AnalysisResult, error) {
	started := time.Now()
	result, err := a.next.AnalyzeText(ctx, text)
	a.observe(KindText, started, err)
	return result, err
}

func (a instrumentedAnalyzer) observe(kind string, started time.Time, err error) {
	a.metrics.AnalyzeRequests.WithLabelValues(kind, outcome(err)).Inc()
	a.metrics.AnalyzeDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// InstrumentSpeaker counts and times every speech request.
func InstrumentSpeaker(next ports.Speaker, m *Metrics) ports.Speaker {
	if m == nil {
		return next
	}
	return instrumentedSpeaker{next: next, metrics: m}
}

type instrumentedSpeaker struct {
	next    ports.Speaker
	metrics *Metrics
}

func (s instrumentedSpeaker) Speak(ctx context.Context, text string, voice domain.Voice) (domain.SpeechAudio, error) {
	started := time.Now()
	audio, err := s.next.Speak(ctx, text, voice)
	s.metrics.SpeechRequests.WithLabelValues(string(voice), outcome(err)).Inc()
	s.metrics.SpeechDuration.Observe(time.Since(started).Seconds())
	return audio, err
}

// InstrumentPlayer counts playback outcomes.
func InstrumentPlayer(next ports.Player, m *Metrics) ports.Player {
	if m == nil {
		return next
	}
	return instrumentedPlayer{next: next, metrics: m}
}

type instrumentedPlayer struct {
	next    ports.Player
	metrics *Metrics
}

func (p instrumentedPlayer) Play(ctx context.Context, audio domain.SpeechAudio) error {
	err := p.next.Play(ctx, audio)
	p.metrics.RecordPlayback(err)
	return err
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
