package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CallEntry struct {
	Transport string
	Operation string
	Result    string
	Duration  float64
}

type RequestEntry struct {
	Kind      string
	Method    string
	Route     string
	Status    string
	BytesSent int64
	Duration  float64
}

var (
	callTagNames = []string{
		"transport",
		"operation",
		"result",
	}

	requestTagNames = []string{
		"kind",
		"method",
		"route",
		"status",
	}

	callCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_client_call_count",
		Help: "facade call count",
	}, callTagNames)

	callDurationHistogramVec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "conduit_client_call_duration_seconds",
		Help: "facade call round trip time in seconds",
	}, callTagNames)

	lifecycleCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_qewd_lifecycle_event_count",
		Help: "persistent connection lifecycle events",
	}, []string{"event"})

	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_backend_request_count",
		Help: "backend request count",
	}, requestTagNames)

	responseSizeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_backend_response_size_bytes",
		Help: "backend response size in bytes",
	}, requestTagNames)

	requestDurationHistogramVec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "conduit_backend_request_duration_seconds",
		Help: "backend request serving time in seconds",
	}, requestTagNames)
)

func init() {
	prometheus.MustRegister(
		callCounter,
		callDurationHistogramVec,
		lifecycleCounter,
		requestCounter,
		responseSizeCounter,
		requestDurationHistogramVec,
	)
}

func ObserveCall(transport, operation string, err error, duration time.Duration) {
	entry := &CallEntry{
		Transport: transport,
		Operation: operation,
		Result:    "success",
		Duration:  duration.Seconds(),
	}

	if err != nil {
		entry.Result = "error"
	}

	tags := []string{
		entry.Transport,
		entry.Operation,
		entry.Result,
	}

	callCounter.WithLabelValues(tags...).Inc()
	callDurationHistogramVec.WithLabelValues(tags...).Observe(entry.Duration)
}

func ObserveLifecycleEvent(event string) {
	lifecycleCounter.WithLabelValues(event).Inc()
}

func ObserveRequest(l *RequestEntry) {
	tags := []string{
		l.Kind,
		l.Method,
		l.Route,
		l.Status,
	}

	requestCounter.WithLabelValues(tags...).Inc()
	responseSizeCounter.WithLabelValues(tags...).Add(float64(l.BytesSent))
	requestDurationHistogramVec.WithLabelValues(tags...).Observe(l.Duration)
}

func NewRequestEntry(kind, method, route string, status int, bytesSent int, duration time.Duration) *RequestEntry {
	return &RequestEntry{
		Kind:      kind,
		Method:    method,
		Route:     route,
		Status:    strconv.Itoa(status),
		BytesSent: int64(bytesSent),
		Duration:  duration.Seconds(),
	}
}

// NewServer builds the /metrics server; callers run ListenAndServe.
func NewServer(host string, port int) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf("%v:%v", host, port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
