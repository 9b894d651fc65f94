package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pdfscan"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "uploads_total", Help: "Upload attempts by outcome."},
		[]string{"outcome"},
	)
	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: namespace, Name: "upload_size_bytes", Help: "Size of accepted uploads.", Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7)},
	)
	Extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "extractions_total", Help: "Extraction requests by final status."},
		[]string{"status"},
	)
	ExtractionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "extractions_in_flight", Help: "Extractions currently holding a processing claim."},
	)
	OCRLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "ocr_request_seconds", Help: "Latency of OCR model calls.", Buckets: prometheus.ExponentialBuckets(0.25, 2, 10)},
		[]string{"model", "result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Uploads)
	reg.MustRegister(UploadBytes)
	reg.MustRegister(Extractions)
	reg.MustRegister(ExtractionsInFlight)
	reg.MustRegister(OCRLatency)
}

// ObserveOCR records one model call.
func ObserveOCR(model string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OCRLatency.WithLabelValues(model, result).Observe(d.Seconds())
}
