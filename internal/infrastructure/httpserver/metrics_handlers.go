package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		},
		[]string{"method", "endpoint"},
	)

	tokenRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_auth_token_redemptions_total",
			Help: "Token redemptions by kind (verification, password_reset) and result",
		},
		[]string{"kind", "result"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(tokenRedemptionsTotal)
}

func GetRequestsTotal() *prometheus.CounterVec {
	return requestsTotal
}

func GetRequestDuration() *prometheus.HistogramVec {
	return requestDuration
}

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"http_requests_total":                "Counter for HTTP requests by method, endpoint, status",
			"http_request_duration":              "Histogram for HTTP request duration by method, endpoint",
			"email_auth_token_redemptions_total": "Counter for token redemptions by kind and result",
			"metrics_endpoint":                   "/metrics",
		}).Debug("Available Prometheus metrics")
	}
}

func recordRedemption(kind, result string) {
	tokenRedemptionsTotal.WithLabelValues(kind, result).Inc()
}

func (s *Server) metricsEndpoint(c echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
