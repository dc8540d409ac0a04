package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPClientRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_requests_total",
			Help: "Total outgoing HTTP requests by client, method and status class",
		}, []string{"client", "method", "status"})

	HTTPClientRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_client_request_duration_seconds",
			Help:    "Histogram of outgoing HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"client", "method"})

	HTTPClientRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_retries_total",
			Help: "Total retried outgoing HTTP requests",
		}, []string{"client"})

	BrokerMessagesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_published_total",
			Help: "Total messages handed to a broker backend by result",
		}, []string{"backend", "result"})

	MessagesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aws_sqs_messages_processed_total",
			Help: "Total messages processed from the exchange queue",
		})

	MessagesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aws_sqs_messages_failed_total",
			Help: "Total messages failed from the exchange queue",
		})

	MessagesDuplicated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aws_sqs_messages_duplicated_total",
			Help: "Total messages skipped as already stored",
		})

	MessageProcessingTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aws_sqs_message_processing_seconds",
			Help:    "Histogram of message processing duration",
			Buckets: prometheus.DefBuckets,
		})

	QueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aws_sqs_queue_length",
			Help: "Number of messages returned by the last poll",
		},
	)

	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests served by route and status",
		}, []string{"route", "status"})

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Histogram of API request duration by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"})
)

var once sync.Once

// Setup registers every collector with the default registry. Safe to call more than once.
func Setup() {
	once.Do(func() {
		prometheus.MustRegister(HTTPClientRequests)
		prometheus.MustRegister(HTTPClientRequestDuration)
		prometheus.MustRegister(HTTPClientRetries)
		prometheus.MustRegister(BrokerMessagesPublished)
		prometheus.MustRegister(MessagesProcessed)
		prometheus.MustRegister(MessagesFailed)
		prometheus.MustRegister(MessagesDuplicated)
		prometheus.MustRegister(MessageProcessingTime)
		prometheus.MustRegister(QueueLength)
		prometheus.MustRegister(APIRequests)
		prometheus.MustRegister(APIRequestDuration)
	})
}
