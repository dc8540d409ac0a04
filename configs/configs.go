package configs

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"aws-sqs-http-gateway/internal/pkg/logger"
)

// Log holds logging settings shared by every binary.
type Log struct {
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFilePath       string `env:"LOG_FILE_PATH"`
	LogFileMaxSizeMB  int    `env:"LOG_FILE_MAX_SIZE_MB" envDefault:"100"`
	LogFileMaxBackups int    `env:"LOG_FILE_MAX_BACKUPS" envDefault:"3"`
	LogFileMaxAgeDays int    `env:"LOG_FILE_MAX_AGE_DAYS" envDefault:"28"`
}

// LoggerOptions maps the settings onto logger.Options.
func (l Log) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      l.LogLevel,
		FilePath:   l.LogFilePath,
		MaxSizeMB:  l.LogFileMaxSizeMB,
		MaxBackups: l.LogFileMaxBackups,
		MaxAgeDays: l.LogFileMaxAgeDays,
	}
}

// AWS holds the SQS connection settings. An empty endpoint means the real AWS
// endpoint for the region; LocalStack uses http://localhost:4566.
type AWS struct {
	AwsRegion      string `env:"AWS_REGION" envDefault:"us-east-1" validate:"required"`
	AwsEndpointURL string `env:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// AppConfig configures the demo API server.
type AppConfig struct {
	Log
	AWS

	HTTPShutdownTimeoutDuration time.Duration `env:"-"`
	HttpClientTimeoutDuration   time.Duration `env:"-"`
	SupplierTimeoutDuration     time.Duration `env:"-"`

	HTTPAddr            string `env:"HTTP_ADDR" envDefault:":8000"`
	HTTPShutdownTimeout int    `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5"`
	JWTSecret           string `env:"API_JWT_SECRET"`

	HttpClientBaseURL string `env:"HTTP_CLIENT_BASE_URL" envDefault:"https://httpbin.org" validate:"url"`
	// Zero keeps the client default of 5s.
	HttpClientTimeout int    `env:"HTTP_CLIENT_TIMEOUT" envDefault:"0"`
	UpstreamAPIURL    string `env:"UPSTREAM_API_URL" envDefault:"http://127.0.0.1:5000" validate:"url"`

	SupplierCode    string `env:"SUPPLIER_CODE" envDefault:"RCL"`
	SupplierBaseURL string `env:"SUPPLIER_BASE_URL" envDefault:"https://httpbin.org" validate:"url"`
	SupplierTimeout int    `env:"SUPPLIER_TIMEOUT" envDefault:"5"`
	SuppliersFile   string `env:"SUPPLIERS_FILE"`

	BrokerType                  string   `env:"BROKER_TYPE" envDefault:"log" validate:"oneof=none log sqs redis amqp"`
	BrokerSqsQueueURL           string   `env:"BROKER_SQS_QUEUE_URL"`
	BrokerRedisEndpoint         string   `env:"BROKER_REDIS_ENDPOINT"`
	BrokerRedisDB               int      `env:"BROKER_REDIS_DB" envDefault:"0"`
	BrokerRedisKey              string   `env:"BROKER_REDIS_KEY" envDefault:"queue-exchanges"`
	BrokerAmqpURL               string   `env:"BROKER_AMQP_URL"`
	BrokerAmqpExchange          string   `env:"BROKER_AMQP_EXCHANGE"`
	BrokerAmqpRoutingKey        string   `env:"BROKER_AMQP_ROUTING_KEY" envDefault:"supplier-exchanges"`
	BrokerAllowedRequestNames   []string `env:"BROKER_ALLOWED_REQUEST_NAMES" envSeparator:","`
	BrokerDisallowedRequestTags []string `env:"BROKER_DISALLOWED_REQUEST_TAGS" envSeparator:","`
	BrokerLogAttributes         bool     `env:"BROKER_LOG_ATTRIBUTES" envDefault:"false"`
	BrokerLogBody               bool     `env:"BROKER_LOG_BODY" envDefault:"false"`
}

func (c *AppConfig) validate() error {
	if c.HTTPShutdownTimeout <= 0 {
		return errors.New("HTTP_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.HttpClientTimeout < 0 || c.SupplierTimeout < 0 {
		return errors.New("HTTP_CLIENT_TIMEOUT and SUPPLIER_TIMEOUT must not be negative")
	}

	switch c.BrokerType {
	case "sqs":
		if c.BrokerSqsQueueURL == "" {
			return errors.New("BROKER_SQS_QUEUE_URL is required for SQS broker type")
		}
	case "redis":
		if c.BrokerRedisEndpoint == "" {
			return errors.New("BROKER_REDIS_ENDPOINT is required for Redis broker type")
		}
	case "amqp":
		if c.BrokerAmqpURL == "" {
			return errors.New("BROKER_AMQP_URL is required for AMQP broker type")
		}
	}

	return nil
}

func (c *AppConfig) normalize() {
	c.HTTPShutdownTimeoutDuration = time.Duration(c.HTTPShutdownTimeout) * time.Second
	c.HttpClientTimeoutDuration = time.Duration(c.HttpClientTimeout) * time.Second
	c.SupplierTimeoutDuration = time.Duration(c.SupplierTimeout) * time.Second
}

// ConsumerConfig configures the exchange consumer.
type ConsumerConfig struct {
	Log
	AWS

	QueueAwsSqsWaitTimeDuration time.Duration `env:"-"`
	PollingIntervalDuration     time.Duration `env:"-"`
	CacheDedupTTLDuration       time.Duration `env:"-"`
	HTTPShutdownTimeoutDuration time.Duration `env:"-"`

	LeaderElectionEnabled  bool   `env:"LEADER_ELECTION_ENABLED" envDefault:"false"`
	LeaderElectionLockName string `env:"LEADER_ELECTION_LOCK_NAME" envDefault:"aws-sqs-http-gateway-consumer-lock"`
	PodName                string `env:"POD_NAME"`
	PodNamespace           string `env:"POD_NAMESPACE"`
	PollingInterval        int32  `env:"POLLING_INTERVAL" envDefault:"1"`

	HTTPAddr            string `env:"HTTP_ADDR" envDefault:":8080"`
	HTTPShutdownTimeout int    `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5"`

	CacheRedisEndpoint string `env:"CACHE_REDIS_ENDPOINT,required"`
	CacheRedisDB       int    `env:"CACHE_REDIS_DB" envDefault:"0"`
	CacheKeyPrefix     string `env:"CACHE_KEY_PREFIX" envDefault:"exchange-"`
	CacheDedupTTL      int    `env:"CACHE_DEDUP_TTL" envDefault:"86400"`

	QueueType                  string `env:"QUEUE_TYPE" envDefault:"sqs" validate:"oneof=sqs redis"`
	QueueWorkerPoolSize        int    `env:"QUEUE_WORKER_POOL_SIZE" envDefault:"10"`
	QueueAwsSqsUrl             string `env:"QUEUE_AWS_SQS_URL"`
	QueueAwsSqsWaitTimeSeconds int32  `env:"QUEUE_AWS_SQS_WAIT_TIME_SECONDS" envDefault:"20"`
	QueueRedisEndpoint         string `env:"REDIS_QUEUE_ENDPOINT"`
	QueueRedisKey              string `env:"REDIS_QUEUE_KEY" envDefault:"queue-exchanges"`
	QueueRedisDB               int    `env:"REDIS_QUEUE_DB" envDefault:"0"`

	AuditPostgresDSN string `env:"AUDIT_POSTGRES_DSN,required"`
}

func (c *ConsumerConfig) validate() error {
	if c.QueueWorkerPoolSize <= 0 || c.QueueWorkerPoolSize > 10 {
		return errors.New("QUEUE_WORKER_POOL_SIZE must be between 1 and 10")
	}

	if c.QueueAwsSqsWaitTimeSeconds < 0 || c.QueueAwsSqsWaitTimeSeconds > 20 {
		return errors.New("QUEUE_AWS_SQS_WAIT_TIME_SECONDS must be between 0 and 20")
	}

	if c.CacheDedupTTL <= 0 {
		return errors.New("CACHE_DEDUP_TTL must be greater than 0")
	}

	if c.QueueType == "sqs" && c.QueueAwsSqsUrl == "" {
		return errors.New("QUEUE_AWS_SQS_URL is required for SQS queue type")
	}

	if c.QueueType == "redis" && c.QueueRedisEndpoint == "" {
		return errors.New("REDIS_QUEUE_ENDPOINT is required for Redis queue type")
	}

	if c.LeaderElectionEnabled && (c.PodName == "" || c.PodNamespace == "") {
		return errors.New("POD_NAME and POD_NAMESPACE are required when leader election is enabled")
	}

	return nil
}

func (c *ConsumerConfig) normalize() {
	c.QueueAwsSqsWaitTimeDuration = time.Duration(c.QueueAwsSqsWaitTimeSeconds) * time.Second
	c.PollingIntervalDuration = time.Duration(c.PollingInterval) * time.Second
	c.CacheDedupTTLDuration = time.Duration(c.CacheDedupTTL) * time.Second
	c.HTTPShutdownTimeoutDuration = time.Duration(c.HTTPShutdownTimeout) * time.Second
}

// StubAPIConfig configures the slow upstream used by the timeout and retry demos.
type StubAPIConfig struct {
	Log

	UsersDelayDuration time.Duration `env:"-"`

	HTTPAddr   string `env:"STUB_API_ADDR" envDefault:":5000"`
	UsersDelay int    `env:"STUB_API_USERS_DELAY" envDefault:"10"`
}

func (c *StubAPIConfig) validate() error {
	if c.UsersDelay < 0 {
		return errors.New("STUB_API_USERS_DELAY must not be negative")
	}
	return nil
}

func (c *StubAPIConfig) normalize() {
	c.UsersDelayDuration = time.Duration(c.UsersDelay) * time.Second
}

type config[T any] interface {
	*T
	validate() error
	normalize()
}

var validate = validator.New()

// parse loads configuration from environment variables, validates and normalizes it.
func parse[T any, P config[T]]() (*T, error) {
	var cfg T

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := P(&cfg)
	if err := p.validate(); err != nil {
		return nil, err
	}

	p.normalize()

	return &cfg, nil
}

// ParseApp loads the demo API server configuration.
func ParseApp() (*AppConfig, error) {
	return parse[AppConfig]()
}

// ParseConsumer loads the consumer configuration.
func ParseConsumer() (*ConsumerConfig, error) {
	return parse[ConsumerConfig]()
}

// ParseStubAPI loads the stub upstream configuration.
func ParseStubAPI() (*StubAPIConfig, error) {
	return parse[StubAPIConfig]()
}

// ParseAWS loads only the AWS settings, used by the queue CLI for flag defaults.
func ParseAWS() (*AWS, error) {
	var cfg AWS
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}
	return &cfg, nil
}
