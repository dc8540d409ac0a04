package configs

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SupplierRetry mirrors httpclient.RetryConfig in file form.
type SupplierRetry struct {
	Attempts         int           `yaml:"attempts" validate:"gte=0"`
	Delay            time.Duration `yaml:"delay"`
	Statuses         []string      `yaml:"statuses" validate:"dive,oneof=info redirect client_error server_error"`
	OnTimeouts       bool          `yaml:"on_timeouts"`
	OnNetworkErrors  bool          `yaml:"on_network_errors"`
	OnProtocolErrors bool          `yaml:"on_protocol_errors"`
}

// Supplier describes one upstream supplier API.
type Supplier struct {
	Code               string            `yaml:"code" validate:"required"`
	Label              string            `yaml:"label"`
	BaseURL            string            `yaml:"base_url" validate:"required,url"`
	Timeout            time.Duration     `yaml:"timeout"`
	Headers            map[string]string `yaml:"headers"`
	Retry              *SupplierRetry    `yaml:"retry"`
	LogRequestHeaders  bool              `yaml:"log_request_headers"`
	LogRequestBody     bool              `yaml:"log_request_body"`
	LogResponseHeaders bool              `yaml:"log_response_headers"`
	LogResponseBody    bool              `yaml:"log_response_body"`
}

// SupplierRegistry is the content of the SUPPLIERS_FILE document.
type SupplierRegistry struct {
	Suppliers []Supplier `yaml:"suppliers" validate:"unique=Code,dive"`
}

// LoadSuppliers reads and validates a supplier registry YAML file.
func LoadSuppliers(path string) (*SupplierRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suppliers file: %w", err)
	}
	return ParseSuppliers(data)
}

// ParseSuppliers decodes and validates a supplier registry document.
func ParseSuppliers(data []byte) (*SupplierRegistry, error) {
	var registry SupplierRegistry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("decode suppliers: %w", err)
	}
	if err := validate.Struct(&registry); err != nil {
		return nil, fmt.Errorf("invalid suppliers: %w", err)
	}
	return &registry, nil
}

// Lookup returns the supplier registered under code.
func (r *SupplierRegistry) Lookup(code string) (Supplier, bool) {
	if r == nil {
		return Supplier{}, false
	}
	for _, s := range r.Suppliers {
		if s.Code == code {
			return s, true
		}
	}
	return Supplier{}, false
}
