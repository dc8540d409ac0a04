package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrUnsupportedMethod is returned for methods other than GET, POST, PUT,
// PATCH and DELETE.
var ErrUnsupportedMethod = errors.New("httpclient: unsupported method")

// ErrorKind classifies transport failures.
type ErrorKind string

const (
	KindConnect        ErrorKind = "connect"
	KindConnectTimeout ErrorKind = "connect-timeout"
	KindTimeout        ErrorKind = "timeout"
	KindNetwork        ErrorKind = "network"
	KindProtocol       ErrorKind = "protocol"
	KindOther          ErrorKind = "other"
)

// TransportError is returned when no response was received.
type TransportError struct {
	Kind   ErrorKind
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s error: %v", e.Method, e.URL, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsConnection reports a failure to establish the connection.
func (e *TransportError) IsConnection() bool {
	return e.Kind == KindConnect || e.Kind == KindConnectTimeout
}

// Classify maps a transport error onto an ErrorKind.
func Classify(err error) ErrorKind {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if opErr.Timeout() {
			return KindConnectTimeout
		}
		return KindConnect
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindConnect
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return KindProtocol
	}
	msg := err.Error()
	if strings.Contains(msg, "malformed HTTP") || strings.Contains(msg, "HTTP response to HTTPS client") {
		return KindProtocol
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.As(err, &opErr) {
		return KindNetwork
	}

	return KindOther
}
