//go:build unit

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, KindConnect},
		{"dns", fmt.Errorf("lookup: %w", &net.DNSError{Err: "no such host", Name: "x.invalid"}), KindConnect},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), KindTimeout},
		{"malformed", errors.New(`net/http: HTTP/1.x transport connection broken: malformed HTTP response "x"`), KindProtocol},
		{"eof", fmt.Errorf("read: %w", io.EOF), KindNetwork},
		{"reset", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, KindNetwork},
		{"other", errors.New("boom"), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestTransportErrorUnwraps(t *testing.T) {
	err := &TransportError{Kind: KindTimeout, Method: "GET", URL: "http://x", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, err.IsConnection())
	assert.Contains(t, err.Error(), "timeout error")
}
