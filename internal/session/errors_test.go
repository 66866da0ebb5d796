package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
		wantMsg   string
	}{
		{
			name:      "timeout",
			err:       &net.OpError{Op: "dial", Net: "tcp", Err: &timeoutError{}},
			wantType:  ErrTypeTimeout,
			retryable: true,
		},
		{
			name:      "refused",
			err:       &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			wantType:  ErrTypeConnectionRefused,
			retryable: true,
		},
		{
			name:     "dns",
			err:      &net.DNSError{Err: "no such host", Name: "wall.local", IsNotFound: true},
			wantType: ErrTypeDNS,
			wantMsg:  "wall.local",
		},
		{
			name:      "eof",
			err:       fmt.Errorf("read: %w", io.EOF),
			wantType:  ErrTypeClosed,
			retryable: true,
		},
		{
			name:      "reset",
			err:       &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET},
			wantType:  ErrTypeNetwork,
			retryable: true,
			wantMsg:   "reset",
		},
		{
			name:      "host unreachable",
			err:       &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH},
			wantType:  ErrTypeNetwork,
			retryable: true,
			wantMsg:   "unreachable",
		},
		{
			name:      "generic",
			err:       errors.New("boom"),
			wantType:  ErrTypeNetwork,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "10.0.0.20:1515")
			if got == nil {
				t.Fatal("ClassifyNetworkError() = nil")
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.retryable)
			}
			if got.Addr != "10.0.0.20:1515" {
				t.Errorf("Addr = %q", got.Addr)
			}
			if tt.wantMsg != "" && !strings.Contains(got.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", got.Message, tt.wantMsg)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error does not unwrap to the original")
			}
		})
	}
}

func TestClassifyNetworkErrorNil(t *testing.T) {
	if got := ClassifyNetworkError(nil, ""); got != nil {
		t.Errorf("ClassifyNetworkError(nil) = %v, want nil", got)
	}
}

func TestClassifyNetworkErrorPassesThrough(t *testing.T) {
	orig := errNotConnected("10.0.0.20:1515")
	wrapped := fmt.Errorf("send: %w", orig)
	if got := ClassifyNetworkError(wrapped, "other"); got != orig {
		t.Errorf("ClassifyNetworkError() = %v, want original TransportError", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error reported retryable")
	}
	if IsRetryable(errNotConnected("")) {
		t.Error("not-connected error reported retryable")
	}
	if !IsRetryable(&TransportError{Type: ErrTypeTimeout, Retryable: true}) {
		t.Error("timeout not retryable")
	}
}

func TestTransportErrorString(t *testing.T) {
	err := &TransportError{Type: ErrTypeTimeout, Message: "slow", Err: errors.New("deadline")}
	want := "Timeout: slow (caused by: deadline)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if got := TroubleshootingHint(err); !strings.Contains(got, "--timeout") {
		t.Errorf("TroubleshootingHint() = %q", got)
	}
	if got := TroubleshootingHint(errors.New("x")); !strings.Contains(got, "unexpected") {
		t.Errorf("TroubleshootingHint(plain) = %q", got)
	}
}
