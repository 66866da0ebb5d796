package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

var (
	// ErrUnknownAction is returned by Invoke for an action id not in the catalog
	ErrUnknownAction = errors.New("unknown action")

	// ErrUnknownFeedback is returned by Feedback for an unregistered id
	ErrUnknownFeedback = errors.New("unknown feedback")

	// ErrInvalidOption is returned by Invoke when an option value is missing
	// or outside its declared range
	ErrInvalidOption = errors.New("invalid action option")

	// ErrNoHost is returned by AwaitConnected when no host is configured
	ErrNoHost = errors.New("no host configured")
)

// ErrorType represents the category of transport failure
type ErrorType int

const (
	// ErrTypeNetwork indicates a generic network failure (reset, unreachable)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a dial or write timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening on the port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates the host name could not be resolved
	ErrTypeDNS
	// ErrTypeNotConnected indicates a send was attempted without a connection
	ErrTypeNotConnected
	// ErrTypeClosed indicates the display closed the connection
	ErrTypeClosed
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeNotConnected:
		return "Not Connected"
	case ErrTypeClosed:
		return "Connection Closed"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// TransportError describes a failure on the display connection
type TransportError struct {
	Type      ErrorType
	Message   string
	Addr      string // host:port of the display
	Err       error
	Retryable bool
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *TransportError) Unwrap() error {
	return e.Err
}

// errNotConnected is the send failure reported while no transport is open
func errNotConnected(addr string) *TransportError {
	return &TransportError{
		Type:      ErrTypeNotConnected,
		Message:   "no open connection to display",
		Addr:      addr,
		Retryable: false,
	}
}

// ClassifyNetworkError maps a dial, read or write error to a TransportError
func ClassifyNetworkError(err error, addr string) *TransportError {
	if err == nil {
		return nil
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return &TransportError{
			Type:      ErrTypeClosed,
			Message:   "Connection closed",
			Addr:      addr,
			Err:       err,
			Retryable: true,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{
			Type:      ErrTypeTimeout,
			Message:   "Display did not respond in time",
			Addr:      addr,
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Addr:      addr,
			Err:       err,
			Retryable: false,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &TransportError{
			Type:      ErrTypeConnectionRefused,
			Message:   "Display refused connection",
			Addr:      addr,
			Err:       err,
			Retryable: true,
		}
	}

	msg := "Network error occurred"
	switch {
	case errors.Is(err, syscall.EHOSTUNREACH):
		msg = "Host unreachable"
	case errors.Is(err, syscall.ENETUNREACH):
		msg = "Network unreachable"
	case errors.Is(err, syscall.ECONNRESET):
		msg = "Connection reset by display"
	}
	return &TransportError{
		Type:      ErrTypeNetwork,
		Message:   msg,
		Addr:      addr,
		Err:       err,
		Retryable: true,
	}
}

// IsRetryable checks if an error should be retried by the caller
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// TroubleshootingHint returns user-facing advice for a transport error
func TroubleshootingHint(err error) string {
	var te *TransportError
	if !errors.As(err, &te) {
		return "An unexpected error occurred. Please try again."
	}

	switch te.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The display did not respond in time.",
			"Troubleshooting:",
			"  • Check that the display is powered and on the network",
			"  • Verify the host address",
			"  • Try increasing --timeout",
		}, "\n")
	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The display refused the connection.",
			"Troubleshooting:",
			"  • Enable network control (MDC) in the display menu",
			"  • Verify the port (default 1515)",
			"  • Only one controller may be connected at a time",
		}, "\n")
	case ErrTypeDNS:
		return "Could not resolve the display hostname. Use its IP address instead."
	case ErrTypeClosed:
		return "The display closed the connection. Reconfigure to reconnect."
	case ErrTypeNotConnected:
		return "No connection is open. Configure a host first."
	default:
		return "Network communication failed. Check the connection to the display."
	}
}
