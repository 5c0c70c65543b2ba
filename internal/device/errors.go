package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the specific cause of a device error
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the device did not answer in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a hostname could not be resolved
	ErrTypeDNS
	// ErrTypeHTTP indicates a non-success HTTP status
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed response body
	ErrTypeParse
	// ErrTypeVerification indicates the device answered with the wrong state
	ErrTypeVerification
	// ErrTypeValidation indicates input rejected before any request was made
	ErrTypeValidation
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
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeVerification:
		return "Verification Failed"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Kind is the coarse error category callers make decisions on.
type Kind int

const (
	// KindNone means no error
	KindNone Kind = iota
	// KindCommunication covers transport failures, timeouts and non-success responses
	KindCommunication
	// KindVerificationFailed means the device accepted a request but did not reach the wanted state
	KindVerificationFailed
	// KindValidation means a local precondition failed and nothing was sent
	KindValidation
)

// String returns the category name
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCommunication:
		return "communication"
	case KindVerificationFailed:
		return "verification_failed"
	case KindValidation:
		return "validation"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// MarshalText renders the kind in JSON payloads
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// DeviceError represents an error that occurred while talking to the device
type DeviceError struct {
	Type           ErrorType
	Message        string
	StatusCode     int
	Err            error
	NetworkSubtype NetworkErrorSubtype
	Address        Address
	Retryable      bool
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Kind maps the error type onto its category
func (e *DeviceError) Kind() Kind {
	switch e.Type {
	case ErrTypeValidation:
		return KindValidation
	case ErrTypeVerification:
		return KindVerificationFailed
	default:
		return KindCommunication
	}
}

// ClassifyNetworkError analyzes a transport error and returns a typed error
func ClassifyNetworkError(err error, addr Address) *DeviceError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &DeviceError{
			Type:           ErrTypeTimeout,
			Message:        "request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Address:        addr,
			Retryable:      true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Address:        addr,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &DeviceError{
				Type:           ErrTypeConnectionRefused,
				Message:        "device refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Address:        addr,
				Retryable:      true,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Address:        addr,
				Retryable:      true,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Address:        addr,
				Retryable:      true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err, addr)
	}

	return &DeviceError{
		Type:           ErrTypeNetwork,
		Message:        "network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Address:        addr,
		Retryable:      true,
	}
}

// NewNetworkError creates a communication error with automatic classification
func NewNetworkError(message string, addr Address, err error) *DeviceError {
	classified := ClassifyNetworkError(err, addr)
	if classified == nil {
		return &DeviceError{Type: ErrTypeNetwork, Message: message, Address: addr, Retryable: true}
	}
	classified.Message = message
	return classified
}

// NewHTTPError creates an error for a non-success status code
func NewHTTPError(addr Address, statusCode int, message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Address:    addr,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(addr Address, message string, err error) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
		Address: addr,
	}
}

// NewVerificationError creates an error for a negative or mismatched answer
func NewVerificationError(message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeVerification,
		Message: message,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

// KindOf returns the category of err. Errors that are not *DeviceError are
// treated as communication errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Kind()
	}
	return KindCommunication
}

// IsCommunicationError checks if err is a transport, timeout or HTTP error
func IsCommunicationError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Kind() == KindCommunication
}

// IsTimeout checks if err is a request timeout
func IsTimeout(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Type == ErrTypeTimeout
}

// IsVerificationFailed checks if err is a negative verification answer
func IsVerificationFailed(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Type == ErrTypeVerification
}

// IsValidationError checks if err is a validation error
func IsValidationError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Type == ErrTypeValidation
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Retryable
	}
	return false
}

// GetShortErrorMessage returns a concise, user-facing error message
func GetShortErrorMessage(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Device refused connection"
	case ErrTypeDNS:
		return "Cannot resolve device hostname"
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Device unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - are you connected to the device hotspot?"
		default:
			return "Network error - check connection"
		}
	case ErrTypeHTTP:
		return fmt.Sprintf("Device error (HTTP %d)", devErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse device response"
	default:
		return devErr.Message
	}
}

// GetTroubleshootingHint returns troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeNetwork:
		return strings.Join([]string{
			"The device could not be reached at " + devErr.Address.Host() + ".",
			"Troubleshooting:",
			"  • Before WiFi is configured, join the device's own hotspot",
			"  • After WiFi is configured, the device lives on your network instead",
			"  • The device reboots while switching networks, wait a few seconds and retry",
			"  • Check --ap-address and --station-address",
		}, "\n")

	case ErrTypeDNS:
		return "Could not resolve the device hostname. Use the IP address instead."

	case ErrTypeHTTP:
		if devErr.StatusCode == http.StatusNotFound {
			return "The device does not support this endpoint. Check the firmware version."
		}
		return fmt.Sprintf("The device returned HTTP %d. Try rebooting it.", devErr.StatusCode)

	case ErrTypeParse:
		return "The device answered with an unexpected body. The firmware may be incompatible."

	case ErrTypeVerification:
		return strings.Join([]string{
			"The device accepted the settings but did not confirm them.",
			"Troubleshooting:",
			"  • Double-check the WiFi password or channel identifier",
			"  • Make sure the network is in range of the device",
		}, "\n")

	case ErrTypeValidation:
		return "The input is invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}
