package directupload

import (
	"errors"
	"fmt"
	"strings"
)

// Error types
var (
	// ErrTransport indicates a network, timeout or non-2xx failure on either request
	ErrTransport = errors.New("directupload: transport error")

	// ErrMalformedPolicy indicates the signature endpoint returned an unusable policy
	ErrMalformedPolicy = errors.New("directupload: malformed policy")

	// ErrStorageRejected indicates storage answered with a status other than the declared success status
	ErrStorageRejected = errors.New("directupload: storage rejected upload")

	// ErrInvalidFile indicates the selected file lacks a name, type or content.
	// It is raised locally, before the policy request.
	ErrInvalidFile = errors.New("directupload: invalid file")
)

// TransportError wraps a failed policy request or storage post
type TransportError struct {
	Op         string // "request_policy" or "upload"
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// MalformedPolicyError describes why a policy cannot be submitted
type MalformedPolicyError struct {
	Missing []string
	Reason  string
}

func (e *MalformedPolicyError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("malformed policy: missing %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("malformed policy: %s", e.Reason)
}

func (e *MalformedPolicyError) Unwrap() error {
	return ErrMalformedPolicy
}

// StorageRejectedError is returned when storage answers with an unexpected status
type StorageRejectedError struct {
	StatusCode int
	Expected   string
	Code       string // storage error code, e.g. "SignatureDoesNotMatch"
	Message    string
}

func (e *StorageRejectedError) Error() string {
	msg := fmt.Sprintf("storage rejected upload with status %d (expected %s)", e.StatusCode, e.Expected)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *StorageRejectedError) Unwrap() error {
	return ErrStorageRejected
}

// ErrorKind classifies attempt failures
type ErrorKind string

const (
	KindTransport       ErrorKind = "transport"
	KindMalformedPolicy ErrorKind = "malformed_policy"
	KindStorageRejected ErrorKind = "storage_rejected"
	KindInvalidFile     ErrorKind = "invalid_file"
	KindUnknown         ErrorKind = "unknown"
)

// Kind returns the taxonomy kind of err
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedPolicy):
		return KindMalformedPolicy
	case errors.Is(err, ErrStorageRejected):
		return KindStorageRejected
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrInvalidFile):
		return KindInvalidFile
	default:
		return KindUnknown
	}
}
