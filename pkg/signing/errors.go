package signing

import "errors"

// Policy validation errors
var (
	// ErrNoSecretKey is returned when signing or validating without a configured secret key
	ErrNoSecretKey = errors.New("signing: no secret key configured")

	// ErrMissingField is returned when a required form field is absent
	ErrMissingField = errors.New("signing: missing form field")

	// ErrMalformedPolicy is returned when the policy document cannot be decoded
	ErrMalformedPolicy = errors.New("signing: malformed policy document")

	// ErrInvalidAccessKey is returned when the form names an unknown access key
	ErrInvalidAccessKey = errors.New("signing: unknown access key")

	// ErrInvalidSignature is returned when the signature does not match the policy
	ErrInvalidSignature = errors.New("signing: signature does not match")

	// ErrExpired is returned when the policy expiration has passed
	ErrExpired = errors.New("signing: policy expired")

	// ErrConditionMismatch is returned when a form field violates a policy condition
	ErrConditionMismatch = errors.New("signing: policy condition failed")
)

// IsAuthError returns true if the error should be answered with 403 Forbidden
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidAccessKey) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrConditionMismatch)
}

// errorCode maps a validation error to the S3 error code storage would report
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAccessKey):
		return "InvalidAccessKeyId"
	case errors.Is(err, ErrInvalidSignature):
		return "SignatureDoesNotMatch"
	case errors.Is(err, ErrExpired), errors.Is(err, ErrConditionMismatch):
		return "AccessDenied"
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrMalformedPolicy):
		return "InvalidArgument"
	default:
		return "InternalError"
	}
}
