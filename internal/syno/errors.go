package syno

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known Synology API error codes. The full list lives in the
// official Web API documentation; only the codes the client needs to
// recognize or describe are enumerated here.
const (
	// CodeSessionExpired is returned when a previously valid _sid is no
	// longer accepted. It is the only code the executor retries on.
	CodeSessionExpired = 119

	CodeUnknown             = 100
	CodeInvalidParameter    = 101
	CodeUnknownAPI          = 102
	CodeUnknownMethod       = 103
	CodeVersionNotSupported = 104
	CodeNoPermission        = 105
	CodeSessionTimeout      = 106
	CodeSessionInterrupted  = 107

	CodeAuthInvalidCredentials = 400
	CodeAuthAccountDisabled    = 401
	CodeAuthPermissionDenied   = 402
	CodeAuthOTPRequired        = 403
	CodeAuthOTPInvalid         = 404
)

var codeDescriptions = map[int]string{
	CodeUnknown:             "unknown error",
	CodeInvalidParameter:    "invalid parameter",
	CodeUnknownAPI:          "requested API does not exist",
	CodeUnknownMethod:       "requested method does not exist",
	CodeVersionNotSupported: "requested version does not support the functionality",
	CodeNoPermission:        "permission denied",
	CodeSessionTimeout:      "session timeout",
	CodeSessionInterrupted:  "session interrupted by duplicate login",
	CodeSessionExpired:      "sid not found",

	CodeAuthInvalidCredentials: "invalid account or password",
	CodeAuthAccountDisabled:    "account disabled",
	CodeAuthPermissionDenied:   "permission denied",
	CodeAuthOTPRequired:        "2-step verification code required",
	CodeAuthOTPInvalid:         "2-step verification code invalid",
}

// TransportError reports a network-level failure: the request never
// produced a decodable response (connection, TLS, timeout, or a non-2xx
// HTTP status). Never retried by the executor.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that violates the envelope
// contract or whose payload does not match the expected shape. It
// indicates client/server contract drift, not a server-reported error.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AuthError reports a failed login, including a re-login performed
// during expiry recovery. The underlying cause (transport, decode, or
// API failure) is preserved.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError is a structured failure reported by the service. Code is
// preserved verbatim from the envelope; Details carries the raw
// error.errors payload when the service provided one.
type APIError struct {
	Code    int
	Details json.RawMessage
}

func (e *APIError) Error() string {
	if desc, ok := codeDescriptions[e.Code]; ok {
		return fmt.Sprintf("api error %d: %s", e.Code, desc)
	}
	return fmt.Sprintf("api error %d", e.Code)
}

// IsSessionExpired reports whether err is the session-expiry sentinel.
func IsSessionExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeSessionExpired
}
