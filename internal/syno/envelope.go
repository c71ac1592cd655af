package syno

import (
	"encoding/json"
	"errors"
	"fmt"
)

// envelope is the uniform wrapper every API response arrives in.
// Success is a pointer so a body that omits the field entirely can be
// told apart from an explicit false.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *envelopeError  `json:"error,omitempty"`
}

type envelopeError struct {
	Code   int             `json:"code"`
	Errors json.RawMessage `json:"errors,omitempty"`
}

// decodeEnvelope parses a raw response body and, on success, unmarshals
// the data payload into out (out may be nil for calls that return no
// payload). Failures are classified per the error taxonomy: envelope
// violations become *DecodeError, server-reported failures become
// *APIError with the code preserved verbatim.
func decodeEnvelope(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &DecodeError{Err: fmt.Errorf("malformed response body: %w", err)}
	}

	if env.Success == nil {
		return &DecodeError{Err: errors.New("response missing success field")}
	}

	if !*env.Success {
		if len(env.Data) > 0 {
			return &DecodeError{Err: errors.New("failed response carries a data payload")}
		}
		if env.Error == nil {
			return &DecodeError{Err: errors.New("failed response missing error object")}
		}
		return &APIError{Code: env.Error.Code, Details: env.Error.Errors}
	}

	if env.Error != nil {
		return &DecodeError{Err: errors.New("successful response carries an error object")}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return &DecodeError{Err: errors.New("successful response missing data payload")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &DecodeError{Err: fmt.Errorf("unexpected data payload shape: %w", err)}
	}
	return nil
}
