package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Classification tells the pipeline whether a failure can be fixed by renewing the session.
type Classification int

const (
	// NonRenewable failures are returned to the caller unchanged.
	NonRenewable Classification = iota
	// RenewableAuthFailure failures trigger one renewal and one replay.
	RenewableAuthFailure
)

func (c Classification) String() string {
	if c == RenewableAuthFailure {
		return "renewable_auth_failure"
	}
	return "non_renewable"
}

// Server messages that mean the access token is missing or stale.
const (
	msgJWTExpired      = "jwt expired"
	msgJWTMustProvided = "jwt must be provided"
)

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string // server-provided message, if any
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Classify sorts a failure into RenewableAuthFailure or NonRenewable.
func Classify(err error) Classification {
	if err == nil {
		return NonRenewable
	}
	var he *HTTPError
	if errors.As(err, &he) && he.StatusCode == http.StatusUnauthorized {
		return RenewableAuthFailure
	}
	switch ErrorMessage(err) {
	case msgJWTExpired, msgJWTMustProvided:
		return RenewableAuthFailure
	}
	return NonRenewable
}

// ErrorMessage returns the server message of an HTTPError, or the error text otherwise.
func ErrorMessage(err error) string {
	var he *HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return he.Message
	}
	return err.Error()
}

// messageFromBody extracts the "message" field of an error body. The API sends either a string
// or a list of validation messages, in which case the first one is used.
func messageFromBody(body []byte) string {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Message) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(envelope.Message, &single); err == nil {
		return single
	}
	var list []string
	if err := json.Unmarshal(envelope.Message, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
