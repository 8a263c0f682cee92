package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/joboost/internal/common"
	"github.com/tidwall/gjson"
)

var (
	ErrUnavailable  = errors.New("gateway unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx Gateway response. It unwraps to one of the
// sentinels so callers can branch with errors.Is.
type APIError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v (status %d)", e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%v: %s (status %d)", e.Err, e.Detail, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// mapStatus turns an HTTP error status and its body into an *APIError.
func mapStatus(code int, body []byte) error {
	var sentinel error
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case code == http.StatusNotFound:
		sentinel = common.ErrNotFound
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		sentinel = common.ErrValidation
	case code >= http.StatusInternalServerError, code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		sentinel = ErrUnavailable
	default:
		sentinel = fmt.Errorf("unexpected status %d", code)
	}
	return &APIError{StatusCode: code, Detail: errorDetail(body), Err: sentinel}
}

// errorDetail extracts the human message from an error body. The Gateway
// answers {"detail": "..."}, or a list of {"msg": ...} for schema errors.
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	detail := gjson.GetBytes(body, "detail")
	if detail.IsArray() {
		return detail.Get("0.msg").String()
	}
	if detail.Exists() {
		return detail.String()
	}
	return gjson.GetBytes(body, "message").String()
}
