package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrServer       = errors.New("server error")
)

// APIError is a non-2xx response. Detail carries the server's reason when the body has one.
type APIError struct {
	Method string
	Path   string
	Status int
	Detail string
	Body   string
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	return &APIError{
		Method: method,
		Path:   path,
		Status: status,
		Detail: parseDetail(body),
		Body:   truncate(string(body), 512),
	}
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error: %s %s status=%d detail=%s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("api error: %s %s status=%d body=%s", e.Method, e.Path, e.Status, e.Body)
}

// Reason is the user-facing rejection reason.
func (e *APIError) Reason() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, http.StatusText(e.Status))
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// parseDetail reads {"detail": ...}; validation errors come as a list of {"msg": ...}.
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, env.Detail); err != nil {
		return ""
	}
	if buf.String() == "null" {
		return ""
	}
	return buf.String()
}
