package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed remote call.
type Kind int

const (
	// KindOther covers encoding bugs and anything unclassified.
	KindOther Kind = iota
	// KindTransport means the request never produced an HTTP response.
	KindTransport
	// KindStatus means the server answered with a non-2xx status.
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	default:
		return "other"
	}
}

// TransportError wraps a network-level failure (DNS, refused connection,
// timeout, cancelled context).
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("executing request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is returned for any non-success HTTP response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	// Detail is the server's explanation extracted from the body, or the
	// raw body when it is not a recognised error document.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected status %d on %s %s", e.StatusCode, e.Method, e.Path)
	}
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Detail)
}

// Classify reports which failure class err belongs to.
func Classify(err error) Kind {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return KindStatus
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return KindTransport
	}
	return KindOther
}

// IsAuthError reports whether err (or any error in its chain) is a 401 or
// 403 response, i.e. the session cookie or CSRF token was rejected.
func IsAuthError(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == http.StatusUnauthorized ||
		statusErr.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// errorDetail extracts a readable message from a REST framework error body.
// It understands {"detail": "..."}, {"error": "..."} and field error maps
// such as {"title": ["This field may not be blank."]}.
func errorDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return trimmed
	}

	for _, key := range []string{"detail", "error"} {
		var s string
		if raw, ok := doc[key]; ok && json.Unmarshal(raw, &s) == nil {
			return s
		}
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		var msgs []string
		if json.Unmarshal(doc[k], &msgs) == nil && len(msgs) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(msgs, " ")))
		}
	}
	if len(parts) == 0 {
		return trimmed
	}
	return strings.Join(parts, "; ")
}
