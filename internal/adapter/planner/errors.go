package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bridgelabs/planbridge/internal/domain"
)

// APIError carries the upstream status, error code and body of a failed
// remote call for diagnostics. It unwraps to one of the domain sentinel
// errors so callers dispatch with errors.Is and never inspect the raw
// shape themselves.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
	kind       error
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote API error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

// errorEnvelope mirrors the error body the remote API returns on
// API-level failures. Transport-level failures carry no envelope at all,
// which is why classification falls back to status and message text.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newAPIError builds a classified APIError from a non-2xx response.
func newAPIError(status int, body []byte) *APIError {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)

	msg := env.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	return &APIError{
		StatusCode: status,
		Code:       env.Error.Code,
		Message:    msg,
		Body:       string(body),
		kind:       classify(status, env.Error.Code, msg),
	}
}

// classify maps a remote failure onto the domain taxonomy. Inspection
// order: numeric status, then the nested error-code string, then known
// substrings of the message text. The remote SDK surface does not
// guarantee a consistent shape across transport-level and API-level
// failures, so all three tiers are needed.
func classify(status int, code, message string) error {
	switch status {
	case 401:
		return domain.ErrUnauthenticated
	case 403:
		return domain.ErrPermissionDenied
	case 404, 410:
		return domain.ErrNotFound
	case 409, 412:
		return domain.ErrConflict
	case 429:
		return domain.ErrRateLimited
	}

	switch strings.ToLower(code) {
	case "itemnotfound", "resourcegone", "requestresourcenotfound":
		return domain.ErrNotFound
	case "accessdenied", "forbidden", "authorizationrequestdenied":
		return domain.ErrPermissionDenied
	case "unauthenticated", "invalidauthenticationtoken":
		return domain.ErrUnauthenticated
	case "activitylimitreached", "toomanyrequests", "serviceunavailable":
		return domain.ErrRateLimited
	case "conflict", "preconditionfailed":
		return domain.ErrConflict
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "not found") || strings.Contains(lower, "no longer exists"):
		return domain.ErrNotFound
	case strings.Contains(lower, "precondition") || strings.Contains(lower, "etag"):
		return domain.ErrConflict
	case strings.Contains(lower, "access denied") || strings.Contains(lower, "insufficient privileges"):
		return domain.ErrPermissionDenied
	case strings.Contains(lower, "throttl") || strings.Contains(lower, "rate limit"):
		return domain.ErrRateLimited
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "token is expired"):
		return domain.ErrUnauthenticated
	}

	return domain.ErrUnknownRemote
}
