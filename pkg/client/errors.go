package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wfxronald/token-handler-go/pkg/oauthagent/models"
)

// ErrNoAgentURL is returned by NewClient when no agent address was given.
var ErrNoAgentURL = errors.New("agent URL is required")

// APIError is returned for every non-2xx agent response. Code comes from the
// error_code field of a JSON error body, or from the HTTP status text when the
// agent did not send one. Details is only set when the agent exposes it.
type APIError struct {
	Status  int
	Code    string
	Details string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("error: %s, status: %d", e.Code, e.Status)
	if e.Details != "" {
		msg += fmt.Sprintf(", detail: %s", e.Details)
	}
	return msg
}

func newAPIError(res *http.Response, body []byte) *APIError {
	apiError := &APIError{
		Status: res.StatusCode,
		Code:   http.StatusText(res.StatusCode),
	}
	if strings.Contains(res.Header.Get("Content-Type"), "application/json") {
		var payload models.ErrorResponse
		if err := json.Unmarshal(body, &payload); err == nil && payload.ErrorCode != "" {
			apiError.Code = payload.ErrorCode
			apiError.Details = payload.DetailedError
		}
	}
	return apiError
}
