package models

// StartLoginResponse carries the authorization request URL generated by the
// agent. The SPA is expected to navigate the browser to it.
type StartLoginResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// SessionResponse is the agent's view of the current session. IDTokenClaims,
// AccessTokenExpiresIn and CSRFToken are only set when the agent sent them.
type SessionResponse struct {
	IsLoggedIn           bool                   `json:"is_logged_in"`
	IDTokenClaims        map[string]interface{} `json:"id_token_claims,omitempty"`
	AccessTokenExpiresIn *int64                 `json:"access_token_expires_in,omitempty"`
	CSRFToken            string                 `json:"csrf_token,omitempty"`
}

type RefreshResponse struct {
	AccessTokenExpiresIn *int64 `json:"access_token_expires_in,omitempty"`
}

// LogoutResponse is returned by the logout endpoint. A non-empty LogoutURL
// means the caller must redirect the user there to complete single logout.
type LogoutResponse struct {
	LogoutURL string `json:"logout_url,omitempty"`
}

// ErrorResponse is the body the agent sends on non-2xx responses.
type ErrorResponse struct {
	ErrorCode     string `json:"error_code"`
	DetailedError string `json:"detailed_error,omitempty"`
}
