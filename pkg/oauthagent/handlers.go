package oauthagent

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/wfxronald/token-handler-go/pkg/oauthagent/models"
)

func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// LoginStart generates an authorization request URL. Form parameters in the
// request body are forwarded to the provider as extra authorization request
// parameters.
func (o *OauthAgent) LoginStart(c *gin.Context) {
	state, err := randString(16)
	if err != nil {
		o.errorResponse(c, http.StatusInternalServerError, "server_error", "")
		return
	}
	nonce, err := randString(16)
	if err != nil {
		o.errorResponse(c, http.StatusInternalServerError, "server_error", "")
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		o.errorResponse(c, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	opts := []oauth2.AuthCodeOption{oidc.Nonce(nonce)}
	for k, vs := range c.Request.PostForm {
		if len(vs) > 0 {
			opts = append(opts, oauth2.SetAuthURLParam(k, vs[0]))
		}
	}

	if err := o.cookies.writeLogin(c, &loginData{State: state, Nonce: nonce}); err != nil {
		o.errorResponse(c, http.StatusInternalServerError, "server_error", "")
		return
	}

	c.JSON(http.StatusOK, models.StartLoginResponse{
		AuthorizationURL: o.oauthConfig.AuthCodeURL(state, opts...),
	})
}

// LoginEnd finishes the code flow. The request body is the raw query string
// of the page the authorization server redirected back to. A body that is not
// an authorization response just reports the current session state.
func (o *OauthAgent) LoginEnd(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		o.errorResponse(c, http.StatusBadRequest, "invalid_request", "")
		return
	}
	params, err := url.ParseQuery(strings.TrimPrefix(string(body), "?"))
	if err != nil {
		o.errorResponse(c, http.StatusBadRequest, "invalid_request", "malformed authorization response")
		return
	}

	state := params.Get("state")
	code := params.Get("code")
	authErr := params.Get("error")

	if state != "" && authErr != "" {
		o.cookies.clearLogin(c)
		status := http.StatusBadRequest
		if authErr == "login_required" {
			status = http.StatusUnauthorized
		}
		o.errorResponse(c, status, authErr, params.Get("error_description"))
		return
	}

	if state != "" && code != "" {
		o.handleAuthorizationResponse(c, state, code)
		return
	}

	o.Session(c)
}

func (o *OauthAgent) handleAuthorizationResponse(c *gin.Context, state, code string) {
	login, err := o.cookies.readLogin(c)
	if err != nil {
		o.errorResponse(c, http.StatusBadRequest, "invalid_request", "missing login cookie")
		return
	}
	o.cookies.clearLogin(c)

	if state != login.State {
		o.errorResponse(c, http.StatusBadRequest, "invalid_request", "state mismatch")
		return
	}

	token, err := o.oauthConfig.Exchange(c.Request.Context(), code)
	if err != nil {
		o.logger.Errorw("code exchange failed", "error", err)
		o.errorResponse(c, http.StatusBadGateway, "token_exchange_failed", "")
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		o.errorResponse(c, http.StatusBadGateway, "token_exchange_failed", "no id_token in token response")
		return
	}

	idToken, err := o.verifier.Verify(c.Request.Context(), rawIDToken)
	if err != nil {
		o.logger.Errorw("id token verification failed", "error", err)
		o.errorResponse(c, http.StatusBadRequest, "invalid_id_token", "")
		return
	}
	if idToken.Nonce != login.Nonce {
		o.errorResponse(c, http.StatusBadRequest, "invalid_id_token", "nonce mismatch")
		return
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		o.errorResponse(c, http.StatusInternalServerError, "server_error", "")
		return
	}

	data := &sessionData{
		Token:         token,
		RawIDToken:    rawIDToken,
		IDTokenClaims: claims,
		CSRFToken:     uuid.NewString(),
	}
	if err := o.cookies.writeSession(c, data); err != nil {
		o.logger.Errorw("writing session cookie failed", "error", err)
		o.errorResponse(c, http.StatusInternalServerError, "session_error", "")
		return
	}

	c.JSON(http.StatusOK, o.sessionResponse(data))
}

// Session reports the current login state. An absent or unreadable session
// cookie is a logged-out session, not an error.
func (o *OauthAgent) Session(c *gin.Context) {
	data, err := o.cookies.readSession(c)
	if err != nil {
		c.JSON(http.StatusOK, models.SessionResponse{IsLoggedIn: false})
		return
	}
	c.JSON(http.StatusOK, o.sessionResponse(data))
}

// Refresh renews the access token held in the session cookie.
func (o *OauthAgent) Refresh(c *gin.Context) {
	data, err := o.cookies.readSession(c)
	if err != nil {
		o.errorResponse(c, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	src := o.oauthConfig.TokenSource(c.Request.Context(), data.Token)
	newToken, err := src.Token()
	if err != nil {
		o.logger.Debugw("token refresh failed", "error", err)
		o.cookies.clearSession(c)
		o.errorResponse(c, http.StatusUnauthorized, "session_expired", "")
		return
	}

	data.Token = newToken
	if err := o.cookies.writeSession(c, data); err != nil {
		o.errorResponse(c, http.StatusInternalServerError, "session_error", "")
		return
	}

	c.JSON(http.StatusOK, models.RefreshResponse{
		AccessTokenExpiresIn: accessTokenExpiresIn(newToken),
	})
}

// Logout drops the session and hands back the provider's end-session URL
// when it advertises one.
func (o *OauthAgent) Logout(c *gin.Context) {
	data, err := o.cookies.readSession(c)
	if err != nil {
		o.errorResponse(c, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	o.cookies.clearSession(c)

	resp := models.LogoutResponse{}
	if o.endSessionURL != "" {
		logoutURL, err := o.LogoutURL(data.RawIDToken)
		if err != nil {
			o.errorResponse(c, http.StatusInternalServerError, "server_error", "")
			return
		}
		resp.LogoutURL = logoutURL.String()
	}
	c.JSON(http.StatusOK, resp)
}

func (o *OauthAgent) sessionResponse(data *sessionData) models.SessionResponse {
	return models.SessionResponse{
		IsLoggedIn:           true,
		IDTokenClaims:        data.IDTokenClaims,
		AccessTokenExpiresIn: accessTokenExpiresIn(data.Token),
		CSRFToken:            data.CSRFToken,
	}
}

func accessTokenExpiresIn(token *oauth2.Token) *int64 {
	if token == nil || token.Expiry.IsZero() {
		return nil
	}
	seconds := int64(time.Until(token.Expiry).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return &seconds
}

func (o *OauthAgent) errorResponse(c *gin.Context, status int, code, detail string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		ErrorCode:     code,
		DetailedError: detail,
	})
}
