package oauthagent_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wfxronald/token-handler-go/pkg/client"
	"github.com/wfxronald/token-handler-go/pkg/oauthagent"
)

// mockProvider is a minimal OIDC provider: discovery, JWKS and a token
// endpoint that mints RS256 ID tokens for whatever code it is handed.
type mockProvider struct {
	server     *httptest.Server
	privateKey *rsa.PrivateKey

	mu    sync.Mutex
	nonce string
}

func (p *mockProvider) setNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonce = nonce
}

func (p *mockProvider) currentNonce() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nonce
}

func sendJson(resp http.ResponseWriter, status int, body interface{}) {
	resp.Header().Add("Content-Type", "application/json")
	resp.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(resp).Encode(body)
	}
}

func newMockProvider(t *testing.T) *mockProvider {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &mockProvider{privateKey: privateKey}
	router := http.NewServeMux()
	p.server = httptest.NewServer(router)
	t.Cleanup(p.server.Close)

	router.HandleFunc("/.well-known/openid-configuration", func(resp http.ResponseWriter, req *http.Request) {
		sendJson(resp, http.StatusOK, map[string]interface{}{
			"issuer":                                p.server.URL,
			"authorization_endpoint":                p.server.URL + "/authorize",
			"token_endpoint":                        p.server.URL + "/token",
			"jwks_uri":                              p.server.URL + "/certs",
			"userinfo_endpoint":                     p.server.URL + "/userinfo",
			"end_session_endpoint":                  p.server.URL + "/end-session",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	router.HandleFunc("/certs", func(resp http.ResponseWriter, req *http.Request) {
		set := jose.JSONWebKeySet{
			Keys: []jose.JSONWebKey{{
				KeyID:     "test",
				Algorithm: "RS256",
				Use:       "sig",
				Key:       &privateKey.PublicKey,
			}},
		}
		data, err := json.Marshal(set)
		if err != nil {
			panic(err)
		}
		resp.Header().Add("Content-Type", "application/json")
		_, _ = resp.Write(data)
	})
	router.HandleFunc("/token", func(resp http.ResponseWriter, req *http.Request) {
		claims := jwt.MapClaims{
			"iss":                p.server.URL,
			"aud":                "spa-client",
			"sub":                "test-user",
			"preferred_username": "testuser",
			"nonce":              p.currentNonce(),
			"iat":                time.Now().Unix(),
			"exp":                time.Now().Add(5 * time.Minute).Unix(),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = "test"
		idToken, err := token.SignedString(privateKey)
		if err != nil {
			panic(err)
		}
		sendJson(resp, http.StatusOK, map[string]interface{}{
			"id_token":      idToken,
			"access_token":  "at-opaque",
			"refresh_token": "rt-opaque",
			"token_type":    "Bearer",
			"expires_in":    300,
		})
	})
	return p
}

func TestCodeFlowEndToEnd(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	idp := newMockProvider(t)

	agent, err := oauthagent.NewOauthAgent(ctx,
		zap.NewExample(),
		idp.server.URL,
		"spa-client",
		"spa-secret",
		"https://spa.example.com",
		[]string{"profile"},
		[]string{"https://spa.example.com"},
		[]byte("0123456789abcdef0123456789abcdef"),
		nil,
		true, // httptest serves plain http, secure cookies would never come back
	)
	require.NoError(err)

	agentServer := httptest.NewServer(oauthagent.NewRouter(agent))
	defer agentServer.Close()

	c, err := client.NewClient(agentServer.URL, client.WithLogger(zap.NewExample().Sugar()))
	require.NoError(err)

	// a fresh browser session is logged out
	sess, err := c.OnPageLoad(ctx, "https://spa.example.com/")
	require.NoError(err)
	assert.False(sess.IsLoggedIn)

	// start the login and pick state and nonce out of the authorization URL
	start, err := c.StartLogin(ctx, map[string]string{"ui_locales": "sv"})
	require.NoError(err)
	authURL, err := url.Parse(start.AuthorizationURL)
	require.NoError(err)
	query := authURL.Query()
	require.NotEmpty(query.Get("state"))
	require.NotEmpty(query.Get("nonce"))
	assert.Equal("sv", query.Get("ui_locales"))
	idp.setNonce(query.Get("nonce"))

	// the provider redirects back, the page load finishes the flow
	sess, err = c.OnPageLoad(ctx, "https://spa.example.com/?state="+url.QueryEscape(query.Get("state"))+"&code=testcode")
	require.NoError(err)
	assert.True(sess.IsLoggedIn)
	assert.Equal("test-user", sess.IDTokenClaims["sub"])
	assert.Equal("testuser", sess.IDTokenClaims["preferred_username"])
	assert.NotEmpty(sess.CSRFToken)
	require.NotNil(sess.AccessTokenExpiresIn)
	assert.InDelta(300, *sess.AccessTokenExpiresIn, 10)

	// the session cookie survives into the next call
	sess, err = c.Session(ctx)
	require.NoError(err)
	assert.True(sess.IsLoggedIn)

	refresh, err := c.Refresh(ctx)
	require.NoError(err)
	require.NotNil(refresh.AccessTokenExpiresIn)

	logout, err := c.Logout(ctx)
	require.NoError(err)
	logoutURL, err := url.Parse(logout.LogoutURL)
	require.NoError(err)
	assert.Equal("/end-session", logoutURL.Path)
	assert.Equal("spa-client", logoutURL.Query().Get("client_id"))

	sess, err = c.Session(ctx)
	require.NoError(err)
	assert.False(sess.IsLoggedIn)
}

func TestEndToEndAuthorizationError(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	idp := newMockProvider(t)

	agent, err := oauthagent.NewOauthAgent(ctx,
		zap.NewExample(),
		idp.server.URL,
		"spa-client",
		"spa-secret",
		"https://spa.example.com",
		nil,
		[]string{"https://spa.example.com"},
		[]byte("0123456789abcdef0123456789abcdef"),
		nil,
		true,
	)
	require.NoError(err)

	agentServer := httptest.NewServer(oauthagent.NewRouter(agent))
	defer agentServer.Close()

	c, err := client.NewClient(agentServer.URL, client.WithLogger(zap.NewExample().Sugar()))
	require.NoError(err)

	_, err = c.OnPageLoad(ctx, "https://spa.example.com/?state=foo&error=login_required")
	require.Error(err)

	var apiError *client.APIError
	require.ErrorAs(err, &apiError)
	require.Equal(http.StatusUnauthorized, apiError.Status)
	require.Equal("login_required", apiError.Code)
}
