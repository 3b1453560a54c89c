// Package client talks to an OAuth Agent implementing the Token Handler
// pattern. The agent keeps the OAuth/OIDC tokens in cookies it issues itself,
// this client only translates session operations into HTTP calls against it
// and never sees a token.
package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/wfxronald/token-handler-go/pkg/oauthagent/models"
)

type Client struct {
	logger  *zap.SugaredLogger
	baseURL *url.URL
	client  *http.Client
}

// NewClient creates a client for the agent at addr. The address is normalized
// once so that endpoint paths always join with exactly one slash.
func NewClient(addr string, options ...Option) (*Client, error) {
	opts, err := newOptions(options...)
	if err != nil {
		return nil, err
	}

	if addr == "" {
		return nil, ErrNoAgentURL
	}

	baseURL, err := url.Parse(strings.TrimRight(addr, "/") + "/")
	if err != nil {
		return nil, err
	}

	c := Client{
		baseURL: baseURL,
	}

	if opts.logger != nil {
		c.logger = opts.logger
	} else {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		c.logger = l.Sugar()
	}

	if opts.httpClient != nil {
		c.client = opts.httpClient
	} else {
		// The jar is the non-browser analog of fetch's credentials: include,
		// it carries the session cookies the agent sets.
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: opts.tlsConfig,
			},
			Jar: jar,
		}
	}

	return &c, nil
}

// StartLogin asks the agent for an authorization request URL. The extra
// params are appended to the authorization request, e.g. scope overrides or
// a login hint. Navigating the browser to the returned URL is the caller's
// responsibility.
func (c *Client) StartLogin(ctx context.Context, extraParams map[string]string) (*models.StartLoginResponse, error) {
	form := url.Values{}
	for k, v := range extraParams {
		form.Set(k, v)
	}
	var resp models.StartLoginResponse
	if err := c.postForm(ctx, "login/start", form.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EndLogin posts the authorization response parameters of the current page to
// the agent, which finishes the code flow and issues its session cookies.
// query is the page's raw query string, with or without the leading "?".
func (c *Client) EndLogin(ctx context.Context, query string) (*models.SessionResponse, error) {
	var resp models.SessionResponse
	if err := c.postForm(ctx, "login/end", strings.TrimPrefix(query, "?"), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Session returns the agent's view of the current session.
func (c *Client) Session(ctx context.Context) (*models.SessionResponse, error) {
	var resp models.SessionResponse
	if err := c.get(ctx, "session", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh asks the agent to refresh the access token it holds for this
// session.
func (c *Client) Refresh(ctx context.Context) (*models.RefreshResponse, error) {
	var resp models.RefreshResponse
	if err := c.post(ctx, "refresh", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the session on the agent. When the response carries a logout
// URL the caller must redirect the user there to complete single logout.
func (c *Client) Logout(ctx context.Context) (*models.LogoutResponse, error) {
	var resp models.LogoutResponse
	if err := c.post(ctx, "logout", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OnPageLoad is the page-load entry point. When the page URL looks like an
// OAuth authorization response the query is handed to EndLogin, otherwise the
// current session state is fetched.
func (c *Client) OnPageLoad(ctx context.Context, pageURL string) (*models.SessionResponse, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	if isAuthorizationResponse(u.Query()) {
		return c.EndLogin(ctx, u.RawQuery)
	}
	return c.Session(ctx)
}

// isAuthorizationResponse reports whether the query parameters of a page are
// an OAuth authorization response. Three shapes qualify: the plain code
// response (state + code), a JARM response (a single "response" parameter and
// nothing else), and an authorization server error (state + error).
func isAuthorizationResponse(params url.Values) bool {
	if params.Has("state") && params.Has("code") {
		return true
	}
	if len(params) == 1 && params.Has("response") {
		return true
	}
	return params.Has("state") && params.Has("error")
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.JoinPath(path).String(), nil)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) post(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(path).String(), nil)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) postForm(ctx context.Context, path string, form string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(path).String(), strings.NewReader(form))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	c.logger.Debugw("calling oauth agent", "method", req.Method, "url", req.URL.String())

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(res, body)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
