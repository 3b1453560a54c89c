// Package oauthagent is a reference OAuth Agent for the Token Handler
// pattern. It runs the authorization code flow against an OIDC provider and
// keeps the resulting tokens in encrypted cookies, so the SPA talking to it
// through pkg/client never holds a token.
package oauthagent

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type OauthConfig interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource
}

type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type OauthAgent struct {
	logger         *zap.SugaredLogger
	clientID       string
	redirectURL    string
	trustedOrigins []string
	oauthConfig    OauthConfig
	verifier       IDTokenVerifier
	endSessionURL  string
	cookies        *cookieCodec
}

func NewOauthAgent(ctx context.Context,
	logger *zap.Logger,
	oidcProvider string,
	clientID string,
	clientSecret string,
	redirectURL string,
	scopes []string,
	origins []string,
	cookieHashKey []byte,
	cookieBlockKey []byte,
	insecureCookies bool,
) (*OauthAgent, error) {
	if len(origins) == 0 {
		return nil, fmt.Errorf("at least 1 trusted origin is required")
	}

	provider, err := oidc.NewProvider(ctx, oidcProvider)
	if err != nil {
		return nil, err
	}

	var claims struct {
		EndSessionURL string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&claims); err != nil {
		return nil, err
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  redirectURL,
		Scopes:       append([]string{oidc.ScopeOpenID}, scopes...),
	}

	return &OauthAgent{
		logger:         logger.Sugar(),
		clientID:       clientID,
		redirectURL:    redirectURL,
		trustedOrigins: origins,
		oauthConfig:    config,
		verifier:       verifier,
		endSessionURL:  claims.EndSessionURL,
		cookies:        newCookieCodec(cookieHashKey, cookieBlockKey, !insecureCookies),
	}, nil
}

// LogoutURL builds the provider URL that ends the user's single sign-on
// session. The id_token_hint tells the provider whose session to end.
func (o *OauthAgent) LogoutURL(idToken string) (*url.URL, error) {
	u, err := url.Parse(o.endSessionURL)
	if err != nil {
		return nil, err
	}
	params := u.Query()
	params.Add("client_id", o.clientID)
	params.Add("id_token_hint", idToken)
	params.Add("post_logout_redirect_uri", o.redirectURL)
	u.RawQuery = params.Encode()
	return u, nil
}
