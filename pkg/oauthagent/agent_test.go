package oauthagent

import (
	"context"
	"reflect"
	"testing"
	"unsafe"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type FakeOauthConfig struct {
	AuthCodeURLFn func(state string, opts ...oauth2.AuthCodeOption) string
	ExchangeFn    func(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	TokenSourceFn func(ctx context.Context, t *oauth2.Token) oauth2.TokenSource
}

func (f *FakeOauthConfig) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return f.AuthCodeURLFn(state, opts...)
}

func (f *FakeOauthConfig) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	return f.ExchangeFn(ctx, code, opts...)
}

func (f *FakeOauthConfig) TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource {
	return f.TokenSourceFn(ctx, t)
}

type FakeIDTokenVerifier struct {
	VerifyFn func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

func (f *FakeIDTokenVerifier) Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
	return f.VerifyFn(ctx, rawIDToken)
}

func setUnexportedField(field reflect.Value, value interface{}) {
	reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).
		Elem().
		Set(reflect.ValueOf(value))
}

func TestLogoutURL(t *testing.T) {
	o := OauthAgent{
		clientID:      "test-client",
		redirectURL:   "https://example.com",
		endSessionURL: "https://auth.example.com/logout",
	}
	actual, err := o.LogoutURL("my-id-token")
	require.NoError(t, err)
	expected := "https://auth.example.com/logout?client_id=test-client&id_token_hint=my-id-token&post_logout_redirect_uri=https%3A%2F%2Fexample.com"
	assert.Equal(t, expected, actual.String())
}
