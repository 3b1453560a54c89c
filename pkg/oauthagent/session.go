package oauthagent

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"
)

const (
	sessionCookieName = "th-session"
	loginCookieName   = "th-login"
)

// sessionData is everything the agent knows about a logged-in user. It only
// ever exists inside the encrypted session cookie.
type sessionData struct {
	Token         *oauth2.Token          `json:"token"`
	RawIDToken    string                 `json:"raw_id_token"`
	IDTokenClaims map[string]interface{} `json:"id_token_claims,omitempty"`
	CSRFToken     string                 `json:"csrf_token"`
}

// loginData bridges the gap between login/start and login/end.
type loginData struct {
	State string `json:"state"`
	Nonce string `json:"nonce"`
}

type cookieCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

func newCookieCodec(hashKey, blockKey []byte, secure bool) *cookieCodec {
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	// provider tokens overflow the 4k default
	sc.MaxLength(8192)
	return &cookieCodec{
		sc:     sc,
		secure: secure,
	}
}

func (cc *cookieCodec) writeSession(c *gin.Context, data *sessionData) error {
	return cc.write(c, sessionCookieName, data, 0)
}

func (cc *cookieCodec) readSession(c *gin.Context) (*sessionData, error) {
	data := &sessionData{}
	if err := cc.read(c, sessionCookieName, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (cc *cookieCodec) clearSession(c *gin.Context) {
	cc.clear(c, sessionCookieName)
}

func (cc *cookieCodec) writeLogin(c *gin.Context, data *loginData) error {
	return cc.write(c, loginCookieName, data, int(time.Hour.Seconds()))
}

func (cc *cookieCodec) readLogin(c *gin.Context) (*loginData, error) {
	data := &loginData{}
	if err := cc.read(c, loginCookieName, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (cc *cookieCodec) clearLogin(c *gin.Context) {
	cc.clear(c, loginCookieName)
}

func (cc *cookieCodec) write(c *gin.Context, name string, value interface{}, maxAge int) error {
	encoded, err := cc.sc.Encode(name, value)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cc.secure,
		SameSite: cc.sameSite(),
	})
	return nil
}

func (cc *cookieCodec) read(c *gin.Context, name string, value interface{}) error {
	encoded, err := c.Cookie(name)
	if err != nil {
		return err
	}
	return cc.sc.Decode(name, encoded, value)
}

func (cc *cookieCodec) clear(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cc.secure,
		SameSite: cc.sameSite(),
	})
}

func (cc *cookieCodec) sameSite() http.SameSite {
	// SameSite=None requires Secure, local development falls back to Lax
	if cc.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
