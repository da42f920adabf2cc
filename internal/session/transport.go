package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const DefaultCookieName = "token"

// Transport carries the session token in a single HTTP-only cookie.
type Transport struct {
	name   string
	secure bool
	now    func() time.Time
}

func NewTransport(name string, secure bool) *Transport {
	if name == "" {
		name = DefaultCookieName
	}
	return &Transport{name: name, secure: secure, now: time.Now}
}

// Attach sets the session cookie so that it expires together with the token.
func (t *Transport) Attach(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(t.now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     t.name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (t *Transport) Read(c *gin.Context) (string, bool) {
	token, err := c.Cookie(t.name)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

// Clear expires the cookie. Safe to call when no cookie was sent.
func (t *Transport) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     t.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
