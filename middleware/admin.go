package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// PasscodeHeader carries the shared admin secret.
const PasscodeHeader = "x-admin-passcode"

// Passcode checks candidates against the admin secret. A bcrypt hash, when
// configured, is used instead of the plain value.
type Passcode struct {
	plain string
	hash  []byte
}

// NewPasscode returns a verifier for the plain passcode or its bcrypt hash.
func NewPasscode(plain, hash string) *Passcode {
	p := &Passcode{plain: plain}
	if hash != "" {
		p.hash = []byte(hash)
	}
	return p
}

// Verify reports whether candidate matches the admin secret.
func (p *Passcode) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	if p.hash != nil {
		return bcrypt.CompareHashAndPassword(p.hash, []byte(candidate)) == nil
	}
	if p.plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.plain), []byte(candidate)) == 1
}

// AdminAuth returns an Echo middleware that admits requests carrying either the
// passcode header or a valid bearer session token.
func AdminAuth(p *Passcode, s *Sessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if pc := req.Header.Get(PasscodeHeader); pc != "" {
				if !p.Verify(pc) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid passcode")
				}
				c.Set("admin_auth", "passcode")
				return next(c)
			}

			auth := req.Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing admin credentials")
			}
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unsupported authorization scheme")
			}
			if _, err := s.Parse(strings.TrimSpace(token)); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			c.Set("admin_auth", "session")
			return next(c)
		}
	}
}
