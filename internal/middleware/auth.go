package middleware

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"portal/internal/model"
	"portal/internal/session"
	"portal/internal/storeclient"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookie = "portal_session"
	TokenCookie   = "access_token"
	SessionHeader = "X-Session-ID"

	ctxActor     = "actor"
	ctxToken     = "token"
	ctxSessionID = "sessionID"
)

var (
	ErrMissingCredentials = errors.New("authorization is missing")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionMismatch    = errors.New("session is not authenticated for this token")
)

// SessionResolver returns the state of a browser session.
type SessionResolver interface {
	Current(ctx context.Context, sessionID string) session.State
}

// GetTokenSecret returns the secret the store signs its tokens with. Empty
// means tokens are opaque to the portal and only the session binding is checked.
func GetTokenSecret() []byte {
	return []byte(os.Getenv("STORE_TOKEN_SECRET"))
}

func cookieSecurity() (http.SameSite, bool) {
	if os.Getenv("GIN_MODE") == "release" {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetSessionCookies stores the session id and the store token as HttpOnly cookies.
func SetSessionCookies(c *gin.Context, sessionID, token string) {
	sameSite, secure := cookieSecurity()
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, sessionID, 3600*24*7, "/", "", secure, true)
	c.SetCookie(TokenCookie, token, 3600*24, "/", "", secure, true)
}

func ClearSessionCookies(c *gin.Context) {
	sameSite, secure := cookieSecurity()
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
	c.SetCookie(TokenCookie, "", -1, "/", "", secure, true)
}

// SessionID reads the session id from the cookie, the header or the query.
func SessionID(c *gin.Context) string {
	if sid, err := c.Cookie(SessionCookie); err == nil && sid != "" {
		return sid
	}
	if sid := c.GetHeader(SessionHeader); sid != "" {
		return sid
	}
	return c.Query("session")
}

// bearerToken tries the cookie first, then the Authorization header, then the query.
func bearerToken(c *gin.Context) (string, error) {
	if token, err := c.Cookie(TokenCookie); err == nil && token != "" {
		return token, nil
	}
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errors.New("invalid authorization format. Expected 'Bearer <token>'")
		}
		return parts[1], nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingCredentials
}

func verifyToken(tokenString string, secret []byte) error {
	if len(secret) == 0 {
		return nil
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// Authenticate resolves the actor of a request: the token must verify and
// belong to an authenticated session.
func Authenticate(c *gin.Context, sessions SessionResolver) (model.Profile, string, error) {
	token, err := bearerToken(c)
	if err != nil {
		return model.Profile{}, "", err
	}
	if err := verifyToken(token, GetTokenSecret()); err != nil {
		return model.Profile{}, "", err
	}

	sid := SessionID(c)
	if sid == "" {
		return model.Profile{}, "", ErrMissingCredentials
	}
	state := sessions.Current(c.Request.Context(), sid)
	if !state.Authenticated() || state.Token != token {
		return model.Profile{}, "", ErrSessionMismatch
	}

	c.Set(ctxSessionID, sid)
	return *state.User, token, nil
}

// RequireRole authenticates the request and checks the actor's role. With no
// roles every authenticated actor passes.
func RequireRole(sessions SessionResolver, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, token, err := Authenticate(c, sessions)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		if len(allowedRoles) > 0 {
			roleAllowed := false
			for _, role := range allowedRoles {
				if actor.Role == role {
					roleAllowed = true
					break
				}
			}
			if !roleAllowed {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
				return
			}
		}

		c.Set(ctxActor, actor)
		c.Set(ctxToken, token)
		c.Set("userID", actor.ID)
		c.Set("userRole", actor.Role)

		c.Next()
	}
}

// Actor returns the profile set by RequireRole.
func Actor(c *gin.Context) model.Profile {
	if v, ok := c.Get(ctxActor); ok {
		if actor, ok := v.(model.Profile); ok {
			return actor
		}
	}
	return model.Profile{}
}

// StoreContext is the request context carrying the actor's store token.
func StoreContext(c *gin.Context) context.Context {
	return storeclient.WithToken(c.Request.Context(), c.GetString(ctxToken))
}
