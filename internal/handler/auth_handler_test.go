package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portal/internal/middleware"
	"portal/internal/model"
	"portal/internal/service"
	"portal/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	loggedOut []string
	outcome   service.SAMLOutcome
	outErr    error
}

func (f *fakeAuth) Login(ctx context.Context, sid string, req service.LoginDTO) (service.AuthResult, error) {
	return service.AuthResult{Token: "tok-new", User: model.Profile{ID: "u-1", Module: "empresa"}, Module: "empresa"}, nil
}

func (f *fakeAuth) CompleteSAML(ctx context.Context, sid, token, errCode, msg string) (service.SAMLOutcome, error) {
	return f.outcome, f.outErr
}

func (f *fakeAuth) Logout(ctx context.Context, sid string) error {
	f.loggedOut = append(f.loggedOut, sid)
	return nil
}

func (f *fakeAuth) Current(ctx context.Context, sid string) session.State {
	return session.State{}
}

func newAuthRouter(auth *fakeAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewAuthHandler(auth).RegisterRoutes(router.Group(""))
	return router
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsSessionCookies(t *testing.T) {
	router := newAuthRouter(&fakeAuth{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ana@example.edu","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	token := cookieNamed(w, middleware.TokenCookie)
	require.NotNil(t, token)
	assert.Equal(t, "tok-new", token.Value)
	assert.True(t, token.HttpOnly)
	require.NotNil(t, cookieNamed(w, middleware.SessionCookie))
	assert.NotEmpty(t, w.Header().Get(middleware.SessionHeader))
	assert.NotContains(t, w.Body.String(), "tok-new")
}

func TestLoginRejectsMalformedPayload(t *testing.T) {
	router := newAuthRouter(&fakeAuth{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSAMLFailureSchedulesRedirect(t *testing.T) {
	router := newAuthRouter(&fakeAuth{outcome: service.SAMLOutcome{
		Message:              "No autorizado para ingresar a la plataforma",
		RedirectTo:           "/login",
		RedirectAfterSeconds: 6,
	}})

	req := httptest.NewRequest(http.MethodGet, "/auth/saml/callback?error=saml_unauthorized", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "6; url=/login", w.Header().Get("Refresh"))
	assert.Contains(t, w.Body.String(), "No autorizado para ingresar a la plataforma")
	assert.Nil(t, cookieNamed(w, middleware.TokenCookie))
}

func TestSAMLSuccessEstablishesSession(t *testing.T) {
	router := newAuthRouter(&fakeAuth{outcome: service.SAMLOutcome{
		Authenticated: true,
		User:          &model.Profile{ID: "u-1", Module: "admin"},
		Token:         "tok-sso",
		RedirectTo:    "/admin",
	}})

	req := httptest.NewRequest(http.MethodGet, "/auth/saml/callback?token=tok-sso", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, cookieNamed(w, middleware.TokenCookie))
	assert.Equal(t, "tok-sso", cookieNamed(w, middleware.TokenCookie).Value)
	assert.Contains(t, w.Body.String(), `"redirect_to":"/admin"`)
}

func TestLogoutClearsSession(t *testing.T) {
	auth := &fakeAuth{}
	router := newAuthRouter(auth)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set(middleware.SessionHeader, "sid-9")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sid-9"}, auth.loggedOut)
	cleared := cookieNamed(w, middleware.SessionCookie)
	require.NotNil(t, cleared)
	assert.True(t, cleared.MaxAge < 0)
}
