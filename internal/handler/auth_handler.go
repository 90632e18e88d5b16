package handler

import (
	"fmt"
	"net/http"

	"portal/internal/middleware"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.Me)
		auth.GET("/saml/callback", h.SAMLCallback)
	}
}

// sessionFor reuses the caller's session id or opens a new one.
func sessionFor(c *gin.Context) string {
	if sid := middleware.SessionID(c); sid != "" {
		return sid
	}
	return uuid.NewString()
}

// Login handles POST /auth/login
// @Summary      Login
// @Description  Forwards the credentials to the store, loads the profile and binds both to the portal session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginDTO  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.AuthResult}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sid := sessionFor(c)
	result, err := h.authService.Login(c.Request.Context(), sid, req)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetSessionCookies(c, sid, result.Token)
	c.Header(middleware.SessionHeader, sid)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Logout handles POST /auth/logout
// @Summary      Logout
// @Description  Clears every persisted session key and the session cookies
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if sid := middleware.SessionID(c); sid != "" {
		if err := h.authService.Logout(c.Request.Context(), sid); err != nil {
			respondError(c, err)
			return
		}
	}
	middleware.ClearSessionCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out successfully"))
}

// Me handles GET /auth/me
// @Summary      Current session
// @Description  Returns the authenticated user and module of the caller's session, if any
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	state := h.authService.Current(c.Request.Context(), middleware.SessionID(c))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"authenticated": state.Authenticated(),
		"user":          state.User,
		"module":        state.Module,
		"loading":       state.Loading,
	}))
}

// SAMLCallback handles GET /auth/saml/callback
// @Summary      SSO callback
// @Description  Completes the institutional SSO redirect. Failures carry a message and a delayed redirect to the login page
// @Tags         auth
// @Produce      json
// @Param        token  query     string  false  "Store token issued by the identity provider"
// @Param        error  query     string  false  "Identity provider error code"
// @Param        msg    query     string  false  "Human readable error message"
// @Success      200    {object}  response.Response{data=service.SAMLOutcome}
// @Failure      401    {object}  response.Response{data=service.SAMLOutcome}
// @Router       /auth/saml/callback [get]
func (h *AuthHandler) SAMLCallback(c *gin.Context) {
	sid := sessionFor(c)
	outcome, err := h.authService.CompleteSAML(c.Request.Context(), sid, c.Query("token"), c.Query("error"), c.Query("msg"))

	if !outcome.Authenticated {
		if err != nil {
			_ = c.Error(err)
		}
		c.Header("Refresh", fmt.Sprintf("%d; url=%s", outcome.RedirectAfterSeconds, outcome.RedirectTo))
		c.JSON(http.StatusUnauthorized, response.Response{
			Status:     "error",
			StatusCode: http.StatusUnauthorized,
			Data:       outcome,
			Error:      outcome.Message,
		})
		return
	}

	middleware.SetSessionCookies(c, sid, outcome.Token)
	c.Header(middleware.SessionHeader, sid)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, outcome))
}
