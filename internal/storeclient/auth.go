package storeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"portal/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &raw); err != nil {
		return "", err
	}
	var parsed loginResponse
	if err := json.Unmarshal(unwrap(raw), &parsed); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	token := firstNonEmpty(parsed.Token, parsed.AccessToken)
	if token == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return token, nil
}

type wireProfile struct {
	MongoID string   `json:"_id"`
	ID      string   `json:"id"`
	Nombre  string   `json:"nombre"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Rol     string   `json:"rol"`
	Role    string   `json:"role"`
	Modulo  string   `json:"modulo"`
	Empresa *flexRef `json:"empresa,omitempty"`
}

var roleAliases = map[string]string{
	"admin":         model.RoleAdmin,
	"administrador": model.RoleAdmin,
	"superadmin":    model.RoleAdmin,
	"company":       model.RoleCompany,
	"empresa":       model.RoleCompany,
	"coordinator":   model.RoleCoordinator,
	"coordinador":   model.RoleCoordinator,
	"student":       model.RoleStudent,
	"estudiante":    model.RoleStudent,
}

// Profile fetches the user bound to the token in ctx.
func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/users/profile", nil, nil, &raw); err != nil {
		return model.Profile{}, err
	}
	var w wireProfile
	if err := json.Unmarshal(unwrap(raw, "user", "usuario"), &w); err != nil {
		return model.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	profile := model.Profile{
		ID:     firstNonEmpty(w.MongoID, w.ID),
		Name:   firstNonEmpty(w.Nombre, w.Name),
		Email:  w.Email,
		Module: w.Modulo,
	}
	role := firstNonEmpty(w.Rol, w.Role)
	if mapped, ok := roleAliases[role]; ok {
		profile.Role = mapped
	} else {
		profile.Role = role
	}
	if w.Empresa != nil {
		profile.CompanyID = w.Empresa.ID
	}
	if profile.ID == "" {
		return model.Profile{}, fmt.Errorf("profile response carried no user id")
	}
	return profile, nil
}
