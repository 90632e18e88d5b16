package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"portal/internal/model"
	"portal/internal/session"
	"portal/internal/storeclient"

	"github.com/cenkalti/backoff/v5"
)

var (
	ErrMissingSAMLToken   = errors.New("the identity provider did not return a token")
	ErrProfileUnavailable = errors.New("could not load the user profile")
)

// LoginRedirectDelay is how long a failed SSO result stays on screen before
// the browser is sent back to the login page.
const LoginRedirectDelay = 6 * time.Second

const loginPath = "/login"

// DefaultProfileRetryDelays are the waits between profile attempts after the
// first, immediate one: four attempts in total.
var DefaultProfileRetryDelays = []time.Duration{1500 * time.Millisecond, 3 * time.Second, 5 * time.Second}

var samlErrorMessages = map[string]string{
	"saml_unauthorized":   "No autorizado para ingresar a la plataforma",
	"saml_user_not_found": "El usuario no se encuentra registrado en la plataforma",
	"saml_invalid":        "La respuesta del proveedor de identidad no es válida",
	"saml_expired":        "La sesión con el proveedor de identidad expiró",
}

const defaultSAMLMessage = "No fue posible completar el inicio de sesión"

// --- DTOs ---

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token  string        `json:"-"`
	User   model.Profile `json:"user"`
	Module string        `json:"module"`
}

// SAMLOutcome is what the callback page shows. Failed outcomes carry a
// message and a delayed redirect to the login page.
type SAMLOutcome struct {
	Authenticated        bool           `json:"authenticated"`
	User                 *model.Profile `json:"user,omitempty"`
	Token                string         `json:"-"`
	Message              string         `json:"message,omitempty"`
	RedirectTo           string         `json:"redirect_to"`
	RedirectAfterSeconds int            `json:"redirect_after_seconds"`
}

// AuthStore is the authentication surface of the remote store.
type AuthStore interface {
	Login(ctx context.Context, email, password string) (string, error)
	Profile(ctx context.Context) (model.Profile, error)
}

// --- Interface ---

type AuthService interface {
	Login(ctx context.Context, sessionID string, req LoginDTO) (AuthResult, error)
	CompleteSAML(ctx context.Context, sessionID, token, errCode, msg string) (SAMLOutcome, error)
	Logout(ctx context.Context, sessionID string) error
	Current(ctx context.Context, sessionID string) session.State
}

type authService struct {
	store    AuthStore
	sessions *session.Manager
	delays   []time.Duration
}

// NewAuthService builds the service; nil delays selects DefaultProfileRetryDelays.
func NewAuthService(store AuthStore, sessions *session.Manager, delays []time.Duration) AuthService {
	if delays == nil {
		delays = DefaultProfileRetryDelays
	}
	return &authService{store: store, sessions: sessions, delays: delays}
}

func (s *authService) Login(ctx context.Context, sessionID string, req LoginDTO) (AuthResult, error) {
	token, err := s.store.Login(ctx, req.Email, req.Password)
	if err != nil {
		return AuthResult{}, err
	}
	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.establish(ctx, sessionID, profile, token); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: profile, Module: profile.Module}, nil
}

// CompleteSAML finishes the SSO redirect. An error from the identity
// provider is shown as is and the profile endpoint is never called.
func (s *authService) CompleteSAML(ctx context.Context, sessionID, token, errCode, msg string) (SAMLOutcome, error) {
	if errCode != "" || (token == "" && msg != "") {
		message := msg
		if message == "" {
			message = samlMessage(errCode)
		}
		return failedSAML(message), nil
	}
	if token == "" {
		return failedSAML(defaultSAMLMessage), ErrMissingSAMLToken
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		log.Printf("SAML callback: profile unavailable after %d attempts: %v", len(s.delays)+1, err)
		return failedSAML(defaultSAMLMessage), fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	if err := s.establish(ctx, sessionID, profile, token); err != nil {
		return failedSAML(defaultSAMLMessage), err
	}

	return SAMLOutcome{
		Authenticated: true,
		User:          &profile,
		Token:         token,
		RedirectTo:    "/" + profile.Module,
	}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	_, err := s.sessions.Open(ctx, sessionID).Dispatch(ctx, session.Logout{})
	return err
}

func (s *authService) Current(ctx context.Context, sessionID string) session.State {
	return s.sessions.Open(ctx, sessionID).State()
}

func (s *authService) establish(ctx context.Context, sessionID string, profile model.Profile, token string) error {
	_, err := s.sessions.Open(ctx, sessionID).Dispatch(ctx, session.LoginSuccess{
		User:   profile,
		Token:  token,
		Module: profile.Module,
	})
	return err
}

// fetchProfile absorbs a cold-starting store: the first attempt is
// immediate, the following ones wait for the configured delays.
func (s *authService) fetchProfile(ctx context.Context, token string) (model.Profile, error) {
	ctx = storeclient.WithToken(ctx, token)
	attempt := 0
	op := func() (model.Profile, error) {
		attempt++
		profile, err := s.store.Profile(ctx)
		if err != nil {
			return model.Profile{}, err
		}
		return profile, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(newFixedSchedule(s.delays)),
		backoff.WithMaxTries(uint(len(s.delays)+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Printf("profile attempt %d failed, retrying in %s: %v", attempt, next, err)
		}),
	)
}

func samlMessage(code string) string {
	if m, ok := samlErrorMessages[code]; ok {
		return m
	}
	return defaultSAMLMessage
}

func failedSAML(message string) SAMLOutcome {
	return SAMLOutcome{
		Message:              message,
		RedirectTo:           loginPath,
		RedirectAfterSeconds: int(LoginRedirectDelay / time.Second),
	}
}

// fixedSchedule replays a fixed list of delays, then stops.
type fixedSchedule struct {
	delays []time.Duration
	next   int
}

func newFixedSchedule(delays []time.Duration) *fixedSchedule {
	return &fixedSchedule{delays: delays}
}

func (f *fixedSchedule) NextBackOff() time.Duration {
	if f.next >= len(f.delays) {
		return backoff.Stop
	}
	d := f.delays[f.next]
	f.next++
	return d
}

func (f *fixedSchedule) Reset() { f.next = 0 }
