package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"portal/internal/model"
	"portal/internal/session"
	"portal/internal/storeclient"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthStore struct {
	mu           sync.Mutex
	failProfiles int
	profileCalls int
	tokens       []string
	loginErr     error
}

func (f *fakeAuthStore) Login(ctx context.Context, email, password string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "tok-" + email, nil
}

func (f *fakeAuthStore) Profile(ctx context.Context) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	f.tokens = append(f.tokens, storeclient.TokenFrom(ctx))
	if f.profileCalls <= f.failProfiles {
		return model.Profile{}, &storeclient.StoreError{StatusCode: http.StatusServiceUnavailable, Message: "Service Unavailable"}
	}
	return model.Profile{ID: "u-1", Name: "Ana", Role: model.RoleCompany, Module: "empresa", CompanyID: "c-1"}, nil
}

var quickDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

func newTestAuth(store *fakeAuthStore) (AuthService, *session.Manager, *session.MemoryStorage) {
	storage := session.NewMemoryStorage()
	manager := session.NewManager(storage)
	return NewAuthService(store, manager, quickDelays), manager, storage
}

func TestCompleteSAML_ErrorNeverCallsProfile(t *testing.T) {
	store := &fakeAuthStore{}
	svc, _, _ := newTestAuth(store)

	out, err := svc.CompleteSAML(context.Background(), "s-1", "", "saml_unauthorized", "No autorizado")
	require.NoError(t, err)
	assert.False(t, out.Authenticated)
	assert.Equal(t, "No autorizado", out.Message)
	assert.Equal(t, "/login", out.RedirectTo)
	assert.Equal(t, 6, out.RedirectAfterSeconds)
	assert.Zero(t, store.profileCalls)
}

func TestCompleteSAML_ErrorCodeWithoutMessage(t *testing.T) {
	store := &fakeAuthStore{}
	svc, _, _ := newTestAuth(store)

	out, err := svc.CompleteSAML(context.Background(), "s-1", "abc123", "saml_user_not_found", "")
	require.NoError(t, err)
	assert.Equal(t, samlErrorMessages["saml_user_not_found"], out.Message)
	assert.Zero(t, store.profileCalls)

	out, _ = svc.CompleteSAML(context.Background(), "s-1", "", "something_new", "")
	assert.Equal(t, defaultSAMLMessage, out.Message)
}

func TestCompleteSAML_MissingToken(t *testing.T) {
	store := &fakeAuthStore{}
	svc, _, _ := newTestAuth(store)

	out, err := svc.CompleteSAML(context.Background(), "s-1", "", "", "")
	assert.ErrorIs(t, err, ErrMissingSAMLToken)
	assert.Equal(t, "/login", out.RedirectTo)
	assert.Zero(t, store.profileCalls)
}

func TestCompleteSAML_SucceedsOnFourthAttempt(t *testing.T) {
	store := &fakeAuthStore{failProfiles: 3}
	svc, manager, storage := newTestAuth(store)

	logins := 0
	manager.Open(context.Background(), "s-1").Subscribe(func(st session.State) {
		if st.Authenticated() {
			logins++
		}
	})

	out, err := svc.CompleteSAML(context.Background(), "s-1", "abc123", "", "")
	require.NoError(t, err)
	assert.True(t, out.Authenticated)
	require.NotNil(t, out.User)
	assert.Equal(t, "u-1", out.User.ID)
	assert.Equal(t, "/empresa", out.RedirectTo)

	assert.Equal(t, 4, store.profileCalls)
	assert.Equal(t, []string{"abc123", "abc123", "abc123", "abc123"}, store.tokens)
	assert.Equal(t, 1, logins)

	values, err := storage.Load(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", values[model.SessionKeyToken])
	assert.Equal(t, "empresa", values[model.SessionKeyModule])
	assert.Contains(t, values[model.SessionKeyUser], `"id":"u-1"`)
}

func TestCompleteSAML_GivesUpAfterFourAttempts(t *testing.T) {
	store := &fakeAuthStore{failProfiles: 10}
	svc, _, storage := newTestAuth(store)

	out, err := svc.CompleteSAML(context.Background(), "s-1", "abc123", "", "")
	assert.ErrorIs(t, err, ErrProfileUnavailable)
	assert.False(t, out.Authenticated)
	assert.Equal(t, "/login", out.RedirectTo)
	assert.Equal(t, 6, out.RedirectAfterSeconds)
	assert.Equal(t, 4, store.profileCalls)

	values, _ := storage.Load(context.Background(), "s-1")
	assert.Empty(t, values)
}

func TestLoginAndLogout(t *testing.T) {
	store := &fakeAuthStore{}
	svc, _, storage := newTestAuth(store)
	ctx := context.Background()

	res, err := svc.Login(ctx, "s-1", LoginDTO{Email: "ana@empresa.co", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "tok-ana@empresa.co", res.Token)
	assert.Equal(t, "empresa", res.Module)
	assert.True(t, svc.Current(ctx, "s-1").Authenticated())

	require.NoError(t, svc.Logout(ctx, "s-1"))
	assert.False(t, svc.Current(ctx, "s-1").Authenticated())
	values, _ := storage.Load(ctx, "s-1")
	assert.Empty(t, values)
}

func TestLogin_StoreRejection(t *testing.T) {
	store := &fakeAuthStore{loginErr: &storeclient.StoreError{StatusCode: http.StatusUnauthorized, Message: "Credenciales inválidas"}}
	svc, _, _ := newTestAuth(store)

	_, err := svc.Login(context.Background(), "s-1", LoginDTO{Email: "a@b.co", Password: "x"})
	var storeErr *storeclient.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "Credenciales inválidas", storeErr.Message)
	assert.Zero(t, store.profileCalls)
}

func TestFixedSchedule(t *testing.T) {
	s := newFixedSchedule(DefaultProfileRetryDelays)
	assert.Equal(t, 1500*time.Millisecond, s.NextBackOff())
	assert.Equal(t, 3*time.Second, s.NextBackOff())
	assert.Equal(t, 5*time.Second, s.NextBackOff())
	assert.Equal(t, backoff.Stop, s.NextBackOff())

	s.Reset()
	assert.Equal(t, 1500*time.Millisecond, s.NextBackOff())
}
