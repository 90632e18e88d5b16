package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"portal/internal/middleware"
	"portal/internal/model"
	"portal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReferences struct {
	service.ReferenceService
	keys []string
}

func (f *fakeReferences) Catalog(ctx context.Context, key string) ([]model.CatalogItem, error) {
	f.keys = append(f.keys, key)
	return []model.CatalogItem{{ID: "1", Value: "contrato"}}, nil
}

func TestReferenceLookupsAreRateLimited(t *testing.T) {
	t.Setenv("STORE_TOKEN_SECRET", "")
	gin.SetMode(gin.TestMode)

	refs := &fakeReferences{}
	router := gin.New()
	NewReferenceHandler(refs, testSessions, middleware.NewClientRateLimiter(0.001, 2)).RegisterRoutes(router.Group(""))

	lookup := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/reference/catalogs/L_LINKAGE_TYPE", nil)
		req.Header.Set("Authorization", "Bearer tok-company")
		req.Header.Set("X-Session-ID", "company")
		req.RemoteAddr = "10.1.1.1:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, lookup())
	require.Equal(t, http.StatusOK, lookup())
	assert.Equal(t, http.StatusTooManyRequests, lookup())
	assert.Equal(t, []string{"L_LINKAGE_TYPE", "L_LINKAGE_TYPE"}, refs.keys)
}
