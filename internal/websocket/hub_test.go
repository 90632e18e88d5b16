package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"portal/internal/model"
	"portal/internal/service"
	"portal/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions struct{}

func (stubSessions) Current(ctx context.Context, sid string) session.State {
	if sid != "sid-1" {
		return session.State{}
	}
	actor := coordinator
	return session.State{User: &actor, Token: "tok-1"}
}

func newTestServer(t *testing.T) (*Hub, string) {
	t.Helper()
	t.Setenv("STORE_TOKEN_SECRET", "")
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	deps := Dependencies{
		Sessions:      stubSessions{},
		Opportunities: &stubOpportunities{page: testPage()},
		Drafts:        &stubDrafts{drafts: map[string]service.DraftResponse{}},
		References:    service.NewReferenceService(&stubReferenceStore{}, nil, time.Minute),
	}
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { ServeWs(hub, deps, c) })
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestServeWsRejectsUnauthenticated(t *testing.T) {
	_, url := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{}
	header.Set("Authorization", "Bearer someone-elses")
	header.Set("X-Session-ID", "sid-1")
	_, resp, err = websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWsPushesScreensOnChange(t *testing.T) {
	hub, url := newTestServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer tok-1")
	header.Set("X-Session-ID", "sid-1")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first Outbound
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, MsgScreen, first.Type)
	require.NotNil(t, first.Screen)
	assert.Len(t, first.Screen.List.Rows, 2)
	assert.Equal(t, 1, hub.Len())

	hub.PublishOpportunityChanged(model.OpportunityChanged{OpportunityID: "o-1", Status: model.StatusUnderReview})
	var second Outbound
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, MsgScreen, second.Type)

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgNavigate, View: "detail", OpportunityID: "o-2"}))
	var detail Outbound
	require.NoError(t, conn.ReadJSON(&detail))
	require.NotNil(t, detail.Screen)
	require.NotNil(t, detail.Screen.Detail)
	assert.Equal(t, "o-2", detail.Screen.Detail.Opportunity.ID)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
