package handler

import (
	"net/http"

	"portal/internal/middleware"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/internal/service"
	"portal/pkg/pagination"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type IntentLogHandler struct {
	intentLogService service.IntentLogService
	sessions         middleware.SessionResolver
}

func NewIntentLogHandler(intentLogService service.IntentLogService, sessions middleware.SessionResolver) *IntentLogHandler {
	return &IntentLogHandler{intentLogService: intentLogService, sessions: sessions}
}

func (h *IntentLogHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/intent-logs")
	group.Use(middleware.RequireRole(h.sessions, model.RoleAdmin))
	{
		group.GET("", h.List)
	}
}

// List handles GET /api/intent-logs
// @Summary      Intent log
// @Description  Every lifecycle action attempted through the portal, newest first
// @Tags         intent-logs
// @Security     BearerAuth
// @Produce      json
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Items per page (default 20)"
// @Param        opportunity_id  query     string  false  "Only this opportunity"
// @Param        user_id         query     string  false  "Only this user"
// @Param        action          query     string  false  "Only this action"
// @Success      200             {object}  response.Response{data=response.Page}
// @Failure      403             {object}  response.Response
// @Router       /api/intent-logs [get]
func (h *IntentLogHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	logs, total, err := h.intentLogService.List(c.Request.Context(), repository.IntentLogFilter{
		OpportunityID: c.Query("opportunity_id"),
		UserID:        c.Query("user_id"),
		Action:        c.Query("action"),
		Page:          params.Page,
		Limit:         params.Limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve intent logs: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Paginated(logs, total, params.Page, params.Limit, 0))
}
