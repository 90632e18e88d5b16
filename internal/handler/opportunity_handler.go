package handler

import (
	"net/http"
	"strings"

	"portal/internal/middleware"
	"portal/internal/model"
	"portal/internal/service"
	"portal/pkg/pagination"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

// listFilters are forwarded to the store as they come.
var listFilters = []string{"status", "kind", "company_id", "period", "program"}

type OpportunityHandler struct {
	lifecycle service.LifecycleService
	drafts    service.DraftService
	sessions  middleware.SessionResolver
}

func NewOpportunityHandler(lifecycle service.LifecycleService, drafts service.DraftService, sessions middleware.SessionResolver) *OpportunityHandler {
	return &OpportunityHandler{lifecycle: lifecycle, drafts: drafts, sessions: sessions}
}

func (h *OpportunityHandler) RegisterRoutes(router *gin.RouterGroup) {
	reviewers := middleware.RequireRole(h.sessions, model.RoleAdmin, model.RoleCoordinator)

	group := router.Group("/api/opportunities")
	group.Use(middleware.RequireRole(h.sessions))
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.GET("/:id/history", h.History)
		group.GET("/:id/actions", h.Actions)
		group.PUT("/:id", h.Update)
		group.POST("/:id/submit", h.Submit)
		group.POST("/:id/approve-program", reviewers, h.ApproveProgram)
		group.POST("/:id/reject-program", reviewers, h.RejectProgram)
		group.POST("/:id/reject", reviewers, h.Reject)
		group.POST("/:id/duplicate", h.Duplicate)
	}
}

// List handles GET /api/opportunities
// @Summary      List opportunities
// @Description  Paging, sorting and filtering are delegated to the store; counts come from its answer
// @Tags         opportunities
// @Security     BearerAuth
// @Produce      json
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Items per page (default 20, max 100)"
// @Param        search   query     string  false  "Free text search"
// @Param        sort     query     string  false  "Sort field"
// @Param        order    query     string  false  "asc or desc"
// @Param        status   query     string  false  "Status filter"
// @Param        kind     query     string  false  "practice or monitoring"
// @Success      200      {object}  response.Response{data=response.Page}
// @Failure      401      {object}  response.Response
// @Router       /api/opportunities [get]
func (h *OpportunityHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	q := model.ListQuery{
		Page:          params.Page,
		Limit:         params.Limit,
		Search:        strings.TrimSpace(c.Query("search")),
		SortField:     params.SortField,
		SortDirection: model.SortAsc,
	}
	if params.SortDesc {
		q.SortDirection = model.SortDesc
	}
	for _, key := range listFilters {
		if v := c.Query(key); v != "" {
			if q.Filters == nil {
				q.Filters = make(map[string]string)
			}
			q.Filters[key] = v
		}
	}

	page, err := h.lifecycle.List(middleware.StoreContext(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	current := page.CurrentPage
	if current == 0 {
		current = params.Page
	}
	c.JSON(http.StatusOK, response.Paginated(page.Items, page.Total, current, params.Limit, page.TotalPages))
}

// Get handles GET /api/opportunities/:id
// @Summary      Get opportunity
// @Description  Always re-fetched from the store
// @Tags         opportunities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Opportunity ID"
// @Success      200  {object}  response.Response{data=model.Opportunity}
// @Failure      404  {object}  response.Response
// @Router       /api/opportunities/{id} [get]
func (h *OpportunityHandler) Get(c *gin.Context) {
	opp, err := h.lifecycle.Refresh(middleware.StoreContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, opp))
}

// History handles GET /api/opportunities/:id/history
// @Summary      Status history
// @Tags         opportunities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Opportunity ID"
// @Success      200  {object}  response.Response{data=[]model.StatusHistoryEntry}
// @Router       /api/opportunities/{id}/history [get]
func (h *OpportunityHandler) History(c *gin.Context) {
	history, err := h.lifecycle.History(middleware.StoreContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []model.StatusHistoryEntry{}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// Actions handles GET /api/opportunities/:id/actions
// @Summary      Available actions
// @Description  Lifecycle actions the caller may perform on the opportunity in its current status
// @Tags         opportunities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Opportunity ID"
// @Success      200  {object}  response.Response{data=[]string}
// @Router       /api/opportunities/{id}/actions [get]
func (h *OpportunityHandler) Actions(c *gin.Context) {
	opp, err := h.lifecycle.Refresh(middleware.StoreContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.lifecycle.AvailableActions(opp, middleware.Actor(c))))
}

// Update handles PUT /api/opportunities/:id
// @Summary      Edit opportunity
// @Description  Applies the fields through a throwaway draft so the form validation runs before the store is called
// @Tags         opportunities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Opportunity ID"
// @Param        payload  body      service.SetFieldsDTO   true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.Opportunity}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/opportunities/{id} [put]
func (h *OpportunityHandler) Update(c *gin.Context) {
	var req service.SetFieldsDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := middleware.StoreContext(c)
	actor := middleware.Actor(c)
	draft, err := h.drafts.Start(ctx, actor, service.StartDraftDTO{OpportunityID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}

	opp, err := func() (model.Opportunity, error) {
		if _, err := h.drafts.SetFields(ctx, actor, draft.ID, req); err != nil {
			return model.Opportunity{}, err
		}
		return h.drafts.Submit(ctx, actor, draft.ID)
	}()
	if err != nil {
		_ = h.drafts.Discard(ctx, actor, draft.ID)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, opp))
}

// Submit handles POST /api/opportunities/:id/submit
// @Summary      Submit for review
// @Tags         opportunities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Opportunity ID"
// @Success      200  {object}  response.Response{data=model.Opportunity}
// @Failure      409  {object}  response.Response
// @Router       /api/opportunities/{id}/submit [post]
func (h *OpportunityHandler) Submit(c *gin.Context) {
	opp, err := h.lifecycle.SubmitForReview(middleware.StoreContext(c), middleware.Actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, opp))
}

// ApproveProgram handles POST /api/opportunities/:id/approve-program
// @Summary      Approve a program
// @Description  Approving the first program of an opportunity under review activates it
// @Tags         opportunities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Opportunity ID"
// @Param        payload  body      service.ProgramDecisionDTO  true  "Program decision"
// @Success      200      {object}  response.Response{data=model.Opportunity}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/opportunities/{id}/approve-program [post]
func (h *OpportunityHandler) ApproveProgram(c *gin.Context) {
	var req service.ProgramDecisionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	program := model.ProgramRef{Level: req.Level, Name: req.Program}
	opp, err := h.lifecycle.ApproveProgram(middleware.StoreContext(c), middleware.Actor(c), c.Param("id"), program, req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, opp))
}

// RejectProgram handles POST /api/opportunities/:id/reject-program
// @Summary      Reject a program
// @Description  Records the decision; the opportunity status is not changed
// @Tags         opportunities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Opportunity ID"
// @Param        payload  body      service.ProgramDecisionDTO  true  "Program decision"
// @Success      200      {object}  response.Response{data=model.Opportunity}
// @Failure      409      {object}  response.Response
// @Router       /api/opportunities/{id}/reject-program [post]
func (h *OpportunityHandler) RejectProgram(c *gin.Context) {
	var req service.ProgramDecisionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	program := model.ProgramRef{Level: req.Level, Name: req.Program}
	opp, err := h.lifecycle.RejectProgram(middleware.StoreContext(c), middleware.Actor(c), c.Param("id"), program, req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, opp))
}

// Reject handles POST /api/opportunities/:id/reject
// @Summary      Reject opportunity
// @Description  Needs a catalog reason; "other" also needs a description
// @Tags         opportunities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Opportunity ID"
// @Param        payload  body      service.RejectOpportunityDTO  true  "Reason"
// @Success      200      {object}  response.Response{data=model.Opportunity}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/opportunities/{id}/reject [post]
func (h *OpportunityHandler) Reject(c *gin.Context) {
	var req service.RejectOpportunityDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	opp, err := h.lifecycle.Reject(middleware.StoreContext(c), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, opp))
}

// Duplicate handles POST /api/opportunities/:id/duplicate
// @Summary      Duplicate opportunity
// @Description  Creates a Draft copy with every program approval reset to pending
// @Tags         opportunities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Opportunity ID"
// @Success      201  {object}  response.Response{data=model.Opportunity}
// @Router       /api/opportunities/{id}/duplicate [post]
func (h *OpportunityHandler) Duplicate(c *gin.Context) {
	opp, err := h.lifecycle.Duplicate(middleware.StoreContext(c), middleware.Actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, opp))
}
