package handler

import (
	"net/http"

	"portal/internal/middleware"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReferenceHandler struct {
	references service.ReferenceService
	sessions   middleware.SessionResolver
	limiter    *middleware.ClientRateLimiter
}

// NewReferenceHandler wires the lookups; limiter may be nil.
func NewReferenceHandler(references service.ReferenceService, sessions middleware.SessionResolver, limiter *middleware.ClientRateLimiter) *ReferenceHandler {
	return &ReferenceHandler{references: references, sessions: sessions, limiter: limiter}
}

func (h *ReferenceHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/reference")
	group.Use(middleware.RequireRole(h.sessions))
	if h.limiter != nil {
		group.Use(h.limiter.Middleware())
	}
	{
		group.GET("/catalogs/:key", h.Catalog)
		group.GET("/companies", h.Companies)
		group.GET("/programs", h.Programs)
		group.GET("/subjects", h.Subjects)
		group.GET("/periods", h.Periods)
		group.GET("/rejection-reasons", h.RejectionReasons)
	}
}

// Catalog handles GET /api/reference/catalogs/:key
// @Summary      Catalog items
// @Description  Enumerations such as linkage types, countries or weekly hours
// @Tags         reference
// @Security     BearerAuth
// @Produce      json
// @Param        key  path      string  true  "Catalog key"
// @Success      200  {object}  response.Response{data=[]model.CatalogItem}
// @Router       /api/reference/catalogs/{key} [get]
func (h *ReferenceHandler) Catalog(c *gin.Context) {
	items, err := h.references.Catalog(middleware.StoreContext(c), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Companies handles GET /api/reference/companies
// @Summary      Search companies
// @Description  Fewer than 3 characters returns an empty list without querying the store
// @Tags         reference
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  true  "Name or tax id fragment"
// @Success      200     {object}  response.Response{data=[]model.Company}
// @Failure      429     {object}  response.Response
// @Router       /api/reference/companies [get]
func (h *ReferenceHandler) Companies(c *gin.Context) {
	items, err := h.references.Companies(middleware.StoreContext(c), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Programs handles GET /api/reference/programs
// @Summary      Search programs
// @Tags         reference
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  true  "Program name fragment (2+ characters)"
// @Success      200     {object}  response.Response{data=[]model.Program}
// @Router       /api/reference/programs [get]
func (h *ReferenceHandler) Programs(c *gin.Context) {
	items, err := h.references.Programs(middleware.StoreContext(c), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Subjects handles GET /api/reference/subjects
// @Summary      Search subjects
// @Tags         reference
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  true  "Subject name or code fragment (3+ characters)"
// @Success      200     {object}  response.Response{data=[]model.Subject}
// @Router       /api/reference/subjects [get]
func (h *ReferenceHandler) Subjects(c *gin.Context) {
	items, err := h.references.Subjects(middleware.StoreContext(c), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Periods handles GET /api/reference/periods
// @Summary      Academic periods
// @Description  Every query parameter is forwarded as a filter
// @Tags         reference
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Period}
// @Router       /api/reference/periods [get]
func (h *ReferenceHandler) Periods(c *gin.Context) {
	items, err := h.references.Periods(middleware.StoreContext(c), c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// RejectionReasons handles GET /api/reference/rejection-reasons
// @Summary      Rejection reasons
// @Tags         reference
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.RejectionReason}
// @Router       /api/reference/rejection-reasons [get]
func (h *ReferenceHandler) RejectionReasons(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.references.RejectionReasons()))
}
