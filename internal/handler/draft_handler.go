package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"portal/internal/documents"
	"portal/internal/middleware"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type DraftHandler struct {
	drafts   service.DraftService
	sessions middleware.SessionResolver
}

func NewDraftHandler(drafts service.DraftService, sessions middleware.SessionResolver) *DraftHandler {
	return &DraftHandler{drafts: drafts, sessions: sessions}
}

func (h *DraftHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/drafts")
	group.Use(middleware.RequireRole(h.sessions))
	{
		group.POST("", h.Start)
		group.GET("/:id", h.Get)
		group.DELETE("/:id", h.Discard)
		group.PATCH("/:id/fields", h.SetFields)
		group.PUT("/:id/company", h.SelectCompany)
		group.POST("/:id/programs", h.AddProgram)
		group.DELETE("/:id/programs/:index", h.RemoveProgram)
		group.POST("/:id/languages", h.AddLanguage)
		group.DELETE("/:id/languages/:index", h.RemoveLanguage)
		group.POST("/:id/benefits", h.AddBenefit)
		group.DELETE("/:id/benefits/:index", h.RemoveBenefit)
		group.POST("/:id/documents/:slot", h.AttachDocument)
		group.DELETE("/:id/documents/:slot", h.DetachDocument)
		group.POST("/:id/submit", h.Submit)
	}
}

func (h *DraftHandler) reply(c *gin.Context, draft service.DraftResponse, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

func pathInt(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return 0, false
	}
	return n, true
}

// Start handles POST /api/drafts
// @Summary      Open a form
// @Description  Starts an empty draft, or one seeded from an existing opportunity when opportunity_id is given
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.StartDraftDTO  false  "Existing opportunity to edit"
// @Success      201      {object}  response.Response{data=service.DraftResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/drafts [post]
func (h *DraftHandler) Start(c *gin.Context) {
	var req service.StartDraftDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	draft, err := h.drafts.Start(middleware.StoreContext(c), middleware.Actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, draft))
}

// Get handles GET /api/drafts/:id
// @Summary      Get draft
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  response.Response{data=service.DraftResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/drafts/{id} [get]
func (h *DraftHandler) Get(c *gin.Context) {
	draft, err := h.drafts.Get(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	h.reply(c, draft, err)
}

// SetFields handles PATCH /api/drafts/:id/fields
// @Summary      Set fields
// @Description  Applies every field or none
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Draft ID"
// @Param        payload  body      service.SetFieldsDTO  true  "Fields"
// @Success      200      {object}  response.Response{data=service.DraftResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/drafts/{id}/fields [patch]
func (h *DraftHandler) SetFields(c *gin.Context) {
	var req service.SetFieldsDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	draft, err := h.drafts.SetFields(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	h.reply(c, draft, err)
}

// SelectCompany handles PUT /api/drafts/:id/company
// @Summary      Select owning company
// @Description  Administrative users pick the company before any other field
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Draft ID"
// @Param        payload  body      service.SelectCompanyDTO  true  "Company"
// @Success      200      {object}  response.Response{data=service.DraftResponse}
// @Router       /api/drafts/{id}/company [put]
func (h *DraftHandler) SelectCompany(c *gin.Context) {
	var req service.SelectCompanyDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	draft, err := h.drafts.SelectCompany(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	h.reply(c, draft, err)
}

// AddProgram handles POST /api/drafts/:id/programs
// @Summary      Add required program
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Draft ID"
// @Param        payload  body      service.AddProgramDTO  true  "Program"
// @Success      200      {object}  response.Response{data=service.DraftResponse}
// @Router       /api/drafts/{id}/programs [post]
func (h *DraftHandler) AddProgram(c *gin.Context) {
	var req service.AddProgramDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	draft, err := h.drafts.AddProgram(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	h.reply(c, draft, err)
}

// RemoveProgram handles DELETE /api/drafts/:id/programs/:index
// @Summary      Remove required program
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true  "Draft ID"
// @Param        index  path      int     true  "Position in the list"
// @Success      200    {object}  response.Response{data=service.DraftResponse}
// @Router       /api/drafts/{id}/programs/{index} [delete]
func (h *DraftHandler) RemoveProgram(c *gin.Context) {
	index, ok := pathInt(c, "index")
	if !ok {
		return
	}
	draft, err := h.drafts.RemoveProgram(c.Request.Context(), middleware.Actor(c), c.Param("id"), index)
	h.reply(c, draft, err)
}

// AddLanguage handles POST /api/drafts/:id/languages
// @Summary      Add language requirement
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Draft ID"
// @Param        payload  body      service.AddLanguageDTO  true  "Language"
// @Success      200      {object}  response.Response{data=service.DraftResponse}
// @Router       /api/drafts/{id}/languages [post]
func (h *DraftHandler) AddLanguage(c *gin.Context) {
	var req service.AddLanguageDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	draft, err := h.drafts.AddLanguage(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	h.reply(c, draft, err)
}

// RemoveLanguage handles DELETE /api/drafts/:id/languages/:index
// @Summary      Remove language requirement
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true  "Draft ID"
// @Param        index  path      int     true  "Position in the list"
// @Success      200    {object}  response.Response{data=service.DraftResponse}
// @Router       /api/drafts/{id}/languages/{index} [delete]
func (h *DraftHandler) RemoveLanguage(c *gin.Context) {
	index, ok := pathInt(c, "index")
	if !ok {
		return
	}
	draft, err := h.drafts.RemoveLanguage(c.Request.Context(), middleware.Actor(c), c.Param("id"), index)
	h.reply(c, draft, err)
}

// AddBenefit handles POST /api/drafts/:id/benefits
// @Summary      Add emotional benefit
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Draft ID"
// @Param        payload  body      service.AddBenefitDTO  true  "Benefit"
// @Success      200      {object}  response.Response{data=service.DraftResponse}
// @Router       /api/drafts/{id}/benefits [post]
func (h *DraftHandler) AddBenefit(c *gin.Context) {
	var req service.AddBenefitDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	draft, err := h.drafts.AddBenefit(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	h.reply(c, draft, err)
}

// RemoveBenefit handles DELETE /api/drafts/:id/benefits/:index
// @Summary      Remove emotional benefit
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true  "Draft ID"
// @Param        index  path      int     true  "Position in the list"
// @Success      200    {object}  response.Response{data=service.DraftResponse}
// @Router       /api/drafts/{id}/benefits/{index} [delete]
func (h *DraftHandler) RemoveBenefit(c *gin.Context) {
	index, ok := pathInt(c, "index")
	if !ok {
		return
	}
	draft, err := h.drafts.RemoveBenefit(c.Request.Context(), middleware.Actor(c), c.Param("id"), index)
	h.reply(c, draft, err)
}

// AttachDocument handles POST /api/drafts/:id/documents/:slot
// @Summary      Attach document
// @Description  Stages a file in one of the three slots; it is sent with the create request
// @Tags         drafts
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id        path      string  true   "Draft ID"
// @Param        slot      path      int     true   "Slot (1-3)"
// @Param        file      formData  file    true   "Document"
// @Param        required  formData  bool    false  "Whether applicants must provide it"
// @Success      200       {object}  response.Response{data=service.DraftResponse}
// @Failure      413       {object}  response.Response
// @Router       /api/drafts/{id}/documents/{slot} [post]
func (h *DraftHandler) AttachDocument(c *gin.Context) {
	slot, ok := pathInt(c, "slot")
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	if fh.Size > documents.MaxSize {
		respondError(c, documents.ErrTooLarge)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, documents.MaxSize+1))
	if err != nil {
		badRequest(c, err)
		return
	}

	required, _ := strconv.ParseBool(c.DefaultPostForm("required", "false"))
	obj := documents.Object{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}
	draft, err := h.drafts.AttachDocument(middleware.StoreContext(c), middleware.Actor(c), c.Param("id"), slot, required, obj)
	h.reply(c, draft, err)
}

// DetachDocument handles DELETE /api/drafts/:id/documents/:slot
// @Summary      Detach document
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id    path      string  true  "Draft ID"
// @Param        slot  path      int     true  "Slot (1-3)"
// @Success      200   {object}  response.Response{data=service.DraftResponse}
// @Router       /api/drafts/{id}/documents/{slot} [delete]
func (h *DraftHandler) DetachDocument(c *gin.Context) {
	slot, ok := pathInt(c, "slot")
	if !ok {
		return
	}
	draft, err := h.drafts.DetachDocument(middleware.StoreContext(c), middleware.Actor(c), c.Param("id"), slot)
	h.reply(c, draft, err)
}

// Submit handles POST /api/drafts/:id/submit
// @Summary      Submit form
// @Description  Validates locally, then creates or updates the opportunity in the store. The draft is removed on success
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  response.Response{data=model.Opportunity}
// @Success      201  {object}  response.Response{data=model.Opportunity}
// @Failure      422  {object}  response.Response
// @Router       /api/drafts/{id}/submit [post]
func (h *DraftHandler) Submit(c *gin.Context) {
	ctx := middleware.StoreContext(c)
	actor := middleware.Actor(c)
	id := c.Param("id")

	draft, err := h.drafts.Get(ctx, actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	opp, err := h.drafts.Submit(ctx, actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if draft.OpportunityID == "" {
		status = http.StatusCreated
	}
	c.JSON(status, response.Success(status, opp))
}

// Discard handles DELETE /api/drafts/:id
// @Summary      Discard form
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  response.Response
// @Router       /api/drafts/{id} [delete]
func (h *DraftHandler) Discard(c *gin.Context) {
	err := h.drafts.Discard(middleware.StoreContext(c), middleware.Actor(c), c.Param("id"))
	if err != nil && !errors.Is(err, documents.ErrNotFound) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Draft discarded"))
}
