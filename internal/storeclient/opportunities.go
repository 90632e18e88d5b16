package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"portal/internal/model"
)

// Document is an uploaded file forwarded with a create request.
type Document struct {
	Slot        int
	Name        string
	ContentType string
	Required    bool
	Data        []byte
}

type listResponse struct {
	Opportunities []wireOpportunity `json:"opportunities"`
	Data          []wireOpportunity `json:"data"`
	Total         int64             `json:"total"`
	TotalPages    int               `json:"totalPages"`
	CurrentPage   int               `json:"currentPage"`
}

// ListOpportunities forwards paging, search, sort and filters to the store.
func (c *Client) ListOpportunities(ctx context.Context, q model.ListQuery) (model.OpportunityPage, error) {
	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.SortField != "" {
		query.Set("sortField", q.SortField)
		direction := q.SortDirection
		if direction == "" {
			direction = model.SortAsc
		}
		query.Set("sortDirection", direction)
	}
	for key, value := range q.Filters {
		if value != "" {
			query.Set(key, value)
		}
	}

	var parsed listResponse
	if err := c.doJSON(ctx, http.MethodGet, "/opportunities", query, nil, &parsed); err != nil {
		return model.OpportunityPage{}, err
	}

	rows := parsed.Opportunities
	if len(rows) == 0 {
		rows = parsed.Data
	}
	page := model.OpportunityPage{
		Items:       make([]model.Opportunity, 0, len(rows)),
		Total:       parsed.Total,
		TotalPages:  parsed.TotalPages,
		CurrentPage: parsed.CurrentPage,
	}
	for _, w := range rows {
		page.Items = append(page.Items, w.toModel())
	}
	if page.CurrentPage == 0 {
		page.CurrentPage = q.Page
	}
	return page, nil
}

func (c *Client) GetOpportunity(ctx context.Context, id string) (model.Opportunity, error) {
	return c.opportunityCall(ctx, http.MethodGet, "/opportunities/"+url.PathEscape(id), nil)
}

// CreateOpportunity sends the JSON payload in a "data" part plus up to three
// document parts named documento1..documento3.
func (c *Client) CreateOpportunity(ctx context.Context, opp model.Opportunity, docs []Document) (model.Opportunity, error) {
	if len(docs) > model.MaxDocuments {
		return model.Opportunity{}, fmt.Errorf("at most %d documents are accepted", model.MaxDocuments)
	}
	payload, err := json.Marshal(fromModel(opp))
	if err != nil {
		return model.Opportunity{}, fmt.Errorf("encode opportunity: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("data", string(payload)); err != nil {
		return model.Opportunity{}, fmt.Errorf("write data part: %w", err)
	}
	for i, doc := range docs {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="documento%d"; filename=%q`, i+1, doc.Name))
		contentType := doc.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return model.Opportunity{}, fmt.Errorf("create document part: %w", err)
		}
		if _, err := part.Write(doc.Data); err != nil {
			return model.Opportunity{}, fmt.Errorf("write document part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return model.Opportunity{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/opportunities", nil, &body)
	if err != nil {
		return model.Opportunity{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var raw json.RawMessage
	if err := c.send(req, &raw); err != nil {
		return model.Opportunity{}, err
	}
	return decodeOpportunity(raw)
}

// UpdateOpportunity replaces the mutable fields (and approvals when present).
func (c *Client) UpdateOpportunity(ctx context.Context, id string, opp model.Opportunity) (model.Opportunity, error) {
	return c.opportunityCall(ctx, http.MethodPut, "/opportunities/"+url.PathEscape(id), fromModel(opp))
}

// UpdateApprovals sends an approvals-only partial update.
func (c *Client) UpdateApprovals(ctx context.Context, id string, approvals []model.ProgramApproval) (model.Opportunity, error) {
	wire := approvalsToWire(approvals)
	if wire == nil {
		wire = []wireApproval{}
	}
	payload := map[string]interface{}{"aprobacionesPorPrograma": wire}
	return c.opportunityCall(ctx, http.MethodPut, "/opportunities/"+url.PathEscape(id), payload)
}

func (c *Client) UpdateStatus(ctx context.Context, id string, status model.Status) (model.Opportunity, error) {
	payload := map[string]string{"estado": status.StoreTag()}
	return c.opportunityCall(ctx, http.MethodPatch, "/opportunities/"+url.PathEscape(id)+"/status", payload)
}

type programDecision struct {
	Programa    wireProgram `json:"programa"`
	Comentarios string      `json:"comentarios"`
}

func (c *Client) ApproveProgram(ctx context.Context, id string, program model.ProgramRef, comments string) (model.Opportunity, error) {
	payload := programDecision{Programa: wireProgram{Nivel: program.Level, Nombre: program.Name}, Comentarios: comments}
	return c.opportunityCall(ctx, http.MethodPost, "/opportunities/"+url.PathEscape(id)+"/approve-program", payload)
}

func (c *Client) RejectProgram(ctx context.Context, id string, program model.ProgramRef, comments string) (model.Opportunity, error) {
	payload := programDecision{Programa: wireProgram{Nivel: program.Level, Nombre: program.Name}, Comentarios: comments}
	return c.opportunityCall(ctx, http.MethodPost, "/opportunities/"+url.PathEscape(id)+"/reject-program", payload)
}

type rejectRequest struct {
	MotivoRechazo     string `json:"motivoRechazo"`
	MotivoRechazoOtro string `json:"motivoRechazoOtro,omitempty"`
}

// Reject moves the opportunity to Rejected; the store appends the history entry.
func (c *Client) Reject(ctx context.Context, id string, reason, otherText string) (model.Opportunity, error) {
	payload := rejectRequest{MotivoRechazo: reason, MotivoRechazoOtro: otherText}
	return c.opportunityCall(ctx, http.MethodPost, "/opportunities/"+url.PathEscape(id)+"/reject", payload)
}

func (c *Client) Duplicate(ctx context.Context, id string) (model.Opportunity, error) {
	return c.opportunityCall(ctx, http.MethodPost, "/opportunities/"+url.PathEscape(id)+"/duplicate", nil)
}

func (c *Client) History(ctx context.Context, id string) ([]model.StatusHistoryEntry, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/opportunities/"+url.PathEscape(id)+"/history", nil, nil, &raw); err != nil {
		return nil, err
	}
	var rows []wireHistory
	if err := json.Unmarshal(unwrap(raw, "historial", "history"), &rows); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	entries := make([]model.StatusHistoryEntry, 0, len(rows))
	for _, h := range rows {
		entries = append(entries, h.toModel())
	}
	return entries, nil
}

func (c *Client) opportunityCall(ctx context.Context, method, path string, payload interface{}) (model.Opportunity, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, method, path, nil, payload, &raw); err != nil {
		return model.Opportunity{}, err
	}
	return decodeOpportunity(raw)
}

func decodeOpportunity(raw json.RawMessage) (model.Opportunity, error) {
	var w wireOpportunity
	if err := json.Unmarshal(unwrap(raw, "opportunity", "oportunidad"), &w); err != nil {
		return model.Opportunity{}, fmt.Errorf("decode opportunity: %w", err)
	}
	return w.toModel(), nil
}
