package storeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"portal/internal/model"
)

type wireCatalogItem struct {
	MongoID     string `json:"_id"`
	ID          string `json:"id"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Catalog returns the entries of a reference enumeration.
func (c *Client) Catalog(ctx context.Context, key string) ([]model.CatalogItem, error) {
	var rows []wireCatalogItem
	if err := c.getList(ctx, "/locations/items/"+url.PathEscape(key), nil, &rows, "items"); err != nil {
		return nil, err
	}
	items := make([]model.CatalogItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, model.CatalogItem{
			ID:          firstNonEmpty(r.MongoID, r.ID),
			Value:       r.Value,
			Description: firstNonEmpty(r.Description, r.Value),
		})
	}
	return items, nil
}

type wireCompany struct {
	MongoID     string `json:"_id"`
	ID          string `json:"id"`
	RazonSocial string `json:"razonSocial"`
	Nombre      string `json:"nombre"`
	Nit         string `json:"nit"`
	Sector      string `json:"sector"`
	Pais        string `json:"pais"`
	Ciudad      string `json:"ciudad"`
}

func (c *Client) Companies(ctx context.Context, search string) ([]model.Company, error) {
	var rows []wireCompany
	if err := c.getList(ctx, "/companies", url.Values{"search": {search}}, &rows, "companies", "empresas"); err != nil {
		return nil, err
	}
	out := make([]model.Company, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Company{
			ID:      firstNonEmpty(r.MongoID, r.ID),
			Name:    firstNonEmpty(r.RazonSocial, r.Nombre),
			TaxID:   r.Nit,
			Sector:  r.Sector,
			Country: r.Pais,
			City:    r.Ciudad,
		})
	}
	return out, nil
}

type wireProgramRecord struct {
	MongoID  string `json:"_id"`
	ID       string `json:"id"`
	Codigo   string `json:"codigo"`
	Nombre   string `json:"nombre"`
	Nivel    string `json:"nivel"`
	Facultad string `json:"facultad"`
}

func (c *Client) Programs(ctx context.Context, search string) ([]model.Program, error) {
	var rows []wireProgramRecord
	if err := c.getList(ctx, "/programs", url.Values{"search": {search}}, &rows, "programs", "programas"); err != nil {
		return nil, err
	}
	out := make([]model.Program, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Program{
			ID:      firstNonEmpty(r.MongoID, r.ID),
			Code:    r.Codigo,
			Name:    r.Nombre,
			Level:   r.Nivel,
			Faculty: r.Facultad,
		})
	}
	return out, nil
}

type wireSubject struct {
	MongoID  string `json:"_id"`
	ID       string `json:"id"`
	Codigo   string `json:"codigo"`
	Nombre   string `json:"nombre"`
	Programa string `json:"programa"`
}

func (c *Client) Subjects(ctx context.Context, search string) ([]model.Subject, error) {
	var rows []wireSubject
	if err := c.getList(ctx, "/asignaturas", url.Values{"search": {search}}, &rows, "asignaturas", "subjects"); err != nil {
		return nil, err
	}
	out := make([]model.Subject, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Subject{
			ID:      firstNonEmpty(r.MongoID, r.ID),
			Code:    r.Codigo,
			Name:    r.Nombre,
			Program: r.Programa,
		})
	}
	return out, nil
}

type wirePeriod struct {
	MongoID string `json:"_id"`
	ID      string `json:"id"`
	Codigo  string `json:"codigo"`
	Periodo string `json:"periodo"`
	Tipo    string `json:"tipo"`
	Activo  bool   `json:"activo"`
	Estado  string `json:"estado"`
}

func (c *Client) Periods(ctx context.Context, filters url.Values) ([]model.Period, error) {
	var rows []wirePeriod
	if err := c.getList(ctx, "/periodos", filters, &rows, "periodos", "periods"); err != nil {
		return nil, err
	}
	out := make([]model.Period, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Period{
			ID:     firstNonEmpty(r.MongoID, r.ID),
			Code:   firstNonEmpty(r.Codigo, r.Periodo),
			Kind:   r.Tipo,
			Active: r.Activo || r.Estado == "activo",
		})
	}
	return out, nil
}

// getList decodes either a bare array or an envelope keyed by one of keys / "data".
func (c *Client) getList(ctx context.Context, path string, query url.Values, out interface{}, keys ...string) error {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(unwrap(raw, keys...), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
