package storeclient

import (
	"bytes"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"portal/internal/model"

	"github.com/shopspring/decimal"
)

// flexInt accepts 1500000, "1500000" and "$1.500.000".
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*f = 0
		return nil
	}
	if trimmed[0] != '"' {
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return err
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// nullableDate is sent as null when empty so an edit can clear the date.
type nullableDate string

func (d nullableDate) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// flexRef accepts either an id string or a populated {_id, nombre} object.
type flexRef struct {
	ID   string
	Name string
}

func (f *flexRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &f.ID)
	}
	var obj struct {
		MongoID    string `json:"_id"`
		ID         string `json:"id"`
		Nombre     string `json:"nombre"`
		Name       string `json:"name"`
		RazonSoc   string `json:"razonSocial"`
		NombreComp string `json:"nombreCompleto"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	f.ID = firstNonEmpty(obj.MongoID, obj.ID)
	f.Name = firstNonEmpty(obj.RazonSoc, obj.Nombre, obj.Name, obj.NombreComp)
	return nil
}

func (f flexRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.ID)
}

type wireProgram struct {
	Nivel    string `json:"nivel"`
	Programa string `json:"programa,omitempty"`
	Nombre   string `json:"nombre,omitempty"`
}

func (p wireProgram) toModel() model.ProgramRef {
	return model.ProgramRef{Level: p.Nivel, Name: firstNonEmpty(p.Programa, p.Nombre)}
}

type wireLanguage struct {
	Idioma string `json:"idioma"`
	Nivel  string `json:"nivel"`
}

type wireDocument struct {
	Nombre    string `json:"nombre"`
	URL       string `json:"url,omitempty"`
	Requerido bool   `json:"requerido"`
}

type wireApproval struct {
	Programa           wireProgram `json:"programa"`
	Estado             string      `json:"estado"`
	Comentarios        string      `json:"comentarios"`
	AprobadoPor        *flexRef    `json:"aprobadoPor,omitempty"`
	FechaAprobacion    string      `json:"fechaAprobacion,omitempty"`
	FechaActualizacion string      `json:"fechaActualizacion,omitempty"`
}

type wireHistory struct {
	EstadoAnterior string   `json:"estadoAnterior"`
	EstadoNuevo    string   `json:"estadoNuevo"`
	Usuario        *flexRef `json:"usuario,omitempty"`
	CambiadoPor    *flexRef `json:"cambiadoPor,omitempty"`
	Motivo         string   `json:"motivo"`
	Comentarios    string   `json:"comentarios"`
	Fecha          string   `json:"fecha"`
	CreatedAt      string   `json:"createdAt"`
}

// wireOpportunity mirrors the store's document shape.
type wireOpportunity struct {
	MongoID          string          `json:"_id,omitempty"`
	ID               string          `json:"id,omitempty"`
	Tipo             string          `json:"tipo"`
	Empresa          *flexRef        `json:"empresa,omitempty"`
	Estado           string          `json:"estado,omitempty"`
	NombreCargo      string          `json:"nombreCargo"`
	ApoyoEconomico   bool            `json:"apoyoEconomico"`
	ValorApoyo       flexInt         `json:"valorApoyo"`
	Confidencial     bool            `json:"confidencial"`
	TipoVinculacion  string          `json:"tipoVinculacion"`
	Periodo          string          `json:"periodo"`
	Vacantes         flexInt         `json:"vacantes"`
	FechaVencimiento nullableDate    `json:"fechaVencimiento"`
	Pais             string          `json:"pais"`
	Ciudad           string          `json:"ciudad"`
	JornadaSemanal   string          `json:"jornadaSemanal"`
	Horario          string          `json:"horario"`
	AreaDesempeno    string          `json:"areaDesempeno"`
	EnlacesFormatos  string          `json:"enlacesFormatos"`
	Documentos       []wireDocument  `json:"documentos,omitempty"`
	SalarioEmocional []string        `json:"salarioEmocional"`
	PromedioMinimo   decimal.Decimal `json:"promedioMinimo"`
	Programas        []wireProgram   `json:"programasRequeridos"`
	Idiomas          []wireLanguage  `json:"idiomas"`
	Funciones        string          `json:"funciones"`
	Requisitos       string          `json:"requisitos"`
	Aprobaciones     []wireApproval  `json:"aprobacionesPorPrograma,omitempty"`
	Historial        []wireHistory   `json:"historialEstados,omitempty"`
	CreatedAt        string          `json:"createdAt,omitempty"`
	UpdatedAt        string          `json:"updatedAt,omitempty"`
}

func (w wireOpportunity) toModel() model.Opportunity {
	opp := model.Opportunity{
		ID:                firstNonEmpty(w.MongoID, w.ID),
		RoleName:          w.NombreCargo,
		EconomicAid:       w.ApoyoEconomico,
		AidAmount:         int64(w.ValorApoyo),
		Confidential:      w.Confidencial,
		LinkageType:       w.TipoVinculacion,
		Period:            w.Periodo,
		Vacancies:         int(w.Vacantes),
		ExpiresOn:         parseTime(string(w.FechaVencimiento)),
		Country:           w.Pais,
		City:              w.Ciudad,
		WeeklyHours:       w.JornadaSemanal,
		Schedule:          w.Horario,
		PerformanceArea:   w.AreaDesempeno,
		SupportLinks:      w.EnlacesFormatos,
		EmotionalBenefits: append([]string{}, w.SalarioEmocional...),
		MinGPA:            w.PromedioMinimo,
		Duties:            w.Funciones,
		Requirements:      w.Requisitos,
		CreatedAt:         parseTime(w.CreatedAt),
		UpdatedAt:         parseTime(w.UpdatedAt),
		Documents:         []model.DocumentRef{},
		Programs:          []model.ProgramRef{},
		Languages:         []model.LanguageRequirement{},
		Approvals:         []model.ProgramApproval{},
		History:           []model.StatusHistoryEntry{},
	}

	if kind, ok := model.NormalizeKind(w.Tipo); ok {
		opp.Kind = kind
	} else {
		opp.Kind = model.KindPractice
	}
	if status, ok := model.NormalizeStatus(w.Estado); ok {
		opp.Status = status
	} else {
		log.Printf("storeclient: unrecognised status %q on opportunity %s", w.Estado, opp.ID)
		opp.Status = model.StatusUnknown
	}
	if w.Empresa != nil {
		opp.CompanyID = w.Empresa.ID
		opp.CompanyName = w.Empresa.Name
	}

	for i, d := range w.Documentos {
		opp.Documents = append(opp.Documents, model.DocumentRef{Slot: i, Name: d.Nombre, URL: d.URL, Required: d.Requerido})
	}
	for _, p := range w.Programas {
		opp.Programs = append(opp.Programs, p.toModel())
	}
	for _, l := range w.Idiomas {
		opp.Languages = append(opp.Languages, model.LanguageRequirement{Language: l.Idioma, Level: l.Nivel})
	}
	for _, a := range w.Aprobaciones {
		approval := model.ProgramApproval{
			Program:    a.Programa.toModel(),
			State:      model.NormalizeApprovalState(a.Estado),
			Comments:   a.Comentarios,
			ReviewedAt: parseTime(a.FechaAprobacion),
			UpdatedAt:  parseTime(a.FechaActualizacion),
		}
		if a.AprobadoPor != nil {
			approval.ReviewedBy = firstNonEmpty(a.AprobadoPor.Name, a.AprobadoPor.ID)
			approval.ReviewerID = a.AprobadoPor.ID
		}
		opp.Approvals = append(opp.Approvals, approval)
	}
	for _, h := range w.Historial {
		opp.History = append(opp.History, h.toModel())
	}
	return opp
}

func (h wireHistory) toModel() model.StatusHistoryEntry {
	entry := model.StatusHistoryEntry{
		Reason: firstNonEmpty(h.Motivo, h.Comentarios),
	}
	entry.From, _ = model.NormalizeStatus(h.EstadoAnterior)
	entry.To, _ = model.NormalizeStatus(h.EstadoNuevo)
	for _, actor := range []*flexRef{h.Usuario, h.CambiadoPor} {
		if actor != nil {
			entry.Actor = firstNonEmpty(actor.Name, actor.ID)
			break
		}
	}
	if at := parseTime(firstNonEmpty(h.Fecha, h.CreatedAt)); at != nil {
		entry.At = *at
	}
	return entry
}

// fromModel builds the create/update payload. Status, history and ids are
// never sent; the store owns them.
func fromModel(opp model.Opportunity) wireOpportunity {
	w := wireOpportunity{
		Tipo:             opp.Kind.StoreTag(),
		NombreCargo:      opp.RoleName,
		ApoyoEconomico:   opp.EconomicAid,
		ValorApoyo:       flexInt(opp.AidAmount),
		Confidencial:     opp.Confidential,
		TipoVinculacion:  opp.LinkageType,
		Periodo:          opp.Period,
		Vacantes:         flexInt(opp.Vacancies),
		Pais:             opp.Country,
		Ciudad:           opp.City,
		JornadaSemanal:   opp.WeeklyHours,
		Horario:          opp.Schedule,
		AreaDesempeno:    opp.PerformanceArea,
		EnlacesFormatos:  opp.SupportLinks,
		SalarioEmocional: append([]string{}, opp.EmotionalBenefits...),
		PromedioMinimo:   opp.MinGPA,
		Programas:        []wireProgram{},
		Idiomas:          []wireLanguage{},
		Funciones:        opp.Duties,
		Requisitos:       opp.Requirements,
		Aprobaciones:     approvalsToWire(opp.Approvals),
	}
	if opp.CompanyID != "" {
		w.Empresa = &flexRef{ID: opp.CompanyID}
	}
	if opp.ExpiresOn != nil {
		w.FechaVencimiento = nullableDate(opp.ExpiresOn.Format("2006-01-02"))
	}
	for _, p := range opp.Programs {
		w.Programas = append(w.Programas, wireProgram{Nivel: p.Level, Programa: p.Name})
	}
	for _, l := range opp.Languages {
		w.Idiomas = append(w.Idiomas, wireLanguage{Idioma: l.Language, Nivel: l.Level})
	}
	for _, d := range opp.Documents {
		if d.URL != "" {
			w.Documentos = append(w.Documentos, wireDocument{Nombre: d.Name, URL: d.URL, Requerido: d.Required})
		}
	}
	return w
}

func approvalsToWire(approvals []model.ProgramApproval) []wireApproval {
	if len(approvals) == 0 {
		return nil
	}
	out := make([]wireApproval, 0, len(approvals))
	// Reviewer and dates are echoed back so an edit never erases them.
	for _, a := range approvals {
		w := wireApproval{
			Programa:           wireProgram{Nivel: a.Program.Level, Nombre: a.Program.Name},
			Estado:             a.State.StoreTag(),
			Comentarios:        a.Comments,
			FechaAprobacion:    formatTime(a.ReviewedAt),
			FechaActualizacion: formatTime(a.UpdatedAt),
		}
		if a.ReviewerID != "" {
			w.AprobadoPor = &flexRef{ID: a.ReviewerID}
		}
		out = append(out, w)
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
