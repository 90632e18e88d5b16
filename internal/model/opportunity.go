package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Status is the canonical lifecycle state of an opportunity.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusUnderReview Status = "under_review"
	StatusActive      Status = "active"
	StatusRejected    Status = "rejected"
	StatusClosed      Status = "closed"
	StatusExpired     Status = "expired"

	// StatusUnknown marks a store status no alias matches. No action is
	// ever allowed from it.
	StatusUnknown Status = "unknown"
)

// Kind distinguishes practice offers from monitoring (MTM) offers
type Kind string

const (
	KindPractice   Kind = "practice"
	KindMonitoring Kind = "monitoring"
)

// ApprovalState is the state of a single program approval
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// MaxDocuments is the number of document slots an opportunity accepts.
const MaxDocuments = 3

// MinDutiesLength applies only when duties text is present.
const MinDutiesLength = 60

// ProgramRef identifies an academic program required by an opportunity.
type ProgramRef struct {
	Level string `json:"level" msgpack:"level"`
	Name  string `json:"name" msgpack:"name"`
}

// Key is the identity used to match approvals with required programs.
func (p ProgramRef) Key() string {
	return foldKey(p.Level) + "|" + foldKey(p.Name)
}

type LanguageRequirement struct {
	Language string `json:"language" msgpack:"language"`
	Level    string `json:"level" msgpack:"level"`
}

type DocumentRef struct {
	Slot        int    `json:"slot" msgpack:"slot"`
	Name        string `json:"name" msgpack:"name"`
	URL         string `json:"url,omitempty" msgpack:"url"`
	StagingKey  string `json:"staging_key,omitempty" msgpack:"staging_key"` // set while the document lives in staging
	ContentType string `json:"content_type,omitempty" msgpack:"content_type"`
	Required    bool   `json:"required" msgpack:"required"`
}

// ProgramApproval is the per-program review record attached to an opportunity.
type ProgramApproval struct {
	Program    ProgramRef    `json:"program"`
	State      ApprovalState `json:"state"`
	Comments   string        `json:"comments"`
	ReviewedBy string        `json:"reviewed_by,omitempty"`
	ReviewerID string        `json:"reviewer_id,omitempty"`
	ReviewedAt *time.Time    `json:"reviewed_at,omitempty"`
	UpdatedAt  *time.Time    `json:"updated_at,omitempty"`
}

// StatusHistoryEntry is append-only; the store writes one per transition.
type StatusHistoryEntry struct {
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	Actor  string    `json:"actor"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Opportunity is the portal's view of an internship/monitoring position.
// The remote store is the source of truth; this struct is rebuilt on every read.
type Opportunity struct {
	ID                string                `json:"id"`
	Kind              Kind                  `json:"kind"`
	CompanyID         string                `json:"company_id"`
	CompanyName       string                `json:"company_name"`
	Status            Status                `json:"status"`
	RoleName          string                `json:"role_name"`
	EconomicAid       bool                  `json:"economic_aid"`
	AidAmount         int64                 `json:"aid_amount"` // unformatted integer
	Confidential      bool                  `json:"confidential"`
	LinkageType       string                `json:"linkage_type"`
	Period            string                `json:"period"`
	Vacancies         int                   `json:"vacancies"`
	ExpiresOn         *time.Time            `json:"expires_on"`
	Country           string                `json:"country"`
	City              string                `json:"city"`
	WeeklyHours       string                `json:"weekly_hours"`
	Schedule          string                `json:"schedule"`
	PerformanceArea   string                `json:"performance_area"`
	SupportLinks      string                `json:"support_links"`
	Documents         []DocumentRef         `json:"documents"`
	EmotionalBenefits []string              `json:"emotional_benefits"`
	MinGPA            decimal.Decimal       `json:"min_gpa"`
	Programs          []ProgramRef          `json:"programs"`
	Languages         []LanguageRequirement `json:"languages"`
	Duties            string                `json:"duties"`
	Requirements      string                `json:"requirements"`
	Approvals         []ProgramApproval     `json:"approvals"`
	History           []StatusHistoryEntry  `json:"history"`
	CreatedAt         *time.Time            `json:"created_at,omitempty"`
	UpdatedAt         *time.Time            `json:"updated_at,omitempty"`
}

// ApprovedCount counts approvals currently in the Approved state.
func (o Opportunity) ApprovedCount() int {
	n := 0
	for _, a := range o.Approvals {
		if a.State == ApprovalApproved {
			n++
		}
	}
	return n
}

// Approval returns the approval entry for a program, if any.
func (o Opportunity) Approval(program ProgramRef) (ProgramApproval, bool) {
	key := program.Key()
	for _, a := range o.Approvals {
		if a.Program.Key() == key {
			return a, true
		}
	}
	return ProgramApproval{}, false
}

// PastExpiry reports whether the expiry date has passed. Expiry itself is
// evaluated by the store; the portal only uses this for display.
func (o Opportunity) PastExpiry(now time.Time) bool {
	if o.ExpiresOn == nil {
		return false
	}
	return now.After(o.ExpiresOn.Add(24 * time.Hour))
}

// --- Status normalisation ---

var statusAliases = map[string]Status{
	"draft":        StatusDraft,
	"creada":       StatusDraft,
	"creado":       StatusDraft,
	"borrador":     StatusDraft,
	"created":      StatusDraft,
	"under_review": StatusUnderReview,
	"en revision":  StatusUnderReview,
	"en_revision":  StatusUnderReview,
	"en-revision":  StatusUnderReview,
	"enrevision":   StatusUnderReview,
	"revision":     StatusUnderReview,
	"review":       StatusUnderReview,
	"in_review":    StatusUnderReview,
	"pending":      StatusUnderReview,
	"active":       StatusActive,
	"activa":       StatusActive,
	"activo":       StatusActive,
	"published":    StatusActive,
	"publicada":    StatusActive,
	"rejected":     StatusRejected,
	"rechazada":    StatusRejected,
	"rechazado":    StatusRejected,
	"closed":       StatusClosed,
	"cerrada":      StatusClosed,
	"cerrado":      StatusClosed,
	"finalizada":   StatusClosed,
	"finalizado":   StatusClosed,
	"expired":      StatusExpired,
	"vencida":      StatusExpired,
	"vencido":      StatusExpired,
	"expirada":     StatusExpired,
	"expirado":     StatusExpired,
}

var storeStatusTags = map[Status]string{
	StatusDraft:       "Creada",
	StatusUnderReview: "En Revisión",
	StatusActive:      "Activa",
	StatusRejected:    "Rechazada",
	StatusClosed:      "Cerrada",
	StatusExpired:     "Vencida",
}

// NormalizeStatus collapses any legacy or aliased status string into the
// canonical enum. ok is false for values that match no known state.
func NormalizeStatus(raw string) (Status, bool) {
	s, ok := statusAliases[foldKey(raw)]
	return s, ok
}

// StoreTag is the value the remote store expects for this status.
func (s Status) StoreTag() string {
	return storeStatusTags[s]
}

func (s Status) Valid() bool {
	_, ok := storeStatusTags[s]
	return ok
}

// Terminal reports whether no further approval actions are accepted.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusClosed || s == StatusExpired
}

var kindAliases = map[string]Kind{
	"practice":   KindPractice,
	"practica":   KindPractice,
	"practicas":  KindPractice,
	"monitoring": KindMonitoring,
	"monitoria":  KindMonitoring,
	"monitorias": KindMonitoring,
	"mtm":        KindMonitoring,
}

func NormalizeKind(raw string) (Kind, bool) {
	k, ok := kindAliases[foldKey(raw)]
	return k, ok
}

// StoreTag is the wire value of the kind.
func (k Kind) StoreTag() string {
	if k == KindMonitoring {
		return "monitoria"
	}
	return "practica"
}

var approvalAliases = map[string]ApprovalState{
	"pending":   ApprovalPending,
	"pendiente": ApprovalPending,
	"approved":  ApprovalApproved,
	"aprobado":  ApprovalApproved,
	"aprobada":  ApprovalApproved,
	"rejected":  ApprovalRejected,
	"rechazado": ApprovalRejected,
	"rechazada": ApprovalRejected,
}

// NormalizeApprovalState treats unknown values as pending.
func NormalizeApprovalState(raw string) ApprovalState {
	if s, ok := approvalAliases[foldKey(raw)]; ok {
		return s
	}
	return ApprovalPending
}

func (a ApprovalState) StoreTag() string {
	switch a {
	case ApprovalApproved:
		return "aprobado"
	case ApprovalRejected:
		return "rechazado"
	default:
		return "pendiente"
	}
}

// foldKey lowercases, trims and strips accents so "En Revisión" == "en revision".
// Chained transformers keep state, so one is built per call.
func foldKey(raw string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, raw)
	if err != nil {
		folded = raw
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// FoldText is the accent- and case-insensitive form used for local matching.
func FoldText(raw string) string {
	return foldKey(raw)
}
