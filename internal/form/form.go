package form

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"portal/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrCompanySelectionRequired = errors.New("select the owning company before editing the opportunity")
	ErrCompanyLocked            = errors.New("the owning company cannot be changed for this opportunity")
	ErrUnknownField             = errors.New("unknown field")
	ErrTooManyDocuments         = fmt.Errorf("at most %d documents are accepted", model.MaxDocuments)
	ErrDuplicateEntry           = errors.New("entry already present")
	ErrIndexOutOfRange          = errors.New("index out of range")
)

// Field names accepted by SetField
const (
	FieldKind            = "kind"
	FieldCompanyID       = "company_id"
	FieldRoleName        = "role_name"
	FieldEconomicAid     = "economic_aid"
	FieldAidAmount       = "aid_amount"
	FieldConfidential    = "confidential"
	FieldLinkageType     = "linkage_type"
	FieldPeriod          = "period"
	FieldVacancies       = "vacancies"
	FieldExpiresOn       = "expires_on"
	FieldCountry         = "country"
	FieldCity            = "city"
	FieldWeeklyHours     = "weekly_hours"
	FieldSchedule        = "schedule"
	FieldPerformanceArea = "performance_area"
	FieldSupportLinks    = "support_links"
	FieldMinGPA          = "min_gpa"
	FieldDuties          = "duties"
	FieldRequirements    = "requirements"
)

const dateLayout = "2006-01-02"

var maxGPA = decimal.NewFromInt(5)

// Values is the editable content of an opportunity draft.
type Values struct {
	Kind              model.Kind                  `json:"kind" msgpack:"kind"`
	CompanyID         string                      `json:"company_id" msgpack:"company_id"`
	CompanyName       string                      `json:"company_name" msgpack:"company_name"`
	RoleName          string                      `json:"role_name" msgpack:"role_name"`
	EconomicAid       bool                        `json:"economic_aid" msgpack:"economic_aid"`
	AidAmount         int64                       `json:"aid_amount" msgpack:"aid_amount"`
	Confidential      bool                        `json:"confidential" msgpack:"confidential"`
	LinkageType       string                      `json:"linkage_type" msgpack:"linkage_type"`
	Period            string                      `json:"period" msgpack:"period"`
	Vacancies         int                         `json:"vacancies" msgpack:"vacancies"`
	ExpiresOn         string                      `json:"expires_on" msgpack:"expires_on"`
	Country           string                      `json:"country" msgpack:"country"`
	City              string                      `json:"city" msgpack:"city"`
	WeeklyHours       string                      `json:"weekly_hours" msgpack:"weekly_hours"`
	Schedule          string                      `json:"schedule" msgpack:"schedule"`
	PerformanceArea   string                      `json:"performance_area" msgpack:"performance_area"`
	SupportLinks      string                      `json:"support_links" msgpack:"support_links"`
	MinGPA            string                      `json:"min_gpa" msgpack:"min_gpa"`
	Duties            string                      `json:"duties" msgpack:"duties"`
	Requirements      string                      `json:"requirements" msgpack:"requirements"`
	Programs          []model.ProgramRef          `json:"programs" msgpack:"programs"`
	Languages         []model.LanguageRequirement `json:"languages" msgpack:"languages"`
	EmotionalBenefits []string                    `json:"emotional_benefits" msgpack:"emotional_benefits"`
	Documents         []model.DocumentRef         `json:"documents" msgpack:"documents"`
}

func (v Values) clone() Values {
	out := v
	out.Programs = append([]model.ProgramRef{}, v.Programs...)
	out.Languages = append([]model.LanguageRequirement{}, v.Languages...)
	out.EmotionalBenefits = append([]string{}, v.EmotionalBenefits...)
	out.Documents = append([]model.DocumentRef{}, v.Documents...)
	return out
}

// Form holds a draft while create/edit is in progress. It never talks to the
// network; callers hand ToOpportunity() to the lifecycle service.
type Form struct {
	opportunityID          string
	status                 model.Status
	values                 Values
	baseline               Values
	actor                  model.Profile
	institutionalCompanyID string
}

// InitFromEmpty starts a create form for actor. Company users own what they create.
func InitFromEmpty(actor model.Profile, institutionalCompanyID string) *Form {
	values := Values{Kind: model.KindPractice}.clone()
	if !actor.Administrative() {
		values.CompanyID = actor.CompanyID
	}
	return &Form{
		status:                 model.StatusDraft,
		values:                 values,
		baseline:               values.clone(),
		actor:                  actor,
		institutionalCompanyID: institutionalCompanyID,
	}
}

// InitFromExisting starts an edit form whose baseline is the persisted record.
func InitFromExisting(opp model.Opportunity, actor model.Profile, institutionalCompanyID string) *Form {
	values := Values{
		Kind:              opp.Kind,
		CompanyID:         opp.CompanyID,
		CompanyName:       opp.CompanyName,
		RoleName:          opp.RoleName,
		EconomicAid:       opp.EconomicAid,
		AidAmount:         opp.AidAmount,
		Confidential:      opp.Confidential,
		LinkageType:       opp.LinkageType,
		Period:            opp.Period,
		Vacancies:         opp.Vacancies,
		Country:           opp.Country,
		City:              opp.City,
		WeeklyHours:       opp.WeeklyHours,
		Schedule:          opp.Schedule,
		PerformanceArea:   opp.PerformanceArea,
		SupportLinks:      opp.SupportLinks,
		Duties:            opp.Duties,
		Requirements:      opp.Requirements,
		Programs:          opp.Programs,
		Languages:         opp.Languages,
		EmotionalBenefits: opp.EmotionalBenefits,
		Documents:         opp.Documents,
	}.clone()
	if values.Kind == "" {
		values.Kind = model.KindPractice
	}
	if opp.ExpiresOn != nil {
		values.ExpiresOn = opp.ExpiresOn.Format(dateLayout)
	}
	if !opp.MinGPA.IsZero() {
		values.MinGPA = opp.MinGPA.String()
	}
	return &Form{
		opportunityID:          opp.ID,
		status:                 opp.Status,
		values:                 values,
		baseline:               values.clone(),
		actor:                  actor,
		institutionalCompanyID: institutionalCompanyID,
	}
}

func (f *Form) OpportunityID() string { return f.opportunityID }

func (f *Form) Status() model.Status { return f.status }

func (f *Form) Actor() model.Profile { return f.actor }

// Values returns a copy of the current field values.
func (f *Form) Values() Values { return f.values.clone() }

// HasUnsavedChanges reports whether any field differs from the baseline.
func (f *Form) HasUnsavedChanges() bool {
	return !reflect.DeepEqual(f.values, f.baseline)
}

// MarkSaved makes the current values the new baseline.
func (f *Form) MarkSaved(opportunityID string, status model.Status) {
	f.opportunityID = opportunityID
	f.status = status
	f.baseline = f.values.clone()
}

func (f *Form) companyRequired() bool {
	return f.values.Kind == model.KindPractice && f.actor.Administrative() && strings.TrimSpace(f.values.CompanyID) == ""
}

func (f *Form) requireCompany() error {
	if f.companyRequired() {
		return ErrCompanySelectionRequired
	}
	return nil
}

// SelectCompany binds the owning company (administrative actors, Practice only).
func (f *Form) SelectCompany(id, name string) error {
	if f.values.Kind == model.KindMonitoring || !f.actor.Administrative() {
		return ErrCompanyLocked
	}
	f.values.CompanyID = strings.TrimSpace(id)
	f.values.CompanyName = strings.TrimSpace(name)
	return nil
}

// SetField assigns a scalar field from its raw input text.
func (f *Form) SetField(name, value string) error {
	switch name {
	case FieldKind:
		return f.setKind(value)
	case FieldCompanyID:
		return f.SelectCompany(value, "")
	}

	if err := f.requireCompany(); err != nil {
		return err
	}

	v := &f.values
	switch name {
	case FieldRoleName:
		v.RoleName = value
	case FieldEconomicAid:
		b, err := parseBool(value)
		if err != nil {
			return fieldError(name, "must be true or false")
		}
		v.EconomicAid = b
	case FieldAidAmount:
		amount, err := ParseAmount(value)
		if err != nil {
			return fieldError(name, "amount is too large")
		}
		v.AidAmount = amount
	case FieldConfidential:
		b, err := parseBool(value)
		if err != nil {
			return fieldError(name, "must be true or false")
		}
		v.Confidential = b
	case FieldLinkageType:
		v.LinkageType = value
	case FieldPeriod:
		v.Period = value
	case FieldVacancies:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			v.Vacancies = 0
			return nil
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil || n < 0 {
			return fieldError(name, "must be a positive whole number")
		}
		v.Vacancies = n
	case FieldExpiresOn:
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			if _, err := time.Parse(dateLayout, trimmed); err != nil {
				return fieldError(name, "must be a date in YYYY-MM-DD format")
			}
		}
		v.ExpiresOn = trimmed
	case FieldCountry:
		v.Country = value
	case FieldCity:
		v.City = value
	case FieldWeeklyHours:
		v.WeeklyHours = value
	case FieldSchedule:
		v.Schedule = value
	case FieldPerformanceArea:
		v.PerformanceArea = value
	case FieldSupportLinks:
		v.SupportLinks = value
	case FieldMinGPA:
		trimmed := strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
		if trimmed != "" {
			gpa, err := decimal.NewFromString(trimmed)
			if err != nil || gpa.IsNegative() || gpa.GreaterThan(maxGPA) {
				return fieldError(name, "must be a number between 0 and 5")
			}
		}
		v.MinGPA = trimmed
	case FieldDuties:
		v.Duties = value
	case FieldRequirements:
		v.Requirements = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

func (f *Form) setKind(raw string) error {
	kind, ok := model.NormalizeKind(raw)
	if !ok {
		return fieldError(FieldKind, "must be practice or monitoring")
	}
	previous := f.values.Kind
	f.values.Kind = kind
	switch {
	case kind == model.KindMonitoring:
		f.values.CompanyID = f.institutionalCompanyID
		f.values.CompanyName = ""
	case previous == model.KindMonitoring:
		// back to Practice: the institutional binding no longer applies
		f.values.CompanyID = ""
		f.values.CompanyName = ""
		if !f.actor.Administrative() {
			f.values.CompanyID = f.actor.CompanyID
		}
	}
	return nil
}

func (f *Form) AddProgram(level, program string) error {
	if err := f.requireCompany(); err != nil {
		return err
	}
	ref := model.ProgramRef{Level: strings.TrimSpace(level), Name: strings.TrimSpace(program)}
	if ref.Level == "" || ref.Name == "" {
		return fieldError("programs", "level and program are required")
	}
	for _, existing := range f.values.Programs {
		if existing.Key() == ref.Key() {
			return ErrDuplicateEntry
		}
	}
	f.values.Programs = append(f.values.Programs, ref)
	return nil
}

func (f *Form) RemoveProgram(index int) error {
	if index < 0 || index >= len(f.values.Programs) {
		return ErrIndexOutOfRange
	}
	f.values.Programs = append(f.values.Programs[:index:index], f.values.Programs[index+1:]...)
	return nil
}

func (f *Form) AddLanguage(language, level string) error {
	if err := f.requireCompany(); err != nil {
		return err
	}
	req := model.LanguageRequirement{Language: strings.TrimSpace(language), Level: strings.TrimSpace(level)}
	if req.Language == "" || req.Level == "" {
		return fieldError("languages", "language and level are required")
	}
	for _, existing := range f.values.Languages {
		if strings.EqualFold(existing.Language, req.Language) {
			return ErrDuplicateEntry
		}
	}
	f.values.Languages = append(f.values.Languages, req)
	return nil
}

func (f *Form) RemoveLanguage(index int) error {
	if index < 0 || index >= len(f.values.Languages) {
		return ErrIndexOutOfRange
	}
	f.values.Languages = append(f.values.Languages[:index:index], f.values.Languages[index+1:]...)
	return nil
}

func (f *Form) AddEmotionalBenefit(value string) error {
	if err := f.requireCompany(); err != nil {
		return err
	}
	known := false
	for _, b := range model.EmotionalBenefits {
		if b == value {
			known = true
			break
		}
	}
	if !known {
		return fieldError("emotional_benefits", "unknown benefit "+strconv.Quote(value))
	}
	for _, existing := range f.values.EmotionalBenefits {
		if existing == value {
			return ErrDuplicateEntry
		}
	}
	f.values.EmotionalBenefits = append(f.values.EmotionalBenefits, value)
	return nil
}

func (f *Form) RemoveEmotionalBenefit(index int) error {
	if index < 0 || index >= len(f.values.EmotionalBenefits) {
		return ErrIndexOutOfRange
	}
	f.values.EmotionalBenefits = append(f.values.EmotionalBenefits[:index:index], f.values.EmotionalBenefits[index+1:]...)
	return nil
}

// AttachDocument fills a document slot (0..MaxDocuments-1). Only slot 0 may be required.
func (f *Form) AttachDocument(doc model.DocumentRef) error {
	if err := f.requireCompany(); err != nil {
		return err
	}
	if doc.Slot < 0 || doc.Slot >= model.MaxDocuments {
		return ErrTooManyDocuments
	}
	if doc.Slot != 0 {
		doc.Required = false
	}
	for i, existing := range f.values.Documents {
		if existing.Slot == doc.Slot {
			f.values.Documents[i] = doc
			return nil
		}
	}
	f.values.Documents = append(f.values.Documents, doc)
	return nil
}

// DetachDocument empties a slot and returns what was there.
func (f *Form) DetachDocument(slot int) (model.DocumentRef, bool) {
	for i, existing := range f.values.Documents {
		if existing.Slot == slot {
			f.values.Documents = append(f.values.Documents[:i:i], f.values.Documents[i+1:]...)
			return existing, true
		}
	}
	return model.DocumentRef{}, false
}

// FormattedAidAmount renders the stored integer as "$1.500.000".
func (f *Form) FormattedAidAmount() string {
	return FormatAmount(f.values.AidAmount)
}

// FormatAmount renders n with Spanish thousands separators and a dollar sign.
func FormatAmount(n int64) string {
	p := message.NewPrinter(language.Spanish)
	return "$" + p.Sprintf("%d", n)
}

// ParseAmount keeps only the digits of raw ("$1.500.000" -> 1500000).
func ParseAmount(raw string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0, nil
	}
	return strconv.ParseInt(digits, 10, 64)
}

// ToOpportunity builds the create/update payload from the current values.
// Call Validate first; ToOpportunity does not check constraints.
func (f *Form) ToOpportunity() model.Opportunity {
	v := f.values.clone()
	opp := model.Opportunity{
		ID:                f.opportunityID,
		Kind:              v.Kind,
		CompanyID:         v.CompanyID,
		CompanyName:       v.CompanyName,
		Status:            f.status,
		RoleName:          strings.TrimSpace(v.RoleName),
		EconomicAid:       v.EconomicAid,
		AidAmount:         v.AidAmount,
		Confidential:      v.Confidential,
		LinkageType:       v.LinkageType,
		Period:            v.Period,
		Vacancies:         v.Vacancies,
		Country:           v.Country,
		City:              v.City,
		WeeklyHours:       v.WeeklyHours,
		Schedule:          v.Schedule,
		PerformanceArea:   v.PerformanceArea,
		SupportLinks:      v.SupportLinks,
		Documents:         v.Documents,
		EmotionalBenefits: v.EmotionalBenefits,
		Programs:          v.Programs,
		Languages:         v.Languages,
		Duties:            strings.TrimSpace(v.Duties),
		Requirements:      strings.TrimSpace(v.Requirements),
	}
	if v.ExpiresOn != "" {
		if t, err := time.Parse(dateLayout, v.ExpiresOn); err == nil {
			opp.ExpiresOn = &t
		}
	}
	if v.MinGPA != "" {
		if gpa, err := decimal.NewFromString(v.MinGPA); err == nil {
			opp.MinGPA = gpa
		}
	}
	return opp
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "false", "0", "no", "off":
		return false, nil
	case "true", "1", "si", "sí", "yes", "on":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}
