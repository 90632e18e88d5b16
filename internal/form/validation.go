package form

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"portal/internal/model"
)

// ValidationErrors maps a field name to its message. It is produced locally
// and never sent to the store.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, message string) ValidationErrors {
	return ValidationErrors{field: message}
}

// Validate checks the constraints that must hold before submission.
func (f *Form) Validate() error {
	errs := ValidationErrors{}
	v := f.values

	if f.values.Kind == model.KindPractice && strings.TrimSpace(v.CompanyID) == "" {
		errs[FieldCompanyID] = "the owning company is required"
	}
	if f.values.Kind == model.KindMonitoring && v.CompanyID != f.institutionalCompanyID {
		errs[FieldCompanyID] = "monitoring opportunities belong to the institution"
	}
	if strings.TrimSpace(v.RoleName) == "" {
		errs[FieldRoleName] = "role name is required"
	}
	if strings.TrimSpace(v.Requirements) == "" {
		errs[FieldRequirements] = "requirements are required"
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(v.Duties)); n > 0 && n < model.MinDutiesLength {
		errs[FieldDuties] = fmt.Sprintf("duties must have at least %d characters", model.MinDutiesLength)
	}
	if v.EconomicAid && v.AidAmount <= 0 {
		errs[FieldAidAmount] = "the aid amount is required when economic aid is offered"
	}
	if len(v.Documents) > model.MaxDocuments {
		errs["documents"] = ErrTooManyDocuments.Error()
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
