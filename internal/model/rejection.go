package model

// RejectionReason enum constants. The catalog is fixed; "other" needs free text.
const (
	RejectionIncompleteInformation = "incomplete_information"
	RejectionProfileMismatch       = "profile_mismatch"
	RejectionInadequateConditions  = "inadequate_conditions"
	RejectionInsufficientAid       = "insufficient_aid"
	RejectionDuplicateOffer        = "duplicate_offer"
	RejectionOther                 = "other"
)

// RejectionReason is one entry of the rejection catalog.
type RejectionReason struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// RejectionCatalog lists the reasons in the order they are offered to reviewers.
var RejectionCatalog = []RejectionReason{
	{Code: RejectionIncompleteInformation, Label: "La información de la oportunidad está incompleta"},
	{Code: RejectionProfileMismatch, Label: "El perfil no corresponde a los programas académicos"},
	{Code: RejectionInadequateConditions, Label: "Las condiciones de vinculación no son adecuadas"},
	{Code: RejectionInsufficientAid, Label: "El apoyo económico es insuficiente"},
	{Code: RejectionDuplicateOffer, Label: "La oportunidad ya fue publicada"},
	{Code: RejectionOther, Label: "Otro"},
}

// LookupRejectionReason finds a catalog entry by code.
func LookupRejectionReason(code string) (RejectionReason, bool) {
	for _, r := range RejectionCatalog {
		if r.Code == code {
			return r, true
		}
	}
	return RejectionReason{}, false
}
