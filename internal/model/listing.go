package model

// Sort directions accepted by the store
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListQuery is forwarded to the store; filtering and sorting happen there.
type ListQuery struct {
	Page          int               `json:"page"`
	Limit         int               `json:"limit"`
	Search        string            `json:"search,omitempty"`
	SortField     string            `json:"sort_field,omitempty"`
	SortDirection string            `json:"sort_direction,omitempty"`
	Filters       map[string]string `json:"filters,omitempty"`
}

// OpportunityPage is one page of results with counts sourced from the store.
type OpportunityPage struct {
	Items       []Opportunity `json:"items"`
	Total       int64         `json:"total"`
	TotalPages  int           `json:"total_pages"`
	CurrentPage int           `json:"current_page"`
}
