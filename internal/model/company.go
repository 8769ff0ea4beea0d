package model

// CompanyRecord is produced by domain enrichment and company search.
// Companies are keyed by provider-assigned ids and are not deduplicated
// beyond that.
type CompanyRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Industry string `json:"industry,omitempty"`
	Size     string `json:"size,omitempty"`
}
