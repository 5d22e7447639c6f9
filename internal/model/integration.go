// internal/model/integration.go
package model

// Integration kinds
const (
	IntegrationMessenger = "messenger"
	IntegrationLead      = "lead"
)

// Integration is an outbound channel endpoint owned by a brand.
type Integration struct {
	ID      int64  `json:"id"`
	BrandID int64  `json:"brand_id"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
}
