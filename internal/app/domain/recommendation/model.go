// Package recommendation defines per-user suggested trades derived from
// recent analyses.
package recommendation

import (
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
)

// Recommendation is a suggestion surfaced on the dashboard until viewed.
type Recommendation struct {
	ID         string                  `json:"id"`
	UserID     string                  `json:"user_id"`
	Symbol     string                  `json:"symbol"`
	Type       asset.Type              `json:"type"`
	Action     analysis.Recommendation `json:"action"`
	Confidence int                     `json:"confidence"`
	Reasoning  string                  `json:"reasoning"`
	Viewed     bool                    `json:"viewed"`
	CreatedAt  time.Time               `json:"created_at"`
}
