package queries

import (
	"github.com/santiagotion/sentinel-sub001/domain/core/aggregates"
	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
)

// BuildGraphQuery assembles a propagation graph from raw records
type BuildGraphQuery struct {
	Accounts      []entities.AccountRecord      `json:"accounts"`
	Events        []entities.EventRecord        `json:"events"`
	Relationships []entities.RelationshipRecord `json:"relationships"`
}

// Validate validates the query. Any record set is acceptable, including an
// empty one.
func (q BuildGraphQuery) Validate() error {
	return nil
}

// BuildGraphResult is the built graph plus its summary
type BuildGraphResult struct {
	Graph      *aggregates.Graph          `json:"-"`
	Statistics aggregates.GraphStatistics `json:"statistics"`
	Skipped    int                        `json:"skippedRecordCount"`
}
