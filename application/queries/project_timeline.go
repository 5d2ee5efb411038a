package queries

import (
	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
	"github.com/santiagotion/sentinel-sub001/pkg/utils"
)

// ProjectTimelineQuery maps events, milestones and phases onto a pixel area
type ProjectTimelineQuery struct {
	Events     []entities.TimelineEvent `json:"events"`
	Milestones []entities.Milestone     `json:"milestones"`
	Phases     []entities.Phase         `json:"phases"`
	Width      float64                  `json:"width" validate:"gt=0"`
	Height     float64                  `json:"height" validate:"gt=0"`
}

// Validate validates the query
func (q ProjectTimelineQuery) Validate() error {
	if err := utils.ValidateStruct(q); err != nil {
		return pkgerrors.NewValidationError("invalid timeline query").WithCause(err)
	}
	return nil
}
