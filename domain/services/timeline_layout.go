package services

import (
	"math"
	"time"

	"github.com/santiagotion/sentinel-sub001/domain/config"
	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
	"github.com/santiagotion/sentinel-sub001/pkg/utils"
)

// LinearScale maps a numeric domain onto a pixel range. A degenerate domain
// maps every input to the middle of the range.
type LinearScale struct {
	DomainMin float64 `json:"domainMin"`
	DomainMax float64 `json:"domainMax"`
	RangeMin  float64 `json:"rangeMin"`
	RangeMax  float64 `json:"rangeMax"`
}

// Map projects v
func (s LinearScale) Map(v float64) float64 {
	if s.DomainMax == s.DomainMin {
		return (s.RangeMin + s.RangeMax) / 2
	}
	k := (v - s.DomainMin) / (s.DomainMax - s.DomainMin)
	return s.RangeMin + k*(s.RangeMax-s.RangeMin)
}

// Invert maps a pixel coordinate back into the domain
func (s LinearScale) Invert(px float64) float64 {
	if s.RangeMax == s.RangeMin {
		return s.DomainMin
	}
	k := (px - s.RangeMin) / (s.RangeMax - s.RangeMin)
	return s.DomainMin + k*(s.DomainMax-s.DomainMin)
}

// TimeScale maps timestamps linearly onto [RangeMin, RangeMax]
type TimeScale struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	RangeMin float64   `json:"rangeMin"`
	RangeMax float64   `json:"rangeMax"`
}

// Map projects t
func (s TimeScale) Map(t time.Time) float64 {
	span := s.End.Sub(s.Start)
	if span == 0 {
		return (s.RangeMin + s.RangeMax) / 2
	}
	k := float64(t.Sub(s.Start)) / float64(span)
	return s.RangeMin + k*(s.RangeMax-s.RangeMin)
}

// Invert maps a pixel coordinate back to a timestamp
func (s TimeScale) Invert(px float64) time.Time {
	if s.RangeMax == s.RangeMin {
		return s.Start
	}
	k := (px - s.RangeMin) / (s.RangeMax - s.RangeMin)
	return s.Start.Add(time.Duration(k * float64(s.End.Sub(s.Start))))
}

// Ticks returns n+1 evenly spaced timestamps covering the domain
func (s TimeScale) Ticks(n int) []time.Time {
	if n < 1 || s.End.Equal(s.Start) {
		return []time.Time{s.Start}
	}
	step := s.End.Sub(s.Start) / time.Duration(n)
	ticks := make([]time.Time, 0, n+1)
	for i := 0; i < n; i++ {
		ticks = append(ticks, s.Start.Add(step*time.Duration(i)))
	}
	return append(ticks, s.End)
}

// SqrtScale maps [0, DomainMax] onto [RangeMin, RangeMax] by square root so
// the area of a point grows linearly with its value
type SqrtScale struct {
	DomainMax float64 `json:"domainMax"`
	RangeMin  float64 `json:"rangeMin"`
	RangeMax  float64 `json:"rangeMax"`
}

// Map projects v; negative values are treated as zero
func (s SqrtScale) Map(v float64) float64 {
	if s.DomainMax <= 0 {
		return (s.RangeMin + s.RangeMax) / 2
	}
	k := math.Sqrt(math.Max(0, math.Min(v, s.DomainMax)) / s.DomainMax)
	return s.RangeMin + k*(s.RangeMax-s.RangeMin)
}

// PhaseBand is the full-height rectangle of a phase
type PhaseBand struct {
	X                 float64  `json:"x"`
	Y                 float64  `json:"y"`
	Width             float64  `json:"width"`
	Height            float64  `json:"height"`
	SentimentLabel    string   `json:"sentimentLabel"`
	DominantPlatforms []string `json:"dominantPlatforms"`
	Open              bool     `json:"open"`
}

// MilestoneMarker is a vertical line plus point at a milestone's time
type MilestoneMarker struct {
	X            float64               `json:"x"`
	Y1           float64               `json:"y1"`
	Y2           float64               `json:"y2"`
	Title        string                `json:"title"`
	Significance entities.Significance `json:"significance"`
	StrokeWidth  float64               `json:"strokeWidth"`
	MarkerRadius float64               `json:"markerRadius"`
	Color        string                `json:"color"`
}

// EventPoint is a projected event
type EventPoint struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Kind   string  `json:"kind"`
}

// TimelineProjection is the full result handed to a renderer
type TimelineProjection struct {
	Width            float64           `json:"width"`
	Height           float64           `json:"height"`
	TimeScale        TimeScale         `json:"timeScale"`
	ValueScale       LinearScale       `json:"valueScale"`
	RadiusScale      SqrtScale         `json:"radiusScale"`
	PhaseBands       []PhaseBand       `json:"phaseBands"`
	MilestoneMarkers []MilestoneMarker `json:"milestoneMarkers"`
	EventPoints      []EventPoint      `json:"eventPoints"`
}

// TimelineLayout projects events, milestones and phases onto time/reach
// coordinates. It holds no state besides its configuration.
type TimelineLayout struct {
	cfg config.TimelineConfig
}

// NewTimelineLayout creates a layout with the given point radius bounds
func NewTimelineLayout(cfg config.TimelineConfig) (*TimelineLayout, error) {
	if err := utils.ValidateStruct(cfg); err != nil {
		return nil, pkgerrors.NewConfigurationError("invalid timeline config").WithCause(err)
	}
	return &TimelineLayout{cfg: cfg}, nil
}

// Project computes the projection for a pixel area. Inputs are not modified.
func (l *TimelineLayout) Project(
	events []entities.TimelineEvent,
	milestones []entities.Milestone,
	phases []entities.Phase,
	pixelWidth, pixelHeight float64,
) (*TimelineProjection, error) {
	if !validDimension(pixelWidth) || !validDimension(pixelHeight) {
		return nil, pkgerrors.NewValidationError("pixel dimensions must be positive finite numbers").
			WithDetail("width", pixelWidth).
			WithDetail("height", pixelHeight)
	}

	proj := &TimelineProjection{
		Width:            pixelWidth,
		Height:           pixelHeight,
		TimeScale:        timeDomain(events, milestones, pixelWidth),
		PhaseBands:       make([]PhaseBand, 0, len(phases)),
		MilestoneMarkers: make([]MilestoneMarker, 0, len(milestones)),
		EventPoints:      make([]EventPoint, 0, len(events)),
	}

	maxReach, maxShares := 0.0, 0.0
	for _, e := range events {
		maxReach = math.Max(maxReach, e.Reach)
		maxShares = math.Max(maxShares, e.Shares)
	}
	proj.ValueScale = LinearScale{DomainMin: 0, DomainMax: maxReach, RangeMin: pixelHeight, RangeMax: 0}
	proj.RadiusScale = SqrtScale{DomainMax: maxShares, RangeMin: l.cfg.MinPointRadius, RangeMax: l.cfg.MaxPointRadius}

	for _, p := range phases {
		end := proj.TimeScale.End
		if p.End != nil {
			end = *p.End
		}
		x0, x1 := proj.TimeScale.Map(p.Start), proj.TimeScale.Map(end)
		if x1 < x0 {
			x0, x1 = x1, x0
		}
		proj.PhaseBands = append(proj.PhaseBands, PhaseBand{
			X:                 x0,
			Y:                 0,
			Width:             x1 - x0,
			Height:            pixelHeight,
			SentimentLabel:    p.SentimentLabel,
			DominantPlatforms: append([]string(nil), p.DominantPlatforms...),
			Open:              p.IsOpen(),
		})
	}

	for _, m := range milestones {
		profile := m.Significance.Profile()
		proj.MilestoneMarkers = append(proj.MilestoneMarkers, MilestoneMarker{
			X:            proj.TimeScale.Map(m.Timestamp),
			Y1:           0,
			Y2:           pixelHeight,
			Title:        m.Title,
			Significance: m.Significance,
			StrokeWidth:  profile.StrokeWidth,
			MarkerRadius: profile.MarkerRadius,
			Color:        profile.Color,
		})
	}

	for _, e := range events {
		proj.EventPoints = append(proj.EventPoints, EventPoint{
			ID:     e.ID,
			X:      proj.TimeScale.Map(e.Timestamp),
			Y:      proj.ValueScale.Map(e.Reach),
			Radius: proj.RadiusScale.Map(e.Shares),
			Kind:   e.Kind,
		})
	}

	return proj, nil
}

func validDimension(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// timeDomain spans every event and milestone timestamp
func timeDomain(events []entities.TimelineEvent, milestones []entities.Milestone, width float64) TimeScale {
	scale := TimeScale{RangeMin: 0, RangeMax: width}
	first := true
	extend := func(t time.Time) {
		if first {
			scale.Start, scale.End = t, t
			first = false
			return
		}
		if t.Before(scale.Start) {
			scale.Start = t
		}
		if t.After(scale.End) {
			scale.End = t
		}
	}
	for _, e := range events {
		extend(e.Timestamp)
	}
	for _, m := range milestones {
		extend(m.Timestamp)
	}
	return scale
}
