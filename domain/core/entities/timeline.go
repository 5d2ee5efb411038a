package entities

import (
	"fmt"
	"strings"
	"time"
)

// TimelineEvent is an event as seen by the timeline projection
type TimelineEvent struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Reach     float64   `json:"reach" yaml:"reach"`
	Shares    float64   `json:"shares" yaml:"shares"`
	Kind      string    `json:"kind" yaml:"kind"`
}

// Significance grades milestones for visual weight
type Significance string

const (
	SignificanceCritical Significance = "critical"
	SignificanceMajor    Significance = "major"
	SignificanceMinor    Significance = "minor"
)

// SignificanceProfile is the rendering lookup for a milestone grade
type SignificanceProfile struct {
	StrokeWidth  float64
	MarkerRadius float64
	Color        string
}

var significanceProfiles = map[Significance]SignificanceProfile{
	SignificanceCritical: {StrokeWidth: 3, MarkerRadius: 7, Color: "#dc2626"},
	SignificanceMajor:    {StrokeWidth: 2, MarkerRadius: 5, Color: "#ea580c"},
	SignificanceMinor:    {StrokeWidth: 1, MarkerRadius: 3, Color: "#64748b"},
}

// ParseSignificance validates a significance label
func ParseSignificance(s string) (Significance, error) {
	sig := Significance(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := significanceProfiles[sig]; !ok {
		return "", fmt.Errorf("unknown significance %q", s)
	}
	return sig, nil
}

// Profile returns the lookup entry; unknown grades render as minor
func (s Significance) Profile() SignificanceProfile {
	if p, ok := significanceProfiles[s]; ok {
		return p
	}
	return significanceProfiles[SignificanceMinor]
}

// Milestone is a single timestamped highlight
type Milestone struct {
	Timestamp    time.Time    `json:"timestamp" yaml:"timestamp"`
	Significance Significance `json:"significance" yaml:"significance"`
	Title        string       `json:"title" yaml:"title"`
}

// Phase is a labelled interval of the propagation. End is nil while the
// phase is still open.
type Phase struct {
	Start             time.Time  `json:"startTime" yaml:"startTime"`
	End               *time.Time `json:"endTime,omitempty" yaml:"endTime,omitempty"`
	SentimentLabel    string     `json:"sentimentLabel" yaml:"sentimentLabel"`
	DominantPlatforms []string   `json:"dominantPlatforms" yaml:"dominantPlatforms"`
}

// IsOpen reports whether the phase has no end yet
func (p Phase) IsOpen() bool {
	return p.End == nil
}
