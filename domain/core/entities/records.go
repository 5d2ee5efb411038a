package entities

import "time"

// AccountRecord is an account as delivered by the data layer
type AccountRecord struct {
	ID            string  `json:"id" yaml:"id"`
	Handle        string  `json:"handle" yaml:"handle"`
	Platform      string  `json:"platform" yaml:"platform"`
	FollowerCount float64 `json:"followerCount" yaml:"followerCount"`
}

// EventRecord is a published item (post, article, video) attributed to an account
type EventRecord struct {
	ID              string    `json:"id" yaml:"id"`
	SourceAccountID string    `json:"sourceAccountId" yaml:"sourceAccountId"`
	Title           string    `json:"title" yaml:"title"`
	Kind            string    `json:"kind" yaml:"kind"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
	Reach           float64   `json:"reach" yaml:"reach"`
	Shares          float64   `json:"shares" yaml:"shares"`
}

// RelationshipRecord links two events
type RelationshipRecord struct {
	SourceEventID string  `json:"sourceEventId" yaml:"sourceEventId"`
	TargetEventID string  `json:"targetEventId" yaml:"targetEventId"`
	Kind          string  `json:"kind" yaml:"kind"`
	Strength      float64 `json:"strength" yaml:"strength"`
}

// TimelineEvent returns the timeline view of the event
func (r EventRecord) TimelineEvent() TimelineEvent {
	return TimelineEvent{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Reach:     r.Reach,
		Shares:    r.Shares,
		Kind:      r.Kind,
	}
}

// TimelineEvents converts a batch of event records
func TimelineEvents(records []EventRecord) []TimelineEvent {
	out := make([]TimelineEvent, 0, len(records))
	for _, r := range records {
		out = append(out, r.TimelineEvent())
	}
	return out
}
