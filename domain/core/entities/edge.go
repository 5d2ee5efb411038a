package entities

import (
	"fmt"
	"math"
	"strings"
)

// RelationKind is the closed set of relationship types between nodes
type RelationKind string

const (
	RelationCauses      RelationKind = "causes"
	RelationInfluences  RelationKind = "influences"
	RelationContradicts RelationKind = "contradicts"
	RelationSupports    RelationKind = "supports"
	RelationDebunks     RelationKind = "debunks"
	RelationAmplifies   RelationKind = "amplifies"
)

// MinEdgeStrength bounds strength away from zero so link distances stay finite
const MinEdgeStrength = 0.05

// RelationProfile is the rendering lookup for a relation kind
type RelationProfile struct {
	Color           string
	Width           float64
	DefaultStrength float64
}

var relationProfiles = map[RelationKind]RelationProfile{
	RelationCauses:      {Color: "#ef4444", Width: 2.5, DefaultStrength: 0.8},
	RelationInfluences:  {Color: "#3b82f6", Width: 1.5, DefaultStrength: 0.5},
	RelationContradicts: {Color: "#f59e0b", Width: 2.0, DefaultStrength: 0.4},
	RelationSupports:    {Color: "#10b981", Width: 1.5, DefaultStrength: 0.6},
	RelationDebunks:     {Color: "#8b5cf6", Width: 2.0, DefaultStrength: 0.5},
	RelationAmplifies:   {Color: "#ec4899", Width: 1.0, DefaultStrength: 0.7},
}

// ParseRelationKind normalises and validates a relation kind
func ParseRelationKind(s string) (RelationKind, error) {
	kind := RelationKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("unknown relation kind %q", s)
	}
	return kind, nil
}

// IsValid reports whether k is part of the closed set
func (k RelationKind) IsValid() bool {
	_, ok := relationProfiles[k]
	return ok
}

// Profile returns the lookup entry for k
func (k RelationKind) Profile() RelationProfile {
	return relationProfiles[k]
}

// RelationKinds lists every relation kind in a stable order
func RelationKinds() []RelationKind {
	return []RelationKind{
		RelationCauses,
		RelationInfluences,
		RelationContradicts,
		RelationSupports,
		RelationDebunks,
		RelationAmplifies,
	}
}

// Edge connects two nodes by id. Edges never hold node pointers; endpoints
// are resolved through the graph index when needed.
type Edge struct {
	SourceID string       `json:"sourceId"`
	TargetID string       `json:"targetId"`
	Kind     RelationKind `json:"kind"`
	Strength float64      `json:"strength"`
}

// NewEdge creates an edge with strength normalised into (0,1]. Zero or NaN
// strength falls back to the kind's default.
func NewEdge(sourceID, targetID string, kind RelationKind, strength float64) Edge {
	return Edge{
		SourceID: sourceID,
		TargetID: targetID,
		Kind:     kind,
		Strength: NormalizeStrength(kind, strength),
	}
}

// NormalizeStrength maps arbitrary input strength into [MinEdgeStrength, 1]
func NormalizeStrength(kind RelationKind, strength float64) float64 {
	if math.IsNaN(strength) || strength == 0 {
		strength = kind.Profile().DefaultStrength
		if strength == 0 {
			strength = 1
		}
	}
	return math.Max(MinEdgeStrength, math.Min(1, strength))
}

// Touches reports whether the edge is incident to nodeID
func (e Edge) Touches(nodeID string) bool {
	return e.SourceID == nodeID || e.TargetID == nodeID
}

// Key identifies the edge for rendering purposes
func (e Edge) Key() string {
	return e.SourceID + "->" + e.TargetID + ":" + string(e.Kind)
}
