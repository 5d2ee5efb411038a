package entities

import (
	"math"

	"github.com/santiagotion/sentinel-sub001/domain/core/valueobjects"
)

// NodeKind distinguishes the two visual entities of the propagation graph
type NodeKind string

const (
	NodeKindAccount NodeKind = "account"
	NodeKindEvent   NodeKind = "event"
)

// NodeKindProfile holds every kind-dependent constant. Call sites look the
// profile up instead of branching on the kind.
type NodeKindProfile struct {
	Label       string
	Color       string
	RadiusBase  float64
	RadiusScale float64
	RadiusMax   float64
}

var nodeKindProfiles = map[NodeKind]NodeKindProfile{
	NodeKindAccount: {
		Label:       "Account",
		Color:       "#0ea5e9",
		RadiusBase:  8,
		RadiusScale: 0.01,
		RadiusMax:   40,
	},
	NodeKindEvent: {
		Label:       "Event",
		Color:       "#f97316",
		RadiusBase:  5,
		RadiusScale: 0.005,
		RadiusMax:   30,
	},
}

// Profile returns the lookup entry for the kind. Unknown kinds fall back to
// the event profile.
func (k NodeKind) Profile() NodeKindProfile {
	if p, ok := nodeKindProfiles[k]; ok {
		return p
	}
	return nodeKindProfiles[NodeKindEvent]
}

// ChargeTable maps each kind to its repulsion magnitude. Values come from
// layout configuration rather than the static profile table.
type ChargeTable map[NodeKind]float64

// Charge returns the repulsion for the kind. Unknown kinds fall back to the
// event entry, matching Profile.
func (k NodeKind) Charge(table ChargeTable) float64 {
	if v, ok := table[k]; ok {
		return v
	}
	return table[NodeKindEvent]
}

// IsValid reports whether k is a known kind
func (k NodeKind) IsValid() bool {
	_, ok := nodeKindProfiles[k]
	return ok
}

// NodeKinds lists the known kinds in a stable order
func NodeKinds() []NodeKind {
	return []NodeKind{NodeKindAccount, NodeKindEvent}
}

// Node is a simulated graph vertex. Once handed to a simulation the
// simulation owns it; Pinned is only changed through drag interaction.
type Node struct {
	ID         string
	Kind       NodeKind
	Label      string
	SizeMetric float64 // followerCount for accounts, reach for events
	Position   valueobjects.Vector
	Velocity   valueobjects.Vector
	Pinned     *valueobjects.Vector
}

// NewNode creates an unplaced node
func NewNode(id string, kind NodeKind, label string, sizeMetric float64) *Node {
	return &Node{
		ID:         id,
		Kind:       kind,
		Label:      label,
		SizeMetric: sizeMetric,
	}
}

// Radius derives the collision/visual radius from the size metric. It is
// monotonically non-decreasing in SizeMetric.
func (n *Node) Radius() float64 {
	return RadiusFor(n.Kind, n.SizeMetric)
}

// RadiusFor computes the radius for a kind and size metric
func RadiusFor(kind NodeKind, sizeMetric float64) float64 {
	p := kind.Profile()
	if math.IsNaN(sizeMetric) || sizeMetric < 0 {
		sizeMetric = 0
	}
	return math.Min(p.RadiusMax, p.RadiusBase+p.RadiusScale*math.Sqrt(sizeMetric))
}

// IsPinned reports whether the node's position is fixed externally
func (n *Node) IsPinned() bool {
	return n.Pinned != nil
}

// RenderPosition is the position a renderer must draw: the pin when pinned
func (n *Node) RenderPosition() valueobjects.Vector {
	if n.Pinned != nil {
		return *n.Pinned
	}
	return n.Position
}

// Pin fixes the node at p
func (n *Node) Pin(p valueobjects.Vector) {
	pin := p
	n.Pinned = &pin
	n.Position = p
	n.Velocity = valueobjects.Vector{}
}

// Unpin releases the node back to force integration
func (n *Node) Unpin() {
	if n.Pinned != nil {
		n.Position = *n.Pinned
	}
	n.Pinned = nil
	n.Velocity = valueobjects.Vector{}
}

// Clone returns a deep copy
func (n *Node) Clone() *Node {
	clone := *n
	if n.Pinned != nil {
		pin := *n.Pinned
		clone.Pinned = &pin
	}
	return &clone
}
