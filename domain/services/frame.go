package services

import (
	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	"github.com/santiagotion/sentinel-sub001/domain/core/valueobjects"
)

// FrameNode is a node as handed to a renderer
type FrameNode struct {
	ID     string            `json:"id"`
	X      float64           `json:"x"`
	Y      float64           `json:"y"`
	Radius float64           `json:"radius"`
	Kind   entities.NodeKind `json:"kind"`
	Color  string            `json:"color"`
	Pinned bool              `json:"pinned"`
}

// FrameEdge is an edge resolved for rendering
type FrameEdge struct {
	SourceID    string                `json:"sourceId"`
	TargetID    string                `json:"targetId"`
	Kind        entities.RelationKind `json:"kind"`
	RenderColor string                `json:"renderColor"`
	Width       float64               `json:"width"`
	Dimmed      bool                  `json:"dimmed"`
	Highlighted bool                  `json:"highlighted"`
}

// Frame is one emitted snapshot of the layout
type Frame struct {
	Nodes     []FrameNode            `json:"nodes"`
	Edges     []FrameEdge            `json:"edges"`
	Transform valueobjects.Transform `json:"transform"`
	Alpha     float64                `json:"alpha"`
	Tick      int                    `json:"tick"`
	State     SimulationState        `json:"state"`
}

// edgeEmphasis decides how an edge is drawn
type edgeEmphasis func(e entities.Edge) (dimmed, highlighted bool)

// Frame builds a frame with uniform edge emphasis and the identity transform
func (s *ForceSimulation) Frame() Frame {
	return s.buildFrame(valueobjects.IdentityTransform(), nil)
}

// buildFrame resolves every edge through the id index. Edges whose
// endpoints are not in the emitted node set are never emitted.
func (s *ForceSimulation) buildFrame(transform valueobjects.Transform, emphasis edgeEmphasis) Frame {
	frame := Frame{
		Nodes:     make([]FrameNode, 0, len(s.nodes)),
		Edges:     make([]FrameEdge, 0, len(s.edges)),
		Transform: transform,
		Alpha:     s.alpha,
		Tick:      s.tick,
		State:     s.state,
	}

	for _, n := range s.nodes {
		p := n.RenderPosition()
		frame.Nodes = append(frame.Nodes, FrameNode{
			ID:     n.ID,
			X:      p.X,
			Y:      p.Y,
			Radius: n.Radius(),
			Kind:   n.Kind,
			Color:  n.Kind.Profile().Color,
			Pinned: n.IsPinned(),
		})
	}

	for _, e := range s.edges {
		if !s.HasNode(e.SourceID) || !s.HasNode(e.TargetID) {
			continue
		}
		profile := e.Kind.Profile()
		fe := FrameEdge{
			SourceID:    e.SourceID,
			TargetID:    e.TargetID,
			Kind:        e.Kind,
			RenderColor: profile.Color,
			Width:       profile.Width,
		}
		if emphasis != nil {
			fe.Dimmed, fe.Highlighted = emphasis(e)
		}
		frame.Edges = append(frame.Edges, fe)
	}

	return frame
}
