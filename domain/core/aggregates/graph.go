package aggregates

import (
	"errors"
	"strings"

	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
)

// Graph is the validated node/edge set produced from raw records.
// Nodes live in a flat arena addressed through an id index; edges carry ids
// only, so there is no cyclic ownership between nodes and edges.
type Graph struct {
	nodes            []*entities.Node
	index            map[string]int
	edges            []entities.Edge
	droppedEdgeCount int
	skippedRecords   int
}

// GraphStatistics contains computed statistics about the graph
type GraphStatistics struct {
	NodeCount         int                           `json:"nodeCount"`
	EdgeCount         int                           `json:"edgeCount"`
	NodesByKind       map[entities.NodeKind]int     `json:"nodesByKind"`
	EdgesByKind       map[entities.RelationKind]int `json:"edgesByKind"`
	OrphanedNodeCount int                           `json:"orphanedNodeCount"`
	Density           float64                       `json:"density"`
	DroppedEdgeCount  int                           `json:"droppedEdgeCount"`
}

// BuildGraph assembles a graph from account, event and relationship records.
// It is a pure function of its inputs:
//   - nodes are deduplicated by id, first occurrence wins (accounts first)
//   - every event gets an implicit amplifies edge from its source account
//     when that account exists
//   - relationships whose endpoints do not resolve, self-loops and unknown
//     relation kinds are dropped and counted
func BuildGraph(
	accounts []entities.AccountRecord,
	events []entities.EventRecord,
	relationships []entities.RelationshipRecord,
) *Graph {
	g := &Graph{
		nodes: make([]*entities.Node, 0, len(accounts)+len(events)),
		index: make(map[string]int, len(accounts)+len(events)),
		edges: make([]entities.Edge, 0, len(events)+len(relationships)),
	}

	for _, a := range accounts {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			g.skippedRecords++
			continue
		}
		label := a.Handle
		if label == "" {
			label = id
		}
		g.addNode(entities.NewNode(id, entities.NodeKindAccount, label, a.FollowerCount))
	}

	for _, e := range events {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			g.skippedRecords++
			continue
		}
		label := e.Title
		if label == "" {
			label = id
		}
		g.addNode(entities.NewNode(id, entities.NodeKindEvent, label, e.Reach))
	}

	// Implicit source-account edges
	for _, e := range events {
		eventID := strings.TrimSpace(e.ID)
		accountID := strings.TrimSpace(e.SourceAccountID)
		if eventID == "" || accountID == "" || accountID == eventID {
			continue
		}
		if !g.hasNodeOfKind(accountID, entities.NodeKindAccount) || !g.hasNodeOfKind(eventID, entities.NodeKindEvent) {
			continue
		}
		g.edges = append(g.edges, entities.NewEdge(accountID, eventID, entities.RelationAmplifies, 0))
	}

	for _, r := range relationships {
		sourceID := strings.TrimSpace(r.SourceEventID)
		targetID := strings.TrimSpace(r.TargetEventID)

		kind, err := entities.ParseRelationKind(r.Kind)
		if err != nil || sourceID == targetID ||
			!g.hasNodeOfKind(sourceID, entities.NodeKindEvent) || !g.hasNodeOfKind(targetID, entities.NodeKindEvent) {
			g.droppedEdgeCount++
			continue
		}
		g.edges = append(g.edges, entities.NewEdge(sourceID, targetID, kind, r.Strength))
	}

	return g
}

// hasNodeOfKind reports whether id resolves to a node of the given kind
func (g *Graph) hasNodeOfKind(id string, kind entities.NodeKind) bool {
	i, ok := g.index[id]
	return ok && g.nodes[i].Kind == kind
}

func (g *Graph) addNode(n *entities.Node) {
	if _, exists := g.index[n.ID]; exists {
		return
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// Nodes returns the node arena. The slice is shared; callers that mutate
// nodes take ownership of the graph.
func (g *Graph) Nodes() []*entities.Node {
	return g.nodes
}

// Edges returns a copy of the edges
func (g *Graph) Edges() []entities.Edge {
	edges := make([]entities.Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// DroppedEdgeCount returns how many relationship records were rejected
func (g *Graph) DroppedEdgeCount() int {
	return g.droppedEdgeCount
}

// SkippedRecordCount returns how many account/event records had no id
func (g *Graph) SkippedRecordCount() int {
	return g.skippedRecords
}

// HasNode checks if a node exists in the graph
func (g *Graph) HasNode(id string) bool {
	_, exists := g.index[id]
	return exists
}

// Index resolves a node id to its arena slot
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// GetNode retrieves a node by ID
func (g *Graph) GetNode(id string) (*entities.Node, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, errors.New("node not found")
	}
	return g.nodes[i], nil
}

// Incident returns the edges touching nodeID
func (g *Graph) Incident(nodeID string) []entities.Edge {
	var out []entities.Edge
	for _, e := range g.edges {
		if e.Touches(nodeID) {
			out = append(out, e)
		}
	}
	return out
}

// IsEmpty reports whether the graph has no nodes
func (g *Graph) IsEmpty() bool {
	return len(g.nodes) == 0
}

// Validate ensures graph invariants
func (g *Graph) Validate() error {
	for _, edge := range g.edges {
		if !g.HasNode(edge.SourceID) {
			return errors.New("edge references non-existent source node")
		}
		if !g.HasNode(edge.TargetID) {
			return errors.New("edge references non-existent target node")
		}
	}

	if len(g.index) != len(g.nodes) {
		return errors.New("node index out of sync")
	}

	return nil
}

// Statistics computes summary statistics
func (g *Graph) Statistics() GraphStatistics {
	stats := GraphStatistics{
		NodeCount:        len(g.nodes),
		EdgeCount:        len(g.edges),
		NodesByKind:      make(map[entities.NodeKind]int),
		EdgesByKind:      make(map[entities.RelationKind]int),
		DroppedEdgeCount: g.droppedEdgeCount,
	}

	connected := make(map[string]bool, len(g.nodes))
	for _, e := range g.edges {
		stats.EdgesByKind[e.Kind]++
		connected[e.SourceID] = true
		connected[e.TargetID] = true
	}

	for _, n := range g.nodes {
		stats.NodesByKind[n.Kind]++
		if !connected[n.ID] {
			stats.OrphanedNodeCount++
		}
	}

	if n := len(g.nodes); n > 1 {
		stats.Density = float64(len(g.edges)) / float64(n*(n-1))
	}

	return stats
}
