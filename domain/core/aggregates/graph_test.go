package aggregates

import (
	"testing"
	"time"

	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() ([]entities.AccountRecord, []entities.EventRecord, []entities.RelationshipRecord) {
	ts := time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)

	accounts := []entities.AccountRecord{
		{ID: "acc-1", Handle: "@origin", Platform: "twitter", FollowerCount: 120_000},
		{ID: "acc-2", Handle: "@relay", Platform: "facebook", FollowerCount: 4_500},
		{ID: "acc-3", Handle: "@factcheck", Platform: "web", FollowerCount: 80_000},
	}
	events := []entities.EventRecord{
		{ID: "ev-1", SourceAccountID: "acc-1", Title: "Original claim", Timestamp: ts, Reach: 50_000, Shares: 1_200},
		{ID: "ev-2", SourceAccountID: "acc-2", Title: "Repost", Timestamp: ts.Add(time.Hour), Reach: 9_000, Shares: 300},
		{ID: "ev-3", SourceAccountID: "acc-2", Title: "Commentary", Timestamp: ts.Add(2 * time.Hour), Reach: 3_000, Shares: 40},
		{ID: "ev-4", SourceAccountID: "acc-3", Title: "Fact check", Timestamp: ts.Add(4 * time.Hour), Reach: 20_000, Shares: 900},
		{ID: "ev-5", SourceAccountID: "acc-9", Title: "Orphan echo", Timestamp: ts.Add(8 * time.Hour), Reach: 100, Shares: 2},
	}
	relationships := []entities.RelationshipRecord{
		{SourceEventID: "ev-1", TargetEventID: "ev-2", Kind: "causes", Strength: 0.9},
		{SourceEventID: "ev-2", TargetEventID: "ev-3", Kind: "influences", Strength: 0.4},
		{SourceEventID: "ev-4", TargetEventID: "ev-1", Kind: "debunks"},
		{SourceEventID: "ev-3", TargetEventID: "ev-5", Kind: "supports", Strength: 0.2},
		{SourceEventID: "ev-4", TargetEventID: "ev-3", Kind: "contradicts", Strength: 0.6},
		{SourceEventID: "ev-1", TargetEventID: "ev-404", Kind: "causes", Strength: 0.5},
	}
	return accounts, events, relationships
}

func TestBuildGraphScenario(t *testing.T) {
	accounts, events, relationships := sampleRecords()

	g := BuildGraph(accounts, events, relationships)

	assert.Equal(t, 8, g.NodeCount())
	assert.Equal(t, 1, g.DroppedEdgeCount())
	assert.Equal(t, 0, g.SkippedRecordCount())
	require.NoError(t, g.Validate())

	// 4 implicit amplifies edges (ev-5 has no resolvable account) + 5 relationships
	assert.Equal(t, 9, g.EdgeCount())
	for _, e := range g.Edges() {
		assert.True(t, g.HasNode(e.SourceID), "source %s", e.SourceID)
		assert.True(t, g.HasNode(e.TargetID), "target %s", e.TargetID)
		assert.Greater(t, e.Strength, 0.0)
		assert.LessOrEqual(t, e.Strength, 1.0)
	}
}

func TestBuildGraphImplicitEdges(t *testing.T) {
	accounts, events, _ := sampleRecords()

	g := BuildGraph(accounts, events, nil)

	incident := g.Incident("acc-2")
	require.Len(t, incident, 2)
	for _, e := range incident {
		assert.Equal(t, entities.RelationAmplifies, e.Kind)
		assert.Equal(t, "acc-2", e.SourceID)
		assert.Equal(t, 0.7, e.Strength)
	}

	assert.Empty(t, g.Incident("ev-5"))
	assert.Equal(t, 0, g.DroppedEdgeCount())
}

func TestBuildGraphImplicitEdgeNeedsAccountSource(t *testing.T) {
	events := []entities.EventRecord{
		{ID: "ev-1"},
		{ID: "ev-2", SourceAccountID: "ev-1"},
	}

	g := BuildGraph(nil, events, nil)

	assert.Equal(t, 2, g.NodeCount())
	assert.Zero(t, g.EdgeCount(), "an event id in sourceAccountId does not make an amplifies edge")
}

func TestBuildGraphDeduplicates(t *testing.T) {
	accounts := []entities.AccountRecord{
		{ID: "dup", Handle: "@first", FollowerCount: 10},
		{ID: "dup", Handle: "@second", FollowerCount: 99},
	}
	events := []entities.EventRecord{
		{ID: "dup", Title: "collides with account"},
		{ID: "ev-1", SourceAccountID: "dup"},
	}

	g := BuildGraph(accounts, events, nil)

	require.Equal(t, 2, g.NodeCount())
	node, err := g.GetNode("dup")
	require.NoError(t, err)
	assert.Equal(t, "@first", node.Label)
	assert.Equal(t, entities.NodeKindAccount, node.Kind)
}

func TestBuildGraphDropsInvalidRelationships(t *testing.T) {
	accounts := []entities.AccountRecord{{ID: "acc"}}
	events := []entities.EventRecord{{ID: "a"}, {ID: "b"}}

	tests := []struct {
		name string
		rel  entities.RelationshipRecord
		drop bool
	}{
		{name: "valid", rel: entities.RelationshipRecord{SourceEventID: "a", TargetEventID: "b", Kind: "causes"}},
		{name: "unknown source", rel: entities.RelationshipRecord{SourceEventID: "x", TargetEventID: "b", Kind: "causes"}, drop: true},
		{name: "unknown target", rel: entities.RelationshipRecord{SourceEventID: "a", TargetEventID: "x", Kind: "causes"}, drop: true},
		{name: "self loop", rel: entities.RelationshipRecord{SourceEventID: "a", TargetEventID: "a", Kind: "causes"}, drop: true},
		{name: "unknown kind", rel: entities.RelationshipRecord{SourceEventID: "a", TargetEventID: "b", Kind: "retweets"}, drop: true},
		{name: "account source", rel: entities.RelationshipRecord{SourceEventID: "acc", TargetEventID: "b", Kind: "causes"}, drop: true},
		{name: "account target", rel: entities.RelationshipRecord{SourceEventID: "a", TargetEventID: "acc", Kind: "supports"}, drop: true},
		{name: "kind case", rel: entities.RelationshipRecord{SourceEventID: "a", TargetEventID: "b", Kind: "Supports"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := BuildGraph(accounts, events, []entities.RelationshipRecord{tt.rel})
			if tt.drop {
				assert.Equal(t, 1, g.DroppedEdgeCount())
				assert.Equal(t, 0, g.EdgeCount())
			} else {
				assert.Equal(t, 0, g.DroppedEdgeCount())
				assert.Equal(t, 1, g.EdgeCount())
			}
		})
	}
}

func TestBuildGraphSkipsEmptyIDs(t *testing.T) {
	g := BuildGraph(
		[]entities.AccountRecord{{ID: "  "}},
		[]entities.EventRecord{{ID: ""}, {ID: "ev-1"}},
		nil,
	)

	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 2, g.SkippedRecordCount())
}

func TestBuildGraphEmpty(t *testing.T) {
	g := BuildGraph(nil, nil, nil)

	assert.True(t, g.IsEmpty())
	assert.Empty(t, g.Edges())
	assert.NoError(t, g.Validate())
	assert.Equal(t, 0.0, g.Statistics().Density)
}

func TestGraphStatistics(t *testing.T) {
	accounts, events, relationships := sampleRecords()
	g := BuildGraph(accounts, events, relationships)

	stats := g.Statistics()

	assert.Equal(t, 3, stats.NodesByKind[entities.NodeKindAccount])
	assert.Equal(t, 5, stats.NodesByKind[entities.NodeKindEvent])
	assert.Equal(t, 4, stats.EdgesByKind[entities.RelationAmplifies])
	assert.Equal(t, 1, stats.EdgesByKind[entities.RelationCauses])
	assert.Equal(t, 0, stats.OrphanedNodeCount)
	assert.Equal(t, 1, stats.DroppedEdgeCount)
	assert.InDelta(t, 9.0/56.0, stats.Density, 1e-12)
}

func TestGraphIndex(t *testing.T) {
	accounts, events, _ := sampleRecords()
	g := BuildGraph(accounts, events, nil)

	i, ok := g.Index("ev-1")
	require.True(t, ok)
	assert.Equal(t, "ev-1", g.Nodes()[i].ID)

	_, ok = g.Index("missing")
	assert.False(t, ok)

	_, err := g.GetNode("missing")
	assert.Error(t, err)
}
