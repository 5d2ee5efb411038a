package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santiagotion/sentinel-sub001/domain/config"
	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	"github.com/santiagotion/sentinel-sub001/domain/core/valueobjects"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
)

func newTestController(t *testing.T) (*InteractionController, *ForceSimulation) {
	t.Helper()
	sim := newTestSimulation(t, propagationGraph(3, 5), nil)
	sim.Start()
	return NewInteractionController(sim, nil), sim
}

func frameNode(t *testing.T, f Frame, id string) FrameNode {
	t.Helper()
	for _, n := range f.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not in frame", id)
	return FrameNode{}
}

func TestDragExactness(t *testing.T) {
	c, sim := newTestController(t)

	require.NoError(t, c.OnDragStart("ev-2"))
	assert.Equal(t, "ev-2", c.Dragging())

	targets := []valueobjects.Vector{{X: 12.5, Y: -40}, {X: 300.25, Y: 17}, {X: -3, Y: 999.125}}
	for _, target := range targets {
		require.NoError(t, c.OnDragMove("ev-2", target.X, target.Y))
		for i := 0; i < 5; i++ {
			sim.Step()
			n := frameNode(t, c.Frame(), "ev-2")
			assert.Equal(t, target.X, n.X)
			assert.Equal(t, target.Y, n.Y)
			assert.True(t, n.Pinned)
		}
	}

	require.NoError(t, c.OnDragEnd("ev-2"))
	assert.Empty(t, c.Dragging())
	assert.False(t, frameNode(t, c.Frame(), "ev-2").Pinned)
}

func TestDragStartReheatsSettledSimulation(t *testing.T) {
	c, sim := newTestController(t)
	runUntilSettled(t, sim, 1000)

	require.NoError(t, c.OnDragStart("acc-0"))

	cfg := sim.Config()
	assert.Equal(t, StateRunning, sim.State())
	assert.Equal(t, cfg.DragAlphaTarget, sim.AlphaTarget())
	assert.GreaterOrEqual(t, sim.Alpha(), cfg.DragAlphaTarget)

	// Dragging holds alpha up, so the layout never settles mid-drag
	for i := 0; i < 800; i++ {
		assert.False(t, sim.Step().Settled)
	}
}

func TestDragEndReheatsToReleaseAlpha(t *testing.T) {
	c, sim := newTestController(t)
	runUntilSettled(t, sim, 1000)

	require.NoError(t, c.OnDragStart("ev-0"))
	for i := 0; i < 200; i++ {
		sim.Step()
	}
	require.NoError(t, c.OnDragEnd("ev-0"))

	cfg := sim.Config()
	assert.Equal(t, 0.0, sim.AlphaTarget())
	assert.InDelta(t, cfg.ReleaseAlpha, sim.Alpha(), 1e-6)
	assert.Less(t, sim.Alpha(), 1.0)
	assert.Equal(t, StateRunning, sim.State())

	runUntilSettled(t, sim, 1000)
}

func TestSingleActiveDrag(t *testing.T) {
	c, sim := newTestController(t)

	require.NoError(t, c.OnDragStart("ev-1"))
	before, _ := sim.Position("ev-3")

	err := c.OnDragStart("ev-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDragInProgress)
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Equal(t, "ev-1", c.Dragging())

	after, _ := sim.Position("ev-3")
	assert.Equal(t, before, after)
	assert.False(t, sim.nodes[sim.index["ev-3"]].IsPinned())

	assert.ErrorIs(t, c.OnDragStart("ev-1"), ErrDragInProgress)
	assert.ErrorIs(t, c.OnDragMove("ev-3", 1, 1), ErrNotDragging)
	assert.ErrorIs(t, c.OnDragEnd("ev-3"), ErrNotDragging)

	require.NoError(t, c.OnDragEnd("ev-1"))
	assert.NoError(t, c.OnDragStart("ev-3"))
}

func TestDragValidation(t *testing.T) {
	c, _ := newTestController(t)

	assert.ErrorIs(t, c.OnDragStart("nope"), ErrNodeNotFound)
	assert.Empty(t, c.Dragging())
	assert.ErrorIs(t, c.OnDragEnd(""), ErrNotDragging)

	require.NoError(t, c.OnDragStart("ev-0"))
	err := c.OnDragMove("ev-0", math.NaN(), 4)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestHoverHighlight(t *testing.T) {
	c, sim := newTestController(t)

	c.OnHover("ev-2")
	highlighted := c.Highlighted()

	var want []entities.Edge
	for _, e := range sim.Edges() {
		if e.SourceID == "ev-2" || e.TargetID == "ev-2" {
			want = append(want, e)
		}
	}
	require.NotEmpty(t, want)
	assert.ElementsMatch(t, want, highlighted)

	for _, fe := range c.Frame().Edges {
		touches := fe.SourceID == "ev-2" || fe.TargetID == "ev-2"
		assert.Equal(t, touches, fe.Highlighted)
		assert.Equal(t, !touches, fe.Dimmed)
	}

	c.OnHover("")
	assert.Empty(t, c.Highlighted())
	for _, fe := range c.Frame().Edges {
		assert.False(t, fe.Dimmed)
		assert.False(t, fe.Highlighted)
	}
}

func TestHoverUnknownNodeClears(t *testing.T) {
	c, sim := newTestController(t)

	c.OnHover("acc-1")
	require.NotEmpty(t, c.Highlighted())

	c.OnHover("ghost")
	assert.Empty(t, c.Hovered())
	assert.Empty(t, c.Highlighted())
	for _, e := range sim.Edges() {
		assert.False(t, c.IsDimmed(e))
	}
}

func TestZoomBounds(t *testing.T) {
	c, sim := newTestController(t)
	cfg := sim.Config()

	factors := []float64{2, 2, 2, 2, 2, 0.5, 0.01, 0.3, 1e9, 1e-9, 1.7, 0.9}
	for _, f := range factors {
		require.NoError(t, c.ZoomBy(f))
		s := c.Transform().Scale
		assert.GreaterOrEqual(t, s, cfg.MinScale)
		assert.LessOrEqual(t, s, cfg.MaxScale)
	}
}

func TestZoomKeepsFocalPointStationary(t *testing.T) {
	c, sim := newTestController(t)
	cfg := sim.Config()
	center := valueobjects.Vector{X: cfg.CanvasWidth / 2, Y: cfg.CanvasHeight / 2}

	before := c.Transform().Invert(center)
	require.NoError(t, c.ZoomBy(1.8))
	assert.True(t, before.Equals(c.Transform().Invert(center)))

	focal := valueobjects.Vector{X: 100, Y: 450}
	before = c.Transform().Invert(focal)
	require.NoError(t, c.ZoomAt(0.6, focal.X, focal.Y))
	assert.True(t, before.Equals(c.Transform().Invert(focal)))
}

func TestZoomRejectsInvalidFactor(t *testing.T) {
	c, _ := newTestController(t)

	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		err := c.ZoomBy(f)
		assert.True(t, pkgerrors.IsValidation(err), "factor %g", f)
	}
	assert.True(t, c.Transform().IsIdentity())
}

func TestZoomDoesNotMoveNodes(t *testing.T) {
	c, _ := newTestController(t)
	before := c.Frame().Nodes

	require.NoError(t, c.ZoomBy(3))
	assert.Equal(t, before, c.Frame().Nodes)
}

func TestResetTransformInstant(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.ZoomAt(4, 10, 10))

	tr := c.ResetTransform(0)

	assert.True(t, c.Transform().IsIdentity())
	assert.False(t, c.Transitioning())
	assert.True(t, tr.To.IsIdentity())
	assert.Equal(t, 4.0, tr.From.Scale)
}

func TestResetTransformEased(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.ZoomBy(4))
	start := c.Transform()

	tr := c.ResetTransform(300 * time.Millisecond)
	require.True(t, c.Transitioning())
	assert.Equal(t, start, c.Transform())

	c.Advance(150 * time.Millisecond)
	mid := c.Transform()
	assert.Equal(t, tr.At(150*time.Millisecond), mid)
	assert.Less(t, mid.Scale, start.Scale)
	assert.Greater(t, mid.Scale, 1.0)

	c.Advance(200 * time.Millisecond)
	assert.True(t, c.Transform().IsIdentity())
	assert.False(t, c.Transitioning())
}

func TestZoomCancelsTransition(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.ZoomBy(4))
	c.ResetTransform(time.Second)

	require.NoError(t, c.ZoomBy(1.5))
	assert.False(t, c.Transitioning())
}

func TestGraphChangedClearsStaleState(t *testing.T) {
	c, sim := newTestController(t)
	require.NoError(t, c.OnDragStart("ev-4"))
	c.OnHover("ev-3")

	require.NoError(t, sim.SetGraph(propagationGraph(3, 3)))
	c.GraphChanged()

	assert.Empty(t, c.Dragging())
	assert.Empty(t, c.Hovered())
	assert.Equal(t, 0.0, sim.AlphaTarget())
}

func TestControllerUsesConfiguredBounds(t *testing.T) {
	cfg := config.DefaultLayoutConfig()
	cfg.MinScale = 0.5
	cfg.MaxScale = 2
	sim := newTestSimulation(t, propagationGraph(1, 2), cfg)
	c := NewInteractionController(sim, nil)

	require.NoError(t, c.ZoomBy(100))
	assert.Equal(t, 2.0, c.Transform().Scale)
	require.NoError(t, c.ZoomBy(1e-4))
	assert.Equal(t, 0.5, c.Transform().Scale)
}
