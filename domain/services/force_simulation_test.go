package services

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santiagotion/sentinel-sub001/domain/config"
	"github.com/santiagotion/sentinel-sub001/domain/core/aggregates"
	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	"github.com/santiagotion/sentinel-sub001/domain/core/valueobjects"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
)

// propagationGraph builds a graph with the given number of accounts and
// events; every event is attributed round-robin and chained to the previous
// event with a rotating relation kind.
func propagationGraph(accounts, events int) *aggregates.Graph {
	base := time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)
	kinds := entities.RelationKinds()

	var accs []entities.AccountRecord
	for i := 0; i < accounts; i++ {
		accs = append(accs, entities.AccountRecord{
			ID:            fmt.Sprintf("acc-%d", i),
			Handle:        fmt.Sprintf("@account%d", i),
			FollowerCount: float64((i + 1) * 5_000),
		})
	}

	var evs []entities.EventRecord
	var rels []entities.RelationshipRecord
	for i := 0; i < events; i++ {
		ev := entities.EventRecord{
			ID:        fmt.Sprintf("ev-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Reach:     float64((i%7 + 1) * 1_000),
			Shares:    float64(i % 13),
		}
		if accounts > 0 {
			ev.SourceAccountID = fmt.Sprintf("acc-%d", i%accounts)
		}
		evs = append(evs, ev)
		if i > 0 {
			rels = append(rels, entities.RelationshipRecord{
				SourceEventID: fmt.Sprintf("ev-%d", i-1),
				TargetEventID: ev.ID,
				Kind:          string(kinds[i%len(kinds)]),
				Strength:      0.3 + float64(i%5)*0.1,
			})
		}
	}

	return aggregates.BuildGraph(accs, evs, rels)
}

// starGraph builds one account that posted every event, with no explicit
// relationships: the account is a hub joined to each event by an implicit
// amplifies edge.
func starGraph(events int) *aggregates.Graph {
	base := time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)
	accs := []entities.AccountRecord{{ID: "acc-hub", Handle: "@hub", FollowerCount: 250_000}}

	var evs []entities.EventRecord
	for i := 0; i < events; i++ {
		evs = append(evs, entities.EventRecord{
			ID:              fmt.Sprintf("ev-%d", i),
			SourceAccountID: "acc-hub",
			Timestamp:       base.Add(time.Duration(i) * time.Minute),
			Reach:           1_000,
		})
	}
	return aggregates.BuildGraph(accs, evs, nil)
}

func newTestSimulation(t *testing.T, g *aggregates.Graph, cfg *config.LayoutConfig) *ForceSimulation {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultLayoutConfig()
	}
	sim, err := NewForceSimulation(g, cfg)
	require.NoError(t, err)
	return sim
}

func runUntilSettled(t *testing.T, sim *ForceSimulation, limit int) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		if sim.Step().Settled {
			return i
		}
	}
	t.Fatalf("simulation did not settle within %d ticks (alpha %g)", limit, sim.Alpha())
	return 0
}

func assertNoOverlap(t *testing.T, sim *ForceSimulation) {
	t.Helper()
	frame := sim.Frame()
	const eps = 1e-3
	for i := range frame.Nodes {
		for j := i + 1; j < len(frame.Nodes); j++ {
			a, b := frame.Nodes[i], frame.Nodes[j]
			d := math.Hypot(a.X-b.X, a.Y-b.Y)
			require.GreaterOrEqual(t, d, a.Radius+b.Radius-eps, "%s overlaps %s", a.ID, b.ID)
		}
	}
}

func TestNewForceSimulation(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(3, 5), nil)

	assert.Equal(t, StateIdle, sim.State())
	assert.Equal(t, 1.0, sim.Alpha())
	assert.Len(t, sim.Nodes(), 8)

	seen := map[valueobjects.Vector]bool{}
	for _, n := range sim.Nodes() {
		assert.True(t, n.Position.IsFinite())
		assert.False(t, seen[n.Position], "seed positions must be distinct")
		seen[n.Position] = true
	}

	// Idle simulations do not tick
	report := sim.Step()
	assert.False(t, report.Advanced)
	assert.Equal(t, 1.0, sim.Alpha())
}

func TestNewForceSimulationRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultLayoutConfig()
	cfg.MinScale = 10
	cfg.MaxScale = 2

	_, err := NewForceSimulation(propagationGraph(1, 1), cfg)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfiguration(err))

	_, err = NewForceSimulation(nil, config.DefaultLayoutConfig())
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestSimulationConvergesWithinDecayBound(t *testing.T) {
	cfg := config.DefaultLayoutConfig()
	bound := int(math.Ceil(math.Log(cfg.AlphaThreshold) / math.Log(cfg.AlphaDecay)))

	sim := newTestSimulation(t, propagationGraph(10, 60), cfg)
	sim.Start()

	cooled, ticks := 0, 0
	for i := 1; i <= bound+relaxTickBudget; i++ {
		report := sim.Step()
		if cooled == 0 && report.Alpha < cfg.AlphaThreshold {
			cooled = i
		}
		if report.Settled {
			ticks = i
			break
		}
	}
	require.NotZero(t, ticks, "simulation did not settle")
	assert.LessOrEqual(t, cooled, bound)
	assert.LessOrEqual(t, ticks, cooled+relaxTickBudget)
	assert.Equal(t, StateSettled, sim.State())
	assert.Less(t, sim.Alpha(), cfg.AlphaThreshold)

	// Settled ticks are no-ops
	before := sim.Frame()
	report := sim.Step()
	assert.False(t, report.Advanced)
	assert.Equal(t, before, sim.Frame())
}

func TestSimulationCollisionInvariantAtRest(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(12, 80), nil)
	sim.Start()
	runUntilSettled(t, sim, 1000)

	assertNoOverlap(t, sim)
}

func TestSimulationBarnesHutPath(t *testing.T) {
	cfg := config.DefaultLayoutConfig()
	cfg.BarnesHutThreshold = 50

	sim := newTestSimulation(t, propagationGraph(20, 200), cfg)
	require.True(t, sim.useQuadtree())
	sim.Start()
	runUntilSettled(t, sim, 1000)

	for _, n := range sim.Nodes() {
		assert.True(t, n.Position.IsFinite(), n.ID)
	}
	assertNoOverlap(t, sim)
}

func TestSimulationHubStaysBounded(t *testing.T) {
	cfg := config.DefaultLayoutConfig()
	bound := int(math.Ceil(math.Log(cfg.AlphaThreshold)/math.Log(cfg.AlphaDecay))) + relaxTickBudget
	center := valueobjects.Vector{X: cfg.CanvasWidth / 2, Y: cfg.CanvasHeight / 2}

	for _, events := range []int{14, 32, 120} {
		t.Run(fmt.Sprintf("%d events", events), func(t *testing.T) {
			sim := newTestSimulation(t, starGraph(events), cfg)
			sim.Start()

			for i := 0; i < bound; i++ {
				sim.Step()
				for _, n := range sim.Nodes() {
					require.True(t, n.Position.IsFinite(), "%s at tick %d", n.ID, i)
					require.Less(t, n.Position.Sub(center).Length(), 2000.0, "%s escaped at tick %d", n.ID, i)
				}
				if sim.State() == StateSettled {
					break
				}
			}
			require.Equal(t, StateSettled, sim.State())

			if events <= 32 {
				assertNoOverlap(t, sim)
			}
		})
	}
}

func TestLinkBiasFavoursWellConnectedEndpoint(t *testing.T) {
	sim := newTestSimulation(t, starGraph(9), nil)
	require.Len(t, sim.links, 9)

	hub := sim.index["acc-hub"]
	for _, l := range sim.links {
		require.Equal(t, hub, l.source)
		assert.InDelta(t, 0.9, l.bias, 1e-12, "the spoke takes nine tenths of each correction")
	}

	chain := newTestSimulation(t, propagationGraph(0, 3), nil)
	deg := map[int]int{}
	for _, l := range chain.links {
		deg[l.source]++
		deg[l.target]++
	}
	for _, l := range chain.links {
		assert.InDelta(t, float64(deg[l.source])/float64(deg[l.source]+deg[l.target]), l.bias, 1e-12)
	}
}

func TestSimulationRelaxesOverlapOverSeveralTicks(t *testing.T) {
	cfg := config.DefaultLayoutConfig()
	sim := newTestSimulation(t, propagationGraph(4, 36), cfg)
	sim.Start()

	// Pack every node into a tight grid and cool to just above threshold
	for i, n := range sim.nodes {
		n.Position = valueobjects.Vector{X: 400 + float64(i%6)*0.5, Y: 300 + float64(i/6)*0.5}
		n.Velocity = valueobjects.Vector{}
	}
	sim.alpha = cfg.AlphaThreshold * 1.001

	report := sim.Step()
	require.True(t, report.Advanced)
	assert.Less(t, report.Alpha, cfg.AlphaThreshold)
	assert.False(t, report.Settled, "a packed layout cannot be cleared in one tick")
	assert.Equal(t, StateRunning, report.State)
	assert.True(t, sim.relaxing)

	alpha := sim.Alpha()
	ticks := 0
	for !report.Settled {
		report = sim.Step()
		require.True(t, report.Advanced)
		assert.Equal(t, alpha, report.Alpha, "relaxation ticks do not cool further")
		ticks++
		require.LessOrEqual(t, ticks, relaxTickBudget)
	}

	assert.Equal(t, StateSettled, sim.State())
	assert.False(t, sim.relaxing)
	for _, n := range sim.Nodes() {
		assert.True(t, n.Velocity.IsZero(), n.ID)
	}
}

func TestReheatAbandonsRelaxation(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(2, 10), nil)
	sim.Start()
	sim.alpha = 0.0009
	sim.relaxing = true
	sim.relaxTicks = 7

	sim.Reheat(0.3)
	assert.False(t, sim.relaxing)
	assert.Equal(t, 0.3, sim.Alpha())

	report := sim.Step()
	assert.Less(t, report.Alpha, 0.3, "force ticks resume cooling")
}

func TestSimulationMaxTicksCap(t *testing.T) {
	cfg := config.DefaultLayoutConfig()
	cfg.MaxTicks = 25

	sim := newTestSimulation(t, propagationGraph(2, 6), cfg)
	sim.Start()

	ticks := runUntilSettled(t, sim, 100)
	assert.Equal(t, 25, ticks)
	assert.Greater(t, sim.Alpha(), cfg.AlphaThreshold)
}

func TestSimulationIsDeterministic(t *testing.T) {
	a := newTestSimulation(t, propagationGraph(4, 20), nil)
	b := newTestSimulation(t, propagationGraph(4, 20), nil)
	a.Start()
	b.Start()

	for i := 0; i < 50; i++ {
		a.Step()
		b.Step()
	}
	assert.Equal(t, a.Frame(), b.Frame())
}

func TestSimulationPause(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(3, 5), nil)
	sim.Start()
	sim.Step()

	sim.Pause()
	assert.Equal(t, StatePaused, sim.State())
	alpha := sim.Alpha()
	frame := sim.Frame()

	for i := 0; i < 5; i++ {
		assert.False(t, sim.Step().Advanced)
	}
	assert.Equal(t, alpha, sim.Alpha())
	assert.Equal(t, frame.Nodes, sim.Frame().Nodes)

	// Reheating while paused does not tick
	sim.Reheat(0.8)
	assert.Equal(t, StatePaused, sim.State())
	assert.False(t, sim.Step().Advanced)

	sim.Resume()
	assert.Equal(t, StateRunning, sim.State())
	assert.True(t, sim.Step().Advanced)
}

func TestSimulationResumeReturnsToSettled(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(1, 3), nil)
	sim.Start()
	runUntilSettled(t, sim, 1000)

	sim.Pause()
	sim.Resume()
	assert.Equal(t, StateSettled, sim.State())
}

func TestSimulationRestart(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(2, 4), nil)
	sim.Start()
	runUntilSettled(t, sim, 1000)
	sim.Pause()

	sim.Restart()

	assert.Equal(t, StateRunning, sim.State())
	assert.Equal(t, 1.0, sim.Alpha())
	assert.Equal(t, 0, sim.Tick())
}

func TestSimulationRecoversFromDivergence(t *testing.T) {
	cfg := config.DefaultLayoutConfig()
	sim := newTestSimulation(t, propagationGraph(3, 5), cfg)
	sim.Start()
	sim.Step()

	before := sim.nodes[2].Position
	sim.nodes[2].Velocity = valueobjects.Vector{X: math.Inf(1), Y: 0}

	report := sim.Step()
	assert.Equal(t, 1, report.Resets)

	n := sim.nodes[2]
	require.True(t, n.Position.IsFinite())
	assert.True(t, n.Velocity.IsZero())
	assert.LessOrEqual(t, math.Abs(n.Position.X-before.X), cfg.DivergenceJitter)
	assert.LessOrEqual(t, math.Abs(n.Position.Y-before.Y), cfg.DivergenceJitter)

	for _, other := range sim.Nodes() {
		assert.True(t, other.Position.IsFinite(), other.ID)
	}
}

func TestSimulationRecoversFromCorruptedPosition(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(3, 5), nil)
	sim.Start()
	sim.Step()

	sim.nodes[0].Position = valueobjects.Vector{X: math.NaN(), Y: 4}

	report := sim.Step()
	assert.Equal(t, 1, report.Resets)
	for _, n := range sim.Nodes() {
		assert.True(t, n.Position.IsFinite(), n.ID)
	}
}

func TestSimulationSeparatesCoincidentNodes(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(0, 2), nil)
	sim.nodes[1].Position = sim.nodes[0].Position
	sim.Start()

	report := sim.Step()
	assert.Equal(t, 0, report.Resets)

	a, b := sim.nodes[0].Position, sim.nodes[1].Position
	require.True(t, a.IsFinite())
	require.True(t, b.IsFinite())
	assert.Greater(t, a.DistanceTo(b), 0.0)
}

func TestSimulationPinnedNodesStayPut(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(3, 5), nil)
	sim.Start()

	pin := valueobjects.Vector{X: 100, Y: 100}
	require.NoError(t, sim.Pin("ev-1", pin))

	for i := 0; i < 20; i++ {
		sim.Step()
		p, ok := sim.Position("ev-1")
		require.True(t, ok)
		assert.Equal(t, pin, p)
	}

	assert.ErrorIs(t, sim.Pin("missing", pin), ErrNodeNotFound)
	assert.ErrorIs(t, sim.Unpin("missing"), ErrNodeNotFound)
	assert.True(t, pkgerrors.IsValidation(sim.Pin("ev-1", valueobjects.Vector{X: math.Inf(-1)})))
}

func TestSimulationSetGraph(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(2, 4), nil)
	sim.Start()
	runUntilSettled(t, sim, 1000)

	kept, ok := sim.Position("ev-1")
	require.True(t, ok)

	require.NoError(t, sim.SetGraph(propagationGraph(2, 6)))

	assert.Equal(t, StateRunning, sim.State())
	assert.Equal(t, 1.0, sim.Alpha())
	assert.Len(t, sim.Nodes(), 8)

	p, ok := sim.Position("ev-1")
	require.True(t, ok)
	assert.Equal(t, kept, p)
	assert.True(t, sim.HasNode("ev-5"))

	assert.Error(t, sim.SetGraph(nil))
}

func TestSimulationEmptyGraph(t *testing.T) {
	sim := newTestSimulation(t, aggregates.BuildGraph(nil, nil, nil), nil)
	sim.Start()

	report := sim.Step()
	assert.True(t, report.Advanced)

	frame := sim.Frame()
	assert.Empty(t, frame.Nodes)
	assert.Empty(t, frame.Edges)
}

func TestFrameEdgeIntegrity(t *testing.T) {
	sim := newTestSimulation(t, propagationGraph(3, 12), nil)
	sim.Start()

	for i := 0; i < 30; i++ {
		sim.Step()
		frame := sim.Frame()

		ids := map[string]bool{}
		for _, n := range frame.Nodes {
			ids[n.ID] = true
		}
		for _, e := range frame.Edges {
			require.True(t, ids[e.SourceID], e.SourceID)
			require.True(t, ids[e.TargetID], e.TargetID)
			assert.Equal(t, e.Kind.Profile().Color, e.RenderColor)
		}
	}
}
