package services

import (
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/santiagotion/sentinel-sub001/domain/config"
	"github.com/santiagotion/sentinel-sub001/domain/core/aggregates"
	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	"github.com/santiagotion/sentinel-sub001/domain/core/valueobjects"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
)

// SimulationState is the lifecycle state of a force simulation
type SimulationState string

const (
	StateIdle    SimulationState = "idle"
	StateRunning SimulationState = "running"
	StateSettled SimulationState = "settled"
	StatePaused  SimulationState = "paused"
)

const (
	// Seed spiral spacing and angle (golden angle)
	seedRadius = 10.0

	// Overlap relaxation runs a few in-place sweeps per tick once alpha is
	// within relaxTailFactor of the threshold, and for at most
	// relaxTickBudget extra ticks after alpha crosses it.
	relaxSweepsPerTick = 2
	relaxTailFactor    = 10
	relaxTickBudget    = 100
	relaxTolerance     = 1e-6
)

var seedAngle = math.Pi * (3 - math.Sqrt(5))

// ErrNodeNotFound is returned for ids that are not part of the simulation
var ErrNodeNotFound = pkgerrors.NewNotFoundError("node").WithCode("NODE_NOT_FOUND")

// TickReport describes the outcome of one Step call
type TickReport struct {
	Advanced bool            `json:"advanced"`
	Tick     int             `json:"tick"`
	Alpha    float64         `json:"alpha"`
	State    SimulationState `json:"state"`
	Resets   int             `json:"resets"`
	Settled  bool            `json:"settled"`
}

// link is an edge resolved to arena slots with its precomputed parameters.
// bias is the share of each correction applied to the target; the
// better-connected endpoint moves less.
type link struct {
	source, target int
	distance       float64
	stiffness      float64
	bias           float64
}

// ForceSimulation is a synchronous-tick force layout over an arena of nodes.
// Every force reads the positions captured at the start of the tick.
// ForceSimulation is not safe for concurrent use; callers serialise access.
type ForceSimulation struct {
	cfg    *config.LayoutConfig
	logger *zap.Logger
	rng    *rand.Rand

	nodes      []*entities.Node
	index      map[string]int
	edges      []entities.Edge
	links      []link
	radius     []float64
	charge     []float64
	lastFinite []valueobjects.Vector
	dropped    int

	alpha       float64
	alphaTarget float64
	state       SimulationState
	resumeState SimulationState
	tick        int

	// Alpha is below threshold but overlap remains
	relaxing   bool
	relaxTicks int
}

// SimulationOption configures a ForceSimulation
type SimulationOption func(*ForceSimulation)

// WithLogger sets the logger used for divergence warnings and lifecycle events
func WithLogger(logger *zap.Logger) SimulationOption {
	return func(s *ForceSimulation) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewForceSimulation creates an idle simulation over a copy of the graph's
// nodes. Invalid configuration fails here rather than at tick time.
func NewForceSimulation(graph *aggregates.Graph, cfg *config.LayoutConfig, opts ...SimulationOption) (*ForceSimulation, error) {
	if graph == nil {
		return nil, pkgerrors.NewValidationError("graph is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &ForceSimulation{
		cfg:    cfg.Clone(),
		logger: zap.NewNop(),
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		alpha:  1,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.load(graph, nil)
	return s, nil
}

// load replaces the arena with the graph's nodes. Nodes present in previous
// keep their position and pin; the rest are seeded on a spiral.
func (s *ForceSimulation) load(graph *aggregates.Graph, previous map[string]*entities.Node) {
	src := graph.Nodes()
	n := len(src)

	s.nodes = make([]*entities.Node, n)
	s.index = make(map[string]int, n)
	s.radius = make([]float64, n)
	s.charge = make([]float64, n)
	s.lastFinite = make([]valueobjects.Vector, n)

	center := s.center()
	charges := s.cfg.ChargeTable()
	for i, node := range src {
		clone := node.Clone()
		if prev, ok := previous[clone.ID]; ok {
			clone.Position = prev.Position
			clone.Velocity = prev.Velocity
			clone.Pinned = prev.Clone().Pinned
		} else {
			r := seedRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * seedAngle
			clone.Position = valueobjects.Vector{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)}
			clone.Velocity = valueobjects.Vector{}
			clone.Pinned = nil
		}

		s.nodes[i] = clone
		s.index[clone.ID] = i
		s.radius[i] = clone.Radius() + s.cfg.CollisionPadding
		s.charge[i] = clone.Kind.Charge(charges)
		s.lastFinite[i] = clone.Position
	}

	s.edges = graph.Edges()
	s.dropped = graph.DroppedEdgeCount()

	degree := make([]int, n)
	for _, e := range s.edges {
		degree[s.index[e.SourceID]]++
		degree[s.index[e.TargetID]]++
	}

	s.links = make([]link, 0, len(s.edges))
	for _, e := range s.edges {
		src, tgt := s.index[e.SourceID], s.index[e.TargetID]
		s.links = append(s.links, link{
			source:    src,
			target:    tgt,
			distance:  s.cfg.BaseLinkDistance / e.Strength,
			stiffness: s.cfg.LinkStiffness / float64(min(degree[src], degree[tgt])),
			bias:      float64(degree[src]) / float64(degree[src]+degree[tgt]),
		})
	}
}

// SetGraph applies a structural change: surviving ids keep their state, new
// nodes are seeded and the simulation is reheated to 1.
func (s *ForceSimulation) SetGraph(graph *aggregates.Graph) error {
	if graph == nil {
		return pkgerrors.NewValidationError("graph is required")
	}

	previous := make(map[string]*entities.Node, len(s.nodes))
	for _, n := range s.nodes {
		previous[n.ID] = n
	}
	s.load(graph, previous)
	s.Reheat(1)

	s.logger.Debug("simulation graph replaced",
		zap.Int("node_count", len(s.nodes)),
		zap.Int("edge_count", len(s.edges)),
		zap.Int("dropped_edge_count", s.dropped))
	return nil
}

// Start moves an idle simulation to Running
func (s *ForceSimulation) Start() {
	switch s.state {
	case StateIdle:
		s.state = StateRunning
	case StatePaused:
		if s.resumeState == StateIdle {
			s.resumeState = StateRunning
		}
	}
}

// Pause stops ticking regardless of alpha until Resume
func (s *ForceSimulation) Pause() {
	if s.state == StatePaused {
		return
	}
	s.resumeState = s.state
	s.state = StatePaused
}

// Resume returns a paused simulation to the state it was paused in
func (s *ForceSimulation) Resume() {
	if s.state != StatePaused {
		return
	}
	s.state = s.resumeState
}

// Restart resets alpha to 1, clears pause and starts ticking from tick 0
func (s *ForceSimulation) Restart() {
	s.alpha = 1
	s.tick = 0
	s.relaxing = false
	s.relaxTicks = 0
	s.state = StateRunning
}

// Reheat raises alpha to at least the given value and resumes ticking. A
// paused simulation stays paused but will run once resumed.
func (s *ForceSimulation) Reheat(alpha float64) {
	s.alpha = math.Max(s.alpha, alpha)
	s.tick = 0
	s.relaxing = false
	s.relaxTicks = 0
	if s.state == StatePaused {
		s.resumeState = StateRunning
		return
	}
	s.state = StateRunning
}

// SetAlphaTarget sets the value alpha cools toward
func (s *ForceSimulation) SetAlphaTarget(target float64) {
	s.alphaTarget = target
}

// State returns the lifecycle state
func (s *ForceSimulation) State() SimulationState {
	return s.state
}

// Alpha returns the current cooling parameter
func (s *ForceSimulation) Alpha() float64 {
	return s.alpha
}

// AlphaTarget returns the value alpha is cooling toward
func (s *ForceSimulation) AlphaTarget() float64 {
	return s.alphaTarget
}

// Tick returns the number of ticks since the last (re)start
func (s *ForceSimulation) Tick() int {
	return s.tick
}

// DroppedEdgeCount returns the relationships the graph rejected
func (s *ForceSimulation) DroppedEdgeCount() int {
	return s.dropped
}

// Config returns the active layout configuration
func (s *ForceSimulation) Config() *config.LayoutConfig {
	return s.cfg
}

// Edges returns a copy of the simulated edges
func (s *ForceSimulation) Edges() []entities.Edge {
	edges := make([]entities.Edge, len(s.edges))
	copy(edges, s.edges)
	return edges
}

// Nodes returns deep copies of the simulated nodes
func (s *ForceSimulation) Nodes() []*entities.Node {
	out := make([]*entities.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

// HasNode reports whether id is simulated
func (s *ForceSimulation) HasNode(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Position returns the render position of a node
func (s *ForceSimulation) Position(id string) (valueobjects.Vector, bool) {
	i, ok := s.index[id]
	if !ok {
		return valueobjects.Vector{}, false
	}
	return s.nodes[i].RenderPosition(), true
}

// Pin fixes a node at p; the node is excluded from integration until unpinned
func (s *ForceSimulation) Pin(id string, p valueobjects.Vector) error {
	i, ok := s.index[id]
	if !ok {
		return ErrNodeNotFound
	}
	if !p.IsFinite() {
		return pkgerrors.NewValidationError("pin position must be finite").WithDetail("node_id", id)
	}
	s.nodes[i].Pin(p)
	s.lastFinite[i] = p
	return nil
}

// Unpin releases a node back to force integration
func (s *ForceSimulation) Unpin(id string) error {
	i, ok := s.index[id]
	if !ok {
		return ErrNodeNotFound
	}
	s.nodes[i].Unpin()
	return nil
}

// Step advances the simulation by one tick. It is a no-op unless Running.
// Every tick does a bounded amount of work; overlap left when alpha crosses
// the threshold is relaxed over the following ticks before Settled.
func (s *ForceSimulation) Step() TickReport {
	if s.state != StateRunning {
		return s.report(false, 0, false)
	}
	if s.relaxing {
		return s.stepRelax()
	}

	s.alpha += (s.alphaTarget - s.alpha) * (1 - s.cfg.AlphaDecay)

	// Externally corrupted positions must not leak into the snapshot
	resets := s.recoverDivergence(false)

	pos := s.snapshot()
	acc := make([]valueobjects.Vector, len(pos))

	s.applyLinks(pos, acc)
	s.applyCharge(pos, acc)
	s.applyCollision(pos, acc)
	s.applyCentering(pos, acc)
	s.integrate(acc)

	resets += s.recoverDivergence(true)
	s.tick++

	settled := false
	switch {
	case s.capReached():
		s.relaxCollisions(relaxSweepsPerTick)
		s.settle()
		settled = true
	case s.alpha < s.cfg.AlphaThreshold:
		if s.relaxCollisions(relaxSweepsPerTick) {
			s.settle()
			settled = true
		} else {
			s.relaxing = true
			s.relaxTicks = 0
		}
	case s.alpha < s.cfg.AlphaThreshold*relaxTailFactor:
		s.relaxCollisions(relaxSweepsPerTick)
	}

	return s.report(true, resets, settled)
}

// stepRelax spends one tick on overlap relaxation only
func (s *ForceSimulation) stepRelax() TickReport {
	s.tick++
	s.relaxTicks++

	clean := s.relaxCollisions(relaxSweepsPerTick)
	settled := clean || s.relaxTicks >= relaxTickBudget || s.capReached()
	if settled {
		if !clean {
			s.logger.Warn("overlap relaxation budget exhausted",
				zap.Int("tick", s.tick),
				zap.Int("relax_ticks", s.relaxTicks))
		}
		s.settle()
	}
	return s.report(true, 0, settled)
}

func (s *ForceSimulation) capReached() bool {
	return s.cfg.MaxTicks > 0 && s.tick >= s.cfg.MaxTicks
}

func (s *ForceSimulation) report(advanced bool, resets int, settled bool) TickReport {
	return TickReport{
		Advanced: advanced,
		Tick:     s.tick,
		Alpha:    s.alpha,
		State:    s.state,
		Resets:   resets,
		Settled:  settled,
	}
}

func (s *ForceSimulation) snapshot() []valueobjects.Vector {
	pos := make([]valueobjects.Vector, len(s.nodes))
	for i, n := range s.nodes {
		pos[i] = n.RenderPosition()
	}
	return pos
}

func (s *ForceSimulation) center() valueobjects.Vector {
	return valueobjects.Vector{X: s.cfg.CanvasWidth / 2, Y: s.cfg.CanvasHeight / 2}
}

func (s *ForceSimulation) jitter(scale float64) valueobjects.Vector {
	return valueobjects.Vector{
		X: (s.rng.Float64()*2 - 1) * scale,
		Y: (s.rng.Float64()*2 - 1) * scale,
	}
}

// jiggle separates coincident points by a tiny random offset
func (s *ForceSimulation) jiggle() valueobjects.Vector {
	return s.jitter(1e-6)
}

func (s *ForceSimulation) useQuadtree() bool {
	return len(s.nodes) > s.cfg.BarnesHutThreshold
}

// applyLinks pulls or pushes each endpoint pair toward its target distance
// using positions predicted from the current velocity. The correction is
// split by link bias so a hub does not absorb the pull of every spoke.
func (s *ForceSimulation) applyLinks(pos, acc []valueobjects.Vector) {
	for _, l := range s.links {
		d := s.predicted(pos, l.target).Sub(s.predicted(pos, l.source))
		if d.IsZero() {
			d = s.jiggle()
		}
		length := d.Length()
		delta := d.Scale((length - l.distance) / length * s.alpha * l.stiffness)

		acc[l.target] = acc[l.target].Sub(delta.Scale(l.bias))
		acc[l.source] = acc[l.source].Add(delta.Scale(1 - l.bias))
	}
}

func (s *ForceSimulation) predicted(pos []valueobjects.Vector, i int) valueobjects.Vector {
	if s.nodes[i].IsPinned() {
		return pos[i]
	}
	return pos[i].Add(s.nodes[i].Velocity)
}

func (s *ForceSimulation) applyCharge(pos, acc []valueobjects.Vector) {
	if s.useQuadtree() {
		tree := newQuadtree(pos, s.charge)
		for i, n := range s.nodes {
			if n.IsPinned() {
				continue
			}
			acc[i] = acc[i].Add(tree.chargeOn(i, s.cfg.Theta, s.alpha, s.jiggle))
		}
		return
	}

	for i := range pos {
		for j := i + 1; j < len(pos); j++ {
			d := pos[i].Sub(pos[j])
			if d.IsZero() {
				d = s.jiggle()
			}
			acc[i] = acc[i].Add(repulsion(d, s.charge[j], s.alpha))
			acc[j] = acc[j].Sub(repulsion(d, s.charge[i], s.alpha))
		}
	}
}

// applyCollision separates overlapping circles proportionally to overlap
// depth. It is a constraint and does not scale with alpha.
func (s *ForceSimulation) applyCollision(pos, acc []valueobjects.Vector) {
	s.forEachOverlap(pos, func(i, j int, d valueobjects.Vector, overlap float64) {
		push := d.Scale(overlap * s.cfg.CollisionStrength)
		wi, wj := s.shares(i, j)
		acc[i] = acc[i].Sub(push.Scale(wi))
		acc[j] = acc[j].Add(push.Scale(wj))
	})
}

// forEachOverlap calls fn for each overlapping pair i<j with d the unit
// vector from i to j and the overlap depth.
func (s *ForceSimulation) forEachOverlap(pos []valueobjects.Vector, fn func(i, j int, d valueobjects.Vector, overlap float64)) {
	check := func(i, j int) {
		r := s.radius[i] + s.radius[j]
		d := pos[j].Sub(pos[i])
		l2 := d.LengthSquared()
		if l2 >= r*r {
			return
		}
		if l2 == 0 {
			d = s.jiggle()
		}
		l := d.Length()
		fn(i, j, d.Scale(1/l), r-l)
	}

	if !s.useQuadtree() {
		for i := range pos {
			for j := i + 1; j < len(pos); j++ {
				check(i, j)
			}
		}
		return
	}

	maxRadius := 0.0
	for _, r := range s.radius {
		maxRadius = math.Max(maxRadius, r)
	}
	tree := newQuadtree(pos, nil)
	for i := range pos {
		tree.visitNear(pos[i], s.radius[i]+maxRadius, func(j int) {
			if j > i {
				check(i, j)
			}
		})
	}
}

// shares splits a separation between two nodes by area; a pinned node does
// not move so its partner takes the whole correction.
func (s *ForceSimulation) shares(i, j int) (wi, wj float64) {
	pi, pj := s.nodes[i].IsPinned(), s.nodes[j].IsPinned()
	switch {
	case pi && pj:
		return 0, 0
	case pi:
		return 0, 1
	case pj:
		return 1, 0
	}
	ri2, rj2 := s.radius[i]*s.radius[i], s.radius[j]*s.radius[j]
	return rj2 / (ri2 + rj2), ri2 / (ri2 + rj2)
}

// applyCentering shifts the centroid of free nodes toward the canvas center
func (s *ForceSimulation) applyCentering(pos, acc []valueobjects.Vector) {
	var sum valueobjects.Vector
	free := 0
	for i, n := range s.nodes {
		if n.IsPinned() {
			continue
		}
		sum = sum.Add(pos[i])
		free++
	}
	if free == 0 {
		return
	}

	shift := s.center().Sub(sum.Scale(1 / float64(free))).Scale(s.cfg.CenterStrength * s.alpha)
	for i, n := range s.nodes {
		if !n.IsPinned() {
			acc[i] = acc[i].Add(shift)
		}
	}
}

func (s *ForceSimulation) integrate(acc []valueobjects.Vector) {
	keep := 1 - s.cfg.VelocityDecay
	for i, n := range s.nodes {
		if n.Pinned != nil {
			n.Position = *n.Pinned
			n.Velocity = valueobjects.Vector{}
			continue
		}
		n.Velocity = n.Velocity.Add(acc[i]).Scale(keep)
		n.Position = n.Position.Add(n.Velocity)
	}
}

// recoverDivergence resets nodes with non-finite state to their last finite
// position plus jitter. checkVelocity also treats a non-finite velocity as
// divergence.
func (s *ForceSimulation) recoverDivergence(checkVelocity bool) int {
	resets := 0
	for i, n := range s.nodes {
		if n.Position.IsFinite() && (!checkVelocity || n.Velocity.IsFinite()) {
			s.lastFinite[i] = n.Position
			continue
		}

		n.Position = s.lastFinite[i].Add(s.jitter(s.cfg.DivergenceJitter))
		n.Velocity = valueobjects.Vector{}
		if n.Pinned != nil && !n.Pinned.IsFinite() {
			n.Pinned = nil
		}
		resets++

		s.logger.Warn("node position diverged, reset near last finite position",
			zap.String("node_id", n.ID),
			zap.Int("tick", s.tick),
			zap.Float64("alpha", s.alpha))
	}
	return resets
}

// settle stops ticking and freezes the layout
func (s *ForceSimulation) settle() {
	s.state = StateSettled
	s.relaxing = false
	for i, n := range s.nodes {
		n.Velocity = valueobjects.Vector{}
		s.lastFinite[i] = n.Position
	}

	s.logger.Debug("simulation settled",
		zap.Int("tick", s.tick),
		zap.Float64("alpha", s.alpha),
		zap.Int("relax_ticks", s.relaxTicks))
}

// relaxCollisions moves overlapping pairs apart in place for at most
// maxSweeps sweeps and reports whether a sweep found no overlap deeper than
// relaxTolerance.
func (s *ForceSimulation) relaxCollisions(maxSweeps int) bool {
	for sweep := 0; sweep < maxSweeps; sweep++ {
		worst := 0.0
		pos := s.snapshot()
		s.forEachOverlap(pos, func(i, j int, d valueobjects.Vector, overlap float64) {
			wi, wj := s.shares(i, j)
			if wi == 0 && wj == 0 {
				return
			}
			worst = math.Max(worst, overlap)
			// Separate slightly past contact so rounding cannot leave a sliver
			move := d.Scale(overlap + relaxTolerance)
			s.nodes[i].Position = s.nodes[i].Position.Sub(move.Scale(wi))
			s.nodes[j].Position = s.nodes[j].Position.Add(move.Scale(wj))
			pos[i], pos[j] = s.nodes[i].RenderPosition(), s.nodes[j].RenderPosition()
		})
		if worst <= relaxTolerance {
			return true
		}
	}
	return false
}
