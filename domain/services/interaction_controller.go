package services

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	"github.com/santiagotion/sentinel-sub001/domain/core/valueobjects"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
)

var (
	// ErrDragInProgress is returned when a drag starts while another is active
	ErrDragInProgress = pkgerrors.NewConflictError("another drag is in progress").WithCode("DRAG_IN_PROGRESS")

	// ErrNotDragging is returned for moves or ends on a node that is not being dragged
	ErrNotDragging = pkgerrors.NewConflictError("node is not being dragged").WithCode("NOT_DRAGGING")
)

// InteractionController owns the drag, hover and zoom state of one
// visualization instance. It mutates the simulation only through pinning
// and reheating.
type InteractionController struct {
	sim    *ForceSimulation
	logger *zap.Logger

	dragging string
	hovered  string

	transform  valueobjects.Transform
	transition *valueobjects.TransformTransition
	elapsed    time.Duration
}

// NewInteractionController creates a controller bound to sim
func NewInteractionController(sim *ForceSimulation, logger *zap.Logger) *InteractionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InteractionController{
		sim:       sim,
		logger:    logger,
		transform: valueobjects.IdentityTransform(),
	}
}

// OnDragStart pins the node where it currently is and reheats toward the
// drag alpha target
func (c *InteractionController) OnDragStart(id string) error {
	if c.dragging != "" {
		return ErrDragInProgress
	}
	p, ok := c.sim.Position(id)
	if !ok {
		return ErrNodeNotFound
	}
	if err := c.sim.Pin(id, p); err != nil {
		return err
	}

	c.dragging = id
	cfg := c.sim.Config()
	c.sim.SetAlphaTarget(cfg.DragAlphaTarget)
	c.sim.Reheat(cfg.DragAlphaTarget)

	c.logger.Debug("drag started", zap.String("node_id", id))
	return nil
}

// OnDragMove pins the dragged node exactly at (x, y) in layout space
func (c *InteractionController) OnDragMove(id string, x, y float64) error {
	if id == "" || id != c.dragging {
		return ErrNotDragging
	}
	p, err := valueobjects.NewVector(x, y)
	if err != nil {
		return err
	}
	return c.sim.Pin(id, p)
}

// OnDragEnd releases the node and reheats only enough for it to resettle
func (c *InteractionController) OnDragEnd(id string) error {
	if id == "" || id != c.dragging {
		return ErrNotDragging
	}
	c.dragging = ""
	if err := c.sim.Unpin(id); err != nil {
		return err
	}

	cfg := c.sim.Config()
	c.sim.SetAlphaTarget(0)
	c.sim.Reheat(cfg.ReleaseAlpha)

	c.logger.Debug("drag ended", zap.String("node_id", id))
	return nil
}

// Dragging returns the id of the active drag, or ""
func (c *InteractionController) Dragging() string {
	return c.dragging
}

// OnHover selects a node for highlighting. An empty or unknown id clears it.
func (c *InteractionController) OnHover(id string) {
	if id == "" || !c.sim.HasNode(id) {
		c.hovered = ""
		return
	}
	c.hovered = id
}

// Hovered returns the hovered node id, or ""
func (c *InteractionController) Hovered() string {
	return c.hovered
}

// Highlighted returns exactly the edges incident to the hovered node
func (c *InteractionController) Highlighted() []entities.Edge {
	if c.hovered == "" {
		return nil
	}
	var out []entities.Edge
	for _, e := range c.sim.Edges() {
		if e.Touches(c.hovered) {
			out = append(out, e)
		}
	}
	return out
}

// IsDimmed reports whether e is drawn de-emphasised under the current hover
func (c *InteractionController) IsDimmed(e entities.Edge) bool {
	return c.hovered != "" && !e.Touches(c.hovered)
}

func (c *InteractionController) emphasis(e entities.Edge) (dimmed, highlighted bool) {
	if c.hovered == "" {
		return false, false
	}
	touches := e.Touches(c.hovered)
	return !touches, touches
}

// ZoomBy zooms around the canvas center
func (c *InteractionController) ZoomBy(factor float64) error {
	cfg := c.sim.Config()
	return c.ZoomAt(factor, cfg.CanvasWidth/2, cfg.CanvasHeight/2)
}

// ZoomAt multiplies the scale by factor, clamped to the configured bounds,
// keeping the screen point (fx, fy) stationary. It cancels a running reset.
func (c *InteractionController) ZoomAt(factor, fx, fy float64) error {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return pkgerrors.NewValidationError("zoom factor must be a positive finite number").
			WithDetail("factor", factor)
	}
	focal, err := valueobjects.NewVector(fx, fy)
	if err != nil {
		return err
	}

	cfg := c.sim.Config()
	c.transition = nil
	c.transform = c.transform.ZoomAround(factor, focal, cfg.MinScale, cfg.MaxScale)
	return nil
}

// ResetTransform returns to the identity transform. With a positive
// duration the change is eased and driven by Advance; the returned
// transition describes it either way.
func (c *InteractionController) ResetTransform(duration time.Duration) *valueobjects.TransformTransition {
	tr := valueobjects.NewTransformTransition(c.transform, valueobjects.IdentityTransform(), duration)
	c.elapsed = 0
	if tr.Duration == 0 {
		c.transform = tr.To
		c.transition = nil
		return tr
	}
	c.transition = tr
	return tr
}

// Advance moves an active reset transition forward
func (c *InteractionController) Advance(elapsed time.Duration) {
	if c.transition == nil {
		return
	}
	c.elapsed += elapsed
	c.transform = c.transition.At(c.elapsed)
	if c.transition.Done(c.elapsed) {
		c.transition = nil
	}
}

// Transitioning reports whether a reset transition is still running
func (c *InteractionController) Transitioning() bool {
	return c.transition != nil
}

// Transform returns the current view transform
func (c *InteractionController) Transform() valueobjects.Transform {
	return c.transform
}

// GraphChanged drops drag and hover state that refers to removed nodes
func (c *InteractionController) GraphChanged() {
	if c.dragging != "" && !c.sim.HasNode(c.dragging) {
		c.dragging = ""
		c.sim.SetAlphaTarget(0)
	}
	if c.hovered != "" && !c.sim.HasNode(c.hovered) {
		c.hovered = ""
	}
}

// Frame builds the render frame with the current transform and emphasis
func (c *InteractionController) Frame() Frame {
	return c.sim.buildFrame(c.transform, c.emphasis)
}
