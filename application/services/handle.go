package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/santiagotion/sentinel-sub001/application/ports"
	"github.com/santiagotion/sentinel-sub001/domain/core/aggregates"
	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	"github.com/santiagotion/sentinel-sub001/domain/core/valueobjects"
	domainservices "github.com/santiagotion/sentinel-sub001/domain/services"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
	"github.com/santiagotion/sentinel-sub001/pkg/observability"
)

// ErrDisposed is returned by every control method after Dispose
var ErrDisposed = pkgerrors.NewDisposedError("visualization handle").WithCode("HANDLE_DISPOSED")

// FrameFunc receives each emitted frame. It is called without any handle
// lock held, so it may call back into the handle.
type FrameFunc func(frame domainservices.Frame)

// Handle is the control surface of one mounted visualization. It owns the
// simulation, the interaction state and the scheduler registration; nothing
// is shared with other handles.
type Handle struct {
	id        string
	mu        sync.Mutex
	sim       *domainservices.ForceSimulation
	ctrl      *domainservices.InteractionController
	scheduler ports.Scheduler
	interval  time.Duration
	onFrame   FrameFunc
	metrics   *observability.Collector
	logger    *zap.Logger

	// cancel is non-nil while registered; token invalidates stale callbacks
	cancel   func()
	token    uint64
	disposed bool
	stopCtx  func() bool

	// frames counts frame callbacks committed while not disposed
	frames sync.WaitGroup
}

// ID returns the instance id
func (h *Handle) ID() string {
	return h.id
}

// register subscribes to the scheduler unless already subscribed.
// Callers hold h.mu.
func (h *Handle) register() {
	if h.disposed || h.cancel != nil {
		return
	}
	h.token++
	token := h.token
	h.cancel = h.scheduler.Schedule(func() { h.tick(token) })
}

// deregister cancels the scheduler subscription. Callers hold h.mu.
func (h *Handle) deregister() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	h.cancel = nil
	h.token++
}

func (h *Handle) needsTicks() bool {
	return h.sim.State() == domainservices.StateRunning || h.ctrl.Transitioning()
}

// sync registers or deregisters to match the simulation state.
// Callers hold h.mu.
func (h *Handle) sync() {
	if h.needsTicks() {
		h.register()
	} else {
		h.deregister()
	}
}

func (h *Handle) tick(token uint64) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("visualization tick panicked, disposing handle",
				zap.String("handle_id", h.id),
				zap.Any("panic", r))
			h.Dispose()
		}
	}()

	frame, ok := h.advance(token)
	if !ok {
		return
	}
	defer h.frames.Done()
	if h.onFrame != nil {
		h.onFrame(frame)
	}
}

func (h *Handle) advance(token uint64) (domainservices.Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed || h.cancel == nil || token != h.token {
		return domainservices.Frame{}, false
	}

	start := time.Now()
	report := h.sim.Step()
	h.ctrl.Advance(h.interval)
	if report.Advanced {
		h.metrics.ObserveTick(time.Since(start), report.Resets, report.Settled)
	}
	if report.Settled {
		h.logger.Debug("visualization settled",
			zap.String("handle_id", h.id),
			zap.Int("tick", report.Tick))
	}

	h.sync()
	h.frames.Add(1)
	return h.ctrl.Frame(), true
}

// interact runs fn under the lock and re-syncs the registration. When no
// tick is scheduled afterwards the new state is emitted immediately so the
// renderer still sees hover, zoom and drag changes on a resting layout.
func (h *Handle) interact(fn func() error) error {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return ErrDisposed
	}
	if err := fn(); err != nil {
		h.mu.Unlock()
		return err
	}
	h.sync()
	emit := h.cancel == nil
	frame := h.ctrl.Frame()
	if emit {
		h.frames.Add(1)
	}
	h.mu.Unlock()

	if emit {
		defer h.frames.Done()
		if h.onFrame != nil {
			h.onFrame(frame)
		}
	}
	return nil
}

// Pause stops ticking regardless of alpha
func (h *Handle) Pause() error {
	return h.interact(func() error {
		h.sim.Pause()
		return nil
	})
}

// Resume continues from where Pause left off
func (h *Handle) Resume() error {
	return h.interact(func() error {
		h.sim.Resume()
		return nil
	})
}

// Restart reheats the whole layout to alpha 1 and clears pause
func (h *Handle) Restart() error {
	return h.interact(func() error {
		h.sim.Restart()
		return nil
	})
}

// OnDragStart begins dragging a node
func (h *Handle) OnDragStart(id string) error {
	return h.interact(func() error { return h.ctrl.OnDragStart(id) })
}

// OnDragMove moves the dragged node to (x, y) in layout space
func (h *Handle) OnDragMove(id string, x, y float64) error {
	return h.interact(func() error { return h.ctrl.OnDragMove(id, x, y) })
}

// OnDragEnd releases the dragged node
func (h *Handle) OnDragEnd(id string) error {
	return h.interact(func() error { return h.ctrl.OnDragEnd(id) })
}

// OnHover highlights the edges of a node; "" clears highlighting
func (h *Handle) OnHover(id string) error {
	return h.interact(func() error {
		h.ctrl.OnHover(id)
		return nil
	})
}

// ZoomBy zooms around the canvas center
func (h *Handle) ZoomBy(factor float64) error {
	return h.interact(func() error { return h.ctrl.ZoomBy(factor) })
}

// ZoomAt zooms around a screen point
func (h *Handle) ZoomAt(factor, x, y float64) error {
	return h.interact(func() error { return h.ctrl.ZoomAt(factor, x, y) })
}

// ResetTransform returns to the identity transform, eased over duration
func (h *Handle) ResetTransform(duration time.Duration) (*valueobjects.TransformTransition, error) {
	var tr *valueobjects.TransformTransition
	err := h.interact(func() error {
		tr = h.ctrl.ResetTransform(duration)
		return nil
	})
	return tr, err
}

// SetGraph applies a structural change and reheats the layout
func (h *Handle) SetGraph(graph *aggregates.Graph) error {
	return h.interact(func() error {
		if err := h.sim.SetGraph(graph); err != nil {
			return err
		}
		h.ctrl.GraphChanged()
		h.metrics.RecordDroppedEdges(graph.DroppedEdgeCount())
		return nil
	})
}

// Dispose cancels the scheduler registration. It is idempotent and safe to
// call from any goroutine, including from inside a frame callback.
func (h *Handle) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed {
		return
	}
	h.deregister()
	h.disposed = true
	if h.stopCtx != nil {
		h.stopCtx()
	}
	h.metrics.HandleDisposed()

	h.logger.Debug("visualization disposed", zap.String("handle_id", h.id))
}

// Wait blocks until every frame callback that started before Dispose has
// returned. Call it after Dispose and before releasing whatever the callback
// writes to. It must not be called from inside the frame callback.
func (h *Handle) Wait() {
	h.frames.Wait()
}

// Disposed reports whether Dispose has run
func (h *Handle) Disposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disposed
}

// Scheduled reports whether a tick registration is live
func (h *Handle) Scheduled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancel != nil
}

// Frame returns the current frame
func (h *Handle) Frame() domainservices.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctrl.Frame()
}

// State returns the simulation state
func (h *Handle) State() domainservices.SimulationState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sim.State()
}

// Alpha returns the simulation's cooling parameter
func (h *Handle) Alpha() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sim.Alpha()
}

// Transform returns the current view transform
func (h *Handle) Transform() valueobjects.Transform {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctrl.Transform()
}

// Highlighted returns the edges highlighted by the current hover
func (h *Handle) Highlighted() []entities.Edge {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctrl.Highlighted()
}

// DroppedEdgeCount returns how many relationships were rejected
func (h *Handle) DroppedEdgeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sim.DroppedEdgeCount()
}
