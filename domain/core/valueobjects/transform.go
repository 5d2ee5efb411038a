package valueobjects

import (
	"math"
	"time"
)

// Transform is the zoom/pan applied at render time. It never touches
// node positions: screen = layout*Scale + Translate.
type Transform struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
}

// IdentityTransform returns scale 1 with no translation
func IdentityTransform() Transform {
	return Transform{Scale: 1}
}

// Apply maps a layout-space point to screen space
func (t Transform) Apply(p Vector) Vector {
	return Vector{
		X: p.X*t.Scale + t.TranslateX,
		Y: p.Y*t.Scale + t.TranslateY,
	}
}

// Invert maps a screen-space point back to layout space
func (t Transform) Invert(p Vector) Vector {
	return Vector{
		X: (p.X - t.TranslateX) / t.Scale,
		Y: (p.Y - t.TranslateY) / t.Scale,
	}
}

// ZoomAround multiplies the scale by factor, clamps it to [minScale, maxScale]
// and shifts the translation so the screen-space focal point stays put.
func (t Transform) ZoomAround(factor float64, focal Vector, minScale, maxScale float64) Transform {
	scale := clamp(t.Scale*factor, minScale, maxScale)

	// Layout point currently under the focal point
	anchor := t.Invert(focal)

	return Transform{
		Scale:      scale,
		TranslateX: focal.X - anchor.X*scale,
		TranslateY: focal.Y - anchor.Y*scale,
	}
}

// IsIdentity reports whether the transform is the identity
func (t Transform) IsIdentity() bool {
	return t.Scale == 1 && t.TranslateX == 0 && t.TranslateY == 0
}

// Lerp interpolates between t and o, k in [0,1]
func (t Transform) Lerp(o Transform, k float64) Transform {
	return Transform{
		Scale:      t.Scale + (o.Scale-t.Scale)*k,
		TranslateX: t.TranslateX + (o.TranslateX-t.TranslateX)*k,
		TranslateY: t.TranslateY + (o.TranslateY-t.TranslateY)*k,
	}
}

// TransformTransition is an eased animation between two transforms. It is
// handed back to the caller of a reset so the renderer can drive it.
type TransformTransition struct {
	From     Transform     `json:"from"`
	To       Transform     `json:"to"`
	Duration time.Duration `json:"duration"`
}

// NewTransformTransition creates a transition; a non-positive duration jumps
// straight to the target.
func NewTransformTransition(from, to Transform, duration time.Duration) *TransformTransition {
	if duration < 0 {
		duration = 0
	}
	return &TransformTransition{From: from, To: to, Duration: duration}
}

// At returns the eased transform after elapsed time
func (tr *TransformTransition) At(elapsed time.Duration) Transform {
	if tr.Done(elapsed) {
		return tr.To
	}
	if elapsed <= 0 {
		return tr.From
	}
	k := float64(elapsed) / float64(tr.Duration)
	return tr.From.Lerp(tr.To, easeCubicInOut(k))
}

// Done reports whether the transition has reached its target
func (tr *TransformTransition) Done(elapsed time.Duration) bool {
	return elapsed >= tr.Duration
}

func easeCubicInOut(k float64) float64 {
	if k < 0.5 {
		return 4 * k * k * k
	}
	return 1 - math.Pow(-2*k+2, 3)/2
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
