package valueobjects

import (
	"math"

	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
)

// Vector is a 2D value used for positions, velocities and accelerations
// in layout space.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewVector creates a vector with validation
func NewVector(x, y float64) (Vector, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Vector{}, pkgerrors.NewValidationError("invalid coordinates: must be finite numbers")
	}
	return Vector{X: x, Y: y}, nil
}

// Add returns v + o
func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o
func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v * k
func (v Vector) Scale(k float64) Vector {
	return Vector{X: v.X * k, Y: v.Y * k}
}

// LengthSquared avoids the square root when only comparing distances
func (v Vector) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Length returns the Euclidean norm
func (v Vector) Length() float64 {
	return math.Sqrt(v.LengthSquared())
}

// DistanceTo calculates the Euclidean distance to another vector
func (v Vector) DistanceTo(o Vector) float64 {
	return v.Sub(o).Length()
}

// IsFinite reports whether both components are finite
func (v Vector) IsFinite() bool {
	return isValidCoordinate(v.X) && isValidCoordinate(v.Y)
}

// IsZero reports whether both components are exactly zero
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Equals checks if two vectors are equal within a small epsilon
func (v Vector) Equals(o Vector) bool {
	const epsilon = 1e-9
	return math.Abs(v.X-o.X) < epsilon && math.Abs(v.Y-o.Y) < epsilon
}

// isValidCoordinate checks if a coordinate is a valid finite number
func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
