package services

import (
	"math"

	"github.com/santiagotion/sentinel-sub001/domain/core/valueobjects"
)

// Past this depth cells stop splitting and keep every point in a leaf list.
// Coincident points end up there too.
const quadtreeMaxDepth = 32

// quadCell is a square region of the layout. Internal cells aggregate the
// charge of everything below them.
type quadCell struct {
	x0, y0, size float64
	children     [4]*quadCell
	points       []int

	charge float64
	cx, cy float64
}

func (c *quadCell) isLeaf() bool {
	return c.children == [4]*quadCell{}
}

func (c *quadCell) contains(p valueobjects.Vector) bool {
	return p.X >= c.x0 && p.X <= c.x0+c.size && p.Y >= c.y0 && p.Y <= c.y0+c.size
}

// intersects reports whether the cell overlaps the axis-aligned square of
// half-width reach around p
func (c *quadCell) intersects(p valueobjects.Vector, reach float64) bool {
	return p.X+reach >= c.x0 && p.X-reach <= c.x0+c.size &&
		p.Y+reach >= c.y0 && p.Y-reach <= c.y0+c.size
}

// quadtree indexes a position snapshot for Barnes-Hut charge approximation
// and for pruning collision candidates.
type quadtree struct {
	root   *quadCell
	pos    []valueobjects.Vector
	charge []float64
}

// newQuadtree builds a tree over pos. charge may be nil when the tree is only
// used for neighbour queries.
func newQuadtree(pos []valueobjects.Vector, charge []float64) *quadtree {
	t := &quadtree{pos: pos, charge: charge}
	if len(pos) == 0 {
		return t
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pos {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	size := math.Max(maxX-minX, maxY-minY)
	if size == 0 {
		size = 1
	}

	indices := make([]int, len(pos))
	for i := range indices {
		indices[i] = i
	}
	t.root = t.build(indices, minX, minY, size, 0)
	return t
}

func (t *quadtree) build(indices []int, x0, y0, size float64, depth int) *quadCell {
	cell := &quadCell{x0: x0, y0: y0, size: size}

	if len(indices) <= 1 || depth >= quadtreeMaxDepth || t.coincident(indices) {
		cell.points = indices
		t.aggregate(cell, indices)
		return cell
	}

	half := size / 2
	midX, midY := x0+half, y0+half
	var quadrants [4][]int
	for _, i := range indices {
		q := 0
		if t.pos[i].X >= midX {
			q |= 1
		}
		if t.pos[i].Y >= midY {
			q |= 2
		}
		quadrants[q] = append(quadrants[q], i)
	}

	for q, members := range quadrants {
		if len(members) == 0 {
			continue
		}
		cx, cy := x0, y0
		if q&1 != 0 {
			cx = midX
		}
		if q&2 != 0 {
			cy = midY
		}
		cell.children[q] = t.build(members, cx, cy, half, depth+1)
	}

	if t.charge != nil {
		for _, child := range cell.children {
			if child == nil || child.charge == 0 {
				continue
			}
			cell.cx += child.cx * child.charge
			cell.cy += child.cy * child.charge
			cell.charge += child.charge
		}
		if cell.charge > 0 {
			cell.cx /= cell.charge
			cell.cy /= cell.charge
		}
	}
	return cell
}

func (t *quadtree) coincident(indices []int) bool {
	first := t.pos[indices[0]]
	for _, i := range indices[1:] {
		if t.pos[i] != first {
			return false
		}
	}
	return true
}

func (t *quadtree) aggregate(cell *quadCell, indices []int) {
	if t.charge == nil {
		return
	}
	for _, i := range indices {
		q := t.charge[i]
		cell.cx += t.pos[i].X * q
		cell.cy += t.pos[i].Y * q
		cell.charge += q
	}
	if cell.charge > 0 {
		cell.cx /= cell.charge
		cell.cy /= cell.charge
	}
}

// visitNear calls fn for every indexed point whose leaf overlaps the square
// of half-width reach around p. It may report points farther than reach.
func (t *quadtree) visitNear(p valueobjects.Vector, reach float64, fn func(j int)) {
	if t.root == nil {
		return
	}
	var walk func(c *quadCell)
	walk = func(c *quadCell) {
		if !c.intersects(p, reach) {
			return
		}
		if c.isLeaf() {
			for _, j := range c.points {
				fn(j)
			}
			return
		}
		for _, child := range c.children {
			if child != nil {
				walk(child)
			}
		}
	}
	walk(t.root)
}

// chargeOn accumulates the repulsion felt by node i. A cell is treated as a
// single body only when i lies outside it and size/distance < theta.
func (t *quadtree) chargeOn(i int, theta, alpha float64, jitter func() valueobjects.Vector) valueobjects.Vector {
	var acc valueobjects.Vector
	if t.root == nil {
		return acc
	}
	p := t.pos[i]
	theta2 := theta * theta

	var walk func(c *quadCell)
	walk = func(c *quadCell) {
		if c.charge == 0 {
			return
		}

		if !c.contains(p) {
			d := valueobjects.Vector{X: p.X - c.cx, Y: p.Y - c.cy}
			d2 := d.LengthSquared()
			if d2 > 0 && c.size*c.size < theta2*d2 {
				acc = acc.Add(repulsion(d, c.charge, alpha))
				return
			}
		}

		if c.isLeaf() {
			for _, j := range c.points {
				if j == i {
					continue
				}
				d := p.Sub(t.pos[j])
				if d.IsZero() {
					d = jitter()
				}
				acc = acc.Add(repulsion(d, t.charge[j], alpha))
			}
			return
		}

		for _, child := range c.children {
			if child != nil {
				walk(child)
			}
		}
	}
	walk(t.root)
	return acc
}

// repulsion is the push along d (pointing away from the repeller) with
// magnitude charge*alpha/|d|², the squared distance floored at 1.
func repulsion(d valueobjects.Vector, charge, alpha float64) valueobjects.Vector {
	d2 := d.LengthSquared()
	l := math.Sqrt(d2)
	if l == 0 {
		return valueobjects.Vector{}
	}
	magnitude := charge * alpha / math.Max(d2, 1)
	return d.Scale(magnitude / l)
}
