package services

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santiagotion/sentinel-sub001/domain/core/valueobjects"
)

func randomLayout(n int, seed uint64) ([]valueobjects.Vector, []float64) {
	rng := rand.New(rand.NewPCG(seed, seed))
	pos := make([]valueobjects.Vector, n)
	charge := make([]float64, n)
	for i := range pos {
		pos[i] = valueobjects.Vector{X: rng.Float64() * 1000, Y: rng.Float64() * 600}
		charge[i] = 120
		if i%4 == 0 {
			charge[i] = 300
		}
	}
	return pos, charge
}

func directCharge(pos []valueobjects.Vector, charge []float64, i int, alpha float64) valueobjects.Vector {
	var acc valueobjects.Vector
	for j := range pos {
		if j != i {
			acc = acc.Add(repulsion(pos[i].Sub(pos[j]), charge[j], alpha))
		}
	}
	return acc
}

func noJitter() valueobjects.Vector {
	return valueobjects.Vector{X: 1e-6}
}

func TestQuadtreeExactWithZeroTheta(t *testing.T) {
	pos, charge := randomLayout(250, 7)
	tree := newQuadtree(pos, charge)

	for i := range pos {
		want := directCharge(pos, charge, i, 0.5)
		got := tree.chargeOn(i, 0, 0.5, noJitter)
		assert.InDelta(t, want.X, got.X, 1e-9)
		assert.InDelta(t, want.Y, got.Y, 1e-9)
	}
}

func TestQuadtreeApproximation(t *testing.T) {
	pos, charge := randomLayout(400, 11)
	tree := newQuadtree(pos, charge)

	var errSum, magSum float64
	for i := range pos {
		want := directCharge(pos, charge, i, 1)
		got := tree.chargeOn(i, 0.9, 1, noJitter)
		errSum += want.DistanceTo(got)
		magSum += want.Length()
	}

	require.Greater(t, magSum, 0.0)
	assert.Less(t, errSum/magSum, 0.15)
}

func TestQuadtreeCoincidentPoints(t *testing.T) {
	p := valueobjects.Vector{X: 5, Y: 5}
	pos := []valueobjects.Vector{p, p, p, {X: 50, Y: 50}}
	charge := []float64{100, 100, 100, 100}

	tree := newQuadtree(pos, charge)

	got := tree.chargeOn(0, 0.9, 1, func() valueobjects.Vector { return valueobjects.Vector{X: 1, Y: 0} })
	assert.True(t, got.IsFinite())
	assert.Greater(t, got.X, 0.0)
}

func TestQuadtreeVisitNear(t *testing.T) {
	pos, _ := randomLayout(300, 3)
	tree := newQuadtree(pos, nil)
	const reach = 40.0

	for i := range pos {
		visited := map[int]bool{}
		tree.visitNear(pos[i], reach, func(j int) { visited[j] = true })

		for j := range pos {
			d := pos[j].Sub(pos[i])
			if d.X >= -reach && d.X <= reach && d.Y >= -reach && d.Y <= reach {
				assert.True(t, visited[j], "point %d near %d not visited", j, i)
			}
		}
	}
}

func TestQuadtreeEmpty(t *testing.T) {
	tree := newQuadtree(nil, nil)

	called := false
	tree.visitNear(valueobjects.Vector{}, 10, func(int) { called = true })
	assert.False(t, called)
}
