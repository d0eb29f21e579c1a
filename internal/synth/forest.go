// Package synth generates deterministic synthetic point clouds of stylised
// trees for tests and demos.
package synth

import (
	"math"
	"math/rand/v2"

	"github.com/banshee-data/canopy/internal/pointcloud"
)

// ForestParams describes a regular plantation of identical stylised trees:
// a vertical trunk topped by an ellipsoidal crown.
type ForestParams struct {
	Rows, Cols int
	Spacing    float64 // distance between neighbouring trunks

	TrunkHeight   float64
	TrunkPoints   int
	TrunkJitter   float64
	CrownRadius   float64
	CrownHeight   float64
	CrownPoints   int
	NoisePoints   int // scattered uniformly over the stand volume
	PositionNoise float64

	Seed uint64
}

// DefaultForestParams returns a 3x3 stand with crowns well separated at a
// 1 m search radius.
func DefaultForestParams() ForestParams {
	return ForestParams{
		Rows:          3,
		Cols:          3,
		Spacing:       8,
		TrunkHeight:   4,
		TrunkPoints:   40,
		TrunkJitter:   0.05,
		CrownRadius:   1.5,
		CrownHeight:   3,
		CrownPoints:   200,
		NoisePoints:   20,
		PositionNoise: 0.5,
		Seed:          1,
	}
}

// Forest generates the stand described by p. truth holds the generating tree
// (1-based, row-major) for each point, or 0 for scattered noise. The same
// params always produce the same points in the same order.
func Forest(p ForestParams) (points []pointcloud.Point, truth []int) {
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))

	id := 0
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			id++
			cx := float64(c)*p.Spacing + jitter(rng, p.PositionNoise)
			cy := float64(r)*p.Spacing + jitter(rng, p.PositionNoise)

			for i := 0; i < p.TrunkPoints; i++ {
				points = append(points, pointcloud.Point{
					X: cx + jitter(rng, p.TrunkJitter),
					Y: cy + jitter(rng, p.TrunkJitter),
					Z: rng.Float64() * p.TrunkHeight,
				})
				truth = append(truth, id)
			}

			cz := p.TrunkHeight + p.CrownHeight/2
			for i := 0; i < p.CrownPoints; i++ {
				dx, dy, dz := unitBall(rng)
				points = append(points, pointcloud.Point{
					X: cx + dx*p.CrownRadius,
					Y: cy + dy*p.CrownRadius,
					Z: cz + dz*p.CrownHeight/2,
				})
				truth = append(truth, id)
			}
		}
	}

	maxX := float64(p.Cols-1)*p.Spacing + p.CrownRadius
	maxY := float64(p.Rows-1)*p.Spacing + p.CrownRadius
	maxZ := p.TrunkHeight + p.CrownHeight
	for i := 0; i < p.NoisePoints; i++ {
		points = append(points, pointcloud.Point{
			X: -p.CrownRadius + rng.Float64()*(maxX+p.CrownRadius),
			Y: -p.CrownRadius + rng.Float64()*(maxY+p.CrownRadius),
			Z: rng.Float64() * maxZ,
		})
		truth = append(truth, 0)
	}
	return points, truth
}

// jitter returns a uniform offset in [-amp, amp).
func jitter(rng *rand.Rand, amp float64) float64 {
	if amp == 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * amp
}

// unitBall samples a point uniformly inside the unit ball by rejection.
func unitBall(rng *rand.Rand) (x, y, z float64) {
	for {
		x = rng.Float64()*2 - 1
		y = rng.Float64()*2 - 1
		z = rng.Float64()*2 - 1
		if x*x+y*y+z*z <= 1 {
			return x, y, z
		}
	}
}

// Column returns n points stacked vertically at (x, y) from z0 in steps of
// dz. Useful for hand-built test fixtures.
func Column(x, y, z0, dz float64, n int) []pointcloud.Point {
	out := make([]pointcloud.Point, n)
	for i := range out {
		out[i] = pointcloud.Point{X: x, Y: y, Z: z0 + float64(i)*dz}
	}
	return out
}

// Bounds returns the horizontal extent of a stand generated with p,
// including crowns.
func Bounds(p ForestParams) (minX, minY, maxX, maxY float64) {
	pad := p.CrownRadius + math.Abs(p.PositionNoise)
	return -pad, -pad,
		float64(p.Cols-1)*p.Spacing + pad,
		float64(p.Rows-1)*p.Spacing + pad
}
