package tracking

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/footfit/internal/config"
)

// Vec3 is a position in object space.
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Transform places the tracked object for one frame.
type Transform struct {
	Position Vec3 `json:"position" msgpack:"position"`
	// RotationZ is the in-plane rotation in radians.
	RotationZ float64 `json:"rotation_z" msgpack:"rotation_z"`
	// MirrorY flips the object 180 degrees about the vertical axis.
	MirrorY bool    `json:"mirror_y" msgpack:"mirror_y"`
	Scale   float64 `json:"scale" msgpack:"scale"`
}

// Placer computes object transforms from complete foot candidates.
type Placer struct {
	params config.Tracking
}

// NewPlacer creates a Placer with the given tracking constants.
func NewPlacer(params config.Tracking) *Placer {
	return &Placer{params: params}
}

// Place converts a complete candidate into a Transform.
// ok is false when the candidate lacks an ankle or a toe, and the object must be hidden.
//
// Algorithm:
// 1. Foot center is the ankle/toe midpoint in normalized image space
// 2. Center maps to object space around the frame center, Y inverted
// 3. The anchor moves toward the toe by ForwardOffset of the mapped ankle to toe vector
// 4. Depth is fixed
// 5. Rotation is the negated angle of the ankle to toe vector
// 6. Left feet are mirrored about the vertical axis
// 7. Scale is the foot length times ScaleGain, clamped
func (p *Placer) Place(c FootCandidate) (Transform, bool) {
	if !c.Complete() {
		return Transform{}, false
	}

	ankle := r2.Vec{X: c.Ankle.X, Y: c.Ankle.Y}
	toe := r2.Vec{X: c.Toe.X, Y: c.Toe.Y}

	center := r2.Scale(0.5, r2.Add(ankle, toe))
	forward := r2.Sub(p.toObject(toe), p.toObject(ankle))
	anchor := r2.Add(p.toObject(center), r2.Scale(p.params.ForwardOffset, forward))

	delta := r2.Sub(toe, ankle)
	footLength := r2.Norm(delta)

	return Transform{
		Position:  Vec3{X: anchor.X, Y: anchor.Y, Z: p.params.Depth},
		RotationZ: -math.Atan2(delta.Y, delta.X),
		MirrorY:   c.Side == Left,
		Scale:     clamp(footLength*p.params.ScaleGain, p.params.MinScale, p.params.MaxScale),
	}, true
}

// toObject maps a normalized image point to object space XY.
func (p *Placer) toObject(v r2.Vec) r2.Vec {
	return r2.Vec{
		X: (v.X - 0.5) * p.params.PositionScale,
		Y: -(v.Y - 0.5) * p.params.PositionScale,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
