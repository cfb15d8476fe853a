package tracking

import "math"

// Smoother applies exponential smoothing to consecutive transforms.
// An alpha of 0 or 1 disables smoothing; otherwise alpha is the weight of the newest frame.
type Smoother struct {
	alpha float64
	prev  Transform
	has   bool
}

// NewSmoother creates a Smoother with the given alpha.
func NewSmoother(alpha float64) *Smoother {
	return &Smoother{alpha: alpha}
}

// Enabled reports whether smoothing changes transforms at all.
func (s *Smoother) Enabled() bool {
	return s.alpha > 0 && s.alpha < 1
}

// Apply blends t with the previous output and returns the result.
// A change of foot side restarts from t.
func (s *Smoother) Apply(t Transform) Transform {
	if !s.Enabled() {
		return t
	}
	if !s.has || s.prev.MirrorY != t.MirrorY {
		s.prev = t
		s.has = true
		return t
	}

	a := s.alpha
	out := Transform{
		Position: Vec3{
			X: lerp(s.prev.Position.X, t.Position.X, a),
			Y: lerp(s.prev.Position.Y, t.Position.Y, a),
			Z: lerp(s.prev.Position.Z, t.Position.Z, a),
		},
		RotationZ: s.prev.RotationZ + a*angleDiff(t.RotationZ, s.prev.RotationZ),
		MirrorY:   t.MirrorY,
		Scale:     lerp(s.prev.Scale, t.Scale, a),
	}
	s.prev = out
	return out
}

// Reset forgets the previous transform, used when the foot is lost.
func (s *Smoother) Reset() {
	s.has = false
	s.prev = Transform{}
}

func lerp(from, to, a float64) float64 {
	return from + a*(to-from)
}

// angleDiff returns to-from wrapped to (-pi, pi].
func angleDiff(to, from float64) float64 {
	d := math.Mod(to-from, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}
