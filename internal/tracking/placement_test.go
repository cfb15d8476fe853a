package tracking

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/footfit/internal/config"
	"github.com/ayusman/footfit/internal/detector"
)

const epsilon = 1e-9

func candidate(side Side, ankle, toe *detector.Landmark) FootCandidate {
	return newCandidate(side, ankle, nil, toe)
}

func TestPlacer_Place_RightFoot(t *testing.T) {
	p := NewPlacer(config.DefaultTracking())

	got, ok := p.Place(candidate(Right, lm(0.5, 0.6), lm(0.55, 0.62)))
	if !ok {
		t.Fatal("complete candidate should be placed")
	}

	footLength := math.Sqrt(0.05*0.05 + 0.02*0.02)
	want := Transform{
		Position:  Vec3{X: 0.21, Y: -0.684, Z: -2},
		RotationZ: -math.Atan2(0.02, 0.05),
		MirrorY:   false,
		Scale:     footLength * 2,
	}

	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, epsilon)); diff != "" {
		t.Errorf("Place() mismatch (-want +got):\n%s", diff)
	}
}

func TestPlacer_Place_Mirroring(t *testing.T) {
	p := NewPlacer(config.DefaultTracking())

	left, ok := p.Place(candidate(Left, lm(0.3, 0.5), lm(0.4, 0.5)))
	if !ok {
		t.Fatal("left candidate should be placed")
	}
	right, ok := p.Place(candidate(Right, lm(0.3, 0.5), lm(0.4, 0.5)))
	if !ok {
		t.Fatal("right candidate should be placed")
	}

	if !left.MirrorY {
		t.Error("left foot should carry the Y flip")
	}
	if right.MirrorY {
		t.Error("right foot should not carry the Y flip")
	}
	if math.Abs(left.RotationZ) > epsilon || left.RotationZ != right.RotationZ {
		t.Errorf("horizontal foot rotation = %v (left) / %v (right), want 0 for both", left.RotationZ, right.RotationZ)
	}
	if left.Position != right.Position || left.Scale != right.Scale {
		t.Error("mirroring should not change position or scale")
	}
}

func TestPlacer_Place_Rotation(t *testing.T) {
	p := NewPlacer(config.DefaultTracking())

	tests := []struct {
		name       string
		ankle, toe *detector.Landmark
		want       float64
	}{
		{"pointing right", lm(0.5, 0.5), lm(0.6, 0.5), 0},
		{"pointing down the image", lm(0.5, 0.5), lm(0.5, 0.6), -math.Pi / 2},
		{"pointing up the image", lm(0.5, 0.6), lm(0.5, 0.5), math.Pi / 2},
		{"pointing left", lm(0.6, 0.5), lm(0.5, 0.5), -math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := p.Place(candidate(Right, tt.ankle, tt.toe))
			if math.Abs(got.RotationZ-tt.want) > epsilon {
				t.Errorf("RotationZ = %v, want %v", got.RotationZ, tt.want)
			}
		})
	}
}

func TestPlacer_Place_ScaleClamp(t *testing.T) {
	p := NewPlacer(config.DefaultTracking())

	tests := []struct {
		name       string
		ankle, toe *detector.Landmark
		want       float64
	}{
		{"zero length", lm(0.5, 0.5), lm(0.5, 0.5), 0.05},
		{"tiny", lm(0.5, 0.5), lm(0.51, 0.5), 0.05},
		{"in range", lm(0.5, 0.5), lm(0.55, 0.5), 0.1},
		{"huge", lm(0, 0), lm(1, 1), 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := p.Place(candidate(Right, tt.ankle, tt.toe))
			if math.Abs(got.Scale-tt.want) > epsilon {
				t.Errorf("Scale = %v, want %v", got.Scale, tt.want)
			}
			if got.Scale < 0.05 || got.Scale > 0.15 {
				t.Errorf("Scale %v escaped the clamp", got.Scale)
			}
		})
	}
}

func TestPlacer_Place_Pure(t *testing.T) {
	p := NewPlacer(config.DefaultTracking())
	c := candidate(Left, lm(0.37, 0.71), lm(0.42, 0.77))

	first, _ := p.Place(c)
	// An unrelated placement in between must not leak into the next result.
	p.Place(candidate(Right, lm(0.1, 0.1), lm(0.9, 0.9)))
	second, _ := p.Place(c)

	if first != second {
		t.Errorf("Place() is not pure: %+v != %+v", first, second)
	}
}

func TestPlacer_Place_Incomplete(t *testing.T) {
	p := NewPlacer(config.DefaultTracking())

	tests := []struct {
		name string
		c    FootCandidate
	}{
		{"ankle only", candidate(Right, lm(0.5, 0.6), nil)},
		{"toe only", candidate(Right, nil, lm(0.55, 0.62))},
		{"ankle and heel", newCandidate(Left, lm(0.5, 0.6), lm(0.49, 0.63), nil)},
		{"empty", FootCandidate{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := p.Place(tt.c); ok {
				t.Errorf("Place() = %+v, want no transform", got)
			}
		})
	}
}

func TestPlacer_Place_CenterOfFrame(t *testing.T) {
	p := NewPlacer(config.DefaultTracking())

	// A foot centered on the frame only moves by the forward offset.
	got, _ := p.Place(candidate(Right, lm(0.45, 0.5), lm(0.55, 0.5)))

	wantX := 0.2 * 0.1 * 6
	if math.Abs(got.Position.X-wantX) > epsilon || math.Abs(got.Position.Y) > epsilon {
		t.Errorf("Position = %+v, want (%v, 0)", got.Position, wantX)
	}
}
