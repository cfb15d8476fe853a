package scene

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/footfit/internal/config"
	"github.com/ayusman/footfit/internal/tracking"
)

// Renderer draws the tracked object layer.
type Renderer interface {
	// Render clears layer and draws the object onto it.
	Render(layer *gocv.Mat) error
}

// Footprint proportions relative to the ankle to toe length.
const (
	footprintLength = 1.6
	footprintWidth  = 0.4
)

// FootprintRenderer projects a Model back into the video frame and draws it as a
// shoe footprint: a filled ellipse along the foot axis with a toe cap and an arch
// notch on the inner side.
type FootprintRenderer struct {
	model  *Model
	params config.Tracking
}

// NewFootprintRenderer creates a renderer for model using the placement constants.
func NewFootprintRenderer(model *Model, params config.Tracking) *FootprintRenderer {
	return &FootprintRenderer{model: model, params: params}
}

// Render implements Renderer. A hidden model leaves the layer cleared.
func (r *FootprintRenderer) Render(layer *gocv.Mat) error {
	layer.SetTo(gocv.NewScalar(0, 0, 0, 0))

	t, visible, c := r.model.Snapshot()
	if !visible {
		return nil
	}

	width, height := layer.Cols(), layer.Rows()
	center := r.project(t.Position, width, height)

	// Foot length in pixels, recovered from the clamped scale.
	lengthPx := t.Scale / r.params.ScaleGain * float64(width) * footprintLength
	axes := image.Point{
		X: int(lengthPx / 2),
		Y: int(lengthPx / 2 * footprintWidth),
	}

	// Image space angle is the negated object rotation.
	angle := -t.RotationZ
	dir := r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
	normal := r2.Vec{X: -dir.Y, Y: dir.X}
	if t.MirrorY {
		normal = r2.Scale(-1, normal)
	}

	gocv.Ellipse(layer, toPoint(center), axes, angle*180/math.Pi, 0, 360, c, -1)

	toe := r2.Add(center, r2.Scale(lengthPx*0.35, dir))
	gocv.Circle(layer, toPoint(toe), max(axes.Y*3/4, 1), shade(c, 0.7), -1)

	arch := r2.Add(center, r2.Scale(float64(axes.Y)*0.6, normal))
	gocv.Circle(layer, toPoint(arch), max(axes.Y/3, 1), shade(c, 0.5), -1)

	return nil
}

// project maps an object space position to pixel coordinates, inverting the placement mapping.
func (r *FootprintRenderer) project(p tracking.Vec3, width, height int) r2.Vec {
	return r2.Vec{
		X: (p.X/r.params.PositionScale + 0.5) * float64(width),
		Y: (0.5 - p.Y/r.params.PositionScale) * float64(height),
	}
}

func toPoint(v r2.Vec) image.Point {
	return image.Point{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))}
}

func shade(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}
