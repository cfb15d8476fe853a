// Package overlay draws diagnostic landmark markers on a surface aligned to the video frame.
package overlay

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/footfit/internal/detector"
	"github.com/ayusman/footfit/internal/tracking"
)

// Hints drawn when there is nothing to mark.
const (
	HintNoPose = "No pose detected"
	HintNoFoot = "No foot detected - point the camera at your feet"
)

var (
	ankleColor = color.RGBA{R: 255, G: 80, B: 80, A: 255}
	heelColor  = color.RGBA{R: 255, G: 210, B: 0, A: 255}
	toeColor   = color.RGBA{R: 60, G: 220, B: 90, A: 255}
	lineColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	hintColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Renderer draws landmark markers, the selected foot axis and textual hints.
type Renderer struct {
	markerRadius int
	fontScale    float64
	dashLength   float64
	gapLength    float64
}

// NewRenderer creates a Renderer with default styling.
func NewRenderer() *Renderer {
	return &Renderer{
		markerRadius: 6,
		fontScale:    0.45,
		dashLength:   10,
		gapLength:    6,
	}
}

// Clear wipes the surface.
func Clear(surface *gocv.Mat) {
	surface.SetTo(gocv.NewScalar(0, 0, 0, 0))
}

// Draw clears surface and draws the frame's selection onto it.
// Missing landmarks are skipped; an invalid pose or a frame with no usable foot draws a hint.
func (r *Renderer) Draw(surface *gocv.Mat, sel tracking.Selection) {
	Clear(surface)

	if !sel.Valid {
		r.drawHint(surface, HintNoPose)
		return
	}

	width, height := surface.Cols(), surface.Rows()

	chosen, ok := sel.Chosen()
	if ok && chosen.Ankle != nil && chosen.Toe != nil {
		ax, ay := chosen.Ankle.PixelPosition(width, height)
		tx, ty := chosen.Toe.PixelPosition(width, height)
		r.drawDashedLine(surface, image.Pt(ax, ay), image.Pt(tx, ty), lineColor, 2)
	}

	for _, c := range []tracking.FootCandidate{sel.Left, sel.Right} {
		prefix := "R"
		if c.Side == tracking.Left {
			prefix = "L"
		}
		r.drawMarker(surface, c.Ankle, prefix+" ankle", ankleColor, width, height)
		r.drawMarker(surface, c.Heel, prefix+" heel", heelColor, width, height)
		r.drawMarker(surface, c.Toe, prefix+" toe", toeColor, width, height)
	}

	if !ok {
		r.drawHint(surface, HintNoFoot)
	}
}

// DrawHint clears surface and draws only text.
func (r *Renderer) DrawHint(surface *gocv.Mat, text string) {
	Clear(surface)
	r.drawHint(surface, text)
}

func (r *Renderer) drawMarker(surface *gocv.Mat, lm *detector.Landmark, label string, c color.RGBA, width, height int) {
	if lm == nil {
		return
	}
	x, y := lm.PixelPosition(width, height)
	center := image.Pt(x, y)

	gocv.Circle(surface, center, r.markerRadius, c, -1)
	gocv.Circle(surface, center, r.markerRadius+1, lineColor, 1)
	gocv.PutText(surface, label, image.Pt(x+r.markerRadius+3, y-r.markerRadius), gocv.FontHersheySimplex, r.fontScale, c, 1)
}

func (r *Renderer) drawHint(surface *gocv.Mat, text string) {
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, r.fontScale*1.4, 2)
	x := (surface.Cols() - size.X) / 2
	if x < 4 {
		x = 4
	}
	y := surface.Rows() - 24
	gocv.PutText(surface, text, image.Pt(x, y), gocv.FontHersheySimplex, r.fontScale*1.4, hintColor, 2)
}

// drawDashedLine draws a dashed line from start to end.
func (r *Renderer) drawDashedLine(img *gocv.Mat, start, end image.Point, c color.RGBA, thickness int) {
	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length

	for pos := 0.0; pos < length; pos += r.dashLength + r.gapLength {
		stop := math.Min(pos+r.dashLength, length)
		from := image.Pt(start.X+int(pos*ux), start.Y+int(pos*uy))
		to := image.Pt(start.X+int(stop*ux), start.Y+int(stop*uy))
		gocv.Line(img, from, to, c, thickness)
	}
}
