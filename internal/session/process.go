package session

import (
	"log"

	"gocv.io/x/gocv"

	"github.com/ayusman/footfit/internal/detector"
	"github.com/ayusman/footfit/internal/overlay"
	"github.com/ayusman/footfit/internal/tracking"
)

// ProcessResult handles the pose estimator's output for one frame.
// frame may be nil when results come from a synthetic feed.
//
// Per frame:
// 1. Results arriving while inactive are dropped
// 2. An estimator error or a malformed landmark list means no pose this frame
// 3. The validated foot landmarks select a foot and derive the status
// 4. The overlay is redrawn from the selection
// 5. A complete foot places and shows the object, anything else hides it
// 6. The object layer is rendered once
func (s *Session) ProcessResult(frame *gocv.Mat, landmarks []detector.Landmark, err error) {
	s.mu.Lock()

	if !s.ctx.Active {
		s.mu.Unlock()
		return
	}

	if frame != nil && !frame.Empty() {
		s.resizeSurfacesLocked(frame.Cols(), frame.Rows())
		frame.CopyTo(&s.video)
	}
	s.ctx.Frames++

	prev := s.status.Current()

	if err != nil {
		log.Printf("Pose estimation failed: %v", err)
	}

	var sel tracking.Selection
	if err == nil {
		sel = tracking.Select(tracking.Validate(landmarks, s.cfg.Tracking.VisibilityThreshold))
	}

	if !sel.Valid {
		s.status.Update(tracking.SearchingStatus())
		s.hideObject()
		s.overlay.DrawHint(&s.surface, overlay.HintNoPose)
	} else {
		s.status.Update(tracking.Derive(sel))
		s.overlay.Draw(&s.surface, sel)
		s.placeObject(sel)
	}

	if err := s.layer.Render(&s.objects); err != nil {
		log.Printf("Failed to render object layer: %v", err)
	}

	if cur := s.status.Current(); cur != prev {
		s.recordStatus(cur)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// placeObject shows the object at the selected foot, or hides it when no foot is complete.
func (s *Session) placeObject(sel tracking.Selection) {
	chosen, ok := sel.Chosen()
	if !ok {
		s.hideObject()
		return
	}

	t, ok := s.placer.Place(chosen)
	if !ok {
		s.hideObject()
		return
	}

	s.ctx.LockedFrames++
	s.cfg.Model.SetTransform(s.smoother.Apply(t))
	s.cfg.Model.SetVisible(true)
}

func (s *Session) hideObject() {
	s.cfg.Model.SetVisible(false)
	s.smoother.Reset()
}
