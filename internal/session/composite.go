package session

import (
	"bytes"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/footfit/internal/store"
)

// Frame encodes the current composite of video, object layer and overlay as JPEG.
func (s *Session) Frame() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ctx.Active {
		return nil, ErrInactive
	}
	return s.encodeLocked()
}

// Capture encodes the current composite as JPEG and records it in the session history.
func (s *Session) Capture() ([]byte, error) {
	s.mu.RLock()
	if !s.ctx.Active {
		s.mu.RUnlock()
		return nil, ErrInactive
	}
	data, err := s.encodeLocked()
	id := s.ctx.ID
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if s.cfg.Store != nil {
		c := &store.Capture{ID: uuid.NewString(), SessionID: id, Size: len(data)}
		if err := s.cfg.Store.Captures().Create(c); err != nil {
			log.Printf("Failed to record capture: %v", err)
		}
	}
	return data, nil
}

func (s *Session) encodeLocked() ([]byte, error) {
	composite := s.compositeLocked()
	defer composite.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, composite)
	if err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}
	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}

// compositeLocked layers the object layer and then the overlay over the video frame.
// Black pixels of a layer are transparent.
func (s *Session) compositeLocked() gocv.Mat {
	composite := s.video.Clone()
	for _, layer := range []*gocv.Mat{&s.objects, &s.surface} {
		mask := layerMask(*layer)
		layer.CopyToWithMask(&composite, mask)
		mask.Close()
	}
	return composite
}

func layerMask(layer gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(layer, &gray, gocv.ColorBGRToGray)

	mask := gocv.NewMat()
	gocv.Threshold(gray, &mask, 0, 255, gocv.ThresholdBinary)
	return mask
}
