package session

import (
	"log"
	"time"

	"github.com/ayusman/footfit/internal/tracking"
)

// Frame rates used when the pipeline config leaves them unset.
const (
	defaultIdleFPS       = 5
	defaultActiveFPS     = 15
	defaultIdleTimeoutMs = 2000
)

// run is the frame loop of an active session. It is the only caller of
// ProcessResult while the session is active, so inferences never overlap.
//
// Loop logic:
// 1. Start at the idle frame rate
// 2. Motion, or a pose in view, switches to the active frame rate
// 3. Every tick reads a frame, runs pose estimation and processes the result
// 4. After the idle timeout with no motion and nothing found, switch back to idle
func (s *Session) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	idleFPS, activeFPS := s.idleFPS(), s.activeFPS()
	idleTimeout := time.Duration(s.cfg.Pipeline.IdleTimeoutMs) * time.Millisecond
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeoutMs * time.Millisecond
	}

	activeMode := false
	lastActivity := time.Now()

	ticker := time.NewTicker(time.Second / time.Duration(idleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		frame, err := s.cfg.Camera.ReadFrame()
		if err != nil {
			log.Printf("Error reading frame: %v", err)
			continue
		}

		moved, _ := s.motion.Detect(frame)
		if moved || s.Status().State != tracking.Searching {
			lastActivity = time.Now()
		}

		switch {
		case moved && !activeMode:
			activeMode = true
			s.cfg.Camera.SetFPS(activeFPS)
			ticker.Reset(time.Second / time.Duration(activeFPS))
			log.Println("Switched to active mode")
		case activeMode && time.Since(lastActivity) > idleTimeout:
			activeMode = false
			s.cfg.Camera.SetFPS(idleFPS)
			ticker.Reset(time.Second / time.Duration(idleFPS))
			log.Println("Switched to idle mode")
		}

		landmarks, err := s.cfg.Detector.Detect(frame)
		s.ProcessResult(frame, landmarks, err)
		frame.Close()
	}
}

func (s *Session) idleFPS() int {
	if s.cfg.Pipeline.IdleFPS > 0 {
		return s.cfg.Pipeline.IdleFPS
	}
	return defaultIdleFPS
}

func (s *Session) activeFPS() int {
	if s.cfg.Pipeline.ActiveFPS > 0 {
		return s.cfg.Pipeline.ActiveFPS
	}
	return defaultActiveFPS
}
