// Package session orchestrates try-on mode: camera acquisition, the frame loop and
// the per-frame tracking pipeline that drives status, overlay and object placement.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/footfit/internal/capture"
	"github.com/ayusman/footfit/internal/config"
	"github.com/ayusman/footfit/internal/detector"
	"github.com/ayusman/footfit/internal/overlay"
	"github.com/ayusman/footfit/internal/scene"
	"github.com/ayusman/footfit/internal/store"
	"github.com/ayusman/footfit/internal/tracking"
)

var (
	// ErrActive is returned when entering try-on mode twice.
	ErrActive = errors.New("session already active")
	// ErrInactive is returned by operations that need an active session.
	ErrInactive = errors.New("session not active")
)

// Context is the state of the current try-on session.
type Context struct {
	Camera       capture.Camera
	Object       scene.Object
	Width        int
	Height       int
	Active       bool
	ID           string
	Frames       int
	LockedFrames int
}

// Config holds the collaborators of a Session.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Model    *scene.Model
	// Layer draws the object layer. Defaults to a footprint of Model.
	Layer   scene.Renderer
	Overlay *overlay.Renderer
	// Store records session history when set.
	Store    *store.Store
	Facing   capture.Facing
	Width    int
	Height   int
	Tracking config.Tracking
	Pipeline config.PipelineConfig
}

// Snapshot is what the UI sees of a session at one point in time.
type Snapshot struct {
	Active    bool               `json:"active" msgpack:"active"`
	SessionID string             `json:"session_id,omitempty" msgpack:"session_id"`
	State     tracking.State     `json:"state" msgpack:"state"`
	Message   string             `json:"message" msgpack:"message"`
	Visible   bool               `json:"visible" msgpack:"visible"`
	Transform tracking.Transform `json:"transform" msgpack:"transform"`
	Frames    int                `json:"frames" msgpack:"frames"`
}

// Session is the frame orchestrator for try-on mode.
type Session struct {
	cfg      Config
	placer   *tracking.Placer
	smoother *tracking.Smoother
	motion   *capture.MotionDetector
	overlay  *overlay.Renderer
	layer    scene.Renderer

	// lifecycle serializes Enter and Exit.
	lifecycle sync.Mutex
	stopCh    chan struct{}
	done      chan struct{}

	mu        sync.RWMutex
	ctx       Context
	status    *tracking.StatusMachine
	video     gocv.Mat
	objects   gocv.Mat
	surface   gocv.Mat
	closed    bool
	listeners map[chan Snapshot]struct{}
}

// New creates an inactive Session.
func New(cfg Config) *Session {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = capture.DefaultWidth, capture.DefaultHeight
	}
	if cfg.Overlay == nil {
		cfg.Overlay = overlay.NewRenderer()
	}
	if cfg.Pipeline.MotionThresh <= 0 {
		cfg.Pipeline.MotionThresh = 1.0 // 1% of pixels changed
	}
	if cfg.Layer == nil {
		cfg.Layer = scene.NewFootprintRenderer(cfg.Model, cfg.Tracking)
	}

	s := &Session{
		cfg:       cfg,
		placer:    tracking.NewPlacer(cfg.Tracking),
		smoother:  tracking.NewSmoother(cfg.Tracking.SmoothingAlpha),
		motion:    capture.NewMotionDetector(cfg.Pipeline.MotionThresh),
		overlay:   cfg.Overlay,
		layer:     cfg.Layer,
		status:    tracking.NewStatusMachine(cfg.Tracking.DebounceFrames),
		listeners: make(map[chan Snapshot]struct{}),
	}
	s.ctx = Context{Camera: cfg.Camera, Object: cfg.Model, Width: cfg.Width, Height: cfg.Height}
	s.allocSurfaces(cfg.Width, cfg.Height)
	return s
}

// Enter starts try-on mode. Camera acquisition is abandoned when ctx is done.
// On acquisition failure the status becomes Error and Enter may be retried.
func (s *Session) Enter(ctx context.Context) error {
	return s.enter(ctx, true)
}

func (s *Session) enter(ctx context.Context, startLoop bool) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.Active() {
		return ErrActive
	}

	if err := capture.Acquire(ctx, s.cfg.Camera); err != nil {
		s.mu.Lock()
		s.status.Fail(err)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)

		log.Printf("Camera acquisition failed: %v", err)
		return fmt.Errorf("acquire camera: %w", err)
	}

	id := uuid.NewString()
	if s.cfg.Store != nil {
		rec := &store.Session{ID: id, Facing: string(s.cfg.Facing)}
		if err := s.cfg.Store.Sessions().Create(rec); err != nil {
			log.Printf("Failed to record session: %v", err)
		}
	}

	s.cfg.Camera.SetFPS(s.idleFPS())
	s.motion.Reset()
	s.smoother.Reset()

	s.mu.Lock()
	s.ctx.Active = true
	s.ctx.ID = id
	s.ctx.Frames = 0
	s.ctx.LockedFrames = 0
	s.clearSurfacesLocked()
	s.status.Reset()
	s.recordStatus(s.status.Current())
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if startLoop {
		s.stopCh = make(chan struct{})
		s.done = make(chan struct{})
		go s.run(s.stopCh, s.done)
	}

	s.notify(snap)
	log.Printf("Try-on session %s started", id)
	return nil
}

// Exit leaves try-on mode. The session is marked inactive before anything is torn
// down, so results still in flight are ignored.
func (s *Session) Exit() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.ctx.Active {
		s.mu.Unlock()
		return ErrInactive
	}
	s.ctx.Active = false
	s.mu.Unlock()

	if s.stopCh != nil {
		close(s.stopCh)
		<-s.done
		s.stopCh, s.done = nil, nil
	}

	if err := s.cfg.Camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	s.cfg.Model.SetVisible(false)
	s.smoother.Reset()
	s.motion.Reset()

	s.mu.Lock()
	s.clearSurfacesLocked()
	s.status.Reset()
	id, frames, locked := s.ctx.ID, s.ctx.Frames, s.ctx.LockedFrames
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.cfg.Store != nil {
		if err := s.cfg.Store.Sessions().End(id, frames, locked); err != nil {
			log.Printf("Failed to close session record: %v", err)
		}
	}

	s.notify(snap)
	log.Printf("Try-on session %s stopped (%d frames, %d locked)", id, frames, locked)
	return nil
}

// Close exits try-on mode if needed and releases the drawing surfaces.
func (s *Session) Close() error {
	if err := s.Exit(); err != nil && !errors.Is(err, ErrInactive) {
		return err
	}

	s.motion.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.video.Close()
		s.objects.Close()
		s.surface.Close()
		s.closed = true
	}
	for ch := range s.listeners {
		delete(s.listeners, ch)
		close(ch)
	}
	return nil
}

// Active reports whether try-on mode is on.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx.Active
}

// Status returns the published tracking status.
func (s *Session) Status() tracking.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.Current()
}

// Transform returns the object transform and whether the object is shown.
func (s *Session) Transform() (tracking.Transform, bool) {
	t, visible, _ := s.cfg.Model.Snapshot()
	return t, visible
}

// Context returns a copy of the session context.
func (s *Session) Context() Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// Snapshot returns the current UI view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a Snapshot after every processed frame and
// lifecycle change, and a function that unsubscribes. Slow receivers miss updates.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.listeners[ch]; ok {
				delete(s.listeners, ch)
				close(ch)
			}
		})
	}
}

func (s *Session) snapshotLocked() Snapshot {
	t, visible, _ := s.cfg.Model.Snapshot()
	st := s.status.Current()
	return Snapshot{
		Active:    s.ctx.Active,
		SessionID: s.ctx.ID,
		State:     st.State,
		Message:   st.Message,
		Visible:   visible,
		Transform: t,
		Frames:    s.ctx.Frames,
	}
}

func (s *Session) notify(snap Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.listeners {
		select {
		case ch <- snap:
		default:
		}
	}
}

// recordStatus appends a status transition to the session history. Caller holds mu.
func (s *Session) recordStatus(st tracking.Status) {
	if s.cfg.Store == nil || s.ctx.ID == "" {
		return
	}
	if err := s.cfg.Store.Sessions().AddStatusEvent(s.ctx.ID, string(st.State), st.Message); err != nil {
		log.Printf("Failed to record status: %v", err)
	}
}

func (s *Session) allocSurfaces(width, height int) {
	s.video = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	s.objects = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	s.surface = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	s.clearSurfacesLocked()
}

// resizeSurfacesLocked matches the drawing surfaces to the frame size.
func (s *Session) resizeSurfacesLocked(width, height int) {
	if width == s.ctx.Width && height == s.ctx.Height {
		return
	}
	s.video.Close()
	s.objects.Close()
	s.surface.Close()
	s.allocSurfaces(width, height)
	s.ctx.Width, s.ctx.Height = width, height
}

func (s *Session) clearSurfacesLocked() {
	s.video.SetTo(gocv.NewScalar(0, 0, 0, 0))
	overlay.Clear(&s.objects)
	overlay.Clear(&s.surface)
}
