package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	landmarks []Landmark
	sequence  [][]Landmark
	err       error
	calls     int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks sets the landmarks that will be returned by every Detect call.
func (m *MockDetector) SetLandmarks(landmarks []Landmark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landmarks = landmarks
	m.sequence = nil
}

// SetSequence makes Detect return the given frames in order, then repeat the last one.
func (m *MockDetector) SetSequence(frames [][]Landmark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = frames
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Landmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		next := m.sequence[0]
		if len(m.sequence) > 1 {
			m.sequence = m.sequence[1:]
		}
		return next, nil
	}
	return m.landmarks, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// EmptyPoseLandmarks returns a full-length pose where no landmark is visible.
func EmptyPoseLandmarks() []Landmark {
	return make([]Landmark, NumLandmarks)
}

// StandingPoseLandmarks returns a preset pose of a person standing with both feet visible.
// The right foot points toward the right edge of the frame, the left foot toward the left.
func StandingPoseLandmarks() []Landmark {
	landmarks := EmptyPoseLandmarks()

	landmarks[Nose] = Landmark{X: 0.50, Y: 0.10, Z: -0.3, Visibility: 0.99}
	landmarks[LeftHip] = Landmark{X: 0.55, Y: 0.45, Z: 0.0, Visibility: 0.95}
	landmarks[RightHip] = Landmark{X: 0.45, Y: 0.45, Z: 0.0, Visibility: 0.95}
	landmarks[LeftKnee] = Landmark{X: 0.56, Y: 0.62, Z: 0.0, Visibility: 0.92}
	landmarks[RightKnee] = Landmark{X: 0.44, Y: 0.62, Z: 0.0, Visibility: 0.92}

	landmarks[LeftAnkle] = Landmark{X: 0.58, Y: 0.80, Z: 0.05, Visibility: 0.90}
	landmarks[LeftHeel] = Landmark{X: 0.59, Y: 0.83, Z: 0.08, Visibility: 0.85}
	landmarks[LeftFootIndex] = Landmark{X: 0.64, Y: 0.86, Z: -0.02, Visibility: 0.88}

	landmarks[RightAnkle] = Landmark{X: 0.42, Y: 0.80, Z: 0.05, Visibility: 0.90}
	landmarks[RightHeel] = Landmark{X: 0.41, Y: 0.83, Z: 0.08, Visibility: 0.85}
	landmarks[RightFootIndex] = Landmark{X: 0.36, Y: 0.86, Z: -0.02, Visibility: 0.88}

	return landmarks
}

// RightFootLandmarks returns a pose where only the right ankle and right toe are visible.
func RightFootLandmarks() []Landmark {
	landmarks := EmptyPoseLandmarks()
	landmarks[RightAnkle] = Landmark{X: 0.5, Y: 0.6, Visibility: 0.9}
	landmarks[RightFootIndex] = Landmark{X: 0.55, Y: 0.62, Visibility: 0.8}
	return landmarks
}

// LeftHeelAnkleLandmarks returns a pose where the left ankle and heel are visible but the toe is not.
func LeftHeelAnkleLandmarks() []Landmark {
	landmarks := EmptyPoseLandmarks()
	landmarks[LeftAnkle] = Landmark{X: 0.3, Y: 0.7, Visibility: 0.9}
	landmarks[LeftHeel] = Landmark{X: 0.29, Y: 0.73, Visibility: 0.7}
	landmarks[LeftFootIndex] = Landmark{X: 0.36, Y: 0.75, Visibility: 0.2}
	return landmarks
}
