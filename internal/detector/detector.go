package detector

import "gocv.io/x/gocv"

// Detector defines the interface for pose estimation implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the pose landmarks in index order.
	// Returns nil if no pose is detected.
	Detect(frame *gocv.Mat) ([]Landmark, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ScriptPath overrides the pose service script lookup.
	ScriptPath string

	// PythonPath overrides the interpreter lookup.
	PythonPath string

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
