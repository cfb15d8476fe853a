// Package detector provides pose detection interfaces and types for foot tracking.
package detector

// Pose landmark indices following the MediaPipe BlazePose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Landmark is a single estimated body keypoint.
// X and Y are normalized to [0,1] image space with Y growing downward.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// PixelPosition returns the landmark position in a frame of the given size.
func (l Landmark) PixelPosition(width, height int) (int, int) {
	return int(l.X * float64(width)), int(l.Y * float64(height))
}

// Valid reports whether landmarks has the full pose length.
func Valid(landmarks []Landmark) bool {
	return len(landmarks) >= NumLandmarks
}
