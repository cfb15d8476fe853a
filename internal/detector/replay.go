package detector

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrames is returned when a recording holds no frames.
var ErrNoFrames = errors.New("recording has no frames")

// ReplayDetector plays back recorded pose service output, one JSON line per frame.
// The recording loops when it reaches the end.
type ReplayDetector struct {
	mu     sync.Mutex
	frames [][]Landmark
	index  int
}

// NewReplayDetector loads a recording from path.
func NewReplayDetector(path string) (*ReplayDetector, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return NewReplayDetectorFromReader(file)
}

// NewReplayDetectorFromReader loads a recording from r.
func NewReplayDetectorFromReader(r io.Reader) (*ReplayDetector, error) {
	var frames [][]Landmark

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		landmarks, err := parseResponse(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, landmarks)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	return &ReplayDetector{frames: frames}, nil
}

// Len returns the number of recorded frames.
func (d *ReplayDetector) Len() int {
	return len(d.frames)
}

// Detect ignores the frame and returns the next recorded result.
func (d *ReplayDetector) Detect(frame *gocv.Mat) ([]Landmark, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	landmarks := d.frames[d.index]
	d.index = (d.index + 1) % len(d.frames)
	return landmarks, nil
}

// Close is a no-op.
func (d *ReplayDetector) Close() error {
	return nil
}
