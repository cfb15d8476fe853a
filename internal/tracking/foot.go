// Package tracking turns per-frame pose landmarks into a foot selection,
// an object placement and a user-facing tracking status.
package tracking

import "github.com/ayusman/footfit/internal/detector"

// Side identifies a foot.
type Side string

const (
	// NoSide means no foot was selected.
	NoSide Side = ""
	Left   Side = "left"
	Right  Side = "right"
)

// Validated holds the foot landmarks that passed the visibility threshold.
// A nil landmark is absent.
type Validated struct {
	// Valid is false when the landmark list was missing or too short.
	Valid bool

	LeftAnkle, LeftHeel, LeftToe    *detector.Landmark
	RightAnkle, RightHeel, RightToe *detector.Landmark
}

// Validate filters the six foot landmarks by confidence.
// A landmark is kept only when its visibility is strictly above threshold.
// A list shorter than the full pose fails closed: every landmark is absent.
func Validate(landmarks []detector.Landmark, threshold float64) Validated {
	if !detector.Valid(landmarks) {
		return Validated{}
	}

	pick := func(idx int) *detector.Landmark {
		lm := landmarks[idx]
		if lm.Visibility > threshold {
			return &lm
		}
		return nil
	}

	return Validated{
		Valid:      true,
		LeftAnkle:  pick(detector.LeftAnkle),
		LeftHeel:   pick(detector.LeftHeel),
		LeftToe:    pick(detector.LeftFootIndex),
		RightAnkle: pick(detector.RightAnkle),
		RightHeel:  pick(detector.RightHeel),
		RightToe:   pick(detector.RightFootIndex),
	}
}

// FootCandidate is one side's ankle, heel and toe landmarks.
type FootCandidate struct {
	Side  Side
	Ankle *detector.Landmark
	Heel  *detector.Landmark
	Toe   *detector.Landmark
	// VisibleCount is how many of ankle, heel and toe are present.
	VisibleCount int
}

func newCandidate(side Side, ankle, heel, toe *detector.Landmark) FootCandidate {
	c := FootCandidate{Side: side, Ankle: ankle, Heel: heel, Toe: toe}
	for _, lm := range []*detector.Landmark{ankle, heel, toe} {
		if lm != nil {
			c.VisibleCount++
		}
	}
	return c
}

// Good reports whether at least two of the three landmarks are present.
func (c FootCandidate) Good() bool {
	return c.VisibleCount >= 2
}

// Complete reports whether both ankle and toe are present. The heel is never required.
func (c FootCandidate) Complete() bool {
	return c.Ankle != nil && c.Toe != nil
}

// Selection is the Foot Selector's result for one frame.
type Selection struct {
	Valid bool
	Left  FootCandidate
	Right FootCandidate
	// Selected is the side used for overlay and status, NoSide if neither foot is good.
	Selected Side
}

// Select classifies both feet and picks one.
//
// The preference is fixed: the right foot if complete, else the left foot if
// complete, else the first good side in right then left order. Only a complete
// selection may be placed.
func Select(v Validated) Selection {
	s := Selection{
		Valid: v.Valid,
		Left:  newCandidate(Left, v.LeftAnkle, v.LeftHeel, v.LeftToe),
		Right: newCandidate(Right, v.RightAnkle, v.RightHeel, v.RightToe),
	}

	switch {
	case s.Right.Complete():
		s.Selected = Right
	case s.Left.Complete():
		s.Selected = Left
	case s.Right.Good():
		s.Selected = Right
	case s.Left.Good():
		s.Selected = Left
	}

	return s
}

// Chosen returns the selected candidate.
func (s Selection) Chosen() (FootCandidate, bool) {
	switch s.Selected {
	case Right:
		return s.Right, true
	case Left:
		return s.Left, true
	}
	return FootCandidate{}, false
}

// Locked reports whether the selected foot can be placed.
func (s Selection) Locked() bool {
	c, ok := s.Chosen()
	return ok && c.Complete()
}

// AnyGood reports whether either foot has at least two landmarks.
func (s Selection) AnyGood() bool {
	return s.Left.Good() || s.Right.Good()
}
