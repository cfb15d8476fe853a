package tracking

// State is the tracking quality category shown to the user.
type State string

const (
	Searching   State = "searching"
	PoseFound   State = "pose_found"
	FeetPartial State = "feet_partial"
	FeetLocked  State = "feet_locked"
	Error       State = "error"
)

// User-facing messages per state.
const (
	MessageSearching   = "Looking for pose..."
	MessagePoseFound   = "Point the camera at your feet"
	MessageFeetPartial = "Show ankle and toes clearly"
	MessageFeetLocked  = "Positioned"
)

// Status is the current tracking status.
type Status struct {
	State   State  `json:"state" msgpack:"state"`
	Message string `json:"message" msgpack:"message"`
}

// SearchingStatus is the status with no usable pose.
func SearchingStatus() Status {
	return Status{State: Searching, Message: MessageSearching}
}

// ErrorStatus carries a camera or estimator failure reason.
func ErrorStatus(err error) Status {
	return Status{State: Error, Message: err.Error()}
}

// Derive computes the status for one frame from its selection.
func Derive(s Selection) Status {
	switch {
	case !s.Valid:
		return SearchingStatus()
	case s.Left.Complete() || s.Right.Complete():
		return Status{State: FeetLocked, Message: MessageFeetLocked}
	case s.AnyGood():
		return Status{State: FeetPartial, Message: MessageFeetPartial}
	default:
		return Status{State: PoseFound, Message: MessagePoseFound}
	}
}

// StatusMachine publishes one status per frame.
//
// With a debounce of 0 the published status is exactly the derived status of the
// latest frame. With a debounce of N a changed state must be derived for N
// consecutive frames before it is published. Error is always published immediately.
type StatusMachine struct {
	debounce     int
	current      Status
	pending      State
	pendingCount int
}

// NewStatusMachine creates a StatusMachine starting at Searching.
func NewStatusMachine(debounce int) *StatusMachine {
	return &StatusMachine{
		debounce: debounce,
		current:  SearchingStatus(),
	}
}

// Update feeds the derived status of a frame and returns the published status.
func (m *StatusMachine) Update(next Status) Status {
	if next.State == m.current.State || next.State == Error || m.current.State == Error || m.debounce <= 1 {
		m.publish(next)
		return m.current
	}

	if next.State == m.pending {
		m.pendingCount++
	} else {
		m.pending = next.State
		m.pendingCount = 1
	}

	if m.pendingCount >= m.debounce {
		m.publish(next)
	}
	return m.current
}

// Fail publishes an Error status for err.
func (m *StatusMachine) Fail(err error) Status {
	return m.Update(ErrorStatus(err))
}

// Reset returns the machine to Searching.
func (m *StatusMachine) Reset() Status {
	m.publish(SearchingStatus())
	return m.current
}

// Current returns the published status.
func (m *StatusMachine) Current() Status {
	return m.current
}

func (m *StatusMachine) publish(s Status) {
	m.current = s
	m.pending = ""
	m.pendingCount = 0
}
