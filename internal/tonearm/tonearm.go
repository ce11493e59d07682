// Package tonearm implements the drag and settle state machine of the
// turntable's arm. It owns the arm angle, record contact and the active
// track index, and announces changes on the event bus.
package tonearm

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/geometry"
	"github.com/jscyril/golang_turntable/pkg/events"
)

// DefaultSettleDelay is how long a programmatic arm move takes to land
const DefaultSettleDelay = 500 * time.Millisecond

// State is the arm's position in the drag state machine
type State int

const (
	StateIdle State = iota
	StateDragging
	StateTracking
	StateLifted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateTracking:
		return "tracking"
	case StateLifted:
		return "lifted"
	default:
		return "unknown"
	}
}

// ArmState is a snapshot of the arm
type ArmState struct {
	Angle      float64
	OnRecord   bool
	TrackIndex int
	Dragging   bool
	State      State
	// Animated is false while the pointer holds the arm
	Animated bool
}

// Option configures a Controller
type Option func(*Controller)

// WithSettleDelay overrides DefaultSettleDelay
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) { c.settleDelay = d }
}

// WithLogger sets the controller's logger
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller is the tonearm state machine. It is not safe for concurrent
// use; drive it from one event loop and make sure the Scheduler delivers
// settles on that loop too.
type Controller struct {
	cfg         geometry.Config
	bus         *events.EventBus
	sched       Scheduler
	settleDelay time.Duration
	logger      *log.Logger

	arm    ArmState
	tracks []api.Track

	cancelSettle func()
	settleGen    uint64
}

// New creates a controller with the arm at rest
func New(cfg geometry.Config, bus *events.EventBus, sched Scheduler, opts ...Option) *Controller {
	c := &Controller{
		cfg:         cfg,
		bus:         bus,
		sched:       sched,
		settleDelay: DefaultSettleDelay,
		arm: ArmState{
			Angle:      cfg.MinAngle,
			TrackIndex: -1,
			State:      StateIdle,
			Animated:   true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.sched == nil {
		c.sched = NewTimerScheduler(nil)
	}
	if c.bus == nil {
		c.bus = events.NewEventBus()
	}
	return c
}

// Geometry returns the controller's groove geometry
func (c *Controller) Geometry() geometry.Config {
	return c.cfg
}

// Snapshot returns a copy of the arm state
func (c *Controller) Snapshot() ArmState {
	return c.arm
}

// Angle returns the current arm angle
func (c *Controller) Angle() float64 {
	return c.arm.Angle
}

// OnRecord reports whether the needle is in the groove
func (c *Controller) OnRecord() bool {
	return c.arm.OnRecord
}

// CurrentTrackIndex returns the active track index, or -1
func (c *Controller) CurrentTrackIndex() int {
	return c.arm.TrackIndex
}

// TrackCount returns the length of the playlist used for index resolution
func (c *Controller) TrackCount() int {
	return len(c.tracks)
}

// Moving reports whether a programmatic move has not settled yet
func (c *Controller) Moving() bool {
	return c.cancelSettle != nil
}

// Needle returns the needle tip position for the current angle
func (c *Controller) Needle() geometry.Point {
	return geometry.NeedlePosition(c.arm.Angle, c.cfg.Pivot, c.cfg.Reach())
}

// DragStart captures the pointer. Any move still in flight is abandoned.
func (c *Controller) DragStart() {
	c.abortSettle()
	c.arm.Dragging = true
	c.arm.Animated = false
	c.arm.State = StateDragging
}

// DragMove follows the pointer. Ignored unless a drag is in progress.
func (c *Controller) DragMove(x, y float64) {
	if !c.arm.Dragging {
		return
	}
	c.arm.Angle = geometry.AngleFromPointer(x, y, c.cfg.Pivot, c.cfg.MinAngle, c.cfg.MaxAngle)
	c.checkContact()
}

// DragEnd releases the pointer
func (c *Controller) DragEnd() {
	if !c.arm.Dragging {
		return
	}
	c.arm.Dragging = false
	c.arm.Animated = true
	if c.arm.OnRecord {
		c.arm.State = StateTracking
	} else {
		c.arm.State = StateIdle
	}
}

// LiftArm returns the arm to its rest position and always emits armLift
func (c *Controller) LiftArm() {
	c.abortSettle()
	c.arm.Angle = c.cfg.MinAngle
	c.arm.Dragging = false
	c.arm.Animated = true
	c.arm.OnRecord = false
	c.arm.TrackIndex = -1
	c.arm.State = StateLifted

	c.logger.Debug("arm lifted")
	c.emit(api.Event{Type: api.EventArmLift})
}

// MoveToTrack swings the arm toward index and, once the settle delay has
// passed, commits contact and emits armDrop followed by trackChange. The
// events are emitted even when index is already active. Out of range
// indices are ignored.
func (c *Controller) MoveToTrack(index int) {
	if index < 0 || index >= len(c.tracks) {
		return
	}
	c.abortSettle()

	c.arm.Angle = geometry.AngleForTrackIndex(index, len(c.tracks), c.cfg.MinAngle, c.cfg.MaxAngle)
	c.arm.Dragging = false
	c.arm.Animated = true
	if c.arm.OnRecord {
		c.arm.State = StateTracking
	} else {
		c.arm.State = StateIdle
	}

	c.settleGen++
	gen := c.settleGen
	c.cancelSettle = c.sched.Schedule(c.settleDelay, func() {
		if gen != c.settleGen {
			return
		}
		c.cancelSettle = nil
		c.settle(index)
	})
}

// SetTracks replaces the playlist used to resolve contact into a track
// index. It never moves the arm or emits events. An empty playlist clears
// the index; an index left out of range while on the record is resolved
// again from the needle position.
func (c *Controller) SetTracks(tracks []api.Track) {
	c.tracks = append([]api.Track(nil), tracks...)

	n := len(c.tracks)
	if n == 0 {
		c.arm.TrackIndex = -1
		return
	}
	if !c.arm.OnRecord || (c.arm.TrackIndex >= 0 && c.arm.TrackIndex < n) {
		return
	}

	contact := geometry.ContactAt(c.Needle(), c.cfg.RecordCenter, c.cfg.GrooveInner, c.cfg.RecordRadius)
	if contact.InContact {
		c.arm.TrackIndex = geometry.TrackIndexForAngle(contact.NormalizedAngle, n)
		return
	}
	// Settled by MoveToTrack at an angle outside the groove
	c.arm.TrackIndex = min(max(c.arm.TrackIndex, 0), n-1)
}

// OnTrackChange registers fn for trackChange events
func (c *Controller) OnTrackChange(fn func(index int)) events.Subscription {
	return c.bus.On(api.EventTrackChange, func(e api.Event) {
		if tc, ok := e.Payload.(api.TrackChange); ok {
			fn(tc.Index)
		}
	})
}

// OnArmDrop registers fn for armDrop events
func (c *Controller) OnArmDrop(fn func()) events.Subscription {
	return c.bus.On(api.EventArmDrop, func(api.Event) { fn() })
}

// OnArmLift registers fn for armLift events
func (c *Controller) OnArmLift(fn func()) events.Subscription {
	return c.bus.On(api.EventArmLift, func(api.Event) { fn() })
}

// Off removes a handler registered through this controller
func (c *Controller) Off(sub events.Subscription) {
	c.bus.Off(sub)
}

func (c *Controller) settle(index int) {
	if index >= len(c.tracks) {
		// Playlist shrank while the arm was moving
		return
	}
	c.arm.OnRecord = true
	c.arm.TrackIndex = index
	c.arm.State = StateTracking

	c.logger.Debug("arm settled", "index", index)
	c.emit(api.Event{Type: api.EventArmDrop})
	c.emit(api.Event{Type: api.EventTrackChange, Payload: api.TrackChange{Index: index}})
}

func (c *Controller) checkContact() {
	needle := c.Needle()
	contact := geometry.ContactAt(needle, c.cfg.RecordCenter, c.cfg.GrooveInner, c.cfg.RecordRadius)
	wasOnRecord := c.arm.OnRecord

	if !contact.InContact {
		c.arm.OnRecord = false
		c.arm.TrackIndex = -1
		if wasOnRecord {
			c.emit(api.Event{Type: api.EventArmLift})
		}
		return
	}

	c.arm.OnRecord = true
	if !wasOnRecord {
		c.emit(api.Event{Type: api.EventArmDrop})
	}

	if len(c.tracks) == 0 {
		return
	}
	idx := geometry.TrackIndexForAngle(contact.NormalizedAngle, len(c.tracks))
	if idx != c.arm.TrackIndex {
		c.arm.TrackIndex = idx
		c.emit(api.Event{Type: api.EventTrackChange, Payload: api.TrackChange{Index: idx}})
	}
}

func (c *Controller) abortSettle() {
	c.settleGen++
	if c.cancelSettle != nil {
		c.cancelSettle()
		c.cancelSettle = nil
	}
}

func (c *Controller) emit(e api.Event) {
	c.bus.Emit(e)
}
