package mode

import "sync"

// queueSize is how many backend tasks may wait before Do blocks
const queueSize = 64

// Executor runs backend work away from the event loop. Tasks handed to one
// Executor run one at a time, in the order they were submitted.
type Executor interface {
	Do(task func())
	// Sync waits until every task submitted so far has run
	Sync()
	// Close runs the tasks already queued and stops
	Close()
}

type inline struct{}

func (inline) Do(task func()) { task() }
func (inline) Sync()          {}
func (inline) Close()         {}

// Inline runs tasks on the calling goroutine
var Inline Executor = inline{}

// Serial runs tasks on a goroutine of its own
type Serial struct {
	tasks   chan func()
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewSerial starts a serial executor
func NewSerial() *Serial {
	s := &Serial{
		tasks:   make(chan func(), queueSize),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Do queues task. Tasks submitted after Close are dropped.
func (s *Serial) Do(task func()) {
	select {
	case <-s.stop:
		return
	default:
	}
	select {
	case s.tasks <- task:
	case <-s.stop:
	}
}

// Sync implements Executor
func (s *Serial) Sync() {
	done := make(chan struct{})
	s.Do(func() { close(done) })
	select {
	case <-done:
	case <-s.stopped:
	}
}

// Close implements Executor
func (s *Serial) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.stopped
}

func (s *Serial) loop() {
	defer close(s.stopped)
	for {
		select {
		case task := <-s.tasks:
			task()
		case <-s.stop:
			for {
				select {
				case task := <-s.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}
