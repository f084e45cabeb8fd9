package apt

// PollEvent is a readiness notification delivered to a PollerTask, e.g. "a
// connection has bytes to read" or "a listening socket has a pending
// accept". Handle runs on the poller's own goroutine, never concurrently
// with another event or control message — callers that need to touch
// shared poller-owned state (a connection table, say) do it from inside
// Handle rather than synchronizing separately.
type PollEvent struct {
	Source any
	Handle func()
}

// PollerTask is the Go re-expression of the original's poll-set plus
// wake-up pipe: instead of a real OS poll-set, any number of reader
// goroutines (one per socket, typically) push PollEvents to report
// readiness, while control Messages arrive on a separate channel that the
// poller always drains first. This reproduces the documented ordering
// guarantee — control messages queued before a wake-up are observed before
// the socket events that arrived in the same "poll return" — without
// needing a real poll(2)/epoll(2) call, since Go's runtime already
// multiplexes blocking reads across goroutines for us.
type PollerTask struct {
	task    *Task
	control chan *Message
	events  chan PollEvent
	process func(*Message)
}

// DefaultEventCapacity is the bounded-event-queue size used when callers
// pass a non-positive capacity to NewPollerTask.
const DefaultEventCapacity = 1024

// NewPollerTask creates a poller task named name. controlCapacity bounds
// the control-message queue (DefaultQueueCapacity if <= 0); eventCapacity
// bounds the readiness-event queue (DefaultEventCapacity if <= 0). process
// handles every non-sentinel control message.
func NewPollerTask(name string, controlCapacity, eventCapacity int, process func(*Message)) *PollerTask {
	if controlCapacity <= 0 {
		controlCapacity = DefaultQueueCapacity
	}
	if eventCapacity <= 0 {
		eventCapacity = DefaultEventCapacity
	}
	p := &PollerTask{
		control: make(chan *Message, controlCapacity),
		events:  make(chan PollEvent, eventCapacity),
		process: process,
	}
	p.task = New(name, Hooks{Run: p.run})
	return p
}

// Task returns the underlying Task for Start/Terminate/State.
func (p *PollerTask) Task() *Task { return p.task }

// Signal delivers a control message. It returns false if the control queue
// is full.
func (p *PollerTask) Signal(msg *Message) bool {
	select {
	case p.control <- msg:
		return true
	default:
		return false
	}
}

// Notify delivers a readiness event. It returns false if the event queue is
// full — callers polling a live socket should treat this as "try again on
// the next readable wakeup" rather than drop the underlying data.
func (p *PollerTask) Notify(ev PollEvent) bool {
	select {
	case p.events <- ev:
		return true
	default:
		return false
	}
}

// Stop enqueues the sentinel control message that cleanly terminates Run.
func (p *PollerTask) Stop() {
	p.control <- &Message{Type: sentinelMsgType}
}

func (p *PollerTask) run() {
	for {
		if stop := p.drainControl(); stop {
			return
		}
		select {
		case msg := <-p.control:
			if msg.Type == sentinelMsgType {
				return
			}
			p.process(msg)
		case ev := <-p.events:
			ev.Handle()
		}
	}
}

// drainControl pops every control message currently queued, dispatching
// each before the poller looks at socket-ready events again. This is the
// "wake-up pipe priority" rule: a message queued before a wake-up is always
// observed before events that arrived in the same wakeup.
func (p *PollerTask) drainControl() (stop bool) {
	for {
		select {
		case msg := <-p.control:
			if msg.Type == sentinelMsgType {
				return true
			}
			p.process(msg)
		default:
			return false
		}
	}
}
