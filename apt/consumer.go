package apt

// ConsumerTask pairs a Task with a bounded FIFO of *Message values. Signal
// enqueues work from any goroutine; the task's own goroutine drains the
// queue strictly in order and hands each message to process. Stop enqueues
// a sentinel that terminates the loop only after every message queued ahead
// of it has been processed — termination never reorders pending work.
type ConsumerTask struct {
	task    *Task
	queue   chan *Message
	process func(*Message)
}

// DefaultQueueCapacity is the bounded-queue size used when callers pass a
// non-positive capacity to NewConsumerTask.
const DefaultQueueCapacity = 1024

// NewConsumerTask creates a consumer task named name, backed by a queue of
// the given capacity (DefaultQueueCapacity if capacity <= 0). process is
// invoked on the task's own goroutine for every non-sentinel message.
func NewConsumerTask(name string, capacity int, process func(*Message)) *ConsumerTask {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	c := &ConsumerTask{
		queue:   make(chan *Message, capacity),
		process: process,
	}
	c.task = New(name, Hooks{Run: c.run})
	return c
}

// Task returns the underlying Task for Start/Terminate/State.
func (c *ConsumerTask) Task() *Task { return c.task }

// Signal enqueues msg for processing. It returns false if the queue is full
// — the caller observes back-pressure rather than blocking indefinitely.
func (c *ConsumerTask) Signal(msg *Message) bool {
	select {
	case c.queue <- msg:
		return true
	default:
		return false
	}
}

// SignalWait enqueues msg, blocking until space is available.
func (c *ConsumerTask) SignalWait(msg *Message) {
	c.queue <- msg
}

// Stop enqueues the sentinel message that cleanly terminates Run once every
// message queued ahead of it has been processed.
func (c *ConsumerTask) Stop() {
	c.queue <- &Message{Type: sentinelMsgType}
}

func (c *ConsumerTask) run() {
	for msg := range c.queue {
		if msg.Type == sentinelMsgType {
			return
		}
		c.process(msg)
	}
}
