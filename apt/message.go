package apt

import "sync"

// MsgType identifies what a Message's payload means to the receiving task.
// Each task layer (consumer, poller, and the MRCPv2/session orchestrators
// built on top) defines its own MsgType range.
type MsgType int

// sentinelMsgType is never exposed to a process callback; ConsumerTask and
// PollerTask intercept it internally to terminate their run loop cleanly
// after every message queued ahead of it has been handled.
const sentinelMsgType MsgType = -1

// Message is the typed envelope all task communication uses, mirroring the
// original apt_task_msg_t: a type tag plus an opaque payload, drawn from a
// pool instead of allocated per send.
type Message struct {
	Type MsgType
	Data any
}

// MessagePool is a pool of *Message values, pre-allocated by NewMessagePool.
// Acquire/Release are O(1) and allocation-free once the pool has been warmed
// up; Acquire falls back to allocating a fresh Message if the pool runs dry,
// rather than blocking the caller, and Release keeps every returned Message
// with no upper bound, so the pool can grow past its initial size.
type MessagePool struct {
	mu   sync.Mutex
	free []*Message
}

// NewMessagePool pre-allocates size Messages.
func NewMessagePool(size int) *MessagePool {
	p := &MessagePool{free: make([]*Message, 0, size)}
	for i := 0; i < size; i++ {
		p.free = append(p.free, &Message{})
	}
	return p
}

// Acquire returns a Message from the pool, or a freshly allocated one if the
// pool is currently empty.
func (p *MessagePool) Acquire() *Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return &Message{}
	}
	m := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	return m
}

// Release returns a Message to the pool for reuse. The caller must not
// retain any reference to m after calling Release.
func (p *MessagePool) Release(m *Message) {
	m.Type = 0
	m.Data = nil
	p.mu.Lock()
	p.free = append(p.free, m)
	p.mu.Unlock()
}

// Size reports the number of Messages currently held idle in the pool.
func (p *MessagePool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
